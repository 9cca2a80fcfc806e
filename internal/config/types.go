package config

// Config is the root configuration for the assistant core.
type Config struct {
	Store     StoreConfig     `yaml:"store,omitempty"`
	Session   SessionConfig   `yaml:"session,omitempty"`
	Chat      ChatConfig      `yaml:"chat,omitempty"`
	Knowledge KnowledgeConfig `yaml:"knowledge,omitempty"`
	Routing   RoutingConfig   `yaml:"routing,omitempty"`
	Logging   LoggingConfig   `yaml:"logging,omitempty"`
}

// StoreConfig selects the key-value backend.
type StoreConfig struct {
	Backend       string `yaml:"backend,omitempty"` // "sqlite" | "memory"
	Path          string `yaml:"path,omitempty"`    // sqlite file, defaults under the data dir
	RetryAttempts int    `yaml:"retryAttempts,omitempty"`
	RetryBaseMS   int    `yaml:"retryBaseMs,omitempty"`
}

// SessionConfig controls session lifetimes and login throttling.
type SessionConfig struct {
	TTLDays            int `yaml:"ttlDays,omitempty"`
	LoginWindowMinutes int `yaml:"loginWindowMinutes,omitempty"`
	MaxLoginAttempts   int `yaml:"maxLoginAttempts,omitempty"`
	CodeTTLMinutes     int `yaml:"codeTtlMinutes,omitempty"`
}

// ChatConfig controls chat retention and responder context.
type ChatConfig struct {
	TTLDays         int `yaml:"ttlDays,omitempty"`
	ContextMessages int `yaml:"contextMessages,omitempty"`
}

// KnowledgeConfig controls the retrieval cache.
type KnowledgeConfig struct {
	TTLMinutes       int `yaml:"ttlMinutes,omitempty"`
	AttemptTimeoutMS int `yaml:"attemptTimeoutMs,omitempty"`
}

// RoutingConfig tunes the supervisor.
type RoutingConfig struct {
	Threshold float64 `yaml:"threshold,omitempty"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level string `yaml:"level,omitempty"` // trace..fatal, or silent
	File  string `yaml:"file,omitempty"`  // log to this file instead of stderr
}
