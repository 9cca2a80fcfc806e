package config

import "fmt"

// ConfigError represents a configuration error.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s", e.Message)
}

// Defaults returns a Config with sensible defaults applied.
func Defaults() Config {
	return Config{
		Store: StoreConfig{
			Backend:       "sqlite",
			RetryAttempts: 3,
			RetryBaseMS:   50,
		},
		Session: SessionConfig{
			TTLDays:            7,
			LoginWindowMinutes: 10,
			MaxLoginAttempts:   5,
			CodeTTLMinutes:     15,
		},
		Chat: ChatConfig{
			TTLDays:         30,
			ContextMessages: 20,
		},
		Knowledge: KnowledgeConfig{
			TTLMinutes:       60,
			AttemptTimeoutMS: 10000,
		},
		Routing: RoutingConfig{
			Threshold: 0.5,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}
