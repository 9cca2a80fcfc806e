package config

import (
	"os"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// envVarPattern matches ${VAR_NAME} patterns in strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnvVars replaces ${VAR} patterns with environment variable values.
// Unset variables are left unchanged.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		if val, ok := os.LookupEnv(varName); ok {
			return val
		}
		return match
	})
}

// expandPathFields processes environment variable references in path
// fields so configs can say path: ${CEA_DATA}/kv.db.
func expandPathFields(cfg *Config) {
	cfg.Store.Path = expandEnvVars(cfg.Store.Path)
	cfg.Logging.File = expandEnvVars(cfg.Logging.File)
}

// Load reads the config file, applies environment overrides, and returns
// a merged Config. Missing files produce defaults only.
func Load(path string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyEnvOverrides(&cfg)
			return cfg, nil
		}
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, &ConfigError{Message: "failed to parse config: " + err.Error()}
	}

	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)
	expandPathFields(&cfg)
	return cfg, nil
}

// LoadRaw reads the config file into a generic map for path-based access.
func LoadRaw(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]any{}, nil
		}
		return nil, err
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &ConfigError{Message: "failed to parse config: " + err.Error()}
	}
	return raw, nil
}

// SaveRaw writes a generic map back to a YAML config file.
func SaveRaw(path string, raw map[string]any) error {
	data, err := yaml.Marshal(raw)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// applyDefaults fills zero-value fields with sensible defaults.
func applyDefaults(cfg *Config) {
	def := Defaults()
	if cfg.Store.Backend == "" {
		cfg.Store.Backend = def.Store.Backend
	}
	if cfg.Store.RetryAttempts == 0 {
		cfg.Store.RetryAttempts = def.Store.RetryAttempts
	}
	if cfg.Store.RetryBaseMS == 0 {
		cfg.Store.RetryBaseMS = def.Store.RetryBaseMS
	}
	if cfg.Session.TTLDays == 0 {
		cfg.Session.TTLDays = def.Session.TTLDays
	}
	if cfg.Session.LoginWindowMinutes == 0 {
		cfg.Session.LoginWindowMinutes = def.Session.LoginWindowMinutes
	}
	if cfg.Session.MaxLoginAttempts == 0 {
		cfg.Session.MaxLoginAttempts = def.Session.MaxLoginAttempts
	}
	if cfg.Session.CodeTTLMinutes == 0 {
		cfg.Session.CodeTTLMinutes = def.Session.CodeTTLMinutes
	}
	if cfg.Chat.TTLDays == 0 {
		cfg.Chat.TTLDays = def.Chat.TTLDays
	}
	if cfg.Chat.ContextMessages == 0 {
		cfg.Chat.ContextMessages = def.Chat.ContextMessages
	}
	if cfg.Knowledge.TTLMinutes == 0 {
		cfg.Knowledge.TTLMinutes = def.Knowledge.TTLMinutes
	}
	if cfg.Knowledge.AttemptTimeoutMS == 0 {
		cfg.Knowledge.AttemptTimeoutMS = def.Knowledge.AttemptTimeoutMS
	}
	if cfg.Routing.Threshold == 0 {
		cfg.Routing.Threshold = def.Routing.Threshold
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = def.Logging.Level
	}
}

// applyEnvOverrides reads CEA_* environment variables and overrides config values.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("CEA_STORE_BACKEND"); v != "" {
		cfg.Store.Backend = strings.ToLower(v)
	}
	if v := os.Getenv("CEA_STORE_PATH"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("CEA_SESSION_TTL_DAYS"); v != "" {
		if days, err := strconv.Atoi(v); err == nil {
			cfg.Session.TTLDays = days
		}
	}
	if v := os.Getenv("CEA_CHAT_TTL_DAYS"); v != "" {
		if days, err := strconv.Atoi(v); err == nil {
			cfg.Chat.TTLDays = days
		}
	}
	if v := os.Getenv("CEA_ROUTING_THRESHOLD"); v != "" {
		if th, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Routing.Threshold = th
		}
	}
	if v := os.Getenv("CEA_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
}
