package config

import (
	"fmt"
	"slices"
)

// ValidationIssue describes a problem with a config value.
type ValidationIssue struct {
	Path    string
	Message string
}

func (v ValidationIssue) String() string {
	return fmt.Sprintf("%s: %s", v.Path, v.Message)
}

// Validate checks a Config for issues. Returns nil if valid.
func Validate(cfg *Config) []ValidationIssue {
	var issues []ValidationIssue

	validBackends := []string{"sqlite", "memory"}
	if cfg.Store.Backend != "" && !slices.Contains(validBackends, cfg.Store.Backend) {
		issues = append(issues, ValidationIssue{
			Path:    "store.backend",
			Message: fmt.Sprintf("must be one of %v, got %q", validBackends, cfg.Store.Backend),
		})
	}
	if cfg.Store.RetryAttempts < 0 {
		issues = append(issues, ValidationIssue{
			Path:    "store.retryAttempts",
			Message: fmt.Sprintf("must not be negative, got %d", cfg.Store.RetryAttempts),
		})
	}

	if cfg.Session.TTLDays < 0 {
		issues = append(issues, ValidationIssue{
			Path:    "session.ttlDays",
			Message: fmt.Sprintf("must not be negative, got %d", cfg.Session.TTLDays),
		})
	}
	if cfg.Session.MaxLoginAttempts < 1 {
		issues = append(issues, ValidationIssue{
			Path:    "session.maxLoginAttempts",
			Message: fmt.Sprintf("must be at least 1, got %d", cfg.Session.MaxLoginAttempts),
		})
	}
	if cfg.Session.LoginWindowMinutes < 1 {
		issues = append(issues, ValidationIssue{
			Path:    "session.loginWindowMinutes",
			Message: fmt.Sprintf("must be at least 1, got %d", cfg.Session.LoginWindowMinutes),
		})
	}

	if cfg.Chat.TTLDays < 0 {
		issues = append(issues, ValidationIssue{
			Path:    "chat.ttlDays",
			Message: fmt.Sprintf("must not be negative, got %d", cfg.Chat.TTLDays),
		})
	}
	if cfg.Chat.ContextMessages < 1 {
		issues = append(issues, ValidationIssue{
			Path:    "chat.contextMessages",
			Message: fmt.Sprintf("must be at least 1, got %d", cfg.Chat.ContextMessages),
		})
	}

	if cfg.Knowledge.TTLMinutes < 0 {
		issues = append(issues, ValidationIssue{
			Path:    "knowledge.ttlMinutes",
			Message: fmt.Sprintf("must not be negative, got %d", cfg.Knowledge.TTLMinutes),
		})
	}

	if cfg.Routing.Threshold < 0 || cfg.Routing.Threshold > 1 {
		issues = append(issues, ValidationIssue{
			Path:    "routing.threshold",
			Message: fmt.Sprintf("must be in [0, 1], got %g", cfg.Routing.Threshold),
		})
	}

	validLogLevels := []string{"silent", "fatal", "error", "warn", "info", "debug", "trace"}
	if cfg.Logging.Level != "" && !slices.Contains(validLogLevels, cfg.Logging.Level) {
		issues = append(issues, ValidationIssue{
			Path:    "logging.level",
			Message: fmt.Sprintf("must be one of %v, got %q", validLogLevels, cfg.Logging.Level),
		})
	}

	return issues
}
