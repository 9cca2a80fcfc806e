package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func issuePaths(issues []ValidationIssue) []string {
	paths := make([]string, len(issues))
	for i, issue := range issues {
		paths[i] = issue.Path
	}
	return paths
}

func TestValidateDefaults(t *testing.T) {
	cfg := Defaults()
	assert.Empty(t, Validate(&cfg))
}

func TestValidateStoreBackend(t *testing.T) {
	cfg := Defaults()
	cfg.Store.Backend = "postgres"
	assert.Contains(t, issuePaths(Validate(&cfg)), "store.backend")

	cfg.Store.Backend = "memory"
	assert.Empty(t, Validate(&cfg))
}

func TestValidateSession(t *testing.T) {
	cfg := Defaults()
	cfg.Session.TTLDays = -1
	cfg.Session.MaxLoginAttempts = 0
	cfg.Session.LoginWindowMinutes = 0

	paths := issuePaths(Validate(&cfg))
	assert.Contains(t, paths, "session.ttlDays")
	assert.Contains(t, paths, "session.maxLoginAttempts")
	assert.Contains(t, paths, "session.loginWindowMinutes")
}

func TestValidateChat(t *testing.T) {
	cfg := Defaults()
	cfg.Chat.TTLDays = -1
	cfg.Chat.ContextMessages = 0

	paths := issuePaths(Validate(&cfg))
	assert.Contains(t, paths, "chat.ttlDays")
	assert.Contains(t, paths, "chat.contextMessages")
}

func TestValidateRoutingThreshold(t *testing.T) {
	cfg := Defaults()
	cfg.Routing.Threshold = 1.5
	assert.Contains(t, issuePaths(Validate(&cfg)), "routing.threshold")

	cfg.Routing.Threshold = -0.1
	assert.Contains(t, issuePaths(Validate(&cfg)), "routing.threshold")

	cfg.Routing.Threshold = 1.0
	assert.Empty(t, Validate(&cfg))
}

func TestValidateLogLevel(t *testing.T) {
	cfg := Defaults()
	cfg.Logging.Level = "verbose"

	issues := Validate(&cfg)
	assert.Contains(t, issuePaths(issues), "logging.level")
	assert.Contains(t, issues[0].String(), "logging.level")
}
