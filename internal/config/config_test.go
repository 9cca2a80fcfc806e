package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	assert.Equal(t, "sqlite", cfg.Store.Backend)
	assert.Equal(t, 3, cfg.Store.RetryAttempts)
	assert.Equal(t, 7, cfg.Session.TTLDays)
	assert.Equal(t, 10, cfg.Session.LoginWindowMinutes)
	assert.Equal(t, 5, cfg.Session.MaxLoginAttempts)
	assert.Equal(t, 15, cfg.Session.CodeTTLMinutes)
	assert.Equal(t, 30, cfg.Chat.TTLDays)
	assert.Equal(t, 20, cfg.Chat.ContextMessages)
	assert.Equal(t, 60, cfg.Knowledge.TTLMinutes)
	assert.Equal(t, 0.5, cfg.Routing.Threshold)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load("/nonexistent/path/config.yaml")
	require.NoError(t, err)
	// Should return defaults
	assert.Equal(t, "sqlite", cfg.Store.Backend)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadValidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	yaml := `
store:
  backend: memory
session:
  ttlDays: 14
  maxLoginAttempts: 3
chat:
  ttlDays: 60
  contextMessages: 50
knowledge:
  ttlMinutes: 5
routing:
  threshold: 0.7
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.Store.Backend)
	assert.Equal(t, 14, cfg.Session.TTLDays)
	assert.Equal(t, 3, cfg.Session.MaxLoginAttempts)
	assert.Equal(t, 60, cfg.Chat.TTLDays)
	assert.Equal(t, 50, cfg.Chat.ContextMessages)
	assert.Equal(t, 5, cfg.Knowledge.TTLMinutes)
	assert.Equal(t, 0.7, cfg.Routing.Threshold)
	assert.Equal(t, "debug", cfg.Logging.Level)

	// Fields the file omits keep their defaults.
	assert.Equal(t, 10, cfg.Session.LoginWindowMinutes)
	assert.Equal(t, 15, cfg.Session.CodeTTLMinutes)
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("store: [unclosed"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	var cerr *ConfigError
	assert.ErrorAs(t, err, &cerr)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("CEA_STORE_BACKEND", "MEMORY")
	t.Setenv("CEA_SESSION_TTL_DAYS", "2")
	t.Setenv("CEA_ROUTING_THRESHOLD", "0.9")
	t.Setenv("CEA_LOG_LEVEL", "TRACE")

	cfg, err := Load("/nonexistent/path/config.yaml")
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Store.Backend)
	assert.Equal(t, 2, cfg.Session.TTLDays)
	assert.Equal(t, 0.9, cfg.Routing.Threshold)
	assert.Equal(t, "trace", cfg.Logging.Level)
}

func TestLoadEnvOverridesBeatFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: debug\n"), 0o600))

	t.Setenv("CEA_LOG_LEVEL", "error")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.Logging.Level)
}

func TestLoadExpandsPathFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("store:\n  path: ${CEA_TEST_DATA}/kv.db\n"), 0o600))

	t.Setenv("CEA_TEST_DATA", "/var/lib/cea")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/cea/kv.db", cfg.Store.Path)
}

func TestExpandEnvVarsUnsetLeftAlone(t *testing.T) {
	assert.Equal(t, "${CEA_DOES_NOT_EXIST}/x", expandEnvVars("${CEA_DOES_NOT_EXIST}/x"))
}

func TestLoadRawAndSaveRaw(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	raw, err := LoadRaw(path)
	require.NoError(t, err)
	assert.Empty(t, raw)

	SetValueAtPath(raw, []string{"routing", "threshold"}, 0.8)
	require.NoError(t, SaveRaw(path, raw))

	raw, err = LoadRaw(path)
	require.NoError(t, err)
	v, ok := GetValueAtPath(raw, []string{"routing", "threshold"})
	require.True(t, ok)
	assert.Equal(t, 0.8, v)
}
