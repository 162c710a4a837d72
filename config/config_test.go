package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaultsWithoutFile(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "mongo", cfg.Storage.Driver)
	assert.Equal(t, []string{"bins/+/telemetry"}, cfg.MQTT.Topics)
	assert.Equal(t, 90, cfg.Rules.FullnessWarningLevel)
	assert.Equal(t, 100, cfg.Rules.FullnessCriticalLevel)
	assert.False(t, cfg.Rules.OverloadAlerts)
	assert.Equal(t, time.Duration(0), cfg.Rules.ConnectionLostAfter)
}

func TestLoadConfigFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	yaml := []byte(`
server:
  port: "9000"
storage:
  driver: memory
rules:
  overloadAlerts: true
  connectionLostAfter: 30m
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0o600))
	t.Setenv("JWT_SECRET", "from-env")
	t.Setenv("SERVER_PORT", "9100")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "9100", cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Storage.Driver)
	assert.Equal(t, "from-env", cfg.JWT.Secret)
	assert.True(t, cfg.Rules.OverloadAlerts)
	assert.Equal(t, 30*time.Minute, cfg.Rules.ConnectionLostAfter)
}

func TestLoadConfigDotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("MONGO_DBNAME=from-dotenv\n"), 0o600))
	t.Setenv("MONGO_DBNAME", "")
	os.Unsetenv("MONGO_DBNAME")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.Mongo.DBName)
	os.Unsetenv("MONGO_DBNAME")
}
