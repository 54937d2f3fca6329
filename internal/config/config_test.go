package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadWithFile_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadWithFile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 9520, cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout.Duration())
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, 4*time.Second, cfg.Ops.TaskDelay.Duration())
	assert.Equal(t, "reliefd", cfg.Observability.ServiceName)
	assert.Equal(t, "gpt-4o-mini", cfg.Planner.Model)
}

func TestLoadWithFile_YAMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
server:
  port: 8088
ops:
  task_delay: 250ms
planner:
  model: gpt-4o
  api_key: super-secret
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	cfg, err := LoadWithFile(path)
	require.NoError(t, err)

	assert.Equal(t, 8088, cfg.Server.Port)
	assert.Equal(t, 250*time.Millisecond, cfg.Ops.TaskDelay.Duration())
	assert.Equal(t, "gpt-4o", cfg.Planner.Model)
	assert.Equal(t, "super-secret", cfg.Planner.APIKey.Value())
}

func TestLoadWithFile_InvalidConfigRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 99999\n"), 0o600))

	_, err := LoadWithFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server port")
}

func TestConfig_Validate(t *testing.T) {
	base := func() *Config {
		cfg := &Config{}
		applyDefaults(cfg)
		return cfg
	}

	t.Run("defaults are valid", func(t *testing.T) {
		require.NoError(t, base().Validate())
	})

	t.Run("bad logging format", func(t *testing.T) {
		cfg := base()
		cfg.Logging.Format = "xml"
		require.Error(t, cfg.Validate())
	})

	t.Run("telemetry needs endpoint", func(t *testing.T) {
		cfg := base()
		cfg.Observability.Enabled = true
		require.Error(t, cfg.Validate())

		cfg.Observability.Endpoint = "collector:4317"
		require.NoError(t, cfg.Validate())
	})

	t.Run("bad protocol", func(t *testing.T) {
		cfg := base()
		cfg.Observability.Protocol = "smoke-signal"
		require.Error(t, cfg.Validate())
	})
}

func TestEnvTransform(t *testing.T) {
	assert.Equal(t, "server.port", envTransform("SERVER_PORT"))
	assert.Equal(t, "ops.task_delay", envTransform("OPS_TASK_DELAY"))
	assert.Equal(t, "planner.api_key", envTransform("PLANNER_API_KEY"))
	assert.Equal(t, "observability.service_name", envTransform("OBSERVABILITY_SERVICE_NAME"))
	assert.Equal(t, "term", envTransform("TERM"))
}

func TestDuration_Text(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalText([]byte("90s")))
	assert.Equal(t, 90*time.Second, d.Duration())

	out, err := d.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "1m30s", string(out))

	require.Error(t, d.UnmarshalText([]byte("-5s")), "negative durations rejected")
	require.Error(t, d.UnmarshalText([]byte("soon")))
}

func TestSecret_Redaction(t *testing.T) {
	s := Secret("hunter2")
	assert.Equal(t, "[REDACTED]", s.String())
	assert.Equal(t, "hunter2", s.Value())
	assert.True(t, s.IsSet())

	data, err := json.Marshal(struct {
		Key Secret `json:"key"`
	}{Key: s})
	require.NoError(t, err)
	assert.JSONEq(t, `{"key":"[REDACTED]"}`, string(data))

	assert.Equal(t, "", Secret("").String())
	assert.False(t, Secret("").IsSet())
}
