package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/joeycumines/logiface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig_file(t *testing.T) {
	path := writeFile(t, "config.yaml", `
log_level: debug
metrics_addr: 127.0.0.1:9100
max_events_per_poll: 32
module_name: reactor
log_rate_limits:
  1s: 2
  1h: 100
`)

	cfg, err := loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, &config{
		LogLevel:         "debug",
		MetricsAddr:      "127.0.0.1:9100",
		MaxEventsPerPoll: 32,
		ModuleName:       "reactor",
		LogRateLimits:    map[string]int{"1s": 2, "1h": 100},
	}, cfg)
}

func TestLoadConfig_defaults(t *testing.T) {
	path := writeFile(t, "config.yaml", "log_level: warning\n")

	cfg, err := loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "warning", cfg.LogLevel)
	assert.Equal(t, "", cfg.MetricsAddr)
	assert.Equal(t, 256, cfg.MaxEventsPerPoll)
	assert.Equal(t, "luaevent.core", cfg.ModuleName)
	assert.Equal(t, map[string]int{"1m": 10}, cfg.LogRateLimits)
}

func TestLoadConfig_missingDefaultFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := loadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadConfig_missingExplicitFile(t *testing.T) {
	_, err := loadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config")
}

func TestLoadConfig_invalidYAML(t *testing.T) {
	path := writeFile(t, "config.yaml", "log_level: [\n")
	_, err := loadConfig(path)
	require.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	for _, tc := range []struct {
		in    string
		level logiface.Level
	}{
		{"trace", logiface.LevelTrace},
		{"debug", logiface.LevelDebug},
		{"info", logiface.LevelInformational},
		{"INFO", logiface.LevelInformational},
		{" notice ", logiface.LevelNotice},
		{"warn", logiface.LevelWarning},
		{"warning", logiface.LevelWarning},
		{"err", logiface.LevelError},
		{"error", logiface.LevelError},
		{"crit", logiface.LevelCritical},
		{"off", logiface.LevelDisabled},
	} {
		t.Run(tc.in, func(t *testing.T) {
			level, err := parseLevel(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.level, level)
		})
	}

	_, err := parseLevel("verbose")
	assert.EqualError(t, err, `unknown log level "verbose"`)
}
