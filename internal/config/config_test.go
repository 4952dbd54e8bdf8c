package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadLayered_CLIOverridesEverything(t *testing.T) {
	embedded := []byte("server:\n  url: \"https://embedded.example.com\"\n  token: \"embedded_token\"")
	t.Setenv("ATLAS_SERVER_URL", "https://env.example.com")
	t.Setenv("ATLAS_LOCATION", "env-rack")
	cli := CLIOverrides{URL: "https://cli.example.com", Token: "cli_token", Location: "cli-rack"}

	cfg, err := LoadLayered(cli, embedded, "")
	require.NoError(t, err)
	assert.Equal(t, "https://cli.example.com", cfg.Server.URL)
	assert.Equal(t, "cli_token", cfg.Server.Token)
	assert.Equal(t, "cli-rack", cfg.Host.Location)
}

func TestLoadLayered_EnvOverridesEmbed(t *testing.T) {
	embedded := []byte("server:\n  url: \"https://embedded.example.com\"\n  token: \"embedded_token\"")
	t.Setenv("ATLAS_SERVER_URL", "https://env.example.com")

	cfg, err := LoadLayered(CLIOverrides{}, embedded, "")
	require.NoError(t, err)
	assert.Equal(t, "https://env.example.com", cfg.Server.URL)
	assert.Equal(t, "embedded_token", cfg.Server.Token)
}

func TestLoadLayered_DefaultsWhenEmpty(t *testing.T) {
	cfg, err := LoadLayered(CLIOverrides{}, nil, "")
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:4000", cfg.Server.URL)
	assert.Equal(t, 10*time.Second, cfg.Reporting.Interval.Duration)
	assert.Equal(t, 5, cfg.Reporting.MaxConsecutiveFailures)
	assert.Equal(t, 3, cfg.Registration.MaxRetries)
	assert.Equal(t, 5*time.Second, cfg.Registration.RetryDelay.Duration)
	assert.Equal(t, 10*time.Second, cfg.Server.RequestTimeout.Duration)
	require.NoError(t, cfg.Validate())
}

func TestLoadLayered_FileOverridesEmbed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agent.yaml")
	require.NoError(t, os.WriteFile(path, []byte("reporting:\n  interval: 30\n  max_consecutive_failures: 7\nregistration:\n  retry_delay: 1m\n"), 0600))

	cfg, err := LoadLayered(CLIOverrides{}, []byte("reporting:\n  interval: 15s\n"), path)
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, cfg.Reporting.Interval.Duration)
	assert.Equal(t, 7, cfg.Reporting.MaxConsecutiveFailures)
	assert.Equal(t, time.Minute, cfg.Registration.RetryDelay.Duration)
}

func TestLoadLayered_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadLayered(CLIOverrides{}, nil, filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Registration.MaxRetries)
}

func TestLoadLayered_EnvNumbers(t *testing.T) {
	t.Setenv("ATLAS_METRICS_INTERVAL", "20")
	t.Setenv("ATLAS_RETRY_DELAY", "2s")
	t.Setenv("ATLAS_MAX_RETRIES", "6")
	t.Setenv("ATLAS_MAX_CONSECUTIVE_FAILURES", "9")

	cfg, err := LoadLayered(CLIOverrides{}, nil, "")
	require.NoError(t, err)
	assert.Equal(t, 20*time.Second, cfg.Reporting.Interval.Duration)
	assert.Equal(t, 2*time.Second, cfg.Registration.RetryDelay.Duration)
	assert.Equal(t, 6, cfg.Registration.MaxRetries)
	assert.Equal(t, 9, cfg.Reporting.MaxConsecutiveFailures)
}

func TestLoadLayered_BadEnvNumber(t *testing.T) {
	t.Setenv("ATLAS_MAX_RETRIES", "three")

	_, err := LoadLayered(CLIOverrides{}, nil, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ATLAS_MAX_RETRIES")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"https", func(c *Config) { c.Server.URL = "https://collector.example.com" }, false},
		{"empty url", func(c *Config) { c.Server.URL = "" }, true},
		{"ftp url", func(c *Config) { c.Server.URL = "ftp://collector.example.com" }, true},
		{"zero retries", func(c *Config) { c.Registration.MaxRetries = 0 }, true},
		{"zero failures", func(c *Config) { c.Reporting.MaxConsecutiveFailures = 0 }, true},
		{"sub-second interval", func(c *Config) { c.Reporting.Interval.Duration = 10 * time.Millisecond }, true},
		{"rotation too fast", func(c *Config) { c.Logging.RotationTime.Duration = 0 }, true},
		{"bad level", func(c *Config) { c.Logging.Level = "verbose" }, true},
		{"telemetry listen", func(c *Config) { c.Telemetry.Listen = "127.0.0.1:9464" }, false},
		{"bad telemetry listen", func(c *Config) { c.Telemetry.Listen = "nowhere" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestWriteConfig_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")

	cfg := DefaultConfig()
	cfg.Server.URL = "https://test.example.com"
	cfg.Reporting.Interval.Duration = 45 * time.Second
	require.NoError(t, WriteConfig(cfg, path))

	loaded, err := LoadLayered(CLIOverrides{}, nil, path)
	require.NoError(t, err)
	assert.Equal(t, "https://test.example.com", loaded.Server.URL)
	assert.Equal(t, 45*time.Second, loaded.Reporting.Interval.Duration)
}
