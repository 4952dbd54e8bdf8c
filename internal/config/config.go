// Package config handles configuration loading from YAML files and environment variables.
// Configuration precedence: CLI flags > environment variables > config file > embedded > defaults.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var valid = validator.New()

// Duration is a wrapper around time.Duration that supports YAML unmarshaling
// from human-readable strings like "10s" or "1m". Bare integers are seconds.
type Duration struct {
	time.Duration
}

// UnmarshalYAML implements the yaml.Unmarshaler interface for Duration.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("unsupported duration format: %v", value.Kind)
	}
	parsed, err := ParseDuration(value.Value)
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// MarshalYAML implements the yaml.Marshaler interface for Duration.
func (d Duration) MarshalYAML() (interface{}, error) {
	return d.Duration.String(), nil
}

// ParseDuration accepts Go duration strings ("5s", "1m30s") and plain
// integers, which are read as seconds.
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if secs, err := strconv.Atoi(s); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	return parsed, nil
}

// Config holds all agent configuration.
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Registration RegistrationConfig `yaml:"registration"`
	Reporting    ReportingConfig    `yaml:"reporting"`
	Host         HostConfig         `yaml:"host"`
	Logging      LoggingConfig      `yaml:"logging"`
	Telemetry    TelemetryConfig    `yaml:"telemetry"`
}

// ServerConfig holds collector connection settings.
type ServerConfig struct {
	URL            string   `yaml:"url" validate:"required,url"`
	Token          string   `yaml:"token"`
	RequestTimeout Duration `yaml:"request_timeout"`
	Compress       bool     `yaml:"compress"`
}

// RegistrationConfig holds the retry policy for acquiring a server id.
type RegistrationConfig struct {
	MaxRetries int      `yaml:"max_retries" validate:"gte=1,lte=100"`
	RetryDelay Duration `yaml:"retry_delay"`
}

// ReportingConfig holds the sampling loop settings.
type ReportingConfig struct {
	Interval               Duration `yaml:"interval"`
	MaxConsecutiveFailures int      `yaml:"max_consecutive_failures" validate:"gte=1"`
}

// HostConfig holds overrides for the host descriptor.
type HostConfig struct {
	Location string `yaml:"location"`
	DiskPath string `yaml:"disk_path"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level        string   `yaml:"level" validate:"oneof=debug info warn error"`
	File         string   `yaml:"file"`
	MaxAge       Duration `yaml:"max_age"`
	RotationTime Duration `yaml:"rotation_time"`
}

// TelemetryConfig holds the self-metrics listener settings.
type TelemetryConfig struct {
	Listen string `yaml:"listen" validate:"omitempty,hostname_port"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			URL:            "http://localhost:4000",
			RequestTimeout: Duration{10 * time.Second},
		},
		Registration: RegistrationConfig{
			MaxRetries: 3,
			RetryDelay: Duration{5 * time.Second},
		},
		Reporting: ReportingConfig{
			Interval:               Duration{10 * time.Second},
			MaxConsecutiveFailures: 5,
		},
		Logging: LoggingConfig{
			Level:        "info",
			File:         "./atlas_agent.log",
			MaxAge:       Duration{7 * 24 * time.Hour},
			RotationTime: Duration{24 * time.Hour},
		},
	}
}

// CLIOverrides holds values from command-line flags.
// Empty strings are treated as "not set" and skipped.
type CLIOverrides struct {
	URL      string
	Token    string
	Location string
	LogLevel string
}

// Locate searches standard config file paths and returns the first one found.
// Returns empty string if no config file exists.
func Locate() string {
	for _, p := range configSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// LoadLayered loads configuration with the full precedence chain:
// CLI flags > env vars > external YAML file > embedded bytes > defaults.
//
// An optional configPath argument controls external-file discovery:
//   - omitted        → auto-discover via Locate()
//   - explicit value  → use that path ("" means no external file)
func LoadLayered(cli CLIOverrides, embedded []byte, configPath ...string) (*Config, error) {
	cfg := DefaultConfig()

	if len(embedded) > 0 {
		if err := yaml.Unmarshal(embedded, cfg); err != nil {
			return nil, fmt.Errorf("parsing embedded config: %w", err)
		}
	}

	var filePath string
	if len(configPath) > 0 {
		filePath = configPath[0]
	} else {
		filePath = Locate()
	}
	if filePath != "" {
		data, err := os.ReadFile(filePath)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config file %s: %w", filePath, err)
			}
		case !os.IsNotExist(err):
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if cli.URL != "" {
		cfg.Server.URL = cli.URL
	}
	if cli.Token != "" {
		cfg.Server.Token = cli.Token
	}
	if cli.Location != "" {
		cfg.Host.Location = cli.Location
	}
	if cli.LogLevel != "" {
		cfg.Logging.Level = cli.LogLevel
	}

	return cfg, nil
}

// WriteConfig serializes the config to a YAML file at the given path.
// Creates parent directories if needed.
func WriteConfig(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(path, data, 0640)
}

// applyEnvOverrides applies ATLAS_* environment variables on top of the
// file layers. A malformed numeric or duration value is an error.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("ATLAS_SERVER_URL"); v != "" {
		cfg.Server.URL = v
	}
	if v := os.Getenv("ATLAS_TOKEN"); v != "" {
		cfg.Server.Token = v
	}
	if v := os.Getenv("ATLAS_LOCATION"); v != "" {
		cfg.Host.Location = v
	}
	if v := os.Getenv("ATLAS_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := os.Getenv("ATLAS_TELEMETRY_LISTEN"); v != "" {
		cfg.Telemetry.Listen = v
	}

	durations := []struct {
		key string
		dst *Duration
	}{
		{"ATLAS_METRICS_INTERVAL", &cfg.Reporting.Interval},
		{"ATLAS_RETRY_DELAY", &cfg.Registration.RetryDelay},
		{"ATLAS_REQUEST_TIMEOUT", &cfg.Server.RequestTimeout},
	}
	for _, d := range durations {
		v := os.Getenv(d.key)
		if v == "" {
			continue
		}
		parsed, err := ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", d.key, err)
		}
		d.dst.Duration = parsed
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"ATLAS_MAX_RETRIES", &cfg.Registration.MaxRetries},
		{"ATLAS_MAX_CONSECUTIVE_FAILURES", &cfg.Reporting.MaxConsecutiveFailures},
	}
	for _, i := range ints {
		v := os.Getenv(i.key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: invalid integer %q", i.key, v)
		}
		*i.dst = n
	}
	return nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if err := valid.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	u, err := url.Parse(c.Server.URL)
	if err != nil {
		return fmt.Errorf("invalid server URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("server URL must use http or https (got: %s)", c.Server.URL)
	}

	checks := []struct {
		name string
		d    time.Duration
		min  time.Duration
	}{
		{"server.request_timeout", c.Server.RequestTimeout.Duration, 100 * time.Millisecond},
		{"registration.retry_delay", c.Registration.RetryDelay.Duration, 0},
		{"reporting.interval", c.Reporting.Interval.Duration, time.Second},
		{"logging.rotation_time", c.Logging.RotationTime.Duration, time.Minute},
	}
	for _, chk := range checks {
		if chk.d < chk.min {
			return fmt.Errorf("%s must be at least %s, got %s", chk.name, chk.min, chk.d)
		}
	}
	return nil
}
