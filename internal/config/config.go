// Package config loads server settings from an optional YAML file and the
// environment. Environment variables override the file; flags, applied by
// the CLI, override both.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mmynk/settleup/pkg/logging"
)

// Config is the full server configuration.
type Config struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string `yaml:"addr"`
	// DBPath is the SQLite database file.
	DBPath string `yaml:"db_path"`
	// StaticDir, if set, is served for every non-RPC path.
	StaticDir string `yaml:"static_dir"`

	Auth    AuthConfig    `yaml:"auth"`
	Log     LogConfig     `yaml:"log"`
	Tracing TracingConfig `yaml:"tracing"`
	Metrics MetricsConfig `yaml:"metrics"`
}

type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type TracingConfig struct {
	// Endpoint is the OTLP/HTTP collector. Empty disables tracing.
	Endpoint    string `yaml:"endpoint"`
	ServiceName string `yaml:"service_name"`
	Insecure    bool   `yaml:"insecure"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Default returns the settings used when nothing else is configured.
// JWTSecret has no default.
func Default() *Config {
	return &Config{
		Addr:   ":8080",
		DBPath: "./data/settleup.db",
		Auth: AuthConfig{
			TokenTTL: 24 * time.Hour,
		},
		Log: LogConfig{
			Level:  "info",
			Format: logging.FormatText,
		},
		Tracing: TracingConfig{
			ServiceName: "settleup",
			Insecure:    true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Load reads path (if non-empty) over the defaults, then applies
// environment overrides. The result is not validated.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	str("SETTLEUP_ADDR", &c.Addr)
	str("DB_PATH", &c.DBPath)
	str("STATIC_PATH", &c.StaticDir)
	str("JWT_SECRET", &c.Auth.JWTSecret)
	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FORMAT", &c.Log.Format)
	str("OTEL_EXPORTER_OTLP_ENDPOINT", &c.Tracing.Endpoint)
	str("OTEL_SERVICE_NAME", &c.Tracing.ServiceName)

	if v, ok := lookup("TOKEN_TTL"); ok && v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid TOKEN_TTL %q: %w", v, err)
		}
		c.Auth.TokenTTL = ttl
	}
	if v, ok := lookup("METRICS_ENABLED"); ok && v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid METRICS_ENABLED %q: %w", v, err)
		}
		c.Metrics.Enabled = enabled
	}
	return nil
}

// Validate reports every problem with the configuration at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Addr == "" {
		errs = append(errs, errors.New("addr is required"))
	}
	if c.DBPath == "" {
		errs = append(errs, errors.New("db_path is required"))
	}
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("auth.jwt_secret is required (or set JWT_SECRET)"))
	}
	if c.Auth.TokenTTL <= 0 {
		errs = append(errs, fmt.Errorf("auth.token_ttl must be positive, got %s", c.Auth.TokenTTL))
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	if !logging.ValidFormat(c.Log.Format) {
		errs = append(errs, fmt.Errorf("log.format must be %q or %q, got %q", logging.FormatText, logging.FormatJSON, c.Log.Format))
	}
	return errors.Join(errs...)
}
