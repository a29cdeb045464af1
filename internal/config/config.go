// Package config loads the cinners YAML configuration.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/anon55555/cinners/rdt"
)

// EnvPath names the environment variable consulted when no path is given.
const EnvPath = "CINNERS_CONFIG"

type Config struct {
	Listen    string `yaml:"listen"`
	AdminAddr string `yaml:"admin_addr"`

	RetransmitTimeout  time.Duration `yaml:"retransmit_timeout"`
	MaxRetransmits     int           `yaml:"max_retransmits"`
	DisconnectAttempts int           `yaml:"disconnect_attempts"`
	LossRate           float64       `yaml:"loss_rate"`

	Log LogConfig `yaml:"log"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func Default() *Config {
	return &Config{
		Listen:             "localhost:1044",
		RetransmitTimeout:  rdt.RetransmitTimeout,
		DisconnectAttempts: 5,
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads the file at path over the defaults. An empty path falls back
// to $CINNERS_CONFIG; if that is empty too, Load returns the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvPath)
	}
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cfg *Config) Validate() error {
	var errs []error
	if cfg.Listen == "" {
		errs = append(errs, errors.New("listen is required"))
	}
	if cfg.RetransmitTimeout <= 0 {
		errs = append(errs, fmt.Errorf("retransmit_timeout must be positive, got %v", cfg.RetransmitTimeout))
	}
	if cfg.MaxRetransmits < 0 {
		errs = append(errs, fmt.Errorf("max_retransmits must not be negative, got %d", cfg.MaxRetransmits))
	}
	if cfg.DisconnectAttempts < 1 {
		errs = append(errs, fmt.Errorf("disconnect_attempts must be at least 1, got %d", cfg.DisconnectAttempts))
	}
	if cfg.LossRate < 0 || cfg.LossRate >= 1 {
		errs = append(errs, fmt.Errorf("loss_rate must be in [0, 1), got %v", cfg.LossRate))
	}
	if _, err := parseLevel(cfg.Log.Level); err != nil {
		errs = append(errs, err)
	}
	switch cfg.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", cfg.Log.Format))
	}
	return errors.Join(errs...)
}

// RDT returns the transport configuration.
func (cfg *Config) RDT(log *slog.Logger) rdt.Config {
	return rdt.Config{
		RetransmitTimeout: cfg.RetransmitTimeout,
		MaxRetransmits:    cfg.MaxRetransmits,
		Logger:            log,
	}
}

// NewLogger builds a logger writing to w as configured by cfg.Log.
func (cfg *Config) NewLogger(w io.Writer) *slog.Logger {
	level, err := parseLevel(cfg.Log.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	if cfg.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("log.level must be debug, info, warn or error, got %q", s)
}
