package config

import (
	"errors"
	"strings"
	"time"
)

// Backend names for the ledger store.
const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
)

// Config defines the control-center configuration. Values come from an
// optional YAML file (CONFIG_FILE env) overridden by environment variables.
type Config struct {
	Pipeline struct {
		RetryAttempts     int `yaml:"retry_attempts" env:"PIPELINE_RETRY_ATTEMPTS"`
		RetryDelaySeconds int `yaml:"retry_delay_seconds" env:"PIPELINE_RETRY_DELAY_SECONDS"`
	} `yaml:"pipeline"`

	Source struct {
		URL            string `yaml:"url" env:"SOURCE_URL"`
		AuthSecret     string `yaml:"auth_secret" env:"SOURCE_AUTH_SECRET"`
		TimeoutSeconds int    `yaml:"timeout_seconds" env:"SOURCE_TIMEOUT_SECONDS"`
	} `yaml:"source"`

	Ledger struct {
		Backend     string `yaml:"backend" env:"LEDGER_BACKEND"`
		Path        string `yaml:"path" env:"LEDGER_PATH"`
		PostgresDSN string `yaml:"postgres_dsn" env:"LEDGER_POSTGRES_DSN"`
	} `yaml:"ledger"`

	Intelligence struct {
		AnnotatedOutput string `yaml:"annotated_output" env:"ANNOTATED_OUTPUT"`
	} `yaml:"intelligence"`

	Log struct {
		File string `yaml:"file" env:"LOG_FILE"`
	} `yaml:"log"`

	Redis struct {
		Addr     string `yaml:"addr" env:"REDIS_ADDR"`
		Password string `yaml:"password" env:"REDIS_PASSWORD"`
	} `yaml:"redis"`

	Dashboard struct {
		ListenAddr string `yaml:"listen_addr" env:"DASHBOARD_LISTEN_ADDR"`
	} `yaml:"dashboard"`

	Monitor struct {
		StreamURL string `yaml:"stream_url" env:"MONITOR_STREAM_URL"`
	} `yaml:"monitor"`
}

// Load reads configuration and applies defaults.
func Load() (*Config, error) {
	cfg := &Config{}
	cfg.Pipeline.RetryAttempts = 3
	cfg.Pipeline.RetryDelaySeconds = 5
	cfg.Ledger.Backend = BackendFile
	cfg.Ledger.Path = "data/ledger.csv"
	cfg.Intelligence.AnnotatedOutput = "data/ledger_annotated.csv"
	cfg.Source.URL = "http://localhost:5000"
	cfg.Source.TimeoutSeconds = 10
	cfg.Dashboard.ListenAddr = ":5000"

	if err := load(cfg); err != nil {
		return nil, err
	}

	switch strings.TrimSpace(cfg.Ledger.Backend) {
	case BackendFile:
		if strings.TrimSpace(cfg.Ledger.Path) == "" {
			return nil, errors.New("config: ledger path required for file backend")
		}
	case BackendPostgres:
		if strings.TrimSpace(cfg.Ledger.PostgresDSN) == "" {
			return nil, errors.New("config: postgres dsn required for postgres backend")
		}
	default:
		return nil, errors.New("config: ledger backend must be file or postgres")
	}

	if cfg.Pipeline.RetryAttempts <= 0 {
		return nil, errors.New("config: retry_attempts must be positive")
	}
	if cfg.Pipeline.RetryDelaySeconds < 0 {
		return nil, errors.New("config: retry_delay_seconds must not be negative")
	}

	return cfg, nil
}

// RetryDelay returns the configured inter-attempt delay.
func (c *Config) RetryDelay() time.Duration {
	return time.Duration(c.Pipeline.RetryDelaySeconds) * time.Second
}

// SourceTimeout returns the extraction request timeout.
func (c *Config) SourceTimeout() time.Duration {
	return time.Duration(c.Source.TimeoutSeconds) * time.Second
}
