package app

import (
	"errors"
	"fmt"
	"time"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	Paths []string // hcl files, directories or glob patterns

	// Stack defaults, used when the stack block leaves them empty.
	Stage   string
	Region  string
	Account string
	Env     map[string]string

	LogFormat string
	LogLevel  string

	OutDir string // synth and file publishing target; stdout when empty
	Format string // yaml or json

	HealthcheckPort int
	Debounce        time.Duration

	NATSURL     string
	NATSSubject string
	RedisURL    string
	RedisPrefix string
	SocketIOURL string
}

// NewConfig validates cfg and fills in defaults.
func NewConfig(cfg Config) (*Config, error) {
	if len(cfg.Paths) == 0 {
		return nil, errors.New("at least one stack path is required")
	}
	switch cfg.Format {
	case "":
		cfg.Format = "yaml"
	case "yaml", "json":
	default:
		return nil, fmt.Errorf("invalid format %q: must be 'yaml' or 'json'", cfg.Format)
	}
	switch cfg.LogFormat {
	case "":
		cfg.LogFormat = "text"
	case "text", "json":
	default:
		return nil, fmt.Errorf("invalid log-format %q: must be 'text' or 'json'", cfg.LogFormat)
	}
	switch cfg.LogLevel {
	case "":
		cfg.LogLevel = "info"
	case "debug", "info", "warn", "error":
	default:
		return nil, fmt.Errorf("invalid log-level %q: must be 'debug', 'info', 'warn', or 'error'", cfg.LogLevel)
	}
	if cfg.HealthcheckPort < 0 {
		return nil, fmt.Errorf("invalid healthcheck port %d", cfg.HealthcheckPort)
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = 300 * time.Millisecond
	}
	return &cfg, nil
}
