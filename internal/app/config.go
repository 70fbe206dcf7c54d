package app

import "errors"

// Config holds everything an App instance needs to run.
type Config struct {
	Demo      string
	LogFormat string
	LogLevel  string
}

// NewConfig validates a Config.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.Demo == "" {
		return nil, errors.New("Demo is a required configuration field and cannot be empty")
	}
	return &cfg, nil
}
