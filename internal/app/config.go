package app

import "errors"

// Config holds everything an App instance needs to run.
type Config struct {
	FlowPath string // .hcl flow definition file or directory

	LogFormat  string
	LogLevel   string
	ListenAddr string // HTTP trigger surface; empty means run once and exit
}

// NewConfig validates a Config.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.FlowPath == "" {
		return nil, errors.New("FlowPath is a required configuration field and cannot be empty")
	}
	return &cfg, nil
}
