package lookuptransmission

import (
	"fmt"
	"time"

	"transmission-api/internal/common/config"
)

type Config struct {
	Enabled        bool          `mapstructure:"enabled"`
	MaxJobsActive  int           `mapstructure:"max_jobs_active"`
	Timeout        time.Duration `mapstructure:"timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

func DefaultConfig() *Config {
	return &Config{
		Enabled:       true,
		MaxJobsActive: 5,
		Timeout:       30 * time.Second,
	}
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.MaxJobsActive <= 0 {
		return fmt.Errorf("max_jobs_active must be positive")
	}
	return nil
}

func createConfigFromAppConfig(appConfig *config.Config, customConfig *Config) *Config {
	if customConfig != nil {
		return customConfig
	}

	cfg := DefaultConfig()
	if appConfig == nil {
		return cfg
	}

	cam := appConfig.Camunda
	cfg.Enabled = cam.Enabled
	if cam.MaxJobsActive > 0 {
		cfg.MaxJobsActive = cam.MaxJobsActive
	}
	if cam.Timeout > 0 {
		cfg.Timeout = time.Duration(cam.Timeout) * time.Millisecond
	}
	if cam.RequestTimeout > 0 {
		cfg.RequestTimeout = time.Duration(cam.RequestTimeout) * time.Millisecond
	}
	return cfg
}
