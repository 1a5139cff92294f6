// internal/config/validate.go
package config

import (
	"fmt"

	osp3 "github.com/luhtfiimanal/go-osp3"
)

// Validate checks configuration correctness.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	if cfg.Device.Path == "" {
		return fmt.Errorf("device.path is required")
	}
	if cfg.Device.Baud != 0 && !osp3.ValidBaud(cfg.Device.Baud) {
		return fmt.Errorf("device.baud %d not supported (want one of %v)", cfg.Device.Baud, osp3.BaudRates)
	}
	if cfg.Read.TimeoutMs != nil && *cfg.Read.TimeoutMs < 0 {
		return fmt.Errorf("read.timeout_ms must be >= 0, got %d", *cfg.Read.TimeoutMs)
	}
	if cfg.Poll.Count < 0 {
		return fmt.Errorf("poll.count must be >= 0, got %d", cfg.Poll.Count)
	}
	if _, err := cfg.Level(); err != nil {
		return err
	}
	return nil
}
