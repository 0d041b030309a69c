package config

import (
	"fmt"
	"time"

	"github.com/grovetools/phlux/errors"
)

var (
	validRunners  = map[string]bool{RunnerInline: true, RunnerGoroutine: true}
	validBackends = map[string]bool{"file": true, "pebble": true}
	validFormats  = map[string]bool{"yaml": true, "json": true, "toml": true}
)

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Store.Runner != "" && !validRunners[c.Store.Runner] {
		return errors.New(errors.ErrCodeConfigValidation, fmt.Sprintf("unknown store.runner '%s'", c.Store.Runner)).
			WithDetail("runner", c.Store.Runner)
	}

	if c.Persistence.Backend != "" && !validBackends[c.Persistence.Backend] {
		return errors.New(errors.ErrCodeConfigValidation, fmt.Sprintf("unknown persistence.backend '%s'", c.Persistence.Backend)).
			WithDetail("backend", c.Persistence.Backend)
	}
	if c.Persistence.Format != "" && !validFormats[c.Persistence.Format] {
		return errors.New(errors.ErrCodeConfigValidation, fmt.Sprintf("unknown persistence.format '%s'", c.Persistence.Format)).
			WithDetail("format", c.Persistence.Format)
	}

	if c.Server.ResumeGrace != "" {
		d, err := time.ParseDuration(c.Server.ResumeGrace)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeConfigValidation, "invalid server.resume_grace").
				WithDetail("resume_grace", c.Server.ResumeGrace)
		}
		if d < 0 {
			return errors.New(errors.ErrCodeConfigValidation, "server.resume_grace cannot be negative").
				WithDetail("resume_grace", c.Server.ResumeGrace)
		}
	}

	return nil
}
