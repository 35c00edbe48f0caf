// Package config loads command configuration from AUTORESOLVE_* variables.
package config

import (
	"errors"
	"fmt"

	"github.com/caarlos0/env/v11"
)

// EnvPrefix is prepended to every env tag.
const EnvPrefix = "AUTORESOLVE_"

// ParseEnv fills target, a pointer to a struct with env tags, from the
// environment. Tags omit EnvPrefix.
func ParseEnv(target any) error {
	if target == nil {
		return errors.New("parse env: config target is required")
	}
	if err := env.ParseWithOptions(target, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
