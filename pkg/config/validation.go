package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Validate checks the configuration against its struct tags and a handful
// of cross-field invariants the validator tags cannot express directly
// (tier path uniqueness, at least one tier).
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	seen := make(map[string]struct{}, len(cfg.Tiers))
	for i, tier := range cfg.Tiers {
		if tier.Path == "" {
			return fmt.Errorf("tiers[%d]: path is required", i)
		}
		if _, dup := seen[tier.Path]; dup {
			return fmt.Errorf("tiers[%d]: duplicate tier path %q", i, tier.Path)
		}
		seen[tier.Path] = struct{}{}
	}

	return nil
}
