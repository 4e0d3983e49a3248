package config

import (
	"errors"
	"fmt"
	"slices"

	"github.com/go-playground/validator/v10"
)

// validate is the singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate validates the configuration using struct tags and custom rules.
//
// This function uses go-playground/validator for declarative validation
// via struct tags, with additional custom validation for complex rules
// that cannot be expressed in tags.
//
// Note: Log level normalization is handled in ApplyDefaults, not here.
// Validation accepts both uppercase and lowercase log levels.
//
// Returns an error describing validation failures.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	if err := validateCustomRules(cfg); err != nil {
		return err
	}

	return nil
}

// validateCustomRules performs custom validation beyond struct tags.
func validateCustomRules(cfg *Config) error {
	if !cfg.Adapters.HTTP.Enabled {
		return fmt.Errorf("adapters: the http adapter must be enabled")
	}

	seen := make(map[string]bool, len(cfg.Static.AllowedPaths))
	for i, p := range cfg.Static.AllowedPaths {
		if seen[p] {
			return fmt.Errorf("static.allowed_paths[%d]: duplicate path %q", i, p)
		}
		seen[p] = true
	}

	for i, p := range cfg.Static.Templates {
		if !slices.Contains(cfg.Static.AllowedPaths, p) {
			return fmt.Errorf("static.templates[%d]: %q is not in static.allowed_paths", i, p)
		}
	}

	if cfg.Metrics.Enabled && cfg.Metrics.Port == cfg.Adapters.HTTP.Port {
		return fmt.Errorf("metrics.port: %d is already used by the http adapter", cfg.Metrics.Port)
	}

	return nil
}

// formatValidationError converts validator errors into user-friendly messages.
func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
		// Return the first validation error with context
		e := validationErrs[0]
		return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
			e.Namespace(), e.Tag(), e.Value())
	}
	return err
}
