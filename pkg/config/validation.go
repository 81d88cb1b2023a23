package config

import (
	"fmt"

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
	// Run struct tag validation
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	// Custom validation rules that can't be expressed in tags
	if err := validateCustomRules(cfg); err != nil {
		return err
	}

	return nil
}

// validateCustomRules performs custom validation beyond struct tags.
func validateCustomRules(cfg *Config) error {
	if cfg.Metrics.Enabled {
		if cfg.Metrics.Port == 0 {
			return fmt.Errorf("metrics: port is required when metrics are enabled")
		}
		if cfg.Metrics.Port == cfg.API.Port {
			return fmt.Errorf("metrics: port %d conflicts with api.port", cfg.Metrics.Port)
		}
	}

	if cfg.API.RateLimit.RequestsPerSecond == 0 && cfg.API.RateLimit.Burst > 0 {
		return fmt.Errorf("api.rate_limit: burst is set but requests_per_second is 0 (unlimited)")
	}

	// Only the selected store section must be complete
	switch cfg.Store.Type {
	case "badger":
		inMemory, _ := cfg.Store.Badger["in_memory"].(bool)
		if !inMemory && stringOption(cfg.Store.Badger, "db_path") == "" {
			return fmt.Errorf("store.badger: db_path is required")
		}
	case "s3":
		if stringOption(cfg.Store.S3, "bucket") == "" {
			return fmt.Errorf("store.s3: bucket is required")
		}
		if stringOption(cfg.Store.S3, "region") == "" {
			return fmt.Errorf("store.s3: region is required")
		}
	case "sqlite":
		if stringOption(cfg.Store.SQL, "dsn") == "" {
			return fmt.Errorf("store.sql: dsn is required for sqlite")
		}
	}

	return nil
}

func stringOption(section map[string]any, key string) string {
	s, _ := section[key].(string)
	return s
}

// formatValidationError converts validator errors into user-friendly messages.
func formatValidationError(err error) error {
	if validationErrs, ok := err.(validator.ValidationErrors); ok {
		// Return the first validation error with context
		if len(validationErrs) > 0 {
			e := validationErrs[0]
			return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
				e.Namespace(), e.Tag(), e.Value())
		}
	}
	return err
}
