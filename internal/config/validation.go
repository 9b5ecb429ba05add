package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}

// Validate checks the configuration for required fields and valid values.
// Source presence is checked separately per command (plan and validate take
// a positional argument), so it is not enforced here.
func (c *Config) Validate() error {
	var errors ValidationErrors

	if c.AdminUser == "" {
		errors = append(errors, ValidationError{
			Field:   "admin.user",
			Message: "admin user is required",
		})
	}

	if c.AdminDSN == "" {
		errors = append(errors, ValidationError{
			Field:   "admin.dsn",
			Message: "admin DSN is required (host:port/service)",
		})
	} else if !strings.Contains(c.AdminDSN, "/") {
		errors = append(errors, ValidationError{
			Field:   "admin.dsn",
			Message: "DSN must include a service name (host:port/service)",
		})
	}

	if c.ForceRecreate && !c.ConfirmDestructive {
		errors = append(errors, ValidationError{
			Field:   "force_recreate",
			Message: "force-recreate drops the target user and all its objects; confirm with --yes",
		})
	}

	if c.SchemaOnly && c.OnlyFKKeys {
		errors = append(errors, ValidationError{
			Field:   "schema_only",
			Message: "schema-only and only-fk-keys are mutually exclusive",
		})
	}

	if c.BatchSize <= 0 {
		errors = append(errors, ValidationError{
			Field:   "batch_size",
			Message: "batch_size must be positive",
		})
	}

	if c.Workers <= 0 {
		errors = append(errors, ValidationError{
			Field:   "workers",
			Message: "workers must be positive",
		})
	}

	if err := c.validateLogging(); err != nil {
		errors = append(errors, err...)
	}

	if len(errors) > 0 {
		return errors
	}
	return nil
}

func (c *Config) validateLogging() ValidationErrors {
	var errors ValidationErrors

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true, "": true}
	if !validLevels[c.Logging.Level] {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Message: "level must be 'debug', 'info', 'warn', or 'error'",
		})
	}

	validFormats := map[string]bool{"json": true, "text": true, "": true}
	if !validFormats[c.Logging.Format] {
		errors = append(errors, ValidationError{
			Field:   "logging.format",
			Message: "format must be 'json' or 'text'",
		})
	}

	return errors
}
