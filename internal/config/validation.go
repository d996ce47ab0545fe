package config

import (
	"fmt"
	"strings"
	"unicode/utf8"
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

var (
	validStrategies  = map[string]bool{"json_string": true, "dot_notation": true, "separate_columns": true, "normalize": true, "": true}
	validHeaderModes = map[string]bool{"union": true, "first": true, "sorted": true, "": true}
)

// Validate checks the configuration for required fields and valid values.
func (c *Config) Validate() error {
	var errors ValidationErrors

	for name, job := range c.Jobs {
		if err := c.validateJob(name, &job); err != nil {
			errors = append(errors, err...)
		}
	}

	if err := validateProcessing("processing", &c.Processing); err != nil {
		errors = append(errors, err...)
	}

	if err := validateVerification("verification", &c.Verification); err != nil {
		errors = append(errors, err...)
	}

	if c.Destination.Enabled {
		if err := c.validateDatabase("destination", &c.Destination); err != nil {
			errors = append(errors, err...)
		}
	}

	if err := c.validateLogging(); err != nil {
		errors = append(errors, err...)
	}

	if len(errors) > 0 {
		return errors
	}
	return nil
}

func (c *Config) validateJob(name string, job *JobConfig) ValidationErrors {
	var errors ValidationErrors
	prefix := fmt.Sprintf("jobs.%s", name)

	if job.Input == "" {
		errors = append(errors, ValidationError{
			Field:   prefix + ".input",
			Message: "input is required",
		})
	}

	if job.DataPath != "" {
		for _, part := range strings.Split(job.DataPath, ".") {
			if part == "" {
				errors = append(errors, ValidationError{
					Field:   prefix + ".data_path",
					Message: "data_path must not contain empty segments",
				})
				break
			}
		}
	}

	seen := make(map[string]bool, len(job.Columns))
	for i, col := range job.Columns {
		if col == "" {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("%s.columns[%d]", prefix, i),
				Message: "column name must not be empty",
			})
			continue
		}
		if seen[col] {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("%s.columns[%d]", prefix, i),
				Message: fmt.Sprintf("duplicate column %q", col),
			})
		}
		seen[col] = true
	}

	if job.Processing != nil {
		if err := validateProcessing(prefix+".processing", job.Processing); err != nil {
			errors = append(errors, err...)
		}
	}

	if job.Verification != nil {
		if err := validateVerification(prefix+".verification", job.Verification); err != nil {
			errors = append(errors, err...)
		}
	}

	return errors
}

// validateProcessing checks a processing block. Empty values are allowed so
// that job-level blocks can override only some settings.
func validateProcessing(prefix string, p *ProcessingConfig) ValidationErrors {
	var errors ValidationErrors

	if !validStrategies[p.Strategy] {
		errors = append(errors, ValidationError{
			Field:   prefix + ".strategy",
			Message: "strategy must be 'json_string', 'dot_notation', 'separate_columns', or 'normalize'",
		})
	}

	if !validHeaderModes[p.HeaderMode] {
		errors = append(errors, ValidationError{
			Field:   prefix + ".header_mode",
			Message: "header_mode must be 'union', 'first', or 'sorted'",
		})
	}

	if p.Delimiter != "" && p.Delimiter != `\t` {
		r, size := utf8.DecodeRuneInString(p.Delimiter)
		if size != len(p.Delimiter) || r == '"' || r == '\r' || r == '\n' || r == utf8.RuneError {
			errors = append(errors, ValidationError{
				Field:   prefix + ".delimiter",
				Message: "delimiter must be a single character other than quote or newline",
			})
		}
	}

	if p.BatchSize < 0 {
		errors = append(errors, ValidationError{
			Field:   prefix + ".batch_size",
			Message: "batch_size cannot be negative",
		})
	}

	return errors
}

func validateVerification(prefix string, v *VerificationConfig) ValidationErrors {
	var errors ValidationErrors

	validMethods := map[string]bool{"count": true, "sha256": true, "": true}
	if !validMethods[v.Method] {
		errors = append(errors, ValidationError{
			Field:   prefix + ".method",
			Message: "method must be 'count' or 'sha256'",
		})
	}

	return errors
}

func (c *Config) validateDatabase(prefix string, db *DatabaseConfig) ValidationErrors {
	var errors ValidationErrors

	if db.Host == "" {
		errors = append(errors, ValidationError{
			Field:   prefix + ".host",
			Message: "host is required",
		})
	}

	if db.Port <= 0 || db.Port > 65535 {
		errors = append(errors, ValidationError{
			Field:   prefix + ".port",
			Message: "port must be between 1 and 65535",
		})
	}

	if db.User == "" {
		errors = append(errors, ValidationError{
			Field:   prefix + ".user",
			Message: "user is required",
		})
	}

	if db.Database == "" {
		errors = append(errors, ValidationError{
			Field:   prefix + ".database",
			Message: "database name is required",
		})
	}

	validTLS := map[string]bool{"disable": true, "preferred": true, "required": true, "": true}
	if !validTLS[db.TLS] {
		errors = append(errors, ValidationError{
			Field:   prefix + ".tls",
			Message: "tls must be 'disable', 'preferred', or 'required'",
		})
	}

	validModes := map[string]bool{"replace": true, "append": true, "": true}
	if !validModes[db.Mode] {
		errors = append(errors, ValidationError{
			Field:   prefix + ".mode",
			Message: "mode must be 'replace' or 'append'",
		})
	}

	if db.MaxConnections < 0 {
		errors = append(errors, ValidationError{
			Field:   prefix + ".max_connections",
			Message: "max_connections cannot be negative",
		})
	}

	if db.MaxIdleConnections < 0 {
		errors = append(errors, ValidationError{
			Field:   prefix + ".max_idle_connections",
			Message: "max_idle_connections cannot be negative",
		})
	}

	return errors
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
