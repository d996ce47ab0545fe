package config

import (
	"strings"
	"testing"
)

func validConfig() *Config {
	cfg := DefaultConfig()
	cfg.Jobs["prs"] = JobConfig{Input: "prs9.json"}
	return cfg
}

func TestValidConfig(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Errorf("expected no validation errors, got: %v", err)
	}
}

func TestNoJobsIsValid(t *testing.T) {
	// Jobs are optional: convert can run ad hoc from --input.
	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("expected no validation errors, got: %v", err)
	}
}

func TestValidationFailures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{
			name:   "missing input",
			mutate: func(c *Config) { c.Jobs["prs"] = JobConfig{} },
			field:  "jobs.prs.input",
		},
		{
			name:   "empty data path segment",
			mutate: func(c *Config) { c.Jobs["prs"] = JobConfig{Input: "a.json", DataPath: "data..items"} },
			field:  "jobs.prs.data_path",
		},
		{
			name:   "duplicate column",
			mutate: func(c *Config) { c.Jobs["prs"] = JobConfig{Input: "a.json", Columns: []string{"id", "id"}} },
			field:  "jobs.prs.columns[1]",
		},
		{
			name:   "empty column",
			mutate: func(c *Config) { c.Jobs["prs"] = JobConfig{Input: "a.json", Columns: []string{""}} },
			field:  "jobs.prs.columns[0]",
		},
		{
			name:   "unknown strategy",
			mutate: func(c *Config) { c.Processing.Strategy = "pandas" },
			field:  "processing.strategy",
		},
		{
			name: "unknown job strategy",
			mutate: func(c *Config) {
				c.Jobs["prs"] = JobConfig{Input: "a.json", Processing: &ProcessingConfig{Strategy: "xml"}}
			},
			field: "jobs.prs.processing.strategy",
		},
		{
			name:   "unknown header mode",
			mutate: func(c *Config) { c.Processing.HeaderMode = "all" },
			field:  "processing.header_mode",
		},
		{
			name:   "multi-character delimiter",
			mutate: func(c *Config) { c.Processing.Delimiter = ";;" },
			field:  "processing.delimiter",
		},
		{
			name:   "quote delimiter",
			mutate: func(c *Config) { c.Processing.Delimiter = `"` },
			field:  "processing.delimiter",
		},
		{
			name:   "negative batch size",
			mutate: func(c *Config) { c.Processing.BatchSize = -1 },
			field:  "processing.batch_size",
		},
		{
			name:   "unknown verification method",
			mutate: func(c *Config) { c.Verification.Method = "md5" },
			field:  "verification.method",
		},
		{
			name: "job verification method",
			mutate: func(c *Config) {
				c.Jobs["prs"] = JobConfig{Input: "a.json", Verification: &VerificationConfig{Method: "crc"}}
			},
			field: "jobs.prs.verification.method",
		},
		{
			name:   "destination without host",
			mutate: func(c *Config) { c.Destination.Enabled = true; c.Destination.User = "u"; c.Destination.Database = "d" },
			field:  "destination.host",
		},
		{
			name: "destination bad mode",
			mutate: func(c *Config) {
				c.Destination = DatabaseConfig{Enabled: true, Host: "h", Port: 3306, User: "u", Database: "d", Mode: "upsert"}
			},
			field: "destination.mode",
		},
		{
			name: "destination bad port",
			mutate: func(c *Config) {
				c.Destination = DatabaseConfig{Enabled: true, Host: "h", Port: 70000, User: "u", Database: "d"}
			},
			field: "destination.port",
		},
		{
			name:   "bad log level",
			mutate: func(c *Config) { c.Logging.Level = "trace" },
			field:  "logging.level",
		},
		{
			name:   "bad log format",
			mutate: func(c *Config) { c.Logging.Format = "xml" },
			field:  "logging.format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.field) {
				t.Errorf("expected error for %s, got: %v", tt.field, err)
			}
		})
	}
}

func TestDisabledDestinationNotValidated(t *testing.T) {
	cfg := validConfig()
	cfg.Destination.Host = ""
	cfg.Destination.Enabled = false
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected disabled destination to be skipped, got: %v", err)
	}
}

func TestValidationErrorsCollectAll(t *testing.T) {
	cfg := validConfig()
	cfg.Processing.Strategy = "bad"
	cfg.Logging.Level = "bad"

	err := cfg.Validate()
	verrs, ok := err.(ValidationErrors)
	if !ok {
		t.Fatalf("expected ValidationErrors, got %T", err)
	}
	if len(verrs) != 2 {
		t.Errorf("expected 2 errors, got %d: %v", len(verrs), verrs)
	}
	if !strings.HasPrefix(err.Error(), "validation failed:") {
		t.Errorf("unexpected message: %s", err.Error())
	}
}

func TestValidationErrorsEmpty(t *testing.T) {
	var errs ValidationErrors
	if errs.Error() != "" {
		t.Errorf("expected empty message, got %q", errs.Error())
	}
}
