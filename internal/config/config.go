// Package config provides configuration structures and loading for json2csv.
package config

// Config represents the complete application configuration.
type Config struct {
	Jobs         map[string]JobConfig `yaml:"jobs" mapstructure:"jobs"`
	Processing   ProcessingConfig     `yaml:"processing" mapstructure:"processing"`
	Verification VerificationConfig   `yaml:"verification" mapstructure:"verification"`
	Destination  DatabaseConfig       `yaml:"destination" mapstructure:"destination"`
	Logging      LoggingConfig        `yaml:"logging" mapstructure:"logging"`
}

// JobConfig represents one conversion: an exported JSON file and where its CSV goes.
type JobConfig struct {
	Input        string              `yaml:"input" mapstructure:"input"`
	Output       string              `yaml:"output" mapstructure:"output"`       // defaults to output_<name>_<strategy>.csv
	DataPath     string              `yaml:"data_path" mapstructure:"data_path"` // dot path to the record array
	Explode      string              `yaml:"explode" mapstructure:"explode"`     // array field to explode into rows
	Columns      []string            `yaml:"columns" mapstructure:"columns"`     // explicit header
	Table        string              `yaml:"table" mapstructure:"table"`         // MySQL table for load
	Processing   *ProcessingConfig   `yaml:"processing,omitempty" mapstructure:"processing"`
	Verification *VerificationConfig `yaml:"verification,omitempty" mapstructure:"verification"`
}

// ProcessingConfig represents flattening and CSV encoding settings.
type ProcessingConfig struct {
	Strategy      string `yaml:"strategy" mapstructure:"strategy"`       // json_string, dot_notation, separate_columns, normalize
	HeaderMode    string `yaml:"header_mode" mapstructure:"header_mode"` // union, first, sorted
	Separator     string `yaml:"separator" mapstructure:"separator"`
	ListSeparator string `yaml:"list_separator" mapstructure:"list_separator"`
	Delimiter     string `yaml:"delimiter" mapstructure:"delimiter"`
	UseCRLF       bool   `yaml:"use_crlf" mapstructure:"use_crlf"`
	BatchSize     int    `yaml:"batch_size" mapstructure:"batch_size"` // rows per INSERT on load
}

// VerificationConfig represents output verification settings.
type VerificationConfig struct {
	Method           string `yaml:"method" mapstructure:"method"` // "count" or "sha256"
	SkipVerification bool   `yaml:"skip_verification" mapstructure:"skip_verification"`
}

// DatabaseConfig represents the MySQL destination used by the load command.
type DatabaseConfig struct {
	Enabled            bool   `yaml:"enabled" mapstructure:"enabled"`
	Host               string `yaml:"host" mapstructure:"host"`
	Port               int    `yaml:"port" mapstructure:"port"`
	User               string `yaml:"user" mapstructure:"user"`
	Password           string `yaml:"password" mapstructure:"password"`
	Database           string `yaml:"database" mapstructure:"database"`
	TLS                string `yaml:"tls" mapstructure:"tls"` // disable, preferred, required
	MaxConnections     int    `yaml:"max_connections" mapstructure:"max_connections"`
	MaxIdleConnections int    `yaml:"max_idle_connections" mapstructure:"max_idle_connections"`
	Mode               string `yaml:"mode" mapstructure:"mode"` // replace or append
}

// LoggingConfig represents logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`   // debug, info, warn, error
	Format string `yaml:"format" mapstructure:"format"` // json or text
	Output string `yaml:"output" mapstructure:"output"` // stdout, stderr, or file path
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() *Config {
	return &Config{
		Jobs: map[string]JobConfig{},
		Processing: ProcessingConfig{
			Strategy:      "json_string",
			HeaderMode:    "union",
			Separator:     ".",
			ListSeparator: ", ",
			Delimiter:     ",",
			UseCRLF:       false,
			BatchSize:     500,
		},
		Verification: VerificationConfig{
			Method:           "count",
			SkipVerification: false,
		},
		Destination: DatabaseConfig{
			Enabled:            false,
			Port:               3306,
			TLS:                "preferred",
			MaxConnections:     4,
			MaxIdleConnections: 2,
			Mode:               "replace",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
	}
}

// GetJobProcessing returns the processing config for a job by name, falling back to global if not set.
func (c *Config) GetJobProcessing(jobName string) ProcessingConfig {
	job, err := c.GetJob(jobName)
	if err != nil {
		return c.Processing
	}
	return job.GetJobProcessing(c.Processing)
}

// GetJobVerification returns the verification config for a job by name, falling back to global if not set.
func (c *Config) GetJobVerification(jobName string) VerificationConfig {
	job, err := c.GetJob(jobName)
	if err != nil {
		return c.Verification
	}
	return job.GetJobVerification(c.Verification)
}

// GetJobProcessing returns the processing config for a job, falling back to global if not set.
func (jc *JobConfig) GetJobProcessing(global ProcessingConfig) ProcessingConfig {
	if jc.Processing == nil {
		return global
	}

	result := global
	if jc.Processing.Strategy != "" {
		result.Strategy = jc.Processing.Strategy
	}
	if jc.Processing.HeaderMode != "" {
		result.HeaderMode = jc.Processing.HeaderMode
	}
	if jc.Processing.Separator != "" {
		result.Separator = jc.Processing.Separator
	}
	if jc.Processing.ListSeparator != "" {
		result.ListSeparator = jc.Processing.ListSeparator
	}
	if jc.Processing.Delimiter != "" {
		result.Delimiter = jc.Processing.Delimiter
	}
	if jc.Processing.BatchSize > 0 {
		result.BatchSize = jc.Processing.BatchSize
	}
	result.UseCRLF = jc.Processing.UseCRLF || global.UseCRLF
	return result
}

// GetJobVerification returns the verification config for a job, falling back to global if not set.
func (jc *JobConfig) GetJobVerification(global VerificationConfig) VerificationConfig {
	if jc.Verification == nil {
		return global
	}

	result := global
	if jc.Verification.Method != "" {
		result.Method = jc.Verification.Method
	}
	result.SkipVerification = jc.Verification.SkipVerification || global.SkipVerification
	return result
}
