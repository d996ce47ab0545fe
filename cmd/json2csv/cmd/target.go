package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/json2csv/internal/config"
	"github.com/dbsmedya/json2csv/internal/converter"
	"github.com/dbsmedya/json2csv/internal/logger"
)

// selector holds the flags that pick what to convert: a configured job or
// an ad hoc input file, plus per-run processing overrides.
type selector struct {
	job        string
	input      string
	output     string
	strategy   string
	headerMode string
	explode    string
	dataPath   string
	columns    []string
}

func addSelectorFlags(c *cobra.Command, s *selector) {
	c.Flags().StringVarP(&s.job, "job", "j", "",
		"Job name from configuration file")
	c.Flags().StringVarP(&s.input, "input", "i", "",
		"Input JSON file (instead of --job)")
	c.Flags().StringVarP(&s.output, "output", "o", "",
		"Output CSV file, - for stdout (default output_<input>_<strategy>.csv)")
	c.Flags().StringVarP(&s.strategy, "strategy", "s", "",
		"Flattening strategy (json_string, dot_notation, separate_columns, normalize)")
	c.Flags().StringVar(&s.headerMode, "header-mode", "",
		"Header derivation (union, first, sorted)")
	c.Flags().StringVar(&s.explode, "explode", "",
		"Array field to explode into one row per element")
	c.Flags().StringVar(&s.dataPath, "data-path", "",
		"Dot path from the top-level object to the record array")
	c.Flags().StringSliceVar(&s.columns, "columns", nil,
		"Explicit header, comma separated")
	c.MarkFlagsMutuallyExclusive("job", "input")
}

// target is a fully resolved conversion: config, logger, paths and options.
type target struct {
	name         string // job name, or the input path for ad hoc runs
	cfg          *config.Config
	log          *logger.Logger
	job          *config.JobConfig
	input        string
	output       string
	processing   config.ProcessingConfig
	verification config.VerificationConfig
	opts         converter.Options
}

// loadConfig loads the config file, applies the persistent flag overrides
// and validates the result.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadOrDefault(GetConfigFile(), configRequired())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	overrides := GetCLIOverrides()
	cfg.ApplyOverrides(overrides.LogLevel, overrides.LogFormat, "", "",
		overrides.Delimiter, overrides.BatchSize, overrides.SkipVerify)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// resolveTarget turns the selector flags into a target.
func resolveTarget(cmd *cobra.Command, s *selector) (*target, error) {
	if s.job == "" && s.input == "" {
		return nil, fmt.Errorf("either --job or --input is required")
	}

	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	toStdout := s.output == converter.StdoutPath
	if job, err := cfg.GetJob(s.job); err == nil && s.output == "" {
		toStdout = job.Output == converter.StdoutPath
	}

	var log *logger.Logger
	if toStdout && cfg.Logging.Output == "stdout" {
		// stdout carries the CSV
		log = logger.NewWithWriter(&cfg.Logging, cmd.ErrOrStderr())
	} else if log, err = logger.New(&cfg.Logging); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	t := &target{cfg: cfg}
	if s.job != "" {
		job, err := cfg.GetJob(s.job)
		if err != nil {
			return nil, err
		}
		jobCopy := *job
		t.name = s.job
		t.job = &jobCopy
		t.log = log.WithJob(s.job)
	} else {
		t.name = s.input
		t.job = &config.JobConfig{Input: s.input}
		t.log = log
	}

	applySelector(t.job, s)

	// Flags win over job-specific settings.
	overrides := GetCLIOverrides()
	t.processing = cfg.ApplyJobOverrides(s.job, s.strategy, s.headerMode, overrides.Delimiter, overrides.BatchSize)
	t.verification = cfg.GetJobVerification(s.job)
	if cfg.Verification.SkipVerification {
		t.verification.SkipVerification = true
	}

	t.opts, err = converter.OptionsFromConfig(t.job, t.processing)
	if err != nil {
		return nil, err
	}

	t.input = t.job.Input
	t.output = t.job.Output
	if t.output == "" {
		t.output = converter.DefaultOutputPath(t.input, t.opts.Strategy)
	}
	return t, nil
}

// applySelector copies flag values that were set onto job.
func applySelector(job *config.JobConfig, s *selector) {
	if s.input != "" {
		job.Input = s.input
	}
	if s.output != "" {
		job.Output = s.output
	}
	if s.explode != "" {
		job.Explode = s.explode
	}
	if s.dataPath != "" {
		job.DataPath = s.dataPath
	}
	if len(s.columns) > 0 {
		job.Columns = s.columns
	}
}

// newConverter builds a converter for t that writes stdout output to cmd.
func (t *target) newConverter(cmd *cobra.Command) (*converter.Converter, error) {
	conv, err := converter.New(t.opts, t.log)
	if err != nil {
		return nil, err
	}
	conv.SetStdout(cmd.OutOrStdout())
	return conv, nil
}
