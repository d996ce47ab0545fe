package cmd

import (
	"os"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
)

// Version information (set via ldflags at build time)
var (
	Version   = "0.0.1-dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

const defaultConfigFile = "json2csv.yaml"

// CLI flags that override config file values
var (
	cfgFile    string
	logLevel   string
	logFormat  string
	delimiter  string
	batchSize  int
	skipVerify bool
)

var rootCmd = &cobra.Command{
	Use:   "json2csv",
	Short: "Issue & pull request JSON to CSV converter",
	Long: `A CLI tool that converts JSON exports of issues and pull requests
(for example the output of the GitHub API) into CSV files.

Features:
  - Nested objects kept as JSON text, dot-notation columns or one column per list item
  - Array explosion into one row per element
  - Union, first-record or sorted header derivation
  - Atomic output with count or SHA256 verification
  - Optional loading of the converted table into MySQL`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		printError(rootCmd, err)
		os.Exit(1)
	}
}

// printError prints err and any user hints attached to it.
func printError(cmd *cobra.Command, err error) {
	cmd.PrintErrf("Error: %v\n", err)
	for _, hint := range errors.GetAllHints(err) {
		cmd.PrintErrf("Hint: %s\n", hint)
	}
}

func init() {
	// Config file flag
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", defaultConfigFile,
		"Path to configuration file (built-in defaults when the default file is missing)")

	// Logging overrides
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"Override log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "",
		"Override log format (json, text)")

	// Processing overrides
	rootCmd.PersistentFlags().StringVar(&delimiter, "delimiter", "",
		"Override CSV delimiter (single character, \\t for tab)")
	rootCmd.PersistentFlags().IntVar(&batchSize, "batch-size", 0,
		"Override batch size (rows per INSERT on load)")

	// Safety overrides
	rootCmd.PersistentFlags().BoolVar(&skipVerify, "skip-verify", false,
		"Skip output verification after writing")
}

// GetConfigFile returns the config file path
func GetConfigFile() string {
	return cfgFile
}

// configRequired reports whether the config file was named explicitly.
// Only an explicitly named file must exist.
func configRequired() bool {
	f := rootCmd.PersistentFlags().Lookup("config")
	return f != nil && f.Changed
}

// CLIOverrides contains flag values that override config file settings
type CLIOverrides struct {
	LogLevel   string
	LogFormat  string
	Delimiter  string
	BatchSize  int
	SkipVerify bool
}

// GetCLIOverrides returns the CLI flag override values
func GetCLIOverrides() CLIOverrides {
	return CLIOverrides{
		LogLevel:   logLevel,
		LogFormat:  logFormat,
		Delimiter:  delimiter,
		BatchSize:  batchSize,
		SkipVerify: skipVerify,
	}
}
