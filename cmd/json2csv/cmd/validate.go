package cmd

import (
	"context"
	"fmt"
	"sort"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/dbsmedya/json2csv/internal/converter"
	"github.com/dbsmedya/json2csv/internal/database"
	"github.com/dbsmedya/json2csv/internal/logger"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration and every job's input",
	Long: `Validate checks the configuration file and converts every job's input
in memory to make sure a real run would succeed.

Checks performed:
  - Configuration syntax and required fields
  - Input files exist and contain a JSON array of objects
  - Strategy, header mode and explicit columns produce a valid header
  - Destination connectivity (only when the destination is enabled)

Example:
  json2csv validate --config json2csv.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	configFile := GetConfigFile()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log, err := logger.New(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting validation checks...")

	cmd.Printf("\n=== Configuration Validation ===\n")
	cmd.Printf("Config file: %s\n", configFile)
	cmd.Printf("Jobs found: %d\n\n", len(cfg.Jobs))

	jobNames := cfg.ListJobs()
	sort.Strings(jobNames)

	// Validate each job
	hasErrors := false
	for _, jobName := range jobNames {
		job, _ := cfg.GetJob(jobName)
		cmd.Printf("--- Job: %s ---\n", jobName)
		cmd.Printf("Input: %s\n", job.Input)

		opts, err := converter.OptionsFromConfig(job, cfg.GetJobProcessing(jobName))
		if err != nil {
			cmd.Printf("❌ Invalid processing settings: %v\n\n", err)
			hasErrors = true
			continue
		}

		conv, err := converter.New(opts, log.WithJob(jobName))
		if err != nil {
			cmd.Printf("❌ Failed to create converter: %v\n\n", err)
			hasErrors = true
			continue
		}

		table, rs, err := conv.Build(job.Input)
		if err != nil {
			cmd.Printf("❌ Input check failed: %v\n", err)
			for _, hint := range errors.GetAllHints(err) {
				cmd.Printf("   Hint: %s\n", hint)
			}
			cmd.Println()
			hasErrors = true
			continue
		}

		cmd.Printf("✅ %d records -> %d rows x %d columns\n\n", rs.Len(), table.Len(), len(table.Header))
	}

	if cfg.Destination.Enabled {
		cmd.Printf("--- Destination: %s:%d/%s ---\n", cfg.Destination.Host, cfg.Destination.Port, cfg.Destination.Database)
		dbManager := database.NewManager(&cfg.Destination)
		dbManager.SetOpener(dbOpener)
		// single attempt so an unreachable server fails validation fast
		dbManager.SetRetry(1, 0)
		if err := dbManager.Connect(context.Background()); err != nil {
			cmd.Printf("❌ %v\n\n", err)
			hasErrors = true
		} else {
			_ = dbManager.Close()
			cmd.Printf("✅ Connection OK\n\n")
		}
	}

	if hasErrors {
		return fmt.Errorf("validation failed for one or more jobs")
	}

	cmd.Println("=== Validation Complete ===")
	cmd.Println("✅ All jobs validated successfully")
	return nil
}
