package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/json2csv/internal/config"
)

var listJobsCmd = &cobra.Command{
	Use:   "list-jobs",
	Short: "List all jobs defined in configuration",
	Long: `List-jobs displays all conversion jobs defined in the configuration file
along with their basic settings.

Example:
  json2csv list-jobs --config json2csv.yaml`,
	RunE: runListJobs,
}

func init() {
	rootCmd.AddCommand(listJobsCmd)
}

func runListJobs(cmd *cobra.Command, args []string) error {
	configFile := GetConfigFile()

	// Load configuration
	cfg, err := config.LoadOrDefault(configFile, configRequired())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Get all job names
	jobNames := cfg.ListJobs()

	if len(jobNames) == 0 {
		cmd.Printf("No jobs defined in %s\n", configFile)
		return nil
	}

	// Sort job names for consistent output
	sort.Strings(jobNames)

	cmd.Printf("Jobs defined in %s:\n\n", configFile)

	for i, jobName := range jobNames {
		job, err := cfg.GetJob(jobName)
		if err != nil {
			return fmt.Errorf("failed to get job %q: %w", jobName, err)
		}

		// Job header
		cmd.Printf("%d. %s\n", i+1, jobName)
		cmd.Printf("   Input:         %s\n", job.Input)
		if job.Output != "" {
			cmd.Printf("   Output:        %s\n", job.Output)
		} else {
			cmd.Printf("   Output:        (default)\n")
		}

		if job.DataPath != "" {
			cmd.Printf("   Data Path:     %s\n", job.DataPath)
		}
		if job.Explode != "" {
			cmd.Printf("   Explode:       %s\n", job.Explode)
		}
		if len(job.Columns) > 0 {
			cmd.Printf("   Columns:       %s\n", strings.Join(job.Columns, ", "))
		}
		if job.Table != "" {
			cmd.Printf("   Table:         %s\n", job.Table)
		}

		// Job-specific processing config
		if job.Processing != nil {
			cmd.Printf("   Processing:    Custom (strategy=%s, header_mode=%s)\n",
				orDefault(job.Processing.Strategy), orDefault(job.Processing.HeaderMode))
		}

		// Job-specific verification config
		if job.Verification != nil {
			cmd.Printf("   Verification:  Custom (method=%s, skip=%v)\n",
				orDefault(job.Verification.Method), job.Verification.SkipVerification)
		}

		// Add spacing between jobs
		if i < len(jobNames)-1 {
			cmd.Println()
		}
	}

	cmd.Printf("\nTotal: %d job(s)\n", len(jobNames))
	return nil
}

func orDefault(s string) string {
	if s == "" {
		return "(global)"
	}
	return s
}
