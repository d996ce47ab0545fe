package cmd

import (
	"github.com/spf13/cobra"

	"github.com/dbsmedya/json2csv/internal/header"
)

var dryrunSel selector

var dryrunCmd = &cobra.Command{
	Use:   "dry-run",
	Short: "Simulate a conversion without writing output",
	Long: `Dry-run decodes and flattens the input and reports what a conversion
would write, without creating or touching the output file.

The dry-run shows:
  - Record and row counts (rows differ from records when exploding)
  - The derived header
  - Columns dropped by the header mode
  - Configuration summary

Example:
  json2csv dry-run --config json2csv.yaml --job prs
  json2csv dry-run --input prs9.json --strategy dot_notation`,
	RunE: runDryrun,
}

func init() {
	addSelectorFlags(dryrunCmd, &dryrunSel)
	rootCmd.AddCommand(dryrunCmd)
}

func runDryrun(cmd *cobra.Command, args []string) error {
	t, err := resolveTarget(cmd, &dryrunSel)
	if err != nil {
		return err
	}
	defer func() { _ = t.log.Sync() }()

	conv, err := t.newConverter(cmd)
	if err != nil {
		return err
	}

	table, rs, rows, err := conv.BuildRows(t.input)
	if err != nil {
		return err
	}

	opts := conv.Options()
	printHeader(cmd, "Dry Run: %s", t.name)

	cmd.Println()
	printSection(cmd, "Input")
	cmd.Printf("  File:           %s\n", t.input)
	cmd.Printf("  Records:        %d\n", rs.Len())
	if rs.Stats.WrappedValues > 0 {
		cmd.Printf("  Wrapped values: %d\n", rs.Stats.WrappedValues)
	}
	if opts.DataPath != "" {
		cmd.Printf("  Data path:      %s\n", opts.DataPath)
	}

	cmd.Println()
	printSection(cmd, "Output (not written)")
	cmd.Printf("  File:           %s\n", t.output)
	cmd.Printf("  Rows:           %d\n", table.Len())
	cmd.Printf("  CSV records:    %d (header + rows)\n", table.Len()+1)
	cmd.Printf("  Columns:        %d\n", len(table.Header))
	for i, col := range table.Header {
		cmd.Printf("    %3d. %s\n", i+1, col)
	}
	if dropped := header.Dropped(rows, table.Header); len(dropped) > 0 {
		cmd.Printf("  Dropped:        %d column(s) not in header\n", len(dropped))
		for _, col := range dropped {
			cmd.Printf("    - %s\n", col)
		}
	}

	cmd.Println()
	printConfiguration(cmd, t)
	return nil
}

// printConfiguration prints the effective settings of t, marking values
// that come from the job's own processing block.
func printConfiguration(cmd *cobra.Command, t *target) {
	jobProcessing := t.job.Processing
	mark := func(set bool) string {
		if set {
			return " (job-specific)"
		}
		return ""
	}

	opts := t.opts
	printSection(cmd, "Configuration")
	cmd.Printf("  Strategy:       %s%s\n", opts.Strategy, mark(jobProcessing != nil && jobProcessing.Strategy != ""))
	cmd.Printf("  Header mode:    %s%s\n", opts.HeaderMode, mark(jobProcessing != nil && jobProcessing.HeaderMode != ""))
	if len(opts.Columns) > 0 {
		cmd.Printf("  Columns:        explicit (%d)\n", len(opts.Columns))
	}
	if opts.Explode != "" {
		cmd.Printf("  Explode:        %s\n", opts.Explode)
	}
	cmd.Printf("  Delimiter:      %q%s\n", opts.Delimiter, mark(jobProcessing != nil && jobProcessing.Delimiter != ""))
	cmd.Printf("  Line endings:   %s\n", lineEnding(opts.UseCRLF))
	method := t.verification.Method
	if t.verification.SkipVerification {
		method = "skip"
	}
	cmd.Printf("  Verification:   %s%s\n", method, mark(t.job.Verification != nil && t.job.Verification.Method != ""))
}

func lineEnding(crlf bool) string {
	if crlf {
		return "CRLF"
	}
	return "LF"
}
