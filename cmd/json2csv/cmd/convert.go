package cmd

import (
	"strings"

	"github.com/gookit/color"
	"github.com/spf13/cobra"

	"github.com/dbsmedya/json2csv/internal/converter"
	"github.com/dbsmedya/json2csv/internal/source"
	"github.com/dbsmedya/json2csv/internal/verifier"
)

var convertSel selector

var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Convert a JSON export to CSV",
	Long: `Convert reads an issue or pull request JSON export, flattens every
record and writes one CSV row per record.

The conversion follows these steps:
  1. Decode the whole input (a JSON array of objects)
  2. Flatten nested values with the selected strategy
  3. Derive the header (union of keys by default)
  4. Write the CSV atomically
  5. Verify the written file (count or SHA256)

Example:
  json2csv convert --input prs9.json --output prs9.csv
  json2csv convert --config json2csv.yaml --job prs --strategy dot_notation`,
	RunE: runConvert,
}

func init() {
	addSelectorFlags(convertCmd, &convertSel)
	rootCmd.AddCommand(convertCmd)
}

func runConvert(cmd *cobra.Command, args []string) error {
	t, err := resolveTarget(cmd, &convertSel)
	if err != nil {
		return err
	}
	defer func() { _ = t.log.Sync() }()

	conv, err := t.newConverter(cmd)
	if err != nil {
		return err
	}

	result, err := conv.Convert(t.input, t.output)
	if err != nil {
		return err
	}

	// CSV on stdout is the whole output; no summary, nothing to re-read.
	if t.output == converter.StdoutPath {
		return nil
	}

	var verified *verifier.VerifyResult
	if method, err := verifier.ParseMethod(t.verification.Method, t.verification.SkipVerification); err != nil {
		return err
	} else if method != verifier.MethodSkip {
		v, err := verifier.NewVerifier(method, t.log)
		if err != nil {
			return err
		}
		verified, err = v.VerifyCSV(t.output, t.opts.CSV(), result.Table)
		if err != nil {
			return err
		}
	}

	printConvertResult(cmd, result, verified)
	return nil
}

func printConvertResult(cmd *cobra.Command, result *converter.Result, verified *verifier.VerifyResult) {
	cmd.Printf("\n=== Conversion Complete ===\n")
	cmd.Printf("Input: %s\n", result.InputPath)
	cmd.Printf("Output: %s\n", result.OutputPath)
	cmd.Printf("Records: %d\n", result.RecordsRead)
	if result.WrappedValues > 0 {
		cmd.Printf("Wrapped values: %d (non-object elements stored under %q)\n", result.WrappedValues, source.ValueField)
	}
	cmd.Printf("Rows: %d\n", result.RowsWritten)
	cmd.Printf("Columns (%d): %s\n", len(result.Columns), strings.Join(result.Columns, ", "))
	cmd.Printf("Duration: %s\n", result.Duration)

	if verified == nil {
		cmd.Printf("Verification: %s\n", color.Yellow.Sprint("skipped"))
		return
	}
	cmd.Printf("Verification: %s\n", color.Green.Sprintf("passed (%s, %d records)", verified.Method, verified.ActualCount))
}
