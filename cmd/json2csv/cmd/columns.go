package cmd

import (
	"fmt"
	"strings"

	"github.com/gookit/color"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/dbsmedya/json2csv/internal/types"
)

// sampleWidth is the display width of the sample value column.
const sampleWidth = 32

var columnsSel selector

var columnsCmd = &cobra.Command{
	Use:   "columns",
	Short: "Show the derived header of a conversion",
	Long: `Columns converts the input in memory and displays the header it would
write, one line per column, next to a summary of the conversion.

For each column it shows:
  - Position in the header
  - Number of rows with a non-empty cell
  - A sample value from the first row that has one

Example:
  json2csv columns --config json2csv.yaml --job prs
  json2csv columns --input prs9.json --strategy separate_columns`,
	RunE: runColumns,
}

func init() {
	addSelectorFlags(columnsCmd, &columnsSel)
	rootCmd.AddCommand(columnsCmd)
}

func runColumns(cmd *cobra.Command, args []string) error {
	t, err := resolveTarget(cmd, &columnsSel)
	if err != nil {
		return err
	}
	defer func() { _ = t.log.Sync() }()

	conv, err := t.newConverter(cmd)
	if err != nil {
		return err
	}

	table, rs, err := conv.Build(t.input)
	if err != nil {
		return err
	}

	opts := conv.Options()
	summaryLines := []string{
		"[ Summary ]",
		strings.Repeat("-", 11),
		fmt.Sprintf("Input:        %s", t.input),
		fmt.Sprintf("Records:      %d", rs.Len()),
		fmt.Sprintf("Rows:         %d", table.Len()),
		fmt.Sprintf("Columns:      %d", len(table.Header)),
		"",
		"[ Processing ]",
		strings.Repeat("-", 14),
		fmt.Sprintf("Strategy:     %s", opts.Strategy),
		fmt.Sprintf("Header mode:  %s", opts.HeaderMode),
	}
	if opts.Explode != "" {
		summaryLines = append(summaryLines, fmt.Sprintf("Explode:      %s", opts.Explode))
	}

	printHeader(cmd, "Columns: %s", t.name)
	cmd.Println()
	printSideBySide(cmd, columnLines(table), summaryLines, 4)
	return nil
}

// columnLines renders one line per header column: position, fill count
// and a sample value.
func columnLines(table *types.Table) []string {
	nameWidth := runewidth.StringWidth("Column")
	for _, col := range table.Header {
		if w := runewidth.StringWidth(col); w > nameWidth {
			nameWidth = w
		}
	}

	lines := []string{
		fmt.Sprintf("  #  %s  %7s  %s", runewidth.FillRight("Column", nameWidth), "Filled", "Sample"),
		strings.Repeat("-", nameWidth+sampleWidth+18),
	}
	for i, col := range table.Header {
		filled := 0
		sample := ""
		for _, row := range table.Rows {
			if row[i] == "" {
				continue
			}
			if filled == 0 {
				sample = row[i]
			}
			filled++
		}
		sample = strings.Join(strings.Fields(sample), " ")

		line := fmt.Sprintf("%3d  %s  %7s  %s",
			i+1,
			runewidth.FillRight(col, nameWidth),
			fmt.Sprintf("%d/%d", filled, len(table.Rows)),
			runewidth.Truncate(sample, sampleWidth, "..."),
		)
		if filled == 0 {
			line = color.Gray.Sprint(line)
		}
		lines = append(lines, line)
	}
	return lines
}

// printHeader prints a formatted header
func printHeader(cmd *cobra.Command, format string, args ...interface{}) {
	title := fmt.Sprintf(format, args...)
	width := runewidth.StringWidth(title) + 4
	cmd.Println(strings.Repeat("=", width))
	cmd.Printf("  %s\n", color.Bold.Sprint(title))
	cmd.Println(strings.Repeat("=", width))
}

// printSection prints a section header
func printSection(cmd *cobra.Command, title string) {
	cmd.Printf("[%s]\n", title)
	cmd.Println(strings.Repeat("-", runewidth.StringWidth(title)+2))
}

// printSideBySide prints two blocks of text side by side
// padding is the minimum spaces between the two columns
func printSideBySide(cmd *cobra.Command, leftLines, rightLines []string, padding int) {
	leftWidth := 0
	for _, line := range leftLines {
		if w := visualWidth(line); w > leftWidth {
			leftWidth = w
		}
	}

	maxHeight := len(leftLines)
	if len(rightLines) > maxHeight {
		maxHeight = len(rightLines)
	}

	for i := 0; i < maxHeight; i++ {
		leftPart := ""
		rightPart := ""
		if i < len(leftLines) {
			leftPart = leftLines[i]
		}
		if i < len(rightLines) {
			rightPart = rightLines[i]
		}

		cmd.Print(leftPart)
		if rightPart == "" {
			cmd.Println()
			continue
		}
		spacesNeeded := leftWidth - visualWidth(leftPart) + padding
		if spacesNeeded > 0 {
			cmd.Print(strings.Repeat(" ", spacesNeeded))
		}
		cmd.Println(rightPart)
	}
}

// visualWidth returns the terminal width of s, ignoring color codes and
// counting wide characters twice.
func visualWidth(s string) int {
	return runewidth.StringWidth(color.ClearCode(s))
}
