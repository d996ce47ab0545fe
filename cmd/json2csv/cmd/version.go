package cmd

import (
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/json2csv/internal/flatten"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Long:  `Display the build version, commit and the flattening strategies this binary supports.`,
	Run:   runVersion,
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

func runVersion(cmd *cobra.Command, args []string) {
	names := make([]string, len(flatten.Strategies))
	for i, s := range flatten.Strategies {
		names[i] = string(s)
	}

	cmd.Printf("json2csv version %s\n", Version)
	cmd.Printf("  Commit: %s (built %s)\n", Commit, BuildDate)
	cmd.Printf("  Go version: %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
	cmd.Printf("  Strategies: %s\n", strings.Join(names, ", "))
}
