package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "segrunner",
	Short: "Run AI anatomical segmentation and import the results",
	Long: "Segrunner wraps an external AI segmentation tool: it builds the\n" +
		"command line for a chosen task, runs the tool, and imports the\n" +
		"resulting label volumes as named, terminology-tagged segments.",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(tasksCmd)
	rootCmd.AddCommand(structuresCmd)
	rootCmd.Version = version
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
