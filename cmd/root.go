package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is set during build using ldflags
var Version = "dev"

var (
	verbose    bool
	configFile string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "scorecheck",
	Short: "Annotates requirements with package health recommendations",
	Long: `scorecheck reads a requirements.txt file, looks up every package in the
package-health scoring service and reports the result as GitHub Actions
annotations, with one step output per package holding the recommendation.

Settings come from flags, INPUT_* environment variables (action inputs),
and .scorecheck.yaml, in that order.`,
	Version:       Version,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging on stderr")
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to config file (default: .scorecheck.yaml in the working directory or a parent)")
}
