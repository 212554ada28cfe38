package cmd

import (
	"github.com/spf13/cobra"

	"github.com/rschaeff/dpamengine/pkg/logger"
)

var verboseFlag bool

var rootCmd = &cobra.Command{
	Use:   "dpamengine",
	Short: "dpamengine runs the 24-step domain-annotation batch pipeline",
	Long: `dpamengine drives a set of proteins through the fixed per-step
batch pipeline against a working root: sequence-profile search,
structure search, pairwise structural alignment, secondary-structure
assignment, neural-net domain inference, and domain integration.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logOpts := logger.DefaultOptions()
		logOpts.ColorConsole = true
		if verboseFlag {
			logOpts.ConsoleLevel = logger.DebugLevel
		}
		logger.Init(logOpts)
		return nil
	},
}

// Execute adds every subcommand to the root command and runs it. Called once
// by main.main().
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "enable debug-level logging")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(resumeCmd)
	rootCmd.AddCommand(jobscriptCmd)
	rootCmd.AddCommand(summaryCmd)
	rootCmd.AddCommand(refdbCmd)
}
