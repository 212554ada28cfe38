package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/rschaeff/dpamengine/pkg/config"
)

var runConfigPath string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute (or resume) a batch against a working root",
	Long: `run drives every protein discovered under the working root through
the fixed 24-step pipeline. Re-invoking run against a root that already has
progress resumes from the state recorded there: completed steps are skipped,
failed-critical proteins are skipped for every later step.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.ParseFromFile(runConfigPath)
		if err != nil {
			return err
		}
		return runBatch(context.Background(), cfg, false)
	},
}

func init() {
	runCmd.Flags().StringVarP(&runConfigPath, "config", "c", "", "path to the batch configuration YAML file (required)")
	_ = runCmd.MarkFlagRequired("config")
}
