package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/rschaeff/dpamengine/pkg/config"
)

var resumeConfigPath string

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Resume a batch against an existing working root",
	Long: `resume is run against a working root that already has progress
recorded in it. It auto-detects the root's on-disk layout instead of trusting
cfg.Layout, since a resumed root's layout was fixed the first time run
created it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.ParseFromFile(resumeConfigPath)
		if err != nil {
			return err
		}
		return runBatch(context.Background(), cfg, true)
	},
}

func init() {
	resumeCmd.Flags().StringVarP(&resumeConfigPath, "config", "c", "", "path to the batch configuration YAML file (required)")
	_ = resumeCmd.MarkFlagRequired("config")
}
