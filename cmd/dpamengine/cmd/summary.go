package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rschaeff/dpamengine/pkg/config"
	"github.com/rschaeff/dpamengine/pkg/pathresolver"
	"github.com/rschaeff/dpamengine/pkg/protein"
	"github.com/rschaeff/dpamengine/pkg/state"
	"github.com/rschaeff/dpamengine/pkg/summary"
)

var summaryConfigPath string

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Print the end-of-batch per-protein report for an existing working root",
	Long: `summary opens an existing working root's state store read-only and
prints the same per-protein, per-step report a batch run prints at the end.
It never runs a step or writes to the working root: state.Open only
initializes missing records in memory, it does not persist them.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.ParseFromFile(summaryConfigPath)
		if err != nil {
			return err
		}

		layout, err := pathresolver.DetectLayout(cfg.WorkingRoot)
		if err != nil {
			return fmt.Errorf("detect layout at %s: %w", cfg.WorkingRoot, err)
		}
		resolver := pathresolver.New(cfg.WorkingRoot, layout)

		discovered, err := protein.Discover(cfg.WorkingRoot, cfg.StructureExt, cfg.ConfidenceExt)
		if err != nil {
			return fmt.Errorf("discover proteins: %w", err)
		}
		proteinIDs := make([]string, 0, len(discovered))
		for _, p := range discovered {
			proteinIDs = append(proteinIDs, p.ID)
		}

		store, err := state.Open(resolver, cfg.BatchID, proteinIDs)
		if err != nil {
			return fmt.Errorf("open state store: %w", err)
		}

		rows := summary.Build(store)
		summary.Write(os.Stdout, rows)
		return nil
	},
}

func init() {
	summaryCmd.Flags().StringVarP(&summaryConfigPath, "config", "c", "", "path to the batch configuration YAML file (required)")
	_ = summaryCmd.MarkFlagRequired("config")
}
