package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rschaeff/dpamengine/pkg/jobscript"
)

var jobscriptData jobscript.Data
var jobscriptEnvSetup []string

var jobscriptCmd = &cobra.Command{
	Use:   "jobscript",
	Short: "Print the generated job script for an external workload manager",
	Long: `jobscript renders the single-node script a workload manager submits
to run one batch: environment setup followed by a run invocation against the
given working root and config. It only prints the script text; it never
submits it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		jobscriptData.EnvSetup = jobscriptEnvSetup
		text, err := jobscript.Render(jobscriptData)
		if err != nil {
			return err
		}
		fmt.Fprint(os.Stdout, text)
		return nil
	},
}

func init() {
	flags := jobscriptCmd.Flags()
	flags.StringVar(&jobscriptData.BatchID, "batch-id", "default", "batch identifier embedded in the script")
	flags.StringVar(&jobscriptData.RunnerBinary, "runner-binary", "dpamengine", "path to the dpamengine binary the script invokes")
	flags.StringVar(&jobscriptData.WorkingRoot, "working-root", "", "working root directory passed to the runner (required)")
	flags.StringVar(&jobscriptData.ConfigPath, "config", "", "batch configuration file passed to the runner (required)")
	flags.StringVar(&jobscriptData.Layout, "layout", "", "layout override passed to the runner (empty auto-detects)")
	flags.StringVar(&jobscriptData.ScratchRoot, "scratch-root", "", "scratch base root override passed to the runner")
	flags.IntVar(&jobscriptData.Workers, "workers", 0, "worker-pool size override passed to the runner")
	flags.StringArrayVar(&jobscriptEnvSetup, "env-setup", nil, "a shell line to run before the runner invocation; may be repeated")

	_ = jobscriptCmd.MarkFlagRequired("working-root")
	_ = jobscriptCmd.MarkFlagRequired("config")
}
