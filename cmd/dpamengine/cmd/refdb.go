package cmd

import (
	"github.com/spf13/cobra"

	"github.com/rschaeff/dpamengine/pkg/refdb"
)

var refdbOpts refdb.Options

var refdbCmd = &cobra.Command{
	Use:   "refdb",
	Short: "Unpack a vendor-supplied reference database archive",
	Long: `refdb performs the one-time-per-install unpack of a reference
database archive (profile search, structure search, or pairwise template
library) into the directory tree the search adapters read from. It runs
outside the batch pipeline entirely; no batch run invokes it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return refdb.Unpack(refdbOpts)
	},
}

func init() {
	flags := refdbCmd.Flags()
	flags.StringVar(&refdbOpts.ArchivePath, "archive", "", "path to the vendor-supplied archive to unpack (required)")
	flags.StringVar(&refdbOpts.DestRoot, "dest-root", "", "destination directory the archive is unpacked into (required)")
	flags.BoolVar(&refdbOpts.Overwrite, "overwrite", false, "replace existing files at the destination instead of skipping them")

	_ = refdbCmd.MarkFlagRequired("archive")
	_ = refdbCmd.MarkFlagRequired("dest-root")
}
