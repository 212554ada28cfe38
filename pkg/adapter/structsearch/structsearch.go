// Package structsearch adapts the structure-structure search tool family:
// createdb, search, and convertalis as three primitive operations the
// batched-bulk step composes.
package structsearch

import (
	"context"
	"os"

	"github.com/rschaeff/dpamengine/pkg/adapter"
	"github.com/rschaeff/dpamengine/pkg/dpamerrors"
	"github.com/rschaeff/dpamengine/pkg/toolexec"
)

// Config locates the adapter's executable and reference database.
type Config struct {
	Override        string
	CanonicalPrefix string
	ReferenceDBPath string
}

// Adapter drives the structure search tool family. A single executable
// ("foldseek"-shaped) exposes createdb/search/convertalis/easy-search as
// subcommands.
type Adapter struct {
	cfg Config
}

func New(cfg Config) *Adapter {
	return &Adapter{cfg: cfg}
}

func (a *Adapter) discover() (string, error) {
	exe, err := toolexec.Discover(a.cfg.Override, "DPAM_STRUCT_SEARCH", a.cfg.CanonicalPrefix, "foldseek")
	if err != nil {
		return "", dpamerrors.Wrap(dpamerrors.KindToolMissing, err, "discover structure search tool")
	}
	return exe, nil
}

// CheckAvailability reports whether the structure search executable can be
// discovered.
func (a *Adapter) CheckAvailability() bool {
	return toolexec.CheckAvailability(a.cfg.Override, "DPAM_STRUCT_SEARCH", a.cfg.CanonicalPrefix, "foldseek")
}

// CreateDB builds a combined query database from the listed structure files,
// the primitive the batched-bulk step uses to amortize reference-index load
// across every protein in the batch.
func (a *Adapter) CreateDB(ctx context.Context, structurePaths []string, dbPath, workDir string) error {
	exe, err := a.discover()
	if err != nil {
		return err
	}
	argv := append([]string{exe, "createdb"}, structurePaths...)
	argv = append(argv, dbPath)
	if _, err := toolexec.Run(ctx, argv, toolexec.Options{Dir: workDir}); err != nil {
		return dpamerrors.Wrap(dpamerrors.KindToolFailed, err, "structure createdb")
	}
	return nil
}

// Search runs one structure-structure search of queryDBPath against the
// configured reference database, writing the raw alignment database to
// alnDBPath.
func (a *Adapter) Search(ctx context.Context, queryDBPath, alnDBPath, workDir string) error {
	exe, err := a.discover()
	if err != nil {
		return err
	}
	argv := []string{exe, "search", queryDBPath, a.cfg.ReferenceDBPath, alnDBPath, workDir}
	if _, err := toolexec.Run(ctx, argv, toolexec.Options{Dir: workDir}); err != nil {
		return dpamerrors.Wrap(dpamerrors.KindToolFailed, err, "structure search")
	}
	return nil
}

// ConvertAlis converts a raw alignment database into a tabular hits file and
// parses it into uniform hit records.
func (a *Adapter) ConvertAlis(ctx context.Context, queryDBPath, alnDBPath, hitsPath, workDir string) ([]adapter.Hit, error) {
	exe, err := a.discover()
	if err != nil {
		return nil, err
	}
	argv := []string{
		exe, "convertalis", queryDBPath, a.cfg.ReferenceDBPath, alnDBPath, hitsPath,
		"--format-output", "query,target,pident,alnlen,mismatch,gapopen,qstart,qend,tstart,tend,evalue,bits",
	}
	if _, err := toolexec.Run(ctx, argv, toolexec.Options{Dir: workDir}); err != nil {
		return nil, dpamerrors.Wrap(dpamerrors.KindToolFailed, err, "convertalis")
	}

	f, err := os.Open(hitsPath)
	if err != nil {
		return nil, dpamerrors.Wrap(dpamerrors.KindParseError, err, "open convertalis output")
	}
	defer f.Close()

	return adapter.ParseTabularHits(f)
}

// EasySearch runs the single-query convenience path used when a per-protein
// invocation is cheaper than amortizing through the batched database (small
// batches, or a resumed run with only a handful of pending proteins).
func (a *Adapter) EasySearch(ctx context.Context, structurePath, hitsPath, workDir string) ([]adapter.Hit, error) {
	exe, err := a.discover()
	if err != nil {
		return nil, err
	}
	argv := []string{exe, "easy-search", structurePath, a.cfg.ReferenceDBPath, hitsPath, workDir}
	if _, err := toolexec.Run(ctx, argv, toolexec.Options{Dir: workDir}); err != nil {
		return nil, dpamerrors.Wrap(dpamerrors.KindToolFailed, err, "easy-search")
	}

	f, err := os.Open(hitsPath)
	if err != nil {
		return nil, dpamerrors.Wrap(dpamerrors.KindParseError, err, "open easy-search output")
	}
	defer f.Close()

	return adapter.ParseTabularHits(f)
}
