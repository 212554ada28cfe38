// Package profilesearch adapts the sequence-profile search tool: building a
// multiple sequence alignment, building an HMM profile from it, and
// searching that profile against the reference database.
package profilesearch

import (
	"context"
	"os"

	"github.com/rschaeff/dpamengine/pkg/adapter"
	"github.com/rschaeff/dpamengine/pkg/dpamerrors"
	"github.com/rschaeff/dpamengine/pkg/toolexec"
)

// Config locates the adapter's three executables and the reference database.
type Config struct {
	MSAOverride     string
	ProfileOverride string
	SearchOverride  string
	CanonicalPrefix string
	ReferenceDBPath string
}

// Adapter drives the profile search tool family.
type Adapter struct {
	cfg Config
}

func New(cfg Config) *Adapter {
	return &Adapter{cfg: cfg}
}

// CheckAvailability reports whether the search executable (the step the
// engine actually schedules against this adapter) can be discovered.
func (a *Adapter) CheckAvailability() bool {
	return toolexec.CheckAvailability(a.cfg.SearchOverride, "DPAM_PROFILE_SEARCH", a.cfg.CanonicalPrefix, "hhsearch")
}

// BuildMSA constructs a multiple sequence alignment for the structure at
// sequencePath, writing it to outPath.
func (a *Adapter) BuildMSA(ctx context.Context, sequencePath, outPath, workDir string) error {
	exe, err := toolexec.Discover(a.cfg.MSAOverride, "DPAM_MSA_BUILD", a.cfg.CanonicalPrefix, "hhblits")
	if err != nil {
		return dpamerrors.Wrap(dpamerrors.KindToolMissing, err, "discover MSA builder")
	}
	argv := []string{exe, "-i", sequencePath, "-oa3m", outPath, "-n", "2"}
	if _, err := toolexec.Run(ctx, argv, toolexec.Options{Dir: workDir}); err != nil {
		return dpamerrors.Wrap(dpamerrors.KindToolFailed, err, "build MSA")
	}
	if _, err := os.Stat(outPath); err != nil {
		return dpamerrors.Wrap(dpamerrors.KindToolFailed, err, "MSA output missing after tool reported success")
	}
	return nil
}

// BuildProfile builds an HMM profile from an MSA.
func (a *Adapter) BuildProfile(ctx context.Context, msaPath, outPath, workDir string) error {
	exe, err := toolexec.Discover(a.cfg.ProfileOverride, "DPAM_PROFILE_BUILD", a.cfg.CanonicalPrefix, "hhmake")
	if err != nil {
		return dpamerrors.Wrap(dpamerrors.KindToolMissing, err, "discover profile builder")
	}
	argv := []string{exe, "-i", msaPath, "-o", outPath}
	if _, err := toolexec.Run(ctx, argv, toolexec.Options{Dir: workDir}); err != nil {
		return dpamerrors.Wrap(dpamerrors.KindToolFailed, err, "build profile")
	}
	if _, err := os.Stat(outPath); err != nil {
		return dpamerrors.Wrap(dpamerrors.KindToolFailed, err, "profile output missing after tool reported success")
	}
	return nil
}

// Search runs profile-vs-database search and parses the resulting tabular
// hit file, which the tool is instructed to write to hitsPath.
func (a *Adapter) Search(ctx context.Context, profilePath, hitsPath, workDir string) ([]adapter.Hit, error) {
	exe, err := toolexec.Discover(a.cfg.SearchOverride, "DPAM_PROFILE_SEARCH", a.cfg.CanonicalPrefix, "hhsearch")
	if err != nil {
		return nil, dpamerrors.Wrap(dpamerrors.KindToolMissing, err, "discover profile search tool")
	}
	argv := []string{exe, "-i", profilePath, "-d", a.cfg.ReferenceDBPath, "-o", hitsPath, "-blasttab"}
	if _, err := toolexec.Run(ctx, argv, toolexec.Options{Dir: workDir}); err != nil {
		return nil, dpamerrors.Wrap(dpamerrors.KindToolFailed, err, "profile search")
	}

	f, err := os.Open(hitsPath)
	if err != nil {
		return nil, dpamerrors.Wrap(dpamerrors.KindParseError, err, "open profile search hits file")
	}
	defer f.Close()

	hits, err := adapter.ParseTabularHits(f)
	if err != nil {
		return nil, err
	}
	return hits, nil
}
