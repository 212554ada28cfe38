// Package secstruct adapts the secondary-structure assignment tool: run on
// a structure file, fixed output, parsed into a per-residue class string.
package secstruct

import (
	"bufio"
	"context"
	"os"
	"strings"

	"github.com/rschaeff/dpamengine/pkg/dpamerrors"
	"github.com/rschaeff/dpamengine/pkg/toolexec"
)

// Config locates the adapter's executable.
type Config struct {
	Override        string
	CanonicalPrefix string
}

// Adapter drives the secondary-structure assignment tool.
type Adapter struct {
	cfg Config
}

func New(cfg Config) *Adapter {
	return &Adapter{cfg: cfg}
}

// CheckAvailability reports whether the assignment executable can be
// discovered.
func (a *Adapter) CheckAvailability() bool {
	return toolexec.CheckAvailability(a.cfg.Override, "DPAM_SECSTRUCT", a.cfg.CanonicalPrefix, "mkdssp")
}

// Assign runs secondary-structure assignment on the structure at
// structurePath, writing to outPath, and returns one class character per
// residue in sequence order.
func (a *Adapter) Assign(ctx context.Context, structurePath, outPath, workDir string) (string, error) {
	exe, err := toolexec.Discover(a.cfg.Override, "DPAM_SECSTRUCT", a.cfg.CanonicalPrefix, "mkdssp")
	if err != nil {
		return "", dpamerrors.Wrap(dpamerrors.KindToolMissing, err, "discover secondary-structure tool")
	}

	argv := []string{exe, structurePath, outPath}
	if _, err := toolexec.Run(ctx, argv, toolexec.Options{Dir: workDir}); err != nil {
		return "", dpamerrors.Wrap(dpamerrors.KindToolFailed, err, "secondary-structure assignment")
	}

	f, err := os.Open(outPath)
	if err != nil {
		return "", dpamerrors.Wrap(dpamerrors.KindParseError, err, "open secondary-structure output")
	}
	defer f.Close()

	return parseClasses(f)
}

// parseClasses reads one residue class character per non-empty, non-comment
// line and concatenates them in order.
func parseClasses(f *os.File) (string, error) {
	scanner := bufio.NewScanner(f)
	var sb strings.Builder
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		sb.WriteByte(line[0])
	}
	if err := scanner.Err(); err != nil {
		return "", dpamerrors.Wrap(dpamerrors.KindParseError, err, "scan secondary-structure output")
	}
	if sb.Len() == 0 {
		return "", dpamerrors.New(dpamerrors.KindParseError, "secondary-structure output contained no residue classes")
	}
	return sb.String(), nil
}
