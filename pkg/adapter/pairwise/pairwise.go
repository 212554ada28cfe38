// Package pairwise adapts the pairwise structural alignment tool: one query
// vs. one template, fixed output format, parsed from its summary section
// into a Z-score plus expanded paired-residue equivalences.
package pairwise

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rschaeff/dpamengine/pkg/dpamerrors"
	"github.com/rschaeff/dpamengine/pkg/toolexec"
)

// maxInputPathLength is the pairwise-alignment tool's hardcoded limit on
// input path length; the adapter works around it by relativizing paths to
// the process's working directory rather than passing absolute ones.
const maxInputPathLength = 80

// Config locates the adapter's executable.
type Config struct {
	Override        string
	CanonicalPrefix string
}

// Adapter drives the pairwise structural alignment tool.
type Adapter struct {
	cfg Config
}

func New(cfg Config) *Adapter {
	return &Adapter{cfg: cfg}
}

// CheckAvailability reports whether the alignment executable can be
// discovered.
func (a *Adapter) CheckAvailability() bool {
	return toolexec.CheckAvailability(a.cfg.Override, "DPAM_PAIRWISE_ALIGN", a.cfg.CanonicalPrefix, "tmalign")
}

// Residue is one position in a structure, addressed by sequence index.
type Residue int

// EquivalencePair is one query residue matched to one template residue in a
// structural alignment.
type EquivalencePair struct {
	Query    Residue
	Template Residue
}

// Result is one pairwise alignment's parsed outcome.
type Result struct {
	ZScore       float64
	Equivalences []EquivalencePair
}

// Align runs one query-vs-template structural alignment. queryPath and
// templatePath are relativized to workDir before being passed to the tool,
// since the tool truncates or rejects absolute paths over 80 characters;
// outPath must already be short enough, by construction of the scratch
// layout, and is passed through unchanged.
func (a *Adapter) Align(ctx context.Context, queryPath, templatePath, outPath, workDir string) (Result, error) {
	exe, err := toolexec.Discover(a.cfg.Override, "DPAM_PAIRWISE_ALIGN", a.cfg.CanonicalPrefix, "tmalign")
	if err != nil {
		return Result{}, dpamerrors.Wrap(dpamerrors.KindToolMissing, err, "discover pairwise alignment tool")
	}

	relQuery, err := shortenRelative(queryPath, workDir)
	if err != nil {
		return Result{}, dpamerrors.Wrap(dpamerrors.KindToolFailed, err, "relativize query path")
	}
	relTemplate, err := shortenRelative(templatePath, workDir)
	if err != nil {
		return Result{}, dpamerrors.Wrap(dpamerrors.KindToolFailed, err, "relativize template path")
	}

	argv := []string{exe, relQuery, relTemplate, "-o", outPath}
	if _, err := toolexec.Run(ctx, argv, toolexec.Options{Dir: workDir}); err != nil {
		return Result{}, dpamerrors.Wrap(dpamerrors.KindToolFailed, err, "pairwise alignment")
	}

	f, err := os.Open(filepath.Join(workDir, outPath))
	if err != nil {
		return Result{}, dpamerrors.Wrap(dpamerrors.KindParseError, err, "open pairwise alignment output")
	}
	defer f.Close()

	return parseSummary(f)
}

// shortenRelative rewrites path relative to base, erroring if even the
// relative form exceeds the tool's hardcoded limit.
func shortenRelative(path, base string) (string, error) {
	rel, err := filepath.Rel(base, path)
	if err != nil {
		return "", err
	}
	if len(rel) > maxInputPathLength {
		return "", fmt.Errorf("relative path %q (%d chars) still exceeds the tool's %d-character limit", rel, len(rel), maxInputPathLength)
	}
	return rel, nil
}

// parseSummary reads the alignment writer's summary section: a "Z-score="
// line, then one or more "equivalence" lines, each listing a query residue
// range and a template residue range of identical length. Each equivalence
// line expands into the cross-product... in practice, a position-by-position
// zip, since both spans advance together residue by residue; the adapter
// validates the spans have identical length before zipping them.
func parseSummary(r *os.File) (Result, error) {
	scanner := bufio.NewScanner(r)
	var result Result
	foundScore := false

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case strings.HasPrefix(line, "Z-score="):
			v, err := strconv.ParseFloat(strings.TrimPrefix(line, "Z-score="), 64)
			if err != nil {
				return Result{}, dpamerrors.Wrapf(dpamerrors.KindParseError, err, "parse Z-score from %q", line)
			}
			result.ZScore = v
			foundScore = true

		case strings.HasPrefix(line, "equivalence "):
			pairs, err := parseEquivalenceLine(line)
			if err != nil {
				return Result{}, err
			}
			result.Equivalences = append(result.Equivalences, pairs...)
		}
	}
	if err := scanner.Err(); err != nil {
		return Result{}, dpamerrors.Wrap(dpamerrors.KindParseError, err, "scan alignment summary")
	}
	if !foundScore {
		return Result{}, dpamerrors.New(dpamerrors.KindParseError, "alignment summary missing Z-score line")
	}
	return result, nil
}

// parseEquivalenceLine parses "equivalence <qstart>-<qend> <tstart>-<tend>"
// and validates the two spans have identical length before zipping them into
// paired residues.
func parseEquivalenceLine(line string) ([]EquivalencePair, error) {
	fields := strings.Fields(line)
	if len(fields) != 3 {
		return nil, dpamerrors.New(dpamerrors.KindParseError, "malformed equivalence line: "+line)
	}
	qStart, qEnd, err := parseRange(fields[1])
	if err != nil {
		return nil, dpamerrors.Wrap(dpamerrors.KindParseError, err, "parse query range")
	}
	tStart, tEnd, err := parseRange(fields[2])
	if err != nil {
		return nil, dpamerrors.Wrap(dpamerrors.KindParseError, err, "parse template range")
	}
	if qEnd-qStart != tEnd-tStart {
		return nil, dpamerrors.New(dpamerrors.KindParseError, fmt.Sprintf("equivalence spans differ in length: query %d-%d, template %d-%d", qStart, qEnd, tStart, tEnd))
	}

	n := qEnd - qStart + 1
	pairs := make([]EquivalencePair, 0, n)
	for i := 0; i < n; i++ {
		pairs = append(pairs, EquivalencePair{Query: Residue(qStart + i), Template: Residue(tStart + i)})
	}
	return pairs, nil
}

func parseRange(s string) (int, int, error) {
	parts := strings.SplitN(s, "-", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("expected start-end, got %q", s)
	}
	start, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, err
	}
	end, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, err
	}
	return start, end, nil
}
