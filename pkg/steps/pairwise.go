package steps

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rschaeff/dpamengine/pkg/adapter/pairwise"
	"github.com/rschaeff/dpamengine/pkg/atomicfile"
	"github.com/rschaeff/dpamengine/pkg/dpamerrors"
	"github.com/rschaeff/dpamengine/pkg/engine"
	"github.com/rschaeff/dpamengine/pkg/protein"
	"github.com/rschaeff/dpamengine/pkg/runtime"
)

// PairwisePrepare is step 11: confirm a protein has a non-empty candidate
// template list before the alignment fan-out begins.
type PairwisePrepare struct{}

func (PairwisePrepare) StepID() protein.StepID { return protein.StepPairwisePrepare }

func (PairwisePrepare) Run(ctx context.Context, rc *runtime.Context, proteinID string) error {
	var templates []string
	if err := readArtifact(rc, proteinID, protein.StepTemplateSelect, protein.KindTemplateList, &templates); err != nil {
		return err
	}
	if len(templates) == 0 {
		return dpamerrors.New(dpamerrors.KindInputMissing, "no candidate templates selected for "+proteinID)
	}
	return writeArtifact(rc, proteinID, protein.StepPairwisePrepare, protein.KindPairwiseScratchTag, map[string]int{"templates": len(templates)})
}

// PairwiseAlign is step 12 (pooled-fanout, critical): one-vs-one structural
// alignment against every candidate template, fanned out across the
// I/O-sized worker pool. It is a ScratchConsumer: each
// candidate template is staged through the batch's local template cache
// before alignment.
type PairwiseAlign struct {
	Adapter              *pairwise.Adapter
	CanonicalTemplateDir string
	TemplateExt          string
}

func (PairwiseAlign) StepID() protein.StepID { return protein.StepPairwiseAlign }

func (s PairwiseAlign) CheckAvailability() error {
	if s.Adapter.CheckAvailability() {
		return nil
	}
	return dpamerrors.New(dpamerrors.KindToolMissing, "pairwise alignment executable not found")
}

func (PairwiseAlign) NeedsScratch() bool { return true }

func (s PairwiseAlign) templateExt() string {
	if s.TemplateExt != "" {
		return s.TemplateExt
	}
	return "pdb"
}

// Units lists one fan-out unit per candidate template selected for
// proteinID in step 10.
func (s PairwiseAlign) Units(ctx context.Context, rc *runtime.Context, proteinID string) ([]engine.FanoutUnit, error) {
	var templates []string
	if err := readArtifact(rc, proteinID, protein.StepTemplateSelect, protein.KindTemplateList, &templates); err != nil {
		return nil, err
	}
	units := make([]engine.FanoutUnit, 0, len(templates))
	for _, t := range templates {
		units = append(units, engine.FanoutUnit{ProteinID: proteinID, UnitID: t})
	}
	return units, nil
}

// RunUnit stages unit's template through the scratch template cache, runs
// one pairwise alignment against it, and persists the raw per-unit result
// for Finalize to later roll up.
func (s PairwiseAlign) RunUnit(ctx context.Context, rc *runtime.Context, unit engine.FanoutUnit) error {
	canonical := filepath.Join(s.CanonicalTemplateDir, unit.UnitID+"."+s.templateExt())
	templatePath, err := rc.Scratch.EnsureTemplate(unit.UnitID+"."+s.templateExt(), canonical)
	if err != nil {
		return dpamerrors.Wrap(dpamerrors.KindScratchExhausted, err, "stage template "+unit.UnitID)
	}

	workDir, cleanup, err := rc.Scratch.WorkerDir(unit.ProteinID + "_" + unit.UnitID)
	if err != nil {
		return err
	}
	defer cleanup()

	queryPath := artifactPath(rc, unit.ProteinID, protein.StepPrepare, protein.KindNormalizedStructure)
	result, err := s.Adapter.Align(ctx, queryPath, templatePath, unit.UnitID+".aln", workDir)
	if err != nil {
		return err
	}

	rec := pairwiseUnitResult{TemplateID: unit.UnitID, ZScore: result.ZScore, Equivalences: result.Equivalences}
	return atomicfile.WriteJSON(pairwiseUnitPath(rc, unit.ProteinID, unit.UnitID), rec)
}

// Finalize rolls every candidate template's per-unit alignment result up
// into one raw-equivalence-set artifact for proteinID. A template whose unit
// failed is omitted; the step only fails for this protein if every
// candidate template failed ("failures in individual units
// do not abort the step").
func (s PairwiseAlign) Finalize(ctx context.Context, rc *runtime.Context, proteinID string, unitErrs map[string]error) error {
	var templates []string
	if err := readArtifact(rc, proteinID, protein.StepTemplateSelect, protein.KindTemplateList, &templates); err != nil {
		return err
	}

	var results []pairwiseUnitResult
	for _, t := range templates {
		if _, failed := unitErrs[t]; failed {
			continue
		}
		var r pairwiseUnitResult
		if err := atomicfile.ReadJSON(pairwiseUnitPath(rc, proteinID, t), &r); err != nil {
			continue
		}
		results = append(results, r)
		os.Remove(pairwiseUnitPath(rc, proteinID, t))
	}

	if len(results) == 0 {
		return dpamerrors.New(dpamerrors.KindToolFailed, fmt.Sprintf("no pairwise alignments succeeded for %s out of %d candidates", proteinID, len(templates)))
	}
	return writeArtifact(rc, proteinID, protein.StepPairwiseAlign, protein.KindPairwiseRaw, results)
}

// pairwiseUnitResult is one candidate template's raw alignment outcome,
// persisted by RunUnit under the step directory and consumed by Finalize.
type pairwiseUnitResult struct {
	TemplateID   string                     `json:"template_id"`
	ZScore       float64                    `json:"z_score"`
	Equivalences []pairwise.EquivalencePair `json:"equivalences"`
}

func pairwiseUnitPath(rc *runtime.Context, proteinID, templateID string) string {
	return filepath.Join(rc.Resolver.StepDir(protein.StepPairwiseAlign), fmt.Sprintf("%s.%s.raw.json", proteinID, templateID))
}

// PairwiseCollect is step 13: pick the best-supported candidate template
// (highest Z-score) and its residue equivalence as the protein's structural
// alignment evidence.
type PairwiseCollect struct{}

func (PairwiseCollect) StepID() protein.StepID { return protein.StepPairwiseCollect }

func (PairwiseCollect) Run(ctx context.Context, rc *runtime.Context, proteinID string) error {
	var raw []pairwiseUnitResult
	if err := readArtifact(rc, proteinID, protein.StepPairwiseAlign, protein.KindPairwiseRaw, &raw); err != nil {
		return err
	}
	if len(raw) == 0 {
		return dpamerrors.New(dpamerrors.KindInvariantViolation, "pairwise raw results empty for "+proteinID)
	}

	best := raw[0]
	for _, r := range raw[1:] {
		if r.ZScore > best.ZScore {
			best = r
		}
	}
	return writeArtifact(rc, proteinID, protein.StepPairwiseCollect, protein.KindPairwiseEquivalence, best)
}

// PairwiseCollectAlias is step 14: a no-op alias of step 13 kept only for
// compatibility with older artifact naming. protein.CoreSteps elides it
// from the scheduling order; the batch runner never dispatches it.
// Registered here only so a Registry lookup for StepID 14 resolves to
// something rather than panicking.
type PairwiseCollectAlias struct{}

func (PairwiseCollectAlias) StepID() protein.StepID { return protein.StepPairwiseCollectAlias }

func (PairwiseCollectAlias) Run(ctx context.Context, rc *runtime.Context, proteinID string) error {
	return nil
}
