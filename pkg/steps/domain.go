package steps

import (
	"fmt"
	"sort"

	"context"

	"github.com/rschaeff/dpamengine/pkg/dpamerrors"
	"github.com/rschaeff/dpamengine/pkg/protein"
	"github.com/rschaeff/dpamengine/pkg/runtime"
)

// minSegmentScore is the cohesion score a candidate segment needs to survive
// into a merged domain; segments scoring below this are treated as noise
// rather than a real domain boundary artifact.
const minSegmentScore = 0.3

// Domain is one merged, end-inclusive residue range believed to be a single
// structural/functional domain.
type Domain struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// DomainMerged is step 20's output.
type DomainMerged struct {
	ProteinID string   `json:"protein_id"`
	Domains   []Domain `json:"domains"`
}

// DomainMergeStep is step 20: drop low-cohesion candidate segments and merge
// the survivors' adjacent or overlapping ranges into domains.
type DomainMergeStep struct{}

func (DomainMergeStep) StepID() protein.StepID { return protein.StepDomainMerge }

func (DomainMergeStep) Run(ctx context.Context, rc *runtime.Context, proteinID string) error {
	var scored SegmentScored
	if err := readArtifact(rc, proteinID, protein.StepSegmentScore, protein.KindSegmentScored, &scored); err != nil {
		return err
	}

	kept := make([]Segment, 0, len(scored.Segments))
	for _, s := range scored.Segments {
		if s.Score >= minSegmentScore {
			kept = append(kept, s.Segment)
		}
	}
	if len(kept) == 0 {
		return dpamerrors.New(dpamerrors.KindInvariantViolation, "every candidate segment scored below threshold for "+proteinID)
	}
	sort.Slice(kept, func(i, j int) bool { return kept[i].Start < kept[j].Start })

	domains := []Domain{{Start: kept[0].Start, End: kept[0].End}}
	for _, s := range kept[1:] {
		last := &domains[len(domains)-1]
		if s.Start <= last.End+1 {
			if s.End > last.End {
				last.End = s.End
			}
			continue
		}
		domains = append(domains, Domain{Start: s.Start, End: s.End})
	}

	return writeArtifact(rc, proteinID, protein.StepDomainMerge, protein.KindDomainMerged, DomainMerged{ProteinID: proteinID, Domains: domains})
}

// SupportedDomain is a merged domain plus its structural-template coverage
// fraction.
type SupportedDomain struct {
	Domain
	Support float64 `json:"support"`
}

// DomainSupported is step 21's output.
type DomainSupported struct {
	ProteinID string            `json:"protein_id"`
	Domains   []SupportedDomain `json:"domains"`
}

// DomainSupportStep is step 21: cross-check each merged domain against the
// best structural template's residue equivalence, scoring what fraction of
// the domain's residues the template alignment actually covers.
type DomainSupportStep struct{}

func (DomainSupportStep) StepID() protein.StepID { return protein.StepDomainSupport }

func (DomainSupportStep) Run(ctx context.Context, rc *runtime.Context, proteinID string) error {
	var merged DomainMerged
	if err := readArtifact(rc, proteinID, protein.StepDomainMerge, protein.KindDomainMerged, &merged); err != nil {
		return err
	}

	var equiv pairwiseUnitResult
	covered := make(map[int]bool)
	if err := readArtifact(rc, proteinID, protein.StepPairwiseCollect, protein.KindPairwiseEquivalence, &equiv); err == nil {
		for _, eq := range equiv.Equivalences {
			covered[int(eq.Query)] = true
		}
	}

	supported := make([]SupportedDomain, len(merged.Domains))
	for i, d := range merged.Domains {
		supported[i] = SupportedDomain{Domain: d, Support: coverageFraction(covered, d)}
	}

	return writeArtifact(rc, proteinID, protein.StepDomainSupport, protein.KindDomainSupported, DomainSupported{ProteinID: proteinID, Domains: supported})
}

// coverageFraction returns the fraction of d's residues present in covered,
// 0 when d is empty or nothing is covered, not an error — missing template
// support degrades a domain's confidence rather than failing the step.
func coverageFraction(covered map[int]bool, d Domain) float64 {
	span := d.End - d.Start + 1
	if span <= 0 {
		return 0
	}
	hit := 0
	for i := d.Start; i <= d.End; i++ {
		if covered[i] {
			hit++
		}
	}
	return float64(hit) / float64(span)
}

// NumberedDomain is a supported domain with a stable, order-derived
// identifier.
type NumberedDomain struct {
	ID string `json:"id"`
	SupportedDomain
}

// DomainNumbered is step 22's output.
type DomainNumbered struct {
	ProteinID string           `json:"protein_id"`
	Domains   []NumberedDomain `json:"domains"`
}

// DomainNumberingStep is step 22: assign each domain a stable "D<n>"
// identifier in N-to-C-terminal order.
type DomainNumberingStep struct{}

func (DomainNumberingStep) StepID() protein.StepID { return protein.StepDomainNumbering }

func (DomainNumberingStep) Run(ctx context.Context, rc *runtime.Context, proteinID string) error {
	var supported DomainSupported
	if err := readArtifact(rc, proteinID, protein.StepDomainSupport, protein.KindDomainSupported, &supported); err != nil {
		return err
	}

	numbered := make([]NumberedDomain, len(supported.Domains))
	for i, d := range supported.Domains {
		numbered[i] = NumberedDomain{ID: fmt.Sprintf("D%d", i+1), SupportedDomain: d}
	}

	return writeArtifact(rc, proteinID, protein.StepDomainNumbering, protein.KindDomainNumbered, DomainNumbered{ProteinID: proteinID, Domains: numbered})
}

// FormattedDomain is one domain in the final per-protein rendering, with
// 1-indexed, human-facing residue numbers alongside the 0-indexed ones every
// upstream step works in.
type FormattedDomain struct {
	ID           string  `json:"id"`
	Range        string  `json:"range"`
	StartResidue int     `json:"start_residue"`
	EndResidue   int     `json:"end_residue"`
	Support      float64 `json:"support"`
}

// DomainFormatted is step 23's output: the final per-protein domain file
// before integration mirrors it out of the step tree.
type DomainFormatted struct {
	ProteinID string            `json:"protein_id"`
	Domains   []FormattedDomain `json:"domains"`
}

// DomainFormatStep is step 23: render the numbered domains into the
// human-facing final file shape.
type DomainFormatStep struct{}

func (DomainFormatStep) StepID() protein.StepID { return protein.StepDomainFormat }

func (DomainFormatStep) Run(ctx context.Context, rc *runtime.Context, proteinID string) error {
	var numbered DomainNumbered
	if err := readArtifact(rc, proteinID, protein.StepDomainNumbering, protein.KindDomainNumbered, &numbered); err != nil {
		return err
	}

	formatted := make([]FormattedDomain, len(numbered.Domains))
	for i, d := range numbered.Domains {
		formatted[i] = FormattedDomain{
			ID:           d.ID,
			Range:        fmt.Sprintf("%d-%d", d.Start+1, d.End+1),
			StartResidue: d.Start + 1,
			EndResidue:   d.End + 1,
			Support:      d.Support,
		}
	}

	return writeArtifact(rc, proteinID, protein.StepDomainFormat, protein.KindDomainFormatted, DomainFormatted{ProteinID: proteinID, Domains: formatted})
}
