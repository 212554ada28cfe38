package stepreg

import (
	"fmt"

	"github.com/rschaeff/dpamengine/pkg/protein"
	"github.com/rschaeff/dpamengine/pkg/spec"
)

// Descriptor is the fixed metadata for one scheduled step: its name, mode,
// and which adapter family (if any) it drives. Descriptors never change at
// runtime; the engine looks one up per step in the fixed order and dispatches
// according to Mode.
type Descriptor struct {
	spec.StepMeta

	ID   protein.StepID
	Mode Mode

	// Outputs are the declared artifact kinds this step writes per protein,
	// used to check the "marked complete implies outputs exist and are
	// non-empty" invariant. The alias step (14) declares no output of its
	// own since it never writes anything beyond step 13's.
	Outputs []protein.ArtifactKind

	// Critical mirrors protein.IsCritical(ID), duplicated here so callers
	// that only hold a Descriptor don't need to re-import protein's table.
	Critical bool
}

var registry = buildRegistry()

func buildRegistry() map[protein.StepID]Descriptor {
	entries := []Descriptor{
		{StepMeta: spec.StepMeta{Name: "prepare", Description: "normalize and validate raw structure input"}, ID: protein.StepPrepare, Mode: PerProtein, Outputs: []protein.ArtifactKind{protein.KindNormalizedStructure}},
		{StepMeta: spec.StepMeta{Name: "hhsearch-msa", Description: "build a multiple sequence alignment"}, ID: protein.StepHHSearchMSA, Mode: PerProtein, Outputs: []protein.ArtifactKind{protein.KindMSA}},
		{StepMeta: spec.StepMeta{Name: "hhsearch-profile", Description: "build an HMM profile from the MSA"}, ID: protein.StepHHSearchProfile, Mode: PerProtein, Outputs: []protein.ArtifactKind{protein.KindProfile}},
		{StepMeta: spec.StepMeta{Name: "hhsearch-search", Description: "profile-profile search against the reference database"}, ID: protein.StepHHSearchSearch, Mode: PerProtein, Outputs: []protein.ArtifactKind{protein.KindProfileHits}},
		{StepMeta: spec.StepMeta{Name: "hhsearch-parse", Description: "parse raw profile search hits into structured records"}, ID: protein.StepHHSearchParse, Mode: PerProtein, Outputs: []protein.ArtifactKind{protein.KindProfileHitsParsed}},
		{StepMeta: spec.StepMeta{Name: "foldseek-createdb", Description: "build a combined query structure database for the whole pending set"}, ID: protein.StepFoldseekCreateDB, Mode: BatchedBulk, Outputs: []protein.ArtifactKind{protein.KindFoldseekQueryDB}},
		{StepMeta: spec.StepMeta{Name: "foldseek-search", Description: "one combined structure-structure search against the reference database"}, ID: protein.StepFoldseekSearch, Mode: BatchedBulk, Outputs: []protein.ArtifactKind{protein.KindFoldseekAlnDB}},
		{StepMeta: spec.StepMeta{Name: "foldseek-convertalis", Description: "convert the combined raw alignment database to tabular hits"}, ID: protein.StepFoldseekConvertAlis, Mode: BatchedBulk, Outputs: []protein.ArtifactKind{protein.KindFoldseekHitsTabular}},
		{StepMeta: spec.StepMeta{Name: "foldseek-split", Description: "split tabular hits into per-protein hit sets"}, ID: protein.StepFoldseekSplit, Mode: PerProtein, Outputs: []protein.ArtifactKind{protein.KindFoldseekHitsSplit}},
		{StepMeta: spec.StepMeta{Name: "template-select", Description: "select candidate templates from combined profile and structure hits"}, ID: protein.StepTemplateSelect, Mode: PerProtein, Outputs: []protein.ArtifactKind{protein.KindTemplateList}},
		{StepMeta: spec.StepMeta{Name: "pairwise-prepare", Description: "stage per-candidate scratch inputs for pairwise alignment"}, ID: protein.StepPairwisePrepare, Mode: PerProtein, Outputs: []protein.ArtifactKind{protein.KindPairwiseScratchTag}},
		{StepMeta: spec.StepMeta{Name: "pairwise-align", Description: "pairwise structure alignment against each candidate template"}, ID: protein.StepPairwiseAlign, Mode: PooledFanout, Outputs: []protein.ArtifactKind{protein.KindPairwiseRaw}},
		{StepMeta: spec.StepMeta{Name: "pairwise-collect", Description: "collect per-candidate alignments into one equivalence set"}, ID: protein.StepPairwiseCollect, Mode: PerProtein, Outputs: []protein.ArtifactKind{protein.KindPairwiseEquivalence}},
		{StepMeta: spec.StepMeta{Name: "pairwise-collect-alias", Description: "compatibility no-op alias of pairwise-collect"}, ID: protein.StepPairwiseCollectAlias, Mode: PerProtein},
		{StepMeta: spec.StepMeta{Name: "secstruct-assign", Description: "assign per-residue secondary structure"}, ID: protein.StepSecStructAssign, Mode: PerProtein, Outputs: []protein.ArtifactKind{protein.KindSecStruct}},
		{StepMeta: spec.StepMeta{Name: "feature-assemble", Description: "assemble the per-residue feature matrix"}, ID: protein.StepFeatureAssemble, Mode: PerProtein, Outputs: []protein.ArtifactKind{protein.KindFeatureMatrix}},
		{StepMeta: spec.StepMeta{Name: "dpam-infer", Description: "score domain boundaries with the shared inference model"}, ID: protein.StepDpamInfer, Mode: SharedResource, Outputs: []protein.ArtifactKind{protein.KindDpamScores}},
		{StepMeta: spec.StepMeta{Name: "segment-candidates", Description: "propose candidate domain segments from inference scores"}, ID: protein.StepSegmentCandidates, Mode: PerProtein, Outputs: []protein.ArtifactKind{protein.KindSegmentCandidates}},
		{StepMeta: spec.StepMeta{Name: "segment-score", Description: "score candidate segments against template support"}, ID: protein.StepSegmentScore, Mode: PerProtein, Outputs: []protein.ArtifactKind{protein.KindSegmentScored}},
		{StepMeta: spec.StepMeta{Name: "domain-merge", Description: "merge overlapping scored segments into domain calls"}, ID: protein.StepDomainMerge, Mode: PerProtein, Outputs: []protein.ArtifactKind{protein.KindDomainMerged}},
		{StepMeta: spec.StepMeta{Name: "domain-support", Description: "attach template support evidence to each domain call"}, ID: protein.StepDomainSupport, Mode: PerProtein, Outputs: []protein.ArtifactKind{protein.KindDomainSupported}},
		{StepMeta: spec.StepMeta{Name: "domain-numbering", Description: "assign stable domain numbering within the protein"}, ID: protein.StepDomainNumbering, Mode: PerProtein, Outputs: []protein.ArtifactKind{protein.KindDomainNumbered}},
		{StepMeta: spec.StepMeta{Name: "domain-format", Description: "render the final per-protein domain report"}, ID: protein.StepDomainFormat, Mode: PerProtein, Outputs: []protein.ArtifactKind{protein.KindDomainFormatted}},
		{StepMeta: spec.StepMeta{Name: "integrate", Description: "write the final per-protein domain file to results/ and mirror it to root"}, ID: protein.StepIntegrate, Mode: PerProtein, Outputs: []protein.ArtifactKind{protein.KindFinalDomains}},
	}

	reg := make(map[protein.StepID]Descriptor, len(entries))
	for _, e := range entries {
		e.Critical = protein.IsCritical(e.ID)
		reg[e.ID] = e
	}
	return reg
}

// Lookup returns the descriptor for step, or an error if step is not part of
// the fixed registry (e.g. the reserved, unsupported visualization step).
func Lookup(step protein.StepID) (Descriptor, error) {
	d, ok := registry[step]
	if !ok {
		return Descriptor{}, fmt.Errorf("stepreg: step %d is not a registered step", step)
	}
	return d, nil
}

// Ordered returns every descriptor in the fixed scheduling order, aliases
// elided, matching protein.CoreSteps().
func Ordered() []Descriptor {
	steps := protein.CoreSteps()
	out := make([]Descriptor, 0, len(steps))
	for _, id := range steps {
		out = append(out, registry[id])
	}
	return out
}
