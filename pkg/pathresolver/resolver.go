// Package pathresolver is the deterministic, side-effect-free mapping from
// (protein id, step id, artifact kind) to a filesystem path.
// It never creates directories itself — callers materialize the parent
// directory lazily on first write — and it never consults directory mtimes.
package pathresolver

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rschaeff/dpamengine/pkg/protein"
)

// Layout selects how intermediate artifacts are organized under the
// working root. Raw inputs, state files, and the batch scratch directory
// always live at the root regardless of layout.
type Layout int

const (
	// Sharded places each step's artifacts under stepNN_<name>/.
	Sharded Layout = iota
	// Flat places every artifact directly in the working root.
	Flat
)

func (l Layout) String() string {
	switch l {
	case Sharded:
		return "sharded"
	case Flat:
		return "flat"
	default:
		return fmt.Sprintf("layout(%d)", int(l))
	}
}

// ErrInvalidEnum is a programming-error panic value: the resolver is total
// on valid enumerated inputs and never surfaces invalid ones as a runtime
// error.
type ErrInvalidEnum struct {
	What string
	Got  interface{}
}

func (e *ErrInvalidEnum) Error() string {
	return fmt.Sprintf("pathresolver: invalid %s: %v", e.What, e.Got)
}

var stepDirNames = map[protein.StepID]string{
	protein.StepPrepare:              "step01_prepare",
	protein.StepHHSearchMSA:          "step02_hhsearch_msa",
	protein.StepHHSearchProfile:      "step03_hhsearch_profile",
	protein.StepHHSearchSearch:       "step04_hhsearch_search",
	protein.StepHHSearchParse:        "step05_hhsearch_parse",
	protein.StepFoldseekCreateDB:     "step06_foldseek_createdb",
	protein.StepFoldseekSearch:       "step07_foldseek_search",
	protein.StepFoldseekConvertAlis:  "step08_foldseek_convertalis",
	protein.StepFoldseekSplit:        "step09_foldseek_split",
	protein.StepTemplateSelect:       "step10_template_select",
	protein.StepPairwisePrepare:      "step11_pairwise_prepare",
	protein.StepPairwiseAlign:        "step12_pairwise_align",
	protein.StepPairwiseCollect:      "step13_pairwise_collect",
	protein.StepPairwiseCollectAlias: "step13_pairwise_collect", // aliases step 13's directory
	protein.StepSecStructAssign:      "step15_secstruct_assign",
	protein.StepFeatureAssemble:      "step16_feature_assemble",
	protein.StepDpamInfer:            "step17_dpam_infer",
	protein.StepSegmentCandidates:    "step18_segment_candidates",
	protein.StepSegmentScore:         "step19_segment_score",
	protein.StepDomainMerge:          "step20_domain_merge",
	protein.StepDomainSupport:        "step21_domain_support",
	protein.StepDomainNumbering:      "step22_domain_numbering",
	protein.StepDomainFormat:         "step23_domain_format",
	protein.StepIntegrate:            "step24_integrate",
}

// ResultsDirName is the final-artifact mirror directory, present under the
// root in both layouts.
const ResultsDirName = "results"

// ScratchDirName is the per-batch scratch subdirectory name, always at the
// root regardless of layout.
const ScratchDirName = "_batch"

// Resolver resolves artifact paths for one working root under one layout.
type Resolver struct {
	root   string
	layout Layout
}

// New creates a Resolver rooted at root using the given layout.
func New(root string, layout Layout) *Resolver {
	return &Resolver{root: root, layout: layout}
}

// Root returns the working root directory.
func (r *Resolver) Root() string {
	return r.root
}

// Layout returns the configured layout.
func (r *Resolver) Layout() Layout {
	return r.layout
}

// ScratchDir returns the per-batch scratch subdirectory path.
func (r *Resolver) ScratchDir() string {
	return filepath.Join(r.root, ScratchDirName)
}

// ResultsDir returns the final-artifacts mirror directory.
func (r *Resolver) ResultsDir() string {
	return filepath.Join(r.root, ResultsDirName)
}

// ProteinStateFilePath returns the per-protein durable state file path.
// It always lives at the root, independent of layout.
func (r *Resolver) ProteinStateFilePath(proteinID string) string {
	return filepath.Join(r.root, "."+proteinID+".state")
}

// BatchStateFilePath returns the batch durable state file path.
func (r *Resolver) BatchStateFilePath() string {
	return filepath.Join(r.root, "_batch.state")
}

// RawInputPath returns the root-level file "<proteinID>.<ext>", where a
// protein's raw inputs live.
func (r *Resolver) RawInputPath(proteinID, ext string) string {
	return filepath.Join(r.root, proteinID+"."+ext)
}

// StepDir returns the directory step's artifacts are written under for the
// configured layout: a stepNN_<name>/ subdirectory in Sharded layout, or the
// root itself in Flat layout.
func (r *Resolver) StepDir(step protein.StepID) string {
	if r.layout == Flat {
		return r.root
	}
	name, ok := stepDirNames[step]
	if !ok {
		panic(&ErrInvalidEnum{What: "step id", Got: step})
	}
	return filepath.Join(r.root, name)
}

// ArtifactPath returns the absolute path for one (protein, step, kind)
// artifact. Directory creation is the caller's responsibility.
func (r *Resolver) ArtifactPath(proteinID string, step protein.StepID, kind ArtifactKindLike) string {
	fileName := fmt.Sprintf("%s.%s", proteinID, kind.String())
	return filepath.Join(r.StepDir(step), fileName)
}

// BatchArtifactPath returns the path for an artifact a batched-bulk step
// writes once for the whole pending set rather than once per protein (the
// combined query database, the raw alignment database, the tabular hits file
// before per-protein splitting). It lives under the same step
// directory an ArtifactPath for that step would use, named for the batch
// rather than for any one protein.
func (r *Resolver) BatchArtifactPath(step protein.StepID, kind ArtifactKindLike) string {
	fileName := fmt.Sprintf("_batch.%s", kind.String())
	return filepath.Join(r.StepDir(step), fileName)
}

// ArtifactKindLike lets ArtifactPath accept protein.ArtifactKind without this
// package importing a name that collides with its own Layout/Kind concepts.
type ArtifactKindLike interface {
	String() string
}

// kindString adapts protein.ArtifactKind (a plain string type) to
// ArtifactKindLike.
type kindString string

func (k kindString) String() string { return string(k) }

// Kind wraps a protein.ArtifactKind for use with ArtifactPath.
func Kind(k protein.ArtifactKind) ArtifactKindLike {
	return kindString(k)
}

// DetectLayout probes an existing working root for step 1's directory and
// returns the layout that was used to produce it. Used on resume when no
// layout flag is given ("resume detection reduces to probing
// the presence of step 1's directory").
func DetectLayout(root string) (Layout, error) {
	shardedStep1 := filepath.Join(root, stepDirNames[protein.StepPrepare])
	info, err := os.Stat(shardedStep1)
	if err == nil && info.IsDir() {
		return Sharded, nil
	}
	if err != nil && !os.IsNotExist(err) {
		return Flat, err
	}
	return Flat, nil
}
