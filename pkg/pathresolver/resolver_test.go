package pathresolver

import (
	"path/filepath"
	"testing"

	"github.com/rschaeff/dpamengine/pkg/protein"
)

func TestArtifactPathSharded(t *testing.T) {
	r := New("/work/batch1", Sharded)
	got := r.ArtifactPath("P00001", protein.StepHHSearchSearch, Kind(protein.KindProfileHits))
	want := filepath.Join("/work/batch1", "step04_hhsearch_search", "P00001.profile_hits.tsv")
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestArtifactPathFlat(t *testing.T) {
	r := New("/work/batch1", Flat)
	got := r.ArtifactPath("P00001", protein.StepHHSearchSearch, Kind(protein.KindProfileHits))
	want := filepath.Join("/work/batch1", "P00001.profile_hits.tsv")
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestStepDirAliasMatchesCanonical(t *testing.T) {
	r := New("/work/batch1", Sharded)
	alias := r.StepDir(protein.StepPairwiseCollectAlias)
	canonical := r.StepDir(protein.StepPairwiseCollect)
	if alias != canonical {
		t.Fatalf("alias dir %q should equal canonical dir %q", alias, canonical)
	}
}

func TestStepDirPanicsOnUnknownStep(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for unknown step id")
		}
	}()
	r := New("/work/batch1", Sharded)
	r.StepDir(protein.StepVisualize)
}

func TestDetectLayoutFlatWhenAbsent(t *testing.T) {
	layout, err := DetectLayout(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if layout != Flat {
		t.Fatalf("got %v want Flat", layout)
	}
}

func TestBatchAndProteinStateFilePathsIndependentOfLayout(t *testing.T) {
	sharded := New("/work/batch1", Sharded)
	flat := New("/work/batch1", Flat)
	if sharded.BatchStateFilePath() != flat.BatchStateFilePath() {
		t.Fatal("batch state file path must not depend on layout")
	}
	if sharded.ProteinStateFilePath("P1") != flat.ProteinStateFilePath("P1") {
		t.Fatal("protein state file path must not depend on layout")
	}
}
