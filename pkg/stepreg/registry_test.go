package stepreg

import (
	"testing"

	"github.com/rschaeff/dpamengine/pkg/protein"
)

func TestOrderedMatchesCoreSteps(t *testing.T) {
	ordered := Ordered()
	core := protein.CoreSteps()
	if len(ordered) != len(core) {
		t.Fatalf("got %d descriptors want %d", len(ordered), len(core))
	}
	for i, d := range ordered {
		if d.ID != core[i] {
			t.Fatalf("position %d: got step %d want %d", i, d.ID, core[i])
		}
	}
}

func TestCriticalStepsMatchMode(t *testing.T) {
	d, err := Lookup(protein.StepPairwiseAlign)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if d.Mode != PooledFanout {
		t.Fatalf("pairwise-align should be pooled-fanout, got %v", d.Mode)
	}
	if !d.Critical {
		t.Fatal("pairwise-align should be critical")
	}
}

func TestLookupUnregisteredStep(t *testing.T) {
	if _, err := Lookup(protein.StepVisualize); err == nil {
		t.Fatal("expected error looking up the reserved visualize step")
	}
}

func TestSharedResourceStepRegistered(t *testing.T) {
	d, err := Lookup(protein.StepDpamInfer)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if d.Mode != SharedResource {
		t.Fatalf("got %v want SharedResource", d.Mode)
	}
}
