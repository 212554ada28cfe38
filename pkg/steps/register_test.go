package steps

import (
	"testing"

	"github.com/rschaeff/dpamengine/pkg/config"
	"github.com/rschaeff/dpamengine/pkg/protein"
)

func TestBuildRegistryRegistersEveryCoreStepExceptTheAlias(t *testing.T) {
	cfg := &config.Config{WorkingRoot: t.TempDir()}
	cfg.SetDefaults()

	reg := BuildRegistry(cfg)

	for _, id := range protein.CoreSteps() {
		if _, err := reg.Lookup(id); err != nil {
			t.Fatalf("step %d: %v", id, err)
		}
	}

	if _, err := reg.Lookup(protein.StepPairwiseCollectAlias); err != nil {
		t.Fatalf("alias step should still resolve to a body: %v", err)
	}

	if _, err := reg.Lookup(protein.StepVisualize); err == nil {
		t.Fatal("expected the reserved visualization step to be unregistered")
	}
}
