package steps

import (
	"context"
	"os"
	"testing"

	"github.com/rschaeff/dpamengine/pkg/adapter"
	"github.com/rschaeff/dpamengine/pkg/atomicfile"
	"github.com/rschaeff/dpamengine/pkg/protein"
)

func TestFoldseekSplitKeepsOnlyMatchingProtein(t *testing.T) {
	rc := newTestRuntime(t, []string{"p1", "p2"})
	combined := batchArtifactPath(rc, protein.StepFoldseekConvertAlis, protein.KindFoldseekHitsTabular)
	if err := atomicfile.EnsureParent(combined); err != nil {
		t.Fatalf("prepare combined hits dir: %v", err)
	}
	body := "p1\tt1\t0.5\t10\t0\t0\t1\t10\t1\t10\t1e-5\t90\n" +
		"p2\tt2\t0.6\t12\t0\t0\t1\t12\t1\t12\t1e-6\t95\n" +
		"p1\tt3\t0.7\t20\t0\t0\t1\t20\t1\t20\t1e-9\t99\n"
	if err := os.WriteFile(combined, []byte(body), 0o644); err != nil {
		t.Fatalf("write combined hits: %v", err)
	}

	if err := (FoldseekSplit{}).Run(context.Background(), rc, "p1"); err != nil {
		t.Fatalf("FoldseekSplit.Run: %v", err)
	}

	var split []adapter.Hit
	if err := readArtifact(rc, "p1", protein.StepFoldseekSplit, protein.KindFoldseekHitsSplit, &split); err != nil {
		t.Fatalf("read split-hits artifact: %v", err)
	}
	if len(split) != 2 {
		t.Fatalf("got %d hits, want 2", len(split))
	}
	for _, h := range split {
		if h.QueryID != "p1" {
			t.Fatalf("got hit for query %q, want only p1", h.QueryID)
		}
	}
}

func TestFoldseekSplitFailsWhenCombinedHitsMissing(t *testing.T) {
	rc := newTestRuntime(t, []string{"p1"})
	if err := (FoldseekSplit{}).Run(context.Background(), rc, "p1"); err == nil {
		t.Fatal("expected an error when the combined structure-search hits file is missing")
	}
}
