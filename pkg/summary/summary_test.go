package summary

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rschaeff/dpamengine/pkg/pathresolver"
	"github.com/rschaeff/dpamengine/pkg/protein"
	"github.com/rschaeff/dpamengine/pkg/state"
)

func newTestStore(t *testing.T, ids []string) *state.Store {
	t.Helper()
	root := t.TempDir()
	resolver := pathresolver.New(root, pathresolver.Flat)
	store, err := state.Open(resolver, "test-batch", ids)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return store
}

func TestBuildMarksFirstFailure(t *testing.T) {
	store := newTestStore(t, []string{"P1"})
	if err := store.RecordStepDone("P1", protein.StepPrepare, nil); err != nil {
		t.Fatalf("RecordStepDone: %v", err)
	}
	if err := store.RecordStepFailed("P1", protein.StepHHSearchSearch, errNoTool); err != nil {
		t.Fatalf("RecordStepFailed: %v", err)
	}

	rows := Build(store)
	if len(rows) != 1 {
		t.Fatalf("got %d rows want 1", len(rows))
	}
	row := rows[0]
	if row.FirstFailure != protein.StepHHSearchSearch {
		t.Fatalf("got first failure %d want %d", row.FirstFailure, protein.StepHHSearchSearch)
	}
	if row.Statuses[protein.StepPrepare] != state.StatusDone {
		t.Fatalf("expected step 1 done, got %v", row.Statuses[protein.StepPrepare])
	}
}

func TestBuildUntouchedProteinHasNoFailure(t *testing.T) {
	store := newTestStore(t, []string{"P1"})
	rows := Build(store)
	if rows[0].FirstFailure != 0 {
		t.Fatalf("expected no failure for an untouched protein, got %d", rows[0].FirstFailure)
	}
}

func TestWriteRendersEveryProtein(t *testing.T) {
	store := newTestStore(t, []string{"P1", "P2"})
	var buf bytes.Buffer
	Write(&buf, Build(store))

	out := buf.String()
	if !strings.Contains(out, "P1") || !strings.Contains(out, "P2") {
		t.Fatalf("expected both protein ids in output, got %s", out)
	}
}

func TestWriteEmptyRows(t *testing.T) {
	var buf bytes.Buffer
	Write(&buf, nil)
	if !strings.Contains(buf.String(), "no proteins enrolled") {
		t.Fatalf("expected empty-set message, got %s", buf.String())
	}
}

var errNoTool = &dummyErr{"tool not found"}

type dummyErr struct{ msg string }

func (e *dummyErr) Error() string { return e.msg }
