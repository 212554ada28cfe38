package state

import (
	"bytes"
	"os"
	"testing"

	"github.com/tidwall/sjson"

	"github.com/rschaeff/dpamengine/pkg/pathresolver"
	"github.com/rschaeff/dpamengine/pkg/protein"
)

func newTestStore(t *testing.T, ids []string) (*Store, *pathresolver.Resolver) {
	t.Helper()
	root := t.TempDir()
	resolver := pathresolver.New(root, pathresolver.Flat)
	store, err := Open(resolver, "test-batch", ids)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return store, resolver
}

func TestRecordStepLifecycle(t *testing.T) {
	store, _ := newTestStore(t, []string{"P1"})

	if err := store.RecordStepStart("P1", protein.StepPrepare); err != nil {
		t.Fatalf("RecordStepStart: %v", err)
	}
	if err := store.RecordStepDone("P1", protein.StepPrepare, map[string]interface{}{"took_ms": 12}); err != nil {
		t.Fatalf("RecordStepDone: %v", err)
	}

	rec, ok := store.ProteinRecord("P1")
	if !ok {
		t.Fatal("expected protein record to exist")
	}
	sr := rec.Steps[protein.StepPrepare]
	if sr.Status != StatusDone {
		t.Fatalf("got status %v want Done", sr.Status)
	}
	if sr.Metadata["took_ms"] != float64(12) && sr.Metadata["took_ms"] != 12 {
		t.Fatalf("metadata not preserved: %+v", sr.Metadata)
	}
}

func TestCriticalFailureSkipsLaterSteps(t *testing.T) {
	store, _ := newTestStore(t, []string{"P1"})

	if err := store.RecordStepFailed("P1", protein.StepHHSearchSearch, nil); err != nil {
		t.Fatalf("RecordStepFailed: %v", err)
	}

	pending := store.PendingProteins(protein.StepHHSearchParse)
	if len(pending) != 0 {
		t.Fatalf("expected no pending proteins past a critical failure, got %v", pending)
	}

	rec, _ := store.ProteinRecord("P1")
	if rec.CriticalFailureStep == nil || *rec.CriticalFailureStep != protein.StepHHSearchSearch {
		t.Fatalf("expected critical failure step recorded, got %+v", rec.CriticalFailureStep)
	}
}

func TestPendingProteinsBeforeCriticalStepStillPending(t *testing.T) {
	store, _ := newTestStore(t, []string{"P1", "P2"})
	_ = store.RecordStepFailed("P1", protein.StepHHSearchSearch, nil)

	pending := store.PendingProteins(protein.StepPrepare)
	if len(pending) != 2 {
		t.Fatalf("both proteins should still be pending for a step before the critical one, got %v", pending)
	}
}

func TestStoreReopenReloadsState(t *testing.T) {
	store, resolver := newTestStore(t, []string{"P1"})
	if err := store.RecordStepDone("P1", protein.StepPrepare, nil); err != nil {
		t.Fatalf("RecordStepDone: %v", err)
	}

	reopened, err := Open(resolver, "test-batch", []string{"P1"})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	rec, ok := reopened.ProteinRecord("P1")
	if !ok || rec.Steps[protein.StepPrepare].Status != StatusDone {
		t.Fatal("expected reopened store to reflect prior progress")
	}
}

func TestRecordStepDoneUpdatesBatchCompletedView(t *testing.T) {
	store, _ := newTestStore(t, []string{"P1", "P2"})
	if err := store.RecordStepDone("P1", protein.StepPrepare, nil); err != nil {
		t.Fatalf("RecordStepDone: %v", err)
	}
	if err := store.RecordStepFailed("P2", protein.StepPrepare, nil); err != nil {
		t.Fatalf("RecordStepFailed: %v", err)
	}

	byProtein := store.batch.Completed[protein.StepPrepare]
	if byProtein["P1"] != StatusDone {
		t.Fatalf("got %v, want StatusDone for P1", byProtein["P1"])
	}
	if byProtein["P2"] != StatusFailed {
		t.Fatalf("got %v, want StatusFailed for P2", byProtein["P2"])
	}
}

func TestReconcileAmendsBatchViewFromPerProteinFiles(t *testing.T) {
	store, resolver := newTestStore(t, []string{"P1"})
	if err := store.RecordStepDone("P1", protein.StepPrepare, nil); err != nil {
		t.Fatalf("RecordStepDone: %v", err)
	}

	// Simulate a crash between the per-protein write and the batch write: the
	// batch file on disk still says pending, but the per-protein file already
	// says done.
	store.batch.Completed = nil
	if err := store.saveBatchLocked(); err != nil {
		t.Fatalf("save stale batch record: %v", err)
	}

	reopened, err := Open(resolver, "test-batch", []string{"P1"})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	byProtein := reopened.batch.Completed[protein.StepPrepare]
	if byProtein["P1"] != StatusDone {
		t.Fatalf("expected reconcile to amend the batch view from the per-protein file, got %v", byProtein["P1"])
	}
}

func TestUnknownFieldsPreservedAcrossRewrite(t *testing.T) {
	store, resolver := newTestStore(t, []string{"P1"})
	if err := store.RecordStepDone("P1", protein.StepPrepare, nil); err != nil {
		t.Fatalf("RecordStepDone: %v", err)
	}

	path := resolver.ProteinStateFilePath("P1")
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read state file: %v", err)
	}
	patched, err := sjson.SetBytes(raw, "external_tool_note", "added out of band")
	if err != nil {
		t.Fatalf("patch: %v", err)
	}
	if err := os.WriteFile(path, patched, 0o644); err != nil {
		t.Fatalf("write patched: %v", err)
	}

	reopened, err := Open(resolver, "test-batch", []string{"P1"})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	rec, _ := reopened.ProteinRecord("P1")
	if rec.Extra["external_tool_note"] != "added out of band" {
		t.Fatalf("expected unknown field preserved, got %+v", rec.Extra)
	}

	if err := reopened.RecordStepStart("P1", protein.StepHHSearchMSA); err != nil {
		t.Fatalf("RecordStepStart: %v", err)
	}
	raw2, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read rewritten state file: %v", err)
	}
	if !bytes.Contains(raw2, []byte("added out of band")) {
		t.Fatalf("expected unknown field to survive a rewrite, got %s", raw2)
	}
}
