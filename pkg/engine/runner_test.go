package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/rschaeff/dpamengine/pkg/dpamerrors"
	"github.com/rschaeff/dpamengine/pkg/logger"
	"github.com/rschaeff/dpamengine/pkg/pathresolver"
	"github.com/rschaeff/dpamengine/pkg/protein"
	"github.com/rschaeff/dpamengine/pkg/runtime"
	"github.com/rschaeff/dpamengine/pkg/scratch"
	"github.com/rschaeff/dpamengine/pkg/state"
	"github.com/rschaeff/dpamengine/pkg/stepreg"
)

func quietLogger(t *testing.T) *logger.Logger {
	t.Helper()
	opts := logger.DefaultOptions()
	opts.ConsoleOutput = false
	opts.FileOutput = false
	log, err := logger.NewLogger(opts)
	if err != nil {
		t.Fatalf("construct test logger: %v", err)
	}
	return log
}

func newTestContext(t *testing.T, proteinIDs []string) *runtime.Context {
	t.Helper()
	root := t.TempDir()
	resolver := pathresolver.New(root, pathresolver.Sharded)
	store, err := state.Open(resolver, "testbatch", proteinIDs)
	if err != nil {
		t.Fatalf("open state store: %v", err)
	}
	scratchMgr := scratch.New(scratch.Config{}, quietLogger(t))
	return runtime.New(context.Background(), "testbatch", resolver, store, scratchMgr, quietLogger(t), nil)
}

// fakePerProtein records which proteins it was invoked for and returns a
// canned error, if any, for a matching protein ID.
type fakePerProtein struct {
	id      protein.StepID
	calls   []string
	failFor map[string]error
}

func (f *fakePerProtein) StepID() protein.StepID { return f.id }

func (f *fakePerProtein) Run(ctx context.Context, rc *runtime.Context, proteinID string) error {
	f.calls = append(f.calls, proteinID)
	if f.failFor != nil {
		if err, ok := f.failFor[proteinID]; ok {
			return err
		}
	}
	return nil
}

func descriptorFor(id protein.StepID) stepreg.Descriptor {
	d, err := stepreg.Lookup(id)
	if err != nil {
		panic(err)
	}
	d.Outputs = nil // avoid requiring real artifacts on disk for this test
	return d
}

func TestRunStepPerProteinMarksDoneOnSuccess(t *testing.T) {
	rc := newTestContext(t, []string{"p1", "p2"})
	body := &fakePerProtein{id: protein.StepPrepare}

	reg := NewRegistry()
	reg.Register(body)
	runner := NewRunner(reg, rc, 0, 0)

	desc := descriptorFor(protein.StepPrepare)
	if err := runner.runStep(context.Background(), rc, desc); err != nil {
		t.Fatalf("runStep: %v", err)
	}

	if len(body.calls) != 2 {
		t.Fatalf("expected 2 calls, got %d: %v", len(body.calls), body.calls)
	}

	for _, id := range []string{"p1", "p2"} {
		rec, ok := rc.Store.ProteinRecord(id)
		if !ok {
			t.Fatalf("no record for %s", id)
		}
		sr, ok := rec.Steps[protein.StepPrepare]
		if !ok || sr.Status != state.StatusDone {
			t.Fatalf("expected %s done for step, got %+v", id, sr)
		}
	}

	// Re-running should find nothing pending.
	if pending := rc.Store.PendingProteins(protein.StepPrepare); len(pending) != 0 {
		t.Fatalf("expected no pending proteins on second pass, got %v", pending)
	}
}

func TestRunStepPerProteinRecordsFailureWithoutAbortingBatch(t *testing.T) {
	rc := newTestContext(t, []string{"p1", "p2"})
	body := &fakePerProtein{
		id:      protein.StepPrepare,
		failFor: map[string]error{"p1": dpamerrors.New(dpamerrors.KindToolFailed, "boom")},
	}

	reg := NewRegistry()
	reg.Register(body)
	runner := NewRunner(reg, rc, 0, 0)

	desc := descriptorFor(protein.StepPrepare)
	if err := runner.runStep(context.Background(), rc, desc); err != nil {
		t.Fatalf("runStep returned batch-fatal error for a per-protein tool failure: %v", err)
	}

	rec, _ := rc.Store.ProteinRecord("p1")
	sr := rec.Steps[protein.StepPrepare]
	if sr.Status != state.StatusFailed {
		t.Fatalf("expected p1 failed, got %v", sr.Status)
	}

	rec2, _ := rc.Store.ProteinRecord("p2")
	sr2 := rec2.Steps[protein.StepPrepare]
	if sr2.Status != state.StatusDone {
		t.Fatalf("expected p2 done despite p1's failure, got %v", sr2.Status)
	}
}

func TestRunStepSkipsProteinsPastCriticalFailure(t *testing.T) {
	rc := newTestContext(t, []string{"p1"})

	// StepHHSearchSearch (4) is critical; fail it directly via the store,
	// then confirm a later step's pending set excludes p1.
	if err := rc.Store.RecordStepFailed("p1", protein.StepHHSearchSearch, errors.New("search failed")); err != nil {
		t.Fatalf("record critical failure: %v", err)
	}

	body := &fakePerProtein{id: protein.StepFeatureAssemble}
	reg := NewRegistry()
	reg.Register(body)
	runner := NewRunner(reg, rc, 0, 0)

	desc := descriptorFor(protein.StepFeatureAssemble)
	if err := runner.runStep(context.Background(), rc, desc); err != nil {
		t.Fatalf("runStep: %v", err)
	}
	if len(body.calls) != 0 {
		t.Fatalf("expected no calls for a protein past its critical failure point, got %v", body.calls)
	}
}

func TestRunStepNoOpWhenNothingPending(t *testing.T) {
	rc := newTestContext(t, nil)
	body := &fakePerProtein{id: protein.StepPrepare}
	reg := NewRegistry()
	reg.Register(body)
	runner := NewRunner(reg, rc, 0, 0)

	desc := descriptorFor(protein.StepPrepare)
	if err := runner.runStep(context.Background(), rc, desc); err != nil {
		t.Fatalf("runStep: %v", err)
	}
	if len(body.calls) != 0 {
		t.Fatalf("expected no calls with no enrolled proteins, got %v", body.calls)
	}
}

func TestRunStepFailsFatallyWhenToolUnavailable(t *testing.T) {
	rc := newTestContext(t, []string{"p1"})
	body := &availabilityProbingStep{id: protein.StepPrepare, err: errors.New("not installed")}
	reg := NewRegistry()
	reg.Register(body)
	runner := NewRunner(reg, rc, 0, 0)

	desc := descriptorFor(protein.StepPrepare)
	err := runner.runStep(context.Background(), rc, desc)
	if err == nil {
		t.Fatal("expected a batch-fatal error when the step's tool is unavailable")
	}
	kind, ok := dpamerrors.KindOf(err)
	if !ok || kind != dpamerrors.KindToolMissing {
		t.Fatalf("expected KindToolMissing, got %v", err)
	}
}

type availabilityProbingStep struct {
	id  protein.StepID
	err error
}

func (a *availabilityProbingStep) StepID() protein.StepID  { return a.id }
func (a *availabilityProbingStep) CheckAvailability() error { return a.err }
func (a *availabilityProbingStep) Run(ctx context.Context, rc *runtime.Context, proteinID string) error {
	return nil
}

func TestRunEmptyProteinListIsNoOp(t *testing.T) {
	rc := newTestContext(t, nil)
	runner := NewRunner(NewRegistry(), rc, 0, 0)
	if err := runner.Run(context.Background(), nil); err != nil {
		t.Fatalf("Run with no proteins: %v", err)
	}
}
