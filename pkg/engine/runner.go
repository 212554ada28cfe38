package engine

import (
	"context"
	"fmt"

	"github.com/rschaeff/dpamengine/pkg/atomicfile"
	"github.com/rschaeff/dpamengine/pkg/dpamerrors"
	"github.com/rschaeff/dpamengine/pkg/pathresolver"
	"github.com/rschaeff/dpamengine/pkg/runtime"
	"github.com/rschaeff/dpamengine/pkg/scratch"
	"github.com/rschaeff/dpamengine/pkg/stepreg"
	"github.com/rschaeff/dpamengine/pkg/workerpool"
)

// Runner is the top-level batch orchestrator: it walks the
// fixed 24-step order, computing the pending set for each step from the
// state store, probing adapter availability, acquiring scratch and any
// shared resource scoped to the step, dispatching by execution mode, and
// releasing resources before advancing. There is no cross-step parallelism —
// every worker for step k finishes before any worker for step k+1 starts.
type Runner struct {
	Registry *Registry
	Context  *runtime.Context

	// Workers sizes the pool used for PerProteinStep and SharedResourceStep
	// dispatch. Zero means workerpool.Default() (CPU count).
	Workers int
	// FanoutMultiplier scales the pool used for PooledFanoutStep dispatch
	// above CPU count, clamped to [1,4] by workerpool.SizedForIO.
	FanoutMultiplier int
}

// NewRunner constructs a Runner.
func NewRunner(reg *Registry, rc *runtime.Context, workers, fanoutMultiplier int) *Runner {
	return &Runner{Registry: reg, Context: rc, Workers: workers, FanoutMultiplier: fanoutMultiplier}
}

func (r *Runner) pool() *workerpool.Pool {
	return workerpool.New(r.Workers)
}

func (r *Runner) fanoutPool() *workerpool.Pool {
	return workerpool.New(workerpool.SizedForIO(r.FanoutMultiplier))
}

// Run drives proteinIDs through every step in the fixed order, returning a
// non-nil error only for a batch-fatal condition: tool missing for a step
// with pending work, a state-io-error, scratch exhaustion with no fallback,
// or an invariant violation. Per-protein failures are recorded in the state
// store and never surface here; the caller consults the store (or
// pkg/summary) afterward for those.
func (r *Runner) Run(ctx context.Context, proteinIDs []string) error {
	if len(proteinIDs) == 0 {
		return nil
	}
	rc := r.Context.WithGoContext(ctx)
	for _, desc := range stepreg.Ordered() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.runStep(ctx, rc, desc); err != nil {
			return err
		}
	}
	return nil
}

// runStep dispatches one step across its pending set: compute pending,
// probe availability, acquire scratch, dispatch by mode, release scratch,
// record batch progress.
func (r *Runner) runStep(ctx context.Context, rc *runtime.Context, desc stepreg.Descriptor) error {
	store := rc.Store
	pending := store.PendingProteins(desc.ID)
	if len(pending) == 0 {
		return nil
	}

	body, err := r.Registry.Lookup(desc.ID)
	if err != nil {
		return dpamerrors.Wrapf(dpamerrors.KindInvariantViolation, err, "step %d (%s) has no registered body", desc.ID, desc.Name)
	}

	if prober, ok := body.(AvailabilityProber); ok {
		if availErr := prober.CheckAvailability(); availErr != nil {
			return dpamerrors.Wrapf(dpamerrors.KindToolMissing, availErr, "step %d (%s): %d proteins pending but tool is unavailable", desc.ID, desc.Name, len(pending))
		}
	}

	stepLogger := rc.Logger.With("step_name", desc.Name)
	stepLogger.Infof("step %d (%s): dispatching %d pending protein(s), mode=%s", desc.ID, desc.Name, len(pending), desc.Mode)

	needsScratch := false
	if consumer, ok := body.(ScratchConsumer); ok {
		needsScratch = consumer.NeedsScratch()
	}

	run := func(stepRC *runtime.Context) error {
		switch t := body.(type) {
		case PerProteinStep:
			return r.runPerProtein(ctx, stepRC, desc, t, pending)
		case BatchedBulkStep:
			return r.runBatchedBulk(ctx, stepRC, desc, t, pending)
		case SharedResourceStep:
			return r.runSharedResource(ctx, stepRC, desc, t, pending)
		case PooledFanoutStep:
			return r.runPooledFanout(ctx, stepRC, desc, t, pending)
		default:
			return dpamerrors.New(dpamerrors.KindInvariantViolation, fmt.Sprintf("step %d (%s) body implements no known execution mode", desc.ID, desc.Name))
		}
	}

	var stepErr error
	if needsScratch {
		stepErr = rc.ScratchMgr.AcquireScoped(rc.BatchID, rc.Resolver.Root(), func(b *scratch.Batch) error {
			return run(rc.WithScratch(b))
		})
	} else {
		stepErr = run(rc)
	}
	if stepErr != nil {
		return stepErr
	}

	return store.MarkBatchProgress(desc.ID)
}

// recordOutcome applies err (the step body's per-protein result) to the
// store: RecordStepDone after verifying declared outputs exist and are
// non-empty, or RecordStepFailed otherwise. It returns a non-nil error only
// when that itself is batch-fatal (a state-io-error from the store, or an
// invariant violation from a missing declared output).
func (r *Runner) recordOutcome(rc *runtime.Context, desc stepreg.Descriptor, proteinID string, runErr error) error {
	store := rc.Store
	if runErr != nil {
		return store.RecordStepFailed(proteinID, desc.ID, runErr)
	}
	if err := verifyPerProteinOutputs(rc.Resolver, desc, proteinID); err != nil {
		if recErr := store.RecordStepFailed(proteinID, desc.ID, err); recErr != nil {
			return recErr
		}
		if kind, ok := dpamerrors.KindOf(err); ok && kind.Fatal() {
			return err
		}
		return nil
	}
	return store.RecordStepDone(proteinID, desc.ID, nil)
}

// verifyPerProteinOutputs enforces its invariant that a step is
// never marked complete unless every declared output it produces for this
// protein exists on disk and is non-empty.
func verifyPerProteinOutputs(resolver *pathresolver.Resolver, desc stepreg.Descriptor, proteinID string) error {
	for _, kind := range desc.Outputs {
		path := resolver.ArtifactPath(proteinID, desc.ID, pathresolver.Kind(kind))
		if !atomicfile.NonEmpty(path) {
			return dpamerrors.New(dpamerrors.KindInvariantViolation, fmt.Sprintf("step %d (%s) declared output %q missing or empty for protein %s", desc.ID, desc.Name, kind, proteinID))
		}
	}
	return nil
}

// verifyBatchOutputs is verifyPerProteinOutputs's batched-bulk counterpart:
// the declared outputs of a BatchedBulkStep live at one batch-scoped path
// shared by every protein in the pending set, not one path per protein.
func verifyBatchOutputs(resolver *pathresolver.Resolver, desc stepreg.Descriptor) error {
	for _, kind := range desc.Outputs {
		path := resolver.BatchArtifactPath(desc.ID, pathresolver.Kind(kind))
		if !atomicfile.NonEmpty(path) {
			return dpamerrors.New(dpamerrors.KindInvariantViolation, fmt.Sprintf("step %d (%s) declared batch output %q missing or empty", desc.ID, desc.Name, kind))
		}
	}
	return nil
}

// runPerProtein dispatches one PerProteinStep across pending, one worker-pool
// unit per protein.
func (r *Runner) runPerProtein(ctx context.Context, rc *runtime.Context, desc stepreg.Descriptor, body PerProteinStep, pending []string) error {
	results := workerpool.Run(ctx, r.pool(), pending, func(ctx context.Context, id string) (struct{}, error) {
		if err := rc.Store.RecordStepStart(id, desc.ID); err != nil {
			return struct{}{}, err
		}
		runErr := body.Run(ctx, rc, id)
		return struct{}{}, r.recordOutcome(rc, desc, id, runErr)
	})
	return firstFatal(results)
}

// runBatchedBulk dispatches one BatchedBulkStep invocation for the whole
// pending set: a single call rather than one per protein. A
// failure is recorded against every pending protein rather than aborting the
// batch, unless recording itself hits a fatal state-io-error.
func (r *Runner) runBatchedBulk(ctx context.Context, rc *runtime.Context, desc stepreg.Descriptor, body BatchedBulkStep, pending []string) error {
	for _, id := range pending {
		if err := rc.Store.RecordStepStart(id, desc.ID); err != nil {
			return err
		}
	}

	runErr := body.RunBatch(ctx, rc, pending)
	if runErr == nil {
		runErr = verifyBatchOutputs(rc.Resolver, desc)
	}

	for _, id := range pending {
		if runErr != nil {
			if err := rc.Store.RecordStepFailed(id, desc.ID, runErr); err != nil {
				return err
			}
			continue
		}
		if err := rc.Store.RecordStepDone(id, desc.ID, nil); err != nil {
			return err
		}
	}
	if runErr != nil {
		if kind, ok := dpamerrors.KindOf(runErr); ok && kind.Fatal() {
			return runErr
		}
	}
	return nil
}

// runSharedResource acquires body's resource once for the whole pending set,
// dispatches every protein against it through the worker pool, and releases
// it once every protein has been attempted.
func (r *Runner) runSharedResource(ctx context.Context, rc *runtime.Context, desc stepreg.Descriptor, body SharedResourceStep, pending []string) error {
	resource, err := body.Acquire(ctx, rc)
	if err != nil {
		return dpamerrors.Wrapf(dpamerrors.KindToolFailed, err, "step %d (%s): acquire shared resource", desc.ID, desc.Name)
	}
	defer func() {
		if relErr := resource.Release(); relErr != nil {
			rc.Logger.With("step_name", desc.Name).Warnf("step %d (%s): release shared resource: %v", desc.ID, desc.Name, relErr)
		}
	}()

	results := workerpool.Run(ctx, r.pool(), pending, func(ctx context.Context, id string) (struct{}, error) {
		if err := rc.Store.RecordStepStart(id, desc.ID); err != nil {
			return struct{}{}, err
		}
		runErr := resource.RunOne(ctx, rc, id)
		return struct{}{}, r.recordOutcome(rc, desc, id, runErr)
	})
	return firstFatal(results)
}

// runPooledFanout decomposes every pending protein's work into independent
// sub-units, fans all of them out together across an I/O-sized pool, then
// rolls each protein's per-unit results up via Finalize.
func (r *Runner) runPooledFanout(ctx context.Context, rc *runtime.Context, desc stepreg.Descriptor, body PooledFanoutStep, pending []string) error {
	for _, id := range pending {
		if err := rc.Store.RecordStepStart(id, desc.ID); err != nil {
			return err
		}
	}

	var units []FanoutUnit
	perProteinUnits := make(map[string][]string, len(pending))
	for _, id := range pending {
		us, err := body.Units(ctx, rc, id)
		if err != nil {
			if recErr := rc.Store.RecordStepFailed(id, desc.ID, err); recErr != nil {
				return recErr
			}
			continue
		}
		if len(us) == 0 {
			perProteinUnits[id] = nil
		}
		for _, u := range us {
			units = append(units, u)
			perProteinUnits[id] = append(perProteinUnits[id], u.UnitID)
		}
	}

	unitResults := workerpool.Run(ctx, r.fanoutPool(), units, func(ctx context.Context, u FanoutUnit) (struct{}, error) {
		return struct{}{}, body.RunUnit(ctx, rc, u)
	})

	errsByProtein := make(map[string]map[string]error, len(perProteinUnits))
	for i, u := range units {
		if unitResults[i].Err == nil {
			continue
		}
		if errsByProtein[u.ProteinID] == nil {
			errsByProtein[u.ProteinID] = make(map[string]error)
		}
		errsByProtein[u.ProteinID][u.UnitID] = unitResults[i].Err
	}

	for id, unitIDs := range perProteinUnits {
		_ = unitIDs
		finalizeErr := body.Finalize(ctx, rc, id, errsByProtein[id])
		if err := r.recordOutcome(rc, desc, id, finalizeErr); err != nil {
			return err
		}
	}
	return nil
}

// firstFatal scans worker-pool results for the first error whose kind is
// batch-fatal (a state-io-error surfaced from the store's RecordStep* calls);
// non-fatal per-protein errors have already been recorded and are not
// returned.
func firstFatal(results []workerpool.Result[struct{}]) error {
	for _, res := range results {
		if res.Err == nil {
			continue
		}
		if kind, ok := dpamerrors.KindOf(res.Err); ok && !kind.Fatal() {
			continue
		}
		return res.Err
	}
	return nil
}
