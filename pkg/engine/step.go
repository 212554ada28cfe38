// Package engine is the batch runner: the fixed, step-first, barrier
// synchronized scheduler loop that drives every protein through the 24-step
// pipeline. Uses a semaphore-and-waitgroup concurrency idiom built around a
// per-step barrier instead of a dependency DAG, since every step here runs
// the whole pending set before the next step starts.
package engine

import (
	"context"

	"github.com/rschaeff/dpamengine/pkg/protein"
	"github.com/rschaeff/dpamengine/pkg/runtime"
)

// Step is the minimal contract every step implementation satisfies. Concrete
// step bodies implement exactly one of PerProteinStep, BatchedBulkStep,
// SharedResourceStep, or PooledFanoutStep below; Step itself only carries the
// identity the runner uses to look a body up by its registry Descriptor.
type Step interface {
	StepID() protein.StepID
}

// PerProteinStep runs independently for one protein at a time. The runner
// calls Run once per pending protein, in parallel across a worker pool sized
// by Runner.Workers (workerpool.Default() when zero), isolating one protein's
// failure from its siblings.
type PerProteinStep interface {
	Step
	Run(ctx context.Context, rc *runtime.Context, proteinID string) error
}

// BatchedBulkStep runs once for the whole pending set rather than once per
// protein (the foldseek createdb/search/convertalis trio):
// a single external-tool invocation that is strictly cheaper than running it
// once per protein. Failure here is failure for every protein in the set.
type BatchedBulkStep interface {
	Step
	RunBatch(ctx context.Context, rc *runtime.Context, proteinIDs []string) error
}

// SharedResourceStep acquires one expensive handle (a loaded inference
// model) for the whole pending set, then runs each protein against it,
// releasing the handle once every protein has been attempted.
type SharedResourceStep interface {
	Step
	Acquire(ctx context.Context, rc *runtime.Context) (Resource, error)
}

// Resource is a shared handle acquired once per batch for a
// SharedResourceStep and used across every pending protein before release.
type Resource interface {
	// RunOne processes a single protein against the acquired resource.
	RunOne(ctx context.Context, rc *runtime.Context, proteinID string) error
	// Release frees the resource. Called exactly once, after every pending
	// protein has been attempted, regardless of per-protein outcomes.
	Release() error
}

// FanoutUnit is one independent sub-unit of a PooledFanoutStep's per-protein
// work (one candidate template to align against).
type FanoutUnit struct {
	ProteinID string
	UnitID    string
}

// PooledFanoutStep decomposes each protein's work into independent sub-units
// dispatched across a pool sized above CPU count for I/O-bound fan-out (the
// pairwise-alignment step against several candidate templates per protein).
type PooledFanoutStep interface {
	Step
	// Units returns the sub-units of work for proteinID; an empty slice
	// dispatches no units, and Finalize still runs for the protein to decide
	// its outcome.
	Units(ctx context.Context, rc *runtime.Context, proteinID string) ([]FanoutUnit, error)
	// RunUnit executes one sub-unit.
	RunUnit(ctx context.Context, rc *runtime.Context, unit FanoutUnit) error
	// Finalize runs once per protein after every one of its units has been
	// attempted, rolling the per-unit results up into the step's own
	// declared artifact (e.g. collecting raw alignments into one file).
	Finalize(ctx context.Context, rc *runtime.Context, proteinID string, unitErrs map[string]error) error
}

// AvailabilityProber is optionally implemented by any Step whose adapter can
// report, up front and without doing real work, whether its external tool is
// discoverable at all. The runner checks this once per step before
// dispatching any protein: a missing tool fails the step
// fatally for the batch rather than once per protein.
type AvailabilityProber interface {
	CheckAvailability() error
}

// ScratchConsumer is optionally implemented by any Step that needs the local
// scratch tree for the duration of the step (principally pairwise-align).
// The runner acquires scratch before dispatch and releases it after, per
// its scoped-acquisition-with-guaranteed-release contract.
type ScratchConsumer interface {
	NeedsScratch() bool
}
