// Package runtime bundles everything a step body needs to do its work into
// one narrow handle: the path resolver, the durable state store, the scratch
// manager, a batch-scoped cache for shared resources (a loaded model, a
// combined query database handle), and a logger already tagged with the
// batch id. Modeled on a runtime-context-plus-cache pairing, rescoped from
// cluster/host to the batch/step scoping this engine actually has.
package runtime

import (
	"context"

	"github.com/rschaeff/dpamengine/pkg/cache"
	"github.com/rschaeff/dpamengine/pkg/logger"
	"github.com/rschaeff/dpamengine/pkg/pathresolver"
	"github.com/rschaeff/dpamengine/pkg/protein"
	"github.com/rschaeff/dpamengine/pkg/scratch"
	"github.com/rschaeff/dpamengine/pkg/state"
)

// Context is the batch-scoped handle passed to every step body. It is built
// once per batch and reused for every step; the scratch *Batch is attached
// only for the duration of the step that requested it (see WithScratch), and
// a shared-resource handle is held by the step's engine.Resource, never
// stored here.
type Context struct {
	GoContext  context.Context
	BatchID    string
	Resolver   *pathresolver.Resolver
	Store      *state.Store
	ScratchMgr *scratch.Manager
	Cache      cache.BatchCache
	Logger     *logger.Logger

	// Proteins holds every enrolled protein's immutable input paths, keyed
	// by ID, so a step body resolves its raw structure/confidence inputs
	// through the batch Context rather than reconstructing a path from a
	// guessed file extension.
	Proteins map[string]protein.Protein

	// Scratch is the acquired scratch batch, attached only while a
	// ScratchConsumer step is running; nil otherwise.
	Scratch *scratch.Batch
}

// New constructs a batch Context. Cache is initialized empty; steps populate
// it with shared resources (a loaded neural-net handle, a combined query
// database path) keyed by a name they agree on with the value's producer.
func New(ctx context.Context, batchID string, resolver *pathresolver.Resolver, store *state.Store, scratchMgr *scratch.Manager, log *logger.Logger, proteins map[string]protein.Protein) *Context {
	return &Context{
		GoContext:  ctx,
		BatchID:    batchID,
		Resolver:   resolver,
		Store:      store,
		ScratchMgr: scratchMgr,
		Cache:      cache.NewBatchCache(),
		Logger:     log.With("batch_id", batchID),
		Proteins:   proteins,
	}
}

// Protein looks up the immutable input record for id.
func (c *Context) Protein(id string) (protein.Protein, bool) {
	p, ok := c.Proteins[id]
	return p, ok
}

// WithGoContext returns a shallow copy of c with its Go context replaced,
// e.g. to attach a per-step cancellation scope without mutating the shared
// batch Context other steps still reference.
func (c *Context) WithGoContext(ctx context.Context) *Context {
	cp := *c
	cp.GoContext = ctx
	return &cp
}

// WithScratch returns a shallow copy of c with Scratch attached, used for the
// duration of one ScratchConsumer step's dispatch; the batch Context other
// steps hold onto is never mutated.
func (c *Context) WithScratch(b *scratch.Batch) *Context {
	cp := *c
	cp.Scratch = b
	return &cp
}
