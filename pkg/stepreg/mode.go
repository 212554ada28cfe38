// Package stepreg is the fixed registry of the 24 scheduled steps: their
// names, descriptions, and execution mode. It is pure
// metadata — the engine package does the actual dispatch.
package stepreg

// Mode classifies how the engine invokes a step's adapter across the
// proteins pending for it.
type Mode int

const (
	// PerProtein invokes the adapter once per pending protein, independently,
	// inside the worker pool.
	PerProtein Mode = iota

	// BatchedBulk invokes the adapter once for the whole pending set (e.g. a
	// single multi-query search), bypassing the per-protein worker pool.
	BatchedBulk

	// SharedResource invokes the adapter once per pending protein but all
	// invocations share one long-lived resource (e.g. a loaded model) that
	// must be acquired once for the step and released after the last use.
	SharedResource

	// PooledFanout invokes the adapter many times per pending protein (one
	// per candidate template pair) and fans those out across the worker
	// pool independently of the per-protein unit of scheduling.
	PooledFanout
)

func (m Mode) String() string {
	switch m {
	case PerProtein:
		return "per-protein"
	case BatchedBulk:
		return "batched-bulk"
	case SharedResource:
		return "shared-resource"
	case PooledFanout:
		return "pooled-fanout"
	default:
		return "unknown-mode"
	}
}
