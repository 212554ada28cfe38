// Package state is the durable record of batch and per-protein progress. It
// maintains two views of the same facts — one file per batch, one file per
// protein — so a crash mid-batch leaves every completed protein's progress
// independently recoverable.
package state

import (
	"time"

	"github.com/rschaeff/dpamengine/pkg/protein"
)

// StepStatus is the outcome recorded for one (protein, step) pair.
type StepStatus string

const (
	StatusPending StepStatus = "pending"
	StatusRunning StepStatus = "running"
	StatusDone    StepStatus = "done"
	StatusFailed  StepStatus = "failed"
	// StatusSkipped marks a step never attempted because an earlier critical
	// step failed for this protein its critical-failure-set rule.
	StatusSkipped StepStatus = "skipped"
)

// StepRecord is the durable outcome of one step attempt for one protein.
type StepRecord struct {
	Status    StepStatus `json:"status"`
	StartedAt time.Time  `json:"started_at,omitempty"`
	EndedAt   time.Time  `json:"ended_at,omitempty"`
	Error     string     `json:"error,omitempty"`

	// Metadata carries adapter-specific fields (tool version, scratch tag,
	// timing breakdown) that this package never needs to understand. It is
	// carried across rewrites as a generic JSON map rather than modeled as a
	// Go struct.
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// Done reports whether this step reached a terminal, non-retryable state.
func (r StepRecord) Done() bool {
	switch r.Status {
	case StatusDone, StatusSkipped:
		return true
	default:
		return false
	}
}

// Failed reports whether this step's terminal state was a failure.
func (r StepRecord) Failed() bool {
	return r.Status == StatusFailed
}

// ProteinRecord is the durable progress record for a single protein across
// every step attempted against it so far.
type ProteinRecord struct {
	ProteinID string                          `json:"protein_id"`
	Steps     map[protein.StepID]*StepRecord  `json:"steps"`

	// CriticalFailureStep is set the first time a critical step fails for
	// this protein; once set, PendingProteins leaves the protein out of
	// every later step, so those steps are never attempted. Their records
	// are not rewritten to StatusSkipped.
	CriticalFailureStep *protein.StepID `json:"critical_failure_step,omitempty"`

	// Extra preserves any unknown top-level fields found when a record was
	// loaded from a newer or externally-modified file, so that a rewrite by
	// this engine never silently drops them.
	Extra map[string]interface{} `json:"-"`
}

// NewProteinRecord creates an empty record for a protein with no attempted
// steps.
func NewProteinRecord(proteinID string) *ProteinRecord {
	return &ProteinRecord{
		ProteinID: proteinID,
		Steps:     make(map[protein.StepID]*StepRecord),
	}
}

// StepRecordFor returns the record for step, creating a pending one if it
// does not exist yet.
func (p *ProteinRecord) StepRecordFor(step protein.StepID) *StepRecord {
	canonical := protein.CanonicalStep(step)
	rec, ok := p.Steps[canonical]
	if !ok {
		rec = &StepRecord{Status: StatusPending}
		p.Steps[canonical] = rec
	}
	return rec
}

// MarkCriticalFailure records step as the protein's critical failure point,
// if one is not already recorded. Later calls with a different step are a
// no-op: the earliest critical failure wins.
func (p *ProteinRecord) MarkCriticalFailure(step protein.StepID) {
	if p.CriticalFailureStep != nil {
		return
	}
	canonical := protein.CanonicalStep(step)
	p.CriticalFailureStep = &canonical
}

// IsPastCriticalFailure reports whether step should be skipped because an
// earlier critical step already failed for this protein.
func (p *ProteinRecord) IsPastCriticalFailure(step protein.StepID) bool {
	if p.CriticalFailureStep == nil {
		return false
	}
	return protein.CanonicalStep(step) > *p.CriticalFailureStep
}

// BatchRecord is the durable progress record for a whole batch run: which
// proteins are enrolled, a pointer to the step the batch runner had reached
// when it last made progress, and the batch-wide view of every (step,
// protein) outcome. Completed carries the same information the union of all
// per-protein records carries; the two views are kept in lockstep so either
// one alone reconstructs the other.
type BatchRecord struct {
	BatchID       string                              `json:"batch_id"`
	ProteinIDs    []string                            `json:"protein_ids"`
	LastStartedAt protein.StepID                       `json:"last_started_step,omitempty"`
	Completed     map[protein.StepID]map[string]StepStatus `json:"completed,omitempty"`
	CreatedAt     time.Time                            `json:"created_at"`
	UpdatedAt     time.Time                            `json:"updated_at"`

	Extra map[string]interface{} `json:"-"`
}

// MarkStepStatus records id's outcome for step in the batch-wide view,
// creating the per-step map on first use.
func (b *BatchRecord) MarkStepStatus(step protein.StepID, id string, status StepStatus) {
	canonical := protein.CanonicalStep(step)
	if b.Completed == nil {
		b.Completed = make(map[protein.StepID]map[string]StepStatus)
	}
	byProtein, ok := b.Completed[canonical]
	if !ok {
		byProtein = make(map[string]StepStatus)
		b.Completed[canonical] = byProtein
	}
	byProtein[id] = status
}
