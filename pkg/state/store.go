package state

import (
	"os"
	"sync"
	"time"

	"github.com/rschaeff/dpamengine/pkg/dpamerrors"
	"github.com/rschaeff/dpamengine/pkg/pathresolver"
	"github.com/rschaeff/dpamengine/pkg/protein"
)

// Store is the durable state backend for one batch: a batch record file plus
// one record file per protein, written with a temp-file-then-rename so a
// crash mid-write never corrupts the previous good copy. Grounded on the
// download-then-atomic-rename idiom used to land binaries on disk.
type Store struct {
	resolver *pathresolver.Resolver

	mu       sync.Mutex
	batch    *BatchRecord
	proteins map[string]*ProteinRecord
}

// Open loads or initializes the batch record and every enrolled protein's
// record for the batch rooted at resolver. Missing per-protein files are
// initialized empty rather than treated as an error, since a protein may be
// newly enrolled since the batch record was last written.
func Open(resolver *pathresolver.Resolver, batchID string, proteinIDs []string) (*Store, error) {
	s := &Store{
		resolver: resolver,
		proteins: make(map[string]*ProteinRecord, len(proteinIDs)),
	}

	batch, err := loadOrInit(resolver.BatchStateFilePath(), decodeBatchRecord, func() *BatchRecord {
		now := currentTime()
		return &BatchRecord{BatchID: batchID, ProteinIDs: proteinIDs, CreatedAt: now, UpdatedAt: now}
	})
	if err != nil {
		return nil, err
	}
	s.batch = batch

	for _, id := range proteinIDs {
		rec, err := loadOrInit(resolver.ProteinStateFilePath(id), decodeProteinRecord, func() *ProteinRecord {
			return NewProteinRecord(id)
		})
		if err != nil {
			return nil, err
		}
		s.proteins[id] = rec
	}

	s.reconcile()
	return s, nil
}

// reconcile cross-checks the batch record against the per-protein files
// actually loaded: it adds any protein file found that the batch record
// didn't list (e.g. the batch config was edited after a previous run), and
// amends the batch-wide Completed view so it agrees with every per-protein
// record. A per-protein file always wins a disagreement, since it is the
// file the per-protein-first driver (or a crash between the two writes of a
// single transition) may have left more current.
func (s *Store) reconcile() {
	known := make(map[string]bool, len(s.batch.ProteinIDs))
	for _, id := range s.batch.ProteinIDs {
		known[id] = true
	}
	for id := range s.proteins {
		if !known[id] {
			s.batch.ProteinIDs = append(s.batch.ProteinIDs, id)
		}
	}

	for id, rec := range s.proteins {
		for step, sr := range rec.Steps {
			if sr == nil {
				continue
			}
			s.batch.MarkStepStatus(step, id, sr.Status)
		}
	}
}

// ProteinRecord returns the in-memory record for id. The returned pointer is
// shared; callers must go through the Store's mutating methods to persist
// changes rather than mutating it directly from multiple goroutines.
func (s *Store) ProteinRecord(id string) (*ProteinRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.proteins[id]
	return rec, ok
}

// ProteinIDs returns every protein enrolled in the batch, in enrollment
// order, for callers (the end-of-batch summary) that need to walk the whole
// set rather than just the pending slice for one step.
func (s *Store) ProteinIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.batch.ProteinIDs))
	copy(out, s.batch.ProteinIDs)
	return out
}

// BatchID returns the batch's identifier as recorded in the durable batch
// record.
func (s *Store) BatchID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.batch.BatchID
}

// RecordStepStart marks step running for id and persists both the protein
// and batch records (the 4-step transition: update protein, update batch,
// write protein, write batch), so the two views never observably diverge.
func (s *Store) RecordStepStart(id string, step protein.StepID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.proteins[id]
	if !ok {
		return dpamerrors.New(dpamerrors.KindInvariantViolation, "record step start for unknown protein "+id)
	}
	sr := rec.StepRecordFor(step)
	sr.Status = StatusRunning
	sr.StartedAt = currentTime()
	sr.Error = ""
	return s.markAndSaveLocked(rec, step, StatusRunning)
}

// RecordStepDone marks step done for id with optional metadata and persists
// both the protein and batch records.
func (s *Store) RecordStepDone(id string, step protein.StepID, metadata map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.proteins[id]
	if !ok {
		return dpamerrors.New(dpamerrors.KindInvariantViolation, "record step done for unknown protein "+id)
	}
	sr := rec.StepRecordFor(step)
	sr.Status = StatusDone
	sr.EndedAt = currentTime()
	sr.Metadata = metadata
	return s.markAndSaveLocked(rec, step, StatusDone)
}

// RecordStepFailed marks step failed for id, records cause's message, and if
// step is critical marks the protein's critical-failure point so
// PendingProteins leaves it out of later steps rather than attempting them.
// Persists both the protein and batch records.
func (s *Store) RecordStepFailed(id string, step protein.StepID, cause error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.proteins[id]
	if !ok {
		return dpamerrors.New(dpamerrors.KindInvariantViolation, "record step failure for unknown protein "+id)
	}
	sr := rec.StepRecordFor(step)
	sr.Status = StatusFailed
	sr.EndedAt = currentTime()
	if cause != nil {
		sr.Error = cause.Error()
	}
	if protein.IsCritical(step) {
		rec.MarkCriticalFailure(step)
	}
	return s.markAndSaveLocked(rec, step, StatusFailed)
}

// RecordStepSkipped marks step skipped for id without attempting it.
// Persists both the protein and batch records.
func (s *Store) RecordStepSkipped(id string, step protein.StepID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.proteins[id]
	if !ok {
		return dpamerrors.New(dpamerrors.KindInvariantViolation, "record step skip for unknown protein "+id)
	}
	sr := rec.StepRecordFor(step)
	sr.Status = StatusSkipped
	return s.markAndSaveLocked(rec, step, StatusSkipped)
}

// markAndSaveLocked updates the batch-wide view for (step, id) and writes
// both the per-protein and batch record files, in that order; a crash
// between the two writes leaves the batch file stale, but the next Open's
// reconcile amends it from the per-protein file that did land.
func (s *Store) markAndSaveLocked(rec *ProteinRecord, step protein.StepID, status StepStatus) error {
	if err := s.saveProteinLocked(rec); err != nil {
		return err
	}
	s.batch.MarkStepStatus(step, rec.ProteinID, status)
	s.batch.UpdatedAt = currentTime()
	return s.saveBatchLocked()
}

// PendingProteins returns the IDs of proteins that should still be attempted
// for step: those whose record for step is not Done, and which have not
// passed a critical failure point earlier in the fixed step order.
func (s *Store) PendingProteins(step protein.StepID) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var pending []string
	for _, id := range s.batch.ProteinIDs {
		rec, ok := s.proteins[id]
		if !ok {
			pending = append(pending, id)
			continue
		}
		if rec.IsPastCriticalFailure(step) {
			continue
		}
		sr, ok := rec.Steps[protein.CanonicalStep(step)]
		if !ok || !sr.Done() {
			pending = append(pending, id)
		}
	}
	return pending
}

// MarkBatchProgress records the step the batch runner has most recently
// started, so a resumed run can report where it left off even before
// per-protein records are consulted.
func (s *Store) MarkBatchProgress(step protein.StepID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batch.LastStartedAt = step
	s.batch.UpdatedAt = currentTime()
	return s.saveBatchLocked()
}

func (s *Store) saveProteinLocked(rec *ProteinRecord) error {
	raw, err := encodeProteinRecord(rec)
	if err != nil {
		return err
	}
	return atomicWrite(s.resolver.ProteinStateFilePath(rec.ProteinID), raw)
}

func (s *Store) saveBatchLocked() error {
	raw, err := encodeBatchRecord(s.batch)
	if err != nil {
		return err
	}
	return atomicWrite(s.resolver.BatchStateFilePath(), raw)
}

// loadOrInit reads and decodes path if it exists, or builds a fresh value via
// initFn if it does not. A corrupt existing file is a fatal state-io error
// rather than silently discarded, since discarding it would lose history.
func loadOrInit[T any](path string, decode func([]byte) (*T, error), initFn func() *T) (*T, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return initFn(), nil
		}
		return nil, dpamerrors.Wrapf(dpamerrors.KindStateIOError, err, "read state file %s", path)
	}
	return decode(raw)
}

// atomicWrite writes data to path via a sibling temp file, fsyncs it, then
// renames it over path, so a crash between steps never leaves a half-written
// state file. Grounded on the binary-download step's
// create-temp/copy/sync/rename sequence.
func atomicWrite(path string, data []byte) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return dpamerrors.Wrapf(dpamerrors.KindStateIOError, err, "create temp state file for %s", path)
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return dpamerrors.Wrapf(dpamerrors.KindStateIOError, err, "write temp state file for %s", path)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return dpamerrors.Wrapf(dpamerrors.KindStateIOError, err, "sync temp state file for %s", path)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return dpamerrors.Wrapf(dpamerrors.KindStateIOError, err, "close temp state file for %s", path)
	}
	if err := os.Rename(tmp, path); err != nil {
		return dpamerrors.Wrapf(dpamerrors.KindStateIOError, err, "rename temp state file into place for %s", path)
	}
	return nil
}

// currentTime is the sole time source for state timestamps, isolated here so
// tests can substitute a fixed clock without reaching into every call site.
var currentTime = time.Now
