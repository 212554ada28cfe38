// Package protein defines the unit of work the engine schedules: a protein
// identified by an opaque, filename-safe token, plus its two read-only input
// artifacts (a predicted structure and a per-residue confidence matrix).
package protein

import (
	"fmt"
	"regexp"
)

// idPattern constrains protein IDs to characters safe to embed directly in a
// filesystem path component on every layout the path resolver supports.
var idPattern = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// Protein is an independent unit of batch work. Its ID is immutable and its
// input artifacts are read-only for the life of a batch.
type Protein struct {
	// ID is the filename-safe token identifying this protein across the batch.
	ID string

	// StructurePath is the raw predicted-structure input file.
	StructurePath string

	// ConfidencePath is the raw per-residue pairwise-confidence matrix input file.
	ConfidencePath string
}

// ValidateID reports whether id is safe to use as a path component and as a
// state-file name. It never returns an error for a valid token; it is the
// caller's job to reject invalid ones before they reach the path resolver.
func ValidateID(id string) error {
	if id == "" {
		return fmt.Errorf("protein: empty id")
	}
	if !idPattern.MatchString(id) {
		return fmt.Errorf("protein: id %q contains characters unsafe for a filesystem path", id)
	}
	return nil
}

// New constructs a Protein, validating its ID.
func New(id, structurePath, confidencePath string) (Protein, error) {
	if err := ValidateID(id); err != nil {
		return Protein{}, err
	}
	return Protein{ID: id, StructurePath: structurePath, ConfidencePath: confidencePath}, nil
}
