// Package atomicfile is the single choke point every step body writes its
// artifacts through: a temp-file-then-rename sequence identical to the one
// pkg/state uses for durable records, so "output file writes are atomic with
// respect to crash" holds for step artifacts, not just state files.
package atomicfile

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rschaeff/dpamengine/pkg/dpamerrors"
)

// WriteBytes writes data to path via a sibling temp file, fsyncs it, then
// renames it into place. The parent directory must already exist; callers
// materialize it lazily on first write.
func WriteBytes(path string, data []byte) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return dpamerrors.Wrapf(dpamerrors.KindStateIOError, err, "create temp artifact %s", path)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return dpamerrors.Wrapf(dpamerrors.KindStateIOError, err, "write temp artifact %s", path)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return dpamerrors.Wrapf(dpamerrors.KindStateIOError, err, "sync temp artifact %s", path)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return dpamerrors.Wrapf(dpamerrors.KindStateIOError, err, "close temp artifact %s", path)
	}
	if err := os.Rename(tmp, path); err != nil {
		return dpamerrors.Wrapf(dpamerrors.KindStateIOError, err, "rename temp artifact into place for %s", path)
	}
	return nil
}

// WriteJSON marshals v and writes it atomically to path.
func WriteJSON(path string, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return dpamerrors.Wrap(dpamerrors.KindInvariantViolation, err, "marshal artifact for "+path)
	}
	return WriteBytes(path, raw)
}

// ReadJSON unmarshals the file at path into v.
func ReadJSON(path string, v interface{}) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return dpamerrors.Wrap(dpamerrors.KindInputMissing, err, "read artifact "+path)
		}
		return dpamerrors.Wrap(dpamerrors.KindParseError, err, "read artifact "+path)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return dpamerrors.Wrap(dpamerrors.KindParseError, err, "unmarshal artifact "+path)
	}
	return nil
}

// EnsureDir creates dir (and its parents) if it does not already exist,
// matching the resolver's "directory creation for writes is lazy" contract.
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return dpamerrors.Wrap(dpamerrors.KindStateIOError, err, "create directory "+dir)
	}
	return nil
}

// EnsureParent creates the parent directory of path.
func EnsureParent(path string) error {
	return EnsureDir(filepath.Dir(path))
}

// NonEmpty reports whether path exists and is a regular file with non-zero
// size — the check the engine uses to enforce "marked complete implies every
// declared output exists and is non-empty".
func NonEmpty(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir() && info.Size() > 0
}
