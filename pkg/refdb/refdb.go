// Package refdb bootstraps the reference-database trees the search adapters
// read from (hhsuite profile database, foldseek structure database, pairwise
// template library): a one-time-per-install unpack of a vendor-supplied
// archive into the configured database root. It runs outside the 24-step
// batch chain entirely — no step registers it, no protein record references
// it.
//
// Uses github.com/mholt/archiver/v3's Walk-with-callback extraction plus a
// github.com/schollz/progressbar/v3 byte-counted bar written to stderr.
package refdb

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/mholt/archiver/v3"
	"github.com/schollz/progressbar/v3"
)

// Options controls one archive unpack.
type Options struct {
	// ArchivePath is the vendor-supplied tarball to unpack.
	ArchivePath string
	// DestRoot is the directory the archive's contents land in; created if
	// missing.
	DestRoot string
	// Overwrite lets an existing destination file be replaced; otherwise an
	// existing file is left untouched and skipped.
	Overwrite bool
	// Progress, if non-nil, replaces the default stderr progress bar
	// (tests pass a no-op here).
	Progress ProgressFunc
}

// ProgressFunc is called once per archive entry as it's unpacked.
type ProgressFunc func(name string, archiveTotalBytes int64)

// Unpack extracts opts.ArchivePath into opts.DestRoot, reporting progress as
// it goes. It is not part of the per-protein step chain: callers invoke it
// once, before any batch referencing the resulting database root is started.
func Unpack(opts Options) error {
	if opts.ArchivePath == "" {
		return fmt.Errorf("refdb: archive path is required")
	}
	if opts.DestRoot == "" {
		return fmt.Errorf("refdb: destination root is required")
	}

	info, err := os.Stat(opts.ArchivePath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("refdb: archive does not exist: %s", opts.ArchivePath)
		}
		return fmt.Errorf("refdb: stat archive %s: %w", opts.ArchivePath, err)
	}
	if info.IsDir() {
		return fmt.Errorf("refdb: archive path is a directory, not a file: %s", opts.ArchivePath)
	}

	if err := os.MkdirAll(opts.DestRoot, 0o755); err != nil {
		return fmt.Errorf("refdb: create destination root %s: %w", opts.DestRoot, err)
	}

	progress := opts.Progress
	if progress == nil {
		progress = stderrProgress(info.Size())
	}

	walkFn := func(f archiver.File) error {
		defer f.Close()

		progress(f.Name(), info.Size())

		destPath := filepath.Join(opts.DestRoot, f.Name())

		if !opts.Overwrite {
			if _, err := os.Stat(destPath); err == nil {
				return nil
			}
		}

		if f.IsDir() {
			return os.MkdirAll(destPath, f.Mode())
		}

		if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
			return fmt.Errorf("create parent directory for %s: %w", destPath, err)
		}

		out, err := os.OpenFile(destPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, f.Mode())
		if err != nil {
			return fmt.Errorf("create destination file %s: %w", destPath, err)
		}
		defer out.Close()

		if _, err := io.Copy(out, f); err != nil {
			return fmt.Errorf("write destination file %s: %w", destPath, err)
		}
		return nil
	}

	if err := archiver.Walk(opts.ArchivePath, walkFn); err != nil {
		return fmt.Errorf("refdb: unpack %s into %s: %w", opts.ArchivePath, opts.DestRoot, err)
	}
	return nil
}

// stderrProgress returns a ProgressFunc that drives a byte-counted bar on
// stderr, one tick per archive entry visited.
func stderrProgress(archiveTotalBytes int64) ProgressFunc {
	bar := progressbar.NewOptions64(
		archiveTotalBytes,
		progressbar.OptionSetDescription("unpacking reference database"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowBytes(false),
		progressbar.OptionSetWidth(40),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionOnCompletion(func() { fmt.Fprint(os.Stderr, "\n") }),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionFullWidth(),
	)
	return func(name string, _ int64) {
		_ = bar.Add(1)
	}
}
