// Package scratch owns the per-batch local-disk workspace lifecycle: base
// root selection, a lazily-populated shared template cache, per-worker
// subdirectories, and guaranteed whole-tree cleanup on step exit. Routing
// the pairwise-alignment step's high-frequency small file operations onto
// local disk instead of the (typically network-mounted) working root is the
// dominant single source of speedup for that step.
package scratch

import (
	"io"
	"os"
	"path/filepath"

	"golang.org/x/sync/singleflight"

	"github.com/rschaeff/dpamengine/pkg/atomicfile"
	"github.com/rschaeff/dpamengine/pkg/dpamerrors"
	"github.com/rschaeff/dpamengine/pkg/logger"
)

// templateCacheDirName is the shared, write-once-per-key subdirectory workers
// race benignly to populate.
const templateCacheDirName = "templates"

// Config locates the scratch manager's base root.
type Config struct {
	// Override, if non-empty, is used as the base root verbatim.
	Override string
	// CanonicalLocalDir is a canonical local scratch location (e.g.
	// /var/scratch on a cluster node), tried before falling back to
	// os.TempDir().
	CanonicalLocalDir string
}

// Manager owns the scratch lifecycle for one host. One Manager may be reused
// across many batches; each Acquire call is independent.
type Manager struct {
	cfg Config
	log *logger.Logger
}

// New creates a Manager.
func New(cfg Config, log *logger.Logger) *Manager {
	return &Manager{cfg: cfg, log: log}
}

func (m *Manager) chooseBaseRoot() string {
	if m.cfg.Override != "" {
		return m.cfg.Override
	}
	if m.cfg.CanonicalLocalDir != "" {
		if writableDir(m.cfg.CanonicalLocalDir) {
			return m.cfg.CanonicalLocalDir
		}
	}
	return os.TempDir()
}

func writableDir(dir string) bool {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return false
	}
	probe := filepath.Join(dir, ".dpam_writable_probe")
	f, err := os.Create(probe)
	if err != nil {
		return false
	}
	f.Close()
	os.Remove(probe)
	return true
}

// Batch is one batch's acquired scratch tree: `dpam_<batchID>/` under the
// chosen base root, owned exclusively by this process.
type Batch struct {
	root     string
	degraded bool
	log      *logger.Logger
	// templateFlight dedupes concurrent EnsureTemplate calls for the same
	// key within this process: pooled-fanout workers frequently request the
	// same template at nearly the same time, and only one of them should
	// actually pay for the copy.
	templateFlight singleflight.Group
}

// Root returns the batch scratch tree's root directory.
func (b *Batch) Root() string { return b.root }

// Degraded reports whether this batch fell back to the working-root location
// because local scratch was unavailable.
func (b *Batch) Degraded() bool { return b.degraded }

// Acquire creates the batch scratch tree and its shared template cache
// directory. If the chosen base root is unusable, it degrades to
// workingRootFallback (logging a warning) rather than failing the batch.
func (m *Manager) Acquire(batchID, workingRootFallback string) (*Batch, error) {
	base := m.chooseBaseRoot()
	root := filepath.Join(base, "dpam_"+batchID)
	degraded := false

	if err := os.MkdirAll(root, 0o755); err != nil {
		if m.log != nil {
			m.log.Warnf("scratch: local root %s unusable (%v); degrading to working-root scratch, step will run slower", base, err)
		}
		root = filepath.Join(workingRootFallback, "_batch")
		if err := os.MkdirAll(root, 0o755); err != nil {
			return nil, dpamerrors.Wrap(dpamerrors.KindScratchExhausted, err, "create fallback scratch root")
		}
		degraded = true
	}

	if err := os.MkdirAll(filepath.Join(root, templateCacheDirName), 0o755); err != nil {
		return nil, dpamerrors.Wrap(dpamerrors.KindScratchExhausted, err, "create template cache directory")
	}

	return &Batch{root: root, degraded: degraded, log: m.log}, nil
}

// Release removes the entire scratch tree. Callers invoke this on step exit
// regardless of outcome, via AcquireScoped.
func (b *Batch) Release() error {
	if err := os.RemoveAll(b.root); err != nil {
		return dpamerrors.Wrap(dpamerrors.KindScratchExhausted, err, "remove scratch tree "+b.root)
	}
	return nil
}

// TemplateCacheDir returns the shared template cache directory.
func (b *Batch) TemplateCacheDir() string {
	return filepath.Join(b.root, templateCacheDirName)
}

// EnsureTemplate makes template key available under the cache, copying it
// from canonicalPath if this is the first request for key. Population is
// lazy and per-key idempotent: concurrent callers for the same key within
// this process share a single copy via templateFlight, and the actual
// write is still copy-to-`key.tmp`-then-rename so a cache populated by a
// previous, separate process is equally safe to read.
func (b *Batch) EnsureTemplate(key, canonicalPath string) (string, error) {
	dest := filepath.Join(b.TemplateCacheDir(), key)
	if atomicfile.NonEmpty(dest) {
		return dest, nil
	}

	_, err, _ := b.templateFlight.Do(key, func() (interface{}, error) {
		if atomicfile.NonEmpty(dest) {
			return nil, nil
		}
		tmp := dest + ".tmp"
		if err := copyFile(canonicalPath, tmp); err != nil {
			return nil, dpamerrors.Wrap(dpamerrors.KindScratchExhausted, err, "stage template "+key)
		}
		if err := os.Rename(tmp, dest); err != nil && !os.IsExist(err) {
			if atomicfile.NonEmpty(dest) {
				os.Remove(tmp)
				return nil, nil
			}
			return nil, dpamerrors.Wrap(dpamerrors.KindScratchExhausted, err, "rename staged template "+key+" into place")
		}
		return nil, nil
	})
	if err != nil {
		return "", err
	}
	return dest, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	if err := out.Sync(); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	return out.Close()
}

// WorkerDir creates a per-worker subdirectory for one unit of work and
// returns its path plus a cleanup function the caller must invoke when that
// unit finishes ("removed after each unit of work finishes").
func (b *Batch) WorkerDir(unitID string) (string, func(), error) {
	dir := filepath.Join(b.root, "w_"+unitID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", nil, dpamerrors.Wrap(dpamerrors.KindScratchExhausted, err, "create worker scratch dir")
	}
	cleanup := func() {
		os.RemoveAll(dir)
	}
	return dir, cleanup, nil
}

// AcquireScoped acquires a batch scratch tree, invokes fn, and guarantees
// Release runs afterward regardless of fn's outcome: removed on step exit
// via scoped acquisition with guaranteed release.
func (m *Manager) AcquireScoped(batchID, workingRootFallback string, fn func(*Batch) error) error {
	b, err := m.Acquire(batchID, workingRootFallback)
	if err != nil {
		return err
	}
	defer b.Release()
	return fn(b)
}
