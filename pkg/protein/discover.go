package protein

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Discover scans root for raw input pairs named "<id>.<structExt>" and
// "<id>.<confExt>" directly under root (never in a step subdirectory,
// independent of layout) and returns one Protein per id that has both.
// The returned slice is sorted by ID so batch ordering is deterministic
// across runs on the same root.
func Discover(root, structExt, confExt string) ([]Protein, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("protein: read working root %s: %w", root, err)
	}

	structSuffix := "." + structExt
	confSuffix := "." + confExt
	haveStruct := make(map[string]bool)
	haveConf := make(map[string]bool)

	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") {
			continue
		}
		if id, ok := stripSuffix(name, structSuffix); ok {
			haveStruct[id] = true
		}
		if id, ok := stripSuffix(name, confSuffix); ok {
			haveConf[id] = true
		}
	}

	var ids []string
	for id := range haveStruct {
		if haveConf[id] {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	proteins := make([]Protein, 0, len(ids))
	for _, id := range ids {
		p, err := New(id, filepath.Join(root, id+structSuffix), filepath.Join(root, id+confSuffix))
		if err != nil {
			return nil, fmt.Errorf("protein: discovered id %q: %w", id, err)
		}
		proteins = append(proteins, p)
	}
	return proteins, nil
}

// stripSuffix reports whether name ends with suffix and, if so, returns the
// part before it — unless that part is empty, since a bare ".<ext>" file has
// no protein id.
func stripSuffix(name, suffix string) (string, bool) {
	if !strings.HasSuffix(name, suffix) {
		return "", false
	}
	id := strings.TrimSuffix(name, suffix)
	if id == "" {
		return "", false
	}
	return id, true
}
