package toolexec

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// Discover resolves the absolute path to an external tool's executable by
// trying, in order: an explicit override (e.g. a config value or CLI flag),
// an environment variable named envVar, a canonical install prefix, then a
// plain PATH lookup by name. The first candidate that resolves to an
// existing, executable file wins its discovery chain.
func Discover(override, envVar, canonicalPrefix, name string) (string, error) {
	candidates := make([]string, 0, 4)
	if override != "" {
		candidates = append(candidates, override)
	}
	if envVar != "" {
		if v := os.Getenv(envVar); v != "" {
			candidates = append(candidates, v)
		}
	}
	if canonicalPrefix != "" {
		candidates = append(candidates, filepath.Join(canonicalPrefix, "bin", name))
	}

	for _, c := range candidates {
		if isExecutableFile(c) {
			return c, nil
		}
	}

	if resolved, err := exec.LookPath(name); err == nil {
		return resolved, nil
	}

	return "", fmt.Errorf("toolexec: could not locate executable %q via override, %s, %s, or PATH", name, envVar, canonicalPrefix)
}

func isExecutableFile(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	return info.Mode()&0o111 != 0
}

// CheckAvailability reports whether name can be discovered via the same
// chain Discover uses, without erroring — adapters call this at batch
// startup to fail fast when a step's required tool is entirely missing.
func CheckAvailability(override, envVar, canonicalPrefix, name string) bool {
	_, err := Discover(override, envVar, canonicalPrefix, name)
	return err == nil
}
