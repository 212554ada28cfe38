// Package steps holds the 24 scheduled step bodies: the glue between the
// batch runner's four execution modes (pkg/engine) and the external-tool
// adapters (pkg/adapter/...) that do the real work. Every body funnels its
// paths through pkg/pathresolver rather than building one with fmt.
package steps

import (
	"github.com/rschaeff/dpamengine/pkg/atomicfile"
	"github.com/rschaeff/dpamengine/pkg/pathresolver"
	"github.com/rschaeff/dpamengine/pkg/protein"
	"github.com/rschaeff/dpamengine/pkg/runtime"
)

// writeArtifact JSON-encodes v and writes it atomically to the declared
// artifact path for (proteinID, step, kind), creating the parent directory
// on first write its lazy-materialization contract.
func writeArtifact(rc *runtime.Context, proteinID string, step protein.StepID, kind protein.ArtifactKind, v interface{}) error {
	path := rc.Resolver.ArtifactPath(proteinID, step, pathresolver.Kind(kind))
	if err := atomicfile.EnsureParent(path); err != nil {
		return err
	}
	return atomicfile.WriteJSON(path, v)
}

// readArtifact JSON-decodes the declared artifact at (proteinID, step, kind)
// into v.
func readArtifact(rc *runtime.Context, proteinID string, step protein.StepID, kind protein.ArtifactKind, v interface{}) error {
	path := rc.Resolver.ArtifactPath(proteinID, step, pathresolver.Kind(kind))
	return atomicfile.ReadJSON(path, v)
}

// artifactPath is the raw path for one (proteinID, step, kind) triple, for
// step bodies that hand a path to an external-tool adapter rather than
// reading or writing JSON themselves.
func artifactPath(rc *runtime.Context, proteinID string, step protein.StepID, kind protein.ArtifactKind) string {
	return rc.Resolver.ArtifactPath(proteinID, step, pathresolver.Kind(kind))
}

// batchArtifactPath is artifactPath's batched-bulk counterpart: one path
// shared by the whole pending set rather than one per protein.
func batchArtifactPath(rc *runtime.Context, step protein.StepID, kind protein.ArtifactKind) string {
	return rc.Resolver.BatchArtifactPath(step, pathresolver.Kind(kind))
}

// ensureStepDir materializes the directory an artifact path's parent lives
// in, for adapters that need the directory to already exist before they run
// (most tools refuse to write into a directory that isn't there).
func ensureStepDir(rc *runtime.Context, step protein.StepID) error {
	return atomicfile.EnsureDir(rc.Resolver.StepDir(step))
}
