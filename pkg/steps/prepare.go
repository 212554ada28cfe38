package steps

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rschaeff/dpamengine/pkg/atomicfile"
	"github.com/rschaeff/dpamengine/pkg/dpamerrors"
	"github.com/rschaeff/dpamengine/pkg/protein"
	"github.com/rschaeff/dpamengine/pkg/runtime"
)

// Prepare is step 1: normalize the raw structure input into the canonical
// per-protein layout every later step reads from, so those steps never touch
// the raw input path convention directly.
type Prepare struct{}

func (Prepare) StepID() protein.StepID { return protein.StepPrepare }

func (Prepare) Run(ctx context.Context, rc *runtime.Context, proteinID string) error {
	p, ok := rc.Protein(proteinID)
	if !ok {
		return dpamerrors.New(dpamerrors.KindInvariantViolation, "no input record for protein "+proteinID)
	}

	src, err := os.Open(p.StructurePath)
	if err != nil {
		return dpamerrors.Wrap(dpamerrors.KindInputMissing, err, "open raw structure input for "+proteinID)
	}
	defer src.Close()

	dest := artifactPath(rc, proteinID, protein.StepPrepare, protein.KindNormalizedStructure)
	if err := atomicfile.EnsureParent(dest); err != nil {
		return err
	}
	tmp := dest + ".copy.tmp"
	out, err := os.Create(tmp)
	if err != nil {
		return dpamerrors.Wrap(dpamerrors.KindStateIOError, err, "create normalized structure temp file")
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		os.Remove(tmp)
		return dpamerrors.Wrap(dpamerrors.KindToolFailed, err, "copy raw structure into normalized layout")
	}
	if err := out.Sync(); err != nil {
		out.Close()
		os.Remove(tmp)
		return dpamerrors.Wrap(dpamerrors.KindStateIOError, err, "sync normalized structure")
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return dpamerrors.Wrap(dpamerrors.KindStateIOError, err, "close normalized structure")
	}
	if err := os.Rename(tmp, dest); err != nil {
		return dpamerrors.Wrap(dpamerrors.KindStateIOError, err, "rename normalized structure into place")
	}

	if _, err := os.Stat(p.ConfidencePath); err != nil {
		return dpamerrors.Wrap(dpamerrors.KindInputMissing, err, fmt.Sprintf("confidence matrix missing for %s", proteinID))
	}
	return nil
}
