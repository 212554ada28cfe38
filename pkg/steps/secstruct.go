package steps

import (
	"context"

	"github.com/rschaeff/dpamengine/pkg/adapter/secstruct"
	"github.com/rschaeff/dpamengine/pkg/dpamerrors"
	"github.com/rschaeff/dpamengine/pkg/protein"
	"github.com/rschaeff/dpamengine/pkg/runtime"
)

// SecStructAssign is step 15: assign per-residue secondary structure from
// the normalized structure input.
type SecStructAssign struct {
	Adapter *secstruct.Adapter
}

func (SecStructAssign) StepID() protein.StepID { return protein.StepSecStructAssign }

func (s SecStructAssign) CheckAvailability() error {
	if s.Adapter.CheckAvailability() {
		return nil
	}
	return dpamerrors.New(dpamerrors.KindToolMissing, "secondary-structure assignment executable not found")
}

func (s SecStructAssign) Run(ctx context.Context, rc *runtime.Context, proteinID string) error {
	if err := ensureStepDir(rc, protein.StepSecStructAssign); err != nil {
		return err
	}
	in := artifactPath(rc, proteinID, protein.StepPrepare, protein.KindNormalizedStructure)
	out := artifactPath(rc, proteinID, protein.StepSecStructAssign, "secstruct.raw")
	classes, err := s.Adapter.Assign(ctx, in, out, rc.Resolver.StepDir(protein.StepSecStructAssign))
	if err != nil {
		return err
	}
	return writeArtifact(rc, proteinID, protein.StepSecStructAssign, protein.KindSecStruct, classes)
}
