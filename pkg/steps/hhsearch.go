package steps

import (
	"context"
	"os"

	"github.com/rschaeff/dpamengine/pkg/adapter"
	"github.com/rschaeff/dpamengine/pkg/adapter/profilesearch"
	"github.com/rschaeff/dpamengine/pkg/dpamerrors"
	"github.com/rschaeff/dpamengine/pkg/protein"
	"github.com/rschaeff/dpamengine/pkg/runtime"
)

// HHSearchMSA is step 2: build a multiple sequence alignment for a protein's
// normalized structure, the sequence profile search family's first stage.
type HHSearchMSA struct {
	Adapter *profilesearch.Adapter
}

func (HHSearchMSA) StepID() protein.StepID { return protein.StepHHSearchMSA }

func (s HHSearchMSA) Run(ctx context.Context, rc *runtime.Context, proteinID string) error {
	if err := ensureStepDir(rc, protein.StepHHSearchMSA); err != nil {
		return err
	}
	in := artifactPath(rc, proteinID, protein.StepPrepare, protein.KindNormalizedStructure)
	out := artifactPath(rc, proteinID, protein.StepHHSearchMSA, protein.KindMSA)
	return s.Adapter.BuildMSA(ctx, in, out, rc.Resolver.StepDir(protein.StepHHSearchMSA))
}

// HHSearchProfile is step 3: build an HMM profile from the MSA.
type HHSearchProfile struct {
	Adapter *profilesearch.Adapter
}

func (HHSearchProfile) StepID() protein.StepID { return protein.StepHHSearchProfile }

func (s HHSearchProfile) Run(ctx context.Context, rc *runtime.Context, proteinID string) error {
	if err := ensureStepDir(rc, protein.StepHHSearchProfile); err != nil {
		return err
	}
	in := artifactPath(rc, proteinID, protein.StepHHSearchMSA, protein.KindMSA)
	out := artifactPath(rc, proteinID, protein.StepHHSearchProfile, protein.KindProfile)
	return s.Adapter.BuildProfile(ctx, in, out, rc.Resolver.StepDir(protein.StepHHSearchProfile))
}

// HHSearchSearch is step 4 (critical): profile-vs-reference-database search.
// Failure here is in the critical-failure set — every later step skips this
// protein for the remainder of the batch.
type HHSearchSearch struct {
	Adapter *profilesearch.Adapter
}

func (HHSearchSearch) StepID() protein.StepID { return protein.StepHHSearchSearch }

func (s HHSearchSearch) CheckAvailability() error {
	if s.Adapter.CheckAvailability() {
		return nil
	}
	return dpamerrors.New(dpamerrors.KindToolMissing, "sequence profile search executable not found")
}

func (s HHSearchSearch) Run(ctx context.Context, rc *runtime.Context, proteinID string) error {
	if err := ensureStepDir(rc, protein.StepHHSearchSearch); err != nil {
		return err
	}
	in := artifactPath(rc, proteinID, protein.StepHHSearchProfile, protein.KindProfile)
	out := artifactPath(rc, proteinID, protein.StepHHSearchSearch, protein.KindProfileHits)
	_, err := s.Adapter.Search(ctx, in, out, rc.Resolver.StepDir(protein.StepHHSearchSearch))
	return err
}

// HHSearchParse is step 5: parse the raw tabular hit file step 4 wrote into
// a structured, uniform hit record list.
type HHSearchParse struct{}

func (HHSearchParse) StepID() protein.StepID { return protein.StepHHSearchParse }

func (HHSearchParse) Run(ctx context.Context, rc *runtime.Context, proteinID string) error {
	in := artifactPath(rc, proteinID, protein.StepHHSearchSearch, protein.KindProfileHits)
	f, err := os.Open(in)
	if err != nil {
		return dpamerrors.Wrap(dpamerrors.KindInputMissing, err, "open profile search hits")
	}
	defer f.Close()

	hits, err := adapter.ParseTabularHits(f)
	if err != nil {
		return err
	}
	return writeArtifact(rc, proteinID, protein.StepHHSearchParse, protein.KindProfileHitsParsed, hits)
}
