package steps

import (
	"context"

	"github.com/rschaeff/dpamengine/pkg/adapter/neuralnet"
	"github.com/rschaeff/dpamengine/pkg/dpamerrors"
	"github.com/rschaeff/dpamengine/pkg/engine"
	"github.com/rschaeff/dpamengine/pkg/protein"
	"github.com/rschaeff/dpamengine/pkg/runtime"
)

// DomainScores is step 17's output: one domain-boundary probability pair
// per residue, in residue order.
type DomainScores struct {
	ProteinID     string      `json:"protein_id"`
	Probabilities [][]float64 `json:"probabilities"`
}

// DpamInfer is step 17 (shared-resource): score every pending protein's
// feature matrix against one model handle loaded once for the whole step.
type DpamInfer struct {
	Adapter *neuralnet.Adapter
}

func (DpamInfer) StepID() protein.StepID { return protein.StepDpamInfer }

func (s DpamInfer) CheckAvailability() error {
	if s.Adapter.CheckAvailability() {
		return nil
	}
	return dpamerrors.New(dpamerrors.KindToolMissing, "inference host executable not found")
}

// Acquire opens the model handle once for the step; the returned Resource's
// RunOne reuses it for every pending protein under the engine's scoped
// acquisition contract.
func (s DpamInfer) Acquire(ctx context.Context, rc *runtime.Context) (engine.Resource, error) {
	handle, err := s.Adapter.Open(ctx)
	if err != nil {
		return nil, err
	}
	return &dpamInferResource{handle: handle}, nil
}

type dpamInferResource struct {
	handle *neuralnet.Handle
}

func (r *dpamInferResource) RunOne(ctx context.Context, rc *runtime.Context, proteinID string) error {
	var fm FeatureMatrix
	if err := readArtifact(rc, proteinID, protein.StepFeatureAssemble, protein.KindFeatureMatrix, &fm); err != nil {
		return err
	}
	if len(fm.Rows) == 0 {
		return dpamerrors.New(dpamerrors.KindInvariantViolation, "empty feature matrix for "+proteinID)
	}

	probs, err := r.handle.Predict(fm.Rows)
	if err != nil {
		return err
	}
	return writeArtifact(rc, proteinID, protein.StepDpamInfer, protein.KindDpamScores, DomainScores{ProteinID: proteinID, Probabilities: probs})
}

func (r *dpamInferResource) Release() error {
	return r.handle.Close()
}
