package steps

import (
	"context"

	"github.com/rschaeff/dpamengine/pkg/adapter/neuralnet"
	"github.com/rschaeff/dpamengine/pkg/atomicfile"
	"github.com/rschaeff/dpamengine/pkg/dpamerrors"
	"github.com/rschaeff/dpamengine/pkg/protein"
	"github.com/rschaeff/dpamengine/pkg/runtime"
)

// secStructCode maps a DSSP-style secondary-structure class character to a
// small integer code, the first of the per-residue feature columns.
func secStructCode(c byte) float64 {
	switch c {
	case 'H':
		return 1
	case 'E':
		return 2
	case 'G', 'I':
		return 3
	case 'T', 'S':
		return 4
	default:
		return 0
	}
}

// FeatureMatrix is the [N,13] per-residue feature matrix the shared-resource
// inference step consumes its fixed-width contract.
type FeatureMatrix struct {
	ProteinID string      `json:"protein_id"`
	Rows      [][]float64 `json:"rows"`
}

// FeatureAssemble is step 16: assemble the per-residue feature matrix from
// secondary structure, the per-residue confidence matrix, and the best
// structural-template equivalence, padding every row to the fixed width the
// inference adapter requires.
type FeatureAssemble struct{}

func (FeatureAssemble) StepID() protein.StepID { return protein.StepFeatureAssemble }

func (FeatureAssemble) Run(ctx context.Context, rc *runtime.Context, proteinID string) error {
	var secstruct string
	if err := readArtifact(rc, proteinID, protein.StepSecStructAssign, protein.KindSecStruct, &secstruct); err != nil {
		return err
	}
	if len(secstruct) == 0 {
		return dpamerrors.New(dpamerrors.KindInvariantViolation, "secondary structure empty for "+proteinID)
	}

	p, ok := rc.Protein(proteinID)
	if !ok {
		return dpamerrors.New(dpamerrors.KindInvariantViolation, "no input record for protein "+proteinID)
	}
	var confidence [][]float64
	if err := atomicfile.ReadJSON(p.ConfidencePath, &confidence); err != nil {
		return dpamerrors.Wrap(dpamerrors.KindInputMissing, err, "read confidence matrix for "+proteinID)
	}

	var equiv pairwiseUnitResult
	if err := readArtifact(rc, proteinID, protein.StepPairwiseCollect, protein.KindPairwiseEquivalence, &equiv); err != nil {
		return err
	}
	templateSupport := make(map[int]bool, len(equiv.Equivalences))
	for _, eq := range equiv.Equivalences {
		templateSupport[int(eq.Query)] = true
	}

	n := len(secstruct)
	rows := make([][]float64, n)
	for i := 0; i < n; i++ {
		row := make([]float64, neuralnet.FeatureWidth)
		row[0] = secStructCode(secstruct[i])
		row[1] = rowMean(confidence, i)
		row[2] = float64(i) / float64(n)
		if templateSupport[i] {
			row[3] = 1
		}
		rows[i] = row
	}

	return writeArtifact(rc, proteinID, protein.StepFeatureAssemble, protein.KindFeatureMatrix, FeatureMatrix{ProteinID: proteinID, Rows: rows})
}

// rowMean returns the mean of confidence row i, or 0 if the matrix is
// smaller than expected — a malformed confidence matrix degrades the
// feature rather than failing the step, since inference tolerates noisy
// input better than a hard stop this early in the chain.
func rowMean(matrix [][]float64, i int) float64 {
	if i < 0 || i >= len(matrix) || len(matrix[i]) == 0 {
		return 0
	}
	var sum float64
	for _, v := range matrix[i] {
		sum += v
	}
	return sum / float64(len(matrix[i]))
}
