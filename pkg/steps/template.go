package steps

import (
	"sort"

	"context"

	"github.com/rschaeff/dpamengine/pkg/adapter"
	"github.com/rschaeff/dpamengine/pkg/protein"
	"github.com/rschaeff/dpamengine/pkg/runtime"
)

// maxCandidateTemplates bounds how many candidate templates survive the
// selection step, per protein, before the pairwise-alignment fan-out.
const maxCandidateTemplates = 50

// TemplateSelect is step 10: merge the sequence-profile and structure search
// hit lists into one deduplicated, e-value-ranked candidate template list.
type TemplateSelect struct{}

func (TemplateSelect) StepID() protein.StepID { return protein.StepTemplateSelect }

func (TemplateSelect) Run(ctx context.Context, rc *runtime.Context, proteinID string) error {
	var profileHits []adapter.Hit
	if err := readArtifact(rc, proteinID, protein.StepHHSearchParse, protein.KindProfileHitsParsed, &profileHits); err != nil {
		return err
	}
	var structHits []adapter.Hit
	if err := readArtifact(rc, proteinID, protein.StepFoldseekSplit, protein.KindFoldseekHitsSplit, &structHits); err != nil {
		return err
	}

	all := append(append([]adapter.Hit{}, profileHits...), structHits...)
	sort.Slice(all, func(i, j int) bool { return all[i].EValue < all[j].EValue })

	seen := make(map[string]bool, len(all))
	candidates := make([]string, 0, maxCandidateTemplates)
	for _, h := range all {
		if seen[h.TemplateID] {
			continue
		}
		seen[h.TemplateID] = true
		candidates = append(candidates, h.TemplateID)
		if len(candidates) >= maxCandidateTemplates {
			break
		}
	}

	return writeArtifact(rc, proteinID, protein.StepTemplateSelect, protein.KindTemplateList, candidates)
}
