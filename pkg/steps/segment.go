package steps

import (
	"context"
	"sort"

	"github.com/rschaeff/dpamengine/pkg/dpamerrors"
	"github.com/rschaeff/dpamengine/pkg/protein"
	"github.com/rschaeff/dpamengine/pkg/runtime"
)

// boundaryThreshold is the minimum boundary probability (column 0 of the
// inference output) a residue needs to be treated as a domain boundary.
const boundaryThreshold = 0.5

// Segment is one contiguous residue range, 0-indexed, end-inclusive.
type Segment struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// SegmentCandidates is step 18's output: the residue positions the scorer
// flagged as likely domain boundaries, and the contiguous segments they cut
// the sequence into.
type SegmentCandidates struct {
	ProteinID  string    `json:"protein_id"`
	Boundaries []int     `json:"boundaries"`
	Segments   []Segment `json:"segments"`
}

// SegmentCandidatesStep is step 18: derive candidate domain boundaries from
// the per-residue boundary probabilities and cut the sequence into
// candidate segments at those boundaries.
type SegmentCandidatesStep struct{}

func (SegmentCandidatesStep) StepID() protein.StepID { return protein.StepSegmentCandidates }

func (SegmentCandidatesStep) Run(ctx context.Context, rc *runtime.Context, proteinID string) error {
	var scores DomainScores
	if err := readArtifact(rc, proteinID, protein.StepDpamInfer, protein.KindDpamScores, &scores); err != nil {
		return err
	}
	n := len(scores.Probabilities)
	if n == 0 {
		return dpamerrors.New(dpamerrors.KindInvariantViolation, "empty domain scores for "+proteinID)
	}

	var boundaries []int
	for i, row := range scores.Probabilities {
		if len(row) == 0 {
			continue
		}
		if row[0] >= boundaryThreshold {
			boundaries = append(boundaries, i)
		}
	}

	segments := cutSegments(n, boundaries)
	return writeArtifact(rc, proteinID, protein.StepSegmentCandidates, protein.KindSegmentCandidates, SegmentCandidates{
		ProteinID:  proteinID,
		Boundaries: boundaries,
		Segments:   segments,
	})
}

// cutSegments splits [0, n) into contiguous, end-inclusive ranges at each
// boundary position, discarding empty ranges a boundary at position 0 or a
// run of adjacent boundaries would otherwise produce.
func cutSegments(n int, boundaries []int) []Segment {
	segments := make([]Segment, 0, len(boundaries)+1)
	start := 0
	for _, b := range boundaries {
		if b <= start {
			continue
		}
		segments = append(segments, Segment{Start: start, End: b - 1})
		start = b
	}
	if start < n {
		segments = append(segments, Segment{Start: start, End: n - 1})
	}
	return segments
}

// ScoredSegment is one candidate segment plus its internal-cohesion score.
type ScoredSegment struct {
	Segment
	Score float64 `json:"score"`
}

// SegmentScored is step 19's output: every candidate segment from step 18,
// each carrying a score reflecting how confidently it reads as one domain
// rather than a boundary-probability artifact of noisy scoring.
type SegmentScored struct {
	ProteinID string          `json:"protein_id"`
	Segments  []ScoredSegment `json:"segments"`
}

// SegmentScoreStep is step 19: score each candidate segmentation by its mean
// non-boundary probability, the inference model's estimate of "these
// residues belong in the same domain."
type SegmentScoreStep struct{}

func (SegmentScoreStep) StepID() protein.StepID { return protein.StepSegmentScore }

func (SegmentScoreStep) Run(ctx context.Context, rc *runtime.Context, proteinID string) error {
	var candidates SegmentCandidates
	if err := readArtifact(rc, proteinID, protein.StepSegmentCandidates, protein.KindSegmentCandidates, &candidates); err != nil {
		return err
	}
	var scores DomainScores
	if err := readArtifact(rc, proteinID, protein.StepDpamInfer, protein.KindDpamScores, &scores); err != nil {
		return err
	}

	scored := make([]ScoredSegment, len(candidates.Segments))
	for i, seg := range candidates.Segments {
		scored[i] = ScoredSegment{Segment: seg, Score: segmentCohesion(scores.Probabilities, seg)}
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Start < scored[j].Start })

	return writeArtifact(rc, proteinID, protein.StepSegmentScore, protein.KindSegmentScored, SegmentScored{
		ProteinID: proteinID,
		Segments:  scored,
	})
}

// segmentCohesion averages the no-boundary column (probabilities[i][1])
// across seg's residue range, the per-row complement of the score that cut
// the segment's edges in the first place.
func segmentCohesion(probabilities [][]float64, seg Segment) float64 {
	if seg.End < seg.Start {
		return 0
	}
	var sum float64
	count := 0
	for i := seg.Start; i <= seg.End && i < len(probabilities); i++ {
		row := probabilities[i]
		if len(row) < 2 {
			continue
		}
		sum += row[1]
		count++
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}
