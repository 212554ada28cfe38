package protein

// StepID is one of the 24 densely-numbered pipeline stages. Step 14 is a
// no-op alias of step 13 kept only for compatibility with artifacts produced
// by the older per-protein-first driver; step 25 (visualization) is reserved
// and never scheduled by the batch runner.
type StepID int

const (
	StepPrepare               StepID = 1
	StepHHSearchMSA           StepID = 2
	StepHHSearchProfile       StepID = 3
	StepHHSearchSearch        StepID = 4
	StepHHSearchParse         StepID = 5
	StepFoldseekCreateDB      StepID = 6
	StepFoldseekSearch        StepID = 7
	StepFoldseekConvertAlis   StepID = 8
	StepFoldseekSplit         StepID = 9
	StepTemplateSelect        StepID = 10
	StepPairwisePrepare       StepID = 11
	StepPairwiseAlign         StepID = 12
	StepPairwiseCollect       StepID = 13
	StepPairwiseCollectAlias  StepID = 14 // no-op alias of StepPairwiseCollect
	StepSecStructAssign       StepID = 15
	StepFeatureAssemble       StepID = 16
	StepDpamInfer             StepID = 17
	StepSegmentCandidates     StepID = 18
	StepSegmentScore          StepID = 19
	StepDomainMerge           StepID = 20
	StepDomainSupport         StepID = 21
	StepDomainNumbering       StepID = 22
	StepDomainFormat          StepID = 23
	StepIntegrate             StepID = 24
	StepVisualize             StepID = 25 // reserved, unsupported
)

// FirstStep and LastCoreStep bound the fixed scheduling order the batch
// runner walks; StepVisualize sits outside that range.
const (
	FirstStep    StepID = StepPrepare
	LastCoreStep StepID = StepIntegrate
)

// CanonicalStep maps a step to the one whose artifacts it actually reads and
// writes. Every step maps to itself except the step 14 compatibility alias.
func CanonicalStep(id StepID) StepID {
	if id == StepPairwiseCollectAlias {
		return StepPairwiseCollect
	}
	return id
}

// criticalSteps is the fixed set of steps whose per-protein failure skips
// every later step for that protein: the three most expensive stages, where
// continuing without their output would be meaningless.
var criticalSteps = map[StepID]bool{
	StepHHSearchSearch: true,
	StepFoldseekSearch: true,
	StepPairwiseAlign:  true,
}

// IsCritical reports whether a failure of this step for a protein should
// cause every later step to skip that protein for the remainder of the batch.
func IsCritical(id StepID) bool {
	return criticalSteps[CanonicalStep(id)]
}

// CoreSteps returns the fixed scheduling order 1..24, with 14 elided (it is
// never independently scheduled — it is a marking alias applied when 13 runs)
// and 25 excluded entirely.
func CoreSteps() []StepID {
	steps := make([]StepID, 0, 23)
	for id := FirstStep; id <= LastCoreStep; id++ {
		if id == StepPairwiseCollectAlias {
			continue
		}
		steps = append(steps, id)
	}
	return steps
}
