package steps

import (
	"github.com/rschaeff/dpamengine/pkg/adapter/neuralnet"
	"github.com/rschaeff/dpamengine/pkg/adapter/pairwise"
	"github.com/rschaeff/dpamengine/pkg/adapter/profilesearch"
	"github.com/rschaeff/dpamengine/pkg/adapter/secstruct"
	"github.com/rschaeff/dpamengine/pkg/adapter/structsearch"
	"github.com/rschaeff/dpamengine/pkg/config"
	"github.com/rschaeff/dpamengine/pkg/engine"
)

// BuildRegistry constructs every adapter from cfg and registers each
// scheduled step's body, producing the fully wired Registry a batch run
// dispatches against.
func BuildRegistry(cfg *config.Config) *engine.Registry {
	profileAdapter := profilesearch.New(profilesearch.Config{
		MSAOverride:     cfg.ProfileSearch.MSA.Override,
		ProfileOverride: cfg.ProfileSearch.Profile.Override,
		SearchOverride:  cfg.ProfileSearch.Search.Override,
		CanonicalPrefix: cfg.CanonicalToolPrefix,
		ReferenceDBPath: cfg.ProfileSearch.ReferenceDBPath,
	})
	structAdapter := structsearch.New(structsearch.Config{
		Override:        cfg.StructSearch.Tool.Override,
		CanonicalPrefix: cfg.CanonicalToolPrefix,
		ReferenceDBPath: cfg.StructSearch.ReferenceDBPath,
	})
	pairwiseAdapter := pairwise.New(pairwise.Config{
		Override:        cfg.Pairwise.Tool.Override,
		CanonicalPrefix: cfg.CanonicalToolPrefix,
	})
	secstructAdapter := secstruct.New(secstruct.Config{
		Override:        cfg.SecStruct.Tool.Override,
		CanonicalPrefix: cfg.CanonicalToolPrefix,
	})
	neuralnetAdapter := neuralnet.New(neuralnet.Config{
		Override:        cfg.NeuralNet.Tool.Override,
		CanonicalPrefix: cfg.CanonicalToolPrefix,
		ModelPath:       cfg.NeuralNet.ModelPath,
		BatchSize:       cfg.NeuralNet.BatchSize,
	})

	reg := engine.NewRegistry()
	reg.Register(Prepare{})
	reg.Register(HHSearchMSA{Adapter: profileAdapter})
	reg.Register(HHSearchProfile{Adapter: profileAdapter})
	reg.Register(HHSearchSearch{Adapter: profileAdapter})
	reg.Register(HHSearchParse{})
	reg.Register(FoldseekCreateDB{Adapter: structAdapter})
	reg.Register(FoldseekSearch{Adapter: structAdapter})
	reg.Register(FoldseekConvertAlis{Adapter: structAdapter})
	reg.Register(FoldseekSplit{})
	reg.Register(TemplateSelect{})
	reg.Register(PairwisePrepare{})
	reg.Register(PairwiseAlign{
		Adapter:              pairwiseAdapter,
		CanonicalTemplateDir: cfg.Pairwise.TemplateLibraryDir,
		TemplateExt:          cfg.Pairwise.TemplateExt,
	})
	reg.Register(PairwiseCollect{})
	reg.Register(PairwiseCollectAlias{})
	reg.Register(SecStructAssign{Adapter: secstructAdapter})
	reg.Register(FeatureAssemble{})
	reg.Register(DpamInfer{Adapter: neuralnetAdapter})
	reg.Register(SegmentCandidatesStep{})
	reg.Register(SegmentScoreStep{})
	reg.Register(DomainMergeStep{})
	reg.Register(DomainSupportStep{})
	reg.Register(DomainNumberingStep{})
	reg.Register(DomainFormatStep{})
	reg.Register(Integrate{})
	return reg
}
