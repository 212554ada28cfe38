package cmd

import (
	"context"
	"fmt"

	"github.com/rschaeff/dpamengine/pkg/config"
	"github.com/rschaeff/dpamengine/pkg/engine"
	"github.com/rschaeff/dpamengine/pkg/logger"
	"github.com/rschaeff/dpamengine/pkg/pathresolver"
	"github.com/rschaeff/dpamengine/pkg/protein"
	"github.com/rschaeff/dpamengine/pkg/runtime"
	"github.com/rschaeff/dpamengine/pkg/scratch"
	"github.com/rschaeff/dpamengine/pkg/state"
	"github.com/rschaeff/dpamengine/pkg/steps"
)

// parseLayout maps a config layout string to a pathresolver.Layout,
// defaulting to Sharded for anything unrecognized since Config.Validate
// already rejects values other than "sharded" and "flat".
func parseLayout(s string) pathresolver.Layout {
	if s == "flat" {
		return pathresolver.Flat
	}
	return pathresolver.Sharded
}

// runBatch wires config into a resolver, state store, scratch manager, step
// registry, and runner, then drives every discovered protein through the
// fixed step order. autoDetectLayout is true for resume: the working root's
// existing layout wins over cfg.Layout.
func runBatch(ctx context.Context, cfg *config.Config, autoDetectLayout bool) error {
	log := logger.Get()

	layout := parseLayout(cfg.Layout)
	if autoDetectLayout {
		detected, err := pathresolver.DetectLayout(cfg.WorkingRoot)
		if err != nil {
			return fmt.Errorf("detect layout at %s: %w", cfg.WorkingRoot, err)
		}
		layout = detected
		log.Infof("resume: detected %s layout at %s", layout, cfg.WorkingRoot)
	}
	resolver := pathresolver.New(cfg.WorkingRoot, layout)

	discovered, err := protein.Discover(cfg.WorkingRoot, cfg.StructureExt, cfg.ConfidenceExt)
	if err != nil {
		return fmt.Errorf("discover proteins: %w", err)
	}
	if len(discovered) == 0 {
		return fmt.Errorf("no proteins found under %s matching *.%s/*.%s", cfg.WorkingRoot, cfg.StructureExt, cfg.ConfidenceExt)
	}
	proteinIDs := make([]string, 0, len(discovered))
	proteins := make(map[string]protein.Protein, len(discovered))
	for _, p := range discovered {
		proteinIDs = append(proteinIDs, p.ID)
		proteins[p.ID] = p
	}
	log.Infof("enrolled %d protein(s)", len(proteinIDs))

	store, err := state.Open(resolver, cfg.BatchID, proteinIDs)
	if err != nil {
		return fmt.Errorf("open state store: %w", err)
	}

	scratchMgr := scratch.New(scratch.Config{
		Override:          cfg.ScratchOverrideRoot,
		CanonicalLocalDir: cfg.ScratchCanonicalDir,
	}, log)

	rc := runtime.New(ctx, cfg.BatchID, resolver, store, scratchMgr, log, proteins)
	registry := steps.BuildRegistry(cfg)
	runner := engine.NewRunner(registry, rc, cfg.Workers, cfg.PairwiseFanoutMultiplier)

	return runner.Run(ctx, proteinIDs)
}
