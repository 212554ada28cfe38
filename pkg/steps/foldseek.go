package steps

import (
	"context"
	"os"

	"github.com/rschaeff/dpamengine/pkg/adapter"
	"github.com/rschaeff/dpamengine/pkg/adapter/structsearch"
	"github.com/rschaeff/dpamengine/pkg/dpamerrors"
	"github.com/rschaeff/dpamengine/pkg/protein"
	"github.com/rschaeff/dpamengine/pkg/runtime"
)

// foldseekQueryDBCacheKey is the batch cache key FoldseekCreateDB publishes
// the combined query database path under, so the later batched-bulk stages
// of the same run read the value it already resolved instead of
// recomputing it. A process that starts fresh on resume (cache empty) falls
// back to recomputing the same deterministic path.
const foldseekQueryDBCacheKey = "foldseek.query_db_path"

// FoldseekCreateDB is step 6 (batched-bulk): build one combined query
// structure database from every pending protein's normalized structure, the
// first of the three primitives the structural search adapter exposes so
// the batched-bulk step can amortize reference-index load across the whole
// pending set.
type FoldseekCreateDB struct {
	Adapter *structsearch.Adapter
}

func (FoldseekCreateDB) StepID() protein.StepID { return protein.StepFoldseekCreateDB }

func (s FoldseekCreateDB) CheckAvailability() error {
	if s.Adapter.CheckAvailability() {
		return nil
	}
	return dpamerrors.New(dpamerrors.KindToolMissing, "structure search executable not found")
}

func (s FoldseekCreateDB) RunBatch(ctx context.Context, rc *runtime.Context, proteinIDs []string) error {
	if err := ensureStepDir(rc, protein.StepFoldseekCreateDB); err != nil {
		return err
	}
	structurePaths := make([]string, 0, len(proteinIDs))
	for _, id := range proteinIDs {
		structurePaths = append(structurePaths, artifactPath(rc, id, protein.StepPrepare, protein.KindNormalizedStructure))
	}
	dbPath := batchArtifactPath(rc, protein.StepFoldseekCreateDB, protein.KindFoldseekQueryDB)
	if err := s.Adapter.CreateDB(ctx, structurePaths, dbPath, rc.Resolver.StepDir(protein.StepFoldseekCreateDB)); err != nil {
		return err
	}
	rc.Cache.Set(foldseekQueryDBCacheKey, dbPath)
	return nil
}

// foldseekQueryDBPath returns the combined query database path, preferring
// the value FoldseekCreateDB cached this run over recomputing it.
func foldseekQueryDBPath(rc *runtime.Context) string {
	if path, ok := rc.Cache.GetString(foldseekQueryDBCacheKey); ok {
		return path
	}
	return batchArtifactPath(rc, protein.StepFoldseekCreateDB, protein.KindFoldseekQueryDB)
}

// FoldseekSearch is step 7 (batched-bulk, critical): one combined
// structure-structure search of the whole pending set's query database
// against the reference database.
type FoldseekSearch struct {
	Adapter *structsearch.Adapter
}

func (FoldseekSearch) StepID() protein.StepID { return protein.StepFoldseekSearch }

func (s FoldseekSearch) CheckAvailability() error {
	if s.Adapter.CheckAvailability() {
		return nil
	}
	return dpamerrors.New(dpamerrors.KindToolMissing, "structure search executable not found")
}

func (s FoldseekSearch) RunBatch(ctx context.Context, rc *runtime.Context, proteinIDs []string) error {
	if err := ensureStepDir(rc, protein.StepFoldseekSearch); err != nil {
		return err
	}
	queryDB := foldseekQueryDBPath(rc)
	alnDB := batchArtifactPath(rc, protein.StepFoldseekSearch, protein.KindFoldseekAlnDB)
	return s.Adapter.Search(ctx, queryDB, alnDB, rc.Resolver.StepDir(protein.StepFoldseekSearch))
}

// FoldseekConvertAlis is step 8 (batched-bulk): convert the combined raw
// alignment database into one tabular hits file covering every pending
// protein, which step 9 later splits per protein.
type FoldseekConvertAlis struct {
	Adapter *structsearch.Adapter
}

func (FoldseekConvertAlis) StepID() protein.StepID { return protein.StepFoldseekConvertAlis }

func (s FoldseekConvertAlis) CheckAvailability() error {
	if s.Adapter.CheckAvailability() {
		return nil
	}
	return dpamerrors.New(dpamerrors.KindToolMissing, "structure search executable not found")
}

func (s FoldseekConvertAlis) RunBatch(ctx context.Context, rc *runtime.Context, proteinIDs []string) error {
	if err := ensureStepDir(rc, protein.StepFoldseekConvertAlis); err != nil {
		return err
	}
	queryDB := foldseekQueryDBPath(rc)
	alnDB := batchArtifactPath(rc, protein.StepFoldseekSearch, protein.KindFoldseekAlnDB)
	hitsPath := batchArtifactPath(rc, protein.StepFoldseekConvertAlis, protein.KindFoldseekHitsTabular)
	_, err := s.Adapter.ConvertAlis(ctx, queryDB, alnDB, hitsPath, rc.Resolver.StepDir(protein.StepFoldseekConvertAlis))
	return err
}

// FoldseekSplit is step 9: split the batch's combined tabular hits into a
// per-protein hit set.
type FoldseekSplit struct{}

func (FoldseekSplit) StepID() protein.StepID { return protein.StepFoldseekSplit }

func (FoldseekSplit) Run(ctx context.Context, rc *runtime.Context, proteinID string) error {
	combined := batchArtifactPath(rc, protein.StepFoldseekConvertAlis, protein.KindFoldseekHitsTabular)
	f, err := os.Open(combined)
	if err != nil {
		return dpamerrors.Wrap(dpamerrors.KindInputMissing, err, "open combined structure-search hits")
	}
	defer f.Close()

	hits, err := adapter.ParseTabularHits(f)
	if err != nil {
		return err
	}

	var mine []adapter.Hit
	for _, h := range hits {
		if h.QueryID == proteinID {
			mine = append(mine, h)
		}
	}
	return writeArtifact(rc, proteinID, protein.StepFoldseekSplit, protein.KindFoldseekHitsSplit, mine)
}
