package steps

import (
	"context"
	"os"
	"path/filepath"

	"github.com/rschaeff/dpamengine/pkg/atomicfile"
	"github.com/rschaeff/dpamengine/pkg/protein"
	"github.com/rschaeff/dpamengine/pkg/runtime"
)

// Integrate is step 24, the last step in the fixed order: it takes step 23's
// formatted domain file, writes it as the declared final artifact, and
// mirrors it into the results directory and the working root, the two
// locations the working-directory layout contract promises a completed
// protein's domains will be found in regardless of layout.
type Integrate struct{}

func (Integrate) StepID() protein.StepID { return protein.StepIntegrate }

func (Integrate) Run(ctx context.Context, rc *runtime.Context, proteinID string) error {
	var formatted DomainFormatted
	if err := readArtifact(rc, proteinID, protein.StepDomainFormat, protein.KindDomainFormatted, &formatted); err != nil {
		return err
	}

	final := DomainFormatted{ProteinID: proteinID, Domains: formatted.Domains}
	if err := writeArtifact(rc, proteinID, protein.StepIntegrate, protein.KindFinalDomains, final); err != nil {
		return err
	}
	declaredPath := artifactPath(rc, proteinID, protein.StepIntegrate, protein.KindFinalDomains)

	if err := atomicfile.EnsureDir(rc.Resolver.ResultsDir()); err != nil {
		return err
	}
	resultsPath := filepath.Join(rc.Resolver.ResultsDir(), proteinID+"."+string(protein.KindFinalDomains))
	if err := mirrorFile(declaredPath, resultsPath); err != nil {
		return err
	}

	rootPath := rc.Resolver.RawInputPath(proteinID, string(protein.KindFinalDomains))
	return mirrorFile(declaredPath, rootPath)
}

// mirrorFile copies src's bytes to dst atomically; src was just written by
// writeArtifact so it is known to exist and be well-formed.
func mirrorFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return atomicfile.WriteBytes(dst, data)
}
