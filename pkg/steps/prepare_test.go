package steps

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rschaeff/dpamengine/pkg/protein"
)

func writeRawInputs(t *testing.T, dir, proteinID, structureBody, confidenceBody string) (structPath, confPath string) {
	t.Helper()
	structPath = filepath.Join(dir, proteinID+".pdb")
	confPath = filepath.Join(dir, proteinID+".json")
	if err := os.WriteFile(structPath, []byte(structureBody), 0o644); err != nil {
		t.Fatalf("write raw structure: %v", err)
	}
	if err := os.WriteFile(confPath, []byte(confidenceBody), 0o644); err != nil {
		t.Fatalf("write raw confidence: %v", err)
	}
	return structPath, confPath
}

func TestPrepareCopiesRawStructureIntoNormalizedLayout(t *testing.T) {
	rc := newTestRuntime(t, []string{"p1"})
	rawDir := t.TempDir()
	structPath, confPath := writeRawInputs(t, rawDir, "p1", "ATOM body", `{"confidence":1}`)
	rc.Proteins = map[string]protein.Protein{"p1": {ID: "p1", StructurePath: structPath, ConfidencePath: confPath}}

	if err := (Prepare{}).Run(context.Background(), rc, "p1"); err != nil {
		t.Fatalf("Prepare.Run: %v", err)
	}

	dest := artifactPath(rc, "p1", protein.StepPrepare, protein.KindNormalizedStructure)
	got, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("read normalized structure: %v", err)
	}
	if string(got) != "ATOM body" {
		t.Fatalf("got %q, want %q", got, "ATOM body")
	}
}

func TestPrepareFailsWhenRawStructureMissing(t *testing.T) {
	rc := newTestRuntime(t, []string{"p1"})
	rc.Proteins = map[string]protein.Protein{"p1": {ID: "p1", StructurePath: "/no/such/file.pdb", ConfidencePath: "/no/such/file.json"}}

	if err := (Prepare{}).Run(context.Background(), rc, "p1"); err == nil {
		t.Fatal("expected an error when the raw structure input does not exist")
	}
}

func TestPrepareFailsWhenConfidenceMissing(t *testing.T) {
	rc := newTestRuntime(t, []string{"p1"})
	rawDir := t.TempDir()
	structPath, _ := writeRawInputs(t, rawDir, "p1", "ATOM body", "")
	rc.Proteins = map[string]protein.Protein{"p1": {ID: "p1", StructurePath: structPath, ConfidencePath: filepath.Join(rawDir, "missing.json")}}

	if err := (Prepare{}).Run(context.Background(), rc, "p1"); err == nil {
		t.Fatal("expected an error when the confidence matrix does not exist")
	}
}

func TestPrepareFailsForUnenrolledProtein(t *testing.T) {
	rc := newTestRuntime(t, []string{"p1"})
	if err := (Prepare{}).Run(context.Background(), rc, "ghost"); err == nil {
		t.Fatal("expected an error for a protein with no input record")
	}
}
