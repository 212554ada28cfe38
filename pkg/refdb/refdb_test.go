package refdb

import (
	"archive/tar"
	"compress/gzip"
	"os"
	"path/filepath"
	"testing"
)

func createTestTarGz(t *testing.T, dir string, files map[string]string, archiveName string) string {
	t.Helper()
	archivePath := filepath.Join(dir, archiveName)
	tarFile, err := os.Create(archivePath)
	if err != nil {
		t.Fatalf("create archive: %v", err)
	}
	defer tarFile.Close()

	gzipWriter := gzip.NewWriter(tarFile)
	defer gzipWriter.Close()
	tarWriter := tar.NewWriter(gzipWriter)
	defer tarWriter.Close()

	for name, content := range files {
		hdr := &tar.Header{Name: name, Mode: 0o644, Size: int64(len(content))}
		if err := tarWriter.WriteHeader(hdr); err != nil {
			t.Fatalf("write header %s: %v", name, err)
		}
		if _, err := tarWriter.Write([]byte(content)); err != nil {
			t.Fatalf("write content %s: %v", name, err)
		}
	}
	return archivePath
}

func TestUnpackExtractsAllEntries(t *testing.T) {
	srcDir := t.TempDir()
	archivePath := createTestTarGz(t, srcDir, map[string]string{
		"profile_db/db.hhm":    "profile data",
		"profile_db/db.index":  "index data",
		"templates/1abc.pdb":   "template data",
	}, "refdb.tar.gz")

	destRoot := filepath.Join(t.TempDir(), "db-root")
	var seen []string
	err := Unpack(Options{
		ArchivePath: archivePath,
		DestRoot:    destRoot,
		Progress:    func(name string, _ int64) { seen = append(seen, name) },
	})
	if err != nil {
		t.Fatalf("Unpack: %v", err)
	}

	for _, rel := range []string{"profile_db/db.hhm", "profile_db/db.index", "templates/1abc.pdb"} {
		if _, err := os.Stat(filepath.Join(destRoot, rel)); err != nil {
			t.Fatalf("expected %s to be extracted: %v", rel, err)
		}
	}
	if len(seen) == 0 {
		t.Fatal("expected progress callback to be invoked")
	}
}

func TestUnpackSkipsExistingFilesWithoutOverwrite(t *testing.T) {
	srcDir := t.TempDir()
	archivePath := createTestTarGz(t, srcDir, map[string]string{"db.hhm": "new data"}, "refdb.tar.gz")

	destRoot := t.TempDir()
	existing := filepath.Join(destRoot, "db.hhm")
	if err := os.WriteFile(existing, []byte("original data"), 0o644); err != nil {
		t.Fatalf("seed existing file: %v", err)
	}

	if err := Unpack(Options{ArchivePath: archivePath, DestRoot: destRoot}); err != nil {
		t.Fatalf("Unpack: %v", err)
	}

	data, err := os.ReadFile(existing)
	if err != nil {
		t.Fatalf("read existing: %v", err)
	}
	if string(data) != "original data" {
		t.Fatalf("expected existing file untouched, got %q", data)
	}
}

func TestUnpackOverwriteReplacesExistingFiles(t *testing.T) {
	srcDir := t.TempDir()
	archivePath := createTestTarGz(t, srcDir, map[string]string{"db.hhm": "new data"}, "refdb.tar.gz")

	destRoot := t.TempDir()
	existing := filepath.Join(destRoot, "db.hhm")
	if err := os.WriteFile(existing, []byte("original data"), 0o644); err != nil {
		t.Fatalf("seed existing file: %v", err)
	}

	if err := Unpack(Options{ArchivePath: archivePath, DestRoot: destRoot, Overwrite: true}); err != nil {
		t.Fatalf("Unpack: %v", err)
	}

	data, err := os.ReadFile(existing)
	if err != nil {
		t.Fatalf("read existing: %v", err)
	}
	if string(data) != "new data" {
		t.Fatalf("expected file overwritten, got %q", data)
	}
}

func TestUnpackMissingArchiveErrors(t *testing.T) {
	err := Unpack(Options{ArchivePath: filepath.Join(t.TempDir(), "missing.tar.gz"), DestRoot: t.TempDir()})
	if err == nil {
		t.Fatal("expected an error for a missing archive")
	}
}

func TestUnpackRequiresArchivePathAndDestRoot(t *testing.T) {
	if err := Unpack(Options{DestRoot: t.TempDir()}); err == nil {
		t.Fatal("expected an error for an empty archive path")
	}
	if err := Unpack(Options{ArchivePath: "archive.tar.gz"}); err == nil {
		t.Fatal("expected an error for an empty destination root")
	}
}
