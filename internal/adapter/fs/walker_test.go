package fs

import (
	"os"
	"path/filepath"
	"testing"
)

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestWalkDefaultIncludes(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "report.pdf"))
	touch(t, filepath.Join(dir, "sub", "minutes.docx"))
	touch(t, filepath.Join(dir, "notes.txt"))

	w := NewWalker(nil, nil)
	files, err := w.Walk(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 2 {
		t.Fatalf("expected 2 files, got %d: %v", len(files), files)
	}
	for _, f := range files {
		if filepath.Ext(f) == ".txt" {
			t.Errorf("txt file should not match default includes: %s", f)
		}
	}
}

func TestWalkExcludes(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "keep.csv"))
	touch(t, filepath.Join(dir, "archive", "old.csv"))

	w := NewWalker(nil, []string{"archive/**"})
	files, err := w.Walk(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 1 {
		t.Fatalf("expected 1 file, got %v", files)
	}
	if filepath.Base(files[0]) != "keep.csv" {
		t.Errorf("unexpected file survived excludes: %s", files[0])
	}
}
