package osfilesystem

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFileSystem_WriteAndReadFile(t *testing.T) {
	fs := New()
	path := filepath.Join(t.TempDir(), "clip.mp4")

	if err := fs.WriteFile(path, []byte("hello world")); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	data, err := fs.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(data) != "hello world" {
		t.Errorf("expected %q, got %q", "hello world", data)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0644 {
		t.Errorf("expected mode 0644, got %v", info.Mode().Perm())
	}
}

func TestFileSystem_WriteFileReplaces(t *testing.T) {
	fs := New()
	dir := t.TempDir()
	path := filepath.Join(dir, "clip.mp4")

	if err := fs.WriteFile(path, []byte("first version")); err != nil {
		t.Fatal(err)
	}
	if err := fs.WriteFile(path, []byte("second")); err != nil {
		t.Fatal(err)
	}
	data, _ := fs.ReadFile(path)
	if string(data) != "second" {
		t.Errorf("expected replaced contents, got %q", data)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("expected no temporary files left, got %d entries", len(entries))
	}
}

func TestFileSystem_WriteFileCreatesParentDirs(t *testing.T) {
	fs := New()
	path := filepath.Join(t.TempDir(), "a", "b", "c", "test.txt")

	if err := fs.WriteFile(path, []byte("test")); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	exists, err := fs.Exists(path)
	if err != nil || !exists {
		t.Errorf("expected file to exist, got %v (%v)", exists, err)
	}
}

func TestFileSystem_MkdirAllExistsRemove(t *testing.T) {
	fs := New()
	dir := filepath.Join(t.TempDir(), "frames", "source")

	if exists, _ := fs.Exists(dir); exists {
		t.Fatal("directory should not exist yet")
	}
	if err := fs.MkdirAll(dir); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	if exists, _ := fs.Exists(dir); !exists {
		t.Error("expected directory to exist")
	}
	if err := fs.Remove(dir); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if exists, _ := fs.Exists(dir); exists {
		t.Error("expected directory to be removed")
	}
}

func TestFileSystem_ReadMissing(t *testing.T) {
	if _, err := New().ReadFile(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("expected error for missing file")
	}
}
