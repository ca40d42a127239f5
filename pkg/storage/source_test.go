package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestOpenFileSourceMissing(t *testing.T) {
	_, err := OpenFileSource(filepath.Join(t.TempDir(), "nope.txt"))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFileSourceGet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "digits.txt")
	writeFile(t, path, "3.14159265358979")

	fs, err := OpenFileSource(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer fs.Close()

	if fs.FileSize() != 16 {
		t.Fatalf("file size = %d, want 16", fs.FileSize())
	}
	got, err := fs.Get(0, 5)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != "3.141" {
		t.Fatalf("got %q, want %q", got, "3.141")
	}
}

func TestFileSourceGetShortAtEOF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "digits.txt")
	writeFile(t, path, "314159")

	fs, err := OpenFileSource(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer fs.Close()

	got, err := fs.Get(4, 10)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != "59" {
		t.Fatalf("got %q, want %q", got, "59")
	}
}

func TestFileSourceGetBeyondEOF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "digits.txt")
	writeFile(t, path, "314159")

	fs, err := OpenFileSource(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer fs.Close()

	if _, err := fs.Get(100, 5); err == nil {
		t.Fatal("expected error for offset beyond file size")
	}
}

func TestFileSourceInvalidRange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "digits.txt")
	writeFile(t, path, "314159")

	fs, err := OpenFileSource(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer fs.Close()

	if _, err := fs.Get(-1, 5); err == nil {
		t.Fatal("expected error for negative start")
	}
	if _, err := fs.Get(0, 0); err == nil {
		t.Fatal("expected error for zero length")
	}
}

func TestFileSourceClosedGet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "digits.txt")
	writeFile(t, path, "314159")

	fs, err := OpenFileSource(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := fs.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := fs.Get(0, 3); err == nil {
		t.Fatal("expected error reading a closed source")
	}
}
