package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func newTestRegistry(t *testing.T) (*Registry, string) {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "pi_digits.txt"), makeDigits(1000)+"\n")
	// too small to be a real digit file
	writeFile(t, filepath.Join(dir, "e_digits.txt"), "27182818")

	reg, err := OpenRegistry(RegistryConfig{DataDir: dir, ChunkSize: 100})
	if err != nil {
		t.Fatalf("open registry: %v", err)
	}
	t.Cleanup(func() { reg.Close() })
	return reg, dir
}

func TestRegistryDiscovery(t *testing.T) {
	reg, _ := newTestRegistry(t)

	avail := reg.Available()
	if len(avail) != 1 || avail[0] != "pi" {
		t.Fatalf("available = %v, want [pi]", avail)
	}
	if !reg.Has("pi") {
		t.Fatal("pi should be discovered")
	}
	if reg.Has("e") {
		t.Fatal("undersized e file should be skipped")
	}
	if _, err := reg.Manager("e"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for skipped constant, got %v", err)
	}
}

func TestRegistryPaths(t *testing.T) {
	reg, dir := newTestRegistry(t)
	if got := reg.ChunkDBPath("pi"); got != filepath.Join(dir, "pi_chunks") {
		t.Fatalf("chunk path = %q", got)
	}
	if got := reg.PackedPath("pi"); got != filepath.Join(dir, "pi_packed.dat") {
		t.Fatalf("packed path = %q", got)
	}
}

func TestRegistryStatus(t *testing.T) {
	reg, _ := newTestRegistry(t)

	st, err := reg.Status("pi")
	if err != nil {
		t.Fatalf("status pi: %v", err)
	}
	if !st.FileExists || st.CacheExists {
		t.Fatalf("pi status = %+v", st)
	}

	// known constant, present but undersized file
	st, err = reg.Status("e")
	if err != nil {
		t.Fatalf("status e: %v", err)
	}
	if !st.FileExists || st.FileSize != 8 {
		t.Fatalf("e status = %+v", st)
	}

	// known constant, no file at all
	st, err = reg.Status("zeta3")
	if err != nil {
		t.Fatalf("status zeta3: %v", err)
	}
	if st.FileExists {
		t.Fatalf("zeta3 should have no file: %+v", st)
	}

	if _, err := reg.Status("bogus"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown id, got %v", err)
	}
}

func TestRegistryAllStatuses(t *testing.T) {
	reg, _ := newTestRegistry(t)
	all := reg.AllStatuses()
	if len(all) != 12 {
		t.Fatalf("got %d statuses, want one per known constant", len(all))
	}
	if !all["pi"].FileExists {
		t.Fatal("pi should report an existing file")
	}
}

func TestRegistryBuildAll(t *testing.T) {
	reg, _ := newTestRegistry(t)

	var progressed bool
	sum := reg.BuildAll(context.Background(), false, func(id string, done, total int64) {
		if id != "pi" {
			t.Fatalf("unexpected progress for %q", id)
		}
		progressed = true
	})
	if sum.Success != 1 || sum.Failed != 0 || sum.Skipped != 0 {
		t.Fatalf("summary = %+v", sum)
	}
	if !progressed {
		t.Fatal("progress callback never fired")
	}

	sum = reg.BuildAll(context.Background(), false, nil)
	if sum.Skipped != 1 || sum.Success != 0 {
		t.Fatalf("second summary = %+v", sum)
	}
}
