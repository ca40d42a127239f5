package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"constantdb/pkg/constants"
	"constantdb/pkg/logger"
)

// RegistryConfig controls constant discovery and the per-constant storage
// layout. Paths are derived from DataDir: <id>_digits.txt for the canonical
// file, <id>_chunks for the chunk database, <id>_packed.dat for the packed
// file.
type RegistryConfig struct {
	DataDir      string
	ChunkSize    int64
	VerifyEvery  uint64
	SearchWindow int64

	// MinFileSize skips canonical files smaller than this many bytes
	// (placeholder or truncated files).
	MinFileSize int64
}

// DefaultMinFileSize matches the discovery threshold for canonical files.
const DefaultMinFileSize int64 = 100

// Registry owns one Manager per discovered constant and aggregates status
// and bulk-build operations across them.
type Registry struct {
	cfg      RegistryConfig
	managers map[string]*Manager
	order    []string
}

// OpenRegistry walks the known-constant table, skips constants whose
// canonical file is missing or too small, and constructs one Manager per
// remaining constant. A single constant failing to initialize is logged and
// skipped, never fatal to the rest.
func OpenRegistry(cfg RegistryConfig) (*Registry, error) {
	if cfg.MinFileSize == 0 {
		cfg.MinFileSize = DefaultMinFileSize
	}
	r := &Registry{cfg: cfg, managers: map[string]*Manager{}}

	for _, c := range constants.All {
		path := filepath.Join(cfg.DataDir, c.Filename)
		fi, err := os.Stat(path)
		if err != nil {
			logger.Debug("constant_skipped", "id", c.ID, "reason", "file missing", "path", path)
			continue
		}
		if fi.Size() < cfg.MinFileSize {
			logger.Warn("constant_skipped", "id", c.ID, "reason", "file too small", "size", fi.Size())
			continue
		}
		m, err := NewManager(c.ID, Config{
			CanonicalFile: path,
			ChunkDB:       r.ChunkDBPath(c.ID),
			PackedFile:    r.PackedPath(c.ID),
			ChunkSize:     cfg.ChunkSize,
			VerifyEvery:   cfg.VerifyEvery,
			SearchWindow:  cfg.SearchWindow,
		})
		if err != nil {
			logger.Error("constant_init_failed", "id", c.ID, "error", err)
			continue
		}
		r.managers[c.ID] = m
		r.order = append(r.order, c.ID)
		logger.Info("constant_initialized", "id", c.ID, "name", c.Name, "cached", m.HasChunkCache())
	}

	logger.Info("registry_ready", "constants", len(r.order))
	return r, nil
}

// ChunkDBPath returns the chunk database directory for a constant id.
func (r *Registry) ChunkDBPath(id string) string {
	return filepath.Join(r.cfg.DataDir, id+"_chunks")
}

// PackedPath returns the packed file path for a constant id.
func (r *Registry) PackedPath(id string) string {
	return filepath.Join(r.cfg.DataDir, id+"_packed.dat")
}

// Manager returns the manager for id, failing when the constant was not
// discovered.
func (r *Registry) Manager(id string) (*Manager, error) {
	m, ok := r.managers[id]
	if !ok {
		return nil, fmt.Errorf("constant %q: %w", id, ErrNotFound)
	}
	return m, nil
}

// Has reports whether the constant was discovered and initialized.
func (r *Registry) Has(id string) bool {
	_, ok := r.managers[id]
	return ok
}

// Available returns the discovered constant ids in table order.
func (r *Registry) Available() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Status returns the storage snapshot for one constant. Known constants
// without data files report file_exists=false rather than an error; unknown
// ids fail.
func (r *Registry) Status(id string) (ConstantStatus, error) {
	if m, ok := r.managers[id]; ok {
		return m.Status(), nil
	}
	c, ok := constants.Lookup(id)
	if !ok {
		return ConstantStatus{}, fmt.Errorf("constant %q: %w", id, ErrNotFound)
	}
	st := ConstantStatus{ID: id, Name: c.Name, Symbol: c.Symbol, FilePath: filepath.Join(r.cfg.DataDir, c.Filename)}
	if fi, err := os.Stat(st.FilePath); err == nil {
		st.FileExists = true
		st.FileSize = fi.Size()
	}
	return st, nil
}

// AllStatuses returns the snapshot for every known constant.
func (r *Registry) AllStatuses() map[string]ConstantStatus {
	out := make(map[string]ConstantStatus, len(constants.All))
	for _, c := range constants.All {
		st, err := r.Status(c.ID)
		if err != nil {
			continue
		}
		out[c.ID] = st
	}
	return out
}

// BuildSummary aggregates a bulk build.
type BuildSummary struct {
	Results []BuildResult `json:"results"`
	Success int           `json:"success"`
	Skipped int           `json:"skipped"`
	Failed  int           `json:"failed"`
}

// BuildAll builds every available constant's caches sequentially. One
// constant's failure is recorded and does not abort the others.
func (r *Registry) BuildAll(ctx context.Context, force bool, progress func(id string, done, total int64)) BuildSummary {
	var sum BuildSummary
	logger.Info("build_all_started", "constants", len(r.order), "force", force)
	for _, id := range r.order {
		m := r.managers[id]
		var fn func(done, total int64)
		if progress != nil {
			fn = func(done, total int64) { progress(id, done, total) }
		}
		res, err := m.BuildCache(ctx, force, fn)
		if err != nil && res.Status != BuildFailed {
			res.Status = BuildFailed
			res.Error = err.Error()
		}
		sum.Results = append(sum.Results, res)
		switch res.Status {
		case BuildSuccess:
			sum.Success++
		case BuildSkipped:
			sum.Skipped++
		default:
			sum.Failed++
		}
		if err != nil {
			logger.Error("build_failed", "constant", id, "error", err)
			if ctx.Err() != nil {
				break
			}
		}
	}
	logger.Info("build_all_complete", "success", sum.Success, "skipped", sum.Skipped, "failed", sum.Failed)
	return sum
}

// Close closes every manager, returning the first error encountered.
func (r *Registry) Close() error {
	var first error
	for _, id := range r.order {
		if err := r.managers[id].Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
