package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"constantdb/pkg/constants"
	"constantdb/pkg/logger"
	"constantdb/pkg/telemetry"
)

const (
	// DefaultChunkSize is the build stride in digits. Must be even so packed
	// writes never share a byte across chunk boundaries.
	DefaultChunkSize int64 = 10000

	// DefaultVerifyEvery samples one read in N for cross-verification.
	DefaultVerifyEvery uint64 = 100

	// MaxRequestLength caps a single GetDigits call.
	MaxRequestLength int64 = 1_000_000

	// DefaultSearchWindow is the scan stride for SearchSequence.
	DefaultSearchWindow int64 = 100_000
)

// Config holds the storage layout and tunables for one constant.
type Config struct {
	CanonicalFile string
	ChunkDB       string
	PackedFile    string
	ChunkSize     int64
	VerifyEvery   uint64
	SearchWindow  int64
}

func (c *Config) applyDefaults() {
	if c.ChunkSize == 0 {
		c.ChunkSize = DefaultChunkSize
	}
	if c.VerifyEvery == 0 {
		c.VerifyEvery = DefaultVerifyEvery
	}
	if c.SearchWindow <= 0 {
		c.SearchWindow = DefaultSearchWindow
	}
}

// ConstantStatus is a derived snapshot of one constant's storage state,
// recomputed on demand and never itself a source of truth.
type ConstantStatus struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Symbol        string `json:"symbol"`
	FileExists    bool   `json:"file_exists"`
	FilePath      string `json:"file_path"`
	FileSize      int64  `json:"file_size"`
	CacheExists   bool   `json:"cache_exists"`
	CacheComplete bool   `json:"cache_complete"`
	CachedDigits  int64  `json:"cached_digits"`
}

// BuildStatus is the outcome of one BuildCache call.
type BuildStatus string

const (
	BuildSuccess BuildStatus = "success"
	BuildSkipped BuildStatus = "skipped"
	BuildFailed  BuildStatus = "failed"
)

// BuildResult reports the outcome of a cache build for one constant.
type BuildResult struct {
	Constant      string      `json:"constant"`
	Name          string      `json:"name"`
	Status        BuildStatus `json:"status"`
	Reason        string      `json:"reason,omitempty"`
	CachedDigits  int64       `json:"cached_digits,omitempty"`
	CacheComplete bool        `json:"cache_complete,omitempty"`
	Error         string      `json:"error,omitempty"`
}

// digitIndex maps digit positions onto raw byte offsets of the canonical
// file. A position is counted over digits only, so the index records where
// every formatting character (decimal point, whitespace) sits; everything
// downstream of the file source addresses the same cleaned digit stream.
type digitIndex struct {
	fmtOffsets []int64
	digits     int64
}

func buildDigitIndex(f *FileSource) (digitIndex, error) {
	const block = 64 * 1024
	var idx digitIndex
	size := f.FileSize()
	for off := int64(0); off < size; off += block {
		raw, err := f.Get(off, min64(block, size-off))
		if err != nil {
			return digitIndex{}, fmt.Errorf("index canonical file: %w", err)
		}
		for i := 0; i < len(raw); i++ {
			switch raw[i] {
			case '.', ' ', '\n', '\r', '\t':
				idx.fmtOffsets = append(idx.fmtOffsets, off+int64(i))
			}
		}
	}
	idx.digits = size - int64(len(idx.fmtOffsets))
	return idx, nil
}

// byteOffset returns the raw byte offset of the p-th digit. A formatting
// character at byte o with index i in fmtOffsets has o-i digits before it,
// so it precedes digit p exactly when o-i <= p.
func (d digitIndex) byteOffset(p int64) int64 {
	c := sort.Search(len(d.fmtOffsets), func(i int) bool {
		return d.fmtOffsets[i]-int64(i) > p
	})
	return p + int64(c)
}

// Manager orchestrates reads across the three sources for one constant:
// chunk store preferred, canonical file as fallback and ground truth, packed
// store as the third copy for cross-verification. It also drives the build
// pipeline that populates the derived stores.
type Manager struct {
	id  string
	cfg Config

	file   *FileSource
	chunks *ChunkStore
	packed *PackedStore
	index  digitIndex

	requests atomic.Uint64

	// buildMu serializes cache builds; reads never take it.
	buildMu sync.Mutex
}

// NewManager opens all three sources, indexes the canonical file's formatting
// characters and runs the bootstrap integrity check. The canonical file must
// exist; the derived stores are created as needed.
func NewManager(id string, cfg Config) (*Manager, error) {
	cfg.applyDefaults()
	if cfg.ChunkSize <= 0 || cfg.ChunkSize%2 != 0 {
		return nil, storageErrf("init", "chunk size %d must be positive and even", cfg.ChunkSize)
	}

	file, err := OpenFileSource(cfg.CanonicalFile)
	if err != nil {
		return nil, err
	}
	index, err := buildDigitIndex(file)
	if err != nil {
		file.Close()
		return nil, err
	}
	chunks, err := OpenChunkStore(cfg.ChunkDB)
	if err != nil {
		file.Close()
		return nil, err
	}
	m := &Manager{
		id:     id,
		cfg:    cfg,
		file:   file,
		chunks: chunks,
		packed: NewPackedStore(cfg.PackedFile),
		index:  index,
	}
	if err := m.verifyBootstrap(); err != nil {
		m.Close()
		return nil, err
	}
	return m, nil
}

// verifyBootstrap reads the first ~60 raw characters, strips formatting and
// checks the 50-digit prefix. Identification against the known-constant
// table is informational; the only hard failure is a non-digit prefix,
// which means the file is not a digit sequence at all.
func (m *Manager) verifyBootstrap() error {
	raw, err := m.file.Get(0, 60)
	if err != nil {
		return fmt.Errorf("bootstrap read: %w", err)
	}
	cleaned := cleanRaw(raw)
	if len(cleaned) > 50 {
		cleaned = cleaned[:50]
	}
	if !isDigits(cleaned) {
		return corruptionf("file", "canonical file %s contains non-digit characters: %q", m.cfg.CanonicalFile, cleaned)
	}
	if c, ok := constants.Identify(cleaned); ok {
		logger.Info("constant_identified", "id", m.id, "name", c.Name, "symbol", c.Symbol)
	} else {
		logger.Warn("constant_unidentified", "id", m.id, "prefix", cleaned)
	}
	return nil
}

// Close releases the file handle and chunk database.
func (m *Manager) Close() error {
	var first error
	if err := m.file.Close(); err != nil {
		first = err
	}
	if err := m.chunks.Close(); err != nil && first == nil {
		first = err
	}
	return first
}

// ID returns the constant id this manager serves.
func (m *Manager) ID() string { return m.id }

// FileSize returns the canonical file's byte length, formatting included.
func (m *Manager) FileSize() int64 { return m.file.FileSize() }

// DigitCount returns the number of digits in the canonical file once
// formatting characters are stripped. All positions address this stream.
func (m *Manager) DigitCount() int64 { return m.index.digits }

// HasChunkCache reports whether the chunk store holds any data.
func (m *Manager) HasChunkCache() bool { return m.chunks.HasData() }

// HasPackedCache reports whether the packed file exists and is non-empty.
func (m *Manager) HasPackedCache() bool { return m.packed.HasData() }

// VerifyAllChunks runs a full chunk-store audit without touching the read
// path.
func (m *Manager) VerifyAllChunks() ([]ChunkVerification, error) {
	return m.chunks.VerifyAllChunks()
}

// readOutcome tags a layered-read attempt: a hit carries the digits and the
// source that produced them, a miss carries the reason. The manager decides
// the next source to try instead of branching on thrown errors.
type readOutcome struct {
	source string
	digits string
	err    error
}

func (o readOutcome) hit() bool { return o.err == nil }

// GetDigits returns exactly length digits starting at 0-based position
// start. The chunk store is preferred; every verifyEvery-th request (or any
// forceVerify request) is cross-checked against the canonical file and, when
// present, the packed store. Structural cache failures fall back to the
// canonical file; verification mismatches are fatal to the call.
func (m *Manager) GetDigits(start, length int64, forceVerify bool) (string, error) {
	if err := m.checkRange(start, length); err != nil {
		return "", err
	}

	n := m.requests.Add(1)
	verifyNeeded := forceVerify || n%m.cfg.VerifyEvery == 0

	if m.chunks.HasData() {
		out := m.tryChunks(start, length)
		if out.hit() {
			if verifyNeeded {
				if err := m.crossVerify(start, length, out.digits); err != nil {
					telemetry.Verifications.WithLabelValues(m.id, "failed").Inc()
					return "", err
				}
				telemetry.Verifications.WithLabelValues(m.id, "ok").Inc()
			}
			telemetry.DigitRequests.WithLabelValues(m.id, out.source).Inc()
			return out.digits, nil
		}
		if verifyNeeded && IsCorruption(out.err) {
			// Verification was requested: real data-at-rest damage must
			// surface, not self-heal.
			telemetry.CorruptionDetected.WithLabelValues(m.id, "chunks").Inc()
			return "", out.err
		}
		logger.Warn("chunk_read_fallback", "constant", m.id, "start", start, "length", length, "error", out.err)
		telemetry.CacheFallbacks.WithLabelValues(m.id, fallbackReason(out.err)).Inc()
	}

	digits, err := m.cleanedFromFile(start, length)
	if err != nil {
		return "", err
	}
	telemetry.DigitRequests.WithLabelValues(m.id, "file").Inc()
	return digits, nil
}

func (m *Manager) checkRange(start, length int64) error {
	switch {
	case start < 0:
		return invalidf("get digits", "start %d must be non-negative", start)
	case length <= 0:
		return invalidf("get digits", "length %d must be positive", length)
	case length > MaxRequestLength:
		return invalidf("get digits", "length %d exceeds maximum %d", length, MaxRequestLength)
	case start+length > m.index.digits:
		return invalidf("get digits", "range %d-%d exceeds available digits (%d)", start, start+length, m.index.digits)
	}
	return nil
}

func (m *Manager) tryChunks(start, length int64) readOutcome {
	digits, err := m.chunks.Get(start, length)
	if err != nil {
		return readOutcome{source: "chunks", err: err}
	}
	if !isDigits(digits) {
		return readOutcome{source: "chunks", err: corruptionf("chunks", "non-digit content in range %d-%d", start, start+length)}
	}
	return readOutcome{source: "chunks", digits: digits}
}

// crossVerify compares a chunk-store result against the canonical file and,
// when available, the packed store. Any divergence is a CorruptionError.
func (m *Manager) crossVerify(start, length int64, got string) error {
	want, err := m.cleanedFromFile(start, length)
	if err != nil {
		return fmt.Errorf("verification read: %w", err)
	}
	if got != want {
		telemetry.CorruptionDetected.WithLabelValues(m.id, "chunks").Inc()
		return corruptionf("chunks", "divergence from canonical file at position %d", start)
	}
	if m.packed.HasData() {
		packed, err := m.packed.Get(start, length)
		switch {
		case err == nil:
			if packed != got {
				telemetry.CorruptionDetected.WithLabelValues(m.id, "packed").Inc()
				return corruptionf("packed", "divergence from chunk store at position %d", start)
			}
		case IsCorruption(err):
			telemetry.CorruptionDetected.WithLabelValues(m.id, "packed").Inc()
			return err
		default:
			// Partial build: the packed span may simply not exist yet.
			logger.Debug("packed_verify_unavailable", "constant", m.id, "start", start, "error", err)
		}
	}
	return nil
}

// cleanedFromFile reads a digit range from the canonical file. The digit
// index maps the position range onto the covering raw byte span, so the
// cleaned result lines up with chunk and packed content at the same
// positions regardless of formatting characters anywhere in the file.
func (m *Manager) cleanedFromFile(start, length int64) (string, error) {
	if start < 0 || length <= 0 || start+length > m.index.digits {
		return "", storageErrf("read canonical", "range %d-%d exceeds available digits (%d)", start, start+length, m.index.digits)
	}
	first := m.index.byteOffset(start)
	last := m.index.byteOffset(start + length - 1)
	raw, err := m.file.Get(first, last-first+1)
	if err != nil {
		return "", err
	}
	cleaned := cleanRaw(raw)
	if int64(len(cleaned)) != length {
		return "", storageErrf("read canonical", "range %d-%d: got %d digits, want %d", start, start+length, len(cleaned), length)
	}
	if !isDigits(cleaned) {
		return "", corruptionf("file", "non-digit content in range %d-%d", start, start+length)
	}
	return cleaned, nil
}

// SearchSequence scans forward from startFrom in fixed windows, collecting
// the absolute positions of every occurrence of sequence in ascending order
// until maxResults matches or end of data. Windows advance by
// window-len(sequence)+1 so matches straddling a window boundary are found.
func (m *Manager) SearchSequence(sequence string, maxResults int, startFrom int64) ([]int64, error) {
	if sequence == "" || !isDigits(sequence) {
		return nil, invalidf("search", "sequence must be a non-empty digit string")
	}
	if maxResults <= 0 {
		return nil, invalidf("search", "max results %d must be positive", maxResults)
	}
	if startFrom < 0 {
		return nil, invalidf("search", "start position %d must be non-negative", startFrom)
	}
	telemetry.SearchRequests.WithLabelValues(m.id).Inc()

	positions := []int64{}
	total := m.index.digits
	seqLen := int64(len(sequence))
	current := startFrom

	for len(positions) < maxResults && current+seqLen <= total {
		windowLen := min64(m.cfg.SearchWindow, total-current)
		window, err := m.windowRead(current, windowLen)
		if err != nil {
			return nil, fmt.Errorf("search window at %d: %w", current, err)
		}
		for idx := 0; idx+int(seqLen) <= len(window); idx++ {
			if window[idx:idx+int(seqLen)] == sequence {
				positions = append(positions, current+int64(idx))
				if len(positions) >= maxResults {
					break
				}
			}
		}
		current += m.cfg.SearchWindow - seqLen + 1
	}
	return positions, nil
}

// windowRead serves one search window, chunk store preferred with silent
// fallback to the canonical file; the scan has no verification duty.
func (m *Manager) windowRead(start, length int64) (string, error) {
	if m.chunks.HasData() {
		if out := m.tryChunks(start, length); out.hit() {
			return out.digits, nil
		}
	}
	return m.cleanedFromFile(start, length)
}

// BuildCache populates the chunk and packed stores from the canonical file,
// one fixed-stride chunk at a time. Completed chunks are independently valid,
// so an interrupted build leaves a usable partial cache. Builds are
// serialized per manager; cancellation is cooperative between chunks.
func (m *Manager) BuildCache(ctx context.Context, force bool, progress func(done, total int64)) (BuildResult, error) {
	m.buildMu.Lock()
	defer m.buildMu.Unlock()

	res := BuildResult{Constant: m.id, Name: constants.DisplayName(m.id)}

	if !force {
		st := m.Status()
		if st.CacheExists && st.CacheComplete {
			logger.Info("cache_build_skipped", "constant", m.id, "cached_digits", st.CachedDigits)
			res.Status = BuildSkipped
			res.Reason = "cache already complete"
			res.CachedDigits = st.CachedDigits
			res.CacheComplete = true
			return res, nil
		}
	}

	digitCount := m.index.digits
	total := (digitCount + m.cfg.ChunkSize - 1) / m.cfg.ChunkSize
	logger.Info("cache_build_started", "constant", m.id, "digits", digitCount, "chunks_total", total, "chunk_size", m.cfg.ChunkSize)

	for id := int64(0); id < total; id++ {
		if err := ctx.Err(); err != nil {
			res.Status = BuildFailed
			res.Error = err.Error()
			return res, err
		}
		start := id * m.cfg.ChunkSize
		want := min64(m.cfg.ChunkSize, digitCount-start)

		digits, err := m.cleanedFromFile(start, want)
		if err != nil {
			res.Status = BuildFailed
			res.Error = err.Error()
			return res, fmt.Errorf("build chunk %d: %w", id, err)
		}
		if err := m.chunks.StoreChunk(id, start, digits); err != nil {
			res.Status = BuildFailed
			res.Error = err.Error()
			return res, fmt.Errorf("build chunk %d: %w", id, err)
		}
		if err := m.packed.StoreChunk(start, digits); err != nil {
			res.Status = BuildFailed
			res.Error = err.Error()
			return res, fmt.Errorf("build chunk %d: %w", id, err)
		}
		telemetry.BuildChunks.WithLabelValues(m.id).Inc()
		if progress != nil {
			progress(id+1, total)
		}
	}

	st := m.Status()
	logger.Info("cache_build_complete", "constant", m.id, "cached_digits", st.CachedDigits, "complete", st.CacheComplete)
	res.Status = BuildSuccess
	res.CachedDigits = st.CachedDigits
	res.CacheComplete = st.CacheComplete
	return res, nil
}

// Status recomputes the constant's storage snapshot from live source state.
func (m *Manager) Status() ConstantStatus {
	st := ConstantStatus{
		ID:       m.id,
		FilePath: m.cfg.CanonicalFile,
	}
	if c, ok := constants.Lookup(m.id); ok {
		st.Name = c.Name
		st.Symbol = c.Symbol
	} else {
		st.Name = m.id
	}
	st.FileExists = true
	st.FileSize = m.file.FileSize()
	st.CacheExists = m.chunks.HasData()
	if st.CacheExists {
		if lo, hi, err := m.chunks.CoverageRange(); err == nil {
			st.CachedDigits = hi - lo
			st.CacheComplete = lo == 0 && st.CachedDigits >= m.index.digits
		}
	}
	return st
}

func cleanRaw(raw string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', ' ', '\n', '\r', '\t':
			return -1
		}
		return r
	}, raw)
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return len(s) > 0
}
