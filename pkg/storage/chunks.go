package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/cockroachdb/pebble"

	"constantdb/pkg/logger"
)

// chunkKeyPrefix namespaces chunk records inside the per-constant Pebble DB.
// Keys are "chunk:<start position, zero padded>" so iteration order equals
// start-position order.
const chunkKeyPrefix = "chunk:"

// Chunk is one fixed-stride, checksummed slice of the digit sequence.
type Chunk struct {
	ID        int64  `json:"id"`
	Start     int64  `json:"start_position"`
	End       int64  `json:"end_position"`
	Digits    string `json:"digits"`
	Checksum  string `json:"checksum"`
	CreatedAt int64  `json:"created_at"`
}

// ChunkVerification is one row of a VerifyAllChunks audit.
type ChunkVerification struct {
	ID    int64  `json:"id"`
	Start int64  `json:"start_position"`
	End   int64  `json:"end_position"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// ChunkStore persists checksummed digit chunks in a Pebble database and
// answers arbitrary-range reads by assembling overlapping chunks.
type ChunkStore struct {
	path string
	db   *pebble.DB
}

// OpenChunkStore opens (or creates) the Pebble database at path.
func OpenChunkStore(path string) (*ChunkStore, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, &StorageError{Op: "open chunk store", Err: err}
	}
	logger.Info("chunk_store_opened", "path", path)
	return &ChunkStore{path: path, db: db}, nil
}

// Close closes the underlying database.
func (c *ChunkStore) Close() error {
	if c.db == nil {
		return nil
	}
	err := c.db.Close()
	c.db = nil
	return err
}

// Path returns the chunk store directory path.
func (c *ChunkStore) Path() string { return c.path }

func chunkChecksum(digits string) string {
	return strconv.FormatUint(xxhash.Sum64String(digits), 16)
}

func chunkKey(start int64) []byte {
	return []byte(fmt.Sprintf("%s%020d", chunkKeyPrefix, start))
}

// StoreChunk persists a chunk with its checksum, idempotently replacing any
// existing chunk at the same start position.
func (c *ChunkStore) StoreChunk(id, start int64, digits string) error {
	if c.db == nil {
		return &StorageError{Op: "store chunk", Err: fmt.Errorf("chunk store closed")}
	}
	if start < 0 || len(digits) == 0 {
		return storageErrf("store chunk", "invalid chunk id=%d start=%d len=%d", id, start, len(digits))
	}
	ch := Chunk{
		ID:        id,
		Start:     start,
		End:       start + int64(len(digits)),
		Digits:    digits,
		Checksum:  chunkChecksum(digits),
		CreatedAt: time.Now().UTC().UnixNano(),
	}
	data, err := json.Marshal(ch)
	if err != nil {
		return &StorageError{Op: "store chunk", Err: err}
	}
	if err := c.db.Set(chunkKey(start), data, pebble.Sync); err != nil {
		logger.Error("store_chunk_failed", "id", id, "start", start, "error", err)
		return &StorageError{Op: "store chunk", Err: err}
	}
	return nil
}

// Get returns exactly length digits starting at position start, assembled
// from the overlapping chunks in start order. Every touched chunk's checksum
// is recomputed; a mismatch raises a CorruptionError naming the chunk. A
// coverage gap (or no intersecting chunks) is a data-availability error and
// is never silently padded.
func (c *ChunkStore) Get(start, length int64) (string, error) {
	if c.db == nil {
		return "", &StorageError{Op: "read chunks", Err: fmt.Errorf("chunk store closed")}
	}
	if start < 0 || length <= 0 {
		return "", storageErrf("read chunks", "invalid range start=%d length=%d", start, length)
	}
	end := start + length

	iter, err := c.db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return "", &StorageError{Op: "read chunks", Err: err}
	}
	defer iter.Close()

	// The chunk covering `start` is the one with the greatest start position
	// <= start; seek just past it and step back, then walk forward.
	if !iter.SeekLT(chunkKey(start + 1)) || !bytes.HasPrefix(iter.Key(), []byte(chunkKeyPrefix)) {
		iter.SeekGE([]byte(chunkKeyPrefix))
	}

	var out bytes.Buffer
	out.Grow(int(length))
	for ; iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), []byte(chunkKeyPrefix)) {
			break
		}
		var ch Chunk
		if err := json.Unmarshal(iter.Value(), &ch); err != nil {
			return "", storageErrf("read chunks", "malformed chunk record %q: %v", iter.Key(), err)
		}
		if ch.Start >= end {
			break
		}
		if ch.End <= start {
			continue
		}
		if chunkChecksum(ch.Digits) != ch.Checksum {
			return "", corruptionf("chunks", "checksum mismatch in chunk %d (%d-%d)", ch.ID, ch.Start, ch.End)
		}
		overlapStart := max64(start, ch.Start)
		overlapEnd := min64(end, ch.End)
		out.WriteString(ch.Digits[overlapStart-ch.Start : overlapEnd-ch.Start])
	}
	if err := iter.Error(); err != nil {
		return "", &StorageError{Op: "read chunks", Err: err}
	}
	if int64(out.Len()) != length {
		return "", fmt.Errorf("range %d-%d: retrieved %d of %d digits: %w", start, end, out.Len(), length, ErrNoData)
	}
	return out.String(), nil
}

// HasData reports whether at least one chunk is persisted.
func (c *ChunkStore) HasData() bool {
	if c.db == nil {
		return false
	}
	iter, err := c.db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return false
	}
	defer iter.Close()
	iter.SeekGE([]byte(chunkKeyPrefix))
	return iter.Valid() && bytes.HasPrefix(iter.Key(), []byte(chunkKeyPrefix))
}

// CoverageRange returns the lowest start and highest end position across all
// persisted chunks. It fails with ErrNoData when the store is empty.
func (c *ChunkStore) CoverageRange() (int64, int64, error) {
	if c.db == nil {
		return 0, 0, &StorageError{Op: "coverage range", Err: fmt.Errorf("chunk store closed")}
	}
	iter, err := c.db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return 0, 0, &StorageError{Op: "coverage range", Err: err}
	}
	defer iter.Close()

	var minStart, maxEnd int64
	found := false
	for iter.SeekGE([]byte(chunkKeyPrefix)); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), []byte(chunkKeyPrefix)) {
			break
		}
		var ch Chunk
		if err := json.Unmarshal(iter.Value(), &ch); err != nil {
			return 0, 0, storageErrf("coverage range", "malformed chunk record %q: %v", iter.Key(), err)
		}
		if !found {
			minStart = ch.Start
			found = true
		}
		if ch.End > maxEnd {
			maxEnd = ch.End
		}
	}
	if err := iter.Error(); err != nil {
		return 0, 0, &StorageError{Op: "coverage range", Err: err}
	}
	if !found {
		return 0, 0, ErrNoData
	}
	return minStart, maxEnd, nil
}

// VerifyAllChunks scans every persisted chunk, recomputes its checksum and
// checks the positional invariant end-start == len(digits). It reports one
// row per chunk and never stops at the first failure.
func (c *ChunkStore) VerifyAllChunks() ([]ChunkVerification, error) {
	if c.db == nil {
		return nil, &StorageError{Op: "verify chunks", Err: fmt.Errorf("chunk store closed")}
	}
	iter, err := c.db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, &StorageError{Op: "verify chunks", Err: err}
	}
	defer iter.Close()

	var out []ChunkVerification
	for iter.SeekGE([]byte(chunkKeyPrefix)); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), []byte(chunkKeyPrefix)) {
			break
		}
		var ch Chunk
		if err := json.Unmarshal(iter.Value(), &ch); err != nil {
			out = append(out, ChunkVerification{OK: false, Error: fmt.Sprintf("malformed record %q: %v", iter.Key(), err)})
			continue
		}
		v := ChunkVerification{ID: ch.ID, Start: ch.Start, End: ch.End, OK: true}
		switch {
		case ch.End-ch.Start != int64(len(ch.Digits)):
			v.OK = false
			v.Error = fmt.Sprintf("length %d does not match range %d-%d", len(ch.Digits), ch.Start, ch.End)
		case chunkChecksum(ch.Digits) != ch.Checksum:
			v.OK = false
			v.Error = "checksum mismatch"
		}
		out = append(out, v)
	}
	if err := iter.Error(); err != nil {
		return nil, &StorageError{Op: "verify chunks", Err: err}
	}
	return out, nil
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
