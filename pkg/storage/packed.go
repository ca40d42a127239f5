package storage

import (
	"fmt"
	"io"
	"os"
	"sync"

	"constantdb/pkg/logger"
)

// PackedStore persists two decimal digits per byte (4 bits each) in a flat
// binary file. Byte k encodes digit positions 2k and 2k+1, so the encoding
// is positional and a range read only needs the covering byte span.
//
// Writes require an even start position. Builds proceed at even multiples of
// an even chunk size, so neighboring chunks never share a byte and no
// read-modify-write path is needed.
type PackedStore struct {
	path string
	mu   sync.Mutex
}

// NewPackedStore returns a store over the packed file at path. The file is
// created lazily on the first write; a missing file is a normal state during
// partial builds.
func NewPackedStore(path string) *PackedStore {
	return &PackedStore{path: path}
}

// Path returns the packed file path.
func (p *PackedStore) Path() string { return p.path }

// StoreChunk packs the digit pairs of digits and writes them at byte offset
// start/2. start must be even; digits must be ASCII '0'..'9'.
func (p *PackedStore) StoreChunk(start int64, digits string) error {
	if start < 0 || start%2 != 0 {
		return storageErrf("store packed", "start %d must be a non-negative even position", start)
	}
	if len(digits) == 0 {
		return storageErrf("store packed", "empty chunk at %d", start)
	}
	packed := make([]byte, (len(digits)+1)/2)
	for i := 0; i < len(digits); i += 2 {
		hi := digits[i]
		if hi < '0' || hi > '9' {
			return storageErrf("store packed", "non-digit character %q at position %d", hi, start+int64(i))
		}
		b := (hi - '0') << 4
		if i+1 < len(digits) {
			lo := digits[i+1]
			if lo < '0' || lo > '9' {
				return storageErrf("store packed", "non-digit character %q at position %d", lo, start+int64(i)+1)
			}
			b |= lo - '0'
		}
		packed[i/2] = b
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	f, err := os.OpenFile(p.path, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return &StorageError{Op: "open packed file", Err: err}
	}
	defer f.Close()
	if _, err := f.WriteAt(packed, start/2); err != nil {
		logger.Error("packed_write_failed", "path", p.path, "start", start, "error", err)
		return &StorageError{Op: "write packed file", Err: err}
	}
	return nil
}

// Get returns exactly length digits starting at position start by unpacking
// the covering byte span. It fails with ErrNotFound while the packed file
// has not been built yet, and with a CorruptionError when any nibble decodes
// to a value above 9.
func (p *PackedStore) Get(start, length int64) (string, error) {
	if start < 0 || length <= 0 {
		return "", storageErrf("read packed", "invalid range start=%d length=%d", start, length)
	}
	f, err := os.Open(p.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("packed file %s: %w", p.path, ErrNotFound)
		}
		return "", &StorageError{Op: "open packed file", Err: err}
	}
	defer f.Close()

	startByte := start / 2
	endByte := (start + length + 1) / 2
	buf := make([]byte, endByte-startByte)
	n, err := f.ReadAt(buf, startByte)
	if err != nil && err != io.EOF {
		return "", &StorageError{Op: "read packed file", Err: err}
	}
	if int64(n) < endByte-startByte {
		return "", storageErrf("read packed", "range %d-%d beyond packed data (%d of %d bytes)", start, start+length, n, endByte-startByte)
	}

	unpacked := make([]byte, 0, 2*len(buf))
	for i, b := range buf {
		hi := b >> 4
		lo := b & 0x0F
		if hi > 9 || lo > 9 {
			return "", corruptionf("packed", "invalid nibble 0x%x in byte at offset %d", b, startByte+int64(i))
		}
		unpacked = append(unpacked, '0'+hi, '0'+lo)
	}
	offset := start % 2
	return string(unpacked[offset : offset+length]), nil
}

// HasData reports whether the packed file exists and is non-empty.
func (p *PackedStore) HasData() bool {
	fi, err := os.Stat(p.path)
	return err == nil && fi.Size() > 0
}
