package storage

import (
	"fmt"
	"io"
	"os"
	"sync"

	"constantdb/pkg/logger"
)

// FileSource reads raw character ranges from the canonical digit text file.
// The raw text may contain a decimal point and whitespace; positional
// cleaning is the Manager's job, not this reader's.
type FileSource struct {
	path string

	mu   sync.Mutex
	f    *os.File
	size int64
}

// OpenFileSource opens the canonical file at path. It fails with ErrNotFound
// when the file does not exist.
func OpenFileSource(path string) (*FileSource, error) {
	fi, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("canonical file %s: %w", path, ErrNotFound)
		}
		return nil, &StorageError{Op: "stat canonical file", Err: err}
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, &StorageError{Op: "open canonical file", Err: err}
	}
	logger.Info("file_source_opened", "path", path, "size", fi.Size())
	return &FileSource{path: path, f: f, size: fi.Size()}, nil
}

// Get reads length raw characters starting at byte offset start. Short reads
// at end of file return only the available bytes; reads entirely past the
// end fail.
func (s *FileSource) Get(start, length int64) (string, error) {
	if start < 0 || length <= 0 {
		return "", storageErrf("read canonical", "invalid range start=%d length=%d", start, length)
	}
	s.mu.Lock()
	f := s.f
	s.mu.Unlock()
	if f == nil {
		return "", &StorageError{Op: "read canonical", Err: fmt.Errorf("source closed")}
	}
	if start >= s.size {
		return "", storageErrf("read canonical", "offset %d beyond file size %d", start, s.size)
	}
	buf := make([]byte, length)
	n, err := f.ReadAt(buf, start)
	if err != nil && err != io.EOF {
		return "", &StorageError{Op: "read canonical", Err: err}
	}
	return string(buf[:n]), nil
}

// FileSize returns the total byte length of the canonical file.
func (s *FileSource) FileSize() int64 { return s.size }

// Path returns the canonical file path.
func (s *FileSource) Path() string { return s.path }

// Close releases the underlying file handle.
func (s *FileSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return nil
	}
	err := s.f.Close()
	s.f = nil
	return err
}
