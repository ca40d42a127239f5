package storage

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates a required resource (canonical file, packed file)
// does not exist. Callers distinguish this from corruption: a missing packed
// file during a partial build is expected and handled by fallback.
var ErrNotFound = errors.New("not found")

// ErrNoData indicates a derived cache holds no rows at all for the
// requested range.
var ErrNoData = errors.New("no cached data")

// ErrInvalidRequest marks argument validation failures so transports can map
// them to client errors instead of server faults.
var ErrInvalidRequest = errors.New("invalid request")

// StorageError wraps I/O failures, malformed stored ranges and out-of-bounds
// requests.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	if e.Err == nil {
		return "storage: " + e.Op
	}
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func storageErrf(op, format string, args ...any) error {
	return &StorageError{Op: op, Err: fmt.Errorf(format, args...)}
}

func invalidf(op, format string, args ...any) error {
	return &StorageError{Op: op, Err: fmt.Errorf("%w: "+format, append([]any{ErrInvalidRequest}, args...)...)}
}

// CorruptionError indicates a checksum mismatch within a single source or a
// divergence between two cross-checked sources. It is never swallowed when a
// caller requested verification.
type CorruptionError struct {
	Source string // "chunks", "packed" or "file"
	Detail string
}

func (e *CorruptionError) Error() string {
	return fmt.Sprintf("corruption in %s: %s", e.Source, e.Detail)
}

func corruptionf(source, format string, args ...any) error {
	return &CorruptionError{Source: source, Detail: fmt.Sprintf(format, args...)}
}

// IsCorruption reports whether err is (or wraps) a CorruptionError.
func IsCorruption(err error) bool {
	var ce *CorruptionError
	return errors.As(err, &ce)
}

// fallbackReason buckets a chunk-store read failure for metrics labels.
func fallbackReason(err error) string {
	switch {
	case errors.Is(err, ErrNoData):
		return "coverage_gap"
	case errors.Is(err, ErrNotFound):
		return "missing"
	case IsCorruption(err):
		return "corruption"
	default:
		return "error"
	}
}
