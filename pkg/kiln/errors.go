package kiln

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Error types
var (
	// ErrNotFound indicates a referenced entity is absent
	ErrNotFound = errors.New("not found")

	// ErrInvalidQuery indicates a filter or sort key that does not resolve
	// to a declared field
	ErrInvalidQuery = errors.New("invalid query")

	// ErrConflict indicates a state transition not permitted from the
	// item's current state
	ErrConflict = errors.New("conflict")

	// ErrAlreadyExists indicates a duplicate create (e.g. a replayed upload
	// finalize call)
	ErrAlreadyExists = errors.New("already exists")

	// ErrQuotaExceeded indicates a storage limit was hit; free disk space
	// or raise the configured limit
	ErrQuotaExceeded = errors.New("storage quota exceeded")

	// ErrUnsupportedOperation indicates a capability the selected storage
	// provider does not implement; usually a configuration error
	ErrUnsupportedOperation = errors.New("operation not supported by storage provider")

	// ErrInvariantViolation indicates ledger/aggregate desync. Fatal: it is
	// never retried and points at a bug or external tampering.
	ErrInvariantViolation = errors.New("invariant violation")

	// ErrTimeout indicates a storage or network call exceeded its bound
	ErrTimeout = errors.New("timeout")

	// ErrFileTooLarge indicates an upload exceeding the configured maximum
	// file size
	ErrFileTooLarge = errors.New("file exceeds maximum allowed size")

	// ErrMimeTypeNotAllowed indicates an upload whose declared content type
	// matches no configured allow pattern
	ErrMimeTypeNotAllowed = errors.New("mime type not allowed")

	// ErrLengthMismatch indicates an upload stream whose byte count differs
	// from the declared length
	ErrLengthMismatch = errors.New("stream length does not match declared length")
)

// ContentItemError represents an error related to content item operations
type ContentItemError struct {
	ContentItemID uuid.UUID
	Op            string
	Err           error
}

func (e *ContentItemError) Error() string {
	return fmt.Sprintf("content item operation %s failed for %s: %v", e.Op, e.ContentItemID, e.Err)
}

func (e *ContentItemError) Unwrap() error {
	return e.Err
}

// MediaItemError represents an error related to media item operations
type MediaItemError struct {
	MediaItemID uuid.UUID
	Op          string
	Err         error
}

func (e *MediaItemError) Error() string {
	return fmt.Sprintf("media item operation %s failed for %s: %v", e.Op, e.MediaItemID, e.Err)
}

func (e *MediaItemError) Unwrap() error {
	return e.Err
}

// StorageError represents an error related to file storage operations
type StorageError struct {
	Provider string
	Key      string
	Op       string
	Err      error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage operation %s failed for key %s on provider %s: %v", e.Op, e.Key, e.Provider, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// QueryError wraps ErrInvalidQuery with the offending key so callers can
// report which part of the filter failed to resolve.
type QueryError struct {
	Key string
	Err error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("%v: field %q is not declared on the content type", e.Err, e.Key)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}
