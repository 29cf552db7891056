package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an entity already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// Engine Errors.

	// ErrConfiguration indicates an unknown or unconfigured provider,
	// invalid chunk parameters, or any other setup problem.
	// Configuration errors are never retried.
	ErrConfiguration = errors.New("configuration error")

	// ErrUnsupportedOperation indicates the selected provider variant does not
	// offer the requested capability, such as embeddings on a completion-only vendor.
	// Callers treat it as a configuration error.
	ErrUnsupportedOperation = errors.New("unsupported operation")

	// ErrDimensionMismatch indicates a vector whose length differs from the
	// deployment-wide embedding dimension.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrProvider indicates a vendor call failed or timed out.
	ErrProvider = errors.New("provider error")

	// ErrExtraction indicates text could not be extracted from uploaded bytes.
	// Ingestion degrades to empty text rather than aborting.
	ErrExtraction = errors.New("text extraction failed")

	// ErrIndexIO indicates the vector index or its slot map could not be
	// read or written.
	ErrIndexIO = errors.New("vector index I/O error")
)

// ErrorKind is the closed set of failure categories surfaced by the engine.
type ErrorKind int

// Error kinds, in order of classification precedence.
const (
	KindUnknown ErrorKind = iota
	KindConfiguration
	KindProvider
	KindExtraction
	KindIndexIO
	KindNotFound
	KindInvalidInput
)

// String returns the kind name.
func (k ErrorKind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindProvider:
		return "provider"
	case KindExtraction:
		return "extraction"
	case KindIndexIO:
		return "index_io"
	case KindNotFound:
		return "not_found"
	case KindInvalidInput:
		return "invalid_input"
	default:
		return "unknown"
	}
}

// KindOf classifies err into an ErrorKind.
// Unsupported operations and dimension mismatches are configuration errors.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, ErrConfiguration),
		errors.Is(err, ErrUnsupportedOperation),
		errors.Is(err, ErrDimensionMismatch):
		return KindConfiguration
	case errors.Is(err, ErrProvider):
		return KindProvider
	case errors.Is(err, ErrExtraction):
		return KindExtraction
	case errors.Is(err, ErrIndexIO):
		return KindIndexIO
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrAlreadyExists):
		return KindInvalidInput
	default:
		return KindUnknown
	}
}

// IsConfiguration reports whether err should be treated as a configuration error.
func IsConfiguration(err error) bool {
	return KindOf(err) == KindConfiguration
}
