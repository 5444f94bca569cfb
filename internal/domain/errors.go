package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrExtractionUnavailable signals the local extraction model failed to load
	// and the remote fallback was also unreachable.
	ErrExtractionUnavailable = errors.New("extraction unavailable")
	// ErrSpaceSearchTimeout signals a single vector space exceeded its timeout.
	ErrSpaceSearchTimeout = errors.New("vector space search timeout")
	// ErrSpaceSearchFailed signals a single vector space returned an error.
	ErrSpaceSearchFailed = errors.New("vector space search failed")
	// ErrAllSpacesFailed signals every requested vector space failed or timed out.
	ErrAllSpacesFailed = errors.New("all vector spaces failed")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrReasonerUnavailable signals the remote reasoning fallback is unreachable.
	ErrReasonerUnavailable = errors.New("remote reasoner unavailable")
	// ErrItemNotFound signals a missing catalog item.
	ErrItemNotFound = errors.New("item not found")
)

// SpaceError wraps a per-space failure with the space name for diagnostics.
type SpaceError struct {
	Space string
	Err   error
}

func (e *SpaceError) Error() string {
	return fmt.Sprintf("space %q: %s", e.Space, e.Err.Error())
}

func (e *SpaceError) Unwrap() error { return e.Err }

// NewSpaceError creates a per-space search error.
func NewSpaceError(space string, err error) error {
	return &SpaceError{Space: space, Err: err}
}
