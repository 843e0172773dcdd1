package domain

import "errors"

var (
	// ErrDimensionMismatch is returned by a vector index when the query vector
	// does not have the dimensionality of the indexed vectors.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrReindexRequired wraps retrieval failures that can only be fixed by
	// clearing caches and rebuilding the index.
	ErrReindexRequired = errors.New("index incompatible with current embedding model: run 'dirctx clear' and reindex")

	// ErrStoreClosed is returned by persisted stores used after Close.
	ErrStoreClosed = errors.New("store is closed")

	// ErrNoModel is returned when the requested model is not configured.
	ErrNoModel = errors.New("model not configured")
)
