package domain

import "time"

// File permissions constants
const (
	// DirectoryPermissions is the default permission for directories (rwxr-xr-x)
	DirectoryPermissions = 0o755
	// SecureFilePermissions is the permission for sensitive files (rw-------)
	SecureFilePermissions = 0o600
)

// Retrieval constants
const (
	// CandidatePoolMultiplier sizes the optimizer working set relative to the
	// packing budget.
	CandidatePoolMultiplier = 3
	// DefaultMaxDistance accepts every neighbor of a normalized vector.
	DefaultMaxDistance = 2.0
	// DefaultQueryCacheSize bounds the query embedding cache.
	DefaultQueryCacheSize = 128
)

// Completion constants
const (
	// DefaultCompletionRetries is how often a completion is retried on
	// connection errors.
	DefaultCompletionRetries = 3
	// DefaultRetryDelay separates completion retries.
	DefaultRetryDelay = time.Second
	// DefaultHTTPClientTimeout is the timeout for HTTP client requests
	DefaultHTTPClientTimeout = 600 * time.Second
)

// History constants
const (
	// DefaultHistoryLimit is the default number of history records to display
	DefaultHistoryLimit = 20
	// DefaultTopArtifacts is the number of artifacts shown by history stats
	DefaultTopArtifacts = 10
)

// Time formats
const (
	// TimestampFormat is the standard timestamp format
	TimestampFormat = time.RFC3339
)
