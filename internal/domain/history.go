package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"
)

// PromptHistoryEntry records one accepted turn: the prompt and the artifact ids
// emitted into its context, in emission order.
type PromptHistoryEntry struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"session_id"`
	Prompt    string    `json:"prompt"`
	Artifacts []string  `json:"artifacts"`
	Timestamp time.Time `json:"timestamp"`
}

// HasLeadingSequence reports whether the entry's artifact ordering starts with ids.
func (e PromptHistoryEntry) HasLeadingSequence(ids []string) bool {
	if len(ids) > len(e.Artifacts) {
		return false
	}
	for i, id := range ids {
		if e.Artifacts[i] != id {
			return false
		}
	}
	return true
}

// PrefixCacheEntry marks an artifact sequence believed to be warm in the
// provider's prompt cache.
type PrefixCacheEntry struct {
	Key     PrefixKey
	LastHit time.Time
}

// Expired reports whether the entry is at least ttl old relative to now.
func (e PrefixCacheEntry) Expired(now time.Time, ttl time.Duration) bool {
	return now.Sub(e.LastHit) >= ttl
}

// IndexCacheEntry stores the chunks and embeddings produced for one file so an
// unchanged file is not re-embedded.
type IndexCacheEntry struct {
	Key        string      `json:"key"`
	Filepath   string      `json:"filepath"`
	ModTime    time.Time   `json:"mtime"`
	Chunks     []Artifact  `json:"chunks"`
	Embeddings [][]float32 `json:"embeddings"`
	CreatedAt  time.Time   `json:"created_at"`
}

// IndexCacheKey derives the index cache key of path for one embedding setup.
// Changing the embedding endpoint, model or chunk size invalidates every entry.
func IndexCacheKey(embedding EmbeddingSettings, path string) string {
	h := sha256.New()
	for _, part := range []string{embedding.Endpoint, embedding.ModelID, strconv.Itoa(embedding.ChunkSize), path} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
