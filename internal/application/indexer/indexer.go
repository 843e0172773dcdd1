// Package indexer crawls directories, chunks text files and embeds the chunks
// into the artifact store and the vector index.
//
// Files are processed by a bounded worker pool; the chunks of one file are
// embedded by a second pool. Both pools can be throttled to a number of
// requests per minute. Chunks and embeddings are cached per file and reused
// while the file's modification time is unchanged.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/doeshing/dirctx/internal/domain"
	"github.com/doeshing/dirctx/internal/ports"
)

// Indexer builds the searchable index.
type Indexer struct {
	Embedder  ports.Embedder
	Counter   ports.TokenCounter
	Artifacts ports.ArtifactWriter
	Index     ports.IndexWriter
	Cache     ports.IndexCache
	Settings  domain.IndexSettings
	Embedding domain.EmbeddingSettings
	Metrics   ports.Metrics
	Logger    ports.Logger

	// EmbedCounter sizes chunks for the embedding model; Counter is used when
	// it is nil.
	EmbedCounter ports.TokenCounter

	// Progress, when set, is called after each file.
	Progress func(path string, cached bool)

	// indexMu serializes store and index updates so refs and vectors stay
	// paired.
	indexMu sync.Mutex
}

// Stats summarizes a Build.
type Stats struct {
	Files   int
	Cached  int
	Chunks  int
	Elapsed time.Duration
}

// Build indexes every text file under roots.
func (ix *Indexer) Build(ctx context.Context, roots []string) (Stats, error) {
	if err := ix.validate(); err != nil {
		return Stats{}, err
	}
	started := time.Now()

	files, err := Crawl(roots, ix.Settings.Ignore)
	if err != nil {
		return Stats{}, fmt.Errorf("crawl: %w", err)
	}
	ix.Logger.Debug("crawled files", map[string]interface{}{"roots": roots, "files": len(files)})

	var (
		cached atomic.Int64
		chunks atomic.Int64
	)
	fileLimiter := limiter(ix.Settings.MaxFilesPerMinute)
	chunkLimiter := limiter(ix.Settings.MaxChunkRequestsPerMinute)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, ix.Settings.ConcurrentFiles))
	for _, file := range files {
		file := file
		g.Go(func() error {
			if err := fileLimiter.Wait(gctx); err != nil {
				return err
			}
			hit, n, err := ix.indexFile(gctx, file, chunkLimiter)
			if err != nil {
				return fmt.Errorf("index %s: %w", file.Path, err)
			}
			if hit {
				cached.Add(1)
			}
			chunks.Add(int64(n))
			if ix.Progress != nil {
				ix.Progress(file.Path, hit)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Stats{}, err
	}

	stats := Stats{
		Files:   len(files),
		Cached:  int(cached.Load()),
		Chunks:  int(chunks.Load()),
		Elapsed: time.Since(started),
	}
	if ix.Metrics != nil {
		ix.Metrics.ObserveIndexedFiles(stats.Files, stats.Elapsed)
	}
	ix.Logger.Info("index built", map[string]interface{}{
		"files":   stats.Files,
		"cached":  stats.Cached,
		"chunks":  stats.Chunks,
		"elapsed": stats.Elapsed.String(),
	})
	return stats, nil
}

// IndexFile (re)indexes one file, replacing its previous artifacts.
func (ix *Indexer) IndexFile(ctx context.Context, file SourceFile) (cached bool, chunks int, err error) {
	if err := ix.validate(); err != nil {
		return false, 0, err
	}
	return ix.indexFile(ctx, file, limiter(ix.Settings.MaxChunkRequestsPerMinute))
}

func (ix *Indexer) validate() error {
	if ix.Embedder == nil || ix.Counter == nil || ix.Artifacts == nil || ix.Index == nil || ix.Cache == nil || ix.Logger == nil {
		return errors.New("indexer.Indexer dependencies not satisfied")
	}
	return nil
}

func (ix *Indexer) indexFile(ctx context.Context, file SourceFile, chunkLimiter *rate.Limiter) (bool, int, error) {
	key := domain.IndexCacheKey(ix.Embedding, file.Path)
	entry, ok, err := ix.Cache.Get(key)
	if err != nil {
		ix.Logger.Warn("index cache read failed", map[string]interface{}{"path": file.Path, "error": err.Error()})
		ok = false
	}
	hit := ok && entry.ModTime.Equal(file.ModTime) && len(entry.Chunks) == len(entry.Embeddings)

	if !hit {
		entry, err = ix.embedFile(ctx, file, chunkLimiter)
		if err != nil {
			return false, 0, err
		}
		entry.Key = key
		if err := ix.Cache.Set(entry); err != nil {
			ix.Logger.Warn("index cache write failed", map[string]interface{}{"path": file.Path, "error": err.Error()})
		}
	} else {
		entry.Chunks = ix.recount(entry.Chunks)
	}

	if err := ix.apply(file.Path, entry); err != nil {
		return hit, 0, err
	}
	return hit, len(entry.Chunks), nil
}

func (ix *Indexer) embedFile(ctx context.Context, file SourceFile, chunkLimiter *rate.Limiter) (domain.IndexCacheEntry, error) {
	contents, err := os.ReadFile(file.Path)
	if err != nil {
		return domain.IndexCacheEntry{}, err
	}
	sizer := ix.EmbedCounter
	if sizer == nil {
		sizer = ix.Counter
	}
	texts := NewChunker(sizer, ix.Embedding.ChunkSize).Chunk(file.Path, string(contents))

	embeddings := make([][]float32, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, ix.Settings.ChunkWorkers))
	for i, text := range texts {
		i, text := i, text
		g.Go(func() error {
			if err := chunkLimiter.Wait(gctx); err != nil {
				return err
			}
			vec, err := ix.Embedder.Embed(gctx, text)
			if err != nil {
				return err
			}
			embeddings[i] = vec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return domain.IndexCacheEntry{}, err
	}

	chunks := make([]domain.Artifact, len(texts))
	for i, text := range texts {
		chunks[i] = domain.Artifact{
			Text:         text,
			Filepath:     file.Path,
			Tokens:       ix.Counter.CountTokens(text, domain.RoleUser),
			LastModified: file.ModTime,
		}
	}
	return domain.IndexCacheEntry{
		Filepath:   file.Path,
		ModTime:    file.ModTime,
		Chunks:     chunks,
		Embeddings: embeddings,
		CreatedAt:  time.Now(),
	}, nil
}

// recount refreshes token counts of cached chunks. The cache key only covers
// the embedding setup, so counts stored under another chat tokenizer are stale.
func (ix *Indexer) recount(cached []domain.Artifact) []domain.Artifact {
	chunks := make([]domain.Artifact, len(cached))
	for i, chunk := range cached {
		chunk.Tokens = ix.Counter.CountTokens(chunk.Text, domain.RoleUser)
		chunks[i] = chunk
	}
	return chunks
}

// apply swaps the file's artifacts and vectors.
func (ix *Indexer) apply(path string, entry domain.IndexCacheEntry) error {
	ix.indexMu.Lock()
	defer ix.indexMu.Unlock()

	removed, added := ix.Artifacts.ReplaceFile(path, entry.Chunks)
	ix.Index.Remove(removed...)
	for i, ref := range added {
		if err := ix.Index.Add(ref, entry.Embeddings[i]); err != nil {
			if errors.Is(err, domain.ErrDimensionMismatch) {
				return fmt.Errorf("%w: %w", domain.ErrReindexRequired, err)
			}
			return err
		}
	}
	return nil
}

// limiter allows perMinute events per minute; 0 means unlimited.
func limiter(perMinute int) *rate.Limiter {
	if perMinute <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1)
}
