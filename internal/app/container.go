package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/doeshing/dirctx/internal/application/assistant"
	appconfig "github.com/doeshing/dirctx/internal/application/config"
	"github.com/doeshing/dirctx/internal/application/doctor"
	"github.com/doeshing/dirctx/internal/application/indexer"
	"github.com/doeshing/dirctx/internal/application/retrieval"
	"github.com/doeshing/dirctx/internal/domain"
	"github.com/doeshing/dirctx/internal/infrastructure/ai"
	"github.com/doeshing/dirctx/internal/infrastructure/artifacts"
	"github.com/doeshing/dirctx/internal/infrastructure/cache"
	"github.com/doeshing/dirctx/internal/infrastructure/config"
	"github.com/doeshing/dirctx/internal/infrastructure/history"
	"github.com/doeshing/dirctx/internal/infrastructure/metrics"
	"github.com/doeshing/dirctx/internal/infrastructure/prefixcache"
	"github.com/doeshing/dirctx/internal/infrastructure/vectorindex"
	"github.com/doeshing/dirctx/internal/pkg/filesystem"
	"github.com/doeshing/dirctx/internal/pkg/logger"
)

// Container wires up application services with infrastructure adapters.
// Stores are opened on first use so commands that only read the config do
// not take the prefix cache's directory lock.
type Container struct {
	ConfigLoader *config.FileLoader
	Config       domain.Config
	Logger       *logger.ZapLogger
	Factory      *ai.Factory
	Metrics      *metrics.Recorder
	IndexCache   *cache.FileCache
	Artifacts    *artifacts.MemoryStore
	Index        *vectorindex.Flat
	Doctor       *doctor.Service

	history  *history.SQLiteStore
	prefixes *prefixcache.BadgerStore
}

// BuildContainer loads and validates the configuration and constructs the
// stateless part of the dependency graph.
func BuildContainer(ctx context.Context, verbose bool) (*Container, error) {
	log := logger.New(verbose)

	cfgLoader := config.NewFileLoader("")
	cfg, err := cfgLoader.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := appconfig.Validate(cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", cfgLoader.Path(), err)
	}

	factory := ai.NewFactory(log)
	if cfg.Preferences.TimeoutSeconds > 0 {
		factory.WithHTTPClient(&http.Client{Timeout: time.Duration(cfg.Preferences.TimeoutSeconds) * time.Second})
	}

	return &Container{
		ConfigLoader: cfgLoader,
		Config:       cfg,
		Logger:       log,
		Factory:      factory,
		Metrics:      metrics.NewRecorder(),
		IndexCache:   cache.NewFileCache(cache.DefaultDir(), cfg.Index.MaxCacheEntries),
		Artifacts:    artifacts.NewMemoryStore(),
		Index:        vectorindex.NewFlat(),
		Doctor:       &doctor.Service{ConfigProvider: cfgLoader, DataDir: filesystem.AppDir()},
	}, nil
}

// HistoryStore opens the usage history on first call.
func (c *Container) HistoryStore() (*history.SQLiteStore, error) {
	if c.history != nil {
		return c.history, nil
	}
	store, err := history.NewSQLiteStore(history.DefaultPath())
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	c.history = store
	return store, nil
}

// PrefixStore opens the prefix cache on first call.
func (c *Container) PrefixStore() (*prefixcache.BadgerStore, error) {
	if c.prefixes != nil {
		return c.prefixes, nil
	}
	store, err := prefixcache.Open(prefixcache.Options{
		Path:   prefixcache.DefaultPath(),
		TTL:    c.Config.PrefixCacheTTL(),
		Logger: c.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("open prefix cache: %w", err)
	}
	c.prefixes = store
	return store, nil
}

// Roots returns the directories indexed for the current working directory.
func (c *Container) Roots() ([]string, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	return append([]string{wd}, c.Config.Index.ExtraDirs...), nil
}

// NewIndexer builds an indexer writing into the container's artifact store
// and vector index.
func (c *Container) NewIndexer(model domain.ModelDefinition, progress func(path string, cached bool)) (*indexer.Indexer, error) {
	embedder, err := c.Factory.Embedder(c.Config.Embedding)
	if err != nil {
		return nil, err
	}
	counter, err := c.Factory.TokenCounter(model)
	if err != nil {
		return nil, err
	}
	embedCounter, err := c.Factory.TokenCounter(domain.ModelDefinition{ModelID: c.Config.Embedding.ModelID})
	if err != nil {
		return nil, err
	}
	return &indexer.Indexer{
		Embedder:     embedder,
		Counter:      counter,
		EmbedCounter: embedCounter,
		Artifacts:    c.Artifacts,
		Index:        c.Index,
		Cache:        c.IndexCache,
		Settings:     c.Config.Index,
		Embedding:    c.Config.Embedding,
		Metrics:      c.Metrics,
		Logger:       c.Logger,
		Progress:     progress,
	}, nil
}

// BuildIndex indexes the working directory and the configured extra
// directories.
func (c *Container) BuildIndex(ctx context.Context, model domain.ModelDefinition, progress func(path string, cached bool)) (indexer.Stats, error) {
	ix, err := c.NewIndexer(model, progress)
	if err != nil {
		return indexer.Stats{}, err
	}
	roots, err := c.Roots()
	if err != nil {
		return indexer.Stats{}, err
	}
	return ix.Build(ctx, roots)
}

// AssistantService builds the turn pipeline for modelName, or for the
// default model when modelName is empty. The index must already be built.
func (c *Container) AssistantService(modelName string) (*assistant.Service, error) {
	model, err := c.Config.ResolveModel(modelName)
	if err != nil {
		return nil, err
	}
	historyStore, err := c.HistoryStore()
	if err != nil {
		return nil, err
	}
	prefixStore, err := c.PrefixStore()
	if err != nil {
		return nil, err
	}
	embedder, err := c.Factory.Embedder(c.Config.Embedding)
	if err != nil {
		return nil, err
	}
	retriever, err := retrieval.New(embedder, c.Index, c.Artifacts, domain.DefaultQueryCacheSize, c.Logger)
	if err != nil {
		return nil, err
	}
	completer, err := c.Factory.Completer(model)
	if err != nil {
		return nil, err
	}
	counter, err := c.Factory.TokenCounter(model)
	if err != nil {
		return nil, err
	}
	return &assistant.Service{
		Config:    c.Config,
		Model:     model,
		Retriever: retriever,
		Artifacts: c.Artifacts,
		History:   historyStore,
		Prefixes:  prefixStore,
		Completer: completer,
		Counter:   counter,
		Metrics:   c.Metrics,
		Logger:    c.Logger,
	}, nil
}

// ClearAll removes the prompt history, the prefix cache and the index cache.
func (c *Container) ClearAll(ctx context.Context) error {
	historyStore, err := c.HistoryStore()
	if err != nil {
		return err
	}
	prefixStore, err := c.PrefixStore()
	if err != nil {
		return err
	}
	return errors.Join(
		historyStore.Clear(ctx),
		prefixStore.Clear(ctx),
		c.IndexCache.Clear(),
	)
}

// Close releases every opened store.
func (c *Container) Close() error {
	var errs []error
	if c.history != nil {
		errs = append(errs, c.history.Close())
		c.history = nil
	}
	if c.prefixes != nil {
		errs = append(errs, c.prefixes.Close())
		c.prefixes = nil
	}
	_ = c.Logger.Sync()
	return errors.Join(errs...)
}
