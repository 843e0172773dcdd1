package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/doeshing/dirctx/assets"
	"github.com/doeshing/dirctx/internal/domain"
	"github.com/doeshing/dirctx/internal/pkg/filesystem"
	"github.com/doeshing/dirctx/internal/ports"
)

// EnvConfigPath overrides the config file location.
const EnvConfigPath = "DIRCTX_CONFIG"

// FileLoader loads YAML configuration from ~/.dirctx/config.yaml (overridable via DIRCTX_CONFIG).
type FileLoader struct {
	overridePath string
}

// NewFileLoader builds a new loader. An empty path uses the default location.
func NewFileLoader(path string) *FileLoader {
	return &FileLoader{overridePath: path}
}

// Path returns the file Load reads.
func (l *FileLoader) Path() string {
	if l.overridePath != "" {
		return expandPath(l.overridePath)
	}
	if custom := os.Getenv(EnvConfigPath); custom != "" {
		return expandPath(custom)
	}
	return filesystem.AppDir("config.yaml")
}

// Load implements ports.ConfigProvider. A missing file is created from the
// embedded default.
func (l *FileLoader) Load(context.Context) (domain.Config, error) {
	defaults, err := Default()
	if err != nil {
		return domain.Config{}, err
	}

	path := l.Path()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			if err := writeDefault(path); err != nil {
				return domain.Config{}, err
			}
			return defaults, nil
		}
		return domain.Config{}, err
	}

	var cfg domain.Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return domain.Config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return hydrateDefaults(cfg, defaults), nil
}

// Default parses the embedded default configuration.
func Default() (domain.Config, error) {
	var cfg domain.Config
	if err := yaml.Unmarshal(assets.DefaultConfigYAML, &cfg); err != nil {
		return domain.Config{}, fmt.Errorf("parse embedded config: %w", err)
	}
	return cfg, nil
}

func writeDefault(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), domain.DirectoryPermissions); err != nil {
		return err
	}
	return os.WriteFile(path, assets.DefaultConfigYAML, domain.SecureFilePermissions)
}

// hydrateDefaults fills settings the file left out. Booleans and explicit
// zero throttles are taken as written.
func hydrateDefaults(cfg, def domain.Config) domain.Config {
	if cfg.ConfigFormatVersion == "" {
		cfg.ConfigFormatVersion = def.ConfigFormatVersion
	}
	if strings.TrimSpace(cfg.SystemInstructions) == "" {
		cfg.SystemInstructions = def.SystemInstructions
	}
	if len(cfg.Models) == 0 {
		cfg.Models = def.Models
		if cfg.Preferences.DefaultModel == "" {
			cfg.Preferences.DefaultModel = def.Preferences.DefaultModel
		}
	}
	if cfg.Preferences.DefaultModel == "" {
		cfg.Preferences.DefaultModel = cfg.Models[0].Name
	}
	if cfg.Preferences.TimeoutSeconds == 0 {
		cfg.Preferences.TimeoutSeconds = def.Preferences.TimeoutSeconds
	}
	for i := range cfg.Models {
		if cfg.Models[i].MaxRetries == 0 {
			cfg.Models[i].MaxRetries = domain.DefaultCompletionRetries
		}
	}

	if cfg.Embedding.ModelID == "" {
		cfg.Embedding = def.Embedding
	}
	if cfg.Embedding.ChunkSize == 0 {
		cfg.Embedding.ChunkSize = def.Embedding.ChunkSize
	}

	cs, ds := &cfg.Context, def.Context
	if cs.ContextFileRatio == 0 {
		cs.ContextFileRatio = ds.ContextFileRatio
	}
	if cs.ArtifactMaxDistance == 0 {
		cs.ArtifactMaxDistance = ds.ArtifactMaxDistance
	}
	if cs.CGRAGMaxDistance == 0 {
		cs.CGRAGMaxDistance = ds.CGRAGMaxDistance
	}
	if cs.MinChunkTokens == 0 {
		cs.MinChunkTokens = ds.MinChunkTokens
	}

	if cfg.Cache.APIContextCacheTTL == 0 {
		cfg.Cache.APIContextCacheTTL = def.Cache.APIContextCacheTTL
	}
	if cfg.Cache.OptimizerWeights == (domain.OptimizerWeights{}) {
		cfg.Cache.OptimizerWeights = def.Cache.OptimizerWeights
	}

	if cfg.Index.Ignore == nil {
		cfg.Index.Ignore = def.Index.Ignore
	}
	if cfg.Index.ConcurrentFiles == 0 {
		cfg.Index.ConcurrentFiles = def.Index.ConcurrentFiles
	}
	if cfg.Index.ChunkWorkers == 0 {
		cfg.Index.ChunkWorkers = def.Index.ChunkWorkers
	}
	if cfg.Index.MaxCacheEntries == 0 {
		cfg.Index.MaxCacheEntries = def.Index.MaxCacheEntries
	}
	for i, dir := range cfg.Index.ExtraDirs {
		cfg.Index.ExtraDirs[i] = expandPath(dir)
	}
	return cfg
}

func expandPath(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(filesystem.UserHomeDir(), path[2:])
	}
	return filepath.Clean(path)
}

var _ ports.ConfigProvider = (*FileLoader)(nil)
