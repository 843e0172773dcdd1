package domain

// Config mirrors ~/.dirctx/config.yaml.
type Config struct {
	ConfigFormatVersion string            `yaml:"config_format_version"`
	SystemInstructions  string            `yaml:"system_instructions"`
	Preferences         Preferences       `yaml:"preferences"`
	Models              []ModelDefinition `yaml:"models" validate:"min=1,dive"`
	Embedding           EmbeddingSettings `yaml:"embedding"`
	Context             ContextSettings   `yaml:"context"`
	Cache               CacheSettings     `yaml:"cache"`
	Index               IndexSettings     `yaml:"index"`
}

// Preferences captures user level toggles.
type Preferences struct {
	DefaultModel   string `yaml:"default_model"`
	UseCGRAG       bool   `yaml:"use_cgrag"`
	PrintCGRAG     bool   `yaml:"print_cgrag"`
	TimeoutSeconds int    `yaml:"timeout" validate:"gte=0"`
}

// ContextSettings controls how much of the model window retrieved text may use
// and how candidates are selected.
type ContextSettings struct {
	// ContextFileRatio is the fraction of the model context reserved for
	// retrieved artifacts.
	ContextFileRatio float64 `yaml:"context_file_ratio" validate:"gt=0,lte=1"`

	// ArtifactExcludableFactor is the fraction of the most distant candidates
	// that may be displaced by cache-favorable artifacts.
	ArtifactExcludableFactor float64 `yaml:"artifact_excludable_factor" validate:"gte=0,lte=1"`

	// ArtifactMaxDistance bounds the range search of the vector index.
	ArtifactMaxDistance float64 `yaml:"artifact_max_distance" validate:"gte=0,lte=2"`

	// CGRAGMaxDistance bounds the range search of the guidance pass.
	CGRAGMaxDistance float64 `yaml:"cgrag_max_distance" validate:"gte=0,lte=2"`

	// MinChunkTokens estimates the smallest chunk; it caps how many neighbors
	// are requested from the index.
	MinChunkTokens int `yaml:"min_chunk_tokens" validate:"gt=0"`
}

// CacheSettings configures the prefix cache and the optimizer.
type CacheSettings struct {
	// APIContextCacheTTL is the provider prompt-cache lifetime in seconds.
	APIContextCacheTTL int `yaml:"api_context_cache_ttl" validate:"gt=0"`

	OptimizerWeights OptimizerWeights `yaml:"optimizer_weights"`
}

// OptimizerWeights scale the terms of the artifact score.
type OptimizerWeights struct {
	Frequency float64 `yaml:"frequency"`
	Position  float64 `yaml:"position"`
	Stability float64 `yaml:"stability"`
}

// IndexSettings controls directory crawling and embedding throughput.
type IndexSettings struct {
	Ignore                    []string `yaml:"ignore"`
	ExtraDirs                 []string `yaml:"extra_dirs"`
	ConcurrentFiles           int      `yaml:"concurrent_files" validate:"gte=1"`
	MaxFilesPerMinute         int      `yaml:"max_files_per_minute" validate:"gte=0"`
	ChunkWorkers              int      `yaml:"chunk_workers" validate:"gte=1"`
	MaxChunkRequestsPerMinute int      `yaml:"max_chunk_requests_per_minute" validate:"gte=0"`
	MaxCacheEntries           int      `yaml:"max_cache_entries" validate:"gte=0"`
}

// EmbeddingSettings describes the embedding endpoint.
type EmbeddingSettings struct {
	Endpoint   string `yaml:"endpoint"`
	AuthEnvVar string `yaml:"auth_env_var"`
	ModelID    string `yaml:"model_id" validate:"required"`

	// ChunkSize is the embedding model's input limit in tokens.
	ChunkSize int `yaml:"chunk_size" validate:"gt=0"`
}
