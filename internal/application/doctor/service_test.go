package doctor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doeshing/dirctx/internal/domain"
)

type stubProvider struct {
	cfg domain.Config
	err error
}

func (s stubProvider) Load(context.Context) (domain.Config, error) {
	return s.cfg, s.err
}

func testConfig() domain.Config {
	return domain.Config{
		ConfigFormatVersion: "1",
		Preferences:         domain.Preferences{DefaultModel: "remote"},
		Models: []domain.ModelDefinition{
			{Name: "remote", Endpoint: "https://api.example.com/v1", AuthEnvVar: "EXAMPLE_KEY", ModelID: "m", ContextSize: 1000},
			{Name: "local", Endpoint: "http://localhost:8080/v1", ModelID: "m", ContextSize: 1000},
		},
		Embedding: domain.EmbeddingSettings{Endpoint: "https://api.example.com/v1", ModelID: "e", ChunkSize: 256},
		Context:   domain.ContextSettings{ContextFileRatio: 0.9, MinChunkTokens: 64},
		Cache:     domain.CacheSettings{APIContextCacheTTL: 60},
		Index:     domain.IndexSettings{ConcurrentFiles: 1, ChunkWorkers: 1},
	}
}

func statusByName(report domain.HealthReport) map[string]domain.HealthStatus {
	out := make(map[string]domain.HealthStatus)
	for _, c := range report.Checks {
		out[c.Name] = c.Status
	}
	return out
}

func TestRunReportsMissingKeys(t *testing.T) {
	svc := &Service{
		ConfigProvider: stubProvider{cfg: testConfig()},
		DataDir:        filepath.Join(t.TempDir(), "data"),
		Getenv:         func(string) string { return "" },
	}

	report, err := svc.Run(context.Background())

	require.NoError(t, err)
	status := statusByName(report)
	assert.Equal(t, domain.HealthOK, status["Config file"])
	assert.Equal(t, domain.HealthOK, status["Data directory"])
	assert.Equal(t, domain.HealthWarn, status["Model remote"])
	assert.Equal(t, domain.HealthOK, status["Model local"])
	assert.Equal(t, domain.HealthWarn, status["Embedding e"])
	assert.True(t, report.Healthy())

	entries, err := os.ReadDir(svc.DataDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "probe file is removed")
}

func TestRunAcceptsConfiguredKeys(t *testing.T) {
	env := map[string]string{"EXAMPLE_KEY": "k", "OPENAI_API_KEY": "o"}
	svc := &Service{
		ConfigProvider: stubProvider{cfg: testConfig()},
		DataDir:        t.TempDir(),
		Getenv:         func(k string) string { return env[k] },
	}

	report, err := svc.Run(context.Background())

	require.NoError(t, err)
	for _, c := range report.Checks {
		assert.Equal(t, domain.HealthOK, c.Status, c.Name)
	}
}

func TestRunFlagsInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Context.ContextFileRatio = 2
	svc := &Service{ConfigProvider: stubProvider{cfg: cfg}, DataDir: t.TempDir()}

	report, err := svc.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, domain.HealthError, statusByName(report)["Config file"])
	assert.False(t, report.Healthy())
}

func TestRunStopsWhenConfigCannotLoad(t *testing.T) {
	svc := &Service{ConfigProvider: stubProvider{err: errors.New("boom")}, DataDir: t.TempDir()}

	report, err := svc.Run(context.Background())

	assert.Error(t, err)
	require.Len(t, report.Checks, 1)
	assert.Equal(t, domain.HealthError, report.Checks[0].Status)
}
