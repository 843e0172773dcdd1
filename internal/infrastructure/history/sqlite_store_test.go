package history

import (
	"bufio"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doeshing/dirctx/internal/domain"
)

func openStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "history", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRecordPromptAppendsInOrder(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	base := time.Unix(1_700_000_000, 0)
	tick := 0
	store.WithClock(func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	})

	require.NoError(t, store.RecordPrompt(ctx, "s1", "first", []string{"a", "b"}))
	require.NoError(t, store.RecordPrompt(ctx, "s1", "second", []string{"b"}))
	require.NoError(t, store.RecordPrompt(ctx, "s2", "third", nil))

	entries, err := store.AllHistory(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "first", entries[0].Prompt)
	assert.Equal(t, []string{"a", "b"}, entries[0].Artifacts)
	assert.Equal(t, "s2", entries[2].SessionID)
	assert.Empty(t, entries[2].Artifacts)
	assert.Equal(t, base.Add(time.Second).Unix(), entries[0].Timestamp.Unix())
	assert.Less(t, entries[0].ID, entries[1].ID)
}

func TestMetadataFromHistory(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	require.NoError(t, store.RecordPrompt(ctx, "s", "p1", []string{"a", "b", "c"}))
	require.NoError(t, store.RecordPrompt(ctx, "s", "p2", []string{"c", "a"}))

	meta, err := store.MetadataFromHistory(ctx)

	require.NoError(t, err)
	assert.Equal(t, domain.ArtifactMetadata{Frequency: 2, Positions: []int{0, 1}}, meta["a"])
	assert.Equal(t, domain.ArtifactMetadata{Frequency: 1, Positions: []int{1}}, meta["b"])
	assert.Equal(t, domain.ArtifactMetadata{Frequency: 2, Positions: []int{2, 0}}, meta["c"])
	_, ok := meta["missing"]
	assert.False(t, ok)
}

func TestRecordsNewestFirstWithSearch(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	for _, p := range []string{"explain parser", "fix lexer", "explain lexer"} {
		require.NoError(t, store.RecordPrompt(ctx, "s", p, nil))
	}

	recent, err := store.Records(ctx, 2, "")
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "explain lexer", recent[0].Prompt)

	found, err := store.Records(ctx, 0, "explain")
	require.NoError(t, err)
	assert.Len(t, found, 2)
}

func TestHistoryPersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, store.RecordPrompt(ctx, "s", "kept", []string{"x"}))
	require.NoError(t, store.Close())

	reopened, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer reopened.Close()
	entries, err := reopened.AllHistory(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "kept", entries[0].Prompt)
}

func TestClearAndClosed(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	require.NoError(t, store.RecordPrompt(ctx, "s", "p", []string{"a"}))
	require.NoError(t, store.Clear(ctx))

	entries, err := store.AllHistory(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)

	require.NoError(t, store.Close())
	assert.ErrorIs(t, store.RecordPrompt(ctx, "s", "p", nil), domain.ErrStoreClosed)
}

func TestExportJSON(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	require.NoError(t, store.RecordPrompt(ctx, "s", "one", []string{"a"}))
	require.NoError(t, store.RecordPrompt(ctx, "s", "two", []string{"b"}))
	dest := filepath.Join(t.TempDir(), "export.jsonl")

	n, err := store.ExportJSON(ctx, dest)

	require.NoError(t, err)
	assert.Equal(t, 2, n)
	f, err := os.Open(dest)
	require.NoError(t, err)
	defer f.Close()
	lines := 0
	for sc := bufio.NewScanner(f); sc.Scan(); {
		lines++
	}
	assert.Equal(t, 2, lines)
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("no space left on device") }

func TestWriteJSONLReportsWriteErrors(t *testing.T) {
	entries := []domain.PromptHistoryEntry{{ID: 3, SessionID: "s", Prompt: "p"}}

	err := writeJSONL(failingWriter{}, entries)

	assert.ErrorContains(t, err, "encode history entry 3")
	assert.ErrorContains(t, err, "no space left on device")
}

func TestFailedExportLeavesNoFile(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	require.NoError(t, store.RecordPrompt(ctx, "s", "one", []string{"a"}))
	dir := t.TempDir()
	// A directory at dest makes the final rename fail after the data is written.
	dest := filepath.Join(dir, "export.jsonl")
	require.NoError(t, os.MkdirAll(filepath.Join(dest, "occupied"), 0o755))

	n, err := store.ExportJSON(ctx, dest)

	require.Error(t, err)
	assert.Zero(t, n)
	names, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, names, 1, "temporary export file is removed")
	assert.Equal(t, "export.jsonl", names[0].Name())
	assert.True(t, names[0].IsDir())
}
