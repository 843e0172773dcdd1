package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/doeshing/dirctx/internal/domain"
	"github.com/doeshing/dirctx/internal/pkg/filesystem"
	"github.com/doeshing/dirctx/internal/ports"
)

// SQLiteStore is the append-only prompt history backed by SQLite.
type SQLiteStore struct {
	db   *sql.DB
	path string
	mu   sync.Mutex
	now  func() time.Time
}

// DefaultPath is ~/.dirctx/history/history.db.
func DefaultPath() string {
	return filesystem.AppDir("history", "history.db")
}

// NewSQLiteStore opens (or creates) the history database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), domain.DirectoryPermissions); err != nil {
		return nil, fmt.Errorf("create history dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	db.SetMaxOpenConns(1)
	store := &SQLiteStore{db: db, path: path, now: time.Now}
	if err := store.init(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init history db: %w", err)
	}
	return store, nil
}

// WithClock replaces the time source used for new entries.
func (s *SQLiteStore) WithClock(now func() time.Time) *SQLiteStore {
	s.now = now
	return s
}

func (s *SQLiteStore) init() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS prompt_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session TEXT NOT NULL DEFAULT '',
		timestamp REAL NOT NULL,
		prompt TEXT NOT NULL,
		artifacts TEXT NOT NULL
	);`)
	return err
}

// RecordPrompt appends one accepted turn.
func (s *SQLiteStore) RecordPrompt(ctx context.Context, sessionID, prompt string, artifacts []string) error {
	if artifacts == nil {
		artifacts = []string{}
	}
	encoded, err := json.Marshal(artifacts)
	if err != nil {
		return fmt.Errorf("encode artifacts: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return domain.ErrStoreClosed
	}
	ts := float64(s.now().UnixNano()) / float64(time.Second)
	_, err = s.db.ExecContext(ctx, `INSERT INTO prompt_history (session, timestamp, prompt, artifacts) VALUES (?, ?, ?, ?)`,
		sessionID, ts, prompt, string(encoded))
	if err != nil {
		return fmt.Errorf("insert prompt history: %w", err)
	}
	return nil
}

// AllHistory returns every entry in insertion order.
func (s *SQLiteStore) AllHistory(ctx context.Context) ([]domain.PromptHistoryEntry, error) {
	return s.query(ctx, "SELECT id, session, timestamp, prompt, artifacts FROM prompt_history ORDER BY id ASC")
}

// Records returns the newest entries first, optionally filtered by a prompt
// substring. limit <= 0 returns everything.
func (s *SQLiteStore) Records(ctx context.Context, limit int, search string) ([]domain.PromptHistoryEntry, error) {
	builder := strings.Builder{}
	builder.WriteString("SELECT id, session, timestamp, prompt, artifacts FROM prompt_history")
	var args []interface{}
	if search != "" {
		builder.WriteString(" WHERE prompt LIKE ?")
		args = append(args, "%"+search+"%")
	}
	builder.WriteString(" ORDER BY id DESC")
	if limit > 0 {
		builder.WriteString(" LIMIT ?")
		args = append(args, limit)
	}
	return s.query(ctx, builder.String(), args...)
}

func (s *SQLiteStore) query(ctx context.Context, query string, args ...interface{}) ([]domain.PromptHistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil, domain.ErrStoreClosed
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query prompt history: %w", err)
	}
	defer rows.Close()

	var entries []domain.PromptHistoryEntry
	for rows.Next() {
		var (
			entry     domain.PromptHistoryEntry
			ts        float64
			artifacts string
		)
		if err := rows.Scan(&entry.ID, &entry.SessionID, &ts, &entry.Prompt, &artifacts); err != nil {
			return nil, fmt.Errorf("scan prompt history: %w", err)
		}
		if err := json.Unmarshal([]byte(artifacts), &entry.Artifacts); err != nil {
			return nil, fmt.Errorf("decode artifacts of entry %d: %w", entry.ID, err)
		}
		entry.Timestamp = time.Unix(0, int64(ts*float64(time.Second)))
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// MetadataFromHistory aggregates frequency and positions per artifact over the
// whole history. LastModified is left for the caller to fill in.
func (s *SQLiteStore) MetadataFromHistory(ctx context.Context) (map[string]domain.ArtifactMetadata, error) {
	entries, err := s.AllHistory(ctx)
	if err != nil {
		return nil, err
	}
	return Aggregate(entries), nil
}

// Aggregate folds history entries into per-artifact metadata.
func Aggregate(entries []domain.PromptHistoryEntry) map[string]domain.ArtifactMetadata {
	stats := make(map[string]domain.ArtifactMetadata)
	for _, entry := range entries {
		for pos, id := range entry.Artifacts {
			meta := stats[id]
			meta.Frequency++
			meta.Positions = append(meta.Positions, pos)
			stats[id] = meta
		}
	}
	return stats
}

// Clear deletes all history entries.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return domain.ErrStoreClosed
	}
	if _, err := s.db.ExecContext(ctx, "DELETE FROM prompt_history"); err != nil {
		return fmt.Errorf("clear prompt history: %w", err)
	}
	return nil
}

// ExportJSON writes the history to a jsonl file, oldest first. The file is
// written beside dest and renamed into place, so a failed export leaves dest
// as it was.
func (s *SQLiteStore) ExportJSON(ctx context.Context, dest string) (n int, err error) {
	entries, err := s.AllHistory(ctx)
	if err != nil {
		return 0, err
	}
	file, err := os.CreateTemp(filepath.Dir(dest), "."+filepath.Base(dest)+".*")
	if err != nil {
		return 0, err
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = cerr
		}
		if err == nil {
			err = os.Rename(file.Name(), dest)
		}
		if err != nil {
			_ = os.Remove(file.Name())
			n = 0
		}
	}()
	if err := writeJSONL(file, entries); err != nil {
		return 0, err
	}
	return len(entries), nil
}

func writeJSONL(w io.Writer, entries []domain.PromptHistoryEntry) error {
	enc := json.NewEncoder(w)
	for _, entry := range entries {
		if err := enc.Encode(entry); err != nil {
			return fmt.Errorf("encode history entry %d: %w", entry.ID, err)
		}
	}
	return nil
}

// Path returns the sqlite database path.
func (s *SQLiteStore) Path() string {
	return s.path
}

// Close releases the database. Later calls return domain.ErrStoreClosed.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

var _ ports.UsageHistoryStore = (*SQLiteStore)(nil)
