// Package prefixcache persists the TTL-bounded prefix cache in BadgerDB.
//
// Keys are artifact sequences joined with domain.PrefixSeparator and can be far
// longer than Badger allows, so records are stored under the sha256 of the key
// and carry the full key in their value.
package prefixcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/doeshing/dirctx/internal/domain"
	"github.com/doeshing/dirctx/internal/pkg/filesystem"
	"github.com/doeshing/dirctx/internal/ports"
)

var keyPrefix = []byte("prefix/")

// Options configures the store.
type Options struct {
	// Path is the Badger directory. Ignored when InMemory is set.
	Path     string
	InMemory bool
	TTL      time.Duration
	Logger   ports.Logger
}

// DefaultPath is ~/.dirctx/prefix_cache.
func DefaultPath() string {
	return filesystem.AppDir("prefix_cache")
}

// BadgerStore implements ports.PrefixCacheStore.
type BadgerStore struct {
	mu     sync.RWMutex
	db     *badger.DB
	ttl    time.Duration
	logger ports.Logger
	now    func() time.Time
}

type record struct {
	Prefix  string  `json:"prefix"`
	LastHit float64 `json:"last_hit_timestamp"`
}

// Open opens or creates the store.
func Open(opts Options) (*BadgerStore, error) {
	var bopts badger.Options
	if opts.InMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if opts.Path == "" {
			return nil, errors.New("prefix cache path is required")
		}
		if err := os.MkdirAll(opts.Path, domain.DirectoryPermissions); err != nil {
			return nil, fmt.Errorf("create prefix cache dir %s: %w", opts.Path, err)
		}
		bopts = badger.DefaultOptions(opts.Path).WithSyncWrites(true)
	}
	bopts = bopts.WithNumVersionsToKeep(1)
	if opts.Logger != nil {
		bopts = bopts.WithLogger(&badgerLogger{logger: opts.Logger})
	} else {
		bopts = bopts.WithLogger(nil)
	}

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("open prefix cache: %w", err)
	}
	return &BadgerStore{db: db, ttl: opts.TTL, logger: opts.Logger, now: time.Now}, nil
}

// WithClock replaces the time source.
func (s *BadgerStore) WithClock(now func() time.Time) *BadgerStore {
	s.now = now
	return s
}

// NonExpiredPrefixes deletes entries whose age reached the TTL and returns the
// remaining ones ordered by key.
func (s *BadgerStore) NonExpiredPrefixes(ctx context.Context) ([]domain.PrefixCacheEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return nil, domain.ErrStoreClosed
	}

	now := s.now()
	var (
		live    []domain.PrefixCacheEntry
		expired [][]byte
	)
	err := s.scan(ctx, func(key []byte, entry domain.PrefixCacheEntry, ok bool) {
		if !ok || entry.Expired(now, s.ttl) {
			expired = append(expired, key)
			return
		}
		live = append(live, entry)
	})
	if err != nil {
		return nil, err
	}

	if len(expired) > 0 {
		err := s.db.Update(func(txn *badger.Txn) error {
			for _, key := range expired {
				if err := txn.Delete(key); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("delete expired prefixes: %w", err)
		}
		if s.logger != nil {
			s.logger.Debug("expired prefix cache entries", map[string]interface{}{"count": len(expired)})
		}
	}
	sortEntries(live)
	return live, nil
}

// Entries lists all entries without expiring anything.
func (s *BadgerStore) Entries(ctx context.Context) ([]domain.PrefixCacheEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return nil, domain.ErrStoreClosed
	}
	var entries []domain.PrefixCacheEntry
	err := s.scan(ctx, func(_ []byte, entry domain.PrefixCacheEntry, ok bool) {
		if ok {
			entries = append(entries, entry)
		}
	})
	sortEntries(entries)
	return entries, err
}

// RecordPrefixHit upserts key with the current time.
func (s *BadgerStore) RecordPrefixHit(ctx context.Context, key domain.PrefixKey) error {
	if key.IsEmpty() {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return domain.ErrStoreClosed
	}
	now := s.now()
	value, err := json.Marshal(record{
		Prefix:  key.String(),
		LastHit: float64(now.UnixNano()) / float64(time.Second),
	})
	if err != nil {
		return err
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(storageKey(key), value)
	})
	if err != nil {
		return fmt.Errorf("record prefix hit: %w", err)
	}
	return nil
}

// Clear drops every entry.
func (s *BadgerStore) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return domain.ErrStoreClosed
	}
	if err := s.db.DropPrefix(keyPrefix); err != nil {
		return fmt.Errorf("clear prefix cache: %w", err)
	}
	return nil
}

// Close releases the database.
func (s *BadgerStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// scan visits every record. ok is false for values that cannot be decoded;
// they are treated as expired.
func (s *BadgerStore) scan(ctx context.Context, visit func(key []byte, entry domain.PrefixCacheEntry, ok bool)) error {
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = keyPrefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()
			key := item.KeyCopy(nil)
			var rec record
			err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			})
			if err != nil || rec.Prefix == "" {
				visit(key, domain.PrefixCacheEntry{}, false)
				continue
			}
			visit(key, domain.PrefixCacheEntry{
				Key:     domain.PrefixKey(rec.Prefix),
				LastHit: time.Unix(0, int64(rec.LastHit*float64(time.Second))),
			}, true)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("scan prefix cache: %w", err)
	}
	return nil
}

func sortEntries(entries []domain.PrefixCacheEntry) {
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
}

func storageKey(key domain.PrefixKey) []byte {
	sum := sha256.Sum256([]byte(key))
	return append(append([]byte(nil), keyPrefix...), hex.EncodeToString(sum[:])...)
}

type badgerLogger struct {
	logger ports.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...), nil, nil)
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...), nil)
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...), nil)
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...), nil)
}

var _ ports.PrefixCacheStore = (*BadgerStore)(nil)
