// Package cache implements the Cache Store (§4.6): a single JSON file under
// $OMNI_CACHE_HOME, arbitrated by an advisory file lock on a sidecar file so
// concurrent omni processes never observe a partially written cache.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/omnicli/omni/pkg/logger"
	"github.com/omnicli/omni/pkg/omnierr"
)

var log = logger.New("cache:store")

const lockTimeout = 10 * time.Second

// Record is one cache entry. ExpiresAt is the zero time when the record never
// expires.
type Record struct {
	Value     json.RawMessage `json:"value"`
	CreatedAt time.Time       `json:"created_at"`
	ExpiresAt time.Time       `json:"expires_at,omitempty"`
}

// Expired reports whether the record's TTL has elapsed as of now.
func (r Record) Expired(now time.Time) bool {
	return !r.ExpiresAt.IsZero() && now.After(r.ExpiresAt)
}

type document struct {
	Records map[string]Record `json:"records"`
}

// Store is the on-disk JSON cache at Path, guarded by a flock on Path+".lock".
type Store struct {
	Path string
	lock *flock.Flock
}

// Open returns a Store backed by the JSON file at path, creating its parent
// directory if needed. The file itself is created lazily on first write.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}
	return &Store{Path: path, lock: flock.New(path + ".lock")}, nil
}

// Get reads one record under a shared lock. A missing key or an expired
// record both return (Record{}, false, nil).
func (s *Store) Get(key string) (Record, bool, error) {
	doc, err := s.readShared()
	if err != nil {
		return Record{}, false, err
	}
	rec, ok := doc.Records[key]
	if !ok || rec.Expired(time.Now()) {
		return Record{}, false, nil
	}
	return rec, true, nil
}

// Set writes one record under the exclusive lock, read-modify-write against
// the current file contents. ttl of zero means the record never expires.
func (s *Store) Set(key string, value any, ttl time.Duration) error {
	return s.exclusive(func(doc *document) error {
		raw, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("marshaling cache value for %s: %w", key, err)
		}
		rec := Record{Value: raw, CreatedAt: time.Now()}
		if ttl != 0 {
			rec.ExpiresAt = rec.CreatedAt.Add(ttl)
		}
		doc.Records[key] = rec
		return nil
	})
}

// Delete removes a key under the exclusive lock. Deleting an absent key is
// not an error.
func (s *Store) Delete(key string) error {
	return s.exclusive(func(doc *document) error {
		delete(doc.Records, key)
		return nil
	})
}

// Keys returns every non-expired key currently in the cache, under a shared
// lock. Used by `status` to render cache contents.
func (s *Store) Keys() ([]string, error) {
	doc, err := s.readShared()
	if err != nil {
		return nil, err
	}
	now := time.Now()
	var keys []string
	for k, rec := range doc.Records {
		if !rec.Expired(now) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func (s *Store) readShared() (*document, error) {
	ctx, cancel := context.WithTimeout(context.Background(), lockTimeout)
	defer cancel()
	locked, err := s.lock.TryRLockContext(ctx, 25*time.Millisecond)
	if err != nil {
		return nil, fmt.Errorf("%w: acquiring shared cache lock: %v", omnierr.ErrCacheLocked, err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: timed out waiting for shared cache lock", omnierr.ErrCacheLocked)
	}
	defer s.lock.Unlock()

	return s.readUnlocked()
}

func (s *Store) readUnlocked() (*document, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return &document{Records: map[string]Record{}}, nil
		}
		return nil, fmt.Errorf("reading cache file: %w", err)
	}
	if len(data) == 0 {
		return &document{Records: map[string]Record{}}, nil
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		log.Printf("cache file %s is corrupt, resetting to empty: %v", s.Path, err)
		return &document{Records: map[string]Record{}}, nil
	}
	if doc.Records == nil {
		doc.Records = map[string]Record{}
	}
	return &doc, nil
}

// exclusive acquires the exclusive lock, reads the current document, applies
// mutate, and atomically writes the result via a temp file + rename.
func (s *Store) exclusive(mutate func(*document) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), lockTimeout)
	defer cancel()
	locked, err := s.lock.TryLockContext(ctx, 25*time.Millisecond)
	if err != nil {
		return fmt.Errorf("%w: acquiring exclusive cache lock: %v", omnierr.ErrCacheLocked, err)
	}
	if !locked {
		return fmt.Errorf("%w: timed out waiting for exclusive cache lock", omnierr.ErrCacheLocked)
	}
	defer s.lock.Unlock()

	doc, err := s.readUnlocked()
	if err != nil {
		return err
	}
	if err := mutate(doc); err != nil {
		return err
	}
	return s.writeAtomic(doc)
}

func (s *Store) writeAtomic(doc *document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling cache: %w", err)
	}

	tmp := s.Path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("creating temp cache file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("writing temp cache file: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("syncing temp cache file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing temp cache file: %w", err)
	}
	if err := os.Rename(tmp, s.Path); err != nil {
		return fmt.Errorf("renaming cache file into place: %w", err)
	}
	return nil
}
