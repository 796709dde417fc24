package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Unlimited marks "no timer constraint tracked": persisting it removes the
// day's ledger entry instead of writing a value.
const Unlimited int64 = -1

// Store owns the configuration document on disk. All readers and writers of
// the document go through its mutex, so ledger updates and settings saves
// never interleave. Loads are served from an in-memory copy as long as the
// file's mtime is unchanged.
type Store struct {
	path string

	mu     sync.Mutex
	cached *Document
	mtime  time.Time
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the document location on disk.
func (s *Store) Path() string {
	return s.path
}

// Load returns a copy of the document. A missing file is replaced with the
// default document; any other failure is reported alongside a usable default
// so that enforcement keeps running on a best-effort schedule.
func (s *Store) Load() (Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

func (s *Store) loadLocked() (Document, error) {
	info, statErr := os.Stat(s.path)
	if s.cached != nil && statErr == nil && info.ModTime().Equal(s.mtime) {
		return s.cached.clone(), nil
	}

	if statErr != nil {
		if errors.Is(statErr, os.ErrNotExist) {
			doc := NewDefaultDocument()
			if err := s.saveLocked(doc); err != nil {
				return doc, fmt.Errorf("failed to write default document: %w", err)
			}
			return doc.clone(), nil
		}
		return NewDefaultDocument(), fmt.Errorf("failed to stat %s: %w", s.path, statErr)
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return NewDefaultDocument(), fmt.Errorf("failed to read %s: %w", s.path, err)
	}
	doc, err := Parse(data)
	if err != nil {
		return NewDefaultDocument(), fmt.Errorf("failed to parse %s: %w", s.path, err)
	}

	s.cached = &doc
	s.mtime = info.ModTime()
	return doc.clone(), nil
}

// Save atomically replaces the document on disk and refreshes the cache.
func (s *Store) Save(doc Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(doc)
}

func (s *Store) saveLocked(doc Document) error {
	data, err := toml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}

	// full replacement file, swapped into place, so a crash mid-write
	// never leaves a truncated document behind
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", s.path, err)
	}

	cached := doc.clone()
	s.cached = &cached
	if info, err := os.Stat(s.path); err == nil {
		s.mtime = info.ModTime()
	}
	return nil
}

// PersistRemaining records today's remaining seconds in the ledger, pruning
// expired entries on the way. Unlimited removes today's entry. The whole
// read-modify-write runs under the store lock.
//
// An unreadable document aborts the write: saving the default fallback here
// would overwrite whatever the user still has on disk.
func (s *Store) PersistRemaining(now time.Time, sec int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.loadLocked()
	if err != nil {
		return fmt.Errorf("refusing ledger write: %w", err)
	}
	if sec == Unlimited {
		doc.ClearRemaining(now)
	} else {
		doc.SetRemaining(now, sec)
	}
	doc.PruneRemaining(now)
	return s.saveLocked(doc)
}
