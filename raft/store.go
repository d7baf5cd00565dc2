package raft

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
)

var (
	// ErrLocked is returned when another process holds the data directory
	ErrLocked = errors.New("data directory is locked by another process")
	// ErrInvalidKey is returned for keys that would escape the data directory
	ErrInvalidKey = errors.New("invalid key")
)

const (
	lockFileName = ".filavault.lock"
	backupDir    = "backups"
)

// Store keeps opaque blobs next to the Raft data: uploaded preset archives and
// daily inventory backups. Keys may contain "/" and map to sub-directories.
type Store struct {
	mu sync.RWMutex
	// Path to the storage directory
	path string
	// Map to store values when not using persistence
	inMemory map[string][]byte
	lock     *flock.Flock
}

// NewStore creates a new store. An empty path keeps everything in memory.
func NewStore(path string) (*Store, error) {
	s := &Store{
		path:     path,
		inMemory: make(map[string][]byte),
	}
	if path == "" {
		return s, nil
	}

	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	s.lock = flock.New(filepath.Join(path, lockFileName))
	ok, err := s.lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, ErrLocked)
	}
	return s, nil
}

// resolve cleans key and maps it to its file. Both storage modes index by the
// cleaned key.
func (s *Store) resolve(key string) (clean, path string, err error) {
	clean = filepath.ToSlash(filepath.Clean(key))
	if key == "" || clean == "." || strings.HasPrefix(clean, "../") || clean == ".." || filepath.IsAbs(key) {
		return "", "", fmt.Errorf("%q: %w", key, ErrInvalidKey)
	}
	if clean == lockFileName {
		return "", "", fmt.Errorf("%q: %w", key, ErrInvalidKey)
	}
	return clean, filepath.Join(s.path, filepath.FromSlash(clean)), nil
}

// Put stores a value under key, replacing any previous value
func (s *Store) Put(key string, val []byte) error {
	key, path, err := s.resolve(key)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.putLocked(key, path, val)
}

func (s *Store) putLocked(key, path string, val []byte) error {
	if s.path == "" {
		s.inMemory[key] = append([]byte(nil), val...)
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, val, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Get retrieves a value by key. Missing keys return an error matching fs.ErrNotExist.
func (s *Store) Get(key string) ([]byte, error) {
	key, path, err := s.resolve(key)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.path == "" {
		val, ok := s.inMemory[key]
		if !ok {
			return nil, fmt.Errorf("%s: %w", key, fs.ErrNotExist)
		}
		return append([]byte(nil), val...), nil
	}

	return os.ReadFile(path)
}

// Delete removes a key. Deleting a missing key is not an error.
func (s *Store) Delete(key string) error {
	key, path, err := s.resolve(key)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		delete(s.inMemory, key)
		return nil
	}

	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// List returns the sorted keys starting with prefix
func (s *Store) List(prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := []string{}

	if s.path == "" {
		for k := range s.inMemory {
			if strings.HasPrefix(k, prefix) {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		return keys, nil
	}

	err := filepath.WalkDir(s.path, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasSuffix(path, ".tmp") {
			return nil
		}
		rel, err := filepath.Rel(s.path, path)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if key != lockFileName && strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(keys)
	return keys, nil
}

// BackupKey is the key of the backup taken for prefix on day
func BackupKey(prefix string, day time.Time) string {
	return fmt.Sprintf("%s/%s-%s.json", backupDir, prefix, day.UTC().Format("2006-01-02"))
}

// Backup writes data as the backup for prefix on day unless one already
// exists. The first backup of the day is kept. It reports whether data was written.
func (s *Store) Backup(prefix string, day time.Time, data []byte) (bool, error) {
	key, path, err := s.resolve(BackupKey(prefix, day))
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		if _, ok := s.inMemory[key]; ok {
			return false, nil
		}
	} else if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return false, err
	}

	if err := s.putLocked(key, path, data); err != nil {
		return false, err
	}
	return true, nil
}

// Close releases the data directory lock
func (s *Store) Close() error {
	if s.lock == nil {
		return nil
	}
	return s.lock.Unlock()
}
