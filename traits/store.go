package traits

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/felixlab/polysin/core"
)

// Store is the durable trait-library repository. Snapshot never blocks
// behind a commit in progress beyond the in-memory swap; Commit is the
// single mutation path and serializes all writers.
type Store interface {
	Snapshot() core.TraitLibrary
	Commit(newTraits map[string]core.Trait) (core.TraitLibrary, error)
}

// FileStore keeps the library in memory and mirrors every accepted
// mutation to a single JSON document on disk. The durable write is
// temp-file-then-rename, so readers of the file never observe a
// half-written document.
type FileStore struct {
	// commitMu serializes writers across the whole re-check + durable
	// write span. mu only guards the in-memory swap, so snapshots are
	// never held up by disk I/O.
	commitMu sync.Mutex
	mu       sync.RWMutex
	path     string
	library  core.TraitLibrary
}

// OpenFileStore loads the library at path, or seeds and persists the
// given seed library if no document exists yet. A document that exists
// but cannot be parsed, or that violates the schema, fails with
// ErrCorruptLibrary; the store never silently replaces a damaged file.
func OpenFileStore(path string, seed core.TraitLibrary) (*FileStore, error) {
	s := &FileStore{path: path}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		var lib core.TraitLibrary
		if err := json.Unmarshal(data, &lib); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", core.ErrCorruptLibrary, path, err)
		}
		if lib.Meta.Version == "" || lib.Traits == nil {
			return nil, fmt.Errorf("%w: %s: missing meta.version or traits", core.ErrCorruptLibrary, path)
		}
		// Stored traits carry their key in the map; backfill the field
		// for entries written by older versions.
		for key, t := range lib.Traits {
			if t.Key == "" {
				t.Key = key
				lib.Traits[key] = t
			}
		}
		if err := CheckLibrary(lib); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", core.ErrCorruptLibrary, path, err)
		}
		s.library = lib
	case os.IsNotExist(err):
		s.library = seed.Clone()
		if err := s.persist(s.library); err != nil {
			return nil, fmt.Errorf("seeding trait library: %w", err)
		}
	default:
		return nil, fmt.Errorf("reading trait library: %w", err)
	}

	return s, nil
}

// Snapshot returns a deep copy of the current library. Callers may read
// it freely; mutations never reach the store.
func (s *FileStore) Snapshot() core.TraitLibrary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.library.Clone()
}

// Commit atomically merges newTraits into the library and persists the
// result. Fails with ErrKeyConflict if any key already exists; callers
// must resolve new-vs-reuse before committing. On any failure the
// in-memory and durable library are both left unchanged.
func (s *FileStore) Commit(newTraits map[string]core.Trait) (core.TraitLibrary, error) {
	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	current := s.Snapshot()
	for key := range newTraits {
		if current.Has(key) {
			return core.TraitLibrary{}, fmt.Errorf("%w: %s", core.ErrKeyConflict, key)
		}
	}

	next := current
	for key, t := range newTraits {
		next.Traits[key] = t.Clone()
	}

	if err := s.persist(next); err != nil {
		return core.TraitLibrary{}, err
	}

	s.mu.Lock()
	s.library = next
	s.mu.Unlock()
	return next.Clone(), nil
}

// persist writes lib to a temporary file in the target directory, syncs
// it, and renames it over the previous document.
func (s *FileStore) persist(lib core.TraitLibrary) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating library dir: %w", err)
	}

	data, err := json.MarshalIndent(lib, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding trait library: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".trait_library-*.json")
	if err != nil {
		return fmt.Errorf("creating temp library file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing trait library: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing trait library: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing trait library: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replacing trait library: %w", err)
	}
	return nil
}
