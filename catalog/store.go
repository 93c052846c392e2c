package catalog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/uuid"
)

// ErrNoSnapshots is returned by Latest when the store is empty.
var ErrNoSnapshots = errors.New("no catalog snapshots")

// Store keeps catalog snapshots in a directory, one JSON file per catalog
// named by its ID.
type Store struct {
	storageDir string
}

// ReadError describes a failure to read a single snapshot file.
type ReadError struct {
	Filename string
	Err      error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("%s: %v", e.Filename, e.Err)
}

// ListResult contains the snapshots that could be read plus any per-file
// errors. Catalogs are ordered newest first.
type ListResult struct {
	Catalogs []Catalog
	Errors   []ReadError
}

// NewStore creates a snapshot store in storageDir.
func NewStore(storageDir string) (*Store, error) {
	// 0700: owner-only access
	if err := os.MkdirAll(storageDir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	return &Store{storageDir: storageDir}, nil
}

func (s *Store) path(id uuid.UUID) string {
	return filepath.Join(s.storageDir, id.String()+".json")
}

// Add saves a snapshot.
func (s *Store) Add(c *Catalog) error {
	if c.ID == uuid.Nil {
		return fmt.Errorf("catalog has no ID")
	}
	return Save(c, s.path(c.ID))
}

// Get retrieves a snapshot by ID. A missing snapshot is (nil, nil).
func (s *Store) Get(id uuid.UUID) (*Catalog, error) {
	c, err := Load(s.path(id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	return c, nil
}

// List returns every readable snapshot. Corrupted files are collected in
// the result's Errors rather than failing the whole listing; a non-nil
// error means the directory itself could not be read.
func (s *Store) List() (*ListResult, error) {
	entries, err := os.ReadDir(s.storageDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read storage directory: %w", err)
	}

	result := &ListResult{}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}

		c, err := Load(filepath.Join(s.storageDir, entry.Name()))
		if err != nil {
			result.Errors = append(result.Errors, ReadError{
				Filename: entry.Name(),
				Err:      err,
			})
			continue
		}

		result.Catalogs = append(result.Catalogs, *c)
	}

	sort.SliceStable(result.Catalogs, func(i, j int) bool {
		return result.Catalogs[i].SavedAt.After(result.Catalogs[j].SavedAt)
	})

	return result, nil
}

// Latest returns the most recently saved snapshot.
func (s *Store) Latest() (*Catalog, error) {
	result, err := s.List()
	if err != nil {
		return nil, err
	}
	if len(result.Catalogs) == 0 {
		return nil, ErrNoSnapshots
	}
	return &result.Catalogs[0], nil
}

// Delete removes a snapshot by ID.
func (s *Store) Delete(id uuid.UUID) error {
	if err := os.Remove(s.path(id)); err != nil {
		return fmt.Errorf("failed to delete catalog: %w", err)
	}
	return nil
}
