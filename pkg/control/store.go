package control

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// ManifestStore persists the plugin manifest
type ManifestStore interface {
	// Load returns every entry keyed by plugin name
	Load(ctx context.Context) (map[string]*ManifestEntry, error)

	// Save inserts or replaces one entry
	Save(ctx context.Context, entry *ManifestEntry) error

	// Delete removes an entry; deleting a missing entry is not an error
	Delete(ctx context.Context, name string) error
}

// manifestFile is the on-disk layout of FileStore
type manifestFile struct {
	Plugins []*ManifestEntry `json:"plugins"`
}

// FileStore keeps the manifest in a single JSON file.
// Every write replaces the file through a rename so readers never see a partial file.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore creates a file-backed manifest store, creating the parent directory
func NewFileStore(path string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create manifest directory: %w", err)
	}
	return &FileStore{path: path}, nil
}

// Path returns the manifest file location
func (s *FileStore) Path() string {
	return s.path
}

// Load implements ManifestStore.Load. A missing file is an empty manifest.
func (s *FileStore) Load(ctx context.Context) (map[string]*ManifestEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read()
}

// Save implements ManifestStore.Save
func (s *FileStore) Save(ctx context.Context, entry *ManifestEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.read()
	if err != nil {
		return err
	}
	entries[entry.Name] = entry.clone()
	return s.write(entries)
}

// Delete implements ManifestStore.Delete
func (s *FileStore) Delete(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.read()
	if err != nil {
		return err
	}
	if _, ok := entries[name]; !ok {
		return nil
	}
	delete(entries, name)
	return s.write(entries)
}

func (s *FileStore) read() (map[string]*ManifestEntry, error) {
	entries := make(map[string]*ManifestEntry)

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return entries, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var file manifestFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to unmarshal manifest: %w", err)
	}
	for _, e := range file.Plugins {
		if e == nil || e.Name == "" {
			continue
		}
		entries[e.Name] = e
	}
	return entries, nil
}

func (s *FileStore) write(entries map[string]*ManifestEntry) error {
	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Strings(names)

	file := manifestFile{Plugins: make([]*ManifestEntry, 0, len(names))}
	for _, name := range names {
		file.Plugins = append(file.Plugins, entries[name])
	}

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".manifest-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp manifest: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync manifest: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close manifest: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to replace manifest: %w", err)
	}
	return nil
}
