package project

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	playerrors "github.com/jscyril/multitrack/pkg/errors"
)

// FileStore keeps one JSON file per project in a directory
type FileStore struct {
	basePath string
	mu       sync.RWMutex
}

var _ Store = (*FileStore)(nil)

// NewFileStore creates a store rooted at basePath
func NewFileStore(basePath string) *FileStore {
	return &FileStore{basePath: basePath}
}

// Save writes p, stamping its update time
func (s *FileStore) Save(ctx context.Context, p *Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.basePath, 0755); err != nil {
		return fmt.Errorf("create project directory: %w", err)
	}

	p.UpdatedAt = time.Now()
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal project: %w", err)
	}

	if err := os.WriteFile(s.path(p.ID), data, 0644); err != nil {
		return fmt.Errorf("write project file: %w", err)
	}
	return nil
}

// Load reads the project with id
func (s *FileStore) Load(ctx context.Context, id string) (*Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read(s.path(id))
}

// List returns every readable project, most recently updated first
func (s *FileStore) List(ctx context.Context) ([]Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.basePath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read project directory: %w", err)
	}

	var out []Summary
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		p, err := s.read(filepath.Join(s.basePath, entry.Name()))
		if err != nil {
			continue // Skip files we can't read
		}
		out = append(out, summarize(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

// Delete removes the project with id
func (s *FileStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path(id))
	if errors.Is(err, os.ErrNotExist) {
		return playerrors.ErrProjectNotFound
	}
	if err != nil {
		return fmt.Errorf("delete project file: %w", err)
	}
	return nil
}

func (s *FileStore) path(id string) string {
	return filepath.Join(s.basePath, filepath.Base(id)+".json")
}

func (s *FileStore) read(path string) (*Project, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, playerrors.ErrProjectNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read project file: %w", err)
	}
	var p Project
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse project file: %w", err)
	}
	return &p, nil
}
