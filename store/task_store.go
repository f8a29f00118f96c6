package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/osforge/osforge/graph"
)

// ErrTaskNotFound is returned by Load when no task with the given id
// has been saved.
var ErrTaskNotFound = errors.New("task not found")

// TaskStore is the interface implemented by the file-backed and
// Redis-backed task stores.
type TaskStore interface {
	Save(t *graph.Task) error
	Load(id string) (*graph.Task, error)
	LoadAll() ([]*graph.Task, error)
	Close() error
}

// FileTaskStore persists tasks as <baseDir>/<task_id>.json, one file
// per task, with an in-memory cache rehydrated from disk on
// construction — the same cache-plus-atomic-write shape as the
// teacher's FileTaskStore, adapted to the orchestrator's per-task
// physical layout instead of a single index.json.
type FileTaskStore struct {
	baseDir string
	mu      sync.RWMutex
	cache   map[string]*graph.Task
	logger  *zap.Logger
}

// NewFileTaskStore creates or opens a file-backed task store rooted at
// baseDir (<workspace>/<meta>/tasks).
func NewFileTaskStore(baseDir string, logger *zap.Logger) (*FileTaskStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create task store dir: %w", err)
	}
	s := &FileTaskStore{
		baseDir: baseDir,
		cache:   make(map[string]*graph.Task),
		logger:  logger.With(zap.String("component", "task_store")),
	}
	if err := s.loadFromDisk(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FileTaskStore) loadFromDisk() error {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return fmt.Errorf("read task store dir: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.baseDir, e.Name()))
		if err != nil {
			s.logger.Warn("skipping unreadable task file", zap.String("file", e.Name()), zap.Error(err))
			continue
		}
		var t graph.Task
		if err := json.Unmarshal(data, &t); err != nil {
			s.logger.Warn("skipping corrupt task file", zap.String("file", e.Name()), zap.Error(err))
			continue
		}
		s.cache[t.ID] = &t
	}
	return nil
}

func (s *FileTaskStore) path(id string) string {
	return filepath.Join(s.baseDir, id+".json")
}

// Save refreshes the updated-at timestamp and persists the task
// atomically, then updates the in-memory cache.
func (s *FileTaskStore) Save(t *graph.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	t.UpdatedAt = time.Now()

	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal task %s: %w", t.ID, err)
	}
	tmp := s.path(t.ID) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write task %s: %w", t.ID, err)
	}
	if err := os.Rename(tmp, s.path(t.ID)); err != nil {
		return fmt.Errorf("commit task %s: %w", t.ID, err)
	}
	s.cache[t.ID] = t.Clone()
	return nil
}

// Load returns the task with the given id from the in-memory cache.
func (s *FileTaskStore) Load(id string) (*graph.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.cache[id]
	if !ok {
		return nil, fmt.Errorf("load task %s: %w", id, ErrTaskNotFound)
	}
	return t.Clone(), nil
}

// LoadAll returns every stored task sorted by created-at.
func (s *FileTaskStore) LoadAll() ([]*graph.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*graph.Task, 0, len(s.cache))
	for _, t := range s.cache {
		out = append(out, t.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// Close is a no-op for the file backend; present to satisfy TaskStore.
func (s *FileTaskStore) Close() error { return nil }
