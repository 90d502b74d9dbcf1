package store

import (
	"sync"

	"github.com/google/uuid"

	"github.com/petrijr/nodeflow/pkg/api"
)

// MemoryStore is a goroutine-safe implementation of GraphStore and RunStore
// backed by maps. Identifiers are random UUIDs, so concurrent creates
// cannot collide.
type MemoryStore struct {
	mu     sync.RWMutex
	graphs map[string]*api.GraphSpec
	runs   map[string]*api.RunInfo
}

// NewMemoryStore creates a new MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		graphs: make(map[string]*api.GraphSpec),
		runs:   make(map[string]*api.RunInfo),
	}
}

// Ensure MemoryStore implements the interfaces.
var _ GraphStore = (*MemoryStore)(nil)

var _ RunStore = (*MemoryStore)(nil)

func (s *MemoryStore) CreateGraph(graph *api.GraphSpec) (string, error) {
	id := uuid.NewString()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.graphs[id] = graph
	return id, nil
}

func (s *MemoryStore) GetGraph(id string) (*api.GraphSpec, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	graph, ok := s.graphs[id]
	if !ok {
		return nil, api.ErrGraphNotFound
	}

	return graph, nil
}

func (s *MemoryStore) CreateRun(run *api.RunInfo) (string, error) {
	id := uuid.NewString()
	run.RunID = id

	s.mu.Lock()
	defer s.mu.Unlock()

	s.runs[id] = run
	return id, nil
}

func (s *MemoryStore) GetRun(id string) (*api.RunInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[id]
	if !ok {
		return nil, api.ErrRunNotFound
	}

	return run, nil
}
