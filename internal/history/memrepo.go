package history

import (
	"context"
	"sort"
	"sync"

	"github.com/park285/chess-coach/internal/domain"
)

// memrepo is the in-memory Repository used when no database is configured.
// It keeps at most capacity records, dropping the oldest first.
type memrepo struct {
	mu       sync.RWMutex
	capacity int
	byID     map[string]*domain.Analysis
	order    []string
}

func NewMemoryRepository(capacity int) Repository {
	if capacity <= 0 {
		capacity = 1000
	}
	return &memrepo{capacity: capacity, byID: make(map[string]*domain.Analysis)}
}

func (m *memrepo) Insert(ctx context.Context, a *domain.Analysis) error {
	if a == nil {
		return ErrDuplicate
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.byID[a.ID]; exists {
		return ErrDuplicate
	}
	c := *a
	m.byID[a.ID] = &c
	m.order = append(m.order, a.ID)
	for len(m.order) > m.capacity {
		delete(m.byID, m.order[0])
		m.order = m.order[1:]
	}
	return nil
}

func (m *memrepo) Recent(ctx context.Context, limit int) ([]*domain.Analysis, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	m.mu.RLock()
	items := make([]*domain.Analysis, 0, len(m.order))
	for _, id := range m.order {
		c := *m.byID[id]
		items = append(items, &c)
	}
	m.mu.RUnlock()

	// Newest first; insertion order breaks ties.
	idx := make(map[string]int, len(items))
	for i, a := range items {
		idx[a.ID] = i
	}
	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.After(items[j].CreatedAt)
		}
		return idx[items[i].ID] > idx[items[j].ID]
	})
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (m *memrepo) Get(ctx context.Context, id string) (*domain.Analysis, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := *a
	return &c, nil
}
