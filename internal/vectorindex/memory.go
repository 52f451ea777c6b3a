package vectorindex

import (
	"context"
	"sort"
	"sync"

	"horse.fit/finwire/internal/similarity"
)

type memoryEntry struct {
	id     string
	vector []float64
}

// Memory is a brute-force in-process Index. Insertion order breaks distance
// ties, so queries are deterministic.
type Memory struct {
	mu      sync.RWMutex
	entries []memoryEntry
	byID    map[string]int
}

func NewMemory() *Memory {
	return &Memory{byID: map[string]int{}}
}

func (m *Memory) Add(_ context.Context, id string, vector []float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	copied := make([]float64, len(vector))
	copy(copied, vector)

	if idx, exists := m.byID[id]; exists {
		m.entries[idx].vector = copied
		return nil
	}
	m.byID[id] = len(m.entries)
	m.entries = append(m.entries, memoryEntry{id: id, vector: copied})
	return nil
}

func (m *Memory) Query(_ context.Context, vector []float64, topK int) ([]Neighbor, error) {
	if topK <= 0 {
		return nil, nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	neighbors := make([]Neighbor, 0, len(m.entries))
	for _, entry := range m.entries {
		neighbors = append(neighbors, Neighbor{
			ID:       entry.id,
			Distance: 1 - similarity.Cosine(vector, entry.vector),
		})
	}
	sort.SliceStable(neighbors, func(i, j int) bool {
		return neighbors[i].Distance < neighbors[j].Distance
	})
	if len(neighbors) > topK {
		neighbors = neighbors[:topK]
	}
	return neighbors, nil
}
