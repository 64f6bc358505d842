package interactions

import (
	"context"
	"sync"

	"example.com/fitplan/internal/domain"
)

// MemoryStore keeps records in process, for tests and local runs.
type MemoryStore struct {
	mu      sync.RWMutex
	records []domain.InteractionRecord
}

// NewMemoryStore constructs an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Append(_ context.Context, record domain.InteractionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, record)
	return nil
}

// Records returns a snapshot of stored records in append order.
func (m *MemoryStore) Records() []domain.InteractionRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.InteractionRecord, len(m.records))
	copy(out, m.records)
	return out
}

// ListByUser returns up to limit records for a user, most recent first.
func (m *MemoryStore) ListByUser(_ context.Context, userID string, limit int) ([]domain.InteractionRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.InteractionRecord
	for i := len(m.records) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		if m.records[i].UserID == userID {
			out = append(out, m.records[i])
		}
	}
	return out, nil
}
