package storage

import (
	"context"
	"sync"

	"todo-api/domain"
)

// Memory keeps documents in insertion order. It is safe for concurrent use; each
// call is atomic on its own, nothing more.
type Memory struct {
	mu   sync.RWMutex
	docs []domain.TaskDocument
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) ListTasks(ctx context.Context) ([]domain.TaskDocument, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.TaskDocument, len(m.docs))
	copy(out, m.docs)
	return out, nil
}

func (m *Memory) GetTask(ctx context.Context, id string) (*domain.TaskDocument, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if i := m.index(id); i >= 0 {
		d := m.docs[i]
		return &d, nil
	}
	return nil, nil
}

func (m *Memory) InsertTask(ctx context.Context, doc domain.TaskDocument) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs = append(m.docs, doc)
	return nil
}

func (m *Memory) UpdateTask(ctx context.Context, id string, patch domain.TaskPatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.index(id)
	if i < 0 {
		return nil
	}
	if patch.Text != nil {
		m.docs[i].Text = *patch.Text
	}
	if patch.Completed != nil {
		m.docs[i].Completed = *patch.Completed
	}
	if patch.Order != nil {
		m.docs[i].Order = *patch.Order
	}
	return nil
}

func (m *Memory) DeleteTask(ctx context.Context, id string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.index(id)
	if i < 0 {
		return 0, nil
	}
	m.docs = append(m.docs[:i], m.docs[i+1:]...)
	return 1, nil
}

func (m *Memory) Ping(ctx context.Context) error { return ctx.Err() }

func (m *Memory) Close(ctx context.Context) error { return nil }

func (m *Memory) index(id string) int {
	for i := range m.docs {
		if m.docs[i].ID == id {
			return i
		}
	}
	return -1
}
