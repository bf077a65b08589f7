package mocks

import (
	"context"
	"sync"

	"github.com/metinatakli/payment-gateway/internal/domain"
)

// MockEventPublisher records every published event.
type MockEventPublisher struct {
	mu     sync.Mutex
	Events []domain.StatusChangedEvent
	Err    error
}

func (m *MockEventPublisher) Publish(ctx context.Context, event domain.StatusChangedEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return m.Err
	}

	m.Events = append(m.Events, event)
	return nil
}

func (m *MockEventPublisher) Published() []domain.StatusChangedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]domain.StatusChangedEvent(nil), m.Events...)
}

func (m *MockEventPublisher) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Events = nil
}
