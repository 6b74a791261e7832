package memory

import (
	"context"
	"sync"

	"namereg/internal/registry/models"
)

// InMemoryStore keeps emitted events in emission order. It backs the
// in-memory deployment and service tests.
type InMemoryStore struct {
	mu       sync.RWMutex
	events   []models.Event
	capacity int
	// failWith makes Append fail, for exercising rollback.
	failWith error
}

type Option func(*InMemoryStore)

// WithCapacity keeps only the most recent n events. Zero keeps everything.
func WithCapacity(n int) Option {
	return func(s *InMemoryStore) {
		if n > 0 {
			s.capacity = n
		}
	}
}

func NewInMemoryStore(opts ...Option) *InMemoryStore {
	s := &InMemoryStore{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *InMemoryStore) Append(_ context.Context, event models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return s.failWith
	}
	if s.capacity > 0 && len(s.events) >= s.capacity {
		dropped := len(s.events) - s.capacity + 1
		s.events = append(s.events[:0], s.events[dropped:]...)
	}
	s.events = append(s.events, event)
	return nil
}

// FailWith makes every later Append return err. nil restores normal behaviour.
func (s *InMemoryStore) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failWith = err
}

// List returns a copy of every recorded event.
func (s *InMemoryStore) List() []models.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Event(nil), s.events...)
}

// Last returns the most recent event, or false if none was recorded.
func (s *InMemoryStore) Last() (models.Event, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.events) == 0 {
		return models.Event{}, false
	}
	return s.events[len(s.events)-1], true
}

func (s *InMemoryStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = nil
}
