package plugin

import (
	"context"
	"sync"

	"github.com/cleftly/cleftly/internal/events"
)

// ScopedEvents is a plugin's view of the bus. It remembers every
// subscription the plugin still holds so the runtime can revoke them on unload.
type ScopedEvents struct {
	bus events.PubSub

	mu     sync.Mutex
	tokens map[uint64]events.Unsubscribe
	next   uint64
	closed bool
}

var _ events.PubSub = (*ScopedEvents)(nil)

func newScopedEvents(bus events.PubSub) *ScopedEvents {
	return &ScopedEvents{bus: bus, tokens: make(map[uint64]events.Unsubscribe)}
}

// Subscribe registers h on the bus. After the plugin was unloaded it is a no-op.
func (s *ScopedEvents) Subscribe(name string, h events.Handler) events.Unsubscribe {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return func() {}
	}

	s.next++
	id := s.next
	unsub := s.bus.Subscribe(name, h)
	s.tokens[id] = unsub

	return func() {
		unsub()
		s.mu.Lock()
		delete(s.tokens, id)
		s.mu.Unlock()
	}
}

// Publish forwards to the bus.
func (s *ScopedEvents) Publish(ctx context.Context, name string, payload any) {
	s.bus.Publish(ctx, name, payload)
}

// Held returns how many subscriptions are still registered.
func (s *ScopedEvents) Held() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tokens)
}

// revoke removes every remaining subscription and refuses new ones.
// It returns how many were left.
func (s *ScopedEvents) revoke() int {
	s.mu.Lock()
	tokens := s.tokens
	s.tokens = make(map[uint64]events.Unsubscribe)
	s.closed = true
	s.mu.Unlock()

	for _, unsub := range tokens {
		unsub()
	}
	return len(tokens)
}
