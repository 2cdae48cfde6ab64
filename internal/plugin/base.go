package plugin

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/cleftly/cleftly/internal/events"
)

// Base is the lifecycle shared by built-in plugins: setup (usually a config
// migration) runs in the background, subscriptions are registered after it,
// and Ready is closed once both are done.
type Base struct {
	API *API

	ready chan struct{}

	mu     sync.Mutex
	unsubs []events.Unsubscribe
}

// NewBase creates a Base for api.
func NewBase(api *API) *Base {
	return &Base{API: api, ready: make(chan struct{})}
}

// Start runs setup then subscribe on a new goroutine. A setup failure is
// logged and subscribe still runs.
func (b *Base) Start(setup func() error, subscribe func()) {
	go func() {
		defer close(b.ready)
		if setup != nil {
			if err := setup(); err != nil {
				b.API.Log.Warn("plugin setup failed", zap.Error(err))
			}
		}
		subscribe()
	}()
}

// Subscribe registers h and remembers the token for Release.
func (b *Base) Subscribe(name string, h events.Handler) {
	unsub := b.API.Events.Subscribe(name, h)
	b.mu.Lock()
	b.unsubs = append(b.unsubs, unsub)
	b.mu.Unlock()
}

// Ready is closed once the plugin is subscribed.
func (b *Base) Ready() <-chan struct{} { return b.ready }

// Release waits for setup to finish, or ctx to end, then drops every subscription.
func (b *Base) Release(ctx context.Context) error {
	var err error
	select {
	case <-b.ready:
	case <-ctx.Done():
		err = ctx.Err()
	}

	b.mu.Lock()
	unsubs := b.unsubs
	b.unsubs = nil
	b.mu.Unlock()

	for _, unsub := range unsubs {
		unsub()
	}
	return err
}
