// Package events is the in-process publish/subscribe bus between the player
// core and plugins.
//
// Handlers for one event run concurrently. A failing or panicking handler is
// logged and never affects its siblings or the publisher.
package events

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"

	"go.uber.org/zap"
)

// Handler reacts to one published event.
type Handler func(ctx context.Context, payload any) error

// Unsubscribe removes the handler it was returned for. Calling it more than once is harmless.
type Unsubscribe func()

// Publisher publishes events.
type Publisher interface {
	Publish(ctx context.Context, name string, payload any)
}

// Subscriber registers handlers.
type Subscriber interface {
	Subscribe(name string, h Handler) Unsubscribe
}

// PubSub is the full bus surface.
type PubSub interface {
	Publisher
	Subscriber
}

// HandlerError is what a failed handler is logged as.
type HandlerError struct {
	Event string
	Err   error
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("handler for %s: %v", e.Event, e.Err)
}

func (e *HandlerError) Unwrap() error { return e.Err }

// Bus is the default PubSub.
type Bus struct {
	mu     sync.RWMutex
	subs   map[string]map[uint64]Handler
	nextID uint64
	log    *zap.Logger
}

var _ PubSub = (*Bus)(nil)

// NewBus creates an empty bus. A nil logger discards handler failures.
func NewBus(log *zap.Logger) *Bus {
	if log == nil {
		log = zap.NewNop()
	}
	return &Bus{
		subs: make(map[string]map[uint64]Handler),
		log:  log.Named("events"),
	}
}

// Subscribe registers h for name. Handlers added after a publish never see it.
func (b *Bus) Subscribe(name string, h Handler) Unsubscribe {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	set, ok := b.subs[name]
	if !ok {
		set = make(map[uint64]Handler)
		b.subs[name] = set
	}
	set[id] = h
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(name, id) })
	}
}

func (b *Bus) remove(name string, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	set, ok := b.subs[name]
	if !ok {
		return
	}
	delete(set, id)
	if len(set) == 0 {
		delete(b.subs, name)
	}
}

// Publish runs every current handler for name concurrently and returns once
// all of them finished.
func (b *Bus) Publish(ctx context.Context, name string, payload any) {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.subs[name]))
	for _, h := range b.subs[name] {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	if len(handlers) == 0 {
		return
	}

	var wg sync.WaitGroup
	for _, h := range handlers {
		wg.Go(func() {
			if err := b.call(ctx, name, h, payload); err != nil {
				b.log.Warn("event handler failed",
					zap.String("event", name),
					zap.Error(&HandlerError{Event: name, Err: err}))
			}
		})
	}
	wg.Wait()
}

func (b *Bus) call(ctx context.Context, name string, h Handler, payload any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
			b.log.Debug("handler panic stack", zap.String("event", name), zap.ByteString("stack", debug.Stack()))
		}
	}()
	return h(ctx, payload)
}

// Subscribers returns how many handlers are registered for name.
func (b *Bus) Subscribers(name string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[name])
}

// Names returns the event names with at least one handler.
func (b *Bus) Names() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	names := make([]string, 0, len(b.subs))
	for name := range b.subs {
		names = append(names, name)
	}
	return names
}
