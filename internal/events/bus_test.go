package events

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observedBus() (*Bus, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return NewBus(zap.New(core)), logs
}

func TestPublish_FailingHandlerDoesNotAffectSiblings(t *testing.T) {
	tests := []struct {
		name    string
		failing Handler
	}{
		{"returns error", func(context.Context, any) error { return errors.New("boom") }},
		{"panics", func(context.Context, any) error { panic("kaboom") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bus, logs := observedBus()
			var got atomic.Value

			bus.Subscribe(OnTrackChange, tt.failing)
			bus.Subscribe(OnTrackChange, func(_ context.Context, payload any) error {
				got.Store(payload)
				return nil
			})

			assert.NotPanics(t, func() { bus.Publish(context.Background(), OnTrackChange, "x") })
			assert.Equal(t, "x", got.Load())

			failures := logs.FilterMessage("event handler failed").All()
			require.Len(t, failures, 1)
			assert.Equal(t, OnTrackChange, failures[0].ContextMap()["event"])
		})
	}
}

func TestPublish_RunsHandlersConcurrently(t *testing.T) {
	bus, _ := observedBus()

	// each handler waits for the other; sequential dispatch would never finish
	var ready sync.WaitGroup
	ready.Add(2)
	for range 2 {
		bus.Subscribe("e", func(context.Context, any) error {
			ready.Done()
			ready.Wait()
			return nil
		})
	}

	done := make(chan struct{})
	go func() {
		bus.Publish(context.Background(), "e", nil)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("handlers did not run concurrently")
	}
}

func TestPublish_WaitsForAllHandlers(t *testing.T) {
	bus, _ := observedBus()
	var finished atomic.Int32
	for range 3 {
		bus.Subscribe("e", func(context.Context, any) error {
			time.Sleep(20 * time.Millisecond)
			finished.Add(1)
			return nil
		})
	}

	bus.Publish(context.Background(), "e", nil)
	assert.Equal(t, int32(3), finished.Load())
}

func TestUnsubscribe_RemovesExactlyThatHandler(t *testing.T) {
	bus, _ := observedBus()
	var a, b atomic.Int32

	unsubA := bus.Subscribe("e", func(context.Context, any) error { a.Add(1); return nil })
	unsubB := bus.Subscribe("e", func(context.Context, any) error { b.Add(1); return nil })
	assert.Equal(t, 2, bus.Subscribers("e"))

	unsubA()
	unsubA()
	assert.Equal(t, 1, bus.Subscribers("e"))

	bus.Publish(context.Background(), "e", nil)
	assert.Equal(t, int32(0), a.Load())
	assert.Equal(t, int32(1), b.Load())

	unsubB()
	assert.Equal(t, 0, bus.Subscribers("e"))
	assert.NotContains(t, bus.Names(), "e", "last unsubscribe frees the entry")
}

func TestSubscribe_NoReplay(t *testing.T) {
	bus, _ := observedBus()
	bus.Publish(context.Background(), "e", "early")

	var calls atomic.Int32
	bus.Subscribe("e", func(context.Context, any) error { calls.Add(1); return nil })
	assert.Equal(t, int32(0), calls.Load())

	bus.Publish(context.Background(), "e", "late")
	assert.Equal(t, int32(1), calls.Load())
}

func TestPublish_WithoutSubscribers(t *testing.T) {
	bus, logs := observedBus()
	bus.Publish(context.Background(), "nobody", 1)
	assert.Zero(t, logs.Len())
}

func TestOn_TypedPayload(t *testing.T) {
	type payload struct{ N int }
	bus, logs := observedBus()

	var got atomic.Int64
	unsub := On(bus, "e", func(_ context.Context, p payload) error {
		got.Store(int64(p.N))
		return nil
	})
	defer unsub()

	bus.Publish(context.Background(), "e", payload{N: 7})
	assert.Equal(t, int64(7), got.Load())

	bus.Publish(context.Background(), "e", "wrong type")
	assert.Equal(t, int64(7), got.Load())
	assert.Equal(t, 1, logs.FilterMessage("event handler failed").Len())
}

func TestHandlerError(t *testing.T) {
	cause := errors.New("cause")
	err := &HandlerError{Event: OnScrobble, Err: cause}
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), OnScrobble)
}
