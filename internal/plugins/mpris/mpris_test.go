package mpris

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cleftly/cleftly/internal/events"
	"github.com/cleftly/cleftly/internal/friendly"
	mprisbus "github.com/cleftly/cleftly/internal/mpris"
	"github.com/cleftly/cleftly/internal/plugin"
	"github.com/cleftly/cleftly/internal/session"
	"github.com/cleftly/cleftly/internal/store"
)

type fakeAdapter struct {
	send          mprisbus.Send
	trackChanges  atomic.Int32
	playerChanges atomic.Int32
	closed        atomic.Bool
}

func (a *fakeAdapter) TrackChanged() error  { a.trackChanges.Add(1); return nil }
func (a *fakeAdapter) PlayerChanged() error { a.playerChanges.Add(1); return nil }
func (a *fakeAdapter) Close() error         { a.closed.Store(true); return nil }

func setup(t *testing.T) (*events.Bus, *session.Controller, *fakeAdapter, *plugin.Runtime) {
	t.Helper()
	bus := events.NewBus(zaptest.NewLogger(t))
	c := session.New(session.Options{Events: bus, Log: zaptest.NewLogger(t)})
	t.Cleanup(c.Close)

	adapter := &fakeAdapter{}
	r := plugin.NewRuntime(plugin.Options{
		Builtins: []plugin.Factory{Factory(func(_ session.StateReader, send mprisbus.Send) (Adapter, error) {
			adapter.send = send
			return adapter, nil
		})},
		Events:    bus,
		State:     c,
		ConfigDir: t.TempDir(),
		Log:       zaptest.NewLogger(t),
	})
	require.NoError(t, r.Load(context.Background(), ID))

	p, _ := r.Plugin(ID)
	select {
	case <-p.(*Plugin).Ready():
	case <-time.After(5 * time.Second):
		t.Fatal("plugin never became ready")
	}
	return bus, c, adapter, r
}

func TestForwardsSessionChanges(t *testing.T) {
	_, c, adapter, r := setup(t)
	t.Cleanup(func() { _ = r.UnloadAll(context.Background()) })
	ctx := context.Background()

	track := friendly.Track{Track: store.Track{ID: "t1", Title: "Song"}}
	require.NoError(t, c.PlayTrack(ctx, track, session.PlayOptions{}))
	require.NoError(t, c.SetVolume(ctx, 0.5))
	c.Wait()

	assert.Equal(t, int32(1), adapter.trackChanges.Load())
	assert.Equal(t, int32(1), adapter.playerChanges.Load())
}

func TestControlsDriveTheSession(t *testing.T) {
	_, c, adapter, r := setup(t)
	t.Cleanup(func() { _ = r.UnloadAll(context.Background()) })

	track := friendly.Track{Track: store.Track{ID: "t1", Title: "Song"}}
	require.NoError(t, c.PlayTrack(context.Background(), track, session.PlayOptions{}))

	require.NoError(t, adapter.send(session.Command{Action: session.ActionPause}))
	assert.True(t, c.Player().Paused)

	require.NoError(t, adapter.send(session.Command{Action: session.ActionVolume, Value: 0.25}))
	assert.InDelta(t, 0.25, c.Player().Volume, 1e-9)
	c.Wait()
}

func TestUnloadClosesAdapter(t *testing.T) {
	_, _, adapter, r := setup(t)

	require.NoError(t, r.Unload(context.Background(), ID))
	assert.True(t, adapter.closed.Load())
}

func TestRequiresState(t *testing.T) {
	r := plugin.NewRuntime(plugin.Options{
		Builtins: []plugin.Factory{Factory(func(session.StateReader, mprisbus.Send) (Adapter, error) {
			return nil, errors.New("unreachable")
		})},
		Events:    events.NewBus(nil),
		ConfigDir: t.TempDir(),
	})

	err := r.Load(context.Background(), ID)
	assert.ErrorIs(t, err, plugin.ErrPluginLoad)
}
