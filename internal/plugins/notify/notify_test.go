package notify

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cleftly/cleftly/internal/events"
	"github.com/cleftly/cleftly/internal/friendly"
	notifybus "github.com/cleftly/cleftly/internal/notify"
	"github.com/cleftly/cleftly/internal/plugin"
	"github.com/cleftly/cleftly/internal/session"
	"github.com/cleftly/cleftly/internal/store"
)

type fakeNotifier struct {
	mu     sync.Mutex
	sent   []notifybus.Notification
	closed []uint32
}

func (n *fakeNotifier) Send(_ context.Context, notif notifybus.Notification) (uint32, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, notif)
	return 42, nil
}

func (n *fakeNotifier) Dismiss(_ context.Context, id uint32) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.closed = append(n.closed, id)
	return nil
}

func TestNotifiesOnTrackChange(t *testing.T) {
	bus := events.NewBus(zaptest.NewLogger(t))
	n := &fakeNotifier{}
	r := plugin.NewRuntime(plugin.Options{
		Builtins:  []plugin.Factory{Factory(func() (notifybus.Notifier, error) { return n, nil })},
		Events:    bus,
		ConfigDir: t.TempDir(),
		Log:       zaptest.NewLogger(t),
	})
	ctx := context.Background()
	require.NoError(t, r.Load(ctx, ID))

	p, _ := r.Plugin(ID)
	select {
	case <-p.(*Plugin).Ready():
	case <-time.After(5 * time.Second):
		t.Fatal("plugin never became ready")
	}

	audio := func(title string) session.Audio {
		return session.Audio{Track: friendly.Track{
			Track:  store.Track{Title: title},
			Artist: store.Artist{Name: "Artist"},
		}}
	}
	bus.Publish(ctx, events.OnTrackChange, audio("One"))
	bus.Publish(ctx, events.OnTrackChange, audio("Two"))

	require.Len(t, n.sent, 2)
	assert.Equal(t, "One", n.sent[0].Summary)
	assert.Zero(t, n.sent[0].Replaces)
	assert.Equal(t, uint32(42), n.sent[1].Replaces)
	assert.Equal(t, 5*time.Second, n.sent[1].Expire)
	assert.Equal(t, "Artist", n.sent[1].Body)

	require.NoError(t, r.Unload(ctx, ID))
	assert.Equal(t, []uint32{42}, n.closed)
}
