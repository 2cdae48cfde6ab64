//go:build linux

package notify

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBusNotifier_Replaces(t *testing.T) {
	if os.Getenv("DBUS_SESSION_BUS_ADDRESS") == "" {
		t.Skip("no D-Bus session available")
	}
	n, err := New()
	require.NoError(t, err)
	if n == Discard {
		t.Skip("session bus unreachable")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	first, err := n.Send(ctx, Notification{Summary: "Roads", Body: "Portishead", Expire: 2 * time.Second})
	if err != nil {
		t.Skipf("no notification server: %v", err)
	}
	require.NotZero(t, first)

	second, err := n.Send(ctx, Notification{Summary: "Glory Box", Replaces: first, Expire: time.Second})
	require.NoError(t, err)
	assert.Equal(t, first, second)

	assert.NoError(t, n.Dismiss(ctx, second))
}
