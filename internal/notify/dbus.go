//go:build linux

package notify

import (
	"context"
	"fmt"

	"github.com/godbus/dbus/v5"
)

const (
	busName = "org.freedesktop.Notifications"
	busPath = "/org/freedesktop/Notifications"
	appName = "Cleftly"
)

type busNotifier struct {
	obj dbus.BusObject
}

// New connects to the session bus. Without a session bus every
// notification is discarded.
func New() (Notifier, error) {
	conn, err := dbus.SessionBus()
	if err != nil {
		return Discard, nil //nolint:nilerr // headless sessions have no bus
	}
	return &busNotifier{obj: conn.Object(busName, busPath)}, nil
}

func (b *busNotifier) Send(ctx context.Context, n Notification) (uint32, error) {
	hints := map[string]dbus.Variant{
		"urgency":       dbus.MakeVariant(byte(n.Urgency)),
		"desktop-entry": dbus.MakeVariant("cleftly"),
	}
	if n.Category != "" {
		hints["category"] = dbus.MakeVariant(n.Category)
	}

	var id uint32
	err := b.obj.CallWithContext(ctx, busName+".Notify", 0,
		appName, n.Replaces, n.Icon, n.Summary, n.Body,
		[]string{}, hints, expireMillis(n.Expire),
	).Store(&id)
	if err != nil {
		return 0, fmt.Errorf("send notification: %w", err)
	}
	return id, nil
}

func (b *busNotifier) Dismiss(ctx context.Context, id uint32) error {
	if err := b.obj.CallWithContext(ctx, busName+".CloseNotification", 0, id).Err; err != nil {
		return fmt.Errorf("dismiss notification %d: %w", id, err)
	}
	return nil
}
