// Package notify sends freedesktop desktop notifications.
package notify

import (
	"context"
	"strings"
	"time"

	"github.com/cleftly/cleftly/internal/friendly"
)

// Urgency levels as numbered by the notification protocol.
type Urgency byte

const (
	UrgencyLow Urgency = iota
	UrgencyNormal
	UrgencyCritical
)

// TrackCategory tags "now playing" notifications.
const TrackCategory = "x-cleftly.track"

// Notification is one desktop notification. Body may carry the protocol's
// basic markup. A non-positive Expire leaves the timeout to the server.
type Notification struct {
	Summary  string
	Body     string
	Icon     string
	Category string
	Expire   time.Duration
	Replaces uint32
	Urgency  Urgency
}

// Notifier delivers notifications.
type Notifier interface {
	// Send shows n and returns the id the server assigned, or 0 when
	// nothing was shown.
	Send(ctx context.Context, n Notification) (uint32, error)
	Dismiss(ctx context.Context, id uint32) error
}

// Discard drops every notification.
var Discard Notifier = discard{}

type discard struct{}

func (discard) Send(context.Context, Notification) (uint32, error) { return 0, nil }
func (discard) Dismiss(context.Context, uint32) error              { return nil }

var markup = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// ForTrack builds the "now playing" notification for t. It replaces the
// notification with id replaces when that is non-zero.
func ForTrack(t friendly.Track, replaces uint32, expire time.Duration) Notification {
	var parts []string
	for _, s := range []string{t.Artist.Name, t.Album.Name} {
		if s != "" {
			parts = append(parts, markup.Replace(s))
		}
	}
	return Notification{
		Summary:  t.Title,
		Body:     strings.Join(parts, " - "),
		Icon:     t.ArtPath(),
		Category: TrackCategory,
		Expire:   expire,
		Replaces: replaces,
		Urgency:  UrgencyLow,
	}
}

// expireMillis converts an expiry to the protocol's milliseconds, where -1
// means the server default.
func expireMillis(d time.Duration) int32 {
	if d <= 0 {
		return -1
	}
	return int32(min(d.Milliseconds(), 1<<31-1))
}
