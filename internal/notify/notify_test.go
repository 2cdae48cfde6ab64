package notify

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleftly/cleftly/internal/friendly"
	"github.com/cleftly/cleftly/internal/store"
)

func TestForTrack(t *testing.T) {
	tr := friendly.Track{
		Track:  store.Track{Title: "Teardrop", AlbumArt: "/cache/art/x.jpg"},
		Artist: store.Artist{Name: "Massive Attack"},
		Album:  store.Album{Name: "Mezzanine"},
	}

	assert.Equal(t, Notification{
		Summary:  "Teardrop",
		Body:     "Massive Attack - Mezzanine",
		Icon:     "/cache/art/x.jpg",
		Category: TrackCategory,
		Expire:   5 * time.Second,
		Replaces: 7,
		Urgency:  UrgencyLow,
	}, ForTrack(tr, 7, 5*time.Second))
}

func TestForTrack_BodyParts(t *testing.T) {
	n := ForTrack(friendly.Track{Track: store.Track{Title: "x"}, Artist: store.Artist{Name: "A"}}, 0, 0)
	assert.Equal(t, "A", n.Body)
	assert.Empty(t, n.Icon)

	n = ForTrack(friendly.Track{
		Artist: store.Artist{Name: "Simon & Garfunkel"},
		Album:  store.Album{Name: "<Live>"},
	}, 0, 0)
	assert.Equal(t, "Simon &amp; Garfunkel - &lt;Live&gt;", n.Body)
}

func TestExpireMillis(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want int32
	}{
		{0, -1},
		{-time.Millisecond, -1},
		{1500 * time.Millisecond, 1500},
		{1000 * time.Hour, 1<<31 - 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, expireMillis(tt.in), tt.in.String())
	}
}

func TestDiscard(t *testing.T) {
	ctx := context.Background()
	id, err := Discard.Send(ctx, Notification{Summary: "x"})
	require.NoError(t, err)
	assert.Zero(t, id)
	assert.NoError(t, Discard.Dismiss(ctx, 1))
}
