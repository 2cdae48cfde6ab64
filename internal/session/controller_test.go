package session

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cleftly/cleftly/internal/events"
	"github.com/cleftly/cleftly/internal/friendly"
	"github.com/cleftly/cleftly/internal/store"
)

type fakeBackend struct {
	NullBackend
	mu      sync.Mutex
	played  []string
	volume  float64
	playErr error
}

func (b *fakeBackend) Play(_ context.Context, src string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.playErr != nil {
		return b.playErr
	}
	b.played = append(b.played, src)
	return nil
}

func (b *fakeBackend) SetVolume(v float64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.volume = v
	return nil
}

type touches struct {
	mu  sync.Mutex
	ids map[string]time.Time
}

func (t *touches) TouchTrack(_ context.Context, id string, at time.Time) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ids[id] = at
	return nil
}

// recorder counts events by name.
type recorder struct {
	mu     sync.Mutex
	counts map[string]int
	last   map[string]any
}

func record(bus *events.Bus, names ...string) *recorder {
	r := &recorder{counts: map[string]int{}, last: map[string]any{}}
	for _, name := range names {
		bus.Subscribe(name, func(_ context.Context, payload any) error {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.counts[name]++
			r.last[name] = payload
			return nil
		})
	}
	return r
}

func (r *recorder) count(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[name]
}

func (r *recorder) payload(name string) any {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last[name]
}

var playedAt = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func track(id string, duration float64) friendly.Track {
	return friendly.Track{
		Track:  store.Track{ID: id, Location: "/music/" + id + ".flac", Title: "Song " + id, Duration: duration},
		Artist: store.Artist{ID: "ar", Name: "Artist"},
		Album:  store.Album{ID: "al", Name: "Album"},
	}
}

func tracks(ids ...string) []friendly.Track {
	out := make([]friendly.Track, len(ids))
	for i, id := range ids {
		out[i] = track(id, 200)
	}
	return out
}

func ids(ts []friendly.Track) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = t.ID
	}
	return out
}

type fixture struct {
	c       *Controller
	bus     *events.Bus
	backend *fakeBackend
	touches *touches
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := zaptest.NewLogger(t)
	f := &fixture{
		bus:     events.NewBus(log),
		backend: &fakeBackend{},
		touches: &touches{ids: map[string]time.Time{}},
	}
	f.c = New(Options{
		Backend: f.backend,
		Events:  f.bus,
		Tracks:  f.touches,
		Log:     log,
		Rand:    rand.New(rand.NewPCG(1, 2)),
		Now:     func() time.Time { return playedAt },
	})
	t.Cleanup(f.c.Close)
	return f
}

func intPtr(i int) *int { return &i }

func TestPlayTrack_SingleTrackQueue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rec := record(f.bus, events.OnTrackChange, events.OnTrackPlay, events.OnLyricsRequested)

	require.NoError(t, f.c.PlayTrack(ctx, track("a", 200), PlayOptions{}))
	f.c.Wait()

	q := f.c.Queue()
	assert.Equal(t, []string{"a"}, ids(q.Tracks))
	assert.Equal(t, 0, q.Index)

	a := f.c.Audio()
	require.NotNil(t, a)
	assert.NotEmpty(t, a.ID)
	assert.Equal(t, "/music/a.flac", a.Src)
	assert.Equal(t, BackendNative, a.Backend)
	assert.False(t, a.Scrobbled)

	assert.Equal(t, 1, rec.count(events.OnTrackChange))
	assert.Equal(t, 1, rec.count(events.OnTrackPlay))
	assert.Equal(t, 1, rec.count(events.OnLyricsRequested))
	assert.Equal(t, []string{"/music/a.flac"}, f.backend.played)
	assert.Equal(t, playedAt, f.touches.ids["a"])
}

func TestPlayTrack_IndexFromQueue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	queue := tracks("a", "b", "c")

	require.NoError(t, f.c.PlayTrack(ctx, queue[2], PlayOptions{Queue: queue}))
	assert.Equal(t, 2, f.c.Queue().Index)

	require.NoError(t, f.c.PlayTrack(ctx, queue[1], PlayOptions{Queue: queue, Index: intPtr(1)}))
	assert.Equal(t, 1, f.c.Queue().Index)

	// a track outside the queue falls back to the first entry
	require.NoError(t, f.c.PlayTrack(ctx, track("z", 10), PlayOptions{Queue: queue}))
	assert.Equal(t, 0, f.c.Queue().Index)
	assert.Equal(t, "z", f.c.Audio().Track.ID)
}

func TestPlayTrack_NewAudioIDPerPlay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.c.PlayTrack(ctx, track("a", 200), PlayOptions{}))
	first := f.c.Audio().ID
	require.NoError(t, f.c.PlayTrack(ctx, track("a", 200), PlayOptions{}))
	assert.NotEqual(t, first, f.c.Audio().ID)
}

func TestPlayTrack_BackendFailureKeepsState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.c.PlayTrack(ctx, track("a", 200), PlayOptions{}))

	f.backend.playErr = errors.New("device busy")
	err := f.c.PlayTrack(ctx, track("b", 200), PlayOptions{Queue: tracks("b", "c")})
	require.Error(t, err)

	assert.Equal(t, "a", f.c.Audio().Track.ID)
	assert.Equal(t, []string{"a"}, ids(f.c.Queue().Tracks))
}

func TestPlayTrack_WebBackendUsesFileURL(t *testing.T) {
	f := newFixture(t)
	f.c.backendName = BackendWeb

	require.NoError(t, f.c.PlayTrack(context.Background(), track("a", 200), PlayOptions{}))
	assert.Equal(t, "file:///music/a.flac", f.c.Audio().Src)
}

func TestPlayTrack_ShuffleKeepsOriginalOrder(t *testing.T) {
	f := newFixture(t)
	queue := tracks("a", "b", "c", "d", "e", "f")

	require.NoError(t, f.c.PlayTrack(context.Background(), queue[0], PlayOptions{Queue: queue, Shuffle: true}))

	q := f.c.Queue()
	assert.Equal(t, ids(queue), ids(q.Unshuffled))
	assert.ElementsMatch(t, ids(queue), ids(q.Tracks))
	cur, ok := q.Current()
	require.True(t, ok)
	assert.Equal(t, "a", cur.ID)
	assert.True(t, f.c.Player().Shuffle)
}

func TestPlayTrack_ShuffleThenNextPlaysWholeQueue(t *testing.T) {
	for _, start := range []int{0, 3, 7} {
		f := newFixture(t)
		ctx := context.Background()
		queue := tracks("a", "b", "c", "d", "e", "f", "g", "h")

		require.NoError(t, f.c.PlayTrack(ctx, queue[start], PlayOptions{Queue: queue, Shuffle: true}))
		assert.Equal(t, 0, f.c.Queue().Index, "start %d", start)

		played := []string{f.c.Audio().Track.ID}
		for {
			ok, err := f.c.Next(ctx)
			require.NoError(t, err)
			if !ok {
				break
			}
			played = append(played, f.c.Audio().Track.ID)
		}
		assert.Equal(t, queue[start].ID, played[0])
		assert.ElementsMatch(t, ids(queue), played, "start %d", start)
	}
}

func TestPlayTrack_ShuffleHonoursIndex(t *testing.T) {
	f := newFixture(t)
	queue := tracks("a", "b", "a", "c")

	require.NoError(t, f.c.PlayTrack(context.Background(), queue[2], PlayOptions{Queue: queue, Index: intPtr(2), Shuffle: true}))

	q := f.c.Queue()
	assert.Equal(t, 0, q.Index)
	assert.Equal(t, "a", q.Tracks[0].ID)
	assert.Equal(t, ids(queue), ids(q.Unshuffled))
}

func TestSetShuffle_RoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	queue := tracks("a", "b", "c", "d", "e")
	require.NoError(t, f.c.PlayTrack(ctx, queue[2], PlayOptions{Queue: queue}))

	f.c.SetShuffle(ctx, true)
	q := f.c.Queue()
	assert.Equal(t, 0, q.Index)
	assert.Equal(t, "c", q.Tracks[0].ID)
	assert.ElementsMatch(t, ids(queue), ids(q.Tracks))

	f.c.SetShuffle(ctx, false)
	q = f.c.Queue()
	assert.Equal(t, ids(queue), ids(q.Tracks))
	assert.Nil(t, q.Unshuffled)
	assert.Equal(t, 2, q.Index)
}

func TestNext_RepeatModes(t *testing.T) {
	tests := []struct {
		name     string
		repeat   RepeatMode
		wantNext bool
		wantID   string
	}{
		{"off stops at end", RepeatOff, false, ""},
		{"all wraps", RepeatAll, true, "a"},
		{"one still advances", RepeatOne, false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			queue := tracks("a", "b")
			require.NoError(t, f.c.PlayTrack(ctx, queue[1], PlayOptions{Queue: queue}))
			f.c.SetRepeat(ctx, tt.repeat)

			playing, err := f.c.Next(ctx)
			require.NoError(t, err)
			assert.Equal(t, tt.wantNext, playing)
			if tt.wantID == "" {
				assert.Nil(t, f.c.Audio())
			} else {
				assert.Equal(t, tt.wantID, f.c.Audio().Track.ID)
			}
		})
	}
}

func TestTrackEnded_RepeatOneReplays(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	queue := tracks("a", "b")
	require.NoError(t, f.c.PlayTrack(ctx, queue[0], PlayOptions{Queue: queue}))
	f.c.SetRepeat(ctx, RepeatOne)

	playing, err := f.c.TrackEnded(ctx)
	require.NoError(t, err)
	assert.True(t, playing)
	assert.Equal(t, "a", f.c.Audio().Track.ID)
	assert.Len(t, f.backend.played, 2)
}

func TestPrevious_RestartsAfterThreshold(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	queue := tracks("a", "b")
	require.NoError(t, f.c.PlayTrack(ctx, queue[1], PlayOptions{Queue: queue}))

	f.c.UpdatePosition(ctx, 10, 0)
	require.NoError(t, f.c.Previous(ctx))
	assert.Equal(t, "b", f.c.Audio().Track.ID)

	require.NoError(t, f.c.Previous(ctx))
	assert.Equal(t, "a", f.c.Audio().Track.ID)
}

func TestUpdatePosition_ScrobblesOncePerPlay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rec := record(f.bus, events.OnScrobble)
	require.NoError(t, f.c.PlayTrack(ctx, track("a", 200), PlayOptions{}))

	for _, pos := range []float64{50, 99, 100, 101, 150, 199} {
		f.c.UpdatePosition(ctx, pos, 200)
	}
	f.c.Wait()

	assert.Equal(t, 1, rec.count(events.OnScrobble))
	assert.True(t, f.c.Audio().Scrobbled)
	s, ok := rec.payload(events.OnScrobble).(Scrobble)
	require.True(t, ok)
	assert.Equal(t, "a", s.Track.ID)
	assert.Equal(t, playedAt, s.PlayedAt)

	// a new play of the same track can scrobble again
	require.NoError(t, f.c.PlayTrack(ctx, track("a", 200), PlayOptions{}))
	f.c.UpdatePosition(ctx, 120, 200)
	f.c.Wait()
	assert.Equal(t, 2, rec.count(events.OnScrobble))
}

func TestUpdatePosition_ScrobbleThresholds(t *testing.T) {
	tests := []struct {
		name     string
		duration float64
		reported float64
		position float64
		want     bool
	}{
		{"short track never", 30, 30, 29, false},
		{"before half", 200, 200, 99, false},
		{"reported duration wins", 100, 300, 120, false},
		{"track duration when unreported", 100, 0, 50, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			rec := record(f.bus, events.OnScrobble)
			require.NoError(t, f.c.PlayTrack(ctx, track("a", tt.duration), PlayOptions{}))

			f.c.UpdatePosition(ctx, tt.position, tt.reported)
			f.c.Wait()

			assert.Equal(t, tt.want, rec.count(events.OnScrobble) == 1)
		})
	}
}

func TestSettings_ClampAndPublish(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rec := record(f.bus, events.OnPlayerChange)

	require.NoError(t, f.c.SetVolume(ctx, 1.7))
	assert.Equal(t, 1.0, f.c.Player().Volume)
	require.NoError(t, f.c.SetMuted(ctx, true))
	assert.Equal(t, 0.0, f.backend.volume)
	assert.Equal(t, 1.0, f.c.Player().Volume)
	require.NoError(t, f.c.SetSpeed(ctx, 10))
	assert.Equal(t, 4.0, f.c.Player().Speed)
	f.c.Wait()

	assert.Equal(t, 3, rec.count(events.OnPlayerChange))
}

func TestTogglePause(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// nothing playing
	require.NoError(t, f.c.TogglePause(ctx))
	assert.False(t, f.c.Player().Paused)

	require.NoError(t, f.c.PlayTrack(ctx, track("a", 200), PlayOptions{}))
	require.NoError(t, f.c.TogglePause(ctx))
	assert.True(t, f.c.Player().Paused)
	require.NoError(t, f.c.TogglePause(ctx))
	assert.False(t, f.c.Player().Paused)
}

func TestLyricsLoaded_AttachesToMatchingAudio(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.c.PlayTrack(ctx, track("a", 200), PlayOptions{}))
	audioID := f.c.Audio().ID

	f.bus.Publish(ctx, events.OnLyricsLoaded, LyricsLoaded{AudioID: "stale", Lyrics: Lyrics{Text: "old"}})
	assert.Nil(t, f.c.Audio().Lyrics)

	f.bus.Publish(ctx, events.OnLyricsLoaded, LyricsLoaded{AudioID: audioID, TrackID: "a", Lyrics: Lyrics{Format: "plain", Text: "la la"}})
	require.NotNil(t, f.c.Audio().Lyrics)
	assert.Equal(t, "la la", f.c.Audio().Lyrics.Text)
}

func TestWatch_ReceivesSnapshots(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var mu sync.Mutex
	var got []Snapshot
	cancel := f.c.Watch(func(s Snapshot) {
		mu.Lock()
		got = append(got, s)
		mu.Unlock()
	})

	require.NoError(t, f.c.PlayTrack(ctx, track("a", 200), PlayOptions{}))
	cancel()
	f.c.SetRepeat(ctx, RepeatAll)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].Audio.Track.ID)
}

func TestParseRepeatMode(t *testing.T) {
	for _, m := range []RepeatMode{RepeatOff, RepeatAll, RepeatOne} {
		got, ok := ParseRepeatMode(m.String())
		assert.True(t, ok)
		assert.Equal(t, m, got)
	}
	_, ok := ParseRepeatMode("sometimes")
	assert.False(t, ok)
}

func TestApply_CommandsFromBus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	queue := tracks("a", "b")
	require.NoError(t, f.c.PlayTrack(ctx, queue[0], PlayOptions{Queue: queue}))

	f.bus.Publish(ctx, events.OnPlayerCommand, Command{Action: ActionNext})
	assert.Equal(t, "b", f.c.Audio().Track.ID)

	f.bus.Publish(ctx, events.OnPlayerCommand, Command{Action: ActionRepeat, Repeat: "all"})
	assert.Equal(t, RepeatAll, f.c.Player().Repeat)

	f.bus.Publish(ctx, events.OnPlayerCommand, Command{Action: ActionToggle})
	assert.True(t, f.c.Player().Paused)

	require.NoError(t, f.c.Apply(ctx, Command{Action: ActionStop}))
	assert.Nil(t, f.c.Audio())
	require.NoError(t, f.c.Apply(ctx, Command{Action: ActionPlay}))
	assert.Equal(t, "b", f.c.Audio().Track.ID)

	assert.ErrorIs(t, f.c.Apply(ctx, Command{Action: "rewind"}), ErrUnknownAction)
	assert.ErrorIs(t, f.c.Apply(ctx, Command{Action: ActionRepeat, Repeat: "twice"}), ErrUnknownAction)
}

func TestRestore(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	queue := tracks("a", "b", "c")

	require.NoError(t, f.c.Restore(
		Player{Volume: 3, Muted: true, Paused: true, Repeat: RepeatOne},
		Queue{Tracks: queue, Unshuffled: tracks("x"), Index: 7},
	))

	p := f.c.Player()
	assert.InDelta(t, 1, p.Volume, 1e-9)
	assert.True(t, p.Muted)
	assert.False(t, p.Paused)
	assert.InDelta(t, 1, p.Speed, 1e-9)
	assert.Equal(t, RepeatOne, p.Repeat)
	assert.Nil(t, f.c.Audio())

	q := f.c.Queue()
	assert.Equal(t, 2, q.Index)
	assert.Nil(t, q.Unshuffled, "unshuffled order is dropped when shuffle is off")
	f.backend.mu.Lock()
	assert.Zero(t, f.backend.volume, "muted")
	f.backend.mu.Unlock()

	require.NoError(t, f.c.Apply(ctx, Command{Action: ActionPlay}))
	assert.Equal(t, "c", f.c.Audio().Track.ID)
}
