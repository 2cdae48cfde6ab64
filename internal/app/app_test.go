//nolint:goconst // test files commonly repeat strings for test data
package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cleftly/cleftly/internal/config"
	"github.com/cleftly/cleftly/internal/identity"
	"github.com/cleftly/cleftly/internal/library"
	"github.com/cleftly/cleftly/internal/plugin"
	"github.com/cleftly/cleftly/internal/plugins/builtin"
	lyricsplugin "github.com/cleftly/cleftly/internal/plugins/lyrics"
	"github.com/cleftly/cleftly/internal/session"
	"github.com/cleftly/cleftly/internal/store"
)

type paths struct {
	config string
	db     string
	cache  string
}

func newPaths(t *testing.T) paths {
	t.Helper()
	dir := t.TempDir()
	return paths{
		config: filepath.Join(dir, "config", "config.toml"),
		db:     filepath.Join(dir, "data", "library.db"),
		cache:  filepath.Join(dir, "cache"),
	}
}

func open(t *testing.T, p paths) *App {
	t.Helper()
	a, err := Open(context.Background(), Options{
		ConfigPath: p.config,
		DBPath:     p.db,
		CacheDir:   p.cache,
		LyricsURL:  "http://127.0.0.1:1",
		Log:        zaptest.NewLogger(t),
	})
	require.NoError(t, err)
	return a
}

// addAlbum stores an album with one track per title, in track order.
func addAlbum(t *testing.T, s *store.Store, album string, titles ...string) []string {
	t.Helper()
	ctx := context.Background()
	now := time.Unix(1714564800, 0)
	artistID := identity.Artist("Portishead")
	albumID := identity.Album(album, artistID)

	if _, err := s.Artist(ctx, artistID); err != nil {
		require.NoError(t, s.AddArtist(ctx, store.Artist{ID: artistID, Name: "Portishead", CreatedAt: now}))
	}
	require.NoError(t, s.AddAlbum(ctx, store.Album{ID: albumID, Name: album, ArtistID: artistID, CreatedAt: now}))

	ids := make([]string, 0, len(titles))
	for i, title := range titles {
		id := identity.Track(title, artistID, albumID)
		require.NoError(t, s.AddTrack(ctx, store.Track{
			ID: id, Location: "/m/" + title + ".flac", Type: "flac", Title: title,
			ArtistID: artistID, AlbumID: albumID, TrackNum: i + 1, Duration: 240, CreatedAt: now,
		}))
		ids = append(ids, id)
	}
	return ids
}

func queueIDs(q session.Queue) []string {
	return trackIDs(q.Tracks)
}

func TestOpen_FreshInstall(t *testing.T) {
	p := newPaths(t)
	a := open(t, p)
	ctx := context.Background()

	assert.FileExists(t, p.config)
	assert.Equal(t, config.Defaults().EnabledPlugins, a.Config.EnabledPlugins)
	assert.ElementsMatch(t, builtin.DefaultEnabled, a.Config.EnabledPlugins)

	lists, err := a.Playlists.List(ctx)
	require.NoError(t, err)
	require.Len(t, lists, 1, "favorites is created on open")

	assert.Equal(t, -1, a.Session.Queue().Index)
	require.NoError(t, a.Close(ctx))
}

func TestSession_SurvivesRestart(t *testing.T) {
	p := newPaths(t)
	ctx := context.Background()

	a := open(t, p)
	ids := addAlbum(t, a.Store, "Dummy", "Mysterons", "Sour Times", "Strangers")
	require.NoError(t, a.Play(ctx, ids[1], PlayRequest{Album: true}))
	require.NoError(t, a.Session.SetVolume(ctx, 0.4))
	a.Session.SetRepeat(ctx, session.RepeatAll)
	require.NoError(t, a.Close(ctx))

	b := open(t, p)
	defer b.Close(ctx)

	q := b.Session.Queue()
	assert.Equal(t, ids, queueIDs(q))
	assert.Equal(t, 1, q.Index)
	assert.Nil(t, b.Session.Audio(), "restoring does not start playback")

	player := b.Session.Player()
	assert.InDelta(t, 0.4, player.Volume, 1e-9)
	assert.Equal(t, session.RepeatAll, player.Repeat)
}

func TestSession_RestoreDropsRemovedTracks(t *testing.T) {
	p := newPaths(t)
	ctx := context.Background()

	a := open(t, p)
	ids := addAlbum(t, a.Store, "Dummy", "Mysterons", "Sour Times", "Strangers")
	require.NoError(t, a.Play(ctx, ids[2], PlayRequest{Album: true}))
	require.NoError(t, a.Store.DeleteTrack(ctx, ids[0]))
	require.NoError(t, a.Close(ctx))

	b := open(t, p)
	defer b.Close(ctx)

	q := b.Session.Queue()
	assert.Equal(t, ids[1:], queueIDs(q))
	cur, ok := q.Current()
	require.True(t, ok)
	assert.Equal(t, ids[2], cur.ID, "the current entry follows its track")
}

func TestPlay_QueueSources(t *testing.T) {
	a := open(t, newPaths(t))
	ctx := context.Background()
	defer a.Close(ctx)

	ids := addAlbum(t, a.Store, "Third", "Silence", "Hunter", "Nylon Smile")

	require.NoError(t, a.Play(ctx, ids[1], PlayRequest{}))
	assert.Equal(t, ids[1:2], queueIDs(a.Session.Queue()))

	require.NoError(t, a.Play(ctx, ids[1], PlayRequest{Album: true}))
	assert.Equal(t, ids, queueIDs(a.Session.Queue()))
	assert.Equal(t, 1, a.Session.Queue().Index)

	pl, err := a.Playlists.Create(ctx, "Mix")
	require.NoError(t, err)
	require.NoError(t, a.Playlists.Append(ctx, pl.ID, ids[2], "gone", ids[0]))

	require.NoError(t, a.Play(ctx, ids[0], PlayRequest{Playlist: pl.ID}))
	q := a.Session.Queue()
	assert.Equal(t, []string{ids[2], ids[0]}, queueIDs(q), "dangling ids are skipped")
	assert.Equal(t, 1, q.Index)

	require.ErrorIs(t, a.Play(ctx, ids[1], PlayRequest{Playlist: pl.ID}), ErrNotInPlaylist)
	assert.Equal(t, ids[0], a.Session.Audio().Track.ID, "a rejected play leaves the session alone")
	assert.Equal(t, q, a.Session.Queue())

	_, err = a.Track(ctx, "missing")
	require.ErrorIs(t, err, store.ErrNotFound)
	require.ErrorIs(t, a.Play(ctx, "missing", PlayRequest{}), store.ErrNotFound)
	a.Session.Wait()
}

func TestPlayPlaylist(t *testing.T) {
	a := open(t, newPaths(t))
	ctx := context.Background()
	defer a.Close(ctx)

	ids := addAlbum(t, a.Store, "Third", "Silence", "Hunter", "Nylon Smile", "The Rip")
	pl, err := a.Playlists.Create(ctx, "All")
	require.NoError(t, err)
	require.NoError(t, a.Playlists.Append(ctx, pl.ID, ids...))

	require.NoError(t, a.PlayPlaylist(ctx, pl.ID, true))
	q := a.Session.Queue()
	assert.Equal(t, 0, q.Index)
	assert.Equal(t, ids[0], q.Tracks[0].ID)
	assert.ElementsMatch(t, ids, queueIDs(q))
	assert.True(t, a.Session.Player().Shuffle)

	empty, err := a.Playlists.Create(ctx, "Empty")
	require.NoError(t, err)
	require.ErrorIs(t, a.PlayPlaylist(ctx, empty.ID, false), ErrEmptyQueue)
	a.Session.Wait()
}

func TestScan(t *testing.T) {
	p := newPaths(t)
	a := open(t, p)
	ctx := context.Background()
	defer a.Close(ctx)

	progress := make(chan library.ScanProgress, 4)
	stats, err := a.Scan(ctx, progress)
	require.NoError(t, err)
	assert.False(t, stats.Changed())
	assert.Zero(t, stats.Discovered)
	assert.False(t, a.Config.SetupDone, "scanning nothing does not finish setup")
	var phases []string
	for p := range progress {
		phases = append(phases, p.Phase)
	}
	assert.Equal(t, []string{library.PhaseDone}, phases)

	music := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(music, "notes.txt"), []byte("x"), 0o644))
	added, err := a.AddMusicDirectory(music)
	require.NoError(t, err)
	assert.True(t, added)
	added, err = a.AddMusicDirectory(music)
	require.NoError(t, err)
	assert.False(t, added)

	stats, err := a.Scan(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, stats.TotalAdded())
	assert.True(t, a.Config.SetupDone)

	saved, _, err := config.Load(p.config, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.True(t, saved.SetupDone)
	assert.Equal(t, []string{music}, saved.MusicDirectories)
}

func TestPlugins_EnableDisable(t *testing.T) {
	p := newPaths(t)
	a := open(t, p)
	ctx := context.Background()
	defer a.Close(ctx)

	require.NoError(t, a.EnablePlugin(ctx, lyricsplugin.ID))
	assert.Equal(t, plugin.StatusActive, a.Plugins.Status(lyricsplugin.ID))
	assert.True(t, a.Config.PluginEnabled(lyricsplugin.ID))

	var found bool
	for _, info := range a.PluginList() {
		if info.Descriptor.ID == lyricsplugin.ID {
			found = true
			assert.True(t, info.Enabled)
			assert.True(t, info.Builtin)
		}
	}
	assert.True(t, found)

	require.NoError(t, a.DisablePlugin(ctx, lyricsplugin.ID))
	assert.NotEqual(t, plugin.StatusActive, a.Plugins.Status(lyricsplugin.ID))

	saved, _, err := config.Load(p.config, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.False(t, saved.PluginEnabled(lyricsplugin.ID))

	err = a.EnablePlugin(ctx, "org.example.nothing")
	require.ErrorIs(t, err, plugin.ErrUnknownPlugin)
	assert.False(t, a.Config.PluginEnabled("org.example.nothing"))
}
