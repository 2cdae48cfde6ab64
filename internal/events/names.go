package events

// Event names published by the player core and built-in plugins.
const (
	// OnTrackChange carries the new session.Audio when the current track changes.
	OnTrackChange = "onTrackChange"
	// OnTrackPlay carries session.Audio when playback of a track starts.
	OnTrackPlay = "onTrackPlay"
	// OnLibraryUpdate carries library.Update after a scan changed the catalog.
	OnLibraryUpdate = "onLibraryUpdate"
	// OnLyricsRequested carries the session.Audio whose lyrics are wanted.
	OnLyricsRequested = "onLyricsRequested"
	// OnLyricsLoaded carries session.LyricsLoaded.
	OnLyricsLoaded = "onLyricsLoaded"
	// OnScrobble carries session.Scrobble once a play qualifies.
	OnScrobble = "onScrobble"
	// OnPlayerChange carries session.Player after pause, volume, repeat or shuffle changes.
	OnPlayerChange = "onPlayerChange"
	// OnPlayerCommand carries a session.Command, letting plugins drive playback.
	OnPlayerCommand = "onPlayerCommand"
)
