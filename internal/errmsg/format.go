// Package errmsg provides consistent error formatting for user-facing messages.
package errmsg

import (
	"context"
	"errors"
	"fmt"

	"github.com/cleftly/cleftly/internal/friendly"
	"github.com/cleftly/cleftly/internal/lastfm"
	"github.com/cleftly/cleftly/internal/playlists"
	"github.com/cleftly/cleftly/internal/plugin"
	"github.com/cleftly/cleftly/internal/store"
)

// Op represents an operation that can fail.
type Op string

// Operation constants - grouped by domain.
const (
	// Library operations
	OpLibraryScan  Op = "scan library"
	OpLibraryWatch Op = "watch library"
	OpLibraryLoad  Op = "load library"
	OpAlbumLoad    Op = "load album"

	// Source operations
	OpSourceAdd Op = "add music directory"

	// Playlist operations
	OpPlaylistCreate   Op = "create playlist"
	OpPlaylistRename   Op = "rename playlist"
	OpPlaylistDelete   Op = "delete playlist"
	OpPlaylistLoad     Op = "load playlist"
	OpPlaylistAddTrack Op = "add track to playlist"
	OpPlaylistRemove   Op = "remove tracks from playlist"
	OpPlaylistMove     Op = "move playlist tracks"
	OpPlaylistExport   Op = "export playlist"
	OpPlaylistImport   Op = "import playlist"

	// Favorites
	OpFavoriteToggle Op = "update favorites"

	// Plugin operations
	OpPluginEnable  Op = "enable plugin"
	OpPluginDisable Op = "disable plugin"

	// Playback operations
	OpPlaybackStart Op = "start playback"

	// Last.fm
	OpLastfmAuth Op = "authenticate with Last.fm"

	// Configuration
	OpConfigLoad Op = "load configuration"

	// Initialization
	OpInitialize Op = "initialize application"
)

// Format creates a user-friendly error message.
func Format(op Op, err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("Failed to %s: %s", op, describe(err))
}

// FormatWith creates an error message with additional context.
func FormatWith(op Op, context string, err error) string {
	if err == nil {
		return ""
	}
	if context == "" {
		return Format(op, err)
	}
	return fmt.Sprintf("Failed to %s '%s': %s", op, context, describe(err))
}

// describe replaces well-known errors with a plainer wording.
func describe(err error) string {
	switch {
	case errors.Is(err, context.Canceled):
		return "cancelled"
	case errors.Is(err, store.ErrNotFound):
		return "not found"
	case errors.Is(err, playlists.ErrReserved):
		return "the Favorites playlist cannot be changed this way"
	case errors.Is(err, playlists.ErrPosition):
		return "no entry at that position"
	case errors.Is(err, friendly.ErrReferentialIntegrity):
		return "the library refers to an entry that no longer exists; run a scan"
	case errors.Is(err, lastfm.ErrAuthTimeout):
		return "the browser never came back; try again"
	case errors.Is(err, lastfm.ErrAuthDenied):
		return "access was not granted"
	case errors.Is(err, plugin.ErrUnknownPlugin):
		return "no such plugin"
	case errors.Is(err, plugin.ErrDuplicatePlugin):
		return "already loaded"
	}
	return err.Error()
}
