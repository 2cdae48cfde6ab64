package lyrics

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/cleftly/cleftly/internal/lrclib"
)

// Where a Result came from.
const (
	OriginLocal  = "local"
	OriginCache  = "cache"
	OriginLRCLib = "lrclib"
)

// Remote looks lyrics up online.
type Remote interface {
	Lookup(ctx context.Context, q lrclib.Query) (*lrclib.Record, error)
}

// Source provides lyrics from sidecar files, the cache, or a remote.
type Source struct {
	remote   Remote
	cacheDir string
}

// NewSource creates a source. A nil remote disables online lookups and an
// empty cacheDir disables the cache.
func NewSource(remote Remote, cacheDir string) *Source {
	return &Source{remote: remote, cacheDir: cacheDir}
}

// TrackInfo contains the information needed to find lyrics.
type TrackInfo struct {
	Path     string // audio file, for sidecar lookup
	Artist   string
	Title    string
	Album    string
	Duration time.Duration
}

// Result is lyrics text in one format.
type Result struct {
	Format string
	Text   string
	Origin string
}

// Fetch looks for lyrics in order: sidecar .lrc/.txt next to the audio file,
// the cache, then the remote, whose answer is cached. It returns nil when
// nothing was found.
func (s *Source) Fetch(ctx context.Context, track TrackInfo) (*Result, error) {
	if track.Path != "" {
		if r := readPair(stripExt(track.Path)); r != nil {
			r.Origin = OriginLocal
			return r, nil
		}
	}

	if track.Artist == "" || track.Title == "" {
		return nil, nil
	}

	if base := s.cacheBase(track.Artist, track.Title); base != "" {
		if r := readPair(base); r != nil {
			r.Origin = OriginCache
			return r, nil
		}
	}

	if s.remote == nil {
		return nil, nil
	}
	return s.fetchRemote(ctx, track)
}

func (s *Source) fetchRemote(ctx context.Context, track TrackInfo) (*Result, error) {
	rec, err := s.remote.Lookup(ctx, lrclib.Query{
		Artist:   track.Artist,
		Title:    track.Title,
		Album:    track.Album,
		Duration: track.Duration,
	})
	if errors.Is(err, lrclib.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var r *Result
	switch {
	case rec.Synced != "":
		r = &Result{Format: FormatLRC, Text: rec.Synced, Origin: OriginLRCLib}
	case rec.Plain != "":
		r = &Result{Format: FormatPlain, Text: rec.Plain, Origin: OriginLRCLib}
	default:
		return nil, nil
	}

	if base := s.cacheBase(track.Artist, track.Title); base != "" {
		_ = write(base, *r) //nolint:errcheck // cache is best-effort
	}
	return r, nil
}

// SaveSidecar writes r next to the audio file, as .lrc or .txt by format.
func SaveSidecar(audioPath string, r Result) error {
	return write(stripExt(audioPath), r)
}

func readPair(base string) *Result {
	for _, f := range []struct{ ext, format string }{
		{".lrc", FormatLRC},
		{".txt", FormatPlain},
	} {
		data, err := os.ReadFile(base + f.ext)
		if err != nil {
			continue
		}
		if text := strings.TrimSpace(string(data)); text != "" {
			return &Result{Format: f.format, Text: text}
		}
	}
	return nil
}

func write(base string, r Result) error {
	ext := ".txt"
	if r.Format == FormatLRC {
		ext = ".lrc"
	}
	if err := os.MkdirAll(filepath.Dir(base), 0o755); err != nil {
		return fmt.Errorf("create lyrics dir: %w", err)
	}
	return os.WriteFile(base+ext, []byte(r.Text), 0o644) //nolint:gosec // lyrics are not secret
}

func stripExt(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path))
}

func (s *Source) cacheBase(artist, title string) string {
	if s.cacheDir == "" {
		return ""
	}
	return filepath.Join(s.cacheDir, sanitizeFilename(artist), sanitizeFilename(title))
}

var invalidFilenameChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)

func sanitizeFilename(name string) string {
	name = invalidFilenameChars.ReplaceAllString(name, "_")
	name = strings.Trim(name, " .")
	if len(name) > 100 {
		name = name[:100]
	}
	if name == "" {
		name = "_"
	}
	return name
}
