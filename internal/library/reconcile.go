package library

import (
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/cleftly/cleftly/internal/identity"
	"github.com/cleftly/cleftly/internal/store"
	"github.com/cleftly/cleftly/internal/tags"
)

// Fallback names for files that carry neither tags nor a usable directory layout.
const (
	UnknownArtist = "Unknown Artist"
	UnknownAlbum  = "Unknown Album"
)

// File is one discovered audio file. Tags is nil when extraction failed or was skipped.
type File struct {
	Path   string
	Source string
	Tags   *tags.Tag
}

// Known is the catalog state a reconciliation resolves against.
type Known struct {
	Tracks  []store.Track
	Artists map[string]store.Artist
	Albums  map[string]store.Album
}

// Relocation moves an existing track to a new file.
type Relocation struct {
	TrackID string
	From    string
	To      string
}

// Result holds the net-new entities of a reconciliation.
type Result struct {
	Tracks  []store.Track
	Albums  []store.Album
	Artists []store.Artist

	Relocated []Relocation
	// Duplicates are new paths whose track identity is already taken by a live file.
	Duplicates []string
	// AlbumSources maps each new album to the first file that created it.
	AlbumSources map[string]string
}

// Empty reports whether applying r would change nothing.
func (r Result) Empty() bool {
	return len(r.Tracks) == 0 && len(r.Albums) == 0 && len(r.Artists) == 0 && len(r.Relocated) == 0
}

// Reconcile maps discovered files onto artist, album and track identities.
//
// Files whose path is already a known track location are skipped. Artists and
// albums are get-or-create: a known row is reused as is, a new one is created
// once per scan no matter how many files reference it. onProgress, when set,
// is called after every file that passed the location filter.
func Reconcile(files []File, known Known, now time.Time, onProgress func(done, total int)) Result {
	locations := make(map[string]struct{}, len(known.Tracks))
	byID := make(map[string]store.Track, len(known.Tracks))
	for _, t := range known.Tracks {
		locations[t.Location] = struct{}{}
		byID[t.ID] = t
	}

	discovered := make(map[string]struct{}, len(files))
	pending := make([]File, 0, len(files))
	for _, f := range files {
		discovered[f.Path] = struct{}{}
		if _, ok := locations[f.Path]; !ok {
			pending = append(pending, f)
		}
	}

	res := Result{AlbumSources: make(map[string]string)}
	if len(pending) == 0 {
		return res
	}

	r := reconciler{
		known:      known,
		now:        now,
		artists:    make(map[string]*store.Artist),
		albums:     make(map[string]*store.Album),
		tracks:     make(map[string]struct{}),
		relocated:  make(map[string]struct{}),
		byID:       byID,
		discovered: discovered,
	}

	for i, f := range pending {
		r.add(f, &res)
		if onProgress != nil {
			onProgress(i+1, len(pending))
		}
	}

	for _, id := range r.artistOrder {
		res.Artists = append(res.Artists, *r.artists[id])
	}
	for _, id := range r.albumOrder {
		res.Albums = append(res.Albums, *r.albums[id])
	}
	return res
}

type reconciler struct {
	known Known
	now   time.Time

	artists     map[string]*store.Artist
	artistOrder []string
	albums      map[string]*store.Album
	albumOrder  []string
	tracks      map[string]struct{}
	relocated   map[string]struct{}

	byID       map[string]store.Track
	discovered map[string]struct{}
}

func (r *reconciler) add(f File, res *Result) {
	m := describe(f)

	artistID := r.artist(m.artist)
	albumArtistID := r.artist(m.albumArtist)
	album := r.album(m, albumArtistID, f.Path, res)

	trackID := identity.Track(m.title, artistID, album.ID)

	if existing, ok := r.byID[trackID]; ok {
		_, stillThere := r.discovered[existing.Location]
		_, moved := r.relocated[trackID]
		if !stillThere && !moved {
			r.relocated[trackID] = struct{}{}
			res.Relocated = append(res.Relocated, Relocation{TrackID: trackID, From: existing.Location, To: f.Path})
			return
		}
		res.Duplicates = append(res.Duplicates, f.Path)
		return
	}
	if _, ok := r.tracks[trackID]; ok {
		res.Duplicates = append(res.Duplicates, f.Path)
		return
	}
	r.tracks[trackID] = struct{}{}

	if a, ok := r.artists[artistID]; ok {
		a.Genres = mergeGenres(a.Genres, m.genres)
	}

	res.Tracks = append(res.Tracks, store.Track{
		ID:               trackID,
		Location:         f.Path,
		Type:             tags.FileType(f.Path),
		Title:            m.title,
		ArtistID:         artistID,
		AlbumID:          album.ID,
		AlbumArt:         album.AlbumArt,
		AnimatedAlbumArt: album.AnimatedAlbumArt,
		Genres:           m.genres,
		Duration:         m.duration,
		TrackNum:         m.trackNum,
		TotalTracks:      m.totalTracks,
		DiscNum:          m.discNum,
		TotalDiscs:       m.totalDiscs,
		CreatedAt:        r.now,
	})
}

// artist returns the id for name, queuing a new row if neither the catalog nor
// this scan has seen it.
func (r *reconciler) artist(name string) string {
	id := identity.Artist(name)
	if _, ok := r.known.Artists[id]; ok {
		return id
	}
	if _, ok := r.artists[id]; ok {
		return id
	}
	r.artists[id] = &store.Artist{ID: id, Name: name, Genres: []string{}, CreatedAt: r.now}
	r.artistOrder = append(r.artistOrder, id)
	return id
}

func (r *reconciler) album(m meta, artistID, path string, res *Result) store.Album {
	id := identity.Album(m.album, artistID)
	if a, ok := r.known.Albums[id]; ok {
		return a
	}
	if a, ok := r.albums[id]; ok {
		return *a
	}
	a := &store.Album{
		ID:        id,
		Name:      m.album,
		ArtistID:  artistID,
		Genres:    m.genres,
		Year:      m.year,
		CreatedAt: r.now,
	}
	r.albums[id] = a
	r.albumOrder = append(r.albumOrder, id)
	res.AlbumSources[id] = path
	return *a
}

// meta is the resolved naming and numbering of one file.
type meta struct {
	title       string
	artist      string
	albumArtist string
	album       string
	genres      []string
	year        int
	duration    float64

	trackNum, totalTracks int
	discNum, totalDiscs   int
}

// describe resolves names from tags first, then from the directory layout
// below the source: <artist>/<album>/<file>.
func describe(f File) meta {
	dirs := parentDirs(f.Source, f.Path)

	m := meta{
		title:       strings.TrimSuffix(filepath.Base(f.Path), filepath.Ext(f.Path)),
		album:       UnknownAlbum,
		artist:      UnknownArtist,
		genres:      []string{},
		trackNum:    1,
		totalTracks: 1,
		discNum:     1,
		totalDiscs:  1,
	}
	if len(dirs) >= 1 {
		m.album = dirs[len(dirs)-1]
	}
	if len(dirs) >= 2 {
		m.artist = dirs[len(dirs)-2]
	}

	if t := f.Tags; t != nil {
		if t.Title != "" {
			m.title = t.Title
		}
		if t.Album != "" {
			m.album = t.Album
		}
		switch {
		case t.Artist != "":
			m.artist = t.Artist
		case t.AlbumArtist != "":
			m.artist = t.AlbumArtist
		}
		m.albumArtist = t.AlbumArtist
		if len(t.Genres) > 0 {
			m.genres = slices.Clone(t.Genres)
		}
		m.year = t.Year
		m.duration = t.Duration.Seconds()
		if t.TrackNumber > 0 {
			m.trackNum = t.TrackNumber
		}
		if t.TotalTracks > 0 {
			m.totalTracks = t.TotalTracks
		}
		if t.DiscNumber > 0 {
			m.discNum = t.DiscNumber
		}
		if t.TotalDiscs > 0 {
			m.totalDiscs = t.TotalDiscs
		}
	}
	if m.albumArtist == "" {
		m.albumArtist = m.artist
	}
	return m
}

// parentDirs returns the directory names between source and the file.
// Without a usable source, the last two directories of the path are used.
func parentDirs(source, path string) []string {
	dir := filepath.Dir(path)
	if source != "" {
		if rel, err := filepath.Rel(source, dir); err == nil && !strings.HasPrefix(rel, "..") {
			if rel == "." {
				return nil
			}
			return strings.Split(rel, string(filepath.Separator))
		}
	}

	var out []string
	for range 2 {
		base := filepath.Base(dir)
		if base == "." || base == string(filepath.Separator) || base == "" {
			break
		}
		out = append([]string{base}, out...)
		dir = filepath.Dir(dir)
	}
	return out
}

func mergeGenres(dst, src []string) []string {
	for _, g := range src {
		if !slices.ContainsFunc(dst, func(have string) bool { return strings.EqualFold(have, g) }) {
			dst = append(dst, g)
		}
	}
	return dst
}
