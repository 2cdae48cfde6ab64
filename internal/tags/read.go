package tags

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/bogem/id3v2/v2"
	"github.com/dhowden/tag"
	"go.senan.xyz/taglib"
)

// ErrNoTags is returned when no reader could make sense of a file.
var ErrNoTags = errors.New("no readable tags")

// Read reads metadata from a music file. Duration is filled in when TagLib
// can read the stream properties; tag fields missing from the file stay empty.
func Read(path string) (*Tag, error) {
	t, err := readWithDhowden(path)
	if err != nil {
		switch strings.ToLower(filepath.Ext(path)) {
		case ExtMP3:
			// dhowden/tag trips over some UTF-16 ID3 frames
			t, err = readMP3WithID3v2(path)
		default:
			t, err = readWithTaglib(path)
		}
	}
	if err != nil {
		return nil, err
	}

	if props, perr := taglib.ReadProperties(path); perr == nil {
		t.Duration = props.Length
	}
	return t, nil
}

func readWithDhowden(path string) (*Tag, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		return nil, err
	}

	track, totalTracks := m.Track()
	disc, totalDiscs := m.Disc()

	return &Tag{
		Path:        path,
		Title:       strings.TrimSpace(m.Title()),
		Artist:      strings.TrimSpace(m.Artist()),
		AlbumArtist: strings.TrimSpace(m.AlbumArtist()),
		Album:       strings.TrimSpace(m.Album()),
		Genres:      SplitGenres(m.Genre()),
		Year:        m.Year(),
		TrackNumber: track,
		TotalTracks: totalTracks,
		DiscNumber:  disc,
		TotalDiscs:  totalDiscs,
	}, nil
}

func readMP3WithID3v2(path string) (*Tag, error) {
	id3tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return nil, err
	}
	defer id3tag.Close()

	if !id3tag.HasFrames() {
		return nil, ErrNoTags
	}

	track, totalTracks := parseNumberPair(textFrame(id3tag, "TRCK"))
	disc, totalDiscs := parseNumberPair(textFrame(id3tag, "TPOS"))

	year := parseYear(id3tag.Year())
	if year == 0 {
		year = parseYear(textFrame(id3tag, "TDRC"))
	}

	return &Tag{
		Path:        path,
		Title:       strings.TrimSpace(id3tag.Title()),
		Artist:      strings.TrimSpace(id3tag.Artist()),
		AlbumArtist: strings.TrimSpace(textFrame(id3tag, "TPE2")),
		Album:       strings.TrimSpace(id3tag.Album()),
		Genres:      SplitGenres(id3tag.Genre()),
		Year:        year,
		TrackNumber: track,
		TotalTracks: totalTracks,
		DiscNumber:  disc,
		TotalDiscs:  totalDiscs,
	}, nil
}

func readWithTaglib(path string) (*Tag, error) {
	raw, err := taglib.ReadTags(path)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, ErrNoTags
	}
	tags := taglibTags(raw)

	track, totalTracks := parseNumberPair(tags.get(taglib.TrackNumber))
	if totalTracks == 0 {
		totalTracks = tags.getInt("TRACKTOTAL", "TOTALTRACKS")
	}
	disc, totalDiscs := parseNumberPair(tags.get(taglib.DiscNumber))
	if totalDiscs == 0 {
		totalDiscs = tags.getInt("DISCTOTAL", "TOTALDISCS")
	}

	var genres []string
	for _, g := range raw[taglib.Genre] {
		genres = append(genres, SplitGenres(g)...)
	}

	return &Tag{
		Path:        path,
		Title:       strings.TrimSpace(tags.get(taglib.Title)),
		Artist:      strings.TrimSpace(tags.get(taglib.Artist)),
		AlbumArtist: strings.TrimSpace(tags.get(taglib.AlbumArtist)),
		Album:       strings.TrimSpace(tags.get(taglib.Album)),
		Genres:      genres,
		Year:        parseYear(tags.get(taglib.Date, "YEAR")),
		TrackNumber: track,
		TotalTracks: totalTracks,
		DiscNumber:  disc,
		TotalDiscs:  totalDiscs,
	}, nil
}

// textFrame reads a text frame value from an ID3v2 tag.
func textFrame(id3tag *id3v2.Tag, frameID string) string {
	frames := id3tag.GetFrames(frameID)
	if len(frames) == 0 {
		return ""
	}
	if tf, ok := frames[0].(id3v2.TextFrame); ok {
		return tf.Text
	}
	return ""
}
