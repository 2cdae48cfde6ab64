package tags

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/bogem/id3v2/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createTestMP3 writes a single MPEG frame, optionally preceded by ID3v2 frames.
func createTestMP3(t *testing.T, dir, name string, frames map[string]string) string {
	t.Helper()
	path := filepath.Join(dir, name)

	// MPEG1 Layer3, 128kbps, 44100Hz, stereo
	mp3Frame := make([]byte, 417)
	mp3Frame[0] = 0xff
	mp3Frame[1] = 0xfb
	mp3Frame[2] = 0x90
	require.NoError(t, os.WriteFile(path, mp3Frame, 0o600))

	if len(frames) == 0 {
		return path
	}

	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	require.NoError(t, err)
	defer tag.Close()
	tag.SetVersion(4)
	tag.SetDefaultEncoding(id3v2.EncodingUTF8)
	for id, text := range frames {
		tag.AddTextFrame(id, id3v2.EncodingUTF8, text)
	}
	require.NoError(t, tag.Save())
	return path
}

func TestIsMusicFile(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"/music/a.mp3", true},
		{"/music/a.FLAC", true},
		{"/music/a.wave", true},
		{"/music/a.caf", true},
		{"/music/a.webm", true},
		{"/music/cover.jpg", false},
		{"/music/notes", false},
		{"/music/._a.mp3", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsMusicFile(tt.path), tt.path)
	}
}

func TestFileType(t *testing.T) {
	assert.Equal(t, "flac", FileType("/a/b/Song.FLAC"))
	assert.Empty(t, FileType("/a/b/Song"))
}

func TestSplitGenres(t *testing.T) {
	assert.Equal(t, []string{"Rock", "Alternative"}, SplitGenres(" Rock ; Alternative;rock;; "))
	assert.Nil(t, SplitGenres(""))
}

func TestParseNumberPair(t *testing.T) {
	tests := []struct {
		in         string
		num, total int
	}{
		{"", 0, 0},
		{"5", 5, 0},
		{"5/12", 5, 12},
		{" 3 / 9 ", 3, 9},
		{"x/2", 0, 2},
	}
	for _, tt := range tests {
		num, total := parseNumberPair(tt.in)
		assert.Equal(t, tt.num, num, tt.in)
		assert.Equal(t, tt.total, total, tt.in)
	}
}

func TestParseYear(t *testing.T) {
	assert.Equal(t, 1997, parseYear("1997-05-21"))
	assert.Equal(t, 2001, parseYear("2001"))
	assert.Equal(t, 0, parseYear("unknown"))
}

func TestRead_MP3(t *testing.T) {
	dir := t.TempDir()
	path := createTestMP3(t, dir, "02 Song.mp3", map[string]string{
		"TIT2": "Track Two",
		"TPE1": "Artist A",
		"TALB": "Album X",
		"TRCK": "2/10",
		"TCON": "Rock",
	})

	got, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, "Track Two", got.Title)
	assert.Equal(t, "Artist A", got.Artist)
	assert.Equal(t, "Album X", got.Album)
	assert.Equal(t, 2, got.TrackNumber)
	assert.Equal(t, 10, got.TotalTracks)
	assert.Equal(t, []string{"Rock"}, got.Genres)
}

func TestRead_NonexistentFile(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "missing.mp3"))
	assert.Error(t, err)
}

func TestFolderArt(t *testing.T) {
	dir := t.TempDir()
	assert.Empty(t, FolderArt(dir))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "Folder.JPG"), []byte{0xff, 0xd8}, 0o600))
	assert.Equal(t, filepath.Join(dir, "Folder.JPG"), FolderArt(dir))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "cover.png"), []byte{0x89}, 0o600))
	assert.Equal(t, filepath.Join(dir, "cover.png"), FolderArt(dir), "cover.* outranks folder.*")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "anim.webm"), []byte{0}, 0o600))
	assert.Equal(t, filepath.Join(dir, "anim.webm"), AnimatedArt(dir))
}

func TestPicture_NoEmbeddedArt(t *testing.T) {
	path := createTestMP3(t, t.TempDir(), "a.mp3", map[string]string{"TIT2": "x"})
	data, mime, err := Picture(path)
	require.NoError(t, err)
	assert.Nil(t, data)
	assert.Empty(t, mime)
}
