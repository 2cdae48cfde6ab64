package tags

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/dhowden/tag"
)

// Cover image filenames looked up beside audio files, in priority order.
var coverArtFilenames = []string{
	"cover.jpg", "cover.jpeg", "cover.png", "cover.gif",
	"folder.jpg", "folder.jpeg", "folder.png",
	"front.jpg", "front.jpeg", "front.png",
}

// Animated cover filenames.
var animatedArtFilenames = []string{"anim.mp4", "anim.webm", "anim.mov"}

// Picture returns the embedded cover of an audio file, or nil data when it has none.
func Picture(path string) (data []byte, mimeType string, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", err
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		return nil, "", err
	}

	pic := m.Picture()
	if pic == nil || len(pic.Data) == 0 {
		return nil, "", nil
	}
	return pic.Data, pic.MIMEType, nil
}

// FolderArt returns the path of a cover image in dir, or "".
func FolderArt(dir string) string {
	return findInDir(dir, coverArtFilenames)
}

// AnimatedArt returns the path of an animated cover in dir, or "".
func AnimatedArt(dir string) string {
	return findInDir(dir, animatedArtFilenames)
}

// findInDir matches names case-insensitively against dir's entries.
func findInDir(dir string, names []string) string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	present := make(map[string]string, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		present[strings.ToLower(e.Name())] = e.Name()
	}
	for _, name := range names {
		if actual, ok := present[name]; ok {
			return filepath.Join(dir, actual)
		}
	}
	return ""
}
