package library

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif" // decoders for embedded covers
	"image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"

	"github.com/nfnt/resize"

	"github.com/cleftly/cleftly/internal/tags"
)

const artThumbnailSize = 600

// ArtCache stores album covers extracted from audio files.
type ArtCache struct {
	dir string
}

// NewArtCache returns a cache writing into dir. A nil cache only finds folder images.
func NewArtCache(dir string) *ArtCache {
	return &ArtCache{dir: dir}
}

// Resolve finds the cover and animated cover for an album from one of its files.
// Folder images beside the file win over embedded pictures.
func (c *ArtCache) Resolve(trackPath, albumID string) (art, animated string, err error) {
	dir := filepath.Dir(trackPath)
	animated = tags.AnimatedArt(dir)

	if folder := tags.FolderArt(dir); folder != "" {
		return folder, animated, nil
	}
	if c == nil {
		return "", animated, nil
	}

	data, _, err := tags.Picture(trackPath)
	if err != nil || data == nil {
		// no embedded picture is the common case, not an error
		return "", animated, nil //nolint:nilerr
	}

	path, err := c.save(albumID, data)
	if err != nil {
		return "", animated, err
	}
	return path, animated, nil
}

// save writes a jpeg thumbnail of data as <albumID>.jpg.
func (c *ArtCache) save(albumID string, data []byte) (string, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("decode cover: %w", err)
	}
	thumb := resize.Thumbnail(artThumbnailSize, artThumbnailSize, img, resize.Lanczos3)

	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(c.dir, albumID+".jpg")
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if err := jpeg.Encode(f, thumb, &jpeg.Options{Quality: 90}); err != nil {
		f.Close()
		return "", fmt.Errorf("encode cover: %w", err)
	}
	return path, f.Close()
}
