// Package identity derives stable, content-based ids for library entities.
//
// Ids are the hex MD5 digest of a normalized key. Normalization folds case and
// diacritics and drops everything that is not a letter or a digit, so
// " Björk ", "bjork" and "BJÖRK!" share one id.
package identity

import (
	"crypto/md5" //nolint:gosec // used for stable ids, not for security
	"encoding/hex"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Of returns the id of raw. Equal normalized inputs always yield equal ids.
func Of(raw string) string {
	sum := md5.Sum([]byte(Normalize(raw))) //nolint:gosec // see import
	return hex.EncodeToString(sum[:])
}

// Artist returns the id of an artist display name.
func Artist(name string) string {
	return Of(name)
}

// Album returns the id of an album, scoped to its artist.
func Album(name, artistID string) string {
	return Of(name + "-" + artistID)
}

// Track returns the id of a track within an album.
func Track(title, artistID, albumID string) string {
	return Of(title + "-" + artistID + "-" + albumID)
}

// Normalize returns the key that Of hashes.
func Normalize(raw string) string {
	folded, _, err := transform.String(folder(), raw)
	if err != nil {
		folded = raw
	}
	folded = strings.ToLower(strings.TrimSpace(folded))

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// folder strips combining marks. Transformers are stateful, so each call gets its own.
func folder() transform.Transformer {
	return transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
}
