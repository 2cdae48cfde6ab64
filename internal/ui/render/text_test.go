package render

import (
	"testing"

	"github.com/mattn/go-runewidth"
	"github.com/stretchr/testify/assert"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"clean", "Mezzanine", "Mezzanine"},
		{"keeps tabs", "a\tb", "a\tb"},
		{"drops controls", "Tear\x00drop\x1b", "Teardrop"},
		{"drops C1 controls", "Angel\u0085", "Angel"},
		{"nbsp to space", "Inertia\u00a0Creeps", "Inertia Creeps"},
		{"invalid utf8", "Black\xffMilk", "BlackMilk"},
		{"wide characters kept", "東京", "東京"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Sanitize(tt.input))
		})
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name  string
		input string
		width int
		want  string
	}{
		{"fits", "hello", 10, "hello"},
		{"exact", "hello", 5, "hello"},
		{"cut", "hello world", 8, "hello w…"},
		{"empty", "", 4, ""},
		{"wide", "東京都庁", 5, "東京…"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Truncate(tt.input, tt.width)
			assert.Equal(t, tt.want, got)
			assert.LessOrEqual(t, runewidth.StringWidth(got), tt.width)
		})
	}
}

func TestTruncateLeft(t *testing.T) {
	tests := []struct {
		name  string
		input string
		width int
		want  string
	}{
		{"fits", "/m/a.flac", 20, "/m/a.flac"},
		{"keeps the file name", "/music/Massive Attack/Mezzanine/01.flac", 12, "…ine/01.flac"},
		{"one cell", "/m/a.flac", 1, "c"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TruncateLeft(tt.input, tt.width)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, min(tt.width, runewidth.StringWidth(tt.input)), runewidth.StringWidth(got))
		})
	}
}

func TestFit(t *testing.T) {
	assert.Equal(t, "ab   ", Fit("ab", 5))
	assert.Equal(t, "abcd…", Fit("abcdefgh", 5))
}

func TestRow(t *testing.T) {
	assert.Equal(t, "left   right", Row("left", "right", 12))
	assert.Equal(t, "left right", Row("left", "right", 3), "always one space apart")
}
