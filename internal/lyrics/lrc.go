// Package lyrics finds lyrics for a track and understands the LRC format.
package lyrics

import (
	"bufio"
	"cmp"
	"io"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Formats of lyrics text.
const (
	FormatLRC   = "lrc"
	FormatPlain = "plain"
)

// Line is one lyric line. Unsynced lines have a zero Time.
type Line struct {
	Time time.Duration
	Text string
}

// Sheet is parsed lyrics with the metadata tags LRC files may carry.
type Sheet struct {
	Lines  []Line
	Title  string
	Artist string
	Album  string
}

var (
	// [mm:ss], [mm:ss.xx], [mm:ss.xxx] or [mm:ss:xx]
	timestampRe = regexp.MustCompile(`\[(\d+):(\d+)(?:[.:](\d+))?\]`)
	// [ar:Artist Name]
	metadataRe = regexp.MustCompile(`^\[([a-z]+):(.+)\]$`)
)

// DetectFormat reports whether text is LRC or plain.
func DetectFormat(text string) string {
	for line := range strings.SplitSeq(text, "\n") {
		if loc := timestampRe.FindStringIndex(strings.TrimSpace(line)); loc != nil && loc[0] == 0 {
			return FormatLRC
		}
	}
	return FormatPlain
}

// Parse reads text in the given format.
func Parse(format, text string) (*Sheet, error) {
	if format == FormatLRC {
		return ParseLRC(strings.NewReader(text))
	}
	sheet := &Sheet{}
	for line := range strings.SplitSeq(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			sheet.Lines = append(sheet.Lines, Line{Text: line})
		}
	}
	return sheet, nil
}

// ParseLRC parses LRC lyrics. A line may carry several timestamps
// ([00:12.34][00:45.67]Text); it then appears once per timestamp.
func ParseLRC(r io.Reader) (*Sheet, error) {
	sheet := &Sheet{}
	sc := bufio.NewScanner(r)

	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}

		if meta := metadataRe.FindStringSubmatch(line); meta != nil {
			value := strings.TrimSpace(meta[2])
			switch strings.ToLower(meta[1]) {
			case "ar":
				sheet.Artist = value
			case "ti":
				sheet.Title = value
			case "al":
				sheet.Album = value
			}
			continue
		}

		stamps := timestampRe.FindAllStringSubmatch(line, -1)
		if len(stamps) == 0 {
			continue
		}
		last := timestampRe.FindAllStringIndex(line, -1)
		text := strings.TrimSpace(line[last[len(last)-1][1]:])

		for _, m := range stamps {
			ts, ok := timestamp(m)
			if !ok {
				continue
			}
			sheet.Lines = append(sheet.Lines, Line{Time: ts, Text: text})
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	slices.SortStableFunc(sheet.Lines, func(a, b Line) int {
		return cmp.Compare(a.Time, b.Time)
	})
	return sheet, nil
}

// timestamp converts a timestampRe submatch. Two fraction digits are
// centiseconds, three are milliseconds.
func timestamp(m []string) (time.Duration, bool) {
	minutes, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	seconds, err := strconv.Atoi(m[2])
	if err != nil {
		return 0, false
	}

	var millis int
	if frac := m[3]; frac != "" {
		millis, err = strconv.Atoi(frac)
		if err != nil {
			return 0, false
		}
		switch len(frac) {
		case 1:
			millis *= 100
		case 2:
			millis *= 10
		}
	}

	return time.Duration(minutes)*time.Minute +
		time.Duration(seconds)*time.Second +
		time.Duration(millis)*time.Millisecond, true
}

// IsSynced reports whether any line has a timestamp.
func (s *Sheet) IsSynced() bool {
	return slices.ContainsFunc(s.Lines, func(l Line) bool { return l.Time > 0 })
}

// LineAt returns the index of the line active at pos, or -1 before the
// first line and for unsynced lyrics.
func (s *Sheet) LineAt(pos time.Duration) int {
	if !s.IsSynced() {
		return -1
	}
	idx := -1
	for i, line := range s.Lines {
		if line.Time > pos {
			break
		}
		idx = i
	}
	return idx
}
