//nolint:goconst // test files commonly repeat strings for test data
package scanprogress

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleftly/cleftly/internal/library"
)

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	out, ok := next.(Model)
	require.True(t, ok)
	return out, cmd
}

func TestModel_ShowsPhaseAndCount(t *testing.T) {
	m := New(nil)
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 100, Height: 30})
	m, _ = update(t, m, ProgressMsg{Phase: library.PhaseReading, Current: 1200, Total: 3400, CurrentFile: "/music/a/b.flac"})

	view := m.View()
	assert.Contains(t, view, "Reading tags")
	assert.Contains(t, view, "1,200/3,400")
	assert.Contains(t, view, "/music/a/b.flac")
}

func TestModel_DiscoveryHasNoTotal(t *testing.T) {
	m := New(nil)
	m, _ = update(t, m, ProgressMsg{Phase: library.PhaseDiscovering, Current: 42})
	assert.Contains(t, m.View(), "42 files found")
}

func TestModel_FitsWidth(t *testing.T) {
	for _, width := range []int{80, 100} {
		m := New(nil)
		m, _ = update(t, m, tea.WindowSizeMsg{Width: width, Height: 30})
		m, _ = update(t, m, ProgressMsg{
			Phase: library.PhaseReading, Current: 5, Total: 10,
			CurrentFile: "/music/" + strings.Repeat("long/", 40) + "track.flac",
		})
		m, _ = update(t, m, LineMsg(strings.Repeat("w", 200)))

		lines := strings.Split(strings.TrimSuffix(m.View(), "\n"), "\n")
		// border, head, bar, file, hint, blank, log line, border
		assert.Len(t, lines, 8, "width %d", width)
		for _, line := range lines {
			assert.Equal(t, width, lipgloss.Width(line), "width %d: %q", width, line)
		}
	}
}

func TestModel_KeepsLastLines(t *testing.T) {
	m := New(nil)
	for i := range MaxLines + 2 {
		m, _ = update(t, m, LineMsg(strings.Repeat("x", i+1)))
	}
	require.Len(t, m.lines, MaxLines)
	assert.Equal(t, "xxx", m.lines[0])
}

func TestModel_CancelOnce(t *testing.T) {
	calls := 0
	m := New(func() { calls++ })
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})

	assert.Equal(t, 1, calls)
	assert.Contains(t, m.View(), "Cancelling")
}

func TestModel_DoneQuits(t *testing.T) {
	stats := &library.ScanStats{Discovered: 3, Added: map[string][]string{"/music": {"a.mp3"}}}
	m, cmd := update(t, New(nil), DoneMsg{Stats: stats})

	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	got, err := m.Result()
	require.NoError(t, err)
	assert.Same(t, stats, got)
	assert.Contains(t, m.View(), "Library Scan Complete")
}

func TestModel_DoneWithError(t *testing.T) {
	m, _ := update(t, New(nil), DoneMsg{Err: errors.New("disk on fire")})
	assert.Contains(t, m.View(), "Scan failed: disk on fire")

	m, _ = update(t, New(nil), DoneMsg{Err: context.Canceled})
	assert.Contains(t, m.View(), "Nothing was saved")
}

func TestReport(t *testing.T) {
	stats := &library.ScanStats{
		Discovered: 1500,
		Added: map[string][]string{
			"/music":  {"a.mp3", "b.mp3", "c.mp3", "d.mp3", "e.mp3"},
			"/extras": {"x.flac"},
		},
		Relocated:  []library.Relocation{{TrackID: "t", From: "/music/old.mp3", To: "/music/new.mp3"}},
		Duplicates: []string{"/music/dupe.mp3"},
		Removed:    []string{"/music/gone.mp3"},
		NewAlbums:  1,
		NewArtists: 2,
	}
	out := Report(stats, 3, 80)

	assert.Contains(t, out, "/extras")
	assert.Contains(t, out, "Added: 5")
	assert.Contains(t, out, "... and 2 more")
	assert.Contains(t, out, "/music/old.mp3 → /music/new.mp3")
	assert.Contains(t, out, "Duplicates skipped: 1")
	assert.Contains(t, out, "Removed: 1")
	assert.NotContains(t, out, "No changes")
	assert.Less(t, strings.Index(out, "/extras"), strings.Index(out, "/music\n"), "sources are sorted")

	assert.Contains(t, Summary(stats), "1,500 files scanned: 6 added, 1 moved, 1 removed, 1 new album, 2 new artists")
}

func TestReport_NoChanges(t *testing.T) {
	assert.Contains(t, Report(&library.ScanStats{}, 0, 80), "No changes")
	assert.Empty(t, Report(nil, 0, 80))
}

func TestRun(t *testing.T) {
	want := &library.ScanStats{Discovered: 2}
	scan := func(_ context.Context, progress chan<- library.ScanProgress) (*library.ScanStats, error) {
		defer close(progress)
		progress <- library.ScanProgress{Phase: library.PhaseDiscovering, Current: 2}
		progress <- library.ScanProgress{Phase: library.PhaseDone, Stats: want}
		return want, nil
	}

	var out bytes.Buffer
	got, err := Run(context.Background(), scan, Options{Input: strings.NewReader(""), Output: &out})
	require.NoError(t, err)
	assert.Same(t, want, got)
	assert.Contains(t, out.String(), "Library Scan Complete")
}

func TestRun_CancelFromKeyboard(t *testing.T) {
	scan := func(ctx context.Context, progress chan<- library.ScanProgress) (*library.ScanStats, error) {
		defer close(progress)
		<-ctx.Done()
		return nil, ctx.Err()
	}

	var out bytes.Buffer
	_, err := Run(context.Background(), scan, Options{Input: strings.NewReader("q"), Output: &out})
	require.ErrorIs(t, err, context.Canceled)
}
