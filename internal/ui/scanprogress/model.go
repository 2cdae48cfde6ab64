// Package scanprogress is the full-screen view of a library scan: a progress
// bar per phase, the file being read, recent log lines and the final report.
package scanprogress

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"

	"github.com/cleftly/cleftly/internal/library"
	"github.com/cleftly/cleftly/internal/ui/render"
)

// MaxLines is how many captured log lines stay visible.
const MaxLines = 5

// ProgressMsg carries one progress report from the scanner.
type ProgressMsg library.ScanProgress

// LineMsg is a line written to stderr while the view runs.
type LineMsg string

// DoneMsg ends the scan.
type DoneMsg struct {
	Stats *library.ScanStats
	Err   error
}

var phaseLabels = map[string]string{
	library.PhaseDiscovering: "Discovering files",
	library.PhaseReading:     "Reading tags",
	library.PhaseReconciling: "Reconciling",
	library.PhaseCommitting:  "Saving",
	library.PhaseDone:        "Done",
}

// Model is the scan view.
type Model struct {
	cancel context.CancelFunc

	bar     progress.Model
	spinner spinner.Model
	width   int

	current    library.ScanProgress
	lines      []string
	cancelling bool

	done  bool
	stats *library.ScanStats
	err   error
}

// New creates the view. cancel is called when the user asks to stop.
func New(cancel context.CancelFunc) Model {
	return Model{
		cancel: cancel,
		bar: progress.New(
			progress.WithGradient("#7c3aed", "#a78bfa"),
			progress.WithoutPercentage(),
		),
		spinner: spinner.New(spinner.WithSpinner(spinner.MiniDot), spinner.WithStyle(accentStyle)),
		width:   80,
		current: library.ScanProgress{Phase: library.PhaseDiscovering},
	}
}

// Result is the scan outcome once the view has finished.
func (m Model) Result() (*library.ScanStats, error) {
	return m.stats, m.err
}

// Init starts the spinner.
func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			if !m.cancelling && m.cancel != nil {
				m.cancelling = true
				m.cancel()
			}
		}
		return m, nil

	case ProgressMsg:
		m.current = library.ScanProgress(msg)
		return m, nil

	case LineMsg:
		m.lines = append(m.lines, string(msg))
		if len(m.lines) > MaxLines {
			m.lines = m.lines[len(m.lines)-MaxLines:]
		}
		return m, nil

	case DoneMsg:
		m.done = true
		m.stats, m.err = msg.Stats, msg.Err
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	// border and padding take two columns each side
	inner := max(m.width-4, 20)

	var sb strings.Builder
	switch {
	case m.done && m.err != nil:
		sb.WriteString(m.errorView())
	case m.done:
		sb.WriteString(Report(m.stats, DefaultMaxExamples, inner))
	default:
		sb.WriteString(m.progressView(inner))
	}

	if len(m.lines) > 0 {
		sb.WriteString("\n\n")
		for i, line := range m.lines {
			if i > 0 {
				sb.WriteString("\n")
			}
			sb.WriteString(subtleStyle.Render(render.Truncate(line, inner)))
		}
	}
	return panelStyle.Width(inner+panelStyle.GetHorizontalPadding()).Render(sb.String()) + "\n"
}

func (m Model) progressView(width int) string {
	label := phaseLabels[m.current.Phase]
	if label == "" {
		label = m.current.Phase
	}
	if m.cancelling {
		label = "Cancelling"
	}

	var count string
	switch {
	case m.current.Total > 0:
		count = fmt.Sprintf("%s/%s", humanize.Comma(int64(m.current.Current)), humanize.Comma(int64(m.current.Total)))
	case m.current.Current > 0:
		count = humanize.Comma(int64(m.current.Current)) + " files found"
	}

	head := render.Row(m.spinner.View()+" "+titleStyle.Render(label), mutedStyle.Render(count), width)

	m.bar.Width = width
	lines := []string{head, m.bar.ViewAs(m.current.Fraction())}
	if m.current.CurrentFile != "" {
		lines = append(lines, subtleStyle.Render(render.TruncateLeft(m.current.CurrentFile, width)))
	}
	lines = append(lines, subtleStyle.Render("q to cancel"))
	return strings.Join(lines, "\n")
}

func (m Model) errorView() string {
	if errors.Is(m.err, context.Canceled) {
		return mutedStyle.Render("Scan cancelled. Nothing was saved.")
	}
	return errorStyle.Render("Scan failed: " + m.err.Error())
}
