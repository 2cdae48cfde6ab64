package scanprogress

import "github.com/charmbracelet/lipgloss"

var (
	accent  = lipgloss.Color("#a78bfa")
	fgBase  = lipgloss.Color("#c0c0c0")
	fgMuted = lipgloss.Color("#808080")
	fgDim   = lipgloss.Color("#585858")
	success = lipgloss.Color("#42b883")
	failure = lipgloss.Color("#ff5555")
	warning = lipgloss.Color("#f1a208")

	titleStyle   = lipgloss.NewStyle().Foreground(fgBase).Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(fgMuted)
	subtleStyle  = lipgloss.NewStyle().Foreground(fgDim)
	accentStyle  = lipgloss.NewStyle().Foreground(accent)
	errorStyle   = lipgloss.NewStyle().Foreground(failure)
	sourceStyle  = lipgloss.NewStyle().Bold(true)
	panelStyle   = lipgloss.NewStyle().BorderStyle(lipgloss.RoundedBorder()).BorderForeground(fgDim).Padding(0, 1)
	successStyle = lipgloss.NewStyle().Foreground(success)
	warningStyle = lipgloss.NewStyle().Foreground(warning)
)
