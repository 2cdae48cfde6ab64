package scanprogress

import (
	"context"
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/cleftly/cleftly/internal/library"
	"github.com/cleftly/cleftly/internal/stderr"
)

// ScanFunc runs a scan, reporting on progress and closing it before returning.
type ScanFunc func(ctx context.Context, progress chan<- library.ScanProgress) (*library.ScanStats, error)

// Options configure Run.
type Options struct {
	// Input and Output default to the terminal.
	Input  io.Reader
	Output io.Writer
	// CaptureStderr shows stderr lines inside the view instead of letting
	// them tear through it.
	CaptureStderr bool
}

// Run shows the view while scan runs and returns the scan's outcome.
func Run(ctx context.Context, scan ScanFunc, opts Options) (*library.ScanStats, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var progOpts []tea.ProgramOption
	if opts.Input != nil {
		progOpts = append(progOpts, tea.WithInput(opts.Input))
	}
	if opts.Output != nil {
		progOpts = append(progOpts, tea.WithOutput(opts.Output))
	}
	p := tea.NewProgram(New(cancel), progOpts...)

	if opts.CaptureStderr {
		restore, err := stderr.Capture(func(line string) { p.Send(LineMsg(line)) })
		if err != nil {
			return nil, fmt.Errorf("capture stderr: %w", err)
		}
		defer restore()
	}

	progress := make(chan library.ScanProgress, 16)
	done := make(chan DoneMsg, 1)
	go func() {
		stats, err := scan(ctx, progress)
		done <- DoneMsg{Stats: stats, Err: err}
	}()
	go func() {
		for pr := range progress {
			p.Send(ProgressMsg(pr))
		}
		p.Send(<-done)
	}()

	final, err := p.Run()
	if err != nil {
		return nil, err
	}
	return final.(Model).Result()
}
