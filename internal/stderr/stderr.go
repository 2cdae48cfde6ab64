//go:build !windows

// Package stderr redirects file descriptor 2 while a full-screen view owns
// the terminal, so log output and library noise cannot corrupt its layout.
package stderr

import (
	"bufio"
	"errors"
	"os"
	"strings"
	"sync"
	"syscall"
)

var (
	mu      sync.Mutex
	started bool
)

// Capture redirects stderr to a pipe and calls fn with every non-blank line
// written to it. restore puts the original stderr back and returns once the
// remaining lines were delivered. Only one capture can be active.
func Capture(fn func(line string)) (restore func(), err error) {
	mu.Lock()
	defer mu.Unlock()
	if started {
		return nil, errors.New("stderr already captured")
	}

	r, w, err := os.Pipe()
	if err != nil {
		return nil, err
	}

	// Save original stderr file descriptor
	orig, err := syscall.Dup(int(os.Stderr.Fd()))
	if err != nil {
		r.Close()
		w.Close()
		return nil, err
	}

	// Redirect stderr (fd 2) to the pipe's write end
	if err := syscall.Dup2(int(w.Fd()), int(os.Stderr.Fd())); err != nil {
		syscall.Close(orig)
		r.Close()
		w.Close()
		return nil, err
	}
	started = true

	var done sync.WaitGroup
	done.Go(func() {
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			if line := strings.TrimSpace(scanner.Text()); line != "" {
				fn(line)
			}
		}
	})

	var once sync.Once
	return func() {
		once.Do(func() {
			_ = syscall.Dup2(orig, int(os.Stderr.Fd()))
			_ = syscall.Close(orig)
			// fd 2 no longer refers to the pipe, so closing w ends the reader.
			w.Close()
			done.Wait()
			r.Close()

			mu.Lock()
			started = false
			mu.Unlock()
		})
	}, nil
}
