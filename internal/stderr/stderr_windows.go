//go:build windows

// Package stderr provides a no-op implementation for Windows.
package stderr

// Capture is a no-op on Windows.
func Capture(func(line string)) (restore func(), err error) {
	return func() {}, nil
}
