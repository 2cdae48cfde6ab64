package library

import (
	"errors"
	"fmt"
)

// ErrScanIO matches every ScanIOError.
var ErrScanIO = errors.New("library scan failed")

// ScanIOError reports a batch-level scan failure. Nothing from the failed scan
// has been committed when it is returned.
type ScanIOError struct {
	Op   string // "walk", "load", "commit"
	Path string
	Err  error
}

func (e *ScanIOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("scan %s %s: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("scan %s: %v", e.Op, e.Err)
}

func (e *ScanIOError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrScanIO) hold for any ScanIOError.
func (e *ScanIOError) Is(target error) bool { return target == ErrScanIO }
