//go:build !linux

package notify

// New returns Discard; desktop notifications are only wired up on Linux.
func New() (Notifier, error) {
	return Discard, nil
}
