package lastfm

const (
	// MaxAttempts is how often a pending scrobble is tried before it is dropped.
	MaxAttempts = 10
	// MaxPending caps the retry queue; the oldest entries go first.
	MaxPending = 500
)

// Enqueue appends a failed play to queue, trimming the oldest entries
// beyond MaxPending.
func Enqueue(queue []Pending, p Play, err error) []Pending {
	entry := Pending{Play: p, Attempts: 1}
	if err != nil {
		entry.LastError = err.Error()
	}
	queue = append(queue, entry)
	if over := len(queue) - MaxPending; over > 0 {
		queue = queue[over:]
	}
	return queue
}

// Retry resubmits queued plays in order and returns what is still pending
// along with how many went through. Exhausted entries are dropped. Nothing
// is sent without a session.
func Retry(s Scrobbler, queue []Pending) (remaining []Pending, sent int) {
	if !s.Authenticated() {
		return queue, 0
	}
	for _, p := range queue {
		if p.Attempts >= MaxAttempts {
			continue
		}
		if err := s.Scrobble(p.Play); err != nil {
			p.Attempts++
			p.LastError = err.Error()
			remaining = append(remaining, p)
			continue
		}
		sent++
	}
	return remaining, sent
}
