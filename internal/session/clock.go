package session

import (
	"context"
	"time"
)

// RunClock advances the position of the current track every tick, as a
// backend reporting its position would, scaled by the playback speed and
// factor. A track reaching its duration ends. RunClock returns when playback
// stops or ctx is done.
func RunClock(ctx context.Context, c *Controller, tick time.Duration, factor float64) error {
	if factor <= 0 {
		factor = 1
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		audio := c.Audio()
		if audio == nil {
			return nil
		}
		player := c.Player()
		if player.Paused {
			continue
		}

		pos := audio.CurrentTime + tick.Seconds()*player.Speed*factor
		if total := audio.Duration; total > 0 && pos >= total {
			c.UpdatePosition(ctx, total, total)
			more, err := c.TrackEnded(ctx)
			if err != nil {
				return err
			}
			if !more {
				return nil
			}
			continue
		}
		c.UpdatePosition(ctx, pos, 0)
	}
}
