// Package session is the playback session controller: the current track,
// the queue and its shuffle state, and player settings.
//
// State changes happen synchronously under the controller's lock. Their side
// effects (events, lastPlayedAt, lyrics requests) run on background
// goroutines and never hold up the transition.
package session

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cleftly/cleftly/internal/events"
	"github.com/cleftly/cleftly/internal/friendly"
)

const (
	// scrobbleMinDuration is the length a track must exceed to be scrobbled.
	scrobbleMinDuration = 30.0
	// restartThreshold: Previous restarts the track past this many seconds.
	restartThreshold = 3.0
)

// TrackToucher records plays.
type TrackToucher interface {
	TouchTrack(ctx context.Context, id string, at time.Time) error
}

// StateReader is the read-only view handed to plugins.
type StateReader interface {
	Audio() *Audio
	Player() Player
	Queue() Queue
}

// Options configure a Controller.
type Options struct {
	Backend     Backend
	BackendName string // BackendNative or BackendWeb
	Events      events.PubSub
	Tracks      TrackToucher
	Log         *zap.Logger
	// Rand drives shuffling. Nil uses a randomly seeded source.
	Rand *rand.Rand
	Now  func() time.Time
}

// PlayOptions describe the queue a track is played from.
type PlayOptions struct {
	// Queue is the context the track was picked from. Empty means the track alone.
	Queue []friendly.Track
	// Index, when set and in range, is the queue position to play.
	Index *int
	// Shuffle permutes Queue with the played track first, remembering the
	// original order.
	Shuffle bool
}

// Controller owns the playback session.
type Controller struct {
	backend     Backend
	backendName string
	events      events.PubSub
	tracks      TrackToucher
	log         *zap.Logger
	now         func() time.Time

	mu     sync.Mutex
	rng    *rand.Rand
	audio  *Audio
	player Player
	queue  Queue

	watchMu  sync.Mutex
	watchers map[uint64]func(Snapshot)
	watchID  uint64

	effects sync.WaitGroup
	unsubs  []events.Unsubscribe
}

var _ StateReader = (*Controller)(nil)

// New creates a Controller and subscribes it to lyrics results.
func New(opts Options) *Controller {
	c := &Controller{
		backend:     opts.Backend,
		backendName: opts.BackendName,
		events:      opts.Events,
		tracks:      opts.Tracks,
		log:         opts.Log,
		now:         opts.Now,
		rng:         opts.Rand,
		player:      Player{Volume: 1, Speed: 1},
		queue:       Queue{Index: -1},
		watchers:    make(map[uint64]func(Snapshot)),
	}
	if c.backend == nil {
		c.backend = NullBackend{}
	}
	if c.backendName == "" {
		c.backendName = BackendNative
	}
	if c.log == nil {
		c.log = zap.NewNop()
	}
	c.log = c.log.Named("session")
	if c.now == nil {
		c.now = time.Now
	}
	if c.rng == nil {
		c.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())) //nolint:gosec // shuffle order
	}
	if c.events != nil {
		c.unsubs = append(c.unsubs,
			events.On(c.events, events.OnLyricsLoaded, c.onLyricsLoaded),
			events.On(c.events, events.OnPlayerCommand, c.Apply),
		)
	}
	return c
}

// Close unsubscribes from the bus and waits for pending side effects.
func (c *Controller) Close() {
	for _, unsub := range c.unsubs {
		unsub()
	}
	c.Wait()
}

// ErrUnknownAction is returned by Apply for commands it does not know.
var ErrUnknownAction = errors.New("unknown player action")

// Apply executes a Command.
func (c *Controller) Apply(ctx context.Context, cmd Command) error {
	switch cmd.Action {
	case ActionPlay:
		if c.Audio() == nil {
			return c.playAt(ctx, max(c.Queue().Index, 0))
		}
		return c.Resume(ctx)
	case ActionPause:
		return c.Pause(ctx)
	case ActionToggle:
		return c.TogglePause(ctx)
	case ActionStop:
		return c.Stop(ctx)
	case ActionNext:
		_, err := c.Next(ctx)
		return err
	case ActionPrevious:
		return c.Previous(ctx)
	case ActionVolume:
		return c.SetVolume(ctx, cmd.Value)
	case ActionMute:
		return c.SetMuted(ctx, cmd.Enabled)
	case ActionShuffle:
		c.SetShuffle(ctx, cmd.Enabled)
		return nil
	case ActionRepeat:
		mode, ok := ParseRepeatMode(cmd.Repeat)
		if !ok {
			return fmt.Errorf("repeat mode %q: %w", cmd.Repeat, ErrUnknownAction)
		}
		c.SetRepeat(ctx, mode)
		return nil
	case ActionSpeed:
		return c.SetSpeed(ctx, cmd.Value)
	}
	return fmt.Errorf("%q: %w", cmd.Action, ErrUnknownAction)
}

// Wait blocks until every side effect started so far has finished.
func (c *Controller) Wait() {
	c.effects.Wait()
}

// PlayTrack makes track current and starts it on the backend.
func (c *Controller) PlayTrack(ctx context.Context, track friendly.Track, opts PlayOptions) error {
	tracks := slices.Clone(opts.Queue)
	if len(tracks) == 0 {
		tracks = []friendly.Track{track}
	}

	index := indexOf(tracks, track.ID)
	if opts.Index != nil && *opts.Index >= 0 && *opts.Index < len(tracks) {
		index = *opts.Index
	}

	c.mu.Lock()
	var unshuffled []friendly.Track
	if opts.Shuffle {
		// the played track leads so Next reaches every other entry
		unshuffled = slices.Clone(tracks)
		rest := tracks
		if index >= 0 {
			tracks[0], tracks[index] = tracks[index], tracks[0]
			rest = tracks[1:]
		}
		c.rng.Shuffle(len(rest), func(i, j int) { rest[i], rest[j] = rest[j], rest[i] })
	}
	if opts.Shuffle || index < 0 {
		index = 0
	}

	audio, err := c.start(ctx, track)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	c.queue = Queue{Tracks: tracks, Unshuffled: unshuffled, Index: index}
	c.player.Shuffle = opts.Shuffle
	c.mu.Unlock()

	c.afterPlay(ctx, audio)
	return nil
}

// start plays track on the backend and installs fresh audio state. Callers hold c.mu.
func (c *Controller) start(ctx context.Context, track friendly.Track) (*Audio, error) {
	src := sourceFor(c.backendName, track.Location)
	if err := c.backend.Play(ctx, src); err != nil {
		return nil, fmt.Errorf("play %s: %w", track.Location, err)
	}
	c.audio = &Audio{
		ID:       uuid.NewString(),
		Track:    track,
		Src:      src,
		Duration: track.Duration,
		PlayedAt: c.now(),
		Backend:  c.backendName,
	}
	c.player.Paused = false
	return c.audio.clone(), nil
}

// afterPlay notifies watchers and launches the side effects of a new play.
func (c *Controller) afterPlay(ctx context.Context, audio *Audio) {
	c.notify()

	c.publish(ctx, events.OnTrackChange, *audio)
	c.publish(ctx, events.OnTrackPlay, *audio)
	c.publish(ctx, events.OnLyricsRequested, *audio)

	if c.tracks != nil {
		c.spawn(ctx, func(ctx context.Context) {
			if err := c.tracks.TouchTrack(ctx, audio.Track.ID, audio.PlayedAt); err != nil {
				c.log.Warn("record last played", zap.String("track", audio.Track.ID), zap.Error(err))
			}
		})
	}
}

// playAt plays the queue entry at index, keeping the queue.
func (c *Controller) playAt(ctx context.Context, index int) error {
	c.mu.Lock()
	if index < 0 || index >= len(c.queue.Tracks) {
		c.mu.Unlock()
		return nil
	}
	audio, err := c.start(ctx, c.queue.Tracks[index])
	if err != nil {
		c.mu.Unlock()
		return err
	}
	c.queue.Index = index
	c.mu.Unlock()

	c.afterPlay(ctx, audio)
	return nil
}

// Next advances to the following queue entry. At the end of the queue it
// wraps when repeating all, otherwise playback stops. It reports whether a
// track is now playing.
func (c *Controller) Next(ctx context.Context) (bool, error) {
	c.mu.Lock()
	next := c.queue.Index + 1
	if next >= len(c.queue.Tracks) {
		if c.player.Repeat != RepeatAll || len(c.queue.Tracks) == 0 {
			c.mu.Unlock()
			return false, c.Stop(ctx)
		}
		next = 0
	}
	c.mu.Unlock()

	return true, c.playAt(ctx, next)
}

// Previous restarts the current track once it has played a few seconds,
// otherwise moves back one entry.
func (c *Controller) Previous(ctx context.Context) error {
	c.mu.Lock()
	index := c.queue.Index
	if c.audio == nil || c.audio.CurrentTime <= restartThreshold {
		index--
		if index < 0 {
			if c.player.Repeat == RepeatAll {
				index = len(c.queue.Tracks) - 1
			} else {
				index = 0
			}
		}
	}
	c.mu.Unlock()

	return c.playAt(ctx, index)
}

// TrackEnded handles the natural end of the current track.
func (c *Controller) TrackEnded(ctx context.Context) (bool, error) {
	c.mu.Lock()
	repeatOne := c.player.Repeat == RepeatOne
	index := c.queue.Index
	c.mu.Unlock()

	if repeatOne {
		return true, c.playAt(ctx, index)
	}
	return c.Next(ctx)
}

// Stop halts playback and clears the current audio. The queue is kept.
func (c *Controller) Stop(context.Context) error {
	c.mu.Lock()
	err := c.backend.Stop()
	c.audio = nil
	c.player.Paused = false
	c.mu.Unlock()

	c.notify()
	return err
}

// SetShuffle turns shuffling on or off. Turning it on keeps the current track
// first and shuffles the rest; turning it off restores the original order.
func (c *Controller) SetShuffle(ctx context.Context, on bool) {
	c.mu.Lock()
	if on == c.player.Shuffle {
		c.mu.Unlock()
		return
	}
	c.player.Shuffle = on

	if on {
		c.queue.Unshuffled = slices.Clone(c.queue.Tracks)
		tracks := slices.Clone(c.queue.Tracks)
		if cur := c.queue.Index; cur >= 0 && cur < len(tracks) {
			tracks[0], tracks[cur] = tracks[cur], tracks[0]
			rest := tracks[1:]
			c.rng.Shuffle(len(rest), func(i, j int) { rest[i], rest[j] = rest[j], rest[i] })
			c.queue.Index = 0
		} else {
			c.rng.Shuffle(len(tracks), func(i, j int) { tracks[i], tracks[j] = tracks[j], tracks[i] })
		}
		c.queue.Tracks = tracks
	} else if c.queue.Unshuffled != nil {
		current, ok := c.queue.Current()
		c.queue.Tracks = c.queue.Unshuffled
		c.queue.Unshuffled = nil
		if ok {
			c.queue.Index = max(indexOf(c.queue.Tracks, current.ID), 0)
		}
	}
	player := c.player
	c.mu.Unlock()

	c.playerChanged(ctx, player)
}

// Pause pauses playback.
func (c *Controller) Pause(ctx context.Context) error {
	return c.setPaused(ctx, true)
}

// Resume resumes playback.
func (c *Controller) Resume(ctx context.Context) error {
	return c.setPaused(ctx, false)
}

// TogglePause flips between paused and playing.
func (c *Controller) TogglePause(ctx context.Context) error {
	c.mu.Lock()
	paused := c.player.Paused
	c.mu.Unlock()
	return c.setPaused(ctx, !paused)
}

func (c *Controller) setPaused(ctx context.Context, paused bool) error {
	c.mu.Lock()
	if c.audio == nil || c.player.Paused == paused {
		c.mu.Unlock()
		return nil
	}
	var err error
	if paused {
		err = c.backend.Pause()
	} else {
		err = c.backend.Resume()
	}
	if err != nil {
		c.mu.Unlock()
		return err
	}
	c.player.Paused = paused
	player := c.player
	c.mu.Unlock()

	c.playerChanged(ctx, player)
	return nil
}

// SetVolume sets the volume, clamped to [0, 1].
func (c *Controller) SetVolume(ctx context.Context, volume float64) error {
	volume = min(max(volume, 0), 1)
	c.mu.Lock()
	effective := volume
	if c.player.Muted {
		effective = 0
	}
	if err := c.backend.SetVolume(effective); err != nil {
		c.mu.Unlock()
		return err
	}
	c.player.Volume = volume
	player := c.player
	c.mu.Unlock()

	c.playerChanged(ctx, player)
	return nil
}

// SetMuted mutes or unmutes without losing the volume.
func (c *Controller) SetMuted(ctx context.Context, muted bool) error {
	c.mu.Lock()
	effective := c.player.Volume
	if muted {
		effective = 0
	}
	if err := c.backend.SetVolume(effective); err != nil {
		c.mu.Unlock()
		return err
	}
	c.player.Muted = muted
	player := c.player
	c.mu.Unlock()

	c.playerChanged(ctx, player)
	return nil
}

// SetSpeed sets the playback rate, clamped to [0.25, 4].
func (c *Controller) SetSpeed(ctx context.Context, speed float64) error {
	speed = min(max(speed, 0.25), 4)
	c.mu.Lock()
	if err := c.backend.SetSpeed(speed); err != nil {
		c.mu.Unlock()
		return err
	}
	c.player.Speed = speed
	player := c.player
	c.mu.Unlock()

	c.playerChanged(ctx, player)
	return nil
}

// SetRepeat sets the repeat mode.
func (c *Controller) SetRepeat(ctx context.Context, mode RepeatMode) {
	c.mu.Lock()
	c.player.Repeat = mode
	player := c.player
	c.mu.Unlock()

	c.playerChanged(ctx, player)
}

// Restore installs saved settings and a saved queue without starting
// playback. Volume and speed are clamped as their setters do.
func (c *Controller) Restore(player Player, queue Queue) error {
	player.Paused = false
	player.Volume = min(max(player.Volume, 0), 1)
	if player.Speed == 0 {
		player.Speed = 1
	}
	player.Speed = min(max(player.Speed, 0.25), 4)

	q := queue.clone()
	if len(q.Tracks) == 0 {
		q.Index = -1
	} else {
		q.Index = min(max(q.Index, 0), len(q.Tracks)-1)
	}
	if !player.Shuffle {
		q.Unshuffled = nil
	}

	c.mu.Lock()
	effective := player.Volume
	if player.Muted {
		effective = 0
	}
	err := errors.Join(c.backend.SetVolume(effective), c.backend.SetSpeed(player.Speed))
	c.player = player
	c.queue = q
	c.mu.Unlock()

	c.notify()
	return err
}

func (c *Controller) playerChanged(ctx context.Context, player Player) {
	c.notify()
	c.publish(ctx, events.OnPlayerChange, player)
}

// UpdatePosition records the backend's playback position, in seconds.
// A duration <= 0 keeps the last known one. The first update at or past half
// of a track longer than 30 seconds marks the play scrobbled and publishes
// onScrobble; later updates never publish it again for the same play.
func (c *Controller) UpdatePosition(ctx context.Context, current, duration float64) {
	c.mu.Lock()
	if c.audio == nil {
		c.mu.Unlock()
		return
	}
	c.audio.CurrentTime = current
	if duration > 0 {
		c.audio.Duration = duration
	}

	var scrobble *Scrobble
	if shouldScrobble(c.audio) {
		c.audio.Scrobbled = true
		scrobble = &Scrobble{Track: c.audio.Track, PlayedAt: c.audio.PlayedAt, Duration: c.audio.Duration}
	}
	c.mu.Unlock()

	c.notify()
	if scrobble != nil {
		c.publish(ctx, events.OnScrobble, *scrobble)
	}
}

func shouldScrobble(a *Audio) bool {
	if a.Scrobbled {
		return false
	}
	total := a.Duration
	if total <= 0 {
		total = a.Track.Duration
	}
	return total > scrobbleMinDuration && a.CurrentTime >= total/2
}

func (c *Controller) onLyricsLoaded(_ context.Context, p LyricsLoaded) error {
	c.mu.Lock()
	if c.audio == nil || c.audio.ID != p.AudioID {
		c.mu.Unlock()
		return nil
	}
	lyrics := p.Lyrics
	c.audio.Lyrics = &lyrics
	c.mu.Unlock()

	c.notify()
	return nil
}

// Audio returns a copy of the current audio, or nil when stopped.
func (c *Controller) Audio() *Audio {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.audio.clone()
}

// Player returns the player settings.
func (c *Controller) Player() Player {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.player
}

// Queue returns a copy of the queue.
func (c *Controller) Queue() Queue {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.queue.clone()
}

// Snapshot returns a consistent copy of the session.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{Audio: c.audio.clone(), Player: c.player, Queue: c.queue.clone()}
}

// Watch registers fn to receive a snapshot after every state change.
// The returned function removes it.
func (c *Controller) Watch(fn func(Snapshot)) (cancel func()) {
	c.watchMu.Lock()
	c.watchID++
	id := c.watchID
	c.watchers[id] = fn
	c.watchMu.Unlock()

	return func() {
		c.watchMu.Lock()
		delete(c.watchers, id)
		c.watchMu.Unlock()
	}
}

func (c *Controller) notify() {
	c.watchMu.Lock()
	fns := make([]func(Snapshot), 0, len(c.watchers))
	for _, fn := range c.watchers {
		fns = append(fns, fn)
	}
	c.watchMu.Unlock()

	if len(fns) == 0 {
		return
	}
	snap := c.Snapshot()
	for _, fn := range fns {
		fn(snap)
	}
}

// publish sends an event without waiting for its handlers.
func (c *Controller) publish(ctx context.Context, name string, payload any) {
	if c.events == nil {
		return
	}
	c.spawn(ctx, func(ctx context.Context) {
		c.events.Publish(ctx, name, payload)
	})
}

// spawn runs fn in the background with a context that outlives ctx's cancellation.
func (c *Controller) spawn(ctx context.Context, fn func(ctx context.Context)) {
	ctx = context.WithoutCancel(ctx)
	c.effects.Go(func() { fn(ctx) })
}

func indexOf(tracks []friendly.Track, id string) int {
	return slices.IndexFunc(tracks, func(t friendly.Track) bool { return t.ID == id })
}
