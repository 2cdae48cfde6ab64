package app

import (
	"context"
	"errors"
	"slices"

	"github.com/cleftly/cleftly/internal/friendly"
	"github.com/cleftly/cleftly/internal/session"
	"github.com/cleftly/cleftly/internal/store"
)

// sessionKey is the kv entry holding the last session.
const sessionKey = "session"

// savedSession is the persisted session. Tracks are kept by id and resolved
// again on restore, so edits to the catalog in between are picked up.
type savedSession struct {
	Player     session.Player `json:"player"`
	Tracks     []string       `json:"tracks"`
	Unshuffled []string       `json:"unshuffled,omitempty"`
	Current    string         `json:"current,omitempty"`
	Index      int            `json:"index"`
}

func (a *App) saveSession(ctx context.Context) error {
	snap := a.Session.Snapshot()
	saved := savedSession{
		Player:     snap.Player,
		Tracks:     trackIDs(snap.Queue.Tracks),
		Unshuffled: trackIDs(snap.Queue.Unshuffled),
		Index:      snap.Queue.Index,
	}
	if cur, ok := snap.Queue.Current(); ok {
		saved.Current = cur.ID
	}
	return a.Store.SetKV(ctx, sessionKey, saved)
}

// restoreSession reinstalls the saved settings and queue. Tracks that left
// the catalog are dropped; the current entry follows its track.
func (a *App) restoreSession(ctx context.Context) error {
	var saved savedSession
	err := a.Store.GetKV(ctx, sessionKey, &saved)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	tracks, err := a.resolveIDs(ctx, saved.Tracks)
	if err != nil {
		return err
	}
	unshuffled, err := a.resolveIDs(ctx, saved.Unshuffled)
	if err != nil {
		return err
	}

	index := saved.Index
	if saved.Current != "" {
		if i := slices.IndexFunc(tracks, func(t friendly.Track) bool { return t.ID == saved.Current }); i >= 0 {
			index = i
		}
	}
	return a.Session.Restore(saved.Player, session.Queue{
		Tracks:     tracks,
		Unshuffled: unshuffled,
		Index:      index,
	})
}

// resolveIDs resolves ids in order, skipping the ones no longer stored.
func (a *App) resolveIDs(ctx context.Context, ids []string) ([]friendly.Track, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	byID, err := a.Store.TracksByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]friendly.Track, 0, len(ids))
	for _, id := range ids {
		t, ok := byID[id]
		if !ok {
			continue
		}
		ft, err := a.Resolver.Track(ctx, t)
		if err != nil {
			return nil, err
		}
		out = append(out, ft)
	}
	return out, nil
}

func trackIDs(tracks []friendly.Track) []string {
	if len(tracks) == 0 {
		return nil
	}
	ids := make([]string, len(tracks))
	for i, t := range tracks {
		ids[i] = t.ID
	}
	return ids
}
