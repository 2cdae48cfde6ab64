// Package library keeps the catalog in sync with the music directories.
//
// A refresh discovers audio files, reads tags for the ones the catalog does
// not know yet, reconciles them into artist/album/track rows and commits the
// whole batch in one transaction.
package library

import (
	"context"
	"runtime"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cleftly/cleftly/internal/events"
	"github.com/cleftly/cleftly/internal/store"
	"github.com/cleftly/cleftly/internal/tags"
)

const defaultWorkers = 8

// Update is the onLibraryUpdate payload: the full catalog after a change.
type Update struct {
	Tracks  []store.Track
	Albums  []store.Album
	Artists []store.Artist
}

// Options configure a Library.
type Options struct {
	// Workers is the number of parallel tag readers. Zero means 8.
	Workers int
	// PruneMissing deletes tracks whose files disappeared from a scanned source.
	PruneMissing bool
	// Art extracts embedded covers. Nil limits art to folder images.
	Art *ArtCache
	// Events receives onLibraryUpdate. Optional.
	Events events.Publisher
	Log    *zap.Logger
}

// Library reconciles music directories against the store.
type Library struct {
	store        *store.Store
	events       events.Publisher
	art          *ArtCache
	log          *zap.Logger
	workers      int
	pruneMissing bool
	readTags     func(path string) (*tags.Tag, error)
	now          func() time.Time

	// refreshes run one at a time
	mu sync.Mutex
}

// New creates a Library over s.
func New(s *store.Store, opts Options) *Library {
	workers := opts.Workers
	if workers <= 0 {
		workers = min(defaultWorkers, max(runtime.NumCPU(), 1))
	}
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Library{
		store:        s,
		events:       opts.Events,
		art:          opts.Art,
		log:          log.Named("library"),
		workers:      workers,
		pruneMissing: opts.PruneMissing,
		readTags:     tags.Read,
		now:          time.Now,
	}
}

// Snapshot returns the whole catalog.
func (l *Library) Snapshot(ctx context.Context) (Update, error) {
	var (
		u   Update
		err error
	)
	if u.Tracks, err = l.store.Tracks(ctx); err != nil {
		return Update{}, err
	}
	if u.Albums, err = l.store.Albums(ctx); err != nil {
		return Update{}, err
	}
	if u.Artists, err = l.store.Artists(ctx); err != nil {
		return Update{}, err
	}
	return u, nil
}

func (l *Library) known(ctx context.Context) (Known, error) {
	snap, err := l.Snapshot(ctx)
	if err != nil {
		return Known{}, err
	}
	k := Known{
		Tracks:  snap.Tracks,
		Artists: make(map[string]store.Artist, len(snap.Artists)),
		Albums:  make(map[string]store.Album, len(snap.Albums)),
	}
	for _, a := range snap.Artists {
		k.Artists[a.ID] = a
	}
	for _, a := range snap.Albums {
		k.Albums[a.ID] = a
	}
	return k, nil
}
