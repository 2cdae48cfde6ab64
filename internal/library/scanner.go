package library

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/cleftly/cleftly/internal/events"
	"github.com/cleftly/cleftly/internal/store"
)

// Scan phases, in order.
const (
	PhaseDiscovering = "discovering"
	PhaseReading     = "reading"
	PhaseReconciling = "reconciling"
	PhaseCommitting  = "committing"
	PhaseDone        = "done"
)

// ScanProgress reports the progress of a library scan.
type ScanProgress struct {
	Phase       string
	Current     int
	Total       int
	CurrentFile string
	Stats       *ScanStats // only set when Phase == PhaseDone
}

// Fraction returns Current/Total, or 0 while the total is unknown.
func (p ScanProgress) Fraction() float64 {
	if p.Total <= 0 {
		if p.Phase == PhaseDone {
			return 1
		}
		return 0
	}
	return float64(p.Current) / float64(p.Total)
}

// ScanStats summarizes a completed scan.
type ScanStats struct {
	Discovered int
	Added      map[string][]string // source -> relative paths of new tracks
	Relocated  []Relocation
	Duplicates []string
	Removed    []string
	NewAlbums  int
	NewArtists int
}

// Changed reports whether the scan wrote anything.
func (s *ScanStats) Changed() bool {
	if s == nil {
		return false
	}
	n := len(s.Relocated) + len(s.Removed) + s.NewAlbums + s.NewArtists
	for _, paths := range s.Added {
		n += len(paths)
	}
	return n > 0
}

// TotalAdded counts new tracks across sources.
func (s *ScanStats) TotalAdded() int {
	n := 0
	for _, paths := range s.Added {
		n += len(paths)
	}
	return n
}

// Refresh scans sources and commits the net-new entities in one transaction.
// progress, if not nil, is closed when Refresh returns. On error nothing from
// this scan is persisted.
func (l *Library) Refresh(ctx context.Context, sources []string, progress chan<- ScanProgress) (*ScanStats, error) {
	if progress != nil {
		defer close(progress)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	stats := &ScanStats{Added: make(map[string][]string)}
	if len(sources) == 0 {
		sendProgress(ctx, progress, ScanProgress{Phase: PhaseDone, Stats: stats})
		return stats, nil
	}

	sendProgress(ctx, progress, ScanProgress{Phase: PhaseDiscovering})
	files, err := l.discoverFiles(ctx, sources, progress)
	if err != nil {
		return nil, err
	}
	stats.Discovered = len(files)

	known, err := l.known(ctx)
	if err != nil {
		return nil, &ScanIOError{Op: "load", Err: err}
	}

	locations := make(map[string]struct{}, len(known.Tracks))
	for _, t := range known.Tracks {
		locations[t.Location] = struct{}{}
	}
	var pending []File
	pendingIdx := make([]int, 0)
	for i, f := range files {
		if _, ok := locations[f.Path]; !ok {
			pending = append(pending, f)
			pendingIdx = append(pendingIdx, i)
		}
	}

	l.extractTags(ctx, pending, progress)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for j, i := range pendingIdx {
		files[i] = pending[j]
	}

	sendProgress(ctx, progress, ScanProgress{Phase: PhaseReconciling, Current: len(pending), Total: len(pending)})
	res := Reconcile(files, known, l.now(), nil)
	l.attachArt(&res)

	var stale []store.Track
	if l.pruneMissing {
		stale = staleTracks(known.Tracks, files, res.Relocated, sources)
	}

	if !res.Empty() || len(stale) > 0 {
		sendProgress(ctx, progress, ScanProgress{Phase: PhaseCommitting})
		if err := l.commit(ctx, res, stale); err != nil {
			return nil, &ScanIOError{Op: "commit", Err: err}
		}
	}

	for _, t := range res.Tracks {
		src := sourceOf(t.Location, sources)
		stats.Added[src] = append(stats.Added[src], relativePath(src, t.Location))
	}
	stats.Relocated = res.Relocated
	stats.Duplicates = res.Duplicates
	stats.NewAlbums = len(res.Albums)
	stats.NewArtists = len(res.Artists)
	for _, t := range stale {
		stats.Removed = append(stats.Removed, t.Location)
	}

	l.log.Info("scan complete",
		zap.Int("discovered", stats.Discovered),
		zap.Int("added", stats.TotalAdded()),
		zap.Int("albums", stats.NewAlbums),
		zap.Int("artists", stats.NewArtists),
		zap.Int("relocated", len(stats.Relocated)),
		zap.Int("removed", len(stats.Removed)),
		zap.Int("duplicates", len(stats.Duplicates)),
	)

	if stats.Changed() {
		l.publishUpdate(ctx)
	}

	sendProgress(ctx, progress, ScanProgress{Phase: PhaseDone, Current: len(pending), Total: len(pending), Stats: stats})
	return stats, nil
}

// attachArt resolves covers for new albums and copies them onto their new tracks.
func (l *Library) attachArt(res *Result) {
	if len(res.Albums) == 0 {
		return
	}
	byAlbum := make(map[string]int, len(res.Albums))
	for i := range res.Albums {
		a := &res.Albums[i]
		byAlbum[a.ID] = i
		art, animated, err := l.art.Resolve(res.AlbumSources[a.ID], a.ID)
		if err != nil {
			l.log.Warn("album art", zap.String("album", a.Name), zap.Error(err))
		}
		a.AlbumArt = art
		a.AnimatedAlbumArt = animated
	}
	for i := range res.Tracks {
		t := &res.Tracks[i]
		if j, ok := byAlbum[t.AlbumID]; ok {
			t.AlbumArt = res.Albums[j].AlbumArt
			t.AnimatedAlbumArt = res.Albums[j].AnimatedAlbumArt
		}
	}
}

func (l *Library) commit(ctx context.Context, res Result, stale []store.Track) error {
	return l.store.WithTx(ctx, func(tx *store.Tables) error {
		if err := tx.BulkAddArtists(ctx, res.Artists); err != nil {
			return err
		}
		if err := tx.BulkAddAlbums(ctx, res.Albums); err != nil {
			return err
		}
		if err := tx.BulkAddTracks(ctx, res.Tracks); err != nil {
			return err
		}
		for _, r := range res.Relocated {
			if err := tx.RelocateTrack(ctx, r.TrackID, r.To); err != nil {
				return err
			}
		}
		if len(stale) == 0 {
			return nil
		}
		for _, t := range stale {
			if err := tx.DeleteTrack(ctx, t.ID); err != nil {
				return err
			}
		}
		if _, err := tx.DeleteEmptyAlbums(ctx); err != nil {
			return err
		}
		_, err := tx.DeleteOrphanArtists(ctx)
		return err
	})
}

func (l *Library) publishUpdate(ctx context.Context) {
	if l.events == nil {
		return
	}
	snap, err := l.Snapshot(ctx)
	if err != nil {
		l.log.Warn("load catalog for update event", zap.Error(err))
		return
	}
	l.events.Publish(ctx, events.OnLibraryUpdate, snap)
}

// staleTracks returns known tracks under the scanned sources whose files were
// not rediscovered and were not relocated.
func staleTracks(known []store.Track, files []File, relocated []Relocation, sources []string) []store.Track {
	seen := make(map[string]struct{}, len(files))
	for _, f := range files {
		seen[f.Path] = struct{}{}
	}
	moved := make(map[string]struct{}, len(relocated))
	for _, r := range relocated {
		moved[r.TrackID] = struct{}{}
	}

	var out []store.Track
	for _, t := range known {
		if _, ok := seen[t.Location]; ok {
			continue
		}
		if _, ok := moved[t.ID]; ok {
			continue
		}
		if sourceOf(t.Location, sources) == "" {
			continue
		}
		out = append(out, t)
	}
	return out
}

// sourceOf returns the source containing path, or "".
func sourceOf(path string, sources []string) string {
	for _, src := range sources {
		src = filepath.Clean(src)
		if path == src || strings.HasPrefix(path, src+string(os.PathSeparator)) {
			return src
		}
	}
	return ""
}

func sendProgress(ctx context.Context, progress chan<- ScanProgress, p ScanProgress) {
	if progress == nil {
		return
	}
	select {
	case progress <- p:
	case <-ctx.Done():
	}
}
