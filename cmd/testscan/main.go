// Test program that scans a directory into a throwaway database and prints
// what a library scan would find.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/cleftly/cleftly/internal/events"
	"github.com/cleftly/cleftly/internal/friendly"
	"github.com/cleftly/cleftly/internal/library"
	"github.com/cleftly/cleftly/internal/store"
	"github.com/cleftly/cleftly/internal/ui/scanprogress"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatalf("usage: %s <music dir>...", filepath.Base(os.Args[0]))
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck // best effort on exit

	tmp, err := os.MkdirTemp("", "cleftly-testscan-")
	if err != nil {
		log.Fatalf("temp dir: %v", err)
	}
	defer os.RemoveAll(tmp)

	s, err := store.Open(filepath.Join(tmp, "library.db"))
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer s.Close()

	bus := events.NewBus(logger)
	events.On(bus, events.OnLibraryUpdate, func(_ context.Context, u library.Update) error {
		logger.Info("library updated",
			zap.Int("tracks", len(u.Tracks)),
			zap.Int("albums", len(u.Albums)),
			zap.Int("artists", len(u.Artists)))
		return nil
	})

	lib := library.New(s, library.Options{
		Art:    library.NewArtCache(filepath.Join(tmp, "art")),
		Events: bus,
		Log:    logger,
	})

	ctx := context.Background()
	start := time.Now()
	stats, err := lib.Refresh(ctx, os.Args[1:], nil)
	if err != nil {
		log.Fatalf("scan: %v", err)
	}
	log.Printf("Scanned in %s", time.Since(start).Round(time.Millisecond))
	fmt.Println(scanprogress.Report(stats, 10, 100))

	// Print the first albums the way a client would see them
	albums, err := s.Albums(ctx)
	if err != nil {
		log.Fatalf("albums: %v", err)
	}
	resolver := friendly.NewResolver(s)
	for i, al := range albums {
		if i >= 5 {
			log.Printf("... and %d more albums", len(albums)-5)
			break
		}
		fa, err := resolver.Album(ctx, al)
		if err != nil {
			log.Printf("  %s: %v", al.Name, err)
			continue
		}
		log.Printf("  %s - %s (%d tracks, art: %q)", fa.Artist.Name, fa.Name, len(fa.Tracks), fa.AlbumArt)
	}
}
