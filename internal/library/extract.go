package library

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// extractTags reads tags for files in parallel, in place. A file whose tags
// cannot be read keeps a nil Tags and is named from its path later.
// Progress is sent once per finished file.
func (l *Library) extractTags(ctx context.Context, files []File, progress chan<- ScanProgress) {
	total := len(files)
	if total == 0 {
		return
	}

	type result struct {
		index int
		err   error
	}

	workCh := make(chan int)
	resultCh := make(chan result)

	var wg sync.WaitGroup
	for range l.workers {
		wg.Go(func() {
			for i := range workCh {
				t, err := l.readTags(files[i].Path)
				if err == nil {
					// each worker owns distinct indexes
					files[i].Tags = t
				}
				resultCh <- result{index: i, err: err}
			}
		})
	}

	go func() {
		defer close(workCh)
		for i := range files {
			select {
			case workCh <- i:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	done := 0
	for r := range resultCh {
		done++
		if r.err != nil {
			l.log.Debug("tags unreadable, using path metadata",
				zap.String("path", files[r.index].Path), zap.Error(r.err))
		}
		sendProgress(ctx, progress, ScanProgress{
			Phase:       PhaseReading,
			Current:     done,
			Total:       total,
			CurrentFile: files[r.index].Path,
		})
	}
}
