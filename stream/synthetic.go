package stream

import (
	"context"
	"sync"
	"time"
)

const (
	syntheticTick = 500 * time.Millisecond
	syntheticStep = 5
	// syntheticCap keeps fake progress visibly short of done until the real
	// completion signal arrives.
	syntheticCap = 95
)

// startSyntheticProgress emits timer-driven fake progress for a URL-sourced
// item while its server-side copy is in flight. The values are explicitly
// synthetic: byte counts stay zero and the percentage is capped below 100.
// The returned stop function halts the generator and waits for it to exit,
// so the caller regains exclusive ownership of the item.
func startSyntheticProgress(ctx context.Context, item *UploadItem, observer Observer) func() {
	stop := make(chan struct{})
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()

		ticker := time.NewTicker(syntheticTick)
		defer ticker.Stop()

		percent := 0
		for {
			select {
			case <-stop:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				if percent >= syntheticCap {
					continue
				}
				percent += syntheticStep
				progress := Progress{Percent: percent}
				item.Progress = &progress
				observer.OnProgress(item.ID, progress)
			}
		}
	}()

	return func() {
		close(stop)
		wg.Wait()
	}
}
