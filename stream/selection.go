package stream

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/streamdesk/go-streamkit/stream/network"
)

// SelectionState is the per-asset status track of a sequential bulk
// operation.
type SelectionState string

const (
	// SelectionDeleting means the asset's delete request is in flight.
	SelectionDeleting SelectionState = "deleting"
	// SelectionEnabling means download enablement was requested.
	SelectionEnabling SelectionState = "enabling"
	// SelectionInProgress means download preparation is running.
	SelectionInProgress SelectionState = "inprogress"
	// SelectionDeleted is terminal for a delete.
	SelectionDeleted SelectionState = "deleted"
	// SelectionReady is terminal for a download preparation; the message
	// carries the final URL.
	SelectionReady SelectionState = "ready"
	// SelectionError is terminal; the message carries the cause.
	SelectionError SelectionState = "error"
)

// SelectionObserver receives per-asset updates during a sequential bulk
// operation. May be nil.
type SelectionObserver func(videoID string, state SelectionState, message string)

type selectionTally struct {
	succeeded int64
	failed    int64
	total     int64
}

func (t *selectionTally) reset(total int) {
	atomic.StoreInt64(&t.succeeded, 0)
	atomic.StoreInt64(&t.failed, 0)
	atomic.StoreInt64(&t.total, int64(total))
}

// SelectionTally returns the aggregate counts of the current or last
// sequential bulk operation. Safe to call while the operation runs.
func (r *Runner) SelectionTally() Tally {
	return Tally{
		Succeeded: int(atomic.LoadInt64(&r.selTally.succeeded)),
		Failed:    int(atomic.LoadInt64(&r.selTally.failed)),
		Total:     int(atomic.LoadInt64(&r.selTally.total)),
	}
}

// DeleteSelection deletes the selected assets strictly one at a time with a
// fixed inter-item delay. One asset's failure never stops the rest; every
// selected ID is attempted and the final tally reported.
func (r *Runner) DeleteSelection(ctx context.Context, videoIDs []string, observer SelectionObserver) Tally {
	if observer == nil {
		observer = func(string, SelectionState, string) {}
	}
	r.selTally.reset(len(videoIDs))

	tracker := r.newTracker()
	defer tracker.wait()

	for i, videoID := range videoIDs {
		if i > 0 && !r.interItemPause(ctx) {
			break
		}

		observer(videoID, SelectionDeleting, "")
		if err := r.api.DeleteVideo(videoID); err != nil {
			atomic.AddInt64(&r.selTally.failed, 1)
			r.logger.Errorf("Failed to delete %s: %s", videoID, err)
			observer(videoID, SelectionError, err.Error())
			continue
		}

		atomic.AddInt64(&r.selTally.succeeded, 1)
		r.logger.Debugf("Deleted %s", videoID)
		observer(videoID, SelectionDeleted, "")
	}

	tally := r.SelectionTally()
	tracker.logSelectionFinished("delete", tally)
	r.logger.Donef("Bulk delete finished: %d deleted, %d failed of %d", tally.Succeeded, tally.Failed, tally.Total)
	return tally
}

// PrepareDownloads enables and tracks download preparation for the selected
// assets strictly one at a time, running one readiness poller per asset.
// filenameHint, when non-empty, is applied to every ready URL. Failures are
// independent per asset.
func (r *Runner) PrepareDownloads(ctx context.Context, videoIDs []string, filenameHint string, observer SelectionObserver) Tally {
	if observer == nil {
		observer = func(string, SelectionState, string) {}
	}
	r.selTally.reset(len(videoIDs))

	tracker := r.newTracker()
	defer tracker.wait()

	poller := network.NewPoller(r.api, r.config.PollInterval, r.logger)

	for i, videoID := range videoIDs {
		if i > 0 && !r.interItemPause(ctx) {
			break
		}

		observer(videoID, SelectionEnabling, "")

		updates, stop := poller.Watch(ctx, videoID)
		var last network.DownloadTicket
		for ticket := range updates {
			last = ticket
			if ticket.State == network.DownloadInProgress {
				observer(videoID, SelectionInProgress, ticket.Message)
			}
		}
		stop()

		if last.State == network.DownloadReady {
			atomic.AddInt64(&r.selTally.succeeded, 1)
			url := network.ReadyDownloadURL(last, filenameHint)
			r.logger.Debugf("Download ready for %s: %s", videoID, url)
			observer(videoID, SelectionReady, url)
		} else {
			atomic.AddInt64(&r.selTally.failed, 1)
			r.logger.Errorf("Download preparation failed for %s: %s", videoID, last.Message)
			observer(videoID, SelectionError, last.Message)
		}
	}

	tally := r.SelectionTally()
	tracker.logSelectionFinished("prepare_downloads", tally)
	r.logger.Donef("Bulk download preparation finished: %d ready, %d failed of %d", tally.Succeeded, tally.Failed, tally.Total)
	return tally
}

// interItemPause applies the fixed delay between sequential items.
// Returns false when the context ended during the pause.
func (r *Runner) interItemPause(ctx context.Context) bool {
	select {
	case <-time.After(r.config.InterItemDelay):
		return true
	case <-ctx.Done():
		return false
	}
}
