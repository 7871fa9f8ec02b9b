package stream

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bitrise-io/go-utils/retry"
	"github.com/bitrise-io/go-utils/v2/env"
	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/docker/go-units"

	"github.com/streamdesk/go-streamkit/stream/network"
	"github.com/streamdesk/go-streamkit/stream/tusclient"
)

const defaultConcurrencyLimit = 3

// UploadSession drives one local file's chunked upload.
// *tusclient.Uploader satisfies it.
type UploadSession interface {
	Upload(ctx context.Context, source tusclient.FileSource, opts tusclient.UploadOptions, onProgress tusclient.ProgressFunc) (string, error)
}

// RunnerConfig tunes a bulk run.
type RunnerConfig struct {
	// ConcurrencyLimit caps how many items of a batch are in flight at
	// once. Batches are awaited as a unit. Default: 3.
	ConcurrencyLimit int

	// InterItemDelay is the pause between items of a sequential selection
	// operation. Default: 400ms.
	InterItemDelay time.Duration

	// PollInterval is the download readiness polling interval.
	// Default: the poller's own 2s default.
	PollInterval time.Duration

	// WatermarkUID, when set, is applied to every upload of the run.
	WatermarkUID string
}

// Runner executes a queue of upload items and sequential bulk operations
// over asset selections. One Runner supports one run at a time.
type Runner struct {
	config   RunnerConfig
	api      network.VideoAPI
	session  UploadSession
	queue    *Queue
	observer Observer
	envRepo  env.Repository
	logger   log.Logger

	mu     sync.Mutex
	status RunStatus

	selTally selectionTally

	// newTracker is replaceable in tests.
	newTracker func() usageTracker
}

// NewRunner creates a bulk runner over the given queue. A nil observer is
// replaced with NopObserver.
func NewRunner(envRepo env.Repository, logger log.Logger, api network.VideoAPI, session UploadSession, queue *Queue, observer Observer, config RunnerConfig) *Runner {
	if config.ConcurrencyLimit <= 0 {
		config.ConcurrencyLimit = defaultConcurrencyLimit
	}
	if config.InterItemDelay <= 0 {
		config.InterItemDelay = 400 * time.Millisecond
	}
	if observer == nil {
		observer = NopObserver{}
	}
	r := &Runner{
		config:   config,
		api:      api,
		session:  session,
		queue:    queue,
		observer: observer,
		envRepo:  envRepo,
		logger:   logger,
		status:   RunStatusIdle,
	}
	r.newTracker = func() usageTracker {
		return newUsageTracker(r.envRepo, r.logger)
	}
	return r
}

// Status returns the orchestrator's global run status.
func (r *Runner) Status() RunStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// Queue returns the runner's queue.
func (r *Runner) Queue() *Queue {
	return r.queue
}

// Run executes every queued item in fixed batches of ConcurrencyLimit.
// Items of a batch run concurrently; the next batch does not start until
// every item of the previous one reached a terminal state. One item's
// failure never halts its siblings; the run always drains the whole queue
// and reports the final tally. The global status reaches completed even if
// every item failed.
func (r *Runner) Run(ctx context.Context) (Tally, error) {
	r.mu.Lock()
	if r.status == RunStatusRunning {
		r.mu.Unlock()
		return Tally{}, ErrRunInProgress
	}
	r.status = RunStatusRunning
	r.mu.Unlock()

	items := r.queue.freeze()
	defer r.queue.unfreeze()

	tracker := r.newTracker()
	defer tracker.wait()

	start := time.Now()
	r.logger.Infof("Uploading %d items in batches of %d...", len(items), r.config.ConcurrencyLimit)

	limit := r.config.ConcurrencyLimit
	for batchStart := 0; batchStart < len(items); batchStart += limit {
		batchEnd := batchStart + limit
		if batchEnd > len(items) {
			batchEnd = len(items)
		}
		batch := items[batchStart:batchEnd]

		var wg sync.WaitGroup
		for _, item := range batch {
			wg.Add(1)
			go func(item *UploadItem) {
				defer wg.Done()
				r.runItem(ctx, item, tracker)
			}(item)
		}
		// Hard barrier: the next batch must not dispatch before every item
		// of this one is terminal.
		wg.Wait()
	}

	tally := Tally{Total: len(items)}
	for _, item := range items {
		if item.Status == StatusSuccess {
			tally.Succeeded++
		} else {
			tally.Failed++
		}
	}

	runTime := time.Since(start).Round(time.Second)
	tracker.logBulkRunFinished(runTime, tally)
	r.logger.Donef("Bulk run finished in %s: %d succeeded, %d failed", runTime, tally.Succeeded, tally.Failed)
	r.observer.OnRunDone(tally)

	r.mu.Lock()
	r.status = RunStatusCompleted
	r.mu.Unlock()

	return tally, nil
}

// runItem drives one item to a terminal state. It never lets an error
// escape: failures are recorded on the item and reported via the observer.
func (r *Runner) runItem(ctx context.Context, item *UploadItem, tracker usageTracker) {
	item.Status = StatusUploading
	r.observer.OnStatus(item.ID, StatusUploading, "")

	start := time.Now()
	var mediaID string
	var size int64
	var err error

	switch item.Source.Kind {
	case SourceFile:
		mediaID, size, err = r.uploadFile(ctx, item)
	case SourceURL:
		mediaID, err = r.copyFromURL(ctx, item)
	default:
		err = fmt.Errorf("unknown source kind %q", item.Source.Kind)
	}

	tracker.logUploadFinished(time.Since(start), size, err == nil)

	if err != nil {
		item.Status = StatusError
		item.Err = err.Error()
		r.logger.Errorf("%s failed: %s", item.DisplayName, err)
		r.observer.OnStatus(item.ID, StatusError, item.Err)
		return
	}

	item.MediaID = mediaID
	r.verify(mediaID, item.DisplayName)

	item.Status = StatusSuccess
	r.logger.Donef("%s uploaded, media ID: %s", item.DisplayName, mediaID)
	r.observer.OnStatus(item.ID, StatusSuccess, "")
}

func (r *Runner) uploadFile(ctx context.Context, item *UploadItem) (string, int64, error) {
	source, err := tusclient.NewFileChunkSource(item.Source.Path)
	if err != nil {
		return "", 0, err
	}
	defer func() {
		if err := source.Close(); err != nil {
			r.logger.Errorf("failed to close file: %s", err)
		}
	}()

	r.logger.Debugf("Uploading %s (%s)", item.DisplayName, units.HumanSizeWithPrecision(float64(source.Size()), 3))

	opts := tusclient.UploadOptions{
		Name:         item.DisplayName,
		WatermarkUID: r.config.WatermarkUID,
	}
	mediaID, err := r.session.Upload(ctx, source, opts, func(p tusclient.Progress) {
		progress := Progress{
			BytesUploaded: p.BytesUploaded,
			BytesTotal:    p.BytesTotal,
			Percent:       p.Percent,
		}
		item.Progress = &progress
		r.observer.OnProgress(item.ID, progress)
	})
	return mediaID, source.Size(), err
}

func (r *Runner) copyFromURL(ctx context.Context, item *UploadItem) (string, error) {
	// The copy endpoint reports no real transfer progress, so a synthetic
	// generator drives the item's progress while the call is in flight.
	stopSynthetic := startSyntheticProgress(ctx, item, r.observer)
	defer stopSynthetic()

	request := network.CopyFromURLRequest{
		URL:  item.Source.URL,
		Meta: map[string]string{"name": item.DisplayName},
	}
	if r.config.WatermarkUID != "" {
		request.Watermark = &network.WatermarkRef{UID: r.config.WatermarkUID}
	}

	video, err := r.api.CopyFromURL(request)
	if err != nil {
		return "", err
	}
	return video.UID, nil
}

// verify re-fetches the asset detail after a successful transfer. A failure
// here is a soft warning, never a downgrade of the upload result: the bytes
// are already acknowledged remote-side.
func (r *Runner) verify(mediaID, displayName string) {
	err := retry.Times(2).Wait(time.Second).Try(func(attempt uint) error {
		_, err := r.api.GetVideo(mediaID)
		return err
	})
	if err != nil {
		r.logger.Warnf("Could not verify %s after upload (media ID %s): %s", displayName, mediaID, err)
	}
}
