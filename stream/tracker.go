package stream

import (
	"time"

	"github.com/bitrise-io/go-utils/v2/analytics"
	"github.com/bitrise-io/go-utils/v2/env"
	"github.com/bitrise-io/go-utils/v2/log"
)

// usageTracker records operation metrics for the usage statistics view.
type usageTracker interface {
	logUploadFinished(uploadTime time.Duration, sizeBytes int64, successful bool)
	logBulkRunFinished(runTime time.Duration, tally Tally)
	logSelectionFinished(operation string, tally Tally)
	wait()
}

type analyticsUsageTracker struct {
	tracker analytics.Tracker
	logger  log.Logger
}

func newUsageTracker(envRepo env.Repository, logger log.Logger) usageTracker {
	p := analytics.Properties{
		"account_id": envRepo.Get(accountIDEnvKey),
	}
	return &analyticsUsageTracker{
		tracker: analytics.NewDefaultTracker(logger, envRepo, p),
		logger:  logger,
	}
}

func (t *analyticsUsageTracker) logUploadFinished(uploadTime time.Duration, sizeBytes int64, successful bool) {
	properties := analytics.Properties{
		"upload_time_s":     uploadTime.Truncate(time.Second).Seconds(),
		"upload_size_bytes": sizeBytes,
		"successful":        successful,
	}
	t.tracker.Enqueue("vod_upload_finished", properties)
}

func (t *analyticsUsageTracker) logBulkRunFinished(runTime time.Duration, tally Tally) {
	properties := analytics.Properties{
		"run_time_s":      runTime.Truncate(time.Second).Seconds(),
		"items_total":     tally.Total,
		"items_succeeded": tally.Succeeded,
		"items_failed":    tally.Failed,
	}
	t.tracker.Enqueue("vod_bulk_run_finished", properties)
}

func (t *analyticsUsageTracker) logSelectionFinished(operation string, tally Tally) {
	properties := analytics.Properties{
		"operation":       operation,
		"items_total":     tally.Total,
		"items_succeeded": tally.Succeeded,
		"items_failed":    tally.Failed,
	}
	t.tracker.Enqueue("vod_selection_finished", properties)
}

func (t *analyticsUsageTracker) wait() {
	t.tracker.Wait()
}
