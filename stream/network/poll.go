package network

import (
	"context"
	"time"

	"github.com/bitrise-io/go-utils/v2/log"
)

// DownloadAPI is the client subset the poller depends on.
type DownloadAPI interface {
	EnableDownload(videoID string) (DownloadTicket, error)
	GetDownloadStatus(videoID string) (DownloadTicket, error)
}

// Poller tracks a single video's download preparation to completion.
type Poller struct {
	client   DownloadAPI
	interval time.Duration
	logger   log.Logger
}

// NewPoller creates a poller. A non-positive interval selects the 2 second
// default.
func NewPoller(client DownloadAPI, interval time.Duration, logger log.Logger) *Poller {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &Poller{
		client:   client,
		interval: interval,
		logger:   logger,
	}
}

// Watch queries the video's download ticket, requests enablement when none
// exists, then polls until the ticket is ready or errored. Every observed
// ticket is sent on the returned channel, which is closed when polling
// ends. The returned stop function cancels the watch without affecting the
// remote-side preparation job; after it returns no further updates are
// emitted.
func (p *Poller) Watch(ctx context.Context, videoID string) (<-chan DownloadTicket, func()) {
	ctx, cancel := context.WithCancel(ctx)
	updates := make(chan DownloadTicket)

	go func() {
		defer close(updates)

		ticket, err := p.client.GetDownloadStatus(videoID)
		if err != nil {
			p.emit(ctx, updates, errorTicket(err))
			return
		}

		if ticket.State == DownloadNotEnabled {
			p.logger.Debugf("No download ticket for %s, requesting enablement", videoID)
			ticket, err = p.client.EnableDownload(videoID)
			if err != nil {
				p.emit(ctx, updates, errorTicket(err))
				return
			}
		}

		for {
			if !p.emit(ctx, updates, ticket) {
				return
			}
			if ticket.State == DownloadReady || ticket.State == DownloadError {
				return
			}

			select {
			case <-ctx.Done():
				return
			case <-time.After(p.interval):
			}

			ticket, err = p.client.GetDownloadStatus(videoID)
			if err != nil {
				p.emit(ctx, updates, errorTicket(err))
				return
			}
		}
	}()

	return updates, cancel
}

func (p *Poller) emit(ctx context.Context, updates chan<- DownloadTicket, ticket DownloadTicket) bool {
	select {
	case updates <- ticket:
		return true
	case <-ctx.Done():
		return false
	}
}

func errorTicket(err error) DownloadTicket {
	return DownloadTicket{State: DownloadError, Message: err.Error()}
}
