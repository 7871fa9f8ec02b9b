package network

import (
	"context"
	"fmt"
	"net/http"
	"regexp"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/melbahja/got"
)

type downloadResult struct {
	Default struct {
		Status          string  `json:"status"`
		URL             string  `json:"url"`
		PercentComplete float64 `json:"percentComplete"`
	} `json:"default"`
}

// EnableDownload asks the service to prepare a downloadable artifact for
// the video. The returned ticket is typically inprogress, or already ready
// for small assets.
func (c Client) EnableDownload(videoID string) (DownloadTicket, error) {
	req, err := retryablehttp.NewRequest(http.MethodPost, c.streamURL(videoID, "downloads"), nil)
	if err != nil {
		return DownloadTicket{}, err
	}

	var result downloadResult
	if err := c.do(req, &result); err != nil {
		return DownloadTicket{}, err
	}
	return normalizeTicket(result)
}

// GetDownloadStatus returns the video's current download ticket. A 404 from
// the download sub-resource means no ticket exists yet and is reported as a
// not_enabled ticket, not as an error.
func (c Client) GetDownloadStatus(videoID string) (DownloadTicket, error) {
	var result downloadResult
	err := c.getJSON(c.streamURL(videoID, "downloads"), &result)
	if err != nil {
		if IsNotFound(err) {
			return DownloadTicket{State: DownloadNotEnabled}, nil
		}
		return DownloadTicket{}, err
	}
	return normalizeTicket(result)
}

// normalizeTicket converts the wire shape into the tagged DownloadTicket
// before it reaches any caller.
func normalizeTicket(result downloadResult) (DownloadTicket, error) {
	ticket := DownloadTicket{
		PercentComplete: int(result.Default.PercentComplete),
		URL:             result.Default.URL,
	}

	switch result.Default.Status {
	case "inprogress":
		ticket.State = DownloadInProgress
		ticket.Message = fmt.Sprintf("preparing download: %d%%", ticket.PercentComplete)
	case "ready":
		ticket.State = DownloadReady
		ticket.PercentComplete = 100
		ticket.Message = "download ready"
	case "error":
		ticket.State = DownloadError
		ticket.Message = "download preparation failed"
	default:
		return DownloadTicket{}, fmt.Errorf("unexpected download status %q", result.Default.Status)
	}

	return ticket, nil
}

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// ReadyDownloadURL returns the final download URL for a ready ticket,
// optionally suffixed with a sanitized filename hint used by the service
// for content disposition.
func ReadyDownloadURL(ticket DownloadTicket, filenameHint string) string {
	if filenameHint == "" {
		return ticket.URL
	}
	safe := unsafeFilenameChars.ReplaceAllString(filenameHint, "")
	if safe == "" {
		return ticket.URL
	}
	return fmt.Sprintf("%s?filename=%s", ticket.URL, safe)
}

// SaveToFile downloads a ready artifact to dest.
func SaveToFile(ctx context.Context, client *http.Client, url, dest string) error {
	downloader := got.New()
	downloader.Client = client

	return downloader.Do(got.NewDownload(ctx, url, dest))
}
