// Package stream is the bulk task orchestration layer of the video library
// client: it manages a queue of heterogeneous upload items, runs them with
// bounded concurrency, and drives sequential bulk delete and
// download-preparation flows over selections of remote assets.
package stream

import (
	"net/url"
	"path"
)

// SourceKind tags an item's input.
type SourceKind string

const (
	// SourceFile is a local file uploaded over the chunked protocol.
	SourceFile SourceKind = "file"
	// SourceURL is a remote file ingested server-side via copy-from-url.
	SourceURL SourceKind = "url"
)

// Source is an item's input descriptor. Exactly one of Path/URL is set,
// matching Kind.
type Source struct {
	Kind SourceKind
	Path string
	URL  string
}

// ItemStatus is the lifecycle state of a queue item.
type ItemStatus string

const (
	// StatusIdle means the item is queued and untouched.
	StatusIdle ItemStatus = "idle"
	// StatusUploading means a driver currently owns the item.
	StatusUploading ItemStatus = "uploading"
	// StatusSuccess means the transfer completed and a media ID is known.
	StatusSuccess ItemStatus = "success"
	// StatusError is terminal for the run; the message is in Err.
	StatusError ItemStatus = "error"
)

// Progress mirrors the transfer state of one item. For URL-sourced items
// the values are synthetic (see syntheticProgress) and the byte counts are
// zero.
type Progress struct {
	BytesUploaded int64
	BytesTotal    int64
	Percent       int
}

// UploadItem is one unit of work in a bulk queue. Source and DisplayName
// are immutable after creation; the remaining fields are mutated only by
// the single driver that owns the item during a run.
type UploadItem struct {
	ID          string
	Source      Source
	DisplayName string
	Progress    *Progress
	Status      ItemStatus
	Err         string
	MediaID     string
}

// RunStatus is the orchestrator's global state.
type RunStatus string

const (
	// RunStatusIdle means no run has started.
	RunStatusIdle RunStatus = "idle"
	// RunStatusRunning means a run is in flight; the queue is frozen.
	RunStatusRunning RunStatus = "running"
	// RunStatusCompleted is terminal for the run, reached even if every
	// item failed.
	RunStatusCompleted RunStatus = "completed"
)

// Tally aggregates per-item outcomes of a run or a sequential bulk
// operation.
type Tally struct {
	Succeeded int
	Failed    int
	Total     int
}

// Observer receives orchestration updates. Implementations must not assume
// any particular UI framework; callbacks may arrive from multiple
// goroutines but never concurrently for the same item ID.
type Observer interface {
	OnProgress(itemID string, progress Progress)
	OnStatus(itemID string, status ItemStatus, errMsg string)
	OnRunDone(tally Tally)
}

// NopObserver discards all updates.
type NopObserver struct{}

// OnProgress ...
func (NopObserver) OnProgress(string, Progress) {}

// OnStatus ...
func (NopObserver) OnStatus(string, ItemStatus, string) {}

// OnRunDone ...
func (NopObserver) OnRunDone(Tally) {}

// displayNameFromURL derives an item display name from the trailing path
// segment of a URL.
func displayNameFromURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Path == "" || parsed.Path == "/" {
		return rawURL
	}
	return path.Base(parsed.Path)
}
