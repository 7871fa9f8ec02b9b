package stream

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/google/uuid"
)

// ErrRunInProgress is returned for queue mutations attempted while a run is
// in flight.
var ErrRunInProgress = errors.New("queue cannot be modified while a run is in progress")

// Queue holds the items of the next bulk run. Mutations are local-state
// only (no network effect) and are rejected while the queue is frozen by a
// running orchestrator.
type Queue struct {
	mu     sync.Mutex
	items  []*UploadItem
	frozen bool
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{}
}

// AddFile enqueues a local file.
func (q *Queue) AddFile(path string) (*UploadItem, error) {
	item := &UploadItem{
		ID:          uuid.New().String(),
		Source:      Source{Kind: SourceFile, Path: path},
		DisplayName: filepath.Base(path),
		Status:      StatusIdle,
	}
	if err := q.append(item); err != nil {
		return nil, err
	}
	return item, nil
}

// AddURL enqueues a remote file for server-side ingestion.
func (q *Queue) AddURL(rawURL string) (*UploadItem, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("invalid source URL: %s", rawURL)
	}

	item := &UploadItem{
		ID:          uuid.New().String(),
		Source:      Source{Kind: SourceURL, URL: rawURL},
		DisplayName: displayNameFromURL(rawURL),
		Status:      StatusIdle,
	}
	if err := q.append(item); err != nil {
		return nil, err
	}
	return item, nil
}

// AddGlob enqueues every regular file matching the doublestar pattern.
func (q *Queue) AddGlob(pattern string) ([]*UploadItem, error) {
	matches, err := doublestar.FilepathGlob(pattern)
	if err != nil {
		return nil, fmt.Errorf("expand pattern %s: %w", pattern, err)
	}

	var items []*UploadItem
	for _, match := range matches {
		info, err := os.Stat(match)
		if err != nil || info.IsDir() {
			continue
		}
		item, err := q.AddFile(match)
		if err != nil {
			return items, err
		}
		items = append(items, item)
	}
	return items, nil
}

// Remove drops a single item by ID.
func (q *Queue) Remove(id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.frozen {
		return ErrRunInProgress
	}

	for i, item := range q.items {
		if item.ID == id {
			q.items = append(q.items[:i], q.items[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("no queued item with ID %s", id)
}

// Clear drops all items.
func (q *Queue) Clear() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.frozen {
		return ErrRunInProgress
	}
	q.items = nil
	return nil
}

// Items returns a snapshot copy of the queue.
func (q *Queue) Items() []UploadItem {
	q.mu.Lock()
	defer q.mu.Unlock()

	items := make([]UploadItem, 0, len(q.items))
	for _, item := range q.items {
		items = append(items, *item)
	}
	return items
}

// Len returns the number of queued items.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Requeue resets a terminal item back to idle so a fresh run picks it up
// again.
func (q *Queue) Requeue(id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.frozen {
		return ErrRunInProgress
	}

	for _, item := range q.items {
		if item.ID == id {
			item.Status = StatusIdle
			item.Err = ""
			item.Progress = nil
			item.MediaID = ""
			return nil
		}
	}
	return fmt.Errorf("no queued item with ID %s", id)
}

func (q *Queue) append(item *UploadItem) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.frozen {
		return ErrRunInProgress
	}
	q.items = append(q.items, item)
	return nil
}

// freeze blocks mutations for the duration of a run and returns the item
// pointers the run owns.
func (q *Queue) freeze() []*UploadItem {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.frozen = true

	snapshot := make([]*UploadItem, len(q.items))
	copy(snapshot, q.items)
	return snapshot
}

func (q *Queue) unfreeze() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.frozen = false
}
