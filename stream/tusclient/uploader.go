package tusclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"regexp"
	"strconv"
	"time"

	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/docker/go-units"
)

// ErrNoMediaID is returned when every byte was acknowledged by the server
// but no media ID could be captured from any response. This is a distinct
// failure, never silently treated as success.
var ErrNoMediaID = errors.New("upload completed but no media ID was returned")

// Media IDs are 32-character lowercase hex tokens. Anything else in the
// trailing Location path segment is not trusted as an ID.
var mediaIDPattern = regexp.MustCompile(`^[0-9a-f]{32}$`)

// Uploader drives resumable chunked uploads against the configured endpoint.
// One Uploader can run many sessions; each Upload call is one session.
type Uploader struct {
	config     Config
	httpClient *http.Client
	logger     log.Logger
	stats      *Stats
}

// New creates an Uploader with the given configuration, applying defaults
// and chunk size normalization.
func New(config Config) *Uploader {
	if config.RetrySchedule == nil {
		config.RetrySchedule = DefaultRetrySchedule()
	}
	if config.SettleDelay == 0 {
		config.SettleDelay = time.Second
	}
	config.ChunkSize = NormalizeChunkSize(config.ChunkSize)

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = DefaultHTTPClient()
	}
	logger := config.Logger
	if logger == nil {
		logger = log.NewLogger()
	}

	return &Uploader{
		config:     config,
		httpClient: httpClient,
		logger:     logger,
		stats:      NewStats(),
	}
}

// Stats returns the transfer statistics.
func (u *Uploader) Stats() *Stats {
	return u.stats
}

// ChunkSize returns the normalized chunk size used by sessions.
func (u *Uploader) ChunkSize() int64 {
	return u.config.ChunkSize
}

// Upload transfers source to the remote service and returns the media ID of
// the ingested asset. Chunks are sent strictly sequentially; the next chunk
// is not sent until the previous one's offset is acknowledged. onProgress,
// when not nil, is invoked after every acknowledged chunk.
func (u *Uploader) Upload(ctx context.Context, source FileSource, opts UploadOptions, onProgress ProgressFunc) (string, error) {
	total := source.Size()
	if total <= 0 {
		return "", fmt.Errorf("upload size must be known and positive, got %d", total)
	}

	name := opts.Name
	if name == "" {
		name = source.Name()
	}
	contentType := opts.ContentType
	if contentType == "" {
		contentType = source.ContentType()
	}
	metadata := Metadata{
		"name":     name,
		"filetype": contentType,
	}
	if opts.WatermarkUID != "" {
		metadata["watermark"] = opts.WatermarkUID
	}

	location, mediaID, err := u.createSession(ctx, total, metadata)
	if err != nil {
		return "", fmt.Errorf("create upload session: %w", err)
	}

	u.logger.Debugf("Upload session for %s created at %s (size: %s, chunk size: %s)",
		name, location,
		units.HumanSizeWithPrecision(float64(total), 3),
		units.HumanSizeWithPrecision(float64(u.config.ChunkSize), 3))

	var offset int64
	for offset < total {
		size := u.config.ChunkSize
		if remaining := total - offset; remaining < size {
			size = remaining
		}

		acked, err := u.transferChunk(ctx, source, location, offset, size)
		if err != nil {
			return "", fmt.Errorf("transfer chunk at offset %d: %w", offset, err)
		}
		offset = acked

		if onProgress != nil {
			onProgress(Progress{
				BytesUploaded: offset,
				BytesTotal:    total,
				Percent:       percentOf(offset, total),
			})
		}
	}

	// Give the service a moment to register the asset before callers start
	// querying it.
	if u.config.SettleDelay > 0 {
		select {
		case <-time.After(u.config.SettleDelay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	if mediaID == "" {
		return "", ErrNoMediaID
	}

	u.logger.Debugf("Upload finished, media ID: %s", mediaID)
	return mediaID, nil
}

func (u *Uploader) createSession(ctx context.Context, total int64, metadata Metadata) (string, string, error) {
	resp, err := u.doWithRetry(ctx, "session creation", func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.config.Endpoint, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", u.config.AccessToken))
		req.Header.Set("Tus-Resumable", "1.0.0")
		req.Header.Set("Upload-Length", strconv.FormatInt(total, 10))
		if encoded := metadata.Encode(); encoded != "" {
			req.Header.Set("Upload-Metadata", encoded)
		}
		return req, nil
	})
	if err != nil {
		return "", "", err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			u.logger.Printf(err.Error())
		}
	}()

	location := resp.Header.Get("Location")
	if location == "" {
		return "", "", errors.New("no Location header in session creation response")
	}
	resolved, err := resolveLocation(u.config.Endpoint, location)
	if err != nil {
		return "", "", fmt.Errorf("resolve session location %q: %w", location, err)
	}

	mediaID := resp.Header.Get("stream-media-id")
	if mediaID == "" {
		mediaID = mediaIDFromLocation(resolved)
	}

	return resolved, mediaID, nil
}

func (u *Uploader) transferChunk(ctx context.Context, source FileSource, location string, offset, size int64) (int64, error) {
	start := time.Now()

	resp, err := u.doWithRetry(ctx, fmt.Sprintf("chunk at offset %d", offset), func() (*http.Request, error) {
		// A fresh reader per attempt: the previous attempt may have
		// consumed part of the chunk before failing.
		reader, err := source.ReadChunk(offset, size)
		if err != nil {
			return nil, fmt.Errorf("read chunk: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPatch, location, reader)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", u.config.AccessToken))
		req.Header.Set("Tus-Resumable", "1.0.0")
		req.Header.Set("Upload-Offset", strconv.FormatInt(offset, 10))
		req.Header.Set("Content-Type", "application/offset+octet-stream")
		req.ContentLength = size
		return req, nil
	})
	if err != nil {
		return 0, err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			u.logger.Printf(err.Error())
		}
	}()

	acked, err := strconv.ParseInt(resp.Header.Get("Upload-Offset"), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse Upload-Offset header: %w", err)
	}
	if acked <= offset {
		return 0, fmt.Errorf("server acknowledged offset %d, expected more than %d", acked, offset)
	}

	u.stats.Update(time.Since(start), acked-offset)
	return acked, nil
}

// doWithRetry walks the retry schedule: transport errors and 5xx responses
// are retried, 4xx responses are terminal immediately. The caller owns the
// returned response body.
func (u *Uploader) doWithRetry(ctx context.Context, what string, build func() (*http.Request, error)) (*http.Response, error) {
	schedule := u.config.RetrySchedule
	var lastErr error

	for attempt, delay := range schedule {
		if delay > 0 {
			u.logger.Debugf("Retrying %s in %s (attempt %d/%d)", what, delay, attempt+1, len(schedule))
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		req, err := build()
		if err != nil {
			return nil, err
		}

		resp, err := u.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			u.logger.Warnf("%s attempt %d failed: %v", what, attempt+1, err)
			continue
		}

		if resp.StatusCode >= 500 {
			lastErr = httpError(resp)
			u.logger.Warnf("%s attempt %d failed: %v", what, attempt+1, lastErr)
			continue
		}
		if resp.StatusCode >= 400 {
			return nil, httpError(resp)
		}

		return resp, nil
	}

	return nil, fmt.Errorf("%s: giving up after %d attempts: %w", what, len(schedule), lastErr)
}

// httpError reads the start of the response body into the error and closes it.
func httpError(resp *http.Response) error {
	body := make([]byte, 1024)
	n, _ := io.ReadAtLeast(resp.Body, body, 1)
	resp.Body.Close()
	return fmt.Errorf("HTTP %d: %s", resp.StatusCode, body[:n])
}

func resolveLocation(endpoint, location string) (string, error) {
	base, err := url.Parse(endpoint)
	if err != nil {
		return "", err
	}
	ref, err := url.Parse(location)
	if err != nil {
		return "", err
	}
	return base.ResolveReference(ref).String(), nil
}

// mediaIDFromLocation extracts the media ID from the trailing path segment
// of a session location, accepting only the fixed-length hex token shape.
func mediaIDFromLocation(location string) string {
	parsed, err := url.Parse(location)
	if err != nil {
		return ""
	}
	segment := path.Base(parsed.Path)
	if !mediaIDPattern.MatchString(segment) {
		return ""
	}
	return segment
}

func percentOf(uploaded, total int64) int {
	if total <= 0 {
		return 0
	}
	return int((uploaded*100 + total/2) / total)
}
