package tusclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testMediaID = "0123456789abcdef0123456789abcdef"

// tusTestServer fakes the chunked upload endpoint. It tracks the order of
// received chunk offsets so tests can assert the sequential offset
// invariant.
type tusTestServer struct {
	mu             sync.Mutex
	sendIDHeader   bool
	locationSuffix string
	failRemaining  int

	offset       int64
	total        int64
	patchOffsets []int64
	requests     int
}

func (s *tusTestServer) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.requests++

		if s.failRemaining > 0 {
			s.failRemaining--
			w.WriteHeader(http.StatusBadGateway)
			return
		}

		switch r.Method {
		case http.MethodPost:
			s.total, _ = strconv.ParseInt(r.Header.Get("Upload-Length"), 10, 64)
			if s.sendIDHeader {
				w.Header().Set("stream-media-id", testMediaID)
			}
			w.Header().Set("Location", "/files/"+s.locationSuffix)
			w.WriteHeader(http.StatusCreated)

		case http.MethodPatch:
			offset, _ := strconv.ParseInt(r.Header.Get("Upload-Offset"), 10, 64)
			s.patchOffsets = append(s.patchOffsets, offset)

			body, _ := io.ReadAll(r.Body)
			s.offset = offset + int64(len(body))
			w.Header().Set("Upload-Offset", strconv.FormatInt(s.offset, 10))
			w.WriteHeader(http.StatusNoContent)

		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}
}

func newTestUploader(endpoint string, failures int) (*Uploader, *tusTestServer, *httptest.Server) {
	backend := &tusTestServer{
		sendIDHeader:   true,
		locationSuffix: testMediaID,
		failRemaining:  failures,
	}
	server := httptest.NewServer(backend.handler())

	uploader := New(Config{
		Endpoint:    server.URL + endpoint,
		AccessToken: "test-token",
		ChunkSize:   MinChunkSize,
		// All-zero schedule keeps the retry semantics but not the waiting.
		RetrySchedule: make([]time.Duration, 5),
		SettleDelay:   -1,
	})
	return uploader, backend, server
}

func Test_Upload_sequentialChunks(t *testing.T) {
	uploader, backend, server := newTestUploader("/upload", 0)
	defer server.Close()

	data := make([]byte, 2*MinChunkSize+1234)
	source := NewBytesSource("video.mp4", "video/mp4", data)

	var progress []Progress
	mediaID, err := uploader.Upload(context.Background(), source, UploadOptions{}, func(p Progress) {
		progress = append(progress, p)
	})

	require.NoError(t, err)
	assert.Equal(t, testMediaID, mediaID)

	// Chunk k+1 must never be sent before chunk k is acknowledged: the
	// observed offsets are exactly the ordered chunk boundaries.
	assert.Equal(t, []int64{0, MinChunkSize, 2 * MinChunkSize}, backend.patchOffsets)
	assert.Equal(t, source.Size(), backend.offset)

	require.Len(t, progress, 3)
	for i := 1; i < len(progress); i++ {
		assert.Greater(t, progress[i].BytesUploaded, progress[i-1].BytesUploaded)
	}
	assert.Equal(t, 100, progress[len(progress)-1].Percent)
	assert.Equal(t, source.Size(), progress[len(progress)-1].BytesUploaded)
}

func Test_Upload_mediaIDFromLocation(t *testing.T) {
	uploader, backend, server := newTestUploader("/upload", 0)
	defer server.Close()
	backend.sendIDHeader = false

	source := NewBytesSource("video.mp4", "video/mp4", []byte("tiny payload"))

	mediaID, err := uploader.Upload(context.Background(), source, UploadOptions{}, nil)

	require.NoError(t, err)
	assert.Equal(t, testMediaID, mediaID)
}

func Test_Upload_noMediaID(t *testing.T) {
	uploader, backend, server := newTestUploader("/upload", 0)
	defer server.Close()
	backend.sendIDHeader = false
	backend.locationSuffix = "not-a-hex-token"

	source := NewBytesSource("video.mp4", "video/mp4", []byte("tiny payload"))

	_, err := uploader.Upload(context.Background(), source, UploadOptions{}, nil)

	assert.ErrorIs(t, err, ErrNoMediaID)
}

func Test_Upload_retriesTransientFailures(t *testing.T) {
	// 4 transient failures fit into the 5-slot schedule.
	uploader, backend, server := newTestUploader("/upload", 4)
	defer server.Close()

	source := NewBytesSource("video.mp4", "video/mp4", []byte("tiny payload"))

	mediaID, err := uploader.Upload(context.Background(), source, UploadOptions{}, nil)

	require.NoError(t, err)
	assert.Equal(t, testMediaID, mediaID)
	assert.Equal(t, []int64{0}, backend.patchOffsets)
}

func Test_Upload_exhaustsRetrySchedule(t *testing.T) {
	uploader, _, server := newTestUploader("/upload", 6)
	defer server.Close()

	source := NewBytesSource("video.mp4", "video/mp4", []byte("tiny payload"))

	_, err := uploader.Upload(context.Background(), source, UploadOptions{}, nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "giving up after 5 attempts")
}

func Test_Upload_rejectionIsNotRetried(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `bad metadata`)
	}))
	defer server.Close()

	uploader := New(Config{
		Endpoint:      server.URL + "/upload",
		AccessToken:   "test-token",
		RetrySchedule: make([]time.Duration, 5),
		SettleDelay:   -1,
	})
	source := NewBytesSource("video.mp4", "video/mp4", []byte("tiny payload"))

	_, err := uploader.Upload(context.Background(), source, UploadOptions{}, nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 400")
	assert.Equal(t, 1, requests)
}

func Test_Upload_headerSegregation(t *testing.T) {
	var authHeader, metadataHeader string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			authHeader = r.Header.Get("Authorization")
			metadataHeader = r.Header.Get("Upload-Metadata")
			w.Header().Set("stream-media-id", testMediaID)
			w.Header().Set("Location", "/files/"+testMediaID)
			w.WriteHeader(http.StatusCreated)
			return
		}
		body, _ := io.ReadAll(r.Body)
		offset, _ := strconv.ParseInt(r.Header.Get("Upload-Offset"), 10, 64)
		w.Header().Set("Upload-Offset", strconv.FormatInt(offset+int64(len(body)), 10))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	uploader := New(Config{
		Endpoint:      server.URL + "/upload",
		AccessToken:   "secret-token",
		RetrySchedule: make([]time.Duration, 1),
		SettleDelay:   -1,
	})
	source := NewBytesSource("video.mp4", "video/mp4", []byte("tiny payload"))

	_, err := uploader.Upload(context.Background(), source, UploadOptions{WatermarkUID: "wm-uid-1"}, nil)
	require.NoError(t, err)

	assert.Equal(t, "Bearer secret-token", authHeader)
	assert.NotContains(t, metadataHeader, "secret-token")
	assert.Contains(t, metadataHeader, "watermark")
}
