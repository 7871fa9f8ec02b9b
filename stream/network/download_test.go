package network

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_GetDownloadStatus_notEnabled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"success": false, "errors": [{"code": 10005, "message": "downloads not found"}]}`)
	}))
	defer server.Close()

	// A missing download sub-resource is a not_enabled ticket, not an error.
	ticket, err := testClient(server.URL).GetDownloadStatus("video-1")

	require.NoError(t, err)
	assert.Equal(t, DownloadNotEnabled, ticket.State)
}

func Test_GetDownloadStatus_inprogress(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/accounts/acc-1/stream/video-1/downloads", r.URL.Path)
		fmt.Fprint(w, `{"success": true, "result": {"default": {"status": "inprogress", "url": "", "percentComplete": 55}}}`)
	}))
	defer server.Close()

	ticket, err := testClient(server.URL).GetDownloadStatus("video-1")

	require.NoError(t, err)
	assert.Equal(t, DownloadInProgress, ticket.State)
	assert.Equal(t, 55, ticket.PercentComplete)
	assert.NotEmpty(t, ticket.Message)
}

func Test_EnableDownload_ready(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		fmt.Fprint(w, `{"success": true, "result": {"default": {"status": "ready", "url": "https://dl.test/video.mp4", "percentComplete": 100}}}`)
	}))
	defer server.Close()

	ticket, err := testClient(server.URL).EnableDownload("video-1")

	require.NoError(t, err)
	assert.Equal(t, DownloadReady, ticket.State)
	assert.Equal(t, "https://dl.test/video.mp4", ticket.URL)
	assert.Equal(t, 100, ticket.PercentComplete)
}

func Test_normalizeTicket_unexpectedStatus(t *testing.T) {
	var result downloadResult
	result.Default.Status = "exploded"

	_, err := normalizeTicket(result)

	assert.Error(t, err)
}

func Test_ReadyDownloadURL(t *testing.T) {
	ticket := DownloadTicket{State: DownloadReady, URL: "https://dl.test/video.mp4"}

	tests := []struct {
		name string
		hint string
		want string
	}{
		{
			name: "no hint",
			hint: "",
			want: "https://dl.test/video.mp4",
		},
		{
			name: "safe hint",
			hint: "my-video.mp4",
			want: "https://dl.test/video.mp4?filename=my-video.mp4",
		},
		{
			name: "unsafe characters are stripped",
			hint: "my file (1)!.mp4",
			want: "https://dl.test/video.mp4?filename=myfile1.mp4",
		},
		{
			name: "hint of only unsafe characters is dropped",
			hint: "???",
			want: "https://dl.test/video.mp4",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ReadyDownloadURL(ticket, tt.hint))
		})
	}
}
