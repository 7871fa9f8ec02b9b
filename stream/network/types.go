package network

import (
	"encoding/json"
	"time"
)

// VideoStatus is the normalized processing status of a video. The remote API
// reports status either as a plain string or as an object with a nested
// state field; both forms decode into this one type so the ambiguity never
// leaves this package.
type VideoStatus struct {
	State       string
	PctComplete string
	ErrorText   string
}

// UnmarshalJSON accepts both the plain-string and the object form.
func (s *VideoStatus) UnmarshalJSON(data []byte) error {
	var plain string
	if err := json.Unmarshal(data, &plain); err == nil {
		s.State = plain
		return nil
	}

	var obj struct {
		State           string `json:"state"`
		PctComplete     string `json:"pctComplete"`
		ErrorReasonText string `json:"errorReasonText"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	s.State = obj.State
	s.PctComplete = obj.PctComplete
	s.ErrorText = obj.ErrorReasonText
	return nil
}

// Video is a single asset in the video library.
type Video struct {
	UID           string            `json:"uid"`
	Meta          map[string]string `json:"meta"`
	Status        VideoStatus       `json:"status"`
	Duration      float64           `json:"duration"`
	Size          int64             `json:"size"`
	ReadyToStream bool              `json:"readyToStream"`
	Preview       string            `json:"preview"`
	Thumbnail     string            `json:"thumbnail"`
	Created       time.Time         `json:"created"`
	Modified      time.Time         `json:"modified"`
}

// Name returns the display name from the asset metadata, falling back to
// the UID.
func (v Video) Name() string {
	if name, ok := v.Meta["name"]; ok && name != "" {
		return name
	}
	return v.UID
}

// DownloadState is the normalized state of a download ticket.
type DownloadState string

const (
	// DownloadNotEnabled means no downloadable artifact exists or was requested yet.
	DownloadNotEnabled DownloadState = "not_enabled"
	// DownloadInProgress means the artifact is being prepared.
	DownloadInProgress DownloadState = "inprogress"
	// DownloadReady means the artifact can be fetched from the ticket URL.
	DownloadReady DownloadState = "ready"
	// DownloadError means preparation failed; a new attempt may be started.
	DownloadError DownloadState = "error"
)

// DownloadTicket is the state of a video's download preparation.
type DownloadTicket struct {
	State           DownloadState
	PercentComplete int
	URL             string
	Message         string
}

// WatermarkRef references an existing watermark profile by UID.
type WatermarkRef struct {
	UID string `json:"uid"`
}

// Watermark is an image watermark profile.
type Watermark struct {
	UID      string    `json:"uid"`
	Name     string    `json:"name"`
	Opacity  float64   `json:"opacity"`
	Padding  float64   `json:"padding"`
	Scale    float64   `json:"scale"`
	Position string    `json:"position"`
	Size     int64     `json:"size"`
	Height   int       `json:"height"`
	Width    int       `json:"width"`
	Created  time.Time `json:"created"`
}

// WatermarkOptions are the optional placement parameters for a new
// watermark profile. Zero values are omitted from the request.
type WatermarkOptions struct {
	Name     string  `json:"name,omitempty"`
	Opacity  float64 `json:"opacity,omitempty"`
	Padding  float64 `json:"padding,omitempty"`
	Scale    float64 `json:"scale,omitempty"`
	Position string  `json:"position,omitempty"`
}

// DirectUploadRequest constrains a one-time direct upload target.
type DirectUploadRequest struct {
	MaxDurationSeconds int           `json:"maxDurationSeconds,omitempty"`
	Creator            string        `json:"creator,omitempty"`
	Expiry             string        `json:"expiry,omitempty"`
	RequireSignedURLs  bool          `json:"requireSignedURLs,omitempty"`
	AllowedOrigins     []string      `json:"allowedOrigins,omitempty"`
	Watermark          *WatermarkRef `json:"watermark,omitempty"`
}

// DirectUploadTarget is a one-time upload URL and the UID reserved for the
// asset that will be uploaded to it.
type DirectUploadTarget struct {
	UID       string `json:"uid"`
	UploadURL string `json:"uploadURL"`
}

// CopyFromURLRequest asks the service to fetch and ingest a remote file.
type CopyFromURLRequest struct {
	URL               string            `json:"url"`
	Meta              map[string]string `json:"meta,omitempty"`
	Creator           string            `json:"creator,omitempty"`
	RequireSignedURLs bool              `json:"requireSignedURLs,omitempty"`
	AllowedOrigins    []string          `json:"allowedOrigins,omitempty"`
	Watermark         *WatermarkRef     `json:"watermark,omitempty"`
}

// StorageUsage is the account-level usage summary.
type StorageUsage struct {
	VideoCount               int64 `json:"videoCount"`
	TotalStorageMinutes      int64 `json:"totalStorageMinutes"`
	TotalStorageMinutesLimit int64 `json:"totalStorageMinutesLimit"`
}
