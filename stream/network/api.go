// Package network maps logical operations onto the remote video service's
// REST API. Requests are synchronous; remote errors are surfaced verbatim
// to the caller tagged with the HTTP status. Retry policy beyond the
// transport's own belongs to the caller.
package network

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/hashicorp/go-retryablehttp"
)

// DefaultBaseURL is the production API root.
const DefaultBaseURL = "https://api.cloudflare.com/client/v4"

type envelope struct {
	Result  json.RawMessage `json:"result"`
	Success bool            `json:"success"`
	Errors  []apiMessage    `json:"errors"`
}

type apiMessage struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Client is a thin request/response mapping to the video service API.
type Client struct {
	httpClient  *retryablehttp.Client
	baseURL     string
	accountID   string
	accessToken string
	logger      log.Logger
}

// NewClient creates a service client. An empty baseURL selects
// DefaultBaseURL.
func NewClient(httpClient *retryablehttp.Client, baseURL, accountID, accessToken string, logger log.Logger) Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return Client{
		httpClient:  httpClient,
		baseURL:     baseURL,
		accountID:   accountID,
		accessToken: accessToken,
		logger:      logger,
	}
}

// UploadEndpoint returns the TUS session creation URL for this account.
func (c Client) UploadEndpoint() string {
	return c.streamURL()
}

func (c Client) streamURL(parts ...string) string {
	url := fmt.Sprintf("%s/accounts/%s/stream", c.baseURL, c.accountID)
	for _, part := range parts {
		url += "/" + part
	}
	return url
}

// ListVideos returns the account's video library.
func (c Client) ListVideos() ([]Video, error) {
	var videos []Video
	if err := c.getJSON(c.streamURL(), &videos); err != nil {
		return nil, err
	}
	return videos, nil
}

// GetVideo returns one video's detail.
func (c Client) GetVideo(videoID string) (Video, error) {
	var video Video
	if err := c.getJSON(c.streamURL(videoID), &video); err != nil {
		return Video{}, err
	}
	return video, nil
}

// DeleteVideo removes a video from the library.
func (c Client) DeleteVideo(videoID string) error {
	req, err := retryablehttp.NewRequest(http.MethodDelete, c.streamURL(videoID), nil)
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

// CreateDirectUpload reserves a one-time upload target for a non-chunked
// direct upload.
func (c Client) CreateDirectUpload(request DirectUploadRequest) (DirectUploadTarget, error) {
	var target DirectUploadTarget
	if err := c.postJSON(c.streamURL("direct_upload"), request, &target); err != nil {
		return DirectUploadTarget{}, err
	}
	return target, nil
}

// CopyFromURL asks the service to fetch and ingest a remote file. The
// returned video is in a pre-processing state; its UID is final.
func (c Client) CopyFromURL(request CopyFromURLRequest) (Video, error) {
	var video Video
	if err := c.postJSON(c.streamURL("copy"), request, &video); err != nil {
		return Video{}, err
	}
	return video, nil
}

// GetStorageUsage returns the account-level usage summary.
func (c Client) GetStorageUsage() (StorageUsage, error) {
	var usage StorageUsage
	if err := c.getJSON(c.streamURL("storage-usage"), &usage); err != nil {
		return StorageUsage{}, err
	}
	return usage, nil
}

func (c Client) getJSON(url string, result interface{}) error {
	req, err := retryablehttp.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	return c.do(req, result)
}

func (c Client) postJSON(url string, requestBody, result interface{}) error {
	body, err := json.Marshal(requestBody)
	if err != nil {
		return err
	}

	req, err := retryablehttp.NewRequest(http.MethodPost, url, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, result)
}

// do sends the request with the bearer credential attached and decodes the
// response envelope's result into result when it is not nil.
func (c Client) do(req *retryablehttp.Request, result interface{}) error {
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.accessToken))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func(body io.ReadCloser) {
		err := body.Close()
		if err != nil {
			c.logger.Printf(err.Error())
		}
	}(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return unwrapError(resp)
	}

	if result == nil {
		return nil
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if err := json.Unmarshal(env.Result, result); err != nil {
		return fmt.Errorf("decode result: %w", err)
	}

	return nil
}

// unwrapError turns a non-2xx response into an APIError carrying the
// remote's own message when the body is a well-formed envelope, otherwise
// the raw body.
func unwrapError(resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &APIError{StatusCode: resp.StatusCode, Message: err.Error()}
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err == nil && len(env.Errors) > 0 {
		return &APIError{StatusCode: resp.StatusCode, Message: env.Errors[0].Message}
	}

	return &APIError{StatusCode: resp.StatusCode, Message: string(body)}
}
