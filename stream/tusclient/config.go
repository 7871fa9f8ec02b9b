package tusclient

import (
	"net/http"
	"time"

	"github.com/bitrise-io/go-utils/v2/log"
)

const (
	// MinChunkSize is the smallest chunk the service accepts, in bytes.
	MinChunkSize int64 = 5242880

	// ChunkSizeQuantum is the required chunk size alignment, in bytes.
	ChunkSizeQuantum int64 = 262144

	// DefaultChunkSize is used when no chunk size is requested.
	DefaultChunkSize int64 = 52428800
)

// Config holds configuration for an upload session.
type Config struct {
	// Endpoint is the TUS session creation URL.
	Endpoint string

	// AccessToken is the bearer credential. It travels only in the
	// Authorization header, never as protocol metadata.
	AccessToken string

	// ChunkSize is the requested chunk size in bytes. It is normalized via
	// NormalizeChunkSize before use; 0 means DefaultChunkSize.
	ChunkSize int64

	// RetrySchedule is the list of delays applied before each attempt of a
	// session creation or chunk transfer. Its length bounds the attempt count.
	// If nil, DefaultRetrySchedule is used.
	RetrySchedule []time.Duration

	// SettleDelay is how long to wait after the final chunk ack before
	// resolving, giving the service time to register the asset.
	// If zero, one second is used. Negative disables the wait.
	SettleDelay time.Duration

	// HTTPClient is the HTTP client to use for protocol requests.
	// If nil, a default tuned client is created. Retry policy is owned by the
	// session itself, so a plain client is expected here.
	HTTPClient *http.Client

	// Logger receives debug and warning output. If nil, a default logger is
	// created.
	Logger log.Logger
}

// DefaultRetrySchedule returns the delays applied before each attempt:
// the first attempt is immediate, later ones back off.
func DefaultRetrySchedule() []time.Duration {
	return []time.Duration{
		0,
		3 * time.Second,
		5 * time.Second,
		10 * time.Second,
		20 * time.Second,
	}
}

// DefaultHTTPClient creates an HTTP client tuned for chunk transfers.
func DefaultHTTPClient() *http.Client {
	return &http.Client{
		// No overall timeout: chunk durations vary with size and bandwidth,
		// cancellation is handled via context.
		Timeout: 0,
		Transport: &http.Transport{
			MaxIdleConns:        50,
			MaxConnsPerHost:     20,
			IdleConnTimeout:     10 * time.Second,
			TLSHandshakeTimeout: 5 * time.Second,
			Proxy:               http.ProxyFromEnvironment,
		},
	}
}

// NormalizeChunkSize produces a protocol-compliant chunk size from a
// requested one: at least MinChunkSize and an exact multiple of
// ChunkSizeQuantum. The requested size is rounded to the nearest multiple
// rather than floored or ceiled, to stay close to the caller's intent.
// A requested size of 0 means DefaultChunkSize.
func NormalizeChunkSize(requested int64) int64 {
	size := requested
	if size <= 0 {
		size = DefaultChunkSize
	}
	if size < MinChunkSize {
		size = MinChunkSize
	}

	size = (size + ChunkSizeQuantum/2) / ChunkSizeQuantum * ChunkSizeQuantum
	if size < MinChunkSize {
		size = MinChunkSize
	}

	return size
}
