package stream

import (
	"github.com/bitrise-io/go-utils/v2/env"
	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/bitrise-io/go-utils/v2/retryhttp"

	"github.com/streamdesk/go-streamkit/stream/network"
	"github.com/streamdesk/go-streamkit/stream/tusclient"
)

// New wires a service client, a chunked upload session and a bulk runner
// from a resolved configuration. This is the entry point host applications
// are expected to use; the individual components remain constructible on
// their own for finer control.
func New(config Config, envRepo env.Repository, logger log.Logger, observer Observer) (*Runner, network.Client) {
	httpClient := retryhttp.NewClient(logger)
	client := network.NewClient(httpClient, config.APIBaseURL, config.AccountID, string(config.APIToken), logger)

	uploader := tusclient.New(tusclient.Config{
		Endpoint:    client.UploadEndpoint(),
		AccessToken: string(config.APIToken),
		ChunkSize:   config.ChunkSizeBytes,
		Logger:      logger,
	})

	runner := NewRunner(envRepo, logger, client, uploader, NewQueue(), observer, RunnerConfig{
		ConcurrencyLimit: config.Concurrency,
	})

	return runner, client
}
