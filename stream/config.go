package stream

import (
	"fmt"
	"strconv"

	"github.com/bitrise-io/go-utils/v2/env"
	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/joho/godotenv"
)

const (
	accountIDEnvKey   = "STREAMKIT_ACCOUNT_ID"
	apiTokenEnvKey    = "STREAMKIT_API_TOKEN"
	baseURLEnvKey     = "STREAMKIT_API_BASE_URL"
	chunkSizeEnvKey   = "STREAMKIT_CHUNK_SIZE_BYTES"
	concurrencyEnvKey = "STREAMKIT_CONCURRENCY"
)

// Secret is a string whose value must not end up in logs.
type Secret string

// String redacts the value.
func (Secret) String() string {
	return "[REDACTED]"
}

// Config is the resolved credential and tuning set the core components run
// with. How the values were stored is the host application's concern; this
// layer only resolves them from the environment.
type Config struct {
	AccountID      string
	APIToken       Secret
	APIBaseURL     string
	ChunkSizeBytes int64
	Concurrency    int
}

// LoadConfig resolves the configuration from the environment, loading a
// .env file first when one is present in the working directory.
func LoadConfig(envRepo env.Repository, logger log.Logger) (Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debugf("No .env file loaded: %s", err)
	}

	accountID := envRepo.Get(accountIDEnvKey)
	if accountID == "" {
		return Config{}, fmt.Errorf("the secret '%s' is not defined", accountIDEnvKey)
	}
	apiToken := envRepo.Get(apiTokenEnvKey)
	if apiToken == "" {
		return Config{}, fmt.Errorf("the secret '%s' is not defined", apiTokenEnvKey)
	}

	config := Config{
		AccountID:  accountID,
		APIToken:   Secret(apiToken),
		APIBaseURL: envRepo.Get(baseURLEnvKey),
	}

	if raw := envRepo.Get(chunkSizeEnvKey); raw != "" {
		chunkSize, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", chunkSizeEnvKey, err)
		}
		config.ChunkSizeBytes = chunkSize
	}

	if raw := envRepo.Get(concurrencyEnvKey); raw != "" {
		concurrency, err := strconv.Atoi(raw)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", concurrencyEnvKey, err)
		}
		if concurrency < 1 {
			return Config{}, fmt.Errorf("%s should be at least 1", concurrencyEnvKey)
		}
		config.Concurrency = concurrency
	}

	return config, nil
}
