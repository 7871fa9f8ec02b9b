package stream

import (
	"context"

	"github.com/bitrise-io/go-utils/v2/log"

	"github.com/streamdesk/go-streamkit/stream/network"
)

// WatermarkManager manages the account's watermark profiles.
type WatermarkManager struct {
	api    network.WatermarkAPI
	images ImageProvider
	logger log.Logger
}

// NewWatermarkManager ...
func NewWatermarkManager(api network.WatermarkAPI, images ImageProvider, logger log.Logger) WatermarkManager {
	return WatermarkManager{
		api:    api,
		images: images,
		logger: logger,
	}
}

// List returns the account's watermark profiles.
func (m WatermarkManager) List() ([]network.Watermark, error) {
	return m.api.ListWatermarks()
}

// AddFromFile creates a watermark profile from a local image. The source
// may be a file:// path or a remote URL; remote sources are fetched locally
// first so that images the service itself cannot reach still work.
func (m WatermarkManager) AddFromFile(ctx context.Context, source string, opts network.WatermarkOptions) (network.Watermark, error) {
	localPath, err := m.images.LocalPath(ctx, source)
	if err != nil {
		return network.Watermark{}, err
	}

	watermark, err := m.api.CreateWatermarkFromFile(localPath, opts)
	if err != nil {
		return network.Watermark{}, err
	}
	m.logger.Donef("Watermark %s created (UID %s)", watermark.Name, watermark.UID)
	return watermark, nil
}

// AddFromURL creates a watermark profile from a publicly reachable image
// URL, letting the service fetch the image itself.
func (m WatermarkManager) AddFromURL(imageURL string, opts network.WatermarkOptions) (network.Watermark, error) {
	watermark, err := m.api.CreateWatermarkFromURL(imageURL, opts)
	if err != nil {
		return network.Watermark{}, err
	}
	m.logger.Donef("Watermark %s created (UID %s)", watermark.Name, watermark.UID)
	return watermark, nil
}

// Delete removes a watermark profile.
func (m WatermarkManager) Delete(watermarkID string) error {
	return m.api.DeleteWatermark(watermarkID)
}
