package network

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/hashicorp/go-retryablehttp"
)

type createWatermarkFromURLRequest struct {
	URL string `json:"url"`
	WatermarkOptions
}

// ListWatermarks returns the account's watermark profiles.
func (c Client) ListWatermarks() ([]Watermark, error) {
	var watermarks []Watermark
	if err := c.getJSON(c.streamURL("watermarks"), &watermarks); err != nil {
		return nil, err
	}
	return watermarks, nil
}

// CreateWatermarkFromURL creates a watermark profile from a remote image.
func (c Client) CreateWatermarkFromURL(imageURL string, opts WatermarkOptions) (Watermark, error) {
	var watermark Watermark
	request := createWatermarkFromURLRequest{URL: imageURL, WatermarkOptions: opts}
	if err := c.postJSON(c.streamURL("watermarks"), request, &watermark); err != nil {
		return Watermark{}, err
	}
	return watermark, nil
}

// CreateWatermarkFromFile uploads a local image as a new watermark profile
// using a multipart request.
func (c Client) CreateWatermarkFromFile(path string, opts WatermarkOptions) (Watermark, error) {
	file, err := os.Open(path)
	if err != nil {
		return Watermark{}, fmt.Errorf("open watermark image: %w", err)
	}
	defer func(file *os.File) {
		err := file.Close()
		if err != nil {
			c.logger.Errorf("failed to close file: %s", err)
		}
	}(file)

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return Watermark{}, err
	}
	if _, err := io.Copy(part, file); err != nil {
		return Watermark{}, fmt.Errorf("read watermark image: %w", err)
	}

	name := opts.Name
	if name == "" {
		name = filepath.Base(path)
	}
	fields := map[string]string{"name": name}
	if opts.Opacity != 0 {
		fields["opacity"] = strconv.FormatFloat(opts.Opacity, 'f', -1, 64)
	}
	if opts.Padding != 0 {
		fields["padding"] = strconv.FormatFloat(opts.Padding, 'f', -1, 64)
	}
	if opts.Scale != 0 {
		fields["scale"] = strconv.FormatFloat(opts.Scale, 'f', -1, 64)
	}
	if opts.Position != "" {
		fields["position"] = opts.Position
	}
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			return Watermark{}, err
		}
	}

	if err := writer.Close(); err != nil {
		return Watermark{}, err
	}

	req, err := retryablehttp.NewRequest(http.MethodPost, c.streamURL("watermarks"), buf.Bytes())
	if err != nil {
		return Watermark{}, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var watermark Watermark
	if err := c.do(req, &watermark); err != nil {
		return Watermark{}, err
	}
	return watermark, nil
}

// DeleteWatermark removes a watermark profile.
func (c Client) DeleteWatermark(watermarkID string) error {
	req, err := retryablehttp.NewRequest(http.MethodDelete, c.streamURL("watermarks", watermarkID), nil)
	if err != nil {
		return err
	}
	return c.do(req, nil)
}
