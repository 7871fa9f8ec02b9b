package stream

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/bitrise-io/go-utils/v2/filedownloader"
	"github.com/bitrise-io/go-utils/v2/fileutil"
	"github.com/bitrise-io/go-utils/v2/pathutil"
)

const fileScheme = "file://"

// ImageProvider resolves a watermark image source — a `file://` path or a
// remote URL — to a local path usable for a multipart upload. Remote
// sources are downloaded to a temporary location with the filedownloader
// package's retry logic, which also covers images behind URLs the remote
// service itself could not fetch.
type ImageProvider interface {
	// LocalPath returns the local file path for the given source.
	LocalPath(ctx context.Context, source string) (string, error)

	// Contents returns a streaming reader over the image bytes. The caller
	// is responsible for closing it.
	Contents(ctx context.Context, source string) (io.ReadCloser, error)
}

type imageProvider struct {
	downloader   filedownloader.Downloader
	fileManager  fileutil.FileManager
	pathProvider pathutil.PathProvider
	pathModifier pathutil.PathModifier
}

// NewImageProvider ...
func NewImageProvider(downloader filedownloader.Downloader, fileManager fileutil.FileManager, pathProvider pathutil.PathProvider, pathModifier pathutil.PathModifier) ImageProvider {
	return &imageProvider{
		downloader:   downloader,
		fileManager:  fileManager,
		pathProvider: pathProvider,
		pathModifier: pathModifier,
	}
}

// LocalPath strips the file:// scheme from local sources, or downloads a
// remote source to a temporary directory and returns the downloaded path.
func (p *imageProvider) LocalPath(ctx context.Context, source string) (string, error) {
	if strings.HasPrefix(source, fileScheme) {
		return p.trimmedFilePath(source)
	}
	return p.downloadToLocalPath(ctx, source)
}

// Contents opens local sources directly and streams remote ones.
func (p *imageProvider) Contents(ctx context.Context, source string) (io.ReadCloser, error) {
	if strings.HasPrefix(source, fileScheme) {
		trimmedPath, err := p.trimmedFilePath(source)
		if err != nil {
			return nil, err
		}
		return p.fileManager.Open(trimmedPath)
	}
	return p.downloader.Get(ctx, source)
}

func (p *imageProvider) trimmedFilePath(source string) (string, error) {
	pth := strings.TrimPrefix(source, fileScheme)
	return p.pathModifier.AbsPath(pth)
}

func (p *imageProvider) downloadToLocalPath(ctx context.Context, imageURL string) (string, error) {
	tmpDir, err := p.pathProvider.CreateTempDir("watermark")
	if err != nil {
		return "", fmt.Errorf("failed to create temp directory: %w", err)
	}

	parsedURL, err := url.Parse(imageURL)
	if err != nil {
		return "", fmt.Errorf("failed to extract filename from URL %s: %w", imageURL, err)
	}

	localPath := filepath.Join(tmpDir, filepath.Base(parsedURL.Path))
	if err := p.downloader.Download(ctx, localPath, imageURL); err != nil {
		return "", fmt.Errorf("failed to download image from %s: %w", imageURL, err)
	}

	return localPath, nil
}
