// Package tusclient implements a resumable chunked upload client for the
// video service's TUS endpoint. It drives one file per session: session
// creation, strictly sequential chunk transfer with retry, progress
// reporting and media ID extraction.
package tusclient

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"sync"
)

// Progress is a snapshot of a session's transfer state, emitted after every
// acknowledged chunk.
type Progress struct {
	BytesUploaded int64
	BytesTotal    int64
	Percent       int
}

// ProgressFunc receives progress updates during a session. May be nil.
type ProgressFunc func(Progress)

// UploadOptions carries per-upload protocol metadata. The watermark UID is
// omitted from the wire entirely when empty.
type UploadOptions struct {
	Name         string
	ContentType  string
	WatermarkUID string
}

// FileSource provides chunk data for one upload session.
// ReadChunk may be called multiple times for the same range when a chunk
// transfer is retried.
type FileSource interface {
	// Name returns the file name sent as protocol metadata.
	Name() string

	// ContentType returns the MIME type sent as protocol metadata.
	ContentType() string

	// Size returns the total upload size in bytes.
	Size() int64

	// ReadChunk returns a reader over [offset, offset+size), truncated at EOF.
	ReadChunk(offset, size int64) (io.Reader, error)
}

// FileChunkSource reads chunks from a file on disk. Safe for use by a single
// session; the seek+read pair is mutex-guarded.
type FileChunkSource struct {
	file        *os.File
	name        string
	contentType string
	size        int64
	mu          sync.Mutex
}

// NewFileChunkSource opens path and prepares it as an upload source.
func NewFileChunkSource(path string) (*FileChunkSource, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("stat file: %w", err)
	}

	contentType := mime.TypeByExtension(filepath.Ext(path))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	return &FileChunkSource{
		file:        file,
		name:        filepath.Base(path),
		contentType: contentType,
		size:        info.Size(),
	}, nil
}

// Name returns the base name of the underlying file.
func (s *FileChunkSource) Name() string {
	return s.name
}

// ContentType returns the MIME type guessed from the file extension.
func (s *FileChunkSource) ContentType() string {
	return s.contentType
}

// Size returns the file size in bytes.
func (s *FileChunkSource) Size() int64 {
	return s.size
}

// ReadChunk reads the requested range into memory so the same chunk can be
// re-sent on retry.
func (s *FileChunkSource) ReadChunk(offset, size int64) (io.Reader, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.file.Seek(offset, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek to offset %d: %w", offset, err)
	}

	chunk := make([]byte, size)
	n, err := io.ReadFull(s.file, chunk)
	if err != nil && err != io.ErrUnexpectedEOF {
		return nil, fmt.Errorf("read chunk at offset %d: %w", offset, err)
	}
	if n == 0 {
		return nil, fmt.Errorf("unexpected end of file at offset %d", offset)
	}

	return bytes.NewReader(chunk[:n]), nil
}

// Close closes the underlying file.
func (s *FileChunkSource) Close() error {
	if s.file != nil {
		return s.file.Close()
	}
	return nil
}

// BytesSource wraps an in-memory payload as a FileSource.
type BytesSource struct {
	name        string
	contentType string
	data        []byte
}

// NewBytesSource creates a FileSource over data.
func NewBytesSource(name, contentType string, data []byte) *BytesSource {
	return &BytesSource{name: name, contentType: contentType, data: data}
}

// Name returns the configured name.
func (s *BytesSource) Name() string { return s.name }

// ContentType returns the configured MIME type.
func (s *BytesSource) ContentType() string { return s.contentType }

// Size returns the payload length.
func (s *BytesSource) Size() int64 { return int64(len(s.data)) }

// ReadChunk returns a reader over the requested range.
func (s *BytesSource) ReadChunk(offset, size int64) (io.Reader, error) {
	if offset < 0 || offset >= int64(len(s.data)) {
		return nil, fmt.Errorf("offset %d out of range [0, %d)", offset, len(s.data))
	}
	end := offset + size
	if end > int64(len(s.data)) {
		end = int64(len(s.data))
	}
	return bytes.NewReader(s.data[offset:end]), nil
}
