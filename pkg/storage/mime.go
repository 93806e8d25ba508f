package storage

import (
	"bytes"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// MIMEOctetStream is used when a content type cannot be determined.
const MIMEOctetStream = "application/octet-stream"

const mimeDetectionBytes = 512 // http.DetectContentType reads at most 512 bytes

// mimeExtensions maps MIME types to preferred file extensions.
var mimeExtensions = map[string]string{
	"image/jpeg":    ".jpg",
	"image/jpg":     ".jpg",
	"image/pjpeg":   ".jpg",
	"image/png":     ".png",
	"image/gif":     ".gif",
	"image/webp":    ".webp",
	"image/svg+xml": ".svg",
	"image/avif":    ".avif",

	"text/plain":       ".txt",
	"text/css":         ".css",
	"text/markdown":    ".md",
	"application/pdf":  ".pdf",
	"application/json": ".json",
}

// ExtFromMIME returns the file extension for a MIME type.
// Returns empty string if MIME type is unknown.
func ExtFromMIME(mimeType string) string {
	return mimeExtensions[NormalizeMIME(mimeType)]
}

// NormalizeMIME extracts the base MIME type, removing parameters like charset.
// Returns the lowercase MIME type.
func NormalizeMIME(mimeType string) string {
	mimeType, _, _ = strings.Cut(mimeType, ";")
	return strings.TrimSpace(strings.ToLower(mimeType))
}

// NewKey returns a fresh object key: "{prefix}/{uuid}{ext}".
// The key never depends on client-supplied names.
func NewKey(prefix, contentType string) string {
	ext := ExtFromMIME(contentType)
	if ext == "" {
		ext = ".bin"
	}
	name := uuid.NewString() + ext

	prefix = strings.Trim(prefix, "/ ")
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}

// detectMIMEWithReader detects MIME type from a reader and returns a seekable reader.
// AWS SDK v2 requires io.ReadSeeker for computing payload hash.
// If input is already seekable, it seeks back to start after detection.
// Otherwise, it buffers the entire content into memory.
func detectMIMEWithReader(r io.Reader) (string, io.ReadSeeker) {
	if rs, ok := r.(io.ReadSeeker); ok {
		buf := make([]byte, mimeDetectionBytes)
		n, _ := rs.Read(buf)
		_, _ = rs.Seek(0, io.SeekStart)
		if n > 0 {
			return http.DetectContentType(buf[:n]), rs
		}
		return MIMEOctetStream, rs
	}

	data, err := io.ReadAll(r)
	if err != nil || len(data) == 0 {
		return MIMEOctetStream, bytes.NewReader(nil)
	}

	return http.DetectContentType(data), bytes.NewReader(data)
}

// seekable returns r as an io.ReadSeeker, buffering it when needed.
func seekable(r io.Reader) (io.ReadSeeker, error) {
	if rs, ok := r.(io.ReadSeeker); ok {
		return rs, nil
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(data), nil
}
