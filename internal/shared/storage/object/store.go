package object

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"
)

// Store saves and retrieves opaque blobs by key.
type Store interface {
	Put(ctx context.Context, key, contentType string, r io.Reader) (int64, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// ErrInvalidKey is returned for empty, absolute or escaping keys.
var ErrInvalidKey = errors.New("invalid storage key")

// RawResponseKey is where the raw reasoning output of a job is archived.
func RawResponseKey(jobID string) string {
	return path.Join("raw", jobID+".txt")
}

// CleanKey validates a storage key and returns its canonical slash form.
func CleanKey(key string) (string, error) {
	trimmed := strings.TrimSpace(key)
	if trimmed == "" || strings.HasPrefix(trimmed, "/") {
		return "", ErrInvalidKey
	}
	clean := path.Clean(trimmed)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", ErrInvalidKey
	}
	return clean, nil
}
