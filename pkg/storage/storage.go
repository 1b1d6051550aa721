// Package storage keeps uploaded files in S3 or on the local disk.
package storage

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Store persists blobs under a key and returns their public URL.
type Store interface {
	Put(ctx context.Context, key, contentType string, data []byte) (string, error)
	Delete(ctx context.Context, key string) error
}

var (
	ErrTooLarge       = errors.New("file too large")
	ErrTypeNotAllowed = errors.New("file type not allowed")
	ErrNotImage       = errors.New("file is not an image")
)

type UploadOptions struct {
	Folder       string
	MaxSize      int64 // in bytes
	AllowedTypes []string
}

// DefaultUploadOptions returns the limits for a kind of upload. maxSize
// overrides the built-in size limit when positive.
func DefaultUploadOptions(kind string, maxSize int64) UploadOptions {
	var opts UploadOptions
	switch kind {
	case "avatars":
		opts = UploadOptions{
			Folder:       "avatars",
			MaxSize:      2 * 1024 * 1024,
			AllowedTypes: []string{".jpg", ".jpeg", ".png"},
		}
	default:
		opts = UploadOptions{
			Folder:       "products",
			MaxSize:      10 * 1024 * 1024,
			AllowedTypes: []string{".jpg", ".jpeg", ".png", ".gif", ".webp"},
		}
	}
	if maxSize > 0 {
		opts.MaxSize = maxSize
	}
	return opts
}

// ValidateImage checks size, extension and content signature and returns
// the detected content type.
func ValidateImage(filename string, data []byte, opts UploadOptions) (string, error) {
	if opts.MaxSize > 0 && int64(len(data)) > opts.MaxSize {
		return "", fmt.Errorf("%w: %d bytes exceeds %d", ErrTooLarge, len(data), opts.MaxSize)
	}

	if len(opts.AllowedTypes) > 0 {
		ext := strings.ToLower(filepath.Ext(filename))
		allowed := false
		for _, t := range opts.AllowedTypes {
			if ext == t {
				allowed = true
				break
			}
		}
		if !allowed {
			return "", fmt.Errorf("%w: %q", ErrTypeNotAllowed, ext)
		}
	}

	contentType := http.DetectContentType(data)
	if !strings.HasPrefix(contentType, "image/") {
		return "", fmt.Errorf("%w: detected %s", ErrNotImage, contentType)
	}
	return contentType, nil
}

// ObjectKey builds a unique key under folder that keeps the file extension.
func ObjectKey(folder, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	name := fmt.Sprintf("%s_%s%s", time.Now().Format("20060102"), uuid.New().String()[:8], ext)
	if folder != "" {
		return folder + "/" + name
	}
	return name
}
