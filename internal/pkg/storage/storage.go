package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

var (
	ErrInvalidPath      = errors.New("invalid file path")
	ErrInvalidSignature = errors.New("invalid or expired file signature")
)

type FileStorage interface {
	// Upload stores a file and returns the path/key to persist
	Upload(ctx context.Context, file io.Reader, path string, contentType string) (string, error)

	// Delete removes a file; deleting a missing file is not an error
	Delete(ctx context.Context, path string) error

	// GetURL generates a time-limited signed URL
	GetURL(ctx context.Context, path string, expiry time.Duration) (string, error)
}

type UploadOptions struct {
	MaxSize     int64
	AllowedExts []string
}

// ReceiptUploadOptions limits advance receipts to images and PDFs up to 5MB.
var ReceiptUploadOptions = UploadOptions{
	MaxSize:     5 << 20,
	AllowedExts: []string{".jpg", ".jpeg", ".png", ".pdf"},
}
