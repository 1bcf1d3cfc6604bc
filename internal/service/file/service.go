package file

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png" // Import for PNG decoding support
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/cmlabs-hris/homecare-payroll/internal/domain/advance"
	"github.com/cmlabs-hris/homecare-payroll/internal/pkg/storage"
	"github.com/cmlabs-hris/homecare-payroll/internal/pkg/validator"
	"github.com/google/uuid"
	"golang.org/x/image/draw"
)

// Photos of paper receipts above this size are downscaled before upload.
const (
	receiptCompressThreshold = 1 << 20
	receiptMaxDimension      = 1600
	receiptJPEGQuality       = 80
)

type ReceiptService interface {
	// UploadReceipt stores an advance receipt and returns the storage path to persist
	UploadReceipt(ctx context.Context, nurseID string, file io.Reader, filename string) (string, error)

	DeleteReceipt(ctx context.Context, path string) error

	// ReceiptURL returns a time-limited signed URL for a stored receipt
	ReceiptURL(ctx context.Context, path string) (string, error)
}

type receiptServiceImpl struct {
	storage   storage.FileStorage
	urlExpiry time.Duration
}

func NewReceiptService(storage storage.FileStorage, urlExpiry time.Duration) ReceiptService {
	if urlExpiry <= 0 {
		urlExpiry = 15 * time.Minute
	}
	return &receiptServiceImpl{
		storage:   storage,
		urlExpiry: urlExpiry,
	}
}

func contentTypeFor(ext string) string {
	switch ext {
	case ".png":
		return "image/png"
	case ".pdf":
		return "application/pdf"
	default:
		return "image/jpeg"
	}
}

// UploadReceipt uploads an advance receipt under receipts/{nurseID}/
func (s *receiptServiceImpl) UploadReceipt(ctx context.Context, nurseID string, file io.Reader, filename string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == ".jpeg" {
		ext = ".jpg"
	}
	if !validator.IsInSlice(ext, storage.ReceiptUploadOptions.AllowedExts) {
		return "", fmt.Errorf("%w: unsupported extension %q", advance.ErrInvalidReceipt, ext)
	}

	buffer, err := io.ReadAll(io.LimitReader(file, storage.ReceiptUploadOptions.MaxSize+1))
	if err != nil {
		return "", fmt.Errorf("failed to read receipt: %w", err)
	}
	if int64(len(buffer)) > storage.ReceiptUploadOptions.MaxSize {
		return "", fmt.Errorf("%w: larger than %d bytes", advance.ErrInvalidReceipt, storage.ReceiptUploadOptions.MaxSize)
	}

	if ext != ".pdf" && len(buffer) > receiptCompressThreshold {
		compressed, err := downscaleImage(buffer, receiptMaxDimension)
		if err != nil {
			return "", fmt.Errorf("failed to compress receipt: %w", err)
		}
		// Always output as JPEG after compression
		buffer, ext = compressed, ".jpg"
	}

	path := filepath.ToSlash(filepath.Join("receipts", nurseID, uuid.New().String()+ext))

	uploadedPath, err := s.storage.Upload(ctx, bytes.NewReader(buffer), path, contentTypeFor(ext))
	if err != nil {
		return "", fmt.Errorf("failed to upload receipt: %w", err)
	}

	return uploadedPath, nil
}

// DeleteReceipt deletes a stored receipt
func (s *receiptServiceImpl) DeleteReceipt(ctx context.Context, path string) error {
	return s.storage.Delete(ctx, path)
}

// ReceiptURL generates URL to access a receipt
func (s *receiptServiceImpl) ReceiptURL(ctx context.Context, path string) (string, error) {
	return s.storage.GetURL(ctx, path, s.urlExpiry)
}

// ==================== HELPER FUNCTIONS ====================

// downscaleImage re-encodes an image as JPEG with its longest edge at most maxDim pixels.
func downscaleImage(buffer []byte, maxDim int) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(buffer))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width > maxDim || height > maxDim {
		if width >= height {
			height = height * maxDim / width
			width = maxDim
		} else {
			width = width * maxDim / height
			height = maxDim
		}
		img = resizeImage(img, width, height)
	}

	buf := new(bytes.Buffer)
	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: receiptJPEGQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode JPEG: %w", err)
	}
	return buf.Bytes(), nil
}

// resizeImage resizes an image to the specified dimensions using high-quality interpolation
func resizeImage(src image.Image, width, height int) image.Image {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	// Use CatmullRom for high-quality downscaling
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)
	return dst
}
