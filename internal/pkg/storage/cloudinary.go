package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// CloudinaryStorage keeps receipts as authenticated Cloudinary assets and
// hands out signed delivery URLs.
type CloudinaryStorage struct {
	cld    *cloudinary.Cloudinary
	folder string
}

func NewCloudinaryStorage(cloudinaryURL, folder string) (*CloudinaryStorage, error) {
	cld, err := cloudinary.NewFromURL(cloudinaryURL)
	if err != nil {
		return nil, fmt.Errorf("failed to init cloudinary: %w", err)
	}
	cld.Config.URL.Secure = true
	return &CloudinaryStorage{cld: cld, folder: folder}, nil
}

func (s *CloudinaryStorage) publicID(p string) string {
	p = strings.TrimSuffix(p, path.Ext(p))
	return strings.TrimPrefix(path.Join(s.folder, p), "/")
}

func (s *CloudinaryStorage) Upload(ctx context.Context, file io.Reader, p string, contentType string) (string, error) {
	if strings.Contains(p, "..") {
		return "", fmt.Errorf("%w: %s", ErrInvalidPath, p)
	}
	resp, err := s.cld.Upload.Upload(ctx, file, uploader.UploadParams{
		PublicID:     s.publicID(p),
		Type:         "authenticated",
		ResourceType: "image",
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to cloudinary: %w", err)
	}
	if resp.Error.Message != "" {
		return "", fmt.Errorf("cloudinary upload rejected: %s", resp.Error.Message)
	}
	return resp.PublicID, nil
}

func (s *CloudinaryStorage) Delete(ctx context.Context, publicID string) error {
	resp, err := s.cld.Upload.Destroy(ctx, uploader.DestroyParams{
		PublicID:     publicID,
		Type:         "authenticated",
		ResourceType: "image",
	})
	if err != nil {
		return fmt.Errorf("failed to delete from cloudinary: %w", err)
	}
	if resp.Error.Message != "" {
		return fmt.Errorf("cloudinary delete rejected: %s", resp.Error.Message)
	}
	return nil
}

// GetURL signs the delivery URL of an authenticated asset. Expiry of
// authenticated delivery is enforced by the account's token settings.
func (s *CloudinaryStorage) GetURL(ctx context.Context, publicID string, expiry time.Duration) (string, error) {
	asset, err := s.cld.Image(publicID)
	if err != nil {
		return "", fmt.Errorf("failed to build cloudinary asset: %w", err)
	}
	asset.DeliveryType = "authenticated"
	asset.Config.URL.SignURL = true
	return asset.String()
}
