package service

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"storefront-service/internal/entity"
)

const (
	MaxUploadSize  = 5 << 20
	MaxUploadFiles = 10
)

var allowedImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// FileUpload is one file received from a client.
type FileUpload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

type UploadService struct {
	storage ObjectStorage
}

func NewUploadService(storage ObjectStorage) *UploadService {
	return &UploadService{storage: storage}
}

// Upload stores an image under products/<uuid><ext> and returns its public URL.
func (s *UploadService) Upload(ctx context.Context, file FileUpload) (*entity.UploadedFile, error) {
	contentType := strings.ToLower(strings.TrimSpace(strings.Split(file.ContentType, ";")[0]))
	defaultExt, ok := allowedImageTypes[contentType]
	if !ok {
		return nil, fmt.Errorf("file type %q not allowed: %w", file.ContentType, entity.ErrInvalidInput)
	}
	if file.Size > MaxUploadSize {
		return nil, fmt.Errorf("file too large, maximum is 5MB: %w", entity.ErrInvalidInput)
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if ext == "" {
		ext = defaultExt
	}
	key := "products/" + uuid.NewString() + ext

	url, err := s.storage.Upload(ctx, key, contentType, io.LimitReader(file.Body, MaxUploadSize+1))
	if err != nil {
		logger.Error().Err(err).Msgf("Error uploading %s", file.Filename)
		return nil, err
	}
	return &entity.UploadedFile{URL: url, Filename: file.Filename, Size: file.Size}, nil
}

// UploadMany uploads up to ten files. Files that are rejected or fail to
// upload are skipped.
func (s *UploadService) UploadMany(ctx context.Context, files []FileUpload) ([]*entity.UploadedFile, error) {
	if len(files) > MaxUploadFiles {
		return nil, fmt.Errorf("maximum %d files allowed: %w", MaxUploadFiles, entity.ErrInvalidInput)
	}

	uploaded := []*entity.UploadedFile{}
	for _, file := range files {
		result, err := s.Upload(ctx, file)
		if err != nil {
			logger.Warn().Msgf("Skipping %s: %v", file.Filename, err)
			continue
		}
		uploaded = append(uploaded, result)
	}
	return uploaded, nil
}

func (s *UploadService) Delete(ctx context.Context, url string) error {
	if strings.TrimSpace(url) == "" {
		return fmt.Errorf("url is required: %w", entity.ErrInvalidInput)
	}
	if err := s.storage.Delete(ctx, url); err != nil {
		logger.Error().Err(err).Msgf("Error deleting %s", url)
		return err
	}
	return nil
}
