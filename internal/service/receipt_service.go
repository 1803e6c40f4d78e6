package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"

	"github.com/rvasani/bahikhata/bahikhata-backend/internal/domain"
	"github.com/rvasani/bahikhata/bahikhata-backend/internal/repository/storage"
)

const (
	MaxReceiptSize    = 5 * 1024 * 1024 // 5MB
	MinReceiptWidth   = 50
	MinReceiptHeight  = 50
	ThumbnailWidth    = 200
	JPEGQuality       = 85
	PresignedURLValid = 15 * time.Minute
)

var (
	ErrReceiptTooLarge             = errors.New("file too large. Maximum size is 5MB")
	ErrReceiptInvalidFormat        = errors.New("invalid format. Supported: JPEG, PNG, WebP")
	ErrReceiptTooSmall             = errors.New("image too small. Minimum 50x50 pixels")
	ErrReceiptInvalidData          = errors.New("invalid image data")
	ErrReceiptStorageNotConfigured = errors.New("receipt storage not configured")
	ErrReceiptNotAttached          = errors.New("entry has no receipt attached")
)

// AllowedReceiptExtensions maps extensions to content types
var AllowedReceiptExtensions = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
}

// ReceiptMetadata contains the stored object paths for a receipt
type ReceiptMetadata struct {
	EntryID       uuid.UUID `json:"entryId"`
	ThumbnailPath string    `json:"thumbnailPath"`
	OriginalPath  string    `json:"originalPath"`
}

// ReceiptService handles receipt image processing and storage
type ReceiptService struct {
	storage   storage.ReceiptRepository
	entryRepo domain.EntryRepository
}

// NewReceiptService creates a new ReceiptService
func NewReceiptService(storage storage.ReceiptRepository, entryRepo domain.EntryRepository) *ReceiptService {
	return &ReceiptService{
		storage:   storage,
		entryRepo: entryRepo,
	}
}

// IsEnabled indicates whether uploads are supported (storage configured)
func (s *ReceiptService) IsEnabled() bool {
	return s != nil && s.storage != nil
}

// validateAndDecode validates the receipt image and returns the decoded image
func (s *ReceiptService) validateAndDecode(data []byte, filename string) (image.Image, error) {
	if len(data) > MaxReceiptSize {
		return nil, ErrReceiptTooLarge
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if _, ok := AllowedReceiptExtensions[ext]; !ok {
		return nil, ErrReceiptInvalidFormat
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, ErrReceiptInvalidData
	}

	bounds := img.Bounds()
	if bounds.Dx() < MinReceiptWidth || bounds.Dy() < MinReceiptHeight {
		return nil, ErrReceiptTooSmall
	}

	return img, nil
}

// AttachReceipt processes a receipt image, uploads thumbnail and original
// variants, and records the original's path on the entry
func (s *ReceiptService) AttachReceipt(ctx context.Context, entryID uuid.UUID, data []byte, filename string) (*ReceiptMetadata, error) {
	if !s.IsEnabled() {
		return nil, ErrReceiptStorageNotConfigured
	}

	entry, err := s.entryRepo.GetByID(entryID)
	if err != nil {
		return nil, err
	}

	img, err := s.validateAndDecode(data, filename)
	if err != nil {
		return nil, err
	}

	variants := []struct {
		name     string
		maxWidth int
	}{
		{"thumb", ThumbnailWidth},
		{"original", 0}, // 0 means keep original size
	}

	paths := make(map[string]string)

	for _, variant := range variants {
		var processed image.Image
		if variant.maxWidth > 0 && img.Bounds().Dx() > variant.maxWidth {
			// Resize maintaining aspect ratio
			processed = imaging.Resize(img, variant.maxWidth, 0, imaging.Lanczos)
		} else {
			processed = img
		}

		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, processed, &jpeg.Options{Quality: JPEGQuality}); err != nil {
			return nil, fmt.Errorf("failed to encode image: %w", err)
		}

		objectPath := storage.GenerateObjectPath(entry.LoanID, entry.ID, variant.name, ".jpg")

		stored, err := s.storage.Upload(ctx, objectPath, bytes.NewReader(buf.Bytes()), "image/jpeg", int64(buf.Len()))
		if err != nil {
			s.cleanupVariants(ctx, paths)
			return nil, fmt.Errorf("failed to upload %s variant: %w", variant.name, err)
		}

		paths[variant.name] = stored
	}

	if err := s.entryRepo.SetReceiptPath(entry.ID, paths["original"]); err != nil {
		s.cleanupVariants(ctx, paths)
		return nil, err
	}

	return &ReceiptMetadata{
		EntryID:       entry.ID,
		ThumbnailPath: paths["thumb"],
		OriginalPath:  paths["original"],
	}, nil
}

// cleanupVariants removes variants uploaded during a failed operation
func (s *ReceiptService) cleanupVariants(ctx context.Context, paths map[string]string) {
	for _, p := range paths {
		// Ignore errors during cleanup
		_ = s.storage.Delete(ctx, p)
	}
}

// ReceiptURL returns a presigned URL for an entry's stored receipt
func (s *ReceiptService) ReceiptURL(ctx context.Context, entryID uuid.UUID) (string, error) {
	if !s.IsEnabled() {
		return "", ErrReceiptStorageNotConfigured
	}

	entry, err := s.entryRepo.GetByID(entryID)
	if err != nil {
		return "", err
	}
	if entry.ReceiptPath == nil || *entry.ReceiptPath == "" {
		return "", ErrReceiptNotAttached
	}

	return s.storage.GeneratePresignedURL(ctx, *entry.ReceiptPath, PresignedURLValid)
}
