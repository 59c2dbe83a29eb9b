// This file implements photo normalization and storage for injury records.
package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"

	"github.com/DukeRupert/aidnexus/internal/domain"
	"github.com/DukeRupert/aidnexus/internal/metrics"
	"github.com/DukeRupert/aidnexus/internal/storage"
)

// Photo limits used when no configuration is given.
const (
	DefaultPhotoMaxBytes     = 10 << 20
	DefaultPhotoMaxDimension = 2048
)

// =============================================================================
// Image Processing
// =============================================================================

// ImageProcessor normalizes uploaded images.
type ImageProcessor interface {
	// Normalize decodes an image, applies its EXIF orientation, shrinks it
	// to fit within maxDimension on both sides and re-encodes it as PNG.
	// It returns the PNG bytes and the original width and height.
	Normalize(data io.Reader, maxDimension int) ([]byte, int, int, error)
}

type imagingProcessor struct{}

// NewImagingProcessor creates an ImageProcessor backed by the imaging library.
func NewImagingProcessor() ImageProcessor {
	return &imagingProcessor{}
}

func (p *imagingProcessor) Normalize(data io.Reader, maxDimension int) ([]byte, int, int, error) {
	img, err := imaging.Decode(data, imaging.AutoOrientation(true))
	if err != nil {
		return nil, 0, 0, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	// Fit never enlarges, so small images pass through at their own size.
	if maxDimension > 0 && (width > maxDimension || height > maxDimension) {
		img = imaging.Fit(img, maxDimension, maxDimension, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, 0, 0, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), width, height, nil
}

// =============================================================================
// Photo Service
// =============================================================================

// StoredPhoto describes a photo written to storage.
type StoredPhoto struct {
	Key            string `json:"key"`
	URL            string `json:"url,omitempty"`
	OriginalWidth  int    `json:"original_width"`
	OriginalHeight int    `json:"original_height"`
	Size           int    `json:"size"`
}

// PhotoService stores record photos. The storage key it returns is the
// opaque reference kept in the record.
type PhotoService interface {
	// Store normalizes an upload and writes it under the record.
	// Returns domain.ETOOLARGE past the byte limit, domain.EUNSUPPORTED for
	// unaccepted media types and domain.EINVALID for undecodable data.
	Store(ctx context.Context, recordID uuid.UUID, photoType domain.PhotoType, data io.Reader, contentType string) (*StoredPhoto, error)

	// Remove deletes stored photos. Failures are logged, not returned.
	Remove(ctx context.Context, keys []string)

	// URL returns a link to a stored photo.
	URL(ctx context.Context, key string) (string, error)
}

// PhotoConfig limits accepted uploads.
type PhotoConfig struct {
	MaxBytes     int64
	MaxDimension int
	URLExpiry    time.Duration
}

type photoService struct {
	storage   storage.Storage
	processor ImageProcessor
	config    PhotoConfig
	logger    *slog.Logger
}

// NewPhotoService creates a PhotoService. Zero config values take the
// package defaults.
func NewPhotoService(store storage.Storage, processor ImageProcessor, config PhotoConfig, logger *slog.Logger) PhotoService {
	if config.MaxBytes <= 0 {
		config.MaxBytes = DefaultPhotoMaxBytes
	}
	if config.MaxDimension <= 0 {
		config.MaxDimension = DefaultPhotoMaxDimension
	}
	if config.URLExpiry <= 0 {
		config.URLExpiry = storage.DefaultPresignExpiry
	}
	return &photoService{
		storage:   store,
		processor: processor,
		config:    config,
		logger:    logger,
	}
}

func (s *photoService) Store(ctx context.Context, recordID uuid.UUID, photoType domain.PhotoType, data io.Reader, contentType string) (*StoredPhoto, error) {
	const op = "photo.store"

	if !photoType.IsValid() {
		return nil, domain.Invalid(op, "photo type must be before, during or after")
	}

	raw, err := io.ReadAll(io.LimitReader(data, s.config.MaxBytes+1))
	if err != nil {
		return nil, domain.Internal(err, op, "failed to read upload")
	}
	if int64(len(raw)) > s.config.MaxBytes {
		return nil, domain.Errorf(domain.ETOOLARGE, op, "photo exceeds the %d byte limit", s.config.MaxBytes)
	}
	if len(raw) == 0 {
		return nil, domain.Invalid(op, "photo is empty")
	}

	contentType = storage.DetectContentType(contentType, "", raw)
	if !storage.IsAllowedImageType(contentType) {
		return nil, domain.Errorf(domain.EUNSUPPORTED, op, "unsupported image type %s", contentType)
	}

	png, width, height, err := s.processor.Normalize(bytes.NewReader(raw), s.config.MaxDimension)
	if err != nil {
		return nil, domain.Wrap(err, domain.EINVALID, op, "photo could not be decoded")
	}

	key := storage.PhotoKey(recordID, photoType.String(), ".png")
	err = s.storage.Put(ctx, key, bytes.NewReader(png), storage.PutOptions{ContentType: "image/png"})
	if err != nil {
		return nil, domain.Internal(err, op, "failed to store photo")
	}
	metrics.PhotosStored.WithLabelValues(photoType.String()).Inc()

	s.logger.Info("photo stored",
		"record_id", recordID,
		"type", photoType,
		"key", key,
		"original_width", width,
		"original_height", height,
		"size", len(png),
	)

	stored := &StoredPhoto{
		Key:            key,
		OriginalWidth:  width,
		OriginalHeight: height,
		Size:           len(png),
	}
	if url, err := s.storage.URL(ctx, key, s.config.URLExpiry); err == nil {
		stored.URL = url
	}
	return stored, nil
}

func (s *photoService) Remove(ctx context.Context, keys []string) {
	for _, key := range keys {
		if err := s.storage.Delete(ctx, key); err != nil {
			s.logger.Warn("failed to delete photo", "key", key, "error", err)
		}
	}
}

func (s *photoService) URL(ctx context.Context, key string) (string, error) {
	const op = "photo.url"

	url, err := s.storage.URL(ctx, key, s.config.URLExpiry)
	if err != nil {
		if storage.IsInvalidKey(err) {
			return "", domain.Invalid(op, "invalid photo reference")
		}
		return "", domain.Internal(err, op, "failed to build photo URL")
	}
	return url, nil
}

// PhotoKeys returns the references on a record that point into the
// record's own storage prefix. Other references are left alone.
func PhotoKeys(r *domain.InjuryRecord) []string {
	prefix := storage.RecordPrefix(r.ID)
	keys := []string{}
	for _, group := range [][]domain.Photo{r.Photos.Before, r.Photos.During, r.Photos.After} {
		for _, p := range group {
			if strings.HasPrefix(p.ImageData, prefix) {
				keys = append(keys, p.ImageData)
			}
		}
	}
	return keys
}
