// Package storage keeps injury photo blobs outside the record store.
//
// Records hold only the storage key of each photo. Two backends implement
// Storage: LocalStorage on the filesystem for development, and R2Storage on
// any S3-compatible bucket (Cloudflare R2 by default) for production.
package storage

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Storage stores and serves opaque blobs by key.
type Storage interface {
	// Put stores data at key. It fails with ErrKeyExists unless
	// opts.Overwrite is set, and with ErrTooLarge past opts.MaxSize.
	Put(ctx context.Context, key string, data io.Reader, opts PutOptions) error

	// Get opens the blob at key. The caller must close the reader.
	// Returns ErrNotFound if the key doesn't exist.
	Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error)

	// Delete removes the blob at key. Missing keys are not an error.
	Delete(ctx context.Context, key string) error

	// URL returns a link to the blob. Private buckets return a presigned
	// link valid for expires.
	URL(ctx context.Context, key string, expires time.Duration) (string, error)

	// Exists reports whether a blob is stored at key.
	Exists(ctx context.Context, key string) (bool, error)
}

// PutOptions configures how an object is stored.
type PutOptions struct {
	ContentType string // Detected from the key when empty
	MaxSize     int64  // Zero means unlimited
	Overwrite   bool
	Public      bool // Sets a public-read ACL on R2
}

// ObjectInfo describes a stored object.
type ObjectInfo struct {
	Key          string
	Size         int64
	ContentType  string
	LastModified time.Time
	ETag         string
}

// LocalConfig configures filesystem storage.
type LocalConfig struct {
	BasePath string // Root directory, created if missing
	BaseURL  string // Prefix for URLs, e.g. http://localhost:8080/files
}

// R2Config configures S3-compatible storage.
type R2Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string

	// PublicURL serves objects directly when the bucket has a public
	// domain. Empty means presigned URLs only.
	PublicURL string

	// Endpoint overrides the R2 endpoint derived from AccountID, for other
	// S3-compatible services.
	Endpoint string

	// Region defaults to "auto", which R2 accepts.
	Region string
}

const (
	ProviderLocal = "local"
	ProviderR2    = "r2"
)

// PhotoKey builds the key for a record photo:
// records/{recordID}/{photoType}/{uuid}{ext}. An empty ext yields ".png".
func PhotoKey(recordID uuid.UUID, photoType, ext string) string {
	if ext == "" {
		ext = ".png"
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return fmt.Sprintf("records/%s/%s/%s%s", recordID, photoType, uuid.New(), strings.ToLower(ext))
}

// RecordPrefix returns the key prefix shared by every photo of a record.
func RecordPrefix(recordID uuid.UUID) string {
	return fmt.Sprintf("records/%s/", recordID)
}

// validKey rejects empty keys and keys that climb out of their prefix.
func validKey(key string) error {
	if key == "" || strings.Contains(key, "..") || strings.HasPrefix(key, "/") {
		return ErrInvalidKey
	}
	return nil
}
