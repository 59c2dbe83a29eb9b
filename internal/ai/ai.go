package ai

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Provider generates free text from a prompt, optionally with an attached
// image. An empty Response.Text means the model produced no output.
type Provider interface {
	Generate(ctx context.Context, params GenerateParams) (*Response, error)

	// Name identifies the provider in logs.
	Name() string
}

// Request kinds, used for logging and metrics labels.
const (
	KindImageAnalysis  = "image_analysis"
	KindFirstAid       = "first_aid"
	KindEmergencyLevel = "emergency_level"
	KindFollowUp       = "follow_up"
	KindFacilities     = "facilities"
)

// GenerateParams contains parameters for a single generation request.
type GenerateParams struct {
	Kind        string  // Request kind (see Kind constants)
	System      string  // System instructions
	Prompt      string  // User prompt
	ImageData   []byte  // Optional raw image bytes
	ContentType string  // MIME type of ImageData (e.g., "image/jpeg")
	Temperature float32 // Sampling temperature; 0 uses the provider default
	MaxTokens   int     // Output token cap; 0 uses the provider default
}

// HasImage reports whether the request carries an image.
func (p GenerateParams) HasImage() bool {
	return len(p.ImageData) > 0
}

// Response is the text returned by a provider.
type Response struct {
	Text  string
	Usage UsageInfo
}

// UsageInfo tracks API usage for monitoring.
type UsageInfo struct {
	Model        string        // AI model used
	InputTokens  int           // Tokens in the request
	OutputTokens int           // Tokens in the response
	Duration     time.Duration // Request duration
}

// ProviderConfig contains common configuration for AI providers.
type ProviderConfig struct {
	RequestTimeout time.Duration // Timeout for individual requests
	Temperature    float32       // Default sampling temperature
	TopP           float32       // Default nucleus sampling
	TopK           int32         // Default top-k sampling
	MaxTokens      int           // Default output token cap
}

// DefaultProviderConfig returns the generation defaults shared by all
// providers.
func DefaultProviderConfig() ProviderConfig {
	return ProviderConfig{
		RequestTimeout: 60 * time.Second,
		Temperature:    0.3,
		TopP:           0.95,
		TopK:           40,
		MaxTokens:      2048,
	}
}

// MaxImageSize is the maximum image size in bytes (20MB).
const MaxImageSize = 20 * 1024 * 1024

var supportedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// ValidateImage checks the image fields of params. Requests without an image
// are always valid.
func ValidateImage(params GenerateParams) error {
	if !params.HasImage() {
		return nil
	}
	if len(params.ImageData) > MaxImageSize {
		return fmt.Errorf("%w: image size %d exceeds maximum %d", EAIInvalidImage, len(params.ImageData), MaxImageSize)
	}
	if params.ContentType == "" {
		return fmt.Errorf("%w: content type is required", EAIInvalidImage)
	}
	if !supportedImageTypes[params.ContentType] {
		return fmt.Errorf("%w: unsupported content type %s", EAIInvalidImage, params.ContentType)
	}
	return nil
}

// Error codes for AI provider operations
var (
	// EAIRateLimit indicates the API rate limit has been exceeded
	EAIRateLimit = errors.New("ai provider rate limit exceeded")

	// EAIInvalidImage indicates the image format or content is invalid
	EAIInvalidImage = errors.New("invalid image format or content")

	// EAIContentPolicy indicates the request was blocked by a safety filter
	EAIContentPolicy = errors.New("request blocked by content policy")

	// EAITimeout indicates the request timed out
	EAITimeout = errors.New("ai request timed out")

	// EAIUnavailable indicates the AI service is temporarily unavailable
	EAIUnavailable = errors.New("ai service temporarily unavailable")

	// EAIUnauthorized indicates invalid API credentials
	EAIUnauthorized = errors.New("ai provider authentication failed")

	// EAIEmptyResponse indicates the model replied without any text
	EAIEmptyResponse = errors.New("ai provider returned no text")
)

// IsRetryable returns true if the error is transient and the user may try
// again later. Requests are never retried automatically.
func IsRetryable(err error) bool {
	return errors.Is(err, EAIRateLimit) ||
		errors.Is(err, EAITimeout) ||
		errors.Is(err, EAIUnavailable)
}

// WrapError wraps an error with context about the AI operation
func WrapError(operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("ai %s: %w", operation, err)
}
