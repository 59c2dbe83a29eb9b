// Package gemini implements ai.Provider on Google's Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/DukeRupert/aidnexus/internal/ai"
)

// DefaultModel is the default Gemini model. It accepts both text and images.
const DefaultModel = "gemini-1.5-flash"

// Config contains configuration for the Gemini provider
type Config struct {
	APIKey         string
	Model          string
	ProviderConfig ai.ProviderConfig
}

// Provider implements ai.Provider using the Gemini API.
type Provider struct {
	config Config
	client *genai.Client
	logger *slog.Logger
}

// New creates a Gemini provider. Close must be called to release the
// underlying client.
func New(ctx context.Context, config Config, logger *slog.Logger) (*Provider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	defaults := ai.DefaultProviderConfig()
	if config.Model == "" {
		config.Model = DefaultModel
	}
	if config.ProviderConfig.RequestTimeout == 0 {
		config.ProviderConfig.RequestTimeout = defaults.RequestTimeout
	}
	if config.ProviderConfig.Temperature == 0 {
		config.ProviderConfig.Temperature = defaults.Temperature
	}
	if config.ProviderConfig.TopP == 0 {
		config.ProviderConfig.TopP = defaults.TopP
	}
	if config.ProviderConfig.TopK == 0 {
		config.ProviderConfig.TopK = defaults.TopK
	}
	if config.ProviderConfig.MaxTokens == 0 {
		config.ProviderConfig.MaxTokens = defaults.MaxTokens
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(config.APIKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	return &Provider{
		config: config,
		client: client,
		logger: logger,
	}, nil
}

// Name implements ai.Provider.
func (p *Provider) Name() string {
	return "gemini"
}

// Close releases the underlying client.
func (p *Provider) Close() error {
	return p.client.Close()
}

// safetySettings block harmful content while letting injury descriptions
// through: dangerous content is only blocked at high probability.
var safetySettings = []*genai.SafetySetting{
	{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockMediumAndAbove},
	{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockMediumAndAbove},
	{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockMediumAndAbove},
	{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockOnlyHigh},
}

// Generate sends a single GenerateContent request.
func (p *Provider) Generate(ctx context.Context, params ai.GenerateParams) (*ai.Response, error) {
	startTime := time.Now()

	if err := ai.ValidateImage(params); err != nil {
		return nil, ai.WrapError("generate", err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.config.ProviderConfig.RequestTimeout)
	defer cancel()

	model := p.model(params)

	var parts []genai.Part
	if params.HasImage() {
		parts = append(parts, genai.Blob{MIMEType: params.ContentType, Data: params.ImageData})
	}
	parts = append(parts, genai.Text(params.Prompt))

	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return nil, ai.WrapError("generate content", p.mapError(ctx, err))
	}

	usage := ai.UsageInfo{
		Model:    p.config.Model,
		Duration: time.Since(startTime),
	}
	if resp.UsageMetadata != nil {
		usage.InputTokens = int(resp.UsageMetadata.PromptTokenCount)
		usage.OutputTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}

	return &ai.Response{
		Text:  responseText(resp),
		Usage: usage,
	}, nil
}

func (p *Provider) model(params ai.GenerateParams) *genai.GenerativeModel {
	cfg := p.config.ProviderConfig

	model := p.client.GenerativeModel(p.config.Model)
	model.SafetySettings = safetySettings

	temperature := params.Temperature
	if temperature == 0 {
		temperature = cfg.Temperature
	}
	maxTokens := params.MaxTokens
	if maxTokens == 0 {
		maxTokens = cfg.MaxTokens
	}
	model.SetTemperature(temperature)
	model.SetTopP(cfg.TopP)
	model.SetTopK(cfg.TopK)
	model.SetMaxOutputTokens(int32(maxTokens))

	if params.System != "" {
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(params.System)},
		}
	}
	return model
}

// responseText concatenates the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	c := resp.Candidates[0]
	if c.Content == nil {
		return ""
	}

	var b strings.Builder
	for _, part := range c.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	return strings.TrimSpace(b.String())
}

// mapError maps client errors to the ai error taxonomy.
func (p *Provider) mapError(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return ai.EAITimeout
	}

	var blocked *genai.BlockedError
	if errors.As(err, &blocked) {
		return ai.EAIContentPolicy
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		p.logger.Warn("gemini API error", "status", gerr.Code, "message", gerr.Message)
		switch gerr.Code {
		case http.StatusUnauthorized, http.StatusForbidden:
			return ai.EAIUnauthorized
		case http.StatusTooManyRequests:
			return ai.EAIRateLimit
		case http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusGatewayTimeout, http.StatusInternalServerError:
			return ai.EAIUnavailable
		}
		return err
	}

	// gRPC transport errors carry their status only in the message.
	msg := err.Error()
	switch {
	case strings.Contains(msg, "RESOURCE_EXHAUSTED"), strings.Contains(msg, "ResourceExhausted"):
		return ai.EAIRateLimit
	case strings.Contains(msg, "PERMISSION_DENIED"), strings.Contains(msg, "PermissionDenied"),
		strings.Contains(msg, "API_KEY_INVALID"):
		return ai.EAIUnauthorized
	case strings.Contains(msg, "UNAVAILABLE"), strings.Contains(msg, "Unavailable"):
		return ai.EAIUnavailable
	case strings.Contains(msg, "DEADLINE_EXCEEDED"), strings.Contains(msg, "DeadlineExceeded"):
		return ai.EAITimeout
	}

	p.logger.Warn("gemini request failed", "error", err)
	return err
}
