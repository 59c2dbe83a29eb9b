package mock

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/DukeRupert/aidnexus/internal/ai"
)

// Provider is a mock AI provider for testing and development
type Provider struct {
	logger *slog.Logger
	mu     sync.Mutex

	// Configurable responses for testing, keyed by request kind. A kind
	// without an entry gets the canned default.
	Responses map[string]string
	Error     error

	// Call tracking for testing
	Calls      int
	LastParams ai.GenerateParams
}

// New creates a new mock AI provider
func New(logger *slog.Logger) *Provider {
	return &Provider{
		logger:    logger,
		Responses: map[string]string{},
	}
}

// Name implements ai.Provider.
func (p *Provider) Name() string {
	return "mock"
}

// Generate returns the configured response for the request kind.
func (p *Provider) Generate(ctx context.Context, params ai.GenerateParams) (*ai.Response, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.Calls++
	p.LastParams = params

	if p.Error != nil {
		return nil, p.Error
	}
	if err := ai.ValidateImage(params); err != nil {
		return nil, ai.WrapError("generate", err)
	}

	text, ok := p.Responses[params.Kind]
	if !ok {
		text = defaultResponses[params.Kind]
	}

	p.logger.Debug("mock AI response", "kind", params.Kind, "length", len(text))

	return &ai.Response{
		Text: text,
		Usage: ai.UsageInfo{
			Model:        "mock-ai-v1",
			InputTokens:  len(params.System+params.Prompt) / 4,
			OutputTokens: len(text) / 4,
			Duration:     25 * time.Millisecond,
		},
	}, nil
}

// Reset clears call counters and custom responses for testing
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Calls = 0
	p.LastParams = ai.GenerateParams{}
	p.Responses = map[string]string{}
	p.Error = nil
}

var defaultResponses = map[string]string{
	ai.KindImageAnalysis: `ANALYSIS: A shallow laceration about 2 cm long on the palm with minor bleeding. Edges are clean and close together.
SEVERITY: MINOR
OBSERVATIONS: No visible debris, no deformity, bleeding appears controlled.`,

	ai.KindFirstAid: `IMMEDIATE_ACTIONS: Make sure the area is safe and wash your hands before touching the wound.
STEPS:
1. Apply gentle pressure with a clean cloth until the bleeding stops
2. Rinse the cut under clean running water
3. Apply a thin layer of antibiotic ointment
4. Cover with a sterile bandage and change it daily
WARNINGS:
- Do not use hydrogen peroxide or alcohol directly in the wound
WHEN_TO_SEEK_HELP: Seek care if bleeding does not stop after 10 minutes, the wound is deep, or you see signs of infection.`,

	ai.KindEmergencyLevel: "ROUTINE",

	ai.KindFollowUp: `1. When did the injury happen?
2. Is the wound still bleeding?
3. Do you feel numbness or tingling near the injury?
4. Are your tetanus shots up to date?`,

	ai.KindFacilities: `Here are hospitals near the requested location:
1. City General Hospital | 100 Main St, Austin, TX | 30.2672, -97.7431
2. St. David's Medical Center | 919 E 32nd St, Austin, TX | 30.2905, -97.7262
3. Dell Seton Medical Center, 1500 Red River St, Austin, TX`,
}
