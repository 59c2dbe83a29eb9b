// Package service contains the business logic behind the HTTP API and CLI.
//
// This file implements the assistant service, which turns model output into
// first aid guidance, severity assessments and facility lists.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/DukeRupert/aidnexus/internal/ai"
	"github.com/DukeRupert/aidnexus/internal/domain"
	"github.com/DukeRupert/aidnexus/internal/geo"
	"github.com/DukeRupert/aidnexus/internal/metrics"
	"github.com/DukeRupert/aidnexus/internal/parse"
)

// Fallback texts returned when the model fails or replies with nothing.
const (
	AnalysisEmptyText           = "No visible injury detected in the image."
	AnalysisEmptyRecommendation = "If you have concerns, consult a healthcare professional."
	AnalysisErrorText           = "Unable to analyze the image. Please try again or describe the injury."
	AnalysisErrorRecommendation = "Please consult a healthcare professional."

	FirstAidEmptyText = "Unable to generate first aid instructions. Please consult a healthcare professional."
	FirstAidErrorText = "Unable to generate first aid instructions. Please consult a healthcare professional immediately."

	FacilitiesEmptyText     = "⚠️ No hospitals found. Try another location."
	FacilitiesNearEmptyText = "⚠️ No hospitals found near your location. Try another location."
	FacilitiesErrorText     = "⚠️ Could not search for hospitals. Please check your connection and try again."

	EmergencyBanner = "🚨 **URGENT MEDICAL ATTENTION NEEDED** 🚨"
	WarningsBanner  = "⚠️ **IMPORTANT SAFETY WARNINGS** ⚠️"
)

const medicalDisclaimer = `⚠️ **MEDICAL DISCLAIMER**:
This AI assistant provides general first aid information only and is NOT a substitute for professional medical care.
Always seek immediate professional medical attention for serious injuries, especially if there's:
- Severe bleeding
- Difficulty breathing
- Loss of consciousness
- Suspected broken bones
- Head injuries
- Burns covering large areas

**In emergencies, call your local emergency number immediately (e.g., 911, 999, 112).**`

// DefaultSearchRadiusKm is used by FindFacilitiesNear when no radius is given.
const DefaultSearchRadiusKm = 10.0

// =============================================================================
// Result Types
// =============================================================================

// ImageAnalysis is the assessment of an injury photo.
type ImageAnalysis struct {
	Analysis       string          `json:"analysis"`
	Severity       domain.Severity `json:"severity"`
	Recommendation string          `json:"recommendation"`
	Fallback       bool            `json:"fallback"`
}

// FirstAidGuidance is a set of first aid instructions.
type FirstAidGuidance struct {
	Text           string          `json:"text"`
	Steps          []string        `json:"steps"`
	Sections       []parse.Section `json:"sections"`
	HasWarnings    bool            `json:"has_warnings"`
	NeedsEmergency bool            `json:"needs_emergency"`
	Fallback       bool            `json:"fallback"`
}

// FacilitySearch is the result of a hospital search.
type FacilitySearch struct {
	Text        string               `json:"text"`
	Facilities  []domain.Facility    `json:"facilities"`
	Mappable    []geo.WithNavigation `json:"mappable"`
	UserAddress string               `json:"user_address,omitempty"`
	Fallback    bool                 `json:"fallback"`
}

// =============================================================================
// Interface Definition
// =============================================================================

// AssistantService wraps the model calls of the assistant. Model failures
// never surface as errors: every operation degrades to a fixed fallback
// and flags it.
type AssistantService interface {
	// AnalyzeImage describes an injury photo and rates its severity.
	AnalyzeImage(ctx context.Context, image []byte, contentType, userContext string) ImageAnalysis

	// GenerateFirstAid returns first aid instructions for a description.
	// severity may be empty.
	GenerateFirstAid(ctx context.Context, description, severity string) FirstAidGuidance

	// AssessEmergencyLevel rates the urgency of a description. Failures
	// yield ROUTINE.
	AssessEmergencyLevel(ctx context.Context, description string) domain.EmergencyLevel

	// FollowUpQuestions returns up to four clarifying questions.
	FollowUpQuestions(ctx context.Context, description string) []string

	// FindFacilities searches for hospitals near a free-text location.
	FindFacilities(ctx context.Context, query string) FacilitySearch

	// FindFacilitiesNear searches for hospitals around a point.
	FindFacilitiesNear(ctx context.Context, lat, lon, radiusKm float64) FacilitySearch

	// ReverseGeocode labels a point with an address.
	ReverseGeocode(ctx context.Context, lat, lon float64) (string, bool)

	// ProviderName identifies the model backend.
	ProviderName() string
}

// =============================================================================
// Implementation
// =============================================================================

type assistantService struct {
	provider ai.Provider
	geocoder geo.Geocoder
	parser   *parse.FacilityParser
	logger   *slog.Logger
}

// NewAssistantService creates an AssistantService. geocoder may be nil, in
// which case facilities keep only inline coordinates and reverse lookups
// report nothing.
func NewAssistantService(provider ai.Provider, geocoder geo.Geocoder, logger *slog.Logger) AssistantService {
	var addresses parse.AddressGeocoder
	if geocoder != nil {
		addresses = geocoder
	}
	return &assistantService{
		provider: provider,
		geocoder: geocoder,
		parser:   parse.NewFacilityParser(addresses, logger),
		logger:   logger,
	}
}

func (s *assistantService) ProviderName() string {
	return s.provider.Name()
}

// generate runs one model call and records its outcome. A reply without
// text is reported as ai.EAIEmptyResponse.
func (s *assistantService) generate(ctx context.Context, params ai.GenerateParams) (string, error) {
	start := time.Now()

	resp, err := s.provider.Generate(ctx, params)
	if err != nil {
		metrics.AICallFailed(params.Kind, time.Since(start))
		s.logger.Warn("model call failed",
			"kind", params.Kind,
			"provider", s.provider.Name(),
			"retryable", ai.IsRetryable(err),
			"error", err,
		)
		return "", err
	}

	metrics.AICallSucceeded(params.Kind, time.Since(start), resp.Usage.InputTokens, resp.Usage.OutputTokens)
	s.logger.Debug("model call completed",
		"kind", params.Kind,
		"model", resp.Usage.Model,
		"input_tokens", resp.Usage.InputTokens,
		"output_tokens", resp.Usage.OutputTokens,
		"duration_ms", resp.Usage.Duration.Milliseconds(),
	)

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", ai.EAIEmptyResponse
	}
	return text, nil
}

// AnalyzeImage implements AssistantService.
func (s *assistantService) AnalyzeImage(ctx context.Context, image []byte, contentType, userContext string) ImageAnalysis {
	text, err := s.generate(ctx, ai.ImageAnalysisParams(image, contentType, userContext))
	switch {
	case errors.Is(err, ai.EAIEmptyResponse):
		return ImageAnalysis{
			Analysis:       AnalysisEmptyText,
			Severity:       domain.SeverityUnknown,
			Recommendation: AnalysisEmptyRecommendation,
			Fallback:       true,
		}
	case err != nil:
		return ImageAnalysis{
			Analysis:       AnalysisErrorText,
			Severity:       domain.SeverityUnknown,
			Recommendation: AnalysisErrorRecommendation,
			Fallback:       true,
		}
	}

	severity := parse.Severity(text)
	return ImageAnalysis{
		Analysis:       text,
		Severity:       severity,
		Recommendation: parse.Recommendation(severity),
	}
}

// GenerateFirstAid implements AssistantService.
func (s *assistantService) GenerateFirstAid(ctx context.Context, description, severity string) FirstAidGuidance {
	text, err := s.generate(ctx, ai.FirstAidParams(description, severity))
	switch {
	case errors.Is(err, ai.EAIEmptyResponse):
		return FirstAidGuidance{
			Text:        FirstAidEmptyText,
			Steps:       []string{},
			Sections:    []parse.Section{},
			HasWarnings: true,
			Fallback:    true,
		}
	case err != nil:
		return FirstAidGuidance{
			Text:           FirstAidErrorText,
			Steps:          []string{},
			Sections:       []parse.Section{},
			HasWarnings:    true,
			NeedsEmergency: true,
			Fallback:       true,
		}
	}

	return FirstAidGuidance{
		Text:           text,
		Steps:          GuidanceSteps(text),
		Sections:       parse.Sections(text),
		HasWarnings:    parse.HasWarnings(text),
		NeedsEmergency: parse.NeedsEmergency(severity),
	}
}

// GuidanceSteps returns the steps of a first aid reply. Steps under a STEPS
// header win; otherwise every enumerated line in the reply counts.
func GuidanceSteps(text string) []string {
	if body := parse.SectionBody(parse.Sections(text), "STEPS"); body != "" {
		if steps := parse.ExtractSteps(body); len(steps) > 0 {
			return steps
		}
	}
	return parse.ExtractSteps(text)
}

// AssessEmergencyLevel implements AssistantService.
func (s *assistantService) AssessEmergencyLevel(ctx context.Context, description string) domain.EmergencyLevel {
	text, err := s.generate(ctx, ai.EmergencyLevelParams(description))
	if err != nil {
		return domain.EmergencyLevelRoutine
	}
	return parse.EmergencyLevel(text)
}

// FollowUpQuestions implements AssistantService.
func (s *assistantService) FollowUpQuestions(ctx context.Context, description string) []string {
	text, err := s.generate(ctx, ai.FollowUpParams(description))
	if err != nil {
		return []string{}
	}
	return parse.FollowUpQuestions(text)
}

// FindFacilities implements AssistantService.
func (s *assistantService) FindFacilities(ctx context.Context, query string) FacilitySearch {
	return s.searchFacilities(ctx, ai.FacilitySearchParams(query), FacilitiesEmptyText, "")
}

// FindFacilitiesNear implements AssistantService.
func (s *assistantService) FindFacilitiesNear(ctx context.Context, lat, lon, radiusKm float64) FacilitySearch {
	if radiusKm <= 0 {
		radiusKm = DefaultSearchRadiusKm
	}
	address, _ := s.ReverseGeocode(ctx, lat, lon)
	return s.searchFacilities(ctx, ai.FacilityNearParams(lat, lon, radiusKm, address), FacilitiesNearEmptyText, address)
}

func (s *assistantService) searchFacilities(ctx context.Context, params ai.GenerateParams, emptyText, address string) FacilitySearch {
	text, err := s.generate(ctx, params)
	switch {
	case errors.Is(err, ai.EAIEmptyResponse):
		return emptySearch(emptyText, address)
	case err != nil:
		return emptySearch(FacilitiesErrorText, address)
	}

	facilities := s.parser.Parse(ctx, text)
	return FacilitySearch{
		Text:        text,
		Facilities:  facilities,
		Mappable:    geo.AttachNavigation(domain.MappableFacilities(facilities)),
		UserAddress: address,
	}
}

func emptySearch(text, address string) FacilitySearch {
	return FacilitySearch{
		Text:        text,
		Facilities:  []domain.Facility{},
		Mappable:    []geo.WithNavigation{},
		UserAddress: address,
		Fallback:    true,
	}
}

// ReverseGeocode implements AssistantService.
func (s *assistantService) ReverseGeocode(ctx context.Context, lat, lon float64) (string, bool) {
	if s.geocoder == nil {
		return "", false
	}
	if !(domain.Coordinates{Lat: lat, Lon: lon}).Valid() {
		return "", false
	}
	return s.geocoder.ReverseGeocode(ctx, lat, lon)
}

// =============================================================================
// Formatting
// =============================================================================

// FormatGuidance prefixes the guidance text with its banners. The warnings
// banner, when present, comes first.
func FormatGuidance(g FirstAidGuidance) string {
	text := g.Text
	if g.NeedsEmergency {
		text = EmergencyBanner + "\n\n" + text
	}
	if g.HasWarnings {
		text = WarningsBanner + "\n\n" + text
	}
	return text
}

// MedicalDisclaimer returns the fixed disclaimer shown with all guidance.
func MedicalDisclaimer() string {
	return medicalDisclaimer
}
