package handler

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/DukeRupert/aidnexus/internal/domain"
	"github.com/DukeRupert/aidnexus/internal/service"
	"github.com/DukeRupert/aidnexus/internal/storage"
	"github.com/DukeRupert/aidnexus/internal/voice"
)

// defaultImageDescription labels records saved from a photo without
// accompanying text.
const defaultImageDescription = "Injury photo analysis"

// =============================================================================
// Request/Response Types
// =============================================================================

// AnalysisResponse is returned by both analysis routes.
type AnalysisResponse struct {
	Image          *service.ImageAnalysis    `json:"image,omitempty"`
	Guidance       *service.FirstAidGuidance `json:"guidance,omitempty"`
	Severity       domain.Severity           `json:"severity"`
	EmergencyLevel domain.EmergencyLevel     `json:"emergency_level"`
	Formatted      string                    `json:"formatted,omitempty"`
	Spoken         string                    `json:"spoken"`
	Disclaimer     string                    `json:"disclaimer"`
	Record         *domain.InjuryRecord      `json:"record,omitempty"`
	Photo          *service.StoredPhoto      `json:"photo,omitempty"`
}

type analyzeTextRequest struct {
	Description string `json:"description"`
	Severity    string `json:"severity"`
	BodyPart    string `json:"body_part"`
	Location    string `json:"location"`
	Save        bool   `json:"save"`
}

type descriptionRequest struct {
	Description string `json:"description"`
}

type facilitySearchRequest struct {
	Query    string   `json:"query"`
	Lat      *float64 `json:"lat"`
	Lon      *float64 `json:"lon"`
	RadiusKm float64  `json:"radius_km"`
}

type voiceCommandRequest struct {
	Text string `json:"text"`
}

// VoiceCommandResponse tells the client what a spoken command resolved to.
type VoiceCommandResponse struct {
	Matched bool         `json:"matched"`
	Action  voice.Action `json:"action,omitempty"`
	Page    string       `json:"page,omitempty"`
	Spoken  string       `json:"spoken,omitempty"`
}

// =============================================================================
// Handler Configuration
// =============================================================================

// AssistantHandler serves the model-backed analysis and search routes.
type AssistantHandler struct {
	assistant      service.AssistantService
	records        service.RecordService
	maxUploadBytes int64
	logger         *slog.Logger

	// DefaultRadiusKm applies to point searches that name no radius.
	DefaultRadiusKm float64
}

// NewAssistantHandler creates an AssistantHandler. maxUploadBytes bounds
// the image accepted by the image analysis route.
func NewAssistantHandler(
	assistant service.AssistantService,
	records service.RecordService,
	maxUploadBytes int64,
	logger *slog.Logger,
) *AssistantHandler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = service.DefaultPhotoMaxBytes
	}
	return &AssistantHandler{
		assistant:      assistant,
		records:        records,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}
}

// =============================================================================
// Route Registration
// =============================================================================

// RegisterRoutes registers the assistant routes. Routes that call the model
// are wrapped in limit.
//
// Routes:
// - POST /api/analyze/image         -> AnalyzeImage
// - POST /api/analyze/text          -> AnalyzeText
// - POST /api/emergency-level       -> EmergencyLevel
// - POST /api/follow-up-questions   -> FollowUpQuestions
// - POST /api/facilities/search     -> SearchFacilities
// - GET  /api/geocode/reverse       -> ReverseGeocode
// - POST /api/voice/command         -> VoiceCommand
func (h *AssistantHandler) RegisterRoutes(mux *http.ServeMux, limit func(http.Handler) http.Handler) {
	mux.Handle("POST /api/analyze/image", limit(http.HandlerFunc(h.AnalyzeImage)))
	mux.Handle("POST /api/analyze/text", limit(http.HandlerFunc(h.AnalyzeText)))
	mux.Handle("POST /api/emergency-level", limit(http.HandlerFunc(h.EmergencyLevel)))
	mux.Handle("POST /api/follow-up-questions", limit(http.HandlerFunc(h.FollowUpQuestions)))
	mux.Handle("POST /api/facilities/search", limit(http.HandlerFunc(h.SearchFacilities)))
	mux.HandleFunc("GET /api/geocode/reverse", h.ReverseGeocode)
	mux.HandleFunc("POST /api/voice/command", h.VoiceCommand)
}

// =============================================================================
// Analysis
// =============================================================================

// AnalyzeImage handles POST /api/analyze/image.
//
// Multipart fields: image (required), context, body_part, location, and
// save=true to store the result as a record with the photo attached.
func (h *AssistantHandler) AnalyzeImage(w http.ResponseWriter, r *http.Request) {
	data, contentType, err := h.readImage(w, r)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	userContext := strings.TrimSpace(r.FormValue("context"))
	analysis := h.assistant.AnalyzeImage(r.Context(), data, contentType, userContext)

	resp := AnalysisResponse{
		Image:          &analysis,
		Severity:       analysis.Severity,
		EmergencyLevel: domain.EmergencyLevelRoutine,
		Disclaimer:     service.MedicalDisclaimer(),
	}
	if analysis.Fallback {
		resp.Spoken = analysis.Analysis
		writeJSON(w, http.StatusOK, resp)
		return
	}

	guidance := h.assistant.GenerateFirstAid(r.Context(), analysis.Analysis, string(analysis.Severity))
	resp.Guidance = &guidance
	resp.Formatted = service.FormatGuidance(guidance)
	resp.EmergencyLevel = h.assistant.AssessEmergencyLevel(r.Context(), analysis.Analysis)
	resp.Spoken = voice.InjuryAnalysis(resp.Severity, resp.EmergencyLevel, len(guidance.Steps) > 0)

	if r.FormValue("save") == "true" {
		description := userContext
		if description == "" {
			description = defaultImageDescription
		}
		params := domain.NewInjuryRecordParams{
			Description:    description,
			Severity:       analysis.Severity,
			EmergencyLevel: resp.EmergencyLevel,
			AIAnalysis:     analysis.Analysis,
			Steps:          guidance.Steps,
			BodyPart:       r.FormValue("body_part"),
			Location:       r.FormValue("location"),
		}
		if err := h.save(r, &resp, params, data, contentType); err != nil {
			ErrorResponse(w, r, h.logger, err)
			return
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// readImage reads the "image" part of a multipart upload and checks its
// size and type.
func (h *AssistantHandler) readImage(w http.ResponseWriter, r *http.Request) ([]byte, string, error) {
	const op = "handler.analyze_image"

	// Leave room for the other form fields.
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+maxJSONBody)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, "", domain.Errorf(domain.ETOOLARGE, op, "Image exceeds the %d MB limit", h.maxUploadBytes>>20)
		}
		return nil, "", domain.Wrap(err, domain.EINVALID, op, "Request must be a multipart form")
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		return nil, "", domain.Invalid(op, "An image file is required")
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.maxUploadBytes+1))
	if err != nil {
		return nil, "", domain.Wrap(err, domain.EINVALID, op, "Failed to read image")
	}
	if int64(len(data)) > h.maxUploadBytes {
		return nil, "", domain.Errorf(domain.ETOOLARGE, op, "Image exceeds the %d MB limit", h.maxUploadBytes>>20)
	}
	if len(data) == 0 {
		return nil, "", domain.Invalid(op, "Image is empty")
	}

	contentType := storage.DetectContentType(header.Header.Get("Content-Type"), header.Filename, data)
	if !storage.IsAllowedImageType(contentType) {
		return nil, "", domain.Errorf(domain.EUNSUPPORTED, op, "Unsupported image type %q", contentType)
	}
	return data, contentType, nil
}

// AnalyzeText handles POST /api/analyze/text.
func (h *AssistantHandler) AnalyzeText(w http.ResponseWriter, r *http.Request) {
	var req analyzeTextRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	req.Description = strings.TrimSpace(req.Description)
	if req.Description == "" {
		ValidationErrorResponse(w, r, h.logger,
			domain.NewValidationError("handler.analyze_text", "description", "Describe the injury"))
		return
	}

	guidance := h.assistant.GenerateFirstAid(r.Context(), req.Description, req.Severity)
	severity := domain.ParseSeverity(req.Severity)
	level := h.assistant.AssessEmergencyLevel(r.Context(), req.Description)

	resp := AnalysisResponse{
		Guidance:       &guidance,
		Severity:       severity,
		EmergencyLevel: level,
		Formatted:      service.FormatGuidance(guidance),
		Spoken:         voice.InjuryAnalysis(severity, level, len(guidance.Steps) > 0),
		Disclaimer:     service.MedicalDisclaimer(),
	}

	if req.Save && !guidance.Fallback {
		params := domain.NewInjuryRecordParams{
			Description:    req.Description,
			Severity:       severity,
			EmergencyLevel: level,
			AIAnalysis:     guidance.Text,
			Steps:          guidance.Steps,
			BodyPart:       req.BodyPart,
			Location:       req.Location,
		}
		if err := h.save(r, &resp, params, nil, ""); err != nil {
			ErrorResponse(w, r, h.logger, err)
			return
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// save stores an analysis as a record. A photo that cannot be stored is
// logged and left off the record.
func (h *AssistantHandler) save(r *http.Request, resp *AnalysisResponse, params domain.NewInjuryRecordParams, photo []byte, contentType string) error {
	sid, err := sessionID(r, h.logger)
	if err != nil {
		return err
	}

	rec, err := h.records.Create(r.Context(), sid, params)
	if err != nil {
		return err
	}
	resp.Record = rec
	resp.Spoken += " " + voice.RecordCreated("injury")

	if len(photo) == 0 {
		return nil
	}
	withPhoto, stored, err := h.records.AttachPhoto(r.Context(), sid, rec.ID, domain.PhotoTypeBefore, bytes.NewReader(photo), contentType)
	if err != nil {
		h.logger.Warn("analysis photo not stored", "record_id", rec.ID, "error", err)
		return nil
	}
	resp.Record = withPhoto
	resp.Photo = stored
	return nil
}

// EmergencyLevel handles POST /api/emergency-level.
func (h *AssistantHandler) EmergencyLevel(w http.ResponseWriter, r *http.Request) {
	description, ok := h.description(w, r, "handler.emergency_level")
	if !ok {
		return
	}

	level := h.assistant.AssessEmergencyLevel(r.Context(), description)
	writeJSON(w, http.StatusOK, map[string]any{
		"emergency_level": level,
		"needs_emergency": level == domain.EmergencyLevelEmergency,
	})
}

// FollowUpQuestions handles POST /api/follow-up-questions.
func (h *AssistantHandler) FollowUpQuestions(w http.ResponseWriter, r *http.Request) {
	description, ok := h.description(w, r, "handler.follow_up_questions")
	if !ok {
		return
	}

	questions := h.assistant.FollowUpQuestions(r.Context(), description)
	writeJSON(w, http.StatusOK, map[string]any{"questions": questions})
}

func (h *AssistantHandler) description(w http.ResponseWriter, r *http.Request, op string) (string, bool) {
	var req descriptionRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return "", false
	}
	description := strings.TrimSpace(req.Description)
	if description == "" {
		ValidationErrorResponse(w, r, h.logger, domain.NewValidationError(op, "description", "Describe the injury"))
		return "", false
	}
	return description, true
}

// =============================================================================
// Facilities
// =============================================================================

// SearchFacilities handles POST /api/facilities/search. The body names
// either a free-text query or a lat/lon point with an optional radius.
func (h *AssistantHandler) SearchFacilities(w http.ResponseWriter, r *http.Request) {
	const op = "handler.search_facilities"

	var req facilitySearchRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	switch {
	case req.Lat != nil && req.Lon != nil:
		point := domain.Coordinates{Lat: *req.Lat, Lon: *req.Lon}
		if !point.Valid() {
			ValidationErrorResponse(w, r, h.logger, domain.NewValidationError(op, "lat", "Coordinates are out of range"))
			return
		}
		if req.RadiusKm < 0 {
			ValidationErrorResponse(w, r, h.logger, domain.NewValidationError(op, "radius_km", "Radius must be positive"))
			return
		}
		radius := req.RadiusKm
		if radius == 0 {
			radius = h.DefaultRadiusKm
		}
		writeJSON(w, http.StatusOK, h.assistant.FindFacilitiesNear(r.Context(), point.Lat, point.Lon, radius))

	case strings.TrimSpace(req.Query) != "":
		writeJSON(w, http.StatusOK, h.assistant.FindFacilities(r.Context(), strings.TrimSpace(req.Query)))

	default:
		ValidationErrorResponse(w, r, h.logger, domain.NewValidationError(op, "query", "Enter a location or share your coordinates"))
	}
}

// ReverseGeocode handles GET /api/geocode/reverse?lat=..&lon=..
func (h *AssistantHandler) ReverseGeocode(w http.ResponseWriter, r *http.Request) {
	const op = "handler.reverse_geocode"

	lat, latErr := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	lon, lonErr := strconv.ParseFloat(r.URL.Query().Get("lon"), 64)
	point := domain.Coordinates{Lat: lat, Lon: lon}
	if latErr != nil || lonErr != nil || !point.Valid() {
		BadRequestResponse(w, r, h.logger, "lat and lon must be valid coordinates")
		return
	}

	address, ok := h.assistant.ReverseGeocode(r.Context(), lat, lon)
	if !ok {
		ErrorResponse(w, r, h.logger, domain.Errorf(domain.ENOTFOUND, op, "No address found for this location"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"address":     address,
		"coordinates": point,
	})
}

// =============================================================================
// Voice
// =============================================================================

// VoiceCommand handles POST /api/voice/command.
func (h *AssistantHandler) VoiceCommand(w http.ResponseWriter, r *http.Request) {
	var req voiceCommandRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	action, ok := voice.ProcessCommand(req.Text)
	resp := VoiceCommandResponse{Matched: ok, Action: action, Page: action.Page()}
	switch {
	case !ok:
		resp.Spoken = "Sorry, I didn't catch that. Say 'help' to hear what you can say."
	case action == voice.ActionHelp:
		resp.Spoken = voice.Help()
	case action.IsNavigation():
		resp.Spoken = voice.PageContent(action.Page(), "")
	}
	writeJSON(w, http.StatusOK, resp)
}
