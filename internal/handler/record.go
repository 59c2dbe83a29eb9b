package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/DukeRupert/aidnexus/internal/domain"
	"github.com/DukeRupert/aidnexus/internal/records"
	"github.com/DukeRupert/aidnexus/internal/service"
	"github.com/DukeRupert/aidnexus/internal/voice"
)

// =============================================================================
// Request/Response Types
// =============================================================================

type createRecordRequest struct {
	InjuryType     string   `json:"injury_type"`
	Description    string   `json:"description"`
	Severity       string   `json:"severity"`
	EmergencyLevel string   `json:"emergency_level"`
	AIAnalysis     string   `json:"ai_analysis"`
	Steps          []string `json:"steps"`
	BodyPart       string   `json:"body_part"`
	Location       string   `json:"location"`
	Photos         []string `json:"photos"`
}

func (req createRecordRequest) params() domain.NewInjuryRecordParams {
	return domain.NewInjuryRecordParams{
		InjuryType:     strings.TrimSpace(req.InjuryType),
		Description:    strings.TrimSpace(req.Description),
		Severity:       domain.ParseSeverity(req.Severity),
		EmergencyLevel: domain.ParseEmergencyLevel(req.EmergencyLevel),
		AIAnalysis:     req.AIAnalysis,
		Steps:          req.Steps,
		BodyPart:       strings.TrimSpace(req.BodyPart),
		Location:       strings.TrimSpace(req.Location),
		Photos:         req.Photos,
	}
}

type progressRequest struct {
	Progress  *int   `json:"progress"`
	PainLevel *int   `json:"pain_level"`
	Notes     string `json:"notes"`
	Photo     string `json:"photo"`
}

type noteRequest struct {
	Content string `json:"content"`
}

type medicationRequest struct {
	Name      string `json:"name"`
	Dosage    string `json:"dosage"`
	Frequency string `json:"frequency"`
}

type completeStepRequest struct {
	Notes string `json:"notes"`
}

// RecordResponse wraps a record with its display fields.
type RecordResponse struct {
	*domain.InjuryRecord
	FormattedDate string `json:"formatted_date"`
	AgeDays       int    `json:"age_days"`
}

// ListResponse is returned by GET /api/records.
type ListResponse struct {
	Records []RecordResponse `json:"records"`
	Count   int              `json:"count"`
}

// StatisticsResponse adds a spoken summary to the session statistics.
type StatisticsResponse struct {
	domain.Statistics
	Spoken string `json:"spoken"`
}

// PhotoResponse is returned after a photo upload.
type PhotoResponse struct {
	Record RecordResponse       `json:"record"`
	Photo  *service.StoredPhoto `json:"photo"`
}

// =============================================================================
// Handler Configuration
// =============================================================================

// RecordHandler serves the session's health records.
type RecordHandler struct {
	records        service.RecordService
	maxUploadBytes int64
	now            func() time.Time
	logger         *slog.Logger
}

// NewRecordHandler creates a RecordHandler.
func NewRecordHandler(records service.RecordService, maxUploadBytes int64, logger *slog.Logger) *RecordHandler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = service.DefaultPhotoMaxBytes
	}
	return &RecordHandler{
		records:        records,
		maxUploadBytes: maxUploadBytes,
		now:            time.Now,
		logger:         logger,
	}
}

// =============================================================================
// Route Registration
// =============================================================================

// RegisterRoutes registers all record routes. They must be mounted behind
// the session middleware.
//
// Routes:
// - GET    /api/records                               -> List
// - POST   /api/records                               -> Create
// - POST   /api/records/preview                       -> Preview
// - GET    /api/records/stats                         -> Statistics
// - GET    /api/records/{id}                          -> Get
// - DELETE /api/records/{id}                          -> Delete
// - GET    /api/records/{id}/export                   -> Export
// - POST   /api/records/{id}/progress                 -> UpdateProgress
// - POST   /api/records/{id}/notes                    -> AddNote
// - POST   /api/records/{id}/medications              -> AddMedication
// - POST   /api/records/{id}/photos                   -> AttachPhoto
// - POST   /api/records/{id}/archive                  -> Archive
// - POST   /api/records/{id}/steps/{index}/complete   -> CompleteStep
func (h *RecordHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/records", h.List)
	mux.HandleFunc("POST /api/records", h.Create)
	mux.HandleFunc("POST /api/records/preview", h.Preview)
	mux.HandleFunc("GET /api/records/stats", h.Statistics)
	mux.HandleFunc("GET /api/records/{id}", h.Get)
	mux.HandleFunc("DELETE /api/records/{id}", h.Delete)
	mux.HandleFunc("GET /api/records/{id}/export", h.Export)
	mux.HandleFunc("POST /api/records/{id}/progress", h.UpdateProgress)
	mux.HandleFunc("POST /api/records/{id}/notes", h.AddNote)
	mux.HandleFunc("POST /api/records/{id}/medications", h.AddMedication)
	mux.HandleFunc("POST /api/records/{id}/photos", h.AttachPhoto)
	mux.HandleFunc("POST /api/records/{id}/archive", h.Archive)
	mux.HandleFunc("POST /api/records/{id}/steps/{index}/complete", h.CompleteStep)
}

func (h *RecordHandler) present(r *domain.InjuryRecord) RecordResponse {
	return RecordResponse{
		InjuryRecord:  r,
		FormattedDate: r.FormattedDate(),
		AgeDays:       r.AgeDays(h.now()),
	}
}

// target resolves the session and record ID of a per-record route.
func (h *RecordHandler) target(w http.ResponseWriter, r *http.Request) (string, uuid.UUID, bool) {
	sid, err := sessionID(r, h.logger)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return "", uuid.Nil, false
	}
	id, err := recordID(r)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return "", uuid.Nil, false
	}
	return sid, id, true
}

// respond writes the record returned by a mutation, or the error.
func (h *RecordHandler) respond(w http.ResponseWriter, r *http.Request, rec *domain.InjuryRecord, err error) {
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, h.present(rec))
}

// =============================================================================
// Collection
// =============================================================================

// List handles GET /api/records.
//
// Query parameters: sort (timestamp, severity, status), order (asc, desc;
// default desc), and the filters severity, status, body_part, from, to, q.
// When any filter is set, matches are returned in insertion order.
func (h *RecordHandler) List(w http.ResponseWriter, r *http.Request) {
	sid, err := sessionID(r, h.logger)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	q := r.URL.Query()
	sortBy := records.SortField(q.Get("sort"))
	if sortBy == "" {
		sortBy = records.SortByTimestamp
	}
	if !sortBy.IsValid() {
		BadRequestResponse(w, r, h.logger, "sort must be timestamp, severity or status")
		return
	}
	descending := q.Get("order") != "asc"

	filter, err := parseFilter(q)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	list, err := h.records.List(r.Context(), sid, sortBy, descending, filter)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	out := make([]RecordResponse, len(list))
	for i, rec := range list {
		out[i] = h.present(rec)
	}
	writeJSON(w, http.StatusOK, ListResponse{Records: out, Count: len(out)})
}

// parseFilter builds a filter from query parameters, or returns nil when
// none are set.
func parseFilter(q url.Values) (*records.Filter, error) {
	const op = "handler.parse_filter"

	f := records.Filter{
		BodyPart: q.Get("body_part"),
		Search:   q.Get("q"),
	}
	set := f.BodyPart != "" || f.Search != ""

	if v := q.Get("severity"); v != "" {
		f.Severity = domain.Severity(strings.ToUpper(v))
		if !f.Severity.IsValid() {
			return nil, domain.Invalid(op, "Unknown severity filter")
		}
		set = true
	}
	if v := q.Get("status"); v != "" {
		f.Status = domain.Status(strings.ToLower(v))
		if !f.Status.IsValid() {
			return nil, domain.Invalid(op, "Unknown status filter")
		}
		set = true
	}
	if v := q.Get("from"); v != "" {
		t, err := parseDate(v, false)
		if err != nil {
			return nil, domain.Invalid(op, "from must be a date (YYYY-MM-DD) or RFC 3339 timestamp")
		}
		f.DateFrom = &t
		set = true
	}
	if v := q.Get("to"); v != "" {
		t, err := parseDate(v, true)
		if err != nil {
			return nil, domain.Invalid(op, "to must be a date (YYYY-MM-DD) or RFC 3339 timestamp")
		}
		f.DateTo = &t
		set = true
	}

	if !set {
		return nil, nil
	}
	return &f, nil
}

// parseDate accepts an RFC 3339 timestamp or a bare date. A bare upper
// bound covers the whole day.
func parseDate(v string, endOfDay bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.DateOnly, v)
	if err != nil {
		return time.Time{}, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t, nil
}

// Create handles POST /api/records.
func (h *RecordHandler) Create(w http.ResponseWriter, r *http.Request) {
	sid, err := sessionID(r, h.logger)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	var req createRecordRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	rec, err := h.records.Create(r.Context(), sid, req.params())
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	w.Header().Set("Location", "/api/records/"+rec.ID.String())
	writeJSON(w, http.StatusCreated, h.present(rec))
}

// Preview handles POST /api/records/preview. Nothing is stored.
func (h *RecordHandler) Preview(w http.ResponseWriter, r *http.Request) {
	var req createRecordRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, h.present(h.records.Preview(req.params())))
}

// Statistics handles GET /api/records/stats.
func (h *RecordHandler) Statistics(w http.ResponseWriter, r *http.Request) {
	sid, err := sessionID(r, h.logger)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	stats, err := h.records.Statistics(r.Context(), sid)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, StatisticsResponse{Statistics: stats, Spoken: voice.Statistics(stats)})
}

// =============================================================================
// Single Record
// =============================================================================

// Get handles GET /api/records/{id}.
func (h *RecordHandler) Get(w http.ResponseWriter, r *http.Request) {
	sid, id, ok := h.target(w, r)
	if !ok {
		return
	}
	rec, err := h.records.Get(r.Context(), sid, id)
	h.respond(w, r, rec, err)
}

// Delete handles DELETE /api/records/{id}.
func (h *RecordHandler) Delete(w http.ResponseWriter, r *http.Request) {
	sid, id, ok := h.target(w, r)
	if !ok {
		return
	}
	if err := h.records.Delete(r.Context(), sid, id); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Export handles GET /api/records/{id}/export as a file download.
func (h *RecordHandler) Export(w http.ResponseWriter, r *http.Request) {
	sid, id, ok := h.target(w, r)
	if !ok {
		return
	}

	data, err := h.records.Export(r.Context(), sid, id)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="injury_record_%s.json"`, id))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// UpdateProgress handles POST /api/records/{id}/progress.
func (h *RecordHandler) UpdateProgress(w http.ResponseWriter, r *http.Request) {
	sid, id, ok := h.target(w, r)
	if !ok {
		return
	}

	var req progressRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	if req.Progress == nil {
		ValidationErrorResponse(w, r, h.logger,
			domain.NewValidationError("handler.update_progress", "progress", "Progress is required"))
		return
	}

	rec, err := h.records.UpdateProgress(r.Context(), sid, id, records.ProgressUpdate{
		Progress:  *req.Progress,
		PainLevel: req.PainLevel,
		Notes:     strings.TrimSpace(req.Notes),
		Photo:     req.Photo,
	})
	h.respond(w, r, rec, err)
}

// AddNote handles POST /api/records/{id}/notes.
func (h *RecordHandler) AddNote(w http.ResponseWriter, r *http.Request) {
	sid, id, ok := h.target(w, r)
	if !ok {
		return
	}

	var req noteRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	rec, err := h.records.AddNote(r.Context(), sid, id, req.Content)
	h.respond(w, r, rec, err)
}

// AddMedication handles POST /api/records/{id}/medications.
func (h *RecordHandler) AddMedication(w http.ResponseWriter, r *http.Request) {
	sid, id, ok := h.target(w, r)
	if !ok {
		return
	}

	var req medicationRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	rec, err := h.records.AddMedication(r.Context(), sid, id, req.Name, req.Dosage, req.Frequency)
	h.respond(w, r, rec, err)
}

// AttachPhoto handles POST /api/records/{id}/photos.
//
// Multipart fields: photo (required) and type (before, during, after;
// default during).
func (h *RecordHandler) AttachPhoto(w http.ResponseWriter, r *http.Request) {
	const op = "handler.attach_photo"

	sid, id, ok := h.target(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+maxJSONBody)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			ErrorResponse(w, r, h.logger, domain.Errorf(domain.ETOOLARGE, op, "Photo exceeds the %d MB limit", h.maxUploadBytes>>20))
			return
		}
		BadRequestResponse(w, r, h.logger, "Request must be a multipart form")
		return
	}

	file, header, err := r.FormFile("photo")
	if err != nil {
		BadRequestResponse(w, r, h.logger, "A photo file is required")
		return
	}
	defer file.Close()

	photoType := domain.PhotoType(strings.ToLower(r.FormValue("type")))
	if photoType == "" {
		photoType = domain.PhotoTypeDuring
	}

	rec, stored, err := h.records.AttachPhoto(r.Context(), sid, id, photoType, file, header.Header.Get("Content-Type"))
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, PhotoResponse{Record: h.present(rec), Photo: stored})
}

// Archive handles POST /api/records/{id}/archive.
func (h *RecordHandler) Archive(w http.ResponseWriter, r *http.Request) {
	sid, id, ok := h.target(w, r)
	if !ok {
		return
	}
	rec, err := h.records.Archive(r.Context(), sid, id)
	h.respond(w, r, rec, err)
}

// CompleteStep handles POST /api/records/{id}/steps/{index}/complete. The
// body is optional.
func (h *RecordHandler) CompleteStep(w http.ResponseWriter, r *http.Request) {
	sid, id, ok := h.target(w, r)
	if !ok {
		return
	}

	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		BadRequestResponse(w, r, h.logger, "Step index must be a number")
		return
	}

	var req completeStepRequest
	if err := decodeJSON(w, r, &req, true); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	rec, err := h.records.CompleteStep(r.Context(), sid, id, index, strings.TrimSpace(req.Notes))
	h.respond(w, r, rec, err)
}
