package handler

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DukeRupert/aidnexus/internal/domain"
	"github.com/DukeRupert/aidnexus/internal/session"
)

func createRecord(t *testing.T, env *testEnv, body map[string]any) RecordResponse {
	t.Helper()
	rec := env.do(t, http.MethodPost, "/api/records", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[RecordResponse](t, rec)
	assert.Equal(t, "/api/records/"+created.ID.String(), rec.Header().Get("Location"))
	return created
}

func TestRecords_Lifecycle(t *testing.T) {
	env := newTestEnv(t, 0)

	created := createRecord(t, env, map[string]any{
		"description":     "Second-degree burn from the stove",
		"severity":        "Moderate",
		"emergency_level": "urgent",
		"body_part":       "Arm",
		"steps":           []string{"Cool under running water", "Cover loosely"},
	})
	assert.Equal(t, domain.SeverityModerate, created.Severity)
	assert.Equal(t, domain.EmergencyLevelUrgent, created.EmergencyLevel)
	assert.Equal(t, domain.StatusActive, created.Status)
	assert.NotEmpty(t, created.FormattedDate)

	path := "/api/records/" + created.ID.String()

	got := decode[RecordResponse](t, env.do(t, http.MethodGet, path, nil))
	assert.Equal(t, created.ID, got.ID)

	rec := env.do(t, http.MethodPost, path+"/progress", map[string]any{"progress": 80, "pain_level": 14, "notes": "less red"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	progressed := decode[RecordResponse](t, rec)
	assert.Equal(t, domain.StatusRecovering, progressed.Status)
	require.NotNil(t, progressed.Recovery.PainLevel)
	assert.Equal(t, 10, *progressed.Recovery.PainLevel)

	rec = env.do(t, http.MethodPost, path+"/notes", map[string]string{"content": "Changed dressing"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[RecordResponse](t, rec).Notes, 1)

	rec = env.do(t, http.MethodPost, path+"/medications", map[string]string{"name": "Ibuprofen", "dosage": "200mg", "frequency": "every 6 hours"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Ibuprofen", decode[RecordResponse](t, rec).Medications[0].Name)

	rec = env.do(t, http.MethodPost, path+"/steps/1/complete", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, []int{1}, decode[RecordResponse](t, rec).FirstAidSteps.Completed)

	assert.Equal(t, http.StatusConflict, env.do(t, http.MethodPost, path+"/steps/1/complete", nil).Code)
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodPost, path+"/steps/9/complete", nil).Code)
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodPost, path+"/steps/one/complete", nil).Code)

	rec = env.do(t, http.MethodGet, path+"/export", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "injury_record_"+created.ID.String()+".json")
	var exported domain.InjuryRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &exported))
	assert.Equal(t, created.ID, exported.ID)

	rec = env.do(t, http.MethodPost, path+"/archive", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.StatusArchived, decode[RecordResponse](t, rec).Status)

	assert.Equal(t, http.StatusNoContent, env.do(t, http.MethodDelete, path, nil).Code)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, path, nil).Code)
}

func TestRecords_CreateRejectsEmpty(t *testing.T) {
	env := newTestEnv(t, 0)

	rec := env.do(t, http.MethodPost, "/api/records", map[string]any{"severity": "minor"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, domain.EINVALID, decode[JSONError](t, rec).Error.Code)
}

func TestRecords_Preview(t *testing.T) {
	env := newTestEnv(t, 0)

	rec := env.do(t, http.MethodPost, "/api/records/preview", map[string]any{"description": "Bee sting"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Bee sting", decode[RecordResponse](t, rec).InjuryType)

	assert.Equal(t, 0, decode[ListResponse](t, env.do(t, http.MethodGet, "/api/records", nil)).Count)
}

func TestRecords_ListAndStatistics(t *testing.T) {
	env := newTestEnv(t, 0)

	createRecord(t, env, map[string]any{"description": "Paper cut", "severity": "minor", "body_part": "Hand"})
	createRecord(t, env, map[string]any{"description": "Sprained wrist", "severity": "moderate", "body_part": "Hand"})
	createRecord(t, env, map[string]any{"description": "Deep gash", "severity": "severe", "body_part": "Leg"})

	all := decode[ListResponse](t, env.do(t, http.MethodGet, "/api/records?sort=severity&order=asc", nil))
	require.Equal(t, 3, all.Count)
	assert.Equal(t, domain.SeverityMinor, all.Records[0].Severity)
	assert.Equal(t, domain.SeveritySevere, all.Records[2].Severity)

	hands := decode[ListResponse](t, env.do(t, http.MethodGet, "/api/records?body_part=HAND", nil))
	assert.Equal(t, 2, hands.Count)

	severe := decode[ListResponse](t, env.do(t, http.MethodGet, "/api/records?severity=severe&q=gash", nil))
	require.Equal(t, 1, severe.Count)
	assert.Equal(t, "Deep gash", severe.Records[0].Description)

	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodGet, "/api/records?sort=color", nil).Code)
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodGet, "/api/records?status=lost", nil).Code)
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodGet, "/api/records?from=yesterday", nil).Code)

	rec := env.do(t, http.MethodGet, "/api/records/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode[StatisticsResponse](t, rec)
	assert.Equal(t, 3, stats.TotalRecords)
	assert.Equal(t, 3, stats.ActiveInjuries)
	require.NotNil(t, stats.MostCommonBodyPart)
	assert.Equal(t, "Hand", *stats.MostCommonBodyPart)
	assert.Contains(t, stats.Spoken, "You have 3 total records.")
}

func TestRecords_SessionIsolation(t *testing.T) {
	env := newTestEnv(t, 0)
	created := createRecord(t, env, map[string]any{"description": "Twisted ankle"})

	other := *env
	other.session = session.NewID()

	assert.Equal(t, http.StatusNotFound, other.do(t, http.MethodGet, "/api/records/"+created.ID.String(), nil).Code)
	assert.Equal(t, 0, decode[ListResponse](t, other.do(t, http.MethodGet, "/api/records", nil)).Count)
}

func TestRecords_BadIDs(t *testing.T) {
	env := newTestEnv(t, 0)

	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodGet, "/api/records/not-a-uuid", nil).Code)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/api/records/"+uuid.NewString(), nil).Code)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodPost, "/api/records/"+uuid.NewString()+"/notes", map[string]string{"content": "x"}).Code)
}

func TestRecords_ProgressRequiresValue(t *testing.T) {
	env := newTestEnv(t, 0)
	created := createRecord(t, env, map[string]any{"description": "Bruise"})

	rec := env.do(t, http.MethodPost, "/api/records/"+created.ID.String()+"/progress", map[string]any{"notes": "fine"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[JSONError](t, rec).Error.Fields, "progress")
}

func TestRecords_AttachPhoto(t *testing.T) {
	env := newTestEnv(t, 0)
	created := createRecord(t, env, map[string]any{"description": "Scraped knee"})
	path := "/api/records/" + created.ID.String() + "/photos"

	rec := env.upload(t, path, "photo", "knee.jpg", "image/jpeg", testJPEG(t, 32, 32), map[string]string{"type": "after"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	resp := decode[PhotoResponse](t, rec)
	require.Len(t, resp.Record.Photos.After, 1)
	assert.Equal(t, resp.Photo.Key, resp.Record.Photos.After[0].ImageData)
	assert.Equal(t, 32, resp.Photo.OriginalWidth)

	rec = env.upload(t, path, "photo", "knee.jpg", "image/jpeg", testJPEG(t, 8, 8), nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Len(t, decode[PhotoResponse](t, rec).Record.Photos.During, 1)

	rec = env.upload(t, path, "photo", "knee.jpg", "image/jpeg", testJPEG(t, 8, 8), map[string]string{"type": "sometime"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.upload(t, path, "photo", "knee.txt", "text/plain", []byte("not an image"), nil)
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}
