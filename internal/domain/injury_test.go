package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSeverity(t *testing.T) {
	tests := []struct {
		label string
		want  Severity
	}{
		{"SEVERE", SeveritySevere},
		{"severe", SeveritySevere},
		{"  Moderate ", SeverityModerate},
		{"MINOR - clean and monitor", SeverityMinor},
		{"moderate to severe", SeveritySevere},
		{"minor or moderate", SeverityModerate},
		{"Minor (not severe)", SeverityMinor},
		{"**Moderate**, not severe yet", SeverityModerate},
		{"Likely severe", SeveritySevere},
		{"critical", SeverityUnknown},
		{"", SeverityUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseSeverity(tt.label))
		})
	}
}

func TestParseEmergencyLevel(t *testing.T) {
	assert.Equal(t, EmergencyLevelEmergency, ParseEmergencyLevel("EMERGENCY"))
	assert.Equal(t, EmergencyLevelUrgent, ParseEmergencyLevel("urgent."))
	assert.Equal(t, EmergencyLevelRoutine, ParseEmergencyLevel("ROUTINE"))
	assert.Equal(t, EmergencyLevelRoutine, ParseEmergencyLevel("no idea"))
}

func TestStatusForProgress(t *testing.T) {
	tests := []struct {
		progress int
		want     Status
	}{
		{0, StatusActive},
		{1, StatusHealing},
		{74, StatusHealing},
		{75, StatusRecovering},
		{99, StatusRecovering},
		{100, StatusHealed},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusForProgress(tt.progress), "progress %d", tt.progress)
	}
}

func TestStatusRank(t *testing.T) {
	assert.Greater(t, StatusActive.Rank(), StatusHealing.Rank())
	assert.Greater(t, StatusHealing.Rank(), StatusRecovering.Rank())
	assert.Greater(t, StatusRecovering.Rank(), StatusHealed.Rank())
	assert.Greater(t, StatusHealed.Rank(), StatusArchived.Rank())
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 0, ClampProgress(-5))
	assert.Equal(t, 100, ClampProgress(150))
	assert.Equal(t, 42, ClampProgress(42))
	assert.Equal(t, 10, ClampPainLevel(11))
	assert.Equal(t, 0, ClampPainLevel(-1))
}

func TestNewInjuryRecord(t *testing.T) {
	now := time.Date(2025, 3, 4, 14, 30, 0, 0, time.UTC)

	r := NewInjuryRecord(NewInjuryRecordParams{
		Description:    "Cut on left hand",
		Severity:       Severity("moderate"),
		EmergencyLevel: EmergencyLevelUrgent,
		AIAnalysis:     "SEVERITY: MODERATE",
		Steps:          []string{"Clean the wound", "Apply pressure"},
		BodyPart:       " hand ",
		Photos:         []string{"records/x/before/1.png"},
	}, now)

	require.NotNil(t, r)
	assert.NotEqual(t, uuid.Nil, r.ID)
	assert.Equal(t, now, r.CreatedAt)
	assert.Equal(t, "Cut on left hand", r.InjuryType)
	assert.Equal(t, SeverityModerate, r.Severity)
	assert.Equal(t, SeverityModerate, r.InitialAnalysis.Severity)
	assert.Equal(t, StatusActive, r.Status)
	assert.Equal(t, StatusActive, r.Recovery.Status)
	assert.Equal(t, "hand", r.BodyPart)
	assert.Len(t, r.FirstAidSteps.Recommended, 2)
	assert.Empty(t, r.FirstAidSteps.Completed)
	require.Len(t, r.Photos.Before, 1)
	assert.Equal(t, PhotoTypeBefore, r.Photos.Before[0].Type)
	assert.NoError(t, r.Validate())
}

func TestNewInjuryRecord_UniqueIDs(t *testing.T) {
	a := NewInjuryRecord(NewInjuryRecordParams{}, time.Now())
	b := NewInjuryRecord(NewInjuryRecordParams{}, time.Now())
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, SeverityUnknown, a.Severity)
	assert.Equal(t, EmergencyLevelRoutine, a.EmergencyLevel)
}

func TestInjuryRecord_Validate(t *testing.T) {
	base := func() *InjuryRecord {
		return NewInjuryRecord(NewInjuryRecordParams{Steps: []string{"a", "b"}}, time.Now())
	}
	pain := 11

	tests := []struct {
		name   string
		mutate func(r *InjuryRecord)
	}{
		{"nil id", func(r *InjuryRecord) { r.ID = uuid.Nil }},
		{"bad severity", func(r *InjuryRecord) { r.Severity = "BAD" }},
		{"bad status", func(r *InjuryRecord) { r.Status = "initial" }},
		{"progress too high", func(r *InjuryRecord) { r.Recovery.ProgressPercentage = 101 }},
		{"pain too high", func(r *InjuryRecord) { r.Recovery.PainLevel = &pain }},
		{"step out of range", func(r *InjuryRecord) { r.FirstAidSteps.Completed = []int{2} }},
		{"duplicate step", func(r *InjuryRecord) { r.FirstAidSteps.Completed = []int{1, 1} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := base()
			tt.mutate(r)
			err := r.Validate()
			require.Error(t, err)
			assert.Equal(t, EINVALID, ErrorCode(err))
		})
	}
}

func TestInjuryRecord_Clone(t *testing.T) {
	pain := 3
	r := NewInjuryRecord(NewInjuryRecordParams{Steps: []string{"a"}}, time.Now())
	r.Recovery.PainLevel = &pain
	r.Medications = append(r.Medications, Medication{Name: "ibuprofen"})

	c := r.Clone()
	c.FirstAidSteps.Recommended[0] = "changed"
	*c.Recovery.PainLevel = 9
	c.Medications[0].Name = "changed"

	assert.Equal(t, "a", r.FirstAidSteps.Recommended[0])
	assert.Equal(t, 3, *r.Recovery.PainLevel)
	assert.Equal(t, "ibuprofen", r.Medications[0].Name)
	assert.Nil(t, (*InjuryRecord)(nil).Clone())
}

func TestInjuryRecord_FormattedDateAndAge(t *testing.T) {
	created := time.Date(2025, 3, 4, 14, 30, 0, 0, time.UTC)
	r := &InjuryRecord{CreatedAt: created}

	assert.Equal(t, "March 04, 2025 at 02:30 PM", r.FormattedDate())
	assert.Equal(t, 2, r.AgeDays(created.Add(50*time.Hour)))
	assert.Equal(t, 0, r.AgeDays(created.Add(-time.Hour)))
}
