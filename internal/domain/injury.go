// Package domain contains core business types and interfaces.
//
// This file defines the InjuryRecord domain type and the enumerations used
// to classify injuries and track their recovery.
package domain

import (
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
)

// =============================================================================
// Severity
// =============================================================================

// Severity is the triage classification of an injury.
type Severity string

const (
	SeverityMinor    Severity = "MINOR"
	SeverityModerate Severity = "MODERATE"
	SeveritySevere   Severity = "SEVERE"

	// SeverityUnknown is used whenever no recognizable label was supplied.
	SeverityUnknown Severity = "UNKNOWN"
)

// String returns the string representation of the severity.
func (s Severity) String() string {
	return string(s)
}

// IsValid returns true if the severity is a recognized value.
func (s Severity) IsValid() bool {
	switch s {
	case SeverityMinor, SeverityModerate, SeveritySevere, SeverityUnknown:
		return true
	}
	return false
}

// Rank orders severities for sorting. Higher is more severe.
func (s Severity) Rank() int {
	switch s {
	case SeveritySevere:
		return 3
	case SeverityModerate:
		return 2
	case SeverityMinor:
		return 1
	}
	return 0
}

// ParseSeverity normalizes a free-text label into a Severity.
//
// When the first word is itself a level, it wins, so "Minor (not severe)"
// resolves to MINOR. A range such as "moderate to severe" and labels that
// bury the level later in the text fall back to a keyword scan, which
// checks SEVERE first so mixed labels err toward the higher level.
// Anything unrecognized becomes SeverityUnknown.
func ParseSeverity(label string) Severity {
	upper := strings.ToUpper(label)

	words := strings.FieldsFunc(upper, func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	if len(words) > 0 && !(len(words) > 1 && (words[1] == "TO" || words[1] == "OR")) {
		switch s := Severity(words[0]); s {
		case SeveritySevere, SeverityModerate, SeverityMinor:
			return s
		}
	}

	switch {
	case strings.Contains(upper, string(SeveritySevere)):
		return SeveritySevere
	case strings.Contains(upper, string(SeverityModerate)):
		return SeverityModerate
	case strings.Contains(upper, string(SeverityMinor)):
		return SeverityMinor
	}
	return SeverityUnknown
}

// =============================================================================
// Emergency Level
// =============================================================================

// EmergencyLevel is the urgency classification of an injury.
type EmergencyLevel string

const (
	EmergencyLevelEmergency EmergencyLevel = "EMERGENCY"
	EmergencyLevelUrgent    EmergencyLevel = "URGENT"
	EmergencyLevelRoutine   EmergencyLevel = "ROUTINE"
)

// String returns the string representation of the emergency level.
func (l EmergencyLevel) String() string {
	return string(l)
}

// IsValid returns true if the emergency level is a recognized value.
func (l EmergencyLevel) IsValid() bool {
	switch l {
	case EmergencyLevelEmergency, EmergencyLevelUrgent, EmergencyLevelRoutine:
		return true
	}
	return false
}

// ParseEmergencyLevel normalizes a free-text label. Unrecognized input is
// treated as routine.
func ParseEmergencyLevel(label string) EmergencyLevel {
	upper := strings.ToUpper(label)
	switch {
	case strings.Contains(upper, string(EmergencyLevelEmergency)):
		return EmergencyLevelEmergency
	case strings.Contains(upper, string(EmergencyLevelUrgent)):
		return EmergencyLevelUrgent
	}
	return EmergencyLevelRoutine
}

// =============================================================================
// Record Status
// =============================================================================

// Status is the lifecycle state of an injury record.
type Status string

const (
	// StatusActive is the initial state; no recovery progress reported yet.
	StatusActive Status = "active"

	// StatusHealing covers progress between 1 and 74 percent.
	StatusHealing Status = "healing"

	// StatusRecovering covers progress between 75 and 99 percent.
	StatusRecovering Status = "recovering"

	// StatusHealed is reached at 100 percent progress.
	StatusHealed Status = "healed"

	// StatusArchived is set only by an explicit archive action and is never
	// derived from progress.
	StatusArchived Status = "archived"
)

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// IsValid returns true if the status is a recognized value.
func (s Status) IsValid() bool {
	switch s {
	case StatusActive, StatusHealing, StatusRecovering, StatusHealed, StatusArchived:
		return true
	}
	return false
}

// Rank orders statuses for sorting. Recovering sits between healing and
// healed, matching the progress thresholds.
func (s Status) Rank() int {
	switch s {
	case StatusActive:
		return 4
	case StatusHealing:
		return 3
	case StatusRecovering:
		return 2
	case StatusHealed:
		return 1
	}
	return 0
}

// StatusForProgress derives the record status from a recovery percentage.
func StatusForProgress(progress int) Status {
	switch {
	case progress >= 100:
		return StatusHealed
	case progress >= 75:
		return StatusRecovering
	case progress > 0:
		return StatusHealing
	}
	return StatusActive
}

// =============================================================================
// Photo Type
// =============================================================================

// PhotoType identifies which stage of treatment a photo documents.
type PhotoType string

const (
	PhotoTypeBefore PhotoType = "before"
	PhotoTypeDuring PhotoType = "during"
	PhotoTypeAfter  PhotoType = "after"
)

// String returns the string representation of the photo type.
func (p PhotoType) String() string {
	return string(p)
}

// IsValid returns true if the photo type is a recognized value.
func (p PhotoType) IsValid() bool {
	switch p {
	case PhotoTypeBefore, PhotoTypeDuring, PhotoTypeAfter:
		return true
	}
	return false
}

// =============================================================================
// Range limits
// =============================================================================

const (
	MinProgress  = 0
	MaxProgress  = 100
	MinPainLevel = 0
	MaxPainLevel = 10
)

// ClampProgress bounds a progress value to [MinProgress, MaxProgress].
func ClampProgress(p int) int {
	return clamp(p, MinProgress, MaxProgress)
}

// ClampPainLevel bounds a pain level to [MinPainLevel, MaxPainLevel].
func ClampPainLevel(p int) int {
	return clamp(p, MinPainLevel, MaxPainLevel)
}

func clamp(v, lo, hi int) int {
	return max(lo, min(hi, v))
}

// =============================================================================
// InjuryRecord Domain Type
// =============================================================================

// InjuryRecord is a personal health record for a single injury, from the
// first analysis through recovery.
type InjuryRecord struct {
	ID              uuid.UUID       `json:"id"`
	CreatedAt       time.Time       `json:"timestamp"`
	InjuryType      string          `json:"injury_type"`
	Description     string          `json:"description"`
	Severity        Severity        `json:"severity"`
	EmergencyLevel  EmergencyLevel  `json:"emergency_level"`
	BodyPart        string          `json:"body_part,omitempty"`
	Location        string          `json:"location,omitempty"`
	Status          Status          `json:"status"`
	InitialAnalysis InitialAnalysis `json:"initial_analysis"`
	FirstAidSteps   FirstAidSteps   `json:"first_aid_steps"`
	Photos          Photos          `json:"photos"`
	Recovery        Recovery        `json:"recovery"`
	Medications     []Medication    `json:"medications"`
	Notes           []Note          `json:"notes"`
	Tags            []string        `json:"tags"`
	Reminders       []Reminder      `json:"reminders"`
	FollowUpCare    FollowUpCare    `json:"follow_up_care"`
}

// InitialAnalysis is the snapshot of the model output captured at creation.
type InitialAnalysis struct {
	AIAnalysis string    `json:"ai_analysis"`
	Severity   Severity  `json:"severity"`
	Timestamp  time.Time `json:"timestamp"`
}

// FirstAidSteps tracks the recommended steps and which have been performed.
type FirstAidSteps struct {
	Recommended []string   `json:"recommended"`
	Completed   []int      `json:"completed"`
	Notes       string     `json:"notes"`
	CompletedAt *time.Time `json:"completed_at"`
}

// IsCompleted reports whether the step at index has been marked done.
func (f FirstAidSteps) IsCompleted(index int) bool {
	for _, c := range f.Completed {
		if c == index {
			return true
		}
	}
	return false
}

// Photo is a single photo entry. ImageData is an opaque reference to the
// stored blob.
type Photo struct {
	ImageData string    `json:"image_data"`
	Timestamp time.Time `json:"timestamp"`
	Type      PhotoType `json:"type"`
}

// Photos groups photo entries by treatment stage. Each slice is append-only.
type Photos struct {
	Before []Photo `json:"before"`
	During []Photo `json:"during"`
	After  []Photo `json:"after"`
}

// Count returns the number of photos across all stages.
func (p Photos) Count() int {
	return len(p.Before) + len(p.During) + len(p.After)
}

// Recovery tracks healing progress over time.
type Recovery struct {
	Status             Status           `json:"status"`
	ProgressPercentage int              `json:"progress_percentage"`
	PainLevel          *int             `json:"pain_level"`
	Updates            []RecoveryUpdate `json:"updates"`
}

// RecoveryUpdate is one entry in the recovery log.
type RecoveryUpdate struct {
	Date      time.Time `json:"date"`
	Progress  int       `json:"progress"`
	PainLevel *int      `json:"pain_level"`
	Notes     string    `json:"notes"`
}

// Medication is a medication the user is taking for the injury.
type Medication struct {
	Name      string      `json:"name"`
	Dosage    string      `json:"dosage"`
	Frequency string      `json:"frequency"`
	AddedAt   time.Time   `json:"added_at"`
	Taken     []time.Time `json:"taken"`
}

// Note is a free-form journal entry.
type Note struct {
	Timestamp time.Time `json:"timestamp"`
	Content   string    `json:"content"`
}

// Reminder is a user-defined reminder attached to a record.
type Reminder struct {
	Message string    `json:"message"`
	DueAt   time.Time `json:"due_at"`
	Done    bool      `json:"done"`
}

// FollowUpCare records professional follow-up.
type FollowUpCare struct {
	DoctorVisit bool       `json:"doctor_visit"`
	VisitDate   *time.Time `json:"visit_date"`
	Notes       string     `json:"notes"`
}

// =============================================================================
// Construction
// =============================================================================

// NewInjuryRecordParams contains the values supplied when a record is created.
type NewInjuryRecordParams struct {
	InjuryType     string         // Defaults to Description when empty
	Description    string         // Free-text description of the injury
	Severity       Severity       // Unrecognized values become UNKNOWN
	EmergencyLevel EmergencyLevel // Unrecognized values become ROUTINE
	AIAnalysis     string         // Model output captured as the initial analysis
	Steps          []string       // Recommended first aid steps
	BodyPart       string         // Optional
	Location       string         // Optional
	Photos         []string       // Opaque photo references, stored as "before" photos
}

// NewInjuryRecord allocates a record with a fresh ID and all sub-structures
// initialized. It does not store anything.
func NewInjuryRecord(params NewInjuryRecordParams, now time.Time) *InjuryRecord {
	severity := params.Severity
	if !severity.IsValid() {
		severity = ParseSeverity(string(severity))
	}
	level := params.EmergencyLevel
	if !level.IsValid() {
		level = ParseEmergencyLevel(string(level))
	}
	injuryType := params.InjuryType
	if injuryType == "" {
		injuryType = params.Description
	}

	r := &InjuryRecord{
		ID:             uuid.New(),
		CreatedAt:      now,
		InjuryType:     injuryType,
		Description:    params.Description,
		Severity:       severity,
		EmergencyLevel: level,
		BodyPart:       strings.TrimSpace(params.BodyPart),
		Location:       strings.TrimSpace(params.Location),
		Status:         StatusActive,
		InitialAnalysis: InitialAnalysis{
			AIAnalysis: params.AIAnalysis,
			Severity:   severity,
			Timestamp:  now,
		},
		FirstAidSteps: FirstAidSteps{
			Recommended: append([]string{}, params.Steps...),
			Completed:   []int{},
		},
		Photos: Photos{
			Before: []Photo{},
			During: []Photo{},
			After:  []Photo{},
		},
		Recovery: Recovery{
			Status:  StatusActive,
			Updates: []RecoveryUpdate{},
		},
		Medications: []Medication{},
		Notes:       []Note{},
		Tags:        []string{},
		Reminders:   []Reminder{},
	}

	for _, ref := range params.Photos {
		r.Photos.Before = append(r.Photos.Before, Photo{
			ImageData: ref,
			Timestamp: now,
			Type:      PhotoTypeBefore,
		})
	}

	return r
}

// Validate checks the record invariants. It returns an EINVALID error
// describing the first violation found.
func (r *InjuryRecord) Validate() error {
	const op = "injury_record.validate"

	if r.ID == uuid.Nil {
		return Invalid(op, "record ID is required")
	}
	if !r.Severity.IsValid() {
		return Invalid(op, "unrecognized severity")
	}
	if !r.EmergencyLevel.IsValid() {
		return Invalid(op, "unrecognized emergency level")
	}
	if !r.Status.IsValid() {
		return Invalid(op, "unrecognized status")
	}
	if r.Recovery.ProgressPercentage < MinProgress || r.Recovery.ProgressPercentage > MaxProgress {
		return Invalid(op, "progress must be between 0 and 100")
	}
	if p := r.Recovery.PainLevel; p != nil && (*p < MinPainLevel || *p > MaxPainLevel) {
		return Invalid(op, "pain level must be between 0 and 10")
	}

	seen := make(map[int]bool, len(r.FirstAidSteps.Completed))
	for _, idx := range r.FirstAidSteps.Completed {
		if idx < 0 || idx >= len(r.FirstAidSteps.Recommended) {
			return Invalid(op, "completed step index out of range")
		}
		if seen[idx] {
			return Invalid(op, "completed step index recorded twice")
		}
		seen[idx] = true
	}

	return nil
}

// Clone returns a deep copy of the record so callers cannot mutate stored
// state.
func (r *InjuryRecord) Clone() *InjuryRecord {
	if r == nil {
		return nil
	}
	c := *r

	c.FirstAidSteps.Recommended = cloneSlice(r.FirstAidSteps.Recommended)
	c.FirstAidSteps.Completed = cloneSlice(r.FirstAidSteps.Completed)
	c.FirstAidSteps.CompletedAt = cloneTime(r.FirstAidSteps.CompletedAt)

	c.Photos.Before = cloneSlice(r.Photos.Before)
	c.Photos.During = cloneSlice(r.Photos.During)
	c.Photos.After = cloneSlice(r.Photos.After)

	c.Recovery.PainLevel = cloneInt(r.Recovery.PainLevel)
	c.Recovery.Updates = cloneSlice(r.Recovery.Updates)
	for i := range c.Recovery.Updates {
		c.Recovery.Updates[i].PainLevel = cloneInt(r.Recovery.Updates[i].PainLevel)
	}

	c.Medications = cloneSlice(r.Medications)
	for i := range c.Medications {
		c.Medications[i].Taken = cloneSlice(r.Medications[i].Taken)
	}

	c.Notes = cloneSlice(r.Notes)
	c.Tags = cloneSlice(r.Tags)
	c.Reminders = cloneSlice(r.Reminders)
	c.FollowUpCare.VisitDate = cloneTime(r.FollowUpCare.VisitDate)

	return &c
}

// FormattedDate renders the creation time for display,
// e.g. "March 04, 2025 at 02:30 PM".
func (r *InjuryRecord) FormattedDate() string {
	return r.CreatedAt.Format("January 02, 2006 at 03:04 PM")
}

// AgeDays returns the number of whole days since the record was created.
func (r *InjuryRecord) AgeDays(now time.Time) int {
	if now.Before(r.CreatedAt) {
		return 0
	}
	return int(now.Sub(r.CreatedAt).Hours() / 24)
}

// NeedsEmergency reports whether the record's severity calls for
// emergency care.
func (r *InjuryRecord) NeedsEmergency() bool {
	return r.Severity == SeveritySevere
}

func cloneSlice[T any](s []T) []T {
	if s == nil {
		return nil
	}
	return append(make([]T, 0, len(s)), s...)
}

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
