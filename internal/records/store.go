// Package records holds a session's injury records in memory.
//
// The Store owns every record it holds. Callers receive copies, and all
// mutation goes through Store methods so record invariants hold after every
// call. Lookups and mutations report a missing record, or a rejected change,
// by returning false rather than an error.
package records

import (
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/cases"

	"github.com/DukeRupert/aidnexus/internal/domain"
)

// SortField selects the ordering used by GetAll.
type SortField string

const (
	SortByTimestamp SortField = "timestamp"
	SortBySeverity  SortField = "severity"
	SortByStatus    SortField = "status"
)

// IsValid returns true if the sort field is a recognized value.
func (s SortField) IsValid() bool {
	switch s {
	case SortByTimestamp, SortBySeverity, SortByStatus:
		return true
	}
	return false
}

// Filter selects records. Zero-valued fields are ignored; the rest are
// ANDed together.
type Filter struct {
	Severity domain.Severity // Exact match
	Status   domain.Status   // Exact match
	BodyPart string          // Case-insensitive exact match
	DateFrom *time.Time      // Inclusive lower bound on CreatedAt
	DateTo   *time.Time      // Inclusive upper bound on CreatedAt
	Search   string          // Case-insensitive substring of injury type, description or body part
}

// ProgressUpdate is one recovery progress report.
type ProgressUpdate struct {
	Progress  int    // Clamped to 0-100
	PainLevel *int   // Optional, clamped to 0-10
	Notes     string // Optional
	Photo     string // Optional opaque photo reference, stored as a "during" photo
}

// Store is an in-memory collection of injury records keyed by ID. It is safe
// for concurrent use.
type Store struct {
	mu      sync.RWMutex
	records map[uuid.UUID]*domain.InjuryRecord
	order   []uuid.UUID
	now     func() time.Time
}

// New creates an empty store.
func New() *Store {
	return NewWithClock(time.Now)
}

// NewWithClock creates an empty store that reads the current time from now.
func NewWithClock(now func() time.Time) *Store {
	return &Store{
		records: make(map[uuid.UUID]*domain.InjuryRecord),
		now:     func() time.Time { return now().UTC() },
	}
}

// Create allocates a new record without storing it, so it can be previewed
// before Save commits it.
func (s *Store) Create(params domain.NewInjuryRecordParams) *domain.InjuryRecord {
	return domain.NewInjuryRecord(params, s.now())
}

// Save inserts the record, or replaces the stored record with the same ID.
// It returns false if the record fails validation.
func (s *Store) Save(r *domain.InjuryRecord) bool {
	if r == nil || r.Validate() != nil {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[r.ID]; !exists {
		s.order = append(s.order, r.ID)
	}
	s.records[r.ID] = r.Clone()
	return true
}

// Exists reports whether a record with id is stored.
func (s *Store) Exists(id uuid.UUID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.records[id]
	return ok
}

// Get returns a copy of the record with id.
func (s *Store) Get(id uuid.UUID) (*domain.InjuryRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.records[id]
	if !ok {
		return nil, false
	}
	return r.Clone(), true
}

// Len returns the number of stored records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// GetAll returns copies of every record ordered by sortBy. Records that tie
// keep their insertion order. An unrecognized sort field sorts by timestamp.
func (s *Store) GetAll(sortBy SortField, descending bool) []*domain.InjuryRecord {
	out := s.list()

	less := func(a, b *domain.InjuryRecord) bool {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	switch sortBy {
	case SortBySeverity:
		less = func(a, b *domain.InjuryRecord) bool {
			return a.Severity.Rank() < b.Severity.Rank()
		}
	case SortByStatus:
		less = func(a, b *domain.InjuryRecord) bool {
			return a.Status.Rank() < b.Status.Rank()
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if descending {
			return less(out[j], out[i])
		}
		return less(out[i], out[j])
	})
	return out
}

// Filter returns copies of the records matching every set criterion, in
// insertion order.
func (s *Store) Filter(f Filter) []*domain.InjuryRecord {
	fold := cases.Fold()
	bodyPart := fold.String(strings.TrimSpace(f.BodyPart))
	search := fold.String(strings.TrimSpace(f.Search))

	matches := []*domain.InjuryRecord{}
	for _, r := range s.list() {
		if f.Severity != "" && r.Severity != f.Severity {
			continue
		}
		if f.Status != "" && r.Status != f.Status {
			continue
		}
		if bodyPart != "" && fold.String(r.BodyPart) != bodyPart {
			continue
		}
		if f.DateFrom != nil && r.CreatedAt.Before(*f.DateFrom) {
			continue
		}
		if f.DateTo != nil && r.CreatedAt.After(*f.DateTo) {
			continue
		}
		if search != "" &&
			!strings.Contains(fold.String(r.InjuryType), search) &&
			!strings.Contains(fold.String(r.Description), search) &&
			!strings.Contains(fold.String(r.BodyPart), search) {
			continue
		}
		matches = append(matches, r)
	}
	return matches
}

// UpdateRecoveryProgress records a progress report and re-derives the
// record status from it. Progress and pain level are clamped to their
// ranges. Archived records keep their archived status.
func (s *Store) UpdateRecoveryProgress(id uuid.UUID, u ProgressUpdate) bool {
	return s.mutate(id, func(r *domain.InjuryRecord, now time.Time) bool {
		progress := domain.ClampProgress(u.Progress)

		var pain *int
		if u.PainLevel != nil {
			p := domain.ClampPainLevel(*u.PainLevel)
			pain = &p
			r.Recovery.PainLevel = &p
		}

		r.Recovery.ProgressPercentage = progress
		r.Recovery.Status = domain.StatusForProgress(progress)
		r.Recovery.Updates = append(r.Recovery.Updates, domain.RecoveryUpdate{
			Date:      now,
			Progress:  progress,
			PainLevel: pain,
			Notes:     u.Notes,
		})

		if r.Status != domain.StatusArchived {
			r.Status = r.Recovery.Status
		}

		if u.Photo != "" {
			r.Photos.During = append(r.Photos.During, domain.Photo{
				ImageData: u.Photo,
				Timestamp: now,
				Type:      domain.PhotoTypeDuring,
			})
		}
		return true
	})
}

// MarkFirstAidStepCompleted records the step at index as done. It returns
// false when the index is out of range or already completed. CompletedAt is
// set by the first completion only.
func (s *Store) MarkFirstAidStepCompleted(id uuid.UUID, index int, notes string) bool {
	return s.mutate(id, func(r *domain.InjuryRecord, now time.Time) bool {
		steps := &r.FirstAidSteps
		if index < 0 || index >= len(steps.Recommended) || steps.IsCompleted(index) {
			return false
		}

		steps.Completed = append(steps.Completed, index)
		if steps.CompletedAt == nil {
			steps.CompletedAt = &now
		}
		if notes != "" {
			steps.Notes = notes
		}
		return true
	})
}

// AddNote appends a journal note. Blank notes are rejected.
func (s *Store) AddNote(id uuid.UUID, content string) bool {
	content = strings.TrimSpace(content)
	if content == "" {
		return false
	}
	return s.mutate(id, func(r *domain.InjuryRecord, now time.Time) bool {
		r.Notes = append(r.Notes, domain.Note{Timestamp: now, Content: content})
		return true
	})
}

// AddMedication appends a medication. A name is required.
func (s *Store) AddMedication(id uuid.UUID, name, dosage, frequency string) bool {
	name = strings.TrimSpace(name)
	if name == "" {
		return false
	}
	return s.mutate(id, func(r *domain.InjuryRecord, now time.Time) bool {
		r.Medications = append(r.Medications, domain.Medication{
			Name:      name,
			Dosage:    strings.TrimSpace(dosage),
			Frequency: strings.TrimSpace(frequency),
			AddedAt:   now,
			Taken:     []time.Time{},
		})
		return true
	})
}

// AddPhoto appends a photo reference under the given stage.
func (s *Store) AddPhoto(id uuid.UUID, ref string, photoType domain.PhotoType) bool {
	if ref == "" || !photoType.IsValid() {
		return false
	}
	return s.mutate(id, func(r *domain.InjuryRecord, now time.Time) bool {
		p := domain.Photo{ImageData: ref, Timestamp: now, Type: photoType}
		switch photoType {
		case domain.PhotoTypeBefore:
			r.Photos.Before = append(r.Photos.Before, p)
		case domain.PhotoTypeDuring:
			r.Photos.During = append(r.Photos.During, p)
		case domain.PhotoTypeAfter:
			r.Photos.After = append(r.Photos.After, p)
		}
		return true
	})
}

// Archive moves a record to the terminal archived status. Archiving an
// already archived record is a no-op that returns true.
func (s *Store) Archive(id uuid.UUID) bool {
	return s.mutate(id, func(r *domain.InjuryRecord, now time.Time) bool {
		r.Status = domain.StatusArchived
		return true
	})
}

// Delete removes the record with id. It reports whether a record was
// removed; deleting an unknown ID is a harmless no-op.
func (s *Store) Delete(id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[id]; !ok {
		return false
	}
	delete(s.records, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

// Statistics aggregates the current contents of the store.
func (s *Store) Statistics() domain.Statistics {
	list := s.list()
	records := make([]domain.InjuryRecord, len(list))
	for i, r := range list {
		records[i] = *r
	}
	return domain.ComputeStatistics(records)
}

// Export returns the record with id as a self-contained JSON document.
func (s *Store) Export(id uuid.UUID) ([]byte, bool) {
	r, ok := s.Get(id)
	if !ok {
		return nil, false
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, false
	}
	return data, true
}

// Snapshot returns copies of every record in insertion order.
func (s *Store) Snapshot() []*domain.InjuryRecord {
	return s.list()
}

// Restore replaces the store contents with records, keeping their order.
// Records that fail validation are skipped and counted in the result.
func (s *Store) Restore(records []*domain.InjuryRecord) (skipped int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = make(map[uuid.UUID]*domain.InjuryRecord, len(records))
	s.order = s.order[:0]
	for _, r := range records {
		if r == nil || r.Validate() != nil {
			skipped++
			continue
		}
		if _, dup := s.records[r.ID]; !dup {
			s.order = append(s.order, r.ID)
		}
		s.records[r.ID] = r.Clone()
	}
	return skipped
}

// list returns copies of all records in insertion order.
func (s *Store) list() []*domain.InjuryRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.InjuryRecord, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.records[id].Clone())
	}
	return out
}

// mutate applies fn to a working copy of the record and commits it only if
// fn succeeds and the result is still valid.
func (s *Store) mutate(id uuid.UUID, fn func(r *domain.InjuryRecord, now time.Time) bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.records[id]
	if !ok {
		return false
	}

	working := current.Clone()
	if !fn(working, s.now()) {
		return false
	}
	if err := working.Validate(); err != nil {
		return false
	}
	s.records[id] = working
	return true
}
