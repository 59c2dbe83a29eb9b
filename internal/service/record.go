// This file implements the record service, which fronts each session's
// in-memory record store and writes changes through to the persister.
package service

import (
	"context"
	"io"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/DukeRupert/aidnexus/internal/domain"
	"github.com/DukeRupert/aidnexus/internal/metrics"
	"github.com/DukeRupert/aidnexus/internal/records"
	"github.com/DukeRupert/aidnexus/internal/repository"
	"github.com/DukeRupert/aidnexus/internal/session"
)

// =============================================================================
// Interface Definition
// =============================================================================

// RecordService manages a session's injury records. All methods return
// domain.ENOTFOUND for unknown record IDs.
type RecordService interface {
	// Preview allocates a record without storing it.
	Preview(params domain.NewInjuryRecordParams) *domain.InjuryRecord

	// Create stores a new record.
	Create(ctx context.Context, sessionID string, params domain.NewInjuryRecordParams) (*domain.InjuryRecord, error)

	Get(ctx context.Context, sessionID string, id uuid.UUID) (*domain.InjuryRecord, error)

	// List returns the session's records. A nil filter returns all records
	// ordered by sortBy; a filter returns matches in insertion order.
	List(ctx context.Context, sessionID string, sortBy records.SortField, descending bool, filter *records.Filter) ([]*domain.InjuryRecord, error)

	Statistics(ctx context.Context, sessionID string) (domain.Statistics, error)

	// UpdateProgress records a recovery report.
	UpdateProgress(ctx context.Context, sessionID string, id uuid.UUID, update records.ProgressUpdate) (*domain.InjuryRecord, error)

	// CompleteStep marks a first aid step done. Returns domain.EINVALID for
	// an out-of-range index and domain.ECONFLICT if already completed.
	CompleteStep(ctx context.Context, sessionID string, id uuid.UUID, index int, notes string) (*domain.InjuryRecord, error)

	AddNote(ctx context.Context, sessionID string, id uuid.UUID, content string) (*domain.InjuryRecord, error)

	AddMedication(ctx context.Context, sessionID string, id uuid.UUID, name, dosage, frequency string) (*domain.InjuryRecord, error)

	// AttachPhoto stores an uploaded photo and references it from the record.
	AttachPhoto(ctx context.Context, sessionID string, id uuid.UUID, photoType domain.PhotoType, data io.Reader, contentType string) (*domain.InjuryRecord, *StoredPhoto, error)

	Archive(ctx context.Context, sessionID string, id uuid.UUID) (*domain.InjuryRecord, error)

	// Delete removes the record and its stored photos.
	Delete(ctx context.Context, sessionID string, id uuid.UUID) error

	// Export returns the record as a JSON document.
	Export(ctx context.Context, sessionID string, id uuid.UUID) ([]byte, error)
}

// =============================================================================
// Implementation
// =============================================================================

type recordService struct {
	sessions  *session.Registry
	persister repository.Persister
	photos    PhotoService
	logger    *slog.Logger
}

// NewRecordService creates a RecordService. photos may be nil, which
// disables AttachPhoto.
func NewRecordService(sessions *session.Registry, persister repository.Persister, photos PhotoService, logger *slog.Logger) RecordService {
	return &recordService{
		sessions:  sessions,
		persister: persister,
		photos:    photos,
		logger:    logger,
	}
}

func (s *recordService) store(ctx context.Context, op, sessionID string) (*records.Store, error) {
	store, err := s.sessions.Store(ctx, sessionID)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to load records")
	}
	return store, nil
}

// persist writes the stored copy of a record through to the persister.
func (s *recordService) persist(ctx context.Context, op, sessionID string, store *records.Store, id uuid.UUID) (*domain.InjuryRecord, error) {
	r, ok := store.Get(id)
	if !ok {
		return nil, domain.NotFound(op, "record", id.String())
	}
	if err := s.persister.Upsert(ctx, sessionID, r); err != nil {
		s.logger.Error("failed to persist record", "op", op, "record_id", id, "error", err)
		return nil, domain.Internal(err, op, "failed to save record")
	}
	return r, nil
}

func (s *recordService) Preview(params domain.NewInjuryRecordParams) *domain.InjuryRecord {
	return records.New().Create(params)
}

func (s *recordService) Create(ctx context.Context, sessionID string, params domain.NewInjuryRecordParams) (*domain.InjuryRecord, error) {
	const op = "record.create"

	if strings.TrimSpace(params.Description) == "" && strings.TrimSpace(params.InjuryType) == "" {
		return nil, domain.Invalid(op, "a description of the injury is required")
	}

	store, err := s.store(ctx, op, sessionID)
	if err != nil {
		return nil, err
	}

	r := store.Create(params)
	if !store.Save(r) {
		return nil, domain.Invalid(op, "record failed validation")
	}

	saved, err := s.persist(ctx, op, sessionID, store, r.ID)
	if err != nil {
		store.Delete(r.ID)
		return nil, err
	}

	metrics.RecordsCreated.Inc()
	s.logger.Info("record created", "record_id", r.ID, "severity", r.Severity, "emergency_level", r.EmergencyLevel)
	return saved, nil
}

func (s *recordService) Get(ctx context.Context, sessionID string, id uuid.UUID) (*domain.InjuryRecord, error) {
	const op = "record.get"

	store, err := s.store(ctx, op, sessionID)
	if err != nil {
		return nil, err
	}
	r, ok := store.Get(id)
	if !ok {
		return nil, domain.NotFound(op, "record", id.String())
	}
	return r, nil
}

func (s *recordService) List(ctx context.Context, sessionID string, sortBy records.SortField, descending bool, filter *records.Filter) ([]*domain.InjuryRecord, error) {
	const op = "record.list"

	store, err := s.store(ctx, op, sessionID)
	if err != nil {
		return nil, err
	}
	if filter != nil {
		return store.Filter(*filter), nil
	}
	return store.GetAll(sortBy, descending), nil
}

func (s *recordService) Statistics(ctx context.Context, sessionID string) (domain.Statistics, error) {
	const op = "record.statistics"

	store, err := s.store(ctx, op, sessionID)
	if err != nil {
		return domain.Statistics{}, err
	}
	return store.Statistics(), nil
}

// mutate runs a store mutation and persists the result. rejected builds the
// error for a mutation the store refused on an existing record.
func (s *recordService) mutate(ctx context.Context, op, sessionID string, id uuid.UUID, apply func(*records.Store) bool, rejected func(current *domain.InjuryRecord) error) (*domain.InjuryRecord, error) {
	store, err := s.store(ctx, op, sessionID)
	if err != nil {
		return nil, err
	}

	current, ok := store.Get(id)
	if !ok {
		return nil, domain.NotFound(op, "record", id.String())
	}
	if !apply(store) {
		return nil, rejected(current)
	}
	return s.persist(ctx, op, sessionID, store, id)
}

func (s *recordService) UpdateProgress(ctx context.Context, sessionID string, id uuid.UUID, update records.ProgressUpdate) (*domain.InjuryRecord, error) {
	const op = "record.update_progress"

	r, err := s.mutate(ctx, op, sessionID, id,
		func(store *records.Store) bool { return store.UpdateRecoveryProgress(id, update) },
		func(*domain.InjuryRecord) error { return domain.Invalid(op, "progress update rejected") },
	)
	if err != nil {
		return nil, err
	}

	metrics.RecoveryUpdates.WithLabelValues(r.Recovery.Status.String()).Inc()
	s.logger.Info("recovery progress updated",
		"record_id", id,
		"progress", r.Recovery.ProgressPercentage,
		"status", r.Status,
	)
	return r, nil
}

func (s *recordService) CompleteStep(ctx context.Context, sessionID string, id uuid.UUID, index int, notes string) (*domain.InjuryRecord, error) {
	const op = "record.complete_step"

	return s.mutate(ctx, op, sessionID, id,
		func(store *records.Store) bool { return store.MarkFirstAidStepCompleted(id, index, notes) },
		func(current *domain.InjuryRecord) error {
			if index < 0 || index >= len(current.FirstAidSteps.Recommended) {
				return domain.Errorf(domain.EINVALID, op, "step %d does not exist", index)
			}
			return domain.Errorf(domain.ECONFLICT, op, "step %d is already completed", index)
		},
	)
}

func (s *recordService) AddNote(ctx context.Context, sessionID string, id uuid.UUID, content string) (*domain.InjuryRecord, error) {
	const op = "record.add_note"

	return s.mutate(ctx, op, sessionID, id,
		func(store *records.Store) bool { return store.AddNote(id, content) },
		func(*domain.InjuryRecord) error { return domain.Invalid(op, "note content is required") },
	)
}

func (s *recordService) AddMedication(ctx context.Context, sessionID string, id uuid.UUID, name, dosage, frequency string) (*domain.InjuryRecord, error) {
	const op = "record.add_medication"

	return s.mutate(ctx, op, sessionID, id,
		func(store *records.Store) bool { return store.AddMedication(id, name, dosage, frequency) },
		func(*domain.InjuryRecord) error { return domain.Invalid(op, "medication name is required") },
	)
}

func (s *recordService) AttachPhoto(ctx context.Context, sessionID string, id uuid.UUID, photoType domain.PhotoType, data io.Reader, contentType string) (*domain.InjuryRecord, *StoredPhoto, error) {
	const op = "record.attach_photo"

	if s.photos == nil {
		return nil, nil, domain.Errorf(domain.EUNAVAILABLE, op, "photo storage is not configured")
	}
	if !photoType.IsValid() {
		return nil, nil, domain.Invalid(op, "photo type must be before, during or after")
	}
	if _, err := s.Get(ctx, sessionID, id); err != nil {
		return nil, nil, err
	}

	stored, err := s.photos.Store(ctx, id, photoType, data, contentType)
	if err != nil {
		return nil, nil, err
	}

	r, err := s.mutate(ctx, op, sessionID, id,
		func(store *records.Store) bool { return store.AddPhoto(id, stored.Key, photoType) },
		func(*domain.InjuryRecord) error { return domain.Invalid(op, "photo rejected") },
	)
	if err != nil {
		s.photos.Remove(ctx, []string{stored.Key})
		return nil, nil, err
	}
	return r, stored, nil
}

func (s *recordService) Archive(ctx context.Context, sessionID string, id uuid.UUID) (*domain.InjuryRecord, error) {
	const op = "record.archive"

	r, err := s.mutate(ctx, op, sessionID, id,
		func(store *records.Store) bool { return store.Archive(id) },
		func(*domain.InjuryRecord) error { return domain.Invalid(op, "archive rejected") },
	)
	if err != nil {
		return nil, err
	}
	s.logger.Info("record archived", "record_id", id)
	return r, nil
}

func (s *recordService) Delete(ctx context.Context, sessionID string, id uuid.UUID) error {
	const op = "record.delete"

	store, err := s.store(ctx, op, sessionID)
	if err != nil {
		return err
	}

	r, ok := store.Get(id)
	if !ok {
		return domain.NotFound(op, "record", id.String())
	}
	if err := s.persister.Delete(ctx, sessionID, id); err != nil {
		s.logger.Error("failed to delete persisted record", "record_id", id, "error", err)
		return domain.Internal(err, op, "failed to delete record")
	}
	store.Delete(id)

	if s.photos != nil {
		s.photos.Remove(ctx, PhotoKeys(r))
	}

	metrics.RecordsDeleted.Inc()
	s.logger.Info("record deleted", "record_id", id)
	return nil
}

func (s *recordService) Export(ctx context.Context, sessionID string, id uuid.UUID) ([]byte, error) {
	const op = "record.export"

	store, err := s.store(ctx, op, sessionID)
	if err != nil {
		return nil, err
	}
	data, ok := store.Export(id)
	if !ok {
		return nil, domain.NotFound(op, "record", id.String())
	}
	return data, nil
}
