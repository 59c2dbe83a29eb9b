// Package repository persists injury records beyond the life of a process.
//
// Records are grouped by session ID. The in-memory record store stays the
// source of truth while a session is live; a Persister is written through
// after each change and read once when a session's store is first built.
package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/DukeRupert/aidnexus/internal/domain"
)

// Persister stores whole records as self-contained documents.
type Persister interface {
	// Upsert inserts or replaces the record.
	Upsert(ctx context.Context, sessionID string, r *domain.InjuryRecord) error

	// Delete removes the record. Deleting an unknown record is not an error.
	Delete(ctx context.Context, sessionID string, id uuid.UUID) error

	// LoadAll returns the session's records ordered by creation time.
	LoadAll(ctx context.Context, sessionID string) ([]*domain.InjuryRecord, error)
}

// encodeRecord serializes a record for storage.
func encodeRecord(r *domain.InjuryRecord) ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("marshal record %s: %w", r.ID, err)
	}
	return data, nil
}

// decodeRecord deserializes a stored record.
func decodeRecord(data []byte) (*domain.InjuryRecord, error) {
	var r domain.InjuryRecord
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("unmarshal record: %w", err)
	}
	return &r, nil
}

func sortByCreated(records []*domain.InjuryRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].CreatedAt.Before(records[j].CreatedAt)
	})
}

// Memory is a Persister that keeps records in process memory. It is the
// default when no durable backend is configured.
type Memory struct {
	mu       sync.Mutex
	sessions map[string]map[uuid.UUID][]byte
}

// NewMemory creates an empty in-memory persister.
func NewMemory() *Memory {
	return &Memory{sessions: make(map[string]map[uuid.UUID][]byte)}
}

// Upsert implements Persister.
func (m *Memory) Upsert(ctx context.Context, sessionID string, r *domain.InjuryRecord) error {
	data, err := encodeRecord(r)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	records, ok := m.sessions[sessionID]
	if !ok {
		records = make(map[uuid.UUID][]byte)
		m.sessions[sessionID] = records
	}
	records[r.ID] = data
	return nil
}

// Delete implements Persister.
func (m *Memory) Delete(ctx context.Context, sessionID string, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions[sessionID], id)
	return nil
}

// LoadAll implements Persister.
func (m *Memory) LoadAll(ctx context.Context, sessionID string) ([]*domain.InjuryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*domain.InjuryRecord, 0, len(m.sessions[sessionID]))
	for _, data := range m.sessions[sessionID] {
		r, err := decodeRecord(data)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	sortByCreated(out)
	return out, nil
}
