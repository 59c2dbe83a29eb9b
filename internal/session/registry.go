package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/DukeRupert/aidnexus/internal/metrics"
	"github.com/DukeRupert/aidnexus/internal/records"
	"github.com/DukeRupert/aidnexus/internal/repository"
)

// NewID returns a fresh session ID.
func NewID() string {
	return uuid.NewString()
}

// ValidID reports whether id has the shape NewID produces.
func ValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

type entry struct {
	store    *records.Store
	lastSeen time.Time
}

// Registry owns one record store per session. A store is hydrated from the
// persister the first time its session is seen and dropped from memory
// after it has been idle for longer than the idle timeout.
type Registry struct {
	persister repository.Persister
	logger    *slog.Logger
	idle      time.Duration
	now       func() time.Time

	mu      sync.Mutex
	entries map[string]*entry
}

// NewRegistry creates a registry. A non-positive idle timeout keeps stores
// in memory for the life of the process.
func NewRegistry(persister repository.Persister, idle time.Duration, logger *slog.Logger) *Registry {
	return &Registry{
		persister: persister,
		logger:    logger,
		idle:      idle,
		now:       time.Now,
		entries:   make(map[string]*entry),
	}
}

// Store returns the session's record store, loading it on first use.
func (r *Registry) Store(ctx context.Context, sessionID string) (*records.Store, error) {
	if s, ok := r.lookup(sessionID); ok {
		return s, nil
	}

	loaded, err := r.persister.LoadAll(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", sessionID, err)
	}

	store := records.New()
	if skipped := store.Restore(loaded); skipped > 0 {
		r.logger.Warn("skipped invalid persisted records", "session_id", sessionID, "skipped", skipped)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Another request may have loaded the same session meanwhile.
	if e, ok := r.entries[sessionID]; ok {
		e.lastSeen = r.now()
		return e.store, nil
	}
	r.entries[sessionID] = &entry{store: store, lastSeen: r.now()}
	metrics.ActiveSessions.Set(float64(len(r.entries)))

	r.logger.Debug("session loaded", "session_id", sessionID, "records", store.Len())
	return store, nil
}

func (r *Registry) lookup(sessionID string) (*records.Store, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[sessionID]
	if !ok {
		return nil, false
	}
	e.lastSeen = r.now()
	return e.store, true
}

// Len returns the number of sessions held in memory.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Evict drops stores idle past the timeout and returns how many were
// dropped. Their records remain with the persister.
func (r *Registry) Evict() int {
	if r.idle <= 0 {
		return 0
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-r.idle)
	evicted := 0
	for id, e := range r.entries {
		if e.lastSeen.Before(cutoff) {
			delete(r.entries, id)
			evicted++
		}
	}
	metrics.ActiveSessions.Set(float64(len(r.entries)))
	return evicted
}

// Run evicts idle sessions every interval until ctx is cancelled.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Evict(); n > 0 {
				r.logger.Info("evicted idle sessions", "count", n)
			}
		}
	}
}
