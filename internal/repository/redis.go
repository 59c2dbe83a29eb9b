package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/DukeRupert/aidnexus/internal/domain"
)

// DefaultRedisTTL is how long an idle session's records are kept.
const DefaultRedisTTL = 30 * 24 * time.Hour

// Redis persists each session's records in a hash keyed by record ID. The
// hash expires after ttl without writes.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis creates a Redis persister. A non-positive ttl uses DefaultRedisTTL.
func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = DefaultRedisTTL
	}
	return &Redis{client: client, ttl: ttl}
}

func sessionKey(sessionID string) string {
	return fmt.Sprintf("aidnexus:session:%s:records", sessionID)
}

// Upsert implements Persister.
func (r *Redis) Upsert(ctx context.Context, sessionID string, rec *domain.InjuryRecord) error {
	data, err := encodeRecord(rec)
	if err != nil {
		return err
	}

	key := sessionKey(sessionID)
	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, key, rec.ID.String(), data)
	pipe.Expire(ctx, key, r.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store record %s: %w", rec.ID, err)
	}
	return nil
}

// Delete implements Persister.
func (r *Redis) Delete(ctx context.Context, sessionID string, id uuid.UUID) error {
	if err := r.client.HDel(ctx, sessionKey(sessionID), id.String()).Err(); err != nil {
		return fmt.Errorf("delete record %s: %w", id, err)
	}
	return nil
}

// LoadAll implements Persister.
func (r *Redis) LoadAll(ctx context.Context, sessionID string) ([]*domain.InjuryRecord, error) {
	values, err := r.client.HGetAll(ctx, sessionKey(sessionID)).Result()
	if err != nil {
		return nil, fmt.Errorf("load records: %w", err)
	}

	out := make([]*domain.InjuryRecord, 0, len(values))
	for _, v := range values {
		rec, err := decodeRecord([]byte(v))
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	sortByCreated(out)
	return out, nil
}

// Ping checks the connection.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
