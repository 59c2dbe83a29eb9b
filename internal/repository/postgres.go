package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/sqlc-dev/pqtype"

	"github.com/DukeRupert/aidnexus/internal/domain"
)

// Postgres persists records in the injury_records table. The full record is
// kept in a JSONB document; severity, status, body part and tags are copied
// into columns for querying.
type Postgres struct {
	db *sql.DB
}

// NewPostgres creates a Postgres persister. Migrations must already be
// applied.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const upsertRecord = `
INSERT INTO injury_records (id, session_id, created_at, severity, status, body_part, tags, document, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
ON CONFLICT (id) DO UPDATE SET
    severity   = EXCLUDED.severity,
    status     = EXCLUDED.status,
    body_part  = EXCLUDED.body_part,
    tags       = EXCLUDED.tags,
    document   = EXCLUDED.document,
    updated_at = NOW()
WHERE injury_records.session_id = EXCLUDED.session_id`

// Upsert implements Persister.
func (p *Postgres) Upsert(ctx context.Context, sessionID string, r *domain.InjuryRecord) error {
	data, err := encodeRecord(r)
	if err != nil {
		return err
	}

	bodyPart := sql.NullString{String: r.BodyPart, Valid: r.BodyPart != ""}
	tags := r.Tags
	if tags == nil {
		tags = []string{}
	}
	document := pqtype.NullRawMessage{RawMessage: json.RawMessage(data), Valid: true}

	_, err = p.db.ExecContext(ctx, upsertRecord,
		r.ID, sessionID, r.CreatedAt, string(r.Severity), string(r.Status),
		bodyPart, pq.Array(tags), document,
	)
	if err != nil {
		return fmt.Errorf("upsert record %s: %w", r.ID, err)
	}
	return nil
}

// Delete implements Persister.
func (p *Postgres) Delete(ctx context.Context, sessionID string, id uuid.UUID) error {
	_, err := p.db.ExecContext(ctx,
		`DELETE FROM injury_records WHERE id = $1 AND session_id = $2`, id, sessionID)
	if err != nil {
		return fmt.Errorf("delete record %s: %w", id, err)
	}
	return nil
}

// LoadAll implements Persister.
func (p *Postgres) LoadAll(ctx context.Context, sessionID string) ([]*domain.InjuryRecord, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT document FROM injury_records WHERE session_id = $1 ORDER BY created_at, id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var out []*domain.InjuryRecord
	for rows.Next() {
		var document pqtype.NullRawMessage
		if err := rows.Scan(&document); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		if !document.Valid {
			continue
		}
		r, err := decodeRecord(document.RawMessage)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return out, nil
}

// TagCounts returns how often each tag is used within a session.
func (p *Postgres) TagCounts(ctx context.Context, sessionID string) (map[string]int, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT tags FROM injury_records WHERE session_id = $1`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query tags: %w", err)
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var tags []string
		if err := rows.Scan(pq.Array(&tags)); err != nil {
			return nil, fmt.Errorf("scan tags: %w", err)
		}
		for _, t := range tags {
			counts[t]++
		}
	}
	return counts, rows.Err()
}
