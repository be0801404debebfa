package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Entry is a single persisted audit record.
type Entry struct {
	ID        int64
	ActorID   int64
	Action    string
	Entity    string
	EntityID  string
	Detail    string
	CreatedAt time.Time
}

// Recorder persists audit entries to PostgreSQL.
//
// Schema:
//
//	CREATE TABLE audit_logs (
//	    id         BIGSERIAL PRIMARY KEY,
//	    actor_id   BIGINT NOT NULL,
//	    action     TEXT NOT NULL,
//	    entity     TEXT NOT NULL,
//	    entity_id  TEXT NOT NULL DEFAULT '',
//	    detail     TEXT NOT NULL DEFAULT '',
//	    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
//	);
type Recorder struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewRecorder constructs a Recorder.
func NewRecorder(pool *pgxpool.Pool, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{pool: pool, logger: logger}
}

// Record writes one audit entry. Failures are logged, never fatal: an
// audit outage must not block the mutation it describes.
func (r *Recorder) Record(ctx context.Context, actorID int64, action, entity, entityID, detail string) {
	if r == nil || r.pool == nil {
		return
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO audit_logs (actor_id, action, entity, entity_id, detail) VALUES ($1, $2, $3, $4, $5)`,
		actorID, action, entity, entityID, detail)
	if err != nil {
		r.logger.Error("audit insert",
			slog.String("action", action),
			slog.String("entity", entity),
			slog.Any("error", err))
	}
}

// RecordRoleMutation implements the role-store audit port.
func (r *Recorder) RecordRoleMutation(ctx context.Context, actorID int64, action, roleName, detail string) {
	r.Record(ctx, actorID, action, "role", roleName, detail)
}

// Recent returns the newest entries, capped at limit.
func (r *Recorder) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx,
		`SELECT id, actor_id, action, entity, entity_id, detail, created_at
		 FROM audit_logs ORDER BY id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("audit: recent: %w", err)
	}
	defer rows.Close()
	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.ActorID, &e.Action, &e.Entity, &e.EntityID, &e.Detail, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
