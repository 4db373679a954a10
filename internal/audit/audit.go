// Package audit records lifecycle transitions for legal traceability.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Event is one recorded transition.
type Event struct {
	ID       uuid.UUID
	Entity   string
	EntityID int64
	Action   string
	Detail   string
	At       time.Time
}

// Recorder persists audit events inside the caller's transaction, so a
// rolled-back transition leaves no trace. A nil Recorder disables auditing.
type Recorder interface {
	Record(ctx context.Context, tx pgx.Tx, e Event) error
}

// Repository implements Recorder on PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Record inserts one event within the given transaction.
func (r *Repository) Record(ctx context.Context, tx pgx.Tx, e Event) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	_, err := tx.Exec(ctx,
		`INSERT INTO audit_events (id, entity, entity_id, action, detail, at) VALUES ($1, $2, $3, $4, $5, $6)`,
		e.ID, e.Entity, e.EntityID, e.Action, e.Detail, e.At)
	return err
}

// ListForEntity returns events for one entity, newest first.
func (r *Repository) ListForEntity(ctx context.Context, entity string, entityID int64) ([]Event, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, entity, entity_id, action, detail, at FROM audit_events WHERE entity=$1 AND entity_id=$2 ORDER BY at DESC`,
		entity, entityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.Entity, &e.EntityID, &e.Action, &e.Detail, &e.At); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
