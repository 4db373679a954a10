package deadline

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lexdesk/lexdesk/internal/audit"
	"github.com/lexdesk/lexdesk/internal/platform/db"
)

// Repository provides PostgreSQL backed persistence for deadlines.
type Repository struct {
	pool  *pgxpool.Pool
	audit audit.Recorder
}

// NewRepository constructs a repository. recorder may be nil to disable the
// audit trail.
func NewRepository(pool *pgxpool.Pool, recorder audit.Recorder) *Repository {
	return &Repository{pool: pool, audit: recorder}
}

const auditEntity = "deadline"

const deadlineColumns = `id, uid, process_ref, title, start_date, due_date, original_due_date,
days_count, counting_type, status, priority, completed_at, completion_notes,
protocol_ref, justification, extension_reason, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDeadline(row rowScanner) (*Deadline, error) {
	var d Deadline
	err := row.Scan(&d.ID, &d.UID, &d.ProcessRef, &d.Title, &d.StartDate, &d.DueDate,
		&d.OriginalDueDate, &d.DaysCount, &d.Counting, &d.Status, &d.Priority,
		&d.CompletedAt, &d.CompletionNotes, &d.ProtocolRef, &d.Justification,
		&d.ExtensionReason, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}

// Create inserts a new deadline.
func (r *Repository) Create(ctx context.Context, d Deadline) (*Deadline, error) {
	query := `
		INSERT INTO deadlines (uid, process_ref, title, start_date, due_date, days_count,
			counting_type, status, priority, protocol_ref, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
		RETURNING id, created_at, updated_at`

	err := r.pool.QueryRow(ctx, query,
		d.UID,
		d.ProcessRef,
		d.Title,
		d.StartDate,
		d.DueDate,
		d.DaysCount,
		d.Counting,
		d.Status,
		d.Priority,
		d.ProtocolRef,
	).Scan(&d.ID, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// Get returns a deadline by id.
func (r *Repository) Get(ctx context.Context, id int64) (*Deadline, error) {
	return scanDeadline(r.pool.QueryRow(ctx,
		`SELECT `+deadlineColumns+` FROM deadlines WHERE id = $1`, id))
}

// GetByUID returns a deadline by its global UID.
func (r *Repository) GetByUID(ctx context.Context, uid string) (*Deadline, error) {
	return scanDeadline(r.pool.QueryRow(ctx,
		`SELECT `+deadlineColumns+` FROM deadlines WHERE uid = $1`, uid))
}

// transition runs a guarded status update inside one transaction. The
// UPDATE carries WHERE status='PENDING', so a concurrent transition makes
// the statement match nothing; the follow-up existence check then separates
// ErrAlreadyTerminal from ErrNotFound.
func (r *Repository) transition(ctx context.Context, id int64, action, detail, query string, args ...any) (*Deadline, error) {
	var updated *Deadline
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		d, err := scanDeadline(tx.QueryRow(ctx, query, args...))
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				var status Status
				checkErr := tx.QueryRow(ctx,
					`SELECT status FROM deadlines WHERE id = $1`, id).Scan(&status)
				if checkErr == nil {
					return ErrAlreadyTerminal
				}
				if errors.Is(checkErr, pgx.ErrNoRows) {
					return ErrNotFound
				}
				return checkErr
			}
			return err
		}
		if r.audit != nil {
			if err := r.audit.Record(ctx, tx, audit.Event{
				Entity:   auditEntity,
				EntityID: id,
				Action:   action,
				Detail:   detail,
			}); err != nil {
				return err
			}
		}
		updated = d
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Complete marks a Pending deadline completed.
func (r *Repository) Complete(ctx context.Context, id int64, at time.Time, notes, protocolRef string) (*Deadline, error) {
	query := `
		UPDATE deadlines
		SET status='COMPLETED', completed_at=$2, completion_notes=$3,
		    protocol_ref=COALESCE(NULLIF($4, ''), protocol_ref), updated_at=NOW()
		WHERE id=$1 AND status='PENDING'
		RETURNING ` + deadlineColumns
	return r.transition(ctx, id, "complete", notes, query, id, at, notes, protocolRef)
}

// Extend moves the due date of a Pending deadline. The first extension
// snapshots the current due date into original_due_date atomically with the
// overwrite; the snapshot is immutable afterwards.
func (r *Repository) Extend(ctx context.Context, id int64, newDueDate time.Time, reason string) (*Deadline, error) {
	query := `
		UPDATE deadlines
		SET original_due_date=COALESCE(original_due_date, due_date),
		    due_date=$2, extension_reason=$3, updated_at=NOW()
		WHERE id=$1 AND status='PENDING'
		RETURNING ` + deadlineColumns
	return r.transition(ctx, id, "extend", reason, query, id, newDueDate, reason)
}

// MarkMissed records a Pending deadline as missed.
func (r *Repository) MarkMissed(ctx context.Context, id int64, justification string) (*Deadline, error) {
	query := `
		UPDATE deadlines
		SET status='MISSED', justification=$2, updated_at=NOW()
		WHERE id=$1 AND status='PENDING'
		RETURNING ` + deadlineColumns
	return r.transition(ctx, id, "miss", justification, query, id, justification)
}

// ListOverdue returns Pending deadlines due strictly before asOf.
func (r *Repository) ListOverdue(ctx context.Context, asOf time.Time) ([]Deadline, error) {
	return r.list(ctx,
		`SELECT `+deadlineColumns+` FROM deadlines WHERE status='PENDING' AND due_date < $1 ORDER BY due_date, id`,
		asOf)
}

// ListDueOn returns Pending deadlines due exactly on the given day.
func (r *Repository) ListDueOn(ctx context.Context, day time.Time) ([]Deadline, error) {
	return r.list(ctx,
		`SELECT `+deadlineColumns+` FROM deadlines WHERE status='PENDING' AND due_date = $1 ORDER BY priority DESC, id`,
		day)
}

// ListDueBetween returns Pending deadlines due within [from, to].
func (r *Repository) ListDueBetween(ctx context.Context, from, to time.Time) ([]Deadline, error) {
	return r.list(ctx,
		`SELECT `+deadlineColumns+` FROM deadlines WHERE status='PENDING' AND due_date >= $1 AND due_date <= $2 ORDER BY due_date, id`,
		from, to)
}

func (r *Repository) list(ctx context.Context, query string, args ...any) ([]Deadline, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Deadline
	for rows.Next() {
		d, err := scanDeadline(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}
