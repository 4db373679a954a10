package sequence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lexdesk/lexdesk/internal/platform/db"
)

// pgLockNotAvailable is raised when lock_timeout expires while waiting on
// the counter row.
const pgLockNotAvailable = "55P03"

// Repository implements CounterPort on the singleton sequence_counter row.
// All allocations serialize on that row's lock; the critical section is a
// single read-increment-write.
type Repository struct {
	pool        *pgxpool.Pool
	lockTimeout time.Duration
}

// NewRepository constructs a repository. lockTimeout bounds the wait on the
// counter row; zero keeps the session default.
func NewRepository(pool *pgxpool.Pool, lockTimeout time.Duration) *Repository {
	return &Repository{pool: pool, lockTimeout: lockTimeout}
}

// Next increments the global counter inside its own transaction and returns
// the new value. The row is created with the seed value on first use.
func (r *Repository) Next(ctx context.Context) (int64, error) {
	var next int64
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if r.lockTimeout > 0 {
			// SET LOCAL does not accept bind parameters.
			stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", r.lockTimeout.Milliseconds())
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return err
			}
		}

		if _, err := tx.Exec(ctx,
			`INSERT INTO sequence_counter (id, last_number) VALUES (1, $1) ON CONFLICT (id) DO NOTHING`,
			int64(Seed)); err != nil {
			return err
		}

		var last int64
		if err := tx.QueryRow(ctx,
			`SELECT last_number FROM sequence_counter WHERE id = 1 FOR UPDATE`).Scan(&last); err != nil {
			return err
		}

		next = last + 1
		_, err := tx.Exec(ctx,
			`UPDATE sequence_counter SET last_number = $1 WHERE id = 1`, next)
		return err
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgLockNotAvailable {
			return 0, ErrAllocationConflict
		}
		return 0, err
	}
	return next, nil
}
