package holiday

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides PostgreSQL backed persistence for holidays.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const holidayColumns = `id, name, date, scope, state_code, city_name, city_key, court_code, recurring, active, created_at, updated_at`

func scanHoliday(row pgx.Row) (*Holiday, error) {
	var h Holiday
	var cityKey string
	err := row.Scan(&h.ID, &h.Name, &h.Date, &h.Scope, &h.StateCode, &h.CityName, &cityKey,
		&h.CourtCode, &h.Recurring, &h.Active, &h.CreatedAt, &h.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &h, nil
}

// Create inserts a holiday. Duplicate (scope, date, jurisdiction) rows map
// to ErrDuplicate via the unique index.
func (r *Repository) Create(ctx context.Context, h Holiday) (*Holiday, error) {
	if err := h.Validate(); err != nil {
		return nil, err
	}
	query := `
		INSERT INTO holidays (name, date, scope, state_code, city_name, city_key, court_code, recurring, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
		RETURNING id, created_at, updated_at`

	err := r.pool.QueryRow(ctx, query,
		h.Name,
		TruncateDay(h.Date),
		h.Scope,
		h.StateCode,
		h.CityName,
		NormalizeCity(h.CityName),
		h.CourtCode,
		h.Recurring,
		h.Active,
	).Scan(&h.ID, &h.CreatedAt, &h.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	h.Date = TruncateDay(h.Date)
	return &h, nil
}

// Get returns a holiday by id.
func (r *Repository) Get(ctx context.Context, id int64) (*Holiday, error) {
	return scanHoliday(r.pool.QueryRow(ctx,
		`SELECT `+holidayColumns+` FROM holidays WHERE id = $1`, id))
}

// Update rewrites an existing holiday row.
func (r *Repository) Update(ctx context.Context, h Holiday) (*Holiday, error) {
	if err := h.Validate(); err != nil {
		return nil, err
	}
	query := `
		UPDATE holidays
		SET name=$2, date=$3, scope=$4, state_code=$5, city_name=$6, city_key=$7, court_code=$8, recurring=$9, active=$10, updated_at=NOW()
		WHERE id=$1
		RETURNING updated_at`

	err := r.pool.QueryRow(ctx, query,
		h.ID,
		h.Name,
		TruncateDay(h.Date),
		h.Scope,
		h.StateCode,
		h.CityName,
		NormalizeCity(h.CityName),
		h.CourtCode,
		h.Recurring,
		h.Active,
	).Scan(&h.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	h.Date = TruncateDay(h.Date)
	return &h, nil
}

// Deactivate flags a holiday inactive without deleting the row.
func (r *Repository) Deactivate(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE holidays SET active=false, updated_at=NOW() WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns holidays, optionally including inactive rows.
func (r *Repository) List(ctx context.Context, includeInactive bool) ([]Holiday, error) {
	query := `SELECT ` + holidayColumns + ` FROM holidays`
	if !includeInactive {
		query += ` WHERE active`
	}
	query += ` ORDER BY date, scope, id`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Holiday
	for rows.Next() {
		h, err := scanHoliday(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *h)
	}
	return out, rows.Err()
}

// ListApplicable returns active holidays matching the jurisdiction context
// that can occupy days inside [from, to]. Recurring rows are returned
// regardless of their stored year; expansion into concrete days happens in
// the service.
func (r *Repository) ListApplicable(ctx context.Context, jctx Context, from, to time.Time) ([]Holiday, error) {
	query := `
		SELECT ` + holidayColumns + `
		FROM holidays
		WHERE active
		  AND (recurring OR (date >= $1 AND date <= $2))
		  AND (
		        scope = 'NATIONAL'
		     OR (scope = 'STATE' AND state_code ILIKE $3)
		     OR (scope = 'MUNICIPAL' AND state_code ILIKE $3 AND city_key = $4)
		     OR (scope = 'COURT' AND court_code ILIKE ANY($5))
		  )
		ORDER BY date, id`

	courts := jctx.CourtCodes
	if courts == nil {
		courts = []string{}
	}
	rows, err := r.pool.Query(ctx, query,
		TruncateDay(from), TruncateDay(to),
		jctx.StateCode, NormalizeCity(jctx.CityName), courts)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Holiday
	for rows.Next() {
		h, err := scanHoliday(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *h)
	}
	return out, rows.Err()
}
