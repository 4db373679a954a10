package holiday

import (
	"context"
	"strings"
	"time"
)

// RepositoryPort defines data access methods for holidays.
type RepositoryPort interface {
	Create(ctx context.Context, h Holiday) (*Holiday, error)
	Get(ctx context.Context, id int64) (*Holiday, error)
	Update(ctx context.Context, h Holiday) (*Holiday, error)
	Deactivate(ctx context.Context, id int64) error
	List(ctx context.Context, includeInactive bool) ([]Holiday, error)
	ListApplicable(ctx context.Context, jctx Context, from, to time.Time) ([]Holiday, error)
}

// Service is the holiday calendar store. Administrative writes go through it
// so the read cache is invalidated; the deadline engine only calls
// FindApplicable.
type Service struct {
	repo  RepositoryPort
	cache *Cache
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, cache *Cache) *Service {
	return &Service{repo: repo, cache: cache}
}

// FindApplicable resolves the set of holiday days applicable to the
// jurisdiction context within [from, to]. Recurring holidays are expanded
// to every occurrence inside the range.
func (s *Service) FindApplicable(ctx context.Context, jctx Context, from, to time.Time) (DateSet, error) {
	if err := jctx.Validate(); err != nil {
		return nil, err
	}
	from = TruncateDay(from)
	to = TruncateDay(to)
	if to.Before(from) {
		return DateSet{}, nil
	}

	key, err := s.cache.buildKey(ctx,
		strings.ToUpper(jctx.StateCode),
		NormalizeCity(jctx.CityName),
		strings.ToUpper(strings.Join(jctx.CourtCodes, ",")),
		from.Format(time.DateOnly),
		to.Format(time.DateOnly),
	)
	if err != nil {
		return nil, err
	}

	return s.cache.fetchDates(ctx, key, func(ctx context.Context) (DateSet, error) {
		rows, err := s.repo.ListApplicable(ctx, jctx, from, to)
		if err != nil {
			return nil, err
		}
		set := make(DateSet)
		for _, h := range rows {
			if !h.AppliesTo(jctx) {
				continue
			}
			for _, d := range h.DatesWithin(from, to) {
				set[d] = struct{}{}
			}
		}
		return set, nil
	})
}

// Create registers a holiday and invalidates cached lookups.
func (s *Service) Create(ctx context.Context, h Holiday) (*Holiday, error) {
	created, err := s.repo.Create(ctx, h)
	if err != nil {
		return nil, err
	}
	_ = s.cache.Bump(ctx)
	return created, nil
}

// Update edits a holiday and invalidates cached lookups.
func (s *Service) Update(ctx context.Context, h Holiday) (*Holiday, error) {
	updated, err := s.repo.Update(ctx, h)
	if err != nil {
		return nil, err
	}
	_ = s.cache.Bump(ctx)
	return updated, nil
}

// Deactivate retires a holiday and invalidates cached lookups.
func (s *Service) Deactivate(ctx context.Context, id int64) error {
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return err
	}
	_ = s.cache.Bump(ctx)
	return nil
}

// Get returns one holiday.
func (s *Service) Get(ctx context.Context, id int64) (*Holiday, error) {
	return s.repo.Get(ctx, id)
}

// List returns holidays for the administration screens.
func (s *Service) List(ctx context.Context, includeInactive bool) ([]Holiday, error) {
	return s.repo.List(ctx, includeInactive)
}
