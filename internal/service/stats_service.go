package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/cybercell/cybercell-api/internal/models"
	appErrors "github.com/cybercell/cybercell-api/pkg/errors"
)

const statsCacheKey = "stats:crime:v1"

type statsRepository interface {
	CountByCategory(ctx context.Context) ([]models.CategoryCount, error)
	CountByCity(ctx context.Context, limit int) ([]models.CityCount, error)
	CountByStatus(ctx context.Context) ([]models.StatusCount, error)
	CountByMonth(ctx context.Context, since time.Time) ([]models.MonthCount, error)
}

type statsCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

type cacheMetrics interface {
	RecordCacheOperation(hit bool)
}

// StatsService aggregates dashboard statistics for staff, fronted by a Redis
// cache.
type StatsService struct {
	repo    statsRepository
	cache   statsCache
	metrics cacheMetrics
	ttl     time.Duration
	logger  *zap.Logger
	now     func() time.Time
}

// NewStatsService constructs a StatsService. Metrics may be nil.
func NewStatsService(repo statsRepository, cache statsCache, ttl time.Duration, metrics cacheMetrics, logger *zap.Logger) *StatsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &StatsService{repo: repo, cache: cache, metrics: metrics, ttl: ttl, logger: logger, now: time.Now}
}

// CrimeStats returns the aggregate dashboard payload. Police or admin only.
// The status breakdown covers every known status, zero-filled; the monthly
// series covers the trailing 12 calendar months, oldest first.
func (s *StatsService) CrimeStats(ctx context.Context, actor *models.JWTClaims) (*models.CrimeStats, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if actor.Role != models.RolePolice && actor.Role != models.RoleAdmin {
		return nil, appErrors.ErrForbidden
	}

	if s.cache != nil {
		var cached models.CrimeStats
		err := s.cache.Get(ctx, statsCacheKey, &cached)
		if err == nil {
			if s.metrics != nil {
				s.metrics.RecordCacheOperation(true)
			}
			return &cached, nil
		}
		if errors.Is(err, appErrors.ErrCacheMiss) {
			if s.metrics != nil {
				s.metrics.RecordCacheOperation(false)
			}
		} else {
			s.logger.Warn("stats cache read failed", zap.Error(err))
		}
	}

	stats, err := s.compute(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, statsCacheKey, stats, s.ttl); err != nil {
			s.logger.Warn("stats cache write failed", zap.Error(err))
		}
	}
	return stats, nil
}

// Invalidate drops the cached payload so the next read recomputes.
func (s *StatsService) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, "stats:*"); err != nil {
		s.logger.Warn("stats cache invalidation failed", zap.Error(err))
	}
}

func (s *StatsService) compute(ctx context.Context) (*models.CrimeStats, error) {
	byCategory, err := s.repo.CountByCategory(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate categories")
	}

	byCity, err := s.repo.CountByCity(ctx, 10)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate cities")
	}

	rawStatus, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate statuses")
	}

	monthStart := time.Date(s.now().UTC().Year(), s.now().UTC().Month(), 1, 0, 0, 0, 0, time.UTC)
	cutoff := monthStart.AddDate(0, -11, 0)
	rawMonths, err := s.repo.CountByMonth(ctx, cutoff)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate months")
	}

	return &models.CrimeStats{
		ByCategory: byCategory,
		ByCity:     byCity,
		ByStatus:   fillStatuses(rawStatus),
		ByMonth:    fillMonths(rawMonths, monthStart),
	}, nil
}

// fillStatuses guarantees one row per known status, zero where no reports
// exist, in lifecycle order.
func fillStatuses(raw []models.StatusCount) []models.StatusCount {
	counts := make(map[models.ReportStatus]int, len(raw))
	for _, row := range raw {
		counts[row.Status] = row.Count
	}
	out := make([]models.StatusCount, 0, len(models.AllStatuses))
	for _, status := range models.AllStatuses {
		out = append(out, models.StatusCount{Status: status, Count: counts[status]})
	}
	return out
}

// fillMonths guarantees exactly 12 rows ending with the current month, oldest
// first, zero where no reports exist.
func fillMonths(raw []models.MonthCount, monthStart time.Time) []models.MonthCount {
	counts := make(map[string]int, len(raw))
	for _, row := range raw {
		counts[row.Month] = row.Count
	}
	out := make([]models.MonthCount, 0, 12)
	for i := 11; i >= 0; i-- {
		month := monthStart.AddDate(0, -i, 0).Format("2006-01")
		out = append(out, models.MonthCount{Month: month, Count: counts[month]})
	}
	return out
}
