package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cybercell/cybercell-api/internal/models"
	appErrors "github.com/cybercell/cybercell-api/pkg/errors"
)

type mockStatsRepo struct {
	byCategory []models.CategoryCount
	byCity     []models.CityCount
	byStatus   []models.StatusCount
	byMonth    []models.MonthCount
	calls      int
}

func (m *mockStatsRepo) CountByCategory(ctx context.Context) ([]models.CategoryCount, error) {
	m.calls++
	return m.byCategory, nil
}

func (m *mockStatsRepo) CountByCity(ctx context.Context, limit int) ([]models.CityCount, error) {
	return m.byCity, nil
}

func (m *mockStatsRepo) CountByStatus(ctx context.Context) ([]models.StatusCount, error) {
	return m.byStatus, nil
}

func (m *mockStatsRepo) CountByMonth(ctx context.Context, since time.Time) ([]models.MonthCount, error) {
	return m.byMonth, nil
}

type mockStatsCache struct {
	cached   *models.CrimeStats
	sets     int
	patterns []string
}

func (m *mockStatsCache) Get(ctx context.Context, key string, dest interface{}) error {
	if m.cached == nil {
		return appErrors.ErrCacheMiss
	}
	*dest.(*models.CrimeStats) = *m.cached
	return nil
}

func (m *mockStatsCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	m.sets++
	if stats, ok := value.(*models.CrimeStats); ok {
		m.cached = stats
	}
	return nil
}

func (m *mockStatsCache) DeleteByPattern(ctx context.Context, pattern string) error {
	m.cached = nil
	m.patterns = append(m.patterns, pattern)
	return nil
}

type mockCacheMetrics struct {
	hits   int
	misses int
}

func (m *mockCacheMetrics) RecordCacheOperation(hit bool) {
	if hit {
		m.hits++
	} else {
		m.misses++
	}
}

func newStatsService(repo *mockStatsRepo) *StatsService {
	svc := NewStatsService(repo, nil, time.Minute, nil, nil)
	svc.now = func() time.Time { return time.Date(2026, 8, 15, 10, 0, 0, 0, time.UTC) }
	return svc
}

func TestCrimeStatsForbiddenForCitizens(t *testing.T) {
	svc := newStatsService(&mockStatsRepo{})

	_, err := svc.CrimeStats(context.Background(), citizenClaims("u1"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestCrimeStatsZeroFillsStatuses(t *testing.T) {
	repo := &mockStatsRepo{
		byStatus: []models.StatusCount{{Status: models.StatusPending, Count: 4}},
	}
	svc := newStatsService(repo)

	stats, err := svc.CrimeStats(context.Background(), policeClaims("officer1"))
	require.NoError(t, err)
	require.Len(t, stats.ByStatus, 4)
	assert.Equal(t, models.StatusPending, stats.ByStatus[0].Status)
	assert.Equal(t, 4, stats.ByStatus[0].Count)
	for _, row := range stats.ByStatus[1:] {
		assert.Zero(t, row.Count)
	}
}

func TestCrimeStatsBuildsTrailingTwelveMonths(t *testing.T) {
	repo := &mockStatsRepo{
		byMonth: []models.MonthCount{
			{Month: "2025-09", Count: 2},
			{Month: "2026-08", Count: 7},
		},
	}
	svc := newStatsService(repo)

	stats, err := svc.CrimeStats(context.Background(), adminClaims("a1"))
	require.NoError(t, err)
	require.Len(t, stats.ByMonth, 12)
	assert.Equal(t, "2025-09", stats.ByMonth[0].Month)
	assert.Equal(t, 2, stats.ByMonth[0].Count)
	assert.Equal(t, "2026-08", stats.ByMonth[11].Month)
	assert.Equal(t, 7, stats.ByMonth[11].Count)
	assert.Zero(t, stats.ByMonth[5].Count)
}

func TestCrimeStatsWritesThroughCache(t *testing.T) {
	repo := &mockStatsRepo{}
	cache := &mockStatsCache{}
	svc := NewStatsService(repo, cache, time.Minute, nil, nil)
	svc.now = func() time.Time { return time.Date(2026, 8, 15, 10, 0, 0, 0, time.UTC) }

	_, err := svc.CrimeStats(context.Background(), policeClaims("officer1"))
	require.NoError(t, err)
	assert.Equal(t, 1, repo.calls)
	assert.Equal(t, 1, cache.sets)
}

func TestCrimeStatsRecordsCacheMissThenHit(t *testing.T) {
	repo := &mockStatsRepo{}
	cache := &mockStatsCache{}
	metrics := &mockCacheMetrics{}
	svc := NewStatsService(repo, cache, time.Minute, metrics, nil)
	svc.now = func() time.Time { return time.Date(2026, 8, 15, 10, 0, 0, 0, time.UTC) }

	_, err := svc.CrimeStats(context.Background(), policeClaims("officer1"))
	require.NoError(t, err)
	_, err = svc.CrimeStats(context.Background(), policeClaims("officer1"))
	require.NoError(t, err)

	assert.Equal(t, 1, metrics.misses)
	assert.Equal(t, 1, metrics.hits)
	assert.Equal(t, 1, repo.calls)
}

func TestInvalidateDropsCachedStats(t *testing.T) {
	repo := &mockStatsRepo{}
	cache := &mockStatsCache{}
	svc := NewStatsService(repo, cache, time.Minute, nil, nil)
	svc.now = func() time.Time { return time.Date(2026, 8, 15, 10, 0, 0, 0, time.UTC) }

	_, err := svc.CrimeStats(context.Background(), policeClaims("officer1"))
	require.NoError(t, err)

	svc.Invalidate(context.Background())
	require.Len(t, cache.patterns, 1)
	assert.Equal(t, "stats:*", cache.patterns[0])

	_, err = svc.CrimeStats(context.Background(), adminClaims("a1"))
	require.NoError(t, err)
	assert.Equal(t, 2, repo.calls)
}
