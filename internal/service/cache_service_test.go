package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/study-plan-api/internal/models"
)

type failingCacheRepo struct{ *memoryCacheRepo }

func (f *failingCacheRepo) Get(context.Context, string, interface{}) error {
	return errors.New("connection refused")
}

func TestCacheServiceHitAndMiss(t *testing.T) {
	metrics := NewMetricsService()
	repo := newMemoryCacheRepo()
	svc := NewCacheService(repo, metrics, 0, nil, true)
	ctx := context.Background()

	var progress models.Progress
	hit, err := svc.Get(ctx, "k", &progress)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, svc.Set(ctx, "k", models.Progress{CompletionRate: 40}, 0))
	hit, err = svc.Get(ctx, "k", &progress)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 40, progress.CompletionRate)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.cacheHits))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.cacheMisses))

	require.NoError(t, svc.Delete(ctx, "k"))
	hit, _ = svc.Get(ctx, "k", &progress)
	assert.False(t, hit)
}

func TestCacheServiceDisabled(t *testing.T) {
	repo := newMemoryCacheRepo()
	svc := NewCacheService(repo, nil, time.Minute, nil, false)

	require.NoError(t, svc.Set(context.Background(), "k", models.Progress{}, 0))
	assert.Empty(t, repo.entries)

	var nilSvc *CacheService
	hit, err := nilSvc.Get(context.Background(), "k", &models.Progress{})
	assert.False(t, hit)
	assert.NoError(t, err)
}

func TestCacheServiceSurfacesBackendErrors(t *testing.T) {
	svc := NewCacheService(&failingCacheRepo{memoryCacheRepo: newMemoryCacheRepo()}, nil, time.Minute, nil, true)

	hit, err := svc.Get(context.Background(), "k", &models.Progress{})
	assert.False(t, hit)
	assert.Error(t, err)
}
