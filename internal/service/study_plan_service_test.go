package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/study-plan-api/internal/dto"
	"github.com/noah-isme/study-plan-api/internal/event"
	"github.com/noah-isme/study-plan-api/internal/models"
	"github.com/noah-isme/study-plan-api/internal/planner"
	appErrors "github.com/noah-isme/study-plan-api/pkg/errors"
)

var planNow = time.Date(2026, 5, 4, 8, 0, 0, 0, time.UTC)

type fakePlanStore struct {
	mu         sync.Mutex
	plans      map[string]*models.StudyPlan
	replaceErr error
	updates    int
}

func newFakePlanStore() *fakePlanStore {
	return &fakePlanStore{plans: map[string]*models.StudyPlan{}}
}

func (f *fakePlanStore) Replace(_ context.Context, plan *models.StudyPlan) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.replaceErr != nil {
		return f.replaceErr
	}
	cp := *plan
	cp.Sessions = append(models.Schedule(nil), plan.Sessions...)
	f.plans[plan.LearnerID] = &cp
	return nil
}

func (f *fakePlanStore) FindByLearner(_ context.Context, learnerID string) (*models.StudyPlan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	plan, ok := f.plans[learnerID]
	if !ok {
		return nil, fmt.Errorf("get study plan: %w", sql.ErrNoRows)
	}
	cp := *plan
	cp.Sessions = append(models.Schedule(nil), plan.Sessions...)
	return &cp, nil
}

func (f *fakePlanStore) UpdateSession(_ context.Context, planID string, position int, session models.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, plan := range f.plans {
		if plan.ID == planID && position < len(plan.Sessions) {
			plan.Sessions[position].Completed = session.Completed
			plan.Sessions[position].Notes = session.Notes
			f.updates++
			return nil
		}
	}
	return sql.ErrNoRows
}

func (f *fakePlanStore) Delete(_ context.Context, learnerID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.plans[learnerID]; !ok {
		return sql.ErrNoRows
	}
	delete(f.plans, learnerID)
	return nil
}

type memoryCacheRepo struct {
	mu      sync.Mutex
	entries map[string]interface{}
	gets    int
}

func newMemoryCacheRepo() *memoryCacheRepo {
	return &memoryCacheRepo{entries: map[string]interface{}{}}
}

func (m *memoryCacheRepo) Get(_ context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	v, ok := m.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	*(dest.(*models.Progress)) = v.(models.Progress)
	return nil
}

func (m *memoryCacheRepo) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = value
	return nil
}

func (m *memoryCacheRepo) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.entries, k)
	}
	return nil
}

func (m *memoryCacheRepo) DeleteByPattern(context.Context, string) error { return nil }

type planServiceFixture struct {
	svc    *StudyPlanService
	store  *fakePlanStore
	cache  *memoryCacheRepo
	events *event.Recorder
}

func newPlanServiceFixture(t *testing.T) planServiceFixture {
	t.Helper()
	catalog, err := planner.DefaultCatalog()
	require.NoError(t, err)

	store := newFakePlanStore()
	cacheRepo := newMemoryCacheRepo()
	recorder := event.NewRecorder()
	metrics := NewMetricsService()
	svc := NewStudyPlanService(
		store,
		planner.NewAssembler(catalog, nil),
		recorder,
		NewCacheService(cacheRepo, metrics, time.Minute, nil, true),
		metrics,
		nil,
		nil,
		StudyPlanConfig{},
	)
	svc.now = func() time.Time { return planNow }
	return planServiceFixture{svc: svc, store: store, cache: cacheRepo, events: recorder}
}

func seed(v int64) *int64 { return &v }

func physicsRequest() dto.GenerateStudyPlanRequest {
	return dto.GenerateStudyPlanRequest{
		ExamDate:         planNow.AddDate(0, 0, 5).Format(time.RFC3339),
		Subjects:         []string{"Physics"},
		StudyHoursPerDay: 2,
		Difficulty:       "beginner",
		Seed:             seed(42),
	}
}

func TestStudyPlanServiceGenerate(t *testing.T) {
	f := newPlanServiceFixture(t)

	resp, err := f.svc.Generate(context.Background(), "learner-1", physicsRequest())
	require.NoError(t, err)

	assert.Empty(t, resp.Warning)
	assert.Equal(t, 5, resp.Plan.DaysToPlan)
	require.Len(t, resp.Plan.Sessions, 10)
	assert.Equal(t, "09:00", resp.Plan.Sessions[0].Time)
	assert.Equal(t, int64(42), resp.Plan.Settings.Seed)
	assert.Equal(t, 5, resp.Progress.DaysLeft)
	assert.Equal(t, 0, resp.Progress.CompletionRate)

	stored, err := f.store.FindByLearner(context.Background(), "learner-1")
	require.NoError(t, err)
	assert.Equal(t, resp.Plan.ID, stored.ID)

	assert.Equal(t, []event.Type{event.PlanGenerationStarted, event.PlanGenerationCompleted}, f.events.Types())
	assert.Contains(t, f.cache.entries, progressCacheKey("learner-1", planNow))
}

func TestStudyPlanServiceGenerateIsReproducibleWithSeed(t *testing.T) {
	f := newPlanServiceFixture(t)
	req := physicsRequest()
	req.Subjects = []string{"Physics", "Chemistry", "Underwater Basket Weaving"}

	first, err := f.svc.Generate(context.Background(), "learner-1", req)
	require.NoError(t, err)
	second, err := f.svc.Generate(context.Background(), "learner-2", req)
	require.NoError(t, err)

	assert.Equal(t, first.Plan.Sessions, second.Plan.Sessions)
}

func TestStudyPlanServiceGenerateReplacesPreviousPlan(t *testing.T) {
	f := newPlanServiceFixture(t)
	first, err := f.svc.Generate(context.Background(), "learner-1", physicsRequest())
	require.NoError(t, err)
	_, err = f.svc.SetCompleted(context.Background(), "learner-1", 0, true)
	require.NoError(t, err)

	req := physicsRequest()
	req.StudyHoursPerDay = 1
	second, err := f.svc.Generate(context.Background(), "learner-1", req)
	require.NoError(t, err)

	assert.NotEqual(t, first.Plan.ID, second.Plan.ID)
	stored, err := f.store.FindByLearner(context.Background(), "learner-1")
	require.NoError(t, err)
	assert.Len(t, stored.Sessions, 5)
	assert.False(t, stored.Sessions[0].Completed)
}

func TestStudyPlanServiceGeneratePastExam(t *testing.T) {
	f := newPlanServiceFixture(t)
	req := physicsRequest()
	req.ExamDate = planNow.AddDate(0, 0, -1).Format("2006-01-02")

	resp, err := f.svc.Generate(context.Background(), "learner-1", req)
	require.NoError(t, err)

	assert.Equal(t, PastExamWarning, resp.Warning)
	assert.Empty(t, resp.Plan.Sessions)
	assert.NotNil(t, resp.Plan.Sessions)
	assert.Equal(t, 0, resp.Plan.DaysToPlan)
	assert.Equal(t, 0, resp.Progress.DaysLeft)
}

func TestStudyPlanServiceGenerateValidation(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*dto.GenerateStudyPlanRequest)
	}{
		{name: "no subjects", mutate: func(r *dto.GenerateStudyPlanRequest) { r.Subjects = nil }},
		{name: "zero hours", mutate: func(r *dto.GenerateStudyPlanRequest) { r.StudyHoursPerDay = 0 }},
		{name: "bad difficulty", mutate: func(r *dto.GenerateStudyPlanRequest) { r.Difficulty = "expert" }},
		{name: "bad style", mutate: func(r *dto.GenerateStudyPlanRequest) { r.LearningStyle = "osmosis" }},
		{name: "bad preference", mutate: func(r *dto.GenerateStudyPlanRequest) { r.TimePreferences = []string{"dawn"} }},
		{name: "malformed date", mutate: func(r *dto.GenerateStudyPlanRequest) { r.ExamDate = "next tuesday" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newPlanServiceFixture(t)
			req := physicsRequest()
			tc.mutate(&req)

			_, err := f.svc.Generate(context.Background(), "learner-1", req)
			var appErr *appErrors.Error
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
			assert.Empty(t, f.events.Events())
		})
	}
}

func TestStudyPlanServiceGenerateCanceledBeforeAssembly(t *testing.T) {
	f := newPlanServiceFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.svc.Generate(ctx, "learner-1", physicsRequest())
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrCanceled.Code, appErr.Code)
	assert.Empty(t, f.events.Events())
	_, err = f.store.FindByLearner(context.Background(), "learner-1")
	assert.Error(t, err)
}

func TestStudyPlanServiceGenerateStoreFailure(t *testing.T) {
	f := newPlanServiceFixture(t)
	f.store.replaceErr = errors.New("db down")

	_, err := f.svc.Generate(context.Background(), "learner-1", physicsRequest())
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, http.StatusInternalServerError, appErr.Status)
}

func TestStudyPlanServiceSetCompleted(t *testing.T) {
	f := newPlanServiceFixture(t)
	_, err := f.svc.Generate(context.Background(), "learner-1", physicsRequest())
	require.NoError(t, err)

	resp, err := f.svc.SetCompleted(context.Background(), "learner-1", 0, true)
	require.NoError(t, err)
	assert.True(t, resp.Plan.Sessions[0].Completed)
	assert.Equal(t, 10, resp.Progress.CompletionRate)
	assert.Equal(t, 1, resp.Progress.TotalHours)
	assert.Equal(t, 1, resp.Progress.StudyStreak)

	assert.NotContains(t, f.cache.entries, progressCacheKey("learner-1", planNow))

	progress, hit, err := f.svc.Progress(context.Background(), "learner-1")
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 10, progress.CompletionRate)

	progress, hit, err = f.svc.Progress(context.Background(), "learner-1")
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 10, progress.CompletionRate)

	resp, err = f.svc.SetCompleted(context.Background(), "learner-1", 0, false)
	require.NoError(t, err)
	assert.Equal(t, 0, resp.Progress.CompletionRate)

	types := f.events.Types()
	assert.Equal(t, event.SessionCompleted, types[2])
	assert.Equal(t, event.SessionReopened, types[3])
}

func TestStudyPlanServiceSessionMutationsKeepOtherFields(t *testing.T) {
	f := newPlanServiceFixture(t)
	generated, err := f.svc.Generate(context.Background(), "learner-1", physicsRequest())
	require.NoError(t, err)
	before := generated.Plan.Sessions[3]

	notes := "went well"
	done := true
	resp, err := f.svc.UpdateSession(context.Background(), "learner-1", 3, dto.UpdateSessionRequest{Completed: &done, Notes: &notes})
	require.NoError(t, err)

	after := resp.Plan.Sessions[3]
	assert.Equal(t, "went well", after.Notes)
	assert.True(t, after.Completed)
	after.Notes, after.Completed = before.Notes, before.Completed
	assert.Equal(t, before, after)
	assert.Equal(t, 2, f.store.updates)
}

func TestStudyPlanServiceUpdateSessionErrors(t *testing.T) {
	f := newPlanServiceFixture(t)

	_, err := f.svc.SetCompleted(context.Background(), "ghost", 0, true)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrNoPlan.Code, appErr.Code)

	_, err = f.svc.Generate(context.Background(), "learner-1", physicsRequest())
	require.NoError(t, err)

	_, err = f.svc.UpdateNotes(context.Background(), "learner-1", 10, "x")
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)

	_, err = f.svc.UpdateSession(context.Background(), "learner-1", 0, dto.UpdateSessionRequest{})
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestStudyPlanServiceProgressRecomputesOnMiss(t *testing.T) {
	f := newPlanServiceFixture(t)
	_, err := f.svc.Generate(context.Background(), "learner-1", physicsRequest())
	require.NoError(t, err)
	f.cache.entries = map[string]interface{}{}

	progress, hit, err := f.svc.Progress(context.Background(), "learner-1")
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 5, progress.DaysLeft)
	assert.Contains(t, f.cache.entries, progressCacheKey("learner-1", planNow))
}

func TestStudyPlanServiceProgressCacheIsPerDay(t *testing.T) {
	f := newPlanServiceFixture(t)
	_, err := f.svc.Generate(context.Background(), "learner-1", physicsRequest())
	require.NoError(t, err)

	progress, hit, err := f.svc.Progress(context.Background(), "learner-1")
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, 5, progress.DaysLeft)

	tomorrow := planNow.AddDate(0, 0, 1)
	f.svc.now = func() time.Time { return tomorrow }

	progress, hit, err = f.svc.Progress(context.Background(), "learner-1")
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 4, progress.DaysLeft)
	assert.Contains(t, f.cache.entries, progressCacheKey("learner-1", tomorrow))
}

func TestStudyPlanServiceMutationsInvalidateProgress(t *testing.T) {
	f := newPlanServiceFixture(t)
	_, err := f.svc.Generate(context.Background(), "learner-1", physicsRequest())
	require.NoError(t, err)

	_, err = f.svc.SetCompleted(context.Background(), "learner-1", 0, true)
	require.NoError(t, err)
	_, err = f.svc.SetCompleted(context.Background(), "learner-1", 1, true)
	require.NoError(t, err)
	assert.NotContains(t, f.cache.entries, progressCacheKey("learner-1", planNow))

	progress, hit, err := f.svc.Progress(context.Background(), "learner-1")
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 20, progress.CompletionRate)
	assert.Equal(t, 2, progress.TotalHours)
}

func TestStudyPlanServiceGetAndDelete(t *testing.T) {
	f := newPlanServiceFixture(t)
	_, err := f.svc.Get(context.Background(), "learner-1")
	assert.Error(t, err)

	generated, err := f.svc.Generate(context.Background(), "learner-1", physicsRequest())
	require.NoError(t, err)

	got, err := f.svc.Get(context.Background(), "learner-1")
	require.NoError(t, err)
	assert.Equal(t, generated.Plan.ID, got.Plan.ID)

	require.NoError(t, f.svc.Delete(context.Background(), "learner-1"))
	assert.NotContains(t, f.cache.entries, progressCacheKey("learner-1", planNow))
	_, err = f.svc.Get(context.Background(), "learner-1")
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, http.StatusNotFound, appErr.Status)

	assert.Error(t, f.svc.Delete(context.Background(), "learner-1"))
}

func TestStudyPlanServiceConcurrentLearnersAreIndependent(t *testing.T) {
	f := newPlanServiceFixture(t)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.svc.Generate(context.Background(), fmt.Sprintf("learner-%d", i), physicsRequest())
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	reference, err := f.store.FindByLearner(context.Background(), "learner-0")
	require.NoError(t, err)
	for i := 1; i < 8; i++ {
		plan, err := f.store.FindByLearner(context.Background(), fmt.Sprintf("learner-%d", i))
		require.NoError(t, err)
		assert.Equal(t, reference.Sessions, plan.Sessions)
	}
}

func TestParseExamDate(t *testing.T) {
	d, err := ParseExamDate(" 2026-06-01 ")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC), d)

	d, err = ParseExamDate("2026-06-01T09:30:00+07:00")
	require.NoError(t, err)
	assert.Equal(t, 2, d.UTC().Hour())

	_, err = ParseExamDate("01/06/2026")
	assert.Error(t, err)
}
