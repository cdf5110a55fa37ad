package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/study-plan-api/internal/dto"
	"github.com/noah-isme/study-plan-api/internal/event"
	"github.com/noah-isme/study-plan-api/internal/models"
	"github.com/noah-isme/study-plan-api/internal/planner"
	"github.com/noah-isme/study-plan-api/pkg/cache"
	appErrors "github.com/noah-isme/study-plan-api/pkg/errors"
)

// PastExamWarning accompanies the empty plan produced for an exam that is not in the future.
const PastExamWarning = "exam date must be in the future"

// StudyPlanStore persists one plan per learner.
type StudyPlanStore interface {
	Replace(ctx context.Context, plan *models.StudyPlan) error
	FindByLearner(ctx context.Context, learnerID string) (*models.StudyPlan, error)
	UpdateSession(ctx context.Context, planID string, position int, session models.Session) error
	Delete(ctx context.Context, learnerID string) error
}

type eventPublisher interface {
	Publish(ctx context.Context, ev event.Event) error
}

type scheduleAssembler interface {
	Generate(in planner.Input) models.Schedule
}

// StudyPlanConfig tunes the plan service.
type StudyPlanConfig struct {
	ProgressTTL time.Duration
}

// StudyPlanService generates, stores and tracks one study plan per learner.
// The assembler is shared and stateless; every generation gets its own queues and seed.
type StudyPlanService struct {
	store     StudyPlanStore
	assembler scheduleAssembler
	events    eventPublisher
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       StudyPlanConfig
	now       func() time.Time
}

// NewStudyPlanService wires plan dependencies. events, cache and metrics may be nil.
func NewStudyPlanService(
	store StudyPlanStore,
	assembler scheduleAssembler,
	events eventPublisher,
	cacheSvc *CacheService,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg StudyPlanConfig,
) *StudyPlanService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ProgressTTL <= 0 {
		cfg.ProgressTTL = 10 * time.Minute
	}
	return &StudyPlanService{
		store:     store,
		assembler: assembler,
		events:    events,
		cache:     cacheSvc,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Generate builds a fresh plan for the learner and replaces any stored one.
// An exam date that is not in the future yields an empty plan and a warning.
func (s *StudyPlanService) Generate(ctx context.Context, learnerID string, req dto.GenerateStudyPlanRequest) (*dto.StudyPlanResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		s.metrics.ObservePlanGeneration(OutcomeRejected, 0, 0)
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid study plan payload")
	}
	examDate, err := ParseExamDate(req.ExamDate)
	if err != nil {
		s.metrics.ObservePlanGeneration(OutcomeRejected, 0, 0)
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "examDate must be YYYY-MM-DD or RFC 3339")
	}

	// Last point at which the request may be abandoned; assembly always runs to completion.
	if err := ctx.Err(); err != nil {
		s.metrics.ObservePlanGeneration(OutcomeCanceled, 0, 0)
		return nil, appErrors.Wrap(err, appErrors.ErrCanceled.Code, appErrors.ErrCanceled.Status, appErrors.ErrCanceled.Message)
	}

	now := s.now()
	input := toPlannerInput(req, planner.DaysUntil(examDate, now), now)
	plan := &models.StudyPlan{
		ID:         uuid.NewString(),
		LearnerID:  learnerID,
		ExamDate:   examDate,
		DaysToPlan: planner.PlanHorizon(input.TotalDaysUntilExam),
		Settings: models.PlanSettings{
			Subjects:         input.Subjects,
			StudyHoursPerDay: input.StudyHoursPerDay,
			Difficulty:       input.Difficulty,
			LearningStyle:    input.LearningStyle,
			TimePreferences:  input.TimePreferences,
			Seed:             input.Seed,
		},
		GeneratedAt: now.UTC(),
	}

	s.emit(ctx, event.New(event.PlanGenerationStarted, learnerID, plan.ID, now, map[string]interface{}{
		"daysUntilExam": input.TotalDaysUntilExam,
		"subjects":      len(input.Subjects),
	}))
	started := time.Now()
	plan.Sessions = s.assembler.Generate(input)
	elapsed := time.Since(started)
	s.emit(ctx, event.New(event.PlanGenerationCompleted, learnerID, plan.ID, s.now(), map[string]interface{}{
		"sessions":   len(plan.Sessions),
		"daysToPlan": plan.DaysToPlan,
		"durationMs": float64(elapsed.Microseconds()) / 1000,
	}))

	if err := s.store.Replace(ctx, plan); err != nil {
		s.metrics.ObservePlanGeneration(OutcomeFailed, 0, 0)
		s.logger.Error("failed to store study plan", zap.String("learner_id", learnerID), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store study plan")
	}

	progress := planner.Recompute(plan.Sessions, plan.ExamDate, now)
	s.cacheProgress(ctx, learnerID, now, progress)

	outcome := OutcomeGenerated
	resp := &dto.StudyPlanResponse{Plan: plan, Progress: progress}
	if input.TotalDaysUntilExam == 0 {
		outcome = OutcomeEmpty
		resp.Warning = PastExamWarning
	}
	s.metrics.ObservePlanGeneration(outcome, len(plan.Sessions), elapsed)
	s.logger.Info("study plan generated",
		zap.String("learner_id", learnerID),
		zap.String("plan_id", plan.ID),
		zap.Int("sessions", len(plan.Sessions)),
		zap.Int("days_to_plan", plan.DaysToPlan),
		zap.Int64("seed", input.Seed),
	)
	return resp, nil
}

// Get returns the learner's stored plan with freshly recomputed progress.
func (s *StudyPlanService) Get(ctx context.Context, learnerID string) (*dto.StudyPlanResponse, error) {
	plan, err := s.load(ctx, learnerID)
	if err != nil {
		return nil, err
	}
	return &dto.StudyPlanResponse{Plan: plan, Progress: planner.Recompute(plan.Sessions, plan.ExamDate, s.now())}, nil
}

// Progress returns cached progress when available, recomputing and caching it otherwise.
// Entries are keyed by calendar day because daysLeft and the streak depend on today's date.
func (s *StudyPlanService) Progress(ctx context.Context, learnerID string) (*models.Progress, bool, error) {
	now := s.now()
	var cached models.Progress
	if hit, _ := s.cache.Get(ctx, progressCacheKey(learnerID, now), &cached); hit {
		return &cached, true, nil
	}
	plan, err := s.load(ctx, learnerID)
	if err != nil {
		return nil, false, err
	}
	progress := planner.Recompute(plan.Sessions, plan.ExamDate, now)
	s.cacheProgress(ctx, learnerID, now, progress)
	return &progress, false, nil
}

// SetCompleted flips the completion flag of the session at index.
func (s *StudyPlanService) SetCompleted(ctx context.Context, learnerID string, index int, completed bool) (*dto.StudyPlanResponse, error) {
	evType := event.SessionReopened
	if completed {
		evType = event.SessionCompleted
	}
	return s.mutateSession(ctx, learnerID, index, "completed", evType, func(session *models.Session) {
		session.Completed = completed
	})
}

// UpdateNotes replaces the notes of the session at index.
func (s *StudyPlanService) UpdateNotes(ctx context.Context, learnerID string, index int, notes string) (*dto.StudyPlanResponse, error) {
	return s.mutateSession(ctx, learnerID, index, "notes", event.SessionNotesUpdated, func(session *models.Session) {
		session.Notes = notes
	})
}

// UpdateSession applies a partial update. Notes are written before completion so
// a combined request produces a single consistent result.
func (s *StudyPlanService) UpdateSession(ctx context.Context, learnerID string, index int, req dto.UpdateSessionRequest) (*dto.StudyPlanResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid session update")
	}
	if req.Completed == nil && req.Notes == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "completed or notes is required")
	}
	var (
		resp *dto.StudyPlanResponse
		err  error
	)
	if req.Notes != nil {
		if resp, err = s.UpdateNotes(ctx, learnerID, index, *req.Notes); err != nil {
			return nil, err
		}
	}
	if req.Completed != nil {
		if resp, err = s.SetCompleted(ctx, learnerID, index, *req.Completed); err != nil {
			return nil, err
		}
	}
	return resp, nil
}

// Delete drops the learner's plan and cached progress.
func (s *StudyPlanService) Delete(ctx context.Context, learnerID string) error {
	if err := s.store.Delete(ctx, learnerID); err != nil {
		return translateStoreError(err, "failed to delete study plan")
	}
	now := s.now()
	_ = s.cache.Delete(ctx, progressCacheKey(learnerID, now))
	s.emit(ctx, event.New(event.PlanDeleted, learnerID, "", s.now(), nil))
	return nil
}

func (s *StudyPlanService) mutateSession(ctx context.Context, learnerID string, index int, field string, evType event.Type, apply func(*models.Session)) (*dto.StudyPlanResponse, error) {
	plan, err := s.load(ctx, learnerID)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(plan.Sessions) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
	}

	apply(&plan.Sessions[index])
	if err := s.store.UpdateSession(ctx, plan.ID, index, plan.Sessions[index]); err != nil {
		return nil, translateStoreError(err, "failed to update session")
	}

	// Concurrent mutations each see their own snapshot, so the next read rebuilds from the store.
	now := s.now()
	_ = s.cache.Delete(ctx, progressCacheKey(learnerID, now))
	progress := planner.Recompute(plan.Sessions, plan.ExamDate, now)
	s.metrics.RecordSessionUpdate(field)
	s.emit(ctx, event.New(evType, learnerID, plan.ID, now, map[string]interface{}{
		"index":          index,
		"completionRate": progress.CompletionRate,
	}))
	return &dto.StudyPlanResponse{Plan: plan, Progress: progress}, nil
}

func (s *StudyPlanService) load(ctx context.Context, learnerID string) (*models.StudyPlan, error) {
	plan, err := s.store.FindByLearner(ctx, learnerID)
	if err != nil {
		return nil, translateStoreError(err, "failed to load study plan")
	}
	return plan, nil
}

func (s *StudyPlanService) cacheProgress(ctx context.Context, learnerID string, now time.Time, progress models.Progress) {
	_ = s.cache.Set(ctx, progressCacheKey(learnerID, now), progress, s.cfg.ProgressTTL)
}

func (s *StudyPlanService) emit(ctx context.Context, ev event.Event) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, ev); err != nil {
		s.logger.Warn("failed to publish event", zap.String("type", string(ev.Type)), zap.Error(err))
	}
}

func translateStoreError(err error, message string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Wrap(err, appErrors.ErrNoPlan.Code, appErrors.ErrNoPlan.Status, appErrors.ErrNoPlan.Message)
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

func progressCacheKey(learnerID string, now time.Time) string {
	return cache.Key("progress", learnerID, now.Format("2006-01-02"))
}

func toPlannerInput(req dto.GenerateStudyPlanRequest, daysUntil int, now time.Time) planner.Input {
	prefs := make([]models.TimeOfDay, 0, len(req.TimePreferences))
	for _, p := range req.TimePreferences {
		prefs = append(prefs, models.TimeOfDay(p))
	}
	seed := now.UnixNano()
	if req.Seed != nil {
		seed = *req.Seed
	}
	return planner.Input{
		Subjects:           append([]string(nil), req.Subjects...),
		TotalDaysUntilExam: daysUntil,
		StudyHoursPerDay:   req.StudyHoursPerDay,
		Difficulty:         models.Difficulty(req.Difficulty),
		LearningStyle:      models.LearningStyle(req.LearningStyle),
		TimePreferences:    prefs,
		SubjectFileTopics:  req.SubjectFileTopics,
		Seed:               seed,
	}
}

// ParseExamDate accepts a calendar date (midnight UTC) or an RFC 3339 timestamp.
func ParseExamDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, raw)
}
