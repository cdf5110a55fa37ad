package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/noah-isme/study-plan-api/internal/models"
)

// MemoryStudyPlanRepository keeps plans in process memory. Plans are deep-copied
// on the way in and out so callers never share session slices.
type MemoryStudyPlanRepository struct {
	mu    sync.RWMutex
	plans map[string]*models.StudyPlan
}

// NewMemoryStudyPlanRepository builds an empty store.
func NewMemoryStudyPlanRepository() *MemoryStudyPlanRepository {
	return &MemoryStudyPlanRepository{plans: make(map[string]*models.StudyPlan)}
}

func (r *MemoryStudyPlanRepository) Replace(_ context.Context, plan *models.StudyPlan) error {
	if plan.ID == "" {
		plan.ID = uuid.NewString()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.plans[plan.LearnerID] = clonePlan(plan)
	return nil
}

func (r *MemoryStudyPlanRepository) FindByLearner(_ context.Context, learnerID string) (*models.StudyPlan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	plan, ok := r.plans[learnerID]
	if !ok {
		return nil, fmt.Errorf("get study plan: %w", sql.ErrNoRows)
	}
	return clonePlan(plan), nil
}

func (r *MemoryStudyPlanRepository) UpdateSession(_ context.Context, planID string, position int, session models.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, plan := range r.plans {
		if plan.ID != planID {
			continue
		}
		if position < 0 || position >= len(plan.Sessions) {
			break
		}
		plan.Sessions[position].Completed = session.Completed
		plan.Sessions[position].Notes = session.Notes
		return nil
	}
	return fmt.Errorf("update study session: %w", sql.ErrNoRows)
}

func (r *MemoryStudyPlanRepository) Delete(_ context.Context, learnerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.plans[learnerID]; !ok {
		return fmt.Errorf("delete study plan: %w", sql.ErrNoRows)
	}
	delete(r.plans, learnerID)
	return nil
}

func clonePlan(plan *models.StudyPlan) *models.StudyPlan {
	out := *plan
	out.Settings.Subjects = append([]string(nil), plan.Settings.Subjects...)
	out.Settings.TimePreferences = append([]models.TimeOfDay(nil), plan.Settings.TimePreferences...)
	out.Sessions = make(models.Schedule, len(plan.Sessions))
	for i, s := range plan.Sessions {
		s.Resources = append([]models.Resource{}, s.Resources...)
		out.Sessions[i] = s
	}
	return &out
}
