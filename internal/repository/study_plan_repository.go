package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"

	"github.com/noah-isme/study-plan-api/internal/models"
)

type studyPlanRow struct {
	ID          string         `db:"id"`
	LearnerID   string         `db:"learner_id"`
	ExamDate    time.Time      `db:"exam_date"`
	DaysToPlan  int            `db:"days_to_plan"`
	Settings    types.JSONText `db:"settings"`
	GeneratedAt time.Time      `db:"generated_at"`
}

type studySessionRow struct {
	PlanID      string         `db:"plan_id"`
	Position    int            `db:"position"`
	Day         int            `db:"day"`
	Time        string         `db:"time"`
	Subject     string         `db:"subject"`
	Topic       string         `db:"topic"`
	SessionType string         `db:"session_type"`
	Priority    string         `db:"priority"`
	Completed   bool           `db:"completed"`
	Duration    int            `db:"duration"`
	Notes       string         `db:"notes"`
	Resources   types.JSONText `db:"resources"`
}

// StudyPlanRepository persists one plan per learner in PostgreSQL.
type StudyPlanRepository struct {
	db *sqlx.DB
}

// NewStudyPlanRepository builds the repository.
func NewStudyPlanRepository(db *sqlx.DB) *StudyPlanRepository {
	return &StudyPlanRepository{db: db}
}

// Replace removes the learner's previous plan, if any, and stores plan in a single transaction.
func (r *StudyPlanRepository) Replace(ctx context.Context, plan *models.StudyPlan) error {
	if plan.ID == "" {
		plan.ID = uuid.NewString()
	}
	settings, err := json.Marshal(plan.Settings)
	if err != nil {
		return fmt.Errorf("marshal plan settings: %w", err)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace plan tx: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM study_plans WHERE learner_id = $1`, plan.LearnerID); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("delete previous plan: %w", err)
	}

	const insertPlan = `INSERT INTO study_plans (id, learner_id, exam_date, days_to_plan, settings, generated_at)
VALUES (:id, :learner_id, :exam_date, :days_to_plan, :settings, :generated_at)`
	row := studyPlanRow{
		ID:          plan.ID,
		LearnerID:   plan.LearnerID,
		ExamDate:    plan.ExamDate.UTC(),
		DaysToPlan:  plan.DaysToPlan,
		Settings:    types.JSONText(settings),
		GeneratedAt: plan.GeneratedAt.UTC(),
	}
	if _, err := tx.NamedExecContext(ctx, insertPlan, row); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("insert plan: %w", err)
	}

	const insertSession = `INSERT INTO study_sessions (plan_id, position, day, time, subject, topic, session_type, priority, completed, duration, notes, resources)
VALUES (:plan_id, :position, :day, :time, :subject, :topic, :session_type, :priority, :completed, :duration, :notes, :resources)`
	for i, session := range plan.Sessions {
		sessionRow, err := toSessionRow(plan.ID, i, session)
		if err != nil {
			_ = tx.Rollback()
			return err
		}
		if _, err := tx.NamedExecContext(ctx, insertSession, sessionRow); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert session %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace plan tx: %w", err)
	}
	return nil
}

// FindByLearner loads the learner's plan with sessions in schedule order.
// Both reads share one repeatable-read snapshot so a concurrent Replace is never seen half-applied.
// It returns an error wrapping sql.ErrNoRows when the learner has no plan.
func (r *StudyPlanRepository) FindByLearner(ctx context.Context, learnerID string) (*models.StudyPlan, error) {
	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("begin find plan tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const planQuery = `SELECT id, learner_id, exam_date, days_to_plan, settings, generated_at
FROM study_plans WHERE learner_id = $1`
	var row studyPlanRow
	if err := tx.GetContext(ctx, &row, planQuery, learnerID); err != nil {
		return nil, fmt.Errorf("get study plan: %w", err)
	}

	plan := &models.StudyPlan{
		ID:          row.ID,
		LearnerID:   row.LearnerID,
		ExamDate:    row.ExamDate,
		DaysToPlan:  row.DaysToPlan,
		GeneratedAt: row.GeneratedAt,
	}
	if err := row.Settings.Unmarshal(&plan.Settings); err != nil {
		return nil, fmt.Errorf("decode plan settings: %w", err)
	}

	const sessionQuery = `SELECT plan_id, position, day, time, subject, topic, session_type, priority, completed, duration, notes, resources
FROM study_sessions WHERE plan_id = $1 ORDER BY position ASC`
	var rows []studySessionRow
	if err := tx.SelectContext(ctx, &rows, sessionQuery, row.ID); err != nil {
		return nil, fmt.Errorf("list study sessions: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit find plan tx: %w", err)
	}

	plan.Sessions = make(models.Schedule, 0, len(rows))
	for _, sr := range rows {
		session, err := fromSessionRow(sr)
		if err != nil {
			return nil, err
		}
		plan.Sessions = append(plan.Sessions, session)
	}
	return plan, nil
}

// UpdateSession writes the mutable fields (completed, notes) of one session.
func (r *StudyPlanRepository) UpdateSession(ctx context.Context, planID string, position int, session models.Session) error {
	const query = `UPDATE study_sessions SET completed = $1, notes = $2 WHERE plan_id = $3 AND position = $4`
	res, err := r.db.ExecContext(ctx, query, session.Completed, session.Notes, planID, position)
	if err != nil {
		return fmt.Errorf("update study session: %w", err)
	}
	return expectAffected(res, "update study session")
}

// Delete removes the learner's plan. Sessions cascade.
func (r *StudyPlanRepository) Delete(ctx context.Context, learnerID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM study_plans WHERE learner_id = $1`, learnerID)
	if err != nil {
		return fmt.Errorf("delete study plan: %w", err)
	}
	return expectAffected(res, "delete study plan")
}

func expectAffected(res sql.Result, op string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", op, err)
	}
	if affected == 0 {
		return fmt.Errorf("%s: %w", op, sql.ErrNoRows)
	}
	return nil
}

func toSessionRow(planID string, position int, s models.Session) (studySessionRow, error) {
	resources := s.Resources
	if resources == nil {
		resources = []models.Resource{}
	}
	raw, err := json.Marshal(resources)
	if err != nil {
		return studySessionRow{}, fmt.Errorf("marshal session %d resources: %w", position, err)
	}
	return studySessionRow{
		PlanID:      planID,
		Position:    position,
		Day:         s.Day,
		Time:        s.Time,
		Subject:     s.Subject,
		Topic:       s.Topic,
		SessionType: string(s.SessionType),
		Priority:    string(s.Priority),
		Completed:   s.Completed,
		Duration:    s.Duration,
		Notes:       s.Notes,
		Resources:   types.JSONText(raw),
	}, nil
}

func fromSessionRow(row studySessionRow) (models.Session, error) {
	session := models.Session{
		Day:         row.Day,
		Time:        row.Time,
		Subject:     row.Subject,
		Topic:       row.Topic,
		SessionType: models.SessionType(row.SessionType),
		Priority:    models.Priority(row.Priority),
		Completed:   row.Completed,
		Duration:    row.Duration,
		Notes:       row.Notes,
		Resources:   []models.Resource{},
	}
	if len(row.Resources) > 0 {
		if err := row.Resources.Unmarshal(&session.Resources); err != nil {
			return models.Session{}, fmt.Errorf("decode session %d resources: %w", row.Position, err)
		}
	}
	return session, nil
}
