package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/noah-isme/study-plan-api/pkg/config"
)

// Schema holds the DDL for plan storage. Statements are idempotent.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS study_plans (
		id UUID PRIMARY KEY,
		learner_id TEXT NOT NULL UNIQUE,
		exam_date TIMESTAMPTZ NOT NULL,
		days_to_plan INTEGER NOT NULL,
		settings JSONB NOT NULL,
		generated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS study_sessions (
		plan_id UUID NOT NULL REFERENCES study_plans(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		day INTEGER NOT NULL,
		time TEXT NOT NULL,
		subject TEXT NOT NULL,
		topic TEXT NOT NULL,
		session_type TEXT NOT NULL,
		priority TEXT NOT NULL,
		completed BOOLEAN NOT NULL DEFAULT FALSE,
		duration INTEGER NOT NULL,
		notes TEXT NOT NULL DEFAULT '',
		resources JSONB NOT NULL DEFAULT '[]',
		PRIMARY KEY (plan_id, position)
	)`,
}

// NewPostgres returns a configured PostgreSQL client.
func NewPostgres(cfg config.DatabaseConfig) (*sqlx.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host,
		cfg.Port,
		cfg.User,
		cfg.Password,
		cfg.Name,
		cfg.SSLMode,
	)

	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}

	db.SetConnMaxLifetime(1 * time.Hour)
	db.SetConnMaxIdleTime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// Migrate applies Schema in order.
func Migrate(ctx context.Context, exec sqlx.ExecerContext) error {
	for i, stmt := range Schema {
		if _, err := exec.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema statement %d: %w", i, err)
		}
	}
	return nil
}
