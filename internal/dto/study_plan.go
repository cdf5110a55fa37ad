package dto

import (
	"time"

	"github.com/noah-isme/study-plan-api/internal/models"
)

// GenerateStudyPlanRequest carries the learner's constraints for a new plan.
// ExamDate accepts 2006-01-02 or RFC 3339.
type GenerateStudyPlanRequest struct {
	ExamDate          string              `json:"examDate" validate:"required"`
	Subjects          []string            `json:"subjects" validate:"required,min=1"`
	StudyHoursPerDay  int                 `json:"studyHoursPerDay" validate:"required,min=1,max=24"`
	Difficulty        string              `json:"difficulty" validate:"required,oneof=beginner intermediate advanced"`
	LearningStyle     string              `json:"learningStyle" validate:"omitempty,oneof=visual auditory kinesthetic reading"`
	TimePreferences   []string            `json:"timePreferences" validate:"omitempty,dive,oneof=morning afternoon evening night"`
	SubjectFileTopics map[string][]string `json:"subjectFileTopics"`
	Seed              *int64              `json:"seed"`
}

// UpdateSessionRequest patches the mutable fields of a session. Absent fields are left unchanged.
type UpdateSessionRequest struct {
	Completed *bool   `json:"completed"`
	Notes     *string `json:"notes" validate:"omitempty,max=2000"`
}

// ExportRequest selects the rendering for a plan export.
type ExportRequest struct {
	Format string `json:"format" validate:"required,oneof=csv pdf xlsx ics json"`
}

// StudyPlanResponse bundles a plan with its derived progress.
type StudyPlanResponse struct {
	Plan     *models.StudyPlan `json:"plan"`
	Progress models.Progress   `json:"progress"`
	Warning  string            `json:"warning,omitempty"`
}

// ExportResponse points at a rendered export through a signed, expiring URL.
type ExportResponse struct {
	Format      string    `json:"format"`
	Filename    string    `json:"filename"`
	DownloadURL string    `json:"downloadUrl"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// IssueTokenRequest asks for a learner access token (development and CLI use).
type IssueTokenRequest struct {
	LearnerID   string `json:"learnerId" validate:"required,max=128"`
	DisplayName string `json:"displayName" validate:"omitempty,max=128"`
}

// TokenResponse returns a signed access token.
type TokenResponse struct {
	AccessToken string    `json:"accessToken"`
	TokenType   string    `json:"tokenType"`
	ExpiresAt   time.Time `json:"expiresAt"`
}
