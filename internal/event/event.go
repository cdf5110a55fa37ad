package event

import (
	"time"

	"github.com/google/uuid"
)

// Type names a lifecycle event. It doubles as the AMQP routing key.
type Type string

const (
	PlanGenerationStarted   Type = "plan.generation.started"
	PlanGenerationCompleted Type = "plan.generation.completed"
	PlanDeleted             Type = "plan.deleted"
	PlanExported            Type = "plan.exported"
	SessionCompleted        Type = "session.completed"
	SessionReopened         Type = "session.reopened"
	SessionNotesUpdated     Type = "session.notes_updated"
)

// Event is a learner-scoped notification emitted around plan operations.
type Event struct {
	ID         string                 `json:"id"`
	Type       Type                   `json:"type"`
	LearnerID  string                 `json:"learnerId"`
	PlanID     string                 `json:"planId,omitempty"`
	OccurredAt time.Time              `json:"occurredAt"`
	Data       map[string]interface{} `json:"data,omitempty"`
}

// New builds an event with a fresh id and the given timestamp.
func New(t Type, learnerID, planID string, at time.Time, data map[string]interface{}) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       t,
		LearnerID:  learnerID,
		PlanID:     planID,
		OccurredAt: at.UTC(),
		Data:       data,
	}
}
