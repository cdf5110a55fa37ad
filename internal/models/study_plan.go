package models

import "time"

// Difficulty controls which curated topic list is used for a subject.
type Difficulty string

const (
	DifficultyBeginner     Difficulty = "beginner"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyAdvanced     Difficulty = "advanced"
)

// LearningStyle reweights the daily learning/practice/review pattern. Empty means unset.
type LearningStyle string

const (
	LearningStyleVisual      LearningStyle = "visual"
	LearningStyleAuditory    LearningStyle = "auditory"
	LearningStyleKinesthetic LearningStyle = "kinesthetic"
	LearningStyleReading     LearningStyle = "reading"
)

// TimeOfDay is a named daypart mapped to a fixed list of study hours.
type TimeOfDay string

const (
	TimeOfDayMorning   TimeOfDay = "morning"
	TimeOfDayAfternoon TimeOfDay = "afternoon"
	TimeOfDayEvening   TimeOfDay = "evening"
	TimeOfDayNight     TimeOfDay = "night"
)

// SessionType classifies a study slot.
type SessionType string

const (
	SessionTypeLearning SessionType = "learning"
	SessionTypePractice SessionType = "practice"
	SessionTypeReview   SessionType = "review"
)

// Priority is the urgency band derived from the day's position relative to the exam.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Resource points at supporting material for a subject.
type Resource struct {
	Type  string `json:"type" yaml:"type"`
	Title string `json:"title" yaml:"title"`
	URL   string `json:"url" yaml:"url"`
}

// Session is a single one-hour study block. Only Completed and Notes change after assembly.
type Session struct {
	Day         int         `json:"day"`
	Time        string      `json:"time"`
	Subject     string      `json:"subject"`
	Topic       string      `json:"topic"`
	SessionType SessionType `json:"sessionType"`
	Priority    Priority    `json:"priority"`
	Completed   bool        `json:"completed"`
	Duration    int         `json:"duration"`
	Notes       string      `json:"notes"`
	Resources   []Resource  `json:"resources"`
}

// Schedule is the ordered, day-major list of sessions for one generation.
type Schedule []Session

// Progress holds analytics derived from a schedule.
type Progress struct {
	CompletionRate  int            `json:"completionRate"`
	StudyStreak     int            `json:"studyStreak"`
	TotalHours      int            `json:"totalHours"`
	DaysLeft        int            `json:"daysLeft"`
	SubjectProgress map[string]int `json:"subjectProgress"`
}

// PlanSettings records the learner constraints a plan was generated from.
type PlanSettings struct {
	Subjects         []string      `json:"subjects"`
	StudyHoursPerDay int           `json:"studyHoursPerDay"`
	Difficulty       Difficulty    `json:"difficulty"`
	LearningStyle    LearningStyle `json:"learningStyle,omitempty"`
	TimePreferences  []TimeOfDay   `json:"timePreferences"`
	Seed             int64         `json:"seed"`
}

// StudyPlan is the persisted plan for a learner. A new generation replaces it entirely.
type StudyPlan struct {
	ID          string       `json:"id" db:"id"`
	LearnerID   string       `json:"learnerId" db:"learner_id"`
	ExamDate    time.Time    `json:"examDate" db:"exam_date"`
	DaysToPlan  int          `json:"daysToPlan" db:"days_to_plan"`
	Settings    PlanSettings `json:"settings" db:"-"`
	Sessions    Schedule     `json:"sessions" db:"-"`
	GeneratedAt time.Time    `json:"generatedAt" db:"generated_at"`
}
