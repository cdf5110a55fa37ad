package planner

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/noah-isme/study-plan-api/internal/models"
)

// MaxPlanDays caps the planning horizon regardless of how far away the exam is.
const MaxPlanDays = 30

const (
	lowPriorityRatio    = 0.3
	mediumPriorityRatio = 0.7
)

// DefaultHours is used when the learner selected no time-of-day preference.
var DefaultHours = []int{9, 10, 11, 14, 15, 16, 19, 20, 21}

var daypartHours = map[models.TimeOfDay][]int{
	models.TimeOfDayMorning:   {6, 7, 8, 9, 10, 11},
	models.TimeOfDayAfternoon: {12, 13, 14, 15, 16, 17},
	models.TimeOfDayEvening:   {18, 19, 20, 21},
	models.TimeOfDayNight:     {22, 23},
}

// Input carries everything a generation needs. It is never mutated.
type Input struct {
	Subjects           []string
	TotalDaysUntilExam int
	StudyHoursPerDay   int
	Difficulty         models.Difficulty
	LearningStyle      models.LearningStyle
	TimePreferences    []models.TimeOfDay
	SubjectFileTopics  map[string][]string
	Seed               int64
}

// Assembler builds schedules from a shared, read-only catalog.
// Each Generate call allocates its own review queues and random source.
type Assembler struct {
	catalog *Catalog
	due     DuePolicy
}

// NewAssembler constructs an assembler. A nil policy means FIFODue.
func NewAssembler(catalog *Catalog, policy DuePolicy) *Assembler {
	if policy == nil {
		policy = FIFODue
	}
	return &Assembler{catalog: catalog, due: policy}
}

// Generate runs the day/slot loop and returns sessions in day-major, slot-minor order.
// Subjects must be non-empty; callers validate that before invoking generation.
func (a *Assembler) Generate(in Input) models.Schedule {
	if in.TotalDaysUntilExam <= 0 || len(in.Subjects) == 0 {
		return models.Schedule{}
	}

	daysToPlan := PlanHorizon(in.TotalDaysUntilExam)
	hours := AvailableHours(in.TimePreferences)
	rng := rand.New(rand.NewSource(in.Seed))

	bank := make(map[string][]string, len(in.Subjects))
	for _, subject := range in.Subjects {
		if _, ok := bank[subject]; ok {
			continue
		}
		bank[subject] = a.catalog.Topics(subject, in.Difficulty, fileTopicsFor(subject, in.SubjectFileTopics))
	}
	reviews := NewReviewScheduler(in.Subjects, a.due)

	slotsToday := in.StudyHoursPerDay
	if slotsToday > len(hours) {
		slotsToday = len(hours)
	}
	if slotsToday < 0 {
		slotsToday = 0
	}

	schedule := make(models.Schedule, 0, daysToPlan*slotsToday)
	for day := 1; day <= daysToPlan; day++ {
		types := SequenceFor(day, daysToPlan, in.LearningStyle)
		for i := 0; i < slotsToday; i++ {
			subject := in.Subjects[(day+i-1)%len(in.Subjects)]
			sessionType := types[i%len(types)]

			var topic string
			switch sessionType {
			case models.SessionTypeReview:
				queued, ok := reviews.Next(subject)
				if ok {
					topic = queued
				} else {
					topic = draw(rng, bank[subject])
				}
			default:
				topic = draw(rng, bank[subject])
				if sessionType == models.SessionTypeLearning {
					reviews.Learned(subject, topic, day, daysToPlan)
				}
			}

			schedule = append(schedule, models.Session{
				Day:         day,
				Time:        FormatHour(hours[i%len(hours)]),
				Subject:     subject,
				Topic:       topic,
				SessionType: sessionType,
				Priority:    PriorityFor(day, in.TotalDaysUntilExam),
				Completed:   false,
				Duration:    1,
				Notes:       "",
				Resources:   a.catalog.Resources(subject),
			})
		}
	}
	return schedule
}

// PlanHorizon clamps the days until the exam to the planning window.
func PlanHorizon(totalDaysUntilExam int) int {
	if totalDaysUntilExam <= 0 {
		return 0
	}
	if totalDaysUntilExam > MaxPlanDays {
		return MaxPlanDays
	}
	return totalDaysUntilExam
}

// AvailableHours concatenates the hours of each selected daypart in selection order.
// Overlaps are kept; unknown dayparts contribute nothing.
func AvailableHours(prefs []models.TimeOfDay) []int {
	if len(prefs) == 0 {
		return append([]int(nil), DefaultHours...)
	}
	var hours []int
	for _, pref := range prefs {
		hours = append(hours, daypartHours[pref]...)
	}
	if len(hours) == 0 {
		return append([]int(nil), DefaultHours...)
	}
	return hours
}

// PriorityFor bands a day against the unclamped number of days until the exam.
func PriorityFor(day, totalDaysUntilExam int) models.Priority {
	total := float64(totalDaysUntilExam)
	switch d := float64(day); {
	case d <= lowPriorityRatio*total:
		return models.PriorityLow
	case d <= mediumPriorityRatio*total:
		return models.PriorityMedium
	default:
		return models.PriorityHigh
	}
}

// FormatHour renders an hour of day as "HH:00".
func FormatHour(hour int) string {
	return fmt.Sprintf("%02d:00", hour)
}

// DaysUntil counts whole days to the exam, rounding partial days up and never going below zero.
func DaysUntil(examDate, now time.Time) int {
	diff := examDate.Sub(now)
	if diff <= 0 {
		return 0
	}
	return int(math.Ceil(diff.Hours() / 24))
}

func draw(rng *rand.Rand, topics []string) string {
	if len(topics) == 0 {
		return ""
	}
	return topics[rng.Intn(len(topics))]
}
