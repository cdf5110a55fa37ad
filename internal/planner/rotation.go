package planner

import "github.com/noah-isme/study-plan-api/internal/models"

const (
	learning = models.SessionTypeLearning
	practice = models.SessionTypePractice
	review   = models.SessionTypeReview
)

// examRunUpRatio marks the share of the plan after which every day alternates review and practice.
const examRunUpRatio = 0.7

var stylePatterns = map[models.LearningStyle][4]models.SessionType{
	models.LearningStyleVisual:      {learning, practice, practice, review},
	models.LearningStyleAuditory:    {learning, review, learning, practice},
	models.LearningStyleKinesthetic: {practice, practice, learning, review},
	models.LearningStyleReading:     {learning, learning, review, practice},
}

var (
	defaultPattern = [4]models.SessionType{learning, learning, practice, review}
	runUpPattern   = [4]models.SessionType{review, practice, review, practice}
)

// SequenceFor returns the cyclic four-slot session type pattern for a day.
// Slot i of the day uses pattern[i%4].
func SequenceFor(day, daysToPlan int, style models.LearningStyle) [4]models.SessionType {
	if float64(day) > examRunUpRatio*float64(daysToPlan) {
		return runUpPattern
	}
	if pattern, ok := stylePatterns[style]; ok {
		return pattern
	}
	return defaultPattern
}
