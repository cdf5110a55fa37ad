package planner

import (
	"math"
	"time"

	"github.com/noah-isme/study-plan-api/internal/models"
)

// streakWindowDays bounds the backward streak scan.
const streakWindowDays = 365

const dateLayout = "2006-01-02"

// Recompute derives progress analytics from a (possibly mutated) schedule.
//
// The streak anchors session.day to now: day 1 maps to today, day 2 to yesterday and so on.
// Evaluating on a different calendar day than generation shifts that mapping.
func Recompute(schedule models.Schedule, examDate, now time.Time) models.Progress {
	progress := models.Progress{
		DaysLeft:        DaysUntil(examDate, now),
		SubjectProgress: map[string]int{},
	}

	total := len(schedule)
	completed := 0
	subjectTotals := make(map[string]int)
	subjectDone := make(map[string]int)
	completedDays := make(map[int]bool)

	for _, session := range schedule {
		subjectTotals[session.Subject]++
		if !session.Completed {
			continue
		}
		completed++
		progress.TotalHours += session.Duration
		subjectDone[session.Subject]++
		completedDays[session.Day] = true
	}

	if total > 0 {
		progress.CompletionRate = percent(completed, total)
	}
	for subject, count := range subjectTotals {
		progress.SubjectProgress[subject] = percent(subjectDone[subject], count)
	}
	progress.StudyStreak = studyStreak(completedDays, now)
	return progress
}

// studyStreak scans back from today and counts consecutive calendar days that hold a completed session.
// A gap on today itself does not end the scan; the first gap after that does.
func studyStreak(completedDays map[int]bool, now time.Time) int {
	if len(completedDays) == 0 {
		return 0
	}
	today := dateOnly(now)
	sessionDates := make(map[string]bool, len(completedDays))
	for day := range completedDays {
		sessionDates[today.AddDate(0, 0, -(day-1)).Format(dateLayout)] = true
	}

	streak := 0
	for i := 0; i < streakWindowDays; i++ {
		check := today.AddDate(0, 0, -i).Format(dateLayout)
		if sessionDates[check] {
			streak++
			continue
		}
		if i > 0 {
			break
		}
	}
	return streak
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func percent(part, whole int) int {
	if whole == 0 {
		return 0
	}
	return int(math.Round(100 * float64(part) / float64(whole)))
}
