package app

import (
	"sort"
	"time"

	"quiz-pipeline-service/internal/domain"
)

// DefaultHistorySize is how many recent quiz scores feed the rolling average.
const DefaultHistorySize = 10

// Level thresholds on the rolling average.
const (
	advancedThreshold     = 80.0
	intermediateThreshold = 60.0
)

// NewProfile returns the lazily created profile for a user with no history.
func NewProfile(userID string, timeAvailability float64) domain.PreferenceProfile {
	return domain.PreferenceProfile{
		UserID:           userID,
		PreferredLevel:   domain.Beginner,
		TimeAvailability: timeAvailability,
	}
}

// LevelForAverage maps a rolling average onto a preferred level.
func LevelForAverage(avg float64) domain.Level {
	switch {
	case avg >= advancedThreshold:
		return domain.Advanced
	case avg >= intermediateThreshold:
		return domain.Intermediate
	default:
		return domain.Beginner
	}
}

// RollingAverage is the mean of the recorded scores, 0 when there are none.
func RollingAverage(history []domain.ScoreEntry) float64 {
	if len(history) == 0 {
		return 0
	}
	sum := 0.0
	for _, e := range history {
		sum += e.Score
	}
	return sum / float64(len(history))
}

// ApplyQuizScore records a quiz-result event on a copy of profile. It reports false and
// returns the profile unchanged when the quiz was already applied for this user.
// The history keeps the historySize most recent entries by submission time, so the outcome
// does not depend on delivery order.
func ApplyQuizScore(profile domain.PreferenceProfile, ev domain.QuizResultEvent, historySize int) (domain.PreferenceProfile, bool) {
	if historySize <= 0 {
		historySize = DefaultHistorySize
	}
	for _, id := range profile.AppliedQuizzes {
		if id == ev.QuizID {
			return profile, false
		}
	}

	out := profile.Clone()
	out.AppliedQuizzes = append(out.AppliedQuizzes, ev.QuizID)
	sort.Strings(out.AppliedQuizzes)
	out.ScoreHistory = append(out.ScoreHistory, domain.ScoreEntry{
		QuizID:      ev.QuizID,
		Score:       ev.Score,
		SubmittedAt: ev.SubmittedAt.UTC(),
	})
	sort.SliceStable(out.ScoreHistory, func(i, j int) bool {
		a, b := out.ScoreHistory[i], out.ScoreHistory[j]
		if !a.SubmittedAt.Equal(b.SubmittedAt) {
			return a.SubmittedAt.Before(b.SubmittedAt)
		}
		return a.QuizID < b.QuizID
	})
	if n := len(out.ScoreHistory); n > historySize {
		out.ScoreHistory = out.ScoreHistory[n-historySize:]
	}
	out.PreferredLevel = LevelForAverage(RollingAverage(out.ScoreHistory))
	return out, true
}

// ApplyCompletion records a course-completed event on a copy of profile. course may be nil
// when the catalog lookup failed; the completion is still recorded but no category is added.
// It reports false when the (course, completedAt) pair was already applied.
func ApplyCompletion(profile domain.PreferenceProfile, ev domain.CourseCompletedEvent, course *domain.CourseCandidate) (domain.PreferenceProfile, bool) {
	completedAt := ev.CompletedAt.UTC()
	for _, c := range profile.CompletedCourses {
		if c.CourseID == ev.CourseID && c.CompletedAt.Equal(completedAt) {
			return profile, false
		}
	}

	out := profile.Clone()
	out.CompletedCourses = append(out.CompletedCourses, domain.CompletedCourse{
		CourseID:    ev.CourseID,
		Rating:      ev.Rating,
		CompletedAt: completedAt,
	})
	sort.SliceStable(out.CompletedCourses, func(i, j int) bool {
		a, b := out.CompletedCourses[i], out.CompletedCourses[j]
		if !a.CompletedAt.Equal(b.CompletedAt) {
			return a.CompletedAt.Before(b.CompletedAt)
		}
		return a.CourseID < b.CourseID
	})
	if course != nil && course.Published && course.Category != "" && !out.HasCategory(course.Category) {
		out.PreferredCategories = append(out.PreferredCategories, course.Category)
		sort.Strings(out.PreferredCategories)
	}
	return out, true
}

// touch stamps the profile before a write. Callers invoke it explicitly.
func touch(profile domain.PreferenceProfile, now time.Time) domain.PreferenceProfile {
	profile.UpdatedAt = now.UTC()
	return profile
}
