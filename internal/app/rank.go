package app

import (
	"sort"

	"quiz-pipeline-service/internal/domain"
)

// MaxRecommendations caps the ranked list.
const MaxRecommendations = 5

// Rank scores published candidates against a profile snapshot and returns the best
// MaxRecommendations, highest score first, ties by ascending course ID. It has no side
// effects and never mutates its inputs.
func Rank(profile domain.PreferenceProfile, catalog []domain.CourseCandidate) []domain.RecommendationEntry {
	entries := make([]domain.RecommendationEntry, 0, len(catalog))
	seen := make(map[string]struct{}, len(catalog))
	for _, course := range catalog {
		if !course.Published {
			continue
		}
		if _, dup := seen[course.ID]; dup {
			continue
		}
		seen[course.ID] = struct{}{}
		entries = append(entries, domain.RecommendationEntry{
			CourseID: course.ID,
			Score:    scoreCourse(profile, course),
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].CourseID < entries[j].CourseID
	})

	if len(entries) > MaxRecommendations {
		entries = entries[:MaxRecommendations]
	}
	return entries
}

func scoreCourse(profile domain.PreferenceProfile, course domain.CourseCandidate) float64 {
	score := course.Rating
	if profile.HasCategory(course.Category) {
		score += 2
	}
	if course.Level == profile.PreferredLevel {
		score += 2
	}
	if course.Duration <= profile.TimeAvailability {
		score++
	}
	return score
}
