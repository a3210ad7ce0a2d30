package app

import (
	"strings"
	"time"

	"quiz-pipeline-service/internal/domain"
)

// Grade scores a submission against a quiz definition. It is pure: the same inputs and
// clock value always yield the same result. Questions without an answer earn nothing.
// A quiz worth zero points scores 0 and never passes.
func Grade(quiz domain.Quiz, submission domain.Submission, now time.Time) domain.QuizResult {
	answers := make(map[string][]string, len(submission.Answers))
	for _, a := range submission.Answers {
		answers[a.QuestionID] = a.SelectedAnswers
	}

	results := make([]domain.QuestionResult, 0, len(quiz.Questions))
	total, earned := 0, 0
	for _, q := range quiz.Questions {
		total += q.Points
		selected, answered := answers[q.ID]
		correct := answered && sameAnswerSet(q.Type, selected, q.CorrectAnswers)
		points := 0
		if correct {
			points = q.Points
			earned += points
		}
		results = append(results, domain.QuestionResult{
			QuestionID:       q.ID,
			Correct:          correct,
			PointsEarned:     points,
			CorrectAnswers:   append([]string(nil), q.CorrectAnswers...),
			SubmittedAnswers: append([]string{}, selected...),
		})
	}

	score := 0.0
	if total > 0 {
		score = 100 * float64(earned) / float64(total)
	}

	return domain.QuizResult{
		QuizID:          quiz.ID,
		StudentID:       submission.StudentID,
		Score:           score,
		Passed:          total > 0 && score >= quiz.PassingScore,
		EarnedPoints:    earned,
		TotalPoints:     total,
		QuestionResults: results,
		CreatedAt:       now,
	}
}

// sameAnswerSet compares answers as sets: order and repeats do not matter.
// Short answers are compared after trimming and case folding.
func sameAnswerSet(kind domain.QuestionType, submitted, correct []string) bool {
	a := answerSet(kind, submitted)
	b := answerSet(kind, correct)
	if len(a) != len(b) {
		return false
	}
	for v := range a {
		if _, ok := b[v]; !ok {
			return false
		}
	}
	return true
}

func answerSet(kind domain.QuestionType, values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		if kind == domain.ShortAnswer {
			v = strings.ToLower(strings.TrimSpace(v))
		}
		set[v] = struct{}{}
	}
	return set
}
