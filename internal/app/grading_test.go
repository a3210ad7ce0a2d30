package app_test

import (
	"math"
	"reflect"
	"testing"
	"time"

	"quiz-pipeline-service/internal/app"
	"quiz-pipeline-service/internal/domain"
)

var gradedAt = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func twoQuestionQuiz(passing float64) domain.Quiz {
	return domain.Quiz{
		ID:           "quiz-1",
		Title:        "Two questions",
		PassingScore: passing,
		Questions: []domain.Question{
			{ID: "q1", Text: "2+2", Type: domain.SingleChoice, Options: []string{"3", "4"}, CorrectAnswers: []string{"4"}, Points: 5},
			{ID: "q2", Text: "2+3", Type: domain.SingleChoice, Options: []string{"5", "6"}, CorrectAnswers: []string{"5"}, Points: 5},
		},
	}
}

func TestGradeHalfCorrect(t *testing.T) {
	cases := []struct {
		passing float64
		passed  bool
	}{
		{passing: 50, passed: true},
		{passing: 60, passed: false},
	}
	for _, tc := range cases {
		result := app.Grade(twoQuestionQuiz(tc.passing), domain.Submission{
			QuizID:    "quiz-1",
			StudentID: "s1",
			Answers: []domain.Answer{
				{QuestionID: "q1", SelectedAnswers: []string{"4"}},
				{QuestionID: "q2", SelectedAnswers: []string{"6"}},
			},
		}, gradedAt)

		if result.Score != 50 || result.Passed != tc.passed {
			t.Fatalf("passing=%v: expected score 50 passed=%v, got %v %v", tc.passing, tc.passed, result.Score, result.Passed)
		}
		if result.EarnedPoints != 5 || result.TotalPoints != 10 {
			t.Fatalf("unexpected points %d/%d", result.EarnedPoints, result.TotalPoints)
		}
		if !result.QuestionResults[0].Correct || result.QuestionResults[1].Correct {
			t.Fatalf("unexpected per-question results %+v", result.QuestionResults)
		}
	}
}

func TestGradeZeroPointQuiz(t *testing.T) {
	quiz := domain.Quiz{
		ID:           "empty",
		PassingScore: 0,
		Questions: []domain.Question{
			{ID: "q1", Type: domain.TrueFalse, CorrectAnswers: []string{"true"}, Points: 0},
		},
	}
	result := app.Grade(quiz, domain.Submission{
		QuizID:    "empty",
		StudentID: "s1",
		Answers:   []domain.Answer{{QuestionID: "q1", SelectedAnswers: []string{"true"}}},
	}, gradedAt)

	if result.Score != 0 || result.Passed {
		t.Fatalf("expected score 0 and not passed, got %v %v", result.Score, result.Passed)
	}
	if math.IsNaN(result.Score) {
		t.Fatalf("score must not be NaN")
	}
}

func TestGradeUsesSetEquality(t *testing.T) {
	quiz := domain.Quiz{
		ID:           "multi",
		PassingScore: 100,
		Questions: []domain.Question{
			{ID: "m1", Type: domain.MultiChoice, CorrectAnswers: []string{"a", "c"}, Points: 1},
			{ID: "s1", Type: domain.ShortAnswer, CorrectAnswers: []string{"Paris"}, Points: 1},
		},
	}
	cases := []struct {
		name    string
		answers []domain.Answer
		score   float64
	}{
		{"reordered", []domain.Answer{{QuestionID: "m1", SelectedAnswers: []string{"c", "a"}}}, 50},
		{"repeated", []domain.Answer{{QuestionID: "m1", SelectedAnswers: []string{"a", "c", "a"}}}, 50},
		{"subset", []domain.Answer{{QuestionID: "m1", SelectedAnswers: []string{"a"}}}, 0},
		{"superset", []domain.Answer{{QuestionID: "m1", SelectedAnswers: []string{"a", "b", "c"}}}, 0},
		{"short answer folded", []domain.Answer{{QuestionID: "s1", SelectedAnswers: []string{"  paris "}}}, 50},
		{"unanswered", nil, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result := app.Grade(quiz, domain.Submission{QuizID: "multi", StudentID: "s1", Answers: tc.answers}, gradedAt)
			if result.Score != tc.score {
				t.Fatalf("expected %v, got %v", tc.score, result.Score)
			}
		})
	}
}

func TestGradeIsDeterministicAndBounded(t *testing.T) {
	quiz := twoQuestionQuiz(50)
	sub := domain.Submission{
		QuizID:    "quiz-1",
		StudentID: "s1",
		Answers: []domain.Answer{
			{QuestionID: "q1", SelectedAnswers: []string{"4"}},
			{QuestionID: "q2", SelectedAnswers: []string{"5"}},
		},
	}
	first := app.Grade(quiz, sub, gradedAt)
	second := app.Grade(quiz, sub, gradedAt)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("grading must be deterministic:\n%+v\n%+v", first, second)
	}
	if first.Score < 0 || first.Score > 100 || first.Score != 100 {
		t.Fatalf("expected full marks within bounds, got %v", first.Score)
	}
	if first.QuestionResults[0].CorrectAnswers[0] != "4" {
		t.Fatalf("expected correct answers echoed")
	}
}
