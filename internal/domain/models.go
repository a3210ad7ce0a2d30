package domain

import "time"

// QuestionType enumerates the supported question kinds.
type QuestionType string

const (
	SingleChoice QuestionType = "single_choice"
	MultiChoice  QuestionType = "multi_choice"
	TrueFalse    QuestionType = "true_false"
	ShortAnswer  QuestionType = "short_answer"
)

// Valid reports whether t is a known question type.
func (t QuestionType) Valid() bool {
	switch t {
	case SingleChoice, MultiChoice, TrueFalse, ShortAnswer:
		return true
	}
	return false
}

// Question is a single gradable item of a quiz.
type Question struct {
	ID             string       `json:"id"`
	Text           string       `json:"text" validate:"required"`
	Type           QuestionType `json:"type" validate:"required"`
	Options        []string     `json:"options,omitempty"`
	CorrectAnswers []string     `json:"correctAnswers" validate:"min=1"`
	Points         int          `json:"points" validate:"gte=0"`
}

// Quiz is the authored quiz definition. It is never mutated once created.
type Quiz struct {
	ID           string     `json:"id"`
	CourseID     string     `json:"courseId,omitempty"`
	Title        string     `json:"title" validate:"required"`
	Description  string     `json:"description,omitempty"`
	Questions    []Question `json:"questions" validate:"min=1,dive"`
	TimeLimit    int        `json:"timeLimit" validate:"gte=0"` // minutes
	PassingScore float64    `json:"passingScore" validate:"gte=0,lte=100"`
	CreatedAt    time.Time  `json:"createdAt"`
}

// TotalPoints sums the point value of every question.
func (q Quiz) TotalPoints() int {
	total := 0
	for _, question := range q.Questions {
		total += question.Points
	}
	return total
}

// Answer is the student's selection for one question.
type Answer struct {
	QuestionID      string   `json:"questionId" validate:"required"`
	SelectedAnswers []string `json:"selectedAnswers"`
}

// Submission is a full set of answers for one quiz attempt.
type Submission struct {
	QuizID    string   `json:"quizId" validate:"required"`
	StudentID string   `json:"studentId" validate:"required"`
	Answers   []Answer `json:"answers" validate:"dive"`
}

// QuestionResult is the graded outcome of one question. It only exists inside a QuizResult.
type QuestionResult struct {
	QuestionID       string   `json:"questionId"`
	Correct          bool     `json:"correct"`
	PointsEarned     int      `json:"pointsEarned"`
	CorrectAnswers   []string `json:"correctAnswers"`
	SubmittedAnswers []string `json:"submittedAnswers"`
}

// QuizResult is the immutable outcome of one graded submission.
type QuizResult struct {
	ID              string           `json:"id"`
	QuizID          string           `json:"quizId"`
	StudentID       string           `json:"studentId"`
	Score           float64          `json:"score"`
	Passed          bool             `json:"passed"`
	EarnedPoints    int              `json:"earnedPoints"`
	TotalPoints     int              `json:"totalPoints"`
	QuestionResults []QuestionResult `json:"questionResults"`
	CreatedAt       time.Time        `json:"createdAt"`
}

// Clone returns a deep copy, answer slices included.
func (r QuizResult) Clone() QuizResult {
	out := r
	if r.QuestionResults != nil {
		out.QuestionResults = make([]QuestionResult, len(r.QuestionResults))
		for i, qr := range r.QuestionResults {
			qr.CorrectAnswers = append([]string(nil), qr.CorrectAnswers...)
			qr.SubmittedAnswers = append([]string(nil), qr.SubmittedAnswers...)
			out.QuestionResults[i] = qr
		}
	}
	return out
}

// ResultFilter narrows a results query. Empty fields match everything.
type ResultFilter struct {
	QuizID    string
	StudentID string
}

// Level is a course difficulty and a learner's preferred difficulty.
type Level string

const (
	Beginner     Level = "beginner"
	Intermediate Level = "intermediate"
	Advanced     Level = "advanced"
)

// ScoreEntry is one quiz score kept for the rolling average.
type ScoreEntry struct {
	QuizID      string    `json:"quizId"`
	Score       float64   `json:"score"`
	SubmittedAt time.Time `json:"submittedAt"`
}

// CompletedCourse records one course completion reported by the tracker.
type CompletedCourse struct {
	CourseID    string    `json:"courseId"`
	Rating      float64   `json:"rating"`
	CompletedAt time.Time `json:"completedAt"`
}

// PreferenceProfile is the per-user model that drives recommendations.
type PreferenceProfile struct {
	UserID              string            `json:"userId"`
	ScoreHistory        []ScoreEntry      `json:"scoreHistory"`
	AppliedQuizzes      []string          `json:"appliedQuizzes"`
	PreferredCategories []string          `json:"preferredCategories"`
	PreferredLevel      Level             `json:"preferredLevel"`
	TimeAvailability    float64           `json:"timeAvailability"` // hours per week
	CompletedCourses    []CompletedCourse `json:"completedCourses"`
	Version             int64             `json:"version"`
	UpdatedAt           time.Time         `json:"updatedAt"`
}

// HasCategory reports whether category is already preferred.
func (p PreferenceProfile) HasCategory(category string) bool {
	for _, c := range p.PreferredCategories {
		if c == category {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so pure transforms never alias the caller's slices.
func (p PreferenceProfile) Clone() PreferenceProfile {
	out := p
	out.ScoreHistory = append([]ScoreEntry(nil), p.ScoreHistory...)
	out.AppliedQuizzes = append([]string(nil), p.AppliedQuizzes...)
	out.PreferredCategories = append([]string(nil), p.PreferredCategories...)
	out.CompletedCourses = append([]CompletedCourse(nil), p.CompletedCourses...)
	return out
}

// CourseCandidate is the slice of a catalog course the ranker needs.
type CourseCandidate struct {
	ID        string  `json:"id"`
	Title     string  `json:"title,omitempty"`
	Category  string  `json:"category"`
	Level     Level   `json:"level"`
	Duration  float64 `json:"duration"` // hours
	Rating    float64 `json:"rating"`
	Published bool    `json:"published"`
}

// CourseFilter narrows a catalog query. Nil/empty fields match everything.
type CourseFilter struct {
	Category  string
	Level     Level
	Published *bool
}

// RecommendationEntry is one ranked course. Computed per request, never stored.
type RecommendationEntry struct {
	CourseID string  `json:"courseId"`
	Score    float64 `json:"score"`
}

// DeadLetter is an event that could not be delivered to the broker.
type DeadLetter struct {
	ID        string    `json:"id"`
	Topic     string    `json:"topic"`
	Payload   []byte    `json:"payload"`
	Error     string    `json:"error"`
	Attempts  int       `json:"attempts"`
	CreatedAt time.Time `json:"createdAt"`
}
