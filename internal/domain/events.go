package domain

import "time"

// EventVersion is the payload schema version written by this service.
const EventVersion = 1

// Topics carried on the broker.
const (
	TopicQuizResult      = "quiz-result"
	TopicCourseCompleted = "course-completed"
	TopicQuizCreated     = "quiz-created"
)

// QuizResultEvent is the flat record published after a result is persisted.
type QuizResultEvent struct {
	Version     int       `json:"version" validate:"gte=0"`
	ResultID    string    `json:"resultId,omitempty"`
	QuizID      string    `json:"quizId" validate:"required"`
	StudentID   string    `json:"studentId" validate:"required"`
	Score       float64   `json:"score" validate:"gte=0,lte=100"`
	Passed      bool      `json:"passed"`
	SubmittedAt time.Time `json:"submittedAt" validate:"required"`
}

// NewQuizResultEvent projects a persisted result onto its event payload.
func NewQuizResultEvent(r QuizResult) QuizResultEvent {
	return QuizResultEvent{
		Version:     EventVersion,
		ResultID:    r.ID,
		QuizID:      r.QuizID,
		StudentID:   r.StudentID,
		Score:       r.Score,
		Passed:      r.Passed,
		SubmittedAt: r.CreatedAt,
	}
}

// CourseCompletedEvent is emitted by the progress tracker when a course is finished.
type CourseCompletedEvent struct {
	Version     int       `json:"version" validate:"gte=0"`
	StudentID   string    `json:"studentId" validate:"required"`
	CourseID    string    `json:"courseId" validate:"required"`
	Rating      float64   `json:"rating" validate:"gte=0,lte=5"`
	CompletedAt time.Time `json:"completedAt" validate:"required"`
}

// QuizCreatedEvent announces a new quiz definition. Correct answers are not carried.
type QuizCreatedEvent struct {
	Version       int       `json:"version" validate:"gte=0"`
	QuizID        string    `json:"quizId" validate:"required"`
	CourseID      string    `json:"courseId,omitempty"`
	Title         string    `json:"title"`
	QuestionCount int       `json:"questionCount" validate:"gte=1"`
	TotalPoints   int       `json:"totalPoints"`
	PassingScore  float64   `json:"passingScore"`
	CreatedAt     time.Time `json:"createdAt" validate:"required"`
}

// NewQuizCreatedEvent projects a stored quiz onto its announcement.
func NewQuizCreatedEvent(q Quiz) QuizCreatedEvent {
	return QuizCreatedEvent{
		Version:       EventVersion,
		QuizID:        q.ID,
		CourseID:      q.CourseID,
		Title:         q.Title,
		QuestionCount: len(q.Questions),
		TotalPoints:   q.TotalPoints(),
		PassingScore:  q.PassingScore,
		CreatedAt:     q.CreatedAt,
	}
}
