package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"quiz-pipeline-service/internal/domain"
	"quiz-pipeline-service/internal/metrics"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// QuizRepository loads quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// QuizStore persists new quiz definitions.
type QuizStore interface {
	CreateQuiz(ctx context.Context, quiz domain.Quiz) error
}

// ResultRepository is the append-only result log. Append must reject a second record with
// the same attemptKey with domain.ErrDuplicateAttempt.
type ResultRepository interface {
	Append(ctx context.Context, result domain.QuizResult, attemptKey string) error
	List(ctx context.Context, filter domain.ResultFilter) ([]domain.QuizResult, error)
}

// ResultPublisher emits a persisted result to the broker. Implementations own retry and
// dead-lettering; a returned error never undoes the stored result.
type ResultPublisher interface {
	Publish(ctx context.Context, result domain.QuizResult) error
}

// QuizCreatedPublisher announces newly stored quizzes to other services.
type QuizCreatedPublisher interface {
	PublishQuizCreated(ctx context.Context, quiz domain.Quiz) error
}

// QuizService contains the synchronous quiz use cases: create, fetch, submit, list.
type QuizService struct {
	quizzes       QuizRepository
	store         QuizStore
	results       ResultRepository
	publisher     ResultPublisher
	announcer     QuizCreatedPublisher
	validate      *validator.Validate
	logger        zerolog.Logger
	now           func() time.Time
	newID         func() string
	singleAttempt bool
}

// QuizServiceOption customises a QuizService.
type QuizServiceOption func(*QuizService)

// WithSingleAttempt allows only one stored result per (quiz, student).
func WithSingleAttempt(enabled bool) QuizServiceOption {
	return func(s *QuizService) { s.singleAttempt = enabled }
}

// WithQuizCreatedPublisher emits quiz-created after CreateQuiz stores a quiz.
func WithQuizCreatedPublisher(p QuizCreatedPublisher) QuizServiceOption {
	return func(s *QuizService) { s.announcer = p }
}

// WithClock is test-only for deterministic timestamps.
func WithClock(now func() time.Time) QuizServiceOption {
	return func(s *QuizService) { s.now = now }
}

// WithIDGenerator overrides uuid generation.
func WithIDGenerator(newID func() string) QuizServiceOption {
	return func(s *QuizService) { s.newID = newID }
}

func NewQuizService(quizzes QuizRepository, store QuizStore, results ResultRepository, publisher ResultPublisher, logger zerolog.Logger, opts ...QuizServiceOption) *QuizService {
	s := &QuizService{
		quizzes:   quizzes,
		store:     store,
		results:   results,
		publisher: publisher,
		validate:  validator.New(),
		logger:    logger.With().Str("component", "quiz_service").Logger(),
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetQuiz returns the quiz definition or domain.ErrQuizNotFound.
func (s *QuizService) GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	return s.quizzes.GetQuiz(ctx, quizID)
}

// CreateQuiz validates and stores a new quiz definition, assigning missing IDs.
func (s *QuizService) CreateQuiz(ctx context.Context, quiz domain.Quiz) (domain.Quiz, error) {
	if err := s.validate.Struct(quiz); err != nil {
		return domain.Quiz{}, fmt.Errorf("%w: %v", domain.ErrInvalidQuiz, err)
	}
	if quiz.ID == "" {
		quiz.ID = s.newID()
	}
	seen := make(map[string]struct{}, len(quiz.Questions))
	questions := make([]domain.Question, len(quiz.Questions))
	for i, q := range quiz.Questions {
		if !q.Type.Valid() {
			return domain.Quiz{}, fmt.Errorf("%w: question %d has unknown type %q", domain.ErrInvalidQuiz, i, q.Type)
		}
		if q.ID == "" {
			q.ID = s.newID()
		}
		if _, dup := seen[q.ID]; dup {
			return domain.Quiz{}, fmt.Errorf("%w: duplicate question id %q", domain.ErrInvalidQuiz, q.ID)
		}
		seen[q.ID] = struct{}{}
		q.Options = append([]string(nil), q.Options...)
		q.CorrectAnswers = append([]string(nil), q.CorrectAnswers...)
		questions[i] = q
	}
	quiz.Questions = questions
	quiz.CreatedAt = s.now().UTC()

	if err := s.store.CreateQuiz(ctx, quiz); err != nil {
		return domain.Quiz{}, fmt.Errorf("create quiz: %w", err)
	}
	s.logger.Info().Str("quiz_id", quiz.ID).Int("questions", len(quiz.Questions)).Msg("quiz created")

	if s.announcer != nil {
		if err := s.announcer.PublishQuizCreated(ctx, quiz); err != nil {
			s.logger.Error().Err(err).Str("quiz_id", quiz.ID).Msg("publish quiz created")
		}
	}
	return quiz, nil
}

// SubmitQuiz grades a submission, persists the result and then publishes it.
// The result is durable before any event referencing it can be observed.
func (s *QuizService) SubmitQuiz(ctx context.Context, submission domain.Submission) (domain.QuizResult, error) {
	if err := s.validate.Struct(submission); err != nil {
		return domain.QuizResult{}, fmt.Errorf("%w: %v", domain.ErrInvalidSubmission, err)
	}

	quiz, err := s.quizzes.GetQuiz(ctx, submission.QuizID)
	if err != nil {
		return domain.QuizResult{}, err
	}
	if err := checkAnswers(quiz, submission); err != nil {
		return domain.QuizResult{}, err
	}

	result := Grade(quiz, submission, s.now().UTC())
	result.ID = s.newID()
	if result.TotalPoints == 0 {
		metrics.ZeroPointQuizzes.Inc()
		s.logger.Warn().
			Str("quiz_id", quiz.ID).
			Str("student_id", submission.StudentID).
			Msg("quiz has zero total points, score forced to 0")
	}

	attemptKey := result.ID
	if s.singleAttempt {
		attemptKey = result.QuizID + "/" + result.StudentID
	}
	if err := s.results.Append(ctx, result, attemptKey); err != nil {
		if errors.Is(err, domain.ErrDuplicateAttempt) {
			return domain.QuizResult{}, err
		}
		return domain.QuizResult{}, fmt.Errorf("persist result: %w", err)
	}
	metrics.QuizSubmissions.WithLabelValues(passedLabel(result.Passed)).Inc()

	if err := s.publisher.Publish(ctx, result); err != nil {
		// The result is already durable; delivery failures are operational only.
		s.logger.Error().Err(err).Str("result_id", result.ID).Msg("publish quiz result")
	}
	return result, nil
}

// ListResults returns stored results matching the filter, oldest first.
func (s *QuizService) ListResults(ctx context.Context, filter domain.ResultFilter) ([]domain.QuizResult, error) {
	return s.results.List(ctx, filter)
}

// checkAnswers rejects answers for unknown questions and repeated question IDs.
func checkAnswers(quiz domain.Quiz, submission domain.Submission) error {
	known := make(map[string]struct{}, len(quiz.Questions))
	for _, q := range quiz.Questions {
		known[q.ID] = struct{}{}
	}
	answered := make(map[string]struct{}, len(submission.Answers))
	for _, a := range submission.Answers {
		if _, ok := known[a.QuestionID]; !ok {
			return fmt.Errorf("%w: %s", domain.ErrQuestionNotFound, a.QuestionID)
		}
		if _, dup := answered[a.QuestionID]; dup {
			return fmt.Errorf("%w: %s", domain.ErrDuplicateAnswer, a.QuestionID)
		}
		answered[a.QuestionID] = struct{}{}
	}
	return nil
}

func passedLabel(passed bool) string {
	if passed {
		return "true"
	}
	return "false"
}
