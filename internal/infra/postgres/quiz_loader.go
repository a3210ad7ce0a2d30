package postgres

import (
	"context"
	"errors"
	"fmt"

	"quiz-pipeline-service/internal/domain"

	"github.com/goccy/go-json"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// QuizLoader loads and stores quiz definitions as JSONB in Postgres.
type QuizLoader struct {
	pool *pgxpool.Pool
}

func NewQuizLoader(pool *pgxpool.Pool) *QuizLoader {
	return &QuizLoader{pool: pool}
}

func (l *QuizLoader) LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	var raw []byte
	err := l.pool.QueryRow(ctx, `SELECT data FROM quizzes WHERE id=$1`, quizID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("load quiz: %w", err)
	}
	var quiz domain.Quiz
	if err := json.Unmarshal(raw, &quiz); err != nil {
		return domain.Quiz{}, fmt.Errorf("unmarshal quiz: %w", err)
	}
	return quiz, nil
}

// CreateQuiz inserts a new definition. Definitions are immutable, so an existing ID is
// rejected rather than overwritten.
func (l *QuizLoader) CreateQuiz(ctx context.Context, quiz domain.Quiz) error {
	data, err := json.Marshal(quiz)
	if err != nil {
		return fmt.Errorf("marshal quiz: %w", err)
	}
	tag, err := l.pool.Exec(ctx,
		`INSERT INTO quizzes (id, course_id, data, created_at) VALUES ($1, $2, $3::jsonb, $4) ON CONFLICT (id) DO NOTHING`,
		quiz.ID, quiz.CourseID, string(data), quiz.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert quiz: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: quiz %s already exists", domain.ErrInvalidQuiz, quiz.ID)
	}
	return nil
}
