package postgres

import (
	"context"
	"fmt"
	"time"

	"quiz-pipeline-service/internal/domain"

	"github.com/uptrace/bun"
)

type resultRow struct {
	bun.BaseModel `bun:"table:quiz_results,alias:r"`

	ID              string                  `bun:"id,pk"`
	AttemptKey      string                  `bun:"attempt_key,notnull"`
	QuizID          string                  `bun:"quiz_id,notnull"`
	StudentID       string                  `bun:"student_id,notnull"`
	Score           float64                 `bun:"score,notnull"`
	Passed          bool                    `bun:"passed,notnull"`
	EarnedPoints    int                     `bun:"earned_points,notnull"`
	TotalPoints     int                     `bun:"total_points,notnull"`
	QuestionResults []domain.QuestionResult `bun:"question_results,type:jsonb"`
	CreatedAt       time.Time               `bun:"created_at,notnull"`
}

// ResultStore is the append-only result log. A unique index on attempt_key enforces
// the attempt policy.
type ResultStore struct {
	db *bun.DB
}

func NewResultStore(db *bun.DB) *ResultStore {
	return &ResultStore{db: db}
}

func (s *ResultStore) Append(ctx context.Context, result domain.QuizResult, attemptKey string) error {
	row := resultRow{
		ID:              result.ID,
		AttemptKey:      attemptKey,
		QuizID:          result.QuizID,
		StudentID:       result.StudentID,
		Score:           result.Score,
		Passed:          result.Passed,
		EarnedPoints:    result.EarnedPoints,
		TotalPoints:     result.TotalPoints,
		QuestionResults: result.QuestionResults,
		CreatedAt:       result.CreatedAt,
	}
	if _, err := s.db.NewInsert().Model(&row).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", domain.ErrDuplicateAttempt, attemptKey)
		}
		return fmt.Errorf("insert result: %w", err)
	}
	return nil
}

func (s *ResultStore) List(ctx context.Context, filter domain.ResultFilter) ([]domain.QuizResult, error) {
	var rows []resultRow
	q := s.db.NewSelect().Model(&rows).Order("created_at ASC", "id ASC")
	if filter.QuizID != "" {
		q = q.Where("quiz_id = ?", filter.QuizID)
	}
	if filter.StudentID != "" {
		q = q.Where("student_id = ?", filter.StudentID)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}

	results := make([]domain.QuizResult, 0, len(rows))
	for _, row := range rows {
		results = append(results, domain.QuizResult{
			ID:              row.ID,
			QuizID:          row.QuizID,
			StudentID:       row.StudentID,
			Score:           row.Score,
			Passed:          row.Passed,
			EarnedPoints:    row.EarnedPoints,
			TotalPoints:     row.TotalPoints,
			QuestionResults: row.QuestionResults,
			CreatedAt:       row.CreatedAt.UTC(),
		})
	}
	return results, nil
}
