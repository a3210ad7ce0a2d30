package postgres

import (
	"context"
	"fmt"
	"time"

	"quiz-pipeline-service/internal/domain"

	"github.com/uptrace/bun"
)

type deadLetterRow struct {
	bun.BaseModel `bun:"table:dead_letters,alias:d"`

	ID        string    `bun:"id,pk"`
	Topic     string    `bun:"topic,notnull"`
	Payload   []byte    `bun:"payload,type:bytea,notnull"`
	Error     string    `bun:"error"`
	Attempts  int       `bun:"attempts,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull"`
}

// DeadLetterStore keeps events that could not be delivered, oldest first.
type DeadLetterStore struct {
	db *bun.DB
}

func NewDeadLetterStore(db *bun.DB) *DeadLetterStore {
	return &DeadLetterStore{db: db}
}

func (s *DeadLetterStore) SaveDeadLetter(ctx context.Context, letter domain.DeadLetter) error {
	row := deadLetterRow{
		ID:        letter.ID,
		Topic:     letter.Topic,
		Payload:   letter.Payload,
		Error:     letter.Error,
		Attempts:  letter.Attempts,
		CreatedAt: letter.CreatedAt,
	}
	_, err := s.db.NewInsert().Model(&row).
		On("CONFLICT (id) DO UPDATE").
		Set("error = EXCLUDED.error").
		Set("attempts = d.attempts + EXCLUDED.attempts").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("insert dead letter: %w", err)
	}
	return nil
}

func (s *DeadLetterStore) ListDeadLetters(ctx context.Context, limit int) ([]domain.DeadLetter, error) {
	var rows []deadLetterRow
	q := s.db.NewSelect().Model(&rows).Order("created_at ASC", "id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("list dead letters: %w", err)
	}
	letters := make([]domain.DeadLetter, 0, len(rows))
	for _, row := range rows {
		letters = append(letters, domain.DeadLetter{
			ID:        row.ID,
			Topic:     row.Topic,
			Payload:   row.Payload,
			Error:     row.Error,
			Attempts:  row.Attempts,
			CreatedAt: row.CreatedAt.UTC(),
		})
	}
	return letters, nil
}

func (s *DeadLetterStore) DeleteDeadLetter(ctx context.Context, id string) error {
	if _, err := s.db.NewDelete().Model((*deadLetterRow)(nil)).Where("id = ?", id).Exec(ctx); err != nil {
		return fmt.Errorf("delete dead letter: %w", err)
	}
	return nil
}
