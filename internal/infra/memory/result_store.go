package memory

import (
	"context"
	"sync"

	"quiz-pipeline-service/internal/domain"
)

// ResultStore is an append-only, in-memory result log.
type ResultStore struct {
	mu       sync.RWMutex
	results  []domain.QuizResult
	attempts map[string]struct{}
}

func NewResultStore() *ResultStore {
	return &ResultStore{attempts: make(map[string]struct{})}
}

func (s *ResultStore) Append(_ context.Context, result domain.QuizResult, attemptKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.attempts[attemptKey]; exists {
		return domain.ErrDuplicateAttempt
	}
	s.attempts[attemptKey] = struct{}{}
	s.results = append(s.results, result.Clone())
	return nil
}

func (s *ResultStore) List(_ context.Context, filter domain.ResultFilter) ([]domain.QuizResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.QuizResult, 0)
	for _, r := range s.results {
		if filter.QuizID != "" && r.QuizID != filter.QuizID {
			continue
		}
		if filter.StudentID != "" && r.StudentID != filter.StudentID {
			continue
		}
		out = append(out, r.Clone())
	}
	return out, nil
}
