package memory

import (
	"context"
	"sync"

	"quiz-pipeline-service/internal/domain"
)

// DeadLetterStore keeps undeliverable events in memory.
type DeadLetterStore struct {
	mu      sync.Mutex
	letters []domain.DeadLetter
}

func NewDeadLetterStore() *DeadLetterStore {
	return &DeadLetterStore{}
}

func (s *DeadLetterStore) SaveDeadLetter(_ context.Context, letter domain.DeadLetter) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.letters = append(s.letters, letter)
	return nil
}

func (s *DeadLetterStore) ListDeadLetters(_ context.Context, limit int) ([]domain.DeadLetter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.letters)
	if limit > 0 && limit < n {
		n = limit
	}
	return append([]domain.DeadLetter(nil), s.letters[:n]...), nil
}

func (s *DeadLetterStore) DeleteDeadLetter(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, l := range s.letters {
		if l.ID == id {
			s.letters = append(s.letters[:i], s.letters[i+1:]...)
			return nil
		}
	}
	return nil
}
