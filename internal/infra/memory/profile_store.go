package memory

import (
	"context"
	"sync"

	"quiz-pipeline-service/internal/domain"
)

// ProfileStore keeps preference profiles in memory with the same optimistic versioning
// contract as the Postgres store.
type ProfileStore struct {
	mu       sync.RWMutex
	profiles map[string]domain.PreferenceProfile
}

func NewProfileStore() *ProfileStore {
	return &ProfileStore{profiles: make(map[string]domain.PreferenceProfile)}
}

func (s *ProfileStore) GetProfile(_ context.Context, userID string) (domain.PreferenceProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	profile, ok := s.profiles[userID]
	if !ok {
		return domain.PreferenceProfile{}, domain.ErrProfileNotFound
	}
	return profile.Clone(), nil
}

func (s *ProfileStore) SaveProfile(_ context.Context, profile domain.PreferenceProfile) (domain.PreferenceProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, exists := s.profiles[profile.UserID]
	switch {
	case !exists && profile.Version != 0:
		return domain.PreferenceProfile{}, domain.ErrConcurrentUpdate
	case exists && current.Version != profile.Version:
		return domain.PreferenceProfile{}, domain.ErrConcurrentUpdate
	}
	saved := profile.Clone()
	saved.Version++
	s.profiles[profile.UserID] = saved
	return saved.Clone(), nil
}
