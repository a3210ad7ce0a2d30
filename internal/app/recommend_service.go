package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"quiz-pipeline-service/internal/domain"
	"quiz-pipeline-service/internal/metrics"
)

// RecommendationService reads a profile snapshot and the published catalog and ranks them.
type RecommendationService struct {
	profiles ProfileRepository
	cache    ProfileCache
	catalog  Catalog
}

func NewRecommendationService(profiles ProfileRepository, cache ProfileCache, catalog Catalog) *RecommendationService {
	if cache == nil {
		cache = NopProfileCache{}
	}
	return &RecommendationService{profiles: profiles, cache: cache, catalog: catalog}
}

// Profile returns the stored profile, serving from cache when possible.
func (s *RecommendationService) Profile(ctx context.Context, userID string) (domain.PreferenceProfile, error) {
	if profile, ok := s.cache.Get(ctx, userID); ok {
		metrics.ProfileCacheLookups.WithLabelValues("hit").Inc()
		return profile, nil
	}
	metrics.ProfileCacheLookups.WithLabelValues("miss").Inc()

	profile, err := s.profiles.GetProfile(ctx, userID)
	if err != nil {
		return domain.PreferenceProfile{}, err
	}
	s.cache.Set(ctx, profile)
	return profile, nil
}

// Recommend ranks published courses for userID. A user without a profile gets no entries.
func (s *RecommendationService) Recommend(ctx context.Context, userID string) ([]domain.RecommendationEntry, error) {
	start := time.Now()
	defer func() { metrics.RecommendationDuration.Observe(time.Since(start).Seconds()) }()

	profile, err := s.Profile(ctx, userID)
	if errors.Is(err, domain.ErrProfileNotFound) {
		return []domain.RecommendationEntry{}, nil
	}
	if err != nil {
		return nil, err
	}

	published := true
	courses, err := s.catalog.ListCourses(ctx, domain.CourseFilter{Published: &published})
	if err != nil {
		return nil, fmt.Errorf("list catalog: %w", err)
	}
	return Rank(profile, courses), nil
}
