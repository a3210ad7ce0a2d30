package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"quiz-pipeline-service/internal/domain"
	"quiz-pipeline-service/internal/metrics"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
)

// ProfileRepository stores preference profiles with optimistic versioning. SaveProfile
// expects profile.Version to be the version that was read (0 for a new profile) and
// returns domain.ErrConcurrentUpdate when the stored version moved on.
type ProfileRepository interface {
	GetProfile(ctx context.Context, userID string) (domain.PreferenceProfile, error)
	SaveProfile(ctx context.Context, profile domain.PreferenceProfile) (domain.PreferenceProfile, error)
}

// ProfileCache is a time-bounded read cache in front of ProfileRepository.
type ProfileCache interface {
	Get(ctx context.Context, userID string) (domain.PreferenceProfile, bool)
	// Set must keep an entry whose Version is newer than profile.Version.
	Set(ctx context.Context, profile domain.PreferenceProfile)
}

// Catalog is the read-only course catalog owned by the course service.
type Catalog interface {
	GetCourse(ctx context.Context, courseID string) (domain.CourseCandidate, error)
	ListCourses(ctx context.Context, filter domain.CourseFilter) ([]domain.CourseCandidate, error)
}

// AggregatorConfig tunes the preference aggregator.
type AggregatorConfig struct {
	HistorySize             int
	DefaultTimeAvailability float64
	CatalogRetry            RetryPolicy
	MaxConflictRetries      int
}

// PreferenceAggregator folds quiz-result and course-completed events into profiles.
// Work for one user is serialised; different users proceed concurrently.
type PreferenceAggregator struct {
	profiles ProfileRepository
	cache    ProfileCache
	catalog  Catalog
	cfg      AggregatorConfig
	locks    *keyedMutex
	logger   zerolog.Logger
	now      func() time.Time
}

func NewPreferenceAggregator(profiles ProfileRepository, cache ProfileCache, catalog Catalog, cfg AggregatorConfig, logger zerolog.Logger) *PreferenceAggregator {
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = DefaultHistorySize
	}
	if cfg.MaxConflictRetries <= 0 {
		cfg.MaxConflictRetries = 3
	}
	if cache == nil {
		cache = NopProfileCache{}
	}
	return &PreferenceAggregator{
		profiles: profiles,
		cache:    cache,
		catalog:  catalog,
		cfg:      cfg,
		locks:    newKeyedMutex(),
		logger:   logger.With().Str("component", "aggregator").Logger(),
		now:      time.Now,
	}
}

// ApplyQuizResult records a quiz score. It reports false for an already applied quiz.
func (a *PreferenceAggregator) ApplyQuizResult(ctx context.Context, ev domain.QuizResultEvent) (bool, error) {
	unlock := a.locks.Lock(ev.StudentID)
	defer unlock()

	_, applied, err := a.update(ctx, ev.StudentID, func(p domain.PreferenceProfile) (domain.PreferenceProfile, bool) {
		return ApplyQuizScore(p, ev, a.cfg.HistorySize)
	})
	return applied, err
}

// ApplyCourseCompleted records a course completion and, when the catalog lookup succeeds,
// the course category. A failed lookup drops only the category update.
func (a *PreferenceAggregator) ApplyCourseCompleted(ctx context.Context, ev domain.CourseCompletedEvent) (bool, error) {
	unlock := a.locks.Lock(ev.StudentID)
	defer unlock()

	current, err := a.load(ctx, ev.StudentID)
	if err != nil {
		return false, err
	}
	if _, applied := ApplyCompletion(current, ev, nil); !applied {
		return false, nil
	}

	course := a.lookupCourse(ctx, ev.CourseID)
	_, applied, err := a.update(ctx, ev.StudentID, func(p domain.PreferenceProfile) (domain.PreferenceProfile, bool) {
		return ApplyCompletion(p, ev, course)
	})
	return applied, err
}

// UpdateAvailability sets the weekly time budget (hours) used by the ranker.
func (a *PreferenceAggregator) UpdateAvailability(ctx context.Context, userID string, hours float64) (domain.PreferenceProfile, error) {
	if hours < 0 || hours > 168 {
		return domain.PreferenceProfile{}, fmt.Errorf("%w: %v outside 0..168 hours", domain.ErrInvalidAvailability, hours)
	}
	unlock := a.locks.Lock(userID)
	defer unlock()

	saved, _, err := a.update(ctx, userID, func(p domain.PreferenceProfile) (domain.PreferenceProfile, bool) {
		out := p.Clone()
		out.TimeAvailability = hours
		return out, true
	})
	return saved, err
}

// update runs load, mutate, save, retrying on optimistic-lock conflicts.
func (a *PreferenceAggregator) update(ctx context.Context, userID string, mutate func(domain.PreferenceProfile) (domain.PreferenceProfile, bool)) (domain.PreferenceProfile, bool, error) {
	for attempt := 0; ; attempt++ {
		current, err := a.load(ctx, userID)
		if err != nil {
			return domain.PreferenceProfile{}, false, err
		}
		next, applied := mutate(current)
		if !applied {
			return current, false, nil
		}
		saved, err := a.profiles.SaveProfile(ctx, touch(next, a.now()))
		if err != nil {
			if errors.Is(err, domain.ErrConcurrentUpdate) && attempt < a.cfg.MaxConflictRetries {
				metrics.ProfileConflicts.Inc()
				a.logger.Debug().Str("user_id", userID).Int("attempt", attempt+1).Msg("profile conflict, reapplying")
				continue
			}
			return domain.PreferenceProfile{}, false, fmt.Errorf("save profile: %w", err)
		}
		a.cache.Set(ctx, saved)
		return saved, true, nil
	}
}

func (a *PreferenceAggregator) load(ctx context.Context, userID string) (domain.PreferenceProfile, error) {
	profile, err := a.profiles.GetProfile(ctx, userID)
	if errors.Is(err, domain.ErrProfileNotFound) {
		return NewProfile(userID, a.cfg.DefaultTimeAvailability), nil
	}
	if err != nil {
		return domain.PreferenceProfile{}, fmt.Errorf("load profile: %w", err)
	}
	return profile, nil
}

// lookupCourse returns nil when the course cannot be resolved after retries.
func (a *PreferenceAggregator) lookupCourse(ctx context.Context, courseID string) *domain.CourseCandidate {
	var course domain.CourseCandidate
	op := func() error {
		c, err := a.catalog.GetCourse(ctx, courseID)
		if errors.Is(err, domain.ErrCourseNotFound) {
			return backoff.Permanent(err)
		}
		if err != nil {
			return err
		}
		course = c
		return nil
	}
	notify := func(err error, wait time.Duration) {
		a.logger.Debug().Err(err).Str("course_id", courseID).Dur("retry_in", wait).Msg("catalog lookup failed")
	}

	if err := backoff.RetryNotify(op, a.cfg.CatalogRetry.BackOff(ctx), notify); err != nil {
		if !errors.Is(err, domain.ErrCourseNotFound) {
			metrics.CatalogLookupFailures.Inc()
		}
		a.logger.Warn().Err(err).Str("course_id", courseID).Msg("catalog lookup gave up, dropping category update")
		return nil
	}
	return &course
}

// NopProfileCache disables profile caching.
type NopProfileCache struct{}

func (NopProfileCache) Get(context.Context, string) (domain.PreferenceProfile, bool) {
	return domain.PreferenceProfile{}, false
}
func (NopProfileCache) Set(context.Context, domain.PreferenceProfile) {}
