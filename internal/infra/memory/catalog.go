package memory

import (
	"context"
	"sort"
	"sync"

	"quiz-pipeline-service/internal/domain"
)

// Catalog is a static course catalog for tests and local runs.
type Catalog struct {
	mu      sync.RWMutex
	courses map[string]domain.CourseCandidate
}

func NewCatalog(courses ...domain.CourseCandidate) *Catalog {
	c := &Catalog{courses: make(map[string]domain.CourseCandidate, len(courses))}
	for _, course := range courses {
		c.courses[course.ID] = course
	}
	return c
}

// Put adds or replaces a course.
func (c *Catalog) Put(course domain.CourseCandidate) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.courses[course.ID] = course
}

func (c *Catalog) GetCourse(_ context.Context, courseID string) (domain.CourseCandidate, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	course, ok := c.courses[courseID]
	if !ok {
		return domain.CourseCandidate{}, domain.ErrCourseNotFound
	}
	return course, nil
}

func (c *Catalog) ListCourses(_ context.Context, filter domain.CourseFilter) ([]domain.CourseCandidate, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]domain.CourseCandidate, 0, len(c.courses))
	for _, course := range c.courses {
		if filter.Category != "" && course.Category != filter.Category {
			continue
		}
		if filter.Level != "" && course.Level != filter.Level {
			continue
		}
		if filter.Published != nil && course.Published != *filter.Published {
			continue
		}
		out = append(out, course)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
