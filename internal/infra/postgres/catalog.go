package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"quiz-pipeline-service/internal/domain"

	"github.com/uptrace/bun"
)

type courseRow struct {
	bun.BaseModel `bun:"table:courses,alias:c"`

	ID        string  `bun:"id,pk"`
	Title     string  `bun:"title"`
	Category  string  `bun:"category,notnull"`
	Level     string  `bun:"level,notnull"`
	Duration  float64 `bun:"duration,notnull"`
	Rating    float64 `bun:"rating,notnull"`
	Published bool    `bun:"published,notnull"`
}

func (r courseRow) toDomain() domain.CourseCandidate {
	return domain.CourseCandidate{
		ID:        r.ID,
		Title:     r.Title,
		Category:  r.Category,
		Level:     domain.Level(r.Level),
		Duration:  r.Duration,
		Rating:    r.Rating,
		Published: r.Published,
	}
}

// Catalog reads the course read model replicated from the course service.
type Catalog struct {
	db *bun.DB
}

func NewCatalog(db *bun.DB) *Catalog {
	return &Catalog{db: db}
}

func (c *Catalog) GetCourse(ctx context.Context, courseID string) (domain.CourseCandidate, error) {
	var row courseRow
	err := c.db.NewSelect().Model(&row).Where("id = ?", courseID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.CourseCandidate{}, domain.ErrCourseNotFound
	}
	if err != nil {
		return domain.CourseCandidate{}, fmt.Errorf("select course: %w", err)
	}
	return row.toDomain(), nil
}

func (c *Catalog) ListCourses(ctx context.Context, filter domain.CourseFilter) ([]domain.CourseCandidate, error) {
	var rows []courseRow
	q := c.db.NewSelect().Model(&rows).Order("id ASC")
	if filter.Category != "" {
		q = q.Where("category = ?", filter.Category)
	}
	if filter.Level != "" {
		q = q.Where("level = ?", string(filter.Level))
	}
	if filter.Published != nil {
		q = q.Where("published = ?", *filter.Published)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	courses := make([]domain.CourseCandidate, 0, len(rows))
	for _, row := range rows {
		courses = append(courses, row.toDomain())
	}
	return courses, nil
}

// UpsertCourse keeps the read model in sync; used by seeding and tests.
func (c *Catalog) UpsertCourse(ctx context.Context, course domain.CourseCandidate) error {
	row := courseRow{
		ID:        course.ID,
		Title:     course.Title,
		Category:  course.Category,
		Level:     string(course.Level),
		Duration:  course.Duration,
		Rating:    course.Rating,
		Published: course.Published,
	}
	_, err := c.db.NewInsert().Model(&row).
		On("CONFLICT (id) DO UPDATE").
		Set("title = EXCLUDED.title").
		Set("category = EXCLUDED.category").
		Set("level = EXCLUDED.level").
		Set("duration = EXCLUDED.duration").
		Set("rating = EXCLUDED.rating").
		Set("published = EXCLUDED.published").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("upsert course: %w", err)
	}
	return nil
}
