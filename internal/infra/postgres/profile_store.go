package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"quiz-pipeline-service/internal/domain"

	"github.com/uptrace/bun"
)

type profileRow struct {
	bun.BaseModel `bun:"table:preference_profiles,alias:p"`

	UserID    string                   `bun:"user_id,pk"`
	Data      domain.PreferenceProfile `bun:"data,type:jsonb,notnull"`
	Version   int64                    `bun:"version,notnull"`
	UpdatedAt time.Time                `bun:"updated_at,notnull"`
}

// ProfileStore keeps one JSONB document per user guarded by a version column.
type ProfileStore struct {
	db *bun.DB
}

func NewProfileStore(db *bun.DB) *ProfileStore {
	return &ProfileStore{db: db}
}

func (s *ProfileStore) GetProfile(ctx context.Context, userID string) (domain.PreferenceProfile, error) {
	var row profileRow
	err := s.db.NewSelect().Model(&row).Where("user_id = ?", userID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.PreferenceProfile{}, domain.ErrProfileNotFound
	}
	if err != nil {
		return domain.PreferenceProfile{}, fmt.Errorf("select profile: %w", err)
	}
	profile := row.Data
	profile.UserID = row.UserID
	profile.Version = row.Version
	return profile, nil
}

// SaveProfile writes profile if the stored version still equals profile.Version.
func (s *ProfileStore) SaveProfile(ctx context.Context, profile domain.PreferenceProfile) (domain.PreferenceProfile, error) {
	expected := profile.Version
	profile.Version = expected + 1
	if profile.UpdatedAt.IsZero() {
		profile.UpdatedAt = time.Now().UTC()
	}
	row := profileRow{
		UserID:    profile.UserID,
		Data:      profile,
		Version:   profile.Version,
		UpdatedAt: profile.UpdatedAt,
	}

	var (
		res sql.Result
		err error
	)
	if expected == 0 {
		res, err = s.db.NewInsert().Model(&row).On("CONFLICT (user_id) DO NOTHING").Exec(ctx)
	} else {
		res, err = s.db.NewUpdate().Model(&row).
			Column("data", "version", "updated_at").
			Where("user_id = ?", row.UserID).
			Where("version = ?", expected).
			Exec(ctx)
	}
	if err != nil {
		return domain.PreferenceProfile{}, fmt.Errorf("write profile: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.PreferenceProfile{}, domain.ErrConcurrentUpdate
	}
	return profile, nil
}
