package user

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/pawday/backend/internal/infrastructure/persistence/postgres/connection"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrProfileNotFound = errors.New("profile not found")

// Repository defines the interface for profile persistence operations
type Repository interface {
	Upsert(ctx context.Context, profile *Profile) error
	FindByID(ctx context.Context, id uuid.UUID) (*Profile, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*Profile, error)
	Update(ctx context.Context, profile *Profile) error
}

type repository struct {
	db *connection.Database
}

func NewRepository(db *connection.Database) Repository {
	return &repository{db: db}
}

func (r *repository) Upsert(ctx context.Context, profile *Profile) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"display_name", "avatar_url", "updated_at"}),
		}).
		Create(profile).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*Profile, error) {
	var profile Profile
	result := r.db.WithContext(ctx).First(&profile, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, result.Error
	}
	return &profile, nil
}

func (r *repository) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*Profile, error) {
	var profiles []Profile
	if len(ids) == 0 {
		return map[uuid.UUID]*Profile{}, nil
	}
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&profiles).Error; err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*Profile, len(profiles))
	for i := range profiles {
		byID[profiles[i].ID] = &profiles[i]
	}
	return byID, nil
}

func (r *repository) Update(ctx context.Context, profile *Profile) error {
	result := r.db.WithContext(ctx).Save(profile)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrProfileNotFound
	}
	return nil
}
