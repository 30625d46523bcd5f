package routine

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/pawday/backend/internal/infrastructure/persistence/postgres/connection"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrRoutineNotFound = errors.New("routine not found")
	ErrItemNotFound    = errors.New("routine item not found")
	ErrLogNotFound     = errors.New("activity log not found")
	ErrInvalidInput    = errors.New("invalid input")
)

// Repository defines the interface for routine persistence operations
type Repository interface {
	CreateRoutine(ctx context.Context, routine *Routine, items []Item) error
	DeactivateRoutines(ctx context.Context, puppyID uuid.UUID) error
	FindActiveRoutine(ctx context.Context, puppyID uuid.UUID) (*RoutineWithItems, error)
	FindItem(ctx context.Context, itemID uuid.UUID) (*Item, error)
	SetItemEnabled(ctx context.Context, itemID uuid.UUID, enabled bool) error

	UpsertLog(ctx context.Context, log *Log) error
	DeleteLog(ctx context.Context, routineItemID uuid.UUID, date string) (*Log, error)
	FindLogs(ctx context.Context, puppyID uuid.UUID, date string) ([]Log, error)
	FindLogsInRange(ctx context.Context, puppyID uuid.UUID, startDate, endDate string) ([]Log, error)
}

type repository struct {
	db *connection.Database
}

func NewRepository(db *connection.Database) Repository {
	return &repository{db: db}
}

func (r *repository) CreateRoutine(ctx context.Context, routine *Routine, items []Item) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(routine).Error; err != nil {
			return err
		}
		for i := range items {
			items[i].RoutineID = routine.ID
		}
		if len(items) == 0 {
			return nil
		}
		return tx.Create(&items).Error
	})
}

func (r *repository) DeactivateRoutines(ctx context.Context, puppyID uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&Routine{}).
		Where("puppy_id = ? AND is_active = ?", puppyID, true).
		Update("is_active", false).Error
}

func (r *repository) FindActiveRoutine(ctx context.Context, puppyID uuid.UUID) (*RoutineWithItems, error) {
	var routine Routine
	result := r.db.WithContext(ctx).
		Where("puppy_id = ? AND is_active = ?", puppyID, true).
		Order("generated_at DESC").
		First(&routine)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrRoutineNotFound
		}
		return nil, result.Error
	}

	var items []Item
	err := r.db.WithContext(ctx).
		Where("routine_id = ?", routine.ID).
		Order("scheduled_time ASC, sort_order ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}

	return &RoutineWithItems{Routine: routine, Items: items}, nil
}

func (r *repository) FindItem(ctx context.Context, itemID uuid.UUID) (*Item, error) {
	var item Item
	result := r.db.WithContext(ctx).First(&item, "id = ?", itemID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, result.Error
	}
	return &item, nil
}

func (r *repository) SetItemEnabled(ctx context.Context, itemID uuid.UUID, enabled bool) error {
	result := r.db.WithContext(ctx).Model(&Item{}).
		Where("id = ?", itemID).
		Update("is_enabled", enabled)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrItemNotFound
	}
	return nil
}

// UpsertLog inserts or replaces the single log row for the item/date key.
// The conflict target is the (routine_item_id, date) unique index, which is
// what makes re-completion idempotent.
func (r *repository) UpsertLog(ctx context.Context, log *Log) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "routine_item_id"}, {Name: "date"}},
			DoUpdates: clause.AssignmentColumns([]string{"status", "completed_by", "completed_at", "note"}),
		}).
		Create(log).Error
}

// DeleteLog removes the log row and returns the deleted row so callers can
// keep an undo buffer.
func (r *repository) DeleteLog(ctx context.Context, routineItemID uuid.UUID, date string) (*Log, error) {
	var log Log
	result := r.db.WithContext(ctx).
		Where("routine_item_id = ? AND date = ?", routineItemID, date).
		First(&log)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrLogNotFound
		}
		return nil, result.Error
	}

	if err := r.db.WithContext(ctx).Delete(&Log{}, "id = ?", log.ID).Error; err != nil {
		return nil, err
	}
	return &log, nil
}

func (r *repository) FindLogs(ctx context.Context, puppyID uuid.UUID, date string) ([]Log, error) {
	var logs []Log
	err := r.db.WithContext(ctx).
		Where("puppy_id = ? AND date = ?", puppyID, date).
		Find(&logs).Error
	return logs, err
}

func (r *repository) FindLogsInRange(ctx context.Context, puppyID uuid.UUID, startDate, endDate string) ([]Log, error) {
	var logs []Log
	err := r.db.WithContext(ctx).
		Where("puppy_id = ? AND date >= ? AND date <= ?", puppyID, startDate, endDate).
		Order("date ASC").
		Find(&logs).Error
	return logs, err
}
