package tasks

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrCategoryRequired = errors.New("activity category is required")
	ErrTitleRequired    = errors.New("title is required")
	ErrAmbiguousTarget  = errors.New("edit target must be a task or a routine item, not both")
)

// Service owns the ad hoc task lifecycle and the edit/delete path for both
// item kinds. A single submit path dispatches on provenance: custom tasks
// are mutated directly, routine items get an overlay (edit) or a tombstone
// (delete) and are never touched themselves.
type Service interface {
	AddTask(ctx context.Context, input AddTaskInput) (*Task, error)
	SubmitEdit(ctx context.Context, input EditInput) error
	DeleteTask(ctx context.Context, puppyID uuid.UUID, taskID string) error
	DeleteRoutineItem(ctx context.Context, puppyID, routineItemID, deletedBy uuid.UUID) error
	SetTaskCompletion(ctx context.Context, puppyID uuid.UUID, taskID string, completed bool, userID uuid.UUID) (*Task, error)
}

type service struct {
	store  Store
	logger *zap.Logger
}

func NewService(store Store, logger *zap.Logger) Service {
	return &service{store: store, logger: logger}
}

// today is the date scope for all document writes; collections are keyed
// per day so yesterday's edits never bleed into today.
func today() string {
	return time.Now().Format("2006-01-02")
}

// nowClock returns the current wall time at minute precision, the default
// when the user leaves the time field untouched.
func nowClock() string {
	return time.Now().Format("15:04")
}

func (s *service) AddTask(ctx context.Context, input AddTaskInput) (*Task, error) {
	if input.Category == "" {
		return nil, ErrCategoryRequired
	}
	if input.Title == "" {
		return nil, ErrTitleRequired
	}

	clock := input.Time
	if clock == "" {
		clock = nowClock()
	}

	task := &Task{
		ID:            uuid.NewString(),
		PuppyID:       input.PuppyID,
		Date:          today(),
		ScheduledTime: clock,
		ActualTime:    clock,
		Category:      input.Category,
		Title:         input.Title,
		Description:   truncateNote(input.Description),
		PottyDetails:  sanitizePottyDetails(input.Category, input.PottyDetails),
		IsUserAdded:   true,
		CreatedBy:     input.CreatedBy,
		CreatedAt:     time.Now().UTC(),
	}

	if err := s.store.PutTask(ctx, task); err != nil {
		return nil, err
	}

	s.logger.Info("Task added",
		zap.String("puppy_id", input.PuppyID.String()),
		zap.String("task_id", task.ID),
		zap.String("category", task.Category))
	return task, nil
}

// SubmitEdit applies the unified edit form. Routine items receive an overlay
// keyed by (puppyID, routineItemID, today); custom tasks are updated in place.
func (s *service) SubmitEdit(ctx context.Context, input EditInput) error {
	if input.TargetTaskID != "" && input.TargetRoutineItemID != uuid.Nil {
		return ErrAmbiguousTarget
	}
	if input.Category == "" {
		return ErrCategoryRequired
	}

	clock := input.Time
	if clock == "" {
		clock = nowClock()
	}
	details := sanitizePottyDetails(input.Category, input.PottyDetails)
	description := truncateNote(input.Description)
	now := time.Now().UTC()

	if input.IsRoutineTarget() {
		edit := &RoutineItemEdit{
			Time:         clock,
			Category:     input.Category,
			Title:        input.Title,
			Description:  description,
			PottyDetails: details,
			EditedBy:     input.EditedBy,
			EditedAt:     now,
		}
		return s.store.PutEdit(ctx, input.PuppyID, input.TargetRoutineItemID, today(), edit)
	}

	task, err := s.store.GetTask(ctx, input.PuppyID, today(), input.TargetTaskID)
	if err != nil {
		return err
	}
	task.ActualTime = clock
	task.ScheduledTime = clock
	task.Category = input.Category
	if input.Title != "" {
		task.Title = input.Title
	}
	task.Description = description
	task.PottyDetails = details
	task.IsEdited = true
	task.LastEditedBy = &input.EditedBy
	task.LastEditedAt = &now
	return s.store.PutTask(ctx, task)
}

func (s *service) DeleteTask(ctx context.Context, puppyID uuid.UUID, taskID string) error {
	return s.store.RemoveTask(ctx, puppyID, today(), taskID)
}

// DeleteRoutineItem hides the item for today only by writing a tombstone.
func (s *service) DeleteRoutineItem(ctx context.Context, puppyID, routineItemID, deletedBy uuid.UUID) error {
	deletion := &RoutineItemDeletion{
		DeletedBy: deletedBy,
		DeletedAt: time.Now().UTC(),
	}
	return s.store.PutDeletion(ctx, puppyID, routineItemID, today(), deletion)
}

// SetTaskCompletion toggles completion directly on the task document. The
// task is its own source of truth, so the snapshot subscription alone drives
// the view; no optimistic layer is needed here.
func (s *service) SetTaskCompletion(ctx context.Context, puppyID uuid.UUID, taskID string, completed bool, userID uuid.UUID) (*Task, error) {
	task, err := s.store.GetTask(ctx, puppyID, today(), taskID)
	if err != nil {
		return nil, err
	}

	task.IsCompleted = completed
	if completed {
		now := time.Now().UTC()
		task.CompletedBy = &userID
		task.CompletedAt = &now
	} else {
		task.CompletedBy = nil
		task.CompletedAt = nil
	}

	if err := s.store.PutTask(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

// sanitizePottyDetails drops the potty sub-object for every category other
// than potty break, so switching category clears stale flags.
func sanitizePottyDetails(category string, details *PottyDetails) *PottyDetails {
	if category != ActivityPottyBreak {
		return nil
	}
	if details == nil {
		return &PottyDetails{}
	}
	return &PottyDetails{Poop: details.Poop, Pee: details.Pee}
}

func truncateNote(note string) string {
	if len(note) <= NoteMaxLength {
		return note
	}
	runes := []rune(note)
	if len(runes) <= NoteMaxLength {
		return note
	}
	return string(runes[:NoteMaxLength])
}
