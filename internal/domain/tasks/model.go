package tasks

import (
	"time"

	"github.com/google/uuid"
)

// Activity categories shared by routine items and ad hoc tasks.
const (
	ActivityPottyBreak = "potty_break"
	ActivityMeal       = "meal"
	ActivityWalk       = "walk"
	ActivityTraining   = "training"
	ActivityPlayTime   = "play_time"
	ActivityCalmTime   = "calm_time"
	ActivityNap        = "nap"
)

// NoteMaxLength caps free-text notes; longer input is truncated, not rejected.
const NoteMaxLength = 200

// PottyDetails is only meaningful on potty break activities. It is omitted
// entirely for every other category so stale flags can never leak through
// a category change.
type PottyDetails struct {
	Poop bool `json:"poop"`
	Pee  bool `json:"pee"`
}

// Task is a user-created ad hoc activity. It is a single self-contained
// document: completion and edit state live on the record itself, unlike
// routine items whose user changes are expressed as overlays and tombstones.
type Task struct {
	ID            string        `json:"id"`
	PuppyID       uuid.UUID     `json:"puppy_id"`
	Date          string        `json:"date"` // YYYY-MM-DD
	ScheduledTime string        `json:"scheduled_time"`
	ActualTime    string        `json:"actual_time"` // HH:mm, drives sort position
	Category      string        `json:"activity_category"`
	Title         string        `json:"title"`
	Description   string        `json:"description,omitempty"`
	PottyDetails  *PottyDetails `json:"potty_details,omitempty"`
	IsCompleted   bool          `json:"is_completed"`
	IsEdited      bool          `json:"is_edited"`
	IsUserAdded   bool          `json:"is_user_added"`
	CompletedBy   *uuid.UUID    `json:"completed_by,omitempty"`
	CompletedAt   *time.Time    `json:"completed_at,omitempty"`
	LastEditedBy  *uuid.UUID    `json:"last_edited_by,omitempty"`
	LastEditedAt  *time.Time    `json:"last_edited_at,omitempty"`
	CreatedBy     uuid.UUID     `json:"created_by"`
	CreatedAt     time.Time     `json:"created_at"`
}

// RoutineItemEdit is a display-field patch for one routine item on one day.
// The underlying routine item is never mutated; the overlay fully replaces
// its presentation fields at merge time while the item keeps its identity.
type RoutineItemEdit struct {
	Time         string        `json:"time"` // HH:mm
	Category     string        `json:"activity_category"`
	Title        string        `json:"title"`
	Description  string        `json:"description,omitempty"`
	PottyDetails *PottyDetails `json:"potty_details,omitempty"`
	EditedBy     uuid.UUID     `json:"edited_by"`
	EditedAt     time.Time     `json:"edited_at"`
}

// RoutineItemDeletion is a tombstone hiding one routine item for one day.
type RoutineItemDeletion struct {
	DeletedBy uuid.UUID `json:"deleted_by"`
	DeletedAt time.Time `json:"deleted_at"`
}

// AddTaskInput carries the fields a user supplies when creating a task.
type AddTaskInput struct {
	PuppyID      uuid.UUID
	Time         string // HH:mm; defaults to now when empty
	Category     string
	Title        string
	Description  string
	PottyDetails *PottyDetails
	CreatedBy    uuid.UUID
}

// EditInput is the unified edit-form payload. TargetTaskID selects a custom
// task; TargetRoutineItemID selects a routine item (exactly one must be set).
type EditInput struct {
	PuppyID             uuid.UUID
	TargetTaskID        string
	TargetRoutineItemID uuid.UUID
	Time                string
	Category            string
	Title               string
	Description         string
	PottyDetails        *PottyDetails
	EditedBy            uuid.UUID
}

// IsRoutineTarget reports whether the edit addresses a routine item rather
// than a custom task.
func (in EditInput) IsRoutineTarget() bool {
	return in.TargetTaskID == ""
}
