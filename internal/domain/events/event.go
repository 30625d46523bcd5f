package events

import (
	"time"

	"github.com/google/uuid"
)

// Timeline event types published on the per-puppy log channel
const (
	EventTypeLogUpserted = "log_upserted"
	EventTypeLogDeleted  = "log_deleted"
)

// LogEvent announces a committed change to an activity log row. Subscribers
// receive the full row for upserts and the routine item ID for deletes.
type LogEvent struct {
	EventType     string      `json:"event_type"`
	PuppyID       uuid.UUID   `json:"puppy_id"`
	RoutineItemID uuid.UUID   `json:"routine_item_id"`
	Date          string      `json:"date"`
	Timestamp     time.Time   `json:"timestamp"`
	Log           interface{} `json:"log,omitempty"`
}

// Document collection names for snapshot ticks
const (
	CollectionTasks     = "tasks"
	CollectionDeletions = "deletedRoutineItems"
	CollectionEdits     = "editedRoutineItems"
)

// SnapshotEvent is a per-collection invalidation tick. It intentionally
// carries no payload: subscribers re-read the current snapshot so the merged
// view is a function of snapshot state, never of delivery order.
type SnapshotEvent struct {
	Collection string    `json:"collection"`
	PuppyID    uuid.UUID `json:"puppy_id"`
	Date       string    `json:"date"`
	Timestamp  time.Time `json:"timestamp"`
}

// ProfileEvent announces a profile display-name/avatar change.
type ProfileEvent struct {
	UserID      uuid.UUID `json:"user_id"`
	DisplayName string    `json:"display_name"`
	AvatarURL   string    `json:"avatar_url"`
	Timestamp   time.Time `json:"timestamp"`
}

// LogChannel returns the Redis channel for a puppy's activity log events.
func LogChannel(puppyID uuid.UUID) string {
	return "activity_logs:" + puppyID.String()
}

// SnapshotChannel returns the Redis channel for a puppy's document collection ticks.
func SnapshotChannel(collection string, puppyID uuid.UUID) string {
	return collection + ":" + puppyID.String()
}

// ProfileChannel is the Redis channel for profile change events.
const ProfileChannel = "profiles:changes"
