package dto

import (
	"time"

	"github.com/google/uuid"
)

// RoutineItemRequest is one generated schedule entry in a save request
type RoutineItemRequest struct {
	ActivityType    string `json:"activity_type" binding:"required"`
	Title           string `json:"title" binding:"required"`
	Description     string `json:"description"`
	ScheduledTime   string `json:"scheduled_time" binding:"required"`
	DurationMinutes *int   `json:"duration_minutes"`
	SortOrder       int    `json:"sort_order"`
}

// SaveRoutineRequest represents the request to persist a generated routine
type SaveRoutineRequest struct {
	PuppyID uuid.UUID            `json:"puppy_id" binding:"required"`
	Source  string               `json:"source"`
	Items   []RoutineItemRequest `json:"items" binding:"required"`
}

// ToggleItemRequest enables or disables one routine item
type ToggleItemRequest struct {
	Enabled bool `json:"enabled"`
}

// RoutineItemResponse represents a routine item in API responses
type RoutineItemResponse struct {
	ID              uuid.UUID `json:"id"`
	ActivityType    string    `json:"activity_type"`
	Title           string    `json:"title"`
	Description     string    `json:"description,omitempty"`
	ScheduledTime   string    `json:"scheduled_time"`
	DurationMinutes *int      `json:"duration_minutes,omitempty"`
	SortOrder       int       `json:"sort_order"`
	IsEnabled       bool      `json:"is_enabled"`
}

// RoutineResponse represents the active routine with its items
type RoutineResponse struct {
	ID          uuid.UUID             `json:"id"`
	PuppyID     uuid.UUID             `json:"puppy_id"`
	Source      string                `json:"source"`
	GeneratedAt time.Time             `json:"generated_at"`
	Items       []RoutineItemResponse `json:"items"`
}

// CompleteActivityRequest marks a routine item completed for today
type CompleteActivityRequest struct {
	PuppyID uuid.UUID `json:"puppy_id" binding:"required"`
}

// SkipActivityRequest records a skipped routine item with an optional note
type SkipActivityRequest struct {
	PuppyID uuid.UUID `json:"puppy_id" binding:"required"`
	Note    *string   `json:"note"`
}

// CompletionLogResponse represents an activity log with its completer
type CompletionLogResponse struct {
	RoutineItemID uuid.UUID       `json:"routine_item_id"`
	PuppyID       uuid.UUID       `json:"puppy_id"`
	Date          string          `json:"date"`
	Status        string          `json:"status"`
	CompletedBy   *uuid.UUID      `json:"completed_by,omitempty"`
	CompletedAt   *time.Time      `json:"completed_at,omitempty"`
	Note          *string         `json:"note,omitempty"`
	Completer     *ProfileSummary `json:"completer,omitempty"`
}
