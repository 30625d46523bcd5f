package routine

import (
	"time"

	"github.com/google/uuid"
	"github.com/pawday/backend/internal/domain/user"
	"gorm.io/gorm"
)

// Log statuses
const (
	StatusCompleted = "completed"
	StatusMissed    = "missed"
	StatusSkipped   = "skipped"
)

// Routine is one generated daily schedule for a puppy. Only one routine per
// puppy is active at a time; the item list underneath it is immutable after
// generation.
type Routine struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	PuppyID     uuid.UUID `gorm:"type:uuid;not null;index"`
	Source      string    `gorm:"size:32;not null;default:'ai_generated'"`
	IsActive    bool      `gorm:"not null;default:true"`
	GeneratedAt time.Time `gorm:"not null;default:current_timestamp"`

	Items []Item `gorm:"foreignKey:RoutineID"`
}

// TableName specifies the table name for the Routine model
func (Routine) TableName() string {
	return "routines"
}

// Item is a single scheduled activity in the generated routine. The core
// never mutates an item after generation; user edits and deletions live in
// the document store as overlays and tombstones.
type Item struct {
	ID              uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	RoutineID       uuid.UUID `gorm:"type:uuid;not null;index"`
	ActivityType    string    `gorm:"size:32;not null"`
	Title           string    `gorm:"size:255;not null"`
	Description     string    `gorm:"type:text"`
	ScheduledTime   string    `gorm:"size:5;not null"` // HH:mm
	DurationMinutes *int      `gorm:"default:null"`
	SortOrder       int       `gorm:"not null;default:0"`
	IsEnabled       bool      `gorm:"not null;default:true"`
}

// TableName specifies the table name for the Item model
func (Item) TableName() string {
	return "routine_items"
}

// Log records who completed (or skipped) a routine item and when. Keyed
// uniquely by (routine_item_id, date): at most one row per item per day.
type Log struct {
	ID            uuid.UUID  `gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	RoutineItemID uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_log_item_date,priority:1"`
	PuppyID       uuid.UUID  `gorm:"type:uuid;not null;index"`
	Date          string     `gorm:"size:10;not null;uniqueIndex:idx_log_item_date,priority:2"` // YYYY-MM-DD
	Status        string     `gorm:"size:16;not null"`
	CompletedBy   *uuid.UUID `gorm:"type:uuid;default:null"`
	CompletedAt   *time.Time `gorm:"default:null"`
	Note          *string    `gorm:"size:200"`
	CreatedAt     time.Time  `gorm:"not null;default:current_timestamp"`
}

// TableName specifies the table name for the Log model
func (Log) TableName() string {
	return "activity_logs"
}

// LogWithProfile attaches the completer's denormalized profile to a log row.
// The profile is resolved at read time and refreshed live by the profile
// watcher; it is never persisted with the log.
type LogWithProfile struct {
	Log
	CompleterProfile *user.CompleterProfile `json:"completer_profile,omitempty"`
}

// RoutineWithItems pairs a routine with its time-sorted items
type RoutineWithItems struct {
	Routine Routine `json:"routine"`
	Items   []Item  `json:"items"`
}

// ItemInput is one entry of an externally generated routine. The generation
// step itself is upstream of this service; the list arrives as opaque
// ordered content.
type ItemInput struct {
	ActivityType    string `json:"activity_type"`
	Title           string `json:"title"`
	Description     string `json:"description"`
	ScheduledTime   string `json:"scheduled_time"` // HH:mm
	DurationMinutes *int   `json:"duration_minutes"`
	SortOrder       int    `json:"sort_order"`
}

// UpsertLogInput represents the input for writing a completion log
type UpsertLogInput struct {
	RoutineItemID uuid.UUID
	PuppyID       uuid.UUID
	Status        string
	CompletedBy   uuid.UUID
	Note          *string
}

// BeforeCreate is called before creating a new log record
func (l *Log) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	l.CreatedAt = time.Now()
	return nil
}

// Today returns the local date string all per-day collections are scoped by.
func Today() string {
	return time.Now().Format("2006-01-02")
}
