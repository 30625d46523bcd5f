package timeline

import (
	"strconv"
	"strings"

	"github.com/pawday/backend/internal/domain/routine"
	"github.com/pawday/backend/internal/domain/tasks"
)

// Entry kinds
const (
	KindRoutine = "routine"
	KindCustom  = "custom"
)

// Temporal states relative to the clock at merge time
const (
	StateUpcoming  = "upcoming"  // scheduled later than now
	StateDue       = "due"       // scheduled time has passed, not completed
	StateCompleted = "completed" // carries a completed log / completed flag
)

// Entry is one row of the merged timeline: either a routine item (with its
// overlay already applied and its completion log attached) or an ad hoc
// task. Entries are derived on every recompute and never persisted.
type Entry struct {
	Kind        string        `json:"kind"`
	TimeMinutes int           `json:"time_minutes"`
	State       string        `json:"state"`
	Routine     *RoutineEntry `json:"routine,omitempty"`
	Task        *tasks.Task   `json:"task,omitempty"`
}

// RoutineEntry is a routine item as displayed: the overlay's fields replace
// the item's presentation fields while the item keeps its original ID, so
// completion logs still key correctly against it.
type RoutineEntry struct {
	Item         routine.Item            `json:"item"`
	IsEdited     bool                    `json:"is_edited"`
	PottyDetails *tasks.PottyDetails     `json:"potty_details,omitempty"`
	Log          *routine.LogWithProfile `json:"log,omitempty"`
}

// Stats aggregates completion across both entry kinds.
type Stats struct {
	CompletedCount int `json:"completed_count"`
	TotalCount     int `json:"total_count"`
	Percentage     int `json:"percentage"`
}

// Timeline is the merged, time-sorted view plus its aggregate stats.
type Timeline struct {
	Entries []Entry `json:"entries"`
	Stats   Stats   `json:"stats"`
}

// ParseTimeMinutes converts an HH:mm string to minutes since midnight.
// Missing or malformed input sorts first rather than erroring, so a bad
// time string can never break the timeline.
func ParseTimeMinutes(clock string) int {
	parts := strings.SplitN(clock, ":", 2)
	if len(parts) != 2 {
		return 0
	}
	hours, err := strconv.Atoi(parts[0])
	if err != nil || hours < 0 || hours > 23 {
		return 0
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil || minutes < 0 || minutes > 59 {
		return 0
	}
	return hours*60 + minutes
}
