package timeline

import (
	"math"
	"sort"

	"github.com/google/uuid"
	"github.com/pawday/backend/internal/domain/routine"
	"github.com/pawday/backend/internal/domain/tasks"
)

// MergeInput is the complete snapshot state the merge is a function of.
// The engine must never depend on the order the snapshots arrived in:
// cross-store delivery order is not guaranteed.
type MergeInput struct {
	Items      []routine.Item
	Tombstones map[uuid.UUID]tasks.RoutineItemDeletion
	Overlays   map[uuid.UUID]tasks.RoutineItemEdit
	Logs       map[uuid.UUID]routine.LogWithProfile
	Tasks      []tasks.Task

	// NowMinutes drives temporal classification; callers pass the current
	// clock so the merge itself stays pure.
	NowMinutes int
}

// Merge combines the routine schedule with the document-store state into one
// ascending-time-sorted timeline. Tombstoned items are dropped, overlaid
// items have their display fields replaced while keeping their identity, and
// ad hoc tasks are interleaved by their actual time. Pure function: no I/O,
// no mutation of its inputs.
func Merge(in MergeInput) Timeline {
	entries := make([]Entry, 0, len(in.Items)+len(in.Tasks))

	completed := 0
	total := 0

	for _, item := range in.Items {
		if _, deleted := in.Tombstones[item.ID]; deleted {
			continue
		}
		total++

		entry := RoutineEntry{Item: item}
		if overlay, ok := in.Overlays[item.ID]; ok {
			entry.Item.ScheduledTime = overlay.Time
			entry.Item.ActivityType = overlay.Category
			entry.Item.Title = overlay.Title
			entry.Item.Description = overlay.Description
			entry.PottyDetails = overlay.PottyDetails
			entry.IsEdited = true
		}

		done := false
		if log, ok := in.Logs[item.ID]; ok {
			logCopy := log
			entry.Log = &logCopy
			done = log.Status == routine.StatusCompleted
		}
		if done {
			completed++
		}

		minutes := ParseTimeMinutes(entry.Item.ScheduledTime)
		entries = append(entries, Entry{
			Kind:        KindRoutine,
			TimeMinutes: minutes,
			State:       classify(minutes, in.NowMinutes, done),
			Routine:     &entry,
		})
	}

	for i := range in.Tasks {
		task := in.Tasks[i]
		total++
		if task.IsCompleted {
			completed++
		}

		minutes := ParseTimeMinutes(task.ActualTime)
		entries = append(entries, Entry{
			Kind:        KindCustom,
			TimeMinutes: minutes,
			State:       classify(minutes, in.NowMinutes, task.IsCompleted),
			Task:        &task,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].TimeMinutes < entries[j].TimeMinutes
	})

	return Timeline{
		Entries: entries,
		Stats:   computeStats(completed, total),
	}
}

func classify(minutes, nowMinutes int, completed bool) string {
	switch {
	case completed:
		return StateCompleted
	case minutes < nowMinutes:
		return StateDue
	default:
		return StateUpcoming
	}
}

func computeStats(completed, total int) Stats {
	stats := Stats{CompletedCount: completed, TotalCount: total}
	if total > 0 {
		stats.Percentage = int(math.Round(float64(completed) / float64(total) * 100))
	}
	return stats
}
