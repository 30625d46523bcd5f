package timeline

import (
	"testing"

	"github.com/google/uuid"
	"github.com/pawday/backend/internal/domain/routine"
	"github.com/pawday/backend/internal/domain/tasks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func routineItem(clock, title string) routine.Item {
	return routine.Item{
		ID:            uuid.New(),
		ActivityType:  tasks.ActivityMeal,
		Title:         title,
		ScheduledTime: clock,
		IsEnabled:     true,
	}
}

func customTask(clock, title string, completed bool) tasks.Task {
	return tasks.Task{
		ID:          uuid.NewString(),
		ActualTime:  clock,
		Category:    tasks.ActivityWalk,
		Title:       title,
		IsCompleted: completed,
		IsUserAdded: true,
	}
}

func completedLog(itemID uuid.UUID) routine.LogWithProfile {
	return routine.LogWithProfile{
		Log: routine.Log{
			ID:            uuid.New(),
			RoutineItemID: itemID,
			Status:        routine.StatusCompleted,
		},
	}
}

func TestParseTimeMinutes(t *testing.T) {
	tests := []struct {
		name     string
		clock    string
		expected int
	}{
		{name: "Midnight", clock: "00:00", expected: 0},
		{name: "Morning", clock: "07:00", expected: 420},
		{name: "Half hour", clock: "09:30", expected: 570},
		{name: "End of day", clock: "23:59", expected: 1439},
		{name: "Empty string sorts first", clock: "", expected: 0},
		{name: "Missing minutes sorts first", clock: "07", expected: 0},
		{name: "Non-numeric sorts first", clock: "ab:cd", expected: 0},
		{name: "Out-of-range hour sorts first", clock: "25:00", expected: 0},
		{name: "Out-of-range minute sorts first", clock: "10:75", expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseTimeMinutes(tt.clock))
		})
	}
}

func TestMergeInterleavesTasksChronologically(t *testing.T) {
	items := []routine.Item{
		routineItem("07:00", "Breakfast"),
		routineItem("12:00", "Lunch"),
		routineItem("18:00", "Dinner"),
	}

	merged := Merge(MergeInput{
		Items: items,
		Tasks: []tasks.Task{customTask("09:30", "Vet visit", false)},
	})

	require.Len(t, merged.Entries, 4)
	var times []int
	var kinds []string
	for _, e := range merged.Entries {
		times = append(times, e.TimeMinutes)
		kinds = append(kinds, e.Kind)
	}
	assert.Equal(t, []int{420, 570, 720, 1080}, times)
	assert.Equal(t, []string{KindRoutine, KindCustom, KindRoutine, KindRoutine}, kinds)
}

func TestMergeExcludesTombstonedItems(t *testing.T) {
	breakfast := routineItem("08:00", "Breakfast")
	lunch := routineItem("12:00", "Lunch")

	merged := Merge(MergeInput{
		Items: []routine.Item{breakfast, lunch},
		Tombstones: map[uuid.UUID]tasks.RoutineItemDeletion{
			breakfast.ID: {DeletedBy: uuid.New()},
		},
	})

	require.Len(t, merged.Entries, 1)
	assert.Equal(t, "Lunch", merged.Entries[0].Routine.Item.Title)
	assert.Equal(t, 1, merged.Stats.TotalCount, "tombstoned items are excluded from totals too")
}

func TestMergeAppliesOverlayKeepingIdentity(t *testing.T) {
	breakfast := routineItem("08:00", "Breakfast")
	log := completedLog(breakfast.ID)

	merged := Merge(MergeInput{
		Items: []routine.Item{breakfast},
		Overlays: map[uuid.UUID]tasks.RoutineItemEdit{
			breakfast.ID: {
				Time:     "08:15",
				Category: tasks.ActivityMeal,
				Title:    "Morning Meal",
			},
		},
		Logs: map[uuid.UUID]routine.LogWithProfile{breakfast.ID: log},
	})

	require.Len(t, merged.Entries, 1)
	entry := merged.Entries[0].Routine
	assert.Equal(t, "Morning Meal", entry.Item.Title)
	assert.Equal(t, "08:15", entry.Item.ScheduledTime)
	assert.Equal(t, 495, merged.Entries[0].TimeMinutes, "sort position follows the overlaid time")
	assert.True(t, entry.IsEdited)
	assert.Equal(t, breakfast.ID, entry.Item.ID, "identity survives the overlay")
	require.NotNil(t, entry.Log, "completion log still keys against the original item ID")
	assert.Equal(t, routine.StatusCompleted, entry.Log.Status)
}

func TestMergeStats(t *testing.T) {
	first := routineItem("07:00", "Breakfast")
	second := routineItem("12:00", "Lunch")
	third := routineItem("18:00", "Dinner")

	merged := Merge(MergeInput{
		Items: []routine.Item{first, second, third},
		Logs: map[uuid.UUID]routine.LogWithProfile{
			first.ID: completedLog(first.ID),
		},
		Tasks: []tasks.Task{
			customTask("09:30", "Vet visit", true),
			customTask("15:00", "Play", false),
		},
	})

	// 2 of 5 completed.
	assert.Equal(t, 2, merged.Stats.CompletedCount)
	assert.Equal(t, 5, merged.Stats.TotalCount)
	assert.Equal(t, 40, merged.Stats.Percentage)
}

func TestMergeEmptyInputIsEmptyStateNotError(t *testing.T) {
	merged := Merge(MergeInput{})

	assert.Empty(t, merged.Entries)
	assert.Equal(t, Stats{}, merged.Stats, "zero totals yield 0%, never a division error")
}

func TestMergeSkippedLogDoesNotCountAsCompleted(t *testing.T) {
	item := routineItem("07:00", "Breakfast")
	log := completedLog(item.ID)
	log.Status = routine.StatusSkipped

	merged := Merge(MergeInput{
		Items: []routine.Item{item},
		Logs:  map[uuid.UUID]routine.LogWithProfile{item.ID: log},
	})

	assert.Equal(t, 0, merged.Stats.CompletedCount)
	assert.Equal(t, 1, merged.Stats.TotalCount)
	require.NotNil(t, merged.Entries[0].Routine.Log)
}

func TestMergeTemporalClassification(t *testing.T) {
	past := routineItem("07:00", "Breakfast")
	done := routineItem("08:00", "Potty")
	future := routineItem("18:00", "Dinner")

	merged := Merge(MergeInput{
		Items: []routine.Item{past, done, future},
		Logs: map[uuid.UUID]routine.LogWithProfile{
			done.ID: completedLog(done.ID),
		},
		NowMinutes: 10 * 60,
	})

	states := map[string]string{}
	for _, e := range merged.Entries {
		states[e.Routine.Item.Title] = e.State
	}
	assert.Equal(t, StateDue, states["Breakfast"])
	assert.Equal(t, StateCompleted, states["Potty"])
	assert.Equal(t, StateUpcoming, states["Dinner"])
}

func TestMergeStableOrderOnEqualTimes(t *testing.T) {
	first := routineItem("09:00", "First")
	second := routineItem("09:00", "Second")

	merged := Merge(MergeInput{
		Items: []routine.Item{first, second},
		Tasks: []tasks.Task{customTask("09:00", "Third", false)},
	})

	require.Len(t, merged.Entries, 3)
	assert.Equal(t, "First", merged.Entries[0].Routine.Item.Title)
	assert.Equal(t, "Second", merged.Entries[1].Routine.Item.Title)
	assert.Equal(t, "Third", merged.Entries[2].Task.Title)
}

func TestMergeDoesNotMutateInputs(t *testing.T) {
	item := routineItem("08:00", "Breakfast")
	items := []routine.Item{item}

	Merge(MergeInput{
		Items: items,
		Overlays: map[uuid.UUID]tasks.RoutineItemEdit{
			item.ID: {Time: "09:00", Title: "Changed"},
		},
	})

	assert.Equal(t, "Breakfast", items[0].Title)
	assert.Equal(t, "08:00", items[0].ScheduledTime)
}
