package timeline

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/pawday/backend/internal/domain/routine"
	"github.com/pawday/backend/internal/domain/tasks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// mockRoutines serves a fixed routine and lets tests fire log callbacks.
type mockRoutines struct {
	items    []routine.Item
	logs     []routine.LogWithProfile
	onUpsert func(routine.LogWithProfile)
	onDelete func(uuid.UUID)
}

func (m *mockRoutines) SaveRoutine(ctx context.Context, puppyID uuid.UUID, source string, items []routine.ItemInput) (*routine.RoutineWithItems, error) {
	return nil, nil
}

func (m *mockRoutines) GetActiveRoutine(ctx context.Context, puppyID uuid.UUID) (*routine.RoutineWithItems, error) {
	if m.items == nil {
		return nil, routine.ErrRoutineNotFound
	}
	return &routine.RoutineWithItems{Items: m.items}, nil
}

func (m *mockRoutines) ToggleItem(ctx context.Context, itemID uuid.UUID, enabled bool) error {
	return nil
}

func (m *mockRoutines) GetItem(ctx context.Context, itemID uuid.UUID) (*routine.Item, error) {
	return nil, routine.ErrItemNotFound
}

func (m *mockRoutines) GetTodayLogs(ctx context.Context, puppyID uuid.UUID) ([]routine.LogWithProfile, error) {
	return m.logs, nil
}

func (m *mockRoutines) GetLogsInRange(ctx context.Context, puppyID uuid.UUID, startDate, endDate string) ([]routine.Log, error) {
	return nil, nil
}

func (m *mockRoutines) UpsertLog(ctx context.Context, input routine.UpsertLogInput) (*routine.LogWithProfile, error) {
	return nil, nil
}

func (m *mockRoutines) DeleteLog(ctx context.Context, routineItemID, puppyID uuid.UUID) (*routine.Log, error) {
	return nil, nil
}

func (m *mockRoutines) SubscribeLogs(ctx context.Context, puppyID uuid.UUID, onUpsert func(routine.LogWithProfile), onDelete func(uuid.UUID)) (func(), error) {
	m.onUpsert = onUpsert
	m.onDelete = onDelete
	return func() {}, nil
}

// mockDocs delivers empty initial snapshots and exposes the snapshot
// callbacks so tests can push new state.
type mockDocs struct {
	onTasks     func([]tasks.Task)
	onDeletions func(map[uuid.UUID]tasks.RoutineItemDeletion)
	onEdits     func(map[uuid.UUID]tasks.RoutineItemEdit)
	editsErr    error
	unsubCount  int
}

func (m *mockDocs) GetTasks(ctx context.Context, puppyID uuid.UUID, date string) ([]tasks.Task, error) {
	return nil, nil
}

func (m *mockDocs) GetDeletions(ctx context.Context, puppyID uuid.UUID, date string) (map[uuid.UUID]tasks.RoutineItemDeletion, error) {
	return nil, nil
}

func (m *mockDocs) GetEdits(ctx context.Context, puppyID uuid.UUID, date string) (map[uuid.UUID]tasks.RoutineItemEdit, error) {
	return nil, nil
}

func (m *mockDocs) GetTask(ctx context.Context, puppyID uuid.UUID, date, taskID string) (*tasks.Task, error) {
	return nil, nil
}

func (m *mockDocs) PutTask(ctx context.Context, task *tasks.Task) error { return nil }

func (m *mockDocs) RemoveTask(ctx context.Context, puppyID uuid.UUID, date, taskID string) error {
	return nil
}

func (m *mockDocs) PutDeletion(ctx context.Context, puppyID, routineItemID uuid.UUID, date string, deletion *tasks.RoutineItemDeletion) error {
	return nil
}

func (m *mockDocs) PutEdit(ctx context.Context, puppyID, routineItemID uuid.UUID, date string, edit *tasks.RoutineItemEdit) error {
	return nil
}

func (m *mockDocs) SubscribeTasks(ctx context.Context, puppyID uuid.UUID, date string, onSnapshot func([]tasks.Task), onError func(error)) (func(), error) {
	m.onTasks = onSnapshot
	onSnapshot(nil)
	return func() { m.unsubCount++ }, nil
}

func (m *mockDocs) SubscribeDeletions(ctx context.Context, puppyID uuid.UUID, date string, onSnapshot func(map[uuid.UUID]tasks.RoutineItemDeletion), onError func(error)) (func(), error) {
	m.onDeletions = onSnapshot
	onSnapshot(nil)
	return func() { m.unsubCount++ }, nil
}

func (m *mockDocs) SubscribeEdits(ctx context.Context, puppyID uuid.UUID, date string, onSnapshot func(map[uuid.UUID]tasks.RoutineItemEdit), onError func(error)) (func(), error) {
	if m.editsErr != nil {
		return nil, m.editsErr
	}
	m.onEdits = onSnapshot
	onSnapshot(nil)
	return func() { m.unsubCount++ }, nil
}

// recorder collects every timeline pushed to the sink.
type recorder struct {
	mu        sync.Mutex
	timelines []Timeline
}

func (r *recorder) sink(tl Timeline) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.timelines = append(r.timelines, tl)
}

func (r *recorder) latest() Timeline {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.timelines) == 0 {
		return Timeline{}
	}
	return r.timelines[len(r.timelines)-1]
}

func newTestSession(t *testing.T, routines *mockRoutines, docs *mockDocs) (*Session, *recorder) {
	t.Helper()
	rec := &recorder{}
	session, err := NewSession(context.Background(), uuid.New(), routines, docs, rec.sink, nil, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(session.Close)
	return session, rec
}

func TestSessionDeliversInitialTimeline(t *testing.T) {
	item := routineItem("07:00", "Breakfast")
	routines := &mockRoutines{items: []routine.Item{item}}
	_, rec := newTestSession(t, routines, &mockDocs{})

	tl := rec.latest()
	require.Len(t, tl.Entries, 1)
	assert.Equal(t, "Breakfast", tl.Entries[0].Routine.Item.Title)
}

func TestSessionSkipsDisabledItems(t *testing.T) {
	enabled := routineItem("07:00", "Breakfast")
	disabled := routineItem("12:00", "Lunch")
	disabled.IsEnabled = false
	routines := &mockRoutines{items: []routine.Item{enabled, disabled}}
	_, rec := newTestSession(t, routines, &mockDocs{})

	tl := rec.latest()
	require.Len(t, tl.Entries, 1)
	assert.Equal(t, "Breakfast", tl.Entries[0].Routine.Item.Title)
}

func TestSessionWithoutRoutineIsEmptyNotError(t *testing.T) {
	_, rec := newTestSession(t, &mockRoutines{}, &mockDocs{})
	assert.Empty(t, rec.latest().Entries)
}

func TestSessionRecomputesOnLogDelivery(t *testing.T) {
	item := routineItem("07:00", "Breakfast")
	routines := &mockRoutines{items: []routine.Item{item}}
	_, rec := newTestSession(t, routines, &mockDocs{})

	routines.onUpsert(completedLog(item.ID))
	tl := rec.latest()
	assert.Equal(t, 1, tl.Stats.CompletedCount)

	routines.onDelete(item.ID)
	tl = rec.latest()
	assert.Equal(t, 0, tl.Stats.CompletedCount)
	assert.Nil(t, tl.Entries[0].Routine.Log)
}

func TestSessionRecomputesOnTombstoneSnapshot(t *testing.T) {
	item := routineItem("07:00", "Breakfast")
	routines := &mockRoutines{items: []routine.Item{item}}
	docs := &mockDocs{}
	_, rec := newTestSession(t, routines, docs)

	docs.onDeletions(map[uuid.UUID]tasks.RoutineItemDeletion{
		item.ID: {DeletedBy: uuid.New()},
	})
	assert.Empty(t, rec.latest().Entries)
}

func TestSessionRecomputesOnTaskSnapshot(t *testing.T) {
	routines := &mockRoutines{items: []routine.Item{}}
	docs := &mockDocs{}
	_, rec := newTestSession(t, routines, docs)

	docs.onTasks([]tasks.Task{customTask("09:30", "Vet visit", false)})
	tl := rec.latest()
	require.Len(t, tl.Entries, 1)
	assert.Equal(t, KindCustom, tl.Entries[0].Kind)
}

func TestSessionLocalLogOverlayAndRemoval(t *testing.T) {
	item := routineItem("07:00", "Breakfast")
	routines := &mockRoutines{items: []routine.Item{item}}
	session, rec := newTestSession(t, routines, &mockDocs{})

	_, exists := session.Log(item.ID)
	assert.False(t, exists)

	session.SetLocalLog(completedLog(item.ID))
	assert.Equal(t, 1, rec.latest().Stats.CompletedCount)

	stored, exists := session.Log(item.ID)
	require.True(t, exists)
	assert.Equal(t, routine.StatusCompleted, stored.Status)

	session.RemoveLocalLog(item.ID)
	assert.Equal(t, 0, rec.latest().Stats.CompletedCount)
}

func TestSessionCloseReleasesSubscriptionsOnce(t *testing.T) {
	routines := &mockRoutines{items: []routine.Item{}}
	docs := &mockDocs{}
	session, _ := newTestSession(t, routines, docs)

	session.Close()
	session.Close()
	assert.Equal(t, 3, docs.unsubCount, "each document subscription released exactly once")
}

func TestRecomputeNeverDeliversStaleFrameAfterNewer(t *testing.T) {
	itemA := routineItem("07:00", "Breakfast")
	itemB := routineItem("12:00", "Lunch")
	routines := &mockRoutines{items: []routine.Item{itemA, itemB}}

	var mu sync.Mutex
	var completedCounts []int
	var gated bool
	entered := make(chan struct{})
	release := make(chan struct{})
	sink := func(tl Timeline) {
		mu.Lock()
		gate := tl.Stats.CompletedCount == 1 && !gated
		if gate {
			gated = true
		}
		mu.Unlock()
		if gate {
			// Hold the first SetLocalLog frame open while a newer
			// recompute runs.
			close(entered)
			<-release
		}
		mu.Lock()
		completedCounts = append(completedCounts, tl.Stats.CompletedCount)
		mu.Unlock()
	}

	session, err := NewSession(context.Background(), uuid.New(), routines, &mockDocs{}, sink, nil, zap.NewNop())
	require.NoError(t, err)
	defer session.Close()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		session.SetLocalLog(completedLog(itemA.ID))
	}()
	<-entered
	go func() {
		defer wg.Done()
		session.SetLocalLog(completedLog(itemB.ID))
	}()
	close(release)
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	for i := 1; i < len(completedCounts); i++ {
		assert.GreaterOrEqual(t, completedCounts[i], completedCounts[i-1],
			"a stale frame must never land after a fresher one")
	}
	require.NotEmpty(t, completedCounts)
	assert.Equal(t, 2, completedCounts[len(completedCounts)-1],
		"last delivered frame carries the newest state")
}

func TestRolloverReleasesPartialSubscriptionsOnFailure(t *testing.T) {
	item := routineItem("07:00", "Breakfast")
	routines := &mockRoutines{items: []routine.Item{item}}
	docs := &mockDocs{}
	session, _ := newTestSession(t, routines, docs)

	// Pretend the session was opened yesterday so the rollover runs.
	session.mu.Lock()
	session.date = "2000-01-01"
	session.mu.Unlock()

	docs.editsErr = errors.New("connection reset")
	err := session.Rollover(context.Background())
	require.Error(t, err)

	// The three old document subscriptions plus the two re-established
	// before the failure must all be released.
	assert.Equal(t, 5, docs.unsubCount)

	released := docs.unsubCount
	session.Close()
	assert.Equal(t, released, docs.unsubCount,
		"no subscription may outlive a failed rollover")
}
