package completion

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pawday/backend/internal/domain/routine"
	"github.com/pawday/backend/internal/domain/tasks"
	"github.com/pawday/backend/internal/domain/timeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var errStoreDown = errors.New("store unavailable")

// mockRoutines backs both the session and the controller. Failures and
// blocking are injectable per call.
type mockRoutines struct {
	mu          sync.Mutex
	items       []routine.Item
	upsertErr   error
	deleteErr   error
	upsertGates []chan error
	upsertCalls int
	deleteCalls int
}

func (m *mockRoutines) SaveRoutine(ctx context.Context, puppyID uuid.UUID, source string, items []routine.ItemInput) (*routine.RoutineWithItems, error) {
	return nil, nil
}

func (m *mockRoutines) GetActiveRoutine(ctx context.Context, puppyID uuid.UUID) (*routine.RoutineWithItems, error) {
	return &routine.RoutineWithItems{Items: m.items}, nil
}

func (m *mockRoutines) ToggleItem(ctx context.Context, itemID uuid.UUID, enabled bool) error {
	return nil
}

func (m *mockRoutines) GetItem(ctx context.Context, itemID uuid.UUID) (*routine.Item, error) {
	return nil, routine.ErrItemNotFound
}

func (m *mockRoutines) GetTodayLogs(ctx context.Context, puppyID uuid.UUID) ([]routine.LogWithProfile, error) {
	return nil, nil
}

func (m *mockRoutines) GetLogsInRange(ctx context.Context, puppyID uuid.UUID, startDate, endDate string) ([]routine.Log, error) {
	return nil, nil
}

func (m *mockRoutines) UpsertLog(ctx context.Context, input routine.UpsertLogInput) (*routine.LogWithProfile, error) {
	m.mu.Lock()
	m.upsertCalls++
	var gate chan error
	if len(m.upsertGates) >= m.upsertCalls {
		gate = m.upsertGates[m.upsertCalls-1]
	}
	err := m.upsertErr
	m.mu.Unlock()

	if gate != nil {
		err = <-gate
	}
	if err != nil {
		return nil, err
	}
	return &routine.LogWithProfile{}, nil
}

func (m *mockRoutines) DeleteLog(ctx context.Context, routineItemID, puppyID uuid.UUID) (*routine.Log, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteCalls++
	if m.deleteErr != nil {
		return nil, m.deleteErr
	}
	return &routine.Log{}, nil
}

func (m *mockRoutines) SubscribeLogs(ctx context.Context, puppyID uuid.UUID, onUpsert func(routine.LogWithProfile), onDelete func(uuid.UUID)) (func(), error) {
	return func() {}, nil
}

// mockDocs satisfies the document store with empty snapshots.
type mockDocs struct{}

func (mockDocs) GetTasks(ctx context.Context, puppyID uuid.UUID, date string) ([]tasks.Task, error) {
	return nil, nil
}

func (mockDocs) GetDeletions(ctx context.Context, puppyID uuid.UUID, date string) (map[uuid.UUID]tasks.RoutineItemDeletion, error) {
	return nil, nil
}

func (mockDocs) GetEdits(ctx context.Context, puppyID uuid.UUID, date string) (map[uuid.UUID]tasks.RoutineItemEdit, error) {
	return nil, nil
}

func (mockDocs) GetTask(ctx context.Context, puppyID uuid.UUID, date, taskID string) (*tasks.Task, error) {
	return nil, nil
}

func (mockDocs) PutTask(ctx context.Context, task *tasks.Task) error { return nil }

func (mockDocs) RemoveTask(ctx context.Context, puppyID uuid.UUID, date, taskID string) error {
	return nil
}

func (mockDocs) PutDeletion(ctx context.Context, puppyID, routineItemID uuid.UUID, date string, deletion *tasks.RoutineItemDeletion) error {
	return nil
}

func (mockDocs) PutEdit(ctx context.Context, puppyID, routineItemID uuid.UUID, date string, edit *tasks.RoutineItemEdit) error {
	return nil
}

func (mockDocs) SubscribeTasks(ctx context.Context, puppyID uuid.UUID, date string, onSnapshot func([]tasks.Task), onError func(error)) (func(), error) {
	onSnapshot(nil)
	return func() {}, nil
}

func (mockDocs) SubscribeDeletions(ctx context.Context, puppyID uuid.UUID, date string, onSnapshot func(map[uuid.UUID]tasks.RoutineItemDeletion), onError func(error)) (func(), error) {
	onSnapshot(nil)
	return func() {}, nil
}

func (mockDocs) SubscribeEdits(ctx context.Context, puppyID uuid.UUID, date string, onSnapshot func(map[uuid.UUID]tasks.RoutineItemEdit), onError func(error)) (func(), error) {
	onSnapshot(nil)
	return func() {}, nil
}

type mockTaskService struct {
	completions []bool
	err         error
}

func (m *mockTaskService) AddTask(ctx context.Context, input tasks.AddTaskInput) (*tasks.Task, error) {
	return nil, nil
}

func (m *mockTaskService) SubmitEdit(ctx context.Context, input tasks.EditInput) error { return nil }

func (m *mockTaskService) DeleteTask(ctx context.Context, puppyID uuid.UUID, taskID string) error {
	return nil
}

func (m *mockTaskService) DeleteRoutineItem(ctx context.Context, puppyID, routineItemID, deletedBy uuid.UUID) error {
	return nil
}

func (m *mockTaskService) SetTaskCompletion(ctx context.Context, puppyID uuid.UUID, taskID string, completed bool, userID uuid.UUID) (*tasks.Task, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.completions = append(m.completions, completed)
	return &tasks.Task{ID: taskID, IsCompleted: completed}, nil
}

func newFixture(t *testing.T, routines *mockRoutines) (*Controller, *timeline.Session) {
	t.Helper()
	session, err := timeline.NewSession(context.Background(), uuid.New(), routines, mockDocs{}, func(timeline.Timeline) {}, nil, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(session.Close)
	return NewController(session, routines, &mockTaskService{}, zap.NewNop()), session
}

func TestCompleteRoutineItemConfirms(t *testing.T) {
	item := routine.Item{ID: uuid.New(), ScheduledTime: "07:00", IsEnabled: true}
	routines := &mockRoutines{items: []routine.Item{item}}
	ctrl, session := newFixture(t, routines)

	userID := uuid.New()
	err := ctrl.CompleteRoutineItem(context.Background(), item.ID, uuid.New(), userID, "Alex")
	require.NoError(t, err)

	assert.Equal(t, StateConfirmed, ctrl.StateOf(item.ID))
	log, ok := session.Log(item.ID)
	require.True(t, ok)
	assert.Equal(t, routine.StatusCompleted, log.Status)
	assert.Equal(t, userID, *log.CompletedBy)
	require.NotNil(t, log.CompleterProfile, "optimistic entry carries the local display name")
	assert.Equal(t, "Alex", *log.CompleterProfile.DisplayName)
	assert.Nil(t, log.CompleterProfile.AvatarURL, "avatar resolves only on server confirmation")
}

func TestCompleteRoutineItemRollsBackWhenNew(t *testing.T) {
	item := routine.Item{ID: uuid.New(), ScheduledTime: "07:00", IsEnabled: true}
	routines := &mockRoutines{items: []routine.Item{item}, upsertErr: errStoreDown}
	ctrl, session := newFixture(t, routines)

	err := ctrl.CompleteRoutineItem(context.Background(), item.ID, uuid.New(), uuid.New(), "Alex")
	assert.ErrorIs(t, err, errStoreDown, "failure is reported, not swallowed")

	assert.Equal(t, StateRolledBack, ctrl.StateOf(item.ID))
	_, ok := session.Log(item.ID)
	assert.False(t, ok, "rollback restores the pre-completion view")
}

func TestCompleteRoutineItemRollbackRestoresPreviousLog(t *testing.T) {
	item := routine.Item{ID: uuid.New(), ScheduledTime: "07:00", IsEnabled: true}
	routines := &mockRoutines{items: []routine.Item{item}}
	ctrl, session := newFixture(t, routines)

	completedBy := uuid.New()
	completedAt := time.Date(2026, 8, 30, 7, 5, 0, 0, time.UTC)
	previous := routine.LogWithProfile{
		Log: routine.Log{
			ID:            uuid.New(),
			RoutineItemID: item.ID,
			Status:        routine.StatusCompleted,
			CompletedBy:   &completedBy,
			CompletedAt:   &completedAt,
		},
	}
	session.SetLocalLog(previous)

	routines.mu.Lock()
	routines.upsertErr = errStoreDown
	routines.mu.Unlock()

	err := ctrl.CompleteRoutineItem(context.Background(), item.ID, uuid.New(), uuid.New(), "Sam")
	assert.Error(t, err)

	restored, ok := session.Log(item.ID)
	require.True(t, ok)
	assert.Equal(t, previous, restored, "undo buffer restores the exact prior entry")
}

func TestUndoRoutineItemRemovesLog(t *testing.T) {
	item := routine.Item{ID: uuid.New(), ScheduledTime: "07:00", IsEnabled: true}
	routines := &mockRoutines{items: []routine.Item{item}}
	ctrl, session := newFixture(t, routines)

	require.NoError(t, ctrl.CompleteRoutineItem(context.Background(), item.ID, uuid.New(), uuid.New(), "Alex"))
	require.NoError(t, ctrl.UndoRoutineItem(context.Background(), item.ID, uuid.New()))

	assert.Equal(t, StateConfirmed, ctrl.StateOf(item.ID))
	_, ok := session.Log(item.ID)
	assert.False(t, ok)
	assert.Equal(t, 1, routines.deleteCalls)
}

func TestUndoRoutineItemRollbackRestoresBuffer(t *testing.T) {
	item := routine.Item{ID: uuid.New(), ScheduledTime: "07:00", IsEnabled: true}
	routines := &mockRoutines{items: []routine.Item{item}}
	ctrl, session := newFixture(t, routines)

	require.NoError(t, ctrl.CompleteRoutineItem(context.Background(), item.ID, uuid.New(), uuid.New(), "Alex"))
	before, ok := session.Log(item.ID)
	require.True(t, ok)

	routines.mu.Lock()
	routines.deleteErr = errStoreDown
	routines.mu.Unlock()

	err := ctrl.UndoRoutineItem(context.Background(), item.ID, uuid.New())
	assert.ErrorIs(t, err, errStoreDown)

	restored, ok := session.Log(item.ID)
	require.True(t, ok)
	assert.Equal(t, before, restored)
	assert.Equal(t, StateRolledBack, ctrl.StateOf(item.ID))
}

func TestRecompleteIsIdempotentUpsert(t *testing.T) {
	item := routine.Item{ID: uuid.New(), ScheduledTime: "07:00", IsEnabled: true}
	routines := &mockRoutines{items: []routine.Item{item}}
	ctrl, session := newFixture(t, routines)

	require.NoError(t, ctrl.CompleteRoutineItem(context.Background(), item.ID, uuid.New(), uuid.New(), "Alex"))
	require.NoError(t, ctrl.CompleteRoutineItem(context.Background(), item.ID, uuid.New(), uuid.New(), "Alex"))

	assert.Equal(t, 2, routines.upsertCalls, "re-completion overwrites via upsert, never duplicates")
	_, ok := session.Log(item.ID)
	assert.True(t, ok)
}

func TestLateFailureAfterNewerOperationDoesNotRollBack(t *testing.T) {
	item := routine.Item{ID: uuid.New(), ScheduledTime: "07:00", IsEnabled: true}
	firstGate := make(chan error)
	secondGate := make(chan error)
	routines := &mockRoutines{items: []routine.Item{item}, upsertGates: []chan error{firstGate, secondGate}}
	ctrl, session := newFixture(t, routines)

	waitForUpserts := func(n int) {
		deadline := time.Now().Add(2 * time.Second)
		for time.Now().Before(deadline) {
			routines.mu.Lock()
			calls := routines.upsertCalls
			routines.mu.Unlock()
			if calls >= n {
				return
			}
			time.Sleep(time.Millisecond)
		}
		t.Fatalf("timed out waiting for %d upsert calls", n)
	}

	firstDone := make(chan error)
	go func() {
		firstDone <- ctrl.CompleteRoutineItem(context.Background(), item.ID, uuid.New(), uuid.New(), "Alex")
	}()
	waitForUpserts(1)

	secondDone := make(chan error)
	go func() {
		secondDone <- ctrl.CompleteRoutineItem(context.Background(), item.ID, uuid.New(), uuid.New(), "Sam")
	}()
	waitForUpserts(2)

	// The second attempt confirms, then the first comes back with a stale
	// failure. The stale failure must not disturb the newer confirmed state.
	secondGate <- nil
	require.NoError(t, <-secondDone)
	firstGate <- errStoreDown
	assert.ErrorIs(t, <-firstDone, errStoreDown)

	assert.Equal(t, StateConfirmed, ctrl.StateOf(item.ID))
	log, ok := session.Log(item.ID)
	require.True(t, ok, "a stale failure never removes the newer optimistic entry")
	assert.Equal(t, "Sam", *log.CompleterProfile.DisplayName)
}

func TestTaskCompletionDelegatesDirectly(t *testing.T) {
	item := routine.Item{ID: uuid.New(), ScheduledTime: "07:00", IsEnabled: true}
	routines := &mockRoutines{items: []routine.Item{item}}
	session, err := timeline.NewSession(context.Background(), uuid.New(), routines, mockDocs{}, func(timeline.Timeline) {}, nil, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(session.Close)

	taskSvc := &mockTaskService{}
	ctrl := NewController(session, routines, taskSvc, zap.NewNop())

	require.NoError(t, ctrl.CompleteTask(context.Background(), uuid.New(), uuid.NewString(), uuid.New()))
	require.NoError(t, ctrl.UncompleteTask(context.Background(), uuid.New(), uuid.NewString(), uuid.New()))
	assert.Equal(t, []bool{true, false}, taskSvc.completions)
}
