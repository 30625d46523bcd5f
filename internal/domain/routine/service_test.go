package routine

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/pawday/backend/internal/domain/user"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockRepo struct {
	deactivated  []uuid.UUID
	created      *Routine
	createdItems []Item
	active       *RoutineWithItems
	activeErr    error
	logs         []Log
	item         *Item
	enabledCalls map[uuid.UUID]bool
}

func newMockRepo() *mockRepo {
	return &mockRepo{enabledCalls: make(map[uuid.UUID]bool)}
}

func (m *mockRepo) CreateRoutine(_ context.Context, r *Routine, items []Item) error {
	for i := range items {
		items[i].RoutineID = r.ID
	}
	m.created = r
	m.createdItems = items
	return nil
}

func (m *mockRepo) DeactivateRoutines(_ context.Context, puppyID uuid.UUID) error {
	m.deactivated = append(m.deactivated, puppyID)
	return nil
}

func (m *mockRepo) FindActiveRoutine(_ context.Context, _ uuid.UUID) (*RoutineWithItems, error) {
	if m.activeErr != nil {
		return nil, m.activeErr
	}
	return m.active, nil
}

func (m *mockRepo) FindItem(_ context.Context, _ uuid.UUID) (*Item, error) {
	if m.item == nil {
		return nil, ErrItemNotFound
	}
	return m.item, nil
}

func (m *mockRepo) SetItemEnabled(_ context.Context, itemID uuid.UUID, enabled bool) error {
	m.enabledCalls[itemID] = enabled
	return nil
}

func (m *mockRepo) UpsertLog(_ context.Context, log *Log) error {
	m.logs = append(m.logs, *log)
	return nil
}

func (m *mockRepo) DeleteLog(_ context.Context, routineItemID uuid.UUID, date string) (*Log, error) {
	for i, l := range m.logs {
		if l.RoutineItemID == routineItemID && l.Date == date {
			deleted := l
			m.logs = append(m.logs[:i], m.logs[i+1:]...)
			return &deleted, nil
		}
	}
	return nil, ErrLogNotFound
}

func (m *mockRepo) FindLogs(_ context.Context, puppyID uuid.UUID, date string) ([]Log, error) {
	var out []Log
	for _, l := range m.logs {
		if l.PuppyID == puppyID && l.Date == date {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *mockRepo) FindLogsInRange(_ context.Context, puppyID uuid.UUID, startDate, endDate string) ([]Log, error) {
	var out []Log
	for _, l := range m.logs {
		if l.PuppyID == puppyID && l.Date >= startDate && l.Date <= endDate {
			out = append(out, l)
		}
	}
	return out, nil
}

type mockProfiles struct {
	profiles map[uuid.UUID]user.CompleterProfile
	err      error
}

func (m *mockProfiles) GetProfile(context.Context, uuid.UUID) (*user.Profile, error) {
	return nil, user.ErrProfileNotFound
}

func (m *mockProfiles) UpdateProfile(context.Context, uuid.UUID, user.UpdateProfileInput) (*user.Profile, error) {
	return nil, user.ErrProfileNotFound
}

func (m *mockProfiles) GetCompleterProfiles(context.Context, []uuid.UUID) (map[uuid.UUID]user.CompleterProfile, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.profiles, nil
}

func newTestService(repo Repository, profiles user.Service) Service {
	return NewService(repo, profiles, nil, zap.NewNop())
}

func TestSaveRoutineRejectsEmptyItemList(t *testing.T) {
	svc := newTestService(newMockRepo(), &mockProfiles{})

	_, err := svc.SaveRoutine(context.Background(), uuid.New(), "ai_generated", nil)

	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestSaveRoutineReplacesActiveRoutine(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo, &mockProfiles{})
	puppyID := uuid.New()

	saved, err := svc.SaveRoutine(context.Background(), puppyID, "", []ItemInput{
		{ActivityType: "meal", Title: "Breakfast", ScheduledTime: "07:00", SortOrder: 0},
		{ActivityType: "walk", Title: "Morning walk", ScheduledTime: "07:30", SortOrder: 1},
	})

	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{puppyID}, repo.deactivated, "previous routines must be deactivated first")
	assert.Equal(t, "ai_generated", saved.Routine.Source, "empty source defaults to ai_generated")
	require.Len(t, saved.Items, 2)
	for _, item := range saved.Items {
		assert.Equal(t, saved.Routine.ID, item.RoutineID)
		assert.True(t, item.IsEnabled)
	}
}

func TestToggleItemPersistsEnabledFlag(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo, &mockProfiles{})
	itemID := uuid.New()

	require.NoError(t, svc.ToggleItem(context.Background(), itemID, false))

	enabled, ok := repo.enabledCalls[itemID]
	require.True(t, ok)
	assert.False(t, enabled)
}

func TestUpsertLogRejectsUnknownStatus(t *testing.T) {
	svc := newTestService(newMockRepo(), &mockProfiles{})

	_, err := svc.UpsertLog(context.Background(), UpsertLogInput{
		RoutineItemID: uuid.New(),
		PuppyID:       uuid.New(),
		Status:        "done",
		CompletedBy:   uuid.New(),
	})

	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestGetTodayLogsAttachesCompleterProfiles(t *testing.T) {
	repo := newMockRepo()
	puppyID := uuid.New()
	completer := uuid.New()
	repo.logs = []Log{{
		ID:            uuid.New(),
		RoutineItemID: uuid.New(),
		PuppyID:       puppyID,
		Date:          Today(),
		Status:        StatusCompleted,
		CompletedBy:   &completer,
	}}
	name := "Alex"
	svc := newTestService(repo, &mockProfiles{profiles: map[uuid.UUID]user.CompleterProfile{
		completer: {DisplayName: &name},
	}})

	logs, err := svc.GetTodayLogs(context.Background(), puppyID)

	require.NoError(t, err)
	require.Len(t, logs, 1)
	require.NotNil(t, logs[0].CompleterProfile)
	assert.Equal(t, "Alex", *logs[0].CompleterProfile.DisplayName)
}

func TestGetTodayLogsSurvivesProfileLookupFailure(t *testing.T) {
	repo := newMockRepo()
	puppyID := uuid.New()
	completer := uuid.New()
	repo.logs = []Log{{
		ID:            uuid.New(),
		RoutineItemID: uuid.New(),
		PuppyID:       puppyID,
		Date:          Today(),
		Status:        StatusCompleted,
		CompletedBy:   &completer,
	}}
	svc := newTestService(repo, &mockProfiles{err: errors.New("profile store down")})

	logs, err := svc.GetTodayLogs(context.Background(), puppyID)

	require.NoError(t, err, "a failed profile read must not hide the logs")
	require.Len(t, logs, 1)
	assert.Nil(t, logs[0].CompleterProfile)
}

func TestGetLogsInRangeFiltersByDate(t *testing.T) {
	repo := newMockRepo()
	puppyID := uuid.New()
	for _, date := range []string{"2026-08-27", "2026-08-28", "2026-08-29"} {
		repo.logs = append(repo.logs, Log{
			ID:            uuid.New(),
			RoutineItemID: uuid.New(),
			PuppyID:       puppyID,
			Date:          date,
			Status:        StatusCompleted,
		})
	}
	svc := newTestService(repo, &mockProfiles{})

	logs, err := svc.GetLogsInRange(context.Background(), puppyID, "2026-08-28", "2026-08-29")

	require.NoError(t, err)
	assert.Len(t, logs, 2)
}
