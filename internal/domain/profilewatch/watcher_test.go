package profilewatch

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/pawday/backend/internal/domain/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type change struct {
	userID      uuid.UUID
	displayName string
	avatarURL   string
}

func payload(t *testing.T, event events.ProfileEvent) []byte {
	t.Helper()
	raw, err := json.Marshal(event)
	require.NoError(t, err)
	return raw
}

func TestWatcherDeliversWatchedChangesOnly(t *testing.T) {
	var changes []change
	watcher := NewWatcher(nil, func(userID uuid.UUID, displayName, avatarURL string) {
		changes = append(changes, change{userID, displayName, avatarURL})
	}, zap.NewNop())

	watched := uuid.New()
	stranger := uuid.New()
	watcher.SetWatchedUsers([]uuid.UUID{watched})

	watcher.handle(payload(t, events.ProfileEvent{
		UserID:      stranger,
		DisplayName: "Stranger",
		AvatarURL:   "https://cdn.example.com/stranger.png",
	}))
	assert.Empty(t, changes, "changes outside the watched set are dropped")

	watcher.handle(payload(t, events.ProfileEvent{
		UserID:      watched,
		DisplayName: "Alex",
		AvatarURL:   "https://cdn.example.com/alex.png",
	}))
	require.Len(t, changes, 1)
	assert.Equal(t, watched, changes[0].userID)
	assert.Equal(t, "Alex", changes[0].displayName)
	assert.Equal(t, "https://cdn.example.com/alex.png", changes[0].avatarURL)
}

func TestWatcherFollowsSetChanges(t *testing.T) {
	var changes []change
	watcher := NewWatcher(nil, func(userID uuid.UUID, displayName, avatarURL string) {
		changes = append(changes, change{userID, displayName, avatarURL})
	}, zap.NewNop())

	first := uuid.New()
	second := uuid.New()

	watcher.SetWatchedUsers([]uuid.UUID{first})
	assert.True(t, watcher.Watching(first))
	assert.False(t, watcher.Watching(second))

	// A new completer appears, the old one's log was undone.
	watcher.SetWatchedUsers([]uuid.UUID{second})
	assert.False(t, watcher.Watching(first))
	assert.True(t, watcher.Watching(second))

	watcher.handle(payload(t, events.ProfileEvent{UserID: first, DisplayName: "Old"}))
	assert.Empty(t, changes, "removed users stop producing patches immediately")
}

func TestWatcherIgnoresMalformedPayloads(t *testing.T) {
	called := false
	watcher := NewWatcher(nil, func(uuid.UUID, string, string) { called = true }, zap.NewNop())
	watcher.SetWatchedUsers([]uuid.UUID{uuid.New()})

	watcher.handle([]byte("not json"))
	assert.False(t, called)
}

func TestWatcherCloseBeforeStartIsSafe(t *testing.T) {
	watcher := NewWatcher(nil, func(uuid.UUID, string, string) {}, zap.NewNop())
	watcher.Close()
	watcher.Close()
}
