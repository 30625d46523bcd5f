package profilewatch

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/pawday/backend/internal/domain/events"
	"github.com/pawday/backend/internal/infrastructure/cache"
	"go.uber.org/zap"
)

// ChangeFunc receives a profile update for a watched user.
type ChangeFunc func(userID uuid.UUID, displayName, avatarURL string)

// Watcher keeps completer avatars and display names fresh. It holds one
// live subscription to profile changes and delivers only the changes for
// the users currently in the watched set, which the owner updates whenever
// the set of completers changes. This avoids re-querying profiles on every
// timeline recompute.
type Watcher struct {
	bus      *cache.Client
	logger   *zap.Logger
	onChange ChangeFunc

	mu      sync.Mutex
	watched map[uuid.UUID]bool
	unsub   func()
	started bool
}

func NewWatcher(bus *cache.Client, onChange ChangeFunc, logger *zap.Logger) *Watcher {
	return &Watcher{
		bus:      bus,
		logger:   logger,
		onChange: onChange,
		watched:  make(map[uuid.UUID]bool),
	}
}

// Start establishes the profile subscription. Changes for users outside the
// watched set are dropped.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return nil
	}
	w.started = true
	w.mu.Unlock()

	unsub, err := w.bus.Subscribe(ctx, events.ProfileChannel, w.handle)
	if err != nil {
		w.mu.Lock()
		w.started = false
		w.mu.Unlock()
		return err
	}

	w.mu.Lock()
	w.unsub = unsub
	w.mu.Unlock()
	return nil
}

func (w *Watcher) handle(payload []byte) {
	var event events.ProfileEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		w.logger.Error("Failed to decode profile event", zap.Error(err))
		return
	}
	if !w.Watching(event.UserID) {
		return
	}
	w.mu.Lock()
	fn := w.onChange
	w.mu.Unlock()
	if fn != nil {
		fn(event.UserID, event.DisplayName, event.AvatarURL)
	}
}

// OnChange replaces the delivery callback. Useful when the watcher must be
// constructed before the component its changes feed into.
func (w *Watcher) OnChange(fn ChangeFunc) {
	w.mu.Lock()
	w.onChange = fn
	w.mu.Unlock()
}

// SetWatchedUsers replaces the watched set. Call on every completer-set
// change; a user removed here stops producing patches immediately.
func (w *Watcher) SetWatchedUsers(ids []uuid.UUID) {
	next := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		next[id] = true
	}
	w.mu.Lock()
	w.watched = next
	w.mu.Unlock()
}

// Watching reports whether a user's profile changes are currently delivered.
func (w *Watcher) Watching(userID uuid.UUID) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.watched[userID]
}

// Close releases the subscription. Safe to call before Start or twice.
func (w *Watcher) Close() {
	w.mu.Lock()
	unsub := w.unsub
	w.unsub = nil
	w.started = false
	w.mu.Unlock()

	if unsub != nil {
		unsub()
	}
}
