package timeline

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pawday/backend/internal/domain/routine"
	"github.com/pawday/backend/internal/domain/tasks"
	"github.com/pawday/backend/internal/domain/user"
	"go.uber.org/zap"
)

// Sink receives every recomputed timeline.
type Sink func(Timeline)

// ErrorSink receives subscription failures. A failed subscription is a
// distinct state from an empty timeline so consumers can tell "no tasks
// today" apart from "couldn't load tasks".
type ErrorSink func(err error)

// Session drives one puppy's live timeline. It performs a single static read
// of the active routine (the schedule is immutable after generation), holds
// four live subscriptions (completion logs, tasks, tombstones, overlays),
// and recomputes the merged timeline on every delivery. All recomputes are
// serialized; the sink is the only output path.
type Session struct {
	puppyID  uuid.UUID
	routines routine.Service
	store    tasks.Store
	logger   *zap.Logger
	sink     Sink
	onError  ErrorSink
	clock    func() time.Time

	mu         sync.Mutex
	deliverSeq uint64
	date       string
	items      []routine.Item
	logs       map[uuid.UUID]routine.LogWithProfile
	tombstones map[uuid.UUID]tasks.RoutineItemDeletion
	overlays   map[uuid.UUID]tasks.RoutineItemEdit
	taskList   []tasks.Task
	unsubs     []func()
	closed     bool

	// deliverMu serializes sink calls so an older merged frame can never
	// land after a newer one when deliveries race.
	deliverMu sync.Mutex
}

// NewSession reads the initial state, wires the subscriptions and pushes a
// first timeline to the sink. Call Close to release the subscriptions.
func NewSession(ctx context.Context, puppyID uuid.UUID, routines routine.Service, store tasks.Store, sink Sink, onError ErrorSink, logger *zap.Logger) (*Session, error) {
	s := &Session{
		puppyID:    puppyID,
		routines:   routines,
		store:      store,
		logger:     logger,
		sink:       sink,
		onError:    onError,
		clock:      time.Now,
		date:       routine.Today(),
		logs:       make(map[uuid.UUID]routine.LogWithProfile),
		tombstones: make(map[uuid.UUID]tasks.RoutineItemDeletion),
		overlays:   make(map[uuid.UUID]tasks.RoutineItemEdit),
	}

	if err := s.loadRoutine(ctx); err != nil {
		return nil, err
	}
	if err := s.loadLogs(ctx); err != nil {
		return nil, err
	}
	if err := s.subscribeAll(ctx); err != nil {
		s.Close()
		return nil, err
	}

	s.recompute()
	return s, nil
}

func (s *Session) loadRoutine(ctx context.Context) error {
	active, err := s.routines.GetActiveRoutine(ctx, s.puppyID)
	if err != nil {
		if err == routine.ErrRoutineNotFound {
			// No routine yet is an empty timeline, not a failure.
			s.mu.Lock()
			s.items = nil
			s.mu.Unlock()
			return nil
		}
		return err
	}

	items := make([]routine.Item, 0, len(active.Items))
	for _, item := range active.Items {
		if item.IsEnabled {
			items = append(items, item)
		}
	}
	s.mu.Lock()
	s.items = items
	s.mu.Unlock()
	return nil
}

func (s *Session) loadLogs(ctx context.Context) error {
	logs, err := s.routines.GetTodayLogs(ctx, s.puppyID)
	if err != nil {
		return err
	}
	m := make(map[uuid.UUID]routine.LogWithProfile, len(logs))
	for _, log := range logs {
		m[log.RoutineItemID] = log
	}
	s.mu.Lock()
	s.logs = m
	s.mu.Unlock()
	return nil
}

func (s *Session) subscribeAll(ctx context.Context) error {
	unsubLogs, err := s.routines.SubscribeLogs(ctx, s.puppyID,
		func(log routine.LogWithProfile) {
			s.mu.Lock()
			s.logs[log.RoutineItemID] = log
			s.mu.Unlock()
			s.recompute()
		},
		func(routineItemID uuid.UUID) {
			s.mu.Lock()
			delete(s.logs, routineItemID)
			s.mu.Unlock()
			s.recompute()
		})
	if err != nil {
		return err
	}
	s.unsubs = append(s.unsubs, unsubLogs)

	forward := func(err error) {
		s.logger.Error("Timeline subscription failed",
			zap.String("puppy_id", s.puppyID.String()),
			zap.Error(err))
		if s.onError != nil {
			s.onError(err)
		}
	}

	unsubTasks, err := s.store.SubscribeTasks(ctx, s.puppyID, s.date, func(list []tasks.Task) {
		s.mu.Lock()
		s.taskList = list
		s.mu.Unlock()
		s.recompute()
	}, forward)
	if err != nil {
		return err
	}
	s.unsubs = append(s.unsubs, unsubTasks)

	unsubDeletions, err := s.store.SubscribeDeletions(ctx, s.puppyID, s.date, func(set map[uuid.UUID]tasks.RoutineItemDeletion) {
		s.mu.Lock()
		s.tombstones = set
		s.mu.Unlock()
		s.recompute()
	}, forward)
	if err != nil {
		return err
	}
	s.unsubs = append(s.unsubs, unsubDeletions)

	unsubEdits, err := s.store.SubscribeEdits(ctx, s.puppyID, s.date, func(set map[uuid.UUID]tasks.RoutineItemEdit) {
		s.mu.Lock()
		s.overlays = set
		s.mu.Unlock()
		s.recompute()
	}, forward)
	if err != nil {
		return err
	}
	s.unsubs = append(s.unsubs, unsubEdits)

	return nil
}

// recompute merges the current snapshot state and pushes the result. The
// merge is a function of state alone, so it stays correct for any
// interleaving of subscription deliveries.
func (s *Session) recompute() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.deliverSeq++
	seq := s.deliverSeq
	now := s.clock()
	merged := Merge(MergeInput{
		Items:      s.items,
		Tombstones: s.tombstones,
		Overlays:   s.overlays,
		Logs:       s.logs,
		Tasks:      s.taskList,
		NowMinutes: now.Hour()*60 + now.Minute(),
	})
	sink := s.sink
	s.mu.Unlock()

	if sink == nil {
		return
	}

	// Deliver only if no newer recompute has started. A newer one either
	// already delivered (this frame is stale, drop it) or is queued behind
	// deliverMu and will deliver its fresher frame right after.
	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()
	s.mu.Lock()
	current := seq == s.deliverSeq
	s.mu.Unlock()
	if current {
		sink(merged)
	}
}

// Log returns the current completion log for a routine item, if any. Used
// by the completion controller to capture its one-step undo buffer.
func (s *Session) Log(routineItemID uuid.UUID) (routine.LogWithProfile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	log, ok := s.logs[routineItemID]
	return log, ok
}

// SetLocalLog installs a log entry directly into session state and
// recomputes. This is the optimistic path: the entry will be superseded by
// the live subscription once the server confirms, or removed on rollback.
func (s *Session) SetLocalLog(log routine.LogWithProfile) {
	s.mu.Lock()
	s.logs[log.RoutineItemID] = log
	s.mu.Unlock()
	s.recompute()
}

// RemoveLocalLog drops a log entry from session state and recomputes.
func (s *Session) RemoveLocalLog(routineItemID uuid.UUID) {
	s.mu.Lock()
	delete(s.logs, routineItemID)
	s.mu.Unlock()
	s.recompute()
}

// CompleterIDs returns the distinct users who completed something today.
// The profile watcher scopes its subscription to exactly this set.
func (s *Session) CompleterIDs() []uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[uuid.UUID]bool)
	var ids []uuid.UUID
	for _, log := range s.logs {
		if log.CompletedBy != nil && !seen[*log.CompletedBy] {
			seen[*log.CompletedBy] = true
			ids = append(ids, *log.CompletedBy)
		}
	}
	return ids
}

// PatchCompleterProfile refreshes the completer display data on every log
// entry the user completed, in place, without reloading the log map.
func (s *Session) PatchCompleterProfile(userID uuid.UUID, displayName, avatarURL string) {
	s.mu.Lock()
	changed := false
	for id, log := range s.logs {
		if log.CompletedBy == nil || *log.CompletedBy != userID {
			continue
		}
		name := displayName
		url := avatarURL
		log.CompleterProfile = &user.CompleterProfile{DisplayName: &name, AvatarURL: &url}
		s.logs[id] = log
		changed = true
	}
	s.mu.Unlock()

	if changed {
		s.recompute()
	}
}

// PuppyID identifies whose timeline this session drives.
func (s *Session) PuppyID() uuid.UUID {
	return s.puppyID
}

// Date is the day this session's subscriptions are scoped to.
func (s *Session) Date() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.date
}

// Refresh repeats the static reads and pushes a fresh merged timeline. Used
// after connectivity is restored, when subscription gaps may have been missed.
func (s *Session) Refresh(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	if err := s.loadRoutine(ctx); err != nil {
		return err
	}
	if err := s.loadLogs(ctx); err != nil {
		return err
	}
	s.recompute()
	return nil
}

// Rollover re-scopes the session to the current day. Document subscriptions
// carry the date in their collection scope, so they are torn down and
// re-established; the routine static read is repeated in case a new routine
// was generated. No-op when the date has not changed.
func (s *Session) Rollover(ctx context.Context) error {
	s.mu.Lock()
	if s.closed || s.date == routine.Today() {
		s.mu.Unlock()
		return nil
	}
	s.date = routine.Today()
	unsubs := s.unsubs
	s.unsubs = nil
	s.logs = make(map[uuid.UUID]routine.LogWithProfile)
	s.tombstones = make(map[uuid.UUID]tasks.RoutineItemDeletion)
	s.overlays = make(map[uuid.UUID]tasks.RoutineItemEdit)
	s.taskList = nil
	s.mu.Unlock()

	for _, unsub := range unsubs {
		unsub()
	}

	if err := s.loadRoutine(ctx); err != nil {
		return err
	}
	if err := s.loadLogs(ctx); err != nil {
		return err
	}
	if err := s.subscribeAll(ctx); err != nil {
		// subscribeAll may have established some subscriptions before
		// failing; release them so none outlive the session.
		s.mu.Lock()
		partial := s.unsubs
		s.unsubs = nil
		s.mu.Unlock()
		for _, unsub := range partial {
			unsub()
		}
		return err
	}

	s.recompute()
	return nil
}

// Close releases all live subscriptions. Safe to call more than once.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	unsubs := s.unsubs
	s.unsubs = nil
	s.mu.Unlock()

	for _, unsub := range unsubs {
		unsub()
	}
}
