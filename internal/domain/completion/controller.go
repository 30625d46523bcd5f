package completion

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pawday/backend/internal/domain/routine"
	"github.com/pawday/backend/internal/domain/tasks"
	"github.com/pawday/backend/internal/domain/timeline"
	"github.com/pawday/backend/internal/domain/user"
	"go.uber.org/zap"
)

// State of the most recent completion operation for a routine item.
type State string

const (
	StateIdle       State = "idle"
	StateOptimistic State = "optimistic"
	StateConfirmed  State = "confirmed"
	StateRolledBack State = "rolled_back"
)

// Controller mutates completion state. Routine completions are cross-store
// joins, so the controller applies an optimistic local log before the write
// and rolls it back on failure; task completions live on the task document
// itself and go through the normal snapshot-driven path.
type Controller struct {
	session  *timeline.Session
	routines routine.Service
	tasks    tasks.Service
	logger   *zap.Logger

	mu  sync.Mutex
	ops map[uuid.UUID]*operation
}

// operation tracks one item's in-flight completion. seq fences late
// resolutions: a result only lands if no newer operation has started.
type operation struct {
	state State
	seq   uint64
}

func NewController(session *timeline.Session, routines routine.Service, taskSvc tasks.Service, logger *zap.Logger) *Controller {
	return &Controller{
		session:  session,
		routines: routines,
		tasks:    taskSvc,
		logger:   logger,
		ops:      make(map[uuid.UUID]*operation),
	}
}

// StateOf reports the state of the last operation on a routine item.
func (c *Controller) StateOf(routineItemID uuid.UUID) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if op, ok := c.ops[routineItemID]; ok {
		return op.state
	}
	return StateIdle
}

// begin starts a new operation for the item, invalidating any in-flight one.
func (c *Controller) begin(routineItemID uuid.UUID) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	op, ok := c.ops[routineItemID]
	if !ok {
		op = &operation{}
		c.ops[routineItemID] = op
	}
	op.seq++
	op.state = StateOptimistic
	return op.seq
}

// resolve applies a terminal state only if the operation is still current.
func (c *Controller) resolve(routineItemID uuid.UUID, seq uint64, state State) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	op, ok := c.ops[routineItemID]
	if !ok || op.seq != seq {
		return false
	}
	op.state = state
	return true
}

// CompleteRoutineItem applies an optimistic completed log (local display
// name, no avatar yet), then persists the real row. On success the live
// subscription supersedes the optimistic entry with server-confirmed data;
// on failure the pre-completion view is restored and the error returned.
func (c *Controller) CompleteRoutineItem(ctx context.Context, routineItemID, puppyID, userID uuid.UUID, displayName string) error {
	previous, hadPrevious := c.session.Log(routineItemID)
	seq := c.begin(routineItemID)

	now := time.Now().UTC()
	completedBy := userID
	name := displayName
	c.session.SetLocalLog(routine.LogWithProfile{
		Log: routine.Log{
			ID:            uuid.New(),
			RoutineItemID: routineItemID,
			PuppyID:       puppyID,
			Date:          routine.Today(),
			Status:        routine.StatusCompleted,
			CompletedBy:   &completedBy,
			CompletedAt:   &now,
		},
		CompleterProfile: &user.CompleterProfile{DisplayName: &name},
	})

	_, err := c.routines.UpsertLog(ctx, routine.UpsertLogInput{
		RoutineItemID: routineItemID,
		PuppyID:       puppyID,
		Status:        routine.StatusCompleted,
		CompletedBy:   userID,
	})
	if err != nil {
		if c.resolve(routineItemID, seq, StateRolledBack) {
			if hadPrevious {
				c.session.SetLocalLog(previous)
			} else {
				c.session.RemoveLocalLog(routineItemID)
			}
		}
		c.logger.Error("Completion rolled back",
			zap.String("routine_item_id", routineItemID.String()),
			zap.Error(err))
		return err
	}

	c.resolve(routineItemID, seq, StateConfirmed)
	return nil
}

// SkipRoutineItem records a skipped status. Skips are not on the hot tap
// path, so the write goes through without an optimistic layer.
func (c *Controller) SkipRoutineItem(ctx context.Context, routineItemID, puppyID, userID uuid.UUID, note *string) error {
	_, err := c.routines.UpsertLog(ctx, routine.UpsertLogInput{
		RoutineItemID: routineItemID,
		PuppyID:       puppyID,
		Status:        routine.StatusSkipped,
		CompletedBy:   userID,
		Note:          note,
	})
	return err
}

// UndoRoutineItem removes the completion optimistically, then deletes the
// persisted row. The previous log is held as a one-step undo buffer and
// restored verbatim if the delete fails.
func (c *Controller) UndoRoutineItem(ctx context.Context, routineItemID, puppyID uuid.UUID) error {
	previous, hadPrevious := c.session.Log(routineItemID)
	seq := c.begin(routineItemID)

	c.session.RemoveLocalLog(routineItemID)

	if _, err := c.routines.DeleteLog(ctx, routineItemID, puppyID); err != nil {
		if c.resolve(routineItemID, seq, StateRolledBack) && hadPrevious {
			c.session.SetLocalLog(previous)
		}
		c.logger.Error("Undo rolled back",
			zap.String("routine_item_id", routineItemID.String()),
			zap.Error(err))
		return err
	}

	c.resolve(routineItemID, seq, StateConfirmed)
	return nil
}

// CompleteTask marks an ad hoc task completed. The task document is its own
// source of truth; the snapshot subscription drives the view.
func (c *Controller) CompleteTask(ctx context.Context, puppyID uuid.UUID, taskID string, userID uuid.UUID) error {
	_, err := c.tasks.SetTaskCompletion(ctx, puppyID, taskID, true, userID)
	return err
}

// UncompleteTask clears an ad hoc task's completion.
func (c *Controller) UncompleteTask(ctx context.Context, puppyID uuid.UUID, taskID string, userID uuid.UUID) error {
	_, err := c.tasks.SetTaskCompletion(ctx, puppyID, taskID, false, userID)
	return err
}
