package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/pawday/backend/internal/api/dto"
	"github.com/pawday/backend/internal/api/middleware"
	"github.com/pawday/backend/internal/domain/completion"
	"github.com/pawday/backend/internal/domain/connectivity"
	"github.com/pawday/backend/internal/domain/profilewatch"
	"github.com/pawday/backend/internal/domain/routine"
	"github.com/pawday/backend/internal/domain/tasks"
	"github.com/pawday/backend/internal/domain/timeline"
	"github.com/pawday/backend/internal/domain/user"
	"github.com/pawday/backend/internal/infrastructure/cache"
	"github.com/pawday/backend/internal/infrastructure/scheduler"
	"go.uber.org/zap"
)

const (
	streamWriteWait  = 10 * time.Second
	streamPongWait   = 60 * time.Second
	streamPingPeriod = 30 * time.Second
	streamReadLimit  = 10 * 1024
	streamSendBuffer = 16
)

var streamUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Auth happens via the JWT middleware before the upgrade.
		return true
	},
}

// TimelineHandler serves the merged daily timeline, both as a one-shot
// snapshot and as a live WebSocket stream.
type TimelineHandler struct {
	routines routine.Service
	store    tasks.Store
	taskSvc  tasks.Service
	users    user.Service
	bus      *cache.Client
	sched    *scheduler.Scheduler
	logger   *zap.Logger
}

// NewTimelineHandler creates a new TimelineHandler instance
func NewTimelineHandler(
	routines routine.Service,
	store tasks.Store,
	taskSvc tasks.Service,
	users user.Service,
	bus *cache.Client,
	sched *scheduler.Scheduler,
	logger *zap.Logger,
) *TimelineHandler {
	return &TimelineHandler{
		routines: routines,
		store:    store,
		taskSvc:  taskSvc,
		users:    users,
		bus:      bus,
		sched:    sched,
		logger:   logger,
	}
}

// GetTimeline assembles the merged timeline once, from current snapshot state.
func (h *TimelineHandler) GetTimeline(c *gin.Context) {
	puppyID, _ := middleware.GetPuppyID(c)
	ctx := c.Request.Context()
	date := routine.Today()

	var items []routine.Item
	active, err := h.routines.GetActiveRoutine(ctx, puppyID)
	if err != nil && !errors.Is(err, routine.ErrRoutineNotFound) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if active != nil {
		for _, item := range active.Items {
			if item.IsEnabled {
				items = append(items, item)
			}
		}
	}

	logRows, err := h.routines.GetTodayLogs(ctx, puppyID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	logs := make(map[uuid.UUID]routine.LogWithProfile, len(logRows))
	for _, row := range logRows {
		logs[row.RoutineItemID] = row
	}

	taskList, err := h.store.GetTasks(ctx, puppyID, date)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	tombstones, err := h.store.GetDeletions(ctx, puppyID, date)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	overlays, err := h.store.GetEdits(ctx, puppyID, date)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	now := time.Now()
	merged := timeline.Merge(timeline.MergeInput{
		Items:      items,
		Tombstones: tombstones,
		Overlays:   overlays,
		Logs:       logs,
		Tasks:      taskList,
		NowMinutes: now.Hour()*60 + now.Minute(),
	})

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"date":    date,
		"entries": merged.Entries,
		"stats":   statsToResponse(merged.Stats),
	}})
}

func statsToResponse(s timeline.Stats) dto.TimelineStatsResponse {
	return dto.TimelineStatsResponse{
		CompletedCount: s.CompletedCount,
		TotalCount:     s.TotalCount,
		Percentage:     s.Percentage,
	}
}

// streamAction is one inbound command frame on the timeline stream.
type streamAction struct {
	Action        string  `json:"action"`
	RoutineItemID string  `json:"routine_item_id,omitempty"`
	TaskID        string  `json:"task_id,omitempty"`
	Note          *string `json:"note,omitempty"`
}

// StreamTimeline upgrades to a WebSocket and pushes a fresh merged snapshot
// on every underlying change until the client disconnects. Inbound frames
// drive completions through the optimistic controller, so a write that fails
// downstream is rolled back in the stream the client is watching.
func (h *TimelineHandler) StreamTimeline(c *gin.Context) {
	puppyID, _ := middleware.GetPuppyID(c)
	userID, exists := middleware.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	displayName := ""
	if profile, err := h.users.GetProfile(c.Request.Context(), userID); err == nil && profile.DisplayName != nil {
		displayName = *profile.DisplayName
	}

	conn, err := streamUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("failed to upgrade timeline stream", zap.Error(err))
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	send := make(chan dto.TimelineMessage, streamSendBuffer)
	var sendMu sync.Mutex
	closed := false
	push := func(msg dto.TimelineMessage) {
		sendMu.Lock()
		defer sendMu.Unlock()
		if closed {
			return
		}
		select {
		case send <- msg:
		default:
			// Slow consumer: drop the frame, the next snapshot supersedes it.
		}
	}
	closeSend := func() {
		sendMu.Lock()
		defer sendMu.Unlock()
		if !closed {
			closed = true
			close(send)
		}
	}

	watcher := profilewatch.NewWatcher(h.bus, nil, h.logger)

	sess, err := timeline.NewSession(ctx, puppyID, h.routines, h.store,
		func(t timeline.Timeline) {
			watcher.SetWatchedUsers(completerIDs(t))
			push(dto.TimelineMessage{
				Type:     "snapshot",
				Timeline: t.Entries,
				Stats:    statsToResponse(t.Stats),
			})
		},
		func(streamErr error) {
			push(dto.TimelineMessage{Type: "error", Error: streamErr.Error()})
		},
		h.logger)
	if err != nil {
		h.logger.Error("failed to open timeline session",
			zap.String("puppy_id", puppyID.String()), zap.Error(err))
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "session unavailable"),
			time.Now().Add(streamWriteWait))
		conn.Close()
		return
	}

	watcher.OnChange(func(completerID uuid.UUID, name, avatarURL string) {
		sess.PatchCompleterProfile(completerID, name, avatarURL)
	})
	if err := watcher.Start(ctx); err != nil {
		h.logger.Warn("profile watcher unavailable for stream",
			zap.String("puppy_id", puppyID.String()), zap.Error(err))
	}

	monitor := connectivity.NewMonitor(h.bus,
		func(snap connectivity.Snapshot) {
			push(dto.TimelineMessage{Type: "connectivity", Connectivity: snap})
		},
		func() {
			if refreshErr := sess.Refresh(ctx); refreshErr != nil {
				h.logger.Warn("timeline refresh after retry failed", zap.Error(refreshErr))
			}
		},
		h.logger)

	controller := completion.NewController(sess, h.routines, h.taskSvc, h.logger)

	removeRollover := h.sched.OnRollover(func(string) {
		if rollErr := sess.Rollover(ctx); rollErr != nil {
			h.logger.Error("timeline rollover failed",
				zap.String("puppy_id", puppyID.String()), zap.Error(rollErr))
		}
	})

	middleware.SessionOpened()
	cleanup := func() {
		removeRollover()
		monitor.Close()
		watcher.Close()
		sess.Close()
		closeSend()
		conn.Close()
		middleware.SessionClosed()
	}

	go h.readStream(ctx, cancel, conn, controller, monitor, puppyID, userID, displayName, push)
	h.writeStream(ctx, conn, send)
	cleanup()
}

// readStream consumes inbound action frames until the connection drops.
func (h *TimelineHandler) readStream(
	ctx context.Context,
	cancel context.CancelFunc,
	conn *websocket.Conn,
	controller *completion.Controller,
	monitor *connectivity.Monitor,
	puppyID, userID uuid.UUID,
	displayName string,
	push func(dto.TimelineMessage),
) {
	defer cancel()

	conn.SetReadLimit(streamReadLimit)
	conn.SetReadDeadline(time.Now().Add(streamPongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(streamPongWait))
		return nil
	})

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("timeline stream closed unexpectedly", zap.Error(err))
			}
			return
		}

		var action streamAction
		if err := json.Unmarshal(payload, &action); err != nil {
			push(dto.TimelineMessage{Type: "error", Error: "malformed action frame"})
			continue
		}

		if err := h.dispatch(ctx, controller, monitor, puppyID, userID, displayName, action); err != nil {
			push(dto.TimelineMessage{Type: "error", Error: err.Error()})
		}
	}
}

func (h *TimelineHandler) dispatch(
	ctx context.Context,
	controller *completion.Controller,
	monitor *connectivity.Monitor,
	puppyID, userID uuid.UUID,
	displayName string,
	action streamAction,
) error {
	switch action.Action {
	case "complete":
		itemID, err := uuid.Parse(action.RoutineItemID)
		if err != nil {
			return errors.New("invalid routine_item_id")
		}
		return controller.CompleteRoutineItem(ctx, itemID, puppyID, userID, displayName)
	case "skip":
		itemID, err := uuid.Parse(action.RoutineItemID)
		if err != nil {
			return errors.New("invalid routine_item_id")
		}
		return controller.SkipRoutineItem(ctx, itemID, puppyID, userID, action.Note)
	case "undo":
		itemID, err := uuid.Parse(action.RoutineItemID)
		if err != nil {
			return errors.New("invalid routine_item_id")
		}
		return controller.UndoRoutineItem(ctx, itemID, puppyID)
	case "complete_task":
		if action.TaskID == "" {
			return errors.New("task_id is required")
		}
		return controller.CompleteTask(ctx, puppyID, action.TaskID, userID)
	case "uncomplete_task":
		if action.TaskID == "" {
			return errors.New("task_id is required")
		}
		return controller.UncompleteTask(ctx, puppyID, action.TaskID, userID)
	case "retry":
		monitor.Retry()
		return nil
	default:
		return errors.New("unknown action: " + action.Action)
	}
}

// writeStream owns all writes on the connection, including pings.
func (h *TimelineHandler) writeStream(ctx context.Context, conn *websocket.Conn, send <-chan dto.TimelineMessage) {
	ticker := time.NewTicker(streamPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case msg, ok := <-send:
			if !ok {
				conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func completerIDs(t timeline.Timeline) []uuid.UUID {
	seen := make(map[uuid.UUID]bool)
	var ids []uuid.UUID
	for _, entry := range t.Entries {
		if entry.Routine == nil || entry.Routine.Log == nil || entry.Routine.Log.CompletedBy == nil {
			continue
		}
		id := *entry.Routine.Log.CompletedBy
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids
}
