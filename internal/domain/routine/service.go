package routine

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/pawday/backend/internal/domain/events"
	"github.com/pawday/backend/internal/domain/user"
	"github.com/pawday/backend/internal/infrastructure/cache"
	"go.uber.org/zap"
)

// Service is the relational-store adapter for routines and completion logs.
// Reads resolve the completer profile join; writes publish a change event on
// the per-puppy log channel so subscribed timelines pick the change up live.
type Service interface {
	SaveRoutine(ctx context.Context, puppyID uuid.UUID, source string, items []ItemInput) (*RoutineWithItems, error)
	GetActiveRoutine(ctx context.Context, puppyID uuid.UUID) (*RoutineWithItems, error)
	ToggleItem(ctx context.Context, itemID uuid.UUID, enabled bool) error
	GetItem(ctx context.Context, itemID uuid.UUID) (*Item, error)

	GetTodayLogs(ctx context.Context, puppyID uuid.UUID) ([]LogWithProfile, error)
	GetLogsInRange(ctx context.Context, puppyID uuid.UUID, startDate, endDate string) ([]Log, error)
	UpsertLog(ctx context.Context, input UpsertLogInput) (*LogWithProfile, error)
	DeleteLog(ctx context.Context, routineItemID, puppyID uuid.UUID) (*Log, error)
	SubscribeLogs(ctx context.Context, puppyID uuid.UUID, onUpsert func(LogWithProfile), onDelete func(routineItemID uuid.UUID)) (func(), error)
}

type service struct {
	repo     Repository
	profiles user.Service
	bus      *cache.Client
	logger   *zap.Logger
}

func NewService(repo Repository, profiles user.Service, bus *cache.Client, logger *zap.Logger) Service {
	return &service{
		repo:     repo,
		profiles: profiles,
		bus:      bus,
		logger:   logger,
	}
}

// SaveRoutine deactivates any previous active routine and persists the new
// generated item list as-is. Generation happens upstream; the list is opaque
// ordered content here.
func (s *service) SaveRoutine(ctx context.Context, puppyID uuid.UUID, source string, inputs []ItemInput) (*RoutineWithItems, error) {
	if len(inputs) == 0 {
		return nil, ErrInvalidInput
	}
	if source == "" {
		source = "ai_generated"
	}

	if err := s.repo.DeactivateRoutines(ctx, puppyID); err != nil {
		return nil, err
	}

	routine := &Routine{
		ID:          uuid.New(),
		PuppyID:     puppyID,
		Source:      source,
		IsActive:    true,
		GeneratedAt: time.Now().UTC(),
	}

	items := make([]Item, len(inputs))
	for i, in := range inputs {
		items[i] = Item{
			ID:              uuid.New(),
			ActivityType:    in.ActivityType,
			Title:           in.Title,
			Description:     in.Description,
			ScheduledTime:   in.ScheduledTime,
			DurationMinutes: in.DurationMinutes,
			SortOrder:       in.SortOrder,
			IsEnabled:       true,
		}
	}

	if err := s.repo.CreateRoutine(ctx, routine, items); err != nil {
		return nil, err
	}

	s.logger.Info("Routine saved",
		zap.String("puppy_id", puppyID.String()),
		zap.String("routine_id", routine.ID.String()),
		zap.Int("item_count", len(items)))

	return &RoutineWithItems{Routine: *routine, Items: items}, nil
}

func (s *service) GetActiveRoutine(ctx context.Context, puppyID uuid.UUID) (*RoutineWithItems, error) {
	return s.repo.FindActiveRoutine(ctx, puppyID)
}

func (s *service) ToggleItem(ctx context.Context, itemID uuid.UUID, enabled bool) error {
	return s.repo.SetItemEnabled(ctx, itemID, enabled)
}

func (s *service) GetItem(ctx context.Context, itemID uuid.UUID) (*Item, error) {
	return s.repo.FindItem(ctx, itemID)
}

func (s *service) GetTodayLogs(ctx context.Context, puppyID uuid.UUID) ([]LogWithProfile, error) {
	logs, err := s.repo.FindLogs(ctx, puppyID, Today())
	if err != nil {
		return nil, err
	}
	return s.attachProfiles(ctx, logs)
}

func (s *service) GetLogsInRange(ctx context.Context, puppyID uuid.UUID, startDate, endDate string) ([]Log, error) {
	return s.repo.FindLogsInRange(ctx, puppyID, startDate, endDate)
}

// UpsertLog writes the single log row for (routineItemID, today) and pushes
// the committed row to every live subscriber.
func (s *service) UpsertLog(ctx context.Context, input UpsertLogInput) (*LogWithProfile, error) {
	if input.Status != StatusCompleted && input.Status != StatusSkipped && input.Status != StatusMissed {
		return nil, ErrInvalidInput
	}

	now := time.Now().UTC()
	completedBy := input.CompletedBy
	log := &Log{
		ID:            uuid.New(),
		RoutineItemID: input.RoutineItemID,
		PuppyID:       input.PuppyID,
		Date:          Today(),
		Status:        input.Status,
		CompletedBy:   &completedBy,
		CompletedAt:   &now,
		Note:          input.Note,
	}

	if err := s.repo.UpsertLog(ctx, log); err != nil {
		return nil, err
	}

	withProfile, err := s.attachProfiles(ctx, []Log{*log})
	if err != nil {
		return nil, err
	}
	result := withProfile[0]

	s.publishLogEvent(ctx, events.EventTypeLogUpserted, input.PuppyID, input.RoutineItemID, &result)
	return &result, nil
}

// DeleteLog removes the log for (routineItemID, today), returning the
// deleted row for the caller's undo buffer, and notifies subscribers.
func (s *service) DeleteLog(ctx context.Context, routineItemID, puppyID uuid.UUID) (*Log, error) {
	deleted, err := s.repo.DeleteLog(ctx, routineItemID, Today())
	if err != nil {
		return nil, err
	}

	s.publishLogEvent(ctx, events.EventTypeLogDeleted, puppyID, routineItemID, nil)
	return deleted, nil
}

// SubscribeLogs delivers committed log changes for the puppy until the
// returned unsubscribe function is called.
func (s *service) SubscribeLogs(ctx context.Context, puppyID uuid.UUID, onUpsert func(LogWithProfile), onDelete func(routineItemID uuid.UUID)) (func(), error) {
	return s.bus.Subscribe(ctx, events.LogChannel(puppyID), func(payload []byte) {
		var event events.LogEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			s.logger.Error("Failed to decode log event", zap.Error(err))
			return
		}

		switch event.EventType {
		case events.EventTypeLogUpserted:
			raw, err := json.Marshal(event.Log)
			if err != nil {
				return
			}
			var log LogWithProfile
			if err := json.Unmarshal(raw, &log); err != nil {
				s.logger.Error("Failed to decode log payload", zap.Error(err))
				return
			}
			onUpsert(log)
		case events.EventTypeLogDeleted:
			onDelete(event.RoutineItemID)
		}
	})
}

func (s *service) publishLogEvent(ctx context.Context, eventType string, puppyID, routineItemID uuid.UUID, log *LogWithProfile) {
	event := &events.LogEvent{
		EventType:     eventType,
		PuppyID:       puppyID,
		RoutineItemID: routineItemID,
		Date:          Today(),
		Timestamp:     time.Now().UTC(),
	}
	if log != nil {
		event.Log = log
	}
	if err := s.bus.PublishEvent(ctx, events.LogChannel(puppyID), event); err != nil {
		s.logger.Error("Failed to publish log event",
			zap.String("event_type", eventType),
			zap.Error(err))
	}
}

func (s *service) attachProfiles(ctx context.Context, logs []Log) ([]LogWithProfile, error) {
	ids := make([]uuid.UUID, 0, len(logs))
	seen := make(map[uuid.UUID]bool)
	for _, l := range logs {
		if l.CompletedBy != nil && !seen[*l.CompletedBy] {
			seen[*l.CompletedBy] = true
			ids = append(ids, *l.CompletedBy)
		}
	}

	profiles, err := s.profiles.GetCompleterProfiles(ctx, ids)
	if err != nil {
		// The join is presentational; a failed profile read must not hide
		// the logs themselves.
		s.logger.Error("Failed to resolve completer profiles", zap.Error(err))
		profiles = map[uuid.UUID]user.CompleterProfile{}
	}

	out := make([]LogWithProfile, len(logs))
	for i, l := range logs {
		out[i] = LogWithProfile{Log: l}
		if l.CompletedBy != nil {
			if p, ok := profiles[*l.CompletedBy]; ok {
				cp := p
				out[i].CompleterProfile = &cp
			}
		}
	}
	return out, nil
}
