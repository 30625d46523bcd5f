package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pawday/backend/internal/domain/events"
	"github.com/pawday/backend/internal/infrastructure/cache"
	"go.uber.org/zap"
)

// Store is the document-store adapter for ad hoc tasks, routine item
// tombstones and routine item edit overlays. Each collection is scoped to
// (puppyID, date); writes publish a snapshot tick and subscribers re-read
// the full collection, so the view is a function of stored state rather
// than of delivery order.
type Store interface {
	GetTasks(ctx context.Context, puppyID uuid.UUID, date string) ([]Task, error)
	GetDeletions(ctx context.Context, puppyID uuid.UUID, date string) (map[uuid.UUID]RoutineItemDeletion, error)
	GetEdits(ctx context.Context, puppyID uuid.UUID, date string) (map[uuid.UUID]RoutineItemEdit, error)

	PutTask(ctx context.Context, task *Task) error
	RemoveTask(ctx context.Context, puppyID uuid.UUID, date, taskID string) error
	GetTask(ctx context.Context, puppyID uuid.UUID, date, taskID string) (*Task, error)
	PutDeletion(ctx context.Context, puppyID, routineItemID uuid.UUID, date string, deletion *RoutineItemDeletion) error
	PutEdit(ctx context.Context, puppyID, routineItemID uuid.UUID, date string, edit *RoutineItemEdit) error

	SubscribeTasks(ctx context.Context, puppyID uuid.UUID, date string, onSnapshot func([]Task), onError func(error)) (func(), error)
	SubscribeDeletions(ctx context.Context, puppyID uuid.UUID, date string, onSnapshot func(map[uuid.UUID]RoutineItemDeletion), onError func(error)) (func(), error)
	SubscribeEdits(ctx context.Context, puppyID uuid.UUID, date string, onSnapshot func(map[uuid.UUID]RoutineItemEdit), onError func(error)) (func(), error)
}

type store struct {
	cache  *cache.Client
	logger *zap.Logger
}

func NewStore(c *cache.Client, logger *zap.Logger) Store {
	return &store{cache: c, logger: logger}
}

// collectionKey scopes a document collection to one puppy and one day.
func collectionKey(collection string, puppyID uuid.UUID, date string) string {
	return fmt.Sprintf("%s:%s:%s", collection, puppyID.String(), date)
}

func (s *store) GetTasks(ctx context.Context, puppyID uuid.UUID, date string) ([]Task, error) {
	raw, err := s.cache.GetCollection(ctx, collectionKey(events.CollectionTasks, puppyID, date))
	if err != nil {
		return nil, err
	}
	list := make([]Task, 0, len(raw))
	for id, doc := range raw {
		var task Task
		if err := json.Unmarshal([]byte(doc), &task); err != nil {
			s.logger.Warn("Skipping undecodable task document",
				zap.String("doc_id", id),
				zap.Error(err))
			continue
		}
		list = append(list, task)
	}
	return list, nil
}

func (s *store) GetDeletions(ctx context.Context, puppyID uuid.UUID, date string) (map[uuid.UUID]RoutineItemDeletion, error) {
	raw, err := s.cache.GetCollection(ctx, collectionKey(events.CollectionDeletions, puppyID, date))
	if err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID]RoutineItemDeletion, len(raw))
	for id, doc := range raw {
		itemID, err := uuid.Parse(id)
		if err != nil {
			continue
		}
		var deletion RoutineItemDeletion
		if err := json.Unmarshal([]byte(doc), &deletion); err != nil {
			s.logger.Warn("Skipping undecodable tombstone document",
				zap.String("doc_id", id),
				zap.Error(err))
			continue
		}
		out[itemID] = deletion
	}
	return out, nil
}

func (s *store) GetEdits(ctx context.Context, puppyID uuid.UUID, date string) (map[uuid.UUID]RoutineItemEdit, error) {
	raw, err := s.cache.GetCollection(ctx, collectionKey(events.CollectionEdits, puppyID, date))
	if err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID]RoutineItemEdit, len(raw))
	for id, doc := range raw {
		itemID, err := uuid.Parse(id)
		if err != nil {
			continue
		}
		var edit RoutineItemEdit
		if err := json.Unmarshal([]byte(doc), &edit); err != nil {
			s.logger.Warn("Skipping undecodable overlay document",
				zap.String("doc_id", id),
				zap.Error(err))
			continue
		}
		out[itemID] = edit
	}
	return out, nil
}

func (s *store) GetTask(ctx context.Context, puppyID uuid.UUID, date, taskID string) (*Task, error) {
	var task Task
	err := s.cache.GetDocument(ctx, collectionKey(events.CollectionTasks, puppyID, date), taskID, &task)
	if err != nil {
		return nil, err
	}
	return &task, nil
}

func (s *store) PutTask(ctx context.Context, task *Task) error {
	key := collectionKey(events.CollectionTasks, task.PuppyID, task.Date)
	if err := s.cache.PutDocument(ctx, key, task.ID, task); err != nil {
		return err
	}
	s.publishTick(ctx, events.CollectionTasks, task.PuppyID, task.Date)
	return nil
}

func (s *store) RemoveTask(ctx context.Context, puppyID uuid.UUID, date, taskID string) error {
	key := collectionKey(events.CollectionTasks, puppyID, date)
	if err := s.cache.DeleteDocument(ctx, key, taskID); err != nil {
		return err
	}
	s.publishTick(ctx, events.CollectionTasks, puppyID, date)
	return nil
}

func (s *store) PutDeletion(ctx context.Context, puppyID, routineItemID uuid.UUID, date string, deletion *RoutineItemDeletion) error {
	key := collectionKey(events.CollectionDeletions, puppyID, date)
	if err := s.cache.PutDocument(ctx, key, routineItemID.String(), deletion); err != nil {
		return err
	}
	s.publishTick(ctx, events.CollectionDeletions, puppyID, date)
	return nil
}

func (s *store) PutEdit(ctx context.Context, puppyID, routineItemID uuid.UUID, date string, edit *RoutineItemEdit) error {
	key := collectionKey(events.CollectionEdits, puppyID, date)
	if err := s.cache.PutDocument(ctx, key, routineItemID.String(), edit); err != nil {
		return err
	}
	s.publishTick(ctx, events.CollectionEdits, puppyID, date)
	return nil
}

func (s *store) SubscribeTasks(ctx context.Context, puppyID uuid.UUID, date string, onSnapshot func([]Task), onError func(error)) (func(), error) {
	return s.subscribe(ctx, events.CollectionTasks, puppyID, func() error {
		list, err := s.GetTasks(ctx, puppyID, date)
		if err != nil {
			return err
		}
		onSnapshot(list)
		return nil
	}, onError)
}

func (s *store) SubscribeDeletions(ctx context.Context, puppyID uuid.UUID, date string, onSnapshot func(map[uuid.UUID]RoutineItemDeletion), onError func(error)) (func(), error) {
	return s.subscribe(ctx, events.CollectionDeletions, puppyID, func() error {
		set, err := s.GetDeletions(ctx, puppyID, date)
		if err != nil {
			return err
		}
		onSnapshot(set)
		return nil
	}, onError)
}

func (s *store) SubscribeEdits(ctx context.Context, puppyID uuid.UUID, date string, onSnapshot func(map[uuid.UUID]RoutineItemEdit), onError func(error)) (func(), error) {
	return s.subscribe(ctx, events.CollectionEdits, puppyID, func() error {
		set, err := s.GetEdits(ctx, puppyID, date)
		if err != nil {
			return err
		}
		onSnapshot(set)
		return nil
	}, onError)
}

// subscribe wires a snapshot re-read to the collection's tick channel and
// delivers the current snapshot once immediately so subscribers start from
// the stored state rather than from empty.
func (s *store) subscribe(ctx context.Context, collection string, puppyID uuid.UUID, deliver func() error, onError func(error)) (func(), error) {
	unsubscribe, err := s.cache.Subscribe(ctx, events.SnapshotChannel(collection, puppyID), func(payload []byte) {
		if err := deliver(); err != nil {
			s.logger.Error("Snapshot re-read failed",
				zap.String("collection", collection),
				zap.String("puppy_id", puppyID.String()),
				zap.Error(err))
			if onError != nil {
				onError(err)
			}
		}
	})
	if err != nil {
		return nil, err
	}

	if err := deliver(); err != nil {
		unsubscribe()
		return nil, err
	}
	return unsubscribe, nil
}

func (s *store) publishTick(ctx context.Context, collection string, puppyID uuid.UUID, date string) {
	event := &events.SnapshotEvent{
		Collection: collection,
		PuppyID:    puppyID,
		Date:       date,
		Timestamp:  time.Now().UTC(),
	}
	if err := s.cache.PublishEvent(ctx, events.SnapshotChannel(collection, puppyID), event); err != nil {
		// The write itself committed; a missed tick only delays subscribers
		// until the next one.
		s.logger.Error("Failed to publish snapshot tick",
			zap.String("collection", collection),
			zap.Error(err))
	}
}
