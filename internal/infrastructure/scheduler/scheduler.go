package scheduler

import (
	"sync"
	"time"

	"github.com/pawday/backend/pkg/logger"
	"go.uber.org/zap"
)

// Scheduler fires a rollover notification at every local midnight. Document
// subscriptions are scoped to the current date, so open timeline sessions
// register here and re-scope themselves when the day changes.
type Scheduler struct {
	logger *logger.Logger

	mu        sync.Mutex
	listeners map[uint64]func(newDate string)
	nextID    uint64
	stop      chan struct{}
	stopOnce  sync.Once
}

func NewScheduler(logger *logger.Logger) *Scheduler {
	return &Scheduler{
		logger:    logger,
		listeners: make(map[uint64]func(string)),
		stop:      make(chan struct{}),
	}
}

// OnRollover registers a listener for date changes. The returned function
// removes it; sessions call this on Close.
func (s *Scheduler) OnRollover(fn func(newDate string)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

func (s *Scheduler) Start() {
	now := time.Now()
	nextMidnight := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, now.Location())
	untilMidnight := nextMidnight.Sub(now)

	s.logger.Info("Rollover scheduler initialized",
		zap.Time("current_time", now),
		zap.Time("next_rollover", nextMidnight),
		zap.Duration("time_until_rollover", untilMidnight),
	)

	go func() {
		timer := time.NewTimer(untilMidnight)
		defer timer.Stop()

		select {
		case <-timer.C:
			s.fire()
		case <-s.stop:
			return
		}

		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.fire()
			case <-s.stop:
				return
			}
		}
	}()
}

func (s *Scheduler) fire() {
	date := time.Now().Format("2006-01-02")

	s.mu.Lock()
	listeners := make([]func(string), 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.mu.Unlock()

	s.logger.Info("Date rollover",
		zap.String("new_date", date),
		zap.Int("listener_count", len(listeners)),
	)

	for _, fn := range listeners {
		fn(date)
	}
}

func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
}
