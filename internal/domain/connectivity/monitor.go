package connectivity

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Connection states surfaced to the view
type Status string

const (
	StatusConnected Status = "connected"
	StatusOffline   Status = "offline"
	StatusSyncing   Status = "syncing"
	StatusFailed    Status = "failed"
)

// Banner auto-dismiss delay after regaining the connection.
const connectedBannerDuration = 2 * time.Second

// Snapshot is what the view renders: the current status and whether the
// banner for it is showing. Offline and failed banners persist until
// resolved; the connected banner dismisses itself shortly after a recovery.
type Snapshot struct {
	Status        Status `json:"status"`
	BannerVisible bool   `json:"banner_visible"`
}

// healthSource is the document store's native connectivity signal.
type healthSource interface {
	IsHealthy() bool
	OnHealthChange(fn func(healthy bool)) func()
}

// Monitor turns the document store's health transitions into the
// connected/offline/syncing/failed state machine. It deliberately ignores
// generic network-interface signals: only the store's own signal reflects
// actual sync status.
type Monitor struct {
	logger *zap.Logger
	sink   func(Snapshot)
	retry  func()

	mu           sync.Mutex
	status       Status
	banner       bool
	dismissTimer *time.Timer
	unsub        func()
	closed       bool
}

// NewMonitor wires the monitor to the store's health signal. sink receives
// every state change; retry runs when the user asks to recover from failed.
func NewMonitor(source healthSource, sink func(Snapshot), retry func(), logger *zap.Logger) *Monitor {
	m := &Monitor{
		logger: logger,
		sink:   sink,
		retry:  retry,
		status: StatusConnected,
	}
	if !source.IsHealthy() {
		m.status = StatusOffline
		m.banner = true
	}
	m.unsub = source.OnHealthChange(m.onHealthChange)
	return m
}

func (m *Monitor) onHealthChange(healthy bool) {
	if healthy {
		m.transition(StatusConnected)
	} else {
		m.transition(StatusOffline)
	}
}

// MarkSyncing flags an in-flight catch-up after a reconnect.
func (m *Monitor) MarkSyncing() {
	m.transition(StatusSyncing)
}

// MarkFailed records an unrecoverable subscription failure. The failed
// banner persists until Retry resolves it.
func (m *Monitor) MarkFailed() {
	m.transition(StatusFailed)
}

// Retry runs the registered recovery action and optimistically reports
// syncing while it is underway.
func (m *Monitor) Retry() {
	m.transition(StatusSyncing)
	if m.retry != nil {
		m.retry()
	}
}

// Current returns the state the view should render now.
func (m *Monitor) Current() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{Status: m.status, BannerVisible: m.banner}
}

func (m *Monitor) transition(next Status) {
	m.mu.Lock()
	if m.closed || m.status == next {
		m.mu.Unlock()
		return
	}
	prev := m.status
	m.status = next
	m.banner = true

	if m.dismissTimer != nil {
		m.dismissTimer.Stop()
		m.dismissTimer = nil
	}
	// The recovery banner dismisses itself; problem banners persist.
	if next == StatusConnected && prev != StatusConnected {
		m.dismissTimer = time.AfterFunc(connectedBannerDuration, m.dismissBanner)
	}
	snapshot := Snapshot{Status: next, BannerVisible: true}
	sink := m.sink
	m.mu.Unlock()

	m.logger.Info("Connectivity state changed",
		zap.String("from", string(prev)),
		zap.String("to", string(next)))
	if sink != nil {
		sink(snapshot)
	}
}

func (m *Monitor) dismissBanner() {
	m.mu.Lock()
	if m.closed || m.status != StatusConnected || !m.banner {
		m.mu.Unlock()
		return
	}
	m.banner = false
	snapshot := Snapshot{Status: m.status, BannerVisible: false}
	sink := m.sink
	m.mu.Unlock()

	if sink != nil {
		sink(snapshot)
	}
}

// Close detaches the health listener and stops the dismiss timer so a stale
// callback can never fire after the owning session is gone.
func (m *Monitor) Close() {
	m.mu.Lock()
	unsub := m.unsub
	m.unsub = nil
	m.closed = true
	if m.dismissTimer != nil {
		m.dismissTimer.Stop()
		m.dismissTimer = nil
	}
	m.mu.Unlock()

	if unsub != nil {
		unsub()
	}
}
