package connectivity

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeSource drives health transitions by hand.
type fakeSource struct {
	healthy  bool
	listener func(bool)
	removals int
}

func (f *fakeSource) IsHealthy() bool { return f.healthy }

func (f *fakeSource) OnHealthChange(fn func(healthy bool)) func() {
	f.listener = fn
	return func() {
		f.listener = nil
		f.removals++
	}
}

func (f *fakeSource) set(healthy bool) {
	f.healthy = healthy
	if f.listener != nil {
		f.listener(healthy)
	}
}

type snapshotRecorder struct {
	mu        sync.Mutex
	snapshots []Snapshot
}

func (r *snapshotRecorder) sink(s Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshots = append(r.snapshots, s)
}

func (r *snapshotRecorder) all() []Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Snapshot, len(r.snapshots))
	copy(out, r.snapshots)
	return out
}

func TestMonitorStartsFromSourceState(t *testing.T) {
	tests := []struct {
		name     string
		healthy  bool
		expected Status
	}{
		{name: "Healthy source starts connected", healthy: true, expected: StatusConnected},
		{name: "Unhealthy source starts offline", healthy: false, expected: StatusOffline},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source := &fakeSource{healthy: tt.healthy}
			monitor := NewMonitor(source, nil, nil, zap.NewNop())
			defer monitor.Close()

			assert.Equal(t, tt.expected, monitor.Current().Status)
		})
	}
}

func TestMonitorOfflineBannerPersists(t *testing.T) {
	source := &fakeSource{healthy: true}
	rec := &snapshotRecorder{}
	monitor := NewMonitor(source, rec.sink, nil, zap.NewNop())
	defer monitor.Close()

	source.set(false)

	current := monitor.Current()
	assert.Equal(t, StatusOffline, current.Status)
	assert.True(t, current.BannerVisible)

	// Well past the recovery dismiss window: offline stays up.
	time.Sleep(50 * time.Millisecond)
	assert.True(t, monitor.Current().BannerVisible)
}

func TestMonitorConnectedBannerAutoDismisses(t *testing.T) {
	source := &fakeSource{healthy: false}
	rec := &snapshotRecorder{}
	monitor := NewMonitor(source, rec.sink, nil, zap.NewNop())
	defer monitor.Close()

	source.set(true)
	require.Equal(t, StatusConnected, monitor.Current().Status)
	assert.True(t, monitor.Current().BannerVisible)

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if !monitor.Current().BannerVisible {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	assert.False(t, monitor.Current().BannerVisible, "connected banner dismisses itself")
	assert.Equal(t, StatusConnected, monitor.Current().Status)

	snapshots := rec.all()
	last := snapshots[len(snapshots)-1]
	assert.Equal(t, Snapshot{Status: StatusConnected, BannerVisible: false}, last)
}

func TestMonitorCloseCancelsDismissTimer(t *testing.T) {
	source := &fakeSource{healthy: false}
	rec := &snapshotRecorder{}
	monitor := NewMonitor(source, rec.sink, nil, zap.NewNop())

	source.set(true)
	monitor.Close()

	before := len(rec.all())
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, before, len(rec.all()), "no dismissal fires after Close")
}

func TestMonitorCloseDetachesHealthListener(t *testing.T) {
	source := &fakeSource{healthy: true}
	rec := &snapshotRecorder{}
	monitor := NewMonitor(source, rec.sink, nil, zap.NewNop())

	monitor.Close()

	assert.Equal(t, 1, source.removals, "listener is removed exactly once")
	assert.Nil(t, source.listener, "source no longer holds the callback")

	source.set(false)
	assert.Empty(t, rec.all(), "a health flip after Close reaches no sink")
}

func TestMonitorFailedOffersRetry(t *testing.T) {
	source := &fakeSource{healthy: true}
	retried := false
	monitor := NewMonitor(source, nil, func() { retried = true }, zap.NewNop())
	defer monitor.Close()

	monitor.MarkFailed()
	assert.Equal(t, StatusFailed, monitor.Current().Status)
	assert.True(t, monitor.Current().BannerVisible)

	monitor.Retry()
	assert.True(t, retried)
	assert.Equal(t, StatusSyncing, monitor.Current().Status)

	source.set(false)
	source.set(true)
	assert.Equal(t, StatusConnected, monitor.Current().Status)
}

func TestMonitorIgnoresDuplicateTransitions(t *testing.T) {
	source := &fakeSource{healthy: true}
	rec := &snapshotRecorder{}
	monitor := NewMonitor(source, rec.sink, nil, zap.NewNop())
	defer monitor.Close()

	source.set(true)
	source.set(true)
	assert.Empty(t, rec.all(), "re-announcing the same state emits nothing")
}
