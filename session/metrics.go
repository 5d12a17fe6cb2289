package session

import "sync/atomic"

// Metrics are updated from the controller loop and read by the admin API.
type Metrics struct {
	PhysicsTicks     int64 // physics steps run
	ForceTicks       int64 // force application passes
	ForcesApplied    int64 // passes that changed a velocity or kicked
	SnapshotsSent    int64 // snapshots broadcast as host
	SnapshotsApplied int64 // snapshots merged as guest
	SnapshotUnknown  int64 // snapshot players with no local body
	SnapshotMissing  int64 // local bodies absent from a snapshot
	SnapshotAborted  int64 // strict-mode batches cut short
	MessagesIn       int64 // messages received
	MessagesIgnored  int64 // dropped by role or identity checks
	Goals            int64 // goals processed as host
	BroadcastErrors  int64 // transport failures
	TotalTickNs      int64 // physics step time
	LastDrift        int64 // local frame minus last snapshot frame
}

func (m *Metrics) IncForceTick()       { atomic.AddInt64(&m.ForceTicks, 1) }
func (m *Metrics) IncForcesApplied()   { atomic.AddInt64(&m.ForcesApplied, 1) }
func (m *Metrics) IncSnapshotsSent()   { atomic.AddInt64(&m.SnapshotsSent, 1) }
func (m *Metrics) IncMessagesIn()      { atomic.AddInt64(&m.MessagesIn, 1) }
func (m *Metrics) IncMessagesIgnored() { atomic.AddInt64(&m.MessagesIgnored, 1) }
func (m *Metrics) IncGoals()           { atomic.AddInt64(&m.Goals, 1) }
func (m *Metrics) IncBroadcastErrors() { atomic.AddInt64(&m.BroadcastErrors, 1) }
func (m *Metrics) AddTick(ns int64) {
	atomic.AddInt64(&m.PhysicsTicks, 1)
	atomic.AddInt64(&m.TotalTickNs, ns)
}

// AddApplied records one applied snapshot.
func (m *Metrics) AddApplied(unknown, missing int, aborted bool, drift int64) {
	atomic.AddInt64(&m.SnapshotsApplied, 1)
	atomic.AddInt64(&m.SnapshotUnknown, int64(unknown))
	atomic.AddInt64(&m.SnapshotMissing, int64(missing))
	if aborted {
		atomic.AddInt64(&m.SnapshotAborted, 1)
	}
	atomic.StoreInt64(&m.LastDrift, drift)
}

// Snapshot returns a read-only copy for HTTP output.
func (m *Metrics) Snapshot() map[string]any {
	ticks := atomic.LoadInt64(&m.PhysicsTicks)
	total := atomic.LoadInt64(&m.TotalTickNs)
	var avgMs float64
	if ticks > 0 {
		avgMs = float64(total) / float64(ticks) / 1e6
	}
	return map[string]any{
		"physics_ticks":     ticks,
		"force_ticks":       atomic.LoadInt64(&m.ForceTicks),
		"forces_applied":    atomic.LoadInt64(&m.ForcesApplied),
		"snapshots_sent":    atomic.LoadInt64(&m.SnapshotsSent),
		"snapshots_applied": atomic.LoadInt64(&m.SnapshotsApplied),
		"snapshot_unknown":  atomic.LoadInt64(&m.SnapshotUnknown),
		"snapshot_missing":  atomic.LoadInt64(&m.SnapshotMissing),
		"snapshot_aborted":  atomic.LoadInt64(&m.SnapshotAborted),
		"messages_in":       atomic.LoadInt64(&m.MessagesIn),
		"messages_ignored":  atomic.LoadInt64(&m.MessagesIgnored),
		"goals":             atomic.LoadInt64(&m.Goals),
		"broadcast_errors":  atomic.LoadInt64(&m.BroadcastErrors),
		"last_drift":        atomic.LoadInt64(&m.LastDrift),
		"avg_tick_ms":       avgMs,
	}
}
