package server

import (
	"sync/atomic"
)

// RoomMetrics 记录中继房间运行期的关键指标（用于监控与调试）
type RoomMetrics struct {
	TickCount         int64 // loop ticks
	FramesIn          int64 // frames read from peers
	Forwarded         int64 // data frames delivered
	Delayed           int64 // data frames held back by lag simulation
	DropsSimulated    int64 // data frames dropped by lag simulation
	NoLink            int64 // data frames between unlinked peers
	ChanFullDiscarded int64 // data frames dropped because the room was busy
	InvalidFrames     int64 // undecodable or disallowed frames
	LinksOpened       int64 // successful connect requests
	PeersJoined       int64
	PeersLeft         int64
	TotalTickNs       int64 // tick time
}

func (m *RoomMetrics) IncFramesIn()          { atomic.AddInt64(&m.FramesIn, 1) }
func (m *RoomMetrics) IncForwarded()         { atomic.AddInt64(&m.Forwarded, 1) }
func (m *RoomMetrics) IncDelayed()           { atomic.AddInt64(&m.Delayed, 1) }
func (m *RoomMetrics) IncDropsSimulated()    { atomic.AddInt64(&m.DropsSimulated, 1) }
func (m *RoomMetrics) IncNoLink()            { atomic.AddInt64(&m.NoLink, 1) }
func (m *RoomMetrics) IncChanFullDiscarded() { atomic.AddInt64(&m.ChanFullDiscarded, 1) }
func (m *RoomMetrics) IncInvalid()           { atomic.AddInt64(&m.InvalidFrames, 1) }
func (m *RoomMetrics) IncLinks()             { atomic.AddInt64(&m.LinksOpened, 1) }
func (m *RoomMetrics) IncJoined()            { atomic.AddInt64(&m.PeersJoined, 1) }
func (m *RoomMetrics) IncLeft()              { atomic.AddInt64(&m.PeersLeft, 1) }
func (m *RoomMetrics) AddTick(ns int64) {
	atomic.AddInt64(&m.TickCount, 1)
	atomic.AddInt64(&m.TotalTickNs, ns)
}

// Snapshot 返回只读副本，便于 HTTP 输出
func (m *RoomMetrics) Snapshot() map[string]any {
	tick := atomic.LoadInt64(&m.TickCount)
	total := atomic.LoadInt64(&m.TotalTickNs)
	var avgMs float64
	if tick > 0 {
		avgMs = float64(total) / float64(tick) / 1e6
	}
	return map[string]any{
		"tick_count":          tick,
		"frames_in":           atomic.LoadInt64(&m.FramesIn),
		"forwarded":           atomic.LoadInt64(&m.Forwarded),
		"delayed":             atomic.LoadInt64(&m.Delayed),
		"drops_simulated":     atomic.LoadInt64(&m.DropsSimulated),
		"no_link":             atomic.LoadInt64(&m.NoLink),
		"chan_full_discarded": atomic.LoadInt64(&m.ChanFullDiscarded),
		"invalid_frames":      atomic.LoadInt64(&m.InvalidFrames),
		"links_opened":        atomic.LoadInt64(&m.LinksOpened),
		"peers_joined":        atomic.LoadInt64(&m.PeersJoined),
		"peers_left":          atomic.LoadInt64(&m.PeersLeft),
		"avg_tick_ms":         avgMs,
	}
}
