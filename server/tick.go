package server

import (
	"sync/atomic"
	"time"
)

const (
	// TicksPerSecond 房间循环频率，决定模拟延迟的精度（10ms）
	TicksPerSecond = 100
)

var tickInterval = time.Second / TicksPerSecond

// StartTicker 启动房间循环（单协程维护连接与链路状态），重复调用无效
func (r *Room) StartTicker() {
	if r.tickerStarted {
		return
	}
	r.tickerStarted = true
	go r.run()
}

func (r *Room) run() {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()
	defer r.closeAll()

	for {
		select {
		case <-r.quit:
			return
		case req := <-r.joinChan:
			r.joinPeer(req)
		case req := <-r.leaveChan:
			r.LeavePeer(req)
		case in := <-r.inputChan:
			r.route(in)
		case query := <-r.queryChan:
			query()
		case now := <-ticker.C:
			// 每个 Tick：投递到期的延迟帧，并记录耗时
			start := time.Now()
			atomic.AddInt64(&r.tickSeq, 1)
			r.flushPending(now)
			r.metrics.AddTick(time.Since(start).Nanoseconds())
		}
	}
}
