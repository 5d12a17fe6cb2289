package server

import (
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/exp/rand"

	"peerball/logging"
	"peerball/protocol"
)

var ErrInvalidConfig = errors.New("relay: invalid lag simulation config")

// SimConfig 数据帧的模拟延迟与丢包配置
type SimConfig struct {
	DelayMinMs int     `json:"simulateDelayMinMs"`
	DelayMaxMs int     `json:"simulateDelayMaxMs"`
	DropProb   float64 `json:"simulateDropProb"`
}

func (c SimConfig) Validate() error {
	if c.DelayMinMs < 0 || c.DelayMaxMs < c.DelayMinMs {
		return ErrInvalidConfig
	}
	if c.DropProb < 0 || c.DropProb > 1 {
		return ErrInvalidConfig
	}
	return nil
}

// Room 一局比赛的中继房间：节点与链路状态只在房间循环中修改，
// 其他协程通过通道与之交互
type Room struct {
	ID string

	Peers     map[PeerID]*Peer
	inputChan chan Input
	joinChan  chan joinRequest
	leaveChan chan leaveRequest
	queryChan chan func()
	quit      chan struct{}
	stopOnce  sync.Once

	cfgMu sync.RWMutex
	sim   SimConfig

	rng     *rand.Rand
	pending []delivery

	metrics       *RoomMetrics
	tickSeq       int64
	tickerStarted bool
}

func NewRoom(id string, sim SimConfig) *Room {
	return &Room{
		ID:        id,
		Peers:     make(map[PeerID]*Peer),
		inputChan: make(chan Input, 256), // 足够缓冲，避免网络读阻塞房间循环
		joinChan:  make(chan joinRequest, 16),
		leaveChan: make(chan leaveRequest, 64),
		queryChan: make(chan func()),
		quit:      make(chan struct{}),
		sim:       sim,
		rng:       rand.New(rand.NewSource(uint64(time.Now().UnixNano()))),
		metrics:   &RoomMetrics{},
	}
}

func (r *Room) Metrics() *RoomMetrics {
	return r.metrics
}

// Tick returns the number of loop ticks run so far.
func (r *Room) Tick() int64 {
	return atomic.LoadInt64(&r.tickSeq)
}

func (r *Room) Config() SimConfig {
	r.cfgMu.RLock()
	defer r.cfgMu.RUnlock()
	return r.sim
}

// SetConfig replaces the lag simulation. Frames already held back keep
// their due time.
func (r *Room) SetConfig(c SimConfig) error {
	if err := c.Validate(); err != nil {
		return err
	}
	r.cfgMu.Lock()
	r.sim = c
	r.cfgMu.Unlock()
	return nil
}

// RequestJoin hands a new connection to the room loop.
func (r *Room) RequestJoin(id PeerID, conn *ClientConn) bool {
	select {
	case r.joinChan <- joinRequest{id: id, conn: conn}:
		return true
	case <-r.quit:
		return false
	}
}

// RequestLeave 请求在房间循环中移除节点，避免并发改动房间状态；
// 只有加入时的连接才能移除它
func (r *Room) RequestLeave(id PeerID, conn *ClientConn) {
	select {
	case r.leaveChan <- leaveRequest{id: id, conn: conn}:
	case <-r.quit:
	}
}

// OnInput 入站帧排队，不在调用方协程中处理。数据帧在拥塞时丢弃（保证实时性），
// 链路变更则一定送达
func (r *Room) OnInput(in Input) {
	r.metrics.IncFramesIn()
	select {
	case r.inputChan <- in:
		return
	default:
	}
	if in.Frame.Kind == protocol.FrameData {
		r.metrics.IncChanFullDiscarded()
		return
	}
	select {
	case r.inputChan <- in:
	case <-r.quit:
	}
}

// PeerStates lists the peers and their links, sorted by id.
func (r *Room) PeerStates() []PeerState {
	var out []PeerState
	done := make(chan struct{})
	query := func() {
		for _, p := range r.Peers {
			out = append(out, p.State())
		}
		close(done)
	}
	select {
	case r.queryChan <- query:
	case <-r.quit:
		return nil
	}
	select {
	case <-done:
	case <-r.quit:
		return nil
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Stop ends the room loop and closes every connection.
func (r *Room) Stop() {
	r.stopOnce.Do(func() { close(r.quit) })
}

func (r *Room) joinPeer(req joinRequest) {
	if _, ok := r.Peers[req.id]; ok {
		logging.Log.Warnw("duplicate peer id rejected", "room", r.ID, "peer", req.id)
		req.conn.Enqueue(encodeFrame(protocol.Frame{Kind: protocol.FrameError, From: string(req.id), Error: "peer id in use"}))
		req.conn.Close()
		return
	}
	r.Peers[req.id] = newPeer(req.id, req.conn)
	r.metrics.IncJoined()
	logging.Log.Infow("peer joined", "room", r.ID, "peer", req.id, "peers", len(r.Peers))
}

// LeavePeer closes a peer's connection and tells every linked peer.
func (r *Room) LeavePeer(req leaveRequest) {
	p, ok := r.Peers[req.id]
	if !ok || (req.conn != nil && p.Conn != req.conn) {
		return
	}
	for other := range p.Links {
		r.unlink(p.ID, other)
		r.sendTo(other, protocol.Frame{Kind: protocol.FrameClose, From: string(p.ID)})
	}
	if p.Conn != nil {
		p.Conn.Close()
	}
	delete(r.Peers, req.id)
	r.metrics.IncLeft()
	logging.Log.Infow("peer left", "room", r.ID, "peer", req.id, "peers", len(r.Peers))
}

// route applies one client frame.
func (r *Room) route(in Input) {
	from, to := in.From, PeerID(in.Frame.To)
	if _, ok := r.Peers[from]; !ok {
		return
	}
	switch in.Frame.Kind {
	case protocol.FrameConnect:
		r.connect(from, to)
	case protocol.FrameDisconnect:
		if r.unlink(from, to) {
			r.sendTo(to, protocol.Frame{Kind: protocol.FrameClose, From: string(from)})
		}
	case protocol.FrameData:
		r.forward(from, to, in.Frame.Payload)
	default:
		r.metrics.IncInvalid()
	}
}

func (r *Room) connect(from, to PeerID) {
	target, ok := r.Peers[to]
	if !ok || to == from {
		r.sendTo(from, protocol.Frame{Kind: protocol.FrameError, From: string(to), Error: "peer not found"})
		return
	}
	if !target.Links[from] {
		r.Peers[from].Links[to] = true
		target.Links[from] = true
		r.metrics.IncLinks()
		r.sendTo(to, protocol.Frame{Kind: protocol.FrameOpen, From: string(from)})
		logging.Log.Debugw("link opened", "room", r.ID, "from", from, "to", to)
	}
	r.sendTo(from, protocol.Frame{Kind: protocol.FrameDialed, From: string(to)})
}

func (r *Room) unlink(a, b PeerID) bool {
	pa, okA := r.Peers[a]
	pb, okB := r.Peers[b]
	linked := false
	if okA && pa.Links[b] {
		delete(pa.Links, b)
		linked = true
	}
	if okB && pb.Links[a] {
		delete(pb.Links, a)
		linked = true
	}
	return linked
}

// forward 经由已打开的链路投递数据帧，先经过模拟丢包与延迟
func (r *Room) forward(from, to PeerID, payload []byte) {
	if !r.Peers[from].Links[to] {
		r.metrics.IncNoLink()
		return
	}
	sim := r.Config()
	if sim.DropProb > 0 && r.rng.Float64() < sim.DropProb {
		r.metrics.IncDropsSimulated()
		return
	}
	b := encodeFrame(protocol.Frame{Kind: protocol.FrameData, From: string(from), Payload: payload})
	if sim.DelayMaxMs > 0 {
		delay := sim.DelayMinMs
		if span := sim.DelayMaxMs - sim.DelayMinMs; span > 0 {
			delay += r.rng.Intn(span + 1)
		}
		r.pending = append(r.pending, delivery{
			due:  time.Now().Add(time.Duration(delay) * time.Millisecond),
			to:   to,
			from: from,
			b:    b,
		})
		r.metrics.IncDelayed()
		return
	}
	r.deliver(from, to, b)
}

// flushPending delivers every held-back frame that is due. Frames whose link
// closed in the meantime are dropped.
func (r *Room) flushPending(now time.Time) {
	kept := r.pending[:0]
	for _, d := range r.pending {
		if now.Before(d.due) {
			kept = append(kept, d)
			continue
		}
		if p, ok := r.Peers[d.from]; ok && p.Links[d.to] {
			r.deliver(d.from, d.to, d.b)
		}
	}
	r.pending = kept
}

func (r *Room) deliver(from, to PeerID, b []byte) {
	p, ok := r.Peers[to]
	if !ok || p.Conn == nil {
		return
	}
	p.Conn.Enqueue(b)
	r.metrics.IncForwarded()
}

func (r *Room) sendTo(id PeerID, f protocol.Frame) {
	if p, ok := r.Peers[id]; ok && p.Conn != nil {
		p.Conn.Enqueue(encodeFrame(f))
	}
}

func (r *Room) closeAll() {
	for id := range r.Peers {
		r.LeavePeer(leaveRequest{id: id})
	}
	r.pending = nil
}
