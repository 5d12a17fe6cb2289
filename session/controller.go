package session

import (
	"context"
	"time"

	"peerball/arena"
	"peerball/logging"
	"peerball/physics"
	"peerball/protocol"
)

type Options struct {
	Arena *arena.Arena
	// Name is the local display name sent with identify.
	Name       string
	ScoreLimit int

	PhysicsHz int
	ForceHz   int
	SyncHz    int

	StrictSnapshots bool
	// Clock drives the input debounce. Nil means time.Now.
	Clock func() time.Time
}

// Controller owns the roster, score and match timers of one participant.
// All state is confined to the Run goroutine; exported methods hand work to
// it through the inbox.
type Controller struct {
	transport Transport
	localID   string
	name      string

	game    *Game
	engine  *physics.Engine
	metrics *Metrics

	inbox chan func()
	done  chan struct{}

	physicsEvery time.Duration
	forceEvery   time.Duration
	syncEvery    time.Duration

	// nil while the match is stopped
	physicsTicker *time.Ticker
	forceTicker   *time.Ticker
	syncTicker    *time.Ticker

	running bool
	// joined is set once this participant dialed someone; it then waits for
	// the host's roster instead of seeding its own.
	joined  bool
	pending map[string]bool

	// last local Input State broadcast
	sentInput protocol.Keyboard
}

func New(t Transport, opts Options) *Controller {
	a := opts.Arena
	if a == nil {
		a = arena.Classic()
	}
	c := &Controller{
		transport:    t,
		localID:      t.ID(),
		name:         opts.Name,
		game:         newGame(opts.ScoreLimit),
		metrics:      &Metrics{},
		inbox:        make(chan func(), 256),
		done:         make(chan struct{}),
		physicsEvery: every(opts.PhysicsHz, protocol.PhysicsHz),
		forceEvery:   every(opts.ForceHz, protocol.ForceHz),
		syncEvery:    every(opts.SyncHz, protocol.SyncHz),
		pending:      make(map[string]bool),
	}
	c.engine = physics.New(a, c.game, physics.Options{
		OnGoal:          c.handleGoal,
		IsHost:          c.isHost,
		Clock:           opts.Clock,
		StrictSnapshots: opts.StrictSnapshots,
	})
	return c
}

func every(hz, fallback int) time.Duration {
	if hz <= 0 {
		hz = fallback
	}
	return time.Second / time.Duration(hz)
}

func tickC(t *time.Ticker) <-chan time.Time {
	if t == nil {
		return nil
	}
	return t.C
}

// Run processes inbound events and match timers until ctx is done.
func (c *Controller) Run(ctx context.Context) {
	defer close(c.done)
	defer c.stopTickers()

	for {
		select {
		case <-ctx.Done():
			return
		case fn := <-c.inbox:
			fn()
		case <-tickC(c.physicsTicker):
			c.physicsTick()
		case <-tickC(c.forceTicker):
			c.forceTick()
		case <-tickC(c.syncTicker):
			c.syncTick()
		}
	}
}

// post queues fn on the loop without waiting for it.
func (c *Controller) post(fn func()) {
	select {
	case c.inbox <- fn:
	case <-c.done:
	}
}

// do runs fn on the loop and waits for it. It returns false if the loop has
// exited.
func (c *Controller) do(fn func()) bool {
	finished := make(chan struct{})
	select {
	case c.inbox <- func() { fn(); close(finished) }:
	case <-c.done:
		return false
	}
	select {
	case <-finished:
		return true
	case <-c.done:
		return false
	}
}

func (c *Controller) ID() string {
	return c.localID
}

func (c *Controller) Arena() *arena.Arena {
	return c.engine.Arena()
}

func (c *Controller) Metrics() *Metrics {
	return c.metrics
}

func (c *Controller) isHost() bool {
	return c.game.HostID() == c.localID
}

func (c *Controller) physicsTick() {
	start := time.Now()
	c.engine.Tick()
	c.metrics.AddTick(time.Since(start).Nanoseconds())
}

func (c *Controller) forceTick() {
	c.metrics.IncForceTick()
	if c.engine.ApplyForces() {
		c.metrics.IncForcesApplied()
		c.broadcastSnapshot()
	}
}

func (c *Controller) syncTick() {
	c.broadcastSnapshot()
}

func (c *Controller) broadcastSnapshot() {
	if !c.running || !c.isHost() {
		return
	}
	if c.send(protocol.GameSnapshot(c.engine.Snapshot())) {
		c.metrics.IncSnapshotsSent()
	}
}

func (c *Controller) broadcastGame() {
	c.send(protocol.UpdateGame(c.game.full()))
}

func (c *Controller) send(msg protocol.Message) bool {
	if err := c.transport.Broadcast(msg); err != nil {
		c.metrics.IncBroadcastErrors()
		logging.Log.Warnw("broadcast failed", "type", msg.Type, "err", err)
		return false
	}
	return true
}

// start is idempotent: a running match keeps its timers.
func (c *Controller) start() {
	if c.running {
		return
	}
	if c.game.Len() == 0 {
		c.game.add(protocol.NewPlayer(c.localID, c.name))
	}
	c.running = true
	c.physicsTicker = time.NewTicker(c.physicsEvery)
	c.forceTicker = time.NewTicker(c.forceEvery)
	c.syncTicker = time.NewTicker(c.syncEvery)

	c.engine.SyncRoster()
	c.engine.ResetPositions()
	logging.Log.Infow("match started", "host", c.isHost(), "players", c.game.Len())

	if c.isHost() {
		c.broadcastGame()
		c.send(protocol.StartGame())
	}
}

// stop is a no-op when the match is not running.
func (c *Controller) stop() {
	if !c.running {
		return
	}
	c.running = false
	c.stopTickers()
	logging.Log.Infow("match stopped", "host", c.isHost(), "score", c.game.Score())

	if c.isHost() {
		c.send(protocol.StopGame())
	}
}

func (c *Controller) stopTickers() {
	for _, t := range []*time.Ticker{c.physicsTicker, c.forceTicker, c.syncTicker} {
		if t != nil {
			t.Stop()
		}
	}
	c.physicsTicker, c.forceTicker, c.syncTicker = nil, nil, nil
}

// handleGoal runs inside the physics step.
func (c *Controller) handleGoal(team arena.Team) {
	if !c.isHost() {
		return
	}
	c.metrics.IncGoals()
	c.game.state.Score.Add(team)
	c.game.clearKeyboards()
	score := c.game.Score()
	logging.Log.Infow("goal", "team", team, "red", score.Red, "blue", score.Blue)

	if score.Reached(c.game.ScoreLimit()) {
		logging.Log.Infow("score limit reached", "limit", c.game.ScoreLimit(), "red", score.Red, "blue", score.Blue)
		c.game.state.Score = protocol.Score{}
		c.broadcastGame()
		c.stop()
		return
	}
	c.broadcastGame()
}
