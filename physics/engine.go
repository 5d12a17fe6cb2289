package physics

import (
	"time"

	"github.com/solarlune/resolv"

	"peerball/arena"
	"peerball/protocol"
)

// Roster is the read side of the controller's game state. The engine never
// mutates it.
type Roster interface {
	Players() []protocol.Player
}

// GoalHandler is called with the team that scored.
type GoalHandler func(team arena.Team)

type Options struct {
	OnGoal GoalHandler
	// IsHost decides whether input turns into forces. Nil means host.
	IsHost func() bool
	// Clock is used for the input debounce. Nil means time.Now.
	Clock func() time.Time
	// StrictSnapshots stops applying a snapshot at the first player that has
	// no local body.
	StrictSnapshots bool
}

// static is immovable geometry: an obstacle or a goal line.
type static struct {
	shape    arena.Shape
	category uint32
	mask     uint32
	obj      *resolv.Object
}

// Engine owns every dynamic body and advances them one fixed step per Tick.
// It is not safe for concurrent use; the session loop drives it.
type Engine struct {
	arena  *arena.Arena
	roster Roster
	space  *resolv.Space

	ball    *Body
	players map[string]*Body
	order   []string
	statics []*static

	onGoal GoalHandler
	isHost func() bool
	now    func() time.Time
	strict bool

	frames            int64
	framesSinceSync   int64
	lastSnapshotFrame int64
}

// New builds the world: static geometry, the ball at its start position and
// one body per non-spectator in roster.
func New(a *arena.Arena, roster Roster, opts Options) *Engine {
	e := &Engine{
		arena:   a,
		roster:  roster,
		space:   resolv.NewSpace(int(a.Width), int(a.Height), spaceCellSize, spaceCellSize),
		players: make(map[string]*Body),
		onGoal:  opts.OnGoal,
		isHost:  opts.IsHost,
		now:     opts.Clock,
		strict:  opts.StrictSnapshots,
	}
	if e.isHost == nil {
		e.isHost = func() bool { return true }
	}
	if e.now == nil {
		e.now = time.Now
	}

	for _, o := range a.Obstacles {
		e.addStatic(o.Shape, arena.CategoryDefault, o.Mask())
	}
	for _, g := range a.Goals {
		line := arena.Rect{X: g.X - 0.5, Y: g.Y1, Width: 1, Height: g.Y2 - g.Y1}
		e.addStatic(line, arena.CategoryGoalLine, arena.MaskAll)
	}

	e.ball = newBall(a)
	e.attach(e.ball, "ball")

	e.SyncRoster()
	return e
}

func (e *Engine) addStatic(shape arena.Shape, category, mask uint32) {
	minX, minY, maxX, maxY := shape.Bounds()
	s := &static{shape: shape, category: category, mask: mask}
	s.obj = resolv.NewObject(minX, minY, maxX-minX, maxY-minY, "static")
	s.obj.Data = s
	e.space.Add(s.obj)
	e.statics = append(e.statics, s)
}

func (e *Engine) attach(b *Body, tag string) {
	b.obj = resolv.NewObject(b.Pos.X()-b.Radius, b.Pos.Y()-b.Radius, b.Radius*2, b.Radius*2, tag)
	b.obj.Data = b
	e.space.Add(b.obj)
}

func (e *Engine) detach(b *Body) {
	if b.obj != nil {
		e.space.Remove(b.obj)
		b.obj = nil
	}
}

// Tick advances the simulation by one fixed step: integration, pairwise
// collisions, then boundary and goal resolution.
func (e *Engine) Tick() {
	e.frames++
	e.framesSinceSync++

	e.integrate()
	e.collide()
	e.resolveBoundaries()
}

func (e *Engine) integrate() {
	e.forEachBody(func(b *Body) {
		b.PrevPos = b.Pos
		b.Vel = b.Vel.Mul(1 - AirFriction)
		b.Pos = b.Pos.Add(b.Vel)
		b.syncObject()
	})
}

// forEachBody visits the ball then players in creation order.
func (e *Engine) forEachBody(fn func(b *Body)) {
	fn(e.ball)
	for _, id := range e.order {
		fn(e.players[id])
	}
}

// Frame is the number of ticks run so far.
func (e *Engine) Frame() int64 {
	return e.frames
}

// FramesSinceSync counts ticks since the last applied snapshot.
func (e *Engine) FramesSinceSync() int64 {
	return e.framesSinceSync
}

func (e *Engine) Arena() *arena.Arena {
	return e.arena
}

// Ball returns the ball's current state.
func (e *Engine) Ball() BodyState {
	return e.ball.State()
}

// Player returns a player's body state.
func (e *Engine) Player(id string) (BodyState, bool) {
	b, ok := e.players[id]
	if !ok {
		return BodyState{}, false
	}
	return b.State(), true
}

// Bodies returns the ball followed by every player body.
func (e *Engine) Bodies() []BodyState {
	out := make([]BodyState, 0, len(e.order)+1)
	e.forEachBody(func(b *Body) {
		out = append(out, b.State())
	})
	return out
}

// ResetPositions puts every body back on its initial position with zero
// velocity.
func (e *Engine) ResetPositions() {
	e.ball.SetPosition(vec(e.arena.BallStart))
	e.ball.SetVelocity(zero)
	for _, id := range e.order {
		b := e.players[id]
		b.SetPosition(vec(e.arena.Slot(b.Team, b.slot)))
		b.SetVelocity(zero)
	}
}
