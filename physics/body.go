package physics

import (
	"math"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/solarlune/resolv"

	"peerball/arena"
)

type Kind uint8

const (
	KindBall Kind = iota
	KindPlayer
)

func (k Kind) String() string {
	if k == KindBall {
		return "ball"
	}
	return "player"
}

// Body is a dynamic circle: the ball or one player.
type Body struct {
	ID   string
	Kind Kind
	Team arena.Team

	Pos mgl64.Vec2
	Vel mgl64.Vec2
	// PrevPos is the position before the last integration step. Renderers
	// interpolate between PrevPos and Pos.
	PrevPos mgl64.Vec2

	Radius      float64
	Mass        float64
	Restitution float64
	Category    uint32
	Mask        uint32

	Color         string
	KickIndicator bool

	slot           int
	lastForceApply time.Time
	obj            *resolv.Object
}

func newBall(a *arena.Arena) *Body {
	b := &Body{
		ID:          "",
		Kind:        KindBall,
		Radius:      BallRadius,
		Mass:        Density * math.Pi * BallRadius * BallRadius,
		Restitution: BallRestitution,
		Category:    arena.CategoryBall,
		Mask:        arena.CategoryDefault | arena.CategoryPlayer,
		Color:       a.BallColor,
	}
	b.SetPosition(vec(a.BallStart))
	return b
}

func newPlayer(id string, team arena.Team, color string) *Body {
	return &Body{
		ID:          id,
		Kind:        KindPlayer,
		Team:        team,
		Radius:      PlayerRadius,
		Mass:        Density * math.Pi * PlayerRadius * PlayerRadius,
		Restitution: PlayerRestitution,
		Category:    arena.CategoryPlayer,
		Mask:        arena.CategoryDefault | arena.CategoryBall | arena.CategoryPlayer,
		Color:       color,
	}
}

// SetPosition moves the body without interpolation.
func (b *Body) SetPosition(p mgl64.Vec2) {
	b.Pos = p
	b.PrevPos = p
	b.syncObject()
}

// Translate shifts the body and its interpolation origin by d.
func (b *Body) Translate(d mgl64.Vec2) {
	b.Pos = b.Pos.Add(d)
	b.PrevPos = b.PrevPos.Add(d)
	b.syncObject()
}

func (b *Body) SetVelocity(v mgl64.Vec2) {
	b.Vel = v
}

func (b *Body) inverseMass() float64 {
	if b.Mass <= 0 {
		return 0
	}
	return 1 / b.Mass
}

// syncObject keeps the broad-phase box centred on the body.
func (b *Body) syncObject() {
	if b.obj == nil {
		return
	}
	b.obj.X = b.Pos.X() - b.Radius
	b.obj.Y = b.Pos.Y() - b.Radius
	b.obj.Update()
}

// State returns a read-only copy for views and metrics.
func (b *Body) State() BodyState {
	return BodyState{
		ID:            b.ID,
		Kind:          b.Kind,
		Team:          b.Team,
		X:             b.Pos.X(),
		Y:             b.Pos.Y(),
		VX:            b.Vel.X(),
		VY:            b.Vel.Y(),
		Radius:        b.Radius,
		Color:         b.Color,
		KickIndicator: b.KickIndicator,
	}
}

type BodyState struct {
	ID            string
	Kind          Kind
	Team          arena.Team
	X, Y          float64
	VX, VY        float64
	Radius        float64
	Color         string
	KickIndicator bool
}

// interacts applies the category/mask rule to a pair.
func interacts(catA, maskA, catB, maskB uint32) bool {
	return maskA&catB != 0 && maskB&catA != 0
}

func vec(p arena.Pos) mgl64.Vec2 {
	return mgl64.Vec2{p.X, p.Y}
}

var zero mgl64.Vec2
