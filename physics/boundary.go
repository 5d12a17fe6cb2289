package physics

import (
	"math"

	"peerball/arena"
	"peerball/logging"
)

// resolveBoundaries runs after every integration step. A ball inside a goal
// mouth scores and resets the field; otherwise every body is clamped back
// into the playable rectangle. It reports whether a goal was scored.
func (e *Engine) resolveBoundaries() bool {
	ball := arena.Pos{X: e.ball.Pos.X(), Y: e.ball.Pos.Y()}
	for _, g := range e.arena.Goals {
		if !g.InMouth(ball, e.arena.Width) {
			continue
		}
		logging.Log.Debugw("goal mouth entered", "scorer", g.Scorer, "x", ball.X, "y", ball.Y, "frame", e.frames)
		if e.onGoal != nil {
			e.onGoal(g.Scorer)
		}
		e.ResetPositions()
		return true
	}

	e.forEachBody(e.clamp)
	return false
}

// bounds returns the rectangle a body's centre must stay in.
func (e *Engine) bounds(b *Body) (minX, minY, maxX, maxY float64) {
	if b.Kind == KindBall {
		m := b.Radius + BallEdgeMargin
		return m, m, e.arena.Width - m, e.arena.Height - m
	}
	return b.Radius, b.Radius,
		e.arena.Width - b.Radius - PlayerEdgeMargin,
		e.arena.Height - b.Radius - PlayerEdgeMargin
}

// clamp corrects both axes independently so a body outside on both axes
// lands on the corner in a single pass.
func (e *Engine) clamp(b *Body) {
	minX, minY, maxX, maxY := e.bounds(b)
	x, vx, cx := clampAxis(b.Pos.X(), b.Vel.X(), minX, maxX)
	y, vy, cy := clampAxis(b.Pos.Y(), b.Vel.Y(), minY, maxY)
	if !cx && !cy {
		return
	}
	b.Pos[0], b.Pos[1] = x, y
	b.Vel[0], b.Vel[1] = vx, vy
	b.syncObject()
}

func clampAxis(p, v, lo, hi float64) (float64, float64, bool) {
	switch {
	case p > hi:
		return hi, -rebound(v), true
	case p < lo:
		return lo, rebound(v), true
	default:
		return p, v, false
	}
}

func rebound(v float64) float64 {
	return math.Max(math.Abs(v)*BoundaryDamping, MinReboundSpeed)
}
