package physics

import (
	"math"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"peerball/protocol"
)

// ApplyForces reconciles bodies with the roster, then turns each player's
// Input State into velocity changes and kicks. Only the host applies forces;
// every participant mirrors the kick indicator. It reports whether anything
// was applied so the caller can broadcast early.
func (e *Engine) ApplyForces() bool {
	e.SyncRoster()

	host := e.isHost()
	now := e.now()
	applied := false
	for _, p := range e.roster.Players() {
		b, ok := e.players[p.ID]
		if !ok {
			continue
		}
		if e.applyInput(b, p.Keyboard, host, now) {
			applied = true
		}
	}
	return applied
}

func (e *Engine) applyInput(b *Body, k protocol.Keyboard, host bool, now time.Time) bool {
	b.KickIndicator = k.Kick
	if !host {
		return false
	}

	applied := false
	if b.lastForceApply.IsZero() || now.Sub(b.lastForceApply) > MinForceApplyInterval {
		v := clampVelocity(b.Vel.Add(inputDelta(k)), PlayerMaxVelocity)
		if v != b.Vel {
			b.SetVelocity(v)
			b.lastForceApply = now
			applied = true
		}
	}

	if k.Kick && e.kick(b) {
		applied = true
	}
	return applied
}

// inputDelta maps the directional flags to a velocity change. Opposing flags
// cancel.
func inputDelta(k protocol.Keyboard) mgl64.Vec2 {
	var d mgl64.Vec2
	if k.Right {
		d[0] += MovementVelocityChange
	}
	if k.Left {
		d[0] -= MovementVelocityChange
	}
	if k.Down {
		d[1] += MovementVelocityChange
	}
	if k.Up {
		d[1] -= MovementVelocityChange
	}
	return d
}

// clampVelocity caps each component on its own, so diagonal movement can
// reach limit*sqrt(2).
func clampVelocity(v mgl64.Vec2, limit float64) mgl64.Vec2 {
	return mgl64.Vec2{
		math.Min(math.Max(v.X(), -limit), limit),
		math.Min(math.Max(v.Y(), -limit), limit),
	}
}

// kick launches the ball away from the player when it is within reach.
func (e *Engine) kick(p *Body) bool {
	d := e.ball.Pos.Sub(p.Pos)
	dist := d.Len()
	if dist >= PlayerRadius+BallRadius+PlayerPowerKickRadius || dist == 0 {
		return false
	}
	dir := d.Mul(1 / dist)
	e.ball.SetVelocity(dir.Mul(BallForceMultiplier).Add(p.Vel))
	return true
}
