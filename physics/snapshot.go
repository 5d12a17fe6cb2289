package physics

import (
	"sort"

	"github.com/go-gl/mathgl/mgl64"

	"peerball/logging"
	"peerball/protocol"
)

// Snapshot captures the ball and every player body, tagged with the local
// frame count.
func (e *Engine) Snapshot() protocol.Snapshot {
	s := protocol.Snapshot{
		AtFrame: e.frames,
		Ball:    coordinates(e.ball),
		Players: make(map[string]protocol.Coordinates, len(e.order)),
	}
	for _, id := range e.order {
		s.Players[id] = coordinates(e.players[id])
	}
	return s
}

func coordinates(b *Body) protocol.Coordinates {
	return protocol.Coordinates{
		X:         b.Pos.X(),
		Y:         b.Pos.Y(),
		VelocityX: b.Vel.X(),
		VelocityY: b.Vel.Y(),
	}
}

// ApplyReport describes what ApplySnapshot did.
type ApplyReport struct {
	// Applied lists players corrected from the snapshot.
	Applied []string
	// Unknown lists snapshot players with no local body.
	Unknown []string
	// Missing lists local bodies absent from the snapshot; they are untouched.
	Missing []string
	// Aborted is set when strict mode stopped at an unknown player.
	Aborted bool
	// Drift is the local frame minus the snapshot frame.
	Drift int64
}

// ApplySnapshot merges an authoritative snapshot into the local simulation.
// The ball is hard-set. Players keep their interpolation state: they are
// translated by the positional delta and take the snapshot velocity.
func (e *Engine) ApplySnapshot(s protocol.Snapshot) ApplyReport {
	report := ApplyReport{Drift: e.frames - s.AtFrame}
	logging.Log.Debugw("applying snapshot",
		"frame", e.frames, "snapshotFrame", s.AtFrame,
		"drift", report.Drift, "framesSinceSync", e.framesSinceSync)
	e.framesSinceSync = 0
	e.lastSnapshotFrame = s.AtFrame

	e.ball.SetPosition(mgl64.Vec2{s.Ball.X, s.Ball.Y})
	e.ball.SetVelocity(mgl64.Vec2{s.Ball.VelocityX, s.Ball.VelocityY})

	ids := make([]string, 0, len(s.Players))
	for id := range s.Players {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		b, ok := e.players[id]
		if !ok {
			logging.Log.Warnw("snapshot references unknown player", "player", id, "strict", e.strict)
			report.Unknown = append(report.Unknown, id)
			if e.strict {
				report.Aborted = true
				break
			}
			continue
		}
		c := s.Players[id]
		b.Translate(mgl64.Vec2{c.X, c.Y}.Sub(b.Pos))
		b.SetVelocity(mgl64.Vec2{c.VelocityX, c.VelocityY})
		report.Applied = append(report.Applied, id)
	}

	for _, id := range e.order {
		if _, ok := s.Players[id]; !ok {
			logging.Log.Warnw("player not found in snapshot", "player", id)
			report.Missing = append(report.Missing, id)
		}
	}
	return report
}

// LastSnapshotFrame is the producer frame of the last applied snapshot.
func (e *Engine) LastSnapshotFrame() int64 {
	return e.lastSnapshotFrame
}
