package physics

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"peerball/arena"
	"peerball/protocol"
)

func TestSyncRosterFollowsRoster(t *testing.T) {
	e, r, _ := newTestEngine(t, Options{},
		player("a", arena.TeamRed),
		player("b", arena.TeamBlue),
		player("s", arena.TeamSpectator),
	)

	// a moves, then switches team: recoloured, not relocated
	e.players["a"].SetPosition(mgl64.Vec2{300, 300})
	r.set("a", func(p *protocol.Player) { p.Team = arena.TeamBlue })
	// b becomes a spectator, s joins red
	r.set("b", func(p *protocol.Player) { p.Team = arena.TeamSpectator })
	r.set("s", func(p *protocol.Player) { p.Team = arena.TeamRed })
	r.players = append(r.players, player("n", arena.TeamBlue))

	e.SyncRoster()

	a := e.players["a"]
	if a.Team != arena.TeamBlue || a.Color != e.arena.Color(arena.TeamBlue) {
		t.Fatalf("a = team %s colour %s", a.Team, a.Color)
	}
	if a.Pos != (mgl64.Vec2{300, 300}) {
		t.Fatalf("team change relocated a to %v", a.Pos)
	}
	if _, ok := e.players["b"]; ok {
		t.Fatalf("spectator b kept its body")
	}
	if s, ok := e.Player("s"); !ok || s.X != 100 || s.Y != 200 {
		t.Fatalf("s = %+v, %v", s, ok)
	}
	// a holds blue slot 0, so n takes slot 1
	if n, ok := e.Player("n"); !ok || n.X != 800 || n.Y != 300 {
		t.Fatalf("n = %+v, %v", n, ok)
	}

	r.players = r.players[:1]
	e.SyncRoster()
	if len(e.Bodies()) != 2 {
		t.Fatalf("bodies after leave = %+v", e.Bodies())
	}
}

func TestResetUsesCurrentSlots(t *testing.T) {
	e, r, _ := newTestEngine(t, Options{}, player("a", arena.TeamRed), player("b", arena.TeamRed))
	r.set("a", func(p *protocol.Player) { p.Team = arena.TeamBlue })
	e.SyncRoster()

	e.ResetPositions()

	if a, _ := e.Player("a"); a.X != 800 || a.Y != 200 {
		t.Fatalf("a reset to (%v,%v)", a.X, a.Y)
	}
	if b, _ := e.Player("b"); b.X != 100 || b.Y != 300 {
		t.Fatalf("b reset to (%v,%v)", b.X, b.Y)
	}
}
