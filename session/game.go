package session

import (
	"fmt"

	"peerball/arena"
	"peerball/protocol"
)

// Game is the roster and score owned by the controller. The engine reads it
// through Players; every write goes through the methods below.
type Game struct {
	state protocol.Game
}

func newGame(scoreLimit int) *Game {
	if scoreLimit <= 0 {
		scoreLimit = protocol.DefaultScoreLimit
	}
	return &Game{state: protocol.Game{ScoreLimit: scoreLimit}}
}

// Players implements physics.Roster.
func (g *Game) Players() []protocol.Player {
	return g.state.Players
}

func (g *Game) Len() int {
	return len(g.state.Players)
}

// HostID returns the id at index 0, or "" for an empty roster.
func (g *Game) HostID() string {
	if len(g.state.Players) == 0 {
		return ""
	}
	return g.state.Players[0].ID
}

func (g *Game) index(id string) int {
	for i, p := range g.state.Players {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func (g *Game) Has(id string) bool {
	return g.index(id) >= 0
}

// player returns a pointer into the roster, or nil.
func (g *Game) player(id string) *protocol.Player {
	if i := g.index(id); i >= 0 {
		return &g.state.Players[i]
	}
	return nil
}

func (g *Game) add(p protocol.Player) {
	g.state.Players = append(g.state.Players, p)
}

func (g *Game) remove(id string) bool {
	i := g.index(id)
	if i < 0 {
		return false
	}
	g.state.Players = append(g.state.Players[:i], g.state.Players[i+1:]...)
	return true
}

// uniqueName disambiguates name against every other entry with the lowest
// free "(n)" suffix.
func (g *Game) uniqueName(id, name string) string {
	taken := func(n string) bool {
		for _, p := range g.state.Players {
			if p.ID != id && p.Name == n {
				return true
			}
		}
		return false
	}
	if !taken(name) {
		return name
	}
	for i := 1; ; i++ {
		if cand := fmt.Sprintf("%s(%d)", name, i); !taken(cand) {
			return cand
		}
	}
}

func (g *Game) clearKeyboards() {
	for i := range g.state.Players {
		g.state.Players[i].Keyboard = protocol.Keyboard{}
	}
}

// splitTeams puts even roster indexes on red and odd ones on blue.
func (g *Game) splitTeams() {
	for i := range g.state.Players {
		if i%2 == 0 {
			g.state.Players[i].Team = arena.TeamRed
		} else {
			g.state.Players[i].Team = arena.TeamBlue
		}
	}
}

func (g *Game) Score() protocol.Score {
	return g.state.Score
}

func (g *Game) ScoreLimit() int {
	return g.state.ScoreLimit
}

func (g *Game) full() protocol.GameUpdate {
	return g.state.Full()
}

// merge applies an inbound update. The local entry keeps its own Input State,
// which is always newer than the sender's copy.
func (g *Game) merge(u protocol.GameUpdate, localID string) {
	var kb protocol.Keyboard
	local := g.player(localID)
	if local != nil {
		kb = local.Keyboard
	}
	g.state.Merge(u)
	if p := g.player(localID); local != nil && p != nil {
		p.Keyboard = kb
	}
}

// snapshot returns a copy safe to hand to other goroutines.
func (g *Game) snapshot() protocol.Game {
	out := g.state
	out.Players = make([]protocol.Player, len(g.state.Players))
	copy(out.Players, g.state.Players)
	return out
}
