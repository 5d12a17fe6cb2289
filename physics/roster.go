package physics

import (
	"peerball/arena"
	"peerball/logging"
	"peerball/protocol"
)

// SyncRoster reconciles the body set with the roster: a body for every new
// non-spectator, none for players who left or became spectators, and a
// recoloured body (left where it is) for team changes.
func (e *Engine) SyncRoster() {
	players := e.roster.Players()
	wanted := make(map[string]protocol.Player, len(players))
	for _, p := range players {
		if p.Team.Playing() {
			wanted[p.ID] = p
		}
	}

	for _, id := range append([]string(nil), e.order...) {
		if _, ok := wanted[id]; !ok {
			e.removePlayer(id)
		}
	}

	for _, p := range players {
		if !p.Team.Playing() {
			continue
		}
		b, ok := e.players[p.ID]
		if !ok {
			e.addPlayer(p.ID, p.Team)
			continue
		}
		if b.Team != p.Team {
			b.Team = p.Team
			b.Color = e.arena.Color(p.Team)
			b.slot = e.freeSlot(p.Team, b)
			logging.Log.Debugw("player changed team", "player", p.ID, "team", p.Team)
		}
	}
}

func (e *Engine) addPlayer(id string, team arena.Team) {
	b := newPlayer(id, team, e.arena.Color(team))
	b.slot = e.freeSlot(team, nil)
	b.SetPosition(vec(e.arena.Slot(team, b.slot)))
	e.attach(b, "player")
	e.players[id] = b
	e.order = append(e.order, id)
	logging.Log.Debugw("player body created", "player", id, "team", team, "slot", b.slot)
}

func (e *Engine) removePlayer(id string) {
	b, ok := e.players[id]
	if !ok {
		return
	}
	e.detach(b)
	delete(e.players, id)
	for i, oid := range e.order {
		if oid == id {
			e.order = append(e.order[:i], e.order[i+1:]...)
			break
		}
	}
	logging.Log.Debugw("player body removed", "player", id)
}

// freeSlot returns the lowest initial-position slot of team not held by
// another body, or 0 when the table is full.
func (e *Engine) freeSlot(team arena.Team, except *Body) int {
	used := make(map[int]bool)
	for _, id := range e.order {
		b := e.players[id]
		if b != except && b.Team == team {
			used[b.slot] = true
		}
	}
	for i := range e.arena.Slots(team) {
		if !used[i] {
			return i
		}
	}
	return 0
}
