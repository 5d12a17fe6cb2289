package session

import (
	"peerball/arena"
	"peerball/logging"
	"peerball/physics"
	"peerball/protocol"
)

// Start begins the local match. The host also announces it.
func (c *Controller) Start() {
	c.post(c.start)
}

func (c *Controller) Stop() {
	c.post(c.stop)
}

// Join dials peerID and identifies once the link is open.
func (c *Controller) Join(peerID string) error {
	var err error
	if !c.do(func() { err = c.join(peerID) }) {
		return ErrStopped
	}
	return err
}

func (c *Controller) SplitTeams() {
	c.post(c.splitTeams)
}

func (c *Controller) ChangeTeam(playerID string, team arena.Team) {
	c.post(func() { c.changeTeam(playerID, team) })
}

func (c *Controller) ChangeName(playerID, name string) {
	c.post(func() { c.changeName(playerID, name) })
}

func (c *Controller) Kick(playerID string) {
	c.post(func() { c.kick(playerID) })
}

// SetLocalInput records the local Input State and shares it.
func (c *Controller) SetLocalInput(k protocol.Keyboard) {
	c.post(func() { c.setLocalInput(k) })
}

// SetScoreLimit changes the limit; only the host may do so once a roster
// exists.
func (c *Controller) SetScoreLimit(limit int) bool {
	var ok bool
	if !c.do(func() { ok = c.setScoreLimit(limit) }) {
		return false
	}
	return ok
}

func (c *Controller) join(peerID string) error {
	if peerID == "" || peerID == c.localID {
		return ErrBadPeer
	}
	c.joined = true
	c.pending[peerID] = true
	if err := c.transport.ConnectTo(peerID); err != nil {
		delete(c.pending, peerID)
		return err
	}
	return nil
}

func (c *Controller) splitTeams() {
	if !c.isHost() {
		return
	}
	c.game.splitTeams()
	c.engine.SyncRoster()
	c.broadcastGame()
}

func (c *Controller) changeTeam(playerID string, team arena.Team) {
	if !c.isHost() {
		return
	}
	p := c.game.player(playerID)
	if p == nil || p.Team == team {
		return
	}
	p.Team = team
	c.engine.SyncRoster()
	logging.Log.Infow("team changed", "player", playerID, "team", team)
	c.broadcastGame()
}

// changeName renames a roster entry. Before any roster exists it only sets
// the local display name; a guest renaming itself asks the host through
// identify.
func (c *Controller) changeName(playerID, name string) {
	if playerID == c.localID {
		c.name = name
		if c.game.Len() == 0 {
			return
		}
		if !c.isHost() {
			c.send(protocol.Identify(name))
			return
		}
	}
	if !c.isHost() {
		return
	}
	p := c.game.player(playerID)
	if p == nil || p.Name == name {
		return
	}
	p.Name = name
	c.broadcastGame()
}

func (c *Controller) kick(playerID string) {
	if !c.isHost() || playerID == c.localID {
		return
	}
	if !c.game.remove(playerID) {
		return
	}
	c.engine.SyncRoster()
	logging.Log.Infow("player kicked", "player", playerID)
	c.broadcastGame()
	if err := c.transport.DisconnectFrom(playerID); err != nil {
		logging.Log.Warnw("disconnect kicked player failed", "player", playerID, "err", err)
	}
}

// setLocalInput records k and shares it when it differs from the last Input
// State sent. Roster copies from the host may lag behind what was sent, so
// they are not compared.
func (c *Controller) setLocalInput(k protocol.Keyboard) {
	p := c.game.player(c.localID)
	if p == nil || !p.Team.Playing() {
		return
	}
	p.Keyboard = k
	if k == c.sentInput {
		return
	}
	c.sentInput = k
	c.send(protocol.UpdateKeyboard(k))
}

func (c *Controller) setScoreLimit(limit int) bool {
	if limit < 1 || (c.game.Len() > 0 && !c.isHost()) {
		return false
	}
	c.game.state.ScoreLimit = limit
	logging.Log.Infow("score limit changed", "limit", limit)
	if c.game.Len() > 0 {
		c.broadcastGame()
	}
	return true
}

// View is a read-only copy of the controller state for views and the admin
// API.
type View struct {
	LocalID         string
	Name            string
	Host            bool
	Running         bool
	Game            protocol.Game
	Bodies          []physics.BodyState
	Frame           int64
	FramesSinceSync int64
}

// State returns the current view. The zero View is returned once Run has
// exited.
func (c *Controller) State() View {
	var v View
	c.do(func() { v = c.view() })
	return v
}

func (c *Controller) view() View {
	return View{
		LocalID:         c.localID,
		Name:            c.name,
		Host:            c.isHost(),
		Running:         c.running,
		Game:            c.game.snapshot(),
		Bodies:          c.engine.Bodies(),
		Frame:           c.engine.Frame(),
		FramesSinceSync: c.engine.FramesSinceSync(),
	}
}
