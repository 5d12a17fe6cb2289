package session

import (
	"peerball/logging"
	"peerball/protocol"
)

// HandleConnect is called when a peer opens a link to us.
func (c *Controller) HandleConnect(peerID string) {
	c.post(func() { c.handleConnect(peerID) })
}

// HandleDialed is called when a link we opened with ConnectTo is ready.
func (c *Controller) HandleDialed(peerID string) {
	c.post(func() { c.handleDialed(peerID) })
}

func (c *Controller) HandleDisconnect(peerID string) {
	c.post(func() { c.handleDisconnect(peerID) })
}

func (c *Controller) HandleMessage(msg protocol.Message, from string) {
	c.post(func() { c.handleMessage(msg, from) })
}

func (c *Controller) handleConnect(peerID string) {
	if peerID == c.localID || c.game.Has(peerID) {
		return
	}
	logging.Log.Infow("peer connected", "peer", peerID, "players", c.game.Len())

	if c.game.Len() == 0 {
		if c.joined {
			// the host's roster is on its way
			return
		}
		c.game.add(protocol.NewPlayer(c.localID, c.name))
		c.game.add(protocol.NewPlayer(peerID, ""))
		c.engine.SyncRoster()
		logging.Log.Infow("roster seeded", "host", c.localID, "peer", peerID)
		c.broadcastGame()
		return
	}

	if !c.isHost() {
		return
	}
	c.game.add(protocol.NewPlayer(peerID, ""))
	c.engine.SyncRoster()
	c.broadcastGame()
}

func (c *Controller) handleDialed(peerID string) {
	if !c.pending[peerID] {
		return
	}
	delete(c.pending, peerID)
	logging.Log.Infow("joined peer", "peer", peerID, "name", c.name)
	c.send(protocol.Identify(c.name))
}

// handleDisconnect drops the roster entry. The next entry becomes host.
func (c *Controller) handleDisconnect(peerID string) {
	delete(c.pending, peerID)
	prevHost := c.game.HostID()
	if !c.game.remove(peerID) {
		return
	}
	c.engine.SyncRoster()
	logging.Log.Infow("peer disconnected", "peer", peerID, "players", c.game.Len())

	if host := c.game.HostID(); host != prevHost {
		logging.Log.Infow("host changed", "from", prevHost, "to", host, "local", host == c.localID)
	}
	if c.isHost() {
		c.broadcastGame()
	}
}

func (c *Controller) handleMessage(msg protocol.Message, from string) {
	c.metrics.IncMessagesIn()
	if err := msg.Validate(); err != nil {
		c.ignore(msg, from, err.Error())
		return
	}

	switch msg.Type {
	case protocol.TypeStartGame:
		if !c.fromHost(from) {
			c.ignore(msg, from, "not host")
			return
		}
		c.start()
	case protocol.TypeStopGame:
		if !c.fromHost(from) {
			c.ignore(msg, from, "not host")
			return
		}
		c.stop()
	case protocol.TypeIdentify:
		c.identify(from, msg.Name, msg)
	case protocol.TypeUpdateGame:
		c.updateGame(from, *msg.Game, msg)
	case protocol.TypeUpdateKeyboard:
		p := c.game.player(from)
		if p == nil {
			c.ignore(msg, from, "unknown player")
			return
		}
		p.Keyboard = *msg.Keyboard
	case protocol.TypeGameSnapshot:
		if c.isHost() {
			c.ignore(msg, from, "host is authoritative")
			return
		}
		c.applySnapshot(*msg.Snapshot)
	}
}

func (c *Controller) ignore(msg protocol.Message, from, reason string) {
	c.metrics.IncMessagesIgnored()
	logging.Log.Debugw("message ignored", "type", msg.Type, "from", from, "reason", reason)
}

func (c *Controller) fromHost(from string) bool {
	return c.game.Len() > 0 && c.game.HostID() == from
}

// alone reports whether the roster holds no participant but us.
func (c *Controller) alone() bool {
	switch c.game.Len() {
	case 0:
		return true
	case 1:
		return c.isHost()
	default:
		return false
	}
}

func (c *Controller) identify(from, name string, msg protocol.Message) {
	if !c.isHost() {
		c.ignore(msg, from, "not host")
		return
	}
	p := c.game.player(from)
	if p == nil {
		c.ignore(msg, from, "unknown player")
		return
	}
	if name == "" {
		name = protocol.NewPlayer(from, "").Name
	}
	p.Name = c.game.uniqueName(from, name)
	logging.Log.Infow("player identified", "player", from, "name", p.Name)
	c.broadcastGame()
}

// updateGame merges an authoritative roster and dials every participant we
// have no link to yet.
func (c *Controller) updateGame(from string, u protocol.GameUpdate, msg protocol.Message) {
	if !c.fromHost(from) && !c.alone() {
		c.ignore(msg, from, "not host")
		return
	}
	c.game.merge(u, c.localID)
	c.engine.SyncRoster()

	for _, p := range c.game.Players() {
		if p.ID == c.localID || c.transport.IsConnected(p.ID) {
			continue
		}
		if err := c.transport.ConnectTo(p.ID); err != nil {
			logging.Log.Warnw("connect to roster peer failed", "peer", p.ID, "err", err)
		}
	}
}

func (c *Controller) applySnapshot(s protocol.Snapshot) {
	r := c.engine.ApplySnapshot(s)
	c.metrics.AddApplied(len(r.Unknown), len(r.Missing), r.Aborted, r.Drift)
}
