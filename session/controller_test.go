package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"peerball/arena"
	"peerball/protocol"
)

type fakeTransport struct {
	mu        sync.Mutex
	id        string
	sent      []protocol.Message
	connected map[string]bool
	dialed    []string
	dropped   []string
	dialErr   error
}

func newFakeTransport(id string) *fakeTransport {
	return &fakeTransport{id: id, connected: make(map[string]bool)}
}

func (f *fakeTransport) ID() string { return f.id }

func (f *fakeTransport) Broadcast(msg protocol.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeTransport) ConnectTo(id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.dialErr != nil {
		return f.dialErr
	}
	f.dialed = append(f.dialed, id)
	return nil
}

func (f *fakeTransport) DisconnectFrom(id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dropped = append(f.dropped, id)
	delete(f.connected, id)
	return nil
}

func (f *fakeTransport) IsConnected(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected[id]
}

func (f *fakeTransport) messages(typ protocol.MessageType) []protocol.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []protocol.Message
	for _, m := range f.sent {
		if m.Type == typ {
			out = append(out, m)
		}
	}
	return out
}

func (f *fakeTransport) last(typ protocol.MessageType) (protocol.Message, bool) {
	msgs := f.messages(typ)
	if len(msgs) == 0 {
		return protocol.Message{}, false
	}
	return msgs[len(msgs)-1], true
}

func (f *fakeTransport) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = nil
	f.dialed = nil
	f.dropped = nil
}

func newTestController(t *testing.T, id string) (*Controller, *fakeTransport) {
	t.Helper()
	ft := newFakeTransport(id)
	return New(ft, Options{Name: "name-" + id}), ft
}

// rosterOf builds an update the way a host would send it.
func rosterOf(ids ...string) protocol.GameUpdate {
	g := protocol.Game{ScoreLimit: protocol.DefaultScoreLimit}
	for _, id := range ids {
		g.Players = append(g.Players, protocol.NewPlayer(id, ""))
	}
	return g.Full()
}

func ids(players []protocol.Player) []string {
	out := make([]string, len(players))
	for i, p := range players {
		out[i] = p.ID
	}
	return out
}

func equalIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestFirstConnectionMakesLocalHost(t *testing.T) {
	c, ft := newTestController(t, "h")

	c.handleConnect("g")

	if got := ids(c.game.Players()); !equalIDs(got, []string{"h", "g"}) {
		t.Fatalf("roster = %v, want [h g]", got)
	}
	if !c.isHost() {
		t.Fatalf("first participant is not host")
	}
	m, ok := ft.last(protocol.TypeUpdateGame)
	if !ok || len(m.Game.Players) != 2 {
		t.Fatalf("roster not broadcast: %+v", ft.sent)
	}
	if c.game.Players()[0].Name != "name-h" || c.game.Players()[1].Name != "Player g" {
		t.Fatalf("names = %+v", c.game.Players())
	}

	c.handleConnect("x")
	if got := ids(c.game.Players()); !equalIDs(got, []string{"h", "g", "x"}) {
		t.Fatalf("host did not append: %v", got)
	}
}

func TestGuestAcceptsRosterAndDialsMissingPeers(t *testing.T) {
	c, ft := newTestController(t, "g")
	ft.connected["h"] = true

	c.handleMessage(protocol.UpdateGame(rosterOf("h", "g", "x")), "h")

	if got := ids(c.game.Players()); !equalIDs(got, []string{"h", "g", "x"}) {
		t.Fatalf("roster = %v", got)
	}
	if c.isHost() {
		t.Fatalf("guest thinks it is host")
	}
	if !equalIDs(ft.dialed, []string{"x"}) {
		t.Fatalf("dialed = %v, want [x]", ft.dialed)
	}
}

func TestJoinWaitsForHostRoster(t *testing.T) {
	c, ft := newTestController(t, "g")

	if err := c.join("h"); err != nil {
		t.Fatalf("join: %v", err)
	}
	if !equalIDs(ft.dialed, []string{"h"}) {
		t.Fatalf("dialed = %v", ft.dialed)
	}

	// another guest dials us before the host roster arrives
	c.handleConnect("x")
	if c.game.Len() != 0 {
		t.Fatalf("joining participant seeded its own roster: %v", ids(c.game.Players()))
	}

	c.handleDialed("h")
	m, ok := ft.last(protocol.TypeIdentify)
	if !ok || m.Name != "name-g" {
		t.Fatalf("identify not sent: %+v", ft.sent)
	}
	c.handleDialed("h")
	if n := len(ft.messages(protocol.TypeIdentify)); n != 1 {
		t.Fatalf("identify sent %d times", n)
	}
}

func TestJoinRejectsBadPeer(t *testing.T) {
	c, ft := newTestController(t, "g")
	if err := c.join("g"); !errors.Is(err, ErrBadPeer) {
		t.Fatalf("err = %v, want ErrBadPeer", err)
	}
	ft.dialErr = errors.New("relay down")
	if err := c.join("h"); err == nil || c.pending["h"] {
		t.Fatalf("err = %v pending = %v", err, c.pending)
	}
}

func guestOf(t *testing.T, hostID, localID string, others ...string) (*Controller, *fakeTransport) {
	t.Helper()
	c, ft := newTestController(t, localID)
	c.handleMessage(protocol.UpdateGame(rosterOf(append([]string{hostID, localID}, others...)...)), hostID)
	ft.reset()
	return c, ft
}

func TestHostOnlyActionsAreNoOpsOnGuest(t *testing.T) {
	c, ft := guestOf(t, "h", "g", "x")
	before := c.game.snapshot()

	c.kick("x")
	c.changeTeam("h", arena.TeamRed)
	c.splitTeams()
	c.handleConnect("y")
	c.handleMessage(protocol.Identify("mallory"), "x")
	c.handleGoal(arena.TeamRed)
	if c.setScoreLimit(9) {
		t.Fatalf("guest changed the score limit")
	}

	after := c.game.snapshot()
	if !equalIDs(ids(after.Players), ids(before.Players)) || after.Score != before.Score || after.ScoreLimit != before.ScoreLimit {
		t.Fatalf("guest state changed: %+v -> %+v", before, after)
	}
	for _, p := range after.Players {
		if p.Team != arena.TeamSpectator || p.Name != "Player "+p.ID {
			t.Fatalf("player mutated: %+v", p)
		}
	}
	if len(ft.sent) != 0 || len(ft.dropped) != 0 {
		t.Fatalf("guest sent %+v dropped %v", ft.sent, ft.dropped)
	}
}

func TestUpdateGameFromNonHostIgnored(t *testing.T) {
	c, _ := newTestController(t, "h")
	c.handleConnect("g")

	c.handleMessage(protocol.UpdateGame(rosterOf("g", "h")), "g")

	if got := ids(c.game.Players()); !equalIDs(got, []string{"h", "g"}) {
		t.Fatalf("roster hijacked: %v", got)
	}
	if c.metrics.MessagesIgnored != 1 {
		t.Fatalf("ignored = %d", c.metrics.MessagesIgnored)
	}
}

func TestIdentifyDisambiguatesNames(t *testing.T) {
	c, ft := newTestController(t, "h")
	c.changeName("h", "alice")
	c.handleConnect("g")
	c.handleConnect("k")

	c.handleMessage(protocol.Identify("alice"), "g")
	c.handleMessage(protocol.Identify("alice"), "k")
	c.handleMessage(protocol.Identify("bob"), "nobody")

	names := []string{}
	for _, p := range c.game.Players() {
		names = append(names, p.Name)
	}
	if !equalIDs(names, []string{"alice", "alice(1)", "alice(2)"}) {
		t.Fatalf("names = %v", names)
	}
	m, _ := ft.last(protocol.TypeUpdateGame)
	if m.Game.Players[2].Name != "alice(2)" {
		t.Fatalf("rename not broadcast: %+v", m.Game.Players)
	}
}

func TestRenameBeforeRosterOnlySetsLocalName(t *testing.T) {
	c, ft := newTestController(t, "h")
	c.changeName("h", "zed")
	if c.name != "zed" || len(ft.sent) != 0 {
		t.Fatalf("name = %q sent = %+v", c.name, ft.sent)
	}

	g, gft := guestOf(t, "h", "g")
	g.changeName("g", "gina")
	m, ok := gft.last(protocol.TypeIdentify)
	if !ok || m.Name != "gina" {
		t.Fatalf("guest rename did not identify: %+v", gft.sent)
	}
}

func hostWithTeams(t *testing.T) (*Controller, *fakeTransport) {
	t.Helper()
	c, ft := newTestController(t, "h")
	c.handleConnect("g")
	c.splitTeams()
	ft.reset()
	return c, ft
}

func TestScoreLimitResetsAndStops(t *testing.T) {
	c, ft := hostWithTeams(t)
	c.setScoreLimit(2)
	c.start()
	c.game.player("g").Keyboard = protocol.Keyboard{Left: true}

	c.handleGoal(arena.TeamRed)
	if s := c.game.Score(); s.Red != 1 || s.Blue != 0 {
		t.Fatalf("score = %+v", s)
	}
	if !c.game.player("g").Keyboard.IsZero() {
		t.Fatalf("keyboards not cleared")
	}
	if !c.running {
		t.Fatalf("stopped before the limit")
	}

	c.handleGoal(arena.TeamRed)
	if s := c.game.Score(); s != (protocol.Score{}) {
		t.Fatalf("score = %+v, want reset", s)
	}
	if c.running || c.physicsTicker != nil {
		t.Fatalf("match still running at the limit")
	}
	if len(ft.messages(protocol.TypeStopGame)) != 1 {
		t.Fatalf("stopGame not broadcast: %+v", ft.sent)
	}
	m, _ := ft.last(protocol.TypeUpdateGame)
	if *m.Game.Score != (protocol.Score{}) {
		t.Fatalf("last broadcast score = %+v", *m.Game.Score)
	}
}

func TestStartAndStopAreIdempotent(t *testing.T) {
	c, ft := hostWithTeams(t)

	c.stop()
	if len(ft.messages(protocol.TypeStopGame)) != 0 {
		t.Fatalf("stop on idle match broadcast")
	}

	c.start()
	ticker := c.physicsTicker
	c.start()
	if c.physicsTicker != ticker {
		t.Fatalf("second start replaced the timers")
	}
	if n := len(ft.messages(protocol.TypeStartGame)); n != 1 {
		t.Fatalf("startGame sent %d times", n)
	}

	c.stop()
	c.stop()
	if n := len(ft.messages(protocol.TypeStopGame)); n != 1 {
		t.Fatalf("stopGame sent %d times", n)
	}
	if c.forceTicker != nil || c.syncTicker != nil {
		t.Fatalf("timers left after stop")
	}
}

func TestStartGameOnlyFromHost(t *testing.T) {
	c, _ := guestOf(t, "h", "g", "x")

	c.handleMessage(protocol.StartGame(), "x")
	if c.running {
		t.Fatalf("started by a non-host")
	}
	c.handleMessage(protocol.StartGame(), "h")
	if !c.running {
		t.Fatalf("host start ignored")
	}
	c.handleMessage(protocol.StopGame(), "h")
	if c.running {
		t.Fatalf("host stop ignored")
	}
}

func TestSoloStartSeedsRoster(t *testing.T) {
	c, _ := newTestController(t, "h")
	c.start()
	defer c.stop()
	if !equalIDs(ids(c.game.Players()), []string{"h"}) || !c.isHost() {
		t.Fatalf("roster = %v", ids(c.game.Players()))
	}
}

func TestDisconnectPromotesNextEntry(t *testing.T) {
	c, ft := guestOf(t, "h", "g", "x")

	c.handleDisconnect("h")

	if got := ids(c.game.Players()); !equalIDs(got, []string{"g", "x"}) {
		t.Fatalf("roster = %v", got)
	}
	if !c.isHost() {
		t.Fatalf("next entry not promoted")
	}
	if _, ok := ft.last(protocol.TypeUpdateGame); !ok {
		t.Fatalf("new host did not rebroadcast")
	}

	y, yft := newTestController(t, "y")
	y.handleMessage(protocol.UpdateGame(rosterOf("h", "x", "y")), "h")
	yft.reset()
	y.handleDisconnect("h")
	if y.isHost() {
		t.Fatalf("x is next in line, y must not become host")
	}
	if len(yft.sent) != 0 {
		t.Fatalf("non-host rebroadcast: %+v", yft.sent)
	}

	y.handleDisconnect("unknown")
	if y.game.Len() != 2 {
		t.Fatalf("unknown disconnect changed roster")
	}
}

func TestKickRemovesAndDisconnects(t *testing.T) {
	c, ft := hostWithTeams(t)

	c.kick("g")

	if c.game.Has("g") {
		t.Fatalf("kicked player still in roster")
	}
	if !equalIDs(ft.dropped, []string{"g"}) {
		t.Fatalf("dropped = %v", ft.dropped)
	}
	if _, ok := c.engine.Player("g"); ok {
		t.Fatalf("kicked player kept a body")
	}
	c.kick("h")
	if !c.game.Has("h") {
		t.Fatalf("host kicked itself")
	}
}

func TestChangeTeamUpdatesBodies(t *testing.T) {
	c, ft := newTestController(t, "h")
	c.handleConnect("g")

	c.changeTeam("g", arena.TeamBlue)
	if _, ok := c.engine.Player("g"); !ok {
		t.Fatalf("no body after joining blue")
	}
	c.changeTeam("nobody", arena.TeamRed)
	c.changeTeam("g", arena.TeamSpectator)
	if _, ok := c.engine.Player("g"); ok {
		t.Fatalf("spectator kept a body")
	}
	if n := len(ft.messages(protocol.TypeUpdateGame)); n != 3 {
		t.Fatalf("updateGame sent %d times, want 3", n)
	}
}

func TestSnapshotRouting(t *testing.T) {
	snap := protocol.GameSnapshot(protocol.Snapshot{
		AtFrame: 7,
		Ball:    protocol.Coordinates{X: 321, Y: 123},
	})

	host, _ := hostWithTeams(t)
	host.handleMessage(snap, "g")
	if b := host.engine.Ball(); b.X == 321 {
		t.Fatalf("host applied a snapshot")
	}

	guest, _ := guestOf(t, "h", "g")
	guest.handleMessage(snap, "h")
	if b := guest.engine.Ball(); b.X != 321 || b.Y != 123 {
		t.Fatalf("guest ball = (%v,%v)", b.X, b.Y)
	}
	if guest.metrics.SnapshotsApplied != 1 || guest.metrics.LastDrift != -7 {
		t.Fatalf("metrics = %+v", guest.metrics.Snapshot())
	}
}

func TestLocalInputSharedOnlyWhenPlaying(t *testing.T) {
	c, ft := newTestController(t, "h")
	c.handleConnect("g")
	ft.reset()

	c.setLocalInput(protocol.Keyboard{Up: true})
	if len(ft.sent) != 0 {
		t.Fatalf("spectator input broadcast")
	}

	c.changeTeam("h", arena.TeamRed)
	ft.reset()
	c.setLocalInput(protocol.Keyboard{Up: true})
	c.setLocalInput(protocol.Keyboard{Up: true})
	if n := len(ft.messages(protocol.TypeUpdateKeyboard)); n != 1 {
		t.Fatalf("updateKeyboard sent %d times, want 1", n)
	}

	c.handleMessage(protocol.UpdateKeyboard(protocol.Keyboard{Kick: true}), "g")
	if !c.game.player("g").Keyboard.Kick {
		t.Fatalf("remote keyboard not recorded")
	}
}

// teamRoster is rosterOf with even entries red and odd entries blue.
func teamRoster(ids ...string) protocol.GameUpdate {
	u := rosterOf(ids...)
	for i := range u.Players {
		u.Players[i].Team = arena.TeamRed
		if i%2 == 1 {
			u.Players[i].Team = arena.TeamBlue
		}
	}
	return u
}

func TestLocalReleaseSurvivesStaleRoster(t *testing.T) {
	c, ft := newTestController(t, "g")
	stale := teamRoster("h", "g")
	c.handleMessage(protocol.UpdateGame(stale), "h")
	ft.reset()

	c.setLocalInput(protocol.Keyboard{Right: true})
	// the host rebroadcasts before our key press reached it
	c.handleMessage(protocol.UpdateGame(stale), "h")
	if !c.game.player("g").Keyboard.Right {
		t.Fatalf("roster merge overwrote the local Input State")
	}
	c.setLocalInput(protocol.Keyboard{})

	sent := ft.messages(protocol.TypeUpdateKeyboard)
	if len(sent) != 2 {
		t.Fatalf("updateKeyboard sent %d times, want press and release", len(sent))
	}
	if !sent[1].Keyboard.IsZero() {
		t.Fatalf("last input sent = %+v, want release", *sent[1].Keyboard)
	}
}

func TestForceTickBroadcastsEarlyOnHost(t *testing.T) {
	c, ft := hostWithTeams(t)
	c.start()
	ft.reset()

	c.forceTick()
	if n := len(ft.messages(protocol.TypeGameSnapshot)); n != 0 {
		t.Fatalf("idle force tick sent %d snapshots", n)
	}

	c.game.player("h").Keyboard = protocol.Keyboard{Right: true}
	c.forceTick()
	if n := len(ft.messages(protocol.TypeGameSnapshot)); n != 1 {
		t.Fatalf("snapshots after applied force = %d, want 1", n)
	}
	if m := c.metrics.Snapshot(); m["forces_applied"].(int64) != 1 || m["force_ticks"].(int64) != 2 {
		t.Fatalf("metrics = %+v", m)
	}
	c.stop()
}

func TestForceTickSilentOnGuestAndStoppedHost(t *testing.T) {
	g, gft := newTestController(t, "g")
	g.handleMessage(protocol.UpdateGame(teamRoster("h", "g")), "h")
	g.handleMessage(protocol.StartGame(), "h")
	defer g.stop()
	gft.reset()
	g.game.player("g").Keyboard = protocol.Keyboard{Right: true}
	g.forceTick()
	if len(gft.messages(protocol.TypeGameSnapshot)) != 0 || g.metrics.Snapshot()["forces_applied"].(int64) != 0 {
		t.Fatalf("guest force tick broadcast or applied forces")
	}

	h, hft := hostWithTeams(t)
	h.game.player("h").Keyboard = protocol.Keyboard{Right: true}
	h.forceTick()
	if n := len(hft.messages(protocol.TypeGameSnapshot)); n != 0 {
		t.Fatalf("stopped host sent %d snapshots", n)
	}
}

func TestRunBroadcastsSnapshots(t *testing.T) {
	ft := newFakeTransport("h")
	c := New(ft, Options{SyncHz: 50})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()

	c.Start()
	deadline := time.Now().Add(2 * time.Second)
	for len(ft.messages(protocol.TypeGameSnapshot)) == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("no snapshot broadcast")
		}
		time.Sleep(10 * time.Millisecond)
	}

	v := c.State()
	if !v.Running || !v.Host || len(v.Bodies) != 1 {
		t.Fatalf("view = %+v", v)
	}
	if !c.SetScoreLimit(3) {
		t.Fatalf("solo host could not set the limit")
	}

	cancel()
	<-done
	if err := c.Join("x"); !errors.Is(err, ErrStopped) {
		t.Fatalf("join after stop: %v", err)
	}
}
