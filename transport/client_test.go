package transport

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"peerball/arena"
	"peerball/protocol"
	"peerball/server"
	"peerball/session"
)

type event struct {
	kind string
	peer string
	msg  protocol.Message
}

// recorder is a Handler that forwards every event to a channel.
type recorder struct {
	events chan event
}

func newRecorder() *recorder {
	return &recorder{events: make(chan event, 64)}
}

func (r *recorder) HandleConnect(id string)    { r.events <- event{kind: "connect", peer: id} }
func (r *recorder) HandleDialed(id string)     { r.events <- event{kind: "dialed", peer: id} }
func (r *recorder) HandleDisconnect(id string) { r.events <- event{kind: "disconnect", peer: id} }
func (r *recorder) HandleMessage(m protocol.Message, from string) {
	r.events <- event{kind: "message", peer: from, msg: m}
}

func (r *recorder) expect(t *testing.T, kind, peer string) event {
	t.Helper()
	select {
	case ev := <-r.events:
		if ev.kind != kind || ev.peer != peer {
			t.Fatalf("got %s from %s, want %s from %s", ev.kind, ev.peer, kind, peer)
		}
		return ev
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %s from %s", kind, peer)
	}
	return event{}
}

func startRelay(t *testing.T) (*server.RoomManager, string) {
	t.Helper()
	rm := server.NewRoomManager(server.SimConfig{})
	srv := httptest.NewServer(server.NewRouter(rm))
	t.Cleanup(func() {
		srv.Close()
		rm.Close()
	})
	return rm, "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func dial(t *testing.T, ctx context.Context, url, id string, codec protocol.Codec) *Client {
	t.Helper()
	c, err := Dial(ctx, Options{URL: url, Room: "match", PeerID: id, Codec: codec})
	if err != nil {
		t.Fatalf("Dial %s: %v", id, err)
	}
	t.Cleanup(c.Close)
	return c
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func waitPeers(t *testing.T, rm *server.RoomManager, n int) {
	t.Helper()
	waitFor(t, "peers to join", func() bool {
		return len(rm.GetOrCreateRoom("match").PeerStates()) == n
	})
}

func testClientPair(t *testing.T, codec protocol.Codec) {
	rm, url := startRelay(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, b := dial(t, ctx, url, "a", codec), dial(t, ctx, url, "b", codec)
	ra, rb := newRecorder(), newRecorder()
	go a.Run(ctx, ra)
	go b.Run(ctx, rb)
	waitPeers(t, rm, 2)

	if err := a.SendTo("b", protocol.StartGame()); err != ErrNotConnected {
		t.Fatalf("SendTo before link = %v, want ErrNotConnected", err)
	}

	if err := a.ConnectTo("b"); err != nil {
		t.Fatalf("ConnectTo: %v", err)
	}
	rb.expect(t, "connect", "a")
	ra.expect(t, "dialed", "b")
	if !a.IsConnected("b") || !b.IsConnected("a") {
		t.Fatalf("link not recorded on both sides")
	}

	if err := a.Broadcast(protocol.Identify("alice")); err != nil {
		t.Fatalf("Broadcast: %v", err)
	}
	ev := rb.expect(t, "message", "a")
	if ev.msg.Type != protocol.TypeIdentify || ev.msg.Name != "alice" {
		t.Fatalf("b received %+v", ev.msg)
	}

	if err := b.SendTo("a", protocol.StopGame()); err != nil {
		t.Fatalf("SendTo: %v", err)
	}
	if ev := ra.expect(t, "message", "b"); ev.msg.Type != protocol.TypeStopGame {
		t.Fatalf("a received %+v", ev.msg)
	}

	if err := a.DisconnectFrom("b"); err != nil {
		t.Fatalf("DisconnectFrom: %v", err)
	}
	rb.expect(t, "disconnect", "a")
	if a.IsConnected("b") || b.IsConnected("a") {
		t.Fatalf("link still recorded after disconnect")
	}
}

func TestClientPairJSON(t *testing.T)    { testClientPair(t, protocol.JSONCodec{}) }
func TestClientPairMsgpack(t *testing.T) { testClientPair(t, protocol.MsgpackCodec{}) }

func TestRunReportsLinksOnClose(t *testing.T) {
	rm, url := startRelay(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, b := dial(t, ctx, url, "a", nil), dial(t, ctx, url, "b", nil)
	ra, rb := newRecorder(), newRecorder()
	aCtx, stopA := context.WithCancel(ctx)
	aDone := make(chan error, 1)
	go func() { aDone <- a.Run(aCtx, ra) }()
	go b.Run(ctx, rb)
	waitPeers(t, rm, 2)

	b.ConnectTo("a")
	ra.expect(t, "connect", "b")
	rb.expect(t, "dialed", "a")

	stopA()
	ra.expect(t, "disconnect", "b")
	rb.expect(t, "disconnect", "a")
	select {
	case err := <-aDone:
		if err != context.Canceled {
			t.Fatalf("Run = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not return")
	}
	if err := a.Broadcast(protocol.StartGame()); err != nil {
		t.Fatalf("Broadcast with no links = %v", err)
	}
	if err := a.ConnectTo("b"); err != ErrClosed {
		t.Fatalf("ConnectTo after close = %v, want ErrClosed", err)
	}
}

func TestDefaultPeerID(t *testing.T) {
	_, url := startRelay(t)
	c, err := Dial(context.Background(), Options{URL: url})
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer c.Close()
	if len(c.ID()) != 36 || c.Room() != defaultRoom {
		t.Fatalf("id %q room %q", c.ID(), c.Room())
	}
}

// TestSessionsOverRelay runs two controllers against a real relay: the guest
// joins, both agree on the roster and the guest follows the host's match.
func TestSessionsOverRelay(t *testing.T) {
	rm, url := startRelay(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hc, gc := dial(t, ctx, url, "host", nil), dial(t, ctx, url, "guest", nil)
	host := session.New(hc, session.Options{Arena: arena.Classic(), Name: "alice", SyncHz: 50})
	guest := session.New(gc, session.Options{Arena: arena.Classic(), Name: "bob", SyncHz: 50})
	go host.Run(ctx)
	go guest.Run(ctx)
	go hc.Run(ctx, host)
	go gc.Run(ctx, guest)
	waitPeers(t, rm, 2)

	if err := guest.Join("host"); err != nil {
		t.Fatalf("Join: %v", err)
	}
	names := func(v session.View) string {
		var parts []string
		for _, p := range v.Game.Players {
			parts = append(parts, p.ID+"="+p.Name)
		}
		return strings.Join(parts, ",")
	}
	want := "host=alice,guest=bob"
	waitFor(t, "rosters to agree", func() bool {
		return names(host.State()) == want && names(guest.State()) == want
	})
	if !host.State().Host || guest.State().Host {
		t.Fatalf("host flags wrong")
	}

	host.SplitTeams()
	host.Start()
	waitFor(t, "guest to start and take snapshots", func() bool {
		v := guest.State()
		return v.Running && len(v.Bodies) == 3 &&
			guest.Metrics().Snapshot()["snapshots_applied"].(int64) > 0
	})
	for _, p := range guest.State().Game.Players {
		if !p.Team.Playing() {
			t.Fatalf("player %s not on a team after split", p.ID)
		}
	}

	host.Stop()
	waitFor(t, "guest to stop", func() bool { return !guest.State().Running })
}
