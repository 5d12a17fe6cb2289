package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"peerball/logging"
	"peerball/protocol"
)

var (
	ErrClosed       = errors.New("transport: connection closed")
	ErrNotConnected = errors.New("transport: peer not connected")
	ErrQueueFull    = errors.New("transport: send queue full")
)

const (
	writeWait   = 5 * time.Second
	sendQueue   = 256
	readLimit   = 1 << 20
	defaultRoom = "room-1"
)

// Handler receives link and message events. The session controller
// implements it.
type Handler interface {
	HandleConnect(peerID string)
	HandleDialed(peerID string)
	HandleDisconnect(peerID string)
	HandleMessage(msg protocol.Message, from string)
}

type Options struct {
	// URL of the relay websocket endpoint, e.g. ws://localhost:8080/ws.
	URL  string
	Room string
	// PeerID defaults to a random UUID.
	PeerID string
	Codec  protocol.Codec
	Dialer *websocket.Dialer
}

// Client is one participant's connection to the relay. It implements the
// session Transport contract: links to other peers are opened and closed
// through the relay and messages go only to linked peers.
type Client struct {
	id    string
	room  string
	codec protocol.Codec
	ws    *websocket.Conn
	send  chan []byte

	mu    sync.RWMutex
	links map[string]bool

	closed    chan struct{}
	closeOnce sync.Once
}

// Dial connects to the relay and starts the write pump. Call Run to start
// delivering events.
func Dial(ctx context.Context, opts Options) (*Client, error) {
	u, err := url.Parse(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("parse relay url: %w", err)
	}
	id := opts.PeerID
	if id == "" {
		id = uuid.NewString()
	}
	room := opts.Room
	if room == "" {
		room = defaultRoom
	}
	codec := opts.Codec
	if codec == nil {
		codec = protocol.JSONCodec{}
	}
	dialer := opts.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}

	q := u.Query()
	q.Set("room", room)
	q.Set("peer", id)
	u.RawQuery = q.Encode()

	ws, _, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial relay %s: %w", u.Redacted(), err)
	}
	ws.SetReadLimit(readLimit)

	c := &Client{
		id:     id,
		room:   room,
		codec:  codec,
		ws:     ws,
		send:   make(chan []byte, sendQueue),
		links:  make(map[string]bool),
		closed: make(chan struct{}),
	}
	go c.writePump()
	logging.Log.Infow("relay connected", "peer", id, "room", room, "codec", codec.Name())
	return c, nil
}

func (c *Client) ID() string {
	return c.id
}

func (c *Client) Room() string {
	return c.room
}

// Peers returns the ids of every linked peer.
func (c *Client) Peers() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.links))
	for id := range c.links {
		out = append(out, id)
	}
	return out
}

func (c *Client) IsConnected(peerID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.links[peerID]
}

// Broadcast encodes msg once and queues it for every linked peer.
func (c *Client) Broadcast(msg protocol.Message) error {
	b, err := c.codec.Encode(msg)
	if err != nil {
		return err
	}
	var firstErr error
	for _, id := range c.Peers() {
		if err := c.enqueue(protocol.Frame{Kind: protocol.FrameData, To: id, Payload: b}); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// SendTo queues msg for a single linked peer.
func (c *Client) SendTo(peerID string, msg protocol.Message) error {
	if !c.IsConnected(peerID) {
		return ErrNotConnected
	}
	b, err := c.codec.Encode(msg)
	if err != nil {
		return err
	}
	return c.enqueue(protocol.Frame{Kind: protocol.FrameData, To: peerID, Payload: b})
}

// ConnectTo asks the relay for a link. The handler's HandleDialed fires once
// the relay confirms it.
func (c *Client) ConnectTo(peerID string) error {
	return c.enqueue(protocol.Frame{Kind: protocol.FrameConnect, To: peerID})
}

func (c *Client) DisconnectFrom(peerID string) error {
	c.mu.Lock()
	delete(c.links, peerID)
	c.mu.Unlock()
	return c.enqueue(protocol.Frame{Kind: protocol.FrameDisconnect, To: peerID})
}

// enqueue never blocks: a full queue drops the frame.
func (c *Client) enqueue(f protocol.Frame) error {
	b, err := json.Marshal(f)
	if err != nil {
		return err
	}
	select {
	case <-c.closed:
		return ErrClosed
	default:
	}
	select {
	case c.send <- b:
		return nil
	default:
		logging.Log.Debugw("send queue full, frame dropped", "kind", f.Kind, "to", f.To)
		return ErrQueueFull
	}
}

func (c *Client) writePump() {
	defer c.ws.Close()
	for {
		select {
		case b := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, b); err != nil {
				logging.Log.Warnw("relay write failed", "err", err)
				c.Close()
				return
			}
		case <-c.closed:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.ws.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// Run reads relay frames and dispatches them to h until the connection
// closes or ctx is done. Every linked peer is reported disconnected on exit.
func (c *Client) Run(ctx context.Context, h Handler) error {
	stop := context.AfterFunc(ctx, c.Close)
	defer stop()
	defer c.dropLinks(h)

	for {
		_, payload, err := c.ws.ReadMessage()
		if err != nil {
			c.Close()
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("read relay: %w", err)
		}
		var f protocol.Frame
		if err := json.Unmarshal(payload, &f); err != nil {
			logging.Log.Warnw("bad relay frame", "err", err)
			continue
		}
		c.dispatch(f, h)
	}
}

func (c *Client) dispatch(f protocol.Frame, h Handler) {
	switch f.Kind {
	case protocol.FrameOpen:
		c.link(f.From)
		h.HandleConnect(f.From)
	case protocol.FrameDialed:
		c.link(f.From)
		h.HandleDialed(f.From)
	case protocol.FrameData:
		if !c.IsConnected(f.From) {
			logging.Log.Debugw("data from unlinked peer dropped", "from", f.From)
			return
		}
		msg, err := c.codec.Decode(f.Payload)
		if err != nil {
			logging.Log.Warnw("undecodable message", "from", f.From, "err", err)
			return
		}
		h.HandleMessage(msg, f.From)
	case protocol.FrameClose:
		if c.unlink(f.From) {
			h.HandleDisconnect(f.From)
		}
	case protocol.FrameError:
		logging.Log.Warnw("relay error", "peer", f.From, "err", f.Error)
	default:
		logging.Log.Debugw("unknown relay frame", "kind", f.Kind)
	}
}

func (c *Client) link(id string) {
	c.mu.Lock()
	c.links[id] = true
	c.mu.Unlock()
}

func (c *Client) unlink(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.links[id] {
		return false
	}
	delete(c.links, id)
	return true
}

func (c *Client) dropLinks(h Handler) {
	for _, id := range c.Peers() {
		if c.unlink(id) {
			h.HandleDisconnect(id)
		}
	}
}

// Close shuts the connection down. It is safe to call more than once.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.closed)
		logging.Log.Infow("relay connection closed", "peer", c.id)
	})
}
