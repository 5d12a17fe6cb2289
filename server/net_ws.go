package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"peerball/logging"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	readLimit  = 1 << 20
)

// ClientConn 负责发送（写）数据到节点的轻量包装，Enqueue 与 Close
// 只在房间循环中调用
type ClientConn struct {
	ws   *websocket.Conn
	send chan []byte
}

func NewClientConn(ws *websocket.Conn) *ClientConn {
	return &ClientConn{
		ws:   ws,
		send: make(chan []byte, 256),
	}
}

// Enqueue 将要发送的帧压入队列（非阻塞，满则丢弃）
func (c *ClientConn) Enqueue(b []byte) {
	select {
	case c.send <- b:
	default:
		logging.Log.Debugw("peer send queue full, frame dropped")
	}
}

// Close 结束写协程，由写协程关闭底层连接
func (c *ClientConn) Close() {
	if c.send != nil {
		close(c.send)
		c.send = nil
	}
}

// writePump drains send, the channel the connection was created with, so it
// never reads the field Close resets.
func (c *ClientConn) writePump(send <-chan []byte) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()
	for {
		select {
		case msg, ok := <-send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump 读取节点帧，转换为 Input 注入房间，直到连接出错
func (c *ClientConn) readPump(room *Room, id PeerID) {
	defer c.ws.Close()
	defer room.RequestLeave(id, c)
	c.ws.SetReadLimit(readLimit)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error { c.ws.SetReadDeadline(time.Now().Add(pongWait)); return nil })

	for {
		_, payload, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logging.Log.Debugw("peer read failed", "room", room.ID, "peer", id, "err", err)
			}
			return
		}
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		f, err := decodeFrame(payload)
		if err != nil {
			room.metrics.IncInvalid()
			logging.Log.Debugw("invalid frame", "room", room.ID, "peer", id, "err", err)
			continue
		}
		room.OnInput(Input{From: id, Frame: f})
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// HandleWS upgrades ?room=room-1&peer=<id> and hands the peer to its room.
func HandleWS(rm *RoomManager, w http.ResponseWriter, r *http.Request) {
	roomID := r.URL.Query().Get("room")
	if roomID == "" {
		roomID = DefaultRoom
	}
	peerID := r.URL.Query().Get("peer")
	if peerID == "" {
		http.Error(w, "missing peer query", http.StatusBadRequest)
		return
	}

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Log.Warnw("upgrade failed", "err", err)
		return
	}

	room := rm.GetOrCreateRoom(roomID)
	client := NewClientConn(ws)
	go client.writePump(client.send)
	if !room.RequestJoin(PeerID(peerID), client) {
		client.Close()
		return
	}
	go client.readPump(room, PeerID(peerID))
}
