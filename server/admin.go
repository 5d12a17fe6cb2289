package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"peerball/logging"
)

// NewRouter serves the relay websocket endpoint and its admin API:
//
//	GET  /ws?room=room-1&peer=<id>  relay connection
//	GET  /admin/config?room=room-1  current lag simulation
//	POST /admin/config?room=room-1  partial update of the lag simulation
//	GET  /metrics?room=room-1       room counters
//	GET  /rooms                     rooms, peers and links
//	GET  /healthz
func NewRouter(rm *RoomManager) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	r.GET("/ws", func(c *gin.Context) { HandleWS(rm, c.Writer, c.Request) })
	r.GET("/admin/config", func(c *gin.Context) { getRoomConfig(rm, c) })
	r.POST("/admin/config", func(c *gin.Context) { postRoomConfig(rm, c) })
	r.GET("/metrics", func(c *gin.Context) { getRoomMetrics(rm, c) })
	r.GET("/rooms", func(c *gin.Context) { getRooms(rm, c) })
	r.GET("/healthz", healthz)
	return r
}

// requestLogger writes one debug line per request through the zap logger.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logging.Log.Debugw("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"elapsed", time.Since(start))
	}
}

func healthz(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

func roomFor(rm *RoomManager, c *gin.Context) *Room {
	return rm.GetOrCreateRoom(c.DefaultQuery("room", DefaultRoom))
}

func getRoomConfig(rm *RoomManager, c *gin.Context) {
	c.JSON(http.StatusOK, roomFor(rm, c).Config())
}

type simPatch struct {
	DelayMinMs *int     `json:"simulateDelayMinMs,omitempty"`
	DelayMaxMs *int     `json:"simulateDelayMaxMs,omitempty"`
	DropProb   *float64 `json:"simulateDropProb,omitempty"`
}

func postRoomConfig(rm *RoomManager, c *gin.Context) {
	var body simPatch
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	room := roomFor(rm, c)
	cfg := room.Config()
	if body.DelayMinMs != nil {
		cfg.DelayMinMs = *body.DelayMinMs
	}
	if body.DelayMaxMs != nil {
		cfg.DelayMaxMs = *body.DelayMaxMs
	}
	if body.DropProb != nil {
		cfg.DropProb = *body.DropProb
	}
	if err := room.SetConfig(cfg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	logging.Log.Infow("relay config updated", "room", room.ID,
		"delayMinMs", cfg.DelayMinMs, "delayMaxMs", cfg.DelayMaxMs, "dropProb", cfg.DropProb)
	c.JSON(http.StatusOK, gin.H{"ok": true, "config": cfg})
}

func getRoomMetrics(rm *RoomManager, c *gin.Context) {
	room := roomFor(rm, c)
	c.JSON(http.StatusOK, gin.H{
		"room":    room.ID,
		"tick":    room.Tick(),
		"metrics": room.Metrics().Snapshot(),
	})
}

func getRooms(rm *RoomManager, c *gin.Context) {
	rooms := rm.Rooms()
	out := make([]gin.H, 0, len(rooms))
	for _, r := range rooms {
		out = append(out, gin.H{
			"id":     r.ID,
			"tick":   r.Tick(),
			"peers":  r.PeerStates(),
			"config": r.Config(),
		})
	}
	c.JSON(http.StatusOK, gin.H{"rooms": out})
}
