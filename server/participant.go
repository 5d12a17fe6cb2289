package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"peerball/logging"
	"peerball/session"
)

// NewParticipantRouter exposes one participant's match state:
//
//	GET  /state         roster, score and body positions
//	GET  /metrics       controller counters
//	GET  /admin/config  score limit
//	POST /admin/config  {"scoreLimit": n}, host only
//	GET  /healthz
func NewParticipantRouter(ctrl *session.Controller) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	r.GET("/state", func(c *gin.Context) {
		c.JSON(http.StatusOK, stateResponse(ctrl.State()))
	})
	r.GET("/metrics", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"peer": ctrl.ID(), "metrics": ctrl.Metrics().Snapshot()})
	})
	r.GET("/admin/config", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"scoreLimit": ctrl.State().Game.ScoreLimit})
	})
	r.POST("/admin/config", func(c *gin.Context) {
		var body struct {
			ScoreLimit *int `json:"scoreLimit"`
		}
		if err := c.ShouldBindJSON(&body); err != nil || body.ScoreLimit == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "scoreLimit required"})
			return
		}
		if !ctrl.SetScoreLimit(*body.ScoreLimit) {
			c.JSON(http.StatusConflict, gin.H{"error": "rejected: not host or limit < 1"})
			return
		}
		logging.Log.Infow("participant config updated", "scoreLimit", *body.ScoreLimit)
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	r.GET("/healthz", healthz)
	return r
}

func stateResponse(v session.View) gin.H {
	bodies := make([]gin.H, 0, len(v.Bodies))
	for _, b := range v.Bodies {
		bodies = append(bodies, gin.H{
			"id":     b.ID,
			"kind":   b.Kind.String(),
			"team":   b.Team,
			"x":      b.X,
			"y":      b.Y,
			"vx":     b.VX,
			"vy":     b.VY,
			"radius": b.Radius,
			"kick":   b.KickIndicator,
		})
	}
	return gin.H{
		"peer":            v.LocalID,
		"name":            v.Name,
		"host":            v.Host,
		"running":         v.Running,
		"game":            v.Game,
		"frame":           v.Frame,
		"framesSinceSync": v.FramesSinceSync,
		"bodies":          bodies,
	}
}
