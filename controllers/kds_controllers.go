package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/yeremiapane/restaurant-reservation/kds"
	"github.com/yeremiapane/restaurant-reservation/utils"
)

// KDSController upgrades kitchen and staff displays to a websocket fed by the hub.
type KDSController struct {
	Hub      *kds.Hub
	upgrader websocket.Upgrader
}

func NewKDSController(hub *kds.Hub, allowedOrigins []string) *KDSController {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	return &KDSController{
		Hub: hub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || len(allowed) == 0 || allowed["*"] || allowed[origin]
			},
		},
	}
}

var kdsRoles = map[string]bool{"owner": true, "staff": true, "chef": true}

// Connect -> GET /kds/ws. Expects the role set by the websocket auth middleware.
func (kc *KDSController) Connect(c *gin.Context) {
	role := c.GetString("role")
	if role == "" {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}
	if !kdsRoles[role] {
		c.AbortWithStatus(http.StatusForbidden)
		return
	}

	ws, err := kc.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		utils.ErrorLogger.WithError(err).Warn("websocket upgrade failed")
		return
	}
	kc.Hub.RegisterClient(ws, role)

	// Displays only listen; reading drains control frames and detects disconnects.
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			break
		}
	}
	kc.Hub.UnregisterClient(ws)
}
