package handlers

import (
	"net/http"

	"vidsense/logger"
	"vidsense/realtime"
	"vidsense/utils"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var hub *realtime.Hub

func SetHub(h *realtime.Hub) {
	hub = h
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Cross-origin browsers are expected; auth happens via the token.
	CheckOrigin: func(*http.Request) bool { return true },
}

// ConnectEvents upgrades to a websocket and joins the caller to the room
// of the user its token resolves to. Browsers cannot set headers on
// websocket dials, so the token travels as a query parameter.
func ConnectEvents(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		utils.Error(c, http.StatusUnauthorized, "not authenticated")
		return
	}

	claims, err := utils.ParseToken(token)
	if err != nil {
		utils.Error(c, http.StatusUnauthorized, "invalid or expired token")
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Debugf("websocket upgrade failed: %v", err)
		return
	}

	hub.Join(claims.UserID, conn)
}
