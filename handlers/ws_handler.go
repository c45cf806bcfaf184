package handlers

import (
	"github.com/anjiri1684/course_academy/websocket"
	websocketcontrib "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type authMessage struct {
	Type  string `json:"type"`
	Token string `json:"token"`
}

// ServeWs streams entitlement events to the authenticated user. Browsers
// cannot set headers on the upgrade, so the first frame carries the token.
func (h *Handler) ServeWs(c *websocketcontrib.Conn) {
	var msg authMessage
	if err := c.ReadJSON(&msg); err != nil || msg.Type != "auth" {
		_ = c.WriteJSON(fiber.Map{"error": "Invalid or missing auth message"})
		c.Close()
		return
	}

	userID, err := h.auth.ParseToken(msg.Token)
	if err != nil {
		_ = c.WriteJSON(fiber.Map{"error": "Invalid token"})
		c.Close()
		return
	}

	// the hub owns writes once the client is registered
	if err := c.WriteJSON(fiber.Map{"type": "ready"}); err != nil {
		return
	}
	client := &websocket.Client{UserID: userID, Conn: c}
	h.hub.Register(client)
	defer h.hub.Unregister(client)

	// reads only detect the close; clients never send anything after auth
	for {
		if _, _, err := c.ReadMessage(); err != nil {
			h.log.Debug("websocket closed", zap.String("user_id", userID.String()), zap.Error(err))
			return
		}
	}
}
