package routes

import (
	"github.com/anjiri1684/course_academy/handlers"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

func WebsocketRoutes(app *fiber.App, h *handlers.Handler) {
	api := app.Group("/api")

	api.Use("/ws", func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		return c.Next()
	})
	api.Get("/ws", websocket.New(h.ServeWs))
}
