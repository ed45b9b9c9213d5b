package ws

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

// SessionLookup resolves the session a socket attaches to
type SessionLookup func(id uuid.UUID) (SessionControl, error)

// Handler serves /v1/sessions/:id/ws
func Handler(hub *Hub, lookup SessionLookup) fiber.Handler {
	return websocket.New(func(c *websocket.Conn) {
		sessionID, ok := c.Locals("session_id").(uuid.UUID)
		if !ok {
			_ = c.Close()
			return
		}

		control, err := lookup(sessionID)
		if err != nil {
			_ = c.WriteJSON(Event{Type: EventError, Data: ErrorPayload{Code: "SESSION_NOT_FOUND", Message: err.Error()}})
			_ = c.Close()
			return
		}

		client := &Client{
			hub:       hub,
			conn:      c,
			sessionID: sessionID,
			control:   control,
			send:      make(chan []byte, 256),
		}

		if !hub.join(client) {
			_ = c.Close()
			return
		}

		go client.WritePump()
		client.ReadPump()
	})
}

// UpgradeMiddleware rejects plain HTTP requests and parses the session id
func UpgradeMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}

		sessionID, err := uuid.Parse(c.Params("id"))
		if err != nil {
			return fiber.ErrBadRequest
		}

		c.Locals("allowed", true)
		c.Locals("session_id", sessionID)
		return c.Next()
	}
}
