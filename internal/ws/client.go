package ws

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/emotisense/internal/media"
)

// SessionControl is what a socket may drive on its session
type SessionControl interface {
	PushFrame(data []byte) error
	PauseCamera()
	ResumeCamera()
	ReportCameraError(message string) media.CameraState
}

var errUnknownCommand = errors.New("unknown command")

type Client struct {
	hub       *Hub
	conn      *websocket.Conn
	sessionID uuid.UUID
	control   SessionControl
	send      chan []byte
}

func (c *Client) ReadPump() {
	defer func() {
		c.hub.leave(c)
		_ = c.conn.Close()
	}()

	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			break
		}

		switch messageType {
		case websocket.BinaryMessage:
			// frames arriving before the camera is started are dropped
			_ = c.control.PushFrame(data)
		case websocket.TextMessage:
			if err := c.handleCommand(data); err != nil {
				c.reply(EventError, ErrorPayload{Code: "INVALID_COMMAND", Message: err.Error()})
			}
		}
	}
}

func (c *Client) handleCommand(data []byte) error {
	var cmd Command
	if err := json.Unmarshal(data, &cmd); err != nil {
		return fmt.Errorf("decode command: %w", err)
	}

	switch cmd.Type {
	case CommandPause:
		c.control.PauseCamera()
	case CommandResume:
		c.control.ResumeCamera()
	case CommandCameraError:
		state := c.control.ReportCameraError(cmd.Message)
		c.reply(EventCameraStatus, state)
	default:
		return fmt.Errorf("%w: %q", errUnknownCommand, cmd.Type)
	}
	return nil
}

// reply sends to this socket only; the hub lock keeps send open while writing
func (c *Client) reply(eventType EventType, data interface{}) {
	message, err := json.Marshal(Event{Type: eventType, Data: data, Timestamp: time.Now()})
	if err != nil {
		return
	}

	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()
	if !c.hub.clients[c] {
		return
	}
	select {
	case c.send <- message:
	default:
	}
}

func (c *Client) WritePump() {
	defer func() {
		_ = c.conn.Close()
	}()

	for message := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
}
