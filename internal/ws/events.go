package ws

import (
	"time"

	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/emotisense/internal/domain"
	"github.com/saturnino-fabrica-de-software/emotisense/internal/emotion"
)

type EventType string

const (
	EventDetectionUpdated EventType = "detection.updated"
	EventModelStatus      EventType = "model.status"
	EventCameraStatus     EventType = "camera.status"
	EventError            EventType = "error"
)

// Event is a server push. A nil SessionID goes to every connected client.
type Event struct {
	SessionID uuid.UUID   `json:"-"`
	Type      EventType   `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

// DetectionPayload is the data of a detection.updated event
type DetectionPayload struct {
	Source domain.Source  `json:"source"`
	Result emotion.Result `json:"result"`
}

// ErrorPayload is the data of an error event
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// CommandType is a client to server text command
type CommandType string

const (
	CommandPause       CommandType = "pause"
	CommandResume      CommandType = "resume"
	CommandCameraError CommandType = "camera.error"
)

// Command is a text message sent by the browser. Binary messages are JPEG camera frames.
type Command struct {
	Type    CommandType `json:"type"`
	Message string      `json:"message,omitempty"`
}
