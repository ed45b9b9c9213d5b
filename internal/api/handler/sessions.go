package handler

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/emotisense/internal/domain"
	"github.com/saturnino-fabrica-de-software/emotisense/internal/session"
)

// SessionManager is the part of session.Manager the API drives
type SessionManager interface {
	Create() *session.Session
	Get(id uuid.UUID) (*session.Session, error)
	Close(id uuid.UUID) error
}

// SessionHandler serves session lifecycle and camera control
type SessionHandler struct {
	sessions SessionManager
	logger   *slog.Logger
}

func NewSessionHandler(sessions SessionManager, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{sessions: sessions, logger: logger}
}

type CreateSessionResponse struct {
	Session session.Snapshot `json:"session"`
	WSPath  string           `json:"ws_path"`
}

type CameraStartRequest struct {
	Mode session.CameraMode `json:"mode"`
}

// parseID reads a uuid path parameter
func parseID(c *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, domain.ErrValidationFailed.WithError(errors.New(name + " must be a valid UUID"))
	}
	return id, nil
}

// lookup resolves the :id session
func lookup(c *fiber.Ctx, sessions SessionManager) (*session.Session, error) {
	id, err := parseID(c, "id")
	if err != nil {
		return nil, err
	}
	return sessions.Get(id)
}

// Create POST /v1/sessions
func (h *SessionHandler) Create(c *fiber.Ctx) error {
	s := h.sessions.Create()

	return c.Status(fiber.StatusCreated).JSON(CreateSessionResponse{
		Session: s.Snapshot(),
		WSPath:  "/v1/sessions/" + s.ID.String() + "/ws",
	})
}

// Get GET /v1/sessions/:id - the three panel results, camera status and flags
func (h *SessionHandler) Get(c *fiber.Ctx) error {
	s, err := lookup(c, h.sessions)
	if err != nil {
		return err
	}
	return c.JSON(s.Snapshot())
}

// Delete DELETE /v1/sessions/:id - stops every detector and revokes previews
func (h *SessionHandler) Delete(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	if err := h.sessions.Close(id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// StartCamera POST /v1/sessions/:id/camera/start
func (h *SessionHandler) StartCamera(c *fiber.Ctx) error {
	s, err := lookup(c, h.sessions)
	if err != nil {
		return err
	}

	var req CameraStartRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return domain.ErrBadRequest.WithError(err)
		}
	}

	switch req.Mode {
	case "", session.CameraBrowser, session.CameraDevice:
	default:
		return domain.ErrValidationFailed.WithError(errors.New("mode must be browser or device"))
	}

	if err := s.StartCamera(c.UserContext(), req.Mode); err != nil {
		h.logger.Warn("camera start failed", "session_id", s.ID, "mode", req.Mode, "error", err)
		return err
	}

	return c.JSON(s.Snapshot().Camera)
}

// StopCamera POST /v1/sessions/:id/camera/stop
func (h *SessionHandler) StopCamera(c *fiber.Ctx) error {
	s, err := lookup(c, h.sessions)
	if err != nil {
		return err
	}

	s.StopCamera()
	return c.JSON(s.Snapshot().Camera)
}

var _ SessionManager = (*session.Manager)(nil)
