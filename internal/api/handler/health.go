package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/emotisense/internal/model"
)

// Version is reported by /health
const Version = "0.1.0"

// ModelStatus reports the expression model state
type ModelStatus interface {
	Status() model.Status
}

// Pinger checks a backing store (the history database)
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	model ModelStatus
	db    Pinger
}

// NewHealthHandler builds the probes; db may be nil when history is disabled
func NewHealthHandler(m ModelStatus, db Pinger) *HealthHandler {
	return &HealthHandler{model: m, db: db}
}

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

type ReadyResponse struct {
	Status   string       `json:"status"`
	Model    model.Status `json:"model"`
	Database string       `json:"database"`
}

func (h *HealthHandler) Health(c *fiber.Ctx) error {
	return c.JSON(HealthResponse{
		Status:  "ok",
		Version: Version,
	})
}

// Ready reports the model state. The model loads lazily, so an unloaded or
// failed model does not make the service unready; an unreachable database does.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	resp := ReadyResponse{
		Status:   "ready",
		Model:    h.model.Status(),
		Database: "disabled",
	}

	if h.db != nil {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()

		resp.Database = "ok"
		if err := h.db.Ping(ctx); err != nil {
			resp.Status = "not_ready"
			resp.Database = "unreachable"
			return c.Status(fiber.StatusServiceUnavailable).JSON(resp)
		}
	}

	return c.JSON(resp)
}
