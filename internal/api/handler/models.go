package handler

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/emotisense/internal/domain"
	"github.com/saturnino-fabrica-de-software/emotisense/internal/model"
)

// ModelService is the part of model.Service the API drives
type ModelService interface {
	ModelStatus
	Load(ctx context.Context) error
}

type ModelHandler struct {
	service ModelService
}

func NewModelHandler(service ModelService) *ModelHandler {
	return &ModelHandler{service: service}
}

// Status GET /v1/models
func (h *ModelHandler) Status(c *fiber.Ctx) error {
	return c.JSON(h.service.Status())
}

// Load POST /v1/models/load - loads the model, retrying after a failure
func (h *ModelHandler) Load(c *fiber.Ctx) error {
	if err := h.service.Load(c.UserContext()); err != nil {
		var appErr *domain.AppError
		if errors.As(err, &appErr) {
			return err
		}
		return domain.ErrModelUnavailable.WithError(err)
	}
	return c.JSON(h.service.Status())
}

var _ ModelService = (*model.Service)(nil)
