package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/emotisense/internal/emotion"
)

type EmotionsResponse struct {
	Emotions []emotion.Info `json:"emotions"`
}

// Emotions GET /v1/emotions - label metadata in canonical order
func Emotions(c *fiber.Ctx) error {
	return c.JSON(EmotionsResponse{Emotions: emotion.Catalog()})
}
