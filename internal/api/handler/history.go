package handler

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/emotisense/internal/domain"
	"github.com/saturnino-fabrica-de-software/emotisense/internal/repository"
)

const (
	maxHistoryLimit     = 1000
	defaultSimilarLimit = 5
	maxSimilarLimit     = 50
)

// HistoryHandler serves recorded transitions. History outlives the session,
// so these routes do not require a live session.
type HistoryHandler struct {
	repo repository.DetectionRepositoryInterface
}

// NewHistoryHandler accepts a nil repository; every route then answers HISTORY_DISABLED
func NewHistoryHandler(repo repository.DetectionRepositoryInterface) *HistoryHandler {
	return &HistoryHandler{repo: repo}
}

type HistoryResponse struct {
	SessionID uuid.UUID                `json:"session_id"`
	Events    []domain.DetectionRecord `json:"events"`
	Summary   []domain.EmotionCount    `json:"summary"`
}

type SimilarResponse struct {
	Query   *domain.DetectionRecord `json:"query"`
	Matches []domain.SimilarRecord  `json:"matches"`
}

type DeleteHistoryResponse struct {
	Deleted int64 `json:"deleted"`
}

func queryLimit(c *fiber.Ctx, def, max int) (int, error) {
	limit := c.QueryInt("limit", def)
	if limit < 1 || limit > max {
		return 0, domain.ErrValidationFailed.WithError(fmt.Errorf("limit must be between 1 and %d", max))
	}
	return limit, nil
}

// List GET /v1/sessions/:id/history?limit=N - newest events first, plus the per-emotion summary
func (h *HistoryHandler) List(c *fiber.Ctx) error {
	if h.repo == nil {
		return domain.ErrHistoryDisabled
	}

	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	limit, err := queryLimit(c, repository.DefaultListLimit, maxHistoryLimit)
	if err != nil {
		return err
	}

	events, err := h.repo.ListBySession(c.UserContext(), id, limit)
	if err != nil {
		return domain.ErrInternal.WithError(err)
	}
	summary, err := h.repo.Summary(c.UserContext(), id)
	if err != nil {
		return domain.ErrInternal.WithError(err)
	}

	if events == nil {
		events = []domain.DetectionRecord{}
	}
	return c.JSON(HistoryResponse{SessionID: id, Events: events, Summary: summary})
}

// Similar GET /v1/sessions/:id/history/similar?limit=N - records from any session
// whose emotion vector is closest to the latest face this session recorded
func (h *HistoryHandler) Similar(c *fiber.Ctx) error {
	if h.repo == nil {
		return domain.ErrHistoryDisabled
	}

	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	limit, err := queryLimit(c, defaultSimilarLimit, maxSimilarLimit)
	if err != nil {
		return err
	}

	events, err := h.repo.ListBySession(c.UserContext(), id, repository.DefaultListLimit)
	if err != nil {
		return domain.ErrInternal.WithError(err)
	}

	var query *domain.DetectionRecord
	for i := range events {
		if events[i].FaceDetected {
			query = &events[i]
			break
		}
	}
	if query == nil {
		return domain.ErrNotFound.WithError(errors.New("session has no recorded face"))
	}

	// one extra row because the query record is its own nearest neighbour
	nearest, err := h.repo.Nearest(c.UserContext(), query.Emotions, limit+1)
	if err != nil {
		return domain.ErrInternal.WithError(err)
	}

	matches := make([]domain.SimilarRecord, 0, limit)
	for _, m := range nearest {
		if m.Record.ID == query.ID {
			continue
		}
		if len(matches) == limit {
			break
		}
		matches = append(matches, m)
	}

	return c.JSON(SimilarResponse{Query: query, Matches: matches})
}

// Delete DELETE /v1/sessions/:id/history
func (h *HistoryHandler) Delete(c *fiber.Ctx) error {
	if h.repo == nil {
		return domain.ErrHistoryDisabled
	}

	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	n, err := h.repo.DeleteBySession(c.UserContext(), id)
	if err != nil {
		return domain.ErrInternal.WithError(err)
	}
	return c.JSON(DeleteHistoryResponse{Deleted: n})
}
