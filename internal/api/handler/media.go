package handler

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/emotisense/internal/domain"
	"github.com/saturnino-fabrica-de-software/emotisense/internal/emotion"
	"github.com/saturnino-fabrica-de-software/emotisense/internal/media"
	"github.com/saturnino-fabrica-de-software/emotisense/internal/session"
)

const (
	DefaultMaxImageSize = 10 * 1024 * 1024  // 10MB
	DefaultMaxVideoSize = 100 * 1024 * 1024 // 100MB
)

// MediaLimits bounds uploads
type MediaLimits struct {
	MaxImageSize int64
	MaxVideoSize int64
}

func DefaultMediaLimits() MediaLimits {
	return MediaLimits{MaxImageSize: DefaultMaxImageSize, MaxVideoSize: DefaultMaxVideoSize}
}

// MediaHandler serves image and video uploads, video control and previews
type MediaHandler struct {
	sessions SessionManager
	previews *media.Previews
	limits   MediaLimits
	logger   *slog.Logger
}

func NewMediaHandler(sessions SessionManager, previews *media.Previews, limits MediaLimits, logger *slog.Logger) *MediaHandler {
	defaults := DefaultMediaLimits()
	if limits.MaxImageSize <= 0 {
		limits.MaxImageSize = defaults.MaxImageSize
	}
	if limits.MaxVideoSize <= 0 {
		limits.MaxVideoSize = defaults.MaxVideoSize
	}
	return &MediaHandler{sessions: sessions, previews: previews, limits: limits, logger: logger}
}

type ImageResponse struct {
	Result  *emotion.Result `json:"result"`
	Preview *media.Preview  `json:"preview"`
}

type VideoResponse struct {
	Preview media.Preview         `json:"preview"`
	Video   session.VideoSnapshot `json:"video"`
}

type SeekRequest struct {
	PositionMs int64 `json:"position_ms"`
}

// uploadedFile reads the multipart part name and checks its media type
func uploadedFile(c *fiber.Ctx, name, kind string) (*multipart.FileHeader, string, error) {
	file, err := c.FormFile(name)
	if err != nil {
		return nil, "", domain.ErrValidationFailed.WithError(fmt.Errorf("%s file is required: %w", name, err))
	}
	if file.Size == 0 {
		return nil, "", invalidMedia(kind, errors.New("empty file"))
	}

	contentType := file.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = sniffContentType(file)
	}
	if !strings.HasPrefix(contentType, kind+"/") {
		return nil, "", invalidMedia(kind, fmt.Errorf("unsupported content type %q", contentType))
	}
	return file, contentType, nil
}

func invalidMedia(kind string, err error) error {
	if kind == "video" {
		return domain.ErrInvalidVideo.WithError(err)
	}
	return domain.ErrInvalidImage.WithError(err)
}

// sniffContentType detects the type from the first bytes when the client sent none
func sniffContentType(file *multipart.FileHeader) string {
	f, err := file.Open()
	if err != nil {
		return ""
	}
	defer func() {
		_ = f.Close()
	}()

	head := make([]byte, 512)
	n, _ := io.ReadFull(f, head)
	return http.DetectContentType(head[:n])
}

// ProcessImage POST /v1/sessions/:id/image - multipart "image" field
func (h *MediaHandler) ProcessImage(c *fiber.Ctx) error {
	s, err := lookup(c, h.sessions)
	if err != nil {
		return err
	}

	file, contentType, err := uploadedFile(c, "image", "image")
	if err != nil {
		return err
	}
	if file.Size > h.limits.MaxImageSize {
		return domain.ErrFileTooLarge
	}

	f, err := file.Open()
	if err != nil {
		return domain.ErrInvalidImage.WithError(err)
	}
	defer func() {
		_ = f.Close()
	}()

	data, err := io.ReadAll(f)
	if err != nil {
		return domain.ErrInvalidImage.WithError(err)
	}

	result, err := s.ProcessImage(c.UserContext(), data, contentType)
	if err != nil {
		return err
	}

	return c.JSON(ImageResponse{
		Result:  result,
		Preview: s.Snapshot().Image.Preview,
	})
}

// ClearImage DELETE /v1/sessions/:id/image
func (h *MediaHandler) ClearImage(c *fiber.Ctx) error {
	s, err := lookup(c, h.sessions)
	if err != nil {
		return err
	}
	s.ClearImage()
	return c.SendStatus(fiber.StatusNoContent)
}

// UploadVideo POST /v1/sessions/:id/video - multipart "video" field
func (h *MediaHandler) UploadVideo(c *fiber.Ctx) error {
	s, err := lookup(c, h.sessions)
	if err != nil {
		return err
	}

	file, contentType, err := uploadedFile(c, "video", "video")
	if err != nil {
		return err
	}
	if file.Size > h.limits.MaxVideoSize {
		return domain.ErrFileTooLarge
	}

	f, err := file.Open()
	if err != nil {
		return domain.ErrInvalidVideo.WithError(err)
	}
	defer func() {
		_ = f.Close()
	}()

	preview, err := s.UploadVideo(c.UserContext(), f, contentType, h.limits.MaxVideoSize)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(VideoResponse{
		Preview: preview,
		Video:   s.Snapshot().Video,
	})
}

// VideoControl POST /v1/sessions/:id/video/:action - play, pause, seek, start, stop
func (h *MediaHandler) VideoControl(c *fiber.Ctx) error {
	s, err := lookup(c, h.sessions)
	if err != nil {
		return err
	}

	switch c.Params("action") {
	case "play":
		err = s.PlayVideo()
	case "pause":
		err = s.PauseVideo()
	case "seek":
		var req SeekRequest
		if perr := c.BodyParser(&req); perr != nil {
			return domain.ErrBadRequest.WithError(perr)
		}
		if req.PositionMs < 0 {
			return domain.ErrValidationFailed.WithError(errors.New("position_ms must not be negative"))
		}
		err = s.SeekVideo(time.Duration(req.PositionMs) * time.Millisecond)
	case "start":
		err = s.StartVideoDetection()
	case "stop":
		s.StopVideoDetection()
	default:
		return fiber.ErrNotFound
	}
	if err != nil {
		return err
	}

	return c.JSON(s.Snapshot().Video)
}

// ClearVideo DELETE /v1/sessions/:id/video
func (h *MediaHandler) ClearVideo(c *fiber.Ctx) error {
	s, err := lookup(c, h.sessions)
	if err != nil {
		return err
	}
	s.ClearVideo()
	return c.SendStatus(fiber.StatusNoContent)
}

// Preview GET /v1/previews/:id - streams an uploaded image or video
func (h *MediaHandler) Preview(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	f, preview, err := h.previews.Open(id)
	if err != nil {
		if errors.Is(err, media.ErrPreviewNotFound) {
			return domain.ErrPreviewNotFound
		}
		return domain.ErrInternal.WithError(err)
	}

	c.Set(fiber.HeaderContentType, preview.ContentType)
	c.Set(fiber.HeaderCacheControl, "no-store")
	// fasthttp closes f once the body is written
	return c.SendStream(f, int(preview.Size))
}
