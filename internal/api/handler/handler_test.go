package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/emotisense/internal/api/middleware"
	"github.com/saturnino-fabrica-de-software/emotisense/internal/domain"
	"github.com/saturnino-fabrica-de-software/emotisense/internal/emotion"
	"github.com/saturnino-fabrica-de-software/emotisense/internal/media"
	"github.com/saturnino-fabrica-de-software/emotisense/internal/model"
	providermock "github.com/saturnino-fabrica-de-software/emotisense/internal/provider/mock"
	"github.com/saturnino-fabrica-de-software/emotisense/internal/session"
)

// testLogger returns a logger that discards all output
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// noisyPNG has enough detail to stay above the mock provider's no-face cutoff
func noisyPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 320, 240))
	for y := 0; y < 240; y++ {
		for x := 0; x < 320; x++ {
			img.Set(x, y, color.RGBA{R: uint8((x * 7) ^ (y * 13)), G: uint8(x * y), B: uint8(x + 3*y), A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// stillDecoder serves the same frame at every position
type stillDecoder struct {
	frame []byte
}

func (d *stillDecoder) Duration() time.Duration { return time.Minute }

func (d *stillDecoder) ReadAt(pos time.Duration) ([]byte, int, int, error) {
	return d.frame, 320, 240, nil
}

func (d *stillDecoder) Close() error { return nil }

// MockDetectionRepo is a mock implementation of the history repository
type MockDetectionRepo struct {
	mock.Mock
}

func (m *MockDetectionRepo) Create(ctx context.Context, record *domain.DetectionRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockDetectionRepo) ListBySession(ctx context.Context, sessionID uuid.UUID, limit int) ([]domain.DetectionRecord, error) {
	args := m.Called(ctx, sessionID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.DetectionRecord), args.Error(1)
}

func (m *MockDetectionRepo) Summary(ctx context.Context, sessionID uuid.UUID) ([]domain.EmotionCount, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.EmotionCount), args.Error(1)
}

func (m *MockDetectionRepo) Nearest(ctx context.Context, vec emotion.Vector, limit int) ([]domain.SimilarRecord, error) {
	args := m.Called(ctx, vec, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.SimilarRecord), args.Error(1)
}

func (m *MockDetectionRepo) DeleteBySession(ctx context.Context, sessionID uuid.UUID) (int64, error) {
	args := m.Called(ctx, sessionID)
	return args.Get(0).(int64), args.Error(1)
}

type fixture struct {
	app      *fiber.App
	model    *model.Service
	provider *providermock.Provider
	sessions *session.Manager
	previews *media.Previews
	history  *MockDetectionRepo
}

// newFixture wires every handler on a fiber app the way the router does
func newFixture(t *testing.T, providerOpts ...providermock.Option) *fixture {
	t.Helper()

	previews, err := media.NewPreviews(t.TempDir())
	require.NoError(t, err)

	p := providermock.New(providerOpts...)
	svc := model.NewService(p, model.WithLogger(testLogger()))

	cfg := session.DefaultConfig()
	cfg.LivePoller.Interval = 5 * time.Millisecond
	cfg.VideoPoller.Interval = 5 * time.Millisecond
	frame := noisyPNG(t)
	manager := session.NewManager(svc, previews, cfg,
		session.WithLogger(testLogger()),
		session.WithVideoOpener(func(string) (*media.VideoFile, error) {
			return media.NewVideoFile(&stillDecoder{frame: frame}), nil
		}),
	)
	t.Cleanup(func() {
		manager.CloseAll()
		_ = previews.Close()
	})

	f := &fixture{
		model:    svc,
		provider: p,
		sessions: manager,
		previews: previews,
		history:  &MockDetectionRepo{},
	}

	app := fiber.New(fiber.Config{ErrorHandler: middleware.ErrorHandler(testLogger())})

	health := NewHealthHandler(svc, nil)
	app.Get("/health", health.Health)
	app.Get("/ready", health.Ready)

	app.Get("/v1/emotions", Emotions)

	models := NewModelHandler(svc)
	app.Get("/v1/models", models.Status)
	app.Post("/v1/models/load", models.Load)

	sessions := NewSessionHandler(manager, testLogger())
	app.Post("/v1/sessions", sessions.Create)
	app.Get("/v1/sessions/:id", sessions.Get)
	app.Delete("/v1/sessions/:id", sessions.Delete)
	app.Post("/v1/sessions/:id/camera/start", sessions.StartCamera)
	app.Post("/v1/sessions/:id/camera/stop", sessions.StopCamera)

	mediaHandler := NewMediaHandler(manager, previews, MediaLimits{MaxImageSize: 1 << 20, MaxVideoSize: 1 << 10}, testLogger())
	app.Post("/v1/sessions/:id/image", mediaHandler.ProcessImage)
	app.Delete("/v1/sessions/:id/image", mediaHandler.ClearImage)
	app.Post("/v1/sessions/:id/video", mediaHandler.UploadVideo)
	app.Delete("/v1/sessions/:id/video", mediaHandler.ClearVideo)
	app.Post("/v1/sessions/:id/video/:action", mediaHandler.VideoControl)
	app.Get("/v1/previews/:id", mediaHandler.Preview)

	history := NewHistoryHandler(f.history)
	app.Get("/v1/sessions/:id/history", history.List)
	app.Get("/v1/sessions/:id/history/similar", history.Similar)
	app.Delete("/v1/sessions/:id/history", history.Delete)

	f.app = app
	return f
}

func (f *fixture) do(t *testing.T, req *http.Request) *http.Response {
	t.Helper()
	resp, err := f.app.Test(req, 5000)
	require.NoError(t, err)
	return resp
}

func (f *fixture) createSession(t *testing.T) uuid.UUID {
	t.Helper()
	resp := f.do(t, httptest.NewRequest(http.MethodPost, "/v1/sessions", nil))
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var body CreateSessionResponse
	decode(t, resp, &body)
	return body.Session.ID
}

func decode(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func errorCode(t *testing.T, resp *http.Response) string {
	t.Helper()
	var body errorBody
	decode(t, resp, &body)
	return body.Error.Code
}

func jsonRequest(method, path string, body interface{}) *http.Request {
	data, _ := json.Marshal(body)
	req := httptest.NewRequest(method, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// multipartRequest builds an upload with a custom part Content-Type
func multipartRequest(t *testing.T, path, field string, content []byte, contentType string) *http.Request {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	if content != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="`+field+`"; filename="upload"`)
		if contentType != "" {
			h.Set("Content-Type", contentType)
		}
		part, err := writer.CreatePart(h)
		require.NoError(t, err)
		_, _ = part.Write(content)
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}
