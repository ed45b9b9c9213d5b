package api

import (
	"context"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"

	swagger "github.com/go-swagno/swagno-fiber/swagger"
	"github.com/saturnino-fabrica-de-software/emotisense/internal/api/docs"
	"github.com/saturnino-fabrica-de-software/emotisense/internal/api/handler"
	"github.com/saturnino-fabrica-de-software/emotisense/internal/api/middleware"
	"github.com/saturnino-fabrica-de-software/emotisense/internal/media"
	"github.com/saturnino-fabrica-de-software/emotisense/internal/model"
	"github.com/saturnino-fabrica-de-software/emotisense/internal/repository"
	"github.com/saturnino-fabrica-de-software/emotisense/internal/session"
	"github.com/saturnino-fabrica-de-software/emotisense/internal/ws"
)

// bodyOverhead covers multipart boundaries and headers around the largest upload
const bodyOverhead = 1 << 20

type Dependencies struct {
	Model    *model.Service
	Sessions *session.Manager
	Previews *media.Previews
	Hub      *ws.Hub
	// History is nil when DATABASE_URL is not set
	History repository.DetectionRepositoryInterface
	// DB is checked by /ready; nil when history is disabled
	DB handler.Pinger

	Limits    handler.MediaLimits
	RateLimit middleware.RateLimiterConfig
}

type Router struct {
	app         *fiber.App
	logger      *slog.Logger
	deps        *Dependencies
	rateLimiter *middleware.RateLimiter
	cancelHub   context.CancelFunc
}

func NewRouter(logger *slog.Logger, deps *Dependencies) *Router {
	limits := deps.Limits
	if limits.MaxVideoSize <= 0 {
		limits.MaxVideoSize = handler.DefaultMaxVideoSize
	}
	if limits.MaxImageSize > limits.MaxVideoSize {
		limits.MaxVideoSize = limits.MaxImageSize
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: middleware.ErrorHandler(logger),
		AppName:      "EmotiSense API",
		BodyLimit:    int(limits.MaxVideoSize) + bodyOverhead,
	})

	return &Router{
		app:    app,
		logger: logger,
		deps:   deps,
	}
}

func (r *Router) Setup() {
	// Global middlewares
	r.app.Use(requestid.New())
	r.app.Use(middleware.Recover(r.logger))
	r.app.Use(middleware.Logger(r.logger))
	r.app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept",
	}))

	sw := docs.NewSwagger()
	swagger.SwaggerHandler(r.app, sw.MustToJson())

	healthHandler := handler.NewHealthHandler(r.deps.Model, r.deps.DB)
	r.app.Get("/health", healthHandler.Health)
	r.app.Get("/ready", healthHandler.Ready)

	v1 := r.app.Group("/v1")

	hubCtx, hubCancel := context.WithCancel(context.Background())
	r.cancelHub = hubCancel
	go r.deps.Hub.Run(hubCtx)

	// Uploads are the expensive routes; throttle them per client IP
	r.rateLimiter = middleware.NewRateLimiter(r.deps.RateLimit)
	limited := r.rateLimiter.Handler()

	v1.Get("/emotions", handler.Emotions)

	modelHandler := handler.NewModelHandler(r.deps.Model)
	v1.Get("/models", modelHandler.Status)
	v1.Post("/models/load", modelHandler.Load)

	sessionHandler := handler.NewSessionHandler(r.deps.Sessions, r.logger)
	v1.Post("/sessions", sessionHandler.Create)
	v1.Get("/sessions/:id", sessionHandler.Get)
	v1.Delete("/sessions/:id", sessionHandler.Delete)
	v1.Post("/sessions/:id/camera/start", sessionHandler.StartCamera)
	v1.Post("/sessions/:id/camera/stop", sessionHandler.StopCamera)

	mediaHandler := handler.NewMediaHandler(r.deps.Sessions, r.deps.Previews, r.deps.Limits, r.logger)
	v1.Post("/sessions/:id/image", limited, mediaHandler.ProcessImage)
	v1.Delete("/sessions/:id/image", mediaHandler.ClearImage)
	v1.Post("/sessions/:id/video", limited, mediaHandler.UploadVideo)
	v1.Delete("/sessions/:id/video", mediaHandler.ClearVideo)
	v1.Post("/sessions/:id/video/:action", mediaHandler.VideoControl)
	v1.Get("/previews/:id", mediaHandler.Preview)

	historyHandler := handler.NewHistoryHandler(r.deps.History)
	v1.Get("/sessions/:id/history", historyHandler.List)
	v1.Get("/sessions/:id/history/similar", historyHandler.Similar)
	v1.Delete("/sessions/:id/history", historyHandler.Delete)

	// WebSocket endpoint
	v1.Get("/sessions/:id/ws", ws.UpgradeMiddleware(), ws.Handler(r.deps.Hub, r.sessionControl))
}

// sessionControl resolves the session a socket drives
func (r *Router) sessionControl(id uuid.UUID) (ws.SessionControl, error) {
	s, err := r.deps.Sessions.Get(id)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *Router) App() *fiber.App {
	return r.app
}

func (r *Router) Listen(addr string) error {
	return r.app.Listen(addr)
}

func (r *Router) Shutdown() error {
	// Stop WebSocket hub
	if r.cancelHub != nil {
		r.cancelHub()
	}

	// Stop rate limiter cleanup goroutine
	if r.rateLimiter != nil {
		r.rateLimiter.Stop()
	}

	return r.app.Shutdown()
}
