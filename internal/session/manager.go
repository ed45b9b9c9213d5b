package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/emotisense/internal/detection"
	"github.com/saturnino-fabrica-de-software/emotisense/internal/domain"
	"github.com/saturnino-fabrica-de-software/emotisense/internal/emotion"
	"github.com/saturnino-fabrica-de-software/emotisense/internal/media"
	"github.com/saturnino-fabrica-de-software/emotisense/internal/provider"
)

// VideoOpener opens an uploaded video file for playback
type VideoOpener func(path string) (*media.VideoFile, error)

// CameraFactory builds the server capture device of a session
type CameraFactory func(index int) *media.Camera

// Config holds the session settings
type Config struct {
	IdleTimeout     time.Duration
	JanitorInterval time.Duration
	MaxFrameAge     time.Duration

	LivePoller   detection.PollerConfig
	VideoPoller  detection.PollerConfig
	ImageOptions provider.DetectOptions
	ImagePolicy  detection.NoFacePolicy

	CameraDeviceEnabled bool
	CameraDevice        int
}

// DefaultConfig returns the default demo session settings
func DefaultConfig() Config {
	policies := detection.DefaultPolicies()
	live := detection.DefaultPollerConfig()
	live.Policy = policies.Live

	return Config{
		IdleTimeout:     15 * time.Minute,
		JanitorInterval: time.Minute,
		MaxFrameAge:     media.DefaultMaxFrameAge,
		LivePoller:      live,
		VideoPoller:     live,
		ImageOptions:    provider.StillOptions(),
		ImagePolicy:     policies.Still,
	}
}

// Manager creates, tracks and expires demo sessions
type Manager struct {
	model     detection.Model
	previews  *media.Previews
	cfg       Config
	logger    *slog.Logger
	publisher Publisher
	recorder  Recorder
	now       func() time.Time
	newCamera CameraFactory
	openVideo VideoOpener

	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
}

type Option func(*Manager)

func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

func WithPublisher(p Publisher) Option {
	return func(m *Manager) {
		m.publisher = p
	}
}

func WithRecorder(r Recorder) Option {
	return func(m *Manager) {
		m.recorder = r
	}
}

func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

func WithCameraFactory(f CameraFactory) Option {
	return func(m *Manager) {
		m.newCamera = f
	}
}

func WithVideoOpener(f VideoOpener) Option {
	return func(m *Manager) {
		m.openVideo = f
	}
}

func NewManager(model detection.Model, previews *media.Previews, cfg Config, opts ...Option) *Manager {
	defaults := DefaultConfig()
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = defaults.IdleTimeout
	}
	if cfg.JanitorInterval <= 0 {
		cfg.JanitorInterval = defaults.JanitorInterval
	}

	m := &Manager{
		model:     model,
		previews:  previews,
		cfg:       cfg,
		logger:    slog.Default(),
		now:       time.Now,
		newCamera: media.NewDeviceCamera,
		openVideo: media.OpenVideoFile,
		sessions:  make(map[uuid.UUID]*Session),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.With("component", "session")
	return m
}

// Create opens a new session with idle sources
func (m *Manager) Create() *Session {
	id := uuid.New()
	now := m.now()
	logger := m.logger.With("session_id", id)

	s := &Session{
		ID:        id,
		CreatedAt: now.UTC(),
		logger:    logger,
		openVideo: m.openVideo,
		now:       m.now,
		feed:      media.NewLiveFeed(m.cfg.MaxFrameAge),
		lastSeen:  now,
	}
	if m.cfg.CameraDeviceEnabled {
		s.camera = m.newCamera(m.cfg.CameraDevice)
	}

	s.cameraPoller = detection.NewPoller(m.model, m.cfg.LivePoller,
		detection.WithLogger(logger.With("source", domain.SourceCamera)),
		detection.OnUpdate(m.updateFunc(id, domain.SourceCamera)),
	)
	s.image = detection.NewImageDetector(m.model, m.previews, m.cfg.ImageOptions, m.cfg.ImagePolicy,
		detection.WithImageLogger(logger.With("source", domain.SourceImage)),
		detection.OnImageUpdate(m.updateFunc(id, domain.SourceImage)),
	)
	s.video = detection.NewVideoDetector(m.model, m.previews, m.cfg.VideoPoller,
		detection.WithLogger(logger.With("source", domain.SourceVideo)),
		detection.OnUpdate(m.updateFunc(id, domain.SourceVideo)),
	)

	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()

	logger.Info("session created")
	return s
}

func (m *Manager) updateFunc(id uuid.UUID, source domain.Source) detection.UpdateFunc {
	return func(r emotion.Result) {
		if m.publisher != nil {
			m.publisher.PublishDetection(id, source, r)
		}
		if m.recorder != nil {
			m.recorder.Record(id, source, r)
		}
	}
}

// Get returns a live session and marks it as seen
func (m *Manager) Get(id uuid.UUID) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()

	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	s.touch(m.now())
	return s, nil
}

// Close tears a session down, releasing all of its sources and previews
func (m *Manager) Close(id uuid.UUID) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return domain.ErrSessionNotFound
	}

	m.teardown(s)
	return nil
}

func (m *Manager) teardown(s *Session) {
	s.close()
	if m.recorder != nil {
		m.recorder.Forget(s.ID)
	}
	s.logger.Info("session closed")
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep closes sessions idle for longer than the idle timeout
func (m *Manager) Sweep() int {
	cutoff := m.now().Add(-m.cfg.IdleTimeout)

	m.mu.Lock()
	var expired []*Session
	for id, s := range m.sessions {
		if s.idleSince().Before(cutoff) {
			expired = append(expired, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range expired {
		m.teardown(s)
	}
	return len(expired)
}

// Run starts the idle janitor loop
func (m *Manager) Run(ctx context.Context) {
	ticker := time.NewTicker(m.cfg.JanitorInterval)
	defer ticker.Stop()

	m.logger.Info("session janitor started", "interval", m.cfg.JanitorInterval, "idle_timeout", m.cfg.IdleTimeout)

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("session janitor stopped")
			return
		case <-ticker.C:
			if n := m.Sweep(); n > 0 {
				m.logger.Debug("idle sessions expired", "count", n)
			}
		}
	}
}

// CloseAll tears down every session (shutdown)
func (m *Manager) CloseAll() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[uuid.UUID]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		m.teardown(s)
	}
}
