package model

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/saturnino-fabrica-de-software/emotisense/internal/domain"
	"github.com/saturnino-fabrica-de-software/emotisense/internal/emotion"
	"github.com/saturnino-fabrica-de-software/emotisense/internal/provider"
)

// ErrNotLoaded is returned by DetectOne before a successful Load
var ErrNotLoaded = errors.New("emotion model not loaded")

// DefaultLoadTimeout bounds a single provider load
const DefaultLoadTimeout = 30 * time.Second

// State is the process-wide model lifecycle
type State int32

const (
	StateUnloaded State = iota
	StateLoading
	StateLoaded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUnloaded:
		return "unloaded"
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Status is a snapshot of the service for status endpoints and push messages
type Status struct {
	Provider string     `json:"provider"`
	State    State      `json:"state"`
	Error    string     `json:"error,omitempty"`
	LoadedAt *time.Time `json:"loaded_at,omitempty"`
}

// Service owns the expression provider and loads it at most once per process.
// Concurrent Load calls share one in-flight provider load.
type Service struct {
	provider provider.ExpressionProvider
	timeout  time.Duration
	logger   *slog.Logger
	listener func(Status)

	group singleflight.Group

	mu       sync.RWMutex
	state    State
	errMsg   string
	loadedAt time.Time
}

type Option func(*Service)

// WithLoadTimeout sets the deadline of a provider load
func WithLoadTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithListener registers a callback invoked on every state change
func WithListener(fn func(Status)) Option {
	return func(s *Service) {
		s.listener = fn
	}
}

func NewService(p provider.ExpressionProvider, opts ...Option) *Service {
	s := &Service{
		provider: p,
		timeout:  DefaultLoadTimeout,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "model", "provider", p.Name())
	return s
}

// Load makes the model ready. It returns immediately once loaded.
// After a failure the next call retries. The provider load itself is detached
// from ctx, so one caller giving up does not abort the load for the others.
func (s *Service) Load(ctx context.Context) error {
	if s.Loaded() {
		return nil
	}

	ch := s.group.DoChan("load", func() (interface{}, error) {
		return nil, s.load()
	})

	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-ch:
		return res.Err
	}
}

func (s *Service) load() error {
	s.mu.Lock()
	if s.state == StateLoaded {
		s.mu.Unlock()
		return nil
	}
	s.state = StateLoading
	s.errMsg = ""
	s.mu.Unlock()
	s.notify()

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	start := time.Now()
	err := s.provider.Load(ctx)

	s.mu.Lock()
	if err != nil {
		s.state = StateFailed
		s.errMsg = domain.ErrModelUnavailable.Message
	} else {
		s.state = StateLoaded
		s.loadedAt = time.Now().UTC()
	}
	s.mu.Unlock()
	s.notify()

	if err != nil {
		s.logger.Error("failed to load models", "error", err, "elapsed", time.Since(start))
		return domain.ErrModelUnavailable.WithError(err)
	}

	s.logger.Info("models loaded", "elapsed", time.Since(start))
	return nil
}

func (s *Service) notify() {
	if s.listener != nil {
		s.listener(s.Status())
	}
}

func (s *Service) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Service) Loaded() bool {
	return s.State() == StateLoaded
}

// Err returns the persistent human-readable load error, empty when none
func (s *Service) Err() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.errMsg
}

func (s *Service) ProviderName() string {
	return s.provider.Name()
}

func (s *Service) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Status{
		Provider: s.provider.Name(),
		State:    s.state,
		Error:    s.errMsg,
	}
	if s.state == StateLoaded {
		t := s.loadedAt
		st.LoadedAt = &t
	}
	return st
}

// DetectOne delegates to the provider once loaded
func (s *Service) DetectOne(ctx context.Context, frame []byte, opts provider.DetectOptions) (*emotion.Scores, error) {
	if !s.Loaded() {
		return nil, ErrNotLoaded
	}
	return s.provider.DetectOne(ctx, frame, opts)
}
