package detection

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/saturnino-fabrica-de-software/emotisense/internal/emotion"
	"github.com/saturnino-fabrica-de-software/emotisense/internal/media"
	"github.com/saturnino-fabrica-de-software/emotisense/internal/provider"
)

var happyScores = emotion.Scores{emotion.Neutral: 0.1, emotion.Happy: 0.9}

// fakeModel returns whatever next() yields; gate, when set, blocks each call until released
type fakeModel struct {
	loaded  atomic.Bool
	loadErr error
	loads   atomic.Int32

	mu       sync.Mutex
	next     func() (*emotion.Scores, error)
	gate     chan struct{}
	calls    int
	inflight int
	maxInfl  int
	lastOpts provider.DetectOptions
}

func newFakeModel(scores *emotion.Scores) *fakeModel {
	m := &fakeModel{}
	m.loaded.Store(true)
	m.setScores(scores)
	return m
}

func (m *fakeModel) setScores(scores *emotion.Scores) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next = func() (*emotion.Scores, error) {
		if scores == nil {
			return nil, nil
		}
		s := *scores
		return &s, nil
	}
}

func (m *fakeModel) Load(ctx context.Context) error {
	m.loads.Add(1)
	if m.loadErr != nil {
		return m.loadErr
	}
	m.loaded.Store(true)
	return nil
}

func (m *fakeModel) Loaded() bool {
	return m.loaded.Load()
}

func (m *fakeModel) DetectOne(ctx context.Context, frame []byte, opts provider.DetectOptions) (*emotion.Scores, error) {
	m.mu.Lock()
	m.calls++
	m.inflight++
	if m.inflight > m.maxInfl {
		m.maxInfl = m.inflight
	}
	m.lastOpts = opts
	gate := m.gate
	next := m.next
	m.mu.Unlock()

	if gate != nil {
		<-gate
	}

	m.mu.Lock()
	m.inflight--
	m.mu.Unlock()

	if len(frame) == 0 {
		return nil, errors.New("empty frame")
	}
	return next()
}

func (m *fakeModel) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *fakeModel) MaxInflight() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.maxInfl
}

// fakeSource is a ready-toggleable source returning a tiny frame
type fakeSource struct {
	ready  atomic.Bool
	frames atomic.Int32
}

func newFakeSource(ready bool) *fakeSource {
	s := &fakeSource{}
	s.ready.Store(ready)
	return s
}

func (s *fakeSource) Ready() bool {
	return s.ready.Load()
}

func (s *fakeSource) Frame(ctx context.Context) (media.Frame, error) {
	s.frames.Add(1)
	return media.Frame{Data: []byte{0xff, 0xd8, 0xff}, Width: 64, Height: 48, Timestamp: time.Now()}, nil
}

func testPollerConfig() PollerConfig {
	cfg := DefaultPollerConfig()
	cfg.Interval = 5 * time.Millisecond
	cfg.Timeout = time.Second
	return cfg
}
