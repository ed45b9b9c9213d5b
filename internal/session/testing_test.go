package session

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/emotisense/internal/detection"
	"github.com/saturnino-fabrica-de-software/emotisense/internal/domain"
	"github.com/saturnino-fabrica-de-software/emotisense/internal/emotion"
	"github.com/saturnino-fabrica-de-software/emotisense/internal/media"
	"github.com/saturnino-fabrica-de-software/emotisense/internal/model"
	"github.com/saturnino-fabrica-de-software/emotisense/internal/provider/mock"
)

// noisyImage has enough detail that its JPEG stays above the mock provider's no-face cutoff
func noisyImage(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8((x * 7) ^ (y * 13)), G: uint8(x * y), B: uint8(x + 3*y), A: 255})
		}
	}
	return img
}

func jpegFrame(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, noisyImage(320, 240), &jpeg.Options{Quality: 95}))
	return buf.Bytes()
}

func pngImage(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, noisyImage(320, 240)))
	return buf.Bytes()
}

type published struct {
	session uuid.UUID
	source  domain.Source
	result  emotion.Result
}

// fakePublisher collects everything published; it also serves as Recorder
type fakePublisher struct {
	mu       sync.Mutex
	events   []published
	recorded int
	forgot   []uuid.UUID
}

func (p *fakePublisher) PublishDetection(id uuid.UUID, source domain.Source, r emotion.Result) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, published{session: id, source: source, result: r})
}

func (p *fakePublisher) Record(id uuid.UUID, source domain.Source, r emotion.Result) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.recorded++
	return true
}

func (p *fakePublisher) Forget(id uuid.UUID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.forgot = append(p.forgot, id)
}

func (p *fakePublisher) count(source domain.Source) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.events {
		if e.source == source {
			n++
		}
	}
	return n
}

// fakeDevice hands out one fixed frame
type fakeDevice struct {
	mu      sync.Mutex
	openErr error
	frame   []byte
	open    bool
}

func (d *fakeDevice) Open() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.openErr != nil {
		return d.openErr
	}
	d.open = true
	return nil
}

func (d *fakeDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.open = false
	return nil
}

func (d *fakeDevice) Read() ([]byte, int, int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.open {
		return nil, 0, 0, media.ErrCameraNotOpen
	}
	return d.frame, 320, 240, nil
}

// fakeDecoder serves the same frame at every position
type fakeDecoder struct {
	mu     sync.Mutex
	frame  []byte
	closed bool
}

func (d *fakeDecoder) Duration() time.Duration { return time.Minute }

func (d *fakeDecoder) ReadAt(pos time.Duration) ([]byte, int, int, error) {
	return d.frame, 320, 240, nil
}

func (d *fakeDecoder) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

func (d *fakeDecoder) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

// fakeClock is a manually advanced clock
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fixture struct {
	manager   *Manager
	previews  *media.Previews
	publisher *fakePublisher
	device    *fakeDevice
	decoder   *fakeDecoder
	clock     *fakeClock
}

func newFixture(t *testing.T, mutate ...func(*Config)) *fixture {
	t.Helper()

	previews, err := media.NewPreviews("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = previews.Close() })

	frame := jpegFrame(t)
	f := &fixture{
		previews:  previews,
		publisher: &fakePublisher{},
		device:    &fakeDevice{frame: frame},
		decoder:   &fakeDecoder{frame: frame},
		clock:     &fakeClock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)},
	}

	cfg := DefaultConfig()
	cfg.LivePoller = fastPoller(cfg.LivePoller)
	cfg.VideoPoller = fastPoller(cfg.VideoPoller)
	cfg.MaxFrameAge = time.Hour
	for _, m := range mutate {
		m(&cfg)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := model.NewService(mock.New(), model.WithLogger(logger))

	f.manager = NewManager(svc, previews, cfg,
		WithLogger(logger),
		WithPublisher(f.publisher),
		WithRecorder(f.publisher),
		WithClock(f.clock.Now),
		WithCameraFactory(func(int) *media.Camera { return media.NewCamera(f.device) }),
		WithVideoOpener(func(string) (*media.VideoFile, error) { return media.NewVideoFile(f.decoder), nil }),
	)
	t.Cleanup(f.manager.CloseAll)

	return f
}

func fastPoller(cfg detection.PollerConfig) detection.PollerConfig {
	cfg.Interval = 5 * time.Millisecond
	cfg.Timeout = time.Second
	return cfg
}
