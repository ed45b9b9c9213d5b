package detection

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/saturnino-fabrica-de-software/emotisense/internal/emotion"
	"github.com/saturnino-fabrica-de-software/emotisense/internal/media"
	"github.com/saturnino-fabrica-de-software/emotisense/internal/provider"
)

// Default polling settings
const (
	DefaultInterval = 200 * time.Millisecond
	DefaultTimeout  = 5 * time.Second
)

// Model is the loaded-once expression model the detectors share
type Model interface {
	Load(ctx context.Context) error
	Loaded() bool
	DetectOne(ctx context.Context, frame []byte, opts provider.DetectOptions) (*emotion.Scores, error)
}

// PollerConfig tunes a Poller
type PollerConfig struct {
	Interval time.Duration
	// Timeout bounds one frame grab plus model call
	Timeout time.Duration
	Options provider.DetectOptions
	Policy  NoFacePolicy
}

func DefaultPollerConfig() PollerConfig {
	return PollerConfig{
		Interval: DefaultInterval,
		Timeout:  DefaultTimeout,
		Options:  provider.LiveOptions(),
		Policy:   DefaultNoFacePolicy,
	}
}

// UpdateFunc receives every result a detector publishes
type UpdateFunc func(emotion.Result)

// Poller runs the model on a source on a fixed cadence.
// Steps of one run are sequential: a tick arriving while a step is still running
// is dropped, so the model is never invoked concurrently by the same run.
type Poller struct {
	model    Model
	cfg      PollerConfig
	logger   *slog.Logger
	onUpdate UpdateFunc

	mu        sync.Mutex
	source    media.Source
	result    *emotion.Result
	detecting bool
	gen       uint64
	cancel    context.CancelFunc
}

type PollerOption func(*Poller)

func WithLogger(logger *slog.Logger) PollerOption {
	return func(p *Poller) {
		p.logger = logger
	}
}

// OnUpdate registers the callback invoked after each applied result
func OnUpdate(fn UpdateFunc) PollerOption {
	return func(p *Poller) {
		p.onUpdate = fn
	}
}

func NewPoller(model Model, cfg PollerConfig, opts ...PollerOption) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Policy == "" {
		cfg.Policy = DefaultNoFacePolicy
	}

	p := &Poller{
		model:  model,
		cfg:    cfg,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start begins polling source, replacing any previous run. The model load is
// triggered in the background; ticks are skipped until it completes.
func (p *Poller) Start(source media.Source) {
	ctx, cancel := context.WithCancel(context.Background())

	p.mu.Lock()
	if p.cancel != nil {
		p.cancel()
	}
	p.gen++
	gen := p.gen
	p.source = source
	p.detecting = true
	p.cancel = cancel
	p.mu.Unlock()

	go func() {
		if err := p.model.Load(ctx); err != nil && ctx.Err() == nil {
			p.logger.Warn("model load failed, detection paused until reload", "error", err)
		}
	}()

	go p.loop(ctx, gen)
}

// Stop cancels polling, releases the source and clears the result.
// A detection call still in flight finishes, but its result is discarded.
func (p *Poller) Stop() {
	p.halt(false)
}

func (p *Poller) halt(keepResult bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.gen++
	p.source = nil
	p.detecting = false
	if !keepResult {
		p.result = nil
	}
}

func (p *Poller) loop(ctx context.Context, gen uint64) {
	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.step(ctx, gen)
		}
	}
}

// step runs one detection pass; any reason not to run silently skips the tick
func (p *Poller) step(ctx context.Context, gen uint64) {
	if ctx.Err() != nil || !p.model.Loaded() {
		return
	}

	p.mu.Lock()
	source := p.source
	current := gen == p.gen
	p.mu.Unlock()

	if !current || source == nil || !source.Ready() {
		return
	}

	// in-flight calls outlive Stop; the generation check discards their result
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.cfg.Timeout)
	defer cancel()

	frame, err := source.Frame(callCtx)
	if err != nil {
		p.logger.Debug("frame unavailable", "error", err)
		return
	}

	frame, err = media.Fit(frame, p.cfg.Options.InputSize)
	if err != nil {
		p.logger.Debug("frame resize failed", "error", err)
		return
	}

	scores, err := p.model.DetectOne(callCtx, frame.Data, p.cfg.Options)
	if err != nil {
		p.logger.Warn("detection error", "error", err)
		return
	}

	p.apply(gen, scores)
}

func (p *Poller) apply(gen uint64, scores *emotion.Scores) {
	p.mu.Lock()
	if gen != p.gen {
		p.mu.Unlock()
		return
	}

	var next *emotion.Result
	if scores != nil {
		r := emotion.Normalize(*scores)
		next = &r
	} else {
		next = p.cfg.Policy.Apply(p.result)
	}
	p.result = next
	fn := p.onUpdate
	p.mu.Unlock()

	if fn != nil && next != nil {
		fn(*next)
	}
}

// Result returns the latest result, nil when none
func (p *Poller) Result() *emotion.Result {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.result == nil {
		return nil
	}
	r := *p.result
	return &r
}

func (p *Poller) Detecting() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.detecting
}
