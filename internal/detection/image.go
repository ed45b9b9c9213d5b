package detection

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/saturnino-fabrica-de-software/emotisense/internal/domain"
	"github.com/saturnino-fabrica-de-software/emotisense/internal/emotion"
	"github.com/saturnino-fabrica-de-software/emotisense/internal/media"
	"github.com/saturnino-fabrica-de-software/emotisense/internal/provider"
)

// ErrSuperseded is returned to an upload overtaken by a newer one on the same detector
var ErrSuperseded = domain.ErrSuperseded

// ImageDetector runs one detection pass per uploaded still image
type ImageDetector struct {
	model    Model
	previews *media.Previews
	opts     provider.DetectOptions
	policy   NoFacePolicy
	logger   *slog.Logger
	onUpdate UpdateFunc

	mu         sync.Mutex
	gen        uint64
	processing bool
	result     *emotion.Result
	preview    *media.Preview
}

type ImageOption func(*ImageDetector)

func WithImageLogger(logger *slog.Logger) ImageOption {
	return func(d *ImageDetector) {
		d.logger = logger
	}
}

func OnImageUpdate(fn UpdateFunc) ImageOption {
	return func(d *ImageDetector) {
		d.onUpdate = fn
	}
}

func NewImageDetector(model Model, previews *media.Previews, opts provider.DetectOptions, policy NoFacePolicy, options ...ImageOption) *ImageDetector {
	if policy == "" {
		policy = DefaultNoFacePolicy
	}
	d := &ImageDetector{
		model:    model,
		previews: previews,
		opts:     opts,
		policy:   policy,
		logger:   slog.Default(),
	}
	for _, opt := range options {
		opt(d)
	}
	return d
}

// ProcessImage replaces the current preview with data and classifies it.
// On load or decode failure the result stays empty and the error is returned.
func (d *ImageDetector) ProcessImage(ctx context.Context, data []byte, contentType string) (*emotion.Result, error) {
	d.mu.Lock()
	d.gen++
	gen := d.gen
	d.revokeLocked()
	d.result = nil
	d.processing = true
	d.mu.Unlock()

	preview, err := d.previews.Create(bytes.NewReader(data), contentType, 0)
	if err != nil {
		d.finish(gen)
		return nil, domain.ErrInternal.WithError(fmt.Errorf("store preview: %w", err))
	}

	d.mu.Lock()
	if gen != d.gen {
		d.mu.Unlock()
		d.previews.Revoke(preview.ID)
		return nil, ErrSuperseded
	}
	d.preview = &preview
	d.mu.Unlock()

	if err := d.model.Load(ctx); err != nil {
		d.finish(gen)
		if errors.Is(err, domain.ErrModelUnavailable) {
			return nil, err
		}
		return nil, domain.ErrModelUnavailable.WithError(err)
	}

	frame, err := media.DecodeImage(data, d.opts.InputSize)
	if err != nil {
		d.finish(gen)
		return nil, domain.ErrInvalidImage.WithError(err)
	}

	scores, err := d.model.DetectOne(ctx, frame.Data, d.opts)
	if err != nil {
		d.finish(gen)
		return nil, fmt.Errorf("detect expression: %w", err)
	}

	var next *emotion.Result
	if scores != nil {
		r := emotion.Normalize(*scores)
		next = &r
	} else {
		next = d.policy.Apply(nil)
	}

	d.mu.Lock()
	if gen != d.gen {
		d.mu.Unlock()
		return nil, ErrSuperseded
	}
	d.result = next
	d.processing = false
	fn := d.onUpdate
	d.mu.Unlock()

	if fn != nil && next != nil {
		fn(*next)
	}

	if next == nil {
		return nil, nil
	}
	r := *next
	return &r, nil
}

func (d *ImageDetector) finish(gen uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if gen == d.gen {
		d.processing = false
	}
}

func (d *ImageDetector) revokeLocked() {
	if d.preview != nil {
		d.previews.Revoke(d.preview.ID)
		d.preview = nil
	}
}

// ClearResult revokes the preview and drops the result, discarding any pass in flight
func (d *ImageDetector) ClearResult() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.gen++
	d.revokeLocked()
	d.result = nil
	d.processing = false
}

func (d *ImageDetector) Result() *emotion.Result {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.result == nil {
		return nil
	}
	r := *d.result
	return &r
}

func (d *ImageDetector) Processing() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.processing
}

func (d *ImageDetector) Preview() *media.Preview {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.preview == nil {
		return nil
	}
	p := *d.preview
	return &p
}
