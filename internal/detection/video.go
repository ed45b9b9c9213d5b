package detection

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/emotisense/internal/emotion"
	"github.com/saturnino-fabrica-de-software/emotisense/internal/media"
)

// VideoDetector polls an uploaded video while the client plays it
type VideoDetector struct {
	model    Model
	previews *media.Previews
	poller   *Poller
	logger   *slog.Logger

	mu      sync.Mutex
	gen     uint64
	preview *media.Preview
	loadErr error
}

func NewVideoDetector(model Model, previews *media.Previews, cfg PollerConfig, opts ...PollerOption) *VideoDetector {
	p := NewPoller(model, cfg, opts...)
	return &VideoDetector{
		model:    model,
		previews: previews,
		poller:   p,
		logger:   p.logger,
	}
}

// ProcessVideo stores the upload as the playable preview and waits for the model.
// It does not start polling. A load failure is logged and reported by LoadErr.
// A call overtaken by a newer ProcessVideo or ClearVideo returns ErrSuperseded
// and leaves no preview behind.
func (v *VideoDetector) ProcessVideo(ctx context.Context, r io.Reader, contentType string, maxSize int64) (media.Preview, error) {
	v.mu.Lock()
	v.gen++
	gen := v.gen
	v.revokeLocked()
	v.mu.Unlock()

	v.poller.Stop()

	preview, err := v.previews.Create(r, contentType, maxSize)
	if err != nil {
		return media.Preview{}, err
	}

	v.mu.Lock()
	if gen != v.gen {
		v.mu.Unlock()
		v.previews.Revoke(preview.ID)
		return media.Preview{}, ErrSuperseded
	}
	v.preview = &preview
	v.mu.Unlock()

	if err := v.model.Load(ctx); err != nil {
		v.logger.Warn("model load failed for video", "error", err)
		v.mu.Lock()
		if gen == v.gen {
			v.loadErr = err
		}
		v.mu.Unlock()
	}

	return preview, nil
}

// Current reports whether id is still the preview of the latest upload
func (v *VideoDetector) Current(id uuid.UUID) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.preview != nil && v.preview.ID == id
}

// Release drops the preview id if it is still current. Uploads that lost
// their video file call it to undo ProcessVideo.
func (v *VideoDetector) Release(id uuid.UUID) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.preview != nil && v.preview.ID == id {
		v.gen++
		v.revokeLocked()
	}
}

func (v *VideoDetector) revokeLocked() {
	if v.preview != nil {
		v.previews.Revoke(v.preview.ID)
		v.preview = nil
	}
	v.loadErr = nil
}

// StartVideoDetection polls source every interval
func (v *VideoDetector) StartVideoDetection(source media.Source) {
	v.poller.Start(source)
}

// StopVideoDetection stops polling and keeps the last result
func (v *VideoDetector) StopVideoDetection() {
	v.poller.halt(true)
}

// ClearVideo stops polling, drops the result and revokes the preview
func (v *VideoDetector) ClearVideo() {
	v.poller.Stop()

	v.mu.Lock()
	defer v.mu.Unlock()
	v.gen++
	v.revokeLocked()
}

func (v *VideoDetector) Result() *emotion.Result {
	return v.poller.Result()
}

func (v *VideoDetector) Detecting() bool {
	return v.poller.Detecting()
}

func (v *VideoDetector) Preview() *media.Preview {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.preview == nil {
		return nil
	}
	p := *v.preview
	return &p
}

// LoadErr is the model error recorded by the last ProcessVideo
func (v *VideoDetector) LoadErr() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.loadErr
}
