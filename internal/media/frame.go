// Package media provides the visual sources the detectors borrow: browser
// camera frames, device cameras and video files (gocv), uploaded image decoding
// and the preview registry.
package media

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNoFrame is returned when a source has not produced any frame yet
	ErrNoFrame = errors.New("no frame available")
	// ErrSourceClosed is returned when reading from a released source
	ErrSourceClosed = errors.New("source closed")
)

// Frame is one encoded JPEG image taken from a source
type Frame struct {
	Data      []byte
	Width     int
	Height    int
	Timestamp time.Time
	// Position is the media time for video sources, zero for live ones
	Position time.Duration
}

// Source is a visual source a detector can poll.
// Ready reports whether a frame can be taken right now (not paused, not ended,
// has decoded data).
type Source interface {
	Ready() bool
	Frame(ctx context.Context) (Frame, error)
}
