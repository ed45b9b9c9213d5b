package media

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// ErrInvalidVideo is returned when a file cannot be opened as a video
var ErrInvalidVideo = errors.New("invalid or unsupported video")

// VideoDecoder reads frames from a video at a given media time
type VideoDecoder interface {
	Duration() time.Duration
	ReadAt(pos time.Duration) ([]byte, int, int, error)
	Close() error
}

// VideoState is the playback snapshot exposed to clients
type VideoState struct {
	Playing    bool  `json:"playing"`
	Ended      bool  `json:"ended"`
	PositionMs int64 `json:"position_ms"`
	DurationMs int64 `json:"duration_ms"`
}

// VideoFile is an uploaded video played on a wall clock. Playback is driven by
// the client (play, pause, seek); the detector only samples the current position.
type VideoFile struct {
	decoder VideoDecoder
	now     func() time.Time

	mu        sync.Mutex
	playing   bool
	closed    bool
	base      time.Duration
	startedAt time.Time
}

func NewVideoFile(decoder VideoDecoder) *VideoFile {
	return &VideoFile{
		decoder: decoder,
		now:     time.Now,
	}
}

// OpenVideoFile opens path with OpenCV
func OpenVideoFile(path string) (*VideoFile, error) {
	decoder, err := OpenVideoDecoder(path)
	if err != nil {
		return nil, err
	}
	return NewVideoFile(decoder), nil
}

func (v *VideoFile) Duration() time.Duration {
	return v.decoder.Duration()
}

// position must be called with mu held
func (v *VideoFile) position() time.Duration {
	pos := v.base
	if v.playing {
		pos += v.now().Sub(v.startedAt)
	}
	if d := v.decoder.Duration(); pos > d {
		pos = d
	}
	return pos
}

func (v *VideoFile) ended() bool {
	d := v.decoder.Duration()
	return d > 0 && v.position() >= d
}

// Play starts or resumes playback; playing an ended video restarts it
func (v *VideoFile) Play() {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.ended() {
		v.base = 0
		v.playing = false
	}
	if v.playing {
		return
	}
	v.playing = true
	v.startedAt = v.now()
}

func (v *VideoFile) Pause() {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.playing {
		return
	}
	v.base = v.position()
	v.playing = false
}

// Seek moves the playback position, clamped to the video bounds
func (v *VideoFile) Seek(pos time.Duration) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if pos < 0 {
		pos = 0
	}
	if d := v.decoder.Duration(); pos > d {
		pos = d
	}
	v.base = pos
	v.startedAt = v.now()
}

func (v *VideoFile) Position() time.Duration {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.position()
}

func (v *VideoFile) Ended() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.ended()
}

func (v *VideoFile) State() VideoState {
	v.mu.Lock()
	defer v.mu.Unlock()

	ended := v.ended()
	return VideoState{
		Playing:    v.playing && !ended,
		Ended:      ended,
		PositionMs: v.position().Milliseconds(),
		DurationMs: v.decoder.Duration().Milliseconds(),
	}
}

// Ready reports a playing video that has not reached its end
func (v *VideoFile) Ready() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return !v.closed && v.playing && !v.ended()
}

// Frame decodes the frame at the current playback position
func (v *VideoFile) Frame(ctx context.Context) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}

	v.mu.Lock()
	pos := v.position()
	v.mu.Unlock()

	return v.FrameAt(pos)
}

// FrameAt decodes the frame at pos regardless of playback state
func (v *VideoFile) FrameAt(pos time.Duration) (Frame, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return Frame{}, ErrSourceClosed
	}

	data, w, h, err := v.decoder.ReadAt(pos)
	if err != nil {
		return Frame{}, err
	}
	return Frame{Data: data, Width: w, Height: h, Timestamp: v.now(), Position: pos}, nil
}

func (v *VideoFile) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return nil
	}
	v.closed = true
	v.playing = false
	return v.decoder.Close()
}

var _ Source = (*VideoFile)(nil)

// gocvDecoder seeks an OpenCV capture by milliseconds
type gocvDecoder struct {
	capture  *gocv.VideoCapture
	duration time.Duration
}

// OpenVideoDecoder opens a video file with OpenCV and reads its duration
func OpenVideoDecoder(path string) (VideoDecoder, error) {
	capture, err := gocv.VideoCaptureFile(path)
	if err != nil {
		if capture != nil {
			_ = capture.Close()
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidVideo, err)
	}
	if !capture.IsOpened() {
		_ = capture.Close()
		return nil, fmt.Errorf("%w: cannot open %s", ErrInvalidVideo, path)
	}

	fps := capture.Get(gocv.VideoCaptureFPS)
	frames := capture.Get(gocv.VideoCaptureFrameCount)
	if fps <= 0 || frames <= 0 {
		_ = capture.Close()
		return nil, fmt.Errorf("%w: no frames in %s", ErrInvalidVideo, path)
	}

	return &gocvDecoder{
		capture:  capture,
		duration: time.Duration(frames / fps * float64(time.Second)),
	}, nil
}

func (d *gocvDecoder) Duration() time.Duration {
	return d.duration
}

func (d *gocvDecoder) ReadAt(pos time.Duration) ([]byte, int, int, error) {
	d.capture.Set(gocv.VideoCapturePosMsec, float64(pos.Milliseconds()))

	mat := gocv.NewMat()
	defer mat.Close()

	if ok := d.capture.Read(&mat); !ok || mat.Empty() {
		return nil, 0, 0, ErrNoFrame
	}

	return encodeMat(mat)
}

func (d *gocvDecoder) Close() error {
	return d.capture.Close()
}
