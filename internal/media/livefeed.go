package media

import (
	"context"
	"sync"
	"time"
)

// DefaultMaxFrameAge is how long a pushed frame counts as current data
const DefaultMaxFrameAge = 2 * time.Second

// LiveFeed is a camera stream captured in the browser and pushed frame by frame
// over the session WebSocket.
type LiveFeed struct {
	maxAge time.Duration
	now    func() time.Time

	mu     sync.RWMutex
	active bool
	paused bool
	latest *Frame
	state  CameraState
}

func NewLiveFeed(maxAge time.Duration) *LiveFeed {
	if maxAge <= 0 {
		maxAge = DefaultMaxFrameAge
	}
	return &LiveFeed{
		maxAge: maxAge,
		now:    time.Now,
		state:  CameraState{Status: CameraIdle},
	}
}

// Activate marks the browser camera as requested; frames are accepted from now on
func (l *LiveFeed) Activate() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.active = true
	l.paused = false
	l.state = CameraState{Status: CameraRequesting}
}

// Deactivate releases the feed and drops the last frame
func (l *LiveFeed) Deactivate() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.active = false
	l.paused = false
	l.latest = nil
	l.state = CameraState{Status: CameraIdle}
}

func (l *LiveFeed) Pause() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.paused = true
}

func (l *LiveFeed) Resume() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.paused = false
}

// ReportError records a getUserMedia failure reported by the browser
func (l *LiveFeed) ReportError(message string) CameraState {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.state = ClassifyCameraError(message)
	l.latest = nil
	return l.state
}

// Push stores a JPEG frame. Frames pushed while inactive are dropped.
func (l *LiveFeed) Push(data []byte) error {
	w, h, err := probeJPEG(data)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.active {
		return ErrSourceClosed
	}

	buf := make([]byte, len(data))
	copy(buf, data)
	l.latest = &Frame{Data: buf, Width: w, Height: h, Timestamp: l.now()}
	if l.state.Status != CameraActive {
		l.state = CameraState{Status: CameraActive}
	}
	return nil
}

// Ready reports an active, unpaused feed with a current frame
func (l *LiveFeed) Ready() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.active && !l.paused && l.latest != nil &&
		l.now().Sub(l.latest.Timestamp) <= l.maxAge
}

// Frame returns the latest pushed frame
func (l *LiveFeed) Frame(ctx context.Context) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	if !l.active {
		return Frame{}, ErrSourceClosed
	}
	if l.latest == nil {
		return Frame{}, ErrNoFrame
	}
	return *l.latest, nil
}

func (l *LiveFeed) State() CameraState {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

func (l *LiveFeed) Paused() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.paused
}

var _ Source = (*LiveFeed)(nil)
