// Package session owns the visual sources and detectors of one demo visitor.
package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/emotisense/internal/detection"
	"github.com/saturnino-fabrica-de-software/emotisense/internal/domain"
	"github.com/saturnino-fabrica-de-software/emotisense/internal/emotion"
	"github.com/saturnino-fabrica-de-software/emotisense/internal/media"
)

// CameraMode says where camera frames come from
type CameraMode string

const (
	CameraBrowser CameraMode = "browser"
	CameraDevice  CameraMode = "device"
)

// Publisher receives every result a session's detectors publish
type Publisher interface {
	PublishDetection(sessionID uuid.UUID, source domain.Source, result emotion.Result)
}

// Recorder keeps the detection history of a session
type Recorder interface {
	Record(sessionID uuid.UUID, source domain.Source, result emotion.Result) bool
	Forget(sessionID uuid.UUID)
}

// Session is one visitor's demo panel. It acquires and releases every source
// its detectors borrow.
type Session struct {
	ID        uuid.UUID
	CreatedAt time.Time

	logger    *slog.Logger
	openVideo VideoOpener
	now       func() time.Time

	feed         *media.LiveFeed
	camera       *media.Camera
	cameraPoller *detection.Poller
	image        *detection.ImageDetector
	video        *detection.VideoDetector

	mu         sync.Mutex
	lastSeen   time.Time
	cameraMode CameraMode
	videoFile  *media.VideoFile
	closed     bool
}

// CameraSnapshot is the camera panel state
type CameraSnapshot struct {
	media.CameraState
	Mode      CameraMode      `json:"mode,omitempty"`
	Paused    bool            `json:"paused"`
	Detecting bool            `json:"detecting"`
	Result    *emotion.Result `json:"result"`
}

// ImageSnapshot is the image panel state
type ImageSnapshot struct {
	Processing bool            `json:"processing"`
	Result     *emotion.Result `json:"result"`
	Preview    *media.Preview  `json:"preview"`
}

// VideoSnapshot is the video panel state
type VideoSnapshot struct {
	Detecting bool              `json:"detecting"`
	Result    *emotion.Result   `json:"result"`
	Preview   *media.Preview    `json:"preview"`
	Playback  *media.VideoState `json:"playback"`
	LoadError string            `json:"load_error,omitempty"`
}

// Snapshot is everything the presentation layer renders for a session
type Snapshot struct {
	ID        uuid.UUID      `json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	LastSeen  time.Time      `json:"last_seen"`
	Camera    CameraSnapshot `json:"camera"`
	Image     ImageSnapshot  `json:"image"`
	Video     VideoSnapshot  `json:"video"`
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

// active marks socket traffic so the janitor keeps a streaming session
func (s *Session) active() {
	s.touch(s.now())
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// Feed is the browser camera feed fed by the session WebSocket
func (s *Session) Feed() *media.LiveFeed {
	return s.feed
}

// PushFrame hands a browser camera frame to the live feed
func (s *Session) PushFrame(data []byte) error {
	s.active()
	return s.feed.Push(data)
}

// PauseCamera pauses sampling of the browser feed; the poller skips ticks until resumed
func (s *Session) PauseCamera() {
	s.active()
	s.feed.Pause()
}

func (s *Session) ResumeCamera() {
	s.active()
	s.feed.Resume()
}

// StartCamera starts the camera poller on the browser feed or on the server device
func (s *Session) StartCamera(ctx context.Context, mode CameraMode) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return domain.ErrSessionNotFound
	}

	s.stopCameraLocked()

	switch mode {
	case CameraDevice:
		if s.camera == nil {
			return domain.ErrCameraNotFound
		}
		if err := s.camera.Start(ctx); err != nil {
			s.logger.Warn("camera start failed", "error", err)
			return cameraError(s.camera.State(), err)
		}
		s.cameraMode = CameraDevice
		s.cameraPoller.Start(s.camera)
	default:
		s.feed.Activate()
		s.cameraMode = CameraBrowser
		s.cameraPoller.Start(s.feed)
	}

	return nil
}

// StopCamera stops polling and releases the camera
func (s *Session) StopCamera() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopCameraLocked()
}

func (s *Session) stopCameraLocked() {
	s.cameraPoller.Stop()
	s.feed.Deactivate()
	if s.camera != nil {
		if err := s.camera.Stop(); err != nil {
			s.logger.Debug("camera release failed", "error", err)
		}
	}
	s.cameraMode = ""
}

// ReportCameraError records a browser getUserMedia failure and stops polling
func (s *Session) ReportCameraError(message string) media.CameraState {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastSeen = s.now()
	s.cameraPoller.Stop()
	return s.feed.ReportError(message)
}

func cameraError(state media.CameraState, err error) error {
	switch {
	case state.Status == media.CameraDenied:
		return domain.ErrCameraDenied.WithError(err)
	case errors.Is(err, media.ErrNoDevice):
		return domain.ErrCameraNotFound.WithError(err)
	}
	return domain.ErrCameraUnavailable.WithError(err)
}

// ProcessImage classifies an uploaded still image
func (s *Session) ProcessImage(ctx context.Context, data []byte, contentType string) (*emotion.Result, error) {
	if s.isClosed() {
		return nil, domain.ErrSessionNotFound
	}
	return s.image.ProcessImage(ctx, data, contentType)
}

func (s *Session) ClearImage() {
	s.image.ClearResult()
}

// UploadVideo replaces the session video with r and opens it for playback
func (s *Session) UploadVideo(ctx context.Context, r io.Reader, contentType string, maxSize int64) (media.Preview, error) {
	if s.isClosed() {
		return media.Preview{}, domain.ErrSessionNotFound
	}

	s.closeVideoFile()

	preview, err := s.video.ProcessVideo(ctx, r, contentType, maxSize)
	if err != nil {
		switch {
		case errors.Is(err, media.ErrTooLarge):
			return media.Preview{}, domain.ErrFileTooLarge.WithError(err)
		case errors.Is(err, detection.ErrSuperseded):
			return media.Preview{}, err
		}
		return media.Preview{}, domain.ErrInternal.WithError(err)
	}

	file, err := s.openVideo(preview.Path())
	if err != nil {
		s.video.Release(preview.ID)
		return media.Preview{}, domain.ErrInvalidVideo.WithError(err)
	}

	// A newer upload, ClearVideo or close may have run while the file was opening
	s.mu.Lock()
	closed := s.closed
	current := !closed && s.video.Current(preview.ID)
	var old *media.VideoFile
	if current {
		old = s.videoFile
		s.videoFile = file
	}
	s.mu.Unlock()

	if !current {
		s.closeVideo(file)
		s.video.Release(preview.ID)
		if closed {
			return media.Preview{}, domain.ErrSessionNotFound
		}
		return media.Preview{}, domain.ErrSuperseded
	}

	s.closeVideo(old)
	return preview, nil
}

func (s *Session) withVideo(fn func(v *media.VideoFile)) error {
	s.mu.Lock()
	v := s.videoFile
	s.mu.Unlock()

	if v == nil {
		return domain.ErrNoVideo
	}
	fn(v)
	return nil
}

func (s *Session) PlayVideo() error {
	return s.withVideo(func(v *media.VideoFile) { v.Play() })
}

func (s *Session) PauseVideo() error {
	return s.withVideo(func(v *media.VideoFile) { v.Pause() })
}

func (s *Session) SeekVideo(pos time.Duration) error {
	return s.withVideo(func(v *media.VideoFile) { v.Seek(pos) })
}

// StartVideoDetection polls the uploaded video; ticks are skipped while it is paused or ended
func (s *Session) StartVideoDetection() error {
	return s.withVideo(func(v *media.VideoFile) { s.video.StartVideoDetection(v) })
}

// StopVideoDetection stops polling and keeps the last video result
func (s *Session) StopVideoDetection() {
	s.video.StopVideoDetection()
}

// ClearVideo stops polling, closes the video and revokes its preview
func (s *Session) ClearVideo() {
	s.video.ClearVideo()
	s.closeVideoFile()
}

func (s *Session) closeVideoFile() {
	s.mu.Lock()
	v := s.videoFile
	s.videoFile = nil
	s.mu.Unlock()

	s.closeVideo(v)
}

func (s *Session) closeVideo(v *media.VideoFile) {
	if v == nil {
		return
	}
	if err := v.Close(); err != nil {
		s.logger.Debug("video close failed", "error", err)
	}
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Snapshot returns the current state of the three panels
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	mode := s.cameraMode
	lastSeen := s.lastSeen
	videoFile := s.videoFile
	s.mu.Unlock()

	cameraState := s.feed.State()
	if mode == CameraDevice && s.camera != nil {
		cameraState = s.camera.State()
	}

	snap := Snapshot{
		ID:        s.ID,
		CreatedAt: s.CreatedAt,
		LastSeen:  lastSeen,
		Camera: CameraSnapshot{
			CameraState: cameraState,
			Mode:        mode,
			Paused:      s.feed.Paused(),
			Detecting:   s.cameraPoller.Detecting(),
			Result:      s.cameraPoller.Result(),
		},
		Image: ImageSnapshot{
			Processing: s.image.Processing(),
			Result:     s.image.Result(),
			Preview:    s.image.Preview(),
		},
		Video: VideoSnapshot{
			Detecting: s.video.Detecting(),
			Result:    s.video.Result(),
			Preview:   s.video.Preview(),
		},
	}

	if videoFile != nil {
		state := videoFile.State()
		snap.Video.Playback = &state
	}
	if err := s.video.LoadErr(); err != nil {
		snap.Video.LoadError = err.Error()
		var appErr *domain.AppError
		if errors.As(err, &appErr) {
			snap.Video.LoadError = appErr.Message
		}
	}

	return snap
}

// close stops every detector and releases every source and preview
func (s *Session) close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.stopCameraLocked()
	s.mu.Unlock()

	s.image.ClearResult()
	s.ClearVideo()
}
