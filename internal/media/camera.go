package media

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// Default camera settings
const (
	DefaultWidth  = 640
	DefaultHeight = 480
)

// CameraStatus mirrors the browser camera lifecycle
type CameraStatus string

const (
	CameraIdle       CameraStatus = "idle"
	CameraRequesting CameraStatus = "requesting"
	CameraActive     CameraStatus = "active"
	CameraError      CameraStatus = "error"
	CameraDenied     CameraStatus = "denied"
)

const (
	msgCameraDenied   = "Camera permission was denied. Please allow camera access to use emotion detection."
	msgCameraNotFound = "No camera found. Please connect a camera and try again."
	msgCameraFailed   = "Failed to access camera"
)

var (
	// ErrCameraNotOpen is returned when trying to read from a camera that is not open.
	ErrCameraNotOpen = errors.New("camera is not open")
	// ErrNoDevice is returned when the capture device does not exist
	ErrNoDevice = errors.New("camera device not found")
)

// CameraState is the status plus the user-facing error message
type CameraState struct {
	Status CameraStatus `json:"status"`
	Error  string       `json:"error,omitempty"`
}

// ClassifyCameraError maps a capture error message onto a camera state
func ClassifyCameraError(message string) CameraState {
	switch {
	case strings.Contains(message, "Permission denied"),
		strings.Contains(message, "permission denied"),
		strings.Contains(message, "NotAllowedError"):
		return CameraState{Status: CameraDenied, Error: msgCameraDenied}
	case strings.Contains(message, "NotFoundError"),
		strings.Contains(message, ErrNoDevice.Error()):
		return CameraState{Status: CameraError, Error: msgCameraNotFound}
	case message == "":
		return CameraState{Status: CameraError, Error: msgCameraFailed}
	}
	return CameraState{Status: CameraError, Error: message}
}

// Device is a frame grabber the Camera drives
type Device interface {
	Open() error
	Close() error
	// Read returns one JPEG-encoded frame and its size
	Read() ([]byte, int, int, error)
}

// Camera is a server-attached capture device
type Camera struct {
	device Device

	mu    sync.Mutex
	state CameraState
}

func NewCamera(device Device) *Camera {
	return &Camera{
		device: device,
		state:  CameraState{Status: CameraIdle},
	}
}

// NewDeviceCamera opens the OpenCV capture device with the given index
func NewDeviceCamera(index int) *Camera {
	return NewCamera(&gocvDevice{index: index})
}

// Start opens the device, stopping any previous capture first
func (c *Camera) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	_ = c.device.Close()
	c.state = CameraState{Status: CameraRequesting}

	if err := c.device.Open(); err != nil {
		msg := err.Error()
		if errors.Is(err, os.ErrPermission) {
			msg = "Permission denied"
		}
		c.state = ClassifyCameraError(msg)
		return fmt.Errorf("start camera: %w", err)
	}

	c.state = CameraState{Status: CameraActive}
	return nil
}

// Stop releases the device and resets the status
func (c *Camera) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	err := c.device.Close()
	c.state = CameraState{Status: CameraIdle}
	return err
}

func (c *Camera) State() CameraState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Camera) Ready() bool {
	return c.State().Status == CameraActive
}

func (c *Camera) Frame(ctx context.Context) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Status != CameraActive {
		return Frame{}, ErrCameraNotOpen
	}

	data, w, h, err := c.device.Read()
	if err != nil {
		return Frame{}, err
	}
	return Frame{Data: data, Width: w, Height: h, Timestamp: time.Now()}, nil
}

var _ Source = (*Camera)(nil)

// gocvDevice captures from an OpenCV video device
type gocvDevice struct {
	index   int
	capture *gocv.VideoCapture
}

// Open opens the camera at the ideal 640x480 resolution
func (d *gocvDevice) Open() error {
	capture, err := gocv.OpenVideoCapture(d.index)
	if err != nil {
		return err
	}
	if !capture.IsOpened() {
		_ = capture.Close()
		return fmt.Errorf("%w: index %d", ErrNoDevice, d.index)
	}

	capture.Set(gocv.VideoCaptureFrameWidth, DefaultWidth)
	capture.Set(gocv.VideoCaptureFrameHeight, DefaultHeight)

	d.capture = capture
	return nil
}

func (d *gocvDevice) Close() error {
	if d.capture == nil {
		return nil
	}
	err := d.capture.Close()
	d.capture = nil
	return err
}

func (d *gocvDevice) Read() ([]byte, int, int, error) {
	if d.capture == nil {
		return nil, 0, 0, ErrCameraNotOpen
	}

	mat := gocv.NewMat()
	defer mat.Close()

	if ok := d.capture.Read(&mat); !ok {
		return nil, 0, 0, errors.New("failed to read frame from camera")
	}
	if mat.Empty() {
		return nil, 0, 0, ErrNoFrame
	}

	return encodeMat(mat)
}

// encodeMat encodes a Mat to JPEG, copying the bytes out of the native buffer
func encodeMat(mat gocv.Mat) ([]byte, int, int, error) {
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, mat)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	native := buf.GetBytes()
	data := make([]byte, len(native))
	copy(data, native)

	return data, mat.Cols(), mat.Rows(), nil
}
