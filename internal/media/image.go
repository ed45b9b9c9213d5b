package media

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"time"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const (
	// JPEGQuality is used when frames are re-encoded
	JPEGQuality = 90

	// MaxPixels bounds the decoded size of any image, checked from its header
	MaxPixels = 40_000_000
)

var (
	// ErrUnsupportedImage is returned for data no registered decoder accepts
	ErrUnsupportedImage = errors.New("unsupported or corrupted image")

	ErrTooManyPixels = errors.New("image dimensions exceed the pixel limit")
)

// DecodeImage decodes JPEG, PNG, GIF or WebP data, scales it down so its longest
// side is at most maxSide (0 keeps the size) and re-encodes it as JPEG.
func DecodeImage(data []byte, maxSide int) (Frame, error) {
	img, format, err := decodeBounded(data)
	if err != nil {
		return Frame{}, err
	}

	// already a JPEG of the right size: no need to re-encode
	b := img.Bounds()
	if format == "jpeg" && (maxSide <= 0 || max(b.Dx(), b.Dy()) <= maxSide) {
		return Frame{Data: data, Width: b.Dx(), Height: b.Dy(), Timestamp: time.Now()}, nil
	}

	return encodeFrame(resize(img, maxSide))
}

// Fit scales an encoded frame down to maxSide, keeping frames already small enough untouched
func Fit(f Frame, maxSide int) (Frame, error) {
	if maxSide <= 0 || (f.Width > 0 && max(f.Width, f.Height) <= maxSide) {
		return f, nil
	}

	img, _, err := decodeBounded(f.Data)
	if err != nil {
		return Frame{}, err
	}

	out, err := encodeFrame(resize(img, maxSide))
	if err != nil {
		return Frame{}, err
	}
	out.Timestamp = f.Timestamp
	out.Position = f.Position
	return out, nil
}

// decodeBounded reads the header first so oversized images are rejected before
// their pixels are allocated
func decodeBounded(data []byte) (image.Image, string, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return nil, "", fmt.Errorf("%w: %w: %dx%d", ErrUnsupportedImage, ErrTooManyPixels, cfg.Width, cfg.Height)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}
	return img, format, nil
}

// resize scales img so that its longest side equals maxSide, preserving aspect ratio
func resize(img image.Image, maxSide int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	longest := max(w, h)
	if maxSide <= 0 || longest <= maxSide {
		return img
	}

	nw := max(1, w*maxSide/longest)
	nh := max(1, h*maxSide/longest)

	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}

func encodeFrame(img image.Image) (Frame, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return Frame{}, fmt.Errorf("encode jpeg: %w", err)
	}

	b := img.Bounds()
	return Frame{
		Data:      buf.Bytes(),
		Width:     b.Dx(),
		Height:    b.Dy(),
		Timestamp: time.Now(),
	}, nil
}

// probeJPEG reads the dimensions of an encoded JPEG without decoding pixels
func probeJPEG(data []byte) (int, int, error) {
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}
	return cfg.Width, cfg.Height, nil
}
