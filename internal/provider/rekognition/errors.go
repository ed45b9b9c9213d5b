package rekognition

import "errors"

var (
	// ErrInvalidCredentials indicates that AWS credentials are invalid or missing
	ErrInvalidCredentials = errors.New("invalid or missing AWS credentials")

	// ErrInvalidImage indicates the image is empty, too small or too large for Rekognition
	ErrInvalidImage = errors.New("invalid image for rekognition")

	// ErrNotLoaded is returned when DetectOne runs before Load
	ErrNotLoaded = errors.New("rekognition client not loaded")
)
