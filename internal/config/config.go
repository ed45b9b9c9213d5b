package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// Server
	Port        int    `envconfig:"PORT" default:"3000"`
	Environment string `envconfig:"ENV" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL"`

	// Database (history is kept in the log when empty)
	DatabaseURL string `envconfig:"DATABASE_URL"`

	// Provider
	ProviderType     string        `envconfig:"PROVIDER_TYPE" default:"deepface"`
	DeepFaceURL      string        `envconfig:"DEEPFACE_URL" default:"http://localhost:5005"`
	DeepFaceDetector string        `envconfig:"DEEPFACE_DETECTOR" default:"opencv"`
	AWSRegion        string        `envconfig:"AWS_REGION" default:"us-east-1"`
	ModelLoadTimeout time.Duration `envconfig:"MODEL_LOAD_TIMEOUT" default:"30s"`

	// Detection
	DetectionInterval time.Duration `envconfig:"DETECTION_INTERVAL" default:"200ms"`
	DetectionTimeout  time.Duration `envconfig:"DETECTION_TIMEOUT" default:"5s"`
	LiveInputSize     int           `envconfig:"LIVE_INPUT_SIZE" default:"224"`
	ImageInputSize    int           `envconfig:"IMAGE_INPUT_SIZE" default:"416"`
	ScoreThreshold    float64       `envconfig:"SCORE_THRESHOLD" default:"0.5"`
	NoFacePolicy      string        `envconfig:"NO_FACE_POLICY"`

	// Sessions & media
	SessionIdleTimeout time.Duration `envconfig:"SESSION_IDLE_TIMEOUT" default:"15m"`
	PreviewDir         string        `envconfig:"PREVIEW_DIR"`
	MaxImageSize       int64         `envconfig:"MAX_IMAGE_SIZE" default:"10485760"`
	MaxVideoSize       int64         `envconfig:"MAX_VIDEO_SIZE" default:"104857600"`

	// Device camera (server-attached webcam via gocv)
	CameraDeviceEnabled bool `envconfig:"CAMERA_DEVICE_ENABLED" default:"false"`
	CameraDevice        int  `envconfig:"CAMERA_DEVICE" default:"0"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return &cfg, nil
}

// Validate rejects values envconfig cannot check on its own
func (c *Config) Validate() error {
	switch c.ProviderType {
	case "deepface", "rekognition", "mock":
	default:
		return fmt.Errorf("unknown PROVIDER_TYPE %q (supported: deepface, rekognition, mock)", c.ProviderType)
	}

	switch c.NoFacePolicy {
	case "", "keep_last", "reset":
	default:
		return fmt.Errorf("unknown NO_FACE_POLICY %q (supported: keep_last, reset)", c.NoFacePolicy)
	}

	if c.DetectionInterval <= 0 {
		return fmt.Errorf("DETECTION_INTERVAL must be positive")
	}
	if c.ScoreThreshold < 0 || c.ScoreThreshold > 1 {
		return fmt.Errorf("SCORE_THRESHOLD must be between 0 and 1")
	}
	if c.LiveInputSize <= 0 || c.ImageInputSize <= 0 {
		return fmt.Errorf("input sizes must be positive")
	}
	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// HistoryEnabled reports whether detection history goes to Postgres
func (c *Config) HistoryEnabled() bool {
	return c.DatabaseURL != ""
}
