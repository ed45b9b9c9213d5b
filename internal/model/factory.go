package model

import (
	"fmt"
	"log/slog"

	"github.com/saturnino-fabrica-de-software/emotisense/internal/config"
	"github.com/saturnino-fabrica-de-software/emotisense/internal/provider"
	"github.com/saturnino-fabrica-de-software/emotisense/internal/provider/deepface"
	"github.com/saturnino-fabrica-de-software/emotisense/internal/provider/mock"
	"github.com/saturnino-fabrica-de-software/emotisense/internal/provider/rekognition"
)

// ProviderType defines supported expression provider types
type ProviderType string

const (
	// ProviderTypeDeepFace is the DeepFace provider (self-hosted service)
	ProviderTypeDeepFace ProviderType = "deepface"
	// ProviderTypeRekognition is the AWS Rekognition provider (cloud)
	ProviderTypeRekognition ProviderType = "rekognition"
	// ProviderTypeMock is the deterministic in-process provider
	ProviderTypeMock ProviderType = "mock"
)

// NewProvider creates an ExpressionProvider based on configuration.
// No network call is made; the backend is contacted on Load.
//
// Environment variables:
//   - PROVIDER_TYPE: "deepface", "rekognition" or "mock" (default: "deepface")
//   - DEEPFACE_URL, DEEPFACE_DETECTOR: DeepFace API
//   - AWS_REGION: AWS region for Rekognition (credentials via the AWS SDK chain)
func NewProvider(cfg *config.Config, logger *slog.Logger) (provider.ExpressionProvider, error) {
	switch ProviderType(cfg.ProviderType) {
	case ProviderTypeRekognition:
		return rekognition.NewProvider(
			rekognition.Config{Region: cfg.AWSRegion},
			rekognition.WithLogger(logger.With("component", "rekognition")),
		), nil

	case ProviderTypeDeepFace, "":
		return createDeepFaceProvider(cfg), nil

	case ProviderTypeMock:
		return mock.New(), nil

	default:
		return nil, fmt.Errorf("unknown provider type: %s (supported: %s, %s, %s)",
			cfg.ProviderType, ProviderTypeDeepFace, ProviderTypeRekognition, ProviderTypeMock)
	}
}

// createDeepFaceProvider creates a DeepFace provider instance
func createDeepFaceProvider(cfg *config.Config) provider.ExpressionProvider {
	deepfaceConfig := deepface.DefaultConfig()

	if cfg.DeepFaceURL != "" {
		deepfaceConfig.BaseURL = cfg.DeepFaceURL
	}
	if cfg.DeepFaceDetector != "" {
		deepfaceConfig.Detector = cfg.DeepFaceDetector
	}
	if cfg.DetectionTimeout > 0 {
		deepfaceConfig.Timeout = cfg.DetectionTimeout
	}

	return deepface.NewProvider(deepfaceConfig)
}
