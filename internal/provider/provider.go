package provider

import (
	"context"

	"github.com/saturnino-fabrica-de-software/emotisense/internal/emotion"
)

// Default detection options, matching the tiny face detector settings the
// demo was tuned with.
const (
	LiveInputSize         = 224
	StillInputSize        = 416
	DefaultScoreThreshold = 0.5
)

// ExpressionProvider define a interface para provedores de classificação de expressões faciais
type ExpressionProvider interface {
	// Name identifies the backend in logs and status responses
	Name() string

	// Load prepares the backend (fetches model assets, builds clients).
	// It is called once per process by model.Service.
	Load(ctx context.Context) error

	// DetectOne finds the single best face in an encoded frame and classifies its expression.
	// Returns nil scores and nil error when no face is found, including faces scored below
	// opts.ScoreThreshold.
	DetectOne(ctx context.Context, frame []byte, opts DetectOptions) (*emotion.Scores, error)
}

// DetectOptions tunes a single detection pass
type DetectOptions struct {
	// InputSize is the longest side, in pixels, the frame is scaled to before inference
	InputSize int `json:"input_size"`
	// ScoreThreshold is the minimum face detection score in [0,1]
	ScoreThreshold float64 `json:"score_threshold"`
}

// LiveOptions returns options for camera and video frames
func LiveOptions() DetectOptions {
	return DetectOptions{InputSize: LiveInputSize, ScoreThreshold: DefaultScoreThreshold}
}

// StillOptions returns options for uploaded still images
func StillOptions() DetectOptions {
	return DetectOptions{InputSize: StillInputSize, ScoreThreshold: DefaultScoreThreshold}
}
