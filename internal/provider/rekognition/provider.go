package rekognition

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"

	"github.com/saturnino-fabrica-de-software/emotisense/internal/emotion"
	"github.com/saturnino-fabrica-de-software/emotisense/internal/provider"
)

const (
	// maxImageSize is the maximum image size supported by AWS Rekognition (5MB)
	maxImageSize = 5 * 1024 * 1024
	// minImageSize is the minimum image size for valid processing
	minImageSize = 100
)

// emotionTypes maps Rekognition emotion types onto the closed label set.
// CONFUSED and UNKNOWN have no counterpart and are dropped.
var emotionTypes = map[types.EmotionName]emotion.Emotion{
	types.EmotionNameCalm:      emotion.Neutral,
	types.EmotionNameHappy:     emotion.Happy,
	types.EmotionNameSad:       emotion.Sad,
	types.EmotionNameAngry:     emotion.Angry,
	types.EmotionNameFear:      emotion.Fearful,
	types.EmotionNameDisgusted: emotion.Disgusted,
	types.EmotionNameSurprised: emotion.Surprised,
}

// Provider implements provider.ExpressionProvider using AWS Rekognition DetectFaces
type Provider struct {
	cfg    Config
	logger *slog.Logger

	mu  sync.RWMutex
	api DetectFacesAPI
}

// ProviderOption defines optional configuration for Provider
type ProviderOption func(*Provider)

// WithAPI injects the Rekognition client. Load then skips AWS config resolution.
func WithAPI(api DetectFacesAPI) ProviderOption {
	return func(p *Provider) {
		p.api = api
	}
}

// WithLogger sets the logger used for dropped detections
func WithLogger(logger *slog.Logger) ProviderOption {
	return func(p *Provider) {
		p.logger = logger
	}
}

// Ensure Provider implements provider.ExpressionProvider interface at compile time
var _ provider.ExpressionProvider = (*Provider)(nil)

// NewProvider creates a new Rekognition provider. No AWS call is made until Load.
func NewProvider(cfg Config, opts ...ProviderOption) *Provider {
	p := &Provider{
		cfg:    cfg,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Name returns the backend name
func (p *Provider) Name() string {
	return "rekognition"
}

// Load resolves AWS credentials and builds the client
func (p *Provider) Load(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.api != nil {
		return nil
	}

	client, err := NewClient(ctx, p.cfg)
	if err != nil {
		return fmt.Errorf("create rekognition client: %w", err)
	}
	p.api = client
	return nil
}

// validateImage checks if image data is valid for Rekognition processing
func validateImage(image []byte) error {
	if len(image) == 0 {
		return ErrInvalidImage
	}
	if len(image) < minImageSize {
		return fmt.Errorf("%w: image too small (%d bytes, minimum %d)", ErrInvalidImage, len(image), minImageSize)
	}
	if len(image) > maxImageSize {
		return fmt.Errorf("%w: image too large (%d bytes, maximum %d)", ErrInvalidImage, len(image), maxImageSize)
	}
	return nil
}

// DetectOne detects faces and classifies the most confident one.
// Returns nil scores when no face reaches opts.ScoreThreshold (not an error).
func (p *Provider) DetectOne(ctx context.Context, frame []byte, opts provider.DetectOptions) (*emotion.Scores, error) {
	if err := validateImage(frame); err != nil {
		return nil, err
	}

	p.mu.RLock()
	api := p.api
	p.mu.RUnlock()
	if api == nil {
		return nil, ErrNotLoaded
	}

	output, err := api.DetectFaces(ctx, &rekognition.DetectFacesInput{
		Image: &types.Image{
			Bytes: frame,
		},
		Attributes: []types.Attribute{types.AttributeAll},
	})
	if err != nil {
		noFace, mapped := parseDetectError(err)
		if noFace {
			p.logger.Debug("rekognition rejected frame", "error", err)
			return nil, nil
		}
		return nil, mapped
	}

	best := selectBest(output.FaceDetails)
	if best == nil {
		return nil, nil
	}

	confidence := float64(*best.Confidence) / 100.0
	if confidence < opts.ScoreThreshold {
		p.logger.Debug("face below threshold",
			"confidence", confidence,
			"threshold", opts.ScoreThreshold,
		)
		return nil, nil
	}

	scores := toScores(best.Emotions)
	return &scores, nil
}

// selectBest returns the face detail with the highest detection confidence
func selectBest(details []types.FaceDetail) *types.FaceDetail {
	var best *types.FaceDetail
	for i := range details {
		d := &details[i]
		if d.Confidence == nil {
			continue
		}
		if best == nil || *d.Confidence > *best.Confidence {
			best = d
		}
	}
	return best
}

// toScores converts Rekognition emotion confidences (0-100) into probabilities
func toScores(emotions []types.Emotion) emotion.Scores {
	var scores emotion.Scores
	for _, e := range emotions {
		label, ok := emotionTypes[e.Type]
		if !ok || e.Confidence == nil {
			continue
		}
		v := float64(*e.Confidence) / 100.0
		if v < 0 {
			v = 0
		} else if v > 1 {
			v = 1
		}
		scores[label] = v
	}
	return scores
}
