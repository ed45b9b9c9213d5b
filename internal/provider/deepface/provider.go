package deepface

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"math"

	"github.com/saturnino-fabrica-de-software/emotisense/internal/emotion"
	"github.com/saturnino-fabrica-de-software/emotisense/internal/provider"
)

// emotionKeys maps DeepFace's emotion labels onto the closed label set
var emotionKeys = map[string]emotion.Emotion{
	"neutral":  emotion.Neutral,
	"happy":    emotion.Happy,
	"sad":      emotion.Sad,
	"angry":    emotion.Angry,
	"fear":     emotion.Fearful,
	"disgust":  emotion.Disgusted,
	"surprise": emotion.Surprised,
}

// Provider implements provider.ExpressionProvider using DeepFace API
type Provider struct {
	client *Client
}

// NewProvider creates a new DeepFace provider
func NewProvider(config Config) *Provider {
	return &Provider{
		client: NewClient(config),
	}
}

// Name returns the backend name
func (p *Provider) Name() string {
	return "deepface"
}

// Load checks that the DeepFace service is reachable.
// DeepFace downloads and caches its weights on the service side.
func (p *Provider) Load(ctx context.Context) error {
	if err := p.client.Ping(ctx); err != nil {
		return fmt.Errorf("load deepface: %w", err)
	}
	return nil
}

// DetectOne analyzes the frame and returns the scores of the most confident face
func (p *Provider) DetectOne(ctx context.Context, frame []byte, opts provider.DetectOptions) (*emotion.Scores, error) {
	if len(frame) == 0 {
		return nil, ErrInvalidImageFormat
	}

	resp, err := p.client.Analyze(ctx, base64.StdEncoding.EncodeToString(frame))
	if err != nil {
		if errors.Is(err, errFaceNotDetected) {
			return nil, nil
		}
		return nil, fmt.Errorf("detect expression: %w", err)
	}

	best := selectBest(resp.Results)
	if best == nil || best.FaceConfidence < opts.ScoreThreshold {
		return nil, nil
	}

	scores := toScores(best.Emotion)
	return &scores, nil
}

// selectBest picks the most confident face, preferring the larger region on ties
func selectBest(results []AnalyzeResult) *AnalyzeResult {
	var best *AnalyzeResult
	for i := range results {
		r := &results[i]
		if best == nil ||
			r.FaceConfidence > best.FaceConfidence ||
			(r.FaceConfidence == best.FaceConfidence && r.Region.Area() > best.Region.Area()) {
			best = r
		}
	}
	return best
}

// toScores converts DeepFace percentages into probabilities in [0,1]
func toScores(raw map[string]float64) emotion.Scores {
	var scores emotion.Scores
	for key, value := range raw {
		e, ok := emotionKeys[key]
		if !ok {
			continue
		}
		scores[e] = math.Max(0, math.Min(1, value/100))
	}
	return scores
}

// Ensure Provider implements provider.ExpressionProvider
var _ provider.ExpressionProvider = (*Provider)(nil)
