package mock

import (
	"context"
	"crypto/sha256"
	"sync"
	"sync/atomic"
	"time"

	"github.com/saturnino-fabrica-de-software/emotisense/internal/domain"
	"github.com/saturnino-fabrica-de-software/emotisense/internal/emotion"
	"github.com/saturnino-fabrica-de-software/emotisense/internal/provider"
)

// minFaceBytes abaixo disso o frame é tratado como "sem face"
const minFaceBytes = 1000

// Provider implementa provider.ExpressionProvider para testes e desenvolvimento
type Provider struct {
	loadDelay time.Duration
	loadErr   error

	loads   atomic.Int32
	detects atomic.Int32

	mu    sync.Mutex
	fixed *emotion.Scores
}

// Option configura o mock
type Option func(*Provider)

// WithLoadDelay simula download lento dos modelos
func WithLoadDelay(d time.Duration) Option {
	return func(p *Provider) {
		p.loadDelay = d
	}
}

// WithLoadError faz Load falhar com o erro informado
func WithLoadError(err error) Option {
	return func(p *Provider) {
		p.loadErr = err
	}
}

// New cria uma nova instância do MockProvider
func New(opts ...Option) *Provider {
	p := &Provider{}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the backend name
func (p *Provider) Name() string {
	return "mock"
}

// Load simula o carregamento dos modelos
func (p *Provider) Load(ctx context.Context) error {
	p.loads.Add(1)

	if p.loadDelay > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.loadDelay):
		}
	}

	return p.loadErr
}

// SetScores fixa os scores retornados por DetectOne; nil volta ao modo determinístico
func (p *Provider) SetScores(scores *emotion.Scores) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fixed = scores
}

// DetectOne gera scores determinísticos baseados no hash do frame
func (p *Provider) DetectOne(ctx context.Context, frame []byte, opts provider.DetectOptions) (*emotion.Scores, error) {
	p.detects.Add(1)

	if len(frame) == 0 {
		return nil, domain.ErrInvalidImage
	}
	if len(frame) < minFaceBytes {
		return nil, nil
	}

	p.mu.Lock()
	fixed := p.fixed
	p.mu.Unlock()
	if fixed != nil {
		scores := *fixed
		return &scores, nil
	}

	scores := generateScores(frame)
	return &scores, nil
}

// Loads returns how many times Load ran
func (p *Provider) Loads() int {
	return int(p.loads.Load())
}

// Detects returns how many times DetectOne ran
func (p *Provider) Detects() int {
	return int(p.detects.Load())
}

// generateScores distribui probabilidade entre os rótulos a partir do sha256 do frame
func generateScores(frame []byte) emotion.Scores {
	hash := sha256.Sum256(frame)

	var scores emotion.Scores
	total := 0.0
	for i := range scores {
		v := float64(hash[i]) + 1
		scores[i] = v
		total += v
	}

	for i := range scores {
		scores[i] /= total
	}

	return scores
}

var _ provider.ExpressionProvider = (*Provider)(nil)
