package history

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/emotisense/internal/domain"
	"github.com/saturnino-fabrica-de-software/emotisense/internal/emotion"
)

// RecorderConfig holds configuration for the recorder
type RecorderConfig struct {
	BufferSize    int           // Channel buffer size (default: 1000)
	BatchInterval time.Duration // Interval to flush pending records (default: 2 seconds)
	MaxBatchSize  int           // Max records per flush (default: 100)
	WriteTimeout  time.Duration // Timeout for one flush (default: 10 seconds)
}

// DefaultRecorderConfig returns default configuration
func DefaultRecorderConfig() RecorderConfig {
	return RecorderConfig{
		BufferSize:    1000,
		BatchInterval: 2 * time.Second,
		MaxBatchSize:  100,
		WriteTimeout:  10 * time.Second,
	}
}

type streamKey struct {
	session uuid.UUID
	source  domain.Source
}

// Recorder writes detection results asynchronously, one record per transition.
// A transition is a change of dominant emotion or of face presence on a
// (session, source) stream. Every image result is a transition.
type Recorder struct {
	sink   Sink
	logger *slog.Logger
	cfg    RecorderConfig

	recordCh chan domain.DetectionRecord

	mu   sync.Mutex
	last map[streamKey]emotion.Result

	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewRecorder(sink Sink, logger *slog.Logger, cfg RecorderConfig) *Recorder {
	defaults := DefaultRecorderConfig()
	if cfg.BufferSize == 0 {
		cfg.BufferSize = defaults.BufferSize
	}
	if cfg.BatchInterval == 0 {
		cfg.BatchInterval = defaults.BatchInterval
	}
	if cfg.MaxBatchSize == 0 {
		cfg.MaxBatchSize = defaults.MaxBatchSize
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = defaults.WriteTimeout
	}

	return &Recorder{
		sink:     sink,
		logger:   logger.With("component", "history_recorder"),
		cfg:      cfg,
		recordCh: make(chan domain.DetectionRecord, cfg.BufferSize),
		last:     make(map[streamKey]emotion.Result),
		done:     make(chan struct{}),
	}
}

// Start begins the background writer
func (r *Recorder) Start() {
	r.wg.Add(1)
	go r.run()
	r.logger.Info("history recorder started",
		"buffer_size", cap(r.recordCh),
		"batch_interval", r.cfg.BatchInterval,
	)
}

// Stop flushes pending records and shuts the writer down
func (r *Recorder) Stop() {
	r.stopOnce.Do(func() {
		close(r.done)
		r.wg.Wait()
		r.logger.Info("history recorder stopped")
	})
}

// Record enqueues result when it is a transition for its stream.
// Non-blocking: if the buffer is full the record is dropped and the
// stream state is left untouched, so the next update retries.
func (r *Recorder) Record(sessionID uuid.UUID, source domain.Source, result emotion.Result) bool {
	key := streamKey{session: sessionID, source: source}

	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.last[key]; ok && source != domain.SourceImage && !isTransition(prev, result) {
		return false
	}

	select {
	case r.recordCh <- domain.NewDetectionRecord(sessionID, source, result):
		r.last[key] = result
		return true
	default:
		r.logger.Debug("detection record dropped - buffer full", "session_id", sessionID)
		return false
	}
}

// Forget drops the transition state of a closed session
func (r *Recorder) Forget(sessionID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for key := range r.last {
		if key.session == sessionID {
			delete(r.last, key)
		}
	}
}

func isTransition(prev, next emotion.Result) bool {
	return prev.DominantEmotion != next.DominantEmotion || prev.FaceDetected != next.FaceDetected
}

func (r *Recorder) run() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.cfg.BatchInterval)
	defer ticker.Stop()

	var batch []domain.DetectionRecord

	for {
		select {
		case <-r.done:
			// Drain whatever is still buffered
			for {
				select {
				case rec := <-r.recordCh:
					batch = append(batch, rec)
				default:
					r.flush(batch)
					return
				}
			}

		case rec := <-r.recordCh:
			batch = append(batch, rec)
			if len(batch) >= r.cfg.MaxBatchSize {
				r.flush(batch)
				batch = nil
			}

		case <-ticker.C:
			if len(batch) > 0 {
				r.flush(batch)
				batch = nil
			}
		}
	}
}

func (r *Recorder) flush(batch []domain.DetectionRecord) {
	if len(batch) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.cfg.WriteTimeout)
	defer cancel()

	var written int
	for _, rec := range batch {
		if err := r.sink.Write(ctx, rec); err != nil {
			r.logger.Error("failed to write detection record",
				"session_id", rec.SessionID,
				"source", rec.Source,
				"error", err,
			)
			continue
		}
		written++
	}

	r.logger.Debug("detection records flushed", "count", written)
}
