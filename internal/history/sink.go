// Package history records detection result transitions per session.
package history

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/saturnino-fabrica-de-software/emotisense/internal/domain"
	"github.com/saturnino-fabrica-de-software/emotisense/internal/repository"
)

// Sink persists detection records
type Sink interface {
	Write(ctx context.Context, record domain.DetectionRecord) error
}

// RepositorySink writes records to the detection_events table
type RepositorySink struct {
	repo repository.DetectionRepositoryInterface
}

func NewRepositorySink(repo repository.DetectionRepositoryInterface) *RepositorySink {
	return &RepositorySink{repo: repo}
}

func (s *RepositorySink) Write(ctx context.Context, record domain.DetectionRecord) error {
	return s.repo.Create(ctx, &record)
}

// SlogSink emits records as structured log lines when no database is configured
type SlogSink struct {
	logger *slog.Logger
}

func NewSlogSink(logger *slog.Logger) *SlogSink {
	return &SlogSink{
		logger: logger.With("component", "history"),
	}
}

func (s *SlogSink) Write(ctx context.Context, record domain.DetectionRecord) error {
	eventJSON, err := json.Marshal(record)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to marshal detection event",
			slog.String("error", err.Error()),
			slog.String("session_id", record.SessionID.String()),
		)
		return err
	}

	s.logger.InfoContext(ctx, "detection_event",
		slog.String("event_id", record.ID.String()),
		slog.String("session_id", record.SessionID.String()),
		slog.String("source", string(record.Source)),
		slog.String("dominant_emotion", record.DominantEmotion.String()),
		slog.Int("confidence", record.Confidence),
		slog.Bool("face_detected", record.FaceDetected),
		slog.String("event_data", string(eventJSON)),
	)

	return nil
}

// NoOpSink discards records (for testing or when history is disabled)
type NoOpSink struct{}

func (NoOpSink) Write(_ context.Context, _ domain.DetectionRecord) error {
	return nil
}
