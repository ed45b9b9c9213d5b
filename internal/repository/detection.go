package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"

	"github.com/saturnino-fabrica-de-software/emotisense/internal/domain"
	"github.com/saturnino-fabrica-de-software/emotisense/internal/emotion"
)

// DefaultListLimit is used when callers pass a non-positive limit
const DefaultListLimit = 100

type DetectionRepository struct {
	pool PgxPool
}

func NewDetectionRepository(pool PgxPool) *DetectionRepository {
	return &DetectionRepository{pool: pool}
}

// toVector stores the percentages as a vector(7) in canonical label order
func toVector(v emotion.Vector) pgvector.Vector {
	floats := make([]float32, emotion.Count)
	for i, p := range v {
		floats[i] = float32(p)
	}
	return pgvector.NewVector(floats)
}

func fromVector(vec *pgvector.Vector) emotion.Vector {
	var v emotion.Vector
	if vec == nil {
		return v
	}
	for i, f := range vec.Slice() {
		if i >= emotion.Count {
			break
		}
		v[i] = int(f + 0.5)
	}
	return v
}

func (r *DetectionRepository) Create(ctx context.Context, record *domain.DetectionRecord) error {
	query := `
		INSERT INTO detection_events (id, session_id, source, dominant_emotion, confidence, face_detected, emotions, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	err := r.pool.QueryRow(ctx, query,
		record.ID,
		record.SessionID,
		string(record.Source),
		record.DominantEmotion.String(),
		record.Confidence,
		record.FaceDetected,
		toVector(record.Emotions),
		record.CreatedAt,
	).Scan(&record.CreatedAt)
	if err != nil {
		return fmt.Errorf("create detection event: %w", err)
	}

	return nil
}

func (r *DetectionRepository) ListBySession(ctx context.Context, sessionID uuid.UUID, limit int) ([]domain.DetectionRecord, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	query := `
		SELECT id, session_id, source, dominant_emotion, confidence, face_detected, emotions, created_at
		FROM detection_events
		WHERE session_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("list detection events: %w", err)
	}
	defer rows.Close()

	records := make([]domain.DetectionRecord, 0)
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan detection event: %w", err)
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate detection events: %w", err)
	}

	return records, nil
}

// Summary counts face-detected records per dominant emotion, canonical order
func (r *DetectionRepository) Summary(ctx context.Context, sessionID uuid.UUID) ([]domain.EmotionCount, error) {
	query := `
		SELECT dominant_emotion, COUNT(*)
		FROM detection_events
		WHERE session_id = $1 AND face_detected = true
		GROUP BY dominant_emotion
	`

	rows, err := r.pool.Query(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("summarize detection events: %w", err)
	}
	defer rows.Close()

	var counts [emotion.Count]int64
	for rows.Next() {
		var label string
		var count int64
		if err := rows.Scan(&label, &count); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		e, err := emotion.Parse(label)
		if err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		counts[e] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate summary: %w", err)
	}

	summary := make([]domain.EmotionCount, 0, emotion.Count)
	for _, e := range emotion.All {
		summary = append(summary, domain.EmotionCount{Emotion: e, Count: counts[e]})
	}
	return summary, nil
}

// Nearest returns the face-detected records closest to vec by cosine distance
func (r *DetectionRepository) Nearest(ctx context.Context, vec emotion.Vector, limit int) ([]domain.SimilarRecord, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	query := `
		SELECT id, session_id, source, dominant_emotion, confidence, face_detected, emotions, created_at,
			1 - (emotions <=> $1) AS similarity
		FROM detection_events
		WHERE face_detected = true
		ORDER BY emotions <=> $1
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, toVector(vec), limit)
	if err != nil {
		return nil, fmt.Errorf("nearest detection events: %w", err)
	}
	defer rows.Close()

	matches := make([]domain.SimilarRecord, 0)
	for rows.Next() {
		var (
			m        domain.SimilarRecord
			source   string
			dominant string
			emotions *pgvector.Vector
		)
		err := rows.Scan(
			&m.Record.ID,
			&m.Record.SessionID,
			&source,
			&dominant,
			&m.Record.Confidence,
			&m.Record.FaceDetected,
			&emotions,
			&m.Record.CreatedAt,
			&m.Similarity,
		)
		if err != nil {
			return nil, fmt.Errorf("scan nearest: %w", err)
		}
		if err := fillRecord(&m.Record, source, dominant, emotions); err != nil {
			return nil, fmt.Errorf("scan nearest: %w", err)
		}
		matches = append(matches, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate nearest: %w", err)
	}

	return matches, nil
}

func (r *DetectionRepository) DeleteBySession(ctx context.Context, sessionID uuid.UUID) (int64, error) {
	result, err := r.pool.Exec(ctx, `DELETE FROM detection_events WHERE session_id = $1`, sessionID)
	if err != nil {
		return 0, fmt.Errorf("delete detection events: %w", err)
	}
	return result.RowsAffected(), nil
}

func scanRecord(row pgx.Row) (domain.DetectionRecord, error) {
	var (
		record   domain.DetectionRecord
		source   string
		dominant string
		emotions *pgvector.Vector
	)

	err := row.Scan(
		&record.ID,
		&record.SessionID,
		&source,
		&dominant,
		&record.Confidence,
		&record.FaceDetected,
		&emotions,
		&record.CreatedAt,
	)
	if err != nil {
		return record, err
	}

	return record, fillRecord(&record, source, dominant, emotions)
}

func fillRecord(record *domain.DetectionRecord, source, dominant string, emotions *pgvector.Vector) error {
	src, err := domain.ParseSource(source)
	if err != nil {
		return err
	}
	e, err := emotion.Parse(dominant)
	if err != nil {
		return err
	}

	record.Source = src
	record.DominantEmotion = e
	record.Emotions = fromVector(emotions)
	return nil
}

var _ DetectionRepositoryInterface = (*DetectionRepository)(nil)
