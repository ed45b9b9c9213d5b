package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/emotisense/internal/emotion"
)

// Source identifica o caminho de entrada que produziu um resultado
type Source string

const (
	SourceCamera Source = "camera"
	SourceImage  Source = "image"
	SourceVideo  Source = "video"
)

// ParseSource validates a source name
func ParseSource(s string) (Source, error) {
	switch Source(s) {
	case SourceCamera, SourceImage, SourceVideo:
		return Source(s), nil
	}
	return "", fmt.Errorf("unknown source %q", s)
}

// DetectionRecord representa uma transição de resultado gravada no histórico
type DetectionRecord struct {
	ID              uuid.UUID       `json:"id"`
	SessionID       uuid.UUID       `json:"session_id"`
	Source          Source          `json:"source"`
	DominantEmotion emotion.Emotion `json:"dominant_emotion"`
	Confidence      int             `json:"confidence"`
	FaceDetected    bool            `json:"face_detected"`
	Emotions        emotion.Vector  `json:"emotions"`
	CreatedAt       time.Time       `json:"created_at"`
}

// NewDetectionRecord builds a record from a result
func NewDetectionRecord(sessionID uuid.UUID, source Source, r emotion.Result) DetectionRecord {
	return DetectionRecord{
		ID:              uuid.New(),
		SessionID:       sessionID,
		Source:          source,
		DominantEmotion: r.DominantEmotion,
		Confidence:      r.Confidence,
		FaceDetected:    r.FaceDetected,
		Emotions:        r.Emotions,
		CreatedAt:       time.Now().UTC(),
	}
}

// Result rebuilds the detection result carried by the record
func (r DetectionRecord) Result() emotion.Result {
	return emotion.Result{
		Emotions:        r.Emotions,
		DominantEmotion: r.DominantEmotion,
		Confidence:      r.Confidence,
		FaceDetected:    r.FaceDetected,
	}
}

// EmotionCount é a contagem de registros por emoção dominante
type EmotionCount struct {
	Emotion emotion.Emotion `json:"emotion"`
	Count   int64           `json:"count"`
}

// SimilarRecord pairs a record with its cosine similarity to a query vector
type SimilarRecord struct {
	Record     DetectionRecord `json:"record"`
	Similarity float64         `json:"similarity"`
}
