package emotion

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Scores holds raw per-label probabilities as reported by a model, indexed by
// Emotion. Values are expected in [0,1] and are not guaranteed to sum to 1.
type Scores [Count]float64

// Vector holds integer percentages per label, indexed by Emotion.
// Each value is rounded independently, so the sum may differ from 100.
type Vector [Count]int

// Get returns the percentage stored for e
func (v Vector) Get(e Emotion) int {
	if !e.Valid() {
		return 0
	}
	return v[e]
}

// MarshalJSON encodes the vector as an object keyed by label in canonical order
func (v Vector) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range All {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('"')
		buf.WriteString(labels[e])
		buf.WriteString(`":`)
		buf.WriteString(strconv.Itoa(v[e]))
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes an object keyed by label. Missing labels are zero.
func (v *Vector) UnmarshalJSON(data []byte) error {
	var raw map[string]int
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	var out Vector
	for key, value := range raw {
		e, err := Parse(key)
		if err != nil {
			return fmt.Errorf("decode emotion vector: %w", err)
		}
		out[e] = value
	}
	*v = out
	return nil
}

// Result is the normalized output of one detection pass.
// Confidence always equals Emotions[DominantEmotion].
type Result struct {
	Emotions        Vector  `json:"emotions"`
	DominantEmotion Emotion `json:"dominant_emotion"`
	Confidence      int     `json:"confidence"`
	FaceDetected    bool    `json:"face_detected"`
}

// Percent converts a raw probability into a rounded percentage.
// Halves round up, matching the browser's Math.round.
func Percent(p float64) int {
	return int(math.Floor(p*100 + 0.5))
}

// Normalize turns raw scores into a face-detected Result.
func Normalize(scores Scores) Result {
	var vec Vector
	for _, e := range All {
		vec[e] = Percent(scores[e])
	}

	dominant, confidence := Dominant(vec)

	return Result{
		Emotions:        vec,
		DominantEmotion: dominant,
		Confidence:      confidence,
		FaceDetected:    true,
	}
}

// Dominant folds over the vector in canonical order, seeded with (neutral, 0).
// Only a strictly greater value replaces the current maximum.
func Dominant(vec Vector) (Emotion, int) {
	best, top := Neutral, 0
	for _, e := range All {
		if vec[e] > top {
			best, top = e, vec[e]
		}
	}
	return best, top
}

// NoFace is the reset result: every value zero, neutral dominant, no face.
func NoFace() Result {
	return Result{DominantEmotion: Neutral}
}

// WithoutFace returns a copy of r that keeps the emotion values but reports
// that no face is currently visible.
func (r Result) WithoutFace() Result {
	r.FaceDetected = false
	return r
}
