// Package emotion defines the closed set of facial expression labels and the
// normalized detection result shared by every input path.
package emotion

import (
	"errors"
	"fmt"
	"strings"
)

// Emotion is one of the seven expression classes reported by the model.
type Emotion uint8

// Canonical order. Dominant-emotion selection folds over labels in this order,
// so the earlier label wins ties.
const (
	Neutral Emotion = iota
	Happy
	Sad
	Angry
	Fearful
	Disgusted
	Surprised
)

// Count is the number of labels.
const Count = 7

// All lists every label in canonical order.
var All = [Count]Emotion{Neutral, Happy, Sad, Angry, Fearful, Disgusted, Surprised}

var labels = [Count]string{
	Neutral:   "neutral",
	Happy:     "happy",
	Sad:       "sad",
	Angry:     "angry",
	Fearful:   "fearful",
	Disgusted: "disgusted",
	Surprised: "surprised",
}

// ErrUnknownEmotion is returned when parsing a label outside the closed set
var ErrUnknownEmotion = errors.New("unknown emotion")

// String returns the lower-case label
func (e Emotion) String() string {
	if !e.Valid() {
		return fmt.Sprintf("emotion(%d)", uint8(e))
	}
	return labels[e]
}

// Valid reports whether e is one of the seven labels
func (e Emotion) Valid() bool {
	return int(e) < Count
}

// Parse converts a label into an Emotion. Matching is case-insensitive.
func Parse(s string) (Emotion, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, label := range labels {
		if label == s {
			return Emotion(i), nil
		}
	}
	return Neutral, fmt.Errorf("%w: %q", ErrUnknownEmotion, s)
}

// MarshalText implements encoding.TextMarshaler
func (e Emotion) MarshalText() ([]byte, error) {
	if !e.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownEmotion, uint8(e))
	}
	return []byte(labels[e]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (e *Emotion) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*e = parsed
	return nil
}
