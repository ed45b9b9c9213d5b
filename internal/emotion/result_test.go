package emotion

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name           string
		scores         Scores
		wantVector     Vector
		wantDominant   Emotion
		wantConfidence int
	}{
		{
			name:           "happy face",
			scores:         Scores{Neutral: 0.1, Happy: 0.9},
			wantVector:     Vector{Neutral: 10, Happy: 90},
			wantDominant:   Happy,
			wantConfidence: 90,
		},
		{
			name:           "all equal picks neutral",
			scores:         Scores{1.0 / 7, 1.0 / 7, 1.0 / 7, 1.0 / 7, 1.0 / 7, 1.0 / 7, 1.0 / 7},
			wantVector:     Vector{14, 14, 14, 14, 14, 14, 14},
			wantDominant:   Neutral,
			wantConfidence: 14,
		},
		{
			name:           "tie between later labels picks first seen",
			scores:         Scores{Sad: 0.4, Surprised: 0.4, Neutral: 0.2},
			wantVector:     Vector{Neutral: 20, Sad: 40, Surprised: 40},
			wantDominant:   Sad,
			wantConfidence: 40,
		},
		{
			name:           "all zero stays neutral with zero confidence",
			scores:         Scores{},
			wantVector:     Vector{},
			wantDominant:   Neutral,
			wantConfidence: 0,
		},
		{
			name:           "half rounds up",
			scores:         Scores{Angry: 0.125, Fearful: 0.004},
			wantVector:     Vector{Angry: 13},
			wantDominant:   Angry,
			wantConfidence: 13,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.scores)

			assert.Equal(t, tt.wantVector, got.Emotions)
			assert.Equal(t, tt.wantDominant, got.DominantEmotion)
			assert.Equal(t, tt.wantConfidence, got.Confidence)
			assert.True(t, got.FaceDetected)
			assert.Equal(t, got.Emotions.Get(got.DominantEmotion), got.Confidence)
		})
	}
}

func TestNormalize_NoRenormalization(t *testing.T) {
	scores := Scores{0.333, 0.333, 0.333, 0.005, 0.005, 0.005, 0.005}

	got := Normalize(scores)

	sum := 0
	for _, e := range All {
		assert.Equal(t, Percent(scores[e]), got.Emotions[e])
		sum += got.Emotions[e]
	}
	assert.Equal(t, 103, sum)
}

func TestNoFaceAndWithoutFace(t *testing.T) {
	detected := Normalize(Scores{Happy: 0.8, Sad: 0.2})

	kept := detected.WithoutFace()
	assert.False(t, kept.FaceDetected)
	assert.Equal(t, detected.Emotions, kept.Emotions)
	assert.Equal(t, Happy, kept.DominantEmotion)
	assert.True(t, detected.FaceDetected, "original must not be mutated")

	reset := NoFace()
	assert.False(t, reset.FaceDetected)
	assert.Equal(t, Vector{}, reset.Emotions)
	assert.Equal(t, Neutral, reset.DominantEmotion)
	assert.Equal(t, 0, reset.Confidence)

	assert.NotEqual(t, kept, reset)
}

func TestResult_JSON(t *testing.T) {
	r := Normalize(Scores{Neutral: 0.1, Happy: 0.9})

	data, err := json.Marshal(r)
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"emotions": {"neutral":10,"happy":90,"sad":0,"angry":0,"fearful":0,"disgusted":0,"surprised":0},
		"dominant_emotion": "happy",
		"confidence": 90,
		"face_detected": true
	}`, string(data))

	var decoded Result
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, r, decoded)
}

func TestVector_UnmarshalUnknownLabel(t *testing.T) {
	var v Vector
	err := json.Unmarshal([]byte(`{"contempt": 4}`), &v)
	assert.ErrorIs(t, err, ErrUnknownEmotion)
}
