package emotion

// Info is the display metadata the presentation layer renders for a label
type Info struct {
	Emotion     Emotion `json:"emotion"`
	Name        string  `json:"name"`
	Color       string  `json:"color"`
	Description string  `json:"description"`
}

var infos = [Count]Info{
	Neutral: {
		Emotion:     Neutral,
		Name:        "Neutral",
		Color:       "emotion-neutral",
		Description: "Baseline state without strong emotional expression",
	},
	Happy: {
		Emotion:     Happy,
		Name:        "Happy",
		Color:       "emotion-happy",
		Description: "Positive emotional state showing joy and contentment",
	},
	Sad: {
		Emotion:     Sad,
		Name:        "Sad",
		Color:       "emotion-sad",
		Description: "Feelings of sorrow, unhappiness, or disappointment",
	},
	Angry: {
		Emotion:     Angry,
		Name:        "Angry",
		Color:       "emotion-angry",
		Description: "Strong feeling of displeasure or hostility",
	},
	Fearful: {
		Emotion:     Fearful,
		Name:        "Fear",
		Color:       "emotion-fear",
		Description: "Response to perceived threat or danger",
	},
	Disgusted: {
		Emotion:     Disgusted,
		Name:        "Disgust",
		Color:       "emotion-disgust",
		Description: "Aversion toward something offensive or unpleasant",
	},
	Surprised: {
		Emotion:     Surprised,
		Name:        "Surprise",
		Color:       "emotion-surprise",
		Description: "Brief emotional state from unexpected events",
	},
}

// Info returns the display metadata for e. Invalid labels get the neutral entry.
func (e Emotion) Info() Info {
	if !e.Valid() {
		return infos[Neutral]
	}
	return infos[e]
}

// Catalog returns the metadata of every label in canonical order
func Catalog() []Info {
	out := make([]Info, Count)
	copy(out, infos[:])
	return out
}
