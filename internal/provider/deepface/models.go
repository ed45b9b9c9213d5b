package deepface

// AnalyzeRequest for POST /analyze
type AnalyzeRequest struct {
	Img              string   `json:"img"`              // base64 data URI
	Actions          []string `json:"actions"`          // ["emotion"]
	Detector         string   `json:"detector_backend"` // "opencv", "retinaface", etc
	EnforceDetection bool     `json:"enforce_detection"`
	Align            bool     `json:"align"`
}

// AnalyzeResponse from POST /analyze
type AnalyzeResponse struct {
	Results []AnalyzeResult `json:"results"`
}

// AnalyzeResult is one face found by DeepFace.
// Emotion values are percentages in [0,100].
type AnalyzeResult struct {
	Region          FacialArea         `json:"region"`
	FaceConfidence  float64            `json:"face_confidence"`
	Emotion         map[string]float64 `json:"emotion"`
	DominantEmotion string             `json:"dominant_emotion"`
}

type FacialArea struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// Area returns the region size in pixels²
func (f FacialArea) Area() int {
	return f.W * f.H
}
