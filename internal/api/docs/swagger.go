package docs

import (
	"github.com/go-swagno/swagno"
	"github.com/go-swagno/swagno/components/endpoint"
	"github.com/go-swagno/swagno/components/http/response"
	"github.com/go-swagno/swagno/components/mime"
	"github.com/go-swagno/swagno/components/parameter"
)

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Code    string `json:"code" example:"VALIDATION_FAILED"`
	Message string `json:"message" example:"Request validation failed"`
}

// EmptyResponse represents no content response (204)
type EmptyResponse struct{}

// EmotionVector is the seven percentages, keyed by label
type EmotionVector struct {
	Neutral   int `json:"neutral" example:"5"`
	Happy     int `json:"happy" example:"87"`
	Sad       int `json:"sad" example:"1"`
	Angry     int `json:"angry" example:"2"`
	Fearful   int `json:"fearful" example:"1"`
	Disgusted int `json:"disgusted" example:"0"`
	Surprised int `json:"surprised" example:"4"`
}

// DetectionResult is one normalized detection pass
type DetectionResult struct {
	Emotions        EmotionVector `json:"emotions"`
	DominantEmotion string        `json:"dominant_emotion" example:"happy"`
	Confidence      int           `json:"confidence" example:"87"`
	FaceDetected    bool          `json:"face_detected" example:"true"`
}

// EmotionInfo is the display metadata of a label
type EmotionInfo struct {
	Emotion     string `json:"emotion" example:"happy"`
	Name        string `json:"name" example:"Happy"`
	Color       string `json:"color" example:"emotion-happy"`
	Description string `json:"description" example:"Joy, contentment, or amusement"`
}

// EmotionsResponse lists every label in canonical order
type EmotionsResponse struct {
	Emotions []EmotionInfo `json:"emotions"`
}

// HealthResponse is the liveness probe body
type HealthResponse struct {
	Status  string `json:"status" example:"ok"`
	Version string `json:"version" example:"0.1.0"`
}

// ModelStatusResponse is the expression model state
type ModelStatusResponse struct {
	Provider string `json:"provider" example:"deepface"`
	State    string `json:"state" example:"loaded"`
	Error    string `json:"error,omitempty" example:""`
	LoadedAt string `json:"loaded_at,omitempty" example:"2024-01-01T00:00:00Z"`
}

// ReadyResponse is the readiness probe body
type ReadyResponse struct {
	Status   string              `json:"status" example:"ready"`
	Model    ModelStatusResponse `json:"model"`
	Database string              `json:"database" example:"ok"`
}

// PreviewData references an uploaded image or video
type PreviewData struct {
	ID          string `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	URL         string `json:"url" example:"/v1/previews/550e8400-e29b-41d4-a716-446655440000"`
	ContentType string `json:"content_type" example:"image/jpeg"`
	Size        int64  `json:"size" example:"48213"`
	CreatedAt   string `json:"created_at" example:"2024-01-01T00:00:00Z"`
}

// PlaybackData is the uploaded video playback state
type PlaybackData struct {
	Playing    bool  `json:"playing" example:"true"`
	Ended      bool  `json:"ended" example:"false"`
	PositionMs int64 `json:"position_ms" example:"12400"`
	DurationMs int64 `json:"duration_ms" example:"60000"`
}

// CameraPanel is the camera panel state
type CameraPanel struct {
	Status    string          `json:"status" example:"active"`
	Error     string          `json:"error,omitempty" example:""`
	Mode      string          `json:"mode,omitempty" example:"browser"`
	Paused    bool            `json:"paused" example:"false"`
	Detecting bool            `json:"detecting" example:"true"`
	Result    DetectionResult `json:"result"`
}

// ImagePanel is the image panel state
type ImagePanel struct {
	Processing bool            `json:"processing" example:"false"`
	Result     DetectionResult `json:"result"`
	Preview    PreviewData     `json:"preview"`
}

// VideoPanel is the video panel state
type VideoPanel struct {
	Detecting bool            `json:"detecting" example:"true"`
	Result    DetectionResult `json:"result"`
	Preview   PreviewData     `json:"preview"`
	Playback  PlaybackData    `json:"playback"`
	LoadError string          `json:"load_error,omitempty" example:""`
}

// SessionSnapshot is everything the demo page renders
type SessionSnapshot struct {
	ID        string      `json:"id" example:"7c9e6679-7425-40de-944b-e07fc1f90ae7"`
	CreatedAt string      `json:"created_at" example:"2024-01-01T00:00:00Z"`
	LastSeen  string      `json:"last_seen" example:"2024-01-01T00:05:00Z"`
	Camera    CameraPanel `json:"camera"`
	Image     ImagePanel  `json:"image"`
	Video     VideoPanel  `json:"video"`
}

// CreateSessionResponse is returned by POST /sessions
type CreateSessionResponse struct {
	Session SessionSnapshot `json:"session"`
	WSPath  string          `json:"ws_path" example:"/v1/sessions/7c9e6679-7425-40de-944b-e07fc1f90ae7/ws"`
}

// ImageResponse is the single-shot result of an uploaded image
type ImageResponse struct {
	Result  DetectionResult `json:"result"`
	Preview PreviewData     `json:"preview"`
}

// VideoResponse is returned once a video is stored and opened
type VideoResponse struct {
	Preview PreviewData `json:"preview"`
	Video   VideoPanel  `json:"video"`
}

// DetectionEvent is a recorded result transition
type DetectionEvent struct {
	ID              string        `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	SessionID       string        `json:"session_id" example:"7c9e6679-7425-40de-944b-e07fc1f90ae7"`
	Source          string        `json:"source" example:"camera"`
	DominantEmotion string        `json:"dominant_emotion" example:"happy"`
	Confidence      int           `json:"confidence" example:"87"`
	FaceDetected    bool          `json:"face_detected" example:"true"`
	Emotions        EmotionVector `json:"emotions"`
	CreatedAt       string        `json:"created_at" example:"2024-01-01T00:00:00Z"`
}

// EmotionCount is the number of events per dominant emotion
type EmotionCount struct {
	Emotion string `json:"emotion" example:"happy"`
	Count   int64  `json:"count" example:"12"`
}

// HistoryResponse lists a session's recorded transitions
type HistoryResponse struct {
	SessionID string           `json:"session_id" example:"7c9e6679-7425-40de-944b-e07fc1f90ae7"`
	Events    []DetectionEvent `json:"events"`
	Summary   []EmotionCount   `json:"summary"`
}

// SimilarMatch pairs an event with its cosine similarity
type SimilarMatch struct {
	Record     DetectionEvent `json:"record"`
	Similarity float64        `json:"similarity" example:"0.97"`
}

// SimilarResponse lists events close to the session's latest face
type SimilarResponse struct {
	Query   DetectionEvent `json:"query"`
	Matches []SimilarMatch `json:"matches"`
}

// DeleteHistoryResponse reports how many events were purged
type DeleteHistoryResponse struct {
	Deleted int64 `json:"deleted" example:"42"`
}

var (
	errSessionNotFound = response.New(ErrorResponse{Code: "SESSION_NOT_FOUND", Message: "Session not found or expired"}, "404", "Not Found")
	errValidation      = response.New(ErrorResponse{Code: "VALIDATION_FAILED", Message: "Request validation failed"}, "422", "Unprocessable Entity")
	errNoVideo         = response.New(ErrorResponse{Code: "NO_VIDEO", Message: "No video loaded for this session"}, "409", "Conflict")
	errTooLarge        = response.New(ErrorResponse{Code: "FILE_TOO_LARGE", Message: "Uploaded file exceeds the size limit"}, "413", "Payload Too Large")
	errRateLimit       = response.New(ErrorResponse{Code: "RATE_LIMIT_EXCEEDED", Message: "Rate limit exceeded, please try again later"}, "429", "Too Many Requests")
	errModel           = response.New(ErrorResponse{Code: "MODEL_UNAVAILABLE", Message: "Failed to load emotion detection models. Please check your internet connection."}, "503", "Service Unavailable")
	errHistoryDisabled = response.New(ErrorResponse{Code: "HISTORY_DISABLED", Message: "Detection history storage is not configured"}, "501", "Not Implemented")
	errInternal        = response.New(ErrorResponse{Code: "INTERNAL_ERROR", Message: "An unexpected error occurred"}, "500", "Internal Server Error")
)

func sessionParam() *parameter.Parameter {
	return parameter.StrParam("id", parameter.Path, parameter.WithDescription("Session ID"))
}

// videoControl documents one POST /sessions/{id}/video/{action} route
func videoControl(action, summary, description string) *endpoint.EndPoint {
	return endpoint.New(
		endpoint.POST,
		"/sessions/{id}/video/"+action,
		endpoint.WithTags("Video"),
		endpoint.WithSummary(summary),
		endpoint.WithDescription(description),
		endpoint.WithProduce([]mime.MIME{mime.JSON}),
		endpoint.WithParams(sessionParam()),
		endpoint.WithSuccessfulReturns([]response.Response{
			response.New(VideoPanel{}, "200", "Video panel state"),
		}),
		endpoint.WithErrors([]response.Response{errSessionNotFound, errNoVideo, errInternal}),
	)
}

func NewSwagger() *swagno.Swagger {
	sw := swagno.New(swagno.Config{
		Title:       "EmotiSense API",
		Version:     "v1.0.0",
		Description: "Facial emotion detection for a live camera feed, uploaded images and uploaded videos",
		Host:        "localhost:3000",
		Path:        "/v1",
	})

	endpoints := []*endpoint.EndPoint{
		// Catalog & model

		endpoint.New(
			endpoint.GET,
			"/emotions",
			endpoint.WithTags("Catalog"),
			endpoint.WithSummary("List emotion labels"),
			endpoint.WithDescription("Returns the seven labels in canonical order with their display name, color token and description"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(EmotionsResponse{}, "200", "Label metadata"),
			}),
		),

		endpoint.New(
			endpoint.GET,
			"/models",
			endpoint.WithTags("Model"),
			endpoint.WithSummary("Get model state"),
			endpoint.WithDescription("Reports whether the expression model is unloaded, loading, loaded or failed, with the persistent error message after a failure"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(ModelStatusResponse{}, "200", "Model state"),
			}),
		),

		endpoint.New(
			endpoint.POST,
			"/models/load",
			endpoint.WithTags("Model"),
			endpoint.WithSummary("Load the model"),
			endpoint.WithDescription("Loads the expression model. Returns immediately when already loaded; retries after a previous failure. Concurrent calls share one load."),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(ModelStatusResponse{}, "200", "Model loaded"),
			}),
			endpoint.WithErrors([]response.Response{errModel}),
		),

		// Sessions

		endpoint.New(
			endpoint.POST,
			"/sessions",
			endpoint.WithTags("Sessions"),
			endpoint.WithSummary("Create a session"),
			endpoint.WithDescription("Opens a demo session with idle camera, image and video panels. Sessions expire after SESSION_IDLE_TIMEOUT without requests."),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(CreateSessionResponse{}, "201", "Session created"),
			}),
		),

		endpoint.New(
			endpoint.GET,
			"/sessions/{id}",
			endpoint.WithTags("Sessions"),
			endpoint.WithSummary("Get a session"),
			endpoint.WithDescription("Returns the current result of each panel, the camera status and the detecting/processing flags"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(sessionParam()),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(SessionSnapshot{}, "200", "Session snapshot"),
			}),
			endpoint.WithErrors([]response.Response{errValidation, errSessionNotFound}),
		),

		endpoint.New(
			endpoint.DELETE,
			"/sessions/{id}",
			endpoint.WithTags("Sessions"),
			endpoint.WithSummary("Close a session"),
			endpoint.WithDescription("Stops every detector, releases the camera and revokes all previews"),
			endpoint.WithParams(sessionParam()),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(EmptyResponse{}, "204", "Session closed"),
			}),
			endpoint.WithErrors([]response.Response{errValidation, errSessionNotFound}),
		),

		// Camera

		endpoint.New(
			endpoint.POST,
			"/sessions/{id}/camera/start",
			endpoint.WithTags("Camera"),
			endpoint.WithSummary("Start camera detection"),
			endpoint.WithDescription("Starts polling the camera. Mode browser (default) reads frames pushed over the session WebSocket; mode device opens the server camera."),
			endpoint.WithConsume([]mime.MIME{mime.JSON}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(sessionParam()),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(CameraPanel{}, "200", "Camera panel state"),
			}),
			endpoint.WithErrors([]response.Response{
				errSessionNotFound,
				response.New(ErrorResponse{Code: "CAMERA_DENIED", Message: "Camera permission was denied. Please allow camera access to use emotion detection."}, "403", "Forbidden"),
				response.New(ErrorResponse{Code: "CAMERA_NOT_FOUND", Message: "No camera found. Please connect a camera and try again."}, "409", "Conflict"),
				errValidation,
			}),
		),

		endpoint.New(
			endpoint.POST,
			"/sessions/{id}/camera/stop",
			endpoint.WithTags("Camera"),
			endpoint.WithSummary("Stop camera detection"),
			endpoint.WithDescription("Stops polling, releases the camera and clears the camera result"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(sessionParam()),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(CameraPanel{}, "200", "Camera panel state"),
			}),
			endpoint.WithErrors([]response.Response{errSessionNotFound}),
		),

		// Image

		endpoint.New(
			endpoint.POST,
			"/sessions/{id}/image",
			endpoint.WithTags("Image"),
			endpoint.WithSummary("Analyze an image"),
			endpoint.WithDescription("Uploads an image (multipart field \"image\") and runs a single detection pass. A newer upload supersedes one still in flight."),
			endpoint.WithConsume([]mime.MIME{mime.MIME("multipart/form-data")}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(sessionParam()),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(ImageResponse{}, "200", "Detection result"),
			}),
			endpoint.WithErrors([]response.Response{
				errSessionNotFound,
				response.New(ErrorResponse{Code: "HTTP_ERROR", Message: "superseded by a newer image"}, "409", "Conflict"),
				errTooLarge,
				response.New(ErrorResponse{Code: "INVALID_IMAGE", Message: "Invalid image format or corrupted file"}, "422", "Unprocessable Entity"),
				errRateLimit,
				errModel,
			}),
		),

		endpoint.New(
			endpoint.DELETE,
			"/sessions/{id}/image",
			endpoint.WithTags("Image"),
			endpoint.WithSummary("Clear the image result"),
			endpoint.WithDescription("Drops the image result and revokes its preview"),
			endpoint.WithParams(sessionParam()),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(EmptyResponse{}, "204", "Image cleared"),
			}),
			endpoint.WithErrors([]response.Response{errSessionNotFound}),
		),

		// Video

		endpoint.New(
			endpoint.POST,
			"/sessions/{id}/video",
			endpoint.WithTags("Video"),
			endpoint.WithSummary("Upload a video"),
			endpoint.WithDescription("Uploads a video (multipart field \"video\"), stores it as a playable preview and waits for the model. Detection starts with video/start."),
			endpoint.WithConsume([]mime.MIME{mime.MIME("multipart/form-data")}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(sessionParam()),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(VideoResponse{}, "201", "Video stored"),
			}),
			endpoint.WithErrors([]response.Response{
				errSessionNotFound,
				errTooLarge,
				response.New(ErrorResponse{Code: "INVALID_VIDEO", Message: "Invalid video format or corrupted file"}, "422", "Unprocessable Entity"),
				errRateLimit,
			}),
		),

		endpoint.New(
			endpoint.DELETE,
			"/sessions/{id}/video",
			endpoint.WithTags("Video"),
			endpoint.WithSummary("Clear the video"),
			endpoint.WithDescription("Stops detection, drops the video result, closes the file and revokes its preview"),
			endpoint.WithParams(sessionParam()),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(EmptyResponse{}, "204", "Video cleared"),
			}),
			endpoint.WithErrors([]response.Response{errSessionNotFound}),
		),

		videoControl("play", "Play the video", "Resumes playback on the server clock"),
		videoControl("pause", "Pause the video", "Pauses playback; detection ticks are skipped while paused"),
		videoControl("seek", "Seek the video", "Moves playback to position_ms (JSON body)"),
		videoControl("start", "Start video detection", "Samples the current playback position every detection interval"),
		videoControl("stop", "Stop video detection", "Stops sampling; the last video result is kept"),

		// History

		endpoint.New(
			endpoint.GET,
			"/sessions/{id}/history",
			endpoint.WithTags("History"),
			endpoint.WithSummary("List recorded transitions"),
			endpoint.WithDescription("Returns the session's recorded result transitions, newest first, and a per-emotion summary. Works after the session has expired."),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				sessionParam(),
				parameter.IntParam("limit", parameter.Query, parameter.WithDescription("Maximum number of events (default: 100, max: 1000)")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(HistoryResponse{}, "200", "Session history"),
			}),
			endpoint.WithErrors([]response.Response{errValidation, errInternal, errHistoryDisabled}),
		),

		endpoint.New(
			endpoint.GET,
			"/sessions/{id}/history/similar",
			endpoint.WithTags("History"),
			endpoint.WithSummary("Find similar expressions"),
			endpoint.WithDescription("Finds recorded events from any session whose emotion vector is closest (cosine) to the latest face recorded by this session"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				sessionParam(),
				parameter.IntParam("limit", parameter.Query, parameter.WithDescription("Maximum number of matches (default: 5, max: 50)")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(SimilarResponse{}, "200", "Nearest events"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "NOT_FOUND", Message: "Resource not found"}, "404", "Not Found"),
				errValidation,
				errInternal,
				errHistoryDisabled,
			}),
		),

		endpoint.New(
			endpoint.DELETE,
			"/sessions/{id}/history",
			endpoint.WithTags("History"),
			endpoint.WithSummary("Delete recorded transitions"),
			endpoint.WithDescription("Purges every recorded event of the session"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(sessionParam()),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(DeleteHistoryResponse{}, "200", "Events deleted"),
			}),
			endpoint.WithErrors([]response.Response{errValidation, errInternal, errHistoryDisabled}),
		),

		// Previews

		endpoint.New(
			endpoint.GET,
			"/previews/{id}",
			endpoint.WithTags("Previews"),
			endpoint.WithSummary("Stream a preview"),
			endpoint.WithDescription("Streams an uploaded image or video until it is revoked by clear, replace or session close"),
			endpoint.WithProduce([]mime.MIME{mime.MIME("image/*"), mime.MIME("video/*")}),
			endpoint.WithParams(parameter.StrParam("id", parameter.Path, parameter.WithDescription("Preview ID"))),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "PREVIEW_NOT_FOUND", Message: "Preview not found or revoked"}, "404", "Not Found"),
			}),
		),

		// WebSocket

		endpoint.New(
			endpoint.GET,
			"/sessions/{id}/ws",
			endpoint.WithTags("WebSocket"),
			endpoint.WithSummary("Session WebSocket"),
			endpoint.WithDescription("Upgrade to a WebSocket. The server pushes detection.updated, model.status and camera.status events. The client sends binary JPEG camera frames and text commands: pause, resume, camera.error."),
			endpoint.WithParams(sessionParam()),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "UPGRADE_REQUIRED", Message: "Upgrade Required"}, "426", "Upgrade Required"),
			}),
		),
	}

	sw.AddEndpoints(endpoints)

	return sw
}
