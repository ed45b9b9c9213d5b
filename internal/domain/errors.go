package domain

import (
	"fmt"
)

type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Err        error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches any AppError with the same code, so sentinels survive WithError
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && t.Code == e.Code
}

func (e *AppError) WithError(err error) *AppError {
	return &AppError{
		Code:       e.Code,
		Message:    e.Message,
		StatusCode: e.StatusCode,
		Err:        err,
	}
}

// Pre-defined errors
var (
	ErrInternal = &AppError{
		Code:       "INTERNAL_ERROR",
		Message:    "An unexpected error occurred",
		StatusCode: 500,
	}

	ErrBadRequest = &AppError{
		Code:       "BAD_REQUEST",
		Message:    "Invalid request",
		StatusCode: 400,
	}

	ErrNotFound = &AppError{
		Code:       "NOT_FOUND",
		Message:    "Resource not found",
		StatusCode: 404,
	}

	ErrSessionNotFound = &AppError{
		Code:       "SESSION_NOT_FOUND",
		Message:    "Session not found or expired",
		StatusCode: 404,
	}

	ErrPreviewNotFound = &AppError{
		Code:       "PREVIEW_NOT_FOUND",
		Message:    "Preview not found or revoked",
		StatusCode: 404,
	}

	ErrInvalidImage = &AppError{
		Code:       "INVALID_IMAGE",
		Message:    "Invalid image format or corrupted file",
		StatusCode: 422,
	}

	ErrInvalidVideo = &AppError{
		Code:       "INVALID_VIDEO",
		Message:    "Invalid video format or corrupted file",
		StatusCode: 422,
	}

	ErrFileTooLarge = &AppError{
		Code:       "FILE_TOO_LARGE",
		Message:    "Uploaded file exceeds the size limit",
		StatusCode: 413,
	}

	ErrModelUnavailable = &AppError{
		Code:       "MODEL_UNAVAILABLE",
		Message:    "Failed to load emotion detection models. Please check your internet connection.",
		StatusCode: 503,
	}

	ErrCameraDenied = &AppError{
		Code:       "CAMERA_DENIED",
		Message:    "Camera permission was denied. Please allow camera access to use emotion detection.",
		StatusCode: 403,
	}

	ErrCameraNotFound = &AppError{
		Code:       "CAMERA_NOT_FOUND",
		Message:    "No camera found. Please connect a camera and try again.",
		StatusCode: 409,
	}

	ErrCameraUnavailable = &AppError{
		Code:       "CAMERA_UNAVAILABLE",
		Message:    "Camera could not be started",
		StatusCode: 409,
	}

	ErrNoVideo = &AppError{
		Code:       "NO_VIDEO",
		Message:    "No video loaded for this session",
		StatusCode: 409,
	}

	ErrSuperseded = &AppError{
		Code:       "SUPERSEDED",
		Message:    "Superseded by a newer upload",
		StatusCode: 409,
	}

	ErrRateLimitExceeded = &AppError{
		Code:       "RATE_LIMIT_EXCEEDED",
		Message:    "Rate limit exceeded, please try again later",
		StatusCode: 429,
	}

	ErrValidationFailed = &AppError{
		Code:       "VALIDATION_FAILED",
		Message:    "Request validation failed",
		StatusCode: 422,
	}

	ErrHistoryDisabled = &AppError{
		Code:       "HISTORY_DISABLED",
		Message:    "Detection history storage is not configured",
		StatusCode: 501,
	}
)
