package rekognition

import (
	"context"
	"errors"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/smithy-go"
)

const (
	errCodeAccessDenied       = "AccessDeniedException"
	errCodeUnrecognizedClient = "UnrecognizedClientException"
	errCodeInvalidParameter   = "InvalidParameterException"
	errCodeInvalidImageFormat = "InvalidImageFormatException"
	errCodeImageTooLarge      = "ImageTooLargeException"
)

// DetectFacesAPI is the subset of the Rekognition client the provider calls
type DetectFacesAPI interface {
	DetectFaces(ctx context.Context, params *rekognition.DetectFacesInput, optFns ...func(*rekognition.Options)) (*rekognition.DetectFacesOutput, error)
}

// NewClient creates a Rekognition client with the provided configuration
// It uses the AWS default credential chain to authenticate
func NewClient(ctx context.Context, cfg Config) (*rekognition.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return rekognition.NewFromConfig(awsCfg), nil
}

// parseDetectError maps AWS API errors onto package errors.
// noFace is true when Rekognition rejected the image for having no usable face.
func parseDetectError(err error) (noFace bool, mapped error) {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false, fmt.Errorf("detect faces: %w", err)
	}

	switch apiErr.ErrorCode() {
	case errCodeAccessDenied, errCodeUnrecognizedClient:
		return false, ErrInvalidCredentials
	case errCodeInvalidImageFormat, errCodeImageTooLarge:
		return false, fmt.Errorf("%w: %s", ErrInvalidImage, apiErr.ErrorMessage())
	case errCodeInvalidParameter:
		return true, nil
	}

	return false, fmt.Errorf("detect faces: %w", err)
}
