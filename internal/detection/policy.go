package detection

import (
	"fmt"

	"github.com/saturnino-fabrica-de-software/emotisense/internal/emotion"
)

// NoFacePolicy decides what a detector publishes when a pass finds no face
type NoFacePolicy string

const (
	// KeepLast republishes the previous result with face_detected=false,
	// staying empty when nothing was ever detected
	KeepLast NoFacePolicy = "keep_last"
	// Reset publishes a zeroed result with neutral dominant
	Reset NoFacePolicy = "reset"
)

// ParseNoFacePolicy accepts "", "keep_last" or "reset"
func ParseNoFacePolicy(s string) (NoFacePolicy, error) {
	switch NoFacePolicy(s) {
	case "", KeepLast, Reset:
		return NoFacePolicy(s), nil
	}
	return "", fmt.Errorf("unknown no-face policy %q", s)
}

// Apply returns the result to publish after a no-face pass
func (p NoFacePolicy) Apply(prev *emotion.Result) *emotion.Result {
	if p == Reset {
		r := emotion.NoFace()
		return &r
	}
	if prev == nil {
		return nil
	}
	r := prev.WithoutFace()
	return &r
}

// Policies holds the policy of the polling paths and of the still image path
type Policies struct {
	Live  NoFacePolicy
	Still NoFacePolicy
}

// DefaultNoFacePolicy is used on every path unless configured otherwise
const DefaultNoFacePolicy = Reset

// DefaultPolicies resets on every path
func DefaultPolicies() Policies {
	return Policies{Live: DefaultNoFacePolicy, Still: DefaultNoFacePolicy}
}

// ResolvePolicies applies a configured policy to every path; empty keeps the default
func ResolvePolicies(configured NoFacePolicy) Policies {
	if configured == "" {
		return DefaultPolicies()
	}
	return Policies{Live: configured, Still: configured}
}
