package model

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/emotisense/internal/config"
	"github.com/saturnino-fabrica-de-software/emotisense/internal/provider/deepface"
	"github.com/saturnino-fabrica-de-software/emotisense/internal/provider/mock"
	"github.com/saturnino-fabrica-de-software/emotisense/internal/provider/rekognition"
)

func TestNewProvider(t *testing.T) {
	tests := []struct {
		name         string
		providerType string
		check        func(*testing.T, interface{})
	}{
		{
			name:         "explicit deepface provider",
			providerType: "deepface",
			check: func(t *testing.T, p interface{}) {
				assert.IsType(t, &deepface.Provider{}, p)
			},
		},
		{
			name:         "empty provider defaults to deepface",
			providerType: "",
			check: func(t *testing.T, p interface{}) {
				assert.IsType(t, &deepface.Provider{}, p)
			},
		},
		{
			name:         "rekognition is built without AWS calls",
			providerType: "rekognition",
			check: func(t *testing.T, p interface{}) {
				assert.IsType(t, &rekognition.Provider{}, p)
			},
		},
		{
			name:         "mock provider",
			providerType: "mock",
			check: func(t *testing.T, p interface{}) {
				assert.IsType(t, &mock.Provider{}, p)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{
				ProviderType: tt.providerType,
				DeepFaceURL:  "http://custom-host:8080",
				AWSRegion:    "eu-west-1",
			}

			p, err := NewProvider(cfg, slog.Default())
			require.NoError(t, err)
			tt.check(t, p)
		})
	}
}

func TestNewProvider_Unknown(t *testing.T) {
	_, err := NewProvider(&config.Config{ProviderType: "faceapi"}, slog.Default())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown provider type")
}
