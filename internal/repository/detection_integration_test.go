//go:build integration

package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/saturnino-fabrica-de-software/emotisense/internal/database"
	"github.com/saturnino-fabrica-de-software/emotisense/internal/domain"
	"github.com/saturnino-fabrica-de-software/emotisense/internal/emotion"
)

func setupIntegrationTest(t *testing.T) (*pgxpool.Pool, func()) {
	t.Helper()

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "pgvector/pgvector:pg16",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "emotisense_test",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)

	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	connStr := fmt.Sprintf("postgres://test:test@%s:%s/emotisense_test?sslmode=disable", host, port.Port())

	require.NoError(t, database.MigrateUp(connStr))

	db, err := database.NewPool(ctx, database.DefaultPoolConfig(connStr))
	require.NoError(t, err)

	cleanup := func() {
		db.Close()
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	}

	return db, cleanup
}

func TestDetectionRepository_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db, cleanup := setupIntegrationTest(t)
	defer cleanup()

	ctx := context.Background()
	repo := NewDetectionRepository(db)
	sessionID := uuid.New()

	results := []emotion.Result{
		emotion.Normalize(emotion.Scores{0.1, 0.85, 0.01, 0.01, 0.01, 0.01, 0.01}),
		emotion.Normalize(emotion.Scores{0.05, 0.05, 0.8, 0.05, 0.02, 0.02, 0.01}),
		emotion.Normalize(emotion.Scores{0.1, 0.8, 0.05, 0.01, 0.02, 0.01, 0.01}),
		emotion.NoFace(),
	}

	for i, r := range results {
		record := domain.NewDetectionRecord(sessionID, domain.SourceCamera, r)
		record.CreatedAt = record.CreatedAt.Add(time.Duration(i) * time.Second)
		require.NoError(t, repo.Create(ctx, &record))
	}

	t.Run("list newest first", func(t *testing.T) {
		records, err := repo.ListBySession(ctx, sessionID, 10)
		require.NoError(t, err)
		require.Len(t, records, len(results))

		assert.False(t, records[0].FaceDetected)
		assert.Equal(t, results[2].Emotions, records[1].Emotions)
		for i := 1; i < len(records); i++ {
			assert.False(t, records[i].CreatedAt.After(records[i-1].CreatedAt))
		}
	})

	t.Run("summary counts face detections only", func(t *testing.T) {
		summary, err := repo.Summary(ctx, sessionID)
		require.NoError(t, err)

		assert.Equal(t, int64(2), summary[emotion.Happy].Count)
		assert.Equal(t, int64(1), summary[emotion.Sad].Count)
		assert.Zero(t, summary[emotion.Neutral].Count)
	})

	t.Run("nearest orders by similarity", func(t *testing.T) {
		matches, err := repo.Nearest(ctx, results[0].Emotions, 3)
		require.NoError(t, err)
		require.Len(t, matches, 3)

		assert.InDelta(t, 1.0, matches[0].Similarity, 0.001)
		assert.Equal(t, emotion.Happy, matches[1].Record.DominantEmotion)
		assert.Equal(t, emotion.Sad, matches[2].Record.DominantEmotion)
		for i := 1; i < len(matches); i++ {
			assert.GreaterOrEqual(t, matches[i-1].Similarity, matches[i].Similarity)
		}
	})

	t.Run("delete by session", func(t *testing.T) {
		n, err := repo.DeleteBySession(ctx, sessionID)
		require.NoError(t, err)
		assert.Equal(t, int64(len(results)), n)
	})
}
