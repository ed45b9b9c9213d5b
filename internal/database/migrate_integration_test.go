//go:build integration

package database_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/saturnino-fabrica-de-software/emotisense/internal/database"
)

// startPostgres runs a pgvector-enabled postgres and returns its DSN
func startPostgres(t *testing.T) string {
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
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	return fmt.Sprintf("postgres://test:test@%s:%s/emotisense_test?sslmode=disable", host, port.Port())
}

func TestMigratorIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	dsn := startPostgres(t)

	db, err := database.NewDB(database.DefaultPoolConfig(dsn))
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	t.Run("Up creates detection_events", func(t *testing.T) {
		migrator, err := database.NewMigrator(db, "emotisense_test")
		require.NoError(t, err)

		require.NoError(t, migrator.Up())

		var exists bool
		err = db.QueryRow(`
			SELECT EXISTS (
				SELECT FROM information_schema.tables
				WHERE table_schema = 'public'
				AND table_name = 'detection_events'
			)
		`).Scan(&exists)
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("Up is idempotent", func(t *testing.T) {
		require.NoError(t, database.MigrateUp(dsn))
	})

	t.Run("Version returns current version", func(t *testing.T) {
		migrator, err := database.NewMigrator(db, "emotisense_test")
		require.NoError(t, err)

		version, dirty, err := migrator.Version()
		require.NoError(t, err)
		assert.False(t, dirty, "migration should not be dirty")
		assert.Equal(t, uint(1), version)
	})

	t.Run("Pool health check", func(t *testing.T) {
		pool, err := database.NewPool(context.Background(), database.DefaultPoolConfig(dsn))
		require.NoError(t, err)
		defer pool.Close()

		assert.NoError(t, database.HealthCheck(context.Background(), pool))
	})
}
