package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/saturnino-fabrica-de-software/emotisense/internal/domain"
	"github.com/saturnino-fabrica-de-software/emotisense/internal/emotion"
)

// PgxPool is the subset of *pgxpool.Pool used by the repositories.
// pgxmock.PgxPoolIface satisfies it in tests.
type PgxPool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// DetectionRepositoryInterface defines operations for detection history access
type DetectionRepositoryInterface interface {
	Create(ctx context.Context, record *domain.DetectionRecord) error
	ListBySession(ctx context.Context, sessionID uuid.UUID, limit int) ([]domain.DetectionRecord, error)
	Summary(ctx context.Context, sessionID uuid.UUID) ([]domain.EmotionCount, error)
	Nearest(ctx context.Context, vec emotion.Vector, limit int) ([]domain.SimilarRecord, error)
	DeleteBySession(ctx context.Context, sessionID uuid.UUID) (int64, error)
}
