package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/provenance-service/internal/domain"
)

// MasterTokenRepository encapsulates master token persistence.
type MasterTokenRepository interface {
	Create(ctx context.Context, master *domain.MasterToken) error
	FindByBatch(ctx context.Context, batchID string) (*domain.MasterToken, error)
	FindByValue(ctx context.Context, token string) (*domain.MasterToken, error)
}

type masterTokenRepository struct {
	pool *pgxpool.Pool
}

// NewMasterTokenRepository instantiates repository.
func NewMasterTokenRepository(pool *pgxpool.Pool) MasterTokenRepository {
	return &masterTokenRepository{pool: pool}
}

func (r *masterTokenRepository) Create(ctx context.Context, master *domain.MasterToken) error {
	const query = `
        INSERT INTO master_tokens (batch_id, token)
        VALUES ($1,$2)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		master.BatchID,
		master.Token,
	).Scan(&master.ID, &master.CreatedAt)
}

func (r *masterTokenRepository) FindByBatch(ctx context.Context, batchID string) (*domain.MasterToken, error) {
	const query = `
        SELECT id, batch_id, token, created_at
        FROM master_tokens WHERE batch_id=$1`
	return r.fetchSingle(ctx, query, batchID)
}

func (r *masterTokenRepository) FindByValue(ctx context.Context, token string) (*domain.MasterToken, error) {
	const query = `
        SELECT id, batch_id, token, created_at
        FROM master_tokens WHERE token=$1`
	return r.fetchSingle(ctx, query, token)
}

func (r *masterTokenRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.MasterToken, error) {
	var master domain.MasterToken
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&master.ID,
		&master.BatchID,
		&master.Token,
		&master.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &master, nil
}
