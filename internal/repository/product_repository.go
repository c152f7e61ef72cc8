package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/provenance-service/internal/domain"
)

// ProductRepository encapsulates product persistence.
type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) error
	FindByUnitID(ctx context.Context, unitID string) (*domain.Product, error)
	FindByBatch(ctx context.Context, batchID string) ([]domain.Product, error)
	FindByToken(ctx context.Context, token string) (*domain.Product, error)
}

type productRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository instantiates repository.
func NewProductRepository(pool *pgxpool.Pool) ProductRepository {
	return &productRepository{pool: pool}
}

func (r *productRepository) Create(ctx context.Context, product *domain.Product) error {
	const query = `
        INSERT INTO products (unit_id, name, station_id, batch_id, token)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		product.UnitID,
		product.Name,
		product.StationID,
		product.BatchID,
		product.Token,
	).Scan(&product.ID, &product.CreatedAt)
}

func (r *productRepository) FindByUnitID(ctx context.Context, unitID string) (*domain.Product, error) {
	const query = `
        SELECT id, unit_id, name, station_id, batch_id, token, created_at
        FROM products WHERE unit_id=$1`
	return r.fetchSingle(ctx, query, unitID)
}

func (r *productRepository) FindByToken(ctx context.Context, token string) (*domain.Product, error) {
	const query = `
        SELECT id, unit_id, name, station_id, batch_id, token, created_at
        FROM products WHERE token=$1`
	return r.fetchSingle(ctx, query, token)
}

func (r *productRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Product, error) {
	var product domain.Product
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&product.ID,
		&product.UnitID,
		&product.Name,
		&product.StationID,
		&product.BatchID,
		&product.Token,
		&product.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepository) FindByBatch(ctx context.Context, batchID string) ([]domain.Product, error) {
	const query = `
        SELECT id, unit_id, name, station_id, batch_id, token, created_at
        FROM products WHERE batch_id=$1 ORDER BY created_at ASC, id ASC`
	rows, err := r.pool.Query(ctx, query, batchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanProducts(rows)
}

func scanProducts(rows pgx.Rows) ([]domain.Product, error) {
	var result []domain.Product
	for rows.Next() {
		var product domain.Product
		if err := rows.Scan(
			&product.ID,
			&product.UnitID,
			&product.Name,
			&product.StationID,
			&product.BatchID,
			&product.Token,
			&product.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, product)
	}
	return result, rows.Err()
}
