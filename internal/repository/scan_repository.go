package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/provenance-service/internal/domain"
)

// ScanRepository appends and reads the two append-only scan ledgers. The
// channel picks the ledger; rows are never updated or deleted.
type ScanRepository interface {
	Append(ctx context.Context, channel domain.ScanChannel, entry *domain.ScanEntry) error
	AppendBatch(ctx context.Context, channel domain.ScanChannel, entries []domain.ScanEntry) error
	ListForProduct(ctx context.Context, channel domain.ScanChannel, productID string) ([]domain.ScanEntry, error)
}

type scanRepository struct {
	pool *pgxpool.Pool
}

// NewScanRepository instantiates repository.
func NewScanRepository(pool *pgxpool.Pool) ScanRepository {
	return &scanRepository{pool: pool}
}

// tableFor maps a channel to its ledger table. Channels are a closed enum,
// so interpolating the name into SQL is safe.
func tableFor(channel domain.ScanChannel) (string, error) {
	switch channel {
	case domain.ChannelConsumer:
		return "consumer_scans", nil
	case domain.ChannelSeller:
		return "seller_scans", nil
	default:
		return "", fmt.Errorf("unknown scan channel %q", channel)
	}
}

func (r *scanRepository) Append(ctx context.Context, channel domain.ScanChannel, entry *domain.ScanEntry) error {
	table, err := tableFor(channel)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`
        INSERT INTO %s (product_id, latitude, longitude, location_name, scanned_at)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id`, table)
	return r.pool.QueryRow(ctx, query,
		entry.ProductID,
		entry.Latitude,
		entry.Longitude,
		entry.LocationName,
		entry.ScannedAt,
	).Scan(&entry.ID)
}

func (r *scanRepository) AppendBatch(ctx context.Context, channel domain.ScanChannel, entries []domain.ScanEntry) error {
	for i := range entries {
		if err := r.Append(ctx, channel, &entries[i]); err != nil {
			return err
		}
	}
	return nil
}

func (r *scanRepository) ListForProduct(ctx context.Context, channel domain.ScanChannel, productID string) ([]domain.ScanEntry, error) {
	table, err := tableFor(channel)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`
        SELECT id, product_id, latitude, longitude, location_name, scanned_at
        FROM %s WHERE product_id=$1 ORDER BY scanned_at DESC, id DESC`, table)
	rows, err := r.pool.Query(ctx, query, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

func scanEntries(rows pgx.Rows) ([]domain.ScanEntry, error) {
	var result []domain.ScanEntry
	for rows.Next() {
		var entry domain.ScanEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.ProductID,
			&entry.Latitude,
			&entry.Longitude,
			&entry.LocationName,
			&entry.ScannedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
