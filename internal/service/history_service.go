package service

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/provenance-service/internal/domain"
	"github.com/spec-kit/provenance-service/internal/repository"
	apperrors "github.com/spec-kit/provenance-service/pkg/util"
)

// HistoryService reconstructs the seller-ledger scan history behind a token.
// Lookup matches the stored token string exactly and never re-verifies the
// signature; a token that was never persisted resolves to not found even if
// it would verify.
type HistoryService struct {
	products repository.ProductRepository
	masters  repository.MasterTokenRepository
	scans    repository.ScanRepository
}

// HistoryDependencies bundles repositories for the history service.
type HistoryDependencies struct {
	ProductRepo     repository.ProductRepository
	MasterTokenRepo repository.MasterTokenRepository
	ScanRepo        repository.ScanRepository
}

// ScanRecord is one ledger observation, newest first in the containing slice.
type ScanRecord struct {
	Latitude     float64
	Longitude    float64
	LocationName string
	ScannedAt    time.Time
}

// UnitHistory is a unit identity plus its seller-ledger trail.
type UnitHistory struct {
	UnitID    string
	Name      string
	StationID string
	Scans     []ScanRecord
}

// BatchHistory covers every unit in a batch.
type BatchHistory struct {
	BatchID  string
	IssuedAt time.Time
	Units    []UnitHistory
}

// History is the result of a lookup: exactly one field is set.
type History struct {
	Batch *BatchHistory
	Unit  *UnitHistory
}

// NewHistoryService constructs the service.
func NewHistoryService(deps HistoryDependencies) *HistoryService {
	return &HistoryService{
		products: deps.ProductRepo,
		masters:  deps.MasterTokenRepo,
		scans:    deps.ScanRepo,
	}
}

// GetHistory resolves a stored token value to its scan history. Master
// tokens are tried first, then unit tokens; anything else is not found.
func (s *HistoryService) GetHistory(ctx context.Context, tokenStr string) (*History, error) {
	if tokenStr == "" {
		return nil, apperrors.NewValidationError("token required", nil)
	}

	master, err := s.masters.FindByValue(ctx, tokenStr)
	switch {
	case err == nil:
		batch, err := s.batchHistory(ctx, master)
		if err != nil {
			return nil, err
		}
		return &History{Batch: batch}, nil
	case !errors.Is(err, pgx.ErrNoRows):
		return nil, apperrors.NewInternalError(err)
	}

	product, err := s.products.FindByToken(ctx, tokenStr)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("token", nil)
		}
		return nil, apperrors.NewInternalError(err)
	}

	unit, err := s.unitHistory(ctx, product)
	if err != nil {
		return nil, err
	}
	return &History{Unit: unit}, nil
}

func (s *HistoryService) batchHistory(ctx context.Context, master *domain.MasterToken) (*BatchHistory, error) {
	products, err := s.products.FindByBatch(ctx, master.BatchID)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	units := make([]UnitHistory, 0, len(products))
	for i := range products {
		unit, err := s.unitHistory(ctx, &products[i])
		if err != nil {
			return nil, err
		}
		units = append(units, *unit)
	}

	return &BatchHistory{
		BatchID:  master.BatchID,
		IssuedAt: master.CreatedAt,
		Units:    units,
	}, nil
}

// unitHistory exposes only the seller ledger; consumer scans stay private
// to this endpoint.
func (s *HistoryService) unitHistory(ctx context.Context, product *domain.Product) (*UnitHistory, error) {
	entries, err := s.scans.ListForProduct(ctx, domain.ChannelSeller, product.ID)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	records := make([]ScanRecord, 0, len(entries))
	for _, entry := range entries {
		records = append(records, ScanRecord{
			Latitude:     entry.Latitude,
			Longitude:    entry.Longitude,
			LocationName: entry.LocationName,
			ScannedAt:    entry.ScannedAt,
		})
	}

	return &UnitHistory{
		UnitID:    product.UnitID,
		Name:      product.Name,
		StationID: product.StationID,
		Scans:     records,
	}, nil
}
