package service

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/provenance-service/internal/domain"
	"github.com/spec-kit/provenance-service/internal/events"
	"github.com/spec-kit/provenance-service/internal/geo"
	"github.com/spec-kit/provenance-service/internal/observability"
	"github.com/spec-kit/provenance-service/internal/repository"
	"github.com/spec-kit/provenance-service/internal/token"
	apperrors "github.com/spec-kit/provenance-service/pkg/util"
)

// ScanService records scan observations on one of the two ledgers. The
// channel comes from the HTTP entry point, never from the token itself.
type ScanService struct {
	products repository.ProductRepository
	scans    repository.ScanRepository
	codec    *token.Codec
	resolver geo.Resolver

	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics
}

// ScanDependencies bundles collaborators for the scan service.
type ScanDependencies struct {
	ProductRepo repository.ProductRepository
	ScanRepo    repository.ScanRepository
	Codec       *token.Codec
	Resolver    geo.Resolver
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
	Metrics     *observability.Metrics
}

// UnitIdentity is the minimal identity of an affected unit in a batch scan.
type UnitIdentity struct {
	UnitID    string
	Name      string
	StationID string
}

// ScanResult describes the outcome of a recorded scan. Exactly one of
// Product (unit scan) or Units (batch scan) is set.
type ScanResult struct {
	Kind         token.Kind
	Product      *domain.Product
	BatchID      string
	Units        []UnitIdentity
	LocationName string
	ScannedAt    time.Time
}

// NewScanService constructs the service.
func NewScanService(deps ScanDependencies) *ScanService {
	return &ScanService{
		products:   deps.ProductRepo,
		scans:      deps.ScanRepo,
		codec:      deps.Codec,
		resolver:   deps.Resolver,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		metrics:    deps.Metrics,
	}
}

// RecordScan verifies the token, resolves the place name once, and appends
// ledger rows: one for a unit token, one per batch unit for a master token.
// The ledger is a provenance trail; the same token scanned twice produces
// two rows.
func (s *ScanService) RecordScan(ctx context.Context, tokenStr string, lat, lon float64, channel domain.ScanChannel) (*ScanResult, error) {
	if !channel.Valid() {
		return nil, apperrors.NewValidationError("unknown scan channel", nil)
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return nil, apperrors.NewValidationError("coordinates out of range", map[string]any{
			"latitude":  lat,
			"longitude": lon,
		})
	}

	payload, err := s.codec.Verify(tokenStr)
	if err != nil {
		reason := token.Reason(err)
		s.metrics.RecordTokenRejected(reason)
		return nil, apperrors.NewTokenRejected(reason)
	}

	switch payload.Kind {
	case token.KindMaster:
		return s.recordBatchScan(ctx, payload.BatchID, lat, lon, channel)
	case token.KindUnit:
		return s.recordUnitScan(ctx, payload.UnitID, lat, lon, channel)
	default:
		return nil, apperrors.NewTokenRejected(token.Reason(token.ErrUnrecognizedPayload))
	}
}

func (s *ScanService) recordUnitScan(ctx context.Context, unitID string, lat, lon float64, channel domain.ScanChannel) (*ScanResult, error) {
	product, err := s.products.FindByUnitID(ctx, unitID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("product", map[string]any{"unit_id": unitID})
		}
		return nil, apperrors.NewInternalError(err)
	}

	scannedAt := time.Now().UTC()
	locationName := s.resolver.Resolve(ctx, lat, lon)

	entry := domain.ScanEntry{
		ProductID:    product.ID,
		Latitude:     lat,
		Longitude:    lon,
		LocationName: locationName,
		ScannedAt:    scannedAt,
	}
	if err := s.scans.Append(ctx, channel, &entry); err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	s.metrics.RecordScans(string(channel), 1)
	s.publishEvent(ctx, events.Event{
		Type:    events.EventScanRecorded,
		BatchID: product.BatchID,
		Payload: events.ScanRecordedPayload{
			Channel:      channel,
			UnitID:       product.UnitID,
			UnitCount:    1,
			LocationName: locationName,
		},
	})

	return &ScanResult{
		Kind:         token.KindUnit,
		Product:      product,
		BatchID:      product.BatchID,
		LocationName: locationName,
		ScannedAt:    scannedAt,
	}, nil
}

// recordBatchScan appends one row per unit, all sharing one timestamp and
// resolved location. Appends run sequentially; a mid-loop failure fails the
// call with earlier rows kept (no two-phase commit across ledger rows).
func (s *ScanService) recordBatchScan(ctx context.Context, batchID string, lat, lon float64, channel domain.ScanChannel) (*ScanResult, error) {
	products, err := s.products.FindByBatch(ctx, batchID)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	if len(products) == 0 {
		return nil, apperrors.NewNotFound("batch", map[string]any{"batch_id": batchID})
	}

	scannedAt := time.Now().UTC()
	locationName := s.resolver.Resolve(ctx, lat, lon)

	entries := make([]domain.ScanEntry, 0, len(products))
	units := make([]UnitIdentity, 0, len(products))
	for i := range products {
		entries = append(entries, domain.ScanEntry{
			ProductID:    products[i].ID,
			Latitude:     lat,
			Longitude:    lon,
			LocationName: locationName,
			ScannedAt:    scannedAt,
		})
		units = append(units, UnitIdentity{
			UnitID:    products[i].UnitID,
			Name:      products[i].Name,
			StationID: products[i].StationID,
		})
	}
	if err := s.scans.AppendBatch(ctx, channel, entries); err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	s.metrics.RecordScans(string(channel), len(entries))
	s.publishEvent(ctx, events.Event{
		Type:    events.EventScanRecorded,
		BatchID: batchID,
		Payload: events.ScanRecordedPayload{
			Channel:      channel,
			UnitCount:    len(entries),
			LocationName: locationName,
		},
	})

	return &ScanResult{
		Kind:         token.KindMaster,
		BatchID:      batchID,
		Units:        units,
		LocationName: locationName,
		ScannedAt:    scannedAt,
	}, nil
}

func (s *ScanService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, event)
}
