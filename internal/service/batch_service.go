package service

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/provenance-service/internal/domain"
	"github.com/spec-kit/provenance-service/internal/events"
	"github.com/spec-kit/provenance-service/internal/observability"
	"github.com/spec-kit/provenance-service/internal/repository"
	"github.com/spec-kit/provenance-service/internal/token"
	apperrors "github.com/spec-kit/provenance-service/pkg/util"
)

// BatchService orchestrates issuance of a batch: n unit tokens plus one
// master token sharing a fresh batch id.
type BatchService struct {
	products repository.ProductRepository
	masters  repository.MasterTokenRepository
	codec    *token.Codec
	maxUnits int

	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics
}

// BatchDependencies bundles collaborators for the batch service.
type BatchDependencies struct {
	ProductRepo     repository.ProductRepository
	MasterTokenRepo repository.MasterTokenRepository
	Codec           *token.Codec
	MaxUnits        int
	Dispatcher      events.Dispatcher
	Logger          *zap.Logger
	Metrics         *observability.Metrics
}

// IssuedUnit is one unit token with its identity, in generation order.
type IssuedUnit struct {
	UnitID    string
	Name      string
	StationID string
	Token     string
}

// IssuedBatch is the result of a successful issuance.
type IssuedBatch struct {
	BatchID     string
	MasterToken string
	Units       []IssuedUnit
}

// NewBatchService constructs the service.
func NewBatchService(deps BatchDependencies) *BatchService {
	maxUnits := deps.MaxUnits
	if maxUnits <= 0 {
		maxUnits = 1000
	}
	return &BatchService{
		products:   deps.ProductRepo,
		masters:    deps.MasterTokenRepo,
		codec:      deps.Codec,
		maxUnits:   maxUnits,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		metrics:    deps.Metrics,
	}
}

// IssueBatch creates count unit tokens and one master token under a fresh
// batch id. Units are created sequentially, so a mid-loop storage failure
// leaves a deterministic prefix of product rows; those rows are not rolled
// back and the error reports how many were committed.
func (s *BatchService) IssueBatch(ctx context.Context, name, stationID string, count int) (*IssuedBatch, error) {
	if name == "" || stationID == "" {
		return nil, apperrors.NewValidationError("name and station_id required", nil)
	}
	if count < 1 || count > s.maxUnits {
		return nil, apperrors.NewValidationError("count out of range", map[string]any{
			"count": count,
			"min":   1,
			"max":   s.maxUnits,
		})
	}

	batchID := uuid.NewString()
	units := make([]IssuedUnit, 0, count)

	for i := 0; i < count; i++ {
		unitID := uuid.NewString()
		signed, err := s.codec.Issue(token.UnitPayload(name, stationID, unitID))
		if err != nil {
			return nil, apperrors.NewBatchIssuanceFailed(len(units), err)
		}

		product := &domain.Product{
			UnitID:    unitID,
			Name:      name,
			StationID: stationID,
			BatchID:   batchID,
			Token:     signed,
		}
		if err := s.products.Create(ctx, product); err != nil {
			s.logger.Error("unit creation failed mid-batch",
				zap.String("batch_id", batchID),
				zap.Int("units_created", len(units)),
				zap.Error(err))
			return nil, apperrors.NewBatchIssuanceFailed(len(units), err)
		}

		units = append(units, IssuedUnit{
			UnitID:    unitID,
			Name:      name,
			StationID: stationID,
			Token:     signed,
		})
	}

	masterSigned, err := s.codec.Issue(token.MasterPayload(batchID))
	if err != nil {
		return nil, apperrors.NewBatchIssuanceFailed(len(units), err)
	}
	master := &domain.MasterToken{BatchID: batchID, Token: masterSigned}
	if err := s.masters.Create(ctx, master); err != nil {
		s.logger.Error("master token creation failed",
			zap.String("batch_id", batchID),
			zap.Int("units_created", len(units)),
			zap.Error(err))
		return nil, apperrors.NewBatchIssuanceFailed(len(units), err)
	}

	s.metrics.RecordBatchIssued(count)
	s.publishEvent(ctx, events.Event{
		Type:    events.EventBatchIssued,
		BatchID: batchID,
		Payload: events.BatchIssuedPayload{
			Name:      name,
			StationID: stationID,
			UnitCount: count,
		},
	})

	return &IssuedBatch{
		BatchID:     batchID,
		MasterToken: masterSigned,
		Units:       units,
	}, nil
}

func (s *BatchService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, event)
}
