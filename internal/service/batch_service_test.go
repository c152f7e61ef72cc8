package service

import (
	"context"
	"errors"
	"testing"

	"github.com/spec-kit/provenance-service/internal/token"
	apperrors "github.com/spec-kit/provenance-service/pkg/util"
)

func newBatchService(products *memProductRepo, masters *memMasterRepo) *BatchService {
	return NewBatchService(BatchDependencies{
		ProductRepo:     products,
		MasterTokenRepo: masters,
		Codec:           token.NewCodec("test-secret", 0),
		MaxUnits:        1000,
		Logger:          testLogger(),
		Metrics:         testMetrics(),
	})
}

func TestBatchService_IssueBatch(t *testing.T) {
	ctx := context.Background()

	t.Run("issues n units plus one master sharing a batch id", func(t *testing.T) {
		products := newMemProductRepo()
		masters := newMemMasterRepo()
		svc := newBatchService(products, masters)
		codec := token.NewCodec("test-secret", 0)

		batch, err := svc.IssueBatch(ctx, "Arabica beans", "station-7", 5)
		if err != nil {
			t.Fatalf("IssueBatch failed: %v", err)
		}
		if len(batch.Units) != 5 {
			t.Fatalf("unit count = %d, want 5", len(batch.Units))
		}
		if products.count() != 5 {
			t.Errorf("persisted products = %d, want 5", products.count())
		}
		if len(masters.masters) != 1 {
			t.Fatalf("persisted masters = %d, want 1", len(masters.masters))
		}
		if masters.masters[0].BatchID != batch.BatchID {
			t.Error("master token batch id differs from returned batch id")
		}

		seen := make(map[string]bool)
		for _, unit := range batch.Units {
			if seen[unit.UnitID] {
				t.Errorf("duplicate unit id %s", unit.UnitID)
			}
			seen[unit.UnitID] = true

			payload, err := codec.Verify(unit.Token)
			if err != nil {
				t.Fatalf("unit token does not verify: %v", err)
			}
			if payload.Kind != token.KindUnit || payload.UnitID != unit.UnitID {
				t.Errorf("verified payload = %+v, want unit %s", payload, unit.UnitID)
			}
		}

		payload, err := codec.Verify(batch.MasterToken)
		if err != nil {
			t.Fatalf("master token does not verify: %v", err)
		}
		if payload.Kind != token.KindMaster || payload.BatchID != batch.BatchID {
			t.Errorf("master payload = %+v, want batch %s", payload, batch.BatchID)
		}
	})

	t.Run("boundary sizes", func(t *testing.T) {
		for _, count := range []int{1, 500, 1000} {
			products := newMemProductRepo()
			masters := newMemMasterRepo()
			svc := newBatchService(products, masters)

			batch, err := svc.IssueBatch(ctx, "Arabica beans", "station-7", count)
			if err != nil {
				t.Fatalf("count=%d: IssueBatch failed: %v", count, err)
			}
			if len(batch.Units) != count || products.count() != count {
				t.Errorf("count=%d: units = %d, persisted = %d", count, len(batch.Units), products.count())
			}
			if len(masters.masters) != 1 {
				t.Errorf("count=%d: masters = %d, want 1", count, len(masters.masters))
			}
		}
	})

	t.Run("count bounds", func(t *testing.T) {
		for _, count := range []int{0, -1, 1001} {
			products := newMemProductRepo()
			svc := newBatchService(products, newMemMasterRepo())

			_, err := svc.IssueBatch(ctx, "Arabica beans", "station-7", count)
			var domainErr *apperrors.DomainError
			if !errors.As(err, &domainErr) || domainErr.Code != "VALIDATION_FAILED" {
				t.Fatalf("count=%d: err = %v, want VALIDATION_FAILED", count, err)
			}
			if products.count() != 0 {
				t.Errorf("count=%d: %d products created, want 0", count, products.count())
			}
		}
	})

	t.Run("missing name or station", func(t *testing.T) {
		svc := newBatchService(newMemProductRepo(), newMemMasterRepo())
		if _, err := svc.IssueBatch(ctx, "", "station-7", 1); err == nil {
			t.Error("empty name accepted")
		}
		if _, err := svc.IssueBatch(ctx, "Arabica beans", "", 1); err == nil {
			t.Error("empty station accepted")
		}
	})

	t.Run("mid-loop failure leaves prefix and reports count", func(t *testing.T) {
		products := newMemProductRepo()
		products.failAt = 3
		masters := newMemMasterRepo()
		svc := newBatchService(products, masters)

		_, err := svc.IssueBatch(ctx, "Arabica beans", "station-7", 10)
		var domainErr *apperrors.DomainError
		if !errors.As(err, &domainErr) || domainErr.Code != "BATCH_ISSUANCE_FAILED" {
			t.Fatalf("err = %v, want BATCH_ISSUANCE_FAILED", err)
		}
		if got := domainErr.Details["units_created"]; got != 2 {
			t.Errorf("units_created = %v, want 2", got)
		}
		if products.count() != 2 {
			t.Errorf("persisted products = %d, want the prefix of 2", products.count())
		}
		if len(masters.masters) != 0 {
			t.Errorf("master token persisted for a failed batch")
		}
	})

	t.Run("master persistence failure reports full unit count", func(t *testing.T) {
		products := newMemProductRepo()
		masters := newMemMasterRepo()
		masters.fail = true
		svc := newBatchService(products, masters)

		_, err := svc.IssueBatch(ctx, "Arabica beans", "station-7", 4)
		var domainErr *apperrors.DomainError
		if !errors.As(err, &domainErr) || domainErr.Code != "BATCH_ISSUANCE_FAILED" {
			t.Fatalf("err = %v, want BATCH_ISSUANCE_FAILED", err)
		}
		if got := domainErr.Details["units_created"]; got != 4 {
			t.Errorf("units_created = %v, want 4", got)
		}
	})
}
