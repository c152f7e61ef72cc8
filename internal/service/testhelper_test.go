package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/provenance-service/internal/domain"
	"github.com/spec-kit/provenance-service/internal/observability"
)

// memProductRepo is an in-memory ProductRepository. failAt > 0 makes the
// n-th Create call fail, for exercising mid-batch failures.
type memProductRepo struct {
	mu       sync.Mutex
	products []*domain.Product
	failAt   int
	creates  int
}

func newMemProductRepo() *memProductRepo {
	return &memProductRepo{}
}

func (r *memProductRepo) Create(ctx context.Context, product *domain.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.creates++
	if r.failAt > 0 && r.creates >= r.failAt {
		return errors.New("storage unavailable")
	}
	product.ID = uuid.NewString()
	product.CreatedAt = time.Now().UTC()
	stored := *product
	r.products = append(r.products, &stored)
	return nil
}

func (r *memProductRepo) FindByUnitID(ctx context.Context, unitID string) (*domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.products {
		if p.UnitID == unitID {
			copied := *p
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *memProductRepo) FindByToken(ctx context.Context, token string) (*domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.products {
		if p.Token == token {
			copied := *p
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *memProductRepo) FindByBatch(ctx context.Context, batchID string) ([]domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.Product
	for _, p := range r.products {
		if p.BatchID == batchID {
			result = append(result, *p)
		}
	}
	return result, nil
}

func (r *memProductRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.products)
}

// memMasterRepo is an in-memory MasterTokenRepository.
type memMasterRepo struct {
	mu      sync.Mutex
	masters []*domain.MasterToken
	fail    bool
}

func newMemMasterRepo() *memMasterRepo {
	return &memMasterRepo{}
}

func (r *memMasterRepo) Create(ctx context.Context, master *domain.MasterToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return errors.New("storage unavailable")
	}
	master.ID = uuid.NewString()
	master.CreatedAt = time.Now().UTC()
	stored := *master
	r.masters = append(r.masters, &stored)
	return nil
}

func (r *memMasterRepo) FindByBatch(ctx context.Context, batchID string) (*domain.MasterToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.masters {
		if m.BatchID == batchID {
			copied := *m
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *memMasterRepo) FindByValue(ctx context.Context, token string) (*domain.MasterToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.masters {
		if m.Token == token {
			copied := *m
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

// memScanRepo is an in-memory ScanRepository keeping the two ledgers apart.
type memScanRepo struct {
	mu      sync.Mutex
	ledgers map[domain.ScanChannel][]domain.ScanEntry
	nextID  int64
	failAt  int
	appends int
}

func newMemScanRepo() *memScanRepo {
	return &memScanRepo{ledgers: make(map[domain.ScanChannel][]domain.ScanEntry)}
}

func (r *memScanRepo) Append(ctx context.Context, channel domain.ScanChannel, entry *domain.ScanEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.appends++
	if r.failAt > 0 && r.appends >= r.failAt {
		return errors.New("storage unavailable")
	}
	r.nextID++
	entry.ID = r.nextID
	r.ledgers[channel] = append(r.ledgers[channel], *entry)
	return nil
}

func (r *memScanRepo) AppendBatch(ctx context.Context, channel domain.ScanChannel, entries []domain.ScanEntry) error {
	for i := range entries {
		if err := r.Append(ctx, channel, &entries[i]); err != nil {
			return err
		}
	}
	return nil
}

func (r *memScanRepo) ListForProduct(ctx context.Context, channel domain.ScanChannel, productID string) ([]domain.ScanEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.ScanEntry
	for _, entry := range r.ledgers[channel] {
		if entry.ProductID == productID {
			result = append(result, entry)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].ScannedAt.Equal(result[j].ScannedAt) {
			return result[i].ScannedAt.After(result[j].ScannedAt)
		}
		return result[i].ID > result[j].ID
	})
	return result, nil
}

func (r *memScanRepo) entries(channel domain.ScanChannel) []domain.ScanEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.ScanEntry{}, r.ledgers[channel]...)
}

// stubResolver returns a fixed place name and counts calls.
type stubResolver struct {
	mu    sync.Mutex
	name  string
	calls int
}

func (r *stubResolver) Resolve(ctx context.Context, lat, lon float64) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	return r.name
}

func testLogger() *zap.Logger {
	return zap.NewNop()
}

func testMetrics() *observability.Metrics {
	return observability.NewMetrics()
}
