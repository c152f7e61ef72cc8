package service

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/spec-kit/provenance-service/internal/repository"
	apperrors "github.com/spec-kit/provenance-service/pkg/util"
)

const qrImageSize = 512

// ArchiveService packages a batch's tokens as QR PNGs in a ZIP for label
// printing.
type ArchiveService struct {
	products repository.ProductRepository
	masters  repository.MasterTokenRepository
}

// NewArchiveService constructs the service.
func NewArchiveService(products repository.ProductRepository, masters repository.MasterTokenRepository) *ArchiveService {
	return &ArchiveService{products: products, masters: masters}
}

// BuildBatchArchive renders one QR PNG per unit token plus master.png and
// returns the ZIP bytes. Batch sizes are capped at issuance, so buffering
// the archive in memory is fine.
func (s *ArchiveService) BuildBatchArchive(ctx context.Context, batchID string) ([]byte, error) {
	products, err := s.products.FindByBatch(ctx, batchID)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	if len(products) == 0 {
		return nil, apperrors.NewNotFound("batch", map[string]any{"batch_id": batchID})
	}

	master, err := s.masters.FindByBatch(ctx, batchID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NewInternalError(err)
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	for i := range products {
		png, err := qrcode.Encode(products[i].Token, qrcode.Medium, qrImageSize)
		if err != nil {
			return nil, apperrors.NewInternalError(err)
		}
		name := fmt.Sprintf("unit-%04d-%s.png", i+1, products[i].UnitID)
		if err := writeZipEntry(zw, name, png); err != nil {
			return nil, apperrors.NewInternalError(err)
		}
	}

	if master != nil {
		png, err := qrcode.Encode(master.Token, qrcode.Medium, qrImageSize)
		if err != nil {
			return nil, apperrors.NewInternalError(err)
		}
		if err := writeZipEntry(zw, "master.png", png); err != nil {
			return nil, apperrors.NewInternalError(err)
		}
	}

	if err := zw.Close(); err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return buf.Bytes(), nil
}

func writeZipEntry(zw *zip.Writer, name string, content []byte) error {
	w, err := zw.Create(name)
	if err != nil {
		return err
	}
	_, err = w.Write(content)
	return err
}
