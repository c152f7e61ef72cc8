package handlers

import (
	"fmt"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/spec-kit/provenance-service/internal/api/dto"
	"github.com/spec-kit/provenance-service/internal/domain"
	"github.com/spec-kit/provenance-service/internal/service"
	apperrors "github.com/spec-kit/provenance-service/pkg/util"
)

// ProductsHandler exposes issuance, scanning, history and batch download.
type ProductsHandler struct {
	batches   *service.BatchService
	scans     *service.ScanService
	histories *service.HistoryService
	archives  *service.ArchiveService
}

// NewProductsHandler constructs handler.
func NewProductsHandler(batches *service.BatchService, scans *service.ScanService, histories *service.HistoryService, archives *service.ArchiveService) *ProductsHandler {
	return &ProductsHandler{
		batches:   batches,
		scans:     scans,
		histories: histories,
		archives:  archives,
	}
}

// SignBatch POST /api/products/sign.
func (h *ProductsHandler) SignBatch(c *fiber.Ctx) error {
	var req dto.SignBatchRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Name == "" || req.StationID == "" {
		return apperrors.NewValidationError("name and station_id required", nil)
	}

	batch, err := h.batches.IssueBatch(c.UserContext(), req.Name, req.StationID, req.Count)
	if err != nil {
		return err
	}

	units := make([]dto.IssuedUnitResponse, 0, len(batch.Units))
	for _, unit := range batch.Units {
		units = append(units, dto.IssuedUnitResponse{
			UnitID:    unit.UnitID,
			Name:      unit.Name,
			StationID: unit.StationID,
			Token:     unit.Token,
		})
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.SignBatchResponse{
		BatchID:     batch.BatchID,
		MasterToken: batch.MasterToken,
		UnitTokens:  units,
		Count:       len(units),
	}})
}

// Scan POST /api/products/scan (consumer channel).
func (h *ProductsHandler) Scan(c *fiber.Ctx) error {
	return h.recordScan(c, domain.ChannelConsumer)
}

// SellerScan POST /api/products/seller-scan (seller channel).
func (h *ProductsHandler) SellerScan(c *fiber.Ctx) error {
	return h.recordScan(c, domain.ChannelSeller)
}

func (h *ProductsHandler) recordScan(c *fiber.Ctx, channel domain.ScanChannel) error {
	var req dto.ScanRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Token == "" {
		return apperrors.NewValidationError("token required", nil)
	}
	if req.Latitude == nil || req.Longitude == nil {
		return apperrors.NewValidationError("latitude and longitude required", nil)
	}

	result, err := h.scans.RecordScan(c.UserContext(), req.Token, float64(*req.Latitude), float64(*req.Longitude), channel)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": scanResponse(result)})
}

// History GET /api/products/scan-history?token=...
func (h *ProductsHandler) History(c *fiber.Ctx) error {
	tokenStr := c.Query("token")
	if tokenStr == "" {
		return apperrors.NewValidationError("token query parameter required", nil)
	}

	history, err := h.histories.GetHistory(c.UserContext(), tokenStr)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": historyResponse(history)})
}

// DownloadBatch GET /api/products/batch/:batchId/download.
func (h *ProductsHandler) DownloadBatch(c *fiber.Ctx) error {
	batchID := c.Params("batchId")
	if _, err := uuid.Parse(batchID); err != nil {
		return apperrors.NewValidationError("invalid batch id", nil)
	}

	archive, err := h.archives.BuildBatchArchive(c.UserContext(), batchID)
	if err != nil {
		return err
	}

	c.Set(fiber.HeaderContentType, "application/zip")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="batch-%s.zip"`, batchID))
	return c.Send(archive)
}

func scanResponse(result *service.ScanResult) dto.ScanResponse {
	resp := dto.ScanResponse{
		LocationName: result.LocationName,
		ScannedAt:    result.ScannedAt,
	}
	if result.Product != nil {
		resp.Type = "unit"
		resp.Product = &dto.ProductResponse{
			UnitID:    result.Product.UnitID,
			Name:      result.Product.Name,
			StationID: result.Product.StationID,
			BatchID:   result.Product.BatchID,
			Token:     result.Product.Token,
			CreatedAt: result.Product.CreatedAt,
		}
		return resp
	}

	resp.Type = "batch"
	resp.BatchID = result.BatchID
	units := make([]dto.UnitIdentityResponse, 0, len(result.Units))
	for _, unit := range result.Units {
		units = append(units, dto.UnitIdentityResponse{
			UnitID:    unit.UnitID,
			Name:      unit.Name,
			StationID: unit.StationID,
		})
	}
	resp.Units = units
	return resp
}

func historyResponse(history *service.History) dto.HistoryResponse {
	if history.Batch != nil {
		units := make([]dto.UnitHistoryResponse, 0, len(history.Batch.Units))
		for i := range history.Batch.Units {
			units = append(units, unitHistoryResponse(&history.Batch.Units[i]))
		}
		issuedAt := history.Batch.IssuedAt
		return dto.HistoryResponse{
			Type:     "batch",
			BatchID:  history.Batch.BatchID,
			IssuedAt: &issuedAt,
			Units:    units,
		}
	}

	unit := unitHistoryResponse(history.Unit)
	return dto.HistoryResponse{
		Type: "unit",
		Unit: &unit,
	}
}

func unitHistoryResponse(unit *service.UnitHistory) dto.UnitHistoryResponse {
	scans := make([]dto.ScanRecordResponse, 0, len(unit.Scans))
	for _, scan := range unit.Scans {
		scans = append(scans, dto.ScanRecordResponse{
			Latitude:     scan.Latitude,
			Longitude:    scan.Longitude,
			LocationName: scan.LocationName,
			ScannedAt:    scan.ScannedAt,
		})
	}
	return dto.UnitHistoryResponse{
		UnitID:    unit.UnitID,
		Name:      unit.Name,
		StationID: unit.StationID,
		Scans:     scans,
	}
}
