package dto

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"
)

// Coordinate decodes from a JSON number or a numeric string; scanner apps
// are inconsistent about which they send. Responses always emit numbers.
type Coordinate float64

// UnmarshalJSON implements lenient coordinate parsing.
func (c *Coordinate) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	val, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return err
	}
	*c = Coordinate(val)
	return nil
}

// MarshalJSON always emits a number.
func (c Coordinate) MarshalJSON() ([]byte, error) {
	return json.Marshal(float64(c))
}

// SignBatchRequest payload.
type SignBatchRequest struct {
	Name      string `json:"name"`
	StationID string `json:"station_id"`
	Count     int    `json:"count"`
}

// IssuedUnitResponse is one unit token in generation order.
type IssuedUnitResponse struct {
	UnitID    string `json:"unit_id"`
	Name      string `json:"name"`
	StationID string `json:"station_id"`
	Token     string `json:"token"`
}

// SignBatchResponse payload.
type SignBatchResponse struct {
	BatchID     string               `json:"batch_id"`
	MasterToken string               `json:"master_token"`
	UnitTokens  []IssuedUnitResponse `json:"unit_tokens"`
	Count       int                  `json:"count"`
}

// ScanRequest payload shared by the consumer and seller endpoints.
type ScanRequest struct {
	Token     string      `json:"token"`
	Latitude  *Coordinate `json:"latitude"`
	Longitude *Coordinate `json:"longitude"`
}

// ProductResponse is the full persisted product record.
type ProductResponse struct {
	UnitID    string    `json:"unit_id"`
	Name      string    `json:"name"`
	StationID string    `json:"station_id"`
	BatchID   string    `json:"batch_id"`
	Token     string    `json:"token"`
	CreatedAt time.Time `json:"created_at"`
}

// UnitIdentityResponse is the minimal identity of an affected unit.
type UnitIdentityResponse struct {
	UnitID    string `json:"unit_id"`
	Name      string `json:"name"`
	StationID string `json:"station_id"`
}

// ScanResponse describes a recorded scan. Product is set for unit scans,
// Units for batch scans.
type ScanResponse struct {
	Type         string                 `json:"type"`
	Product      *ProductResponse       `json:"product,omitempty"`
	BatchID      string                 `json:"batch_id,omitempty"`
	Units        []UnitIdentityResponse `json:"units,omitempty"`
	LocationName string                 `json:"location_name"`
	ScannedAt    time.Time              `json:"scanned_at"`
}

// ScanRecordResponse is one ledger observation.
type ScanRecordResponse struct {
	Latitude     float64   `json:"latitude"`
	Longitude    float64   `json:"longitude"`
	LocationName string    `json:"location_name"`
	ScannedAt    time.Time `json:"scanned_at"`
}

// UnitHistoryResponse is a unit identity plus its seller scan trail,
// newest first.
type UnitHistoryResponse struct {
	UnitID    string               `json:"unit_id"`
	Name      string               `json:"name"`
	StationID string               `json:"station_id"`
	Scans     []ScanRecordResponse `json:"scans"`
}

// HistoryResponse describes a token's history; Unit is set for unit
// tokens, BatchID/IssuedAt/Units for master tokens.
type HistoryResponse struct {
	Type     string                `json:"type"`
	BatchID  string                `json:"batch_id,omitempty"`
	IssuedAt *time.Time            `json:"issued_at,omitempty"`
	Units    []UnitHistoryResponse `json:"units,omitempty"`
	Unit     *UnitHistoryResponse  `json:"unit,omitempty"`
}
