package events

import (
	"time"

	"github.com/spec-kit/provenance-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventBatchIssued  EventType = "batch_issued"
	EventScanRecorded EventType = "scan_recorded"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	BatchID   string      `json:"batch_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// BatchIssuedPayload payload.
type BatchIssuedPayload struct {
	Name      string `json:"name"`
	StationID string `json:"station_id"`
	UnitCount int    `json:"unit_count"`
}

// ScanRecordedPayload payload.
type ScanRecordedPayload struct {
	Channel      domain.ScanChannel `json:"channel"`
	UnitID       string             `json:"unit_id,omitempty"`
	UnitCount    int                `json:"unit_count"`
	LocationName string             `json:"location_name"`
}
