package domain

import "time"

// Product is the persisted projection of a unit token. It is created once
// at batch issuance and never mutated afterwards.
type Product struct {
	ID        string
	UnitID    string
	Name      string
	StationID string
	BatchID   string
	Token     string
	CreatedAt time.Time
}
