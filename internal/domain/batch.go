package domain

import "time"

// MasterToken identifies an entire issuance batch. Exactly one exists per
// batch id.
type MasterToken struct {
	ID        string
	BatchID   string
	Token     string
	CreatedAt time.Time
}
