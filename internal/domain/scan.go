package domain

import "time"

// ScanChannel selects one of the two independent scan ledgers.
type ScanChannel string

const (
	ChannelConsumer ScanChannel = "CONSUMER"
	ChannelSeller   ScanChannel = "SELLER"
)

// Valid reports whether the channel names a known ledger.
func (c ScanChannel) Valid() bool {
	return c == ChannelConsumer || c == ChannelSeller
}

// ScanEntry is one append-only row on a scan ledger. Entries on the two
// ledgers never merge; both reference the same product row.
type ScanEntry struct {
	ID           int64
	ProductID    string
	Latitude     float64
	Longitude    float64
	LocationName string
	ScannedAt    time.Time
}
