package storage

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// OpportunityRecord is a persisted arbitrage detection.
type OpportunityRecord struct {
	ID          int64
	DetectedAt  time.Time
	Anchor      string
	Cycle       []string
	Notional    decimal.Decimal
	FinalAmount decimal.Decimal
	ProfitPct   decimal.Decimal
	Legs        json.RawMessage
	CreatedAt   time.Time
}

// LegRecord is one trade leg inside OpportunityRecord.Legs.
type LegRecord struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Rate   string `json:"rate"`
	Amount string `json:"amount"`
}
