package storage

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceTick is one successfully observed price, written per tick for
// auditing and export. The detectors never read this table; detection
// state is in-memory only.
type PriceTick struct {
	At        time.Time
	Symbol    string
	Price     decimal.Decimal
	Source    string
	CreatedAt time.Time
}

// AlertRecord captures an alert that was actually forwarded.
type AlertRecord struct {
	ID             int64
	Kind           string
	FiredAt        time.Time
	Price          decimal.Decimal
	Direction      string
	Magnitude      decimal.Decimal
	ElapsedSeconds int64
	Source         string
	Message        string
	CreatedAt      time.Time
}
