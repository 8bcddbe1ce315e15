package detector

import "github.com/shopspring/decimal"

// Band is a static inclusive [min, max] price band.
type Band struct {
	Min decimal.Decimal
	Max decimal.Decimal
}

// NewBand constructs a band detector.
func NewBand(min, max decimal.Decimal) Band {
	return Band{Min: min, Max: max}
}

// Contains reports whether price falls inside the band, bounds included.
func (b Band) Contains(price decimal.Decimal) bool {
	return price.Cmp(b.Min) >= 0 && price.Cmp(b.Max) <= 0
}
