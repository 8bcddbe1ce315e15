package detector

import (
	"time"

	"github.com/shopspring/decimal"

	"token-band-alerts/internal/history"
)

// Direction classifies a rapid move.
type Direction string

const (
	DirectionRise Direction = "rise"
	DirectionFall Direction = "fall"
)

// RapidMove describes a threshold-crossing price move inside the window.
type RapidMove struct {
	Direction Direction
	Delta     decimal.Decimal
	Magnitude decimal.Decimal
	Elapsed   time.Duration
	OldPrice  decimal.Decimal
	NewPrice  decimal.Decimal
	OldAt     time.Time
	At        time.Time
}

// Rapid detects absolute USD moves of at least Threshold within Window.
// Checkpoints are evaluated at every multiple of the poll interval so a
// spike between two widely-spaced samples is not missed.
type Rapid struct {
	buffer    *history.Buffer
	threshold decimal.Decimal
	window    time.Duration
	interval  time.Duration
}

// NewRapid constructs a rapid-move detector owning its own history buffer.
func NewRapid(threshold decimal.Decimal, window, interval time.Duration) *Rapid {
	return &Rapid{
		buffer:    history.NewBuffer(window, interval),
		threshold: threshold,
		window:    window,
		interval:  interval,
	}
}

// Observe records the new sample and reports whether it completes a rapid
// move. The sample is recorded before checkpoint lookups run, so a
// checkpoint landing exactly on the new timestamp matches it.
func (r *Rapid) Observe(now time.Time, price decimal.Decimal) (RapidMove, bool) {
	r.buffer.Record(now, price)

	if r.buffer.Len() < 2 {
		return RapidMove{}, false
	}

	step := r.interval
	if step < time.Second {
		step = time.Second
	}
	maxK := int(r.window / step)
	if maxK < 1 {
		maxK = 1
	}

	var best RapidMove
	found := false
	for k := 1; k <= maxK; k++ {
		target := now.Add(-time.Duration(k) * step)
		checkpoint, ok := r.buffer.At(target)
		if !ok {
			continue
		}

		delta := price.Sub(checkpoint.Price)
		magnitude := delta.Abs()
		if magnitude.Cmp(r.threshold) < 0 {
			continue
		}

		// Strongest move wins, not the first or the shortest.
		if found && magnitude.Cmp(best.Magnitude) <= 0 {
			continue
		}

		direction := DirectionRise
		if delta.Sign() < 0 {
			direction = DirectionFall
		}
		best = RapidMove{
			Direction: direction,
			Delta:     delta,
			Magnitude: magnitude,
			Elapsed:   now.Sub(checkpoint.At),
			OldPrice:  checkpoint.Price,
			NewPrice:  price,
			OldAt:     checkpoint.At,
			At:        now,
		}
		found = true
	}

	return best, found
}
