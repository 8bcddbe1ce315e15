package history

import (
	"time"

	"github.com/shopspring/decimal"
)

// Sample is a single observed price point. Immutable once recorded.
type Sample struct {
	At    time.Time
	Price decimal.Decimal
}

// Buffer keeps an ordered, time-pruned sequence of samples. It is appended
// at the tail each tick and pruned from the head, so lookups only ever see
// samples young enough to serve a checkpoint inside the detection window.
type Buffer struct {
	samples  []Sample
	window   time.Duration
	interval time.Duration
}

// NewBuffer creates a buffer retaining window + 2*interval of history. The
// extra margin keeps boundary checkpoints from starving right after a prune.
func NewBuffer(window, interval time.Duration) *Buffer {
	return &Buffer{window: window, interval: interval}
}

// Record appends a sample and evicts everything older than the retention
// horizon from the head.
func (b *Buffer) Record(now time.Time, price decimal.Decimal) {
	b.samples = append(b.samples, Sample{At: now, Price: price})

	cutoff := now.Add(-(b.window + 2*b.interval))
	idx := 0
	for idx < len(b.samples) && b.samples[idx].At.Before(cutoff) {
		idx++
	}
	if idx > 0 {
		b.samples = b.samples[idx:]
	}
}

// At returns the most recent sample with timestamp <= target. The buffer is
// bounded by window/interval samples, so a reverse linear scan is fine.
func (b *Buffer) At(target time.Time) (Sample, bool) {
	for i := len(b.samples) - 1; i >= 0; i-- {
		if !b.samples[i].At.After(target) {
			return b.samples[i], true
		}
	}
	return Sample{}, false
}

// Len reports the number of retained samples.
func (b *Buffer) Len() int {
	return len(b.samples)
}

// Oldest returns the head sample, if any.
func (b *Buffer) Oldest() (Sample, bool) {
	if len(b.samples) == 0 {
		return Sample{}, false
	}
	return b.samples[0], true
}
