package alerting

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"token-band-alerts/internal/detector"
	"token-band-alerts/internal/display"
)

// RangeAlert is the message payload for a price entering the band.
type RangeAlert struct {
	Price  decimal.Decimal
	At     time.Time
	Source string
}

// Render produces the notification text in the display timezone.
func (a RangeAlert) Render(f display.Formatter) string {
	builder := strings.Builder{}
	builder.WriteString(fmt.Sprintf("Price: %s\n", a.Price.StringFixed(4)))
	builder.WriteString(fmt.Sprintf("Time: %s (%s)\n", f.Format(a.At), f.Label()))
	builder.WriteString(fmt.Sprintf("Source: %s", a.Source))
	return builder.String()
}

// RapidAlert is the message payload for a rapid move event.
type RapidAlert struct {
	Move   detector.RapidMove
	Source string
}

// Render produces the notification text in the display timezone.
func (a RapidAlert) Render(f display.Formatter) string {
	sign := "+"
	if a.Move.Direction == detector.DirectionFall {
		sign = "-"
	}

	builder := strings.Builder{}
	builder.WriteString(fmt.Sprintf("Rapid %s detected\n", strings.ToUpper(string(a.Move.Direction))))
	builder.WriteString(fmt.Sprintf("From %s to %s\n", a.Move.OldPrice.StringFixed(4), a.Move.NewPrice.StringFixed(4)))
	builder.WriteString(fmt.Sprintf("%s$%s in %ds\n", sign, a.Move.Magnitude.StringFixed(2), int(a.Move.Elapsed.Seconds())))
	builder.WriteString(fmt.Sprintf("Time: %s (%s)\n", f.Format(a.Move.At), f.Label()))
	builder.WriteString(fmt.Sprintf("Source: %s", a.Source))
	return builder.String()
}

// StartupSummary describes the active configuration, sent once before the
// poll loop starts.
type StartupSummary struct {
	Symbol     string
	QuoteAsset string
	Sources    []string
	BandMin    decimal.Decimal
	BandMax    decimal.Decimal
	Threshold  decimal.Decimal
	Window     time.Duration
	Interval   time.Duration
	Timezone   string
}

// Render produces the startup notification text.
func (s StartupSummary) Render() string {
	builder := strings.Builder{}
	builder.WriteString(fmt.Sprintf("%s/%s watcher started\n", s.Symbol, s.QuoteAsset))
	builder.WriteString(fmt.Sprintf("- Sources: %s\n", strings.Join(s.Sources, ", ")))
	builder.WriteString(fmt.Sprintf("- Range alert: %s-%s\n", s.BandMin.String(), s.BandMax.String()))
	builder.WriteString(fmt.Sprintf("- Rapid alert: $%s in %s\n", s.Threshold.String(), s.Window))
	builder.WriteString(fmt.Sprintf("- Poll: %s\n", s.Interval))
	builder.WriteString(fmt.Sprintf("- TZ: %s", s.Timezone))
	return builder.String()
}
