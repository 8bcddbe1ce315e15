package alerting

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Kind identifies an alert family with its own cooldown timer.
type Kind string

const (
	KindRange Kind = "range"
	KindRapid Kind = "rapid"
)

// Dispatcher gates detected conditions behind independent per-kind
// cooldowns before forwarding them to the notifier. A suppressed detection
// never touches the cooldown state, so it cannot extend the window.
type Dispatcher struct {
	notifier  Notifier
	logger    zerolog.Logger
	cooldowns map[Kind]time.Duration
	lastFired map[Kind]time.Time
}

// NewDispatcher constructs a dispatcher with the given per-kind cooldowns.
func NewDispatcher(notifier Notifier, cooldowns map[Kind]time.Duration, logger zerolog.Logger) *Dispatcher {
	copied := make(map[Kind]time.Duration, len(cooldowns))
	for kind, d := range cooldowns {
		copied[kind] = d
	}
	return &Dispatcher{
		notifier:  notifier,
		logger:    logger.With().Str("component", "dispatcher").Logger(),
		cooldowns: copied,
		lastFired: make(map[Kind]time.Time),
	}
}

// Dispatch forwards the message unless the kind is still cooling down.
// Returns true when the message was forwarded. The fire timestamp is
// recorded on forward even if delivery then fails: delivery is at-most-once
// and a failed send must not be retried by the next detection.
func (d *Dispatcher) Dispatch(ctx context.Context, now time.Time, kind Kind, text string) bool {
	if !d.Allowed(kind, now) {
		remaining := d.cooldowns[kind] - now.Sub(d.lastFired[kind])
		d.logger.Info().
			Str("kind", string(kind)).
			Dur("remaining", remaining).
			Msg("alert suppressed by cooldown")
		return false
	}

	d.lastFired[kind] = now
	d.logger.Info().Str("kind", string(kind)).Str("message", text).Msg("alert fired")

	if d.notifier == nil {
		d.logger.Warn().Str("kind", string(kind)).Msg("no notifier configured, alert logged only")
		return true
	}
	if err := d.notifier.Notify(ctx, text); err != nil {
		d.logger.Error().Err(err).Str("kind", string(kind)).Msg("failed to deliver alert")
	}
	return true
}

// Allowed reports whether a detection of this kind would currently fire.
func (d *Dispatcher) Allowed(kind Kind, now time.Time) bool {
	last, ok := d.lastFired[kind]
	if !ok {
		return true
	}
	return now.Sub(last) >= d.cooldowns[kind]
}
