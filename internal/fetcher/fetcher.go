package fetcher

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// ErrUnavailable signals that no configured source could deliver a price
// this tick. Callers skip detection and wait for the next tick.
var ErrUnavailable = errors.New("price unavailable from all sources")

// Quote is one successful price reading with its provenance.
type Quote struct {
	Price  decimal.Decimal
	Source string
}

// PriceFetcher retrieves the current price of the watched token.
type PriceFetcher interface {
	Fetch(ctx context.Context) (Quote, error)
	Name() string
}

// Chain consults sources in priority order; the first success wins and its
// name becomes the quote's provenance.
type Chain struct {
	sources []PriceFetcher
	logger  zerolog.Logger
}

// NewChain builds a fallback chain over the given sources.
func NewChain(logger zerolog.Logger, sources ...PriceFetcher) *Chain {
	return &Chain{
		sources: sources,
		logger:  logger.With().Str("component", "fetch_chain").Logger(),
	}
}

// Fetch tries each source in order, returning ErrUnavailable when all fail.
func (c *Chain) Fetch(ctx context.Context) (Quote, error) {
	for _, source := range c.sources {
		quote, err := source.Fetch(ctx)
		if err != nil {
			c.logger.Debug().Err(err).Str("source", source.Name()).Msg("source failed, trying next")
			continue
		}
		return quote, nil
	}
	return Quote{}, ErrUnavailable
}

// Name identifies the chain itself.
func (c *Chain) Name() string { return "chain" }

// Sources lists the configured source names in priority order.
func (c *Chain) Sources() []string {
	names := make([]string, 0, len(c.sources))
	for _, source := range c.sources {
		names = append(names, source.Name())
	}
	return names
}

var _ PriceFetcher = (*Chain)(nil)
