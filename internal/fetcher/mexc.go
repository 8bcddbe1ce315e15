package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const mexcTickerPath = "/api/v3/ticker/price"

// MexcOptions parameterise the MEXC spot ticker fetcher.
type MexcOptions struct {
	BaseURL string
	Symbol  string
	Quote   string
	Timeout time.Duration
}

// Mexc fetches the latest trade price from the MEXC public ticker API.
type Mexc struct {
	opts    MexcOptions
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
}

// NewMexc constructs a MEXC fetcher.
func NewMexc(opts MexcOptions, logger zerolog.Logger) *Mexc {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.mexc.com"
	}

	return &Mexc{
		opts:    opts,
		logger:  logger.With().Str("component", "mexc_fetcher").Logger(),
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// Name returns the provenance tag carried on quotes from this source.
func (m *Mexc) Name() string { return "mexc" }

// Fetch retrieves the current <SYMBOL><QUOTE> price.
func (m *Mexc) Fetch(ctx context.Context) (Quote, error) {
	if m.opts.Symbol == "" {
		return Quote{}, errors.New("token symbol not configured")
	}

	quoteAsset := m.opts.Quote
	if quoteAsset == "" {
		quoteAsset = "USDT"
	}
	pair := strings.ToUpper(m.opts.Symbol) + strings.ToUpper(quoteAsset)

	endpoint := m.baseURL + mexcTickerPath + "?" + url.Values{"symbol": {pair}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Quote{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return Quote{}, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return Quote{}, err
	}

	if resp.StatusCode != http.StatusOK {
		return Quote{}, fmt.Errorf("mexc ticker error (%d): %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	var ticker struct {
		Symbol string `json:"symbol"`
		Price  string `json:"price"`
	}
	if err := json.Unmarshal(payload, &ticker); err != nil {
		return Quote{}, fmt.Errorf("decode mexc ticker: %w", err)
	}

	price, err := decimal.NewFromString(ticker.Price)
	if err != nil {
		return Quote{}, fmt.Errorf("parse mexc price: %w", err)
	}
	if price.Sign() <= 0 {
		return Quote{}, errors.New("mexc returned non-positive price")
	}

	return Quote{Price: price, Source: m.Name()}, nil
}

var _ PriceFetcher = (*Mexc)(nil)
