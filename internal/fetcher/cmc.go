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

const cmcQuotesPath = "/v1/cryptocurrency/quotes/latest"

// CoinMarketCapOptions parameterise the CMC quotes fetcher.
type CoinMarketCapOptions struct {
	BaseURL string
	APIKey  string
	Symbol  string
	Convert string
	Timeout time.Duration
}

// CoinMarketCap fetches quotes from the CoinMarketCap Pro API. It is the
// fallback source and only usable when an API key is configured.
type CoinMarketCap struct {
	opts    CoinMarketCapOptions
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
}

// NewCoinMarketCap constructs a CMC fetcher.
func NewCoinMarketCap(opts CoinMarketCapOptions, logger zerolog.Logger) *CoinMarketCap {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://pro-api.coinmarketcap.com"
	}

	return &CoinMarketCap{
		opts:    opts,
		logger:  logger.With().Str("component", "cmc_fetcher").Logger(),
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// Name returns the provenance tag carried on quotes from this source.
func (c *CoinMarketCap) Name() string { return "coinmarketcap" }

// Fetch retrieves the latest quote converted to the configured currency.
func (c *CoinMarketCap) Fetch(ctx context.Context) (Quote, error) {
	if c.opts.APIKey == "" {
		return Quote{}, errors.New("cmc api key not configured")
	}
	if c.opts.Symbol == "" {
		return Quote{}, errors.New("token symbol not configured")
	}

	symbol := strings.ToUpper(c.opts.Symbol)
	convert := c.opts.Convert
	if convert == "" {
		convert = "USDT"
	}

	params := url.Values{"symbol": {symbol}, "convert": {convert}}
	endpoint := c.baseURL + cmcQuotesPath + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Quote{}, err
	}
	req.Header.Set("X-CMC_PRO_API_KEY", c.opts.APIKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return Quote{}, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return Quote{}, err
	}

	if resp.StatusCode != http.StatusOK {
		return Quote{}, fmt.Errorf("cmc api error (%d): %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	var body struct {
		Data map[string]struct {
			Quote map[string]struct {
				Price float64 `json:"price"`
			} `json:"quote"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return Quote{}, fmt.Errorf("decode cmc response: %w", err)
	}

	entry, ok := body.Data[symbol]
	if !ok {
		return Quote{}, fmt.Errorf("cmc response missing symbol %s", symbol)
	}
	converted, ok := entry.Quote[convert]
	if !ok {
		return Quote{}, fmt.Errorf("cmc response missing %s quote", convert)
	}

	price := decimal.NewFromFloat(converted.Price)
	if price.Sign() <= 0 {
		return Quote{}, errors.New("cmc returned non-positive price")
	}

	return Quote{Price: price, Source: c.Name()}, nil
}

var _ PriceFetcher = (*CoinMarketCap)(nil)
