package fetcher

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestCMCFetchMissingAPIKey(t *testing.T) {
	c := NewCoinMarketCap(CoinMarketCapOptions{Symbol: "TAO"}, noopLogger())
	if _, err := c.Fetch(context.Background()); err == nil {
		t.Fatal("缺少 API key 时应返回错误")
	}
}

func TestCMCFetchSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-CMC_PRO_API_KEY"); got != "secret" {
			t.Fatalf("缺少 API key header, 实际 %q", got)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"TAO": map[string]any{
					"quote": map[string]any{
						"USDT": map[string]any{"price": 226.5},
					},
				},
			},
		})
	}))
	defer srv.Close()

	c := NewCoinMarketCap(CoinMarketCapOptions{
		BaseURL: srv.URL,
		APIKey:  "secret",
		Symbol:  "TAO",
		Timeout: time.Second,
	}, noopLogger())

	quote, err := c.Fetch(context.Background())
	if err != nil {
		t.Fatalf("成功响应不应报错: %v", err)
	}
	if !quote.Price.Equal(decimal.NewFromFloat(226.5)) {
		t.Fatalf("期望价格 226.5, 实际 %s", quote.Price)
	}
	if quote.Source != "coinmarketcap" {
		t.Fatalf("provenance 应为 coinmarketcap, 实际 %s", quote.Source)
	}
}

func TestCMCFetchMissingSymbolInResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"data": map[string]any{}})
	}))
	defer srv.Close()

	c := NewCoinMarketCap(CoinMarketCapOptions{BaseURL: srv.URL, APIKey: "secret", Symbol: "TAO", Timeout: time.Second}, noopLogger())
	if _, err := c.Fetch(context.Background()); err == nil {
		t.Fatal("响应缺少 symbol 应报错")
	}
}
