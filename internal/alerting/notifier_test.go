package alerting

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"token-band-alerts/internal/detector"
	"token-band-alerts/internal/display"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func TestTelegramNotifierSuccess(t *testing.T) {
	received := make(map[string]string)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "sendMessage") {
			t.Fatalf("路径应包含 sendMessage, 实际 %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Fatalf("解析请求体失败: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}))
	defer srv.Close()

	notifier := NewTelegramNotifier("token", "chat", srv.URL, time.Second, testLogger())
	if err := notifier.Notify(context.Background(), "hello"); err != nil {
		t.Fatalf("Telegram Notify 应成功: %v", err)
	}

	if received["chat_id"] != "chat" {
		t.Fatalf("chat_id 不正确: %#v", received)
	}
	if received["text"] != "hello" {
		t.Fatalf("text 不正确: %#v", received)
	}
}

func TestTelegramNotifierNotOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": false})
	}))
	defer srv.Close()

	notifier := NewTelegramNotifier("token", "chat", srv.URL, time.Second, testLogger())
	if err := notifier.Notify(context.Background(), "hello"); err == nil {
		t.Fatal("ok=false 应报错")
	}
}

func TestTelegramNotifierErrorHidesToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": false, "description": "Unauthorized"})
	}))
	defer srv.Close()

	notifier := NewTelegramNotifier("super-secret-token", "chat", srv.URL, time.Second, testLogger())
	err := notifier.Notify(context.Background(), "hello")
	if err == nil {
		t.Fatal("HTTP 401 应报错")
	}
	if strings.Contains(err.Error(), "super-secret-token") {
		t.Fatalf("错误信息不应包含 bot token: %v", err)
	}
}

func TestRangeAlertRender(t *testing.T) {
	f := display.NewFormatter("GMT+8")
	a := RangeAlert{
		Price:  decimal.NewFromFloat(226.5),
		At:     time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
		Source: "mexc",
	}
	got := a.Render(f)
	for _, want := range []string{"Price: 226.5000", "2024-06-01 20:00:00 (GMT+8)", "Source: mexc"} {
		if !strings.Contains(got, want) {
			t.Fatalf("render missing %q:\n%s", want, got)
		}
	}
}

func TestRapidAlertRender(t *testing.T) {
	f := display.NewFormatter("UTC")
	a := RapidAlert{
		Move: detector.RapidMove{
			Direction: detector.DirectionFall,
			Magnitude: decimal.NewFromFloat(6.5),
			OldPrice:  decimal.NewFromFloat(226.5),
			NewPrice:  decimal.NewFromFloat(220.0),
			Elapsed:   30 * time.Second,
			At:        time.Date(2024, 6, 1, 12, 0, 30, 0, time.UTC),
		},
		Source: "coinmarketcap",
	}
	got := a.Render(f)
	for _, want := range []string{"Rapid FALL detected", "From 226.5000 to 220.0000", "-$6.50 in 30s", "Source: coinmarketcap"} {
		if !strings.Contains(got, want) {
			t.Fatalf("render missing %q:\n%s", want, got)
		}
	}
}

func TestStartupSummaryRender(t *testing.T) {
	s := StartupSummary{
		Symbol:     "TAO",
		QuoteAsset: "USDT",
		Sources:    []string{"mexc", "coinmarketcap"},
		BandMin:    decimal.NewFromInt(220),
		BandMax:    decimal.NewFromInt(230),
		Threshold:  decimal.NewFromInt(5),
		Window:     2 * time.Minute,
		Interval:   15 * time.Second,
		Timezone:   "UTC",
	}
	got := s.Render()
	for _, want := range []string{"TAO/USDT watcher started", "mexc, coinmarketcap", "Range alert: 220-230", "$5 in 2m0s", "Poll: 15s", "TZ: UTC"} {
		if !strings.Contains(got, want) {
			t.Fatalf("render missing %q:\n%s", want, got)
		}
	}
}
