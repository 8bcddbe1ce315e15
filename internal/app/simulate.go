package app

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"token-band-alerts/internal/fetcher"
	"token-band-alerts/internal/service"
)

// SimulateAlert 以给定价格模拟一次 tick，验证告警链路配置。
func (a *App) SimulateAlert(ctx context.Context, price decimal.Decimal) error {
	notifier := a.newNotifier()
	if notifier == nil {
		return errors.New("未配置任何告警通道")
	}

	source := &staticSource{quote: fetcher.Quote{Price: price, Source: "simulated"}}
	svc := service.New(a.Config, nil, source, notifier, nil, nil, a.Logger)

	return svc.ProcessTick(ctx, time.Now().UTC())
}

type staticSource struct {
	quote fetcher.Quote
}

func (s *staticSource) Fetch(ctx context.Context) (fetcher.Quote, error) {
	return s.quote, nil
}

func (s *staticSource) Name() string { return "simulated" }

var _ fetcher.PriceFetcher = (*staticSource)(nil)
