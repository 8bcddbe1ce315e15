package app

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"token-band-alerts/internal/alerting"
	"token-band-alerts/internal/fetcher"
	"token-band-alerts/internal/service"
)

// Replay feeds a recorded CSV price series (timestamp,price) through fresh
// detectors and the cooldown gate, printing every alert to the terminal.
// Useful for tuning band and rapid-move parameters offline.
func (a *App) Replay(ctx context.Context, opts ReplayOptions) error {
	if opts.CSVPath == "" {
		return errors.New("--csv must be provided")
	}

	file, err := os.Open(opts.CSVPath)
	if err != nil {
		return err
	}
	defer file.Close()

	source := &replaySource{}
	svc := service.New(a.Config, nil, source, alerting.ConsoleNotifier{}, nil, nil, a.Logger)

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	processed := 0
	failed := 0
	line := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		record, readErr := reader.Read()
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return readErr
		}
		line++

		if len(record) < 2 {
			failed++
			a.Logger.Warn().Int("line", line).Msg("skipping short csv row")
			continue
		}
		// A header row is tolerated on the first line.
		if line == 1 && record[1] == "price" {
			continue
		}

		ts, parseErr := parseReplayTime(record[0])
		if parseErr != nil {
			failed++
			a.Logger.Warn().Err(parseErr).Int("line", line).Msg("skipping row with bad timestamp")
			continue
		}
		price, parseErr := decimal.NewFromString(record[1])
		if parseErr != nil {
			failed++
			a.Logger.Warn().Err(parseErr).Int("line", line).Msg("skipping row with bad price")
			continue
		}

		source.quote = fetcher.Quote{Price: price, Source: "replay"}
		if tickErr := svc.ProcessTick(ctx, ts); tickErr != nil {
			failed++
			a.Logger.Error().Err(tickErr).Int("line", line).Msg("replay tick failed")
			continue
		}
		processed++
	}

	a.Logger.Info().Int("processed", processed).Int("failed", failed).Msg("replay finished")
	if failed > 0 {
		return fmt.Errorf("%d of %d rows failed; check logs", failed, processed+failed)
	}
	return nil
}

// parseReplayTime accepts RFC3339 or epoch seconds.
func parseReplayTime(value string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, value); err == nil {
		return ts.UTC(), nil
	}
	epoch, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("unrecognised timestamp %q", value)
	}
	seconds := int64(epoch)
	nanos := int64((epoch - float64(seconds)) * float64(time.Second))
	return time.Unix(seconds, nanos).UTC(), nil
}

type replaySource struct {
	quote fetcher.Quote
}

func (r *replaySource) Fetch(ctx context.Context) (fetcher.Quote, error) {
	return r.quote, nil
}

func (r *replaySource) Name() string { return "replay" }

var _ fetcher.PriceFetcher = (*replaySource)(nil)
