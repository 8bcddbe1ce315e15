package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"
)

// Show prints recent ticks and alerts.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot show history")
	}
	if closeStore != nil {
		defer closeStore()
	}

	ticks, err := store.ListRecentTicks(ctx, opts.Limit)
	if err != nil {
		return err
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	if len(ticks) == 0 {
		fmt.Fprintln(os.Stdout, "no ticks recorded")
	} else {
		fmt.Fprintln(writer, "Time (UTC)\tPair\tPrice\tSource")
		for _, tick := range ticks {
			fmt.Fprintf(
				writer,
				"%s\t%s\t%s\t%s\n",
				tick.At.UTC().Format(time.RFC3339),
				tick.Symbol,
				tick.Price.StringFixed(4),
				tick.Source,
			)
		}
		writer.Flush()
	}

	alerts, err := store.ListRecentAlerts(ctx, opts.Limit)
	if err != nil {
		return err
	}
	if len(alerts) == 0 {
		fmt.Fprintln(os.Stdout, "no alerts recorded")
		return nil
	}

	fmt.Fprintln(os.Stdout)
	fmt.Fprintln(writer, "Fired (UTC)\tKind\tPrice\tDirection\tMagnitude\tElapsed(s)\tSource")
	for _, alert := range alerts {
		fmt.Fprintf(
			writer,
			"%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
			alert.FiredAt.UTC().Format(time.RFC3339),
			alert.Kind,
			alert.Price.StringFixed(4),
			alert.Direction,
			alert.Magnitude.StringFixed(2),
			alert.ElapsedSeconds,
			alert.Source,
		)
	}
	writer.Flush()
	return nil
}
