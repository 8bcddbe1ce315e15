package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
)

const (
	insertTickSQL = `INSERT INTO price_ticks (
        tick_ts,
        symbol,
        price,
        source
    ) VALUES ($1,$2,$3,$4)
    ON CONFLICT (tick_ts, symbol) DO UPDATE
    SET price  = EXCLUDED.price,
        source = EXCLUDED.source;`

	listTicksBetweenSQL = `SELECT
        tick_ts, symbol, price, source, created_at
    FROM price_ticks
    WHERE tick_ts >= $1
      AND tick_ts < $2
    ORDER BY tick_ts;`

	listRecentTicksSQL = `SELECT
        tick_ts, symbol, price, source, created_at
    FROM price_ticks
    ORDER BY tick_ts DESC
    LIMIT $1;`

	countTicksSQL = `SELECT COUNT(*) FROM price_ticks;`

	insertAlertSQL = `INSERT INTO alerts (
        kind,
        fired_at,
        price,
        direction,
        magnitude,
        elapsed_seconds,
        source,
        message
    ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
    RETURNING id, kind, fired_at, price, direction, magnitude, elapsed_seconds, source, message, created_at;`

	listRecentAlertsSQL = `SELECT
        id, kind, fired_at, price, direction, magnitude, elapsed_seconds, source, message, created_at
    FROM alerts
    ORDER BY created_at DESC
    LIMIT $1;`

	deleteAlertsBeforeSQL = `DELETE FROM alerts WHERE created_at < $1;`

	tryAdvisoryLockSQL = `SELECT pg_try_advisory_lock($1);`
	advisoryUnlockSQL  = `SELECT pg_advisory_unlock($1);`
)

// TickStore defines operations for tick auditing.
type TickStore interface {
	InsertTick(ctx context.Context, tick PriceTick) error
	ListTicksBetween(ctx context.Context, from, to time.Time) ([]PriceTick, error)
	ListRecentTicks(ctx context.Context, limit int) ([]PriceTick, error)
	CountTicks(ctx context.Context) (int64, error)
}

// AlertStore defines operations for alert auditing.
type AlertStore interface {
	InsertAlert(ctx context.Context, alert AlertRecord) (AlertRecord, error)
	ListRecentAlerts(ctx context.Context, limit int) ([]AlertRecord, error)
	DeleteAlertsBefore(ctx context.Context, olderThan time.Time) error
}

// AdvisoryLocker exposes advisory lock helpers; the watcher takes one lock
// for its whole run so two instances never double-notify.
type AdvisoryLocker interface {
	TryAdvisoryLock(ctx context.Context, key int64) (unlock func(), acquired bool, err error)
}

// Store aggregates access to price ticks and alerts.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// TryAdvisoryLock attempts to acquire a postgres advisory lock and returns a release func.
func (s *Store) TryAdvisoryLock(ctx context.Context, key int64) (func(), bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, false, err
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("acquire connection: %w", err)
	}

	var acquired bool
	if err := conn.QueryRow(ctx, tryAdvisoryLockSQL, key).Scan(&acquired); err != nil {
		conn.Release()
		return nil, false, fmt.Errorf("try advisory lock: %w", err)
	}
	if !acquired {
		conn.Release()
		return nil, false, nil
	}

	unlock := func() {
		ctxUnlock, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if _, err := conn.Exec(ctxUnlock, advisoryUnlockSQL, key); err != nil {
			// unlock best effort; log omitted in storage package
		}
		conn.Release()
	}
	return unlock, true, nil
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// InsertTick persists or updates a tick observation.
func (s *Store) InsertTick(ctx context.Context, tick PriceTick) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	if _, execErr := pool.Exec(ctx, insertTickSQL,
		tick.At,
		tick.Symbol,
		tick.Price.String(),
		tick.Source,
	); execErr != nil {
		return fmt.Errorf("insert tick: %w", execErr)
	}
	return nil
}

// ListTicksBetween lists ticks within a time window.
func (s *Store) ListTicksBetween(ctx context.Context, from, to time.Time) ([]PriceTick, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listTicksBetweenSQL, from, to)
	if queryErr != nil {
		return nil, fmt.Errorf("list ticks between: %w", queryErr)
	}
	defer rows.Close()

	return collectTicks(rows, 0)
}

// ListRecentTicks lists the most recent ticks ordered by descending time.
func (s *Store) ListRecentTicks(ctx context.Context, limit int) ([]PriceTick, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentTicksSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent ticks: %w", queryErr)
	}
	defer rows.Close()

	return collectTicks(rows, limit)
}

// CountTicks counts stored ticks.
func (s *Store) CountTicks(ctx context.Context) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	var count int64
	if scanErr := pool.QueryRow(ctx, countTicksSQL).Scan(&count); scanErr != nil {
		return 0, fmt.Errorf("count ticks: %w", scanErr)
	}
	return count, nil
}

// InsertAlert persists an alert emission.
func (s *Store) InsertAlert(ctx context.Context, alert AlertRecord) (AlertRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return AlertRecord{}, err
	}

	row := pool.QueryRow(ctx, insertAlertSQL,
		alert.Kind,
		alert.FiredAt,
		alert.Price.String(),
		alert.Direction,
		alert.Magnitude.String(),
		alert.ElapsedSeconds,
		alert.Source,
		alert.Message,
	)

	rec, scanErr := scanAlert(row)
	if scanErr != nil {
		return AlertRecord{}, fmt.Errorf("insert alert: %w", scanErr)
	}
	return rec, nil
}

// ListRecentAlerts lists most recent alerts.
func (s *Store) ListRecentAlerts(ctx context.Context, limit int) ([]AlertRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentAlertsSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent alerts: %w", queryErr)
	}
	defer rows.Close()

	alerts := make([]AlertRecord, 0, limit)
	for rows.Next() {
		rec, scanErr := scanAlert(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		alerts = append(alerts, rec)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return alerts, nil
}

// DeleteAlertsBefore deletes historical alerts.
func (s *Store) DeleteAlertsBefore(ctx context.Context, olderThan time.Time) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if _, execErr := pool.Exec(ctx, deleteAlertsBeforeSQL, olderThan); execErr != nil {
		return fmt.Errorf("delete alerts before: %w", execErr)
	}
	return nil
}

func collectTicks(rows pgx.Rows, capacityHint int) ([]PriceTick, error) {
	ticks := make([]PriceTick, 0, capacityHint)
	for rows.Next() {
		var (
			tick     PriceTick
			priceStr string
		)
		if err := rows.Scan(&tick.At, &tick.Symbol, &priceStr, &tick.Source, &tick.CreatedAt); err != nil {
			return nil, err
		}
		price, err := decimal.NewFromString(priceStr)
		if err != nil {
			return nil, fmt.Errorf("parse tick price: %w", err)
		}
		tick.Price = price
		ticks = append(ticks, tick)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return ticks, nil
}

func scanAlert(row pgx.Row) (AlertRecord, error) {
	var (
		rec          AlertRecord
		priceStr     string
		magnitudeStr string
	)
	if err := row.Scan(
		&rec.ID,
		&rec.Kind,
		&rec.FiredAt,
		&priceStr,
		&rec.Direction,
		&magnitudeStr,
		&rec.ElapsedSeconds,
		&rec.Source,
		&rec.Message,
		&rec.CreatedAt,
	); err != nil {
		return AlertRecord{}, err
	}

	var convErr error
	rec.Price, convErr = decimal.NewFromString(priceStr)
	if convErr != nil {
		return AlertRecord{}, fmt.Errorf("parse alert price: %w", convErr)
	}
	rec.Magnitude, convErr = decimal.NewFromString(magnitudeStr)
	if convErr != nil {
		return AlertRecord{}, fmt.Errorf("parse alert magnitude: %w", convErr)
	}

	return rec, nil
}
