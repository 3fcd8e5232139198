package db

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // The database driver
	"go.uber.org/zap"
)

const (
	maxOpenConns    = 10
	maxIdleConns    = 2
	connMaxLifetime = time.Hour
	connMaxIdleTime = 30 * time.Minute
)

// RetryPolicy controls how Connect waits for the database to come up.
type RetryPolicy struct {
	// InitialDelay is slept once before the first attempt.
	InitialDelay time.Duration
	// Retries is the number of attempts after the first one.
	Retries int
	// Backoff is the delay before the first retry; it doubles after each one.
	Backoff time.Duration
}

// DefaultRetryPolicy gives up after 1 initial attempt and 3 retries spaced
// 1s, 2s and 4s apart.
var DefaultRetryPolicy = RetryPolicy{
	InitialDelay: time.Second,
	Retries:      3,
	Backoff:      time.Second,
}

func (p RetryPolicy) backOff(ctx context.Context) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = p.Backoff
	exp.Multiplier = 2
	exp.RandomizationFactor = 0
	exp.MaxInterval = time.Hour
	exp.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(p.Retries)), ctx)
}

// Overridden in tests.
var (
	openDB = func(dsn string) (*sqlx.DB, error) { return sqlx.Open("postgres", dsn) }
	after  = time.After
)

// afterTimer is a backoff.Timer driven by after.
type afterTimer struct {
	c <-chan time.Time
}

func (t *afterTimer) Start(d time.Duration) { t.c = after(d) }

func (t *afterTimer) Stop() {}

func (t *afterTimer) C() <-chan time.Time { return t.c }

// Connect builds the connection pool, retrying with exponential backoff while
// the database is unreachable.
func Connect(ctx context.Context, dsn string, policy RetryPolicy, log *zap.Logger) (*sqlx.DB, error) {
	if err := wait(ctx, policy.InitialDelay); err != nil {
		return nil, err
	}

	var (
		db      *sqlx.DB
		attempt int
	)
	connect := func() error {
		attempt++
		pool, err := newPool(ctx, dsn)
		if err != nil {
			return err
		}
		db = pool
		return nil
	}
	notify := func(err error, delay time.Duration) {
		log.Warn("Failed to create connection pool, retrying",
			zap.Error(err),
			zap.Duration("delay", delay),
			zap.Int("attempt", attempt),
		)
	}

	if err := backoff.RetryNotifyWithTimer(connect, policy.backOff(ctx), notify, &afterTimer{}); err != nil {
		return nil, fmt.Errorf("failed to create connection pool after %d retries: %w", attempt-1, err)
	}
	log.Info("Database connection established", zap.Int("max_open_conns", maxOpenConns))
	return db, nil
}

func newPool(ctx context.Context, dsn string) (*sqlx.DB, error) {
	db, err := openDB(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)
	db.SetConnMaxIdleTime(connMaxIdleTime)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-after(d):
		return nil
	}
}
