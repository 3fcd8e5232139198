package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// stubConnect makes the first `failures` pool pings fail and turns every wait
// into a no-op that records the requested delay.
func stubConnect(t *testing.T, failures int) (*[]time.Duration, *int) {
	t.Helper()
	originalOpen, originalAfter := openDB, after
	t.Cleanup(func() { openDB, after = originalOpen, originalAfter })

	var delays []time.Duration
	after = func(d time.Duration) <-chan time.Time {
		delays = append(delays, d)
		ch := make(chan time.Time, 1)
		ch <- time.Now()
		return ch
	}

	attempts := 0
	openDB = func(dsn string) (*sqlx.DB, error) {
		mockDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)
		t.Cleanup(func() { mockDB.Close() })

		attempts++
		if attempts <= failures {
			mock.ExpectPing().WillReturnError(errors.New("dial tcp 127.0.0.1:5432: connect: connection refused"))
			mock.ExpectClose()
		} else {
			mock.ExpectPing()
		}
		return sqlx.NewDb(mockDB, "sqlmock"), nil
	}
	return &delays, &attempts
}

func TestConnectFirstAttempt(t *testing.T) {
	delays, attempts := stubConnect(t, 0)

	db, err := Connect(context.Background(), "postgres://x", DefaultRetryPolicy, zap.NewNop())

	require.NoError(t, err)
	assert.NotNil(t, db)
	assert.Equal(t, 1, *attempts)
	assert.Equal(t, []time.Duration{time.Second}, *delays)
	assert.Equal(t, maxOpenConns, db.Stats().MaxOpenConnections)
}

func TestConnectRetriesWithBackoff(t *testing.T) {
	delays, attempts := stubConnect(t, 3)

	db, err := Connect(context.Background(), "postgres://x", DefaultRetryPolicy, zap.NewNop())

	require.NoError(t, err)
	assert.NotNil(t, db)
	assert.Equal(t, 4, *attempts)
	assert.Equal(t, []time.Duration{time.Second, time.Second, 2 * time.Second, 4 * time.Second}, *delays)
}

func TestConnectGivesUp(t *testing.T) {
	delays, attempts := stubConnect(t, 10)

	db, err := Connect(context.Background(), "postgres://x", DefaultRetryPolicy, zap.NewNop())

	assert.Nil(t, db)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 3 retries")
	assert.Contains(t, err.Error(), "connection refused")
	assert.Equal(t, 4, *attempts)
	assert.Len(t, *delays, 4)
}

func TestConnectNoRetries(t *testing.T) {
	delays, attempts := stubConnect(t, 1)

	_, err := Connect(context.Background(), "postgres://x", RetryPolicy{InitialDelay: time.Second}, zap.NewNop())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 0 retries")
	assert.Equal(t, 1, *attempts)
	assert.Equal(t, []time.Duration{time.Second}, *delays)
}

func TestConnectCancelledWhileRetrying(t *testing.T) {
	_, attempts := stubConnect(t, 10)
	ctx, cancel := context.WithCancel(context.Background())
	after = func(d time.Duration) <-chan time.Time {
		ch := make(chan time.Time, 1)
		if *attempts == 0 {
			ch <- time.Now()
		} else {
			cancel()
		}
		return ch
	}

	_, err := Connect(ctx, "postgres://x", DefaultRetryPolicy, zap.NewNop())

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, *attempts)
}

func TestConnectCancelled(t *testing.T) {
	_, attempts := stubConnect(t, 0)
	after = func(time.Duration) <-chan time.Time { return make(chan time.Time) }

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Connect(ctx, "postgres://x", DefaultRetryPolicy, zap.NewNop())

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, *attempts)
}
