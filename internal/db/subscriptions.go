package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"newsletter/internal/domain"
	"newsletter/internal/models"
	"newsletter/internal/port"
)

// SubscriptionRepository persists and retrieves subscriptions.
type SubscriptionRepository interface {
	AddSubscription(ctx context.Context, name, email string, subscribedAt time.Time) (*port.Subscription, error)
	GetSubscriptions(ctx context.Context, email string) []port.Subscription
	RemoveSubscription(ctx context.Context, id uuid.UUID) (*port.Subscription, error)
}

// Overridden in tests.
var newID = uuid.New

// Repository is the PostgreSQL backed SubscriptionRepository. It is safe for
// concurrent use.
type Repository struct {
	db  *sqlx.DB
	log *zap.Logger
}

var _ SubscriptionRepository = (*Repository)(nil)

func NewRepository(db *sqlx.DB, log *zap.Logger) *Repository {
	return &Repository{db: db, log: log}
}

// Ping checks that the pool can reach the database.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close releases every pooled connection.
func (r *Repository) Close() error {
	return r.db.Close()
}

// checkout takes a dedicated connection from the pool and probes it before
// handing it out. Callers must Close it.
func (r *Repository) checkout(ctx context.Context) (*sqlx.Conn, error) {
	conn, err := r.db.Connx(ctx)
	if err != nil {
		return nil, err
	}
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

func (r *Repository) AddSubscription(ctx context.Context, name, email string, subscribedAt time.Time) (*port.Subscription, error) {
	row := models.Subscription{
		ID:           newID(),
		Email:        email,
		Name:         name,
		SubscribedAt: subscribedAt.UTC(),
	}

	conn, err := r.checkout(ctx)
	if err != nil {
		r.log.Error("Failed to get connection", zap.Error(err))
		return nil, domain.Internal("Database Error! Failed to get connection (Err=%v)", err)
	}
	defer conn.Close()

	query := `
		INSERT INTO subscriptions (id, email, name, subscribed_at)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := conn.ExecContext(ctx, query, row.ID.String(), row.Email, row.Name, row.SubscribedAt); err != nil {
		r.log.Error("Error adding subscription", zap.String("email", email), zap.Error(err))
		return nil, domain.Internal("failed to store new subscription (Error = %v)", err)
	}

	return &port.Subscription{
		SubscriptionID:   row.ID.String(),
		SubscriptionName: row.Name,
		SubscribeSince:   port.NewTimestamp(row.SubscribedAt),
	}, nil
}

// GetSubscriptions never fails: lower-layer errors are logged and produce an
// empty result.
func (r *Repository) GetSubscriptions(ctx context.Context, email string) []port.Subscription {
	conn, err := r.checkout(ctx)
	if err != nil {
		r.log.Error("Failed to get connection", zap.Error(err))
		return []port.Subscription{}
	}
	defer conn.Close()

	query := `
		SELECT id, email, name, subscribed_at
		FROM subscriptions
		WHERE email = $1
	`
	var rows []models.Subscription
	if err := conn.SelectContext(ctx, &rows, query, email); err != nil {
		r.log.Warn("Error getting subscriptions", zap.String("email", email), zap.Error(err))
		return []port.Subscription{}
	}

	subs := make([]port.Subscription, 0, len(rows))
	for _, row := range rows {
		subs = append(subs, port.Subscription{
			SubscriptionID:   row.ID.String(),
			SubscriptionName: row.Name,
			SubscribeSince:   port.NewTimestamp(row.SubscribedAt),
		})
	}
	return subs
}

// RemoveSubscription deletes the row and returns it as it was stored.
func (r *Repository) RemoveSubscription(ctx context.Context, id uuid.UUID) (*port.Subscription, error) {
	conn, err := r.checkout(ctx)
	if err != nil {
		r.log.Error("Failed to get connection", zap.Error(err))
		return nil, domain.Internal("Database error. Failed to get connection `(Err=%v)`", err)
	}
	defer conn.Close()

	query := `
		DELETE FROM subscriptions
		WHERE id = $1
		RETURNING id, email, name, subscribed_at
	`
	var row models.Subscription
	err = conn.GetContext(ctx, &row, query, id.String())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFound("subscription not found for id = %s", id)
	}
	if err != nil {
		r.log.Error("Error deleting subscription", zap.Stringer("id", id), zap.Error(err))
		return nil, domain.Internal("Database error: %v", err)
	}

	email := row.Email
	return &port.Subscription{
		Email:            &email,
		SubscriptionID:   row.ID.String(),
		SubscriptionName: row.Name,
		SubscribeSince:   port.NewTimestamp(row.SubscribedAt),
	}, nil
}
