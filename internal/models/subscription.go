package models

import (
	"time"

	"github.com/google/uuid"
)

// Subscription is a row of the subscriptions table.
type Subscription struct {
	ID           uuid.UUID `db:"id"`
	Email        string    `db:"email"`
	Name         string    `db:"name"`
	SubscribedAt time.Time `db:"subscribed_at"`
}
