package test

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"newsletter/internal/domain"
	"newsletter/internal/models"
	"newsletter/internal/port"
)

// MemoryRepository keeps subscriptions in a map. It satisfies
// db.SubscriptionRepository and is safe for concurrent use.
type MemoryRepository struct {
	mu    sync.Mutex
	rows  map[uuid.UUID]models.Subscription
	order []uuid.UUID

	// Err, when set, is returned by AddSubscription and RemoveSubscription,
	// and makes GetSubscriptions return nothing.
	Err error
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{rows: make(map[uuid.UUID]models.Subscription)}
}

func (m *MemoryRepository) AddSubscription(_ context.Context, name, email string, subscribedAt time.Time) (*port.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}

	row := models.Subscription{ID: uuid.New(), Email: email, Name: name, SubscribedAt: subscribedAt.UTC()}
	m.rows[row.ID] = row
	m.order = append(m.order, row.ID)

	return &port.Subscription{
		SubscriptionID:   row.ID.String(),
		SubscriptionName: row.Name,
		SubscribeSince:   port.NewTimestamp(row.SubscribedAt),
	}, nil
}

func (m *MemoryRepository) GetSubscriptions(_ context.Context, email string) []port.Subscription {
	m.mu.Lock()
	defer m.mu.Unlock()

	subs := []port.Subscription{}
	if m.Err != nil {
		return subs
	}
	for _, id := range m.order {
		row, ok := m.rows[id]
		if !ok || row.Email != email {
			continue
		}
		subs = append(subs, port.Subscription{
			SubscriptionID:   row.ID.String(),
			SubscriptionName: row.Name,
			SubscribeSince:   port.NewTimestamp(row.SubscribedAt),
		})
	}
	return subs
}

func (m *MemoryRepository) RemoveSubscription(_ context.Context, id uuid.UUID) (*port.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}

	row, ok := m.rows[id]
	if !ok {
		return nil, domain.NotFound("subscription not found for id = %s", id)
	}
	delete(m.rows, id)

	email := row.Email
	return &port.Subscription{
		Email:            &email,
		SubscriptionID:   row.ID.String(),
		SubscriptionName: row.Name,
		SubscribeSince:   port.NewTimestamp(row.SubscribedAt),
	}, nil
}
