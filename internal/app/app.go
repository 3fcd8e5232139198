package app

import (
	"newsletter/internal/db"
)

// Application is shared by all handlers and owns the repository handle for
// the life of the process. There is no lock: the repository is safe for
// concurrent use, so requests run in parallel up to the pool size.
type Application struct {
	repo db.SubscriptionRepository
}

func New(repo db.SubscriptionRepository) *Application {
	return &Application{repo: repo}
}

// Repository returns the handle the application was built with.
func (a *Application) Repository() db.SubscriptionRepository {
	return a.repo
}
