package handlers

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsletter/internal/app"
	"newsletter/internal/domain"
	"newsletter/internal/port"
	"newsletter/internal/test"
)

func newTestHandlers(t *testing.T) (*Handlers, *test.MemoryRepository) {
	repo := test.NewMemoryRepository()
	return New(app.New(repo)), repo
}

func TestEcho(t *testing.T) {
	h, _ := newTestHandlers(t)

	rr := test.DoJSON(t, http.HandlerFunc(h.Echo), http.MethodGet, "/echo?name=x", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Hello, x!", rr.Body.String())

	rr = test.DoJSON(t, http.HandlerFunc(h.Echo), http.MethodGet, "/echo", nil)
	assert.Equal(t, "Hello, world!", rr.Body.String())
}

func TestHealthCheck(t *testing.T) {
	h, _ := newTestHandlers(t)

	rr := test.DoJSON(t, http.HandlerFunc(h.HealthCheck), http.MethodGet, "/health_check", nil)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "healthy", rr.Body.String())
}

func TestCreateSubscription(t *testing.T) {
	h, repo := newTestHandlers(t)
	fixed := time.Date(2024, 2, 3, 4, 5, 6, 0, time.UTC)
	original := now
	now = func() time.Time { return fixed }
	t.Cleanup(func() { now = original })

	rr := test.DoJSON(t, http.HandlerFunc(h.CreateSubscription), http.MethodPost, "/subscribe",
		port.CreateSubscriptionRequest{Email: "a@b.c", Name: "new_york_times"})

	assert.Equal(t, http.StatusCreated, rr.Code)
	var resp port.SubscriptionResponse
	test.DecodeJSON(t, rr, &resp)
	assert.Equal(t, "Subscription created for user: new_york_times with email: a@b.c", resp.Message)

	subs := repo.GetSubscriptions(context.Background(), "a@b.c")
	require.Len(t, subs, 1)
	assert.Equal(t, fixed.Unix(), subs[0].SubscribeSince.Unix())
}

func TestCreateSubscriptionRepositoryError(t *testing.T) {
	h, repo := newTestHandlers(t)
	repo.Err = domain.Internal("Database Error! Failed to get connection (Err=timeout)")

	rr := test.DoJSON(t, http.HandlerFunc(h.CreateSubscription), http.MethodPost, "/subscribe",
		port.CreateSubscriptionRequest{Email: "a@b.c", Name: "nyt"})

	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.JSONEq(t, `{"message":"Failed to add subscription"}`, rr.Body.String())
}

func TestCreateSubscriptionBadBody(t *testing.T) {
	h, _ := newTestHandlers(t)
	handler := http.HandlerFunc(h.CreateSubscription)

	tests := []struct {
		name   string
		body   any
		status int
	}{
		{"malformed json", `{"email":`, http.StatusBadRequest},
		{"empty body", nil, http.StatusBadRequest},
		{"wrong type", `{"email":1,"name":"nyt"}`, http.StatusUnprocessableEntity},
		{"missing email", `{"name":"nyt"}`, http.StatusUnprocessableEntity},
		{"missing name", `{"email":"a@b.c"}`, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := test.DoJSON(t, handler, http.MethodPost, "/subscribe", tt.body)
			assert.Equal(t, tt.status, rr.Code)
			var body map[string]string
			test.DecodeJSON(t, rr, &body)
			assert.Contains(t, body["error"], "validation for field")
		})
	}
}

func TestGetSubscriptions(t *testing.T) {
	h, repo := newTestHandlers(t)
	handler := http.HandlerFunc(h.GetSubscriptions)
	_, err := repo.AddSubscription(context.Background(), "nyt", "e@x", time.Now())
	require.NoError(t, err)
	_, err = repo.AddSubscription(context.Background(), "wapo", "e@x", time.Now())
	require.NoError(t, err)

	t.Run("json body", func(t *testing.T) {
		rr := test.DoJSON(t, handler, http.MethodGet, "/subscriptions", port.GetSubscriptionRequest{Email: "e@x"})

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
		var resp port.GetSubscriptionsResponse
		test.DecodeJSON(t, rr, &resp)
		require.Len(t, resp.Resp, 2)
		names := []string{resp.Resp[0].SubscriptionName, resp.Resp[1].SubscriptionName}
		assert.ElementsMatch(t, []string{"nyt", "wapo"}, names)
	})

	t.Run("query parameter", func(t *testing.T) {
		rr := test.DoJSON(t, handler, http.MethodGet, "/subscriptions?email=e@x", nil)

		assert.Equal(t, http.StatusOK, rr.Code)
		var resp port.GetSubscriptionsResponse
		test.DecodeJSON(t, rr, &resp)
		assert.Len(t, resp.Resp, 2)
	})

	t.Run("unknown email", func(t *testing.T) {
		rr := test.DoJSON(t, handler, http.MethodGet, "/subscriptions", port.GetSubscriptionRequest{Email: "nobody@nowhere"})

		assert.Equal(t, http.StatusNotFound, rr.Code)
		assert.JSONEq(t,
			`{"error":"resource not found: no subscriptions found for email: nobody@nowhere"}`,
			rr.Body.String())
	})

	t.Run("no email at all", func(t *testing.T) {
		rr := test.DoJSON(t, handler, http.MethodGet, "/subscriptions", nil)
		assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	})
}

func TestRemoveSubscription(t *testing.T) {
	h, repo := newTestHandlers(t)
	handler := http.HandlerFunc(h.RemoveSubscription)

	t.Run("invalid id", func(t *testing.T) {
		rr := test.DoJSON(t, handler, http.MethodDelete, "/subscribe", port.RemoveSubscriptionRequest{SubscriptionID: "not_uuid"})

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.JSONEq(t,
			`{"error":"validation for field subscription_id, reason = Id must be a uuid"}`,
			rr.Body.String())
	})

	t.Run("unknown id", func(t *testing.T) {
		rr := test.DoJSON(t, handler, http.MethodDelete, "/subscribe", port.RemoveSubscriptionRequest{SubscriptionID: uuid.NewString()})

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("existing id", func(t *testing.T) {
		sub, err := repo.AddSubscription(context.Background(), "nyt", "e@x", time.Now())
		require.NoError(t, err)

		rr := test.DoJSON(t, handler, http.MethodDelete, "/subscribe", port.RemoveSubscriptionRequest{SubscriptionID: sub.SubscriptionID})

		assert.Equal(t, http.StatusNoContent, rr.Code)
		assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
		assert.Empty(t, repo.GetSubscriptions(context.Background(), "e@x"))

		rr = test.DoJSON(t, handler, http.MethodDelete, "/subscribe", port.RemoveSubscriptionRequest{SubscriptionID: sub.SubscriptionID})
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("internal error", func(t *testing.T) {
		repo.Err = errors.New("pool closed")
		t.Cleanup(func() { repo.Err = nil })

		rr := test.DoJSON(t, handler, http.MethodDelete, "/subscribe", port.RemoveSubscriptionRequest{SubscriptionID: uuid.NewString()})

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		assert.JSONEq(t, `{"error":"internal error. reason = pool closed"}`, rr.Body.String())
	})
}
