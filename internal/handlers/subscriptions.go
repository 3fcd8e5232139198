package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"newsletter/internal/domain"
	"newsletter/internal/middleware"
	"newsletter/internal/port"
)

// Overridden in tests.
var now = time.Now

func (h *Handlers) CreateSubscription(w http.ResponseWriter, r *http.Request) {
	var req port.CreateSubscriptionRequest
	if status, err := decodeJSON(r, &req); err != nil {
		writeErrorStatus(w, status, err)
		return
	}
	switch {
	case req.Email == "":
		writeErrorStatus(w, http.StatusUnprocessableEntity, domain.Validation("email", "must not be empty"))
		return
	case req.Name == "":
		writeErrorStatus(w, http.StatusUnprocessableEntity, domain.Validation("name", "must not be empty"))
		return
	}

	if _, err := h.app.Repository().AddSubscription(r.Context(), req.Name, req.Email, now()); err != nil {
		middleware.Logger(r.Context()).Error("Error creating subscription", zap.Error(err))
		writeJSON(w, r, http.StatusUnprocessableEntity, port.SubscriptionResponse{
			Message: "Failed to add subscription",
		})
		return
	}

	writeJSON(w, r, http.StatusCreated, port.SubscriptionResponse{
		Message: fmt.Sprintf("Subscription created for user: %s with email: %s", req.Name, req.Email),
	})
}

// GetSubscriptions reads the email from the JSON body, or from the email
// query parameter when the body is empty.
func (h *Handlers) GetSubscriptions(w http.ResponseWriter, r *http.Request) {
	var req port.GetSubscriptionRequest
	status, err := decodeJSON(r, &req)
	if err == errEmptyBody {
		req.Email, err = r.URL.Query().Get("email"), nil
	}
	if err != nil {
		writeErrorStatus(w, status, err)
		return
	}
	if req.Email == "" {
		writeErrorStatus(w, http.StatusUnprocessableEntity, domain.Validation("email", "must not be empty"))
		return
	}

	subs := h.app.Repository().GetSubscriptions(r.Context(), req.Email)
	if len(subs) == 0 {
		writeError(w, r, domain.NotFound("no subscriptions found for email: %s", req.Email))
		return
	}

	writeJSON(w, r, http.StatusOK, port.GetSubscriptionsResponse{Resp: subs})
}

// RemoveSubscription answers 204 with the deleted row as it was stored, email
// included, rather than placeholder values.
func (h *Handlers) RemoveSubscription(w http.ResponseWriter, r *http.Request) {
	var req port.RemoveSubscriptionRequest
	if status, err := decodeJSON(r, &req); err != nil {
		writeErrorStatus(w, status, err)
		return
	}

	id, err := uuid.Parse(req.SubscriptionID)
	if err != nil {
		writeError(w, r, domain.Validation("subscription_id", "Id must be a uuid"))
		return
	}

	sub, err := h.app.Repository().RemoveSubscription(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusNoContent, port.RemoveSubscriptionResponse{Subscription: *sub})
}
