// Package port holds the request and response shapes exchanged over HTTP.
package port

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Timestamp is a UTC instant encoded in JSON as integer Unix seconds.
type Timestamp struct {
	time.Time
}

// NewTimestamp wraps t, normalised to UTC.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t.UTC()}
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return strconv.AppendInt(nil, t.Unix(), 10), nil
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	secs, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("timestamp must be integer unix seconds: %w", err)
	}
	t.Time = time.Unix(secs, 0).UTC()
	return nil
}

type Subscription struct {
	Email            *string   `json:"email"`
	SubscriptionID   string    `json:"subscription_id"`
	SubscriptionName string    `json:"subscription_name"`
	SubscribeSince   Timestamp `json:"subscribe_since"`
}

type CreateSubscriptionRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

type SubscriptionResponse struct {
	Message string `json:"message"`
}

type GetSubscriptionRequest struct {
	Email string `json:"email"`
}

type GetSubscriptionsResponse struct {
	Resp []Subscription `json:"resp"`
}

type RemoveSubscriptionRequest struct {
	SubscriptionID string `json:"subscription_id"`
}

type RemoveSubscriptionResponse struct {
	Subscription Subscription `json:"subscription"`
}

var (
	_ json.Marshaler   = Timestamp{}
	_ json.Unmarshaler = (*Timestamp)(nil)
)
