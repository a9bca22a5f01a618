// Package push delivers push notifications through the configured gateway.
// Delivery is best effort: a failed or missing gateway never fails the
// operation that triggered the notification.
package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"painel_leads_backend/platform/config"
	"painel_leads_backend/platform/logger"

	"github.com/google/uuid"
)

// Subscription is a registered push endpoint for a user.
type Subscription struct {
	ID       uuid.UUID
	UserID   uuid.UUID
	Endpoint string
}

// SubscriptionStore is the persistence surface the sender needs.
type SubscriptionStore interface {
	ListByUser(ctx context.Context, userID uuid.UUID) ([]Subscription, error)
	DeleteByEndpoint(ctx context.Context, endpoint string) error
}

// Message is the notification content delivered for each subscription.
type Message struct {
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
}

// gatewayRequest is the body posted to the gateway: the message plus the
// subscription endpoint the gateway should deliver it to.
type gatewayRequest struct {
	Endpoint string `json:"endpoint"`
	Message
}

type Sender struct {
	gatewayURL string
	gatewayKey string
	store      SubscriptionStore
	http       *http.Client
	log        *logger.Logger
}

// NewSender returns nil when no gateway is configured; a nil sender is a
// silent no-op.
func NewSender(cfg config.PushConfig, store SubscriptionStore, log *logger.Logger) *Sender {
	if cfg.GetPushGatewayURL() == "" {
		return nil
	}
	return &Sender{
		gatewayURL: strings.TrimRight(cfg.GetPushGatewayURL(), "/"),
		gatewayKey: cfg.GetPushGatewayKey(),
		store:      store,
		http:       &http.Client{Timeout: 10 * time.Second},
		log:        log,
	}
}

// Enabled reports whether a gateway is configured.
func (s *Sender) Enabled() bool { return s != nil }

// SendToUser posts one gateway request per subscription the user has. Failed
// deliveries are logged, endpoints the gateway reports gone are removed, and
// the first transport error is returned for observability only.
func (s *Sender) SendToUser(ctx context.Context, userID uuid.UUID, msg Message) error {
	if s == nil {
		return nil
	}

	subs, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("listing push subscriptions: %w", err)
	}
	if len(subs) == 0 {
		return nil
	}

	var firstErr error
	for _, sub := range subs {
		if err := s.send(ctx, sub, msg); err != nil {
			s.log.Error("push delivery failed", "user_id", userID, "subscription_id", sub.ID, "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (s *Sender) send(ctx context.Context, sub Subscription, msg Message) error {
	body, err := json.Marshal(gatewayRequest{Endpoint: sub.Endpoint, Message: msg})
	if err != nil {
		return fmt.Errorf("marshal push payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.gatewayURL+"/send", bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.gatewayKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.gatewayKey)
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("push request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		// Stale endpoint: the client unsubscribed or the token expired.
		if err := s.store.DeleteByEndpoint(ctx, sub.Endpoint); err != nil {
			s.log.Error("removing stale push subscription failed", "endpoint", sub.Endpoint, "error", err)
		}
		return nil
	default:
		return fmt.Errorf("push endpoint returned status %d", resp.StatusCode)
	}
}
