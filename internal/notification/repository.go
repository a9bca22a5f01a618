// Package notification subscribes to domain events and turns them into push
// notifications for the users involved.
package notification

import (
	"context"
	"errors"

	"painel_leads_backend/internal/notification/push"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrSubscriptionNotFound = errors.New("push subscription not found")

// Repository stores push subscriptions.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Upsert registers an endpoint for a user. Re-registering the same endpoint
// moves it to the new user.
func (r *Repository) Upsert(ctx context.Context, userID uuid.UUID, endpoint string) (push.Subscription, error) {
	var sub push.Subscription
	err := r.pool.QueryRow(ctx, `
		INSERT INTO push_subscriptions (user_id, endpoint)
		VALUES ($1, $2)
		ON CONFLICT (endpoint) DO UPDATE SET user_id = EXCLUDED.user_id, updated_at = now()
		RETURNING id, user_id, endpoint
	`, userID, endpoint).Scan(&sub.ID, &sub.UserID, &sub.Endpoint)
	return sub, err
}

// ListByUser returns the user's registered endpoints.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]push.Subscription, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, endpoint
		FROM push_subscriptions
		WHERE user_id = $1
		ORDER BY created_at
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []push.Subscription
	for rows.Next() {
		var sub push.Subscription
		if err := rows.Scan(&sub.ID, &sub.UserID, &sub.Endpoint); err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

// DeleteByEndpoint removes an endpoint regardless of owner.
func (r *Repository) DeleteByEndpoint(ctx context.Context, endpoint string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM push_subscriptions WHERE endpoint = $1`, endpoint)
	return err
}

// Delete removes a user's endpoint.
func (r *Repository) Delete(ctx context.Context, userID uuid.UUID, endpoint string) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM push_subscriptions WHERE user_id = $1 AND endpoint = $2
	`, userID, endpoint)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrSubscriptionNotFound
	}
	return nil
}

var _ push.SubscriptionStore = (*Repository)(nil)
