// Package rotation implements the round-robin user selection policy: the
// eligible user least recently given a lead is always chosen next, with users
// who never received a lead sorting first.
package rotation

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Candidate is a user eligible to receive a lead.
type Candidate struct {
	ID               uuid.UUID
	Name             string
	LastLeadReceived *time.Time
}

// Less reports whether a is more eligible than b under the rotation policy:
// oldest last_lead_received first, NULL (never received) before any value,
// id as the deterministic tie-break. The SQL in Peek and ClaimTx must order
// rows by exactly this rule.
func Less(a, b Candidate) bool {
	switch {
	case a.LastLeadReceived == nil && b.LastLeadReceived == nil:
		return a.ID.String() < b.ID.String()
	case a.LastLeadReceived == nil:
		return true
	case b.LastLeadReceived == nil:
		return false
	case a.LastLeadReceived.Equal(*b.LastLeadReceived):
		return a.ID.String() < b.ID.String()
	default:
		return a.LastLeadReceived.Before(*b.LastLeadReceived)
	}
}

// Selector picks the next user for a company without side effects.
type Selector struct {
	pool *pgxpool.Pool
}

// NewSelector creates a read-only rotation selector.
func NewSelector(pool *pgxpool.Pool) *Selector {
	return &Selector{pool: pool}
}

// Peek returns the most eligible active user for the company, or nil when the
// filtered set is empty. It performs no writes; callers that go on to assign
// must use ClaimTx inside their transaction instead.
func (s *Selector) Peek(ctx context.Context, companyID uuid.UUID, exclude, teamID *uuid.UUID) (*Candidate, error) {
	var c Candidate
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, last_lead_received
		FROM users
		WHERE company_id = $1 AND status = 'ativo'
		  AND ($2::uuid IS NULL OR id <> $2)
		  AND ($3::uuid IS NULL OR team_id = $3)
		ORDER BY last_lead_received ASC NULLS FIRST, id ASC
		LIMIT 1
	`, companyID, exclude, teamID).Scan(&c.ID, &c.Name, &c.LastLeadReceived)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ClaimTx selects the most eligible user and advances their rotation cursor
// in a single statement. FOR UPDATE SKIP LOCKED makes two concurrent claims
// land on different users instead of both reading the same stalest cursor.
// Must run inside the caller's transaction so the cursor advance commits
// together with the lead write.
func ClaimTx(ctx context.Context, tx pgx.Tx, companyID uuid.UUID, exclude, teamID *uuid.UUID, now time.Time) (*Candidate, error) {
	var c Candidate
	err := tx.QueryRow(ctx, `
		WITH next_user AS (
			SELECT id
			FROM users
			WHERE company_id = $1 AND status = 'ativo'
			  AND ($2::uuid IS NULL OR id <> $2)
			  AND ($3::uuid IS NULL OR team_id = $3)
			ORDER BY last_lead_received ASC NULLS FIRST, id ASC
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		UPDATE users u
		SET last_lead_received = $4, updated_at = now()
		FROM next_user
		WHERE u.id = next_user.id
		RETURNING u.id, u.name, u.last_lead_received
	`, companyID, exclude, teamID, now).Scan(&c.ID, &c.Name, &c.LastLeadReceived)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}
