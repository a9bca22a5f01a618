// Package repository provides data access for leads, their activity log, and
// the assignment audit trail.
package repository

import (
	"context"
	"errors"
	"time"

	"painel_leads_backend/internal/rotation"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound = errors.New("lead not found")
	// ErrNoEligibleUser means the rotation found no active user to assign.
	ErrNoEligibleUser = errors.New("no eligible user for assignment")
	// ErrLeadChanged means the compare-and-swap guard fired: the lead's owner
	// or repique count no longer matches the state the caller read, so a
	// concurrent run already handled this lead.
	ErrLeadChanged = errors.New("lead state changed concurrently")
)

// Lead is a persisted lead with its assignment fields.
type Lead struct {
	ID             uuid.UUID
	CompanyID      uuid.UUID
	Name           string
	Phone          string
	Extra          *string
	Stage          string
	OwnerUserID    uuid.UUID
	AssignedAt     time.Time
	FirstContactAt *time.Time
	RepiqueCount   int
	Source         string
	CreatedAt      time.Time
}

// RepiqueCompany is a tenant with automatic re-routing enabled.
type RepiqueCompany struct {
	ID             uuid.UUID
	Name           string
	TimeoutMinutes int
	InitialStage   string
}

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const leadColumns = `id, company_id, name, phone, extra, stage, owner_user_id, assigned_at, first_contact_at, repique_count, source, created_at`

func scanLead(row pgx.Row) (Lead, error) {
	var l Lead
	err := row.Scan(&l.ID, &l.CompanyID, &l.Name, &l.Phone, &l.Extra, &l.Stage,
		&l.OwnerUserID, &l.AssignedAt, &l.FirstContactAt, &l.RepiqueCount, &l.Source, &l.CreatedAt)
	return l, err
}

// GetByID returns a single lead.
func (r *Repository) GetByID(ctx context.Context, leadID uuid.UUID) (Lead, error) {
	lead, err := scanLead(r.pool.QueryRow(ctx,
		`SELECT `+leadColumns+` FROM leads WHERE id = $1`, leadID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrNotFound
	}
	return lead, err
}

// FindRecentDuplicate returns the newest lead with the same normalized phone
// created for the company within the window, or nil when there is none.
func (r *Repository) FindRecentDuplicate(ctx context.Context, companyID uuid.UUID, phone string, now time.Time, window time.Duration) (*Lead, error) {
	lead, err := scanLead(r.pool.QueryRow(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE company_id = $1 AND phone = $2 AND created_at >= $3
		ORDER BY created_at DESC
		LIMIT 1
	`, companyID, phone, now.Add(-window)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &lead, nil
}

// CreateAssignedParams carries everything needed to insert an assigned lead.
type CreateAssignedParams struct {
	CompanyID uuid.UUID
	TeamID    *uuid.UUID
	Name      string
	Phone     string
	Extra     *string
	Stage     string
	Source    string
	Now       time.Time
}

// CreateAssigned claims the next user in the rotation and inserts the lead
// assigned to them, in one transaction: either both the lead row and the
// rotation cursor advance commit, or neither does.
// Returns ErrNoEligibleUser when the rotation comes up empty.
func (r *Repository) CreateAssigned(ctx context.Context, p CreateAssignedParams) (Lead, rotation.Candidate, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Lead{}, rotation.Candidate{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	owner, err := rotation.ClaimTx(ctx, tx, p.CompanyID, nil, p.TeamID, p.Now)
	if err != nil {
		return Lead{}, rotation.Candidate{}, err
	}
	if owner == nil {
		return Lead{}, rotation.Candidate{}, ErrNoEligibleUser
	}

	lead, err := scanLead(tx.QueryRow(ctx, `
		INSERT INTO leads (company_id, name, phone, extra, stage, owner_user_id, assigned_at, repique_count, source)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 0, $8)
		RETURNING `+leadColumns,
		p.CompanyID, p.Name, p.Phone, p.Extra, p.Stage, owner.ID, p.Now, p.Source))
	if err != nil {
		return Lead{}, rotation.Candidate{}, err
	}

	if err := appendActivityTx(ctx, tx, lead.ID, "atribuicao", "Lead atribuído a "+owner.Name); err != nil {
		return Lead{}, rotation.Candidate{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Lead{}, rotation.Candidate{}, err
	}
	return lead, *owner, nil
}

// RecordFirstContact stamps first_contact_at once. Returns false when the
// lead already had a first contact recorded (idempotent no-op).
func (r *Repository) RecordFirstContact(ctx context.Context, leadID uuid.UUID, now time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE leads SET first_contact_at = $2, updated_at = now()
		WHERE id = $1 AND first_contact_at IS NULL
	`, leadID, now)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() > 0 {
		return true, nil
	}

	// Distinguish "already contacted" from "does not exist".
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM leads WHERE id = $1)`, leadID).Scan(&exists); err != nil {
		return false, err
	}
	if !exists {
		return false, ErrNotFound
	}
	return false, nil
}

// ListRepiqueCompanies returns companies with automatic re-routing enabled.
func (r *Repository) ListRepiqueCompanies(ctx context.Context) ([]RepiqueCompany, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, auto_repique_minutes, initial_stage
		FROM companies
		WHERE auto_repique_enabled = true AND auto_repique_minutes > 0
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var companies []RepiqueCompany
	for rows.Next() {
		var c RepiqueCompany
		if err := rows.Scan(&c.ID, &c.Name, &c.TimeoutMinutes, &c.InitialStage); err != nil {
			return nil, err
		}
		companies = append(companies, c)
	}
	return companies, rows.Err()
}

// CandidateQuery bounds a repique candidate scan. Leads qualify when they sit
// in the company's initial stage, have no first contact, have not hit the
// repique cap, were created on or after DayStart, and their assigned_at falls
// in (AssignedAfter, AssignedBefore].
type CandidateQuery struct {
	CompanyID      uuid.UUID
	Stage          string
	AssignedAfter  time.Time // zero: unbounded below
	AssignedBefore time.Time
	DayStart       time.Time
	MaxRepiques    int
	Limit          int
}

// ListRepiqueCandidates returns leads matching the query windows.
func (r *Repository) ListRepiqueCandidates(ctx context.Context, q CandidateQuery) ([]Lead, error) {
	var after *time.Time
	if !q.AssignedAfter.IsZero() {
		after = &q.AssignedAfter
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE company_id = $1
		  AND stage = $2
		  AND first_contact_at IS NULL
		  AND repique_count < $3
		  AND ($4::timestamptz IS NULL OR assigned_at > $4)
		  AND assigned_at <= $5
		  AND created_at >= $6
		ORDER BY assigned_at ASC
		LIMIT $7
	`, q.CompanyID, q.Stage, q.MaxRepiques, after, q.AssignedBefore, q.DayStart, q.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var leads []Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, lead)
	}
	return leads, rows.Err()
}

// ReassignResult describes a completed reassignment.
type ReassignResult struct {
	Lead     Lead
	FromUser uuid.UUID
	NewOwner rotation.Candidate
}

// Reassign moves the lead to the next user in the rotation, excluding its
// current owner. The lead update is conditioned on the owner and repique
// count the caller read (compare-and-swap): if a concurrent run already moved
// the lead, the update matches no row, the transaction rolls back — including
// the claimed cursor — and ErrLeadChanged is returned.
// Lead update, cursor advance, activity entry, and audit record commit
// together or not at all.
func (r *Repository) Reassign(ctx context.Context, lead Lead, reason string, now time.Time) (*ReassignResult, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	prevOwner := lead.OwnerUserID
	newOwner, err := rotation.ClaimTx(ctx, tx, lead.CompanyID, &prevOwner, nil, now)
	if err != nil {
		return nil, err
	}
	if newOwner == nil {
		return nil, ErrNoEligibleUser
	}

	updated, err := scanLead(tx.QueryRow(ctx, `
		UPDATE leads
		SET owner_user_id = $3, assigned_at = $4, repique_count = repique_count + 1, updated_at = now()
		WHERE id = $1
		  AND owner_user_id = $2
		  AND repique_count = $5
		  AND first_contact_at IS NULL
		RETURNING `+leadColumns,
		lead.ID, prevOwner, newOwner.ID, now, lead.RepiqueCount))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrLeadChanged
	}
	if err != nil {
		return nil, err
	}

	if err := appendActivityTx(ctx, tx, lead.ID, "repique", "Lead repicado para "+newOwner.Name); err != nil {
		return nil, err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO assignment_events (company_id, lead_id, from_user_id, to_user_id, repique_count, reason)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, lead.CompanyID, lead.ID, prevOwner, newOwner.ID, updated.RepiqueCount, reason)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return &ReassignResult{Lead: updated, FromUser: prevOwner, NewOwner: *newOwner}, nil
}

func appendActivityTx(ctx context.Context, tx pgx.Tx, leadID uuid.UUID, kind, description string) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO lead_activities (lead_id, kind, description)
		VALUES ($1, $2, $3)
	`, leadID, kind, description)
	return err
}
