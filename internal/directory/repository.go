// Package directory provides read and admin access to companies and their
// users.
package directory

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrCompanyNotFound = errors.New("company not found")

// User is a company member participating (or not) in the rotation.
type User struct {
	ID               uuid.UUID
	CompanyID        uuid.UUID
	TeamID           *uuid.UUID
	Name             string
	Email            string
	Role             string
	Status           string
	LastLeadReceived *time.Time
	CreatedAt        time.Time
}

// Company is a tenant.
type Company struct {
	ID                 uuid.UUID
	Name               string
	AutoRepiqueEnabled bool
	AutoRepiqueMinutes int
	InitialStage       string
	CreatedAt          time.Time
}

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListUsers returns the company's users in rotation order, so operators can
// see who receives the next lead.
func (r *Repository) ListUsers(ctx context.Context, companyID uuid.UUID) ([]User, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, company_id, team_id, name, email, role, status, last_lead_received, created_at
		FROM users
		WHERE company_id = $1
		ORDER BY last_lead_received ASC NULLS FIRST, id ASC
	`, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.CompanyID, &u.TeamID, &u.Name, &u.Email, &u.Role,
			&u.Status, &u.LastLeadReceived, &u.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// GetCompany returns a single company.
func (r *Repository) GetCompany(ctx context.Context, companyID uuid.UUID) (Company, error) {
	var c Company
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, auto_repique_enabled, auto_repique_minutes, initial_stage, created_at
		FROM companies
		WHERE id = $1
	`, companyID).Scan(&c.ID, &c.Name, &c.AutoRepiqueEnabled, &c.AutoRepiqueMinutes, &c.InitialStage, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Company{}, ErrCompanyNotFound
	}
	return c, err
}

// UpdateRepiqueSettings changes a company's automatic re-routing settings.
func (r *Repository) UpdateRepiqueSettings(ctx context.Context, companyID uuid.UUID, enabled bool, minutes int) (Company, error) {
	var c Company
	err := r.pool.QueryRow(ctx, `
		UPDATE companies
		SET auto_repique_enabled = $2, auto_repique_minutes = $3, updated_at = now()
		WHERE id = $1
		RETURNING id, name, auto_repique_enabled, auto_repique_minutes, initial_stage, created_at
	`, companyID, enabled, minutes).Scan(&c.ID, &c.Name, &c.AutoRepiqueEnabled, &c.AutoRepiqueMinutes, &c.InitialStage, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Company{}, ErrCompanyNotFound
	}
	return c, err
}
