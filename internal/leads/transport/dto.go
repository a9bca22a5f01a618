// Package transport defines the wire contracts for the leads module.
package transport

import (
	"time"

	"painel_leads_backend/internal/leads/repository"
)

// CreateLeadWebhookRequest is the payload external integrations post.
// Field names follow the contract agreed with the portal clients.
type CreateLeadWebhookRequest struct {
	Nome            string  `json:"nome" validate:"required,min=1,max=255"`
	Telefone        string  `json:"telefone" validate:"required,min=8,max=32"`
	DadosAdicionais *string `json:"dados_adicionais,omitempty" validate:"omitempty,max=4000"`
}

// AssignedTo identifies the user who received a lead.
type AssignedTo struct {
	UserID   string `json:"user_id"`
	UserName string `json:"user_name"`
}

// LeadResponse is the lead representation returned by the API.
type LeadResponse struct {
	ID             string     `json:"id"`
	CompanyID      string     `json:"company_id"`
	Name           string     `json:"name"`
	Phone          string     `json:"phone"`
	Extra          *string    `json:"extra,omitempty"`
	Stage          string     `json:"stage"`
	OwnerUserID    string     `json:"owner_user_id"`
	AssignedAt     time.Time  `json:"assigned_at"`
	FirstContactAt *time.Time `json:"first_contact_at,omitempty"`
	RepiqueCount   int        `json:"repique_count"`
	Source         string     `json:"source"`
	CreatedAt      time.Time  `json:"created_at"`
}

// IntakeResponse is the webhook reply. IsDuplicate marks a request that
// matched a recent lead with the same phone; the existing lead is echoed and
// no new assignment happens.
type IntakeResponse struct {
	Success     bool         `json:"success"`
	IsDuplicate bool         `json:"is_duplicate"`
	Lead        LeadResponse `json:"lead"`
	AssignedTo  *AssignedTo  `json:"assigned_to,omitempty"`
}

// RepiqueDetail reports one action taken by a repique run.
type RepiqueDetail struct {
	LeadID   string `json:"lead_id"`
	LeadName string `json:"lead_name"`
	Action   string `json:"action"`
	ToUser   string `json:"to_user,omitempty"`
	Error    string `json:"error,omitempty"`
}

// RepiqueRunResponse summarizes a repique run. Warnings lists the
// warning-phase actions, Details the re-routing ones.
type RepiqueRunResponse struct {
	Success      bool            `json:"success"`
	WarningsSent int             `json:"warnings_sent"`
	Processed    int             `json:"processed"`
	Warnings     []RepiqueDetail `json:"warnings"`
	Details      []RepiqueDetail `json:"details"`
}

// ToLeadResponse maps a stored lead to its API shape.
func ToLeadResponse(l repository.Lead) LeadResponse {
	return LeadResponse{
		ID:             l.ID.String(),
		CompanyID:      l.CompanyID.String(),
		Name:           l.Name,
		Phone:          l.Phone,
		Extra:          l.Extra,
		Stage:          l.Stage,
		OwnerUserID:    l.OwnerUserID.String(),
		AssignedAt:     l.AssignedAt,
		FirstContactAt: l.FirstContactAt,
		RepiqueCount:   l.RepiqueCount,
		Source:         l.Source,
		CreatedAt:      l.CreatedAt,
	}
}
