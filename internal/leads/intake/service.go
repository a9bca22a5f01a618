// Package intake turns webhook payloads into assigned leads.
package intake

import (
	"context"
	"errors"
	"time"

	"painel_leads_backend/internal/events"
	"painel_leads_backend/internal/leads/repository"
	"painel_leads_backend/internal/leads/transport"
	"painel_leads_backend/internal/rotation"
	"painel_leads_backend/platform/apperr"
	"painel_leads_backend/platform/logger"
	"painel_leads_backend/platform/phone"
	"painel_leads_backend/platform/validator"

	"github.com/google/uuid"
)

// DuplicateWindow is how far back a same-phone lead counts as a duplicate.
const DuplicateWindow = 5 * time.Minute

// Store is the persistence surface intake needs.
type Store interface {
	FindRecentDuplicate(ctx context.Context, companyID uuid.UUID, phone string, now time.Time, window time.Duration) (*repository.Lead, error)
	CreateAssigned(ctx context.Context, p repository.CreateAssignedParams) (repository.Lead, rotation.Candidate, error)
}

// Target tells intake where a lead lands: resolved from the webhook API key.
type Target struct {
	CompanyID    uuid.UUID
	TeamID       *uuid.UUID
	InitialStage string
	Source       string
}

type Service struct {
	store Store
	bus   events.Bus
	val   *validator.Validator
	log   *logger.Logger
	now   func() time.Time
}

func NewService(store Store, bus events.Bus, val *validator.Validator, log *logger.Logger) *Service {
	return &Service{store: store, bus: bus, val: val, log: log, now: time.Now}
}

// Create validates and normalizes the payload, suppresses duplicates inside
// DuplicateWindow, and otherwise creates the lead assigned to the next user
// in the target company's rotation.
func (s *Service) Create(ctx context.Context, target Target, req transport.CreateLeadWebhookRequest) (transport.IntakeResponse, error) {
	if err := s.val.Struct(req); err != nil {
		return transport.IntakeResponse{}, apperr.Validation("dados do lead inválidos").WithDetails(err.Error())
	}

	normalized := phone.NormalizeE164(req.Telefone)
	if normalized == "" {
		return transport.IntakeResponse{}, apperr.Validation("telefone é obrigatório")
	}

	now := s.now()
	existing, err := s.store.FindRecentDuplicate(ctx, target.CompanyID, normalized, now, DuplicateWindow)
	if err != nil {
		return transport.IntakeResponse{}, apperr.Wrap(apperr.KindInternal, "checking duplicate lead", err)
	}
	if existing != nil {
		s.log.Info("duplicate lead suppressed",
			"company_id", target.CompanyID, "lead_id", existing.ID, "phone", normalized)
		return transport.IntakeResponse{
			Success:     true,
			IsDuplicate: true,
			Lead:        transport.ToLeadResponse(*existing),
		}, nil
	}

	lead, owner, err := s.store.CreateAssigned(ctx, repository.CreateAssignedParams{
		CompanyID: target.CompanyID,
		TeamID:    target.TeamID,
		Name:      req.Nome,
		Phone:     normalized,
		Extra:     req.DadosAdicionais,
		Stage:     target.InitialStage,
		Source:    target.Source,
		Now:       now,
	})
	if errors.Is(err, repository.ErrNoEligibleUser) {
		return transport.IntakeResponse{}, apperr.Unprocessable("nenhum usuário disponível para receber o lead")
	}
	if err != nil {
		return transport.IntakeResponse{}, apperr.Wrap(apperr.KindInternal, "creating lead", err)
	}

	// Notification failures must never fail intake: handlers run async.
	s.bus.Publish(ctx, events.LeadCreated{
		BaseEvent:   events.NewBaseEvent(),
		LeadID:      lead.ID,
		CompanyID:   lead.CompanyID,
		OwnerUserID: owner.ID,
		OwnerName:   owner.Name,
		LeadName:    lead.Name,
		LeadPhone:   lead.Phone,
		Source:      lead.Source,
	})

	return transport.IntakeResponse{
		Success: true,
		Lead:    transport.ToLeadResponse(lead),
		AssignedTo: &transport.AssignedTo{
			UserID:   owner.ID.String(),
			UserName: owner.Name,
		},
	}, nil
}
