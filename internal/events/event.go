// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"time"

	"painel_leads_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Leads Domain Events
// =============================================================================

// LeadCreated is published after a lead is created and assigned via intake.
type LeadCreated struct {
	BaseEvent
	LeadID      uuid.UUID `json:"leadId"`
	CompanyID   uuid.UUID `json:"companyId"`
	OwnerUserID uuid.UUID `json:"ownerUserId"`
	OwnerName   string    `json:"ownerName"`
	LeadName    string    `json:"leadName"`
	LeadPhone   string    `json:"leadPhone"`
	Source      string    `json:"source,omitempty"`
}

func (e LeadCreated) EventName() string { return "leads.lead.created" }

// RepiqueWarning is published when a lead is about to hit its repique timeout
// and the current owner should be warned.
type RepiqueWarning struct {
	BaseEvent
	LeadID      uuid.UUID     `json:"leadId"`
	CompanyID   uuid.UUID     `json:"companyId"`
	OwnerUserID uuid.UUID     `json:"ownerUserId"`
	LeadName    string        `json:"leadName"`
	Remaining   time.Duration `json:"remaining"`
}

func (e RepiqueWarning) EventName() string { return "leads.repique.warning" }

// LeadReassigned is published after the repique engine moves a lead to a new owner.
type LeadReassigned struct {
	BaseEvent
	LeadID       uuid.UUID `json:"leadId"`
	CompanyID    uuid.UUID `json:"companyId"`
	FromUserID   uuid.UUID `json:"fromUserId"`
	ToUserID     uuid.UUID `json:"toUserId"`
	ToUserName   string    `json:"toUserName"`
	LeadName     string    `json:"leadName"`
	RepiqueCount int       `json:"repiqueCount"`
	Reason       string    `json:"reason"`
}

func (e LeadReassigned) EventName() string { return "leads.lead.reassigned" }
