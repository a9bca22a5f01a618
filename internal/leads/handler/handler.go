// Package handler exposes the leads module's HTTP endpoints.
package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"painel_leads_backend/internal/leads/repique"
	"painel_leads_backend/internal/leads/repository"
	"painel_leads_backend/internal/leads/transport"
	"painel_leads_backend/platform/apperr"
	"painel_leads_backend/platform/httpkit"
	"painel_leads_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ContactRecorder stamps a lead's first contact.
type ContactRecorder interface {
	RecordFirstContact(ctx context.Context, leadID uuid.UUID, now time.Time) (bool, error)
}

// RepiqueRunner executes one repique tick.
type RepiqueRunner interface {
	Run(ctx context.Context) (repique.Summary, error)
}

type Handler struct {
	contacts ContactRecorder
	engine   RepiqueRunner
	log      *logger.Logger
}

func New(contacts ContactRecorder, engine RepiqueRunner, log *logger.Logger) *Handler {
	return &Handler{contacts: contacts, engine: engine, log: log}
}

// RecordFirstContact handles POST /internal/leads/:leadId/first-contact.
// Recording is idempotent: a second call reports already_recorded.
func (h *Handler) RecordFirstContact(c *gin.Context) {
	leadID, err := uuid.Parse(c.Param("leadId"))
	if err != nil {
		httpkit.HandleError(c, apperr.BadRequest("leadId inválido"))
		return
	}

	recorded, err := h.contacts.RecordFirstContact(c.Request.Context(), leadID, time.Now())
	if errors.Is(err, repository.ErrNotFound) {
		httpkit.HandleError(c, apperr.NotFound("lead não encontrado"))
		return
	}
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, gin.H{
		"success":          true,
		"already_recorded": !recorded,
	})
}

// RunRepique handles POST /internal/repique/run. The scheduler calls this on
// every tick; operators can call it manually to force a pass.
func (h *Handler) RunRepique(c *gin.Context) {
	summary, err := h.engine.Run(c.Request.Context())
	if err != nil {
		h.log.Error("repique run failed", "error", err)
		httpkit.Error(c, http.StatusInternalServerError, "falha ao executar repique", nil)
		return
	}

	httpkit.OK(c, transport.RepiqueRunResponse{
		Success:      true,
		WarningsSent: summary.WarningsSent,
		Processed:    summary.Reassigned,
		Warnings:     toRepiqueDetails(summary.Warnings),
		Details:      toRepiqueDetails(summary.Details),
	})
}

func toRepiqueDetails(details []repique.Detail) []transport.RepiqueDetail {
	out := make([]transport.RepiqueDetail, 0, len(details))
	for _, d := range details {
		detail := transport.RepiqueDetail{
			LeadID:   d.LeadID.String(),
			LeadName: d.LeadName,
			Action:   d.Action,
		}
		if d.ToUserID != uuid.Nil {
			detail.ToUser = d.ToUserID.String()
		}
		if d.Err != nil {
			detail.Error = d.Err.Error()
		}
		out = append(out, detail)
	}
	return out
}
