package notification

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"painel_leads_backend/internal/events"
	apphttp "painel_leads_backend/internal/http"
	"painel_leads_backend/internal/notification/push"
	"painel_leads_backend/platform/httpkit"
	"painel_leads_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Module is the notification bounded context: it listens to lead events and
// pushes them to the users involved, and exposes subscription management.
type Module struct {
	sender *push.Sender
	repo   *Repository
	log    *logger.Logger
}

func NewModule(repo *Repository, sender *push.Sender, log *logger.Logger) *Module {
	return &Module{sender: sender, repo: repo, log: log}
}

func (m *Module) Name() string { return "notification" }

// RegisterHandlers subscribes to all relevant domain events on the event bus.
func (m *Module) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.LeadCreated{}.EventName(), m)
	bus.Subscribe(events.RepiqueWarning{}.EventName(), m)
	bus.Subscribe(events.LeadReassigned{}.EventName(), m)
	m.log.Info("notification module registered event handlers")
}

// Handle routes events to the appropriate handler method.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.LeadCreated:
		return m.handleLeadCreated(ctx, e)
	case events.RepiqueWarning:
		return m.handleRepiqueWarning(ctx, e)
	case events.LeadReassigned:
		return m.handleLeadReassigned(ctx, e)
	default:
		return nil
	}
}

func (m *Module) handleLeadCreated(ctx context.Context, e events.LeadCreated) error {
	return m.sender.SendToUser(ctx, e.OwnerUserID, push.Message{
		Title: "Novo lead para você",
		Body:  fmt.Sprintf("%s acabou de chegar. Entre em contato!", e.LeadName),
		Data: map[string]string{
			"type":    "lead_created",
			"lead_id": e.LeadID.String(),
		},
	})
}

func (m *Module) handleRepiqueWarning(ctx context.Context, e events.RepiqueWarning) error {
	minutes := int(e.Remaining.Round(time.Minute) / time.Minute)
	if minutes < 1 {
		minutes = 1
	}
	return m.sender.SendToUser(ctx, e.OwnerUserID, push.Message{
		Title: "Lead prestes a ser repicado",
		Body:  fmt.Sprintf("%s ainda não recebeu contato. Você tem %d min antes do repique.", e.LeadName, minutes),
		Data: map[string]string{
			"type":    "repique_warning",
			"lead_id": e.LeadID.String(),
		},
	})
}

func (m *Module) handleLeadReassigned(ctx context.Context, e events.LeadReassigned) error {
	return m.sender.SendToUser(ctx, e.ToUserID, push.Message{
		Title: "Lead repicado para você",
		Body:  fmt.Sprintf("%s foi transferido para você. Entre em contato!", e.LeadName),
		Data: map[string]string{
			"type":    "lead_reassigned",
			"lead_id": e.LeadID.String(),
		},
	})
}

// ---- HTTP ----

type subscribeRequest struct {
	UserID   uuid.UUID `json:"userId" binding:"required"`
	Endpoint string    `json:"endpoint" binding:"required,url,max=2000"`
}

type dispatchRequest struct {
	UserID uuid.UUID         `json:"userId" binding:"required"`
	Title  string            `json:"title" binding:"required,max=200"`
	Body   string            `json:"body" binding:"required,max=1000"`
	Data   map[string]string `json:"data"`
}

// RegisterRoutes mounts subscription management and the internal dispatch
// endpoint.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.V1.POST("/push/subscriptions", m.handleSubscribe)
	ctx.V1.DELETE("/push/subscriptions", m.handleUnsubscribe)
	ctx.Internal.POST("/notifications/dispatch", m.handleDispatch)
}

func (m *Module) handleSubscribe(c *gin.Context) {
	var req subscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	sub, err := m.repo.Upsert(c.Request.Context(), req.UserID, req.Endpoint)
	if httpkit.HandleError(c, err) {
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "id": sub.ID})
}

func (m *Module) handleUnsubscribe(c *gin.Context) {
	var req subscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if err := m.repo.Delete(c.Request.Context(), req.UserID, req.Endpoint); err != nil {
		if err == ErrSubscriptionNotFound {
			httpkit.Error(c, http.StatusNotFound, "subscription not found", nil)
			return
		}
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, gin.H{"success": true})
}

// handleDispatch sends an ad-hoc notification to a user. Trusted callers
// only. Returns 500 only when no gateway is configured; delivery failures to
// individual endpoints are best effort.
func (m *Module) handleDispatch(c *gin.Context) {
	var req dispatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if !m.sender.Enabled() {
		httpkit.Error(c, http.StatusInternalServerError, "push gateway not configured", nil)
		return
	}

	if err := m.sender.SendToUser(c.Request.Context(), req.UserID, push.Message{
		Title: req.Title,
		Body:  req.Body,
		Data:  req.Data,
	}); err != nil {
		m.log.Error("dispatch delivery incomplete", "user_id", req.UserID, "error", err)
	}
	httpkit.OK(c, gin.H{"success": true, "message": "notificação enviada"})
}
