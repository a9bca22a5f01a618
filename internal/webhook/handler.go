package webhook

import (
	"context"
	"net/http"

	"painel_leads_backend/internal/leads/intake"
	"painel_leads_backend/internal/leads/transport"
	"painel_leads_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// LeadCreator is the intake surface the webhook depends on.
type LeadCreator interface {
	Create(ctx context.Context, target intake.Target, req transport.CreateLeadWebhookRequest) (transport.IntakeResponse, error)
}

// Handler handles webhook HTTP requests.
type Handler struct {
	creator LeadCreator
	repo    *Repository
}

func NewHandler(creator LeadCreator, repo *Repository) *Handler {
	return &Handler{creator: creator, repo: repo}
}

// ---- Lead submission (public, API-key authenticated) ----

// HandleCreateLead processes an inbound lead.
// POST /api/v1/webhook/leads
// Authenticated via X-Webhook-API-Key header (set by middleware).
func (h *Handler) HandleCreateLead(c *gin.Context) {
	key, ok := keyFromContext(c)
	if !ok {
		httpkit.Error(c, http.StatusUnauthorized, "no API key context", nil)
		return
	}

	var req transport.CreateLeadWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	resp, err := h.creator.Create(c.Request.Context(), intake.Target{
		CompanyID:    key.CompanyID,
		TeamID:       key.TeamID,
		InitialStage: key.InitialStage,
		Source:       "webhook:" + key.Name,
	}, req)
	if httpkit.HandleError(c, err) {
		return
	}

	status := http.StatusCreated
	if resp.IsDuplicate {
		status = http.StatusOK
	}
	c.JSON(status, resp)
}

// ---- Admin API key management (service-key authenticated) ----

// CreateAPIKeyRequest is the request body for creating a new API key.
type CreateAPIKeyRequest struct {
	CompanyID    uuid.UUID  `json:"companyId" binding:"required"`
	TeamID       *uuid.UUID `json:"teamId"`
	Name         string     `json:"name" binding:"required,min=1,max=100"`
	InitialStage string     `json:"initialStage" binding:"omitempty,max=50"`
}

// APIKeyResponse is returned when listing or creating API keys.
type APIKeyResponse struct {
	ID           uuid.UUID  `json:"id"`
	CompanyID    uuid.UUID  `json:"companyId"`
	TeamID       *uuid.UUID `json:"teamId,omitempty"`
	Name         string     `json:"name"`
	KeyPrefix    string     `json:"keyPrefix"`
	InitialStage string     `json:"initialStage"`
	IsActive     bool       `json:"isActive"`
	CreatedAt    string     `json:"createdAt"`
}

// CreateAPIKeyResponse includes the plaintext key (shown only once).
type CreateAPIKeyResponse struct {
	APIKeyResponse
	Key string `json:"key"`
}

func toAPIKeyResponse(key APIKey) APIKeyResponse {
	return APIKeyResponse{
		ID:           key.ID,
		CompanyID:    key.CompanyID,
		TeamID:       key.TeamID,
		Name:         key.Name,
		KeyPrefix:    key.KeyPrefix,
		InitialStage: key.InitialStage,
		IsActive:     key.IsActive,
		CreatedAt:    key.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

// HandleCreateAPIKey creates a new webhook API key.
// POST /api/v1/admin/webhook/keys
func (h *Handler) HandleCreateAPIKey(c *gin.Context) {
	var req CreateAPIKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	plaintext, hash, prefix, err := GenerateAPIKey()
	if err != nil {
		httpkit.Error(c, http.StatusInternalServerError, "failed to generate API key", nil)
		return
	}

	stage := req.InitialStage
	if stage == "" {
		stage = "novo"
	}

	key, err := h.repo.Create(c.Request.Context(), CreateParams{
		CompanyID:    req.CompanyID,
		TeamID:       req.TeamID,
		Name:         req.Name,
		KeyHash:      hash,
		KeyPrefix:    prefix,
		InitialStage: stage,
	})
	if httpkit.HandleError(c, err) {
		return
	}

	c.JSON(http.StatusCreated, CreateAPIKeyResponse{
		APIKeyResponse: toAPIKeyResponse(key),
		Key:            plaintext,
	})
}

// HandleListAPIKeys lists webhook API keys for a company.
// GET /api/v1/admin/webhook/keys?companyId=...
func (h *Handler) HandleListAPIKeys(c *gin.Context) {
	companyID, err := uuid.Parse(c.Query("companyId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid companyId", nil)
		return
	}

	keys, err := h.repo.ListByCompany(c.Request.Context(), companyID)
	if httpkit.HandleError(c, err) {
		return
	}

	result := make([]APIKeyResponse, len(keys))
	for i, k := range keys {
		result[i] = toAPIKeyResponse(k)
	}
	httpkit.OK(c, result)
}

// HandleRevokeAPIKey deactivates a webhook API key.
// DELETE /api/v1/admin/webhook/keys/:keyId?companyId=...
func (h *Handler) HandleRevokeAPIKey(c *gin.Context) {
	keyID, err := uuid.Parse(c.Param("keyId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid key ID", nil)
		return
	}
	companyID, err := uuid.Parse(c.Query("companyId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid companyId", nil)
		return
	}

	if err := h.repo.Revoke(c.Request.Context(), keyID, companyID); err != nil {
		if err == ErrAPIKeyNotFound {
			httpkit.Error(c, http.StatusNotFound, "API key not found", nil)
			return
		}
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, gin.H{"success": true})
}
