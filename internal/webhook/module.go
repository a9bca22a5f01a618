// Package webhook module wiring and route registration.
package webhook

import (
	apphttp "painel_leads_backend/internal/http"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the webhook bounded context module implementing http.Module.
type Module struct {
	handler *Handler
	repo    *Repository
}

func NewModule(pool *pgxpool.Pool, creator LeadCreator) *Module {
	repo := NewRepository(pool)
	return &Module{
		handler: NewHandler(creator, repo),
		repo:    repo,
	}
}

func (m *Module) Name() string { return "webhook" }

// RegisterRoutes mounts webhook routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	// Public lead capture (API key auth)
	webhookGroup := ctx.V1.Group("/webhook")
	webhookGroup.Use(APIKeyAuthMiddleware(m.repo))
	webhookGroup.POST("/leads", m.handler.HandleCreateLead)

	// Admin API key management (service key auth)
	adminGroup := ctx.Admin.Group("/webhook/keys")
	adminGroup.POST("", m.handler.HandleCreateAPIKey)
	adminGroup.GET("", m.handler.HandleListAPIKeys)
	adminGroup.DELETE("/:keyId", m.handler.HandleRevokeAPIKey)
}
