// Package leads wires the lead intake and repique components into the HTTP
// server.
package leads

import (
	apphttp "painel_leads_backend/internal/http"
	"painel_leads_backend/internal/leads/handler"
	"painel_leads_backend/internal/leads/intake"
	"painel_leads_backend/internal/leads/repique"
	"painel_leads_backend/internal/leads/repository"
	"painel_leads_backend/platform/logger"
)

type Module struct {
	Intake  *intake.Service
	Engine  *repique.Engine
	handler *handler.Handler
}

// NewModule builds the leads module on the shared repository, warn guard,
// and event bus.
func NewModule(repo *repository.Repository, svc *intake.Service, engine *repique.Engine, log *logger.Logger) *Module {
	return &Module{
		Intake:  svc,
		Engine:  engine,
		handler: handler.New(repo, engine, log),
	}
}

func (m *Module) Name() string { return "leads" }

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Internal.POST("/repique/run", m.handler.RunRepique)
	ctx.Internal.POST("/leads/:leadId/first-contact", m.handler.RecordFirstContact)
}
