package directory

import (
	"net/http"
	"time"

	apphttp "painel_leads_backend/internal/http"
	"painel_leads_backend/internal/rotation"
	"painel_leads_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Module exposes admin endpoints over companies and users.
type Module struct {
	repo     *Repository
	selector *rotation.Selector
}

func NewModule(repo *Repository, selector *rotation.Selector) *Module {
	return &Module{repo: repo, selector: selector}
}

func (m *Module) Name() string { return "directory" }

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Admin.GET("/users", m.handleListUsers)
	ctx.Admin.GET("/companies/:companyId/rotation/next", m.handleRotationNext)
	ctx.Admin.GET("/companies/:companyId/repique", m.handleGetRepiqueSettings)
	ctx.Admin.PATCH("/companies/:companyId/repique", m.handleUpdateRepiqueSettings)
}

type userResponse struct {
	ID               uuid.UUID  `json:"id"`
	TeamID           *uuid.UUID `json:"teamId,omitempty"`
	Name             string     `json:"name"`
	Email            string     `json:"email"`
	Role             string     `json:"role"`
	Status           string     `json:"status"`
	LastLeadReceived *time.Time `json:"lastLeadReceived,omitempty"`
}

func (m *Module) handleListUsers(c *gin.Context) {
	companyID, err := uuid.Parse(c.Query("companyId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid companyId", nil)
		return
	}

	users, err := m.repo.ListUsers(c.Request.Context(), companyID)
	if httpkit.HandleError(c, err) {
		return
	}

	result := make([]userResponse, len(users))
	for i, u := range users {
		result[i] = userResponse{
			ID:               u.ID,
			TeamID:           u.TeamID,
			Name:             u.Name,
			Email:            u.Email,
			Role:             u.Role,
			Status:           u.Status,
			LastLeadReceived: u.LastLeadReceived,
		}
	}
	httpkit.OK(c, result)
}

// handleRotationNext previews who receives the next lead without advancing
// the rotation cursor.
func (m *Module) handleRotationNext(c *gin.Context) {
	companyID, err := uuid.Parse(c.Param("companyId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid companyId", nil)
		return
	}

	var teamID *uuid.UUID
	if raw := c.Query("teamId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, "invalid teamId", nil)
			return
		}
		teamID = &id
	}

	next, err := m.selector.Peek(c.Request.Context(), companyID, nil, teamID)
	if httpkit.HandleError(c, err) {
		return
	}
	if next == nil {
		httpkit.OK(c, gin.H{"next": nil})
		return
	}
	httpkit.OK(c, gin.H{"next": gin.H{
		"userId":           next.ID,
		"name":             next.Name,
		"lastLeadReceived": next.LastLeadReceived,
	}})
}

type repiqueSettingsResponse struct {
	CompanyID          uuid.UUID `json:"companyId"`
	AutoRepiqueEnabled bool      `json:"autoRepiqueEnabled"`
	AutoRepiqueMinutes int       `json:"autoRepiqueMinutes"`
	InitialStage       string    `json:"initialStage"`
}

type updateRepiqueSettingsRequest struct {
	AutoRepiqueEnabled bool `json:"autoRepiqueEnabled"`
	AutoRepiqueMinutes int  `json:"autoRepiqueMinutes" binding:"min=0,max=1440"`
}

func (m *Module) handleGetRepiqueSettings(c *gin.Context) {
	companyID, err := uuid.Parse(c.Param("companyId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid companyId", nil)
		return
	}

	company, err := m.repo.GetCompany(c.Request.Context(), companyID)
	if err == ErrCompanyNotFound {
		httpkit.Error(c, http.StatusNotFound, "company not found", nil)
		return
	}
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, toRepiqueSettings(company))
}

func (m *Module) handleUpdateRepiqueSettings(c *gin.Context) {
	companyID, err := uuid.Parse(c.Param("companyId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid companyId", nil)
		return
	}

	var req updateRepiqueSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if req.AutoRepiqueEnabled && req.AutoRepiqueMinutes < 1 {
		httpkit.Error(c, http.StatusBadRequest, "autoRepiqueMinutes must be at least 1 when enabled", nil)
		return
	}

	company, err := m.repo.UpdateRepiqueSettings(c.Request.Context(), companyID, req.AutoRepiqueEnabled, req.AutoRepiqueMinutes)
	if err == ErrCompanyNotFound {
		httpkit.Error(c, http.StatusNotFound, "company not found", nil)
		return
	}
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, toRepiqueSettings(company))
}

func toRepiqueSettings(c Company) repiqueSettingsResponse {
	return repiqueSettingsResponse{
		CompanyID:          c.ID,
		AutoRepiqueEnabled: c.AutoRepiqueEnabled,
		AutoRepiqueMinutes: c.AutoRepiqueMinutes,
		InitialStage:       c.InitialStage,
	}
}
