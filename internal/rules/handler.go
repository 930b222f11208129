package rules

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/richxcame/account-onboarding/pkg/common"
	"github.com/richxcame/account-onboarding/pkg/middleware"
)

// Handler exposes rule management over HTTP
type Handler struct {
	store *Store
}

// NewHandler creates a new rules handler
func NewHandler(store *Store) *Handler {
	return &Handler{store: store}
}

type ruleRequest struct {
	ID        string `json:"id"`
	Name      string `json:"name" validate:"required"`
	Condition string `json:"condition" validate:"required"`
	Action    Action `json:"action" validate:"required"`
	Priority  int    `json:"priority"`
	Enabled   *bool  `json:"enabled"`
}

func (r ruleRequest) toRule(id string) Rule {
	enabled := true
	if r.Enabled != nil {
		enabled = *r.Enabled
	}
	return Rule{
		ID:        id,
		Name:      r.Name,
		Condition: r.Condition,
		Action:    r.Action,
		Priority:  r.Priority,
		Enabled:   enabled,
	}
}

// ListRules returns the active rule set and its version
// GET /api/v1/rules
func (h *Handler) ListRules(c *gin.Context) {
	common.SuccessResponse(c, h.store.Snapshot())
}

// GetRule returns a single rule
// GET /api/v1/rules/:id
func (h *Handler) GetRule(c *gin.Context) {
	rule, ok := h.store.Snapshot().Get(c.Param("id"))
	if !ok {
		common.ErrorResponse(c, http.StatusNotFound, "rule not found")
		return
	}
	common.SuccessResponse(c, rule)
}

// ListActions returns the known actions with the risk level each implies
// GET /api/v1/rules/actions
func (h *Handler) ListActions(c *gin.Context) {
	type actionInfo struct {
		Action   Action `json:"action"`
		Severity string `json:"severity"`
	}
	var out []actionInfo
	for _, a := range Actions() {
		level, _ := a.Severity()
		out = append(out, actionInfo{Action: a, Severity: string(level)})
	}
	common.SuccessResponse(c, out)
}

// CreateRule registers a new rule (admin only)
// POST /api/v1/rules
func (h *Handler) CreateRule(c *gin.Context) {
	var req ruleRequest
	if !middleware.ValidateAndBind(c, &req) {
		return
	}
	if req.ID == "" {
		common.AppErrorResponse(c, common.NewValidationFailedError("validation failed", map[string]string{"id": "id is required"}, nil))
		return
	}

	snap, err := h.store.Add(c.Request.Context(), req.toRule(req.ID))
	if err != nil {
		h.respondError(c, err)
		return
	}

	rule, _ := snap.Get(req.ID)
	common.CreatedResponse(c, gin.H{"version": snap.Version(), "rule": rule})
}

// UpdateRule replaces an existing rule (admin only)
// PUT /api/v1/rules/:id
func (h *Handler) UpdateRule(c *gin.Context) {
	var req ruleRequest
	if !middleware.ValidateAndBind(c, &req) {
		return
	}

	id := c.Param("id")
	snap, err := h.store.Update(c.Request.Context(), req.toRule(id))
	if err != nil {
		h.respondError(c, err)
		return
	}

	rule, _ := snap.Get(id)
	common.SuccessResponse(c, gin.H{"version": snap.Version(), "rule": rule})
}

// DeleteRule removes a rule (admin only)
// DELETE /api/v1/rules/:id
func (h *Handler) DeleteRule(c *gin.Context) {
	snap, err := h.store.Remove(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	common.SuccessResponse(c, gin.H{"version": snap.Version()})
}

// ValidateRule checks a rule without storing it (admin only)
// POST /api/v1/rules/validate
func (h *Handler) ValidateRule(c *gin.Context) {
	var req ruleRequest
	if !middleware.ValidateAndBind(c, &req) {
		return
	}

	id := req.ID
	if id == "" {
		id = "DRAFT"
	}
	if err := h.store.Validate(req.toRule(id)); err != nil {
		common.AppErrorResponse(c, common.NewBadRequestError(err.Error(), err))
		return
	}
	common.SuccessResponse(c, gin.H{"valid": true})
}

func (h *Handler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrInvalidRule):
		common.AppErrorResponse(c, common.NewBadRequestError(err.Error(), err))
	case errors.Is(err, ErrRuleNotFound):
		common.AppErrorResponse(c, common.NewNotFoundError("rule not found", err))
	case errors.Is(err, ErrDuplicateRule):
		common.AppErrorResponse(c, common.NewConflictError(err.Error()))
	default:
		common.ErrorResponse(c, http.StatusInternalServerError, "failed to update rule set")
	}
}

// RegisterRoutes registers rule routes. Reads are open; writes need an admin token.
func (h *Handler) RegisterRoutes(r *gin.Engine, jwtSecret string) {
	rules := r.Group("/api/v1/rules")
	{
		rules.GET("", h.ListRules)
		rules.GET("/actions", h.ListActions)
		rules.GET("/:id", h.GetRule)
	}

	admin := r.Group("/api/v1/rules")
	admin.Use(middleware.AuthMiddleware(jwtSecret))
	admin.Use(middleware.RequireRole(middleware.RoleAdmin))
	{
		admin.POST("", h.CreateRule)
		admin.POST("/validate", h.ValidateRule)
		admin.PUT("/:id", h.UpdateRule)
		admin.DELETE("/:id", h.DeleteRule)
	}
}
