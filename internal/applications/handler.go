package applications

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/richxcame/account-onboarding/internal/integrations"
	"github.com/richxcame/account-onboarding/pkg/common"
	"github.com/richxcame/account-onboarding/pkg/middleware"
	"github.com/richxcame/account-onboarding/pkg/pagination"
)

// Handler exposes the workflow over HTTP
type Handler struct {
	service    *Service
	dispatcher *Dispatcher
}

// NewHandler creates a handler. With a non-nil dispatcher, submitted
// applications are queued for processing.
func NewHandler(service *Service, dispatcher *Dispatcher) *Handler {
	return &Handler{service: service, dispatcher: dispatcher}
}

// CreateApplication opens a draft
// POST /api/v1/applications
func (h *Handler) CreateApplication(c *gin.Context) {
	var req CreateApplicationRequest
	if !middleware.ValidateAndBind(c, &req) {
		return
	}

	app, err := h.service.Create(c.Request.Context(), &req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	common.CreatedResponse(c, app)
}

// ListApplications lists applications newest first
// GET /api/v1/applications?status=&limit=&offset=
func (h *Handler) ListApplications(c *gin.Context) {
	params := pagination.ParseParams(c)
	apps, err := h.service.List(c.Request.Context(), ListFilter{
		Status: Status(c.Query("status")),
		Limit:  params.Limit,
		Offset: params.Offset,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	common.SuccessResponse(c, gin.H{
		"applications": apps,
		"limit":        params.Limit,
		"offset":       params.Offset,
	})
}

// GetApplication returns an application
// GET /api/v1/applications/:id
func (h *Handler) GetApplication(c *gin.Context) {
	app, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	common.SuccessResponse(c, app)
}

// GetStatus returns stage, status, risk level and rationale
// GET /api/v1/applications/:id/status
func (h *Handler) GetStatus(c *gin.Context) {
	view, err := h.service.GetStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	common.SuccessResponse(c, view)
}

// ValidateApplication reports field checks without changing state
// POST /api/v1/applications/:id/validate
func (h *Handler) ValidateApplication(c *gin.Context) {
	report, err := h.service.Validate(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	common.SuccessResponse(c, report)
}

// SubmitApplication moves a draft to submitted
// POST /api/v1/applications/:id/submit
func (h *Handler) SubmitApplication(c *gin.Context) {
	app, err := h.service.Submit(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	queued := false
	if h.dispatcher != nil && app.Status == StatusSubmitted {
		queued = h.dispatcher.Enqueue(app.ID)
	}
	common.SuccessResponseWithStatus(c, http.StatusAccepted, gin.H{"application": app, "queued": queued})
}

// ProcessApplication runs every pending automated stage
// POST /api/v1/applications/:id/process
func (h *Handler) ProcessApplication(c *gin.Context) {
	app, err := h.service.Process(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	common.SuccessResponse(c, app)
}

// ListWorkflows returns the workflow catalog
// GET /api/v1/workflows
func (h *Handler) ListWorkflows(c *gin.Context) {
	common.SuccessResponse(c, h.service.Workflows())
}

func (h *Handler) respondError(c *gin.Context, err error) {
	var verr *ValidationError
	var cfgErr *integrations.ConfigurationError
	var appErr *common.AppError

	switch {
	case errors.As(err, &verr):
		common.AppErrorResponse(c, common.NewValidationFailedError("validation failed", verr.Errors, err))
	case errors.Is(err, ErrNotFound):
		common.AppErrorResponse(c, common.NewNotFoundError("application not found", err))
	case errors.Is(err, ErrConcurrencyConflict):
		common.AppErrorResponse(c, common.NewConflictError(err.Error()))
	case errors.Is(err, ErrStaleRuleSet):
		common.AppErrorResponse(c, common.NewConflictError("rule set changed during processing, retry"))
	case errors.Is(err, ErrUnknownAccountType):
		common.AppErrorResponse(c, common.NewBadRequestError(err.Error(), err))
	case errors.As(err, &cfgErr):
		common.AppErrorResponse(c, common.NewAppError(http.StatusUnprocessableEntity, "application sent to review: "+cfgErr.Error(), err))
	case errors.As(err, &appErr):
		common.AppErrorResponse(c, appErr)
	default:
		common.AppErrorResponse(c, common.NewInternalError("failed to process request", err))
	}
}

// RegisterRoutes registers application and workflow routes
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	apps := r.Group("/api/v1/applications")
	{
		apps.POST("", h.CreateApplication)
		apps.GET("", h.ListApplications)
		apps.GET("/:id", h.GetApplication)
		apps.GET("/:id/status", h.GetStatus)
		apps.POST("/:id/validate", h.ValidateApplication)
		apps.POST("/:id/submit", h.SubmitApplication)
		apps.POST("/:id/process", h.ProcessApplication)
	}

	r.GET("/api/v1/workflows", h.ListWorkflows)
}
