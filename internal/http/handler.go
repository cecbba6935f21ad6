package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"workorder-service/internal/http/middleware"
	"workorder-service/internal/model"
	"workorder-service/internal/service"
)

type Handler struct {
	workOrderService *service.WorkOrderService
	taskService      *service.TaskService
	templateService  *service.TaskTemplateService
	clientService    *service.ClientService
	userService      *service.UserService
	auditService     *service.AuditService
	log              zerolog.Logger
}

func NewHandler(
	workOrderService *service.WorkOrderService,
	taskService *service.TaskService,
	templateService *service.TaskTemplateService,
	clientService *service.ClientService,
	userService *service.UserService,
	auditService *service.AuditService,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		workOrderService: workOrderService,
		taskService:      taskService,
		templateService:  templateService,
		clientService:    clientService,
		userService:      userService,
		auditService:     auditService,
		log:              log,
	}
}

// Register mounts every route. loginLimit guards the credential endpoints.
func (h *Handler) Register(r *gin.Engine, authMiddleware, loginLimit gin.HandlerFunc) {
	public := r.Group("/")
	{
		public.POST("/userlogin", loginLimit, h.login)
		public.POST("/userregisteradmin", loginLimit, h.registerAdmin)
		public.GET("/usercheckadmin", h.checkAdmin)
		public.PATCH("/userconfirm", loginLimit, h.confirmUser)
	}

	protected := r.Group("/")
	protected.Use(authMiddleware)

	{
		protected.POST("/workorder", h.createWorkOrder)
		protected.GET("/workorder", h.listWorkOrders)
		protected.GET("/workorder/:id", h.getWorkOrder)
		protected.PUT("/workorder/:id", h.updateWorkOrder)
		protected.DELETE("/workorder/:id", h.deleteWorkOrder)
		protected.PATCH("/workorderupdatestatus/:id", h.updateWorkOrderStatus)
		protected.GET("/workorderbyclient/:id", h.listWorkOrdersByClient)
		protected.GET("/workorderbytechnician/:id", h.listWorkOrdersByTechnician)
		protected.GET("/workorderreport/:id", h.workOrderReport)
		protected.GET("/workordersreject", h.listRejectedWorkOrders)
		protected.GET("/workorderstoapprove", h.listWorkOrdersToApprove)
	}

	// tasks and evidence
	{
		protected.GET("/workorder/:id/tasks", h.listTasks)
		protected.POST("/workorder/:id/tasks", h.addTask)
		protected.PATCH("/workordertask/:id", h.updateTaskStatus)
		protected.GET("/workordertask/:id/evidence", h.listEvidence)
		protected.POST("/workordertask/:id/evidence", h.addEvidence)
		protected.PATCH("/taskevidence/:id", h.reviewEvidence)
	}

	{
		protected.POST("/tasktemplate", h.createTemplate)
		protected.GET("/tasktemplate", h.listTemplates)
		protected.GET("/tasktemplate/:id", h.getTemplate)
		protected.PATCH("/tasktemplate/:id", h.updateTemplate)
		protected.DELETE("/tasktemplate/:id", h.deleteTemplate)
		protected.GET("/tasktemplatebyservicetype", h.listTemplatesByServiceType)
		protected.GET("/tasktemplatesearch", h.searchTemplates)
	}

	{
		protected.POST("/client", h.createClient)
		protected.GET("/client", h.listClients)
		protected.GET("/client/:id", h.getClient)
		protected.PATCH("/client/:id", h.updateClient)
		protected.DELETE("/client/:id", h.deleteClient)
		protected.GET("/clientbyemail", h.getClientByEmail)
		protected.GET("/clientsearch", h.searchClients)
	}

	{
		protected.PATCH("/userclosesession/:id", h.closeSession)
		protected.POST("/user", h.createUser)
		protected.GET("/user", h.listUsers)
		protected.GET("/user/:id", h.getUser)
		protected.DELETE("/user/:id", h.deleteUser)
		protected.GET("/usertechnician", h.listUsersByRole(model.RoleTechnician))
		protected.GET("/usersupervisor", h.listUsersByRole(model.RoleSupervisor))
	}

	{
		protected.GET("/auditlogbymodel", h.listAuditByModel)
		protected.GET("/auditlogbyuser", h.listAuditByUser)
	}
}

func (h *Handler) principal(c *gin.Context) (model.Principal, bool) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("missing principal"))
	}
	return principal, ok
}

func (h *Handler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrValidation), errors.Is(err, service.ErrNoChanges):
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
	case errors.Is(err, service.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, errorResponse(err.Error()))
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, errorResponse(err.Error()))
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, errorResponse(err.Error()))
	case errors.Is(err, service.ErrSchedulingConflict), errors.Is(err, service.ErrDuplicateKey):
		c.JSON(http.StatusConflict, errorResponse(err.Error()))
	case errors.Is(err, service.ErrReferentialIntegrity):
		c.JSON(http.StatusUnprocessableEntity, errorResponse(err.Error()))
	case errors.Is(err, service.ErrNotificationFailed):
		c.JSON(http.StatusBadGateway, errorResponse(err.Error()))
	default:
		h.log.Error().Err(err).Str("path", c.FullPath()).Msg("handler error")
		c.JSON(http.StatusInternalServerError, errorResponse("internal error"))
	}
}

func successResponse(message string, data any) gin.H {
	return gin.H{
		"ok":      true,
		"message": message,
		"data":    data,
	}
}

func errorResponse(message string) gin.H {
	return gin.H{
		"ok":      false,
		"message": message,
	}
}

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("invalid request body: "+err.Error()))
		return false
	}
	return true
}

func queryLimit(c *gin.Context) (int, bool) {
	raw := strings.TrimSpace(c.Query("limit"))
	if raw == "" {
		return 0, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		c.JSON(http.StatusBadRequest, errorResponse("limit must be a non-negative integer"))
		return 0, false
	}
	return limit, true
}
