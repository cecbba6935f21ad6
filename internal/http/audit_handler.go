package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"workorder-service/internal/service"
)

func (h *Handler) listAuditByModel(c *gin.Context) {
	model := c.Query("model")
	if model == "" {
		c.JSON(http.StatusBadRequest, errorResponse("model is required"))
		return
	}
	h.listAudit(c, service.AuditQuery{Model: model})
}

func (h *Handler) listAuditByUser(c *gin.Context) {
	user := c.Query("user")
	if user == "" {
		c.JSON(http.StatusBadRequest, errorResponse("user is required"))
		return
	}
	h.listAudit(c, service.AuditQuery{User: user})
}

func (h *Handler) listAudit(c *gin.Context, query service.AuditQuery) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	limit, ok := queryLimit(c)
	if !ok {
		return
	}
	query.Limit = limit

	entries, err := h.auditService.List(c.Request.Context(), principal, query)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Audit log retrieved.", entries))
}
