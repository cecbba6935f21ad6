package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"workorder-service/internal/service"
)

func (h *Handler) createTemplate(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	var req service.CreateTaskTemplateInput
	if !bindJSON(c, &req) {
		return
	}

	template, err := h.templateService.Create(c.Request.Context(), principal, req)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, successResponse("Task template created.", template))
}

// listTemplates returns the whole catalog grouped by service type.
func (h *Handler) listTemplates(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	groups, err := h.templateService.GroupedByServiceType(c.Request.Context(), principal)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Task templates retrieved.", groups))
}

func (h *Handler) getTemplate(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	template, err := h.templateService.Get(c.Request.Context(), principal, c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Task template retrieved.", template))
}

func (h *Handler) updateTemplate(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	var req service.UpdateTaskTemplateInput
	if !bindJSON(c, &req) {
		return
	}

	template, err := h.templateService.Update(c.Request.Context(), principal, c.Param("id"), req)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Task template updated.", template))
}

func (h *Handler) deleteTemplate(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	if err := h.templateService.Delete(c.Request.Context(), principal, c.Param("id")); err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Task template deleted.", nil))
}

func (h *Handler) listTemplatesByServiceType(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	serviceType := c.Query("serviceType")
	if serviceType == "" {
		c.JSON(http.StatusBadRequest, errorResponse("serviceType is required"))
		return
	}

	templates, err := h.templateService.List(c.Request.Context(), principal, serviceType)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Task templates retrieved.", templates))
}

func (h *Handler) searchTemplates(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	templates, err := h.templateService.Search(c.Request.Context(), principal, c.Query("search"))
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Task templates retrieved.", templates))
}
