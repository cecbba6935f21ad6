package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"workorder-service/internal/service"
)

func (h *Handler) listTasks(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	tasks, err := h.taskService.ListTasks(c.Request.Context(), principal, c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Tasks retrieved.", tasks))
}

func (h *Handler) addTask(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	var req service.AddTaskInput
	if !bindJSON(c, &req) {
		return
	}

	task, err := h.taskService.AddTask(c.Request.Context(), principal, c.Param("id"), req)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, successResponse("Task added.", task))
}

func (h *Handler) updateTaskStatus(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	var req service.UpdateTaskStatusInput
	if !bindJSON(c, &req) {
		return
	}

	task, err := h.taskService.UpdateTaskStatus(c.Request.Context(), principal, c.Param("id"), req)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Task updated.", task))
}

func (h *Handler) listEvidence(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	evidences, err := h.taskService.ListEvidence(c.Request.Context(), principal, c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Evidence retrieved.", evidences))
}

func (h *Handler) addEvidence(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	var req service.AddEvidenceInput
	if !bindJSON(c, &req) {
		return
	}

	evidence, err := h.taskService.AddEvidence(c.Request.Context(), principal, c.Param("id"), req)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, successResponse("Evidence added.", evidence))
}

func (h *Handler) reviewEvidence(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	var req service.ReviewEvidenceInput
	if !bindJSON(c, &req) {
		return
	}

	evidence, err := h.taskService.ReviewEvidence(c.Request.Context(), principal, c.Param("id"), req)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Evidence reviewed.", evidence))
}
