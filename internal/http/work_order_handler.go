package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"workorder-service/internal/model"
	"workorder-service/internal/service"
)

type workOrderPayload struct {
	WorkOrder *model.WorkOrder      `json:"workOrder"`
	Tasks     []model.WorkOrderTask `json:"tasks,omitempty"`
}

func workOrderData(result *service.WorkOrderResult) workOrderPayload {
	return workOrderPayload{WorkOrder: result.WorkOrder, Tasks: result.Tasks}
}

func (h *Handler) createWorkOrder(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	var req service.CreateWorkOrderInput
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.workOrderService.Create(c.Request.Context(), principal, req)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, successResponse(result.Message, workOrderData(result)))
}

func (h *Handler) listWorkOrders(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	orders, err := h.workOrderService.List(c.Request.Context(), principal)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Work orders retrieved.", orders))
}

func (h *Handler) getWorkOrder(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	order, err := h.workOrderService.GetByID(c.Request.Context(), principal, c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Work order retrieved.", order))
}

func (h *Handler) updateWorkOrder(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	var req service.UpdateWorkOrderInput
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.workOrderService.Update(c.Request.Context(), principal, c.Param("id"), req)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(result.Message, workOrderData(result)))
}

func (h *Handler) updateWorkOrderStatus(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	var req service.UpdateStatusInput
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.workOrderService.UpdateStatus(c.Request.Context(), principal, c.Param("id"), req)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(result.Message, workOrderData(result)))
}

func (h *Handler) deleteWorkOrder(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	if err := h.workOrderService.Delete(c.Request.Context(), principal, c.Param("id")); err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Work order deleted.", nil))
}

func (h *Handler) listWorkOrdersByClient(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	orders, err := h.workOrderService.ListByClient(c.Request.Context(), principal, c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Work orders retrieved.", orders))
}

func (h *Handler) listWorkOrdersByTechnician(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	orders, err := h.workOrderService.ListByTechnician(c.Request.Context(), principal, c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Work orders retrieved.", orders))
}

func (h *Handler) workOrderReport(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	report, err := h.workOrderService.Report(c.Request.Context(), principal, c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Work order report generated.", report))
}

func (h *Handler) listRejectedWorkOrders(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	orders, err := h.workOrderService.ListRejected(c.Request.Context(), principal)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Rejected work orders retrieved.", orders))
}

func (h *Handler) listWorkOrdersToApprove(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	orders, err := h.workOrderService.ListPendingApproval(c.Request.Context(), principal)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Work orders pending approval retrieved.", orders))
}
