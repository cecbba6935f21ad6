package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"workorder-service/internal/service"
)

func (h *Handler) createClient(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	var req service.ClientInput
	if !bindJSON(c, &req) {
		return
	}

	client, err := h.clientService.Create(c.Request.Context(), principal, req)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, successResponse("Client created.", client))
}

func (h *Handler) listClients(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	clients, err := h.clientService.List(c.Request.Context(), principal)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Clients retrieved.", clients))
}

func (h *Handler) getClient(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	client, err := h.clientService.Get(c.Request.Context(), principal, c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Client retrieved.", client))
}

func (h *Handler) getClientByEmail(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	client, err := h.clientService.GetByEmail(c.Request.Context(), principal, c.Query("clientEmail"))
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Client retrieved.", client))
}

func (h *Handler) searchClients(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	clients, err := h.clientService.Search(c.Request.Context(), principal, c.Query("search"))
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Clients retrieved.", clients))
}

func (h *Handler) updateClient(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	var req service.UpdateClientInput
	if !bindJSON(c, &req) {
		return
	}

	client, err := h.clientService.Update(c.Request.Context(), principal, c.Param("id"), req)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Client updated.", client))
}

func (h *Handler) deleteClient(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	if err := h.clientService.Delete(c.Request.Context(), principal, c.Param("id")); err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Client deleted.", nil))
}
