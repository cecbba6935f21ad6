package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"workorder-service/internal/model"
	"workorder-service/internal/service"
)

func (h *Handler) login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.userService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Login successful.", result))
}

func (h *Handler) closeSession(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	if err := h.userService.Logout(c.Request.Context(), principal, c.Param("id")); err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Session closed.", nil))
}

func (h *Handler) registerAdmin(c *gin.Context) {
	var req service.UserInput
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.userService.RegisterAdmin(c.Request.Context(), req)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, successResponse("Administrator registered.", user))
}

func (h *Handler) checkAdmin(c *gin.Context) {
	exists, err := h.userService.HasAdministrator(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Administrator check completed.", gin.H{"hasAdministrator": exists}))
}

// confirmUser accepts the token from the confirmation link query string
// when the body leaves it out.
func (h *Handler) confirmUser(c *gin.Context) {
	var req service.ConfirmInput
	if !bindJSON(c, &req) {
		return
	}
	if req.Token == "" {
		req.Token = c.Query("token")
	}

	user, err := h.userService.Confirm(c.Request.Context(), req)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Account confirmed.", user))
}

func (h *Handler) createUser(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	var req service.UserInput
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.userService.Create(c.Request.Context(), principal, req)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, successResponse(result.Message, result.User))
}

func (h *Handler) listUsers(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	users, err := h.userService.List(c.Request.Context(), principal, c.Query("userRole"))
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Users retrieved.", users))
}

func (h *Handler) listUsersByRole(role model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := h.principal(c)
		if !ok {
			return
		}

		users, err := h.userService.List(c.Request.Context(), principal, string(role))
		if err != nil {
			h.handleError(c, err)
			return
		}

		c.JSON(http.StatusOK, successResponse("Users retrieved.", users))
	}
}

func (h *Handler) getUser(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	user, err := h.userService.Get(c.Request.Context(), principal, c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("User retrieved.", user))
}

func (h *Handler) deleteUser(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	result, err := h.userService.Delete(c.Request.Context(), principal, c.Param("id"), c.Query("userDeletionCause"))
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(result.Message, gin.H{"deactivated": result.Deactivated}))
}
