package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/org-backoffice-api/internal/constants"
	"github.com/yukikurage/org-backoffice-api/internal/dto"
	apierrors "github.com/yukikurage/org-backoffice-api/internal/errors"
	"github.com/yukikurage/org-backoffice-api/internal/middleware"
	"github.com/yukikurage/org-backoffice-api/internal/models"
	"github.com/yukikurage/org-backoffice-api/internal/services"
	"github.com/yukikurage/org-backoffice-api/internal/utils"
)

// UserHandler serves the user management endpoints.
type UserHandler struct {
	userService *services.UserService
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// ListUsers returns a page of users
func (h *UserHandler) ListUsers(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	users, pagination, err := h.userService.List(c.Request.Context(), params.Page, params.Limit)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToUserListResponse(users, pagination))
}

// GetUser returns a single user
func (h *UserHandler) GetUser(c *gin.Context) {
	user, err := h.userService.FindByID(c.Request.Context(), c.Param(constants.ParamUserID))
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToUserDTO(*user))
}

// UpdateUser updates a user. Callers may edit themselves; admins may edit anyone
// and are the only ones allowed to change role or active state.
func (h *UserHandler) UpdateUser(c *gin.Context) {
	callerUserID, ok := callerID(c)
	if !ok {
		return
	}
	role, _ := middleware.GetUserRole(c)
	isAdmin := role == models.UserRoleAdmin

	targetID := c.Param(constants.ParamUserID)
	if targetID != callerUserID && !isAdmin {
		apierrors.Forbidden(c, "You can only update your own account")
		return
	}

	var req dto.UpdateUserRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.HasPrivilegedFields() && !isAdmin {
		apierrors.Forbidden(c, "Only administrators can change role or active state")
		return
	}

	user, err := h.userService.Update(c.Request.Context(), targetID, req.ToInput())
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToUserDTO(*user))
}

// DeleteUser removes a user and their ownerships
func (h *UserHandler) DeleteUser(c *gin.Context) {
	if err := h.userService.Remove(c.Request.Context(), c.Param(constants.ParamUserID)); err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "User deleted successfully"})
}
