package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/org-backoffice-api/internal/constants"
	"github.com/yukikurage/org-backoffice-api/internal/dto"
	apierrors "github.com/yukikurage/org-backoffice-api/internal/errors"
	"github.com/yukikurage/org-backoffice-api/internal/middleware"
	"github.com/yukikurage/org-backoffice-api/internal/models"
	"github.com/yukikurage/org-backoffice-api/internal/services"
	"go.uber.org/zap"
)

// OwnerHandler manages the owners of an organization.
type OwnerHandler struct {
	ownershipService *services.OwnershipService
}

// NewOwnerHandler creates a new OwnerHandler.
func NewOwnerHandler(ownershipService *services.OwnershipService) *OwnerHandler {
	return &OwnerHandler{ownershipService: ownershipService}
}

// ListOwners returns the active owners of the organization with their users.
func (h *OwnerHandler) ListOwners(c *gin.Context) {
	h.listOwners(c, h.ownershipService.GetOwners)
}

// ListActiveOwners returns the active ownerships of the organization.
func (h *OwnerHandler) ListActiveOwners(c *gin.Context) {
	h.listOwners(c, h.ownershipService.GetActiveOwners)
}

// ListOwnersByRole returns the active ownerships holding the role in the path.
func (h *OwnerHandler) ListOwnersByRole(c *gin.Context) {
	role, _ := models.ParseRole(c.Param(constants.ParamRole))
	h.listOwners(c, func(ctx context.Context, orgID string) ([]models.OrganizationOwnership, error) {
		return h.ownershipService.GetOwnersByRole(ctx, orgID, role)
	})
}

// listOwners answers with the owners of the organization loaded by middleware.OrganizationContext.
func (h *OwnerHandler) listOwners(c *gin.Context, find func(ctx context.Context, orgID string) ([]models.OrganizationOwnership, error)) {
	orgCtx, ok := middleware.GetOrganizationContext(c)
	if !ok {
		apierrors.InternalError(c, "Organization context is missing")
		return
	}

	owners, err := find(c.Request.Context(), orgCtx.Organization.ID)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToOwnerListResponse(*orgCtx.Organization, orgCtx.IsOwner, orgCtx.Role(), owners))
}

// AddOwners adds owners to the organization on behalf of the caller.
func (h *OwnerHandler) AddOwners(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	var req dto.AddOwnersRequest
	if !bindJSON(c, &req) {
		return
	}

	input := services.AddOwnersInput{UserIDs: req.UserIDs, AssignedBy: &userID}
	if req.Role != nil {
		input.Role, _ = models.ParseRole(string(*req.Role))
	}

	org, err := h.ownershipService.AddOwners(c.Request.Context(), c.Param(constants.ParamOrganizationID), input)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToOrganizationDTO(*org))
}

// RemoveOwners removes owners from the organization.
func (h *OwnerHandler) RemoveOwners(c *gin.Context) {
	var req dto.RemoveOwnersRequest
	if !bindJSON(c, &req) {
		return
	}

	org, err := h.ownershipService.RemoveOwners(c.Request.Context(), c.Param(constants.ParamOrganizationID), req.UserIDs)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToOrganizationDTO(*org))
}

// UpdateOwnerRole changes the role of one owner.
func (h *OwnerHandler) UpdateOwnerRole(c *gin.Context) {
	var req dto.UpdateOwnerRoleRequest
	if !bindJSON(c, &req) {
		return
	}
	role, _ := models.ParseRole(string(req.Role))

	if actor, ok := middleware.GetOwnership(c); ok {
		zap.L().Info("owner role change requested",
			zap.String("organization_id", actor.OrganizationID),
			zap.String("actor_id", actor.UserID),
			zap.String("actor_role", string(actor.Role)),
			zap.String("user_id", req.UserID),
			zap.String("role", string(role)),
			zap.Bool("self", actor.UserID == req.UserID),
		)
	}

	org, err := h.ownershipService.UpdateOwnerRole(c.Request.Context(), c.Param(constants.ParamOrganizationID), req.UserID, role)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToOrganizationDTO(*org))
}

// DeactivateOwner marks an owner inactive without deleting the ownership.
func (h *OwnerHandler) DeactivateOwner(c *gin.Context) {
	err := h.ownershipService.DeactivateOwner(c.Request.Context(), c.Param(constants.ParamOrganizationID), c.Param(constants.ParamUserID))
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Owner deactivated successfully"})
}

// ReactivateOwner restores an inactive owner.
func (h *OwnerHandler) ReactivateOwner(c *gin.Context) {
	err := h.ownershipService.ReactivateOwner(c.Request.Context(), c.Param(constants.ParamOrganizationID), c.Param(constants.ParamUserID))
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Owner reactivated successfully"})
}
