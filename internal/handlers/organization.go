package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/org-backoffice-api/internal/constants"
	"github.com/yukikurage/org-backoffice-api/internal/dto"
	apierrors "github.com/yukikurage/org-backoffice-api/internal/errors"
	"github.com/yukikurage/org-backoffice-api/internal/services"
	"github.com/yukikurage/org-backoffice-api/internal/utils"
)

// OrganizationHandler serves the organization endpoints.
type OrganizationHandler struct {
	orgService *services.OrganizationService
}

// NewOrganizationHandler creates a new OrganizationHandler.
func NewOrganizationHandler(orgService *services.OrganizationService) *OrganizationHandler {
	return &OrganizationHandler{orgService: orgService}
}

// CreateOrganization creates a new organization with its initial owners
func (h *OrganizationHandler) CreateOrganization(c *gin.Context) {
	var req dto.CreateOrganizationRequest
	if !bindJSON(c, &req) {
		return
	}

	org, err := h.orgService.Create(c.Request.Context(), req.ToInput())
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToOrganizationDTO(*org))
}

// ListOrganizations returns a page of organizations
func (h *OrganizationHandler) ListOrganizations(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	orgs, pagination, err := h.orgService.List(c.Request.Context(), params.Page, params.Limit)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToOrganizationListResponse(orgs, pagination))
}

// ListActiveOrganizations returns every active organization
func (h *OrganizationHandler) ListActiveOrganizations(c *gin.Context) {
	orgs, err := h.orgService.FindActiveOrganizations(c.Request.Context())
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"organizations": dto.ToOrganizationDTOs(orgs)})
}

// ListOrganizationsByOwner returns the organizations a user actively owns
func (h *OrganizationHandler) ListOrganizationsByOwner(c *gin.Context) {
	orgs, err := h.orgService.FindByOwner(c.Request.Context(), c.Param(constants.ParamOwnerID))
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"organizations": dto.ToOrganizationDTOs(orgs)})
}

// GetOrganizationByName looks an organization up by its unique name
func (h *OrganizationHandler) GetOrganizationByName(c *gin.Context) {
	org, err := h.orgService.FindByName(c.Request.Context(), c.Param(constants.ParamName))
	if err != nil {
		apierrors.Respond(c, err)
		return
	}
	if org == nil {
		apierrors.NotFound(c, "Organization not found")
		return
	}

	c.JSON(http.StatusOK, dto.ToOrganizationDTO(*org))
}

// GetOrganization returns organization details with its owners
func (h *OrganizationHandler) GetOrganization(c *gin.Context) {
	org, err := h.orgService.GetWithOwners(c.Request.Context(), c.Param(constants.ParamOrganizationID))
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToOrganizationDTO(*org))
}

// UpdateOrganization updates organization details
func (h *OrganizationHandler) UpdateOrganization(c *gin.Context) {
	var req dto.UpdateOrganizationRequest
	if !bindJSON(c, &req) {
		return
	}

	org, err := h.orgService.Update(c.Request.Context(), c.Param(constants.ParamOrganizationID), req.ToInput())
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToOrganizationDTO(*org))
}

// DeleteOrganization deletes an organization and its ownerships
func (h *OrganizationHandler) DeleteOrganization(c *gin.Context) {
	if err := h.orgService.Remove(c.Request.Context(), c.Param(constants.ParamOrganizationID)); err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Organization deleted successfully"})
}
