package dto

import (
	"time"

	"github.com/yukikurage/org-backoffice-api/internal/models"
	"github.com/yukikurage/org-backoffice-api/internal/services"
	"github.com/yukikurage/org-backoffice-api/internal/utils"
)

// CreateOrganizationRequest is the body of POST /organizations.
type CreateOrganizationRequest struct {
	Name        string   `json:"name" binding:"required,min=2,max=100"`
	Description *string  `json:"description" binding:"omitempty,max=500"`
	OwnerIDs    []string `json:"owner_ids" binding:"required,min=1,dive,uuid"`
}

// ToInput converts the request to service input.
func (r CreateOrganizationRequest) ToInput() services.CreateOrganizationInput {
	return services.CreateOrganizationInput{
		Name:        r.Name,
		Description: r.Description,
		OwnerIDs:    r.OwnerIDs,
	}
}

// UpdateOrganizationRequest is the body of PATCH /organizations/:organizationId.
type UpdateOrganizationRequest struct {
	Name        *string `json:"name" binding:"omitempty,min=2,max=100"`
	Description *string `json:"description" binding:"omitempty,max=500"`
	IsActive    *bool   `json:"is_active"`
}

// ToInput converts the request to service input.
func (r UpdateOrganizationRequest) ToInput() services.UpdateOrganizationInput {
	return services.UpdateOrganizationInput{
		Name:        r.Name,
		Description: r.Description,
		IsActive:    r.IsActive,
	}
}

// OrganizationDTO represents an organization in API responses
type OrganizationDTO struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description *string    `json:"description"`
	IsActive    bool       `json:"is_active"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	Owners      []OwnerDTO `json:"owners,omitempty"`
}

// OrganizationListResponse represents a paginated list of organizations
type OrganizationListResponse struct {
	Organizations []OrganizationDTO        `json:"organizations"`
	Pagination    utils.PaginationResponse `json:"pagination"`
}

// ToOrganizationDTO converts an Organization model, including any loaded owners.
func ToOrganizationDTO(org models.Organization) OrganizationDTO {
	out := OrganizationDTO{
		ID:          org.ID,
		Name:        org.Name,
		Description: org.Description,
		IsActive:    org.IsActive,
		CreatedAt:   org.CreatedAt,
		UpdatedAt:   org.UpdatedAt,
	}
	if len(org.Owners) > 0 {
		out.Owners = ToOwnerDTOs(org.Owners)
	}
	return out
}

// ToOrganizationDTOs converts a slice of organizations.
func ToOrganizationDTOs(orgs []models.Organization) []OrganizationDTO {
	out := make([]OrganizationDTO, len(orgs))
	for i, org := range orgs {
		out[i] = ToOrganizationDTO(org)
	}
	return out
}

// ToOrganizationListResponse converts a page of organizations.
func ToOrganizationListResponse(orgs []models.Organization, pagination utils.PaginationResponse) OrganizationListResponse {
	return OrganizationListResponse{
		Organizations: ToOrganizationDTOs(orgs),
		Pagination:    pagination,
	}
}
