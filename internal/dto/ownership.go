package dto

import (
	"time"

	"github.com/yukikurage/org-backoffice-api/internal/models"
)

// AddOwnersRequest is the body of POST /organizations/:organizationId/owners.
// Role defaults to OWNER.
type AddOwnersRequest struct {
	UserIDs []string     `json:"user_ids" binding:"required,min=1,dive,uuid"`
	Role    *models.Role `json:"role"`
}

// RemoveOwnersRequest is the body of DELETE /organizations/:organizationId/owners.
type RemoveOwnersRequest struct {
	UserIDs []string `json:"user_ids" binding:"required,min=1,dive,uuid"`
}

// UpdateOwnerRoleRequest is the body of PATCH /organizations/:organizationId/owners/role.
type UpdateOwnerRoleRequest struct {
	UserID string      `json:"user_id" binding:"required,uuid"`
	Role   models.Role `json:"role" binding:"required"`
}

// OwnerDTO represents an ownership in API responses
type OwnerDTO struct {
	UserID     string      `json:"user_id"`
	Role       models.Role `json:"role"`
	AssignedAt time.Time   `json:"assigned_at"`
	AssignedBy *string     `json:"assigned_by"`
	IsActive   bool        `json:"is_active"`
	User       *UserDTO    `json:"user,omitempty"`
}

// OwnerListResponse lists owners together with the caller's standing in the organization
type OwnerListResponse struct {
	OrganizationID   string      `json:"organization_id"`
	OrganizationName string      `json:"organization_name"`
	IsOwner          bool        `json:"is_owner"`
	YourRole         models.Role `json:"your_role,omitempty"`
	Owners           []OwnerDTO  `json:"owners"`
}

// ToOwnerListResponse converts the owners of org as seen by a caller holding yourRole.
func ToOwnerListResponse(org models.Organization, isOwner bool, yourRole models.Role, owners []models.OrganizationOwnership) OwnerListResponse {
	return OwnerListResponse{
		OrganizationID:   org.ID,
		OrganizationName: org.Name,
		IsOwner:          isOwner,
		YourRole:         yourRole,
		Owners:           ToOwnerDTOs(owners),
	}
}

// ToOwnerDTO converts an ownership, embedding the user when loaded.
func ToOwnerDTO(ownership models.OrganizationOwnership) OwnerDTO {
	out := OwnerDTO{
		UserID:     ownership.UserID,
		Role:       ownership.Role,
		AssignedAt: ownership.AssignedAt,
		AssignedBy: ownership.AssignedBy,
		IsActive:   ownership.IsActive,
	}
	if ownership.User != nil {
		user := ToUserDTO(*ownership.User)
		out.User = &user
	}
	return out
}

// ToOwnerDTOs converts a slice of ownerships.
func ToOwnerDTOs(ownerships []models.OrganizationOwnership) []OwnerDTO {
	out := make([]OwnerDTO, len(ownerships))
	for i, ownership := range ownerships {
		out[i] = ToOwnerDTO(ownership)
	}
	return out
}
