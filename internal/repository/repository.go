package repository

import (
	"context"

	apierrors "github.com/yukikurage/org-backoffice-api/internal/errors"
	"github.com/yukikurage/org-backoffice-api/internal/models"
	"github.com/yukikurage/org-backoffice-api/internal/utils"
	"gorm.io/gorm"
)

var (
	// ErrOwnershipExists is returned when an active ownership already exists for the pair.
	ErrOwnershipExists = apierrors.NewConflict("user is already an active owner of this organization").WithCode(apierrors.ErrCodeAlreadyExists)
	// ErrOwnershipNotFound is returned when no ownership row exists for the pair.
	ErrOwnershipNotFound = apierrors.NewNotFound("ownership not found")
)

// UserRepository defines the interface for user data access
type UserRepository interface {
	// WithTx returns a repository bound to tx
	WithTx(tx *gorm.DB) UserRepository

	// Create creates a new user
	Create(ctx context.Context, user *models.User) error

	// FindByID finds a user by ID
	FindByID(ctx context.Context, id string) (*models.User, error)

	// FindByEmail finds a user by email
	FindByEmail(ctx context.Context, email string) (*models.User, error)

	// FindByIDs finds the users matching ids; missing ids are skipped
	FindByIDs(ctx context.Context, ids []string) ([]models.User, error)

	// List retrieves users with pagination
	List(ctx context.Context, params utils.PaginationParams) ([]models.User, int64, error)

	// Update saves all user fields
	Update(ctx context.Context, user *models.User) error

	// Delete hard deletes a user and reports whether a row was removed
	Delete(ctx context.Context, id string) (bool, error)
}

// OrganizationRepository defines the interface for organization data access
type OrganizationRepository interface {
	// WithTx returns a repository bound to tx
	WithTx(tx *gorm.DB) OrganizationRepository

	// Create creates a new organization
	Create(ctx context.Context, org *models.Organization) error

	// FindByID finds an organization by ID
	FindByID(ctx context.Context, id string) (*models.Organization, error)

	// FindByIDForUpdate finds an organization and locks its row until the
	// surrounding transaction ends
	FindByIDForUpdate(ctx context.Context, id string) (*models.Organization, error)

	// FindByName finds an organization by its unique name
	FindByName(ctx context.Context, name string) (*models.Organization, error)

	// FindWithOwners finds an organization with every ownership and its user
	FindWithOwners(ctx context.Context, id string) (*models.Organization, error)

	// List retrieves organizations with pagination, newest first
	List(ctx context.Context, params utils.PaginationParams) ([]models.Organization, int64, error)

	// FindActive lists active organizations
	FindActive(ctx context.Context) ([]models.Organization, error)

	// FindByOwner lists organizations where the user holds an active ownership
	FindByOwner(ctx context.Context, userID string) ([]models.Organization, error)

	// Update applies the given column updates
	Update(ctx context.Context, id string, updates map[string]interface{}) error

	// Delete hard deletes an organization and reports whether a row was removed
	Delete(ctx context.Context, id string) (bool, error)
}

// OwnershipRepository defines the interface for organization ownership data access.
// It enforces no business rules.
type OwnershipRepository interface {
	// WithTx returns a repository bound to tx
	WithTx(tx *gorm.DB) OwnershipRepository

	// AddOwner inserts an active ownership. An inactive row for the pair is re-assigned.
	AddOwner(ctx context.Context, orgID, userID string, role models.Role, assignedBy *string) (*models.OrganizationOwnership, error)

	// RemoveOwner hard deletes the ownership row
	RemoveOwner(ctx context.Context, orgID, userID string) (bool, error)

	// UpdateOwnerRole changes the role of an existing ownership
	UpdateOwnerRole(ctx context.Context, orgID, userID string, role models.Role) (*models.OrganizationOwnership, error)

	// FindOwnership finds the ownership row for the pair in any state
	FindOwnership(ctx context.Context, orgID, userID string) (*models.OrganizationOwnership, error)

	// FindOwners lists every ownership of the organization
	FindOwners(ctx context.Context, orgID string) ([]models.OrganizationOwnership, error)

	// FindActiveOwners lists active ownerships of the organization
	FindActiveOwners(ctx context.Context, orgID string) ([]models.OrganizationOwnership, error)

	// FindOwnersByRole lists active ownerships with the given role
	FindOwnersByRole(ctx context.Context, orgID string, role models.Role) ([]models.OrganizationOwnership, error)

	// FindOwnersWithUsers lists active ownerships with their users, oldest assignment first
	FindOwnersWithUsers(ctx context.Context, orgID string) ([]models.OrganizationOwnership, error)

	// IsOwner reports whether any ownership row exists for the pair
	IsOwner(ctx context.Context, orgID, userID string) (bool, error)

	// IsActiveOwner reports whether an active ownership exists for the pair
	IsActiveOwner(ctx context.Context, orgID, userID string) (bool, error)

	// DeactivateOwner sets is_active to false
	DeactivateOwner(ctx context.Context, orgID, userID string) error

	// ReactivateOwner sets is_active to true
	ReactivateOwner(ctx context.Context, orgID, userID string) error

	// CountOwners counts every ownership of the organization
	CountOwners(ctx context.Context, orgID string) (int64, error)

	// CountActiveOwners counts active ownerships of the organization
	CountActiveOwners(ctx context.Context, orgID string) (int64, error)

	// FindOrganizationsByOwner lists every ownership of the user
	FindOrganizationsByOwner(ctx context.Context, userID string) ([]models.OrganizationOwnership, error)

	// FindActiveOrganizationsByOwner lists active ownerships of the user in active
	// organizations with the organization preloaded, newest first
	FindActiveOrganizationsByOwner(ctx context.Context, userID string) ([]models.OrganizationOwnership, error)

	// CountOrganizationsByOwner counts active ownerships of the user
	CountOrganizationsByOwner(ctx context.Context, userID string) (int64, error)

	// RemoveAllOwners deletes every ownership of the organization
	RemoveAllOwners(ctx context.Context, orgID string) (int64, error)

	// RemoveUserFromAllOrganizations deletes every ownership of the user
	RemoveUserFromAllOrganizations(ctx context.Context, userID string) (int64, error)

	// ClearAssignedBy nulls assigned_by references to the user
	ClearAssignedBy(ctx context.Context, userID string) error
}
