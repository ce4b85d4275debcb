package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/yukikurage/org-backoffice-api/internal/constants"
	apierrors "github.com/yukikurage/org-backoffice-api/internal/errors"
	"github.com/yukikurage/org-backoffice-api/internal/metrics"
	"github.com/yukikurage/org-backoffice-api/internal/models"
	"github.com/yukikurage/org-backoffice-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrOrganizationNotFound = apierrors.NewNotFound("organization not found")
	ErrUserNotFound         = apierrors.NewNotFound("user not found")
	ErrNoUserIDsProvided    = apierrors.NewValidation("at least one user ID is required").WithCode(apierrors.ErrCodeMissingField)
	ErrTooManyUserIDs       = apierrors.NewValidation(fmt.Sprintf("at most %d user IDs are allowed per request", constants.MaxOwnersPerRequest))
	ErrInvalidRole          = apierrors.NewValidation("invalid role").WithCode(apierrors.ErrCodeInvalidFormat)
	ErrUsersNotFound        = apierrors.NewValidation("the following users do not exist")
	ErrUserInactive         = apierrors.NewValidation("user is not active")
	ErrAlreadyActiveOwners  = apierrors.NewConflict("the following users are already active owners").WithCode(apierrors.ErrCodeAlreadyExists)
	ErrNotActiveOwners      = apierrors.NewValidation("the following users are not active owners")
	ErrNotActiveOwner       = apierrors.NewValidation("user is not an active owner of the organization")
	ErrOwnershipMissing     = apierrors.NewValidation("user has no ownership in the organization")
	ErrOwnerAlreadyActive   = apierrors.NewValidation("user is already an active owner")
	ErrLastActiveOwner      = apierrors.NewValidation("organization must keep at least one active owner").WithCode(apierrors.ErrCodeInvalidOperation)
)

// DefaultOwnerRole is assigned by AddOwners when no role is given.
const DefaultOwnerRole = models.RoleOwner

const (
	opAddOwners       = "add_owners"
	opRemoveOwners    = "remove_owners"
	opUpdateOwnerRole = "update_owner_role"
	opDeactivateOwner = "deactivate_owner"
	opReactivateOwner = "reactivate_owner"
)

// OwnershipService enforces the ownership rules of organizations.
//
// Every mutation runs in one transaction that first locks the organization row,
// so mutations of the same organization are serialized. Before committing, the
// active owners are counted again and the transaction is rolled back if none is left.
type OwnershipService struct {
	db         *gorm.DB
	ownerships repository.OwnershipRepository
	orgs       repository.OrganizationRepository
	users      repository.UserRepository
	metrics    *metrics.Metrics
}

// NewOwnershipService creates a new OwnershipService.
func NewOwnershipService(
	db *gorm.DB,
	ownerships repository.OwnershipRepository,
	orgs repository.OrganizationRepository,
	users repository.UserRepository,
	m *metrics.Metrics,
) *OwnershipService {
	return &OwnershipService{
		db:         db,
		ownerships: ownerships,
		orgs:       orgs,
		users:      users,
		metrics:    m,
	}
}

// AddOwnersInput holds the users to add and the role they receive.
type AddOwnersInput struct {
	UserIDs    []string
	Role       models.Role
	AssignedBy *string
}

// txRepos are the repositories bound to one transaction.
type txRepos struct {
	ownerships repository.OwnershipRepository
	orgs       repository.OrganizationRepository
	users      repository.UserRepository
}

// mutate runs fn in a transaction holding the organization row lock.
func (s *OwnershipService) mutate(ctx context.Context, op, orgID string, fn func(r txRepos) error) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r := txRepos{
			ownerships: s.ownerships.WithTx(tx),
			orgs:       s.orgs.WithTx(tx),
			users:      s.users.WithTx(tx),
		}

		if _, err := r.orgs.FindByIDForUpdate(ctx, orgID); err != nil {
			return translateOrganizationError(err)
		}

		if err := fn(r); err != nil {
			return err
		}

		active, err := r.ownerships.CountActiveOwners(ctx, orgID)
		if err != nil {
			return fmt.Errorf("failed to count active owners: %w", err)
		}
		if active < 1 {
			return ErrLastActiveOwner
		}
		return nil
	})

	s.metrics.ObserveMutation(op, err)
	if err != nil && !isDomainError(err) {
		zap.L().Error("ownership mutation failed",
			zap.String("operation", op),
			zap.String("organization_id", orgID),
			zap.Error(err),
		)
	}
	return err
}

// AddOwners adds active ownerships for every user in input.
// All users are validated before any row is written.
func (s *OwnershipService) AddOwners(ctx context.Context, orgID string, input AddOwnersInput) (*models.Organization, error) {
	userIDs := uniqueIDs(input.UserIDs)
	if err := checkUserIDCount(userIDs); err != nil {
		return nil, err
	}

	role := input.Role
	if role == "" {
		role = DefaultOwnerRole
	}
	if !role.IsValid() {
		return nil, apierrors.WithIDs(ErrInvalidRole, string(role))
	}

	err := s.mutate(ctx, opAddOwners, orgID, func(r txRepos) error {
		if _, err := validateOwners(ctx, r.users, userIDs); err != nil {
			return err
		}

		var existing []string
		for _, userID := range userIDs {
			active, err := r.ownerships.IsActiveOwner(ctx, orgID, userID)
			if err != nil {
				return fmt.Errorf("failed to check ownership: %w", err)
			}
			if active {
				existing = append(existing, userID)
			}
		}
		if len(existing) > 0 {
			return apierrors.WithIDs(ErrAlreadyActiveOwners, existing...)
		}

		for _, userID := range userIDs {
			if _, err := r.ownerships.AddOwner(ctx, orgID, userID, role, input.AssignedBy); err != nil {
				if errors.Is(err, repository.ErrOwnershipExists) {
					return apierrors.WithIDs(ErrAlreadyActiveOwners, userID)
				}
				return fmt.Errorf("failed to add owner: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("owners added",
		zap.String("organization_id", orgID),
		zap.Strings("user_ids", userIDs),
		zap.String("role", string(role)),
	)
	return s.organizationWithOwners(ctx, orgID)
}

// RemoveOwners hard deletes the ownerships of userIDs.
// Membership is validated first; the last-owner check then applies to the validated set.
func (s *OwnershipService) RemoveOwners(ctx context.Context, orgID string, userIDs []string) (*models.Organization, error) {
	userIDs = uniqueIDs(userIDs)
	if err := checkUserIDCount(userIDs); err != nil {
		return nil, err
	}

	err := s.mutate(ctx, opRemoveOwners, orgID, func(r txRepos) error {
		var invalid []string
		for _, userID := range userIDs {
			active, err := r.ownerships.IsActiveOwner(ctx, orgID, userID)
			if err != nil {
				return fmt.Errorf("failed to check ownership: %w", err)
			}
			if !active {
				invalid = append(invalid, userID)
			}
		}
		if len(invalid) > 0 {
			return apierrors.WithIDs(ErrNotActiveOwners, invalid...)
		}

		count, err := r.ownerships.CountActiveOwners(ctx, orgID)
		if err != nil {
			return fmt.Errorf("failed to count active owners: %w", err)
		}
		if count <= int64(len(userIDs)) {
			return ErrLastActiveOwner
		}

		for _, userID := range userIDs {
			if _, err := r.ownerships.RemoveOwner(ctx, orgID, userID); err != nil {
				return fmt.Errorf("failed to remove owner: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("owners removed", zap.String("organization_id", orgID), zap.Strings("user_ids", userIDs))
	return s.organizationWithOwners(ctx, orgID)
}

// UpdateOwnerRole changes the role of an active owner.
// AssignedAt and AssignedBy are left unchanged.
func (s *OwnershipService) UpdateOwnerRole(ctx context.Context, orgID, userID string, newRole models.Role) (*models.Organization, error) {
	if !newRole.IsValid() {
		return nil, apierrors.WithIDs(ErrInvalidRole, string(newRole))
	}

	err := s.mutate(ctx, opUpdateOwnerRole, orgID, func(r txRepos) error {
		active, err := r.ownerships.IsActiveOwner(ctx, orgID, userID)
		if err != nil {
			return fmt.Errorf("failed to check ownership: %w", err)
		}
		if !active {
			return ErrNotActiveOwner
		}

		if _, err := r.ownerships.UpdateOwnerRole(ctx, orgID, userID, newRole); err != nil {
			return fmt.Errorf("failed to update owner role: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.organizationWithOwners(ctx, orgID)
}

// DeactivateOwner soft deletes an active ownership. The last active owner
// cannot be deactivated.
func (s *OwnershipService) DeactivateOwner(ctx context.Context, orgID, userID string) error {
	return s.mutate(ctx, opDeactivateOwner, orgID, func(r txRepos) error {
		active, err := r.ownerships.IsActiveOwner(ctx, orgID, userID)
		if err != nil {
			return fmt.Errorf("failed to check ownership: %w", err)
		}
		if !active {
			return ErrNotActiveOwner
		}

		count, err := r.ownerships.CountActiveOwners(ctx, orgID)
		if err != nil {
			return fmt.Errorf("failed to count active owners: %w", err)
		}
		if count <= 1 {
			return ErrLastActiveOwner
		}

		return r.ownerships.DeactivateOwner(ctx, orgID, userID)
	})
}

// ReactivateOwner restores an inactive ownership.
func (s *OwnershipService) ReactivateOwner(ctx context.Context, orgID, userID string) error {
	return s.mutate(ctx, opReactivateOwner, orgID, func(r txRepos) error {
		ownership, err := r.ownerships.FindOwnership(ctx, orgID, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrOwnershipMissing
			}
			return fmt.Errorf("failed to find ownership: %w", err)
		}
		if ownership.IsActive {
			return ErrOwnerAlreadyActive
		}

		return r.ownerships.ReactivateOwner(ctx, orgID, userID)
	})
}

// ValidateOwners resolves userIDs to users. Missing ids are reported together;
// an inactive user fails immediately.
func (s *OwnershipService) ValidateOwners(ctx context.Context, userIDs []string) ([]models.User, error) {
	return validateOwners(ctx, s.users, uniqueIDs(userIDs))
}

func validateOwners(ctx context.Context, users repository.UserRepository, userIDs []string) ([]models.User, error) {
	found, err := users.FindByIDs(ctx, userIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to find users: %w", err)
	}

	byID := make(map[string]models.User, len(found))
	for _, u := range found {
		byID[u.ID] = u
	}

	var valid []models.User
	var missing []string
	for _, id := range userIDs {
		user, ok := byID[id]
		switch {
		case !ok:
			missing = append(missing, id)
		case !user.IsActive:
			return nil, apierrors.WithIDs(ErrUserInactive, id)
		default:
			valid = append(valid, user)
		}
	}

	if len(missing) > 0 {
		return nil, apierrors.WithIDs(ErrUsersNotFound, missing...)
	}
	return valid, nil
}

// GetOwners returns the active owners of an organization with their users.
func (s *OwnershipService) GetOwners(ctx context.Context, orgID string) ([]models.OrganizationOwnership, error) {
	if err := s.verifyOrganizationExists(ctx, orgID); err != nil {
		return nil, err
	}
	owners, err := s.ownerships.FindOwnersWithUsers(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list owners: %w", err)
	}
	return owners, nil
}

// GetActiveOwners returns the active ownerships of an organization.
func (s *OwnershipService) GetActiveOwners(ctx context.Context, orgID string) ([]models.OrganizationOwnership, error) {
	if err := s.verifyOrganizationExists(ctx, orgID); err != nil {
		return nil, err
	}
	owners, err := s.ownerships.FindActiveOwners(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list active owners: %w", err)
	}
	return owners, nil
}

// GetOwnersByRole returns the active ownerships holding role.
func (s *OwnershipService) GetOwnersByRole(ctx context.Context, orgID string, role models.Role) ([]models.OrganizationOwnership, error) {
	if !role.IsValid() {
		return nil, apierrors.WithIDs(ErrInvalidRole, string(role))
	}
	if err := s.verifyOrganizationExists(ctx, orgID); err != nil {
		return nil, err
	}
	owners, err := s.ownerships.FindOwnersByRole(ctx, orgID, role)
	if err != nil {
		return nil, fmt.Errorf("failed to list owners by role: %w", err)
	}
	return owners, nil
}

// GetOwnership returns the ownership of the pair in any state, or nil when none exists.
func (s *OwnershipService) GetOwnership(ctx context.Context, orgID, userID string) (*models.OrganizationOwnership, error) {
	ownership, err := s.ownerships.FindOwnership(ctx, orgID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find ownership: %w", err)
	}
	return ownership, nil
}

// IsOwner reports whether the user has an ownership in any state.
func (s *OwnershipService) IsOwner(ctx context.Context, orgID, userID string) (bool, error) {
	return s.ownerships.IsOwner(ctx, orgID, userID)
}

// IsActiveOwner reports whether the user is an active owner.
func (s *OwnershipService) IsActiveOwner(ctx context.Context, orgID, userID string) (bool, error) {
	return s.ownerships.IsActiveOwner(ctx, orgID, userID)
}

// GetOrganizationsByOwner returns every organization the user has an ownership in.
func (s *OwnershipService) GetOrganizationsByOwner(ctx context.Context, userID string) ([]models.Organization, error) {
	if err := s.verifyUserExists(ctx, userID); err != nil {
		return nil, err
	}
	ownerships, err := s.ownerships.FindOrganizationsByOwner(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list organizations: %w", err)
	}
	return organizationsOf(ownerships), nil
}

// GetActiveOrganizationsByOwner returns the active organizations the user actively owns.
func (s *OwnershipService) GetActiveOrganizationsByOwner(ctx context.Context, userID string) ([]models.Organization, error) {
	if err := s.verifyUserExists(ctx, userID); err != nil {
		return nil, err
	}
	ownerships, err := s.ownerships.FindActiveOrganizationsByOwner(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list organizations: %w", err)
	}
	return organizationsOf(ownerships), nil
}

func (s *OwnershipService) organizationWithOwners(ctx context.Context, orgID string) (*models.Organization, error) {
	org, err := s.orgs.FindWithOwners(ctx, orgID)
	if err != nil {
		return nil, translateOrganizationError(err)
	}
	return org, nil
}

func (s *OwnershipService) verifyOrganizationExists(ctx context.Context, orgID string) error {
	if _, err := s.orgs.FindByID(ctx, orgID); err != nil {
		return translateOrganizationError(err)
	}
	return nil
}

func (s *OwnershipService) verifyUserExists(ctx context.Context, userID string) error {
	if _, err := s.users.FindByID(ctx, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to find user: %w", err)
	}
	return nil
}

// organizationsOf extracts the preloaded organizations without duplicates.
func organizationsOf(ownerships []models.OrganizationOwnership) []models.Organization {
	seen := make(map[string]struct{}, len(ownerships))
	orgs := make([]models.Organization, 0, len(ownerships))
	for _, o := range ownerships {
		if o.Organization == nil {
			continue
		}
		if _, ok := seen[o.Organization.ID]; ok {
			continue
		}
		seen[o.Organization.ID] = struct{}{}
		orgs = append(orgs, *o.Organization)
	}
	return orgs
}

func translateOrganizationError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrOrganizationNotFound
	}
	return fmt.Errorf("failed to find organization: %w", err)
}

func checkUserIDCount(userIDs []string) error {
	switch {
	case len(userIDs) == 0:
		return ErrNoUserIDsProvided
	case len(userIDs) > constants.MaxOwnersPerRequest:
		return ErrTooManyUserIDs
	}
	return nil
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func isDomainError(err error) bool {
	_, ok := apierrors.KindOf(err)
	return ok
}
