package repository

import (
	"context"
	"errors"
	"time"

	"github.com/yukikurage/org-backoffice-api/internal/models"
	"gorm.io/gorm"
)

// GormOwnershipRepository is a GORM implementation of OwnershipRepository
type GormOwnershipRepository struct {
	db *gorm.DB
}

// NewOwnershipRepository creates a new OwnershipRepository
func NewOwnershipRepository(db *gorm.DB) OwnershipRepository {
	return &GormOwnershipRepository{db: db}
}

// WithTx returns a repository bound to tx
func (r *GormOwnershipRepository) WithTx(tx *gorm.DB) OwnershipRepository {
	return &GormOwnershipRepository{db: tx}
}

func (r *GormOwnershipRepository) pair(ctx context.Context, orgID, userID string) *gorm.DB {
	return r.db.WithContext(ctx).
		Model(&models.OrganizationOwnership{}).
		Where("organization_id = ? AND user_id = ?", orgID, userID)
}

// AddOwner adds an active ownership.
// The composite key allows one row per pair, so an inactive row is re-assigned in place.
func (r *GormOwnershipRepository) AddOwner(ctx context.Context, orgID, userID string, role models.Role, assignedBy *string) (*models.OrganizationOwnership, error) {
	now := time.Now()

	existing, err := r.FindOwnership(ctx, orgID, userID)
	switch {
	case err == nil && existing.IsActive:
		return nil, ErrOwnershipExists
	case err == nil:
		updates := map[string]interface{}{
			"role":        role,
			"assigned_at": now,
			"assigned_by": assignedBy,
			"is_active":   true,
		}
		if err := r.pair(ctx, orgID, userID).Updates(updates).Error; err != nil {
			return nil, err
		}
		return r.FindOwnership(ctx, orgID, userID)
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, err
	}

	ownership := &models.OrganizationOwnership{
		OrganizationID: orgID,
		UserID:         userID,
		Role:           role,
		AssignedAt:     now,
		AssignedBy:     assignedBy,
		IsActive:       true,
	}
	if err := r.db.WithContext(ctx).Create(ownership).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrOwnershipExists
		}
		return nil, err
	}
	return ownership, nil
}

// RemoveOwner hard deletes the ownership row
func (r *GormOwnershipRepository) RemoveOwner(ctx context.Context, orgID, userID string) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("organization_id = ? AND user_id = ?", orgID, userID).
		Delete(&models.OrganizationOwnership{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// UpdateOwnerRole changes the role of an ownership
func (r *GormOwnershipRepository) UpdateOwnerRole(ctx context.Context, orgID, userID string, role models.Role) (*models.OrganizationOwnership, error) {
	if _, err := r.FindOwnership(ctx, orgID, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOwnershipNotFound
		}
		return nil, err
	}

	if err := r.pair(ctx, orgID, userID).Update("role", role).Error; err != nil {
		return nil, err
	}
	return r.FindOwnership(ctx, orgID, userID)
}

// FindOwnership finds the ownership row for the pair
func (r *GormOwnershipRepository) FindOwnership(ctx context.Context, orgID, userID string) (*models.OrganizationOwnership, error) {
	var ownership models.OrganizationOwnership
	err := r.db.WithContext(ctx).
		Where("organization_id = ? AND user_id = ?", orgID, userID).
		First(&ownership).Error
	if err != nil {
		return nil, err
	}
	return &ownership, nil
}

// FindOwners lists all ownerships of an organization
func (r *GormOwnershipRepository) FindOwners(ctx context.Context, orgID string) ([]models.OrganizationOwnership, error) {
	var ownerships []models.OrganizationOwnership
	err := r.db.WithContext(ctx).
		Where("organization_id = ?", orgID).
		Order("assigned_at ASC").
		Find(&ownerships).Error
	if err != nil {
		return nil, err
	}
	return ownerships, nil
}

// FindActiveOwners lists active ownerships of an organization
func (r *GormOwnershipRepository) FindActiveOwners(ctx context.Context, orgID string) ([]models.OrganizationOwnership, error) {
	var ownerships []models.OrganizationOwnership
	err := r.db.WithContext(ctx).
		Where("organization_id = ? AND is_active = ?", orgID, true).
		Order("assigned_at ASC").
		Find(&ownerships).Error
	if err != nil {
		return nil, err
	}
	return ownerships, nil
}

// FindOwnersByRole lists active ownerships holding role
func (r *GormOwnershipRepository) FindOwnersByRole(ctx context.Context, orgID string, role models.Role) ([]models.OrganizationOwnership, error) {
	var ownerships []models.OrganizationOwnership
	err := r.db.WithContext(ctx).
		Where("organization_id = ? AND role = ? AND is_active = ?", orgID, role, true).
		Order("assigned_at ASC").
		Find(&ownerships).Error
	if err != nil {
		return nil, err
	}
	return ownerships, nil
}

// FindOwnersWithUsers lists active ownerships with their users
func (r *GormOwnershipRepository) FindOwnersWithUsers(ctx context.Context, orgID string) ([]models.OrganizationOwnership, error) {
	var ownerships []models.OrganizationOwnership
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("organization_id = ? AND is_active = ?", orgID, true).
		Order("assigned_at ASC").
		Find(&ownerships).Error
	if err != nil {
		return nil, err
	}
	return ownerships, nil
}

// IsOwner reports whether any ownership row exists for the pair
func (r *GormOwnershipRepository) IsOwner(ctx context.Context, orgID, userID string) (bool, error) {
	var count int64
	if err := r.pair(ctx, orgID, userID).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// IsActiveOwner reports whether an active ownership exists for the pair
func (r *GormOwnershipRepository) IsActiveOwner(ctx context.Context, orgID, userID string) (bool, error) {
	var count int64
	if err := r.pair(ctx, orgID, userID).Where("is_active = ?", true).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// DeactivateOwner marks the ownership inactive
func (r *GormOwnershipRepository) DeactivateOwner(ctx context.Context, orgID, userID string) error {
	return r.pair(ctx, orgID, userID).Update("is_active", false).Error
}

// ReactivateOwner marks the ownership active
func (r *GormOwnershipRepository) ReactivateOwner(ctx context.Context, orgID, userID string) error {
	return r.pair(ctx, orgID, userID).Update("is_active", true).Error
}

// CountOwners counts all ownerships of an organization
func (r *GormOwnershipRepository) CountOwners(ctx context.Context, orgID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.OrganizationOwnership{}).
		Where("organization_id = ?", orgID).
		Count(&count).Error
	return count, err
}

// CountActiveOwners counts active ownerships of an organization
func (r *GormOwnershipRepository) CountActiveOwners(ctx context.Context, orgID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.OrganizationOwnership{}).
		Where("organization_id = ? AND is_active = ?", orgID, true).
		Count(&count).Error
	return count, err
}

// FindOrganizationsByOwner lists every ownership held by the user
func (r *GormOwnershipRepository) FindOrganizationsByOwner(ctx context.Context, userID string) ([]models.OrganizationOwnership, error) {
	var ownerships []models.OrganizationOwnership
	err := r.db.WithContext(ctx).
		Preload("Organization").
		Where("user_id = ?", userID).
		Order("assigned_at DESC").
		Find(&ownerships).Error
	if err != nil {
		return nil, err
	}
	return ownerships, nil
}

// FindActiveOrganizationsByOwner lists the user's active ownerships in active organizations
func (r *GormOwnershipRepository) FindActiveOrganizationsByOwner(ctx context.Context, userID string) ([]models.OrganizationOwnership, error) {
	var ownerships []models.OrganizationOwnership
	err := r.db.WithContext(ctx).
		Preload("Organization").
		Joins("INNER JOIN organizations ON organizations.id = organization_ownerships.organization_id").
		Where("organization_ownerships.user_id = ?", userID).
		Where("organization_ownerships.is_active = ? AND organizations.is_active = ?", true, true).
		Order("organization_ownerships.assigned_at DESC").
		Find(&ownerships).Error
	if err != nil {
		return nil, err
	}
	return ownerships, nil
}

// CountOrganizationsByOwner counts active ownerships held by the user
func (r *GormOwnershipRepository) CountOrganizationsByOwner(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.OrganizationOwnership{}).
		Where("user_id = ? AND is_active = ?", userID, true).
		Count(&count).Error
	return count, err
}

// RemoveAllOwners deletes every ownership of an organization
func (r *GormOwnershipRepository) RemoveAllOwners(ctx context.Context, orgID string) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("organization_id = ?", orgID).
		Delete(&models.OrganizationOwnership{})
	return result.RowsAffected, result.Error
}

// RemoveUserFromAllOrganizations deletes every ownership of a user
func (r *GormOwnershipRepository) RemoveUserFromAllOrganizations(ctx context.Context, userID string) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&models.OrganizationOwnership{})
	return result.RowsAffected, result.Error
}

// ClearAssignedBy nulls assigned_by on rows the user assigned
func (r *GormOwnershipRepository) ClearAssignedBy(ctx context.Context, userID string) error {
	return r.db.WithContext(ctx).
		Model(&models.OrganizationOwnership{}).
		Where("assigned_by = ?", userID).
		Update("assigned_by", nil).Error
}
