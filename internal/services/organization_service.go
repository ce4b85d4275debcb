package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/yukikurage/org-backoffice-api/internal/constants"
	apierrors "github.com/yukikurage/org-backoffice-api/internal/errors"
	"github.com/yukikurage/org-backoffice-api/internal/models"
	"github.com/yukikurage/org-backoffice-api/internal/repository"
	"github.com/yukikurage/org-backoffice-api/internal/utils"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrOrganizationNameTaken   = apierrors.NewConflict("organization name already exists").WithCode(apierrors.ErrCodeAlreadyExists)
	ErrInvalidOrganizationName = apierrors.NewValidation(fmt.Sprintf(
		"organization name must be between %d and %d characters",
		constants.MinOrganizationNameLength, constants.MaxOrganizationNameLength,
	))
	ErrDescriptionTooLong = apierrors.NewValidation(fmt.Sprintf(
		"description must be at most %d characters", constants.MaxOrganizationDescription,
	))
	ErrNoOwnersProvided = apierrors.NewValidation("at least one owner is required").WithCode(apierrors.ErrCodeMissingField)
)

// OrganizationService provides business logic for organization operations.
type OrganizationService struct {
	db         *gorm.DB
	orgRepo    repository.OrganizationRepository
	ownerRepo  repository.OwnershipRepository
	ownerships *OwnershipService
}

// NewOrganizationService creates a new OrganizationService.
func NewOrganizationService(
	db *gorm.DB,
	orgRepo repository.OrganizationRepository,
	ownerRepo repository.OwnershipRepository,
	ownerships *OwnershipService,
) *OrganizationService {
	return &OrganizationService{
		db:         db,
		orgRepo:    orgRepo,
		ownerRepo:  ownerRepo,
		ownerships: ownerships,
	}
}

// CreateOrganizationInput represents parameters to create a new organization.
type CreateOrganizationInput struct {
	Name        string
	Description *string
	OwnerIDs    []string
}

// UpdateOrganizationInput holds the fields to change. Nil fields are left untouched.
type UpdateOrganizationInput struct {
	Name        *string
	Description *string
	IsActive    *bool
}

// Create creates an organization and makes every listed user an OWNER.
// If the owners cannot be added the organization is deleted again.
func (s *OrganizationService) Create(ctx context.Context, input CreateOrganizationInput) (*models.Organization, error) {
	name, err := normalizeOrganizationName(input.Name)
	if err != nil {
		return nil, err
	}
	if err := validateDescription(input.Description); err != nil {
		return nil, err
	}
	ownerIDs := uniqueIDs(input.OwnerIDs)
	if len(ownerIDs) == 0 {
		return nil, ErrNoOwnersProvided
	}
	if len(ownerIDs) > constants.MaxOwnersPerRequest {
		return nil, ErrTooManyUserIDs
	}

	if err := s.ensureNameAvailable(ctx, name, ""); err != nil {
		return nil, err
	}

	org := &models.Organization{
		Name:        name,
		Description: input.Description,
		IsActive:    true,
	}
	if err := s.orgRepo.Create(ctx, org); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrOrganizationNameTaken
		}
		return nil, fmt.Errorf("failed to create organization: %w", err)
	}

	created, err := s.ownerships.AddOwners(ctx, org.ID, AddOwnersInput{
		UserIDs: input.OwnerIDs,
		Role:    models.RoleOwner,
	})
	if err != nil {
		s.compensateCreate(ctx, org.ID)
		return nil, err
	}

	zap.L().Info("organization created", zap.String("organization_id", org.ID), zap.String("name", org.Name))
	return created, nil
}

// compensateCreate removes an organization whose owners could not be added.
func (s *OrganizationService) compensateCreate(ctx context.Context, orgID string) {
	ctx = context.WithoutCancel(ctx)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.ownerRepo.WithTx(tx).RemoveAllOwners(ctx, orgID); err != nil {
			return err
		}
		_, err := s.orgRepo.WithTx(tx).Delete(ctx, orgID)
		return err
	})
	if err != nil {
		zap.L().Error("failed to roll back organization creation", zap.String("organization_id", orgID), zap.Error(err))
		return
	}
	zap.L().Warn("organization creation rolled back", zap.String("organization_id", orgID))
}

// Update changes the name, description or active flag of an organization.
func (s *OrganizationService) Update(ctx context.Context, id string, input UpdateOrganizationInput) (*models.Organization, error) {
	org, err := s.orgRepo.FindByID(ctx, id)
	if err != nil {
		return nil, translateOrganizationError(err)
	}

	updates := map[string]interface{}{}
	if input.Name != nil {
		name, err := normalizeOrganizationName(*input.Name)
		if err != nil {
			return nil, err
		}
		if name != org.Name {
			if err := s.ensureNameAvailable(ctx, name, id); err != nil {
				return nil, err
			}
			updates["name"] = name
		}
	}
	if input.Description != nil {
		if err := validateDescription(input.Description); err != nil {
			return nil, err
		}
		updates["description"] = *input.Description
	}
	if input.IsActive != nil {
		updates["is_active"] = *input.IsActive
	}

	if err := s.orgRepo.Update(ctx, id, updates); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrOrganizationNameTaken
		}
		return nil, fmt.Errorf("failed to update organization: %w", err)
	}

	updated, err := s.orgRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to reload organization: %w", err)
	}
	return updated, nil
}

// Remove deletes all ownerships of an organization and then the organization itself.
func (s *OrganizationService) Remove(ctx context.Context, id string) error {
	var removedOwners int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		orgs := s.orgRepo.WithTx(tx)
		if _, err := orgs.FindByIDForUpdate(ctx, id); err != nil {
			return translateOrganizationError(err)
		}

		n, err := s.ownerRepo.WithTx(tx).RemoveAllOwners(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to remove owners: %w", err)
		}
		removedOwners = n

		deleted, err := orgs.Delete(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to delete organization: %w", err)
		}
		if !deleted {
			return ErrOrganizationNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}

	zap.L().Info("organization removed", zap.String("organization_id", id), zap.Int64("owners_removed", removedOwners))
	return nil
}

// FindOne returns an organization by ID.
func (s *OrganizationService) FindOne(ctx context.Context, id string) (*models.Organization, error) {
	org, err := s.orgRepo.FindByID(ctx, id)
	if err != nil {
		return nil, translateOrganizationError(err)
	}
	return org, nil
}

// FindByName returns the organization named name, or nil when there is none.
func (s *OrganizationService) FindByName(ctx context.Context, name string) (*models.Organization, error) {
	org, err := s.orgRepo.FindByName(ctx, strings.TrimSpace(name))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find organization: %w", err)
	}
	return org, nil
}

// FindByOwner returns the organizations the user actively owns.
func (s *OrganizationService) FindByOwner(ctx context.Context, ownerID string) ([]models.Organization, error) {
	orgs, err := s.orgRepo.FindByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list organizations: %w", err)
	}
	return orgs, nil
}

// FindActiveOrganizations returns the active organizations.
func (s *OrganizationService) FindActiveOrganizations(ctx context.Context) ([]models.Organization, error) {
	orgs, err := s.orgRepo.FindActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list organizations: %w", err)
	}
	return orgs, nil
}

// List returns one page of organizations, newest first.
func (s *OrganizationService) List(ctx context.Context, page, limit int) ([]models.Organization, utils.PaginationResponse, error) {
	params := utils.NewPaginationParams(page, limit)
	orgs, total, err := s.orgRepo.List(ctx, params)
	if err != nil {
		return nil, utils.PaginationResponse{}, fmt.Errorf("failed to list organizations: %w", err)
	}
	return orgs, utils.NewPaginationResponse(params, total), nil
}

// GetWithOwners returns an organization with all of its ownerships and users.
func (s *OrganizationService) GetWithOwners(ctx context.Context, id string) (*models.Organization, error) {
	org, err := s.orgRepo.FindWithOwners(ctx, id)
	if err != nil {
		return nil, translateOrganizationError(err)
	}
	return org, nil
}

func (s *OrganizationService) ensureNameAvailable(ctx context.Context, name, excludeID string) error {
	existing, err := s.orgRepo.FindByName(ctx, name)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return fmt.Errorf("failed to check organization name: %w", err)
	}
	if existing.ID != excludeID {
		return ErrOrganizationNameTaken
	}
	return nil
}

func normalizeOrganizationName(name string) (string, error) {
	name = strings.TrimSpace(name)
	n := utf8.RuneCountInString(name)
	if n < constants.MinOrganizationNameLength || n > constants.MaxOrganizationNameLength {
		return "", ErrInvalidOrganizationName
	}
	return name, nil
}

func validateDescription(description *string) error {
	if description != nil && utf8.RuneCountInString(*description) > constants.MaxOrganizationDescription {
		return ErrDescriptionTooLong
	}
	return nil
}
