package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	apierrors "github.com/yukikurage/org-backoffice-api/internal/errors"
	"github.com/yukikurage/org-backoffice-api/internal/models"
	"github.com/yukikurage/org-backoffice-api/internal/repository"
	"github.com/yukikurage/org-backoffice-api/internal/utils"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrEmailTaken      = apierrors.NewConflict("email already exists").WithCode(apierrors.ErrCodeAlreadyExists)
	ErrInvalidUserRole = apierrors.NewValidation("invalid user role").WithCode(apierrors.ErrCodeInvalidFormat)
	ErrUserIsLastOwner = apierrors.NewValidation("user is the last active owner of the following organizations").WithCode(apierrors.ErrCodeInvalidOperation)
	ErrFieldRequired   = apierrors.NewValidation("field cannot be empty").WithCode(apierrors.ErrCodeMissingField)
)

// UserService handles user management.
type UserService struct {
	db        *gorm.DB
	userRepo  repository.UserRepository
	orgRepo   repository.OrganizationRepository
	ownerRepo repository.OwnershipRepository
}

// NewUserService creates a new UserService.
func NewUserService(
	db *gorm.DB,
	userRepo repository.UserRepository,
	orgRepo repository.OrganizationRepository,
	ownerRepo repository.OwnershipRepository,
) *UserService {
	return &UserService{
		db:        db,
		userRepo:  userRepo,
		orgRepo:   orgRepo,
		ownerRepo: ownerRepo,
	}
}

// UpdateUserInput holds the user fields to change. Nil fields are left untouched.
type UpdateUserInput struct {
	Email     *string
	FirstName *string
	LastName  *string
	Role      *models.UserRole
	IsActive  *bool
}

// FindByID retrieves a user by ID.
func (s *UserService) FindByID(ctx context.Context, id string) (*models.User, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return user, nil
}

// FindByEmail retrieves a user by email.
func (s *UserService) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	user, err := s.userRepo.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return user, nil
}

// List returns one page of users.
func (s *UserService) List(ctx context.Context, page, limit int) ([]models.User, utils.PaginationResponse, error) {
	params := utils.NewPaginationParams(page, limit)
	users, total, err := s.userRepo.List(ctx, params)
	if err != nil {
		return nil, utils.PaginationResponse{}, fmt.Errorf("failed to list users: %w", err)
	}
	return users, utils.NewPaginationResponse(params, total), nil
}

// Update changes the given user fields.
func (s *UserService) Update(ctx context.Context, id string, input UpdateUserInput) (*models.User, error) {
	user, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Email != nil {
		email := normalizeEmail(*input.Email)
		if email == "" {
			return nil, apierrors.WithIDs(ErrFieldRequired, "email")
		}
		if email != user.Email {
			if _, err := s.userRepo.FindByEmail(ctx, email); err == nil {
				return nil, ErrEmailTaken
			} else if !errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("failed to check email: %w", err)
			}
			user.Email = email
		}
	}
	if input.FirstName != nil {
		if strings.TrimSpace(*input.FirstName) == "" {
			return nil, apierrors.WithIDs(ErrFieldRequired, "first_name")
		}
		user.FirstName = strings.TrimSpace(*input.FirstName)
	}
	if input.LastName != nil {
		if strings.TrimSpace(*input.LastName) == "" {
			return nil, apierrors.WithIDs(ErrFieldRequired, "last_name")
		}
		user.LastName = strings.TrimSpace(*input.LastName)
	}
	if input.Role != nil {
		if *input.Role != models.UserRoleAdmin && *input.Role != models.UserRoleUser {
			return nil, ErrInvalidUserRole
		}
		user.Role = *input.Role
	}
	if input.IsActive != nil {
		user.IsActive = *input.IsActive
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return user, nil
}

// Remove deletes a user together with their ownerships.
// It refuses when the user is the last active owner of any organization.
func (s *UserService) Remove(ctx context.Context, id string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		users := s.userRepo.WithTx(tx)
		orgs := s.orgRepo.WithTx(tx)
		owners := s.ownerRepo.WithTx(tx)

		if _, err := users.FindByID(ctx, id); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return fmt.Errorf("failed to find user: %w", err)
		}

		ownerships, err := owners.FindOrganizationsByOwner(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to list ownerships: %w", err)
		}

		var orgIDs []string
		for _, o := range ownerships {
			if o.IsActive {
				orgIDs = append(orgIDs, o.OrganizationID)
			}
		}
		// Lock in a stable order.
		sort.Strings(orgIDs)

		var lastOwnerOf []string
		for _, orgID := range orgIDs {
			if _, err := orgs.FindByIDForUpdate(ctx, orgID); err != nil {
				return fmt.Errorf("failed to lock organization: %w", err)
			}
			count, err := owners.CountActiveOwners(ctx, orgID)
			if err != nil {
				return fmt.Errorf("failed to count active owners: %w", err)
			}
			if count <= 1 {
				lastOwnerOf = append(lastOwnerOf, orgID)
			}
		}
		if len(lastOwnerOf) > 0 {
			return apierrors.WithIDs(ErrUserIsLastOwner, lastOwnerOf...)
		}

		if _, err := owners.RemoveUserFromAllOrganizations(ctx, id); err != nil {
			return fmt.Errorf("failed to remove ownerships: %w", err)
		}
		if err := owners.ClearAssignedBy(ctx, id); err != nil {
			return fmt.Errorf("failed to clear assignments: %w", err)
		}
		if _, err := users.Delete(ctx, id); err != nil {
			return fmt.Errorf("failed to delete user: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	zap.L().Info("user removed", zap.String("user_id", id))
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
