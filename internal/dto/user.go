package dto

import (
	"time"

	"github.com/yukikurage/org-backoffice-api/internal/models"
	"github.com/yukikurage/org-backoffice-api/internal/services"
	"github.com/yukikurage/org-backoffice-api/internal/utils"
)

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	Email     string `json:"email" binding:"required,email,max=255"`
	Password  string `json:"password" binding:"required"`
	FirstName string `json:"first_name" binding:"max=100"`
	LastName  string `json:"last_name" binding:"max=100"`
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// UpdateUserRequest is the body of PATCH /users/:userId.
type UpdateUserRequest struct {
	Email     *string          `json:"email" binding:"omitempty,email,max=255"`
	FirstName *string          `json:"first_name" binding:"omitempty,max=100"`
	LastName  *string          `json:"last_name" binding:"omitempty,max=100"`
	Role      *models.UserRole `json:"role" binding:"omitempty,oneof=admin user"`
	IsActive  *bool            `json:"is_active"`
}

// HasPrivilegedFields reports whether the request touches fields only admins may change.
func (r UpdateUserRequest) HasPrivilegedFields() bool {
	return r.Role != nil || r.IsActive != nil
}

// ToInput converts the request to service input.
func (r UpdateUserRequest) ToInput() services.UpdateUserInput {
	return services.UpdateUserInput{
		Email:     r.Email,
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Role:      r.Role,
		IsActive:  r.IsActive,
	}
}

// UserDTO represents a user in API responses
type UserDTO struct {
	ID        string          `json:"id"`
	Email     string          `json:"email"`
	FirstName string          `json:"first_name"`
	LastName  string          `json:"last_name"`
	Role      models.UserRole `json:"role"`
	IsActive  bool            `json:"is_active"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// UserListResponse represents a paginated list of users
type UserListResponse struct {
	Users      []UserDTO                `json:"users"`
	Pagination utils.PaginationResponse `json:"pagination"`
}

// AuthResponse is returned by register and login.
type AuthResponse struct {
	AccessToken string  `json:"access_token"`
	TokenType   string  `json:"token_type"`
	ExpiresIn   int64   `json:"expires_in"`
	User        UserDTO `json:"user"`
}

// ToUserDTO converts a User model to UserDTO
func ToUserDTO(user models.User) UserDTO {
	return UserDTO{
		ID:        user.ID,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Role:      user.Role,
		IsActive:  user.IsActive,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
}

// ToUserListResponse converts a page of users.
func ToUserListResponse(users []models.User, pagination utils.PaginationResponse) UserListResponse {
	items := make([]UserDTO, len(users))
	for i, user := range users {
		items[i] = ToUserDTO(user)
	}
	return UserListResponse{Users: items, Pagination: pagination}
}

// ToAuthResponse converts an authentication result.
func ToAuthResponse(result *services.AuthResult) AuthResponse {
	return AuthResponse{
		AccessToken: result.AccessToken,
		TokenType:   result.TokenType,
		ExpiresIn:   result.ExpiresIn,
		User:        ToUserDTO(*result.User),
	}
}
