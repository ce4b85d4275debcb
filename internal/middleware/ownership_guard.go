package middleware

import (
	"context"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/org-backoffice-api/internal/constants"
	apierrors "github.com/yukikurage/org-backoffice-api/internal/errors"
	"github.com/yukikurage/org-backoffice-api/internal/metrics"
	"github.com/yukikurage/org-backoffice-api/internal/models"
	"go.uber.org/zap"
)

// GuardType selects the rule an ownership guard applies.
// OWNER accepts any ownership record, active or not; CUSTOM accepts GuardConfig.AllowedRoles.
type GuardType string

const (
	GuardOwner         GuardType = "OWNER"
	GuardActiveOwner   GuardType = "ACTIVE_OWNER"
	GuardAdminOrOwner  GuardType = "ADMIN_OR_OWNER"
	GuardOwnerOnly     GuardType = "OWNER_ONLY"
	GuardMemberOrAbove GuardType = "MEMBER_OR_ABOVE"
	GuardCustom        GuardType = "CUSTOM"
)

const guardRoleList = "ROLE_LIST"

var guardRoles = map[GuardType][]models.Role{
	GuardAdminOrOwner:  {models.RoleAdmin, models.RoleOwner},
	GuardOwnerOnly:     {models.RoleOwner},
	GuardMemberOrAbove: {models.RoleMember, models.RoleAdmin, models.RoleOwner},
}

var guardMessages = map[GuardType]string{
	GuardOwner:         "You must be an owner of this organization",
	GuardActiveOwner:   "You must be an active owner of this organization",
	GuardAdminOrOwner:  "You must have the ADMIN or OWNER role in this organization",
	GuardOwnerOnly:     "Only organization OWNERs can perform this action",
	GuardMemberOrAbove: "You must be a member of this organization",
	GuardCustom:        "You do not have the required permissions in this organization",
}

// GuardConfig configures an ownership guard.
type GuardConfig struct {
	Type         GuardType
	AllowedRoles []models.Role
	Message      string

	// RequireActive defaults to true when nil.
	RequireActive *bool

	// Param names the route parameter holding the organization ID.
	Param string
}

// OwnershipReader looks up a caller's ownership of an organization.
type OwnershipReader interface {
	GetOwnership(ctx context.Context, orgID, userID string) (*models.OrganizationOwnership, error)
}

// Guards builds authorization middleware backed by the ownership store.
// Every request re-queries the store.
type Guards struct {
	ownerships OwnershipReader
	metrics    *metrics.Metrics
}

// NewGuards creates a new Guards.
func NewGuards(ownerships OwnershipReader, m *metrics.Metrics) *Guards {
	return &Guards{ownerships: ownerships, metrics: m}
}

// OwnershipGuard checks the caller against cfg.
// It answers 401 without a caller, 400 without an organization ID and 403 when the rule fails.
func (g *Guards) OwnershipGuard(cfg GuardConfig) gin.HandlerFunc {
	param := cfg.Param
	if param == "" {
		param = constants.ParamOrganizationID
	}
	requireActive := cfg.RequireActive == nil || *cfg.RequireActive

	return func(c *gin.Context) {
		userID, ok := GetUserID(c)
		if !ok {
			apierrors.Unauthorized(c, "")
			c.Abort()
			return
		}

		orgID := strings.TrimSpace(c.Param(param))
		if orgID == "" {
			apierrors.BadRequest(c, "Organization ID is required in the route")
			c.Abort()
			return
		}

		if cfg.Type == GuardCustom && len(cfg.AllowedRoles) == 0 {
			apierrors.BadRequest(c, "CUSTOM guard requires allowed roles")
			c.Abort()
			return
		}
		if _, known := guardMessages[cfg.Type]; !known {
			apierrors.BadRequest(c, fmt.Sprintf("Unsupported guard type: %s", cfg.Type))
			c.Abort()
			return
		}

		ownership, err := g.ownerships.GetOwnership(c.Request.Context(), orgID, userID)
		if err != nil {
			zap.L().Error("failed to verify organization ownership",
				zap.String("organization_id", orgID),
				zap.String("user_id", userID),
				zap.Error(err),
			)
			g.metrics.ObserveGuard(string(cfg.Type), false)
			apierrors.Forbidden(c, "Failed to verify organization permissions")
			c.Abort()
			return
		}

		allowed := evaluate(cfg, requireActive, ownership)
		g.metrics.ObserveGuard(string(cfg.Type), allowed)
		if !allowed {
			message := cfg.Message
			if message == "" {
				message = guardMessages[cfg.Type]
			}
			apierrors.Forbidden(c, message)
			c.Abort()
			return
		}

		c.Next()
	}
}

func evaluate(cfg GuardConfig, requireActive bool, ownership *models.OrganizationOwnership) bool {
	if ownership == nil {
		return false
	}

	switch cfg.Type {
	case GuardOwner:
		return true
	case GuardActiveOwner:
		return ownership.IsActive
	case GuardCustom:
		return (ownership.IsActive || !requireActive) && models.ContainsRole(cfg.AllowedRoles, ownership.Role)
	default:
		return (ownership.IsActive || !requireActive) && models.ContainsRole(guardRoles[cfg.Type], ownership.Role)
	}
}

// RequireOrganizationRoles allows active owners holding one of roles and
// stores their ownership in the context.
func (g *Guards) RequireOrganizationRoles(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := GetUserID(c)
		if !ok {
			apierrors.Unauthorized(c, "")
			c.Abort()
			return
		}

		orgID := strings.TrimSpace(c.Param(constants.ParamOrganizationID))
		if orgID == "" {
			apierrors.BadRequest(c, "Organization ID is required in the route")
			c.Abort()
			return
		}

		if len(roles) == 0 {
			c.Next()
			return
		}

		ownership, err := g.ownerships.GetOwnership(c.Request.Context(), orgID, userID)
		if err != nil {
			zap.L().Error("failed to verify organization role",
				zap.String("organization_id", orgID),
				zap.String("user_id", userID),
				zap.Error(err),
			)
			g.metrics.ObserveGuard(guardRoleList, false)
			apierrors.Forbidden(c, "Failed to verify organization permissions")
			c.Abort()
			return
		}

		if ownership == nil || !ownership.IsActive {
			g.metrics.ObserveGuard(guardRoleList, false)
			apierrors.Forbidden(c, "You are not an owner of this organization")
			c.Abort()
			return
		}

		if !models.ContainsRole(roles, ownership.Role) {
			g.metrics.ObserveGuard(guardRoleList, false)
			apierrors.InsufficientPermissions(c, fmt.Sprintf(
				"Insufficient role. Requires one of: %s. Current role: %s",
				joinRoles(roles), ownership.Role,
			))
			c.Abort()
			return
		}

		g.metrics.ObserveGuard(guardRoleList, true)
		c.Set(constants.ContextKeyOwnership, ownership)
		c.Next()
	}
}

// GetOwnership returns the ownership stored by RequireOrganizationRoles.
func GetOwnership(c *gin.Context) (*models.OrganizationOwnership, bool) {
	value, exists := c.Get(constants.ContextKeyOwnership)
	if !exists {
		return nil, false
	}
	ownership, ok := value.(*models.OrganizationOwnership)
	return ownership, ok
}

func joinRoles(roles []models.Role) string {
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = string(r)
	}
	return strings.Join(names, ", ")
}
