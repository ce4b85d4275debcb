package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/yukikurage/org-backoffice-api/internal/constants"
	apierrors "github.com/yukikurage/org-backoffice-api/internal/errors"
	"github.com/yukikurage/org-backoffice-api/internal/models"
	"go.uber.org/zap"
)

// OrganizationFinder loads organizations by ID.
type OrganizationFinder interface {
	FindOne(ctx context.Context, id string) (*models.Organization, error)
}

// OrganizationContextValue describes the requested organization and the caller's relation to it.
// Ownership is set only while the caller's ownership is active; IsOwner also counts inactive rows.
type OrganizationContextValue struct {
	Organization *models.Organization
	Ownership    *models.OrganizationOwnership
	IsOwner      bool
}

// Role returns the caller's active role, or "" without an active ownership.
func (v *OrganizationContextValue) Role() models.Role {
	if v.Ownership == nil {
		return ""
	}
	return v.Ownership.Role
}

// OrganizationContext loads the organization named by the route and stores it
// in the context. Inactive organizations are rejected.
func OrganizationContext(orgs OrganizationFinder, ownerships OwnershipReader) gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID := c.Param(constants.ParamOrganizationID)
		if orgID == "" {
			c.Next()
			return
		}

		if _, err := uuid.Parse(orgID); err != nil {
			apierrors.InvalidFormat(c, "Invalid organization ID")
			c.Abort()
			return
		}

		org, err := orgs.FindOne(c.Request.Context(), orgID)
		if err != nil {
			apierrors.Respond(c, err)
			c.Abort()
			return
		}

		if !org.IsActive {
			apierrors.BadRequest(c, "Organization is not active")
			c.Abort()
			return
		}

		value := &OrganizationContextValue{Organization: org}

		if userID, ok := GetUserID(c); ok {
			ownership, err := ownerships.GetOwnership(c.Request.Context(), orgID, userID)
			switch {
			case err != nil:
				zap.L().Warn("failed to load ownership for organization context",
					zap.String("organization_id", orgID),
					zap.String("user_id", userID),
					zap.Error(err),
				)
			case ownership != nil:
				value.IsOwner = true
				if ownership.IsActive {
					value.Ownership = ownership
				}
			}
		}

		c.Set(constants.ContextKeyOrganization, value)
		c.Next()
	}
}

// GetOrganizationContext returns the value stored by OrganizationContext.
func GetOrganizationContext(c *gin.Context) (*OrganizationContextValue, bool) {
	value, exists := c.Get(constants.ContextKeyOrganization)
	if !exists {
		return nil, false
	}
	orgCtx, ok := value.(*OrganizationContextValue)
	return orgCtx, ok
}
