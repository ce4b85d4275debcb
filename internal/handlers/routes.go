package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/org-backoffice-api/internal/middleware"
	"github.com/yukikurage/org-backoffice-api/internal/models"
	"github.com/yukikurage/org-backoffice-api/internal/services"
)

// Services groups what the HTTP layer depends on.
type Services struct {
	Auth          *services.AuthService
	Tokens        *services.TokenService
	Users         *services.UserService
	Organizations *services.OrganizationService
	Ownerships    *services.OwnershipService
	Guards        *middleware.Guards
}

// RegisterRoutes mounts the API under /api.
func RegisterRoutes(r gin.IRouter, svc Services) {
	authHandler := NewAuthHandler(svc.Auth)
	userHandler := NewUserHandler(svc.Users)
	orgHandler := NewOrganizationHandler(svc.Organizations)
	ownerHandler := NewOwnerHandler(svc.Ownerships)

	requireAuth := middleware.RequireAuth(svc.Tokens)
	guards := svc.Guards

	api := r.Group("/api")
	{
		// Auth routes (public except /me)
		auth := api.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.GET("/me", requireAuth, authHandler.Me)
		}

		users := api.Group("/users")
		users.Use(requireAuth)
		{
			users.GET("", middleware.RequireUserRole(models.UserRoleAdmin), userHandler.ListUsers)
			users.GET("/:userId", userHandler.GetUser)
			users.PATCH("/:userId", userHandler.UpdateUser)
			users.DELETE("/:userId", middleware.RequireUserRole(models.UserRoleAdmin), userHandler.DeleteUser)
		}

		orgs := api.Group("/organizations")
		orgs.Use(requireAuth)
		{
			orgs.POST("", orgHandler.CreateOrganization)
			orgs.GET("", orgHandler.ListOrganizations)
			orgs.GET("/active", orgHandler.ListActiveOrganizations)
			orgs.GET("/by-owner/:ownerId", orgHandler.ListOrganizationsByOwner)
			orgs.GET("/name/:name", orgHandler.GetOrganizationByName)
			orgs.GET("/:organizationId",
				guards.OwnershipGuard(middleware.GuardConfig{Type: middleware.GuardMemberOrAbove}),
				orgHandler.GetOrganization)
			orgs.PATCH("/:organizationId",
				guards.OwnershipGuard(middleware.GuardConfig{Type: middleware.GuardAdminOrOwner}),
				orgHandler.UpdateOrganization)
			orgs.DELETE("/:organizationId",
				guards.OwnershipGuard(middleware.GuardConfig{Type: middleware.GuardOwnerOnly}),
				orgHandler.DeleteOrganization)
		}

		// Owner management requires an active organization
		owners := orgs.Group("/:organizationId/owners")
		owners.Use(middleware.OrganizationContext(svc.Organizations, svc.Ownerships))
		{
			owners.GET("",
				guards.OwnershipGuard(middleware.GuardConfig{Type: middleware.GuardActiveOwner}),
				ownerHandler.ListOwners)
			owners.GET("/active",
				guards.OwnershipGuard(middleware.GuardConfig{Type: middleware.GuardActiveOwner}),
				ownerHandler.ListActiveOwners)
			owners.GET("/by-role/:role",
				guards.OwnershipGuard(middleware.GuardConfig{Type: middleware.GuardActiveOwner}),
				ownerHandler.ListOwnersByRole)
			owners.POST("",
				guards.OwnershipGuard(middleware.GuardConfig{Type: middleware.GuardAdminOrOwner}),
				ownerHandler.AddOwners)
			owners.DELETE("",
				guards.OwnershipGuard(middleware.GuardConfig{Type: middleware.GuardOwnerOnly}),
				ownerHandler.RemoveOwners)
			owners.PATCH("/role",
				guards.RequireOrganizationRoles(models.RoleOwner),
				ownerHandler.UpdateOwnerRole)
			owners.PATCH("/:userId/deactivate",
				guards.OwnershipGuard(middleware.GuardConfig{Type: middleware.GuardOwnerOnly}),
				ownerHandler.DeactivateOwner)
			owners.PATCH("/:userId/reactivate",
				guards.OwnershipGuard(middleware.GuardConfig{Type: middleware.GuardOwnerOnly}),
				ownerHandler.ReactivateOwner)
		}
	}
}

// Health reports that the server is up.
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"message": "Organization backoffice API is running",
	})
}
