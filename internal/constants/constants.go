package constants

// Context keys
const (
	ContextKeyUserID       = "user_id"
	ContextKeyUserRole     = "user_role"
	ContextKeyOwnership    = "organization_ownership"
	ContextKeyOrganization = "organization_context"
)

// Route parameters
const (
	ParamOrganizationID = "organizationId"
	ParamUserID         = "userId"
	ParamOwnerID        = "ownerId"
	ParamName           = "name"
	ParamRole           = "role"
)

// Pagination
const (
	DefaultPage     = 1
	MinPageSize     = 1
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Validation limits
const (
	MinPasswordLength          = 8
	MinOrganizationNameLength  = 2
	MaxOrganizationNameLength  = 100
	MaxOrganizationDescription = 500
	MaxOwnersPerRequest        = 10
)

// Auth
const (
	AuthorizationHeader = "Authorization"
	BearerPrefix        = "Bearer "
	TokenType           = "Bearer"
)
