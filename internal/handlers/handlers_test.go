package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/org-backoffice-api/internal/database"
	"github.com/yukikurage/org-backoffice-api/internal/metrics"
	"github.com/yukikurage/org-backoffice-api/internal/middleware"
	"github.com/yukikurage/org-backoffice-api/internal/models"
	"github.com/yukikurage/org-backoffice-api/internal/repository"
	"github.com/yukikurage/org-backoffice-api/internal/services"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type handlerTestEnv struct {
	db     *gorm.DB
	router *gin.Engine
	tokens *services.TokenService
	svc    Services
}

func setupHandlerTestEnv(t *testing.T) handlerTestEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() {
		sqlDB.Close()
	})

	require.NoError(t, database.Migrate(db))

	m := metrics.New(prometheus.NewRegistry())
	userRepo := repository.NewUserRepository(db)
	orgRepo := repository.NewOrganizationRepository(db)
	ownerRepo := repository.NewOwnershipRepository(db)

	tokens := services.NewTokenService("test-secret", "org-backoffice-api", time.Hour)
	ownerships := services.NewOwnershipService(db, ownerRepo, orgRepo, userRepo, m)
	svc := Services{
		Auth:          services.NewAuthService(userRepo, tokens, bcrypt.MinCost),
		Tokens:        tokens,
		Users:         services.NewUserService(db, userRepo, orgRepo, ownerRepo),
		Organizations: services.NewOrganizationService(db, orgRepo, ownerRepo, ownerships),
		Ownerships:    ownerships,
		Guards:        middleware.NewGuards(ownerships, m),
	}

	router := gin.New()
	RegisterRoutes(router, svc)

	return handlerTestEnv{
		db:     db,
		router: router,
		tokens: tokens,
		svc:    svc,
	}
}

// createTestUser inserts a user and returns it with a valid access token.
func createTestUser(t *testing.T, env handlerTestEnv, email string, role models.UserRole) (*models.User, string) {
	t.Helper()
	user := &models.User{
		Email:        email,
		PasswordHash: "hashed",
		FirstName:    "Test",
		LastName:     "User",
		Role:         role,
		IsActive:     true,
	}
	require.NoError(t, env.db.Create(user).Error)

	token, err := env.tokens.Generate(user)
	require.NoError(t, err)
	return user, token
}

// createTestOrganization inserts an organization owned by the given users as OWNERs.
func createTestOrganization(t *testing.T, env handlerTestEnv, name string, ownerIDs ...string) *models.Organization {
	t.Helper()
	org, err := env.svc.Organizations.Create(context.Background(), services.CreateOrganizationInput{
		Name:     name,
		OwnerIDs: ownerIDs,
	})
	require.NoError(t, err)
	return org
}

func (env handlerTestEnv) do(t *testing.T, method, url, token string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var body *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, url, body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	return w
}

func decodeJSON(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), out), w.Body.String())
}
