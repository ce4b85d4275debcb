package services

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/org-backoffice-api/internal/database"
	apierrors "github.com/yukikurage/org-backoffice-api/internal/errors"
	"github.com/yukikurage/org-backoffice-api/internal/metrics"
	"github.com/yukikurage/org-backoffice-api/internal/models"
	"github.com/yukikurage/org-backoffice-api/internal/repository"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type serviceTestEnv struct {
	db         *gorm.DB
	metrics    *metrics.Metrics
	ownerRepo  repository.OwnershipRepository
	ownerships *OwnershipService
	orgs       *OrganizationService
	users      *UserService
}

func setupServiceTestEnv(t *testing.T) serviceTestEnv {
	t.Helper()

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
	ownerships := NewOwnershipService(db, ownerRepo, orgRepo, userRepo, m)

	return serviceTestEnv{
		db:         db,
		metrics:    m,
		ownerRepo:  ownerRepo,
		ownerships: ownerships,
		orgs:       NewOrganizationService(db, orgRepo, ownerRepo, ownerships),
		users:      NewUserService(db, userRepo, orgRepo, ownerRepo),
	}
}

func createServiceTestUser(t *testing.T, db *gorm.DB, email string, active bool) *models.User {
	t.Helper()
	user := &models.User{
		Email:        email,
		PasswordHash: "hashed",
		FirstName:    "Test",
		LastName:     "User",
		Role:         models.UserRoleUser,
		IsActive:     active,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func requireDomainIDs(t *testing.T, err error, sentinel *apierrors.Error, ids ...string) {
	t.Helper()
	require.ErrorIs(t, err, sentinel)
	var domainErr *apierrors.Error
	require.ErrorAs(t, err, &domainErr)
	require.ElementsMatch(t, ids, domainErr.IDs)
}

func requireActiveOwnerCount(t *testing.T, repo repository.OwnershipRepository, orgID string, want int64) {
	t.Helper()
	count, err := repo.CountActiveOwners(context.Background(), orgID)
	require.NoError(t, err)
	require.Equal(t, want, count)
}
