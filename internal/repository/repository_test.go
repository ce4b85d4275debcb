package repository

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/org-backoffice-api/internal/database"
	"github.com/yukikurage/org-backoffice-api/internal/models"
	"github.com/yukikurage/org-backoffice-api/internal/utils"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupRepositoryTestDB(t *testing.T) *gorm.DB {
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
	return db
}

func createRepoTestUser(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()
	user := &models.User{
		Email:        email,
		PasswordHash: "hashed",
		FirstName:    "Test",
		LastName:     "User",
		Role:         models.UserRoleUser,
		IsActive:     true,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func createRepoTestOrganization(t *testing.T, db *gorm.DB, name string, active bool) *models.Organization {
	t.Helper()
	org := &models.Organization{Name: name, IsActive: active}
	require.NoError(t, db.Create(org).Error)
	return org
}

func TestOrganizationRepositoryFindByIDForUpdateLocksRow(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	rows := sqlmock.NewRows([]string{"id", "name", "is_active"}).AddRow("org-1", "Acme", true)
	mock.ExpectQuery(`SELECT \* FROM "organizations" WHERE id = \$1 .*FOR UPDATE`).
		WillReturnRows(rows)

	org, err := NewOrganizationRepository(db).FindByIDForUpdate(context.Background(), "org-1")
	require.NoError(t, err)
	require.Equal(t, "Acme", org.Name)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOrganizationRepositoryQueries(t *testing.T) {
	db := setupRepositoryTestDB(t)
	ctx := context.Background()
	orgRepo := NewOrganizationRepository(db)
	ownerRepo := NewOwnershipRepository(db)

	alice := createRepoTestUser(t, db, "alice@example.com")
	acme := createRepoTestOrganization(t, db, "Acme", true)
	globex := createRepoTestOrganization(t, db, "Globex", false)
	createRepoTestOrganization(t, db, "Initech", true)

	_, err := ownerRepo.AddOwner(ctx, acme.ID, alice.ID, models.RoleOwner, nil)
	require.NoError(t, err)
	_, err = ownerRepo.AddOwner(ctx, globex.ID, alice.ID, models.RoleAdmin, nil)
	require.NoError(t, err)
	require.NoError(t, ownerRepo.DeactivateOwner(ctx, globex.ID, alice.ID))

	t.Run("find by name", func(t *testing.T) {
		org, err := orgRepo.FindByName(ctx, "Acme")
		require.NoError(t, err)
		require.Equal(t, acme.ID, org.ID)

		_, err = orgRepo.FindByName(ctx, "Missing")
		require.ErrorIs(t, err, gorm.ErrRecordNotFound)
	})

	t.Run("find by owner only uses active ownerships", func(t *testing.T) {
		orgs, err := orgRepo.FindByOwner(ctx, alice.ID)
		require.NoError(t, err)
		require.Len(t, orgs, 1)
		require.Equal(t, acme.ID, orgs[0].ID)
	})

	t.Run("find active", func(t *testing.T) {
		orgs, err := orgRepo.FindActive(ctx)
		require.NoError(t, err)
		require.Len(t, orgs, 2)
		for _, org := range orgs {
			require.True(t, org.IsActive)
		}
	})

	t.Run("find with owners includes inactive rows and users", func(t *testing.T) {
		org, err := orgRepo.FindWithOwners(ctx, globex.ID)
		require.NoError(t, err)
		require.Len(t, org.Owners, 1)
		require.False(t, org.Owners[0].IsActive)
		require.NotNil(t, org.Owners[0].User)
		require.Equal(t, alice.Email, org.Owners[0].User.Email)
	})

	t.Run("list paginates with total", func(t *testing.T) {
		orgs, total, err := orgRepo.List(ctx, utils.NewPaginationParams(1, 2))
		require.NoError(t, err)
		require.Equal(t, int64(3), total)
		require.Len(t, orgs, 2)

		orgs, _, err = orgRepo.List(ctx, utils.NewPaginationParams(2, 2))
		require.NoError(t, err)
		require.Len(t, orgs, 1)
	})

	t.Run("update and delete", func(t *testing.T) {
		require.NoError(t, orgRepo.Update(ctx, acme.ID, map[string]interface{}{"name": "Acme Corp"}))
		org, err := orgRepo.FindByID(ctx, acme.ID)
		require.NoError(t, err)
		require.Equal(t, "Acme Corp", org.Name)

		deleted, err := orgRepo.Delete(ctx, acme.ID)
		require.NoError(t, err)
		require.True(t, deleted)

		deleted, err = orgRepo.Delete(ctx, acme.ID)
		require.NoError(t, err)
		require.False(t, deleted)
	})
}

func TestUserRepositoryFindByIDs(t *testing.T) {
	db := setupRepositoryTestDB(t)
	ctx := context.Background()
	repo := NewUserRepository(db)

	alice := createRepoTestUser(t, db, "alice@example.com")
	bob := createRepoTestUser(t, db, "bob@example.com")

	users, err := repo.FindByIDs(ctx, []string{alice.ID, bob.ID, "missing"})
	require.NoError(t, err)
	require.Len(t, users, 2)

	users, err = repo.FindByIDs(ctx, nil)
	require.NoError(t, err)
	require.Empty(t, users)

	user, err := repo.FindByEmail(ctx, "bob@example.com")
	require.NoError(t, err)
	require.Equal(t, bob.ID, user.ID)

	all, total, err := repo.List(ctx, utils.NewPaginationParams(1, 10))
	require.NoError(t, err)
	require.Equal(t, int64(2), total)
	require.Len(t, all, 2)
}
