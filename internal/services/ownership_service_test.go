package services

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"github.com/yukikurage/org-backoffice-api/internal/constants"
	apierrors "github.com/yukikurage/org-backoffice-api/internal/errors"
	"github.com/yukikurage/org-backoffice-api/internal/metrics"
	"github.com/yukikurage/org-backoffice-api/internal/models"
)

// OwnershipServiceTestSuite covers the ownership rules against an in-memory database.
// Every test starts from an organization owned by alice (OWNER) and bob (ADMIN).
type OwnershipServiceTestSuite struct {
	suite.Suite
	env   serviceTestEnv
	ctx   context.Context
	org   *models.Organization
	alice *models.User
	bob   *models.User
	carol *models.User
}

func (suite *OwnershipServiceTestSuite) SetupTest() {
	suite.env = setupServiceTestEnv(suite.T())
	suite.ctx = context.Background()

	suite.alice = createServiceTestUser(suite.T(), suite.env.db, "alice@example.com", true)
	suite.bob = createServiceTestUser(suite.T(), suite.env.db, "bob@example.com", true)
	suite.carol = createServiceTestUser(suite.T(), suite.env.db, "carol@example.com", true)

	org, err := suite.env.orgs.Create(suite.ctx, CreateOrganizationInput{
		Name:     "Acme",
		OwnerIDs: []string{suite.alice.ID},
	})
	suite.Require().NoError(err)
	suite.org = org

	_, err = suite.env.ownerships.AddOwners(suite.ctx, org.ID, AddOwnersInput{
		UserIDs:    []string{suite.bob.ID},
		Role:       models.RoleAdmin,
		AssignedBy: &suite.alice.ID,
	})
	suite.Require().NoError(err)
}

func (suite *OwnershipServiceTestSuite) requireActiveOwners(want int64) {
	requireActiveOwnerCount(suite.T(), suite.env.ownerRepo, suite.org.ID, want)
}

func (suite *OwnershipServiceTestSuite) TestAddOwners_DefaultRoleIsOwner() {
	org, err := suite.env.ownerships.AddOwners(suite.ctx, suite.org.ID, AddOwnersInput{
		UserIDs: []string{suite.carol.ID},
	})
	suite.Require().NoError(err)
	suite.Len(org.Owners, 3)

	owners, err := suite.env.ownerships.GetActiveOwners(suite.ctx, suite.org.ID)
	suite.Require().NoError(err)

	var found *models.OrganizationOwnership
	for i := range owners {
		if owners[i].UserID == suite.carol.ID {
			found = &owners[i]
		}
	}
	suite.Require().NotNil(found)
	suite.Equal(models.RoleOwner, found.Role)
	suite.True(found.IsActive)
	suite.Nil(found.AssignedBy)
}

func (suite *OwnershipServiceTestSuite) TestAddOwners_OrganizationNotFound() {
	_, err := suite.env.ownerships.AddOwners(suite.ctx, "missing-org", AddOwnersInput{
		UserIDs: []string{suite.carol.ID},
	})
	suite.ErrorIs(err, ErrOrganizationNotFound)
	suite.True(apierrors.Is(err, apierrors.KindNotFound))
}

func (suite *OwnershipServiceTestSuite) TestAddOwners_ReportsAllMissingUsers() {
	_, err := suite.env.ownerships.AddOwners(suite.ctx, suite.org.ID, AddOwnersInput{
		UserIDs: []string{"ghost-1", suite.carol.ID, "ghost-2"},
	})
	requireDomainIDs(suite.T(), err, ErrUsersNotFound, "ghost-1", "ghost-2")
	suite.True(apierrors.Is(err, apierrors.KindValidation))

	isOwner, err := suite.env.ownerships.IsOwner(suite.ctx, suite.org.ID, suite.carol.ID)
	suite.Require().NoError(err)
	suite.False(isOwner, "no row is written when validation fails")
}

func (suite *OwnershipServiceTestSuite) TestAddOwners_InactiveUserFailsFast() {
	dave := createServiceTestUser(suite.T(), suite.env.db, "dave@example.com", false)

	_, err := suite.env.ownerships.AddOwners(suite.ctx, suite.org.ID, AddOwnersInput{
		UserIDs: []string{dave.ID, "ghost-1"},
	})
	requireDomainIDs(suite.T(), err, ErrUserInactive, dave.ID)

	_, err = suite.env.ownerships.AddOwners(suite.ctx, suite.org.ID, AddOwnersInput{
		UserIDs: []string{"ghost-1", dave.ID},
	})
	requireDomainIDs(suite.T(), err, ErrUserInactive, dave.ID)
}

func (suite *OwnershipServiceTestSuite) TestAddOwners_RejectsActiveOwners() {
	_, err := suite.env.ownerships.AddOwners(suite.ctx, suite.org.ID, AddOwnersInput{
		UserIDs: []string{suite.alice.ID, suite.carol.ID, suite.bob.ID},
	})
	requireDomainIDs(suite.T(), err, ErrAlreadyActiveOwners, suite.alice.ID, suite.bob.ID)
	suite.True(apierrors.Is(err, apierrors.KindConflict))
	suite.requireActiveOwners(2)
}

func (suite *OwnershipServiceTestSuite) TestAddOwners_InvalidRole() {
	_, err := suite.env.ownerships.AddOwners(suite.ctx, suite.org.ID, AddOwnersInput{
		UserIDs: []string{suite.carol.ID},
		Role:    models.Role("SUPREME"),
	})
	suite.ErrorIs(err, ErrInvalidRole)
}

func (suite *OwnershipServiceTestSuite) TestAddOwners_EmptyList() {
	_, err := suite.env.ownerships.AddOwners(suite.ctx, suite.org.ID, AddOwnersInput{})
	suite.ErrorIs(err, ErrNoUserIDsProvided)
}

func (suite *OwnershipServiceTestSuite) TestAddOwners_TooManyUserIDs() {
	userIDs := make([]string, 0, constants.MaxOwnersPerRequest+1)
	for i := 0; i <= constants.MaxOwnersPerRequest; i++ {
		userIDs = append(userIDs, fmt.Sprintf("user-%d", i))
	}

	_, err := suite.env.ownerships.AddOwners(suite.ctx, suite.org.ID, AddOwnersInput{UserIDs: userIDs})
	suite.ErrorIs(err, ErrTooManyUserIDs)

	// Duplicates collapse before the count is checked.
	_, err = suite.env.ownerships.AddOwners(suite.ctx, suite.org.ID, AddOwnersInput{
		UserIDs: []string{userIDs[0], userIDs[0], userIDs[0]},
	})
	suite.ErrorIs(err, ErrUsersNotFound)

	_, err = suite.env.ownerships.RemoveOwners(suite.ctx, suite.org.ID, userIDs)
	suite.ErrorIs(err, ErrTooManyUserIDs)
	suite.requireActiveOwners(2)
}

func (suite *OwnershipServiceTestSuite) TestAddOwners_ReassignsInactiveOwner() {
	suite.Require().NoError(suite.env.ownerships.DeactivateOwner(suite.ctx, suite.org.ID, suite.bob.ID))

	_, err := suite.env.ownerships.AddOwners(suite.ctx, suite.org.ID, AddOwnersInput{
		UserIDs: []string{suite.bob.ID},
		Role:    models.RoleViewer,
	})
	suite.Require().NoError(err)

	ownership, err := suite.env.ownerships.GetOwnership(suite.ctx, suite.org.ID, suite.bob.ID)
	suite.Require().NoError(err)
	suite.True(ownership.IsActive)
	suite.Equal(models.RoleViewer, ownership.Role)
	suite.requireActiveOwners(2)
}

func (suite *OwnershipServiceTestSuite) TestRemoveOwners_Scenario() {
	_, err := suite.env.ownerships.RemoveOwners(suite.ctx, suite.org.ID, []string{suite.alice.ID, suite.bob.ID})
	suite.ErrorIs(err, ErrLastActiveOwner)
	suite.requireActiveOwners(2)

	org, err := suite.env.ownerships.RemoveOwners(suite.ctx, suite.org.ID, []string{suite.alice.ID})
	suite.Require().NoError(err)
	suite.Require().Len(org.Owners, 1)
	suite.Equal(suite.bob.ID, org.Owners[0].UserID)
	suite.requireActiveOwners(1)

	_, err = suite.env.ownerships.RemoveOwners(suite.ctx, suite.org.ID, []string{suite.bob.ID})
	suite.ErrorIs(err, ErrLastActiveOwner)
}

func (suite *OwnershipServiceTestSuite) TestRemoveOwners_ValidatesMembershipFirst() {
	_, err := suite.env.ownerships.RemoveOwners(suite.ctx, suite.org.ID, []string{suite.alice.ID, suite.carol.ID})
	requireDomainIDs(suite.T(), err, ErrNotActiveOwners, suite.carol.ID)
	suite.requireActiveOwners(2)
}

func (suite *OwnershipServiceTestSuite) TestRemoveOwners_InactiveOwnerIsNotRemovable() {
	_, err := suite.env.ownerships.AddOwners(suite.ctx, suite.org.ID, AddOwnersInput{UserIDs: []string{suite.carol.ID}})
	suite.Require().NoError(err)
	suite.Require().NoError(suite.env.ownerships.DeactivateOwner(suite.ctx, suite.org.ID, suite.carol.ID))

	_, err = suite.env.ownerships.RemoveOwners(suite.ctx, suite.org.ID, []string{suite.carol.ID})
	requireDomainIDs(suite.T(), err, ErrNotActiveOwners, suite.carol.ID)
}

func (suite *OwnershipServiceTestSuite) TestRemoveOwners_DeduplicatesIDs() {
	_, err := suite.env.ownerships.RemoveOwners(suite.ctx, suite.org.ID, []string{suite.bob.ID, suite.bob.ID})
	suite.Require().NoError(err)
	suite.requireActiveOwners(1)
}

func (suite *OwnershipServiceTestSuite) TestUpdateOwnerRole_NonOwner() {
	_, err := suite.env.ownerships.UpdateOwnerRole(suite.ctx, suite.org.ID, suite.carol.ID, models.RoleAdmin)
	suite.ErrorIs(err, ErrNotActiveOwner)
	suite.True(apierrors.Is(err, apierrors.KindValidation))

	isOwner, err := suite.env.ownerships.IsOwner(suite.ctx, suite.org.ID, suite.carol.ID)
	suite.Require().NoError(err)
	suite.False(isOwner)
}

func (suite *OwnershipServiceTestSuite) TestUpdateOwnerRole_KeepsAssignment() {
	before, err := suite.env.ownerships.GetOwnership(suite.ctx, suite.org.ID, suite.bob.ID)
	suite.Require().NoError(err)

	_, err = suite.env.ownerships.UpdateOwnerRole(suite.ctx, suite.org.ID, suite.bob.ID, models.RoleEditor)
	suite.Require().NoError(err)

	after, err := suite.env.ownerships.GetOwnership(suite.ctx, suite.org.ID, suite.bob.ID)
	suite.Require().NoError(err)
	suite.Equal(models.RoleEditor, after.Role)
	suite.Equal(before.AssignedAt.Unix(), after.AssignedAt.Unix())
	suite.Require().NotNil(after.AssignedBy)
	suite.Equal(suite.alice.ID, *after.AssignedBy)
}

func (suite *OwnershipServiceTestSuite) TestUpdateOwnerRole_InvalidRole() {
	_, err := suite.env.ownerships.UpdateOwnerRole(suite.ctx, suite.org.ID, suite.bob.ID, models.Role("ROOT"))
	suite.ErrorIs(err, ErrInvalidRole)
}

func (suite *OwnershipServiceTestSuite) TestDeactivateOwner_Scenario() {
	suite.Require().NoError(suite.env.ownerships.DeactivateOwner(suite.ctx, suite.org.ID, suite.bob.ID))

	err := suite.env.ownerships.DeactivateOwner(suite.ctx, suite.org.ID, suite.alice.ID)
	suite.ErrorIs(err, ErrLastActiveOwner)
	suite.requireActiveOwners(1)

	err = suite.env.ownerships.DeactivateOwner(suite.ctx, suite.org.ID, suite.bob.ID)
	suite.ErrorIs(err, ErrNotActiveOwner)
}

func (suite *OwnershipServiceTestSuite) TestReactivateOwner_StateMachine() {
	err := suite.env.ownerships.ReactivateOwner(suite.ctx, suite.org.ID, suite.carol.ID)
	suite.ErrorIs(err, ErrOwnershipMissing)

	err = suite.env.ownerships.ReactivateOwner(suite.ctx, suite.org.ID, suite.bob.ID)
	suite.ErrorIs(err, ErrOwnerAlreadyActive)

	suite.Require().NoError(suite.env.ownerships.DeactivateOwner(suite.ctx, suite.org.ID, suite.bob.ID))
	suite.Require().NoError(suite.env.ownerships.ReactivateOwner(suite.ctx, suite.org.ID, suite.bob.ID))
	suite.requireActiveOwners(2)
}

func (suite *OwnershipServiceTestSuite) TestConcurrentDeactivationKeepsOneOwner() {
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, userID := range []string{suite.alice.ID, suite.bob.ID} {
		wg.Add(1)
		go func(i int, userID string) {
			defer wg.Done()
			errs[i] = suite.env.ownerships.DeactivateOwner(context.Background(), suite.org.ID, userID)
		}(i, userID)
	}
	wg.Wait()

	failures := 0
	for _, err := range errs {
		if err != nil {
			suite.ErrorIs(err, ErrLastActiveOwner)
			failures++
		}
	}
	suite.Equal(1, failures)
	suite.requireActiveOwners(1)
}

func (suite *OwnershipServiceTestSuite) TestMutationSequenceKeepsAnActiveOwner() {
	steps := []func() error{
		func() error {
			_, err := suite.env.ownerships.AddOwners(suite.ctx, suite.org.ID, AddOwnersInput{UserIDs: []string{suite.carol.ID}})
			return err
		},
		func() error { return suite.env.ownerships.DeactivateOwner(suite.ctx, suite.org.ID, suite.alice.ID) },
		func() error {
			_, err := suite.env.ownerships.RemoveOwners(suite.ctx, suite.org.ID, []string{suite.bob.ID, suite.carol.ID})
			return err
		},
		func() error { return suite.env.ownerships.DeactivateOwner(suite.ctx, suite.org.ID, suite.bob.ID) },
		func() error { return suite.env.ownerships.DeactivateOwner(suite.ctx, suite.org.ID, suite.carol.ID) },
		func() error { return suite.env.ownerships.ReactivateOwner(suite.ctx, suite.org.ID, suite.alice.ID) },
		func() error {
			_, err := suite.env.ownerships.RemoveOwners(suite.ctx, suite.org.ID, []string{suite.carol.ID})
			return err
		},
	}

	for _, step := range steps {
		_ = step()
		count, err := suite.env.ownerRepo.CountActiveOwners(suite.ctx, suite.org.ID)
		suite.Require().NoError(err)
		suite.GreaterOrEqual(count, int64(1))
	}
}

func (suite *OwnershipServiceTestSuite) TestMutationsAreCounted() {
	_, _ = suite.env.ownerships.RemoveOwners(suite.ctx, suite.org.ID, []string{suite.alice.ID, suite.bob.ID})
	_, err := suite.env.ownerships.RemoveOwners(suite.ctx, suite.org.ID, []string{suite.bob.ID})
	suite.Require().NoError(err)

	counter := suite.env.metrics.OwnershipMutationsTotal
	suite.Equal(1.0, testutil.ToFloat64(counter.WithLabelValues(opRemoveOwners, metrics.OutcomeFailure)))
	suite.Equal(1.0, testutil.ToFloat64(counter.WithLabelValues(opRemoveOwners, metrics.OutcomeSuccess)))
}

func (suite *OwnershipServiceTestSuite) TestOrganizationsByOwner() {
	other, err := suite.env.orgs.Create(suite.ctx, CreateOrganizationInput{
		Name:     "Globex",
		OwnerIDs: []string{suite.bob.ID},
	})
	suite.Require().NoError(err)
	inactive := false
	_, err = suite.env.orgs.Update(suite.ctx, other.ID, UpdateOrganizationInput{IsActive: &inactive})
	suite.Require().NoError(err)

	all, err := suite.env.ownerships.GetOrganizationsByOwner(suite.ctx, suite.bob.ID)
	suite.Require().NoError(err)
	suite.Len(all, 2)

	active, err := suite.env.ownerships.GetActiveOrganizationsByOwner(suite.ctx, suite.bob.ID)
	suite.Require().NoError(err)
	suite.Require().Len(active, 1)
	suite.Equal(suite.org.ID, active[0].ID)

	_, err = suite.env.ownerships.GetActiveOrganizationsByOwner(suite.ctx, "ghost")
	suite.ErrorIs(err, ErrUserNotFound)
}

func (suite *OwnershipServiceTestSuite) TestQueries() {
	owners, err := suite.env.ownerships.GetOwners(suite.ctx, suite.org.ID)
	suite.Require().NoError(err)
	suite.Len(owners, 2)
	for _, o := range owners {
		suite.NotNil(o.User)
	}

	admins, err := suite.env.ownerships.GetOwnersByRole(suite.ctx, suite.org.ID, models.RoleAdmin)
	suite.Require().NoError(err)
	suite.Require().Len(admins, 1)
	suite.Equal(suite.bob.ID, admins[0].UserID)

	_, err = suite.env.ownerships.GetOwners(suite.ctx, "missing-org")
	suite.ErrorIs(err, ErrOrganizationNotFound)

	ownership, err := suite.env.ownerships.GetOwnership(suite.ctx, suite.org.ID, suite.carol.ID)
	suite.Require().NoError(err)
	suite.Nil(ownership)

	users, err := suite.env.ownerships.ValidateOwners(suite.ctx, []string{suite.alice.ID, suite.bob.ID})
	suite.Require().NoError(err)
	suite.Len(users, 2)
}

func TestOwnershipServiceTestSuite(t *testing.T) {
	suite.Run(t, new(OwnershipServiceTestSuite))
}

func TestUniqueIDs(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, uniqueIDs([]string{"a", "", "b", "a"}))
	assert.Empty(t, uniqueIDs(nil))
}
