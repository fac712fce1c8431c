package testutil

import (
	"context"
	"testing"

	"github.com/dalemusser/jobhub/internal/app/store"
	"github.com/dalemusser/jobhub/internal/app/system/passwords"
	"github.com/dalemusser/jobhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Fixtures provides helper methods for creating test data through the store
// contracts, so the same fixtures serve the Mongo and in-memory backends.
type Fixtures struct {
	t        *testing.T
	accounts store.Accounts
	orgs     store.Organizations
}

// NewFixtures creates a new Fixtures instance over the given stores.
func NewFixtures(t *testing.T, accounts store.Accounts, orgs store.Organizations) *Fixtures {
	t.Helper()
	return &Fixtures{t: t, accounts: accounts, orgs: orgs}
}

// CreateAdmin creates an active platform admin.
func (f *Fixtures) CreateAdmin(ctx context.Context, name, email string) models.User {
	f.t.Helper()
	return f.createUser(ctx, models.User{
		FullName: name,
		Email:    email,
		Roles:    []string{models.RolePlatformAdmin},
		Status:   models.StatusActive,
	})
}

// CreateUser creates an active account with no organization.
func (f *Fixtures) CreateUser(ctx context.Context, name, email string) models.User {
	f.t.Helper()
	return f.createUser(ctx, models.User{
		FullName: name,
		Email:    email,
		Status:   models.StatusActive,
	})
}

// CreateMember creates an active member of orgID.
func (f *Fixtures) CreateMember(ctx context.Context, orgID primitive.ObjectID, name, email string) models.User {
	f.t.Helper()
	return f.createUser(ctx, models.User{
		FullName:       name,
		Email:          email,
		Roles:          []string{models.RoleMember},
		Status:         models.StatusActive,
		OrganizationID: &orgID,
	})
}

// CreateAccount stores u with password as its credential. Status and roles
// are taken from u as given.
func (f *Fixtures) CreateAccount(ctx context.Context, u models.User, password string) models.User {
	f.t.Helper()
	hash, err := passwords.Hash(password)
	if err != nil {
		f.t.Fatalf("hash test password: %v", err)
	}
	u.PasswordHash = hash
	return f.createUser(ctx, u)
}

func (f *Fixtures) createUser(ctx context.Context, u models.User) models.User {
	f.t.Helper()
	created, err := f.accounts.Create(ctx, u)
	if err != nil {
		f.t.Fatalf("failed to create test user %s: %v", u.Email, err)
	}
	return created
}

// CreateOrganization creates a pending organization with the given name.
func (f *Fixtures) CreateOrganization(ctx context.Context, name string) models.Organization {
	f.t.Helper()
	org, err := f.orgs.Create(ctx, models.Organization{Name: name})
	if err != nil {
		f.t.Fatalf("failed to create test organization: %v", err)
	}
	return org
}

// CreatePublishedOrganization creates a published organization whose owner
// is a fresh member account. It returns both records as they are stored.
func (f *Fixtures) CreatePublishedOrganization(ctx context.Context, name, ownerName, ownerEmail string) (models.Organization, models.User) {
	f.t.Helper()
	org := f.CreateOrganization(ctx, name)
	owner := f.CreateMember(ctx, org.ID, ownerName, ownerEmail)
	if err := f.orgs.Publish(ctx, org.ID, owner.ID); err != nil {
		f.t.Fatalf("failed to publish test organization: %v", err)
	}
	if err := f.accounts.AddRole(ctx, owner.ID, models.RoleOwner); err != nil {
		f.t.Fatalf("failed to tag owner: %v", err)
	}
	return f.Organization(ctx, org.ID), f.User(ctx, owner.ID)
}

// User reloads a user and fails the test when it is missing.
func (f *Fixtures) User(ctx context.Context, id primitive.ObjectID) models.User {
	f.t.Helper()
	u, err := f.accounts.GetByID(ctx, id)
	if err != nil {
		f.t.Fatalf("failed to load user %s: %v", id.Hex(), err)
	}
	return *u
}

// Organization reloads an organization and fails the test when it is missing.
func (f *Fixtures) Organization(ctx context.Context, id primitive.ObjectID) models.Organization {
	f.t.Helper()
	org, err := f.orgs.GetByID(ctx, id)
	if err != nil {
		f.t.Fatalf("failed to load organization %s: %v", id.Hex(), err)
	}
	return *org
}
