package userstore_test

import (
	"errors"
	"testing"

	userstore "github.com/dalemusser/jobhub/internal/app/store/users"
	"github.com/dalemusser/jobhub/internal/domain/errs"
	"github.com/dalemusser/jobhub/internal/domain/models"
	"github.com/dalemusser/jobhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_Create(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created, err := store.Create(ctx, models.User{
		FullName: "  Zoë   Example ",
		Email:    "Zoe@Example.COM",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if created.ID == primitive.NilObjectID {
		t.Error("expected ID to be assigned")
	}
	if created.Email != "zoe@example.com" {
		t.Errorf("email = %q, want lowercased", created.Email)
	}
	if created.FullNameCI == "" {
		t.Error("expected FullNameCI to be set")
	}
	if created.Status != models.StatusActive {
		t.Errorf("expected status 'active', got %q", created.Status)
	}
	if created.CreatedAt.IsZero() || created.UpdatedAt.IsZero() {
		t.Error("expected timestamps to be set")
	}
	if created.JoinedAt != nil {
		t.Error("account without organization should have no joined_at")
	}
}

func TestStore_Create_InvalidStatus(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	_, err := store.Create(ctx, models.User{FullName: "X", Email: "x@example.com", Status: "banned"})
	if err == nil {
		t.Fatal("expected error for invalid status")
	}
}

func TestStore_Create_DuplicateEmail(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if _, err := store.Create(ctx, models.User{FullName: "First", Email: "dup@example.com"}); err != nil {
		t.Fatalf("first Create failed: %v", err)
	}
	_, err := store.Create(ctx, models.User{FullName: "Second", Email: "DUP@example.com"})
	if !errors.Is(err, userstore.ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
	if !errors.Is(err, errs.ErrDuplicateEmail) {
		t.Error("store sentinel should match errs.ErrDuplicateEmail")
	}
}

func TestStore_GetByID_NotFound(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	_, err := store.GetByID(ctx, primitive.NewObjectID())
	if !errors.Is(err, errs.ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}

func TestStore_GetByEmail_EmailExists(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created, err := store.Create(ctx, models.User{FullName: "Pat", Email: "pat@example.com", Status: models.StatusPending})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	got, err := store.GetByEmail(ctx, " PAT@example.com ")
	if err != nil {
		t.Fatalf("GetByEmail failed: %v", err)
	}
	if got.ID != created.ID {
		t.Errorf("GetByEmail returned %s, want %s", got.ID.Hex(), created.ID.Hex())
	}

	exists, err := store.EmailExists(ctx, "pat@example.com")
	if err != nil || !exists {
		t.Errorf("EmailExists = %v, %v; want true (placeholders count)", exists, err)
	}
	exists, err = store.EmailExists(ctx, "nobody@example.com")
	if err != nil || exists {
		t.Errorf("EmailExists(nobody) = %v, %v; want false", exists, err)
	}
}

func TestStore_MembershipLifecycle(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	orgID := primitive.NewObjectID()
	u, err := store.Create(ctx, models.User{FullName: "Jo", Email: "jo@example.com", Status: models.StatusPending})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if err := store.Activate(ctx, u.ID, "hash"); err != nil {
		t.Fatalf("Activate failed: %v", err)
	}
	if err := store.SetMembership(ctx, u.ID, orgID, "Engineer"); err != nil {
		t.Fatalf("SetMembership failed: %v", err)
	}
	if err := store.AddRole(ctx, u.ID, models.RoleOwner); err != nil {
		t.Fatalf("AddRole failed: %v", err)
	}

	got, _ := store.GetByID(ctx, u.ID)
	if !got.MemberOf(orgID) || got.JobTitle != "Engineer" || got.JoinedAt == nil {
		t.Errorf("after SetMembership: %+v", got)
	}
	if !got.HasRole(models.RoleMember) || !got.HasRole(models.RoleOwner) {
		t.Errorf("roles = %v", got.Roles)
	}
	if got.PasswordHash != "hash" {
		t.Error("Activate should store the password hash")
	}

	n, err := store.CountByOrganization(ctx, orgID)
	if err != nil || n != 1 {
		t.Errorf("CountByOrganization = %d, %v; want 1", n, err)
	}

	if err := store.ClearMembership(ctx, u.ID); err != nil {
		t.Fatalf("ClearMembership failed: %v", err)
	}
	got, _ = store.GetByID(ctx, u.ID)
	if got.OrganizationID != nil || got.JoinedAt != nil {
		t.Error("organization_id and joined_at should be cleared")
	}
	if got.HasAnyRole(models.RoleMember, models.RoleOwner) {
		t.Errorf("member and owner roles should be removed, got %v", got.Roles)
	}
}

func TestStore_UpdateMissingUser(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := store.AddRole(ctx, primitive.NewObjectID(), models.RoleOwner); !errors.Is(err, errs.ErrInvalidRequest) {
		t.Errorf("AddRole on missing user: got %v, want ErrInvalidRequest", err)
	}
	n, err := store.Delete(ctx, primitive.NewObjectID())
	if err != nil || n != 0 {
		t.Errorf("Delete missing = %d, %v; want 0, nil", n, err)
	}
}

func TestStore_ListByOrganization(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	orgID := primitive.NewObjectID()
	var want []primitive.ObjectID
	for _, email := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		u, err := store.Create(ctx, models.User{FullName: email, Email: email, OrganizationID: &orgID})
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		want = append(want, u.ID)
	}
	// A pending placeholder is not a member yet.
	if _, err := store.Create(ctx, models.User{FullName: "P", Email: "p@example.com", Status: models.StatusPending, OrganizationID: &orgID}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	members, err := store.ListByOrganization(ctx, orgID)
	if err != nil {
		t.Fatalf("ListByOrganization failed: %v", err)
	}
	if len(members) != len(want) {
		t.Fatalf("members = %d, want %d", len(members), len(want))
	}
	for i, m := range members {
		if m.ID != want[i] {
			t.Errorf("members[%d] = %s, want %s", i, m.ID.Hex(), want[i].Hex())
		}
	}
}
