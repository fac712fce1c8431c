package organizationstore_test

import (
	"errors"
	"testing"

	organizationstore "github.com/dalemusser/jobhub/internal/app/store/organizations"
	"github.com/dalemusser/jobhub/internal/domain/errs"
	"github.com/dalemusser/jobhub/internal/domain/models"
	"github.com/dalemusser/jobhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_Create(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := organizationstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created, err := store.Create(ctx, models.Organization{
		Name:         "Café Holdings",
		ContactEmail: "hr@cafe.example",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if created.ID == primitive.NilObjectID {
		t.Error("expected ID to be assigned")
	}
	if created.NameCI != "cafe holdings" {
		t.Errorf("NameCI = %q, want folded name", created.NameCI)
	}
	if created.Status != models.OrgPending {
		t.Errorf("status = %q, want pending", created.Status)
	}
	if created.OwnerUserID != nil {
		t.Error("new organization should have no owner")
	}

	got, err := store.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Name != "Café Holdings" || got.ContactEmail != "hr@cafe.example" {
		t.Errorf("GetByID returned %+v", got)
	}
}

func TestStore_GetByID_NotFound(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := organizationstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if _, err := store.GetByID(ctx, primitive.NewObjectID()); !errors.Is(err, errs.ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}

func TestStore_PublishAndSwapOwner(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := organizationstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	org, err := store.Create(ctx, models.Organization{Name: "Acme"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	first, second, third := primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID()

	if err := store.Publish(ctx, org.ID, first); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	got, _ := store.GetByID(ctx, org.ID)
	if got.Status != models.OrgPublished || !got.IsOwnedBy(first) {
		t.Fatalf("after Publish: %+v", got)
	}

	if err := store.SwapOwner(ctx, org.ID, first, second); err != nil {
		t.Fatalf("SwapOwner failed: %v", err)
	}
	// Stale precondition: the owner is no longer first.
	if err := store.SwapOwner(ctx, org.ID, first, third); !errors.Is(err, errs.ErrInvalidRequest) {
		t.Fatalf("stale SwapOwner: got %v, want ErrInvalidRequest", err)
	}
	got, _ = store.GetByID(ctx, org.ID)
	if !got.IsOwnedBy(second) {
		t.Errorf("owner = %v, want %s", got.OwnerUserID, second.Hex())
	}
}

func TestStore_SetStatus(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := organizationstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	org, err := store.Create(ctx, models.Organization{Name: "Acme"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := store.SetStatus(ctx, org.ID, "archived"); err == nil {
		t.Error("expected error for invalid status")
	}
	if err := store.SetStatus(ctx, org.ID, models.OrgTrashed); err != nil {
		t.Fatalf("SetStatus failed: %v", err)
	}
	got, _ := store.GetByID(ctx, org.ID)
	if got.Status != models.OrgTrashed {
		t.Errorf("status = %q, want trashed", got.Status)
	}
}

func TestStore_DeleteAndRecentlyCreated(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := organizationstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	var ids []primitive.ObjectID
	for _, name := range []string{"One", "Two", "Three"} {
		org, err := store.Create(ctx, models.Organization{Name: name})
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		ids = append(ids, org.ID)
	}

	recent, err := store.RecentlyCreated(ctx, 2)
	if err != nil {
		t.Fatalf("RecentlyCreated failed: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("RecentlyCreated returned %d, want 2", len(recent))
	}

	n, err := store.Delete(ctx, ids[0])
	if err != nil || n != 1 {
		t.Fatalf("Delete = %d, %v", n, err)
	}
	n, err = store.Delete(ctx, ids[0])
	if err != nil || n != 0 {
		t.Errorf("second Delete = %d, %v; want 0", n, err)
	}
}
