package requeststore_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	requeststore "github.com/dalemusser/jobhub/internal/app/store/requests"
	"github.com/dalemusser/jobhub/internal/domain/errs"
	"github.com/dalemusser/jobhub/internal/domain/models"
	"github.com/dalemusser/jobhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newRequest(kind models.RequestKind) models.PendingRequest {
	org, target := primitive.NewObjectID(), primitive.NewObjectID()
	return models.PendingRequest{
		Kind:           kind,
		OrganizationID: &org,
		TargetUserID:   &target,
		Payload:        models.RequestPayload{FullName: "Pat", Email: "pat@example.com", OrgName: "Acme"},
	}
}

func TestStore_Create(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := requeststore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created, err := store.Create(ctx, newRequest(models.KindJoin))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if created.Status != models.RequestPending || !created.Open {
		t.Errorf("created = %+v, want open pending", created)
	}

	got, err := store.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Payload.Email != "pat@example.com" || got.Kind != models.KindJoin {
		t.Errorf("GetByID returned %+v", got)
	}

	if _, err := store.Create(ctx, newRequest("transfer")); errs.KindOf(err) != errs.KindValidation {
		t.Errorf("unknown kind: got %v, want validation error", err)
	}
	if _, err := store.GetByID(ctx, primitive.NewObjectID()); !errors.Is(err, errs.ErrInvalidRequest) {
		t.Errorf("missing id: got %v, want ErrInvalidRequest", err)
	}
}

func TestStore_OneOpenRequestPerTarget(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := requeststore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	req := newRequest(models.KindRemoval)
	first, err := store.Create(ctx, req)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := store.Create(ctx, req); !errors.Is(err, errs.ErrRemovalAlreadyRequested) {
		t.Fatalf("second open request: got %v, want ErrRemovalAlreadyRequested", err)
	}

	// Once resolved the target is free again.
	if _, err := store.Apply(ctx, first.ID, models.Transition{From: models.OpenStatuses, To: models.RequestDeclined}); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if _, err := store.Create(ctx, req); err != nil {
		t.Fatalf("Create after resolution failed: %v", err)
	}

	// Reopening the declined one would give the target two open requests.
	_, err = store.Apply(ctx, first.ID, models.Transition{From: []models.RequestStatus{models.RequestDeclined}, To: models.RequestPending})
	if !errors.Is(err, errs.ErrRemovalAlreadyRequested) {
		t.Errorf("reopen: got %v, want ErrRemovalAlreadyRequested", err)
	}
}

func TestStore_Apply(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := requeststore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created, err := store.Create(ctx, newRequest(models.KindSignup))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	admin := primitive.NewObjectID()

	asked, err := store.Apply(ctx, created.ID, models.Transition{
		From: models.OpenStatuses,
		To:   models.RequestInfoRequested,
		Note: "company number?",
	})
	if err != nil {
		t.Fatalf("Apply(info) failed: %v", err)
	}
	if asked.Status != models.RequestInfoRequested || asked.Note != "company number?" || !asked.Open {
		t.Errorf("after info: %+v", asked)
	}

	approved, err := store.Apply(ctx, created.ID, models.Transition{
		From: models.OpenStatuses,
		To:   models.RequestApproved,
		By:   &admin,
	})
	if err != nil {
		t.Fatalf("Apply(approve) failed: %v", err)
	}
	if approved.Open || approved.ResolvedAt == nil || approved.ResolvedBy == nil || *approved.ResolvedBy != admin {
		t.Errorf("after approve: %+v", approved)
	}
	if approved.Note != "company number?" {
		t.Error("empty transition note should keep the previous note")
	}

	if _, err := store.Apply(ctx, created.ID, models.Transition{From: models.OpenStatuses, To: models.RequestDeclined}); !errors.Is(err, errs.ErrInvalidRequest) {
		t.Errorf("apply after terminal: got %v, want ErrInvalidRequest", err)
	}
}

func TestStore_Apply_ConcurrentSingleWinner(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := requeststore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created, err := store.Create(ctx, newRequest(models.KindJoin))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	const n = 8
	var wg sync.WaitGroup
	results := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = store.Apply(ctx, created.ID, models.Transition{From: models.OpenStatuses, To: models.RequestApproved})
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range results {
		if err == nil {
			wins++
		} else if !errors.Is(err, errs.ErrInvalidRequest) {
			t.Errorf("unexpected error: %v", err)
		}
	}
	if wins != 1 {
		t.Errorf("winners = %d, want 1", wins)
	}
}

func TestStore_ListOpenAndDeleteResolved(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := requeststore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	join, err := store.Create(ctx, newRequest(models.KindJoin))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	signup, err := store.Create(ctx, newRequest(models.KindSignup))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := store.Apply(ctx, signup.ID, models.Transition{From: models.OpenStatuses, To: models.RequestDeclined}); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	open, err := store.ListOpen(ctx, models.RequestQuery{})
	if err != nil {
		t.Fatalf("ListOpen failed: %v", err)
	}
	if len(open) != 1 || open[0].ID != join.ID {
		t.Errorf("ListOpen = %+v, want only the join", open)
	}
	if open, _ := store.ListOpen(ctx, models.RequestQuery{Kind: models.KindSignup}); len(open) != 0 {
		t.Errorf("ListOpen(signup) = %d, want 0", len(open))
	}

	n, err := store.DeleteResolvedBefore(ctx, time.Now().Add(-time.Hour))
	if err != nil || n != 0 {
		t.Errorf("DeleteResolvedBefore(past) = %d, %v; want 0", n, err)
	}
	n, err = store.DeleteResolvedBefore(ctx, time.Now().Add(time.Minute))
	if err != nil || n != 1 {
		t.Errorf("DeleteResolvedBefore(now) = %d, %v; want 1", n, err)
	}
	if _, err := store.GetByID(ctx, join.ID); err != nil {
		t.Error("open request must not be reclaimed")
	}
}
