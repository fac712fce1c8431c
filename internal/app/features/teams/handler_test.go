package teams_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/dalemusser/jobhub/internal/app/features/teams"
	"github.com/dalemusser/jobhub/internal/domain/models"
	"github.com/dalemusser/jobhub/internal/testutil"
	"go.uber.org/zap"
)

type fixture struct {
	h      *testutil.Harness
	ctx    context.Context
	router http.Handler
	org    models.Organization
	owner  models.User
}

func setup(t *testing.T) fixture {
	t.Helper()
	h := testutil.NewHarness(t)
	ctx := context.Background()
	org, owner := h.Fixtures.CreatePublishedOrganization(ctx, "Acme", "Olive Owner", "owner@example.com")
	router := teams.Routes(teams.NewHandler(h.Team, h.Engine, zap.NewNop()))
	return fixture{h: h, ctx: ctx, router: router, org: org, owner: owner}
}

func (f fixture) serve(r *http.Request) *testutil.ResponseRecorder {
	rec := testutil.NewRecorder()
	f.router.ServeHTTP(rec, r)
	return rec
}

func TestServeTeam(t *testing.T) {
	f := setup(t)
	f.h.Fixtures.CreateMember(f.ctx, f.org.ID, "Mia Member", "mia@example.com")

	rec := f.serve(testutil.AsActor(testutil.NewRequest(http.MethodGet, "/"+f.org.ID.Hex()+"/team"), f.owner.ID))
	rec.AssertStatus(t, http.StatusOK)

	var body struct {
		Count   int64 `json:"count"`
		Members []struct {
			Email string `json:"email"`
			Owner bool   `json:"owner"`
		} `json:"members"`
	}
	rec.DecodeJSON(t, &body)
	if body.Count != 2 || len(body.Members) != 2 {
		t.Fatalf("count = %d, members = %d, want 2", body.Count, len(body.Members))
	}
	if body.Members[0].Email != "owner@example.com" || !body.Members[0].Owner {
		t.Errorf("first member = %+v, want the owner", body.Members[0])
	}
}

func TestServeTeam_RequiresSignIn(t *testing.T) {
	f := setup(t)
	rec := f.serve(testutil.NewRequest(http.MethodGet, "/"+f.org.ID.Hex()+"/team"))
	rec.AssertStatus(t, http.StatusUnauthorized)
}

func TestServeTeam_Forbidden(t *testing.T) {
	f := setup(t)
	outsider := f.h.Fixtures.CreateUser(f.ctx, "Otto Outsider", "otto@example.com")
	rec := f.serve(testutil.AsActor(testutil.NewRequest(http.MethodGet, "/"+f.org.ID.Hex()+"/team"), outsider.ID))
	rec.AssertStatus(t, http.StatusForbidden)
	rec.AssertContains(t, "permission_denied")
}

func TestServeTeam_MalformedID(t *testing.T) {
	f := setup(t)
	rec := f.serve(testutil.AsActor(testutil.NewRequest(http.MethodGet, "/not-an-id/team"), f.owner.ID))
	rec.AssertStatus(t, http.StatusNotFound)
}

func TestHandleAdd(t *testing.T) {
	f := setup(t)

	req := testutil.NewJSONRequest(t, http.MethodPost, "/"+f.org.ID.Hex()+"/team", map[string]string{
		"email":     "new@example.com",
		"full_name": "New Hire",
	})
	rec := f.serve(testutil.AsActor(req, f.owner.ID))
	rec.AssertStatus(t, http.StatusCreated)

	if got := f.h.Notifier.To("new@example.com"); len(got) != 1 {
		t.Fatalf("notices to new member = %d, want 1", len(got))
	}
	// The generated password is delivered by notice, never in the response.
	var body map[string]string
	rec.DecodeJSON(t, &body)
	if _, ok := body["password"]; ok {
		t.Error("response leaks the generated password")
	}
	if body["user_id"] == "" {
		t.Error("response has no user_id")
	}
}

func TestHandleAdd_Errors(t *testing.T) {
	f := setup(t)
	f.h.Fixtures.CreateUser(f.ctx, "Taken", "taken@example.com")

	tests := []struct {
		name string
		body any
		want int
		code string
	}{
		{"invalid email", map[string]string{"email": "nope", "full_name": "X"}, http.StatusBadRequest, "invalid_email"},
		{"duplicate", map[string]string{"email": "TAKEN@example.com", "full_name": "X"}, http.StatusConflict, "duplicate_email"},
		{"unknown field", map[string]string{"mail": "x@example.com"}, http.StatusBadRequest, "bad_request"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testutil.NewJSONRequest(t, http.MethodPost, "/"+f.org.ID.Hex()+"/team", tt.body)
			rec := f.serve(testutil.AsActor(req, f.owner.ID))
			rec.AssertStatus(t, tt.want)
			rec.AssertContains(t, tt.code)
		})
	}
}

func TestHandleRemove(t *testing.T) {
	f := setup(t)
	m := f.h.Fixtures.CreateMember(f.ctx, f.org.ID, "Mia Member", "mia@example.com")

	rec := f.serve(testutil.AsActor(testutil.NewRequest(http.MethodDelete, "/"+f.org.ID.Hex()+"/team/"+m.ID.Hex()), f.owner.ID))
	rec.AssertStatus(t, http.StatusNoContent)

	u := f.h.Fixtures.User(f.ctx, m.ID)
	if u.OrganizationID != nil {
		t.Errorf("member still attached to %s", u.OrganizationID.Hex())
	}
}

func TestHandleRemove_DeleteAccount(t *testing.T) {
	f := setup(t)
	m := f.h.Fixtures.CreateMember(f.ctx, f.org.ID, "Mia Member", "mia@example.com")

	rec := f.serve(testutil.AsActor(testutil.NewRequest(http.MethodDelete, "/"+f.org.ID.Hex()+"/team/"+m.ID.Hex()+"?delete=1"), f.owner.ID))
	rec.AssertStatus(t, http.StatusNoContent)

	if _, err := f.h.DB.Accounts().GetByID(f.ctx, m.ID); err == nil {
		t.Error("account still exists after delete=1")
	}
}

func TestHandleRemove_Owner(t *testing.T) {
	f := setup(t)
	rec := f.serve(testutil.AsActor(testutil.NewRequest(http.MethodDelete, "/"+f.org.ID.Hex()+"/team/"+f.owner.ID.Hex()), f.owner.ID))
	rec.AssertStatus(t, http.StatusConflict)
	rec.AssertContains(t, "cannot_remove_owner")
}

func TestHandleTransfer(t *testing.T) {
	f := setup(t)
	admin := f.h.Fixtures.CreateAdmin(f.ctx, "Ada Admin", "admin@example.com")
	m := f.h.Fixtures.CreateMember(f.ctx, f.org.ID, "Mia Member", "mia@example.com")

	req := testutil.NewJSONRequest(t, http.MethodPost, "/"+f.org.ID.Hex()+"/owner", map[string]string{"user_id": m.ID.Hex()})
	rec := f.serve(testutil.AsActor(req, admin.ID))
	rec.AssertStatus(t, http.StatusNoContent)

	org := f.h.Fixtures.Organization(f.ctx, f.org.ID)
	if org.OwnerUserID == nil || *org.OwnerUserID != m.ID {
		t.Fatalf("owner = %v, want %s", org.OwnerUserID, m.ID.Hex())
	}
}

func TestHandleTransfer_BadTarget(t *testing.T) {
	f := setup(t)
	admin := f.h.Fixtures.CreateAdmin(f.ctx, "Ada Admin", "admin@example.com")

	req := testutil.NewJSONRequest(t, http.MethodPost, "/"+f.org.ID.Hex()+"/owner", map[string]string{"user_id": "zzz"})
	rec := f.serve(testutil.AsActor(req, admin.ID))
	rec.AssertStatus(t, http.StatusConflict)
	rec.AssertContains(t, "must_be_existing_member")
}

func TestHandleRemovalRequest(t *testing.T) {
	f := setup(t)
	m := f.h.Fixtures.CreateMember(f.ctx, f.org.ID, "Mia Member", "mia@example.com")
	target := "/" + f.org.ID.Hex() + "/team/" + m.ID.Hex() + "/removal"

	rec := f.serve(testutil.AsActor(testutil.NewJSONRequest(t, http.MethodPost, target, map[string]string{"reason": "left"}), f.owner.ID))
	rec.AssertStatus(t, http.StatusAccepted)

	rec = f.serve(testutil.AsActor(testutil.NewJSONRequest(t, http.MethodPost, target, map[string]string{"reason": "again"}), f.owner.ID))
	rec.AssertStatus(t, http.StatusConflict)
	rec.AssertContains(t, "removal_already_requested")
}

func TestHandleJoin_Anonymous(t *testing.T) {
	f := setup(t)

	req := testutil.NewJSONRequest(t, http.MethodPost, "/"+f.org.ID.Hex()+"/join", map[string]string{
		"full_name": "Jo Joiner",
		"email":     "jo@example.com",
	})
	rec := f.serve(req)
	rec.AssertStatus(t, http.StatusAccepted)

	var body map[string]string
	rec.DecodeJSON(t, &body)
	if body["status"] != string(models.RequestPending) {
		t.Errorf("status = %q, want pending", body["status"])
	}
	if got := f.h.Notifier.To(f.owner.Email); len(got) != 1 {
		t.Errorf("owner notices = %d, want 1", len(got))
	}
}
