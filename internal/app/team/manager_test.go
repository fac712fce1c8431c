package team_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/dalemusser/jobhub/internal/app/approvals"
	"github.com/dalemusser/jobhub/internal/app/team"
	"github.com/dalemusser/jobhub/internal/domain/errs"
	"github.com/dalemusser/jobhub/internal/domain/models"
	"github.com/dalemusser/jobhub/internal/domain/notices"
	"github.com/dalemusser/jobhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fixture struct {
	h     *testutil.Harness
	ctx   context.Context
	admin models.User
	org   models.Organization
	owner models.User
}

func setup(t *testing.T) fixture {
	t.Helper()
	h := testutil.NewHarness(t)
	ctx := context.Background()
	admin := h.Fixtures.CreateAdmin(ctx, "Ada Admin", "admin@example.com")
	org, owner := h.Fixtures.CreatePublishedOrganization(ctx, "Acme", "Olive Owner", "owner@example.com")
	return fixture{h: h, ctx: ctx, admin: admin, org: org, owner: owner}
}

// assertSingleOwner checks that exactly one account in org carries the owner
// tag and that it is the organization's owner_user_id.
func assertSingleOwner(t *testing.T, f fixture) {
	t.Helper()
	org := f.h.Fixtures.Organization(f.ctx, f.org.ID)
	if org.OwnerUserID == nil {
		t.Fatal("published organization has no owner")
	}
	members, err := f.h.DB.Accounts().ListByOrganization(f.ctx, org.ID)
	if err != nil {
		t.Fatalf("ListByOrganization: %v", err)
	}
	var owners []primitive.ObjectID
	for _, m := range members {
		if m.HasRole(models.RoleOwner) {
			owners = append(owners, m.ID)
		}
	}
	if len(owners) != 1 || owners[0] != *org.OwnerUserID {
		t.Fatalf("owners among members = %v, owner_user_id = %s", owners, org.OwnerUserID.Hex())
	}
}

func TestAddMember(t *testing.T) {
	f := setup(t)

	res, err := f.h.Team.AddMember(f.ctx, f.owner.ID, f.org.ID, team.AddMemberInput{
		Email:    "  New.Hire@Example.com ",
		FullName: "New Hire",
		JobTitle: "Recruiter",
	})
	if err != nil {
		t.Fatalf("AddMember: %v", err)
	}
	if len(res.GeneratedPassword) < 12 {
		t.Errorf("generated password too short: %q", res.GeneratedPassword)
	}

	u := f.h.Fixtures.User(f.ctx, res.UserID)
	if u.Email != "new.hire@example.com" {
		t.Errorf("email = %q, want normalized", u.Email)
	}
	if !u.MemberOf(f.org.ID) || !u.HasRole(models.RoleMember) {
		t.Errorf("new account is not an active member: %+v", u)
	}
	if u.JobTitle != "Recruiter" {
		t.Errorf("job title = %q", u.JobTitle)
	}
	if u.PasswordHash == "" || u.PasswordHash == res.GeneratedPassword {
		t.Error("password must be stored hashed")
	}

	sent := f.h.Notifier.To("new.hire@example.com")
	if len(sent) != 1 || sent[0].Key != notices.MemberAdded {
		t.Fatalf("notices = %+v, want one member_added", sent)
	}
	if sent[0].Vars[notices.VarPassword] != res.GeneratedPassword {
		t.Error("member_added notice must carry the generated password")
	}

	count, err := f.h.Team.GetTeamCount(f.ctx, f.owner.ID, f.org.ID)
	if err != nil {
		t.Fatalf("GetTeamCount: %v", err)
	}
	if count != 2 {
		t.Errorf("team count = %d, want 2", count)
	}
}

func TestAddMember_Validation(t *testing.T) {
	f := setup(t)

	tests := []struct {
		name string
		in   team.AddMemberInput
		code string
	}{
		{"missing name", team.AddMemberInput{Email: "a@example.com"}, "full_name_required"},
		{"bad email", team.AddMemberInput{Email: "not-an-email", FullName: "A"}, "invalid_email"},
		{"empty email", team.AddMemberInput{FullName: "A"}, "invalid_email"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.h.Team.AddMember(f.ctx, f.owner.ID, f.org.ID, tt.in)
			if errs.KindOf(err) != errs.KindValidation || errs.CodeOf(err) != tt.code {
				t.Errorf("err = %v, want validation %s", err, tt.code)
			}
		})
	}
}

func TestAddMember_DuplicateEmail(t *testing.T) {
	f := setup(t)

	_, err := f.h.Team.AddMember(f.ctx, f.admin.ID, f.org.ID, team.AddMemberInput{
		Email:    "OWNER@example.com",
		FullName: "Someone Else",
	})
	if !errors.Is(err, errs.ErrDuplicateEmail) {
		t.Fatalf("err = %v, want ErrDuplicateEmail", err)
	}
	if len(f.h.Notifier.Sent()) != 0 {
		t.Error("no notice should be sent for a rejected add")
	}
}

func TestAddMember_ConcurrentSameEmail(t *testing.T) {
	f := setup(t)

	const n = 8
	var wg sync.WaitGroup
	results := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = f.h.Team.AddMember(f.ctx, f.owner.ID, f.org.ID, team.AddMemberInput{
				Email:    "race@example.com",
				FullName: "Racer",
			})
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range results {
		switch {
		case err == nil:
			ok++
		case !errors.Is(err, errs.ErrDuplicateEmail):
			t.Errorf("unexpected error: %v", err)
		}
	}
	if ok != 1 {
		t.Errorf("successful adds = %d, want 1", ok)
	}
}

func TestAddMember_PermissionCheckedFirst(t *testing.T) {
	f := setup(t)
	member := f.h.Fixtures.CreateMember(f.ctx, f.org.ID, "Mo Member", "member@example.com")
	outsider := f.h.Fixtures.CreateUser(f.ctx, "Out Sider", "outsider@example.com")

	for _, actor := range []primitive.ObjectID{member.ID, outsider.ID, primitive.NewObjectID()} {
		// Invalid input would be a validation error; permission must win.
		_, err := f.h.Team.AddMember(f.ctx, actor, f.org.ID, team.AddMemberInput{})
		if !errors.Is(err, errs.ErrPermissionDenied) {
			t.Errorf("actor %s: err = %v, want ErrPermissionDenied", actor.Hex(), err)
		}
	}
}

func TestAddMember_UnpublishedOrganization(t *testing.T) {
	f := setup(t)
	pending := f.h.Fixtures.CreateOrganization(f.ctx, "Pending Co")

	_, err := f.h.Team.AddMember(f.ctx, f.admin.ID, pending.ID, team.AddMemberInput{
		Email:    "x@example.com",
		FullName: "X",
	})
	if !errors.Is(err, errs.ErrOrganizationNotActive) {
		t.Fatalf("err = %v, want ErrOrganizationNotActive", err)
	}
	if exists, _ := f.h.DB.Accounts().EmailExists(f.ctx, "x@example.com"); exists {
		t.Error("account must not be created")
	}
}

func TestRemoveMember_BlocksOwner(t *testing.T) {
	f := setup(t)

	for _, del := range []bool{true, false} {
		err := f.h.Team.RemoveMember(f.ctx, f.admin.ID, f.owner.ID, f.org.ID, del)
		if !errors.Is(err, errs.ErrCannotRemoveOwner) {
			t.Fatalf("delete=%v: err = %v, want ErrCannotRemoveOwner", del, err)
		}
	}
	owner := f.h.Fixtures.User(f.ctx, f.owner.ID)
	if !owner.MemberOf(f.org.ID) || !owner.HasRole(models.RoleOwner) {
		t.Error("owner account changed")
	}
	assertSingleOwner(t, f)
	if len(f.h.Notifier.Sent()) != 0 {
		t.Error("no notice should be sent")
	}
}

func TestRemoveMember_NotAMember(t *testing.T) {
	f := setup(t)
	other, _ := f.h.Fixtures.CreatePublishedOrganization(f.ctx, "Other", "Other Owner", "oo@example.com")
	stranger := f.h.Fixtures.CreateMember(f.ctx, other.ID, "Stranger", "stranger@example.com")

	err := f.h.Team.RemoveMember(f.ctx, f.admin.ID, stranger.ID, f.org.ID, false)
	if !errors.Is(err, errs.ErrNotAMember) {
		t.Fatalf("err = %v, want ErrNotAMember", err)
	}
	if got := f.h.Fixtures.User(f.ctx, stranger.ID); !got.MemberOf(other.ID) {
		t.Error("stranger's membership changed")
	}
}

func TestRemoveMember_UnknownUser(t *testing.T) {
	f := setup(t)
	err := f.h.Team.RemoveMember(f.ctx, f.admin.ID, primitive.NewObjectID(), f.org.ID, true)
	if !errors.Is(err, errs.ErrInvalidRequest) {
		t.Fatalf("err = %v, want ErrInvalidRequest", err)
	}
}

func TestRemoveMember_Delete(t *testing.T) {
	f := setup(t)
	m := f.h.Fixtures.CreateMember(f.ctx, f.org.ID, "Gone Soon", "gone@example.com")

	if err := f.h.Team.RemoveMember(f.ctx, f.owner.ID, m.ID, f.org.ID, true); err != nil {
		t.Fatalf("RemoveMember: %v", err)
	}
	if exists, _ := f.h.DB.Accounts().EmailExists(f.ctx, "gone@example.com"); exists {
		t.Error("account should be deleted")
	}
	sent := f.h.Notifier.To("gone@example.com")
	if len(sent) != 1 || sent[0].Key != notices.MemberRemoved {
		t.Errorf("notices = %+v, want one member_removed before deletion", sent)
	}
}

func TestRemoveMember_ClosesOpenRemovalRequest(t *testing.T) {
	f := setup(t)
	m := f.h.Fixtures.CreateMember(f.ctx, f.org.ID, "Leaving", "leaving@example.com")

	req, err := f.h.Engine.SubmitRemoval(f.ctx, f.owner.ID, f.org.ID, approvals.RemovalInput{UserID: m.ID, Reason: "moved on"})
	if err != nil {
		t.Fatalf("SubmitRemoval: %v", err)
	}
	if err := f.h.Team.RemoveMember(f.ctx, f.owner.ID, m.ID, f.org.ID, false); err != nil {
		t.Fatalf("RemoveMember: %v", err)
	}

	got, err := f.h.DB.Requests().GetByID(f.ctx, req.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != models.RequestDeclined || got.Note != team.RemovedDirectlyNote {
		t.Errorf("request = %s %q, want declined with the direct-removal note", got.Status, got.Note)
	}
	if got.ResolvedBy == nil || *got.ResolvedBy != f.owner.ID {
		t.Errorf("resolved_by = %v, want the owner", got.ResolvedBy)
	}
	if _, err := f.h.Engine.Approve(f.ctx, f.admin.ID, req.ID); !errors.Is(err, errs.ErrInvalidRequest) {
		t.Errorf("Approve after direct removal: err = %v, want ErrInvalidRequest", err)
	}

	// A new removal request for someone else is unaffected.
	other := f.h.Fixtures.CreateMember(f.ctx, f.org.ID, "Staying", "staying@example.com")
	if _, err := f.h.Engine.SubmitRemoval(f.ctx, f.owner.ID, f.org.ID, approvals.RemovalInput{UserID: other.ID}); err != nil {
		t.Fatalf("SubmitRemoval(other): %v", err)
	}
	if open, _ := f.h.DB.Requests().ListOpen(f.ctx, models.RequestQuery{Kind: models.KindRemoval}); len(open) != 1 {
		t.Errorf("open removal requests = %d, want 1", len(open))
	}
}

// Scenario A then B: transfer to a member, then remove the former owner
// without deleting the account.
func TestTransferThenRemoveFormerOwner(t *testing.T) {
	f := setup(t)
	u2 := f.h.Fixtures.CreateMember(f.ctx, f.org.ID, "Second Member", "u2@example.com")

	if err := f.h.Team.TransferOwnership(f.ctx, f.admin.ID, f.org.ID, u2.ID); err != nil {
		t.Fatalf("TransferOwnership: %v", err)
	}
	org := f.h.Fixtures.Organization(f.ctx, f.org.ID)
	if !org.IsOwnedBy(u2.ID) {
		t.Fatalf("owner = %v, want %s", org.OwnerUserID, u2.ID.Hex())
	}
	assertSingleOwner(t, f)

	toOld := f.h.Notifier.To(f.owner.Email)
	toNew := f.h.Notifier.To(u2.Email)
	if len(toOld) != 1 || toOld[0].Key != notices.OwnershipRevoked {
		t.Errorf("old owner notices = %+v", toOld)
	}
	if len(toNew) != 1 || toNew[0].Key != notices.OwnershipGranted {
		t.Errorf("new owner notices = %+v", toNew)
	}

	if err := f.h.Team.RemoveMember(f.ctx, u2.ID, f.owner.ID, f.org.ID, false); err != nil {
		t.Fatalf("RemoveMember: %v", err)
	}
	former, err := f.h.DB.Accounts().GetByEmail(f.ctx, f.owner.Email)
	if err != nil {
		t.Fatalf("former owner should still exist: %v", err)
	}
	if former.OrganizationID != nil {
		t.Error("organization_id should be cleared")
	}
	if former.HasAnyRole(models.RoleMember, models.RoleOwner) {
		t.Errorf("roles should be stripped, got %v", former.Roles)
	}
	assertSingleOwner(t, f)
}

func TestTransferOwnership_Preconditions(t *testing.T) {
	f := setup(t)
	outsider := f.h.Fixtures.CreateUser(f.ctx, "Out Sider", "outsider@example.com")
	other, _ := f.h.Fixtures.CreatePublishedOrganization(f.ctx, "Other", "Other Owner", "oo@example.com")
	elsewhere := f.h.Fixtures.CreateMember(f.ctx, other.ID, "Else Where", "else@example.com")

	tests := []struct {
		name   string
		target primitive.ObjectID
		want   error
	}{
		{"current owner", f.owner.ID, errs.ErrAlreadyOwner},
		{"no organization", outsider.ID, errs.ErrMustBeExistingMember},
		{"other organization", elsewhere.ID, errs.ErrMustBeExistingMember},
		{"unknown account", primitive.NewObjectID(), errs.ErrMustBeExistingMember},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.h.Team.TransferOwnership(f.ctx, f.admin.ID, f.org.ID, tt.target)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			if org := f.h.Fixtures.Organization(f.ctx, f.org.ID); !org.IsOwnedBy(f.owner.ID) {
				t.Error("owner_user_id changed")
			}
			assertSingleOwner(t, f)
		})
	}
	if len(f.h.Notifier.Sent()) != 0 {
		t.Error("failed transfers must not notify")
	}
}

func TestTransferOwnership_OwnerCannotHandOff(t *testing.T) {
	f := setup(t)
	u2 := f.h.Fixtures.CreateMember(f.ctx, f.org.ID, "Second Member", "u2@example.com")

	err := f.h.Team.TransferOwnership(f.ctx, f.owner.ID, f.org.ID, u2.ID)
	if !errors.Is(err, errs.ErrPermissionDenied) {
		t.Fatalf("err = %v, want ErrPermissionDenied", err)
	}
	if org := f.h.Fixtures.Organization(f.ctx, f.org.ID); !org.IsOwnedBy(f.owner.ID) {
		t.Error("owner changed")
	}
}

func TestTransferOwnership_NotificationFailureIsNotFatal(t *testing.T) {
	f := setup(t)
	u2 := f.h.Fixtures.CreateMember(f.ctx, f.org.ID, "Second Member", "u2@example.com")
	f.h.Notifier.Fail = true

	if err := f.h.Team.TransferOwnership(f.ctx, f.admin.ID, f.org.ID, u2.ID); err != nil {
		t.Fatalf("TransferOwnership: %v", err)
	}
	if org := f.h.Fixtures.Organization(f.ctx, f.org.ID); !org.IsOwnedBy(u2.ID) {
		t.Error("ownership change must stand when notices fail")
	}
	if got := len(f.h.Notifier.Sent()); got != 2 {
		t.Errorf("attempted notices = %d, want 2", got)
	}
}

func TestGetTeamMembers_OrderedByJoin(t *testing.T) {
	f := setup(t)
	a := f.h.Fixtures.CreateMember(f.ctx, f.org.ID, "A", "a@example.com")
	b := f.h.Fixtures.CreateMember(f.ctx, f.org.ID, "B", "b@example.com")

	members, err := f.h.Team.GetTeamMembers(f.ctx, f.owner.ID, f.org.ID)
	if err != nil {
		t.Fatalf("GetTeamMembers: %v", err)
	}
	want := []primitive.ObjectID{f.owner.ID, a.ID, b.ID}
	if len(members) != len(want) {
		t.Fatalf("members = %d, want %d", len(members), len(want))
	}
	for i, m := range members {
		if m.ID != want[i] {
			t.Errorf("members[%d] = %s, want %s", i, m.FullName, want[i].Hex())
		}
	}

	if _, err := f.h.Team.GetTeamMembers(f.ctx, a.ID, f.org.ID); !errors.Is(err, errs.ErrPermissionDenied) {
		t.Errorf("plain member listing: err = %v, want ErrPermissionDenied", err)
	}
}

func TestActivityRecorded(t *testing.T) {
	f := setup(t)
	u2 := f.h.Fixtures.CreateMember(f.ctx, f.org.ID, "Second Member", "u2@example.com")
	if err := f.h.Team.TransferOwnership(f.ctx, f.admin.ID, f.org.ID, u2.ID); err != nil {
		t.Fatalf("TransferOwnership: %v", err)
	}

	entries, err := f.h.DB.Feed().List(f.ctx, 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 1 || entries[0].Type != models.ActivityOwnershipTransferred {
		t.Fatalf("feed = %+v, want one ownership_transferred", entries)
	}
}
