// Package team owns organization membership and the single-owner invariant:
// adding and removing members and transferring ownership.
package team

import (
	"context"
	"errors"
	"fmt"

	"github.com/dalemusser/jobhub/internal/app/store"
	"github.com/dalemusser/jobhub/internal/app/system/normalize"
	"github.com/dalemusser/jobhub/internal/app/system/notify"
	"github.com/dalemusser/jobhub/internal/app/system/passwords"
	"github.com/dalemusser/jobhub/internal/domain/errs"
	"github.com/dalemusser/jobhub/internal/domain/models"
	"github.com/dalemusser/jobhub/internal/domain/notices"
	"github.com/dalemusser/waffle/pantry/validate"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Authorizer is the subset of teampolicy.Policy the manager consults.
type Authorizer interface {
	CanManageTeam(ctx context.Context, userID, orgID primitive.ObjectID) (bool, error)
	CanAssignOwner(ctx context.Context, userID primitive.ObjectID) (bool, error)
}

// Activity receives membership events.
type Activity interface {
	MemberAdded(ctx context.Context, orgID, actor primitive.ObjectID, fullName, orgName string)
	MemberRemoved(ctx context.Context, orgID, actor primitive.ObjectID, fullName, orgName string, deleted bool)
	OwnershipTransferred(ctx context.Context, orgID, actor primitive.ObjectID, orgName, from, to string)
}

// Manager performs membership changes. Every mutating method checks
// permission before touching any record.
type Manager struct {
	accounts store.Accounts
	orgs     store.Organizations
	requests store.Requests
	tx       store.TxRunner
	policy   Authorizer
	notifier notify.Notifier
	activity Activity
	log      *zap.Logger
}

func NewManager(accounts store.Accounts, orgs store.Organizations, requests store.Requests, tx store.TxRunner,
	policy Authorizer, notifier notify.Notifier, activity Activity, logger *zap.Logger) *Manager {
	return &Manager{
		accounts: accounts,
		orgs:     orgs,
		requests: requests,
		tx:       tx,
		policy:   policy,
		notifier: notifier,
		activity: activity,
		log:      logger,
	}
}

// AddMemberInput is what an operator supplies to add a member directly.
type AddMemberInput struct {
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	JobTitle string `json:"job_title"`
}

// AddMemberResult carries the generated password, which is never stored in
// the clear.
type AddMemberResult struct {
	UserID            primitive.ObjectID `json:"user_id"`
	GeneratedPassword string             `json:"generated_password"`
}

func (in *AddMemberInput) normalize() error {
	in.Email = normalize.Email(in.Email)
	in.FullName = normalize.Name(in.FullName)
	in.JobTitle = normalize.Name(in.JobTitle)
	if in.FullName == "" {
		return errs.Validation("full_name_required", "full name is required")
	}
	if in.Email == "" || !validate.SimpleEmailValid(in.Email) {
		return errs.Validation("invalid_email", "a valid email address is required")
	}
	return nil
}

// publishedOrg loads orgID and requires it to be published.
func (m *Manager) publishedOrg(ctx context.Context, orgID primitive.ObjectID) (*models.Organization, error) {
	org, err := m.orgs.GetByID(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if org.Status != models.OrgPublished {
		return nil, errs.ErrOrganizationNotActive
	}
	return org, nil
}

func (m *Manager) requireManage(ctx context.Context, actor, orgID primitive.ObjectID) error {
	ok, err := m.policy.CanManageTeam(ctx, actor, orgID)
	if err != nil {
		return fmt.Errorf("check team permission: %w", err)
	}
	if !ok {
		return errs.ErrPermissionDenied
	}
	return nil
}

// AddMember creates an active account in orgID with a generated password.
// The store's unique email index is the only guard against a concurrent
// duplicate; the losing writer gets errs.ErrDuplicateEmail.
func (m *Manager) AddMember(ctx context.Context, actor, orgID primitive.ObjectID, in AddMemberInput) (AddMemberResult, error) {
	if err := m.requireManage(ctx, actor, orgID); err != nil {
		return AddMemberResult{}, err
	}
	if err := in.normalize(); err != nil {
		return AddMemberResult{}, err
	}
	org, err := m.publishedOrg(ctx, orgID)
	if err != nil {
		return AddMemberResult{}, err
	}

	plain, hash, err := passwords.GenerateHashed()
	if err != nil {
		return AddMemberResult{}, fmt.Errorf("generate password: %w", err)
	}
	u, err := m.accounts.Create(ctx, models.User{
		FullName:       in.FullName,
		Email:          in.Email,
		PasswordHash:   hash,
		Roles:          []string{models.RoleMember},
		Status:         models.StatusActive,
		OrganizationID: &orgID,
		JobTitle:       in.JobTitle,
	})
	if err != nil {
		return AddMemberResult{}, err
	}

	m.send(ctx, u.Email, notices.MemberAdded, map[string]string{
		notices.VarFullName: u.FullName,
		notices.VarEmail:    u.Email,
		notices.VarOrgName:  org.Name,
		notices.VarPassword: plain,
	}, zap.String("user_id", u.ID.Hex()))
	m.activity.MemberAdded(ctx, orgID, actor, u.FullName, org.Name)

	m.log.Info("member added",
		zap.String("org_id", orgID.Hex()),
		zap.String("user_id", u.ID.Hex()),
		zap.String("actor_id", actor.Hex()))
	return AddMemberResult{UserID: u.ID, GeneratedPassword: plain}, nil
}

// RemoveMember takes userID out of orgID. The owner can never be removed;
// ownership has to move first. The notice goes out before the account
// changes so the address is still known.
func (m *Manager) RemoveMember(ctx context.Context, actor, userID, orgID primitive.ObjectID, deleteAccount bool) error {
	if err := m.requireManage(ctx, actor, orgID); err != nil {
		return err
	}
	return m.removeMember(ctx, actor, userID, orgID, deleteAccount)
}

// RemoveApproved performs a removal that was authorized by an approved
// removal request. The caller has already checked the reviewer's permission.
func (m *Manager) RemoveApproved(ctx context.Context, actor, userID, orgID primitive.ObjectID) error {
	return m.removeMember(ctx, actor, userID, orgID, true)
}

func (m *Manager) removeMember(ctx context.Context, actor, userID, orgID primitive.ObjectID, deleteAccount bool) error {
	org, err := m.orgs.GetByID(ctx, orgID)
	if err != nil {
		return err
	}
	if org.IsOwnedBy(userID) {
		return errs.ErrCannotRemoveOwner
	}
	u, err := m.accounts.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if u.OrganizationID == nil || *u.OrganizationID != orgID {
		return errs.ErrNotAMember
	}

	m.send(ctx, u.Email, notices.MemberRemoved, map[string]string{
		notices.VarFullName: u.FullName,
		notices.VarOrgName:  org.Name,
	}, zap.String("user_id", u.ID.Hex()))

	if deleteAccount {
		n, err := m.accounts.Delete(ctx, userID)
		if err != nil {
			return fmt.Errorf("delete account: %w", err)
		}
		if n == 0 {
			return errs.ErrInvalidRequest
		}
	} else if err := m.accounts.ClearMembership(ctx, userID); err != nil {
		return fmt.Errorf("clear membership: %w", err)
	}

	m.closeRemovalRequests(ctx, actor, userID)
	m.activity.MemberRemoved(ctx, orgID, actor, u.FullName, org.Name, deleteAccount)
	m.log.Info("member removed",
		zap.String("org_id", orgID.Hex()),
		zap.String("user_id", userID.Hex()),
		zap.String("actor_id", actor.Hex()),
		zap.Bool("deleted", deleteAccount))
	return nil
}

// RemovedDirectlyNote is the decline note on removal requests closed because
// the member was removed without them.
const RemovedDirectlyNote = "Member was already removed from the team."

// closeRemovalRequests declines the open removal requests naming userID. The
// removal has already happened, so a failure here is only logged.
func (m *Manager) closeRemovalRequests(ctx context.Context, actor, userID primitive.ObjectID) {
	open, err := m.requests.ListOpen(ctx, models.RequestQuery{Kind: models.KindRemoval, TargetUserID: &userID})
	if err != nil {
		m.log.Warn("open removal requests not loaded", zap.String("user_id", userID.Hex()), zap.Error(err))
		return
	}
	for _, r := range open {
		_, err := m.requests.Apply(ctx, r.ID, models.Transition{
			From: models.OpenStatuses,
			To:   models.RequestDeclined,
			By:   &actor,
			Note: RemovedDirectlyNote,
		})
		if err != nil {
			if !errors.Is(err, errs.ErrInvalidRequest) {
				m.log.Warn("removal request not closed",
					zap.String("request_id", r.ID.Hex()), zap.Error(err))
			}
			continue
		}
		m.log.Info("removal request closed by direct removal",
			zap.String("request_id", r.ID.Hex()),
			zap.String("user_id", userID.Hex()))
	}
}

// TransferOwnership moves orgID's ownership to newOwner, who must already be
// a member. The owner field and both role tags change in one transaction;
// the two notices are sent only after it commits.
func (m *Manager) TransferOwnership(ctx context.Context, actor, orgID, newOwner primitive.ObjectID) error {
	ok, err := m.policy.CanAssignOwner(ctx, actor)
	if err != nil {
		return fmt.Errorf("check owner permission: %w", err)
	}
	if !ok {
		return errs.ErrPermissionDenied
	}

	org, err := m.publishedOrg(ctx, orgID)
	if err != nil {
		return err
	}
	if org.IsOwnedBy(newOwner) {
		return errs.ErrAlreadyOwner
	}
	next, err := m.accounts.GetByID(ctx, newOwner)
	if err != nil {
		if errors.Is(err, errs.ErrInvalidRequest) {
			return errs.ErrMustBeExistingMember
		}
		return err
	}
	if !next.MemberOf(orgID) {
		return errs.ErrMustBeExistingMember
	}
	if org.OwnerUserID == nil {
		// A published organization always has an owner.
		return fmt.Errorf("organization %s has no owner", orgID.Hex())
	}
	prevID := *org.OwnerUserID

	err = m.tx.InTx(ctx, func(ctx context.Context) error {
		// Conditional on the owner we read, so a concurrent transfer makes
		// this one fail instead of silently overwriting it.
		if err := m.orgs.SwapOwner(ctx, orgID, prevID, newOwner); err != nil {
			if errors.Is(err, errs.ErrInvalidRequest) {
				return errs.ErrInvalidTransition
			}
			return err
		}
		if err := m.accounts.RemoveRole(ctx, prevID, models.RoleOwner); err != nil && !errors.Is(err, errs.ErrInvalidRequest) {
			return err
		}
		return m.accounts.AddRole(ctx, newOwner, models.RoleOwner)
	})
	if err != nil {
		return err
	}

	prevName := prevID.Hex()
	if prev, err := m.accounts.GetByID(ctx, prevID); err == nil {
		prevName = prev.FullName
		m.send(ctx, prev.Email, notices.OwnershipRevoked, map[string]string{
			notices.VarFullName: prev.FullName,
			notices.VarOrgName:  org.Name,
		}, zap.String("user_id", prevID.Hex()))
	} else {
		m.log.Warn("previous owner not loaded for notice", zap.String("user_id", prevID.Hex()), zap.Error(err))
	}
	m.send(ctx, next.Email, notices.OwnershipGranted, map[string]string{
		notices.VarFullName: next.FullName,
		notices.VarOrgName:  org.Name,
	}, zap.String("user_id", next.ID.Hex()))

	m.activity.OwnershipTransferred(ctx, orgID, actor, org.Name, prevName, next.FullName)
	m.log.Info("ownership transferred",
		zap.String("org_id", orgID.Hex()),
		zap.String("from", prevID.Hex()),
		zap.String("to", newOwner.Hex()),
		zap.String("actor_id", actor.Hex()))
	return nil
}

// GetTeamMembers lists orgID's active members, earliest joiner first.
func (m *Manager) GetTeamMembers(ctx context.Context, actor, orgID primitive.ObjectID) ([]models.User, error) {
	if err := m.requireManage(ctx, actor, orgID); err != nil {
		return nil, err
	}
	return m.accounts.ListByOrganization(ctx, orgID)
}

// GetTeamCount counts orgID's active members.
func (m *Manager) GetTeamCount(ctx context.Context, actor, orgID primitive.ObjectID) (int64, error) {
	if err := m.requireManage(ctx, actor, orgID); err != nil {
		return 0, err
	}
	return m.accounts.CountByOrganization(ctx, orgID)
}

// send is fire-and-forget: a false return is logged and otherwise ignored.
func (m *Manager) send(ctx context.Context, to, key string, vars map[string]string, fields ...zap.Field) {
	if m.notifier.Send(ctx, to, key, vars) {
		return
	}
	m.log.Warn("notification not accepted",
		append(fields, zap.String("template", key))...)
}
