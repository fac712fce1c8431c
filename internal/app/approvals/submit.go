package approvals

import (
	"context"
	"fmt"

	"github.com/dalemusser/jobhub/internal/app/system/passwords"
	"github.com/dalemusser/jobhub/internal/domain/errs"
	"github.com/dalemusser/jobhub/internal/domain/models"
	"github.com/dalemusser/jobhub/internal/domain/notices"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// SubmitSignup files an employer signup. The requester's account is created
// first, in limited status, so the unique email index decides between
// concurrent signups before anything else is written. The organization is
// created pending and published only on approval.
func (e *Engine) SubmitSignup(ctx context.Context, in SignupInput) (models.PendingRequest, error) {
	if err := in.normalize(); err != nil {
		return models.PendingRequest{}, err
	}
	hash, err := passwords.Hash(in.Password)
	if err != nil {
		return models.PendingRequest{}, fmt.Errorf("hash password: %w", err)
	}

	u, err := e.accounts.Create(ctx, models.User{
		FullName:     in.FullName,
		Email:        in.Email,
		PasswordHash: hash,
		Roles:        []string{},
		Status:       models.StatusLimited,
		JobTitle:     in.JobTitle,
	})
	if err != nil {
		return models.PendingRequest{}, err
	}

	org, err := e.orgs.Create(ctx, models.Organization{
		Name:         in.OrgName,
		Status:       models.OrgPending,
		ContactEmail: in.Email,
		ContactPhone: in.ContactPhone,
		Website:      in.Website,
	})
	if err != nil {
		e.discardAccount(ctx, u.ID)
		return models.PendingRequest{}, fmt.Errorf("create organization: %w", err)
	}

	req, err := e.requests.Create(ctx, models.PendingRequest{
		Kind:           models.KindSignup,
		OrganizationID: &org.ID,
		RequesterID:    &u.ID,
		TargetUserID:   &u.ID,
		Payload: models.RequestPayload{
			FullName:     u.FullName,
			Email:        u.Email,
			JobTitle:     u.JobTitle,
			OrgName:      org.Name,
			ContactPhone: org.ContactPhone,
			Website:      org.Website,
		},
	})
	if err != nil {
		e.discardOrganization(ctx, org.ID)
		e.discardAccount(ctx, u.ID)
		return models.PendingRequest{}, err
	}

	e.sendAdmin(ctx, notices.SignupSubmitted, requestVars(req), req.ID)
	e.activity.RequestSubmitted(ctx, req)
	e.log.Info("signup submitted",
		zap.String("request_id", req.ID.Hex()),
		zap.String("org_id", org.ID.Hex()),
		zap.String("user_id", u.ID.Hex()))
	return req, nil
}

// SubmitJoin files a request to join orgID. A pending placeholder account
// reserves the email at submission, so a second request for the same email
// fails here with errs.ErrDuplicateEmail and creates nothing. requester is
// nil for anonymous submissions.
func (e *Engine) SubmitJoin(ctx context.Context, requester *primitive.ObjectID, orgID primitive.ObjectID, in JoinInput) (models.PendingRequest, error) {
	if err := in.normalize(); err != nil {
		return models.PendingRequest{}, err
	}
	org, err := e.orgs.GetByID(ctx, orgID)
	if err != nil {
		return models.PendingRequest{}, err
	}
	if org.Status != models.OrgPublished {
		return models.PendingRequest{}, errs.ErrOrganizationNotActive
	}

	u, err := e.accounts.Create(ctx, models.User{
		FullName: in.FullName,
		Email:    in.Email,
		Roles:    []string{},
		Status:   models.StatusPending,
		JobTitle: in.JobTitle,
	})
	if err != nil {
		return models.PendingRequest{}, err
	}

	req, err := e.requests.Create(ctx, models.PendingRequest{
		Kind:           models.KindJoin,
		OrganizationID: &org.ID,
		RequesterID:    requester,
		TargetUserID:   &u.ID,
		Note:           in.Reason,
		Payload: models.RequestPayload{
			FullName: u.FullName,
			Email:    u.Email,
			JobTitle: u.JobTitle,
			OrgName:  org.Name,
			Reason:   in.Reason,
		},
	})
	if err != nil {
		e.discardAccount(ctx, u.ID)
		return models.PendingRequest{}, err
	}

	if org.OwnerUserID != nil {
		if owner, err := e.accounts.GetByID(ctx, *org.OwnerUserID); err == nil {
			e.send(ctx, owner.Email, notices.JoinSubmitted, requestVars(req), req.ID)
		} else {
			e.log.Warn("owner not loaded for join notice",
				zap.String("org_id", org.ID.Hex()),
				zap.Error(err))
		}
	}
	e.activity.RequestSubmitted(ctx, req)
	e.log.Info("join submitted",
		zap.String("request_id", req.ID.Hex()),
		zap.String("org_id", org.ID.Hex()),
		zap.String("user_id", u.ID.Hex()))
	return req, nil
}

// SubmitRemoval asks a reviewer to delete a member's account. The actor must
// be able to manage orgID's team. At most one removal request per member is
// open at a time.
func (e *Engine) SubmitRemoval(ctx context.Context, actor, orgID primitive.ObjectID, in RemovalInput) (models.PendingRequest, error) {
	if err := e.requireManage(ctx, actor, orgID); err != nil {
		return models.PendingRequest{}, err
	}
	if err := in.normalize(); err != nil {
		return models.PendingRequest{}, err
	}
	org, err := e.orgs.GetByID(ctx, orgID)
	if err != nil {
		return models.PendingRequest{}, err
	}
	if org.Status != models.OrgPublished {
		return models.PendingRequest{}, errs.ErrOrganizationNotActive
	}
	if org.IsOwnedBy(in.UserID) {
		return models.PendingRequest{}, errs.ErrCannotRemoveOwner
	}
	target, err := e.accounts.GetByID(ctx, in.UserID)
	if err != nil {
		return models.PendingRequest{}, err
	}
	if !target.MemberOf(orgID) {
		return models.PendingRequest{}, errs.ErrNotAMember
	}

	req, err := e.requests.Create(ctx, models.PendingRequest{
		Kind:           models.KindRemoval,
		OrganizationID: &org.ID,
		RequesterID:    &actor,
		TargetUserID:   &target.ID,
		Note:           in.Reason,
		Payload: models.RequestPayload{
			FullName: target.FullName,
			Email:    target.Email,
			JobTitle: target.JobTitle,
			OrgName:  org.Name,
			Reason:   in.Reason,
		},
	})
	if err != nil {
		return models.PendingRequest{}, err
	}

	vars := requestVars(req)
	if by, err := e.accounts.GetByID(ctx, actor); err == nil {
		vars[notices.VarActorName] = by.FullName
	}
	e.sendAdmin(ctx, notices.RemovalSubmitted, vars, req.ID)
	e.activity.RequestSubmitted(ctx, req)
	e.log.Info("removal submitted",
		zap.String("request_id", req.ID.Hex()),
		zap.String("org_id", org.ID.Hex()),
		zap.String("user_id", target.ID.Hex()),
		zap.String("actor_id", actor.Hex()))
	return req, nil
}

// discardAccount and discardOrganization undo a partially applied submission.
// Failures are logged; the records are unreachable placeholders either way.
func (e *Engine) discardAccount(ctx context.Context, id primitive.ObjectID) {
	if _, err := e.accounts.Delete(ctx, id); err != nil {
		e.log.Error("failed to discard placeholder account", zap.String("user_id", id.Hex()), zap.Error(err))
	}
}

func (e *Engine) discardOrganization(ctx context.Context, id primitive.ObjectID) {
	if _, err := e.orgs.Delete(ctx, id); err != nil {
		e.log.Error("failed to discard pending organization", zap.String("org_id", id.Hex()), zap.Error(err))
	}
}
