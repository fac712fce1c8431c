package approvals

import (
	"context"
	"errors"

	"github.com/dalemusser/jobhub/internal/app/system/passwords"
	"github.com/dalemusser/jobhub/internal/domain/errs"
	"github.com/dalemusser/jobhub/internal/domain/models"
	"github.com/dalemusser/jobhub/internal/domain/notices"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// flow is the per-kind part of a request's lifecycle. provision and unwind
// run after the request has been claimed; an error from either releases the
// claim. approved and declined only notify.
type flow interface {
	authorize(ctx context.Context, actor primitive.ObjectID, req models.PendingRequest) error
	provision(ctx context.Context, actor primitive.ObjectID, req models.PendingRequest) (ApproveResult, error)
	unwind(ctx context.Context, req models.PendingRequest) error
	approved(ctx context.Context, req models.PendingRequest, res ApproveResult)
	declined(ctx context.Context, req models.PendingRequest)
}

func orgOf(req models.PendingRequest) (primitive.ObjectID, error) {
	if req.OrganizationID == nil {
		return primitive.NilObjectID, errs.ErrInvalidRequest
	}
	return *req.OrganizationID, nil
}

func targetOf(req models.PendingRequest) (primitive.ObjectID, error) {
	if req.TargetUserID == nil {
		return primitive.NilObjectID, errs.ErrInvalidRequest
	}
	return *req.TargetUserID, nil
}

/*─────────────────────────────────────────────────────────────────────────────*
| signup                                                                      |
*─────────────────────────────────────────────────────────────────────────────*/

// signupFlow publishes the pending organization with the requester as owner.
type signupFlow struct{ e *Engine }

func (f signupFlow) authorize(ctx context.Context, actor primitive.ObjectID, _ models.PendingRequest) error {
	return f.e.requireAdmin(ctx, actor)
}

func (f signupFlow) provision(ctx context.Context, _ primitive.ObjectID, req models.PendingRequest) (ApproveResult, error) {
	orgID, err := orgOf(req)
	if err != nil {
		return ApproveResult{}, err
	}
	userID, err := targetOf(req)
	if err != nil {
		return ApproveResult{}, err
	}
	org, err := f.e.orgs.GetByID(ctx, orgID)
	if err != nil {
		return ApproveResult{}, err
	}
	if org.Status != models.OrgPending {
		return ApproveResult{}, errs.ErrInvalidTransition
	}
	if _, err := f.e.accounts.GetByID(ctx, userID); err != nil {
		return ApproveResult{}, err
	}

	// Membership and the owner tag land before the organization is
	// published, so a published organization is never seen without its owner.
	err = f.e.tx.InTx(ctx, func(ctx context.Context) error {
		if err := f.e.accounts.SetMembership(ctx, userID, orgID, req.Payload.JobTitle); err != nil {
			return err
		}
		if err := f.e.accounts.Activate(ctx, userID, ""); err != nil {
			return err
		}
		if err := f.e.accounts.AddRole(ctx, userID, models.RoleOwner); err != nil {
			return err
		}
		return f.e.orgs.Publish(ctx, orgID, userID)
	})
	if err != nil {
		return ApproveResult{}, err
	}
	return ApproveResult{UserID: userID}, nil
}

// unwind deletes the placeholder account and the pending organization.
func (f signupFlow) unwind(ctx context.Context, req models.PendingRequest) error {
	return f.e.tx.InTx(ctx, func(ctx context.Context) error {
		if req.TargetUserID != nil {
			if err := f.e.deletePlaceholder(ctx, *req.TargetUserID, models.StatusLimited); err != nil {
				return err
			}
		}
		if req.OrganizationID == nil {
			return nil
		}
		org, err := f.e.orgs.GetByID(ctx, *req.OrganizationID)
		if err != nil {
			if errors.Is(err, errs.ErrInvalidRequest) {
				return nil
			}
			return err
		}
		if org.Status != models.OrgPending {
			return errs.ErrInvalidTransition
		}
		_, err = f.e.orgs.Delete(ctx, org.ID)
		return err
	})
}

func (f signupFlow) approved(ctx context.Context, req models.PendingRequest, _ ApproveResult) {
	f.e.send(ctx, req.Payload.Email, notices.SignupApproved, requestVars(req), req.ID)
}

func (f signupFlow) declined(ctx context.Context, req models.PendingRequest) {
	f.e.send(ctx, req.Payload.Email, notices.SignupDeclined, requestVars(req), req.ID)
}

/*─────────────────────────────────────────────────────────────────────────────*
| join                                                                        |
*─────────────────────────────────────────────────────────────────────────────*/

// joinFlow turns the placeholder account into an active member with a
// generated password.
type joinFlow struct{ e *Engine }

func (f joinFlow) authorize(ctx context.Context, actor primitive.ObjectID, req models.PendingRequest) error {
	orgID, err := orgOf(req)
	if err != nil {
		return err
	}
	return f.e.requireManage(ctx, actor, orgID)
}

func (f joinFlow) provision(ctx context.Context, _ primitive.ObjectID, req models.PendingRequest) (ApproveResult, error) {
	orgID, err := orgOf(req)
	if err != nil {
		return ApproveResult{}, err
	}
	userID, err := targetOf(req)
	if err != nil {
		return ApproveResult{}, err
	}
	org, err := f.e.orgs.GetByID(ctx, orgID)
	if err != nil {
		return ApproveResult{}, err
	}
	if org.Status != models.OrgPublished {
		return ApproveResult{}, errs.ErrOrganizationNotActive
	}
	u, err := f.e.accounts.GetByID(ctx, userID)
	if err != nil {
		return ApproveResult{}, err
	}
	if u.Status != models.StatusPending {
		return ApproveResult{}, errs.ErrInvalidTransition
	}

	plain, hash, err := passwords.GenerateHashed()
	if err != nil {
		return ApproveResult{}, err
	}
	err = f.e.tx.InTx(ctx, func(ctx context.Context) error {
		if err := f.e.accounts.SetMembership(ctx, userID, orgID, req.Payload.JobTitle); err != nil {
			return err
		}
		return f.e.accounts.Activate(ctx, userID, hash)
	})
	if err != nil {
		return ApproveResult{}, err
	}
	return ApproveResult{UserID: userID, GeneratedPassword: plain}, nil
}

func (f joinFlow) unwind(ctx context.Context, req models.PendingRequest) error {
	userID, err := targetOf(req)
	if err != nil {
		return err
	}
	return f.e.deletePlaceholder(ctx, userID, models.StatusPending)
}

func (f joinFlow) approved(ctx context.Context, req models.PendingRequest, res ApproveResult) {
	vars := requestVars(req)
	vars[notices.VarPassword] = res.GeneratedPassword
	f.e.send(ctx, req.Payload.Email, notices.JoinApproved, vars, req.ID)
}

func (f joinFlow) declined(ctx context.Context, req models.PendingRequest) {
	f.e.send(ctx, req.Payload.Email, notices.JoinDeclined, requestVars(req), req.ID)
}

/*─────────────────────────────────────────────────────────────────────────────*
| removal                                                                     |
*─────────────────────────────────────────────────────────────────────────────*/

// removalFlow deletes the member's account through the team manager, which
// keeps the owner protection in one place.
type removalFlow struct{ e *Engine }

func (f removalFlow) authorize(ctx context.Context, actor primitive.ObjectID, _ models.PendingRequest) error {
	return f.e.requireAdmin(ctx, actor)
}

func (f removalFlow) provision(ctx context.Context, actor primitive.ObjectID, req models.PendingRequest) (ApproveResult, error) {
	orgID, err := orgOf(req)
	if err != nil {
		return ApproveResult{}, err
	}
	userID, err := targetOf(req)
	if err != nil {
		return ApproveResult{}, err
	}
	if err := f.e.remover.RemoveApproved(ctx, actor, userID, orgID); err != nil {
		return ApproveResult{}, err
	}
	return ApproveResult{UserID: userID}, nil
}

// unwind has nothing to undo; the member stays on the team.
func (f removalFlow) unwind(context.Context, models.PendingRequest) error { return nil }

func (f removalFlow) approved(ctx context.Context, req models.PendingRequest, _ ApproveResult) {
	f.e.send(ctx, f.e.requesterEmail(ctx, req), notices.RemovalApproved, requestVars(req), req.ID)
}

func (f removalFlow) declined(ctx context.Context, req models.PendingRequest) {
	f.e.send(ctx, f.e.requesterEmail(ctx, req), notices.RemovalDeclined, requestVars(req), req.ID)
}

/*─────────────────────────────────────────────────────────────────────────────*
| helpers                                                                     |
*─────────────────────────────────────────────────────────────────────────────*/

// deletePlaceholder deletes userID when it is still a placeholder in status.
// An account that is already gone counts as deleted; one that has moved on to
// another status is left alone.
func (e *Engine) deletePlaceholder(ctx context.Context, userID primitive.ObjectID, status string) error {
	u, err := e.accounts.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, errs.ErrInvalidRequest) {
			return nil
		}
		return err
	}
	if u.Status != status {
		e.log.Warn("placeholder account no longer pending; not deleted",
			zap.String("user_id", userID.Hex()),
			zap.String("status", u.Status))
		return errs.ErrInvalidTransition
	}
	_, err = e.accounts.Delete(ctx, userID)
	return err
}

func (e *Engine) requesterEmail(ctx context.Context, req models.PendingRequest) string {
	if req.RequesterID == nil {
		return ""
	}
	u, err := e.accounts.GetByID(ctx, *req.RequesterID)
	if err != nil {
		e.log.Warn("requester not loaded for notice",
			zap.String("request_id", req.ID.Hex()),
			zap.Error(err))
		return ""
	}
	return u.Email
}
