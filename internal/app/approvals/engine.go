// Package approvals runs the review-gated changes: employer signup, joining
// an organization, and removing a member. The three kinds share one state
// machine; each kind supplies a flow that authorizes, provisions and unwinds.
//
//	pending ⇄ info_requested
//	pending | info_requested → approved | declined
//
// A resolution first claims the request with a conditional status write, so a
// repeated or concurrent approve/decline fails with errs.ErrInvalidRequest
// instead of provisioning twice. When provisioning fails the claim is
// released and the request is open again.
package approvals

import (
	"context"
	"errors"
	"fmt"

	"github.com/dalemusser/jobhub/internal/app/store"
	"github.com/dalemusser/jobhub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/jobhub/internal/app/system/notify"
	"github.com/dalemusser/jobhub/internal/domain/errs"
	"github.com/dalemusser/jobhub/internal/domain/models"
	"github.com/dalemusser/jobhub/internal/domain/notices"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Authorizer is the subset of teampolicy.Policy the engine consults.
type Authorizer interface {
	IsAdmin(ctx context.Context, userID primitive.ObjectID) (bool, error)
	CanManageTeam(ctx context.Context, userID, orgID primitive.ObjectID) (bool, error)
}

// MemberRemover deletes a member once a removal request is approved.
// team.Manager satisfies it.
type MemberRemover interface {
	RemoveApproved(ctx context.Context, actor, userID, orgID primitive.ObjectID) error
}

// Activity receives request lifecycle events.
type Activity interface {
	RequestSubmitted(ctx context.Context, req models.PendingRequest)
	RequestResolved(ctx context.Context, req models.PendingRequest, actor primitive.ObjectID)
	InfoRequested(ctx context.Context, req models.PendingRequest, actor primitive.ObjectID)
}

// Config holds engine settings.
type Config struct {
	// AdminEmail receives the notices addressed to reviewers. Empty
	// disables those notices.
	AdminEmail string
}

// Deps bundles the engine's collaborators.
type Deps struct {
	Accounts store.Accounts
	Orgs     store.Organizations
	Requests store.Requests
	Tx       store.TxRunner
	Policy   Authorizer
	Remover  MemberRemover
	Notifier notify.Notifier
	Activity Activity
	Logger   *zap.Logger
}

// Engine drives pending requests through their lifecycle.
type Engine struct {
	accounts store.Accounts
	orgs     store.Organizations
	requests store.Requests
	tx       store.TxRunner
	policy   Authorizer
	remover  MemberRemover
	notifier notify.Notifier
	activity Activity
	log      *zap.Logger
	cfg      Config

	flows map[models.RequestKind]flow
}

func NewEngine(d Deps, cfg Config) *Engine {
	e := &Engine{
		accounts: d.Accounts,
		orgs:     d.Orgs,
		requests: d.Requests,
		tx:       d.Tx,
		policy:   d.Policy,
		remover:  d.Remover,
		notifier: d.Notifier,
		activity: d.Activity,
		log:      d.Logger,
		cfg:      cfg,
	}
	e.flows = map[models.RequestKind]flow{
		models.KindSignup:  signupFlow{e},
		models.KindJoin:    joinFlow{e},
		models.KindRemoval: removalFlow{e},
	}
	return e
}

// ApproveResult reports what an approval provisioned. GeneratedPassword is
// set only when the approval created credentials.
type ApproveResult struct {
	Request           models.PendingRequest `json:"request"`
	UserID            primitive.ObjectID    `json:"user_id,omitempty"`
	GeneratedPassword string                `json:"generated_password,omitempty"`
}

// openRequest loads id and its flow, failing with errs.ErrInvalidRequest when
// the request is missing or already resolved.
func (e *Engine) openRequest(ctx context.Context, id primitive.ObjectID) (*models.PendingRequest, flow, error) {
	req, err := e.requests.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if req.Status.Terminal() {
		return nil, nil, errs.ErrInvalidRequest
	}
	f, ok := e.flows[req.Kind]
	if !ok {
		return nil, nil, errs.ErrInvalidRequest
	}
	return req, f, nil
}

// Approve resolves id as approved and provisions its effects.
func (e *Engine) Approve(ctx context.Context, actor, id primitive.ObjectID) (ApproveResult, error) {
	req, f, err := e.openRequest(ctx, id)
	if err != nil {
		return ApproveResult{}, err
	}
	if err := f.authorize(ctx, actor, *req); err != nil {
		return ApproveResult{}, err
	}

	claimed, err := e.requests.Apply(ctx, id, models.Transition{
		From: models.OpenStatuses,
		To:   models.RequestApproved,
		By:   &actor,
	})
	if err != nil {
		return ApproveResult{}, err
	}

	res, err := f.provision(ctx, actor, claimed)
	if err != nil {
		e.release(ctx, claimed, req.Status)
		return ApproveResult{}, err
	}
	res.Request = claimed

	f.approved(ctx, claimed, res)
	e.activity.RequestResolved(ctx, claimed, actor)
	e.log.Info("request approved",
		zap.String("request_id", id.Hex()),
		zap.String("kind", string(claimed.Kind)),
		zap.String("actor_id", actor.Hex()))
	return res, nil
}

// Decline resolves id as declined and undoes what submission created. The
// reason is reduced to plain text and sent to the affected party.
func (e *Engine) Decline(ctx context.Context, actor, id primitive.ObjectID, reason string) (models.PendingRequest, error) {
	req, f, err := e.openRequest(ctx, id)
	if err != nil {
		return models.PendingRequest{}, err
	}
	if err := f.authorize(ctx, actor, *req); err != nil {
		return models.PendingRequest{}, err
	}

	claimed, err := e.requests.Apply(ctx, id, models.Transition{
		From: models.OpenStatuses,
		To:   models.RequestDeclined,
		By:   &actor,
		Note: htmlsanitize.PlainText(reason),
	})
	if err != nil {
		return models.PendingRequest{}, err
	}

	if err := f.unwind(ctx, claimed); err != nil {
		e.release(ctx, claimed, req.Status)
		return models.PendingRequest{}, err
	}

	f.declined(ctx, claimed)
	e.activity.RequestResolved(ctx, claimed, actor)
	e.log.Info("request declined",
		zap.String("request_id", id.Hex()),
		zap.String("kind", string(claimed.Kind)),
		zap.String("actor_id", actor.Hex()))
	return claimed, nil
}

// release reopens a claimed request after its side effects failed.
func (e *Engine) release(ctx context.Context, req models.PendingRequest, prev models.RequestStatus) {
	_, err := e.requests.Apply(ctx, req.ID, models.Transition{
		From: []models.RequestStatus{req.Status},
		To:   prev,
	})
	if err != nil {
		e.log.Error("failed to release request claim",
			zap.String("request_id", req.ID.Hex()),
			zap.String("status", string(req.Status)),
			zap.Error(err))
	}
}

// RequestInfo asks a signup requester for more information. The question is
// sent to the requester and stored as the request's note.
func (e *Engine) RequestInfo(ctx context.Context, actor, id primitive.ObjectID, question string) (models.PendingRequest, error) {
	req, f, err := e.openRequest(ctx, id)
	if err != nil {
		return models.PendingRequest{}, err
	}
	if req.Kind != models.KindSignup {
		return models.PendingRequest{}, errs.ErrInvalidTransition
	}
	if err := f.authorize(ctx, actor, *req); err != nil {
		return models.PendingRequest{}, err
	}
	question = htmlsanitize.PlainText(question)
	if question == "" {
		return models.PendingRequest{}, errs.Validation("question_required", "a question is required")
	}

	updated, err := e.requests.Apply(ctx, id, models.Transition{
		From: models.OpenStatuses,
		To:   models.RequestInfoRequested,
		By:   &actor,
		Note: question,
	})
	if err != nil {
		return models.PendingRequest{}, err
	}

	e.send(ctx, updated.Payload.Email, notices.SignupInfoRequested, requestVars(updated), updated.ID)
	e.activity.InfoRequested(ctx, updated, actor)
	return updated, nil
}

// Respond records the requester's reply to an info request and returns the
// request to pending. Only the requester or an admin may respond.
func (e *Engine) Respond(ctx context.Context, actor, id primitive.ObjectID, reply string) (models.PendingRequest, error) {
	req, err := e.requests.GetByID(ctx, id)
	if err != nil {
		return models.PendingRequest{}, err
	}
	if req.Status != models.RequestInfoRequested {
		return models.PendingRequest{}, errs.ErrInvalidTransition
	}
	if req.RequesterID == nil || *req.RequesterID != actor {
		ok, err := e.policy.IsAdmin(ctx, actor)
		if err != nil {
			return models.PendingRequest{}, fmt.Errorf("check admin: %w", err)
		}
		if !ok {
			return models.PendingRequest{}, errs.ErrPermissionDenied
		}
	}
	reply = htmlsanitize.PlainText(reply)
	if reply == "" {
		return models.PendingRequest{}, errs.Validation("reply_required", "a reply is required")
	}

	updated, err := e.requests.Apply(ctx, id, models.Transition{
		From: []models.RequestStatus{models.RequestInfoRequested},
		To:   models.RequestPending,
		Note: reply,
	})
	if err != nil {
		if errors.Is(err, errs.ErrInvalidRequest) {
			return models.PendingRequest{}, errs.ErrInvalidTransition
		}
		return models.PendingRequest{}, err
	}
	e.sendAdmin(ctx, notices.SignupInfoReceived, requestVars(updated), updated.ID)
	return updated, nil
}

// GetRequest returns id when actor may review it or filed it.
func (e *Engine) GetRequest(ctx context.Context, actor, id primitive.ObjectID) (models.PendingRequest, error) {
	req, err := e.requests.GetByID(ctx, id)
	if err != nil {
		return models.PendingRequest{}, err
	}
	if req.RequesterID != nil && *req.RequesterID == actor {
		return *req, nil
	}
	f, ok := e.flows[req.Kind]
	if !ok {
		return models.PendingRequest{}, errs.ErrInvalidRequest
	}
	if err := f.authorize(ctx, actor, *req); err != nil {
		if errors.Is(err, errs.ErrPermissionDenied) {
			// Same answer as an unknown id.
			return models.PendingRequest{}, errs.ErrInvalidRequest
		}
		return models.PendingRequest{}, err
	}
	return *req, nil
}

// ListOpenRequests returns the open requests of kind (all kinds when empty)
// that actor may review, oldest first. Admins see everything; an owner sees
// the join requests for their own organization. The limit applies after the
// visibility filter.
func (e *Engine) ListOpenRequests(ctx context.Context, actor primitive.ObjectID, kind models.RequestKind, limit int) ([]models.PendingRequest, error) {
	if kind != "" && !kind.Valid() {
		return nil, errs.Validation("bad_kind", "unknown request kind")
	}

	admin, err := e.policy.IsAdmin(ctx, actor)
	if err != nil {
		return nil, fmt.Errorf("check admin: %w", err)
	}
	if admin {
		return e.requests.ListOpen(ctx, models.RequestQuery{Kind: kind, Limit: limit})
	}
	if kind != "" && kind != models.KindJoin {
		return []models.PendingRequest{}, nil
	}

	u, err := e.accounts.GetByID(ctx, actor)
	if err != nil {
		if errors.Is(err, errs.ErrInvalidRequest) {
			return []models.PendingRequest{}, nil
		}
		return nil, err
	}
	if u.OrganizationID == nil {
		return []models.PendingRequest{}, nil
	}
	orgID := *u.OrganizationID
	ok, err := e.policy.CanManageTeam(ctx, actor, orgID)
	if err != nil {
		return nil, fmt.Errorf("check team permission: %w", err)
	}
	if !ok {
		return []models.PendingRequest{}, nil
	}
	return e.requests.ListOpen(ctx, models.RequestQuery{
		Kind:           models.KindJoin,
		OrganizationID: &orgID,
		Limit:          limit,
	})
}

func (e *Engine) requireAdmin(ctx context.Context, actor primitive.ObjectID) error {
	ok, err := e.policy.IsAdmin(ctx, actor)
	if err != nil {
		return fmt.Errorf("check admin: %w", err)
	}
	if !ok {
		return errs.ErrPermissionDenied
	}
	return nil
}

func (e *Engine) requireManage(ctx context.Context, actor, orgID primitive.ObjectID) error {
	ok, err := e.policy.CanManageTeam(ctx, actor, orgID)
	if err != nil {
		return fmt.Errorf("check team permission: %w", err)
	}
	if !ok {
		return errs.ErrPermissionDenied
	}
	return nil
}

// send is best-effort; a refused notice is logged and otherwise ignored.
func (e *Engine) send(ctx context.Context, to, key string, vars map[string]string, reqID primitive.ObjectID) {
	if to == "" {
		return
	}
	if e.notifier.Send(ctx, to, key, vars) {
		return
	}
	e.log.Warn("notification not accepted",
		zap.String("template", key),
		zap.String("request_id", reqID.Hex()))
}

func (e *Engine) sendAdmin(ctx context.Context, key string, vars map[string]string, reqID primitive.ObjectID) {
	e.send(ctx, e.cfg.AdminEmail, key, vars, reqID)
}

func requestVars(req models.PendingRequest) map[string]string {
	return map[string]string{
		notices.VarFullName:  req.Payload.FullName,
		notices.VarEmail:     req.Payload.Email,
		notices.VarOrgName:   req.Payload.OrgName,
		notices.VarJobTitle:  req.Payload.JobTitle,
		notices.VarNote:      req.Note,
		notices.VarRequestID: req.ID.Hex(),
	}
}
