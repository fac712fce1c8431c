package requests

import (
	"context"
	"net/http"

	"github.com/dalemusser/jobhub/internal/app/approvals"
	ferrors "github.com/dalemusser/jobhub/internal/app/features/errors"
	"github.com/dalemusser/jobhub/internal/app/system/auth"
	"github.com/dalemusser/jobhub/internal/app/system/paging"
	"github.com/dalemusser/jobhub/internal/app/system/timeouts"
	"github.com/dalemusser/jobhub/internal/domain/errs"
	"github.com/dalemusser/jobhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Handler serves signup submission and the review queue.
type Handler struct {
	Engine *approvals.Engine
	Log    *zap.Logger
}

func NewHandler(engine *approvals.Engine, logger *zap.Logger) *Handler {
	return &Handler{Engine: engine, Log: logger}
}

type submittedResponse struct {
	RequestID string               `json:"request_id"`
	Status    models.RequestStatus `json:"status"`
}

type listResponse struct {
	Requests []models.PendingRequest `json:"requests"`
}

type approveResponse struct {
	Request models.PendingRequest `json:"request"`
	UserID  string                `json:"user_id,omitempty"`
}

// textInput carries the free text of decline, info and respond.
type textInput struct {
	Text string `json:"text"`
}

func requestID(r *http.Request) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		return primitive.NilObjectID, errs.ErrInvalidRequest
	}
	return id, nil
}

// HandleSignup handles POST /signup.
func (h *Handler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	var in approvals.SignupInput
	if err := ferrors.Decode(r, &in); err != nil {
		ferrors.BadRequest(w, "malformed request body")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "submit signup")
	defer cancel()

	req, err := h.Engine.SubmitSignup(ctx, in)
	if err != nil {
		ferrors.Write(w, r, h.Log, err)
		return
	}
	ferrors.JSON(w, http.StatusAccepted, submittedResponse{RequestID: req.ID.Hex(), Status: req.Status})
}

// ServeList handles GET /requests?kind=&limit=.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.CurrentActor(r)
	kind := models.RequestKind(query.Get(r, "kind"))
	limit := paging.ParseLimit(r, "limit", paging.PageSize)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "list requests")
	defer cancel()

	reqs, err := h.Engine.ListOpenRequests(ctx, actor, kind, limit)
	if err != nil {
		ferrors.Write(w, r, h.Log, err)
		return
	}
	if reqs == nil {
		reqs = []models.PendingRequest{}
	}
	ferrors.JSON(w, http.StatusOK, listResponse{Requests: reqs})
}

// ServeRequest handles GET /requests/{id}.
func (h *Handler) ServeRequest(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.CurrentActor(r)
	id, err := requestID(r)
	if err != nil {
		ferrors.Write(w, r, h.Log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "get request")
	defer cancel()

	req, err := h.Engine.GetRequest(ctx, actor, id)
	if err != nil {
		ferrors.Write(w, r, h.Log, err)
		return
	}
	ferrors.JSON(w, http.StatusOK, req)
}

// HandleApprove handles POST /requests/{id}/approve. Credentials generated
// for a join are sent to the new member, not returned here.
func (h *Handler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.CurrentActor(r)
	id, err := requestID(r)
	if err != nil {
		ferrors.Write(w, r, h.Log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "approve request")
	defer cancel()

	res, err := h.Engine.Approve(ctx, actor, id)
	if err != nil {
		ferrors.Write(w, r, h.Log, err)
		return
	}
	resp := approveResponse{Request: res.Request}
	if !res.UserID.IsZero() {
		resp.UserID = res.UserID.Hex()
	}
	ferrors.JSON(w, http.StatusOK, resp)
}

// textAction decodes the body and runs one of the free-text transitions.
func (h *Handler) textAction(w http.ResponseWriter, r *http.Request, op string,
	fn func(ctx context.Context, actor, id primitive.ObjectID, text string) (models.PendingRequest, error)) {
	actor, _ := auth.CurrentActor(r)
	id, err := requestID(r)
	if err != nil {
		ferrors.Write(w, r, h.Log, err)
		return
	}
	var in textInput
	if err := ferrors.Decode(r, &in); err != nil {
		ferrors.BadRequest(w, "malformed request body")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, op)
	defer cancel()

	req, err := fn(ctx, actor, id, in.Text)
	if err != nil {
		ferrors.Write(w, r, h.Log, err)
		return
	}
	ferrors.JSON(w, http.StatusOK, req)
}

// HandleDecline handles POST /requests/{id}/decline.
func (h *Handler) HandleDecline(w http.ResponseWriter, r *http.Request) {
	h.textAction(w, r, "decline request", h.Engine.Decline)
}

// HandleInfo handles POST /requests/{id}/info.
func (h *Handler) HandleInfo(w http.ResponseWriter, r *http.Request) {
	h.textAction(w, r, "request info", h.Engine.RequestInfo)
}

// HandleRespond handles POST /requests/{id}/respond.
func (h *Handler) HandleRespond(w http.ResponseWriter, r *http.Request) {
	h.textAction(w, r, "respond to request", h.Engine.Respond)
}
