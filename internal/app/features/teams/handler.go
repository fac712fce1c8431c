package teams

import (
	"net/http"
	"time"

	"github.com/dalemusser/jobhub/internal/app/approvals"
	ferrors "github.com/dalemusser/jobhub/internal/app/features/errors"
	"github.com/dalemusser/jobhub/internal/app/system/auth"
	"github.com/dalemusser/jobhub/internal/app/system/timeouts"
	"github.com/dalemusser/jobhub/internal/app/team"
	"github.com/dalemusser/jobhub/internal/domain/errs"
	"github.com/dalemusser/jobhub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Handler serves the organization-scoped endpoints: team listing and
// changes, ownership transfer, removal requests and join submissions.
type Handler struct {
	Team   *team.Manager
	Engine *approvals.Engine
	Log    *zap.Logger
}

func NewHandler(mgr *team.Manager, engine *approvals.Engine, logger *zap.Logger) *Handler {
	return &Handler{Team: mgr, Engine: engine, Log: logger}
}

type memberView struct {
	ID       string     `json:"id"`
	FullName string     `json:"full_name"`
	Email    string     `json:"email"`
	JobTitle string     `json:"job_title,omitempty"`
	Owner    bool       `json:"owner"`
	JoinedAt *time.Time `json:"joined_at,omitempty"`
}

type teamResponse struct {
	Count   int64        `json:"count"`
	Members []memberView `json:"members"`
}

func toMemberView(u models.User) memberView {
	return memberView{
		ID:       u.ID.Hex(),
		FullName: u.FullName,
		Email:    u.Email,
		JobTitle: u.JobTitle,
		Owner:    u.HasRole(models.RoleOwner),
		JoinedAt: u.JoinedAt,
	}
}

// objectIDParam parses a hex id from the route. A malformed id is reported the
// same way as an unknown one.
func objectIDParam(r *http.Request, name string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, name))
	if err != nil {
		return primitive.NilObjectID, errs.ErrInvalidRequest
	}
	return id, nil
}

// ServeTeam handles GET /orgs/{orgID}/team.
func (h *Handler) ServeTeam(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.CurrentActor(r)
	orgID, err := objectIDParam(r, "orgID")
	if err != nil {
		ferrors.Write(w, r, h.Log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "list team")
	defer cancel()

	members, err := h.Team.GetTeamMembers(ctx, actor, orgID)
	if err != nil {
		ferrors.Write(w, r, h.Log, err)
		return
	}
	count, err := h.Team.GetTeamCount(ctx, actor, orgID)
	if err != nil {
		ferrors.Write(w, r, h.Log, err)
		return
	}

	resp := teamResponse{Count: count, Members: make([]memberView, 0, len(members))}
	for _, u := range members {
		resp.Members = append(resp.Members, toMemberView(u))
	}
	ferrors.JSON(w, http.StatusOK, resp)
}

// HandleAdd handles POST /orgs/{orgID}/team. The generated password is only
// delivered by notification and never echoed back.
func (h *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.CurrentActor(r)
	orgID, err := objectIDParam(r, "orgID")
	if err != nil {
		ferrors.Write(w, r, h.Log, err)
		return
	}
	var in team.AddMemberInput
	if err := ferrors.Decode(r, &in); err != nil {
		ferrors.BadRequest(w, "malformed request body")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "add member")
	defer cancel()

	res, err := h.Team.AddMember(ctx, actor, orgID, in)
	if err != nil {
		ferrors.Write(w, r, h.Log, err)
		return
	}
	ferrors.JSON(w, http.StatusCreated, map[string]string{"user_id": res.UserID.Hex()})
}

// HandleRemove handles DELETE /orgs/{orgID}/team/{userID}. With ?delete=1 the
// account is deleted instead of detached.
func (h *Handler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.CurrentActor(r)
	orgID, err := objectIDParam(r, "orgID")
	if err != nil {
		ferrors.Write(w, r, h.Log, err)
		return
	}
	userID, err := objectIDParam(r, "userID")
	if err != nil {
		ferrors.Write(w, r, h.Log, err)
		return
	}
	deleteAccount := r.URL.Query().Get("delete") == "1"

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "remove member")
	defer cancel()

	if err := h.Team.RemoveMember(ctx, actor, userID, orgID, deleteAccount); err != nil {
		ferrors.Write(w, r, h.Log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type transferInput struct {
	UserID string `json:"user_id"`
}

// HandleTransfer handles POST /orgs/{orgID}/owner.
func (h *Handler) HandleTransfer(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.CurrentActor(r)
	orgID, err := objectIDParam(r, "orgID")
	if err != nil {
		ferrors.Write(w, r, h.Log, err)
		return
	}
	var in transferInput
	if err := ferrors.Decode(r, &in); err != nil {
		ferrors.BadRequest(w, "malformed request body")
		return
	}
	newOwner, err := primitive.ObjectIDFromHex(in.UserID)
	if err != nil {
		ferrors.Write(w, r, h.Log, errs.ErrMustBeExistingMember)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "transfer ownership")
	defer cancel()

	if err := h.Team.TransferOwnership(ctx, actor, orgID, newOwner); err != nil {
		ferrors.Write(w, r, h.Log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type removalInput struct {
	Reason string `json:"reason"`
}

// HandleRemovalRequest handles POST /orgs/{orgID}/team/{userID}/removal.
func (h *Handler) HandleRemovalRequest(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.CurrentActor(r)
	orgID, err := objectIDParam(r, "orgID")
	if err != nil {
		ferrors.Write(w, r, h.Log, err)
		return
	}
	userID, err := objectIDParam(r, "userID")
	if err != nil {
		ferrors.Write(w, r, h.Log, err)
		return
	}
	var body removalInput
	if err := ferrors.Decode(r, &body); err != nil {
		ferrors.BadRequest(w, "malformed request body")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "request removal")
	defer cancel()

	req, err := h.Engine.SubmitRemoval(ctx, actor, orgID, approvals.RemovalInput{
		UserID: userID,
		Reason: body.Reason,
	})
	if err != nil {
		ferrors.Write(w, r, h.Log, err)
		return
	}
	ferrors.JSON(w, http.StatusAccepted, map[string]string{"request_id": req.ID.Hex(), "status": string(req.Status)})
}

// HandleJoin handles POST /orgs/{orgID}/join. Anonymous callers are allowed;
// a signed-in caller is recorded as the requester.
func (h *Handler) HandleJoin(w http.ResponseWriter, r *http.Request) {
	orgID, err := objectIDParam(r, "orgID")
	if err != nil {
		ferrors.Write(w, r, h.Log, err)
		return
	}
	var in approvals.JoinInput
	if err := ferrors.Decode(r, &in); err != nil {
		ferrors.BadRequest(w, "malformed request body")
		return
	}
	var requester *primitive.ObjectID
	if id, ok := auth.CurrentActor(r); ok {
		requester = &id
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "submit join")
	defer cancel()

	req, err := h.Engine.SubmitJoin(ctx, requester, orgID, in)
	if err != nil {
		ferrors.Write(w, r, h.Log, err)
		return
	}
	ferrors.JSON(w, http.StatusAccepted, map[string]string{"request_id": req.ID.Hex(), "status": string(req.Status)})
}
