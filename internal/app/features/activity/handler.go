package activity

import (
	"net/http"

	ferrors "github.com/dalemusser/jobhub/internal/app/features/errors"
	"github.com/dalemusser/jobhub/internal/app/policy/teampolicy"
	"github.com/dalemusser/jobhub/internal/app/system/auditlog"
	"github.com/dalemusser/jobhub/internal/app/system/auth"
	"github.com/dalemusser/jobhub/internal/app/system/paging"
	"github.com/dalemusser/jobhub/internal/app/system/timeouts"
	"github.com/dalemusser/jobhub/internal/domain/models"
	"go.uber.org/zap"
)

// DefaultCount is how many entries the feed returns without ?n=.
const DefaultCount = 20

// Handler serves the operator activity feed.
type Handler struct {
	Feed   *auditlog.Logger
	Policy *teampolicy.Policy
	Log    *zap.Logger
}

func NewHandler(feed *auditlog.Logger, policy *teampolicy.Policy, logger *zap.Logger) *Handler {
	return &Handler{Feed: feed, Policy: policy, Log: logger}
}

type feedResponse struct {
	Entries []models.ActivityEntry `json:"entries"`
}

// ServeFeed handles GET /activity?n=. Admins only.
func (h *Handler) ServeFeed(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.CurrentActor(r)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "activity feed")
	defer cancel()

	if err := teampolicy.Require(h.Policy.IsAdmin(ctx, actor)); err != nil {
		ferrors.Write(w, r, h.Log, err)
		return
	}

	entries, err := h.Feed.Recent(ctx, paging.ParseLimit(r, "n", DefaultCount))
	if err != nil {
		ferrors.Write(w, r, h.Log, err)
		return
	}
	if entries == nil {
		entries = []models.ActivityEntry{}
	}
	ferrors.JSON(w, http.StatusOK, feedResponse{Entries: entries})
}
