// internal/app/features/teams/routes.go
package teams

import (
	"net/http"

	"github.com/dalemusser/jobhub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the organization endpoints. submit wraps the anonymous join
// endpoint (rate limiting).
// Typically: r.Mount("/orgs", teams.Routes(handler, limit))
func Routes(h *Handler, submit ...func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	// Join requests may come from visitors without an account.
	r.With(submit...).Post("/{orgID}/join", h.HandleJoin)

	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireSignedIn)

		pr.Get("/{orgID}/team", h.ServeTeam)
		pr.Post("/{orgID}/team", h.HandleAdd)
		pr.Delete("/{orgID}/team/{userID}", h.HandleRemove)
		pr.Post("/{orgID}/team/{userID}/removal", h.HandleRemovalRequest)
		pr.Post("/{orgID}/owner", h.HandleTransfer)
	})

	return r
}
