// internal/app/features/activity/routes.go
package activity

import (
	"github.com/dalemusser/jobhub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes returns the activity feed router, mounted under /activity.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireSignedIn)
		pr.Get("/", h.ServeFeed)
	})
	return r
}
