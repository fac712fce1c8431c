// internal/app/features/requests/routes.go
package requests

import (
	"net/http"

	"github.com/dalemusser/jobhub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the review queue.
// Typically: r.Mount("/requests", requests.Routes(handler))
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireSignedIn)

		pr.Get("/", h.ServeList)
		pr.Get("/{id}", h.ServeRequest)
		pr.Post("/{id}/approve", h.HandleApprove)
		pr.Post("/{id}/decline", h.HandleDecline)
		pr.Post("/{id}/info", h.HandleInfo)
		pr.Post("/{id}/respond", h.HandleRespond)
	})

	return r
}

// SignupRoutes serves the anonymous employer signup form.
// Typically: r.Mount("/signup", requests.SignupRoutes(handler, limit))
func SignupRoutes(h *Handler, submit ...func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.With(submit...).Post("/", h.HandleSignup)
	return r
}
