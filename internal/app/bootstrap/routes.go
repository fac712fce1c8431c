// internal/app/bootstrap/routes.go
package bootstrap

import (
	"errors"
	"net/http"

	activityfeature "github.com/dalemusser/jobhub/internal/app/features/activity"
	healthfeature "github.com/dalemusser/jobhub/internal/app/features/health"
	loginfeature "github.com/dalemusser/jobhub/internal/app/features/login"
	requestsfeature "github.com/dalemusser/jobhub/internal/app/features/requests"
	teamsfeature "github.com/dalemusser/jobhub/internal/app/features/teams"
	"github.com/dalemusser/jobhub/internal/app/system/auth"
	"github.com/dalemusser/jobhub/internal/app/system/ratelimit"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// any Startup hooks have completed. The services Startup built are read from
// deps.Services.
//
// Every route runs behind auth.LoadActor, which attaches the bearer token's
// account when one is present. Feature routers decide which of their routes
// require a signed-in actor.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	svc := deps.Services
	if svc == nil || svc.Engine == nil {
		return nil, errors.New("build handler: services not started")
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	if len(appCfg.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   appCfg.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}

	r.Use(auth.LoadActor(svc.Tokens, logger))

	// Anonymous submissions are limited per client IP.
	submitLimit := ratelimit.PerIP(svc.SubmitLimiter)

	// Health check endpoint for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(svc.Pinger, deps.Backend, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	// Password sign-in; throttled inside the handler per IP and per account
	loginHandler := loginfeature.NewHandler(svc.Accounts, svc.Tokens, svc.LoginLimiter, logger)
	r.Mount("/login", loginfeature.Routes(loginHandler))

	// Signup and the review queue
	requestsHandler := requestsfeature.NewHandler(svc.Engine, logger)
	r.Mount("/signup", requestsfeature.SignupRoutes(requestsHandler, submitLimit))
	r.Mount("/requests", requestsfeature.Routes(requestsHandler))

	// Organization teams, ownership and join requests
	teamsHandler := teamsfeature.NewHandler(svc.Team, svc.Engine, logger)
	r.Mount("/orgs", teamsfeature.Routes(teamsHandler, submitLimit))

	// Operator activity feed
	activityHandler := activityfeature.NewHandler(svc.Activity, svc.Policy, logger)
	r.Mount("/activity", activityfeature.Routes(activityHandler))

	return r, nil
}
