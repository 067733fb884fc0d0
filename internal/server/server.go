package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/delordemm1/go-identity-core/internal/config"
	"github.com/delordemm1/go-identity-core/internal/httpx"
	"github.com/delordemm1/go-identity-core/internal/middleware"
	"github.com/delordemm1/go-identity-core/internal/modules/user"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

type healthOutput struct {
	Body struct {
		Status string `json:"status"`
		Env    string `json:"env"`
	}
}

// New creates the router with every module's routes mounted.
func New(cfg *config.Config, log *slog.Logger, userService user.Service) chi.Router {
	router := chi.NewMux()
	router.Use(chimw.RequestID)
	router.Use(chimw.RealIP)
	router.Use(chimw.Logger)
	router.Use(chimw.Recoverer)
	router.Use(chimw.Timeout(60 * time.Second))
	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteProblem(w, r, httpx.NewProblem(r.Context(), http.StatusNotFound, "ErrRouteNotFound", ""))
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteProblem(w, r, httpx.NewProblem(r.Context(), http.StatusMethodNotAllowed, "ErrMethodNotAllowed", ""))
	})

	apiConfig := huma.DefaultConfig("Identity API", "1.0.0")
	apiConfig.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "JWT",
		},
	}
	api := humachi.New(router, apiConfig)
	api.UseMiddleware(middleware.ClientMetadata)

	auth := middleware.BearerAuth(userService, log)
	adminOnly := middleware.RequireRole(user.RoleAdministrator)
	user.NewHandler(userService, log, auth, adminOnly).RegisterRoutes(api)

	huma.Register(api, huma.Operation{
		OperationID: "get-health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health Check",
		Description: "Responds with the server's health status.",
	}, func(ctx context.Context, input *struct{}) (*healthOutput, error) {
		resp := &healthOutput{}
		resp.Body.Status = "ok"
		resp.Body.Env = cfg.Server.Env
		return resp, nil
	})

	return router
}
