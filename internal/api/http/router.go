package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/asset-gateway/internal/api/http/handlers"
	"github.com/spec-kit/asset-gateway/internal/auth"
	"github.com/spec-kit/asset-gateway/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Reports        *handlers.ReportHandler
	Resources      []handlers.Routes
	AuthMiddleware *auth.AuthMiddleware
	// FlatErrors lists resource keys whose failures use the {"message": ...} shape.
	FlatErrors []string
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	v1 := app.Group("/v1")

	authGroup := v1.Group("/auth")
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/logout", cfg.AuthMiddleware.Handle, cfg.Auth.Logout)
	authGroup.Get("/me", cfg.AuthMiddleware.Handle, cfg.Auth.Me)

	v1.Get("/reports/:name", cfg.AuthMiddleware.Handle, cfg.Reports.Download)

	flat := make(map[string]struct{}, len(cfg.FlatErrors))
	for _, key := range cfg.FlatErrors {
		flat[key] = struct{}{}
	}
	write := auth.RequireRole(domain.RoleAdmin)
	for _, routes := range cfg.Resources {
		resource := routes.Resource()
		chain := []fiber.Handler{}
		if _, ok := flat[resource.Key()]; ok {
			chain = append(chain, flatErrors)
		}
		chain = append(chain, cfg.AuthMiddleware.Handle)
		routes.Register(v1.Group(resource.Path, chain...), write)
	}

	app.Use(handlers.RouteNotFound)
}
