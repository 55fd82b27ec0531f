package http

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/asset-gateway/internal/api/http/handlers"
	"github.com/spec-kit/asset-gateway/internal/auth"
	"github.com/spec-kit/asset-gateway/internal/config"
	"github.com/spec-kit/asset-gateway/internal/domain"
	"github.com/spec-kit/asset-gateway/internal/observability"
	"github.com/spec-kit/asset-gateway/internal/repository"
)

// ServerOptions configures NewServer.
type ServerOptions struct {
	Config  config.DevServerConfig
	Name    string
	Version string
	Logger  *zap.Logger
	Metrics *observability.Metrics
	Checks  map[string]handlers.Checker
	Timeout time.Duration
}

// NewServer builds the reference backend: in-memory collections, a seeded admin account
// and every route of the asset-management API.
func NewServer(ctx context.Context, opts ServerOptions) (*fiber.App, error) {
	cfg := opts.Config
	logger := observability.OrNop(opts.Logger)

	users := repository.NewMemoryRepository(handlers.UserAccessor())
	if err := seedAdmin(ctx, users, cfg); err != nil {
		return nil, err
	}
	customers := repository.NewMemoryRepository(handlers.CustomerSpec().Accessor)
	assets := repository.NewMemoryRepository(handlers.AssetSpec().Accessor)

	noBulk := keySet(cfg.DisableBulk)
	shadowed := keySet(cfg.ExportDataOnly)
	options := func(r domain.Resource) handlers.ResourceOptions {
		_, bulkOff := noBulk[r.Key()]
		_, exportOff := shadowed[r.Key()]
		return handlers.ResourceOptions{NoBulkRoute: bulkOff, ExportShadowed: exportOff}
	}

	resources := []handlers.Routes{
		resourceRoutes(handlers.CustomerSpec(), customers, options),
		resourceRoutes(handlers.SiteSpec(), nil, options),
		resourceRoutes(handlers.LocationSpec(), nil, options),
		resourceRoutes(handlers.DepartmentSpec(), nil, options),
		resourceRoutes(handlers.SecurityGroupSpec(), nil, options),
		resourceRoutes(handlers.AssetSpec(), assets, options),
		resourceRoutes(handlers.EmailTemplateSpec(), nil, options),
		resourceRoutes(handlers.ImageSpec(), nil, options),
		resourceRoutes(handlers.UserSpec(), users, options),
	}

	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.TokenTTLMinute)

	app := fiber.New(fiber.Config{
		AppName:               opts.Name,
		DisableStartupMessage: true,
	})
	RegisterMiddlewares(app, logger, opts.Metrics, opts.Timeout)
	RegisterRoutes(app, RouteConfig{
		Health:         handlers.NewHealthHandler(opts.Name, opts.Version, opts.Checks),
		Auth:           handlers.NewAuthHandler(users, tokens),
		Reports:        handlers.NewReportHandler(assets, customers),
		Resources:      resources,
		AuthMiddleware: auth.NewAuthMiddleware(tokens, users),
		FlatErrors:     cfg.FlatErrors,
	})

	logger.Info("dev server ready",
		zap.Int("resources", len(resources)),
		zap.Strings("no_bulk_route", cfg.DisableBulk),
		zap.Strings("export_shadowed", cfg.ExportDataOnly),
		zap.Strings("flat_errors", cfg.FlatErrors),
	)
	return app, nil
}

// resourceRoutes builds a handler over repo, or over a fresh repository when repo is nil.
func resourceRoutes[T any](spec handlers.ResourceSpec[T], repo repository.Repository[T], options func(domain.Resource) handlers.ResourceOptions) handlers.Routes {
	if repo == nil {
		repo = repository.NewMemoryRepository(spec.Accessor)
	}
	return handlers.NewResourceHandler(spec, repo, options(spec.Resource))
}

func seedAdmin(ctx context.Context, users repository.Repository[domain.User], cfg config.DevServerConfig) error {
	hash, err := auth.HashPassword(cfg.AdminPassword, cfg.BcryptCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}
	admin := &domain.User{
		Name:         "Administrator",
		Email:        cfg.AdminEmail,
		Role:         domain.RoleAdmin,
		PasswordHash: hash,
	}
	if err := users.Create(ctx, admin); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	return nil
}

func keySet(keys []string) map[string]struct{} {
	out := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		out[strings.TrimPrefix(strings.ToLower(strings.TrimSpace(k)), "/")] = struct{}{}
	}
	return out
}
