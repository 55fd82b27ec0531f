package auth

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/asset-gateway/internal/domain"
	"github.com/spec-kit/asset-gateway/internal/repository"
	apperrors "github.com/spec-kit/asset-gateway/pkg/util"
)

func newGuardedApp(t *testing.T) (*fiber.App, *TokenManager, map[domain.Role]*domain.User) {
	t.Helper()
	users := repository.NewMemoryRepository(repository.Accessor[domain.User]{
		ID:     func(u *domain.User) *string { return &u.ID },
		Stamps: func(u *domain.User) *domain.Timestamps { return &u.Timestamps },
	})
	byRole := map[domain.Role]*domain.User{}
	for _, role := range []domain.Role{domain.RoleAdmin, domain.RoleViewer} {
		u := &domain.User{Name: string(role), Email: string(role) + "@example.com", Role: role}
		if err := users.Create(context.Background(), u); err != nil {
			t.Fatalf("seed: %v", err)
		}
		byRole[role] = u
	}

	tokens := NewTokenManager("secret", 5)
	mw := NewAuthMiddleware(tokens, users)
	app := fiber.New(fiber.Config{ErrorHandler: func(c *fiber.Ctx, err error) error {
		return c.Status(apperrors.StatusOf(err)).SendString(apperrors.ToDomainError(err).Message)
	}})
	app.Get("/read", mw.Handle, RequireRole(), func(c *fiber.Ctx) error { return c.SendString("ok") })
	app.Post("/write", mw.Handle, RequireRole(domain.RoleAdmin), func(c *fiber.Ctx) error { return c.SendString("ok") })
	return app, tokens, byRole
}

func send(t *testing.T, app *fiber.App, method, path, authHeader string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	res, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer res.Body.Close()
	body, _ := io.ReadAll(res.Body)
	return res.StatusCode, string(body)
}

func TestMiddlewareRejectsMissingAndMalformedHeaders(t *testing.T) {
	app, _, _ := newGuardedApp(t)

	cases := map[string]string{
		"missing":    "",
		"not bearer": "Basic abc",
		"bad token":  "Bearer nope",
	}
	for name, header := range cases {
		status, _ := send(t, app, http.MethodGet, "/read", header)
		if status != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", name, status)
		}
	}
}

func TestRequireRole(t *testing.T) {
	app, tokens, users := newGuardedApp(t)
	viewerToken, _, _ := tokens.GenerateToken(users[domain.RoleViewer])
	adminToken, _, _ := tokens.GenerateToken(users[domain.RoleAdmin])

	if status, _ := send(t, app, http.MethodGet, "/read", "Bearer "+viewerToken); status != http.StatusOK {
		t.Fatalf("viewer read: expected 200, got %d", status)
	}
	status, body := send(t, app, http.MethodPost, "/write", "Bearer "+viewerToken)
	if status != http.StatusForbidden || body != "Insufficient role" {
		t.Fatalf("viewer write: expected 403, got %d %q", status, body)
	}
	if status, _ := send(t, app, http.MethodPost, "/write", "bearer "+adminToken); status != http.StatusOK {
		t.Fatalf("admin write: expected 200, got %d", status)
	}
}

func TestMiddlewareRejectsDeletedUser(t *testing.T) {
	app, tokens, _ := newGuardedApp(t)
	ghost, _, _ := tokens.GenerateToken(&domain.User{ID: "ghost", Role: domain.RoleAdmin})

	status, body := send(t, app, http.MethodGet, "/read", "Bearer "+ghost)
	if status != http.StatusUnauthorized || body != "Unauthorized" {
		t.Fatalf("expected 401 for unknown subject, got %d %q", status, body)
	}
}
