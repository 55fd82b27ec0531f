package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/asset-gateway/internal/api/dto"
	"github.com/spec-kit/asset-gateway/internal/auth"
	"github.com/spec-kit/asset-gateway/internal/domain"
	"github.com/spec-kit/asset-gateway/internal/repository"
	apperrors "github.com/spec-kit/asset-gateway/pkg/util"
)

// AuthHandler exposes login, logout and the current user.
type AuthHandler struct {
	users  repository.Repository[domain.User]
	tokens *auth.TokenManager
}

// NewAuthHandler constructs handler.
func NewAuthHandler(users repository.Repository[domain.User], tokens *auth.TokenManager) *AuthHandler {
	return &AuthHandler{users: users, tokens: tokens}
}

// Login handles POST /auth/login. Bad credentials answer 400, not 401, so clients do not
// mistake them for an expired session.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	email := strings.TrimSpace(req.Email)
	if email == "" || req.Password == "" {
		return apperrors.NewValidationError("email and password required", nil)
	}

	user, err := h.users.FindOne(c.UserContext(), func(u *domain.User) bool {
		return strings.EqualFold(u.Email, email)
	})
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return apperrors.MapError(err)
	}
	if user == nil || auth.ComparePassword(user.PasswordHash, req.Password) != nil {
		return apperrors.NewDomainError("INVALID_CREDENTIALS", "Invalid email or password", http.StatusBadRequest, nil)
	}

	token, exp, err := h.tokens.GenerateToken(user)
	if err != nil {
		return apperrors.NewInternalError(err)
	}

	return c.JSON(dto.DataEnvelope[dto.LoginResponse]{Data: dto.LoginResponse{
		User: userSummary(user),
		Auth: dto.AuthResponse{Token: token, ExpiresAt: exp},
	}})
}

// Logout handles POST /auth/logout by revoking the presented token.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("Unauthorized")
	}
	h.tokens.Revoke(principal.Claims)
	return c.JSON(fiber.Map{"message": "Logged out successfully"})
}

// Me handles GET /auth/me.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("Unauthorized")
	}
	return c.JSON(dto.DataEnvelope[dto.UserSummary]{Data: userSummary(principal.User)})
}

func userSummary(user *domain.User) dto.UserSummary {
	return dto.UserSummary{
		ID:    user.ID,
		Name:  user.Name,
		Email: user.Email,
		Role:  string(user.Role),
	}
}
