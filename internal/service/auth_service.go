package service

import (
	"context"
	"net/http"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/asset-gateway/internal/api/dto"
	"github.com/spec-kit/asset-gateway/internal/credential"
	"github.com/spec-kit/asset-gateway/internal/events"
	"github.com/spec-kit/asset-gateway/internal/gateway"
	"github.com/spec-kit/asset-gateway/internal/observability"
	apperrors "github.com/spec-kit/asset-gateway/pkg/util"
)

// AuthService coordinates login and logout against the API and the local keyring.
type AuthService struct {
	gw         *gateway.Gateway
	keyring    *credential.Keyring
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// NewAuthService builds the service. The keyring is the one the gateway reads.
func NewAuthService(gw *gateway.Gateway, dispatcher events.Dispatcher, logger *zap.Logger) *AuthService {
	return &AuthService{
		gw:         gw,
		keyring:    gw.Keyring(),
		dispatcher: dispatcher,
		logger:     observability.OrNop(logger),
		now:        time.Now,
	}
}

// Login exchanges credentials for a token. With remember the token goes to the durable
// scope, otherwise to the session scope.
func (s *AuthService) Login(ctx context.Context, email, password string, remember bool) (*dto.LoginResponse, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, apperrors.NewBadInput("email and password required", nil)
	}

	var envelope dto.DataEnvelope[dto.LoginResponse]
	err := s.gw.Do(ctx, gateway.Request{
		Method: http.MethodPost,
		Path:   "/auth/login",
		Body:   gateway.JSONBody{Value: dto.LoginRequest{Email: email, Password: password}},
	}, &envelope)
	if err != nil {
		return nil, err
	}
	if envelope.Data.Auth.Token == "" {
		return nil, apperrors.NewIntegrityError("Login response did not include a token", http.StatusOK)
	}

	scope := credential.ScopeSession
	if remember {
		scope = credential.ScopeDurable
	}
	if err := s.keyring.Save(ctx, scope, envelope.Data.Auth.Token); err != nil {
		return nil, err
	}

	s.logger.Info("logged in", zap.String("user_id", envelope.Data.User.ID), zap.String("scope", string(scope)))
	s.publish(ctx, events.New(events.EventCredentialSaved, events.CredentialSavedPayload{Scope: string(scope)}))
	return &envelope.Data, nil
}

// Logout tells the API the token is done with, then clears both scopes. The API call is
// best effort: the local credential is cleared even when it fails.
func (s *AuthService) Logout(ctx context.Context) error {
	if _, _, ok, _ := s.keyring.Resolve(ctx); ok {
		if err := s.gw.Do(ctx, gateway.Request{Method: http.MethodPost, Path: "/auth/logout"}, nil); err != nil {
			s.logger.Debug("logout call failed", zap.Error(err))
		}
	}

	if err := s.keyring.Clear(ctx); err != nil {
		return err
	}
	s.publish(ctx, events.New(events.EventCredentialCleared, events.CredentialClearedPayload{Reason: "logout"}))
	return nil
}

// Identity describes the stored credential.
type Identity struct {
	Scope     credential.Scope
	Subject   string
	Email     string
	Role      string
	ExpiresAt time.Time
	Expired   bool
	// Opaque is set when the token is not a JWT and carries no readable claims.
	Opaque bool
}

type tokenClaims struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Whoami reads the stored token's claims without verifying its signature. Only the API
// can vouch for a token; this is for display.
func (s *AuthService) Whoami(ctx context.Context) (*Identity, error) {
	token, scope, ok, err := s.keyring.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.NewUnauthorized("Not logged in")
	}

	identity := &Identity{Scope: scope}
	claims := &tokenClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		identity.Opaque = true
		return identity, nil
	}

	identity.Subject = claims.Subject
	identity.Email = claims.Email
	identity.Role = claims.Role
	if claims.ExpiresAt != nil {
		identity.ExpiresAt = claims.ExpiresAt.Time
		identity.Expired = s.now().After(identity.ExpiresAt)
	}
	return identity, nil
}

func (s *AuthService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handler failed", zap.String("event", string(event.Type)), zap.Error(err))
	}
}
