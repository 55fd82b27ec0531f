package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/spec-kit/asset-gateway/internal/domain"
)

func TestGenerateAndParseToken(t *testing.T) {
	tm := NewTokenManager("secret", 5)
	user := &domain.User{ID: "u1", Email: "admin@example.com", Role: domain.RoleAdmin}

	token, exp, err := tm.GenerateToken(user)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if time.Until(exp) <= 0 {
		t.Fatalf("expected expiry in the future, got %v", exp)
	}

	claims, err := tm.ParseToken(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Subject != "u1" || claims.Role != domain.RoleAdmin || claims.Email != user.Email || claims.ID == "" {
		t.Fatalf("unexpected claims %+v", claims)
	}
}

func TestParseRejectsForeignSecretAndExpired(t *testing.T) {
	user := &domain.User{ID: "u1", Role: domain.RoleViewer}
	token, _, _ := NewTokenManager("other", 5).GenerateToken(user)
	if _, err := NewTokenManager("secret", 5).ParseToken(token); err == nil {
		t.Fatalf("expected signature failure")
	}

	tm := NewTokenManager("secret", 1)
	token, _, _ = tm.GenerateToken(user)
	tm.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	if _, err := tm.ParseToken(token); err == nil {
		t.Fatalf("expected expired token to be rejected")
	}
}

func TestRevokedTokenRejected(t *testing.T) {
	tm := NewTokenManager("secret", 5)
	token, _, _ := tm.GenerateToken(&domain.User{ID: "u1", Role: domain.RoleAdmin})
	claims, err := tm.ParseToken(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	tm.Revoke(claims)
	if _, err := tm.ParseToken(token); !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("expected revoked, got %v", err)
	}

	other, _, _ := tm.GenerateToken(&domain.User{ID: "u1", Role: domain.RoleAdmin})
	if _, err := tm.ParseToken(other); err != nil {
		t.Fatalf("fresh token must stay valid: %v", err)
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("s3cret", 4)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if err := ComparePassword(hash, "s3cret"); err != nil {
		t.Fatalf("expected match: %v", err)
	}
	if err := ComparePassword(hash, "wrong"); err == nil {
		t.Fatalf("expected mismatch")
	}
	if err := ComparePassword("", ""); err == nil {
		t.Fatalf("empty hash must never match")
	}
}
