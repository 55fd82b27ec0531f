// Package credential keeps the bearer token used by the gateway in one of two scopes:
// a durable scope that survives restarts and a session scope that lives as long as the
// process. At most one scope holds a live token at a time.
package credential

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Scope names the lifetime a credential is stored under.
type Scope string

const (
	ScopeDurable Scope = "durable"
	ScopeSession Scope = "session"
)

// ErrEmptyToken is returned when saving a blank credential.
var ErrEmptyToken = errors.New("credential: token is empty")

// Store persists string values by key. Delete of a missing key is not an error.
// Implementations must be safe for concurrent use.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Keyring binds a durable and a session store under one key name.
type Keyring struct {
	durable Store
	session Store
	key     string
}

// NewKeyring builds a keyring. A nil store is replaced by an empty in-memory one.
func NewKeyring(durable, session Store, key string) *Keyring {
	if durable == nil {
		durable = NewMemoryStore()
	}
	if session == nil {
		session = NewMemoryStore()
	}
	if strings.TrimSpace(key) == "" {
		key = "authToken"
	}
	return &Keyring{durable: durable, session: session, key: key}
}

// Key returns the shared key name.
func (k *Keyring) Key() string {
	return k.key
}

// Resolve returns the live token, checking the durable scope before the session scope.
func (k *Keyring) Resolve(ctx context.Context) (string, Scope, bool, error) {
	token, ok, err := k.durable.Get(ctx, k.key)
	if err != nil {
		return "", "", false, fmt.Errorf("read durable credential: %w", err)
	}
	if ok && token != "" {
		return token, ScopeDurable, true, nil
	}

	token, ok, err = k.session.Get(ctx, k.key)
	if err != nil {
		return "", "", false, fmt.Errorf("read session credential: %w", err)
	}
	if ok && token != "" {
		return token, ScopeSession, true, nil
	}
	return "", "", false, nil
}

// Save stores token in scope and removes it from the other scope.
func (k *Keyring) Save(ctx context.Context, scope Scope, token string) error {
	if strings.TrimSpace(token) == "" {
		return ErrEmptyToken
	}

	target, other := k.durable, k.session
	switch scope {
	case ScopeDurable:
	case ScopeSession:
		target, other = k.session, k.durable
	default:
		return fmt.Errorf("credential: unknown scope %q", scope)
	}

	if err := other.Delete(ctx, k.key); err != nil {
		return fmt.Errorf("clear %s credential: %w", otherScope(scope), err)
	}
	if err := target.Set(ctx, k.key, token); err != nil {
		return fmt.Errorf("write %s credential: %w", scope, err)
	}
	return nil
}

// Clear removes the token from both scopes. Both deletes are attempted even if one fails.
func (k *Keyring) Clear(ctx context.Context) error {
	var errs []error
	if err := k.durable.Delete(ctx, k.key); err != nil {
		errs = append(errs, fmt.Errorf("clear durable credential: %w", err))
	}
	if err := k.session.Delete(ctx, k.key); err != nil {
		errs = append(errs, fmt.Errorf("clear session credential: %w", err))
	}
	return errors.Join(errs...)
}

func otherScope(scope Scope) Scope {
	if scope == ScopeDurable {
		return ScopeSession
	}
	return ScopeDurable
}
