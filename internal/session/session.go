// Package session gates the scan and history surfaces behind an authenticated
// principal.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

var (
	ErrEmptyEmail       = errors.New("enter email address")
	ErrEmptyPassword    = errors.New("enter password")
	ErrPasswordMismatch = errors.New("the password doesn't match")
	ErrNotAuthenticated = errors.New("not authenticated")
)

// AuthRejectedError is returned when the identity provider refuses a request.
type AuthRejectedError struct {
	Detail string
	Err    error
}

func (e *AuthRejectedError) Error() string {
	return "authentication rejected: " + e.Detail
}

func (e *AuthRejectedError) Unwrap() error { return e.Err }

// Principal is an authenticated user.
type Principal struct {
	ID      string
	Email   string
	IDToken string
}

// Provider is the external identity provider.
type Provider interface {
	SignUp(ctx context.Context, email, password string) (Principal, error)
	SignIn(ctx context.Context, email, password string) (Principal, error)
}

// State is whether the session holds an authenticated principal.
type State int

const (
	Anonymous State = iota
	Authenticated
)

func (s State) String() string {
	if s == Authenticated {
		return "Authenticated"
	}
	return "Anonymous"
}

// Gate holds the session state.
type Gate struct {
	provider Provider
	logger   *slog.Logger

	mu        sync.RWMutex
	principal *Principal
}

// NewGate returns an Anonymous gate that authenticates through provider.
func NewGate(provider Provider) *Gate {
	return &Gate{provider: provider, logger: slog.With("component", "session")}
}

// Register validates the form, creates the account and authenticates the session.
// Inputs are trimmed; validation failures never reach the provider.
func (g *Gate) Register(ctx context.Context, email, password, confirm string) (Principal, error) {
	email, password, confirm = strings.TrimSpace(email), strings.TrimSpace(password), strings.TrimSpace(confirm)
	if err := validate(email, password); err != nil {
		return Principal{}, err
	}
	if password != confirm {
		return Principal{}, ErrPasswordMismatch
	}

	p, err := g.provider.SignUp(ctx, email, password)
	if err != nil {
		g.logger.Warn("createUserWithEmail:failure", "error", err)
		return Principal{}, asRejected(err)
	}
	g.logger.Info("createUserWithEmail:success", "principalId", p.ID)
	g.set(p)
	return p, nil
}

// SignIn validates the form and authenticates the session.
func (g *Gate) SignIn(ctx context.Context, email, password string) (Principal, error) {
	email, password = strings.TrimSpace(email), strings.TrimSpace(password)
	if err := validate(email, password); err != nil {
		return Principal{}, err
	}

	p, err := g.provider.SignIn(ctx, email, password)
	if err != nil {
		g.logger.Warn("signInWithEmail:failure", "error", err)
		return Principal{}, asRejected(err)
	}
	g.logger.Info("signInWithEmail:success", "principalId", p.ID)
	g.set(p)
	return p, nil
}

// SignOut returns the session to Anonymous.
func (g *Gate) SignOut() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.principal = nil
}

// Principal returns the authenticated principal or ErrNotAuthenticated.
func (g *Gate) Principal() (Principal, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.principal == nil {
		return Principal{}, ErrNotAuthenticated
	}
	return *g.principal, nil
}

// State reports Authenticated once Register or SignIn has succeeded.
func (g *Gate) State() State {
	if _, err := g.Principal(); err != nil {
		return Anonymous
	}
	return Authenticated
}

func (g *Gate) set(p Principal) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.principal = &p
}

func validate(email, password string) error {
	if email == "" {
		return ErrEmptyEmail
	}
	if password == "" {
		return ErrEmptyPassword
	}
	return nil
}

func asRejected(err error) error {
	var rejected *AuthRejectedError
	if errors.As(err, &rejected) {
		return err
	}
	return &AuthRejectedError{Detail: fmt.Sprint(err), Err: err}
}
