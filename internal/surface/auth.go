package surface

import (
	"context"
	"errors"

	"github.com/Lllllllleong/prescriptionreader/internal/session"
)

// RegisterScreen backs the email/password/confirm form.
type RegisterScreen struct {
	gate  *session.Gate
	nav   Navigator
	toast Notifier
}

func NewRegisterScreen(gate *session.Gate, nav Navigator, toast Notifier) *RegisterScreen {
	return &RegisterScreen{gate: gate, nav: nav, toast: toast}
}

// Submit registers the account and routes to sign-in on success.
func (s *RegisterScreen) Submit(ctx context.Context, email, password, confirm string) error {
	if _, err := s.gate.Register(ctx, email, password, confirm); err != nil {
		s.toast.Toast(authMessage(err))
		return err
	}
	s.toast.Toast("Registration Success!")
	s.nav.Navigate(RouteSignIn)
	return nil
}

// SignInScreen backs the email/password form.
type SignInScreen struct {
	gate  *session.Gate
	nav   Navigator
	toast Notifier
}

func NewSignInScreen(gate *session.Gate, nav Navigator, toast Notifier) *SignInScreen {
	return &SignInScreen{gate: gate, nav: nav, toast: toast}
}

// Submit signs in and admits the user to the scan screen on success.
func (s *SignInScreen) Submit(ctx context.Context, email, password string) error {
	if _, err := s.gate.SignIn(ctx, email, password); err != nil {
		s.toast.Toast(authMessage(err))
		return err
	}
	s.nav.Navigate(RouteScan)
	return nil
}

func authMessage(err error) string {
	switch {
	case errors.Is(err, session.ErrEmptyEmail):
		return "Enter Email Address"
	case errors.Is(err, session.ErrEmptyPassword):
		return "Enter Password"
	case errors.Is(err, session.ErrPasswordMismatch):
		return "The password doesn't match"
	default:
		return "Authentication failed."
	}
}
