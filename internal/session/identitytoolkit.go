package session

import (
	"context"
	"errors"

	"google.golang.org/api/googleapi"
	identitytoolkit "google.golang.org/api/identitytoolkit/v3"
)

// IdentityToolkitProvider authenticates email/password accounts against
// Google Identity Toolkit, the backend of Firebase Authentication.
type IdentityToolkitProvider struct {
	svc *identitytoolkit.Service
}

func NewIdentityToolkitProvider(svc *identitytoolkit.Service) *IdentityToolkitProvider {
	return &IdentityToolkitProvider{svc: svc}
}

// SignUp implements Provider.
func (p *IdentityToolkitProvider) SignUp(ctx context.Context, email, password string) (Principal, error) {
	req := &identitytoolkit.IdentitytoolkitRelyingpartySignupNewUserRequest{
		Email:    email,
		Password: password,
	}
	resp, err := p.svc.Relyingparty.SignupNewUser(req).Context(ctx).Do()
	if err != nil {
		return Principal{}, rejection(err)
	}
	return Principal{ID: resp.LocalId, Email: resp.Email, IDToken: resp.IdToken}, nil
}

// SignIn implements Provider.
func (p *IdentityToolkitProvider) SignIn(ctx context.Context, email, password string) (Principal, error) {
	req := &identitytoolkit.IdentitytoolkitRelyingpartyVerifyPasswordRequest{
		Email:             email,
		Password:          password,
		ReturnSecureToken: true,
	}
	resp, err := p.svc.Relyingparty.VerifyPassword(req).Context(ctx).Do()
	if err != nil {
		return Principal{}, rejection(err)
	}
	return Principal{ID: resp.LocalId, Email: resp.Email, IDToken: resp.IdToken}, nil
}

// rejection surfaces the provider's error code (EMAIL_EXISTS, INVALID_PASSWORD, ...) as the detail.
func rejection(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Message != "" {
		return &AuthRejectedError{Detail: gerr.Message, Err: err}
	}
	return &AuthRejectedError{Detail: err.Error(), Err: err}
}
