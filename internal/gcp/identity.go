package gcp

import (
	"context"
	"fmt"

	identitytoolkit "google.golang.org/api/identitytoolkit/v3"
	"google.golang.org/api/option"
)

// NewIdentityToolkitService creates an Identity Toolkit client authenticated with
// the project's web API key, the same key the mobile client uses for email/password auth.
func NewIdentityToolkitService(ctx context.Context, apiKey string) (*identitytoolkit.Service, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("apiKey must be provided to create an identity toolkit client")
	}
	svc, err := identitytoolkit.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Identity Toolkit client: %w", err)
	}
	return svc, nil
}
