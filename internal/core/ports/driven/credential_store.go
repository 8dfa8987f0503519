package driven

import (
	"context"

	"github.com/medsync-labs/medsync-core/internal/core/domain"
)

// CredentialStore persists upstream tenant credentials. Secrets are
// encrypted at rest by the implementation.
type CredentialStore interface {
	// Get returns the credential for a tenant, or domain.ErrNoCredentials.
	Get(ctx context.Context, tenant string) (*domain.Credential, error)

	// Save creates or replaces the credential for a tenant.
	Save(ctx context.Context, cred *domain.Credential) error

	// Delete removes a tenant's credential. Missing is not an error.
	Delete(ctx context.Context, tenant string) error

	// ListEnabled returns the tenants with enabled credentials.
	ListEnabled(ctx context.Context) ([]string, error)
}
