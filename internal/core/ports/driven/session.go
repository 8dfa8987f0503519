package driven

import (
	"context"

	"github.com/medsync-labs/medsync-core/internal/core/domain"
)

// Session is an authenticated binding to one tenant: the credential (for
// the base URL) plus a valid bearer token.
type Session struct {
	Credential *domain.Credential
	Token      string
}

// SessionSource hands out authenticated sessions, caching tokens until
// expiry and re-authenticating transparently.
type SessionSource interface {
	// Session returns a session with a valid token for the tenant.
	// Returns domain.ErrNoCredentials, domain.ErrTenantDisabled or
	// domain.ErrAuthFailed.
	Session(ctx context.Context, tenant string) (*Session, error)

	// Invalidate drops any cached token for the tenant, forcing the next
	// Session call to re-authenticate.
	Invalidate(tenant string)
}
