package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/medsync-labs/medsync-core/internal/core/domain"
	"github.com/medsync-labs/medsync-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.SessionSource = (*SessionProvider)(nil)

// fallbackTokenLifetime is assumed when the upstream token carries no
// readable expiry. The upstream issues one-hour tokens; the margin keeps
// us from using a token that expires mid-request.
const fallbackTokenLifetime = 55 * time.Minute

// expirySafetyMargin is subtracted from a parsed expiry for the same
// reason.
const expirySafetyMargin = 2 * time.Minute

type cachedToken struct {
	token     string
	expiresAt time.Time
}

// SessionProvider authenticates against upstream tenants and caches the
// resulting bearer tokens until expiry. Safe for concurrent use.
type SessionProvider struct {
	credentials driven.CredentialStore
	api         driven.UpstreamAPI
	logger      *slog.Logger
	now         func() time.Time

	mu    sync.Mutex
	cache map[string]cachedToken
}

// SessionProviderConfig holds dependencies for SessionProvider.
type SessionProviderConfig struct {
	Credentials driven.CredentialStore
	API         driven.UpstreamAPI
	Logger      *slog.Logger
	Now         func() time.Time // test hook, defaults to time.Now
}

// NewSessionProvider creates a new session provider.
func NewSessionProvider(cfg SessionProviderConfig) *SessionProvider {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &SessionProvider{
		credentials: cfg.Credentials,
		api:         cfg.API,
		logger:      logger,
		now:         now,
		cache:       make(map[string]cachedToken),
	}
}

// Session returns an authenticated session for the tenant, reusing the
// cached token when it has not expired.
func (p *SessionProvider) Session(ctx context.Context, tenant string) (*driven.Session, error) {
	cred, err := p.credentials.Get(ctx, tenant)
	if err != nil {
		return nil, err
	}
	if !cred.Enabled {
		return nil, domain.ErrTenantDisabled
	}

	if token, ok := p.cachedFor(tenant); ok {
		return &driven.Session{Credential: cred, Token: token}, nil
	}

	token, err := p.api.Login(ctx, cred)
	if err != nil {
		p.logger.Error("upstream login failed", "tenant", tenant, "error", err)
		return nil, err
	}

	expiresAt := p.tokenExpiry(token)
	p.mu.Lock()
	p.cache[tenant] = cachedToken{token: token, expiresAt: expiresAt}
	p.mu.Unlock()

	p.logger.Info("authenticated", "tenant", tenant, "token_expires_at", expiresAt)
	return &driven.Session{Credential: cred, Token: token}, nil
}

// Invalidate drops the cached token for a tenant.
func (p *SessionProvider) Invalidate(tenant string) {
	p.mu.Lock()
	delete(p.cache, tenant)
	p.mu.Unlock()
}

func (p *SessionProvider) cachedFor(tenant string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	entry, ok := p.cache[tenant]
	if !ok {
		return "", false
	}
	if !p.now().Before(entry.expiresAt) {
		delete(p.cache, tenant)
		return "", false
	}
	return entry.token, true
}

// tokenExpiry reads the exp claim when the token is a JWT; opaque tokens
// get the fixed fallback lifetime.
func (p *SessionProvider) tokenExpiry(token string) time.Time {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err == nil {
		if exp, err := parsed.Claims.GetExpirationTime(); err == nil && exp != nil {
			return exp.Time.Add(-expirySafetyMargin)
		}
	}
	return p.now().Add(fallbackTokenLifetime)
}
