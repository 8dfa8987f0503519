package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/medsync-labs/medsync-core/internal/core/domain"
	"github.com/medsync-labs/medsync-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.CredentialStore = (*CredentialStore)(nil)

// CredentialStore implements driven.CredentialStore using PostgreSQL.
// Secrets are encrypted with AES-256-GCM before they touch the database.
type CredentialStore struct {
	db        *DB
	encryptor *SecretEncryptor
}

// NewCredentialStore creates a new CredentialStore
func NewCredentialStore(db *DB, encryptor *SecretEncryptor) *CredentialStore {
	return &CredentialStore{db: db, encryptor: encryptor}
}

// Get retrieves the credential for a tenant
func (s *CredentialStore) Get(ctx context.Context, tenant string) (*domain.Credential, error) {
	query := `
		SELECT tenant, username, secret_enc, base_url, enabled, updated_at
		FROM tenant_credentials
		WHERE tenant = $1
	`

	var cred domain.Credential
	var secretBlob []byte

	err := s.db.QueryRowContext(ctx, query, tenant).Scan(
		&cred.Tenant,
		&cred.Username,
		&secretBlob,
		&cred.BaseURL,
		&cred.Enabled,
		&cred.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNoCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("get credential: %w", err)
	}

	secret, err := s.encryptor.DecryptString(secretBlob)
	if err != nil {
		return nil, fmt.Errorf("decrypt secret for tenant %s: %w", tenant, err)
	}
	cred.Secret = secret

	return &cred, nil
}

// Save creates or replaces the credential for a tenant
func (s *CredentialStore) Save(ctx context.Context, cred *domain.Credential) error {
	secretBlob, err := s.encryptor.EncryptString(cred.Secret)
	if err != nil {
		return fmt.Errorf("encrypt secret: %w", err)
	}

	query := `
		INSERT INTO tenant_credentials (tenant, username, secret_enc, base_url, enabled, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (tenant) DO UPDATE SET
			username = EXCLUDED.username,
			secret_enc = EXCLUDED.secret_enc,
			base_url = EXCLUDED.base_url,
			enabled = EXCLUDED.enabled,
			updated_at = EXCLUDED.updated_at
	`

	_, err = s.db.ExecContext(ctx, query,
		cred.Tenant,
		cred.Username,
		secretBlob,
		cred.BaseURL,
		cred.Enabled,
		time.Now(),
	)
	return err
}

// Delete removes a tenant's credential
func (s *CredentialStore) Delete(ctx context.Context, tenant string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM tenant_credentials WHERE tenant = $1`, tenant)
	return err
}

// ListEnabled returns the tenants with enabled credentials
func (s *CredentialStore) ListEnabled(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT tenant FROM tenant_credentials WHERE enabled ORDER BY tenant`)
	if err != nil {
		return nil, fmt.Errorf("list enabled tenants: %w", err)
	}
	defer rows.Close()

	var tenants []string
	for rows.Next() {
		var tenant string
		if err := rows.Scan(&tenant); err != nil {
			return nil, err
		}
		tenants = append(tenants, tenant)
	}
	return tenants, rows.Err()
}
