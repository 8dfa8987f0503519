package postgres

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"github.com/medsync-labs/medsync-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.RefreshLock = (*TableLock)(nil)

// TableLock implements driven.RefreshLock on the refresh_lock table. The
// lock row carries its own expiry, so an expired lock is taken over
// rather than blocking forever after a crash. Used as the fallback when
// Redis is not configured.
type TableLock struct {
	db      *DB
	ownerID string
}

// NewTableLock creates a new table-backed refresh lock.
func NewTableLock(db *DB) *TableLock {
	return &TableLock{db: db, ownerID: generateOwnerID()}
}

// generateOwnerID creates a unique identifier for this lock holder.
// Format: hostname:pid:random
func generateOwnerID() string {
	hostname, _ := os.Hostname()
	randomBytes := make([]byte, 8)
	_, _ = rand.Read(randomBytes)
	return fmt.Sprintf("%s:%d:%s", hostname, os.Getpid(), hex.EncodeToString(randomBytes))
}

// Acquire attempts to take a named lock with the given TTL. An existing
// row only blocks acquisition while its expiry is in the future.
func (l *TableLock) Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	query := `
		INSERT INTO refresh_lock (lock_name, owner_id, acquired_at, expires_at)
		VALUES ($1, $2, now(), now() + $3::interval)
		ON CONFLICT (lock_name) DO UPDATE SET
			owner_id = EXCLUDED.owner_id,
			acquired_at = EXCLUDED.acquired_at,
			expires_at = EXCLUDED.expires_at
		WHERE refresh_lock.expires_at < now()
		RETURNING lock_name
	`

	var lockName string
	err := l.db.QueryRowContext(ctx, query, name, l.ownerID, ttl.String()).Scan(&lockName)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("acquire lock %s: %w", name, err)
	}
	return true, nil
}

// Release deletes the lock row if held by this instance. Safe to call
// when not held.
func (l *TableLock) Release(ctx context.Context, name string) error {
	_, err := l.db.ExecContext(ctx,
		`DELETE FROM refresh_lock WHERE lock_name = $1 AND owner_id = $2`,
		name, l.ownerID,
	)
	if err != nil {
		return fmt.Errorf("release lock %s: %w", name, err)
	}
	return nil
}

// IsLocked reports whether a non-expired lock row exists.
func (l *TableLock) IsLocked(ctx context.Context, name string) (bool, error) {
	var locked bool
	err := l.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM refresh_lock WHERE lock_name = $1 AND expires_at >= now())`,
		name,
	).Scan(&locked)
	if err != nil {
		return false, fmt.Errorf("check lock %s: %w", name, err)
	}
	return locked, nil
}

// Ping checks if the database backend is healthy.
func (l *TableLock) Ping(ctx context.Context) error {
	return l.db.Ping(ctx)
}

// OwnerID returns the unique identifier for this lock instance.
func (l *TableLock) OwnerID() string {
	return l.ownerID
}
