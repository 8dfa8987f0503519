package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/medsync-labs/medsync-core/internal/core/domain"
	"github.com/medsync-labs/medsync-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.RefreshStatusStore = (*StatusStore)(nil)

// StatusStore implements driven.RefreshStatusStore using PostgreSQL. A
// single row with id 1 holds the whole record.
type StatusStore struct {
	db *DB
}

// NewStatusStore creates a new StatusStore
func NewStatusStore(db *DB) *StatusStore {
	return &StatusStore{db: db}
}

// Load returns the stored snapshot, or a zero snapshot when none exists
func (s *StatusStore) Load(ctx context.Context) (*domain.RefreshStatusSnapshot, error) {
	query := `
		SELECT is_running, run_started_at, progress, message, last_successful_at, branches, reports
		FROM refresh_status
		WHERE id = 1
	`

	var snap domain.RefreshStatusSnapshot
	var runStartedAt, lastSuccessfulAt sql.NullTime
	var branchesJSON, reportsJSON []byte

	err := s.db.QueryRowContext(ctx, query).Scan(
		&snap.IsRunning,
		&runStartedAt,
		&snap.Progress,
		&snap.Message,
		&lastSuccessfulAt,
		&branchesJSON,
		&reportsJSON,
	)
	if err == sql.ErrNoRows {
		return &domain.RefreshStatusSnapshot{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load refresh status: %w", err)
	}

	snap.RunStartedAt = TimePtr(runStartedAt)
	snap.LastSuccessfulAt = TimePtr(lastSuccessfulAt)

	if len(branchesJSON) > 0 {
		if err := json.Unmarshal(branchesJSON, &snap.Branches); err != nil {
			return nil, fmt.Errorf("decode branch outcomes: %w", err)
		}
	}
	if len(reportsJSON) > 0 {
		if err := json.Unmarshal(reportsJSON, &snap.Reports); err != nil {
			return nil, fmt.Errorf("decode report statuses: %w", err)
		}
	}

	return &snap, nil
}

// Save replaces the stored snapshot
func (s *StatusStore) Save(ctx context.Context, snap *domain.RefreshStatusSnapshot) error {
	branchesJSON, err := json.Marshal(snap.Branches)
	if err != nil {
		return fmt.Errorf("encode branch outcomes: %w", err)
	}
	reportsJSON, err := json.Marshal(snap.Reports)
	if err != nil {
		return fmt.Errorf("encode report statuses: %w", err)
	}

	query := `
		INSERT INTO refresh_status (id, is_running, run_started_at, progress, message,
			last_successful_at, branches, reports, updated_at)
		VALUES (1, $1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			is_running = EXCLUDED.is_running,
			run_started_at = EXCLUDED.run_started_at,
			progress = EXCLUDED.progress,
			message = EXCLUDED.message,
			last_successful_at = EXCLUDED.last_successful_at,
			branches = EXCLUDED.branches,
			reports = EXCLUDED.reports,
			updated_at = EXCLUDED.updated_at
	`

	_, err = s.db.ExecContext(ctx, query,
		snap.IsRunning,
		NullTime(snap.RunStartedAt),
		snap.Progress,
		snap.Message,
		NullTime(snap.LastSuccessfulAt),
		branchesJSON,
		reportsJSON,
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("save refresh status: %w", err)
	}
	return nil
}
