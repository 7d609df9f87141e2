package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/partyevents/partyevents/internal/preferences"
)

// PreferenceRepository stores user preferences as key/value rows. It
// satisfies preferences.KeyValueStore for a single owner.
type PreferenceRepository struct {
	db    *sql.DB
	owner string
}

// NewPreferenceRepository creates a repository scoped to owner.
func NewPreferenceRepository(db *sql.DB, owner string) *PreferenceRepository {
	return &PreferenceRepository{db: db, owner: owner}
}

// Get returns the stored value or preferences.ErrNotFound.
func (r *PreferenceRepository) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := r.db.QueryRowContext(ctx,
		`SELECT value FROM preferences WHERE owner = $1 AND key = $2`,
		r.owner, key,
	).Scan(&value)

	if err == sql.ErrNoRows {
		return nil, preferences.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get preference %s: %w", key, err)
	}

	return value, nil
}

// Put inserts or replaces the value stored under key.
func (r *PreferenceRepository) Put(ctx context.Context, key string, value []byte) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO preferences (owner, key, value, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (owner, key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
	`, r.owner, key, value)
	if err != nil {
		return fmt.Errorf("failed to put preference %s: %w", key, err)
	}
	return nil
}

// Delete removes the value stored under key. Missing keys are not an error.
func (r *PreferenceRepository) Delete(ctx context.Context, key string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM preferences WHERE owner = $1 AND key = $2`,
		r.owner, key,
	)
	if err != nil {
		return fmt.Errorf("failed to delete preference %s: %w", key, err)
	}
	return nil
}
