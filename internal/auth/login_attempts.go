package auth

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// LoginAttemptRepository records login outcomes and answers lockout queries.
type LoginAttemptRepository interface {
	Record(ctx context.Context, email, ip string, success bool) error
	CountRecentFailures(ctx context.Context, email string, window time.Duration) (int, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// SQLiteLoginAttemptRepository implements LoginAttemptRepository using SQLite.
type SQLiteLoginAttemptRepository struct {
	db *sql.DB
}

// NewLoginAttemptRepository creates a new SQLite-backed attempt repository.
func NewLoginAttemptRepository(db *sql.DB) *SQLiteLoginAttemptRepository {
	return &SQLiteLoginAttemptRepository{db: db}
}

// Record stores a login attempt outcome for an email address.
func (r *SQLiteLoginAttemptRepository) Record(ctx context.Context, email, ip string, success bool) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO login_attempts (email, ip, success, created_at) VALUES (?, ?, ?, ?)`,
		email, ip, boolToInt(success),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("recording login attempt: %w", err)
	}
	return nil
}

// CountRecentFailures returns the number of failed attempts for an email
// within the given window.
func (r *SQLiteLoginAttemptRepository) CountRecentFailures(ctx context.Context, email string, window time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-window).Format(time.RFC3339)

	var count int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM login_attempts WHERE email = ? AND success = 0 AND created_at >= ?",
		email, cutoff,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting login failures: %w", err)
	}
	return count, nil
}

// DeleteOlderThan removes attempts recorded before the cutoff.
// Returns the number of rows removed.
func (r *SQLiteLoginAttemptRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM login_attempts WHERE created_at < ?",
		cutoff.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return 0, fmt.Errorf("deleting old login attempts: %w", err)
	}
	n, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	return n, nil
}
