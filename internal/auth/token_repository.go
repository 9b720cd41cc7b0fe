package auth

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// RevokedTokenRepository defines the interface for the token denylist.
//
// Logout revokes a token by its jti; the middleware checks the denylist
// on every authenticated request. Rows become purgeable once the token
// they block has expired.
type RevokedTokenRepository interface {
	Revoke(ctx context.Context, jti, userID string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
	DeleteExpired(ctx context.Context) (int64, error)
}

// SQLiteRevokedTokenRepository implements RevokedTokenRepository using SQLite.
type SQLiteRevokedTokenRepository struct {
	db *sql.DB
}

// NewRevokedTokenRepository creates a new SQLite-backed denylist repository.
func NewRevokedTokenRepository(db *sql.DB) *SQLiteRevokedTokenRepository {
	return &SQLiteRevokedTokenRepository{db: db}
}

// Revoke adds a token's jti to the denylist. Revoking an already revoked
// token is a no-op.
func (r *SQLiteRevokedTokenRepository) Revoke(ctx context.Context, jti, userID string, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO revoked_tokens (jti, user_id, revoked_at, expires_at)
		 VALUES (?, ?, ?, ?)`,
		jti, nullString(userID),
		time.Now().UTC().Format(time.RFC3339),
		expiresAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("revoking token: %w", err)
	}
	return nil
}

// IsRevoked reports whether a token's jti is on the denylist.
func (r *SQLiteRevokedTokenRepository) IsRevoked(ctx context.Context, jti string) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM revoked_tokens WHERE jti = ?", jti,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking token revocation: %w", err)
	}
	return count > 0, nil
}

// DeleteExpired removes denylist rows whose tokens have expired.
// Returns the number of rows removed.
func (r *SQLiteRevokedTokenRepository) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM revoked_tokens WHERE expires_at < ?",
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return 0, fmt.Errorf("deleting expired revocations: %w", err)
	}
	n, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	return n, nil
}
