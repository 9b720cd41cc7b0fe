package chat

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SessionStore defines the interface for session persistence.
type SessionStore interface {
	Create(ctx context.Context, session *Session) error
	GetByID(ctx context.Context, id string) (*Session, error)
	ListAll(ctx context.Context) ([]Session, error)
	List(ctx context.Context, params ListParams) (*SessionPage, error)
}

// SQLiteSessionRepository implements SessionStore using SQLite.
type SQLiteSessionRepository struct {
	db *sql.DB
}

// NewSessionRepository creates a new SQLite-backed session repository.
func NewSessionRepository(db *sql.DB) *SQLiteSessionRepository {
	return &SQLiteSessionRepository{db: db}
}

// sessionSortColumns whitelists sort_by values against the schema.
var sessionSortColumns = map[string]string{
	"id":               "id",
	"name":             "name",
	"censorship_level": "censorship_level",
	"created_at":       "created_at",
}

const sessionColumns = "id, name, censorship_level, created_by, created_at"

// Create inserts a new session. The ID is generated if empty.
// Duplicate names surface as ErrSessionNameExists: uniqueness is
// enforced by the storage constraint and caught after the write, so
// concurrent creates cannot race past a pre-check.
func (r *SQLiteSessionRepository) Create(ctx context.Context, session *Session) error {
	if err := validateSession(session); err != nil {
		return err
	}
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	session.CreatedAt = time.Now().UTC().Truncate(time.Second)

	var createdBy any
	if session.CreatedBy != "" {
		createdBy = session.CreatedBy
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (`+sessionColumns+`) VALUES (?, ?, ?, ?, ?)`,
		session.ID, session.Name, string(session.CensorshipLevel),
		createdBy, session.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ErrSessionNameExists
		}
		return fmt.Errorf("creating session: %w", err)
	}

	return nil
}

// GetByID retrieves a session by its unique ID.
func (r *SQLiteSessionRepository) GetByID(ctx context.Context, id string) (*Session, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+sessionColumns+" FROM sessions WHERE id = ?", id)
	return scanSession(row)
}

// ListAll returns every session, oldest first. Used by registry warm-up.
func (r *SQLiteSessionRepository) ListAll(ctx context.Context) ([]Session, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+sessionColumns+" FROM sessions ORDER BY created_at ASC")
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()
	return collectSessions(rows)
}

// List returns one page of sessions. The total reflects all sessions
// regardless of the search filter; the page itself honours search,
// sort, and pagination.
func (r *SQLiteSessionRepository) List(ctx context.Context, params ListParams) (*SessionPage, error) {
	params = params.Normalize()

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sessions").Scan(&total); err != nil {
		return nil, fmt.Errorf("counting sessions: %w", err)
	}

	query := "SELECT " + sessionColumns + " FROM sessions"
	var args []any

	if params.Search != "" {
		query += " WHERE name LIKE ? COLLATE NOCASE"
		args = append(args, "%"+params.Search+"%")
	}

	query += " ORDER BY " + orderClause(sessionSortColumns, params, "created_at")

	if params.Size > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, params.Size, params.Offset())
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()

	items, err := collectSessions(rows)
	if err != nil {
		return nil, err
	}
	return &SessionPage{Total: total, Items: items}, nil
}

// orderClause resolves a whitelisted sort column and direction.
// Unknown columns fall back to the default.
func orderClause(allowed map[string]string, params ListParams, fallback string) string {
	column, ok := allowed[params.SortBy]
	if !ok {
		column = fallback
	}
	direction := "ASC"
	if params.Descending {
		direction = "DESC"
	}
	return column + " " + direction
}

func collectSessions(rows *sql.Rows) ([]Session, error) {
	sessions := []Session{}
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sessions: %w", err)
	}
	return sessions, nil
}

func scanSession(s interface{ Scan(...any) error }) (*Session, error) {
	var session Session
	var level string
	var createdBy sql.NullString
	var createdAt string

	err := s.Scan(&session.ID, &session.Name, &level, &createdBy, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("scanning session: %w", err)
	}

	session.CensorshipLevel = CensorshipLevel(level)
	session.CreatedBy = createdBy.String
	session.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // format is controlled

	return &session, nil
}

func validateSession(session *Session) error {
	nameLen := len([]rune(session.Name))
	if nameLen < MinSessionNameLength || nameLen > MaxSessionNameLength {
		return fmt.Errorf("%w: name must be %d-%d characters",
			ErrInvalidSessionName, MinSessionNameLength, MaxSessionNameLength)
	}
	if !session.CensorshipLevel.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidLevel, session.CensorshipLevel)
	}
	return nil
}
