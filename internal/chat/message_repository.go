package chat

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MessageStore defines the interface for message persistence.
type MessageStore interface {
	Create(ctx context.Context, msg *Message) error
	List(ctx context.Context, sessionID string, params ListParams) (*MessagePage, error)
}

// SQLiteMessageRepository implements MessageStore using SQLite.
type SQLiteMessageRepository struct {
	db *sql.DB
}

// NewMessageRepository creates a new SQLite-backed message repository.
func NewMessageRepository(db *sql.DB) *SQLiteMessageRepository {
	return &SQLiteMessageRepository{db: db}
}

// messageSortColumns whitelists sort_by values against the schema.
var messageSortColumns = map[string]string{
	"id":          "id",
	"content":     "content",
	"sender_type": "sender_type",
	"created_at":  "created_at",
}

const messageColumns = "id, session_id, content, sender_type, sender_id, created_at"

// Create inserts a message, assigning its ID and timestamp.
func (r *SQLiteMessageRepository) Create(ctx context.Context, msg *Message) error {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	msg.CreatedAt = time.Now().UTC().Truncate(time.Second)

	var senderID any
	if msg.SenderID != "" {
		senderID = msg.SenderID
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO messages (`+messageColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		msg.ID, msg.SessionID, msg.Content, string(msg.SenderType),
		senderID, msg.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("creating message: %w", err)
	}

	return nil
}

// List returns one page of a session's messages. The total reflects all
// of the session's messages regardless of the search filter; the page
// itself honours search, sort, and pagination.
func (r *SQLiteMessageRepository) List(ctx context.Context, sessionID string, params ListParams) (*MessagePage, error) {
	params = params.Normalize()

	var total int
	if err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM messages WHERE session_id = ?", sessionID,
	).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting messages: %w", err)
	}

	query := "SELECT " + messageColumns + " FROM messages WHERE session_id = ?"
	args := []any{sessionID}

	if params.Search != "" {
		query += " AND content LIKE ? COLLATE NOCASE"
		args = append(args, "%"+params.Search+"%")
	}

	query += " ORDER BY " + orderClause(messageSortColumns, params, "created_at")

	if params.Size > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, params.Size, params.Offset())
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing messages: %w", err)
	}
	defer rows.Close()

	items := []Message{}
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating messages: %w", err)
	}

	return &MessagePage{Total: total, Items: items}, nil
}

func scanMessage(s interface{ Scan(...any) error }) (*Message, error) {
	var msg Message
	var senderType string
	var senderID sql.NullString
	var createdAt string

	err := s.Scan(&msg.ID, &msg.SessionID, &msg.Content, &senderType, &senderID, &createdAt)
	if err != nil {
		return nil, fmt.Errorf("scanning message: %w", err)
	}

	msg.SenderType = SenderType(senderType)
	msg.SenderID = senderID.String
	msg.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // format is controlled

	return &msg, nil
}
