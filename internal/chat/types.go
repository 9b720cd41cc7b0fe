package chat

import (
	"errors"
	"time"
)

// CensorshipLevel controls how profanity in message content is handled.
type CensorshipLevel string

const (
	// LevelLow passes content through unfiltered.
	LevelLow CensorshipLevel = "low"

	// LevelMedium masks profane spans in place; never rejects.
	LevelMedium CensorshipLevel = "medium"

	// LevelHigh rejects any message containing profanity.
	LevelHigh CensorshipLevel = "high"
)

// IsValid reports whether the level is one of low, medium, high.
func (l CensorshipLevel) IsValid() bool {
	switch l {
	case LevelLow, LevelMedium, LevelHigh:
		return true
	}
	return false
}

// SenderType identifies who produced a message.
type SenderType string

const (
	SenderUser   SenderType = "user"
	SenderSystem SenderType = "system"
)

// IsValid reports whether the sender type is known.
func (s SenderType) IsValid() bool {
	return s == SenderUser || s == SenderSystem
}

// Session name and message content limits, enforced at admission.
const (
	MinSessionNameLength = 1
	MaxSessionNameLength = 100
	MaxContentLength     = 300
)

// Session is a named chat room with an associated censorship level.
// Immutable after creation.
type Session struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	CensorshipLevel CensorshipLevel `json:"censorship_level"`
	CreatedBy       string          `json:"created_by,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

// Message is one admitted chat message. Immutable once persisted.
type Message struct {
	ID         string     `json:"id"`
	SessionID  string     `json:"session_id"`
	Content    string     `json:"content"`
	SenderType SenderType `json:"sender_type"`
	SenderID   string     `json:"sender_id,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// Connection is a live transport channel attached to exactly one
// session. Send must not block indefinitely: implementations return an
// error when the peer cannot accept the payload, which the broadcast
// engine treats as an implicit disconnect.
type Connection interface {
	Send(payload []byte) error
}

// Sentinel errors for the chat core.
var (
	ErrSessionNotFound    = errors.New("session not found")
	ErrSessionNameExists  = errors.New("session name already exists")
	ErrOffensiveContent   = errors.New("offensive content rejected")
	ErrContentTooLong     = errors.New("message content too long")
	ErrEmptyContent       = errors.New("message content is empty")
	ErrInvalidSessionName = errors.New("invalid session name")
	ErrInvalidLevel       = errors.New("invalid censorship level")
	ErrInvalidSender      = errors.New("invalid sender type")
)

// ListParams controls paginated listings of sessions and messages.
type ListParams struct {
	Page       int    // 1-based; values < 1 clamp to 1
	Size       int    // 0 = unbounded, otherwise clamped to maxPageSize
	Search     string // optional case-insensitive substring filter
	SortBy     string // column name, validated against a whitelist
	Descending bool
}

const maxPageSize = 100

// Normalize clamps page and size into their valid ranges.
func (p ListParams) Normalize() ListParams {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Size < 0 {
		p.Size = 0
	}
	if p.Size > maxPageSize {
		p.Size = maxPageSize
	}
	return p
}

// Offset returns the row offset for the normalized page/size pair.
func (p ListParams) Offset() int {
	if p.Size == 0 {
		return 0
	}
	return (p.Page - 1) * p.Size
}

// SessionPage is one page of a session listing.
type SessionPage struct {
	Total int       `json:"total"`
	Items []Session `json:"items"`
}

// MessagePage is one page of a message listing.
type MessagePage struct {
	Total int       `json:"total"`
	Items []Message `json:"items"`
}
