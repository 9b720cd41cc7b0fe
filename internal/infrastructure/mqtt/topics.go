package mqtt

import "fmt"

// Topic prefixes for the relay's published topics.
//
// Session traffic uses chatwire/sessions/{session_id}/messages; system
// lifecycle frames go to chatwire/system/status. The relay only ever
// publishes, so no wildcard subscription patterns are defined here.
const (
	// TopicPrefix is the base for all relay topics.
	TopicPrefix = "chatwire"

	// TopicPrefixSessions is the base for per-session message topics.
	TopicPrefixSessions = "chatwire/sessions"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "chatwire/system"
)

// Topics provides builders for relay topic names.
// Using these helpers keeps topic naming consistent across the codebase.
//
//	topics := mqtt.Topics{}
//	topic := topics.SessionMessages("a1b2c3")
//	// Returns: "chatwire/sessions/a1b2c3/messages"
type Topics struct{}

// SessionMessages returns the topic carrying admitted messages for a session.
//
// Example: chatwire/sessions/a1b2c3/messages
func (Topics) SessionMessages(sessionID string) string {
	return fmt.Sprintf("%s/%s/messages", TopicPrefixSessions, sessionID)
}

// SystemStatus returns the relay lifecycle status topic.
//
// Example: chatwire/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}
