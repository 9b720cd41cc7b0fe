// Package chat implements the chat core: the in-memory session
// registry, the censorship policy, the message admission pipeline, and
// the per-session broadcast engine, plus the SQLite repositories for
// sessions and messages.
//
// A message is admitted in four steps: resolve the session in the
// registry, apply the session's censorship level, persist the message,
// then schedule a fire-and-forget broadcast to the session's live
// connections. Persistence always precedes broadcast; rejected content
// is never persisted.
package chat
