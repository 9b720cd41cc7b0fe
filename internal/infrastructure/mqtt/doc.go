// Package mqtt provides the outbound MQTT relay.
//
// When enabled, every admitted chat message is mirrored to a
// per-session broker topic (chatwire/sessions/{session_id}/messages)
// so external consumers can follow conversations without holding a
// WebSocket connection. The relay also publishes retained lifecycle
// frames to chatwire/system/status, with a Last Will covering unclean
// exits.
//
// The relay is strictly publish-only and best effort: broker outages
// never block or fail message admission.
package mqtt
