package influxdb

import (
	"github.com/chatwire/chatwire/internal/chat"
)

// Recorder bridges the chat domain to telemetry. It satisfies the
// admission pipeline's Recorder, the broadcaster's observer and the
// registry's connection observer with the non-blocking write API, so
// recording never delays a message.
type Recorder struct {
	client *Client
}

// NewRecorder wraps a connected telemetry client.
func NewRecorder(client *Client) *Recorder {
	return &Recorder{client: client}
}

// RecordAdmission writes one admission outcome point.
func (r *Recorder) RecordAdmission(sessionID string, level chat.CensorshipLevel, rejected bool) {
	r.client.WriteAdmission(sessionID, string(level), rejected)
}

// RecordBroadcast writes one delivery outcome point.
func (r *Recorder) RecordBroadcast(sessionID string, recipients, failures int) {
	r.client.WriteBroadcast(sessionID, recipients, failures)
}

// RecordConnections writes the live connection gauge for a session.
func (r *Recorder) RecordConnections(sessionID string, connections int) {
	r.client.WriteConnectionCount(sessionID, connections)
}
