package influxdb

import (
	"strconv"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteAdmission records the outcome of one message admission.
//
// Each admitted or rejected message produces one point tagged with the
// session and its censorship level, so dashboards can chart traffic
// and rejection rates per session.
//
// Example:
//
//	client.WriteAdmission("a1b2c3", "high", true)
func (c *Client) WriteAdmission(sessionID string, level string, rejected bool) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"message_admissions",
		map[string]string{
			"session_id": sessionID,
			"level":      level,
			"rejected":   strconv.FormatBool(rejected),
		},
		map[string]interface{}{
			"count": 1,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteBroadcast records the fan-out of one message to live connections.
func (c *Client) WriteBroadcast(sessionID string, recipients int, failures int) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"broadcasts",
		map[string]string{
			"session_id": sessionID,
		},
		map[string]interface{}{
			"recipients": recipients,
			"failures":   failures,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteConnectionCount records a gauge of live WebSocket connections
// for a session. Sampled on attach and detach.
func (c *Client) WriteConnectionCount(sessionID string, connections int) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"ws_connections",
		map[string]string{
			"session_id": sessionID,
		},
		map[string]interface{}{
			"count": connections,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for measurements that don't fit the helper methods.
//
// Example:
//
//	client.WritePoint("system_stats",
//	    map[string]string{"host": "chatwire-01"},
//	    map[string]interface{}{"cpu_percent": 45.2, "memory_mb": 512})
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}
