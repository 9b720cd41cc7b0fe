// Package influxdb provides optional chat telemetry via InfluxDB v2.
//
// When enabled, the backend records message admission outcomes,
// broadcast fan-out counts, and live WebSocket connection gauges.
// Writes are batched and asynchronous; a broken telemetry backend
// never affects the message path.
package influxdb
