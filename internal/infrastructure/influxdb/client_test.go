package influxdb

import (
	"errors"
	"testing"

	"github.com/chatwire/chatwire/internal/infrastructure/config"
)

func TestConnectDisabled(t *testing.T) {
	cfg := config.TelemetryConfig{Enabled: false}

	_, err := Connect(cfg)
	if !errors.Is(err, ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestCloseNil(t *testing.T) {
	client := &Client{}
	if err := client.Close(); err != nil {
		t.Errorf("Close() on unconnected client error = %v, want nil", err)
	}
}

func TestIsConnectedInitialState(t *testing.T) {
	client := &Client{}
	if client.IsConnected() {
		t.Error("IsConnected() = true for uninitialised client, want false")
	}
}

func TestHealthCheckDisconnected(t *testing.T) {
	client := &Client{}

	if err := client.HealthCheck(t.Context()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() error = %v, want ErrNotConnected", err)
	}
}

func TestFlushBeforeConnect(t *testing.T) {
	client := &Client{}
	// No write API yet: must be a silent no-op.
	client.Flush()
}

func TestWritesDroppedWhenDisconnected(t *testing.T) {
	client := &Client{}

	// All write helpers check connection state first, so none of these
	// may panic on a nil write API.
	client.WriteAdmission("s-1", "high", true)
	client.WriteBroadcast("s-1", 3, 0)
	client.WriteConnectionCount("s-1", 2)
	client.WritePoint("custom", map[string]string{"k": "v"}, map[string]interface{}{"n": 1})
}
