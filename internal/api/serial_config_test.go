package api

import (
	"net/http"
	"testing"

	"github.com/banshee-data/dyno.report/internal/db"
	"github.com/banshee-data/dyno.report/internal/testutil"
)

const sensorConfigBody = `{
	"name": "roller-sensor",
	"port_path": "/dev/ttyACM0",
	"baud_rate": 9600,
	"enabled": true,
	"sensor_model": "hall-v2"
}`

// TestSerialConfigCRUD exercises the full lifecycle of a serial
// configuration through the HTTP surface.
func TestSerialConfigCRUD(t *testing.T) {
	ts := newTestServer(t)

	// Empty list initially.
	rec := ts.get(t, "/api/serial-configs")
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
	var configs []db.SerialConfig
	decodeJSON(t, rec, &configs)
	if len(configs) != 0 {
		t.Fatalf("initial configs = %d, want 0", len(configs))
	}

	// Create.
	rec = ts.request(t, http.MethodPost, "/api/serial-configs", sensorConfigBody)
	testutil.AssertStatusCode(t, rec.Code, http.StatusCreated)
	var created db.SerialConfig
	decodeJSON(t, rec, &created)
	if created.ID == 0 {
		t.Fatal("created config has no ID")
	}
	if created.BaudRate != 9600 || !created.Enabled {
		t.Errorf("created = %+v, want 9600 baud enabled", created)
	}
	// Defaults filled in by Normalize.
	if created.DataBits != 8 {
		t.Errorf("data_bits = %d, want normalized default 8", created.DataBits)
	}

	// Read back.
	rec = ts.get(t, "/api/serial-configs/1")
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)

	// Update.
	rec = ts.request(t, http.MethodPut, "/api/serial-configs/1", `{
		"name": "roller-sensor",
		"port_path": "/dev/ttyUSB0",
		"baud_rate": 115200,
		"enabled": true
	}`)
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
	var updated db.SerialConfig
	decodeJSON(t, rec, &updated)
	if updated.PortPath != "/dev/ttyUSB0" || updated.BaudRate != 115200 {
		t.Errorf("updated = %+v, want new port and baud", updated)
	}

	// Delete.
	rec = ts.request(t, http.MethodDelete, "/api/serial-configs/1", "")
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
	rec = ts.get(t, "/api/serial-configs/1")
	testutil.AssertStatusCode(t, rec.Code, http.StatusNotFound)
}

// TestSerialConfigValidation verifies bad create requests are refused.
func TestSerialConfigValidation(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name string
		body string
	}{
		{"missing name", `{"port_path": "/dev/ttyACM0"}`},
		{"missing port", `{"name": "sensor"}`},
		{"bad parity", `{"name": "sensor", "port_path": "/dev/ttyACM0", "parity": "X"}`},
		{"bad json", `{`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := ts.request(t, http.MethodPost, "/api/serial-configs", tc.body)
			testutil.AssertStatusCode(t, rec.Code, http.StatusBadRequest)
		})
	}
}

// TestSerialConfigOnlyOneEnabled verifies enabling a new config disables
// the previously enabled one.
func TestSerialConfigOnlyOneEnabled(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.request(t, http.MethodPost, "/api/serial-configs", sensorConfigBody)
	testutil.AssertStatusCode(t, rec.Code, http.StatusCreated)
	rec = ts.request(t, http.MethodPost, "/api/serial-configs", `{
		"name": "bench-sensor",
		"port_path": "/dev/ttyACM1",
		"enabled": true
	}`)
	testutil.AssertStatusCode(t, rec.Code, http.StatusCreated)

	enabled, err := ts.database.GetEnabledSerialConfigs()
	if err != nil {
		t.Fatalf("GetEnabledSerialConfigs: %v", err)
	}
	if len(enabled) != 1 {
		t.Fatalf("enabled configs = %d, want 1", len(enabled))
	}
	if enabled[0].Name != "bench-sensor" {
		t.Errorf("enabled config = %q, want bench-sensor", enabled[0].Name)
	}
}

// TestSerialConfigBadID verifies non-numeric and missing IDs are rejected.
func TestSerialConfigBadID(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.get(t, "/api/serial-configs/abc")
	testutil.AssertStatusCode(t, rec.Code, http.StatusBadRequest)
	rec = ts.get(t, "/api/serial-configs/")
	testutil.AssertStatusCode(t, rec.Code, http.StatusBadRequest)
}
