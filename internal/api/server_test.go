package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/banshee-data/dyno.report/internal/config"
	"github.com/banshee-data/dyno.report/internal/db"
	"github.com/banshee-data/dyno.report/internal/dyno"
	"github.com/banshee-data/dyno.report/internal/monitor"
	"github.com/banshee-data/dyno.report/internal/serialmux"
	"github.com/banshee-data/dyno.report/internal/testutil"
	"github.com/banshee-data/dyno.report/internal/units"
)

// testServer bundles the server with the collaborators tests drive
// directly.
type testServer struct {
	srv      *Server
	handler  http.Handler
	pipeline *dyno.Pipeline
	database *db.DB
	history  *monitor.History
	port     *serialmux.TestableSerialPort
	cancel   context.CancelFunc
}

// newTestServer wires a server over a fresh settings DB, a running
// pipeline, and a testable serial port.
func newTestServer(t *testing.T) *testServer {
	t.Helper()

	database, err := db.NewDB(filepath.Join(t.TempDir(), "api-test.db"))
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	pipeline, err := dyno.NewPipeline(dyno.DefaultParams(), nil)
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	go pipeline.Run(ctx)
	t.Cleanup(cancel)

	port := serialmux.NewTestableSerialPort()
	mux := serialmux.NewSerialMux(port)
	t.Cleanup(func() { mux.Close() })

	history := monitor.NewHistory(64)
	srv := NewServer(mux, pipeline, database, history, config.EmptyTuningConfig(), units.KMPH)
	return &testServer{
		srv:      srv,
		handler:  srv.ServeMux(),
		pipeline: pipeline,
		database: database,
		history:  history,
		port:     port,
		cancel:   cancel,
	}
}

// publishReading drives the running pipeline until a non-zero reading is
// published.
func (ts *testServer) publishReading(t *testing.T) dyno.Reading {
	t.Helper()
	ts.pipeline.Ingest(dyno.RawSample{Time: time.Now(), PeriodUS: 48_387, PeriodValid: true})

	deadline := time.Now().Add(2 * time.Second)
	for ts.pipeline.Latest().RPM == 0 {
		if time.Now().After(deadline) {
			t.Fatal("pipeline never published a reading")
		}
		time.Sleep(2 * time.Millisecond)
	}
	return ts.pipeline.Latest()
}

func (ts *testServer) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func (ts *testServer) request(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
	}
}

// TestHandleDataRounding verifies /data serves the original frontend
// contract: rpm and power to one decimal, speed and torque to two.
func TestHandleDataRounding(t *testing.T) {
	ts := newTestServer(t)
	reading := ts.publishReading(t)

	rec := ts.get(t, "/data")
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)

	var body map[string]float64
	decodeJSON(t, rec, &body)

	if got, want := body["rpm"], units.Round(reading.RPM, 1); got != want {
		t.Errorf("rpm = %v, want %v", got, want)
	}
	if got, want := body["speed"], units.Round(reading.SpeedKMH, 2); got != want {
		t.Errorf("speed = %v, want %v", got, want)
	}
	if got, want := body["torque"], units.Round(reading.TorqueNM, 2); got != want {
		t.Errorf("torque = %v, want %v", got, want)
	}
	if got, want := body["power"], units.Round(reading.PowerW, 1); got != want {
		t.Errorf("power = %v, want %v", got, want)
	}
}

// TestHandleDataBeforeFirstSample verifies /data serves all zeros before
// any sample arrives, and repeated polls are identical.
func TestHandleDataBeforeFirstSample(t *testing.T) {
	ts := newTestServer(t)

	first := ts.get(t, "/data")
	testutil.AssertStatusCode(t, first.Code, http.StatusOK)

	var body map[string]float64
	decodeJSON(t, first, &body)
	for _, key := range []string{"rpm", "speed", "torque", "power"} {
		if body[key] != 0 {
			t.Errorf("%s = %v before first sample, want 0", key, body[key])
		}
	}

	second := ts.get(t, "/data")
	if first.Body.String() != second.Body.String() {
		t.Errorf("poll not idempotent: %q vs %q", first.Body.String(), second.Body.String())
	}
}

// TestHandleDataMethodNotAllowed verifies /data rejects writes.
func TestHandleDataMethodNotAllowed(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.request(t, http.MethodPost, "/data", "")
	testutil.AssertStatusCode(t, rec.Code, http.StatusMethodNotAllowed)
}

// TestHandleReading verifies /api/reading serves the unrounded snapshot
// with state and session ID.
func TestHandleReading(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.get(t, "/api/reading")
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)

	var body struct {
		State     string       `json:"state"`
		Reading   dyno.Reading `json:"reading"`
		SessionID string       `json:"session_id"`
	}
	decodeJSON(t, rec, &body)
	if body.State != string(dyno.StateStalled) {
		t.Errorf("state = %q before samples, want %q", body.State, dyno.StateStalled)
	}
	if body.SessionID != ts.history.SessionID() {
		t.Errorf("session_id = %q, want %q", body.SessionID, ts.history.SessionID())
	}

	reading := ts.publishReading(t)
	rec = ts.get(t, "/api/reading")
	decodeJSON(t, rec, &body)
	if body.State != string(dyno.StateLive) {
		t.Errorf("state = %q after sample, want %q", body.State, dyno.StateLive)
	}
	if body.Reading.RPM != reading.RPM {
		t.Errorf("reading.rpm = %v, want unrounded %v", body.Reading.RPM, reading.RPM)
	}
}

// TestHandleConfig verifies GET serves resolved values and POST merges a
// partial update into the running pipeline.
func TestHandleConfig(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.get(t, "/api/config")
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)

	var resolved config.TuningConfig
	decodeJSON(t, rec, &resolved)
	if resolved.MaxTorqueNM == nil || *resolved.MaxTorqueNM != 2.0 {
		t.Fatalf("resolved max_torque_nm = %v, want default 2.0", resolved.MaxTorqueNM)
	}

	rec = ts.request(t, http.MethodPost, "/api/config", `{"max_torque_nm": 3.5}`)
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
	decodeJSON(t, rec, &resolved)
	if *resolved.MaxTorqueNM != 3.5 {
		t.Errorf("max_torque_nm after update = %v, want 3.5", *resolved.MaxTorqueNM)
	}
	// Unnamed fields keep their values.
	if *resolved.MaxPowerW != 50.0 {
		t.Errorf("max_power_w after partial update = %v, want 50", *resolved.MaxPowerW)
	}
	if got := ts.pipeline.Params().MaxTorqueNM; got != 3.5 {
		t.Errorf("pipeline MaxTorqueNM = %v, want 3.5", got)
	}

	// Invalid updates are refused and change nothing.
	rec = ts.request(t, http.MethodPost, "/api/config", `{"max_torque_nm": -1}`)
	testutil.AssertStatusCode(t, rec.Code, http.StatusBadRequest)
	if got := ts.pipeline.Params().MaxTorqueNM; got != 3.5 {
		t.Errorf("pipeline MaxTorqueNM after refused update = %v, want 3.5", got)
	}
}

// TestSendCommand verifies /command writes through to the serial port.
func TestSendCommand(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/command", strings.NewReader("command=reset"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)

	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
	if got := string(ts.port.GetWrittenData()); got != "reset\n" {
		t.Errorf("port received %q, want %q", got, "reset\n")
	}
}
