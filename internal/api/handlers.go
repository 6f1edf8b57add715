package api

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/banshee-data/dyno.report/internal/config"
	"github.com/banshee-data/dyno.report/internal/httputil"
	"github.com/banshee-data/dyno.report/internal/units"
)

// handleData serves the dashboard poll endpoint. The shape and rounding
// match the original frontend contract: rpm and power to one decimal,
// speed and torque to two. Speed is converted to the server's display
// units (km/h by default).
func (s *Server) handleData(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	reading := s.pipeline.Latest()
	httputil.WriteJSONOK(w, map[string]float64{
		"rpm":    units.Round(reading.RPM, 1),
		"speed":  units.Round(units.ConvertSpeed(reading.SpeedKMH, s.units), 2),
		"torque": units.Round(reading.TorqueNM, 2),
		"power":  units.Round(reading.PowerW, 1),
	})
}

// handleReading serves the unrounded reading plus pipeline state and the
// current session.
func (s *Server) handleReading(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	snapshot := s.pipeline.Snapshot()
	httputil.WriteJSONOK(w, map[string]interface{}{
		"state":          snapshot.State,
		"zeroed":         snapshot.Zeroed,
		"last_sample_at": snapshot.LastSampleAt,
		"reading":        snapshot.Reading,
		"session_id":     s.history.SessionID(),
	})
}

// handleConfig serves the effective tuning config (GET) and applies
// partial updates to the running pipeline (POST). Updates are merged over
// the current config, so a body naming only max_torque_nm changes just
// that.
func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.tuningMu.RLock()
		resolved := s.tuning.Resolved()
		s.tuningMu.RUnlock()
		httputil.WriteJSONOK(w, resolved)

	case http.MethodPost:
		var patch config.TuningConfig
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
			httputil.BadRequest(w, "invalid config JSON: "+err.Error())
			return
		}

		s.tuningMu.Lock()
		merged := s.tuning.Merge(&patch)
		if err := merged.Validate(); err != nil {
			s.tuningMu.Unlock()
			httputil.BadRequest(w, "invalid config: "+err.Error())
			return
		}
		if err := s.pipeline.UpdateParams(merged.PipelineParams()); err != nil {
			s.tuningMu.Unlock()
			httputil.BadRequest(w, "invalid pipeline params: "+err.Error())
			return
		}
		s.tuning = merged
		resolved := merged.Resolved()
		s.tuningMu.Unlock()

		httputil.WriteJSONOK(w, resolved)

	default:
		httputil.MethodNotAllowed(w)
	}
}

// sendCommandHandler passes a raw command through to the sensor sketch.
func (s *Server) sendCommandHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	command := r.FormValue("command")

	if err := s.m.SendCommand(command); err != nil {
		http.Error(w, "Failed to send command", http.StatusInternalServerError)
		return
	}
	io.WriteString(w, "Command sent successfully")
}
