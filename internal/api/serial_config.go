package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/banshee-data/dyno.report/internal/db"
	"github.com/banshee-data/dyno.report/internal/httputil"
	"github.com/banshee-data/dyno.report/internal/serialmux"
)

// SerialConfigRequest represents the request body for creating/updating serial configs
type SerialConfigRequest struct {
	Name        string `json:"name"`
	PortPath    string `json:"port_path"`
	BaudRate    int    `json:"baud_rate"`
	DataBits    int    `json:"data_bits"`
	StopBits    int    `json:"stop_bits"`
	Parity      string `json:"parity"`
	Enabled     bool   `json:"enabled"`
	Description string `json:"description"`
	SensorModel string `json:"sensor_model"`
}

func (req *SerialConfigRequest) validate() (serialmux.PortOptions, error) {
	opts := serialmux.PortOptions{
		BaudRate: req.BaudRate,
		DataBits: req.DataBits,
		StopBits: req.StopBits,
		Parity:   req.Parity,
	}
	return opts.Normalize()
}

// handleSerialConfigsOrCreate handles GET and POST to /api/serial-configs
func (s *Server) handleSerialConfigsOrCreate(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleListSerialConfigs(w, r)
	case http.MethodPost:
		s.handleCreateSerialConfig(w, r)
	default:
		httputil.MethodNotAllowed(w)
	}
}

// handleListSerialConfigs handles GET /api/serial-configs
func (s *Server) handleListSerialConfigs(w http.ResponseWriter, r *http.Request) {
	configs, err := s.db.GetSerialConfigs()
	if err != nil {
		log.Printf("Error fetching serial configs: %v", err)
		httputil.InternalServerError(w, "Failed to fetch serial configurations")
		return
	}
	if configs == nil {
		configs = []db.SerialConfig{}
	}
	httputil.WriteJSONOK(w, configs)
}

// handleSerialConfigByID handles GET/PUT/DELETE /api/serial-configs/:id
func (s *Server) handleSerialConfigByID(w http.ResponseWriter, r *http.Request) {
	pathParts := strings.Split(strings.TrimPrefix(r.URL.Path, "/api/serial-configs/"), "/")
	if len(pathParts) == 0 || pathParts[0] == "" {
		httputil.BadRequest(w, "Missing config ID")
		return
	}

	id, err := strconv.Atoi(pathParts[0])
	if err != nil {
		httputil.BadRequest(w, "Invalid config ID")
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.handleGetSerialConfig(w, r, id)
	case http.MethodPut:
		s.handleUpdateSerialConfig(w, r, id)
	case http.MethodDelete:
		s.handleDeleteSerialConfig(w, r, id)
	default:
		httputil.MethodNotAllowed(w)
	}
}

func (s *Server) handleGetSerialConfig(w http.ResponseWriter, r *http.Request, id int) {
	cfg, err := s.db.GetSerialConfig(id)
	if err != nil {
		log.Printf("Error fetching serial config %d: %v", id, err)
		httputil.InternalServerError(w, "Failed to fetch serial configuration")
		return
	}
	if cfg == nil {
		httputil.NotFound(w, "Configuration not found")
		return
	}
	httputil.WriteJSONOK(w, cfg)
}

// handleCreateSerialConfig handles POST /api/serial-configs
func (s *Server) handleCreateSerialConfig(w http.ResponseWriter, r *http.Request) {
	var req SerialConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.BadRequest(w, "Invalid request body")
		return
	}

	if req.Name == "" {
		httputil.BadRequest(w, "Name is required")
		return
	}
	if req.PortPath == "" {
		httputil.BadRequest(w, "Port path is required")
		return
	}
	opts, err := req.validate()
	if err != nil {
		httputil.BadRequest(w, "Invalid serial options: "+err.Error())
		return
	}

	cfg := &db.SerialConfig{
		Name:        req.Name,
		PortPath:    req.PortPath,
		BaudRate:    opts.BaudRate,
		DataBits:    opts.DataBits,
		StopBits:    opts.StopBits,
		Parity:      opts.Parity,
		Enabled:     req.Enabled,
		Description: req.Description,
		SensorModel: req.SensorModel,
	}

	id, err := s.db.CreateSerialConfig(cfg)
	if err != nil {
		log.Printf("Error creating serial config: %v", err)
		httputil.InternalServerError(w, "Failed to create serial configuration")
		return
	}

	// Only one configuration may be enabled at a time.
	if req.Enabled {
		if err := s.db.SetSerialConfigEnabled(int(id), true); err != nil {
			log.Printf("Error enabling serial config %d: %v", id, err)
		}
	}

	created, err := s.db.GetSerialConfig(int(id))
	if err != nil || created == nil {
		log.Printf("Error reading back serial config %d: %v", id, err)
		httputil.InternalServerError(w, "Failed to read created configuration")
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateSerialConfig(w http.ResponseWriter, r *http.Request, id int) {
	var req SerialConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.BadRequest(w, "Invalid request body")
		return
	}

	existing, err := s.db.GetSerialConfig(id)
	if err != nil {
		log.Printf("Error fetching serial config %d: %v", id, err)
		httputil.InternalServerError(w, "Failed to fetch serial configuration")
		return
	}
	if existing == nil {
		httputil.NotFound(w, "Configuration not found")
		return
	}

	if req.Name == "" || req.PortPath == "" {
		httputil.BadRequest(w, "Name and port path are required")
		return
	}
	opts, err := req.validate()
	if err != nil {
		httputil.BadRequest(w, "Invalid serial options: "+err.Error())
		return
	}

	cfg := &db.SerialConfig{
		ID:          id,
		Name:        req.Name,
		PortPath:    req.PortPath,
		BaudRate:    opts.BaudRate,
		DataBits:    opts.DataBits,
		StopBits:    opts.StopBits,
		Parity:      opts.Parity,
		Enabled:     req.Enabled,
		Description: req.Description,
		SensorModel: req.SensorModel,
	}

	if err := s.db.UpdateSerialConfig(cfg); err != nil {
		log.Printf("Error updating serial config %d: %v", id, err)
		httputil.InternalServerError(w, "Failed to update serial configuration")
		return
	}
	if req.Enabled && !existing.Enabled {
		if err := s.db.SetSerialConfigEnabled(id, true); err != nil {
			log.Printf("Error enabling serial config %d: %v", id, err)
		}
	}

	updated, err := s.db.GetSerialConfig(id)
	if err != nil || updated == nil {
		httputil.InternalServerError(w, "Failed to read updated configuration")
		return
	}
	httputil.WriteJSONOK(w, updated)
}

func (s *Server) handleDeleteSerialConfig(w http.ResponseWriter, r *http.Request, id int) {
	existing, err := s.db.GetSerialConfig(id)
	if err != nil {
		log.Printf("Error fetching serial config %d: %v", id, err)
		httputil.InternalServerError(w, "Failed to fetch serial configuration")
		return
	}
	if existing == nil {
		httputil.NotFound(w, "Configuration not found")
		return
	}

	if err := s.db.DeleteSerialConfig(id); err != nil {
		log.Printf("Error deleting serial config %d: %v", id, err)
		httputil.InternalServerError(w, "Failed to delete serial configuration")
		return
	}
	httputil.WriteJSONOK(w, map[string]bool{"deleted": true})
}
