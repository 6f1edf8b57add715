package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/banshee-data/dyno.report/internal/config"
	"github.com/banshee-data/dyno.report/internal/db"
	"github.com/banshee-data/dyno.report/internal/httputil"
)

// handleTuningProfiles handles GET (list) and POST (save) on
// /api/tuning-profiles. A profile stores the same sparse JSON the tuning
// file uses, so it can override any subset of values.
func (s *Server) handleTuningProfiles(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		profiles, err := s.db.ListTuningProfiles()
		if err != nil {
			log.Printf("Error listing tuning profiles: %v", err)
			httputil.InternalServerError(w, "Failed to list tuning profiles")
			return
		}
		if profiles == nil {
			profiles = []db.TuningProfile{}
		}
		httputil.WriteJSONOK(w, profiles)

	case http.MethodPost:
		var req struct {
			Name   string               `json:"name"`
			Config *config.TuningConfig `json:"config"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httputil.BadRequest(w, "Invalid request body")
			return
		}
		if req.Name == "" {
			httputil.BadRequest(w, "Name is required")
			return
		}
		if req.Config == nil {
			// An empty body saves the currently effective tuning.
			s.tuningMu.RLock()
			req.Config = s.tuning.Resolved()
			s.tuningMu.RUnlock()
		}
		if err := s.db.SaveTuningProfile(req.Name, req.Config); err != nil {
			httputil.BadRequest(w, err.Error())
			return
		}
		saved, err := s.db.GetTuningProfile(req.Name)
		if err != nil || saved == nil {
			httputil.InternalServerError(w, "Failed to read saved profile")
			return
		}
		httputil.WriteJSON(w, http.StatusCreated, saved)

	default:
		httputil.MethodNotAllowed(w)
	}
}

// handleTuningProfileByName handles /api/tuning-profiles/{name} (GET,
// DELETE) and /api/tuning-profiles/{name}/apply (POST). Applying merges the
// profile over the effective tuning and retunes the running pipeline, same
// as POST /api/config.
func (s *Server) handleTuningProfileByName(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/tuning-profiles/")
	name, action, _ := strings.Cut(rest, "/")
	if name == "" {
		httputil.BadRequest(w, "Missing profile name")
		return
	}

	if action == "apply" {
		if r.Method != http.MethodPost {
			httputil.MethodNotAllowed(w)
			return
		}
		s.applyTuningProfile(w, name)
		return
	}
	if action != "" {
		httputil.NotFound(w, "Unknown profile action")
		return
	}

	switch r.Method {
	case http.MethodGet:
		profile, err := s.db.GetTuningProfile(name)
		if err != nil {
			log.Printf("Error fetching tuning profile %q: %v", name, err)
			httputil.InternalServerError(w, "Failed to fetch tuning profile")
			return
		}
		if profile == nil {
			httputil.NotFound(w, "Profile not found")
			return
		}
		httputil.WriteJSONOK(w, profile)

	case http.MethodDelete:
		if err := s.db.DeleteTuningProfile(name); err != nil {
			httputil.NotFound(w, err.Error())
			return
		}
		httputil.WriteJSONOK(w, map[string]bool{"deleted": true})

	default:
		httputil.MethodNotAllowed(w)
	}
}

func (s *Server) applyTuningProfile(w http.ResponseWriter, name string) {
	profile, err := s.db.GetTuningProfile(name)
	if err != nil {
		log.Printf("Error fetching tuning profile %q: %v", name, err)
		httputil.InternalServerError(w, "Failed to fetch tuning profile")
		return
	}
	if profile == nil {
		httputil.NotFound(w, "Profile not found")
		return
	}

	s.tuningMu.Lock()
	merged := s.tuning.Merge(profile.Config)
	if err := merged.Validate(); err != nil {
		s.tuningMu.Unlock()
		httputil.BadRequest(w, "invalid profile config: "+err.Error())
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

	log.Printf("Applied tuning profile %q", name)
	httputil.WriteJSONOK(w, resolved)
}
