package monitor

import (
	"bytes"
	"embed"
	"net/http"

	"github.com/banshee-data/dyno.report/internal/httputil"
)

//go:embed dashboard.html
var dashboardFS embed.FS

// HandleDashboard serves the embedded dashboard page.
func (h *History) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	page, err := dashboardFS.ReadFile("dashboard.html")
	if err != nil {
		httputil.InternalServerError(w, "dashboard page unavailable")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(page)
}

// HandleStats serves GET /api/stats.
func (h *History) HandleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSONOK(w, h.Stats())
}

// HandleHistory serves GET /api/history: the session ring as a JSON
// series, oldest first.
func (h *History) HandleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSONOK(w, map[string]interface{}{
		"session_id": h.SessionID(),
		"started":    h.Started(),
		"points":     h.Points(),
	})
}

// HandleCharts serves GET /api/charts: an HTML page of session charts.
func (h *History) HandleCharts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	// Render to a buffer first so a failure can still produce a clean
	// JSON error instead of half a page.
	var buf bytes.Buffer
	if err := h.RenderSessionCharts(&buf); err != nil {
		httputil.InternalServerError(w, "failed to render charts: "+err.Error())
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}

// HandlePlotPNG serves GET /api/plot.png.
func (h *History) HandlePlotPNG(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	var buf bytes.Buffer
	if err := h.WritePlotPNG(&buf); err != nil {
		httputil.InternalServerError(w, "failed to render plot: "+err.Error())
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Write(buf.Bytes())
}

// HandleSessionReset serves POST /api/session/reset: clears the ring and
// starts a new session.
func (h *History) HandleSessionReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	id := h.Reset()
	httputil.WriteJSONOK(w, map[string]string{"session_id": id})
}
