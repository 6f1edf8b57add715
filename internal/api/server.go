// Package api serves the dyno's HTTP surface: the dashboard poll endpoint,
// the reading/stats/chart APIs, serial and tuning configuration, and the
// SSE/WebSocket push feeds.
package api

import (
	"bufio"
	"errors"
	"log"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/banshee-data/dyno.report/internal/config"
	"github.com/banshee-data/dyno.report/internal/db"
	"github.com/banshee-data/dyno.report/internal/dyno"
	"github.com/banshee-data/dyno.report/internal/monitor"
	"github.com/banshee-data/dyno.report/internal/serialmux"
)

// ANSI escape codes for cyan and reset
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

type Server struct {
	m        serialmux.SerialMuxInterface
	pipeline *dyno.Pipeline
	db       *db.DB
	history  *monitor.History
	units    string

	tuningMu sync.RWMutex
	tuning   *config.TuningConfig
}

// NewServer wires the HTTP layer to its collaborators. The serial mux may
// be a SerialPortManager so /api/serial/reload can swap the device.
func NewServer(m serialmux.SerialMuxInterface, pipeline *dyno.Pipeline, database *db.DB, history *monitor.History, tuning *config.TuningConfig, units string) *Server {
	if tuning == nil {
		tuning = config.EmptyTuningConfig()
	}
	return &Server{
		m:        m,
		pipeline: pipeline,
		db:       database,
		history:  history,
		units:    units,
		tuning:   tuning,
	}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

// Hijack lets the WebSocket upgrade work through the middleware.
func (lrw *loggingResponseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := lrw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("underlying ResponseWriter does not support hijacking")
	}
	return hj.Hijack()
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400 && statusCode < 500:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 500:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		log.Printf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/", s.history.HandleDashboard)
	mux.HandleFunc("/data", s.handleData)
	mux.HandleFunc("/command", s.sendCommandHandler)

	mux.HandleFunc("/api/reading", s.handleReading)
	mux.HandleFunc("/api/stats", s.history.HandleStats)
	mux.HandleFunc("/api/history", s.history.HandleHistory)
	mux.HandleFunc("/api/charts", s.history.HandleCharts)
	mux.HandleFunc("/api/plot.png", s.history.HandlePlotPNG)
	mux.HandleFunc("/api/session/reset", s.history.HandleSessionReset)
	mux.HandleFunc("/api/config", s.handleConfig)

	mux.HandleFunc("/api/serial-configs", s.handleSerialConfigsOrCreate)
	mux.HandleFunc("/api/serial-configs/", s.handleSerialConfigByID)
	mux.HandleFunc("/api/serial/reload", s.handleSerialReload)

	mux.HandleFunc("/api/tuning-profiles", s.handleTuningProfiles)
	mux.HandleFunc("/api/tuning-profiles/", s.handleTuningProfileByName)

	mux.HandleFunc("/api/events", s.handleEvents)
	mux.HandleFunc("/api/live", s.handleLive)

	mux.Handle("/metrics", promhttp.Handler())

	return mux
}
