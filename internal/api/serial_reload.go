package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/banshee-data/dyno.report/internal/db"
	"github.com/banshee-data/dyno.report/internal/httputil"
	"github.com/banshee-data/dyno.report/internal/monitoring"
	"github.com/banshee-data/dyno.report/internal/serialmux"
)

// SerialMuxFactory constructs a mux for a port path and options. Injected so
// the manager is testable and so dev mode can supply the mock constructor.
type SerialMuxFactory func(path string, opts serialmux.PortOptions) (serialmux.SerialMuxInterface, error)

// SerialConfigSnapshot describes the configuration currently applied to the
// running mux, reported back to API clients after a reload.
type SerialConfigSnapshot struct {
	ConfigID int                   `json:"config_id,omitempty"`
	Name     string                `json:"name,omitempty"`
	PortPath string                `json:"port_path"`
	Source   string                `json:"source"`
	Options  serialmux.PortOptions `json:"options"`
}

// SerialReloadResult is the response body for a reload request.
type SerialReloadResult struct {
	Success bool                  `json:"success"`
	Message string                `json:"message"`
	Config  *SerialConfigSnapshot `json:"config,omitempty"`
}

// SerialPortManager wraps a SerialMuxInterface and hot-reloads the underlying
// serial configuration from the database. It implements SerialMuxInterface
// itself, so handlers and the ingest loop delegate to the active mux without
// extra wiring.
//
// Subscriptions survive reloads: Subscribe hands out channels owned by the
// manager's fanout, and a background goroutine re-subscribes to whichever mux
// is current and forwards its lines. Only the internal mux-side channel is
// torn down on reload.
type SerialPortManager struct {
	mu       sync.RWMutex
	current  serialmux.SerialMuxInterface
	snapshot *SerialConfigSnapshot
	closed   bool

	db      *db.DB
	factory SerialMuxFactory

	reloadMu sync.Mutex

	done        chan struct{}
	fanoutMu    sync.Mutex
	subscribers map[string]chan string
}

// NewSerialPortManager wraps an initial mux. The snapshot is optional; an
// empty port path means no configuration has been applied yet. The fanout
// goroutine runs until Close.
func NewSerialPortManager(database *db.DB, initial serialmux.SerialMuxInterface, snapshot SerialConfigSnapshot, factory SerialMuxFactory) *SerialPortManager {
	m := &SerialPortManager{
		current:     initial,
		db:          database,
		factory:     factory,
		done:        make(chan struct{}),
		subscribers: make(map[string]chan string),
	}
	if snapshot.PortPath != "" {
		snap := snapshot
		m.snapshot = &snap
	}
	go m.runFanout()
	return m
}

// CurrentMux returns the mux currently in use. Callers must treat it as
// read-only; reconfiguration goes through ReloadConfig.
func (m *SerialPortManager) CurrentMux() serialmux.SerialMuxInterface {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Snapshot returns a copy of the active configuration snapshot.
func (m *SerialPortManager) Snapshot() SerialConfigSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.snapshot == nil {
		return SerialConfigSnapshot{}
	}
	return *m.snapshot
}

// runFanout bridges subscriptions across reloads: it subscribes to the
// current mux, forwards every line to the manager's subscribers, and
// re-subscribes when the mux-side channel closes (a reload or shutdown).
func (m *SerialPortManager) runFanout() {
	var subID string
	var subCh chan string

	defer func() {
		if subID != "" {
			if mux := m.CurrentMux(); mux != nil {
				mux.Unsubscribe(subID)
			}
		}
		m.fanoutMu.Lock()
		for _, ch := range m.subscribers {
			close(ch)
		}
		m.subscribers = make(map[string]chan string)
		m.fanoutMu.Unlock()
	}()

	for {
		if subID == "" {
			m.mu.RLock()
			mux, closed := m.current, m.closed
			m.mu.RUnlock()
			if closed {
				return
			}
			if mux == nil {
				select {
				case <-m.done:
					return
				case <-time.After(250 * time.Millisecond):
				}
				continue
			}
			subID, subCh = mux.Subscribe()
		}

		select {
		case <-m.done:
			return
		case line, ok := <-subCh:
			if !ok {
				// Mux side closed, most likely a reload. Attach to the
				// replacement on the next pass.
				subID, subCh = "", nil
				time.Sleep(50 * time.Millisecond)
				continue
			}
			m.fanoutMu.Lock()
			for _, ch := range m.subscribers {
				select {
				case ch <- line:
				default:
				}
			}
			m.fanoutMu.Unlock()
		}
	}
}

// Subscribe returns a channel that stays valid across reloads. After Close
// it returns an already-closed channel.
func (m *SerialPortManager) Subscribe() (string, chan string) {
	m.mu.RLock()
	closed := m.closed
	m.mu.RUnlock()
	if closed {
		ch := make(chan string)
		close(ch)
		return "", ch
	}

	id := fmt.Sprintf("subscriber-%d", time.Now().UnixNano())
	ch := make(chan string, 16)
	m.fanoutMu.Lock()
	m.subscribers[id] = ch
	m.fanoutMu.Unlock()
	return id, ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (m *SerialPortManager) Unsubscribe(id string) {
	m.fanoutMu.Lock()
	defer m.fanoutMu.Unlock()
	if ch, ok := m.subscribers[id]; ok {
		close(ch)
		delete(m.subscribers, id)
	}
}

// SendCommand delegates to the current mux.
func (m *SerialPortManager) SendCommand(command string) error {
	m.mu.RLock()
	mux, closed := m.current, m.closed
	m.mu.RUnlock()
	if closed {
		return errors.New("serial manager is closed")
	}
	if mux == nil {
		return errors.New("serial mux unavailable")
	}
	return mux.SendCommand(command)
}

// Monitor runs the active mux's monitor loop, reattaching whenever the mux
// is swapped by a reload.
func (m *SerialPortManager) Monitor(ctx context.Context) error {
	for {
		mux := m.CurrentMux()
		if mux == nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(250 * time.Millisecond):
				continue
			}
		}

		err := mux.Monitor(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil && !errors.Is(err, context.Canceled) {
			monitoring.Logf("serial monitor terminated: %v", err)
			time.Sleep(500 * time.Millisecond)
		} else {
			// Clean exit means the mux was closed under us (a reload).
			time.Sleep(100 * time.Millisecond)
		}
	}
}

// Close shuts down the manager and the active mux. Shutdown only; after
// Close, SendCommand errors and Subscribe returns closed channels.
func (m *SerialPortManager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	current := m.current
	m.current = nil
	m.mu.Unlock()

	if current != nil {
		if err := current.Close(); err != nil {
			monitoring.Logf("warning: failed to close serial mux during shutdown: %v", err)
		}
	}
	close(m.done)
	return nil
}

// AttachAdminRoutes serves the debug pages through the manager, so they keep
// working across reloads.
func (m *SerialPortManager) AttachAdminRoutes(mux *http.ServeMux) {
	serialmux.AttachAdminRoutesForMux(mux, m)
}

// ReloadConfig loads the enabled serial configuration from the database and
// swaps the active mux. Subscribers keep their channels; the fanout loop
// reattaches to the new mux.
func (m *SerialPortManager) ReloadConfig(ctx context.Context) (*SerialReloadResult, error) {
	if m.factory == nil {
		return nil, errors.New("serial mux factory not configured")
	}
	if m.db == nil {
		return nil, errors.New("database not configured")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.reloadMu.Lock()
	defer m.reloadMu.Unlock()

	configs, err := m.db.GetEnabledSerialConfigs()
	if err != nil {
		return nil, fmt.Errorf("failed to load serial configurations: %w", err)
	}
	if len(configs) == 0 {
		return nil, errors.New("no enabled serial configurations found")
	}

	cfg := configs[0]
	opts, err := serialmux.PortOptions{
		BaudRate: cfg.BaudRate,
		DataBits: cfg.DataBits,
		StopBits: cfg.StopBits,
		Parity:   cfg.Parity,
	}.Normalize()
	if err != nil {
		return nil, fmt.Errorf("invalid serial configuration: %w", err)
	}

	snap := SerialConfigSnapshot{
		ConfigID: cfg.ID,
		Name:     cfg.Name,
		PortPath: cfg.PortPath,
		Source:   "database",
		Options:  opts,
	}

	current := m.Snapshot()
	if current.PortPath == cfg.PortPath && current.Options.Equal(opts) {
		return &SerialReloadResult{
			Success: true,
			Message: fmt.Sprintf("Serial configuration %q already active", cfg.Name),
			Config:  &snap,
		}, nil
	}

	// Close the old mux before opening the new one: serial devices cannot
	// be opened twice, and the new config may target the same port with
	// different settings.
	m.mu.Lock()
	oldMux := m.current
	m.current = nil
	m.mu.Unlock()

	if oldMux != nil {
		if err := oldMux.Close(); err != nil {
			monitoring.Logf("warning: failed to close previous serial mux: %v", err)
		}
	}

	newMux, err := m.factory(cfg.PortPath, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", cfg.PortPath, err)
	}

	m.mu.Lock()
	m.current = newMux
	m.snapshot = &snap
	m.mu.Unlock()

	monitoring.Logf("serial mux reloaded: %s (%s)", cfg.Name, cfg.PortPath)
	return &SerialReloadResult{
		Success: true,
		Message: fmt.Sprintf("Reloaded serial configuration %q", cfg.Name),
		Config:  &snap,
	}, nil
}

// handleSerialReload re-resolves the enabled serial configuration and swaps
// the device. Only available when the server was wired with a
// SerialPortManager.
func (s *Server) handleSerialReload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}

	manager, ok := s.m.(*SerialPortManager)
	if !ok {
		httputil.WriteJSONError(w, http.StatusServiceUnavailable, "serial reload not available")
		return
	}

	result, err := manager.ReloadConfig(r.Context())
	if err != nil {
		httputil.WriteJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	httputil.WriteJSONOK(w, result)
}
