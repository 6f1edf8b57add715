// Command dyno runs the roller dyno service: it reads wheel-rotation
// timing frames from the sensor's serial port, runs the signal pipeline,
// and serves the dashboard and APIs over HTTP.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/banshee-data/dyno.report/internal/api"
	"github.com/banshee-data/dyno.report/internal/config"
	"github.com/banshee-data/dyno.report/internal/db"
	"github.com/banshee-data/dyno.report/internal/dyno"
	"github.com/banshee-data/dyno.report/internal/httputil"
	"github.com/banshee-data/dyno.report/internal/monitor"
	"github.com/banshee-data/dyno.report/internal/mqtt"
	"github.com/banshee-data/dyno.report/internal/serialmux"
	"github.com/banshee-data/dyno.report/internal/units"
	"github.com/banshee-data/dyno.report/internal/version"
)

var (
	devMode     = flag.Bool("dev", false, "Run with a synthetic roller sensor instead of a serial device")
	noSerial    = flag.Bool("disable-serial", false, "Run without a serial device; enable a config and POST /api/serial/reload to attach one")
	listen      = flag.String("listen", ":8080", "HTTP listen address")
	port        = flag.String("port", "", "Serial port path (default: enabled DB config, then auto-discovery)")
	baud        = flag.Int("baud", 9600, "Serial baud rate when -port is given")
	dbPath      = flag.String("db", "dyno_settings.db", "Path to the settings database")
	configPath  = flag.String("config", "", "Path to a tuning config JSON file (optional)")
	displayUnit = flag.String("units", units.KMPH, "Display units for /data: kmph, mph or mps")
	mqttBroker  = flag.String("mqtt-broker", "", "MQTT broker URL, e.g. tcp://localhost:1883 (optional)")
	mqttPrefix  = flag.String("mqtt-prefix", "dyno", "MQTT topic prefix")
	historyLen  = flag.Int("history", monitor.DefaultCapacity, "Session history capacity in readings")
	healthCheck = flag.Bool("check", false, "Probe a running server at -listen and exit")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	// "dyno migrate up|down|status|..." manages the settings schema and
	// exits without starting the service.
	if flag.Arg(0) == "migrate" {
		db.RunMigrateCommand(flag.Args()[1:], *dbPath)
		return
	}

	if *healthCheck {
		url := probeURL(*listen)
		if err := httputil.Probe(httputil.NewStandardClient(nil), url); err != nil {
			log.Fatalf("health check failed: %v", err)
		}
		fmt.Println("ok")
		return
	}

	if *listen == "" {
		log.Fatal("Listen address is required")
	}
	if !units.IsValid(*displayUnit) {
		log.Fatalf("Invalid units %q, valid units are: %s", *displayUnit, units.GetValidUnitsString())
	}

	tuning := loadTuning(*configPath)
	pipeline, err := dyno.NewPipeline(tuning.PipelineParams(), nil)
	if err != nil {
		log.Fatalf("Failed to build pipeline: %v", err)
	}

	database, err := db.NewDB(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open settings database: %v", err)
	}
	defer database.Close()

	manager, err := openSerialManager(database)
	if err != nil {
		log.Fatalf("Failed to open serial port: %v", err)
	}
	defer manager.Close()

	history := monitor.NewHistory(*historyLen)

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Serial monitor: reads lines off the port and fans them out.
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := manager.Monitor(ctx); err != nil && err != context.Canceled {
			log.Printf("serial monitor terminated: %v", err)
		}
		log.Print("monitor routine terminated")
	}()

	// Ingest: serial lines into the pipeline.
	wg.Add(1)
	go func() {
		defer wg.Done()
		id, lines := manager.Subscribe()
		defer manager.Unsubscribe(id)
		for {
			select {
			case <-ctx.Done():
				log.Print("ingest routine terminated")
				return
			case line, ok := <-lines:
				if !ok {
					return
				}
				pipeline.IngestLine(line)
			}
		}
	}()

	// The pipeline's own run loop: sample processing plus stall detection.
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := pipeline.Run(ctx); err != nil && err != context.Canceled {
			log.Printf("pipeline terminated: %v", err)
		}
		log.Print("pipeline routine terminated")
	}()

	// Session history recorder for the charts and stats endpoints.
	wg.Add(1)
	go func() {
		defer wg.Done()
		id, readings, err := pipeline.Subscribe()
		if err != nil {
			log.Printf("failed to subscribe history recorder: %v", err)
			return
		}
		defer pipeline.Unsubscribe(id)
		for {
			select {
			case <-ctx.Done():
				return
			case r, ok := <-readings:
				if !ok {
					return
				}
				history.Record(monitor.HistoryPoint{
					Time:    r.Time,
					Reading: r,
					Stalled: pipeline.State() == dyno.StateStalled,
				})
			}
		}
	}()

	if *mqttBroker != "" {
		publisher := mqtt.NewPublisher(mqtt.Config{
			BrokerURL:   *mqttBroker,
			TopicPrefix: *mqttPrefix,
		}, nil)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := publisher.Run(ctx, pipeline); err != nil && err != context.Canceled {
				log.Printf("mqtt publisher terminated: %v", err)
			}
		}()
	}

	// HTTP server with graceful shutdown.
	wg.Add(1)
	go func() {
		defer wg.Done()

		mux := api.NewServer(manager, pipeline, database, history, tuning, *displayUnit).ServeMux()
		manager.AttachAdminRoutes(mux)
		database.AttachAdminRoutes(mux)

		server := &http.Server{
			Addr:    *listen,
			Handler: api.LoggingMiddleware(mux),
		}

		go func() {
			log.Printf("dyno %s listening on %s", version.String(), *listen)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
			if err := server.Close(); err != nil {
				log.Printf("HTTP server force close error: %v", err)
			}
		}
		log.Print("HTTP server routine stopped")
	}()

	wg.Wait()
	log.Print("Graceful shutdown complete")
}

// loadTuning loads the tuning file when one is given, otherwise tries the
// repo defaults file, otherwise runs on built-in defaults.
func loadTuning(path string) *config.TuningConfig {
	if path != "" {
		tuning, err := config.LoadTuningConfig(path)
		if err != nil {
			log.Fatalf("Failed to load tuning config %s: %v", path, err)
		}
		return tuning
	}
	if tuning, err := config.LoadTuningConfig(config.DefaultConfigPath); err == nil {
		log.Printf("loaded tuning defaults from %s", config.DefaultConfigPath)
		return tuning
	}
	return config.EmptyTuningConfig()
}

// openSerialManager resolves the sensor port and wraps it in a reloadable
// manager. Resolution order: dev-mode mock, disabled no-op mux, explicit
// -port flag, the enabled DB configuration, USB auto-discovery.
func openSerialManager(database *db.DB) (*api.SerialPortManager, error) {
	factory := func(path string, opts serialmux.PortOptions) (serialmux.SerialMuxInterface, error) {
		return serialmux.NewRealSerialMux(path, opts)
	}

	if *devMode {
		log.Print("dev mode: using synthetic roller sensor")
		return api.NewSerialPortManager(database, serialmux.NewMockSerialMux(), api.SerialConfigSnapshot{
			PortPath: "mock",
			Source:   "dev-mode",
		}, factory), nil
	}

	if *noSerial {
		log.Print("serial disabled: enable a config and POST /api/serial/reload to attach a sensor")
		return api.NewSerialPortManager(database, serialmux.NewDisabledSerialMux(), api.SerialConfigSnapshot{
			PortPath: "disabled",
			Source:   "disabled",
		}, factory), nil
	}

	defaults, err := serialmux.PortOptions{BaudRate: *baud}.Normalize()
	if err != nil {
		return nil, fmt.Errorf("invalid serial options: %w", err)
	}

	if *port != "" {
		mux, err := factory(*port, defaults)
		if err != nil {
			return nil, err
		}
		return api.NewSerialPortManager(database, mux, api.SerialConfigSnapshot{
			PortPath: *port,
			Source:   "flag",
			Options:  defaults,
		}, factory), nil
	}

	if configs, err := database.GetEnabledSerialConfigs(); err == nil && len(configs) > 0 {
		cfg := configs[0]
		opts, err := serialmux.PortOptions{
			BaudRate: cfg.BaudRate,
			DataBits: cfg.DataBits,
			StopBits: cfg.StopBits,
			Parity:   cfg.Parity,
		}.Normalize()
		if err != nil {
			return nil, fmt.Errorf("invalid serial configuration %q: %w", cfg.Name, err)
		}
		mux, err := factory(cfg.PortPath, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to open configured port %s: %w", cfg.PortPath, err)
		}
		log.Printf("using serial configuration %q (%s)", cfg.Name, cfg.PortPath)
		return api.NewSerialPortManager(database, mux, api.SerialConfigSnapshot{
			ConfigID: cfg.ID,
			Name:     cfg.Name,
			PortPath: cfg.PortPath,
			Source:   "database",
			Options:  opts,
		}, factory), nil
	}

	ports, err := serialmux.ListPorts()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate serial ports: %w", err)
	}
	path, ok := serialmux.DiscoverPort(ports)
	if !ok {
		return nil, fmt.Errorf("no sensor found: pass -port, enable a serial config, or run with -dev")
	}
	log.Printf("auto-discovered sensor at %s", path)
	mux, err := factory(path, defaults)
	if err != nil {
		return nil, err
	}
	return api.NewSerialPortManager(database, mux, api.SerialConfigSnapshot{
		PortPath: path,
		Source:   "auto-discovery",
		Options:  defaults,
	}, factory), nil
}

// probeURL builds the health check URL for a listen address, defaulting
// the host to localhost when the address only names a port.
func probeURL(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		addr = "localhost" + addr
	}
	return "http://" + addr + "/data"
}
