// Command buswatch captures I2C traffic from a GPIO-level sniffer source,
// decodes it into transactions, stores them in sqlite, and serves them over
// a small HTTP API.
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

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/buswatch/internal/api"
	"github.com/banshee-data/buswatch/internal/config"
	"github.com/banshee-data/buswatch/internal/db"
	"github.com/banshee-data/buswatch/internal/i2c"
	"github.com/banshee-data/buswatch/internal/monitoring"
	"github.com/banshee-data/buswatch/internal/reportmux"
	"github.com/banshee-data/buswatch/internal/timeutil"
	"github.com/banshee-data/buswatch/internal/version"
)

var (
	devMode     = flag.Bool("dev", false, "Run in dev mode replaying synthetic bus traffic")
	listen      = flag.String("listen", ":8080", "Listen address")
	dbFile      = flag.String("db", "capture.db", "Path to the capture database")
	configFile  = flag.String("config", "", "Optional JSON capture config (overridden by source/probe flags)")
	pipePath    = flag.String("pipe", "", "pigpiod notification pipe or raw report capture file")
	serialPath  = flag.String("serial", "", "Serial device of a UART-attached sniffer (instead of -pipe)")
	baudRate    = flag.Int("baud", 0, "Baud rate for -serial (0 uses the default)")
	sclBit      = flag.Int("scl", -1, "GPIO bit carrying SCL (overrides config)")
	sdaBit      = flag.Int("sda", -1, "GPIO bit carrying SDA (overrides config)")
	runMigrate  = flag.Bool("migrate", false, "Apply pending schema migrations before starting")
	migrations  = flag.String("migrations", "db/migrations", "Schema migrations directory")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

// dev mode replays a plausible sensor poll loop
var devPayloads = [][]byte{
	{0x48, 0x00},
	{0x91, 0x23, 0x80},
	{0x48, 0x01, 0xF0},
}

func captureConfig() config.CaptureConfig {
	cfg := config.DefaultCaptureConfig()
	if *configFile != "" {
		loaded, err := config.LoadCaptureConfig(*configFile)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
		cfg = loaded
	}

	if *serialPath != "" {
		cfg.Serial = *serialPath
		cfg.Pipe = ""
		if *baudRate > 0 {
			cfg.Port.BaudRate = *baudRate
		}
	} else if *pipePath != "" {
		cfg.Pipe = *pipePath
		cfg.Serial = ""
	}
	if *sclBit >= 0 {
		cfg.Probe.SCL = uint8(*sclBit)
	}
	if *sdaBit >= 0 {
		cfg.Probe.SDA = uint8(*sdaBit)
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid capture configuration: %v", err)
	}
	return cfg
}

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}
	if flag.Arg(0) == "migrate" {
		db.RunMigrateCommand(flag.Args()[1:], *dbFile, *migrations)
		return
	}
	if *listen == "" {
		log.Fatal("Listen address is required")
	}

	cfg := captureConfig()

	var source string
	var mux reportmux.Mux
	switch {
	case *devMode:
		source = "mock"
		mux = reportmux.NewMockReportMux(cfg.Probe, devPayloads, 500*time.Millisecond, timeutil.RealClock{})
	case cfg.Serial != "":
		source = cfg.Serial
		var err error
		mux, err = reportmux.NewSerialReportMux(cfg.Serial, cfg.Port)
		if err != nil {
			log.Fatalf("failed to open serial sniffer: %v", err)
		}
	default:
		source = cfg.Pipe
		var err error
		mux, err = reportmux.NewPipeReportMux(cfg.Pipe)
		if err != nil {
			log.Fatalf("failed to open report pipe: %v", err)
		}
	}
	defer mux.Close()

	database, err := db.NewDB(*dbFile)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	if *runMigrate {
		if err := database.MigrateUp(*migrations); err != nil {
			log.Fatalf("failed to apply migrations: %v", err)
		}
	}

	session := db.Session{
		ID:        uuid.NewString(),
		Source:    source,
		SCLBit:    cfg.Probe.SCL,
		SDABit:    cfg.Probe.SDA,
		StartedAt: time.Now(),
	}
	if err := database.RecordSession(session); err != nil {
		log.Fatalf("failed to record capture session: %v", err)
	}
	monitoring.Logf("%s: capture session %s on %s (%s)", version.String(), session.ID, source, cfg.Probe)

	// Create a wait group for the HTTP server, report monitor, and decode routines
	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// run the monitor routine to manage IO on the report source
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := mux.Monitor(ctx); err != nil && err != context.Canceled {
			monitoring.Logf("failed to monitor report source: %v", err)
		}
		monitoring.Logf("monitor routine terminated")
	}()

	// subscribe to the report stream and feed it through the decoder;
	// one engine per bus, driven by this single goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()
		id, c := mux.Subscribe()
		defer mux.Unsubscribe(id)
		engine := i2c.NewEngine()
		for {
			select {
			case report, ok := <-c:
				if !ok {
					monitoring.Logf("decode routine terminated: report stream closed")
					return
				}
				scl, sda := cfg.Probe.Sample(report)
				state, tx := engine.Step(scl, sda)
				if state != i2c.Complete {
					continue
				}
				monitoring.Logf("decoded %s at tick %d", tx, report.Tick)
				if err := database.RecordTransaction(session.ID, report.Tick, tx); err != nil {
					monitoring.Logf("failed to record transaction: %v", err)
				}
			case <-ctx.Done():
				monitoring.Logf("decode routine terminated")
				return
			}
		}
	}()

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()

		srvMux := http.NewServeMux()

		// mount the admin debugging routes (accessible only in dev mode or over Tailscale)
		database.AttachAdminRoutes(srvMux)
		mux.AttachAdminRoutes(srvMux)

		apiMux := api.NewServer(database, session.ID, cfg.Probe, source).ServeMux()
		srvMux.Handle("/api/", http.StripPrefix("/api", apiMux))

		server := &http.Server{
			Addr:    *listen,
			Handler: api.LoggingMiddleware(srvMux),
		}

		// Start server in a goroutine so it doesn't block
		go func() {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		// Wait for context cancellation to shut down server
		<-ctx.Done()
		monitoring.Logf("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			monitoring.Logf("HTTP server shutdown error: %v", err)
		}

		monitoring.Logf("HTTP server routine stopped")
	}()

	// Wait for all goroutines to finish
	wg.Wait()
	monitoring.Logf("Graceful shutdown complete")
}
