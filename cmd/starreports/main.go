package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/STARREPORTS/internal/config"
	"github.com/STARREPORTS/internal/derive"
	"github.com/STARREPORTS/internal/events"
	"github.com/STARREPORTS/internal/instance"
	"github.com/STARREPORTS/internal/metrics"
	natsclient "github.com/STARREPORTS/internal/nats"
	"github.com/STARREPORTS/internal/notifications"
	"github.com/STARREPORTS/internal/persistence"
	"github.com/STARREPORTS/internal/rewrite"
	"github.com/STARREPORTS/internal/server"
	"github.com/STARREPORTS/internal/types"
)

func main() {
	// Parse command line flags
	port := flag.Int("port", 0, "HTTP server port (overrides config)")
	configPath := flag.String("config", "configs/starreports.yaml", "Configuration file")
	statePath := flag.String("state", "", "State snapshot path (overrides config)")
	naturalTerms := flag.Bool("natural-terms", false, "Sort exam terms naturally (Term 2 before Term 10)")
	flag.Parse()

	basePath, err := getBasePath()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to determine base path: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load(resolve(basePath, *configPath))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *statePath != "" {
		cfg.Storage.Path = *statePath
	}
	cfg.Storage.Path = resolve(basePath, cfg.Storage.Path)

	printBanner()

	// Initialize persistence
	if err := os.MkdirAll(filepath.Dir(cfg.Storage.Path), 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create data directory: %v\n", err)
		os.Exit(1)
	}

	// One writer per data directory
	if !instance.IsPortAvailable(cfg.Server.Port) {
		fmt.Fprintf(os.Stderr, "Port %d is in use (try -port %d)\n", cfg.Server.Port, instance.FindAvailablePort(cfg.Server.Port+1))
		os.Exit(1)
	}
	guard := instance.NewManager(filepath.Dir(cfg.Storage.Path), cfg.Server.Port)
	if err := guard.Acquire(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to lock data directory: %v\n", err)
		os.Exit(1)
	}
	backend, err := persistence.OpenBackend(cfg.Storage)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open storage: %v\n", err)
		os.Exit(1)
	}
	store := persistence.NewJSONStore(backend, cfg.Storage.SaveDelay)
	if _, err := store.Load(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load state: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("  State loaded from %s (%s)\n", cfg.Storage.Path, cfg.Storage.Backend)

	// Operator notifications
	notifier := notifications.NewManager(notifications.Config{
		AppID:        cfg.Notifications.AppID,
		DashboardURL: cfg.Server.PublicBaseURL,
		EnableToast:  cfg.Notifications.EnableToast,
	})

	// Change events and audit log
	var auditStore *events.SQLiteStore
	var bus *events.Bus
	if cfg.Events.AuditPath != "" {
		auditStore, err = events.OpenSQLiteStore(resolve(basePath, cfg.Events.AuditPath))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: audit log disabled: %v\n", err)
			bus = events.NewBus(nil)
		} else {
			bus = events.NewBus(auditStore)
			pruneAudit(auditStore, cfg.Events.Retention)
			fmt.Printf("  Audit log at %s\n", cfg.Events.AuditPath)
		}
	} else {
		bus = events.NewBus(nil)
	}

	store.OnPersistError(func(err error) {
		notifier.NotifyPersistenceFailure(err)
		bus.Publish(events.NewEvent(events.EventPersistence, "failed", "", "store", map[string]interface{}{
			"error": err.Error(),
		}))
	})

	// Embedded NATS for change event subscribers
	var natsServer *natsclient.Broker
	var publisher *natsclient.Publisher
	var natsConn *natsclient.Client
	if cfg.NATS.Enabled {
		natsServer, natsConn, publisher = startNATS(cfg, basePath, bus, store)
	}

	gateway := rewrite.NewGateway(cfg.Rewrite)
	fmt.Printf("  Rewrite providers: %v\n", gateway.Providers())

	// Provider failures surface as an operator banner
	collector := metrics.NewCollector()
	rewriter := metrics.Instrument(gateway, collector, metrics.NewAlertEngine(cfg.Rewrite.Alerts), func(a *types.Alert) {
		log.Printf("[METRICS] %s alert for %s: %s", a.Severity, a.Provider, a.Message)
		bannerType := notifications.BannerTypeWarning
		if a.Severity == "critical" {
			bannerType = notifications.BannerTypeError
		}
		notifier.ShowDashboardBanner(a.Message, bannerType)
	})

	termOrder := derive.LexicalTermOrder
	if *naturalTerms {
		termOrder = derive.NaturalTermOrder
	}

	srv := server.NewServer(server.Options{
		Store:         store,
		Rewriter:      rewriter,
		Bus:           bus,
		Notifications: notifier,
		Metrics:       collector,
		Config:        cfg.Server,
		TermOrder:     termOrder,
	})

	// Setup graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.Start(fmt.Sprintf(":%d", cfg.Server.Port))
	}()

	fmt.Println()
	fmt.Println("  Press Ctrl+C to shutdown")
	fmt.Println()

	select {
	case err := <-serverErr:
		if err != nil {
			fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		}
	case <-shutdown:
		fmt.Println()
		fmt.Println("Shutting down...")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Shutdown error: %v\n", err)
	}

	// Final save
	if err := store.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to save state: %v\n", err)
	}

	if publisher != nil {
		publisher.Stop()
	}
	if natsConn != nil {
		natsConn.Close()
	}
	if natsServer != nil {
		natsServer.Shutdown()
	}
	if auditStore != nil {
		auditStore.Close()
	}
	guard.Release()

	fmt.Println("Goodbye!")
}

// startNATS runs the embedded broker and forwards bus events to it. NATS
// is optional: failures are logged and the service runs without it.
func startNATS(cfg *types.Config, basePath string, bus *events.Bus, store persistence.Store) (*natsclient.Broker, *natsclient.Client, *natsclient.Publisher) {
	srv, err := natsclient.StartBroker(natsclient.BrokerConfig{
		Port:    cfg.NATS.Port,
		DataDir: resolve(basePath, cfg.NATS.DataDir),
	})
	if err != nil {
		log.Printf("[NATS] Disabled: %v", err)
		return nil, nil, nil
	}

	client, err := natsclient.NewClient(srv.URL(), "starreports")
	if err != nil {
		log.Printf("[NATS] Failed to connect to embedded server: %v", err)
		srv.Shutdown()
		return nil, nil, nil
	}

	streams, err := natsclient.NewStreamManager(client.RawConn())
	if err == nil {
		err = streams.SetupStreams(cfg.Events.Retention)
	}
	if err != nil {
		log.Printf("[NATS] Change stream unavailable, live subjects only: %v", err)
	}

	if err := natsclient.ServeStats(client, func() natsclient.StatsMessage {
		return collectStats(store.GetState())
	}); err != nil {
		log.Printf("[NATS] Failed to serve stats: %v", err)
	}

	publisher := natsclient.NewPublisher(client, bus)
	publisher.Start()
	fmt.Printf("  NATS listening at %s\n", srv.URL())
	return srv, client, publisher
}

// collectStats counts the entities in st
func collectStats(st *types.State) natsclient.StatsMessage {
	shared := 0
	for _, r := range st.Reports {
		if r.ShareToken != "" {
			shared++
		}
	}
	return natsclient.StatsMessage{
		SchoolYears:        len(st.SchoolYears),
		ActiveSchoolYearID: st.ActiveSchoolYearID,
		Grades:             len(st.Grades),
		Templates:          len(derive.Unarchived(st.Templates)),
		Students:           len(st.Students),
		Reports:            len(st.Reports),
		SharedReports:      shared,
		Documents:          len(st.Documents),
	}
}

// pruneAudit drops audit events older than retention
func pruneAudit(store *events.SQLiteStore, retention time.Duration) {
	if retention <= 0 {
		return
	}
	n, err := store.Cleanup(retention)
	if err != nil {
		log.Printf("[EVENTS] Failed to prune audit log: %v", err)
		return
	}
	if n > 0 {
		log.Printf("[EVENTS] Pruned %d audit events older than %s", n, retention)
	}
}

// resolve makes path absolute relative to base
func resolve(base, path string) string {
	if path == "" || path == ":memory:" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}

// getBasePath returns the directory containing the executable,
// or the current working directory if running via `go run`
func getBasePath() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return os.Getwd()
	}

	dir := filepath.Dir(exe)
	if filepath.Base(dir) == "exe" || filepath.Base(filepath.Dir(dir)) == "go-build" {
		return os.Getwd()
	}
	return dir, nil
}

func printBanner() {
	fmt.Println()
	fmt.Println("  ╔═══════════════════════════════════════════╗")
	fmt.Println("  ║            StarReports v1.0.0             ║")
	fmt.Println("  ║      School progress report service       ║")
	fmt.Println("  ╚═══════════════════════════════════════════╝")
	fmt.Println()
}
