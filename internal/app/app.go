// Package app wires the inventory, scan orchestration and delivery adapters
// into a runnable process.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/kmransom56/FortiGate-Enterprise-Platform/internal/adapters/fingerprint"
	"github.com/kmransom56/FortiGate-Enterprise-Platform/internal/adapters/grpcapi"
	"github.com/kmransom56/FortiGate-Enterprise-Platform/internal/adapters/notifier"
	"github.com/kmransom56/FortiGate-Enterprise-Platform/internal/adapters/reporting"
	"github.com/kmransom56/FortiGate-Enterprise-Platform/internal/adapters/scanner"
	"github.com/kmransom56/FortiGate-Enterprise-Platform/internal/adapters/storage"
	webserver "github.com/kmransom56/FortiGate-Enterprise-Platform/internal/adapters/web/server"
	"github.com/kmransom56/FortiGate-Enterprise-Platform/internal/adapters/web/websocket"
	"github.com/kmransom56/FortiGate-Enterprise-Platform/internal/config"
	"github.com/kmransom56/FortiGate-Enterprise-Platform/internal/core/ports"
	"github.com/kmransom56/FortiGate-Enterprise-Platform/internal/core/services/audit"
	"github.com/kmransom56/FortiGate-Enterprise-Platform/internal/core/services/automation"
	"github.com/kmransom56/FortiGate-Enterprise-Platform/internal/core/services/classification"
	"github.com/kmransom56/FortiGate-Enterprise-Platform/internal/core/services/orchestrator"
	"github.com/kmransom56/FortiGate-Enterprise-Platform/internal/core/services/persistence"
	"github.com/kmransom56/FortiGate-Enterprise-Platform/internal/core/services/registry"
	"github.com/kmransom56/FortiGate-Enterprise-Platform/internal/core/services/stats"
	"github.com/kmransom56/FortiGate-Enterprise-Platform/internal/telemetry"
)

// simulatedLatency paces the mock network so scans are observable.
const simulatedLatency = 50 * time.Millisecond

// Application holds the core components of the application.
// It acts as the Facade for the entire system, orchestrating services and infrastructure.
type Application struct {
	Config *config.Config

	Store              *storage.SQLiteAdapter
	VendorResolver     *fingerprint.VendorResolver
	Registry           *registry.DeviceRegistry
	Orchestrator       *orchestrator.Orchestrator
	Trigger            *automation.Trigger
	Notifier           ports.Notifier
	PersistenceManager *persistence.PersistenceManager
	AuditService       *audit.AuditService
	Stats              *stats.Service
	WSManager          *websocket.WSManager
	WebServer          *webserver.Server
	GrpcServer         *grpcapi.HealthServer

	webhook *notifier.WebhookNotifier
	closers []io.Closer
	logger  *slog.Logger
}

// New creates a new Application instance and bootstraps its components.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Application, error) {
	if logger == nil {
		logger = slog.Default()
	}
	app := &Application{
		Config: cfg,
		logger: logger,
	}

	if err := app.bootstrap(ctx); err != nil {
		app.closeAll()
		return nil, fmt.Errorf("application bootstrap failed: %w", err)
	}
	return app, nil
}

// bootstrap orchestrates the initialization sequence.
func (app *Application) bootstrap(ctx context.Context) error {
	// 1. Foundation & Infrastructure
	telemetry.InitMetrics()

	if err := app.initStorage(); err != nil {
		return err
	}
	app.initVendorResolver()

	// 2. Domain Services
	classifier := classification.NewEngine(app.VendorResolver, app.logger)
	app.Registry = registry.NewDeviceRegistry(classifier, registry.WithLogger(app.logger))

	netScanner, err := app.initScanner()
	if err != nil {
		return err
	}

	app.Notifier = app.initNotifier()
	app.Trigger = automation.NewTrigger(app.Registry, app.Notifier, app.Config.AutomationEnabled, app.logger)
	app.Registry.AddObserver(app.Trigger)

	app.Orchestrator = orchestrator.NewOrchestrator(netScanner, app.Registry, app.Trigger, orchestrator.Config{
		MaxConcurrentScans: app.Config.MaxConcurrentScans,
		DefaultScanRange:   app.Config.DefaultScanRange,
		DefaultTimeout:     app.Config.ScanTimeout,
	}, orchestrator.WithLogger(app.logger))

	app.Stats = stats.NewService(app.Registry, app.Orchestrator)
	app.AuditService = audit.NewAuditService(app.Store, app.logger)

	// 3. Persistence
	if err := app.restore(ctx); err != nil {
		return err
	}
	app.PersistenceManager = persistence.NewPersistenceManager(app.Store, app.Config.PersistenceBuffer, app.logger)
	app.PersistenceManager.SetEnabled(app.Config.PersistenceEnabled)
	app.Registry.AddObserver(app.PersistenceManager)
	app.Orchestrator.AddObserver(app.PersistenceManager)

	// 4. Servers
	app.WSManager = websocket.NewWSManager(app.Stats, app.Config.AllowedOrigins, app.logger)
	app.Registry.AddObserver(app.WSManager)
	app.Orchestrator.AddObserver(app.WSManager)

	app.WebServer = webserver.NewServer(app.Config.Addr, webserver.Deps{
		Registry:     app.Registry,
		Orchestrator: app.Orchestrator,
		Trigger:      app.Trigger,
		Stats:        app.Stats,
		Audit:        app.AuditService,
		PDFExporter:  reporting.NewPDFExporter(),
		WSManager:    app.WSManager,
	}, app.logger)

	if app.Config.GRPCAddr != "" {
		app.GrpcServer = grpcapi.NewHealthServer(telemetry.ServiceName, app.logger)
	}

	if app.Config.MockMode {
		app.logger.Info("mock mode active: scanning a simulated network")
	}
	return nil
}

func (app *Application) initStorage() error {
	if dir := filepath.Dir(app.Config.DBPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create DB directory: %w", err)
		}
	}

	store, err := storage.NewSQLiteAdapter(app.Config.DBPath)
	if err != nil {
		return fmt.Errorf("failed to init system storage: %w", err)
	}
	app.Store = store
	app.closers = append(app.closers, store)
	return nil
}

// initVendorResolver chains the IEEE registry (when present), the offline
// gopacket table and the optional online service behind an LRU cache.
func (app *Application) initVendorResolver() {
	var repos []fingerprint.VendorRepository

	if _, err := os.Stat(app.Config.OUIDBPath); err == nil {
		ouiDB, err := fingerprint.NewOUIDatabase(app.Config.OUIDBPath)
		if err != nil {
			app.logger.Warn("failed to open OUI database, continuing without it", "path", app.Config.OUIDBPath, "error", err)
		} else {
			repos = append(repos, ouiDB)
		}
	} else {
		app.logger.Info("OUI database not found, using built-in tables", "path", app.Config.OUIDBPath)
	}

	repos = append(repos, fingerprint.NewMACsRepository())
	if app.Config.OnlineVendorLookup {
		repos = append(repos, fingerprint.NewOnlineRepository(app.Config.VendorLookupURL))
	}

	app.VendorResolver = fingerprint.NewVendorResolver(
		fingerprint.NewCompositeVendorRepository(repos...), fingerprint.DefaultCacheSize, app.logger)
	app.closers = append(app.closers, app.VendorResolver)
}

func (app *Application) initScanner() (ports.Scanner, error) {
	rules, err := scanner.LoadExposureRules(app.Config.RulesPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load exposure rules: %w", err)
	}

	if app.Config.MockMode {
		return scanner.NewSimulatedScanner(rules, simulatedLatency), nil
	}
	return scanner.NewTCPScanner(scanner.TCPConfig{Ports: app.Config.ScanPorts}, rules, app.logger), nil
}

// initNotifier builds the automation sink. Broker connection failures are
// logged and the broker is skipped; with no sink the events are only logged.
func (app *Application) initNotifier() ports.Notifier {
	var sinks []ports.Notifier

	if app.Config.WebhookURL != "" {
		app.webhook = notifier.NewWebhookNotifier(app.Config.WebhookURL, app.Config.WebhookTimeout, app.logger)
		sinks = append(sinks, app.webhook)
	}
	if app.Config.NATSURL != "" {
		n, err := notifier.NewNATSNotifier(app.Config.NATSURL, app.Config.NATSSubject, app.logger)
		if err != nil {
			app.logger.Warn("NATS unavailable, automation events will not be published there", "error", err)
		} else {
			sinks = append(sinks, n)
			app.closers = append(app.closers, n)
		}
	}
	if app.Config.AMQPURL != "" {
		a, err := notifier.NewAMQPNotifier(app.Config.AMQPURL, app.Config.AMQPQueue, app.logger)
		if err != nil {
			app.logger.Warn("AMQP unavailable, automation events will not be queued", "error", err)
		} else {
			sinks = append(sinks, a)
			app.closers = append(app.closers, a)
		}
	}

	switch len(sinks) {
	case 0:
		if app.Config.AutomationEnabled {
			app.logger.Warn("automation enabled without a sink; events will only be logged")
		}
		return notifier.NewLogNotifier(app.logger)
	case 1:
		return sinks[0]
	default:
		return notifier.NewMultiNotifier(sinks...)
	}
}

// restore reloads the persisted inventory and scan history.
func (app *Application) restore(ctx context.Context) error {
	if !app.Config.PersistenceEnabled {
		return nil
	}

	devices, err := app.Store.LoadDevices(ctx)
	if err != nil {
		return fmt.Errorf("failed to restore devices: %w", err)
	}
	app.Registry.Restore(devices)

	scans, err := app.Store.LoadScans(ctx, 0)
	if err != nil {
		return fmt.Errorf("failed to restore scans: %w", err)
	}
	app.Orchestrator.Restore(scans)

	app.logger.Info("restored state", "devices", len(devices), "scans", len(scans))
	return nil
}

// Run starts the application components and manages their execution lifecycle.
func (app *Application) Run(ctx context.Context) error {
	app.logger.Info("starting netmonitor components")

	// Persistence outlives the servers: its loop is stopped by shutdown once
	// the orchestrator and registry have published their last changes.
	persistCtx, stopPersistence := context.WithCancel(context.WithoutCancel(ctx))
	defer stopPersistence()
	app.PersistenceManager.Start(persistCtx)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go app.checkWebhook(ctx)

	errChan := make(chan error, 2)
	go func() {
		if err := app.WebServer.Run(ctx); err != nil {
			errChan <- fmt.Errorf("web server error: %w", err)
		}
	}()
	if app.GrpcServer != nil {
		go func() {
			if err := app.GrpcServer.Run(ctx, app.Config.GRPCAddr); err != nil {
				errChan <- fmt.Errorf("grpc server error: %w", err)
			}
		}()
	}

	app.logger.Info("netmonitor ready", "addr", app.Config.Addr, "grpc", app.Config.GRPCAddr)

	var runErr error
	select {
	case <-ctx.Done():
		app.logger.Info("termination signal received")
	case runErr = <-errChan:
	}
	cancel()
	return errors.Join(runErr, app.shutdown(stopPersistence))
}

// checkWebhook probes the webhook once at startup. The outcome is only logged.
func (app *Application) checkWebhook(ctx context.Context) {
	if app.webhook == nil || !app.Config.AutomationEnabled {
		return
	}
	if err := app.webhook.TestConnection(ctx); err != nil {
		app.logger.Warn("automation webhook test failed", "error", err)
		return
	}
	app.logger.Info("automation webhook reachable")
}

func (app *Application) shutdown(stopPersistence context.CancelFunc) error {
	app.logger.Info("cleaning up resources")
	if app.GrpcServer != nil {
		app.GrpcServer.SetServing(false)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	var errs []error
	if err := app.Orchestrator.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("orchestrator shutdown: %w", err))
	}
	if err := app.Registry.FlushNotifications(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("registry notifications: %w", err))
	}
	stopPersistence()
	app.PersistenceManager.Wait()

	errs = append(errs, app.closeAll())
	return errors.Join(errs...)
}

func (app *Application) closeAll() error {
	var errs []error
	for i := len(app.closers) - 1; i >= 0; i-- {
		if err := app.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	app.closers = nil
	return errors.Join(errs...)
}
