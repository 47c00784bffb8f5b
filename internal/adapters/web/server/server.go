package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/kmransom56/FortiGate-Enterprise-Platform/internal/adapters/reporting"
	"github.com/kmransom56/FortiGate-Enterprise-Platform/internal/adapters/web/handlers"
	"github.com/kmransom56/FortiGate-Enterprise-Platform/internal/adapters/web/middleware"
	"github.com/kmransom56/FortiGate-Enterprise-Platform/internal/adapters/web/websocket"
	"github.com/kmransom56/FortiGate-Enterprise-Platform/internal/core/ports"
)

// Scan scheduling limit per client IP.
const (
	ScanRateLimit  = 30
	ScanRateWindow = time.Minute
)

// Deps are the services the HTTP API calls into.
type Deps struct {
	Registry     ports.DeviceRegistry
	Orchestrator ports.ScanOrchestrator
	Trigger      ports.AutomationTrigger
	Stats        ports.StatisticsService
	Audit        ports.AuditService
	PDFExporter  *reporting.PDFExporter
	WSManager    *websocket.WSManager
}

// Server handles HTTP and WebSocket connections.
type Server struct {
	Addr      string
	WSManager *websocket.WSManager

	DeviceHandler *handlers.DeviceHandler
	ScanHandler   *handlers.ScanHandler
	AuditHandler  *handlers.AuditHandler
	ReportHandler *handlers.ReportHandler

	scanLimiter *middleware.RateLimiter
	logger      *slog.Logger
	srv         *http.Server
}

// NewServer creates a new web server.
func NewServer(addr string, deps Deps, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	exporter := deps.PDFExporter
	if exporter == nil {
		exporter = reporting.NewPDFExporter()
	}
	hub := deps.WSManager
	if hub == nil {
		hub = websocket.NewWSManager(deps.Stats, nil, logger)
	}

	return &Server{
		Addr:          addr,
		WSManager:     hub,
		DeviceHandler: handlers.NewDeviceHandler(deps.Registry, deps.Orchestrator, deps.Trigger, deps.Stats, deps.Audit, logger),
		ScanHandler:   handlers.NewScanHandler(deps.Orchestrator, deps.Audit, logger),
		AuditHandler:  handlers.NewAuditHandler(deps.Audit, logger),
		ReportHandler: handlers.NewReportHandler(deps.Registry, deps.Stats, deps.Audit, exporter, logger),
		scanLimiter:   middleware.NewRateLimiter(ScanRateLimit, ScanRateWindow),
		logger:        logger.With("component", "http"),
	}
}

// Handler returns the instrumented router.
func (s *Server) Handler() http.Handler {
	return otelhttp.NewHandler(SetupRoutes(s), "netmonitor-server")
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	s.WSManager.Start(ctx)
	defer s.scanLimiter.Stop()

	s.srv = &http.Server{
		Addr:              s.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info("web server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("web server shutdown error", "error", err)
		}
	}()

	s.logger.Info("web server listening", "addr", s.Addr)
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
