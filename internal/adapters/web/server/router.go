package server

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kmransom56/FortiGate-Enterprise-Platform/internal/adapters/web/middleware"
)

// SetupRoutes builds the API router.
func SetupRoutes(s *Server) http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/healthz", handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/ws", s.WSManager.HandleWebSocket)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(middleware.AuditSource)

	// Scan scheduling is rate limited per client IP.
	limitScans := middleware.RateLimitMiddleware(s.scanLimiter)
	scanStart := func(h http.HandlerFunc) http.Handler { return limitScans(h) }

	// Devices
	api.HandleFunc("/devices/statistics/summary", s.DeviceHandler.HandleStatistics).Methods(http.MethodGet)
	api.HandleFunc("/statistics", s.DeviceHandler.HandleStatistics).Methods(http.MethodGet)
	api.HandleFunc("/devices", s.DeviceHandler.HandleList).Methods(http.MethodGet)
	api.HandleFunc("/devices", s.DeviceHandler.HandleCreate).Methods(http.MethodPost)
	api.HandleFunc("/devices/{id}", s.DeviceHandler.HandleGet).Methods(http.MethodGet)
	api.HandleFunc("/devices/{id}", s.DeviceHandler.HandleUpdate).Methods(http.MethodPut)
	api.HandleFunc("/devices/{id}", s.DeviceHandler.HandleDelete).Methods(http.MethodDelete)
	api.Handle("/devices/{id}/scan", scanStart(s.DeviceHandler.HandleScan)).Methods(http.MethodPost)
	api.HandleFunc("/devices/{id}/automation", s.DeviceHandler.HandleAutomation).Methods(http.MethodPost)
	api.HandleFunc("/devices/{id}/power-automate", s.DeviceHandler.HandleAutomation).Methods(http.MethodPost)

	// Scans
	api.Handle("/scans", scanStart(s.ScanHandler.HandleStart)).Methods(http.MethodPost)
	api.Handle("/scans/start", scanStart(s.ScanHandler.HandleStart)).Methods(http.MethodPost)
	api.Handle("/scans/network-discovery", scanStart(s.ScanHandler.HandleNetworkDiscovery)).Methods(http.MethodPost)
	api.Handle("/scans/vulnerability-scan", scanStart(s.ScanHandler.HandleVulnerabilityScan)).Methods(http.MethodPost)
	api.HandleFunc("/scans", s.ScanHandler.HandleList).Methods(http.MethodGet)
	api.HandleFunc("/scans/{id}", s.ScanHandler.HandleGet).Methods(http.MethodGet)
	api.HandleFunc("/scans/{id}", s.ScanHandler.HandleCancel).Methods(http.MethodDelete)

	// Audit and reports
	api.HandleFunc("/audit-logs", s.AuditHandler.HandleGetLogs).Methods(http.MethodGet)
	api.HandleFunc("/reports/inventory.pdf", s.ReportHandler.HandleInventoryPDF).Methods(http.MethodGet)

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
