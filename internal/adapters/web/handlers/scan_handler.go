package handlers

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/kmransom56/FortiGate-Enterprise-Platform/internal/core/domain"
	"github.com/kmransom56/FortiGate-Enterprise-Platform/internal/core/ports"
)

// Scan listing bounds.
const (
	DefaultScanLimit = 50
	MaxScanLimit     = 100
)

// ScanHandler handles scan scheduling and lookup
type ScanHandler struct {
	Orchestrator ports.ScanOrchestrator
	Audit        ports.AuditService
	logger       *slog.Logger
}

// NewScanHandler creates a new ScanHandler
func NewScanHandler(orchestrator ports.ScanOrchestrator, audit ports.AuditService, logger *slog.Logger) *ScanHandler {
	return &ScanHandler{
		Orchestrator: orchestrator,
		Audit:        audit,
		logger:       componentLogger(logger, "scan_handler"),
	}
}

// HandleStart schedules a scan from a ScanRequest body. The scan runs in the
// background; the response carries the queued record.
func (h *ScanHandler) HandleStart(w http.ResponseWriter, r *http.Request) {
	var req domain.ScanRequest
	if err := decodeBody(r, &req); err != nil {
		respondErr(w, h.logger, "Error starting scan", err)
		return
	}
	scan, err := h.Orchestrator.Start(r.Context(), req)
	h.started(w, r, scan, err, fmt.Sprintf("Scan started successfully with ID: %s", scan.ID))
}

// HandleNetworkDiscovery starts a discovery scan of network_range.
func (h *ScanHandler) HandleNetworkDiscovery(w http.ResponseWriter, r *http.Request) {
	scan, err := h.Orchestrator.NetworkDiscovery(r.Context(), r.URL.Query().Get("network_range"))
	h.started(w, r, scan, err, fmt.Sprintf("Network discovery started for %s", scan.Target))
}

// HandleVulnerabilityScan starts an aggressive vulnerability scan of target.
func (h *ScanHandler) HandleVulnerabilityScan(w http.ResponseWriter, r *http.Request) {
	target := r.URL.Query().Get("target")
	scan, err := h.Orchestrator.VulnerabilityScan(r.Context(), target)
	h.started(w, r, scan, err, fmt.Sprintf("Vulnerability scan started for %s", target))
}

func (h *ScanHandler) started(w http.ResponseWriter, r *http.Request, scan domain.Scan, err error, msg string) {
	if err != nil {
		respondErr(w, h.logger, "Error starting scan", err)
		return
	}
	recordAudit(r.Context(), h.Audit, h.logger, domain.AuditScanStarted, scan.ID,
		fmt.Sprintf("%s %s", scan.Type, scan.Target))
	respond(w, http.StatusAccepted, msg, scan)
}

// HandleList returns scans newest first.
func (h *ScanHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", DefaultScanLimit, 1, MaxScanLimit)
	if err != nil {
		respondErr(w, h.logger, "Error retrieving scans", err)
		return
	}
	state := domain.ScanState(r.URL.Query().Get("status"))
	if state != "" && !state.Valid() {
		respondErr(w, h.logger, "Error retrieving scans", domain.NewValidationError("status", string(state), domain.ErrInvalidEnum))
		return
	}

	scans := h.Orchestrator.List(r.Context(), domain.ScanFilter{State: state}, limit)
	respondList(w, fmt.Sprintf("Retrieved %d scans", len(scans)), scans, len(scans))
}

// HandleGet returns one scan.
func (h *ScanHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	scan, err := h.Orchestrator.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondErr(w, h.logger, "Error retrieving scan", err)
		return
	}
	respond(w, http.StatusOK, "Scan status retrieved successfully", scan)
}

// HandleCancel cancels a queued or running scan.
func (h *ScanHandler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if !h.Orchestrator.Cancel(r.Context(), id) {
		respondError(w, http.StatusNotFound, fmt.Sprintf("Scan %s not found or cannot be cancelled", id))
		return
	}
	recordAudit(r.Context(), h.Audit, h.logger, domain.AuditScanCancelled, id, "")
	respond(w, http.StatusOK, fmt.Sprintf("Scan %s cancelled successfully", id), nil)
}
