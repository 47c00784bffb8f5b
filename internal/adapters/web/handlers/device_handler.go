package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/kmransom56/FortiGate-Enterprise-Platform/internal/core/domain"
	"github.com/kmransom56/FortiGate-Enterprise-Platform/internal/core/ports"
)

// Device listing bounds.
const (
	DefaultDeviceLimit = 100
	MaxDeviceLimit     = 1000
)

// DeviceHandler serves the device inventory endpoints.
type DeviceHandler struct {
	Registry     ports.DeviceRegistry
	Orchestrator ports.ScanOrchestrator
	Trigger      ports.AutomationTrigger
	Stats        ports.StatisticsService
	Audit        ports.AuditService
	logger       *slog.Logger
}

// NewDeviceHandler creates a new DeviceHandler
func NewDeviceHandler(registry ports.DeviceRegistry, orchestrator ports.ScanOrchestrator, trigger ports.AutomationTrigger,
	stats ports.StatisticsService, audit ports.AuditService, logger *slog.Logger) *DeviceHandler {
	return &DeviceHandler{
		Registry:     registry,
		Orchestrator: orchestrator,
		Trigger:      trigger,
		Stats:        stats,
		Audit:        audit,
		logger:       componentLogger(logger, "device_handler"),
	}
}

// HandleList returns a filtered page of devices.
func (h *DeviceHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	skip, err := queryInt(r, "skip", 0, 0, 0)
	if err != nil {
		respondErr(w, h.logger, "Error retrieving devices", err)
		return
	}
	limit, err := queryInt(r, "limit", DefaultDeviceLimit, 1, MaxDeviceLimit)
	if err != nil {
		respondErr(w, h.logger, "Error retrieving devices", err)
		return
	}

	q := r.URL.Query()
	deviceType := q.Get("device_type")
	if deviceType == "" {
		deviceType = q.Get("type")
	}
	filter := domain.DeviceFilter{
		Type:   domain.DeviceType(deviceType),
		Status: domain.DeviceStatus(q.Get("status")),
	}

	devices, err := h.Registry.List(r.Context(), filter, skip, limit)
	if err != nil {
		respondErr(w, h.logger, "Error retrieving devices", err)
		return
	}
	respondList(w, fmt.Sprintf("Retrieved %d devices", len(devices)), devices, len(devices))
}

// HandleCreate registers a device from a DeviceSpec body.
func (h *DeviceHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var spec domain.DeviceSpec
	if err := decodeBody(r, &spec); err != nil {
		respondErr(w, h.logger, "Error creating device", err)
		return
	}

	device, err := h.Registry.Create(r.Context(), spec)
	if err != nil {
		respondErr(w, h.logger, "Error creating device", err)
		return
	}
	h.audit(r.Context(), domain.AuditDeviceCreated, device.ID, device.PrimaryIP)
	respond(w, http.StatusCreated, "Device created successfully", device)
}

// HandleGet returns one device.
func (h *DeviceHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	device, err := h.Registry.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondErr(w, h.logger, "Error retrieving device", err)
		return
	}
	respond(w, http.StatusOK, "Device retrieved successfully", device)
}

// HandleUpdate applies a sparse patch.
func (h *DeviceHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var patch domain.DevicePatch
	if err := decodeBody(r, &patch); err != nil {
		respondErr(w, h.logger, "Error updating device", err)
		return
	}

	device, err := h.Registry.Update(r.Context(), id, patch)
	if err != nil {
		respondErr(w, h.logger, "Error updating device", err)
		return
	}
	h.audit(r.Context(), domain.AuditDeviceUpdated, id, "")
	respond(w, http.StatusOK, "Device updated successfully", device)
}

// HandleDelete removes a device.
func (h *DeviceHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	removed, err := h.Registry.Delete(r.Context(), id)
	if err != nil {
		respondErr(w, h.logger, "Error deleting device", err)
		return
	}
	if !removed {
		respondError(w, http.StatusNotFound, fmt.Sprintf("Device %s not found", id))
		return
	}
	h.audit(r.Context(), domain.AuditDeviceDeleted, id, "")
	respond(w, http.StatusOK, "Device deleted successfully", nil)
}

// HandleScan runs a synchronous port and vulnerability scan of one device.
func (h *DeviceHandler) HandleScan(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	device, err := h.Orchestrator.ScanDevice(r.Context(), id)
	if err != nil {
		respondErr(w, h.logger, "Error scanning device", err)
		return
	}
	h.audit(r.Context(), domain.AuditDeviceScanned, id,
		fmt.Sprintf("%d open ports, %d vulnerabilities", len(device.OpenPorts), len(device.Vulnerabilities)))
	respond(w, http.StatusOK, "Device scan completed successfully", device)
}

// HandleAutomation fires the action named by the action query parameter.
func (h *DeviceHandler) HandleAutomation(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	action := domain.AutomationAction(r.URL.Query().Get("action"))
	if action == "" {
		respondErr(w, h.logger, "Error triggering automation", domain.NewValidationError("action", "", domain.ErrRequired))
		return
	}
	if !action.Valid() {
		respondErr(w, h.logger, "Error triggering automation", domain.NewValidationError("action", string(action), domain.ErrInvalidEnum))
		return
	}

	if !h.Trigger.Fire(r.Context(), id, action) {
		respondError(w, http.StatusNotFound, fmt.Sprintf("Device %s not found or automation failed", id))
		return
	}
	h.audit(r.Context(), domain.AuditAutomationFired, id, string(action))
	respond(w, http.StatusOK, fmt.Sprintf("Automation action '%s' triggered successfully for device %s", action, id), nil)
}

// HandleStatistics returns the inventory rollup.
func (h *DeviceHandler) HandleStatistics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Stats.Summarize(r.Context())
	if err != nil {
		respondErr(w, h.logger, "Error retrieving statistics", err)
		return
	}
	respond(w, http.StatusOK, "Statistics retrieved successfully", stats)
}

func (h *DeviceHandler) audit(ctx context.Context, action domain.AuditAction, target, details string) {
	recordAudit(ctx, h.Audit, h.logger, action, target, details)
}

// recordAudit logs a failed audit write instead of failing the request.
func recordAudit(ctx context.Context, svc ports.AuditService, logger *slog.Logger, action domain.AuditAction, target, details string) {
	if svc == nil {
		return
	}
	if err := svc.Log(ctx, action, target, details); err != nil {
		logger.Warn("audit log failed", "action", action, "target", target, "error", err)
	}
}
