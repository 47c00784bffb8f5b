package handlers

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/kmransom56/FortiGate-Enterprise-Platform/internal/core/ports"
)

// Audit listing bounds.
const (
	DefaultAuditLimit = 100
	MaxAuditLimit     = 1000
)

// AuditHandler handles audit logging operations
type AuditHandler struct {
	Service ports.AuditService
	logger  *slog.Logger
}

// NewAuditHandler creates a new AuditHandler
func NewAuditHandler(service ports.AuditService, logger *slog.Logger) *AuditHandler {
	return &AuditHandler{
		Service: service,
		logger:  componentLogger(logger, "audit_handler"),
	}
}

// HandleGetLogs returns audit logs, newest first
func (h *AuditHandler) HandleGetLogs(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", DefaultAuditLimit, 1, MaxAuditLimit)
	if err != nil {
		respondErr(w, h.logger, "Failed to fetch audit logs", err)
		return
	}

	logs, err := h.Service.GetLogs(r.Context(), limit)
	if err != nil {
		respondErr(w, h.logger, "Failed to fetch audit logs", err)
		return
	}
	respondList(w, fmt.Sprintf("Retrieved %d audit logs", len(logs)), logs, len(logs))
}
