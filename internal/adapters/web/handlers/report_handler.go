package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/kmransom56/FortiGate-Enterprise-Platform/internal/adapters/reporting"
	"github.com/kmransom56/FortiGate-Enterprise-Platform/internal/core/domain"
	"github.com/kmransom56/FortiGate-Enterprise-Platform/internal/core/ports"
)

// ReportHandler handles report generation
type ReportHandler struct {
	Registry    ports.DeviceRegistry
	Stats       ports.StatisticsService
	Audit       ports.AuditService
	PDFExporter *reporting.PDFExporter
	GeneratedBy string
	logger      *slog.Logger
}

// NewReportHandler creates a new ReportHandler
func NewReportHandler(registry ports.DeviceRegistry, stats ports.StatisticsService, audit ports.AuditService,
	exporter *reporting.PDFExporter, logger *slog.Logger) *ReportHandler {
	return &ReportHandler{
		Registry:    registry,
		Stats:       stats,
		Audit:       audit,
		PDFExporter: exporter,
		GeneratedBy: "netmonitor",
		logger:      componentLogger(logger, "report_handler"),
	}
}

// HandleInventoryPDF renders the inventory and its security rollup as a PDF.
func (h *ReportHandler) HandleInventoryPDF(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Stats.Summarize(r.Context())
	if err != nil {
		respondErr(w, h.logger, "Error generating report", err)
		return
	}

	now := time.Now().UTC()
	report := reporting.InventoryReport{
		ID:          uuid.NewString(),
		GeneratedAt: now,
		GeneratedBy: h.GeneratedBy,
		Statistics:  stats,
		Devices:     h.Registry.All(r.Context()),
	}
	data, err := h.PDFExporter.ExportInventory(report)
	if err != nil {
		respondErr(w, h.logger, "Error generating report", err)
		return
	}

	recordAudit(r.Context(), h.Audit, h.logger, domain.AuditReportExported, report.ID,
		fmt.Sprintf("%d devices", len(report.Devices)))

	filename := fmt.Sprintf("inventory-%s.pdf", now.Format("20060102-150405"))
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		h.logger.Warn("failed to write report", "error", err)
	}
}
