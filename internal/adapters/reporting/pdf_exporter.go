// Package reporting renders the device inventory as a PDF report.
package reporting

import (
	"bytes"
	"fmt"
	"sort"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/kmransom56/FortiGate-Enterprise-Platform/internal/core/domain"
)

// InventoryReport is everything the PDF renders.
type InventoryReport struct {
	ID          string
	Title       string
	GeneratedAt time.Time
	GeneratedBy string
	Statistics  domain.Statistics
	Devices     []domain.Device
}

// PDFExporter exports reports to PDF format
type PDFExporter struct{}

// NewPDFExporter creates a new PDF exporter instance
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// ExportInventory renders report. Devices are listed lowest score first.
func (e *PDFExporter) ExportInventory(report InventoryReport) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFooterFunc(func() { e.addFooter(pdf, report) })
	pdf.AddPage()

	e.addHeader(pdf, report)
	e.addScore(pdf, report.Statistics.SecuritySummary.AverageSecurityScore)
	e.addStatistics(pdf, report.Statistics)
	e.addDeviceTable(pdf, report.Devices)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}
	return buf.Bytes(), nil
}

func (e *PDFExporter) addHeader(pdf *gofpdf.Fpdf, report InventoryReport) {
	title := report.Title
	if title == "" {
		title = "Network Device Inventory"
	}
	pdf.SetFont("Arial", "B", 24)
	pdf.SetTextColor(0, 51, 102)
	pdf.CellFormat(0, 15, title, "", 1, "L", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Arial", "", 10)
	pdf.SetTextColor(120, 120, 120)
	dateStr := fmt.Sprintf("Generated: %s", report.GeneratedAt.Format("2006-01-02 15:04"))
	pdf.CellFormat(0, 6, dateStr, "", 1, "L", false, 0, "")
	pdf.Ln(8)
}

// addScore draws the average security score box.
func (e *PDFExporter) addScore(pdf *gofpdf.Fpdf, score float64) {
	r, g, b := scoreColor(score)
	pdf.SetFillColor(r, g, b)
	y := pdf.GetY()
	pdf.Rect(20, y, 170, 30, "F")

	pdf.SetFont("Arial", "B", 36)
	pdf.SetTextColor(255, 255, 255)
	pdf.SetXY(25, y+5)
	pdf.CellFormat(80, 20, fmt.Sprintf("%.1f/100", score), "", 0, "L", false, 0, "")

	pdf.SetFont("Arial", "B", 18)
	pdf.SetXY(110, y+8)
	pdf.CellFormat(80, 14, "Average Security Score", "", 0, "L", false, 0, "")

	pdf.SetY(y + 35)
	pdf.Ln(5)
}

// scoreColor is green for healthy inventories and red below the critical
// device threshold.
func scoreColor(score float64) (r, g, b int) {
	switch {
	case score < domain.CriticalScoreThreshold:
		return 220, 53, 69
	case score < 70:
		return 255, 149, 0
	case score < 85:
		return 255, 204, 0
	default:
		return 52, 199, 89
	}
}

func (e *PDFExporter) addStatistics(pdf *gofpdf.Fpdf, stats domain.Statistics) {
	pdf.SetFont("Arial", "B", 14)
	pdf.SetTextColor(0, 51, 102)
	pdf.CellFormat(0, 10, "Security Overview", "", 1, "L", false, 0, "")
	pdf.Ln(2)

	sec := stats.SecuritySummary
	bySev := sec.VulnerabilitiesBySeverity
	rows := []struct {
		label string
		value int
		color []int
	}{
		{"Total Devices", stats.TotalDevices, []int{0, 102, 204}},
		{"Total Vulnerabilities", sec.TotalVulnerabilities, []int{0, 102, 204}},
		{"Critical Devices", sec.CriticalDevices, []int{220, 53, 69}},
		{"Devices At Risk", sec.DevicesAtRisk, []int{255, 149, 0}},
		{"Critical", bySev[domain.SeverityCritical], []int{220, 53, 69}},
		{"High", bySev[domain.SeverityHigh], []int{255, 149, 0}},
		{"Medium", bySev[domain.SeverityMedium], []int{255, 204, 0}},
		{"Low", bySev[domain.SeverityLow], []int{52, 199, 89}},
		{"Scans (24h)", stats.RecentActivity.ScansLast24h, []int{0, 102, 204}},
		{"Automation Triggers", stats.RecentActivity.AutomationTriggers, []int{150, 150, 150}},
	}

	colWidth := 85.0
	for i, row := range rows {
		x := 20.0
		if i%2 == 1 {
			x = 105.0
		}
		pdf.SetXY(x, pdf.GetY())

		pdf.SetFont("Arial", "", 10)
		pdf.SetTextColor(100, 100, 100)
		pdf.CellFormat(50, 7, row.label+":", "", 0, "L", false, 0, "")

		pdf.SetFont("Arial", "B", 11)
		pdf.SetTextColor(row.color[0], row.color[1], row.color[2])
		pdf.CellFormat(colWidth-50, 7, fmt.Sprintf("%d", row.value), "", 0, "R", false, 0, "")

		if i%2 == 1 {
			pdf.Ln(7)
		}
	}
	pdf.Ln(10)
}

var deviceColumns = []struct {
	title string
	width float64
	align string
}{
	{"Device", 50, "L"},
	{"IP Address", 30, "L"},
	{"Type", 28, "L"},
	{"Status", 20, "C"},
	{"Score", 18, "C"},
	{"Vulns", 14, "C"},
	{"Ports", 10, "C"},
}

func (e *PDFExporter) addDeviceTable(pdf *gofpdf.Fpdf, devices []domain.Device) {
	pdf.SetFont("Arial", "B", 14)
	pdf.SetTextColor(0, 51, 102)
	pdf.CellFormat(0, 10, "Devices", "", 1, "L", false, 0, "")
	pdf.Ln(2)

	if len(devices) == 0 {
		pdf.SetFont("Arial", "I", 10)
		pdf.SetTextColor(100, 100, 100)
		pdf.CellFormat(0, 7, "No devices in inventory", "", 1, "L", false, 0, "")
		return
	}

	sorted := make([]domain.Device, len(devices))
	copy(sorted, devices)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].SecurityScore < sorted[j].SecurityScore
	})

	e.addTableHeader(pdf)
	pdf.SetFont("Arial", "", 9)
	for _, d := range sorted {
		if pdf.GetY() > 265 {
			pdf.AddPage()
			e.addTableHeader(pdf)
			pdf.SetFont("Arial", "", 9)
		}

		name := d.DeviceName
		if name == "" {
			name = d.Hostname
		}
		if name == "" {
			name = d.ID
		}
		if len(name) > 28 {
			name = name[:25] + "..."
		}

		cells := []string{
			name,
			d.PrimaryIP,
			d.Type.Title(),
			string(d.Status),
			fmt.Sprintf("%.0f", d.SecurityScore),
			fmt.Sprintf("%d", len(d.Vulnerabilities)),
			fmt.Sprintf("%d", len(d.OpenPorts)),
		}
		for i, c := range cells {
			pdf.SetTextColor(60, 60, 60)
			if i == 4 {
				r, g, b := scoreColor(d.SecurityScore)
				pdf.SetTextColor(r, g, b)
			}
			ln := 0
			if i == len(cells)-1 {
				ln = 1
			}
			col := deviceColumns[i]
			pdf.CellFormat(col.width, 7, c, "1", ln, col.align, false, 0, "")
		}
	}
}

func (e *PDFExporter) addTableHeader(pdf *gofpdf.Fpdf) {
	pdf.SetFillColor(240, 240, 240)
	pdf.SetFont("Arial", "B", 10)
	pdf.SetTextColor(60, 60, 60)
	for i, col := range deviceColumns {
		ln := 0
		if i == len(deviceColumns)-1 {
			ln = 1
		}
		pdf.CellFormat(col.width, 8, col.title, "1", ln, "C", true, 0, "")
	}
}

func (e *PDFExporter) addFooter(pdf *gofpdf.Fpdf, report InventoryReport) {
	pdf.SetY(-15)
	pdf.SetDrawColor(200, 200, 200)
	pdf.Line(20, pdf.GetY(), 190, pdf.GetY())
	pdf.Ln(2)

	pdf.SetFont("Arial", "I", 8)
	pdf.SetTextColor(120, 120, 120)
	id := report.ID
	if len(id) > 8 {
		id = id[:8]
	}
	footer := fmt.Sprintf("Generated by %s | Report ID: %s | Page %d", report.GeneratedBy, id, pdf.PageNo())
	pdf.CellFormat(0, 5, footer, "", 1, "C", false, 0, "")
}
