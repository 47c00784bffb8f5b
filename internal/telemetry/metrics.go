package telemetry

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// ScansStarted counts scans accepted by the orchestrator
	ScansStarted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "netmonitor",
			Name:      "scans_started_total",
			Help:      "Total number of scans accepted",
		},
		[]string{"scan_type"},
	)

	// ScansFinished counts scans reaching a terminal state
	ScansFinished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "netmonitor",
			Name:      "scans_finished_total",
			Help:      "Total number of scans that reached a terminal state",
		},
		[]string{"scan_type", "state"},
	)

	// ScanDuration observes wall-clock scan execution time
	ScanDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "netmonitor",
			Name:      "scan_duration_seconds",
			Help:      "Scan execution time in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 180, 300},
		},
		[]string{"scan_type"},
	)

	// ActiveScans tracks scans currently holding an execution slot
	ActiveScans = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "netmonitor",
			Name:      "active_scans",
			Help:      "Number of scans currently executing",
		},
	)

	// DevicesCreated counts devices added to the inventory
	DevicesCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "netmonitor",
			Name:      "devices_created_total",
			Help:      "Total number of devices added to the inventory",
		},
		[]string{"source"},
	)

	// AutomationDeliveries counts automation events by sink and result
	AutomationDeliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "netmonitor",
			Name:      "automation_deliveries_total",
			Help:      "Total number of automation delivery attempts",
		},
		[]string{"action", "sink", "result"},
	)

	// VendorLookups counts fallback vendor resolutions
	VendorLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "netmonitor",
			Name:      "vendor_lookups_total",
			Help:      "Total number of fallback vendor lookups",
		},
		[]string{"source", "result"},
	)

	// PersistenceErrors counts failed write-behind flushes
	PersistenceErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "netmonitor",
			Name:      "persistence_errors_total",
			Help:      "Total number of failed persistence flushes",
		},
		[]string{"entity"},
	)

	// Ensure metrics are only registered once
	once sync.Once
)

// InitMetrics registers all metrics with the global Prometheus registry
// This function is idempotent and can be called multiple times safely
func InitMetrics() {
	once.Do(func() {
		// Already-registered collectors are ignored
		prometheus.DefaultRegisterer.Register(ScansStarted)
		prometheus.DefaultRegisterer.Register(ScansFinished)
		prometheus.DefaultRegisterer.Register(ScanDuration)
		prometheus.DefaultRegisterer.Register(ActiveScans)
		prometheus.DefaultRegisterer.Register(DevicesCreated)
		prometheus.DefaultRegisterer.Register(AutomationDeliveries)
		prometheus.DefaultRegisterer.Register(VendorLookups)
		prometheus.DefaultRegisterer.Register(PersistenceErrors)
	})
}
