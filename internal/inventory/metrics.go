package inventory

import "github.com/prometheus/client_golang/prometheus"

// Prometheus engine metrics.
var (
	cyclesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleetmap_inventory_cycles_total",
			Help: "Tenant reconciliation cycles by result (published, unchanged, failed).",
		},
		[]string{"result"},
	)
	cycleDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fleetmap_inventory_cycle_duration_seconds",
			Help:    "Duration of a single tenant reconciliation cycle.",
			Buckets: prometheus.DefBuckets,
		},
	)
	broadcastFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "fleetmap_inventory_broadcast_failures_total",
			Help: "Snapshot broadcasts that failed after a successful persist.",
		},
	)
	tenantDevices = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "fleetmap_inventory_devices",
			Help: "Devices in the last published snapshot, by tenant and bucket.",
		},
		[]string{"tenant", "bucket"},
	)
)

func init() {
	prometheus.MustRegister(cyclesTotal, cycleDuration, broadcastFailures, tenantDevices)
}

const (
	resultPublished = "published"
	resultUnchanged = "unchanged"
	resultFailed    = "failed"
)

func observeSummary(tenantID string, c Classification) {
	s := c.Summary()
	tenantDevices.WithLabelValues(tenantID, "all").Set(float64(s.All))
	tenantDevices.WithLabelValues(tenantID, "active").Set(float64(s.Active))
	tenantDevices.WithLabelValues(tenantID, "inactive").Set(float64(s.Inactive))
	tenantDevices.WithLabelValues(tenantID, "routers").Set(float64(s.Routers))
	tenantDevices.WithLabelValues(tenantID, "unknown").Set(float64(s.Unknown))
}
