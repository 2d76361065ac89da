// Package metrics is the Prometheus surface of this engine, exposed at
// /metrics by cmd/identity-sync-engine (spec.md §6). It keeps the
// teacher's prometheus/client_golang vector-plus-MustRegister idiom but
// registers against prometheus.DefaultRegisterer rather than
// controller-runtime's registry, since this engine has no controller
// manager to own one.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// QueueDepth is a gauge for the number of queued orch_request rows
	// per (subcloud, endpoint_type, resource_type) scope.
	QueueDepth = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "identity_sync_queue_depth",
		Help: "Number of queued orch_request rows awaiting processing",
	}, []string{"region", "endpoint_type", "resource_type"})

	// SyncOutcomesTotal counts handler dispositions by resource type and
	// operation (spec.md §4.4 step 3's ok|retry|fatal outcomes).
	SyncOutcomesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "identity_sync_outcomes_total",
		Help: "Total sync-thread handler outcomes",
	}, []string{"region", "resource_type", "operation", "outcome"})

	// EndpointSyncStatus is a gauge mirroring EndpointStatus.SyncStatus as
	// 0=unknown, 1=in-sync, 2=out-of-sync, for dashboards that prefer a
	// Prometheus series over the fault sink.
	EndpointSyncStatus = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "identity_sync_endpoint_status",
		Help: "Per-(subcloud, endpoint_type) sync status (0=unknown, 1=in-sync, 2=out-of-sync)",
	}, []string{"region", "endpoint_type"})

	// AuditPassDuration observes the wall-clock duration of one full
	// RunOnce audit pass across all resource types for a subcloud.
	AuditPassDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "identity_sync_audit_pass_duration_seconds",
		Help:    "Duration of one audit pass across all resource types",
		Buckets: prometheus.DefBuckets,
	}, []string{"region"})

	// FernetRotationsTotal counts fernet key rotation attempts by result.
	FernetRotationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "identity_sync_fernet_rotations_total",
		Help: "Total fernet key rotation attempts",
	}, []string{"result"})
)

// SyncStatusValue maps a subcloudregistry.SyncStatus string to the gauge
// value convention used by EndpointSyncStatus.
func SyncStatusValue(status string) float64 {
	switch status {
	case "in-sync":
		return 1
	case "out-of-sync":
		return 2
	default:
		return 0
	}
}

func init() {
	prometheus.MustRegister(
		QueueDepth,
		SyncOutcomesTotal,
		EndpointSyncStatus,
		AuditPassDuration,
		FernetRotationsTotal,
	)
}
