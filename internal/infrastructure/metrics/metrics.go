package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// reconciliation
	ReconcilePasses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "netstate_reconcile_passes_total",
			Help: "Total number of reconciliation passes",
		},
		[]string{"status"}, // success, invalid, failed
	)

	ReconcileDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "netstate_reconcile_duration_seconds",
			Help:    "Time spent in one reconcile, compile and apply pass",
			Buckets: prometheus.DefBuckets,
		},
	)

	InterfacesChanged = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "netstate_interfaces_changed",
			Help: "Number of interfaces changed by the last pass",
		},
	)

	// profiles
	ProfilesCompiled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "netstate_profiles_compiled_total",
			Help: "Total number of connection profiles compiled",
		},
		[]string{"type"},
	)

	ProfilesApplied = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "netstate_profiles_applied_total",
			Help: "Total number of connection profiles written and activated",
		},
	)

	ProfilesDeleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "netstate_profiles_deleted_total",
			Help: "Total number of connection profiles removed",
		},
	)

	ProfileDrifts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "netstate_profile_drifts_total",
			Help: "Total number of profiles differing from the stored copy",
		},
		[]string{"drift_type"}, // new, changed
	)

	VerificationFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "netstate_verification_failures_total",
			Help: "Total number of post-apply verification failures",
		},
	)

	Rollbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "netstate_rollbacks_total",
			Help: "Total number of rollbacks",
		},
		[]string{"status"}, // success, failed
	)

	// polling
	PollingCycleCount = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "netstate_polling_cycles_total",
			Help: "Total number of polling cycles executed",
		},
	)

	PollingCycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "netstate_polling_cycle_duration_seconds",
			Help:    "Time spent in each polling cycle",
			Buckets: prometheus.DefBuckets,
		},
	)

	PollingBackoffLevel = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "netstate_polling_backoff_level",
			Help: "Current backoff level (0 = no backoff)",
		},
	)

	DBConnectionStatus = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "netstate_db_connection_status",
			Help: "Profile store connection status (1 = connected, 0 = disconnected)",
		},
	)

	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "netstate_errors_total",
			Help: "Total number of errors encountered",
		},
		[]string{"error_type"},
	)

	AgentInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "netstate_agent_info",
			Help: "Agent information",
		},
		[]string{"version", "os_type", "node_name"},
	)
)

// RecordReconcile records the outcome and duration of one pass
func RecordReconcile(status string, duration float64, changed int) {
	ReconcilePasses.WithLabelValues(status).Inc()
	ReconcileDuration.Observe(duration)
	InterfacesChanged.Set(float64(changed))
}

// RecordProfileCompiled counts one compiled profile of the given type
func RecordProfileCompiled(profileType string) {
	ProfilesCompiled.WithLabelValues(profileType).Inc()
}

// RecordProfilesApplied counts applied and deleted profiles
func RecordProfilesApplied(applied, deleted int) {
	ProfilesApplied.Add(float64(applied))
	ProfilesDeleted.Add(float64(deleted))
}

// RecordDrift records a profile drift
func RecordDrift(driftType string) {
	ProfileDrifts.WithLabelValues(driftType).Inc()
}

// RecordVerificationFailure counts a failed verification
func RecordVerificationFailure() {
	VerificationFailures.Inc()
}

// RecordRollback counts a rollback attempt
func RecordRollback(success bool) {
	if success {
		Rollbacks.WithLabelValues("success").Inc()
	} else {
		Rollbacks.WithLabelValues("failed").Inc()
	}
}

// RecordPollingCycle records polling cycle metrics
func RecordPollingCycle(duration float64) {
	PollingCycleCount.Inc()
	PollingCycleDuration.Observe(duration)
}

// RecordError records an error by kind
func RecordError(errorType string) {
	ErrorsTotal.WithLabelValues(errorType).Inc()
}

// SetBackoffLevel sets the current backoff level
func SetBackoffLevel(level float64) {
	PollingBackoffLevel.Set(level)
}

// SetDBConnectionStatus sets the profile store connection status
func SetDBConnectionStatus(connected bool) {
	if connected {
		DBConnectionStatus.Set(1)
	} else {
		DBConnectionStatus.Set(0)
	}
}

// SetAgentInfo sets agent information
func SetAgentInfo(version, osType, nodeName string) {
	AgentInfo.WithLabelValues(version, osType, nodeName).Set(1)
}
