package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all application metrics
type Metrics struct {
	// Webhook metrics
	WebhookDeliveries *prometheus.CounterVec
	WebhookLatency    prometheus.Histogram

	// Dashboard cache metrics
	DashboardLoads   *prometheus.CounterVec
	DashboardPatches *prometheus.CounterVec
	DashboardBoards  prometheus.Gauge
	RefreshRuns      *prometheus.CounterVec

	// Integration metrics
	ReportUploads *prometheus.CounterVec
	ExternalCalls *prometheus.CounterVec
	RelayMessages *prometheus.CounterVec

	// Database metrics
	DatabaseOperations *prometheus.CounterVec
}

// New builds an unregistered metric set.
func New(namespace string) *Metrics {
	return &Metrics{
		WebhookDeliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_deliveries_total",
			Help:      "Outbound webhook attempts by event and result",
		}, []string{"event", "result"}),
		WebhookLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "webhook_delivery_duration_seconds",
			Help:      "Time spent delivering webhook notifications",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}),
		DashboardLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dashboard_loads_total",
			Help:      "Dashboard data loads by scope and status",
		}, []string{"scope", "status"}),
		DashboardPatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dashboard_patches_total",
			Help:      "Optimistic dashboard patches by event type",
		}, []string{"event"}),
		DashboardBoards: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dashboard_boards",
			Help:      "Number of live dashboard boards",
		}),
		RefreshRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dashboard_refresh_runs_total",
			Help:      "Background refresh passes by status",
		}, []string{"status"}),
		ReportUploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "report_uploads_total",
			Help:      "Medical report uploads by result",
		}, []string{"result"}),
		ExternalCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "external_calls_total",
			Help:      "Calls to external HTTP services by service and status",
		}, []string{"service", "status"}),
		RelayMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relay_messages_total",
			Help:      "Event relay messages by direction",
		}, []string{"direction"}),
		DatabaseOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "database_operations_total",
			Help:      "Total number of database operations",
		}, []string{"operation", "status"}),
	}
}

// NewMetrics creates the metric set and registers it with reg.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	m := New(namespace)
	reg.MustRegister(
		m.WebhookDeliveries,
		m.WebhookLatency,
		m.DashboardLoads,
		m.DashboardPatches,
		m.DashboardBoards,
		m.RefreshRuns,
		m.ReportUploads,
		m.ExternalCalls,
		m.RelayMessages,
		m.DatabaseOperations,
	)
	return m
}

// The helpers below accept a nil receiver so components can run without
// metrics in tests and tools.

func (m *Metrics) ObserveWebhook(event, result string, d time.Duration) {
	if m == nil {
		return
	}
	m.WebhookDeliveries.WithLabelValues(event, result).Inc()
	m.WebhookLatency.Observe(d.Seconds())
}

func (m *Metrics) DashboardLoad(scope, status string) {
	if m == nil {
		return
	}
	m.DashboardLoads.WithLabelValues(scope, status).Inc()
}

func (m *Metrics) DashboardPatch(event string) {
	if m == nil {
		return
	}
	m.DashboardPatches.WithLabelValues(event).Inc()
}

func (m *Metrics) SetBoards(n int) {
	if m == nil {
		return
	}
	m.DashboardBoards.Set(float64(n))
}

func (m *Metrics) RefreshRun(status string) {
	if m == nil {
		return
	}
	m.RefreshRuns.WithLabelValues(status).Inc()
}

func (m *Metrics) ReportUpload(result string) {
	if m == nil {
		return
	}
	m.ReportUploads.WithLabelValues(result).Inc()
}

func (m *Metrics) ExternalCall(service, status string) {
	if m == nil {
		return
	}
	m.ExternalCalls.WithLabelValues(service, status).Inc()
}

func (m *Metrics) RelayMessage(direction string) {
	if m == nil {
		return
	}
	m.RelayMessages.WithLabelValues(direction).Inc()
}

func (m *Metrics) DatabaseOperation(operation string, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.DatabaseOperations.WithLabelValues(operation, status).Inc()
}
