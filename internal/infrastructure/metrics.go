package infrastructure

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the service's Prometheus collectors. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	webhookEvents *prometheus.CounterVec
	replyJobs     *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
	queueDepth    prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		webhookEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "crm",
			Name:      "webhook_events_total",
			Help:      "Inbound webhook deliveries by source, event type and outcome.",
		}, []string{"source", "event", "outcome"}),
		replyJobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "crm",
			Name:      "reply_jobs_total",
			Help:      "Reply jobs by outcome.",
		}, []string{"outcome"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "crm",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "crm",
			Name:      "reply_queue_depth",
			Help:      "Jobs waiting in the in-memory reply queue.",
		}),
	}
	reg.MustRegister(m.webhookEvents, m.replyJobs, m.httpDuration, m.queueDepth)
	return m
}

func (m *Metrics) WebhookEvent(source, event, outcome string) {
	if m == nil {
		return
	}
	m.webhookEvents.WithLabelValues(source, event, outcome).Inc()
}

func (m *Metrics) ReplyJob(outcome string) {
	if m == nil {
		return
	}
	m.replyJobs.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveHTTP(method, route, status string, seconds float64) {
	if m == nil {
		return
	}
	m.httpDuration.WithLabelValues(method, route, status).Observe(seconds)
}

func (m *Metrics) SetQueueDepth(n int) {
	if m == nil {
		return
	}
	m.queueDepth.Set(float64(n))
}
