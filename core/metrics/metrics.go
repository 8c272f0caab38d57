// Package metrics exposes Prometheus instrumentation for the conversation flow and transports.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/m3rciful/leadbot/core/flow"
	"github.com/m3rciful/leadbot/core/session"
)

// Collector records flow events and transport activity.
type Collector struct {
	messages       *prometheus.CounterVec
	transitions    *prometheus.CounterVec
	validationFail *prometheus.CounterVec
	commits        *prometheus.CounterVec
	fallbacks      prometheus.Counter
	commitLatency  prometheus.Histogram
	activeSessions prometheus.Gauge
	updates        *prometheus.CounterVec
	rateLimited    prometheus.Counter
	outbound       *prometheus.CounterVec
}

var _ flow.Recorder = (*Collector)(nil)

// NewCollector creates a Collector and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "leadbot_messages_total",
			Help: "Messages handled inside an active session, by step.",
		}, []string{"step"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "leadbot_transitions_total",
			Help: "Step transitions; from is empty when a session starts.",
		}, []string{"from", "to"}),
		validationFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "leadbot_validation_failures_total",
			Help: "Inputs rejected without advancing the step.",
		}, []string{"step"}),
		commits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "leadbot_commits_total",
			Help: "Lead commit attempts by outcome.",
		}, []string{"outcome"}),
		fallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "leadbot_fallback_replies_total",
			Help: "Messages routed to the fallback responder.",
		}),
		commitLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "leadbot_commit_latency_seconds",
			Help:    "Latency of lead sink commits.",
			Buckets: prometheus.DefBuckets,
		}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "leadbot_active_sessions",
			Help: "Sessions currently in progress.",
		}),
		updates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "leadbot_telegram_updates_total",
			Help: "Telegram updates processed, by kind and status.",
		}, []string{"kind", "status"}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "leadbot_rate_limited_total",
			Help: "Telegram updates dropped by the per-user rate limit.",
		}),
		outbound: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "leadbot_outbound_messages_total",
			Help: "Replies sent to users, by platform and status.",
		}, []string{"platform", "status"}),
	}

	reg.MustRegister(
		c.messages,
		c.transitions,
		c.validationFail,
		c.commits,
		c.fallbacks,
		c.commitLatency,
		c.activeSessions,
		c.updates,
		c.rateLimited,
		c.outbound,
	)

	return c
}

func (c *Collector) Message(step session.Step) {
	c.messages.WithLabelValues(string(step)).Inc()
}

func (c *Collector) Transition(from, to session.Step) {
	c.transitions.WithLabelValues(string(from), string(to)).Inc()
}

func (c *Collector) ValidationFailed(step session.Step) {
	c.validationFail.WithLabelValues(string(step)).Inc()
}

// Commit records the outcome and latency of one sink commit.
func (c *Collector) Commit(outcome string, took time.Duration) {
	c.commits.WithLabelValues(outcome).Inc()
	c.commitLatency.Observe(took.Seconds())
}

func (c *Collector) Fallback() {
	c.fallbacks.Inc()
}

func (c *Collector) ActiveSessions(n int) {
	c.activeSessions.Set(float64(n))
}

// Update records one processed Telegram update.
func (c *Collector) Update(kind, status string) {
	c.updates.WithLabelValues(kind, status).Inc()
}

// RateLimited counts an update dropped by the rate limiter.
func (c *Collector) RateLimited() {
	c.rateLimited.Inc()
}

// Outbound records one reply delivery attempt.
func (c *Collector) Outbound(platform string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	c.outbound.WithLabelValues(platform, status).Inc()
}

// Handler returns the Prometheus scrape handler for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
