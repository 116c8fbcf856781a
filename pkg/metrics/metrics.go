// Package metrics exposes Prometheus metrics for the sign-in/sign-up flows.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is the metrics surface used by the orchestrator.
type Recorder interface {
	RecordTokenWait(path string, polls int, ready bool)
	RecordPersistAttempt(outcome string)
	RecordRoleGuard(outcome string)
	RecordAuthFailure(kind string)
	RecordForcedSignOut(reason string)
}

// Collector is the Prometheus implementation of Recorder.
type Collector struct {
	tokenPolls      *prometheus.HistogramVec
	tokenExhausted  *prometheus.CounterVec
	persistAttempts *prometheus.CounterVec
	roleGuard       *prometheus.CounterVec
	authFailures    *prometheus.CounterVec
	forcedSignOuts  *prometheus.CounterVec
}

// NewCollector creates a Collector and registers it with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		tokenPolls: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "internify_token_wait_polls",
			Help:    "Polls needed before the database authorization token became available.",
			Buckets: []float64{1, 2, 3, 4, 5, 8, 12, 20},
		}, []string{"path"}),
		tokenExhausted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "internify_token_wait_exhausted_total",
			Help: "Token waits that ran out of attempts or time.",
		}, []string{"path"}),
		persistAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "internify_profile_persist_attempts_total",
			Help: "Profile upsert attempts by outcome.",
		}, []string{"outcome"}),
		roleGuard: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "internify_role_guard_total",
			Help: "Role guard outcomes at sign-in.",
		}, []string{"outcome"}),
		authFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "internify_auth_failures_total",
			Help: "Identity service failures by kind.",
		}, []string{"kind"}),
		forcedSignOuts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "internify_forced_sign_outs_total",
			Help: "Sign-outs forced by the orchestrator.",
		}, []string{"reason"}),
	}

	reg.MustRegister(
		c.tokenPolls,
		c.tokenExhausted,
		c.persistAttempts,
		c.roleGuard,
		c.authFailures,
		c.forcedSignOuts,
	)

	return c
}

func (c *Collector) RecordTokenWait(path string, polls int, ready bool) {
	if !ready {
		c.tokenExhausted.WithLabelValues(path).Inc()
		return
	}
	c.tokenPolls.WithLabelValues(path).Observe(float64(polls))
}

func (c *Collector) RecordPersistAttempt(outcome string) {
	c.persistAttempts.WithLabelValues(outcome).Inc()
}

func (c *Collector) RecordRoleGuard(outcome string) {
	c.roleGuard.WithLabelValues(outcome).Inc()
}

func (c *Collector) RecordAuthFailure(kind string) {
	c.authFailures.WithLabelValues(kind).Inc()
}

func (c *Collector) RecordForcedSignOut(reason string) {
	c.forcedSignOuts.WithLabelValues(reason).Inc()
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// Nop discards everything.
type Nop struct{}

func (Nop) RecordTokenWait(string, int, bool) {}
func (Nop) RecordPersistAttempt(string)       {}
func (Nop) RecordRoleGuard(string)            {}
func (Nop) RecordAuthFailure(string)          {}
func (Nop) RecordForcedSignOut(string)        {}
