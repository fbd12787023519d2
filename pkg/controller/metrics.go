package controller

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/senecgrab/senecgrab/pkg/ess"
)

// Metrics describe how the updates are going. They intentionally don't carry
// the telemetry values themselves.
type Metrics struct {
	attempts    *prometheus.CounterVec
	logins      *prometheus.CounterVec
	updates     *prometheus.CounterVec
	lastSuccess prometheus.Gauge
	duration    prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "senecgrab_update_attempts_total",
			Help: "Login and refresh attempts by result",
		}, []string{"result"}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "senecgrab_logins_total",
			Help: "Logins to the SENEC portal by result",
		}, []string{"result"}),
		updates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "senecgrab_updates_total",
			Help: "Updates by result (success or gave_up)",
		}, []string{"result"}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "senecgrab_last_success_timestamp_seconds",
			Help: "Unix time of the last successful update",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "senecgrab_update_duration_seconds",
			Help:    "Time taken by an update including retries",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
	}
	reg.MustRegister(m.attempts, m.logins, m.updates, m.lastSuccess, m.duration)
	return m
}

// resultLabel buckets an error into a low cardinality label.
func resultLabel(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ess.ErrFormNotFound):
		return "form_not_found"
	case errors.Is(err, ess.ErrAuthentication):
		return "authentication"
	case errors.Is(err, ess.ErrSessionExpired):
		return "session_expired"
	case errors.Is(err, ess.ErrMalformedResponse):
		return "malformed"
	case errors.Is(err, ess.ErrTransport):
		return "transport"
	default:
		return "error"
	}
}
