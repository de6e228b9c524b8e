package sendmail

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	execDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mail_sendmail_duration_seconds",
			Help:    "Duration of sendmail command runs",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"command", "status"},
	)

	execTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mail_sendmail_executions_total",
			Help: "Number of sendmail command runs",
		},
		[]string{"command", "status"},
	)
)

func init() {
	prometheus.MustRegister(execDuration, execTotal)
}

func recordExecution(command, status string, seconds float64) {
	execDuration.WithLabelValues(command, status).Observe(seconds)
	execTotal.WithLabelValues(command, status).Inc()
}
