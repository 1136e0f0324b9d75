package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Provider bundles the Prometheus collectors for the auth subsystem.
type Provider struct {
	SecurityEvents   *prometheus.CounterVec
	SecurityAlerts   *prometheus.CounterVec
	TokenRefreshes   prometheus.Counter
	RecoveryAttempts *prometheus.CounterVec
}

// New registers the collectors with the supplied registerer. Passing nil
// uses the default registerer.
func New(namespace string, reg prometheus.Registerer) (*Provider, error) {
	if namespace == "" {
		namespace = "authkit"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "security_events_total",
		Help:      "Security events ingested by the monitor, partitioned by type.",
	}, []string{"type"})

	alerts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "security_alerts_total",
		Help:      "Security alerts raised by the monitor, partitioned by level.",
	}, []string{"level"})

	refreshes := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "token_refreshes_total",
		Help:      "Token refresh operations performed by the lifecycle manager.",
	})

	recoveries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "recovery_attempts_total",
		Help:      "Automatic recovery attempts, partitioned by error category and outcome.",
	}, []string{"category", "outcome"})

	for _, collector := range []prometheus.Collector{events, alerts, refreshes, recoveries} {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return nil, err
			}
		}
	}

	return &Provider{
		SecurityEvents:   events,
		SecurityAlerts:   alerts,
		TokenRefreshes:   refreshes,
		RecoveryAttempts: recoveries,
	}, nil
}
