package alerting

import "github.com/prometheus/client_golang/prometheus"

type engineMetrics struct {
	alertsCreated       *prometheus.CounterVec
	alertsResolved      *prometheus.CounterVec
	notificationsSent   *prometheus.CounterVec
	notificationsFailed *prometheus.CounterVec
	escalationsExecuted prometheus.Counter
	activeIncidents     prometheus.Gauge
}

func newEngineMetrics(reg prometheus.Registerer) *engineMetrics {
	m := &engineMetrics{
		alertsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pulse_alerts_created_total",
			Help: "Alerts created by the rule evaluation loop, by severity.",
		}, []string{"severity"}),
		alertsResolved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pulse_alerts_resolved_total",
			Help: "Alerts resolved, by resolver kind (system or user).",
		}, []string{"resolver"}),
		notificationsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pulse_notifications_sent_total",
			Help: "Successful notification dispatches, by channel type.",
		}, []string{"channel"}),
		notificationsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pulse_notifications_failed_total",
			Help: "Failed notification dispatches, by channel type.",
		}, []string{"channel"}),
		escalationsExecuted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pulse_escalations_executed_total",
			Help: "Escalation levels executed.",
		}),
		activeIncidents: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pulse_active_incidents",
			Help: "Incidents currently tracked by the escalation loop.",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.alertsCreated,
			m.alertsResolved,
			m.notificationsSent,
			m.notificationsFailed,
			m.escalationsExecuted,
			m.activeIncidents,
		)
	}
	return m
}
