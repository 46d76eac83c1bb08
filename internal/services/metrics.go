package services

import "github.com/prometheus/client_golang/prometheus"

var (
	medicationsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "medremind_medications_created_total",
			Help: "Total number of medications added.",
		},
	)

	// dosesRecorded is labelled by taken ("true"/"false").
	dosesRecorded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "medremind_doses_recorded_total",
			Help: "Total number of ledger entries recorded.",
		},
		[]string{"taken"},
	)

	remindersDispatched = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "medremind_reminders_dispatched_total",
			Help: "Total number of dose reminders handed to the notifier.",
		},
	)

	refillAlerts = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "medremind_refill_alerts",
			Help: "Number of medications needing a refill at the last check.",
		},
	)
)

func init() {
	prometheus.MustRegister(medicationsCreated, dosesRecorded, remindersDispatched, refillAlerts)
}
