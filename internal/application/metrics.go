package application

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Computations  *prometheus.CounterVec
	Saves         *prometheus.CounterVec
	Notifications *prometheus.CounterVec
	FlowResets    prometheus.Counter
}

func NewMetrics() *Metrics {
	return &Metrics{
		Computations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "bmitrack_computations_total",
			Help: "Total number of BMI computations by category",
		}, []string{"category"}),

		Saves: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "bmitrack_saves_total",
			Help: "Total number of entry save attempts by outcome",
		}, []string{"outcome"}),

		Notifications: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "bmitrack_notifications_total",
			Help: "Total number of email dispatches by outcome",
		}, []string{"outcome"}),

		FlowResets: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bmitrack_flow_resets_total",
			Help: "Total number of calculator flow resets",
		}),
	}
}

// Nil-safe helpers so call sites in tests can run without a registry.

func (m *Metrics) Computed(category string) {
	if m == nil {
		return
	}
	m.Computations.WithLabelValues(category).Inc()
}

func (m *Metrics) SaveOutcome(outcome string) {
	if m == nil {
		return
	}
	m.Saves.WithLabelValues(outcome).Inc()
}

func (m *Metrics) NotifyOutcome(outcome string) {
	if m == nil {
		return
	}
	m.Notifications.WithLabelValues(outcome).Inc()
}

func (m *Metrics) FlowReset() {
	if m == nil {
		return
	}
	m.FlowResets.Inc()
}
