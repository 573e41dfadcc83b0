package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RegistrationOutcomes = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registration_outcomes_total",
			Help:      "Registration engine operations by outcome",
		},
		[]string{"operation", "result"},
	)

	SeatsClaimed = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "seats_claimed_total",
			Help:      "Seats taken by successful registrations",
		},
	)

	SeatsReleased = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "seats_released_total",
			Help:      "Seats given back by cancellations and user deletion",
		},
	)

	ReconcileDrift = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconcile_drift_total",
			Help:      "Events whose seat bookkeeping disagreed with their registrations",
		},
	)
)

// RegistrationRecorder feeds engine outcomes into the registry.
type RegistrationRecorder struct{}

func (RegistrationRecorder) Outcome(operation, result string) {
	RegistrationOutcomes.WithLabelValues(operation, result).Inc()
}

func (RegistrationRecorder) SeatsChanged(delta int) {
	switch {
	case delta > 0:
		SeatsClaimed.Add(float64(delta))
	case delta < 0:
		SeatsReleased.Add(float64(-delta))
	}
}

// DriftDetected counts the event; the id stays out of the labels.
func (RegistrationRecorder) DriftDetected(string) {
	ReconcileDrift.Inc()
}
