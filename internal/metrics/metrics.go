package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	PressesAccepted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "goodbomb_presses_accepted_total",
			Help: "Total presses committed to the round",
		},
	)
	PressesRejected = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "goodbomb_presses_rejected_total",
			Help: "Total presses rejected by the round engine",
		},
	)
	RoundsSettled = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "goodbomb_rounds_settled_total",
			Help: "Total rounds that exploded and were settled",
		},
	)
	PaymentsConfirmed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "goodbomb_payments_confirmed_total",
			Help: "Total payment intents confirmed by the provider",
		},
	)
)

func init() {
	prometheus.MustRegister(PressesAccepted)
	prometheus.MustRegister(PressesRejected)
	prometheus.MustRegister(RoundsSettled)
	prometheus.MustRegister(PaymentsConfirmed)
}

// RegisterWSClients exposes the live WebSocket client count as a gauge.
// Called once at startup after the hub exists.
func RegisterWSClients(count func() float64) {
	prometheus.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "goodbomb_ws_clients",
			Help: "Currently connected WebSocket clients",
		},
		count,
	))
}
