// Package metrics exposes Prometheus series for the breakout engine:
//
//   - orb_orders_total{purpose,side}              order requests produced
//   - orb_order_acks_total{status,applied}        broker acknowledgements seen
//   - orb_trade_results_total{direction,outcome}  TradeResult rows appended
//   - orb_trade_points_net{direction}             net realised points
//   - orb_fatal_alerts_total{kind}                escalations raised
//   - orb_day_state                               current lifecycle state ordinal
//   - orb_skipped_days_total{reason}              days without a usable range
//
// All series are registered on the default registry in init and served at
// /metrics by cmd/bot.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	Orders = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orb_orders_total",
			Help: "Order requests produced by the state machine",
		},
		[]string{"purpose", "side"},
	)

	Acks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orb_order_acks_total",
			Help: "Broker order acknowledgements by status and whether they changed state",
		},
		[]string{"status", "applied"},
	)

	Results = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orb_trade_results_total",
			Help: "Trade results appended, by direction and outcome",
		},
		[]string{"direction", "outcome"},
	)

	// Gauge rather than counter: points go negative on stop hits.
	PointsNet = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "orb_trade_points_net",
			Help: "Net realised points by direction",
		},
		[]string{"direction"},
	)

	FatalAlerts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orb_fatal_alerts_total",
			Help: "Escalations raised on the alert channel",
		},
		[]string{"kind"},
	)

	DayState = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "orb_day_state",
			Help: "Lifecycle state of the current trading day (0=NO_RANGE ... 6=CLOSED)",
		},
	)

	SkippedDays = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orb_skipped_days_total",
			Help: "Trading days skipped without risk levels",
		},
		[]string{"reason"},
	)
)

func init() {
	prometheus.MustRegister(Orders, Acks, Results, PointsNet, FatalAlerts, DayState, SkippedDays)
}

func IncOrder(purpose, side string) { Orders.WithLabelValues(purpose, side).Inc() }

func IncAck(status string, applied bool) {
	a := "false"
	if applied {
		a = "true"
	}
	Acks.WithLabelValues(status, a).Inc()
}

func ObserveResult(direction, outcome string, points float64) {
	Results.WithLabelValues(direction, outcome).Inc()
	PointsNet.WithLabelValues(direction).Add(points)
}

func IncFatal(kind string) { FatalAlerts.WithLabelValues(kind).Inc() }
func SetDayState(ordinal int) { DayState.Set(float64(ordinal)) }
func IncSkippedDay(reason string) { SkippedDays.WithLabelValues(reason).Inc() }
