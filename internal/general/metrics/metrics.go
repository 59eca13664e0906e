package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the gateway's instrumentation. One instance per process,
// registered against its own registry so tests can construct fresh sets.
type Metrics struct {
	registry *prometheus.Registry

	ConnectedTourists prometheus.Gauge
	LocationUpdates   prometheus.Counter
	AlertsConsumed    prometheus.Counter
	AlertsDelivered   *prometheus.CounterVec
	ScorePushes       prometheus.Counter
	ScoreAlerts       *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		ConnectedTourists: factory.NewGauge(prometheus.GaugeOpts{
			Name: "safetrail_connected_tourists",
			Help: "Tourists with a live websocket session.",
		}),
		LocationUpdates: factory.NewCounter(prometheus.CounterOpts{
			Name: "safetrail_location_updates_total",
			Help: "Location pings received over websocket.",
		}),
		AlertsConsumed: factory.NewCounter(prometheus.CounterOpts{
			Name: "safetrail_authority_alerts_consumed_total",
			Help: "Authority alerts consumed from the broker.",
		}),
		AlertsDelivered: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "safetrail_authority_alerts_delivered_total",
			Help: "Authority alert pushes delivered to tourists.",
		}, []string{"priority"}),
		ScorePushes: factory.NewCounter(prometheus.CounterOpts{
			Name: "safetrail_score_pushes_total",
			Help: "Safety score updates pushed to tourists.",
		}),
		ScoreAlerts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "safetrail_score_alerts_total",
			Help: "Score-change alerts pushed to tourists.",
		}, []string{"change_type"}),
	}
}

// Handler serves the /metrics endpoint for this instance's registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
