package stats

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// newPublishCounterVec creates a counter vec with the standard pulseflow/publish namespace.
func newPublishCounterVec(name, help string, constLabels prometheus.Labels, labels []string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   "pulseflow",
			Subsystem:   "publish",
			Name:        name,
			Help:        help,
			ConstLabels: constLabels,
		},
		labels,
	)
}

// newPublishHistogramVec creates a histogram vec with the standard pulseflow/publish namespace.
func newPublishHistogramVec(name, help string, buckets []float64, constLabels prometheus.Labels, labels []string) *prometheus.HistogramVec {
	return prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   "pulseflow",
			Subsystem:   "publish",
			Name:        name,
			Help:        help,
			Buckets:     buckets,
			ConstLabels: constLabels,
		},
		labels,
	)
}

// PrometheusDrain exports publish observations as Prometheus metrics.
// Every observation increments the publish counter; durations, routing key
// counts and payload sizes feed the remaining collectors.
type PrometheusDrain struct {
	messagesTotal    *prometheus.CounterVec
	routingKeysTotal *prometheus.CounterVec
	durationSeconds  *prometheus.HistogramVec
	payloadBytes     *prometheus.HistogramVec

	registerer prometheus.Registerer
	registered bool
}

// NewPrometheusDrain creates a drain that reports under the pulseflow_publish
// namespace. Component and process are attached as constant labels. A nil
// registerer falls back to the default registerer.
func NewPrometheusDrain(registerer prometheus.Registerer, component, process string) *PrometheusDrain {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	constLabels := prometheus.Labels{"component": component, "process": process}

	return &PrometheusDrain{
		registerer:       registerer,
		messagesTotal:    newPublishCounterVec("messages_total", "Total number of publish attempts, by exchange and outcome", constLabels, []string{"exchange", "outcome"}),
		routingKeysTotal: newPublishCounterVec("routing_keys_total", "Total number of routing keys a message was addressed to, including CC entries", constLabels, []string{"exchange"}),
		durationSeconds:  newPublishHistogramVec("duration_seconds", "Time from publish call to broker confirmation", prometheus.DefBuckets, constLabels, []string{"exchange"}),
		payloadBytes:     newPublishHistogramVec("payload_bytes", "Size of the serialized message payload", prometheus.ExponentialBuckets(64, 4, 8), constLabels, []string{"exchange"}),
	}
}

// Register registers the Prometheus collectors. Safe to call multiple times.
func (d *PrometheusDrain) Register() error {
	if d.registered {
		return nil
	}

	collectors := []prometheus.Collector{
		d.messagesTotal,
		d.routingKeysTotal,
		d.durationSeconds,
		d.payloadBytes,
	}

	for _, c := range collectors {
		if err := d.registerer.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}

	d.registered = true
	return nil
}

// Observe implements Drain.
func (d *PrometheusDrain) Observe(obs Observation) {
	outcome := "ok"
	if obs.Error {
		outcome = "error"
	}
	d.messagesTotal.WithLabelValues(obs.Exchange, outcome).Inc()
	d.routingKeysTotal.WithLabelValues(obs.Exchange).Add(float64(obs.RoutingKeys))
	d.durationSeconds.WithLabelValues(obs.Exchange).Observe(obs.Duration.Seconds())
	if obs.PayloadSize > 0 {
		d.payloadBytes.WithLabelValues(obs.Exchange).Observe(float64(obs.PayloadSize))
	}
}

// Handler returns an HTTP handler exposing the drain's registry. When the
// registerer is not also a Gatherer the default gatherer is served instead.
func (d *PrometheusDrain) Handler() http.Handler {
	if gatherer, ok := d.registerer.(prometheus.Gatherer); ok {
		return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
	}
	return promhttp.Handler()
}
