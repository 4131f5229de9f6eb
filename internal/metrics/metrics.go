// Package metrics wires manager.Manager's log and retransmit-reason event
// streams into Prometheus collectors, exposed by gsdemo over an HTTP
// /metrics endpoint.
package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/relaysync/gamesync/manager"
	"github.com/relaysync/gamesync/transceiver"
)

// Metrics holds the collectors registered against a *prometheus.Registry.
type Metrics struct {
	Registered       prometheus.Gauge
	DecodeErrors     prometheus.Counter
	UnregisteredID   prometheus.Counter
	UnregisteredTag  prometheus.Counter
	RetransmitEvents *prometheus.CounterVec
}

// New creates and registers the collector set against reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Registered: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "gamesync",
			Name:      "registered_transceivers",
			Help:      "Number of transceivers currently registered with the manager.",
		}),
		DecodeErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "gamesync",
			Name:      "decode_errors_total",
			Help:      "Inbound frames that failed to decode.",
		}),
		UnregisteredID: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "gamesync",
			Name:      "unregistered_update_total",
			Help:      "Identified-variant frames that arrived with no matching registration.",
		}),
		UnregisteredTag: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "gamesync",
			Name:      "unregistered_unknown_total",
			Help:      "Unknown-tag frames that arrived with no matching registration.",
		}),
		RetransmitEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gamesync",
			Name:      "retransmit_reason_total",
			Help:      "Retransmit decisions by reason.",
		}, []string{"reason"}),
	}
}

// ObserveLog is a manager.Manager OnLog sink that tallies decode errors.
// Everything else is left to the textual log.
func (m *Metrics) ObserveLog(level manager.LogLevel, msg string) {
	if level == manager.LogError && strings.HasPrefix(msg, "decode error") {
		m.DecodeErrors.Inc()
	}
}

// ObserveUnregisteredUpdate is an OnUnregisteredUpdate sink.
func (m *Metrics) ObserveUnregisteredUpdate() {
	m.UnregisteredID.Inc()
}

// ObserveUnregisteredUnknown is an OnUnregisteredUnknown sink.
func (m *Metrics) ObserveUnregisteredUnknown() {
	m.UnregisteredTag.Inc()
}

// RetransmitReasons is a transceiver.Config.RetransmitReasons sink.
func (m *Metrics) RetransmitReasons(reason transceiver.RetransmitReason) {
	if reason == transceiver.ReasonNone {
		return
	}
	m.RetransmitEvents.WithLabelValues(string(reason)).Inc()
}
